package sentlist

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/school-notify/internal/inbox"
	"github.com/nhle/school-notify/internal/keys"
	"github.com/nhle/school-notify/internal/model"
	"github.com/nhle/school-notify/internal/theme"
)

// OpenedMsg is sent when the user opens a sent row. The record has
// already been marked read locally.
type OpenedMsg struct {
	Notification model.Notification
}

// FetchedMsg reports the outcome of a sent-list fetch.
type FetchedMsg struct {
	Err error
}

// ActionDoneMsg reports the outcome of a mutation on the sent box.
type ActionDoneMsg struct {
	Action string
	Err    error
}

// Model is the sender-side list view. It holds its own copy of the
// notification records through the sent box and never touches the inbox.
type Model struct {
	list   list.Model
	box    *inbox.Sentbox
	keys   *keys.KeyMap
	spin   spinner.Model
	busy   bool
	width  int
	height int
}

// New creates a new sent list model.
func New(box *inbox.Sentbox, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Sent"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		list:   l,
		box:    box,
		keys:   k,
		spin:   sp,
		width:  width,
		height: height,
	}
}

// Init triggers the initial fetch.
func (m Model) Init() tea.Cmd {
	return m.fetchCmd()
}

// Reload rebuilds the visible items from the sent box snapshot.
func (m *Model) Reload() {
	snapshot := m.box.Snapshot()
	items := make([]list.Item, 0, len(snapshot))
	for _, n := range snapshot {
		items = append(items, Item{Notification: n})
	}
	m.list.SetItems(items)
}

// Update handles messages for the sent view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case FetchedMsg:
		m.busy = false
		m.Reload()
		return m, nil

	case ActionDoneMsg:
		m.busy = false
		m.Reload()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(Item)
		if !ok {
			return m, nil
		}
		m.box.MarkRead(item.Notification.ID)
		opened := item.Notification
		opened.LocalRead = true
		m.Reload()
		return m, func() tea.Msg {
			return OpenedMsg{Notification: opened}
		}

	case key.Matches(msg, m.keys.Refresh):
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, tea.Batch(m.spin.Tick, m.fetchCmd())

	case key.Matches(msg, m.keys.MarkAll):
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, tea.Batch(m.spin.Tick, m.markAllCmd())

	case key.Matches(msg, m.keys.Delete):
		item, ok := m.list.SelectedItem().(Item)
		if !ok || m.busy {
			return m, nil
		}
		m.busy = true
		return m, tea.Batch(m.spin.Tick, m.deleteCmd(item.Notification.ID))

	case key.Matches(msg, m.keys.DeleteAll):
		if m.busy || len(m.list.Items()) == 0 {
			return m, nil
		}
		m.busy = true
		return m, tea.Batch(m.spin.Tick, m.deleteAllCmd())
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) fetchCmd() tea.Cmd {
	box := m.box
	return func() tea.Msg {
		err := box.Fetch(context.Background())
		return FetchedMsg{Err: err}
	}
}

func (m Model) markAllCmd() tea.Cmd {
	box := m.box
	return func() tea.Msg {
		err := box.MarkAllRead(context.Background())
		return ActionDoneMsg{Action: "mark all read", Err: err}
	}
}

func (m Model) deleteCmd(id int64) tea.Cmd {
	box := m.box
	return func() tea.Msg {
		err := box.Delete(context.Background(), id)
		return ActionDoneMsg{Action: "delete", Err: err}
	}
}

func (m Model) deleteAllCmd() tea.Cmd {
	box := m.box
	return func() tea.Msg {
		err := box.DeleteAll(context.Background())
		return ActionDoneMsg{Action: "delete all", Err: err}
	}
}

// View renders the sent view.
func (m Model) View() string {
	var bars []string

	if err := m.box.Err(); err != nil {
		bars = append(bars, theme.ErrorStyle.
			Padding(0, 1).
			Render("Could not load sent notifications: "+err.Error()))
	}

	if m.busy {
		bars = append(bars, lipgloss.NewStyle().
			Padding(0, 1).
			Render(m.spin.View()+" working..."))
	}

	if len(m.list.Items()) == 0 && !m.box.Loading() {
		empty := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height - 2).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Nothing sent yet. Press n to compose a notification.")
		bars = append(bars, empty)
		return lipgloss.JoinVertical(lipgloss.Left, bars...)
	}

	bars = append(bars, m.list.View())
	return lipgloss.JoinVertical(lipgloss.Left, bars...)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
