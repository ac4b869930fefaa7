package inboxlist

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/school-notify/internal/inbox"
	"github.com/nhle/school-notify/internal/keys"
	"github.com/nhle/school-notify/internal/model"
	"github.com/nhle/school-notify/internal/theme"
)

// OpenedMsg is sent when the user opens an inbox row. The record has
// already been marked read locally by the time this message is emitted.
type OpenedMsg struct {
	Notification model.Notification
}

// RefetchMsg asks the parent to run a full inbox fetch.
type RefetchMsg struct{}

// ActionDoneMsg reports the outcome of a user-initiated mutation
// (mark-all, delete, delete-all).
type ActionDoneMsg struct {
	Action string
	Err    error
}

// Model is the recipient inbox view. It renders the inbox state container
// and owns the user-facing mutations on it.
type Model struct {
	list        list.Model
	inbox       *inbox.Inbox
	keys        *keys.KeyMap
	spin        spinner.Model
	busy        bool
	searchMode  bool
	searchInput textinput.Model
	query       string
	width       int
	height      int
}

// New creates a new inbox list model.
func New(ib *inbox.Inbox, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Inbox"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search notifications..."
	si.Prompt = "/ "
	si.Width = width - 4

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		list:        l,
		inbox:       ib,
		keys:        k,
		spin:        sp,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Reload rebuilds the visible items from the inbox snapshot, applying the
// active search query. Call after any state change.
func (m *Model) Reload() {
	snapshot := m.inbox.Snapshot()

	items := make([]list.Item, 0, len(snapshot))
	for _, n := range snapshot {
		if m.query != "" && !matches(n, m.query) {
			continue
		}
		items = append(items, Item{Notification: n})
	}
	m.list.SetItems(items)
}

// Update handles messages for the inbox view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
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
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.query = m.searchInput.Value()
		m.Reload()
		return m, nil

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.query = ""
		m.Reload()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(Item)
		if !ok {
			return m, nil
		}
		// Opening a row marks it read synchronously and locally; there is
		// no network call and nothing to roll back.
		m.inbox.MarkRead(item.Notification.ID)
		opened := item.Notification
		opened.LocalRead = true
		m.Reload()
		return m, func() tea.Msg {
			return OpenedMsg{Notification: opened}
		}

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.Refresh):
		return m, func() tea.Msg { return RefetchMsg{} }

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

// markAllCmd runs the bulk mark-as-read. Local state changes only when
// the network call succeeds; on failure the error surfaces as a toast.
func (m Model) markAllCmd() tea.Cmd {
	ib := m.inbox
	return func() tea.Msg {
		err := ib.MarkAllRead(context.Background())
		return ActionDoneMsg{Action: "mark all read", Err: err}
	}
}

// deleteCmd deletes one notification.
func (m Model) deleteCmd(id int64) tea.Cmd {
	ib := m.inbox
	return func() tea.Msg {
		err := ib.Delete(context.Background(), id)
		return ActionDoneMsg{Action: "delete", Err: err}
	}
}

// deleteAllCmd deletes the whole inbox.
func (m Model) deleteAllCmd() tea.Cmd {
	ib := m.inbox
	return func() tea.Msg {
		err := ib.DeleteAll(context.Background())
		return ActionDoneMsg{Action: "delete all", Err: err}
	}
}

// View renders the inbox view.
func (m Model) View() string {
	var bars []string

	if m.searchMode {
		bars = append(bars, lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View()))
	}

	if err := m.inbox.Err(); err != nil {
		bars = append(bars, theme.ErrorStyle.
			Padding(0, 1).
			Render("Could not load notifications: "+err.Error()))
	}

	if m.busy {
		bars = append(bars, lipgloss.NewStyle().
			Padding(0, 1).
			Render(m.spin.View()+" working..."))
	}

	if len(m.list.Items()) == 0 && !m.inbox.Loading() {
		bars = append(bars, m.renderEmptyState())
		return lipgloss.JoinVertical(lipgloss.Left, bars...)
	}

	bars = append(bars, m.list.View())
	return lipgloss.JoinVertical(lipgloss.Left, bars...)
}

// renderEmptyState shows guidance text when the inbox is empty.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height - 2).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.query != "" {
		return style.Render("No matching notifications.")
	}
	return style.Render("No notifications yet.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}

// matches reports whether a record matches the search query by substring
// on title or message.
func matches(n model.Notification, query string) bool {
	return containsFold(n.Title, query) || containsFold(n.Message, query)
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
