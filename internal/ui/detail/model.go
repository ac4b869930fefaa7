package detail

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/school-notify/internal/api"
	"github.com/nhle/school-notify/internal/keys"
	"github.com/nhle/school-notify/internal/model"
	"github.com/nhle/school-notify/internal/theme"
)

const receiptsPageSize = 10

// Service is the slice of the notification API the detail view needs.
type Service interface {
	NotificationByID(ctx context.Context, id int64) (*api.RawNotification, error)
	NotificationRecipients(ctx context.Context, id int64, page, limit int) (*api.RecipientsPage, error)
}

// recordLoadedMsg carries the full record fetched on open. List payloads
// can be truncated; the by-id endpoint returns the complete body.
type recordLoadedMsg struct {
	notificationID int64
	record         *model.Notification
}

// ReceiptsLoadedMsg carries one page of read receipts.
type ReceiptsLoadedMsg struct {
	NotificationID int64
	Page           int
	Receipts       []model.RecipientReceipt
	Total          int
	Err            error
}

// Model is the notification detail view. For sent notifications it also
// shows a paginated panel of per-recipient read receipts.
type Model struct {
	notification model.Notification
	fromSent     bool

	svc      Service
	keys     *keys.KeyMap
	viewport viewport.Model

	pager           paginator.Model
	receipts        []model.RecipientReceipt
	receiptsTotal   int
	receiptsPage    int
	loadingReceipts bool
	receiptsErr     error

	width  int
	height int
}

// New creates a detail view for the given notification. fromSent controls
// whether the recipient receipts panel is shown.
func New(
	n model.Notification,
	fromSent bool,
	svc Service,
	k *keys.KeyMap,
	width, height int,
) Model {
	p := paginator.New()
	p.Type = paginator.Dots
	p.PerPage = receiptsPageSize
	p.ActiveDot = theme.UnreadStyle.Render("•")
	p.InactiveDot = theme.ReadStyle.Render("•")

	m := Model{
		notification: n,
		fromSent:     fromSent,
		svc:          svc,
		keys:         k,
		pager:        p,
		receiptsPage: 1,
		width:        width,
		height:       height,
	}
	m.rebuildViewport()
	return m
}

// Init fetches the full record body, plus the first receipts page when
// viewing a sent notification.
func (m Model) Init() tea.Cmd {
	if m.fromSent {
		return tea.Batch(m.loadRecordCmd(), m.loadReceiptsCmd(1))
	}
	return m.loadRecordCmd()
}

// loadRecordCmd refetches the record by id. Failures are ignored; the
// list copy already on screen stays up.
func (m Model) loadRecordCmd() tea.Cmd {
	svc := m.svc
	id := m.notification.ID
	return func() tea.Msg {
		raw, err := svc.NotificationByID(context.Background(), id)
		if err != nil {
			return recordLoadedMsg{notificationID: id}
		}
		return recordLoadedMsg{notificationID: id, record: api.Normalize(raw)}
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recordLoadedMsg:
		if msg.notificationID != m.notification.ID || msg.record == nil {
			return m, nil
		}
		// Server fields refresh; the local read mark belongs to this client.
		localRead := m.notification.LocalRead
		m.notification = *msg.record
		m.notification.LocalRead = localRead
		m.rebuildViewport()
		return m, nil

	case ReceiptsLoadedMsg:
		// A late page for a different notification is discarded.
		if msg.NotificationID != m.notification.ID {
			return m, nil
		}
		m.loadingReceipts = false
		m.receiptsErr = msg.Err
		if msg.Err == nil {
			m.receipts = msg.Receipts
			m.receiptsTotal = msg.Total
			m.receiptsPage = msg.Page
			m.pager.SetTotalPages(msg.Total)
			m.pager.Page = msg.Page - 1
		}
		m.rebuildViewport()
		return m, nil

	case tea.KeyMsg:
		if m.fromSent {
			switch {
			case key.Matches(msg, m.keys.NextPage):
				return m.turnPage(m.receiptsPage + 1)
			case key.Matches(msg, m.keys.PrevPage):
				return m.turnPage(m.receiptsPage - 1)
			}
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// turnPage fetches another receipts page if it exists.
func (m Model) turnPage(page int) (Model, tea.Cmd) {
	if page < 1 || m.loadingReceipts {
		return m, nil
	}
	lastPage := (m.receiptsTotal + receiptsPageSize - 1) / receiptsPageSize
	if lastPage > 0 && page > lastPage {
		return m, nil
	}
	m.loadingReceipts = true
	return m, m.loadReceiptsCmd(page)
}

// loadReceiptsCmd fetches one page of read receipts.
func (m Model) loadReceiptsCmd(page int) tea.Cmd {
	svc := m.svc
	id := m.notification.ID
	return func() tea.Msg {
		resp, err := svc.NotificationRecipients(context.Background(), id, page, receiptsPageSize)
		if err != nil {
			return ReceiptsLoadedMsg{NotificationID: id, Page: page, Err: err}
		}
		return ReceiptsLoadedMsg{
			NotificationID: id,
			Page:           page,
			Receipts:       resp.Receipts,
			Total:          resp.Total,
		}
	}
}

// View renders the detail view.
func (m Model) View() string {
	return m.viewport.View()
}

// SetSize updates the viewport dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.rebuildViewport()
}

// rebuildViewport re-renders the content into a fresh viewport, keeping
// the dimensions current.
func (m *Model) rebuildViewport() {
	vp := viewport.New(m.width, m.height-2)
	vp.SetContent(m.renderContent())
	m.viewport = vp
}

func (m *Model) renderContent() string {
	n := m.notification

	var b strings.Builder

	b.WriteString(theme.HeaderStyle.Render(n.Title))
	b.WriteString("\n\n")

	if n.SenderName != "" {
		sender := n.SenderName
		if n.SenderRole != "" {
			sender += " " + theme.RoleStyle(n.SenderRole).Render(n.SenderRole)
		}
		if n.SenderEmail != "" {
			sender += " " + theme.ReadStyle.Render("<"+n.SenderEmail+">")
		}
		b.WriteString("From: " + sender + "\n")
	}
	if n.CreatedAt != "" {
		b.WriteString("Sent: " + theme.ReadStyle.Render(n.CreatedAt) + "\n")
	}

	if len(n.Targets) > 0 {
		badges := make([]string, 0, len(n.Targets))
		for _, t := range n.Targets {
			label := t.Label
			if label == "" {
				label = api.TargetLabel(t, "", "")
			}
			badges = append(badges, theme.TargetBadgeStyle.Render(label))
		}
		b.WriteString("To: " + strings.Join(badges, " ") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(theme.DetailPanelStyle.Width(m.width - 4).Render(n.Message))
	b.WriteString("\n")

	if m.fromSent {
		b.WriteString("\n")
		b.WriteString(m.renderReceipts())
	}

	return b.String()
}

// renderReceipts renders the recipient read-receipt panel with its pager.
func (m *Model) renderReceipts() string {
	var b strings.Builder

	header := fmt.Sprintf("Recipients (%d read of %d)",
		m.notification.ReadCount, m.notification.RecipientsCount)
	b.WriteString(theme.UnreadStyle.Render(header))
	b.WriteString("\n")

	switch {
	case m.receiptsErr != nil:
		b.WriteString(theme.ErrorStyle.Render(
			"Could not load recipients: " + m.receiptsErr.Error()))
	case m.loadingReceipts:
		b.WriteString(theme.ReadStyle.Render("Loading..."))
	case len(m.receipts) == 0:
		b.WriteString(theme.ReadStyle.Render("No recipients."))
	default:
		for _, r := range m.receipts {
			mark := "○"
			detail := "unread"
			if r.IsRead {
				mark = "●"
				detail = "read"
				if r.ReadAt != nil && *r.ReadAt != "" {
					detail = "read " + *r.ReadAt
				}
			}
			line := fmt.Sprintf("%s %s %s  %s",
				mark, r.Name,
				theme.RoleStyle(r.Role).Render(r.Role),
				detail,
			)
			b.WriteString(theme.ReceiptStyle(r.IsRead).Render(line))
			b.WriteString("\n")
		}
	}

	if m.receiptsTotal > receiptsPageSize {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(m.width - 4).
			Align(lipgloss.Center).Render(m.pager.View()))
		b.WriteString("\n")
		b.WriteString(theme.HelpStyle.Render("←/→ recipients page"))
	}

	return b.String()
}

// Notification returns the record being shown.
func (m Model) Notification() model.Notification {
	return m.notification
}
