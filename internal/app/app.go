package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/school-notify/internal/api"
	"github.com/nhle/school-notify/internal/inbox"
	"github.com/nhle/school-notify/internal/keys"
	"github.com/nhle/school-notify/internal/session"
	"github.com/nhle/school-notify/internal/ui"
	"github.com/nhle/school-notify/internal/ui/compose"
	"github.com/nhle/school-notify/internal/ui/detail"
	helpview "github.com/nhle/school-notify/internal/ui/help"
	"github.com/nhle/school-notify/internal/ui/inboxlist"
	"github.com/nhle/school-notify/internal/ui/login"
	"github.com/nhle/school-notify/internal/ui/sentlist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewInbox
	ViewSent
	ViewDetail
	ViewCompose
	ViewHelp
)

// cacheLoadedMsg fires once the local cache has been read at startup.
type cacheLoadedMsg struct{}

// inboxFetchedMsg reports a user-initiated full inbox fetch.
type inboxFetchedMsg struct {
	err error
}

// sessionStartedMsg carries the poller subscription command produced by a
// successful login or resume.
type sessionStartedMsg struct {
	pollCmd tea.Cmd
}

// Model is the root Bubble Tea model: view routing, session lifecycle,
// and the global 401 handling every view relies on.
type Model struct {
	currentView  ViewState
	previousView ViewState

	layout ui.Layout
	client *api.Client
	svc    *api.Service
	sess   *session.Session
	inbox  *inbox.Inbox
	sent   *inbox.Sentbox
	keys   *keys.KeyMap

	loginView   login.Model
	inboxView   inboxlist.Model
	sentView    sentlist.Model
	detailView  detail.Model
	composeView compose.Model
	helpView    helpview.Model

	detailFromSent bool
	unreadCount    int
	toast          string
	ready          bool
}

// New creates the root application model.
func New(
	client *api.Client,
	svc *api.Service,
	sess *session.Session,
	ib *inbox.Inbox,
	sent *inbox.Sentbox,
) Model {
	k := keys.DefaultKeyMap()

	validate := func(ctx context.Context, token string) error {
		client.SetToken(token)
		_, err := svc.MyNotifications(ctx, 1, 1)
		if err != nil {
			client.SetToken("")
		}
		return err
	}

	return Model{
		currentView: ViewLogin,
		client:      client,
		svc:         svc,
		sess:        sess,
		inbox:       ib,
		sent:        sent,
		keys:        k,
		loginView:   login.New(validate, 80, 24),
		inboxView:   inboxlist.New(ib, k, 80, 24),
		sentView:    sentlist.New(sent, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
	}
}

// Init restores a previous session when a stored token exists, otherwise
// shows the login view.
func (m Model) Init() tea.Cmd {
	if pollCmd, ok := m.sess.Resume(); ok {
		m.currentView = ViewInbox
		return tea.Batch(m.loadCacheCmd(), pollCmd)
	}
	return m.loginView.Init()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.loginView.SetSize(w, h)
		m.inboxView.SetSize(w, h)
		m.sentView.SetSize(w, h)
		m.detailView.SetSize(w, h)
		m.composeView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		return m.updateActiveView(msg)

	case cacheLoadedMsg:
		// Cached records render immediately; the poller's initial fetch
		// replaces them shortly after.
		if m.sess.LoggedIn() {
			m.currentView = ViewInbox
		}
		m.inboxView.Reload()
		m.sentView.Reload()
		return m, nil

	case sessionStartedMsg:
		m.currentView = ViewInbox
		return m, tea.Batch(m.loadCacheCmd(), msg.pollCmd)

	case inbox.RefreshedMsg:
		if api.IsAuthError(msg.Err) {
			return m.forceLogin()
		}
		m.unreadCount = msg.UnreadCount
		m.inboxView.Reload()
		// Keep listening while a session is active.
		if p := m.sess.Poller(); p != nil {
			return m, p.WaitForNext()
		}
		return m, nil

	case inboxFetchedMsg:
		if api.IsAuthError(msg.err) {
			return m.forceLogin()
		}
		m.unreadCount = m.inbox.UnreadCount()
		m.inboxView.Reload()
		return m, nil

	case login.AuthenticatedMsg:
		pollCmd, err := m.sess.Login(msg.Token)
		if err != nil {
			m.toast = "Could not store token: " + err.Error()
			return m, nil
		}
		return m, func() tea.Msg { return sessionStartedMsg{pollCmd: pollCmd} }

	case inboxlist.OpenedMsg:
		m.unreadCount = m.inbox.UnreadCount()
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detailFromSent = false
		m.detailView = detail.New(
			msg.Notification, false, m.svc, m.keys,
			m.layout.ContentWidth(), m.layout.ContentHeight(),
		)
		return m, m.detailView.Init()

	case sentlist.OpenedMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detailFromSent = true
		m.detailView = detail.New(
			msg.Notification, true, m.svc, m.keys,
			m.layout.ContentWidth(), m.layout.ContentHeight(),
		)
		return m, m.detailView.Init()

	case inboxlist.RefetchMsg:
		return m, m.fetchInboxCmd()

	case inboxlist.ActionDoneMsg:
		if api.IsAuthError(msg.Err) {
			return m.forceLogin()
		}
		m.toast = actionToast(msg.Action, msg.Err)
		m.unreadCount = m.inbox.UnreadCount()
		return m.updateActiveView(msg)

	case sentlist.FetchedMsg:
		if api.IsAuthError(msg.Err) {
			return m.forceLogin()
		}
		return m.updateActiveView(msg)

	case sentlist.ActionDoneMsg:
		if api.IsAuthError(msg.Err) {
			return m.forceLogin()
		}
		m.toast = actionToast(msg.Action, msg.Err)
		return m.updateActiveView(msg)

	case detail.ReceiptsLoadedMsg:
		if api.IsAuthError(msg.Err) {
			return m.forceLogin()
		}
		return m.updateActiveView(msg)

	case compose.SubmittedMsg:
		m.toast = fmt.Sprintf("Sent %q", msg.Title)
		m.currentView = ViewSent
		return m, m.sentView.Init()

	case compose.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case compose.AuthRequiredMsg:
		return m.forceLogin()

	case tea.KeyMsg:
		m.toast = ""
		if newModel, cmd, handled := m.handleGlobalKeys(msg); handled {
			return newModel, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKeys processes keys that apply across views. Views that own
// text input (login, compose, inbox search) see their keys first.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		m.stopPolling()
		return m, tea.Quit, true
	}

	// Everything below is list-level navigation; text-entry views keep
	// their keystrokes.
	if m.currentView == ViewLogin || m.currentView == ViewCompose {
		return m, nil, false
	}

	switch msg.String() {
	case "q":
		if m.currentView == ViewInbox || m.currentView == ViewSent {
			m.stopPolling()
			return m, tea.Quit, true
		}

	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case "esc":
		switch m.currentView {
		case ViewDetail, ViewHelp:
			m.currentView = m.previousView
			m.inboxView.Reload()
			m.sentView.Reload()
			return m, nil, true
		}

	case "tab":
		switch m.currentView {
		case ViewInbox:
			m.currentView = ViewSent
			return m, m.sentView.Init(), true
		case ViewSent:
			m.currentView = ViewInbox
			m.inboxView.Reload()
			return m, nil, true
		}

	case "n":
		if m.currentView == ViewInbox || m.currentView == ViewSent {
			m.previousView = m.currentView
			m.currentView = ViewCompose
			m.composeView = compose.New(
				m.svc,
				m.layout.ContentWidth(), m.layout.ContentHeight(),
			)
			return m, m.composeView.Init(), true
		}

	case "ctrl+l":
		model, cmd := m.forceLogin()
		return model, cmd, true
	}

	return m, nil, false
}

// forceLogin tears the session down and shows the login view. Used for
// explicit logout and for any 401 the API reports.
func (m Model) forceLogin() (tea.Model, tea.Cmd) {
	m.sess.Logout()
	m.sent.Clear()
	m.unreadCount = 0
	m.toast = ""
	m.inboxView.Reload()
	m.sentView.Reload()
	m.currentView = ViewLogin
	return m, m.loginView.Init()
}

// stopPolling halts the background poller before the program exits.
func (m Model) stopPolling() {
	if p := m.sess.Poller(); p != nil {
		p.Stop()
	}
}

// loadCacheCmd reads cached records so the lists have content before the
// first fetch lands.
func (m Model) loadCacheCmd() tea.Cmd {
	ib, sent := m.inbox, m.sent
	return func() tea.Msg {
		ctx := context.Background()
		_ = ib.LoadCache(ctx)
		_ = sent.LoadCache(ctx)
		return cacheLoadedMsg{}
	}
}

// fetchInboxCmd runs a user-initiated full inbox fetch.
func (m Model) fetchInboxCmd() tea.Cmd {
	ib := m.inbox
	return func() tea.Msg {
		err := ib.Fetch(context.Background())
		return inboxFetchedMsg{err: err}
	}
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewInbox:
		m.inboxView, cmd = m.inboxView.Update(msg)
	case ViewSent:
		m.sentView, cmd = m.sentView.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case ViewCompose:
		m.composeView, cmd = m.composeView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.currentView == ViewLogin {
		return m.loginView.View()
	}

	headerTitle := "School Notify"
	if m.unreadCount > 0 {
		headerTitle = fmt.Sprintf("School Notify [%d unread]", m.unreadCount)
	}
	header := m.layout.RenderHeader(headerTitle, m.boxLabel())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.statusLine())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewInbox:
		return m.inboxView.View()
	case ViewSent:
		return m.sentView.View()
	case ViewDetail:
		return m.detailView.View()
	case ViewCompose:
		return m.composeView.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

// boxLabel names the active box for the header's right side.
func (m Model) boxLabel() string {
	switch m.currentView {
	case ViewInbox:
		return "inbox"
	case ViewSent:
		return "sent"
	case ViewDetail:
		if m.detailFromSent {
			return "sent"
		}
		return "inbox"
	case ViewCompose:
		return "compose"
	default:
		return ""
	}
}

// statusLine returns the status bar content: a transient action toast when
// one is pending, keyboard hints otherwise.
func (m Model) statusLine() string {
	if m.toast != "" {
		return m.toast
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewDetail:
		if m.detailFromSent {
			return "esc back | ←/→ recipients page | j/k scroll"
		}
		return "esc back | j/k scroll"
	case ViewCompose:
		return "enter next | esc cancel"
	case ViewSent:
		return "q quit | ? help | tab inbox | n new | r refresh | d delete | m mark all"
	default:
		return "q quit | ? help | tab sent | n new | / search | r refresh | m mark all"
	}
}

// actionToast formats the outcome of a mutation for the status bar.
func actionToast(action string, err error) string {
	if err != nil {
		return "Could not " + action + ": " + err.Error()
	}
	switch action {
	case "mark all read":
		return "All notifications marked as read"
	case "delete":
		return "Notification deleted"
	case "delete all":
		return "All notifications deleted"
	default:
		return ""
	}
}
