package session

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/school-notify/internal/api"
	"github.com/nhle/school-notify/internal/credential"
	"github.com/nhle/school-notify/internal/inbox"
)

// tokenKey is the keyring entry holding the bearer token.
const tokenKey = "api-token"

// Session ties the authenticated lifetime of the application together:
// the bearer token in the system keyring, the API client using it, the
// inbox state, and the background poller. Login starts the poller; logout
// is required to stop it. The poller must never outlive the session it
// was started for.
type Session struct {
	client       *api.Client
	inbox        *inbox.Inbox
	poller       *inbox.Poller
	pollInterval time.Duration
	loggedIn     bool
}

// New creates a session manager. The poller is created lazily at login.
func New(client *api.Client, ib *inbox.Inbox, pollInterval time.Duration) *Session {
	return &Session{
		client:       client,
		inbox:        ib,
		pollInterval: pollInterval,
	}
}

// LoggedIn reports whether a session is active.
func (s *Session) LoggedIn() bool {
	return s.loggedIn
}

// Poller returns the active poller, or nil when logged out.
func (s *Session) Poller() *inbox.Poller {
	return s.poller
}

// Resume tries to restore a previous session from the keyring. Returns the
// poller's start command when a stored token exists.
func (s *Session) Resume() (tea.Cmd, bool) {
	token, err := credential.Get(tokenKey)
	if err != nil || token == "" {
		return nil, false
	}
	return s.begin(token), true
}

// Login stores the token and starts the session. The returned command
// kicks off the initial inbox fetch and the recurring unread-count poll.
func (s *Session) Login(token string) (tea.Cmd, error) {
	if err := credential.Set(tokenKey, token); err != nil {
		return nil, err
	}
	return s.begin(token), nil
}

// begin wires the token into the client and starts a fresh poller.
// Pollers are single-use, so each login gets its own.
func (s *Session) begin(token string) tea.Cmd {
	s.client.SetToken(token)
	s.poller = inbox.NewPoller(s.inbox, s.pollInterval)
	s.loggedIn = true
	return s.poller.Start()
}

// Logout tears the session down: the poller stops, the in-memory inbox is
// cleared, and the stored token is removed. Called both for an explicit
// logout and for any 401 seen anywhere in the application.
func (s *Session) Logout() {
	if s.poller != nil {
		s.poller.Stop()
		s.poller = nil
	}
	s.inbox.Clear()
	s.client.SetToken("")
	s.loggedIn = false
	// Removing a token that was never stored is fine.
	_ = credential.Delete(tokenKey)
}
