package inbox

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// fetchTimeout is the maximum time allowed for a single network operation
// started by the poller.
const fetchTimeout = 30 * time.Second

// RefreshedMsg is a tea.Msg sent whenever the poller has updated inbox
// state: the initial full fetch on start, and every unread-count refresh
// after that.
type RefreshedMsg struct {
	UnreadCount int
	// Initial is set on the message produced by the full fetch that runs
	// when the poller starts.
	Initial bool
	// Err carries the initial fetch error, if any. Background refresh
	// failures are swallowed by the inbox and never reach the UI.
	Err error
}

// Poller drives the inbox's background refresh: one full fetch on start,
// then a lightweight unread-count poll on a fixed interval. A Poller is
// single-use: it is created at login and stopped at logout. Stopping it is
// mandatory; a leaked ticker would keep polling with a stale token.
type Poller struct {
	inbox    *Inbox
	interval time.Duration
	resultCh chan RefreshedMsg
	stopCh   chan struct{}
	mu       sync.Mutex
	running  bool
	stopped  bool
}

// NewPoller creates a poller over the given inbox. A non-positive interval
// falls back to 30 seconds.
func NewPoller(i *Inbox, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		inbox:    i,
		interval: interval,
		resultCh: make(chan RefreshedMsg, 16),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a command that
// subscribes to its results. Calling Start twice is a no-op.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.run()

	return p.waitForResult()
}

// Stop halts the polling goroutine. Safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	p.stopped = true
	p.running = false
	close(p.stopCh)
}

// WaitForNext returns a command that waits for the next poller result.
// Call it after processing a RefreshedMsg to keep listening.
func (p *Poller) WaitForNext() tea.Cmd {
	return p.waitForResult()
}

// run is the polling loop: an immediate full fetch, then the recurring
// unread-count refresh.
func (p *Poller) run() {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	err := p.inbox.Fetch(ctx)
	cancel()

	p.send(RefreshedMsg{
		UnreadCount: p.inbox.UnreadCount(),
		Initial:     true,
		Err:         err,
	})

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			p.inbox.RefreshUnreadCount(ctx)
			cancel()
			p.send(RefreshedMsg{UnreadCount: p.inbox.UnreadCount()})
		}
	}
}

// send delivers a result without blocking the polling loop.
func (p *Poller) send(msg RefreshedMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if the channel is full; the next tick supersedes this one.
	}
}

// waitForResult returns a command that blocks on the result channel.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-p.resultCh:
			return msg
		case <-p.stopCh:
			return nil
		}
	}
}
