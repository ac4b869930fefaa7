package inbox_test

import (
	"testing"
	"time"

	"github.com/nhle/school-notify/internal/api"
	"github.com/nhle/school-notify/internal/inbox"
	"github.com/nhle/school-notify/tests/testutil"
)

func TestPollerInitialFetch(t *testing.T) {
	svc := &fakeService{page: &api.InboxPage{
		Notifications: []api.RawNotification{
			rawRecord(1, "a", false),
			rawRecord(2, "b", false),
		},
		UnreadCount: 2,
	}}
	ib := inbox.New(svc, testutil.NewTestStore(t), 50)

	p := inbox.NewPoller(ib, time.Hour)
	defer p.Stop()

	cmd := p.Start()
	if cmd == nil {
		t.Fatal("Start must return a subscription command")
	}

	raw := cmd()
	msg, ok := raw.(inbox.RefreshedMsg)
	if !ok {
		t.Fatalf("expected RefreshedMsg, got %T", raw)
	}
	if !msg.Initial {
		t.Error("first message must be flagged Initial")
	}
	if msg.UnreadCount != 2 {
		t.Errorf("UnreadCount = %d, want 2", msg.UnreadCount)
	}
	if len(ib.Snapshot()) != 2 {
		t.Error("initial fetch should populate the inbox")
	}
}

func TestPollerStopIsIdempotent(t *testing.T) {
	svc := &fakeService{page: &api.InboxPage{}}
	ib := inbox.New(svc, testutil.NewTestStore(t), 50)

	p := inbox.NewPoller(ib, time.Hour)
	p.Start()

	p.Stop()
	p.Stop() // must not panic on double close
}

func TestPollerIsSingleUse(t *testing.T) {
	svc := &fakeService{page: &api.InboxPage{}}
	ib := inbox.New(svc, testutil.NewTestStore(t), 50)

	p := inbox.NewPoller(ib, time.Hour)
	p.Stop()

	if cmd := p.Start(); cmd != nil {
		t.Error("a stopped poller must refuse to start")
	}
}

func TestPollerWaitReturnsNilAfterStop(t *testing.T) {
	svc := &fakeService{page: &api.InboxPage{}}
	ib := inbox.New(svc, testutil.NewTestStore(t), 50)

	p := inbox.NewPoller(ib, time.Hour)
	p.Stop()

	if msg := p.WaitForNext()(); msg != nil {
		t.Errorf("WaitForNext after Stop = %v, want nil", msg)
	}
}
