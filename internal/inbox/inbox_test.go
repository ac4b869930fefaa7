package inbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nhle/school-notify/internal/api"
	"github.com/nhle/school-notify/internal/inbox"
	"github.com/nhle/school-notify/internal/model"
	"github.com/nhle/school-notify/tests/testutil"
)

// fakeService counts every network operation so tests can assert which
// mutations touch the server and which stay local.
type fakeService struct {
	mu sync.Mutex

	page       *api.InboxPage
	fetchErr   error
	markAllErr error
	deleteErr  error

	myCalls      int
	markAllCalls int
	deleteCalls  int

	lastDeleteIDs []int64
	lastIsAll     bool
}

func (f *fakeService) MyNotifications(ctx context.Context, page, limit int) (*api.InboxPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.myCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.page, nil
}

func (f *fakeService) MarkAllAsRead(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markAllCalls++
	return f.markAllErr
}

func (f *fakeService) DeleteNotifications(ctx context.Context, ids []int64, isAll bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	f.lastDeleteIDs = ids
	f.lastIsAll = isAll
	return f.deleteErr
}

func (f *fakeService) calls() (my, markAll, del int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.myCalls, f.markAllCalls, f.deleteCalls
}

func rawRecord(id int64, title string, read bool) api.RawNotification {
	isRead := api.RawBool(read)
	created := "2026-05-01T10:00:00Z"
	return api.RawNotification{
		ID:        &id,
		Title:     title,
		CreatedAt: &created,
		IsRead:    &isRead,
	}
}

func newFetchedInbox(t *testing.T, svc *fakeService) *inbox.Inbox {
	t.Helper()
	ib := inbox.New(svc, testutil.NewTestStore(t), 50)
	if err := ib.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	return ib
}

func findByID(t *testing.T, ns []model.Notification, id int64) model.Notification {
	t.Helper()
	for _, n := range ns {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("record %d not found in %+v", id, ns)
	return model.Notification{}
}

func TestMarkReadIsLocalOnly(t *testing.T) {
	svc := &fakeService{page: &api.InboxPage{
		Notifications: []api.RawNotification{
			rawRecord(1, "a", false),
			rawRecord(2, "b", false),
		},
		UnreadCount: 2,
	}}
	ib := newFetchedInbox(t, svc)

	myBefore, markAllBefore, delBefore := svc.calls()
	ib.MarkRead(1)
	myAfter, markAllAfter, delAfter := svc.calls()

	if myAfter != myBefore || markAllAfter != markAllBefore || delAfter != delBefore {
		t.Error("MarkRead must not make any network call")
	}

	n := findByID(t, ib.Snapshot(), 1)
	if !n.LocalRead || n.ServerRead {
		t.Errorf("record = %+v, want LocalRead only", n)
	}
	if got := ib.UnreadCount(); got != 1 {
		t.Errorf("unread = %d, want 1", got)
	}
}

func TestMarkReadAlreadyReadIsNoOp(t *testing.T) {
	svc := &fakeService{page: &api.InboxPage{
		Notifications: []api.RawNotification{rawRecord(1, "a", false)},
		UnreadCount:   1,
	}}
	ib := newFetchedInbox(t, svc)

	ib.MarkRead(1)
	ib.MarkRead(1)
	ib.MarkRead(1)

	if got := ib.UnreadCount(); got != 0 {
		t.Errorf("unread = %d, want 0: repeat marks must not drive it negative", got)
	}
}

func TestMarkReadFloorsAtZero(t *testing.T) {
	// Server reports zero unread even though a record arrives unread; the
	// local counter must never go below zero.
	svc := &fakeService{page: &api.InboxPage{
		Notifications: []api.RawNotification{rawRecord(1, "a", false)},
		UnreadCount:   0,
	}}
	ib := newFetchedInbox(t, svc)

	ib.MarkRead(1)
	if got := ib.UnreadCount(); got != 0 {
		t.Errorf("unread = %d, want 0", got)
	}
}

func TestMarkAllReadFailureLeavesStateUntouched(t *testing.T) {
	svc := &fakeService{
		page: &api.InboxPage{
			Notifications: []api.RawNotification{
				rawRecord(1, "a", false),
				rawRecord(2, "b", false),
			},
			UnreadCount: 2,
		},
		markAllErr: errors.New("500 from server"),
	}
	ib := newFetchedInbox(t, svc)

	err := ib.MarkAllRead(context.Background())
	if err == nil {
		t.Fatal("expected the server error to propagate")
	}

	for _, n := range ib.Snapshot() {
		if n.Read() {
			t.Errorf("record %d flipped to read despite failed call", n.ID)
		}
	}
	if got := ib.UnreadCount(); got != 2 {
		t.Errorf("unread = %d, want 2 (unchanged)", got)
	}
}

func TestMarkAllReadSuccess(t *testing.T) {
	svc := &fakeService{page: &api.InboxPage{
		Notifications: []api.RawNotification{
			rawRecord(1, "a", false),
			rawRecord(2, "b", true),
		},
		UnreadCount: 1,
	}}
	ib := newFetchedInbox(t, svc)

	if err := ib.MarkAllRead(context.Background()); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}

	for _, n := range ib.Snapshot() {
		if !n.LocalRead || !n.ServerRead {
			t.Errorf("record %d = %+v, want both flags set", n.ID, n)
		}
	}
	if got := ib.UnreadCount(); got != 0 {
		t.Errorf("unread = %d, want 0", got)
	}
	if _, markAll, _ := svc.calls(); markAll != 1 {
		t.Errorf("markAll calls = %d, want 1", markAll)
	}
}

func TestThreeRecordScenario(t *testing.T) {
	svc := &fakeService{page: &api.InboxPage{
		Notifications: []api.RawNotification{
			rawRecord(1, "a", false),
			rawRecord(2, "b", false),
			rawRecord(3, "c", false),
		},
		UnreadCount: 3,
	}}
	ib := newFetchedInbox(t, svc)

	if got := ib.UnreadCount(); got != 3 {
		t.Fatalf("unread after fetch = %d, want 3", got)
	}

	ib.MarkRead(2)
	if got := ib.UnreadCount(); got != 2 {
		t.Errorf("unread after one local mark = %d, want 2", got)
	}
	if n := findByID(t, ib.Snapshot(), 2); !n.Read() {
		t.Error("record 2 should display as read")
	}

	if err := ib.MarkAllRead(context.Background()); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if got := ib.UnreadCount(); got != 0 {
		t.Errorf("unread after mark-all = %d, want 0", got)
	}
}

func TestDeleteAdjustsCounterOnlyForUnread(t *testing.T) {
	svc := &fakeService{page: &api.InboxPage{
		Notifications: []api.RawNotification{
			rawRecord(1, "unread", false),
			rawRecord(2, "read", true),
		},
		UnreadCount: 1,
	}}
	ib := newFetchedInbox(t, svc)

	// Deleting a read record leaves the counter alone.
	if err := ib.Delete(context.Background(), 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := ib.UnreadCount(); got != 1 {
		t.Errorf("unread after deleting read record = %d, want 1", got)
	}

	// Deleting an unread record decrements it.
	if err := ib.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := ib.UnreadCount(); got != 0 {
		t.Errorf("unread after deleting unread record = %d, want 0", got)
	}
	if len(ib.Snapshot()) != 0 {
		t.Error("both records should be gone")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.lastDeleteIDs) != 1 || svc.lastDeleteIDs[0] != 1 || svc.lastIsAll {
		t.Errorf("last delete request = (%v, %v)", svc.lastDeleteIDs, svc.lastIsAll)
	}
}

func TestDeleteFailureLeavesStateUntouched(t *testing.T) {
	svc := &fakeService{
		page: &api.InboxPage{
			Notifications: []api.RawNotification{rawRecord(1, "a", false)},
			UnreadCount:   1,
		},
		deleteErr: errors.New("network down"),
	}
	ib := newFetchedInbox(t, svc)

	if err := ib.Delete(context.Background(), 1); err == nil {
		t.Fatal("expected delete error to propagate")
	}
	if len(ib.Snapshot()) != 1 || ib.UnreadCount() != 1 {
		t.Error("failed delete must not change local state")
	}
}

func TestFetchMergePreservesLocalRead(t *testing.T) {
	svc := &fakeService{page: &api.InboxPage{
		Notifications: []api.RawNotification{
			rawRecord(1, "a", false),
			rawRecord(2, "b", false),
		},
		UnreadCount: 2,
	}}
	ib := newFetchedInbox(t, svc)

	ib.MarkRead(1)

	// The server still reports the record unread on the next fetch.
	if err := ib.Fetch(context.Background()); err != nil {
		t.Fatalf("refetch: %v", err)
	}

	n := findByID(t, ib.Snapshot(), 1)
	if !n.Read() {
		t.Error("local read mark lost across refetch")
	}
	if n.ServerRead {
		t.Error("ServerRead must still reflect the server's view")
	}
	// Server says 2 unread, one of them is locally read: show 1.
	if got := ib.UnreadCount(); got != 1 {
		t.Errorf("unread = %d, want server count adjusted for local marks", got)
	}
}

func TestFetchDropsServerDeletedRecords(t *testing.T) {
	svc := &fakeService{page: &api.InboxPage{
		Notifications: []api.RawNotification{
			rawRecord(1, "a", false),
			rawRecord(2, "b", false),
		},
		UnreadCount: 2,
		Total:       2,
	}}
	ib := newFetchedInbox(t, svc)

	// Record 2 gets a local read mark, then is deleted through another
	// session. The next fetch no longer returns it.
	ib.MarkRead(2)
	svc.mu.Lock()
	svc.page = &api.InboxPage{
		Notifications: []api.RawNotification{rawRecord(1, "a", false)},
		UnreadCount:   1,
		Total:         1,
	}
	svc.mu.Unlock()

	if err := ib.Fetch(context.Background()); err != nil {
		t.Fatalf("refetch: %v", err)
	}

	for _, n := range ib.Snapshot() {
		if n.ID == 2 {
			t.Fatal("record deleted on the server must not resurface from the cache")
		}
	}
	// The ghost's local mark must not skew the reconciled counter either.
	if got := ib.UnreadCount(); got != 1 {
		t.Errorf("unread = %d, want 1", got)
	}
}

func TestRefreshUnreadCountSwallowsErrors(t *testing.T) {
	svc := &fakeService{page: &api.InboxPage{
		Notifications: []api.RawNotification{rawRecord(1, "a", false)},
		UnreadCount:   1,
	}}
	ib := newFetchedInbox(t, svc)

	svc.mu.Lock()
	svc.fetchErr = errors.New("poll failed")
	svc.mu.Unlock()

	ib.RefreshUnreadCount(context.Background())

	if got := ib.UnreadCount(); got != 1 {
		t.Errorf("unread = %d, want stale value kept on poll failure", got)
	}
	if err := ib.Err(); err != nil {
		t.Errorf("poll failures must not surface: %v", err)
	}
}

func TestFetchErrorSurfaces(t *testing.T) {
	svc := &fakeService{fetchErr: errors.New("boom")}
	ib := inbox.New(svc, testutil.NewTestStore(t), 50)

	if err := ib.Fetch(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if ib.Err() == nil {
		t.Error("fetch error must be kept for the view")
	}
}

func TestClearResetsState(t *testing.T) {
	svc := &fakeService{page: &api.InboxPage{
		Notifications: []api.RawNotification{rawRecord(1, "a", false)},
		UnreadCount:   1,
	}}
	ib := newFetchedInbox(t, svc)

	ib.Clear()
	if len(ib.Snapshot()) != 0 || ib.UnreadCount() != 0 {
		t.Error("Clear must wipe records and counter")
	}
}
