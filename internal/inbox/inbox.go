package inbox

import (
	"context"
	"sync"

	"github.com/nhle/school-notify/internal/api"
	"github.com/nhle/school-notify/internal/model"
	"github.com/nhle/school-notify/internal/store"
)

// Service is the slice of the notification API the inbox needs. It is
// deliberately narrow: there is no single-item mark-as-read operation on
// it, because the backend has none.
type Service interface {
	MyNotifications(ctx context.Context, page, limit int) (*api.InboxPage, error)
	MarkAllAsRead(ctx context.Context) error
	DeleteNotifications(ctx context.Context, ids []int64, isAll bool) error
}

// Inbox is the recipient-side notification state container. It owns the
// in-memory copy of the user's inbox, the unread counter, and every
// mutation on them. One instance lives for the duration of an
// authenticated session.
//
// The read-state contract it enforces:
//
//   - Marking a single record read is LOCAL ONLY: synchronous, no network
//     call, no rollback path. The server never learns about it; the mark
//     is persisted to the local cache instead so it survives restarts.
//   - Marking everything read IS a network call, and local state changes
//     only after the call succeeds. A failed call leaves state untouched.
//
// The resulting divergence between local and server read state is accepted
// working behavior given the backend's missing single-item endpoint.
type Inbox struct {
	mu       sync.Mutex
	svc      Service
	cache    store.Store
	pageSize int

	notifications []model.Notification
	unreadCount   int
	loading       bool
	err           error
}

// New creates an inbox over the given service and local cache.
func New(svc Service, cache store.Store, pageSize int) *Inbox {
	if pageSize < 1 {
		pageSize = 50
	}
	return &Inbox{
		svc:      svc,
		cache:    cache,
		pageSize: pageSize,
	}
}

// LoadCache populates the in-memory list from the local cache so the UI
// has something to show before the first fetch lands.
func (i *Inbox) LoadCache(ctx context.Context) error {
	ns, err := i.cache.GetNotifications(ctx, model.BoxInbox, store.NotificationFilter{})
	if err != nil {
		return err
	}
	count, err := i.cache.UnreadCount(ctx, model.BoxInbox)
	if err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.notifications = ns
	i.unreadCount = count
	return nil
}

// Fetch performs a full inbox fetch (page 1), normalizes the payload,
// merges it with durable local read marks through the cache, and replaces
// the in-memory list. Errors are kept on the err field for the view.
func (i *Inbox) Fetch(ctx context.Context) error {
	i.mu.Lock()
	i.loading = true
	i.mu.Unlock()

	page, err := i.svc.MyNotifications(ctx, 1, i.pageSize)

	i.mu.Lock()
	defer i.mu.Unlock()
	i.loading = false

	if err != nil {
		i.err = err
		return err
	}
	i.err = nil

	fetched := api.NormalizeAll(page.Notifications)

	// Merge through the cache: the upsert keeps local_read marks the
	// server knows nothing about, then we read the merged rows back.
	if err := i.cache.UpsertNotifications(ctx, model.BoxInbox, fetched); err != nil {
		i.err = err
		return err
	}

	// Absence is part of server truth. When this page covers the whole
	// inbox, cached records the server no longer returns were deleted
	// elsewhere and must not resurface here.
	if page.Total <= len(fetched) {
		if err := i.cache.PruneNotifications(ctx, model.BoxInbox, notificationIDs(fetched)); err != nil {
			i.err = err
			return err
		}
	}

	merged, err := i.cache.GetNotifications(ctx, model.BoxInbox, store.NotificationFilter{
		Limit: i.pageSize,
	})
	if err != nil {
		i.err = err
		return err
	}

	i.notifications = merged
	i.unreadCount = adjustedUnread(page.UnreadCount, merged)
	return nil
}

// MarkRead marks a single record read. Local only: the record's flag flips
// and the unread counter drops by one (floored at zero) synchronously,
// with no server round-trip. Marking an already-read record is a no-op and
// never drives the counter negative.
func (i *Inbox) MarkRead(id int64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for idx := range i.notifications {
		n := &i.notifications[idx]
		if n.ID != id {
			continue
		}
		if n.Read() {
			return
		}
		n.LocalRead = true
		if i.unreadCount > 0 {
			i.unreadCount--
		}
		// Durable local mark; best-effort, the in-memory flag is the truth
		// for this session.
		_ = i.cache.MarkRead(context.Background(), model.BoxInbox, id)
		return
	}
}

// MarkAllRead marks the whole inbox read on the server, then mirrors the
// result locally. On failure nothing changes locally and the error is
// returned for the view to surface.
func (i *Inbox) MarkAllRead(ctx context.Context) error {
	if err := i.svc.MarkAllAsRead(ctx); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	for idx := range i.notifications {
		i.notifications[idx].LocalRead = true
		i.notifications[idx].ServerRead = true
	}
	i.unreadCount = 0
	_ = i.cache.MarkAllRead(ctx, model.BoxInbox)
	return nil
}

// Delete removes one record on the server, then locally. The unread
// counter drops only if the removed record was unread.
func (i *Inbox) Delete(ctx context.Context, id int64) error {
	if err := i.svc.DeleteNotifications(ctx, []int64{id}, false); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	for idx := range i.notifications {
		n := i.notifications[idx]
		if n.ID != id {
			continue
		}
		if !n.Read() && i.unreadCount > 0 {
			i.unreadCount--
		}
		i.notifications = append(i.notifications[:idx], i.notifications[idx+1:]...)
		break
	}
	_ = i.cache.DeleteNotifications(ctx, model.BoxInbox, []int64{id})
	return nil
}

// DeleteAll removes every record on the server, then clears local state.
func (i *Inbox) DeleteAll(ctx context.Context) error {
	if err := i.svc.DeleteNotifications(ctx, nil, true); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.notifications = nil
	i.unreadCount = 0
	_ = i.cache.DeleteAll(ctx, model.BoxInbox)
	return nil
}

// RefreshUnreadCount is the lightweight background poll: page 1, limit 1,
// only the unread counter is read from the response. All errors are
// swallowed; a stale badge is acceptable, interrupting the user is not.
func (i *Inbox) RefreshUnreadCount(ctx context.Context) {
	page, err := i.svc.MyNotifications(ctx, 1, 1)
	if err != nil {
		return
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.unreadCount = adjustedUnread(page.UnreadCount, i.notifications)
}

// Clear wipes the in-memory state. Called on logout.
func (i *Inbox) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.notifications = nil
	i.unreadCount = 0
	i.err = nil
	i.loading = false
}

// Snapshot returns a copy of the current list for rendering.
func (i *Inbox) Snapshot() []model.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]model.Notification, len(i.notifications))
	copy(out, i.notifications)
	return out
}

// UnreadCount returns the current unread counter.
func (i *Inbox) UnreadCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.unreadCount
}

// Loading reports whether a full fetch is in flight.
func (i *Inbox) Loading() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.loading
}

// Err returns the last fetch error, or nil.
func (i *Inbox) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.err
}

// notificationIDs collects the ids of a fetched batch for cache pruning.
func notificationIDs(ns []model.Notification) []int64 {
	ids := make([]int64, len(ns))
	for idx := range ns {
		ids[idx] = ns[idx].ID
	}
	return ids
}

// adjustedUnread reconciles the server's unread counter with read marks
// the server does not know about: records marked read locally but not yet
// read server-side still count as unread upstream, so they are subtracted
// here to keep the badge consistent with the list. Floored at zero.
func adjustedUnread(serverUnread int, ns []model.Notification) int {
	localOnly := 0
	for idx := range ns {
		if ns[idx].LocalRead && !ns[idx].ServerRead {
			localOnly++
		}
	}
	if adjusted := serverUnread - localOnly; adjusted > 0 {
		return adjusted
	}
	return 0
}
