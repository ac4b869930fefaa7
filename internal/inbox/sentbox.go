package inbox

import (
	"context"
	"sync"

	"github.com/nhle/school-notify/internal/api"
	"github.com/nhle/school-notify/internal/model"
	"github.com/nhle/school-notify/internal/store"
)

// SentService is the slice of the notification API the sent box needs.
type SentService interface {
	SentNotifications(ctx context.Context) ([]api.RawNotification, error)
	MarkAllAsRead(ctx context.Context) error
	DeleteNotifications(ctx context.Context, ids []int64, isAll bool) error
}

// Sentbox holds the sender-side notification list. It is an independent
// copy of the same record shape the Inbox holds: the two containers never
// share state and can legitimately diverge between refreshes.
//
// The sent box has no server-side unread counter, so its unread count is
// always derived from the records themselves.
type Sentbox struct {
	mu    sync.Mutex
	svc   SentService
	cache store.Store

	notifications []model.Notification
	loading       bool
	err           error
}

// NewSentbox creates a sent box over the given service and local cache.
func NewSentbox(svc SentService, cache store.Store) *Sentbox {
	return &Sentbox{svc: svc, cache: cache}
}

// LoadCache populates the in-memory list from the local cache.
func (s *Sentbox) LoadCache(ctx context.Context) error {
	ns, err := s.cache.GetNotifications(ctx, model.BoxSent, store.NotificationFilter{})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = ns
	return nil
}

// Fetch retrieves the full sent list, normalizes it, and merges it with
// local read marks through the cache.
func (s *Sentbox) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	raw, err := s.svc.SentNotifications(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		s.err = err
		return err
	}
	s.err = nil

	fetched := api.NormalizeAll(raw)

	if err := s.cache.UpsertNotifications(ctx, model.BoxSent, fetched); err != nil {
		s.err = err
		return err
	}

	// The endpoint returns the full list, so anything cached but absent
	// from the response was deleted on the server.
	if err := s.cache.PruneNotifications(ctx, model.BoxSent, notificationIDs(fetched)); err != nil {
		s.err = err
		return err
	}

	merged, err := s.cache.GetNotifications(ctx, model.BoxSent, store.NotificationFilter{})
	if err != nil {
		s.err = err
		return err
	}

	s.notifications = merged
	return nil
}

// MarkRead marks a single sent record read. Same local-only contract as
// the inbox: synchronous, no network call, no-op when already read.
func (s *Sentbox) MarkRead(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx := range s.notifications {
		n := &s.notifications[idx]
		if n.ID != id {
			continue
		}
		if n.Read() {
			return
		}
		n.LocalRead = true
		_ = s.cache.MarkRead(context.Background(), model.BoxSent, id)
		return
	}
}

// MarkAllRead marks everything read on the server, then mirrors the
// result locally. On failure nothing changes.
func (s *Sentbox) MarkAllRead(ctx context.Context) error {
	if err := s.svc.MarkAllAsRead(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for idx := range s.notifications {
		s.notifications[idx].LocalRead = true
		s.notifications[idx].ServerRead = true
	}
	_ = s.cache.MarkAllRead(ctx, model.BoxSent)
	return nil
}

// Delete removes one sent record on the server, then locally.
func (s *Sentbox) Delete(ctx context.Context, id int64) error {
	if err := s.svc.DeleteNotifications(ctx, []int64{id}, false); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for idx := range s.notifications {
		if s.notifications[idx].ID != id {
			continue
		}
		s.notifications = append(s.notifications[:idx], s.notifications[idx+1:]...)
		break
	}
	_ = s.cache.DeleteNotifications(ctx, model.BoxSent, []int64{id})
	return nil
}

// DeleteAll removes every sent record on the server, then locally.
func (s *Sentbox) DeleteAll(ctx context.Context) error {
	if err := s.svc.DeleteNotifications(ctx, nil, true); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = nil
	_ = s.cache.DeleteAll(ctx, model.BoxSent)
	return nil
}

// Clear wipes the in-memory state. Called on logout.
func (s *Sentbox) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = nil
	s.err = nil
	s.loading = false
}

// Snapshot returns a copy of the current list for rendering.
func (s *Sentbox) Snapshot() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// UnreadCount derives the unread count from the records themselves.
func (s *Sentbox) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for idx := range s.notifications {
		if !s.notifications[idx].Read() {
			count++
		}
	}
	return count
}

// Loading reports whether a fetch is in flight.
func (s *Sentbox) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last fetch error, or nil.
func (s *Sentbox) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
