package store

import (
	"context"

	"github.com/nhle/school-notify/internal/model"
)

// NotificationFilter controls filtering and pagination for cache queries.
type NotificationFilter struct {
	UnreadOnly bool
	Query      *string // search title + message
	Limit      int
	Offset     int
}

// Store defines the local persistence interface for the notification cache.
// The cache exists for two reasons: showing something immediately on startup
// before the first fetch lands, and making local-only read marks durable.
// The server has no endpoint for single-item reads, so the client is the
// only place that state can live.
type Store interface {
	// UpsertNotifications merges one box's server records into the cache.
	// Server fields are overwritten; a locally-set read mark survives the
	// merge.
	UpsertNotifications(ctx context.Context, box model.Box, ns []model.Notification) error

	GetNotifications(ctx context.Context, box model.Box, f NotificationFilter) ([]model.Notification, error)

	// PruneNotifications removes cached records for one box whose ids are
	// not in keep. Called after a fetch that covers the whole box, so
	// records deleted on the server do not linger locally. An empty keep
	// clears the box.
	PruneNotifications(ctx context.Context, box model.Box, keep []int64) error

	// MarkRead sets the durable local read mark for a single record.
	MarkRead(ctx context.Context, box model.Box, id int64) error

	// MarkAllRead sets both read flags for every record in a box. Called
	// only after the server's bulk mark-all call succeeded.
	MarkAllRead(ctx context.Context, box model.Box) error

	DeleteNotifications(ctx context.Context, box model.Box, ids []int64) error
	DeleteAll(ctx context.Context, box model.Box) error

	// UnreadCount counts cached records with neither read flag set.
	UnreadCount(ctx context.Context, box model.Box) (int, error)

	Close() error
}
