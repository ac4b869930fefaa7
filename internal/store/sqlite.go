package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/school-notify/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertNotifications inserts or refreshes a batch of records for one box.
// Server-owned fields always take the incoming value; local_read is merged
// with OR so a locally-marked read never reverts on refresh.
func (s *SQLiteStore) UpsertNotifications(
	ctx context.Context,
	box model.Box,
	ns []model.Notification,
) error {
	if len(ns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO notifications (
			id, box, title, message, created_at, status,
			local_read, server_read, read_at,
			sender_name, sender_role, sender_email,
			recipients_count, read_count, targets, fetched_at
		) VALUES (
			?, ?, ?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?, ?, ?
		)
		ON CONFLICT (id, box) DO UPDATE SET
			title            = excluded.title,
			message          = excluded.message,
			created_at       = excluded.created_at,
			status           = excluded.status,
			local_read       = local_read OR excluded.local_read,
			server_read      = excluded.server_read,
			read_at          = excluded.read_at,
			sender_name      = excluded.sender_name,
			sender_role      = excluded.sender_role,
			sender_email     = excluded.sender_email,
			recipients_count = excluded.recipients_count,
			read_count       = excluded.read_count,
			targets          = excluded.targets,
			fetched_at       = excluded.fetched_at`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, n := range ns {
		targets, err := json.Marshal(n.Targets)
		if err != nil {
			return fmt.Errorf("marshaling targets for notification %d: %w", n.ID, err)
		}

		var readAt sql.NullString
		if n.ReadAt != nil {
			readAt = sql.NullString{String: *n.ReadAt, Valid: true}
		}

		_, err = stmt.ExecContext(ctx,
			n.ID, string(box), n.Title, n.Message, n.CreatedAt, n.Status,
			boolToInt(n.LocalRead), boolToInt(n.ServerRead), readAt,
			n.SenderName, n.SenderRole, n.SenderEmail,
			n.RecipientsCount, n.ReadCount, string(targets), now,
		)
		if err != nil {
			return fmt.Errorf("upserting notification %d: %w", n.ID, err)
		}
	}

	return tx.Commit()
}

// GetNotifications retrieves cached records for one box, newest first.
func (s *SQLiteStore) GetNotifications(
	ctx context.Context,
	box model.Box,
	f NotificationFilter,
) ([]model.Notification, error) {
	conditions := []string{"box = ?"}
	args := []interface{}{string(box)}

	if f.UnreadOnly {
		conditions = append(conditions, "local_read = 0 AND server_read = 0")
	}
	if f.Query != nil && *f.Query != "" {
		conditions = append(conditions, "(title LIKE ? OR message LIKE ?)")
		q := "%" + *f.Query + "%"
		args = append(args, q, q)
	}

	query := "SELECT * FROM notifications WHERE " +
		strings.Join(conditions, " AND ") +
		" ORDER BY created_at DESC, id DESC"

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", f.Offset)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var ns []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		ns = append(ns, n)
	}

	return ns, rows.Err()
}

// PruneNotifications removes records for one box whose ids are not in keep.
func (s *SQLiteStore) PruneNotifications(
	ctx context.Context,
	box model.Box,
	keep []int64,
) error {
	if len(keep) == 0 {
		return s.DeleteAll(ctx, box)
	}

	query, args, err := sqlx.In(
		"DELETE FROM notifications WHERE box = ? AND id NOT IN (?)",
		string(box), keep,
	)
	if err != nil {
		return fmt.Errorf("building prune query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("pruning notifications: %w", err)
	}
	return nil
}

// MarkRead sets the durable local read mark on a single record.
func (s *SQLiteStore) MarkRead(ctx context.Context, box model.Box, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET local_read = 1 WHERE box = ? AND id = ?",
		string(box), id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %d as read: %w", id, err)
	}
	return nil
}

// MarkAllRead sets both read flags for every record in a box.
func (s *SQLiteStore) MarkAllRead(ctx context.Context, box model.Box) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET local_read = 1, server_read = 1 WHERE box = ?",
		string(box),
	)
	if err != nil {
		return fmt.Errorf("marking all as read: %w", err)
	}
	return nil
}

// DeleteNotifications removes the given records from one box.
func (s *SQLiteStore) DeleteNotifications(
	ctx context.Context,
	box model.Box,
	ids []int64,
) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(
		"DELETE FROM notifications WHERE box = ? AND id IN (?)",
		string(box), ids,
	)
	if err != nil {
		return fmt.Errorf("building delete query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("deleting notifications: %w", err)
	}
	return nil
}

// DeleteAll removes every record from one box.
func (s *SQLiteStore) DeleteAll(ctx context.Context, box model.Box) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE box = ?", string(box),
	)
	if err != nil {
		return fmt.Errorf("deleting all notifications: %w", err)
	}
	return nil
}

// UnreadCount counts records in a box with neither read flag set.
func (s *SQLiteStore) UnreadCount(ctx context.Context, box model.Box) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE box = ? AND local_read = 0 AND server_read = 0",
		string(box),
	)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// scanNotification scans a notification row from a sqlx.Rows result set.
func scanNotification(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n           model.Notification
		box         string
		localRead   int
		serverRead  int
		readAt      sql.NullString
		targetsJSON string
		fetchedAt   time.Time
	)

	err := rows.Scan(
		&n.ID, &box, &n.Title, &n.Message, &n.CreatedAt, &n.Status,
		&localRead, &serverRead, &readAt,
		&n.SenderName, &n.SenderRole, &n.SenderEmail,
		&n.RecipientsCount, &n.ReadCount, &targetsJSON, &fetchedAt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning notification row: %w", err)
	}

	n.LocalRead = localRead != 0
	n.ServerRead = serverRead != 0
	if readAt.Valid && readAt.String != "" {
		v := readAt.String
		n.ReadAt = &v
	}

	if targetsJSON != "" && targetsJSON != "[]" {
		if err := json.Unmarshal([]byte(targetsJSON), &n.Targets); err != nil {
			return model.Notification{}, fmt.Errorf("unmarshaling targets: %w", err)
		}
	}

	return n, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
