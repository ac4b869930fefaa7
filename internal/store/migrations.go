package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id               INTEGER NOT NULL,
	box              TEXT NOT NULL,
	title            TEXT NOT NULL,
	message          TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT '',
	local_read       INTEGER NOT NULL DEFAULT 0,
	server_read      INTEGER NOT NULL DEFAULT 0,
	read_at          TEXT,
	sender_name      TEXT NOT NULL DEFAULT '',
	sender_role      TEXT NOT NULL DEFAULT '',
	sender_email     TEXT NOT NULL DEFAULT '',
	recipients_count INTEGER NOT NULL DEFAULT 0,
	read_count       INTEGER NOT NULL DEFAULT 0,
	targets          TEXT NOT NULL DEFAULT '[]',
	fetched_at       DATETIME NOT NULL,
	PRIMARY KEY (id, box)
);

CREATE INDEX IF NOT EXISTS idx_notifications_box ON notifications(box);
CREATE INDEX IF NOT EXISTS idx_notifications_unread
	ON notifications(box, local_read, server_read);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
