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

CREATE TABLE IF NOT EXISTS submissions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	meta        TEXT NOT NULL DEFAULT '{}',
	schedule    TEXT NOT NULL DEFAULT '[]',
	scope       TEXT NOT NULL DEFAULT '[]',
	created_at  TEXT NOT NULL,
	timestamp   INTEGER NOT NULL,
	sent        INTEGER NOT NULL DEFAULT 0 CHECK(sent IN (0, 1)),
	sent_at     TEXT,
	user_id     TEXT NOT NULL DEFAULT '',
	revision_of INTEGER
);

CREATE INDEX IF NOT EXISTS idx_submissions_sent ON submissions(sent);
CREATE INDEX IF NOT EXISTS idx_submissions_timestamp ON submissions(timestamp);

CREATE TABLE IF NOT EXISTS retry_queue (
	id        TEXT PRIMARY KEY,
	action    TEXT NOT NULL,
	data      TEXT NOT NULL DEFAULT '{}',
	timestamp TEXT NOT NULL,
	attempts  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_retry_queue_timestamp ON retry_queue(timestamp);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_submissions_pending
	ON submissions(timestamp) WHERE sent = 0;

CREATE INDEX IF NOT EXISTS idx_submissions_user_id
	ON submissions(user_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
