package index

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	category      TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	keyword       TEXT NOT NULL DEFAULT '',
	cover_image   TEXT NOT NULL DEFAULT '',
	last_modified TEXT NOT NULL DEFAULT '',
	fingerprint   TEXT NOT NULL DEFAULT '',
	UNIQUE(username, file_name)
);

CREATE INDEX IF NOT EXISTS idx_notes_user_modified ON notes(username, last_modified DESC);
CREATE INDEX IF NOT EXISTS idx_notes_user_category ON notes(username, category);

CREATE TABLE IF NOT EXISTS categories (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	username  TEXT NOT NULL,
	category  TEXT NOT NULL,
	last_used TEXT NOT NULL DEFAULT '',
	UNIQUE(username, category)
);

CREATE TABLE IF NOT EXISTS profiles (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	nickname TEXT NOT NULL DEFAULT '',
	motto    TEXT NOT NULL DEFAULT '',
	avatar   TEXT NOT NULL DEFAULT ''
);
`
