package sqlite

// schema is applied on every open; all statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id                TEXT PRIMARY KEY,
	passkey           TEXT NOT NULL DEFAULT '',
	description       TEXT NOT NULL DEFAULT '',
	pinned_message_id INTEGER,
	created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	room_id TEXT NOT NULL,
	id      INTEGER NOT NULL,
	name    TEXT NOT NULL,
	content TEXT NOT NULL,
	time    INTEGER NOT NULL,
	PRIMARY KEY (room_id, id),
	FOREIGN KEY (room_id) REFERENCES rooms(id)
);

CREATE TABLE IF NOT EXISTS message_reactions (
	room_id    TEXT NOT NULL,
	message_id INTEGER NOT NULL,
	emoji      TEXT NOT NULL,
	username   TEXT NOT NULL,
	PRIMARY KEY (room_id, message_id, emoji, username)
);

CREATE TABLE IF NOT EXISTS message_reads (
	room_id    TEXT NOT NULL,
	message_id INTEGER NOT NULL,
	username   TEXT NOT NULL,
	PRIMARY KEY (room_id, message_id, username)
);

CREATE TABLE IF NOT EXISTS room_users (
	room_id       TEXT NOT NULL,
	username      TEXT NOT NULL,
	session_token TEXT NOT NULL,
	last_seen     INTEGER NOT NULL,
	is_admin      BOOLEAN NOT NULL DEFAULT 0,
	avatar        TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT '',
	bio           TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (room_id, username),
	FOREIGN KEY (room_id) REFERENCES rooms(id)
);

CREATE TABLE IF NOT EXISTS room_typing (
	room_id   TEXT NOT NULL,
	username  TEXT NOT NULL,
	typing_at INTEGER NOT NULL,
	PRIMARY KEY (room_id, username)
);

CREATE TABLE IF NOT EXISTS room_bans (
	room_id  TEXT NOT NULL,
	username TEXT NOT NULL,
	PRIMARY KEY (room_id, username)
);

CREATE TABLE IF NOT EXISTS accounts (
	email         TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	display_name  TEXT NOT NULL DEFAULT '',
	avatar        TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT '',
	bio           TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sessions (
	token        TEXT PRIMARY KEY,
	email        TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	expires_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, id DESC);
CREATE INDEX IF NOT EXISTS idx_room_users_seen ON room_users(room_id, last_seen);
`
