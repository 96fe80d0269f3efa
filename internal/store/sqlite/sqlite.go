// Package sqlite provides the durable store.Store implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pollchat/pollchat-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function after
// the schema is applied. Useful for tests that need seeded data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}
	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== RoomStore implementation ====

// GetRoom retrieves a room by id.
func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	query := `
		SELECT id, passkey, description, pinned_message_id, created_at
		FROM rooms
		WHERE id = ?
	`
	var room store.Room
	var pinned sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&room.ID,
		&room.Passkey,
		&room.Description,
		&pinned,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %q: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	if pinned.Valid {
		room.PinnedID = &pinned.Int64
	}
	return &room, nil
}

// CreateRoom creates a new room.
func (s *SQLiteStore) CreateRoom(ctx context.Context, room *store.Room) error {
	query := `
		INSERT INTO rooms (id, passkey, description)
		VALUES (?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, room.ID, room.Passkey, room.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("room %q: %w", room.ID, store.ErrExists)
		}
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

// SetPinned updates the room's pinned message reference.
func (s *SQLiteStore) SetPinned(ctx context.Context, roomID string, messageID *int64) error {
	query := `UPDATE rooms SET pinned_message_id = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, messageID, roomID)
	if err != nil {
		return fmt.Errorf("update pinned message: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("room %q: %w", roomID, store.ErrNotFound)
	}
	return nil
}

// AppendMessage assigns the next id, stores the message and trims the history.
// Runs in a transaction so concurrent sends never produce duplicate ids.
func (s *SQLiteStore) AppendMessage(ctx context.Context, roomID string, msg *store.Message, maxMessages int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var nextID int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id) + 1, 0) FROM messages WHERE room_id = ?`, roomID,
	).Scan(&nextID)
	if err != nil {
		return fmt.Errorf("next message id: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (room_id, id, name, content, time) VALUES (?, ?, ?, ?, ?)`,
		roomID, nextID, msg.Name, msg.Content, msg.Time,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	for _, reader := range msg.ReadBy {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO message_reads (room_id, message_id, username) VALUES (?, ?, ?)`,
			roomID, nextID, reader,
		)
		if err != nil {
			return fmt.Errorf("insert read receipt: %w", err)
		}
	}

	if maxMessages > 0 {
		if err := trimMessages(ctx, tx, roomID, maxMessages); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	msg.ID = nextID
	msg.RoomID = roomID
	return nil
}

// trimMessages drops the oldest messages beyond the cap, along with their
// reactions and read receipts.
func trimMessages(ctx context.Context, tx *sql.Tx, roomID string, maxMessages int) error {
	const keep = `
		SELECT id FROM messages
		WHERE room_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	for _, stmt := range []string{
		`DELETE FROM message_reactions WHERE room_id = ? AND message_id NOT IN (` + keep + `)`,
		`DELETE FROM message_reads WHERE room_id = ? AND message_id NOT IN (` + keep + `)`,
		`DELETE FROM messages WHERE room_id = ? AND id NOT IN (` + keep + `)`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, roomID, roomID, maxMessages); err != nil {
			return fmt.Errorf("trim messages: %w", err)
		}
	}
	return nil
}

// LastMessage returns the newest message, or nil if the room is empty.
func (s *SQLiteStore) LastMessage(ctx context.Context, roomID string) (*store.Message, error) {
	query := `
		SELECT room_id, id, name, content, time
		FROM messages
		WHERE room_id = ?
		ORDER BY id DESC
		LIMIT 1
	`
	var msg store.Message
	err := s.db.QueryRowContext(ctx, query, roomID).Scan(
		&msg.RoomID, &msg.ID, &msg.Name, &msg.Content, &msg.Time,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last message: %w", err)
	}
	return &msg, nil
}

// GetMessage retrieves one message by id, with reactions and read receipts.
func (s *SQLiteStore) GetMessage(ctx context.Context, roomID string, id int64) (*store.Message, error) {
	query := `
		SELECT room_id, id, name, content, time
		FROM messages
		WHERE room_id = ? AND id = ?
	`
	var msg store.Message
	err := s.db.QueryRowContext(ctx, query, roomID, id).Scan(
		&msg.RoomID, &msg.ID, &msg.Name, &msg.Content, &msg.Time,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %d in room %q: %w", id, roomID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	if err := s.attachMessageState(ctx, roomID, map[int64]*store.Message{id: &msg}); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns all retained messages in insertion order.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomID string) ([]*store.Message, error) {
	query := `
		SELECT room_id, id, name, content, time
		FROM messages
		WHERE room_id = ?
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	byID := make(map[int64]*store.Message)
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.RoomID, &msg.ID, &msg.Name, &msg.Content, &msg.Time); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
		byID[msg.ID] = &msg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachMessageState(ctx, roomID, byID); err != nil {
		return nil, err
	}
	return messages, nil
}

// attachMessageState loads reactions and read receipts for the given messages.
func (s *SQLiteStore) attachMessageState(ctx context.Context, roomID string, byID map[int64]*store.Message) error {
	if len(byID) == 0 {
		return nil
	}

	reactRows, err := s.db.QueryContext(ctx,
		`SELECT message_id, emoji, username FROM message_reactions WHERE room_id = ? ORDER BY rowid ASC`,
		roomID,
	)
	if err != nil {
		return fmt.Errorf("query reactions: %w", err)
	}
	defer reactRows.Close()
	for reactRows.Next() {
		var msgID int64
		var emoji, username string
		if err := reactRows.Scan(&msgID, &emoji, &username); err != nil {
			return fmt.Errorf("scan reaction: %w", err)
		}
		msg, ok := byID[msgID]
		if !ok {
			continue
		}
		if msg.Reactions == nil {
			msg.Reactions = make(map[string][]string)
		}
		msg.Reactions[emoji] = append(msg.Reactions[emoji], username)
	}
	if err := reactRows.Err(); err != nil {
		return err
	}

	readRows, err := s.db.QueryContext(ctx,
		`SELECT message_id, username FROM message_reads WHERE room_id = ? ORDER BY rowid ASC`,
		roomID,
	)
	if err != nil {
		return fmt.Errorf("query read receipts: %w", err)
	}
	defer readRows.Close()
	for readRows.Next() {
		var msgID int64
		var username string
		if err := readRows.Scan(&msgID, &username); err != nil {
			return fmt.Errorf("scan read receipt: %w", err)
		}
		if msg, ok := byID[msgID]; ok {
			msg.ReadBy = append(msg.ReadBy, username)
		}
	}
	return readRows.Err()
}

// ClearMessages wipes the room's message history.
func (s *SQLiteStore) ClearMessages(ctx context.Context, roomID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range []string{
		`DELETE FROM message_reactions WHERE room_id = ?`,
		`DELETE FROM message_reads WHERE room_id = ?`,
		`DELETE FROM messages WHERE room_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, roomID); err != nil {
			return fmt.Errorf("clear messages: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteMessagesByContent removes every message with matching content.
func (s *SQLiteStore) DeleteMessagesByContent(ctx context.Context, roomID, content string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const match = `SELECT id FROM messages WHERE room_id = ? AND content = ?`
	for _, stmt := range []string{
		`DELETE FROM message_reactions WHERE room_id = ? AND message_id IN (` + match + `)`,
		`DELETE FROM message_reads WHERE room_id = ? AND message_id IN (` + match + `)`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, roomID, roomID, content); err != nil {
			return 0, fmt.Errorf("delete message state: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE room_id = ? AND content = ?`, roomID, content,
	)
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return int(removed), nil
}

// ToggleReaction toggles username's membership under emoji for a message.
func (s *SQLiteStore) ToggleReaction(ctx context.Context, roomID string, messageID int64, emoji, username string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM messages WHERE room_id = ? AND id = ?`, roomID, messageID,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("message %d in room %q: %w", messageID, roomID, store.ErrNotFound)
		}
		return fmt.Errorf("query message: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM message_reactions WHERE room_id = ? AND message_id = ? AND emoji = ? AND username = ?`,
		roomID, messageID, emoji, username,
	)
	if err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO message_reactions (room_id, message_id, emoji, username) VALUES (?, ?, ?, ?)`,
		roomID, messageID, emoji, username,
	)
	if err != nil {
		return fmt.Errorf("insert reaction: %w", err)
	}
	return nil
}

// MarkRead marks messages up to lastReadID as read by username.
func (s *SQLiteStore) MarkRead(ctx context.Context, roomID, username string, lastReadID int64) error {
	query := `
		INSERT OR IGNORE INTO message_reads (room_id, message_id, username)
		SELECT room_id, id, ?
		FROM messages
		WHERE room_id = ? AND id <= ? AND name <> ?
	`
	_, err := s.db.ExecContext(ctx, query, username, roomID, lastReadID, username)
	if err != nil {
		return fmt.Errorf("insert read receipts: %w", err)
	}
	return nil
}

// ==== PresenceStore implementation ====

// UpsertPresence creates or overwrites a presence record.
func (s *SQLiteStore) UpsertPresence(ctx context.Context, p *store.Presence) error {
	query := `
		INSERT OR REPLACE INTO room_users
			(room_id, username, session_token, last_seen, is_admin, avatar, status, bio, email)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.RoomID, p.Username, p.Token, p.LastSeen.UnixMilli(), p.IsAdmin,
		p.Avatar, p.Status, p.Bio, p.Email,
	)
	if err != nil {
		return fmt.Errorf("upsert presence: %w", err)
	}
	return nil
}

// GetPresence retrieves a presence record regardless of liveness.
func (s *SQLiteStore) GetPresence(ctx context.Context, roomID, username string) (*store.Presence, error) {
	query := `
		SELECT room_id, username, session_token, last_seen, is_admin, avatar, status, bio, email
		FROM room_users
		WHERE room_id = ? AND username = ?
	`
	p, err := scanPresence(s.db.QueryRowContext(ctx, query, roomID, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("presence %q in room %q: %w", username, roomID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query presence: %w", err)
	}
	return p, nil
}

// TouchPresence refreshes LastSeen iff the stored token matches.
func (s *SQLiteStore) TouchPresence(ctx context.Context, roomID, username, token string, now time.Time) (*store.Presence, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE room_users SET last_seen = ? WHERE room_id = ? AND username = ? AND session_token = ?`,
		now.UnixMilli(), roomID, username, token,
	)
	if err != nil {
		return nil, fmt.Errorf("touch presence: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, nil
	}
	return s.GetPresence(ctx, roomID, username)
}

// ListPresence evicts stale records, then returns the remaining ones.
func (s *SQLiteStore) ListPresence(ctx context.Context, roomID string, cutoff time.Time) ([]*store.Presence, error) {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM room_users WHERE room_id = ? AND last_seen < ?`,
		roomID, cutoff.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("evict presence: %w", err)
	}

	query := `
		SELECT room_id, username, session_token, last_seen, is_admin, avatar, status, bio, email
		FROM room_users
		WHERE room_id = ?
		ORDER BY username ASC
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query presence: %w", err)
	}
	defer rows.Close()

	var out []*store.Presence
	for rows.Next() {
		p, err := scanPresence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan presence: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RemovePresence deletes a presence record.
func (s *SQLiteStore) RemovePresence(ctx context.Context, roomID, username string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM room_users WHERE room_id = ? AND username = ?`, roomID, username,
	)
	if err != nil {
		return fmt.Errorf("delete presence: %w", err)
	}
	return nil
}

// SetAdmin updates the admin flag on an existing presence record.
func (s *SQLiteStore) SetAdmin(ctx context.Context, roomID, username string, isAdmin bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE room_users SET is_admin = ? WHERE room_id = ? AND username = ?`,
		isAdmin, roomID, username,
	)
	if err != nil {
		return fmt.Errorf("update admin flag: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("presence %q in room %q: %w", username, roomID, store.ErrNotFound)
	}
	return nil
}

// SetTyping records or clears a typing timestamp.
func (s *SQLiteStore) SetTyping(ctx context.Context, roomID, username string, at *time.Time) error {
	if at == nil {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM room_typing WHERE room_id = ? AND username = ?`, roomID, username,
		)
		if err != nil {
			return fmt.Errorf("clear typing: %w", err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO room_typing (room_id, username, typing_at) VALUES (?, ?, ?)`,
		roomID, username, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set typing: %w", err)
	}
	return nil
}

// ListTyping evicts stale typing entries, then returns the remaining usernames.
func (s *SQLiteStore) ListTyping(ctx context.Context, roomID string, cutoff time.Time) ([]string, error) {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM room_typing WHERE room_id = ? AND typing_at < ?`,
		roomID, cutoff.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("evict typing: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT username FROM room_typing WHERE room_id = ? ORDER BY username ASC`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("query typing: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan typing: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// ==== BanStore implementation ====

// AddBan adds a username to the room's ban list.
func (s *SQLiteStore) AddBan(ctx context.Context, roomID, username string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO room_bans (room_id, username) VALUES (?, ?)`, roomID, username,
	)
	if err != nil {
		return fmt.Errorf("insert ban: %w", err)
	}
	return nil
}

// RemoveBan removes a username from the room's ban list.
func (s *SQLiteStore) RemoveBan(ctx context.Context, roomID, username string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM room_bans WHERE room_id = ? AND username = ?`, roomID, username,
	)
	if err != nil {
		return fmt.Errorf("delete ban: %w", err)
	}
	return nil
}

// ClearBans empties the room's ban list.
func (s *SQLiteStore) ClearBans(ctx context.Context, roomID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM room_bans WHERE room_id = ?`, roomID)
	if err != nil {
		return fmt.Errorf("clear bans: %w", err)
	}
	return nil
}

// IsBanned reports whether a username is banned in the room.
func (s *SQLiteStore) IsBanned(ctx context.Context, roomID, username string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM room_bans WHERE room_id = ? AND username = ?`, roomID, username,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query ban: %w", err)
	}
	return true, nil
}

// ListBans returns the room's banned usernames.
func (s *SQLiteStore) ListBans(ctx context.Context, roomID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username FROM room_bans WHERE room_id = ? ORDER BY username ASC`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("query bans: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan ban: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// ==== AccountStore implementation ====

// CreateAccount creates an account record.
func (s *SQLiteStore) CreateAccount(ctx context.Context, a *store.Account) error {
	query := `
		INSERT INTO accounts (email, password_hash, display_name, avatar, status, bio)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.Email, a.PasswordHash, a.DisplayName, a.Avatar, a.Status, a.Bio,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %q: %w", a.Email, store.ErrExists)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by email.
func (s *SQLiteStore) GetAccount(ctx context.Context, email string) (*store.Account, error) {
	query := `
		SELECT email, password_hash, display_name, avatar, status, bio, created_at
		FROM accounts
		WHERE email = ?
	`
	var a store.Account
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&a.Email, &a.PasswordHash, &a.DisplayName, &a.Avatar, &a.Status, &a.Bio, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %q: %w", email, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query account: %w", err)
	}
	return &a, nil
}

// UpdateAccount overwrites the mutable profile fields of an account.
func (s *SQLiteStore) UpdateAccount(ctx context.Context, a *store.Account) error {
	query := `
		UPDATE accounts
		SET display_name = ?, avatar = ?, status = ?, bio = ?
		WHERE email = ?
	`
	result, err := s.db.ExecContext(ctx, query, a.DisplayName, a.Avatar, a.Status, a.Bio, a.Email)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("account %q: %w", a.Email, store.ErrNotFound)
	}
	return nil
}

// ==== SessionStore implementation ====

// CreateSession stores a login session.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *store.Session) error {
	query := `
		INSERT INTO sessions (token, email, display_name, expires_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, sess.Token, sess.Email, sess.DisplayName, sess.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a login session by token.
func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*store.Session, error) {
	query := `
		SELECT token, email, display_name, expires_at
		FROM sessions
		WHERE token = ?
	`
	var sess store.Session
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&sess.Token, &sess.Email, &sess.DisplayName, &expiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	sess.ExpiresAt = time.UnixMilli(expiresAt)
	return &sess, nil
}

// DeleteSession removes a login session. Idempotent.
func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPresence(row rowScanner) (*store.Presence, error) {
	var p store.Presence
	var lastSeen int64
	err := row.Scan(
		&p.RoomID, &p.Username, &p.Token, &lastSeen, &p.IsAdmin,
		&p.Avatar, &p.Status, &p.Bio, &p.Email,
	)
	if err != nil {
		return nil, err
	}
	p.LastSeen = time.UnixMilli(lastSeen)
	return &p, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
