package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by all store implementations. Callers match with
// errors.Is; implementations wrap them with detail.
var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

// Room is a chat namespace. An empty Passkey means the room is open.
type Room struct {
	ID          string
	Passkey     string
	Description string
	PinnedID    *int64 // back-reference only; may point at an evicted message
	CreatedAt   time.Time
}

// Message is a single chat message. Name, Content and Time are immutable
// after creation; only Reactions and ReadBy mutate.
type Message struct {
	ID        int64
	RoomID    string
	Name      string
	Content   string
	Time      int64 // unix seconds
	Reactions map[string][]string
	ReadBy    []string
}

// Presence is the live membership record for one username in one room.
type Presence struct {
	RoomID   string
	Username string
	Token    string
	LastSeen time.Time
	IsAdmin  bool
	Avatar   string
	Status   string
	Bio      string
	Email    string
}

// Account is a durable user record, independent of any room.
type Account struct {
	Email        string
	PasswordHash string
	DisplayName  string
	Avatar       string
	Status       string
	Bio          string
	CreatedAt    time.Time
}

// Session is a login session. Expired sessions are deleted lazily on lookup.
type Session struct {
	Token       string
	Email       string
	DisplayName string
	ExpiresAt   time.Time
}

// RoomStore handles room and message persistence.
type RoomStore interface {
	// GetRoom retrieves a room by id.
	GetRoom(ctx context.Context, id string) (*Room, error)

	// CreateRoom creates a new room. Returns ErrExists if the id is taken.
	CreateRoom(ctx context.Context, room *Room) error

	// SetPinned updates the room's pinned message reference. nil unpins.
	SetPinned(ctx context.Context, roomID string, messageID *int64) error

	// AppendMessage assigns the next message id, stores the message and
	// trims the history to maxMessages, oldest first. The id assignment
	// and trim are atomic per room.
	AppendMessage(ctx context.Context, roomID string, msg *Message, maxMessages int) error

	// LastMessage returns the newest message, or nil if the room is empty.
	LastMessage(ctx context.Context, roomID string) (*Message, error)

	// GetMessage retrieves one message by id.
	GetMessage(ctx context.Context, roomID string, id int64) (*Message, error)

	// ListMessages returns all retained messages in insertion order.
	ListMessages(ctx context.Context, roomID string) ([]*Message, error)

	// ClearMessages wipes the room's message history. Bans, presence and
	// the pinned reference are left untouched.
	ClearMessages(ctx context.Context, roomID string) error

	// DeleteMessagesByContent removes every message whose content equals
	// content and returns the number removed.
	DeleteMessagesByContent(ctx context.Context, roomID, content string) (int, error)

	// ToggleReaction adds username under emoji for the message, or removes
	// it if already present. Emoji entries with no members are deleted.
	ToggleReaction(ctx context.Context, roomID string, messageID int64, emoji, username string) error

	// MarkRead marks every message with id <= lastReadID not authored by
	// username as read by username. Idempotent.
	MarkRead(ctx context.Context, roomID, username string, lastReadID int64) error
}

// PresenceStore handles per-room live membership.
type PresenceStore interface {
	// UpsertPresence creates or overwrites the presence record for
	// (room, username).
	UpsertPresence(ctx context.Context, p *Presence) error

	// GetPresence retrieves a presence record regardless of liveness.
	GetPresence(ctx context.Context, roomID, username string) (*Presence, error)

	// TouchPresence refreshes LastSeen iff the stored token matches.
	// Returns the refreshed record, or nil on mismatch or absence.
	TouchPresence(ctx context.Context, roomID, username, token string, now time.Time) (*Presence, error)

	// ListPresence deletes records with LastSeen older than cutoff, then
	// returns the remaining records.
	ListPresence(ctx context.Context, roomID string, cutoff time.Time) ([]*Presence, error)

	// RemovePresence deletes a presence record. No-op if absent.
	RemovePresence(ctx context.Context, roomID, username string) error

	// SetAdmin updates the admin flag on an existing presence record.
	SetAdmin(ctx context.Context, roomID, username string, isAdmin bool) error

	// SetTyping records a typing timestamp for username, or clears it when
	// at is nil.
	SetTyping(ctx context.Context, roomID, username string, at *time.Time) error

	// ListTyping deletes typing entries older than cutoff, then returns
	// the remaining usernames.
	ListTyping(ctx context.Context, roomID string, cutoff time.Time) ([]string, error)
}

// BanStore handles per-room ban lists.
type BanStore interface {
	AddBan(ctx context.Context, roomID, username string) error
	RemoveBan(ctx context.Context, roomID, username string) error
	ClearBans(ctx context.Context, roomID string) error
	IsBanned(ctx context.Context, roomID, username string) (bool, error)
	ListBans(ctx context.Context, roomID string) ([]string, error)
}

// AccountStore handles durable account records.
type AccountStore interface {
	// CreateAccount creates an account. Returns ErrExists for a duplicate email.
	CreateAccount(ctx context.Context, a *Account) error

	// GetAccount retrieves an account by email.
	GetAccount(ctx context.Context, email string) (*Account, error)

	// UpdateAccount overwrites the mutable profile fields of an account.
	UpdateAccount(ctx context.Context, a *Account) error
}

// SessionStore handles login sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, token string) (*Session, error)

	// DeleteSession removes a session. Deleting an absent token is not an error.
	DeleteSession(ctx context.Context, token string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomStore
	PresenceStore
	BanStore
	AccountStore
	SessionStore

	// Close releases the underlying resources.
	Close() error
}
