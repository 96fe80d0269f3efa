// Package memory provides a volatile, process-local implementation of
// store.Store. It is the fallback backend when the durable store is
// unavailable, and the default for tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pollchat/pollchat-server/internal/store"
)

// roomState holds everything owned by a single room. Each room has its own
// mutex so operations on different rooms never block each other.
type roomState struct {
	mu       sync.Mutex
	room     store.Room
	messages []*store.Message
	presence map[string]*store.Presence
	bans     map[string]struct{}
	typing   map[string]time.Time
}

// Store is an in-memory store.Store implementation.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*roomState

	amu      sync.RWMutex
	accounts map[string]*store.Account
	sessions map[string]*store.Session
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		rooms:    make(map[string]*roomState),
		accounts: make(map[string]*store.Account),
		sessions: make(map[string]*store.Session),
	}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

func (s *Store) roomState(id string) (*roomState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", id, store.ErrNotFound)
	}
	return rs, nil
}

// ==== RoomStore implementation ====

// GetRoom retrieves a room by id.
func (s *Store) GetRoom(_ context.Context, id string) (*store.Room, error) {
	rs, err := s.roomState(id)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	room := rs.room
	if rs.room.PinnedID != nil {
		pinned := *rs.room.PinnedID
		room.PinnedID = &pinned
	}
	return &room, nil
}

// CreateRoom creates a new room.
func (s *Store) CreateRoom(_ context.Context, room *store.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; ok {
		return fmt.Errorf("room %q: %w", room.ID, store.ErrExists)
	}
	s.rooms[room.ID] = &roomState{
		room:     *room,
		presence: make(map[string]*store.Presence),
		bans:     make(map[string]struct{}),
		typing:   make(map[string]time.Time),
	}
	return nil
}

// SetPinned updates the room's pinned message reference.
func (s *Store) SetPinned(_ context.Context, roomID string, messageID *int64) error {
	rs, err := s.roomState(roomID)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.room.PinnedID = messageID
	return nil
}

// AppendMessage assigns the next id, stores the message and trims the history.
func (s *Store) AppendMessage(_ context.Context, roomID string, msg *store.Message, maxMessages int) error {
	rs, err := s.roomState(roomID)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	msg.ID = 0
	if n := len(rs.messages); n > 0 {
		msg.ID = rs.messages[n-1].ID + 1
	}
	msg.RoomID = roomID

	stored := copyMessage(msg)
	rs.messages = append(rs.messages, stored)
	if maxMessages > 0 && len(rs.messages) > maxMessages {
		rs.messages = rs.messages[len(rs.messages)-maxMessages:]
	}
	return nil
}

// LastMessage returns the newest message, or nil if the room is empty.
func (s *Store) LastMessage(_ context.Context, roomID string) (*store.Message, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.messages) == 0 {
		return nil, nil
	}
	return copyMessage(rs.messages[len(rs.messages)-1]), nil
}

// GetMessage retrieves one message by id.
func (s *Store) GetMessage(_ context.Context, roomID string, id int64) (*store.Message, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, m := range rs.messages {
		if m.ID == id {
			return copyMessage(m), nil
		}
	}
	return nil, fmt.Errorf("message %d in room %q: %w", id, roomID, store.ErrNotFound)
}

// ListMessages returns all retained messages in insertion order.
func (s *Store) ListMessages(_ context.Context, roomID string) ([]*store.Message, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]*store.Message, 0, len(rs.messages))
	for _, m := range rs.messages {
		out = append(out, copyMessage(m))
	}
	return out, nil
}

// ClearMessages wipes the room's message history.
func (s *Store) ClearMessages(_ context.Context, roomID string) error {
	rs, err := s.roomState(roomID)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.messages = nil
	return nil
}

// DeleteMessagesByContent removes every message with matching content.
func (s *Store) DeleteMessagesByContent(_ context.Context, roomID, content string) (int, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return 0, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	kept := rs.messages[:0]
	removed := 0
	for _, m := range rs.messages {
		if m.Content == content {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	rs.messages = kept
	return removed, nil
}

// ToggleReaction toggles username's membership under emoji for a message.
func (s *Store) ToggleReaction(_ context.Context, roomID string, messageID int64, emoji, username string) error {
	rs, err := s.roomState(roomID)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, m := range rs.messages {
		if m.ID != messageID {
			continue
		}
		if m.Reactions == nil {
			m.Reactions = make(map[string][]string)
		}
		members := m.Reactions[emoji]
		for i, name := range members {
			if name == username {
				members = append(members[:i], members[i+1:]...)
				if len(members) == 0 {
					delete(m.Reactions, emoji)
				} else {
					m.Reactions[emoji] = members
				}
				return nil
			}
		}
		m.Reactions[emoji] = append(members, username)
		return nil
	}
	return fmt.Errorf("message %d in room %q: %w", messageID, roomID, store.ErrNotFound)
}

// MarkRead marks messages up to lastReadID as read by username.
func (s *Store) MarkRead(_ context.Context, roomID, username string, lastReadID int64) error {
	rs, err := s.roomState(roomID)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, m := range rs.messages {
		if m.ID > lastReadID || m.Name == username {
			continue
		}
		if !contains(m.ReadBy, username) {
			m.ReadBy = append(m.ReadBy, username)
		}
	}
	return nil
}

// ==== PresenceStore implementation ====

// UpsertPresence creates or overwrites a presence record.
func (s *Store) UpsertPresence(_ context.Context, p *store.Presence) error {
	rs, err := s.roomState(p.RoomID)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	cp := *p
	rs.presence[p.Username] = &cp
	return nil
}

// GetPresence retrieves a presence record regardless of liveness.
func (s *Store) GetPresence(_ context.Context, roomID, username string) (*store.Presence, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	p, ok := rs.presence[username]
	if !ok {
		return nil, fmt.Errorf("presence %q in room %q: %w", username, roomID, store.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// TouchPresence refreshes LastSeen iff the stored token matches.
func (s *Store) TouchPresence(_ context.Context, roomID, username, token string, now time.Time) (*store.Presence, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	p, ok := rs.presence[username]
	if !ok || p.Token != token {
		return nil, nil
	}
	p.LastSeen = now
	cp := *p
	return &cp, nil
}

// ListPresence evicts stale records, then returns the remaining ones.
func (s *Store) ListPresence(_ context.Context, roomID string, cutoff time.Time) ([]*store.Presence, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]*store.Presence, 0, len(rs.presence))
	for name, p := range rs.presence {
		if p.LastSeen.Before(cutoff) {
			delete(rs.presence, name)
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// RemovePresence deletes a presence record.
func (s *Store) RemovePresence(_ context.Context, roomID, username string) error {
	rs, err := s.roomState(roomID)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.presence, username)
	return nil
}

// SetAdmin updates the admin flag on an existing presence record.
func (s *Store) SetAdmin(_ context.Context, roomID, username string, isAdmin bool) error {
	rs, err := s.roomState(roomID)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	p, ok := rs.presence[username]
	if !ok {
		return fmt.Errorf("presence %q in room %q: %w", username, roomID, store.ErrNotFound)
	}
	p.IsAdmin = isAdmin
	return nil
}

// SetTyping records or clears a typing timestamp.
func (s *Store) SetTyping(_ context.Context, roomID, username string, at *time.Time) error {
	rs, err := s.roomState(roomID)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if at == nil {
		delete(rs.typing, username)
		return nil
	}
	rs.typing[username] = *at
	return nil
}

// ListTyping evicts stale typing entries, then returns the remaining usernames.
func (s *Store) ListTyping(_ context.Context, roomID string, cutoff time.Time) ([]string, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]string, 0, len(rs.typing))
	for name, at := range rs.typing {
		if at.Before(cutoff) {
			delete(rs.typing, name)
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// ==== BanStore implementation ====

// AddBan adds a username to the room's ban list.
func (s *Store) AddBan(_ context.Context, roomID, username string) error {
	rs, err := s.roomState(roomID)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.bans[username] = struct{}{}
	return nil
}

// RemoveBan removes a username from the room's ban list.
func (s *Store) RemoveBan(_ context.Context, roomID, username string) error {
	rs, err := s.roomState(roomID)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.bans, username)
	return nil
}

// ClearBans empties the room's ban list.
func (s *Store) ClearBans(_ context.Context, roomID string) error {
	rs, err := s.roomState(roomID)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.bans = make(map[string]struct{})
	return nil
}

// IsBanned reports whether a username is banned in the room.
func (s *Store) IsBanned(_ context.Context, roomID, username string) (bool, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return false, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, banned := rs.bans[username]
	return banned, nil
}

// ListBans returns the room's banned usernames.
func (s *Store) ListBans(_ context.Context, roomID string) ([]string, error) {
	rs, err := s.roomState(roomID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]string, 0, len(rs.bans))
	for name := range rs.bans {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// ==== AccountStore implementation ====

// CreateAccount creates an account record.
func (s *Store) CreateAccount(_ context.Context, a *store.Account) error {
	s.amu.Lock()
	defer s.amu.Unlock()
	if _, ok := s.accounts[a.Email]; ok {
		return fmt.Errorf("account %q: %w", a.Email, store.ErrExists)
	}
	cp := *a
	s.accounts[a.Email] = &cp
	return nil
}

// GetAccount retrieves an account by email.
func (s *Store) GetAccount(_ context.Context, email string) (*store.Account, error) {
	s.amu.RLock()
	defer s.amu.RUnlock()
	a, ok := s.accounts[email]
	if !ok {
		return nil, fmt.Errorf("account %q: %w", email, store.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

// UpdateAccount overwrites the mutable profile fields of an account.
func (s *Store) UpdateAccount(_ context.Context, a *store.Account) error {
	s.amu.Lock()
	defer s.amu.Unlock()
	cur, ok := s.accounts[a.Email]
	if !ok {
		return fmt.Errorf("account %q: %w", a.Email, store.ErrNotFound)
	}
	cur.DisplayName = a.DisplayName
	cur.Avatar = a.Avatar
	cur.Status = a.Status
	cur.Bio = a.Bio
	return nil
}

// ==== SessionStore implementation ====

// CreateSession stores a login session.
func (s *Store) CreateSession(_ context.Context, sess *store.Session) error {
	s.amu.Lock()
	defer s.amu.Unlock()
	cp := *sess
	s.sessions[sess.Token] = &cp
	return nil
}

// GetSession retrieves a login session by token.
func (s *Store) GetSession(_ context.Context, token string) (*store.Session, error) {
	s.amu.RLock()
	defer s.amu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, fmt.Errorf("session: %w", store.ErrNotFound)
	}
	cp := *sess
	return &cp, nil
}

// DeleteSession removes a login session. Idempotent.
func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.amu.Lock()
	defer s.amu.Unlock()
	delete(s.sessions, token)
	return nil
}

func copyMessage(m *store.Message) *store.Message {
	cp := *m
	if m.Reactions != nil {
		cp.Reactions = make(map[string][]string, len(m.Reactions))
		for emoji, members := range m.Reactions {
			cp.Reactions[emoji] = append([]string(nil), members...)
		}
	}
	cp.ReadBy = append([]string(nil), m.ReadBy...)
	return &cp
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Ensure Store implements store.Store
var _ store.Store = (*Store)(nil)
