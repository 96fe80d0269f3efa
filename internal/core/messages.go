package core

import (
	"context"
	"errors"

	"github.com/pollchat/pollchat-server/internal/sanitize"
	"github.com/pollchat/pollchat-server/internal/store"
)

// Send validates, dedups, sanitizes and appends a message. The returned
// bool is true when the send was absorbed as an idempotent duplicate.
func (s *Service) Send(ctx context.Context, roomID, passkey, username, content, token string) (bool, error) {
	name := sanitize.Text(username)
	content = sanitize.Text(content)
	if name == "" || content == "" {
		return false, errBadRequest("name and content required")
	}

	if _, _, err := s.authorize(ctx, roomID, passkey, username, token); err != nil {
		return false, err
	}

	nowSec := s.now().Unix()

	last, err := s.store.LastMessage(ctx, roomID)
	if err != nil {
		return false, err
	}
	if last != nil && last.Name == name && last.Content == content &&
		nowSec-last.Time < int64(DuplicateWindow.Seconds()) {
		return true, nil
	}

	msg := &store.Message{
		Name:    name,
		Content: content,
		Time:    nowSec,
		ReadBy:  []string{name},
	}
	if err := s.store.AppendMessage(ctx, roomID, msg, MaxMessages); err != nil {
		return false, err
	}
	return false, nil
}

// UserInfo is the public slice of a presence record.
type UserInfo struct {
	Name   string
	Avatar string
	Status string
	Bio    string
}

// PollResult is the consistent snapshot returned to a polling client.
type PollResult struct {
	Messages    []*store.Message
	Users       []UserInfo
	Typing      []string
	Pinned      *store.Message
	IsAdmin     bool
	Description string

	// Passkey is only populated for admins of non-world rooms, so an
	// admin can see and share it.
	Passkey string
}

// Poll reads a composite snapshot of the room. As a side effect it refreshes
// the caller's presence and lazily evicts stale presence and typing entries.
func (s *Service) Poll(ctx context.Context, roomID, passkey, username, token string) (*PollResult, error) {
	room, p, err := s.authorize(ctx, roomID, passkey, username, token)
	if err != nil {
		return nil, err
	}
	now := s.now()

	messages, err := s.store.ListMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}

	presences, err := s.store.ListPresence(ctx, roomID, now.Add(-UserTimeout))
	if err != nil {
		return nil, err
	}
	users := make([]UserInfo, 0, len(presences))
	for _, pr := range presences {
		users = append(users, UserInfo{Name: pr.Username, Avatar: pr.Avatar, Status: pr.Status, Bio: pr.Bio})
	}

	typing, err := s.store.ListTyping(ctx, roomID, now.Add(-TypingTimeout))
	if err != nil {
		return nil, err
	}

	result := &PollResult{
		Messages:    messages,
		Users:       users,
		Typing:      typing,
		IsAdmin:     p.IsAdmin,
		Description: room.Description,
	}

	// The pin is a weak reference; the message may have been evicted.
	if room.PinnedID != nil {
		pinned, err := s.store.GetMessage(ctx, roomID, *room.PinnedID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		result.Pinned = pinned
	}

	if p.IsAdmin && roomID != WorldRoomID {
		result.Passkey = room.Passkey
	}
	return result, nil
}

// Clear wipes a room's message history. Authorization is passkey-based only;
// presence, bans and the pinned reference are untouched.
func (s *Service) Clear(ctx context.Context, roomID, passkey string) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errUnauthorized("invalid room or passkey")
		}
		return err
	}
	if !passkeyValid(room, passkey) {
		return errUnauthorized("invalid room or passkey")
	}
	return s.store.ClearMessages(ctx, roomID)
}

// SetTyping records or clears the caller's typing signal.
func (s *Service) SetTyping(ctx context.Context, roomID, passkey, username, token string, typing bool) error {
	_, p, err := s.authorize(ctx, roomID, passkey, username, token)
	if err != nil {
		return err
	}
	if !typing {
		return s.store.SetTyping(ctx, roomID, p.Username, nil)
	}
	now := s.now()
	return s.store.SetTyping(ctx, roomID, p.Username, &now)
}

// React toggles the caller's reaction on a message: reacting twice with the
// same emoji adds and then removes it.
func (s *Service) React(ctx context.Context, roomID, passkey, username, token string, messageID int64, emoji string) error {
	if emoji == "" {
		return errBadRequest("emoji required")
	}
	_, p, err := s.authorize(ctx, roomID, passkey, username, token)
	if err != nil {
		return err
	}
	if err := s.store.ToggleReaction(ctx, roomID, messageID, emoji, p.Username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errBadRequest("unknown message")
		}
		return err
	}
	return nil
}

// MarkRead marks every message with id <= lastReadID not authored by the
// caller as read. Idempotent.
func (s *Service) MarkRead(ctx context.Context, roomID, passkey, username, token string, lastReadID int64) error {
	_, p, err := s.authorize(ctx, roomID, passkey, username, token)
	if err != nil {
		return err
	}
	return s.store.MarkRead(ctx, roomID, p.Username, lastReadID)
}

// Pin sets the room's pinned message. Admin-only.
func (s *Service) Pin(ctx context.Context, roomID, passkey, username, token string, messageID int64) error {
	_, p, err := s.authorize(ctx, roomID, passkey, username, token)
	if err != nil {
		return err
	}
	if !p.IsAdmin {
		return errNotAdmin("admin required")
	}
	if _, err := s.store.GetMessage(ctx, roomID, messageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errBadRequest("unknown message")
		}
		return err
	}
	return s.store.SetPinned(ctx, roomID, &messageID)
}

// Unpin clears the room's pinned message. Admin-only.
func (s *Service) Unpin(ctx context.Context, roomID, passkey, username, token string) error {
	_, p, err := s.authorize(ctx, roomID, passkey, username, token)
	if err != nil {
		return err
	}
	if !p.IsAdmin {
		return errNotAdmin("admin required")
	}
	return s.store.SetPinned(ctx, roomID, nil)
}
