// Package core implements the room session and state-consistency core:
// membership, session tokens, presence, message history, reactions, read
// receipts, pins and bans, independent of the storage backend.
package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pollchat/pollchat-server/internal/sanitize"
	"github.com/pollchat/pollchat-server/internal/store"
)

const (
	// WorldRoomID is the always-existing, passkey-free default room.
	WorldRoomID = "world"

	// MaxMessages bounds a room's retained history; oldest dropped first.
	MaxMessages = 50

	// UserTimeout is how long a presence record stays live without any
	// authenticated action. Eviction is lazy, on the next read.
	UserTimeout = 15 * time.Second

	// TypingTimeout is the lifetime of a typing signal.
	TypingTimeout = 3 * time.Second

	// DuplicateWindow absorbs client retry storms: an identical
	// (name, content) send within this window of the previous message is
	// accepted as a no-op.
	DuplicateWindow = 2 * time.Second
)

// Config holds per-process authority settings, injected at startup.
type Config struct {
	// AdminSecret is the shared secret for admin elevation. Empty disables
	// elevation entirely.
	AdminSecret string

	// SuperAdmins are account emails that are admin in every room they
	// join. Matched case-insensitively, computed at request time.
	SuperAdmins []string
}

// Service is the chat core. All operations validate against room and
// session state before mutating anything.
type Service struct {
	store store.Store
	cfg   Config
	log   *zerolog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewService creates the chat core on top of a storage backend.
func NewService(st store.Store, cfg Config, logger *zerolog.Logger) *Service {
	return &Service{
		store: st,
		cfg:   cfg,
		log:   logger,
		now:   time.Now,
	}
}

// EnsureWorld creates the world room if it does not exist yet.
func (s *Service) EnsureWorld(ctx context.Context) error {
	err := s.store.CreateRoom(ctx, &store.Room{
		ID:          WorldRoomID,
		Description: "Public world chat",
	})
	if err != nil && !errors.Is(err, store.ErrExists) {
		return err
	}
	return nil
}

// JoinResult is the outcome of a successful join. Username is the canonical
// (sanitized) name the presence record was stored under; clients must use it
// on subsequent requests.
type JoinResult struct {
	Token    string
	Username string
	IsAdmin  bool
	Created  bool
}

// Join enters a room, creating it when absent. Open rooms (no passkey) may
// be created by guests; private rooms require an authenticated creator, who
// becomes the room's admin. account is nil for guests.
func (s *Service) Join(ctx context.Context, roomID, passkey, username string, account *store.Account) (*JoinResult, error) {
	roomID = sanitize.Text(roomID)
	username = sanitize.Text(username)
	if roomID == "" {
		return nil, errBadRequest("room id required")
	}
	if username == "" {
		return nil, errBadRequest("username required")
	}

	created := false
	room, err := s.store.GetRoom(ctx, roomID)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		if passkey != "" && account == nil {
			return nil, errUnauthorized("private rooms require an account")
		}
		newRoom := &store.Room{ID: roomID, Passkey: passkey}
		if createErr := s.store.CreateRoom(ctx, newRoom); createErr != nil {
			if !errors.Is(createErr, store.ErrExists) {
				return nil, createErr
			}
			// Lost a creation race; join the existing room instead.
			if room, err = s.store.GetRoom(ctx, roomID); err != nil {
				return nil, err
			}
		} else {
			created = true
			room = newRoom
			s.log.Info().Str("room", roomID).Bool("private", passkey != "").Msg("room created")
		}
	default:
		return nil, err
	}

	if !created {
		banned, err := s.store.IsBanned(ctx, roomID, username)
		if err != nil {
			return nil, err
		}
		if banned {
			return nil, errBanned("banned from room")
		}
		if !passkeyValid(room, passkey) {
			return nil, errUnauthorized("invalid passkey")
		}
		available, err := s.usernameAvailable(ctx, roomID, username)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, errUsernameTaken("username already taken")
		}
	}

	presence := &store.Presence{
		RoomID:   roomID,
		Username: username,
		Token:    uuid.NewString(),
		LastSeen: s.now(),
		IsAdmin:  created,
	}
	if account != nil {
		presence.Email = account.Email
		presence.Avatar = account.Avatar
		presence.Status = account.Status
		presence.Bio = account.Bio
		if s.isSuperAdmin(account.Email) {
			presence.IsAdmin = true
		}
	}
	if err := s.store.UpsertPresence(ctx, presence); err != nil {
		return nil, err
	}

	return &JoinResult{
		Token:    presence.Token,
		Username: username,
		IsAdmin:  presence.IsAdmin,
		Created:  created,
	}, nil
}

// Leave removes a user's presence. Always succeeds; an invalid session is a
// no-op, not an error.
func (s *Service) Leave(ctx context.Context, roomID, username, token string) error {
	username = sanitize.Text(username)
	p, err := s.store.TouchPresence(ctx, roomID, username, token, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if p == nil {
		return nil
	}
	return s.store.RemovePresence(ctx, roomID, username)
}

// VerifyRoomToken reports whether a presence record exists for
// (roomID, username) with a matching session token.
func (s *Service) VerifyRoomToken(ctx context.Context, roomID, username, token string) (bool, error) {
	p, err := s.store.GetPresence(ctx, roomID, sanitize.Text(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return p.Token == token, nil
}

// usernameAvailable reports whether the username is free in the room: no
// record, or a record stale past UserTimeout (evicted names may be re-claimed).
func (s *Service) usernameAvailable(ctx context.Context, roomID, username string) (bool, error) {
	p, err := s.store.GetPresence(ctx, roomID, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	return s.now().Sub(p.LastSeen) > UserTimeout, nil
}

// authorize runs the shared gate for per-user room actions: room existence,
// ban list, passkey and session token. The touch keeps presence alive.
// The username is normalized the same way Join normalizes it, so the raw
// name a client joined with keeps authorizing the stored identity.
func (s *Service) authorize(ctx context.Context, roomID, passkey, username, token string) (*store.Room, *store.Presence, error) {
	username = sanitize.Text(username)
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Unknown rooms surface as unauthorized to avoid leaking existence.
			return nil, nil, errUnauthorized("invalid room or passkey")
		}
		return nil, nil, err
	}

	banned, err := s.store.IsBanned(ctx, roomID, username)
	if err != nil {
		return nil, nil, err
	}
	if banned {
		return nil, nil, errBanned("banned from room")
	}

	if !passkeyValid(room, passkey) {
		return nil, nil, errUnauthorized("invalid room or passkey")
	}

	p, err := s.store.TouchPresence(ctx, roomID, username, token, s.now())
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, errUnauthorized("invalid session")
	}
	return room, p, nil
}

// passkeyValid reports whether the passkey grants access: the world room and
// open rooms always pass, otherwise exact string match.
func passkeyValid(room *store.Room, passkey string) bool {
	return room.ID == WorldRoomID || room.Passkey == "" || room.Passkey == passkey
}

func (s *Service) isSuperAdmin(email string) bool {
	if email == "" {
		return false
	}
	for _, admin := range s.cfg.SuperAdmins {
		if strings.EqualFold(admin, email) {
			return true
		}
	}
	return false
}
