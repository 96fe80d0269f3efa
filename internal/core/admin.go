package core

import (
	"context"
	"errors"

	"github.com/pollchat/pollchat-server/internal/sanitize"
	"github.com/pollchat/pollchat-server/internal/store"
)

// Elevate grants the caller the room admin flag when the shared admin secret
// matches. An empty configured secret disables elevation.
func (s *Service) Elevate(ctx context.Context, roomID, username, token, secret string) error {
	username = sanitize.Text(username)
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errUnauthorized("invalid room")
		}
		return err
	}
	p, err := s.store.TouchPresence(ctx, roomID, username, token, s.now())
	if err != nil {
		return err
	}
	if p == nil {
		return errUnauthorized("invalid session")
	}
	if s.cfg.AdminSecret == "" || secret != s.cfg.AdminSecret {
		return errUnauthorized("invalid admin secret")
	}
	s.log.Info().Str("room", roomID).Str("user", username).Msg("admin elevation granted")
	return s.store.SetAdmin(ctx, roomID, username, true)
}

// IsAdmin reports whether the username currently holds the room admin flag.
func (s *Service) IsAdmin(ctx context.Context, roomID, username string) (bool, error) {
	p, err := s.store.GetPresence(ctx, roomID, sanitize.Text(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return p.IsAdmin, nil
}

// requireAdmin authorizes the caller and checks the admin flag.
func (s *Service) requireAdmin(ctx context.Context, roomID, passkey, username, token string) error {
	_, p, err := s.authorize(ctx, roomID, passkey, username, token)
	if err != nil {
		return err
	}
	if !p.IsAdmin {
		return errNotAdmin("admin required")
	}
	return nil
}

// Ban adds target to the room's ban list and drops their presence so the
// ban takes effect on their next poll. Admin-only.
func (s *Service) Ban(ctx context.Context, roomID, passkey, username, token, target string) error {
	target = sanitize.Text(target)
	if target == "" {
		return errBadRequest("target username required")
	}
	if err := s.requireAdmin(ctx, roomID, passkey, username, token); err != nil {
		return err
	}
	if err := s.store.AddBan(ctx, roomID, target); err != nil {
		return err
	}
	s.log.Info().Str("room", roomID).Str("user", target).Str("by", username).Msg("user banned")
	return s.store.RemovePresence(ctx, roomID, target)
}

// Unban removes target from the room's ban list. Admin-only.
func (s *Service) Unban(ctx context.Context, roomID, passkey, username, token, target string) error {
	if err := s.requireAdmin(ctx, roomID, passkey, username, token); err != nil {
		return err
	}
	return s.store.RemoveBan(ctx, roomID, sanitize.Text(target))
}

// UnbanAll empties the room's ban list. Admin-only.
func (s *Service) UnbanAll(ctx context.Context, roomID, passkey, username, token string) error {
	if err := s.requireAdmin(ctx, roomID, passkey, username, token); err != nil {
		return err
	}
	return s.store.ClearBans(ctx, roomID)
}

// ListBanned returns the room's banned usernames. Admin-only.
func (s *Service) ListBanned(ctx context.Context, roomID, passkey, username, token string) ([]string, error) {
	if err := s.requireAdmin(ctx, roomID, passkey, username, token); err != nil {
		return nil, err
	}
	return s.store.ListBans(ctx, roomID)
}

// DeleteMessages removes every message whose content equals content and
// returns the number removed. Admin-only.
func (s *Service) DeleteMessages(ctx context.Context, roomID, passkey, username, token, content string) (int, error) {
	if content == "" {
		return 0, errBadRequest("content required")
	}
	if err := s.requireAdmin(ctx, roomID, passkey, username, token); err != nil {
		return 0, err
	}
	removed, err := s.store.DeleteMessagesByContent(ctx, roomID, content)
	if err != nil {
		return 0, err
	}
	s.log.Info().Str("room", roomID).Int("removed", removed).Str("by", username).Msg("messages deleted")
	return removed, nil
}
