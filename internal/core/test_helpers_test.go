package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pollchat/pollchat-server/internal/store"
	"github.com/pollchat/pollchat-server/internal/store/memory"
)

// fakeClock is a manually advanced clock shared by a test and the service.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestService(t *testing.T, cfg Config) (*Service, *fakeClock) {
	t.Helper()

	logger := zerolog.Nop()
	svc := NewService(memory.New(), cfg, &logger)
	clock := newFakeClock()
	svc.now = clock.Now

	if err := svc.EnsureWorld(context.Background()); err != nil {
		t.Fatalf("ensure world: %v", err)
	}
	return svc, clock
}

// mustJoin joins a room as a guest and returns the session token.
func mustJoin(t *testing.T, svc *Service, roomID, passkey, username string) string {
	t.Helper()

	res, err := svc.Join(context.Background(), roomID, passkey, username, nil)
	if err != nil {
		t.Fatalf("join %s as %s: %v", roomID, username, err)
	}
	return res.Token
}

func mustSend(t *testing.T, svc *Service, roomID, passkey, username, content, token string) {
	t.Helper()

	dup, err := svc.Send(context.Background(), roomID, passkey, username, content, token)
	if err != nil {
		t.Fatalf("send %q as %s: %v", content, username, err)
	}
	if dup {
		t.Fatalf("send %q as %s: unexpected duplicate", content, username)
	}
}

func mustPoll(t *testing.T, svc *Service, roomID, passkey, username, token string) *PollResult {
	t.Helper()

	res, err := svc.Poll(context.Background(), roomID, passkey, username, token)
	if err != nil {
		t.Fatalf("poll %s as %s: %v", roomID, username, err)
	}
	return res
}

// accountFor builds a minimal registered account for name.
func accountFor(name string) *store.Account {
	return &store.Account{Email: name + "@example.com", DisplayName: name}
}

func coreCode(t *testing.T, err error) string {
	t.Helper()

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	coreErr, ok := err.(*CoreError)
	if !ok {
		t.Fatalf("expected CoreError, got %T: %v", err, err)
	}
	return coreErr.Code
}
