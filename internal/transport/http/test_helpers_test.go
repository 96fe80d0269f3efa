package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pollchat/pollchat-server/internal/auth"
	"github.com/pollchat/pollchat-server/internal/config"
	"github.com/pollchat/pollchat-server/internal/core"
	"github.com/pollchat/pollchat-server/internal/store/memory"
)

// newTestServer builds the full router on an in-memory store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := zerolog.Nop()
	st := memory.New()

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret: []byte("test-secret"),
		Issuer: "pollchat",
		TTL:    time.Hour,
	})
	chat := core.NewService(st, core.Config{AdminSecret: "hunter2"}, &logger)
	if err := chat.EnsureWorld(context.Background()); err != nil {
		t.Fatalf("ensure world: %v", err)
	}

	cfg := config.Default()
	cfg.SendRateLimit = 0 // unlimited in tests

	srv := NewServer(chat, authService, &cfg, &logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// doJSON posts body as JSON (or issues a GET when body is nil) and decodes
// the response into out when non-nil.
func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any, bearer string, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := stdhttp.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response from %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// joinRoom joins a room and returns the session token.
func joinRoom(t *testing.T, ts *httptest.Server, roomID, passkey, username string) string {
	t.Helper()

	var res JoinResponse
	status := doJSON(t, ts, "POST", "/api/join", JoinRequest{RoomID: roomID, Passkey: passkey, Username: username}, "", &res)
	if status != 200 {
		t.Fatalf("join %s as %s: status %d", roomID, username, status)
	}
	return res.Token
}

func registerAccount(t *testing.T, ts *httptest.Server, email, password, displayName string) string {
	t.Helper()

	var res AuthResponse
	status := doJSON(t, ts, "POST", "/api/register",
		RegisterRequest{Email: email, Password: password, DisplayName: displayName}, "", &res)
	if status != 201 {
		t.Fatalf("register %s: status %d", email, status)
	}
	return res.Token
}
