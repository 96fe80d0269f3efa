package http

import "testing"

func TestRegisterLoginLogout(t *testing.T) {
	ts := newTestServer(t)

	registerAccount(t, ts, "alice@example.com", "secret1", "alice")

	// Duplicate registration conflicts.
	status := doJSON(t, ts, "POST", "/api/register",
		RegisterRequest{Email: "alice@example.com", Password: "secret1"}, "", nil)
	if status != 409 {
		t.Fatalf("expected 409 for duplicate email, got %d", status)
	}

	var login AuthResponse
	status = doJSON(t, ts, "POST", "/api/login",
		LoginRequest{Email: "alice@example.com", Password: "secret1"}, "", &login)
	if status != 200 || login.Token == "" {
		t.Fatalf("login failed: status %d, %+v", status, login)
	}

	status = doJSON(t, ts, "POST", "/api/login",
		LoginRequest{Email: "alice@example.com", Password: "wrong"}, "", nil)
	if status != 403 {
		t.Fatalf("expected 403 for wrong password, got %d", status)
	}

	status = doJSON(t, ts, "POST", "/api/logout", struct{}{}, login.Token, nil)
	if status != 200 {
		t.Fatalf("logout: status %d", status)
	}

	// The revoked token no longer opens the authed group.
	status = doJSON(t, ts, "GET", "/api/profile", nil, login.Token, nil)
	if status != 401 {
		t.Fatalf("expected 401 after logout, got %d", status)
	}
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	status := doJSON(t, ts, "POST", "/api/register",
		RegisterRequest{Email: "bob@example.com", Password: "short"}, "", nil)
	if status != 400 {
		t.Fatalf("expected 400 for short password, got %d", status)
	}

	status = doJSON(t, ts, "POST", "/api/register", map[string]string{"email": "bob@example.com"}, "", nil)
	if status != 400 {
		t.Fatalf("expected 400 for missing password, got %d", status)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	token := registerAccount(t, ts, "alice@example.com", "secret1", "alice")

	var profile ProfileResponse
	status := doJSON(t, ts, "GET", "/api/profile", nil, token, &profile)
	if status != 200 {
		t.Fatalf("get profile: status %d", status)
	}
	if profile.Email != "alice@example.com" || profile.DisplayName != "alice" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	status = doJSON(t, ts, "PUT", "/api/profile",
		UpdateProfileRequest{DisplayName: "Alice", Status: "around", Bio: "hi"}, token, nil)
	if status != 200 {
		t.Fatalf("update profile: status %d", status)
	}

	status = doJSON(t, ts, "GET", "/api/profile", nil, token, &profile)
	if status != 200 {
		t.Fatalf("get profile: status %d", status)
	}
	if profile.DisplayName != "Alice" || profile.Status != "around" || profile.Bio != "hi" {
		t.Fatalf("update not applied: %+v", profile)
	}
}

func TestProfileRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	status := doJSON(t, ts, "GET", "/api/profile", nil, "", nil)
	if status != 401 {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	status = doJSON(t, ts, "GET", "/api/profile", nil, "garbage", nil)
	if status != 401 {
		t.Fatalf("expected 401 with bad token, got %d", status)
	}
}
