package http

import (
	"net/url"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestJoinSendPollRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	token := joinRoom(t, ts, "world", "", "alice")

	var sendRes SendResponse
	status := doJSON(t, ts, "POST", "/api/send",
		SendRequest{RoomID: "world", Name: "alice", Content: "hello", Token: token}, "", &sendRes)
	if status != 200 || !sendRes.Success {
		t.Fatalf("send failed: status %d, %+v", status, sendRes)
	}

	var poll PollResponse
	status = doJSON(t, ts, "GET", "/api/poll?"+pollQuery("world", "", "alice", token), nil, "", &poll)
	if status != 200 {
		t.Fatalf("poll: status %d", status)
	}
	if len(poll.Messages) != 1 || poll.Messages[0].Content != "hello" {
		t.Fatalf("unexpected messages: %+v", poll.Messages)
	}
	if len(poll.Users) != 1 || poll.Users[0].Name != "alice" {
		t.Fatalf("unexpected users: %+v", poll.Users)
	}
	if poll.Typing == nil {
		t.Fatal("typing must serialize as an empty array, not null")
	}
}

func TestJoinEchoesCanonicalUsername(t *testing.T) {
	ts := newTestServer(t)

	var join JoinResponse
	status := doJSON(t, ts, "POST", "/api/join",
		JoinRequest{RoomID: "world", Username: "alice "}, "", &join)
	if status != 200 {
		t.Fatalf("join: status %d", status)
	}
	if join.Username != "alice" {
		t.Fatalf("expected canonical username echoed, got %q", join.Username)
	}

	// Polling with the raw name the client joined with still authorizes.
	status = doJSON(t, ts, "GET", "/api/poll?"+pollQuery("world", "", "alice ", join.Token), nil, "", nil)
	if status != 200 {
		t.Fatalf("poll with raw username: status %d", status)
	}
}

func TestSendRejectsInvalidSession(t *testing.T) {
	ts := newTestServer(t)

	joinRoom(t, ts, "world", "", "alice")

	var errRes ErrorResponse
	status := doJSON(t, ts, "POST", "/api/send",
		SendRequest{RoomID: "world", Name: "alice", Content: "hi", Token: "bogus"}, "", &errRes)
	if status != 403 {
		t.Fatalf("expected 403, got %d (%+v)", status, errRes)
	}
}

func TestSendValidatesBody(t *testing.T) {
	ts := newTestServer(t)

	status := doJSON(t, ts, "POST", "/api/send", map[string]string{"room_id": "world"}, "", nil)
	if status != 400 {
		t.Fatalf("expected 400 for missing fields, got %d", status)
	}
}

func TestDuplicateSendReported(t *testing.T) {
	ts := newTestServer(t)

	token := joinRoom(t, ts, "world", "", "alice")
	req := SendRequest{RoomID: "world", Name: "alice", Content: "ping", Token: token}

	var first, second SendResponse
	doJSON(t, ts, "POST", "/api/send", req, "", &first)
	doJSON(t, ts, "POST", "/api/send", req, "", &second)

	if first.Duplicate {
		t.Fatal("first send must not be a duplicate")
	}
	if !second.Duplicate {
		t.Fatal("immediate identical resend should be flagged duplicate")
	}
}

func TestJoinConflictOnTakenUsername(t *testing.T) {
	ts := newTestServer(t)

	joinRoom(t, ts, "world", "", "alice")

	var errRes ErrorResponse
	status := doJSON(t, ts, "POST", "/api/join",
		JoinRequest{RoomID: "world", Username: "alice"}, "", &errRes)
	if status != 409 {
		t.Fatalf("expected 409, got %d (%+v)", status, errRes)
	}
}

func TestPrivateRoomOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	// Guests cannot create private rooms.
	status := doJSON(t, ts, "POST", "/api/join",
		JoinRequest{RoomID: "vault", Passkey: "sesame", Username: "alice"}, "", nil)
	if status != 403 {
		t.Fatalf("expected 403 for guest private create, got %d", status)
	}

	login := registerAccount(t, ts, "alice@example.com", "secret1", "alice")

	var join JoinResponse
	status = doJSON(t, ts, "POST", "/api/join",
		JoinRequest{RoomID: "vault", Passkey: "sesame", Username: "alice"}, login, &join)
	if status != 200 || !join.Created || !join.IsAdmin {
		t.Fatalf("expected created admin join, got status %d %+v", status, join)
	}

	// Wrong passkey on the now-existing room.
	status = doJSON(t, ts, "POST", "/api/join",
		JoinRequest{RoomID: "vault", Passkey: "wrong", Username: "bob"}, "", nil)
	if status != 403 {
		t.Fatalf("expected 403 for wrong passkey, got %d", status)
	}

	// The admin sees the passkey in their poll snapshot.
	var poll PollResponse
	status = doJSON(t, ts, "GET", "/api/poll?"+pollQuery("vault", "sesame", "alice", join.Token), nil, "", &poll)
	if status != 200 {
		t.Fatalf("poll: status %d", status)
	}
	if poll.Passkey != "sesame" {
		t.Fatalf("expected passkey visible to admin, got %q", poll.Passkey)
	}
}

func TestJoinDefaultsUsernameFromAccount(t *testing.T) {
	ts := newTestServer(t)

	login := registerAccount(t, ts, "carol@example.com", "secret1", "carol")

	var join JoinResponse
	status := doJSON(t, ts, "POST", "/api/join", JoinRequest{RoomID: "world"}, login, &join)
	if status != 200 {
		t.Fatalf("join: status %d", status)
	}

	var poll PollResponse
	doJSON(t, ts, "GET", "/api/poll?"+pollQuery("world", "", "carol", join.Token), nil, "", &poll)
	if len(poll.Users) != 1 || poll.Users[0].Name != "carol" {
		t.Fatalf("expected display-name fallback, got %+v", poll.Users)
	}
}

func TestReactAndReadOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	aliceToken := joinRoom(t, ts, "world", "", "alice")
	bobToken := joinRoom(t, ts, "world", "", "bob")

	doJSON(t, ts, "POST", "/api/send",
		SendRequest{RoomID: "world", Name: "alice", Content: "hello", Token: aliceToken}, "", nil)

	msgID := int64(0)
	status := doJSON(t, ts, "POST", "/api/react",
		ReactRequest{RoomID: "world", Username: "bob", Token: bobToken, MessageID: &msgID, Emoji: "🔥"}, "", nil)
	if status != 200 {
		t.Fatalf("react: status %d", status)
	}

	lastRead := int64(0)
	status = doJSON(t, ts, "POST", "/api/read",
		ReadRequest{RoomID: "world", Username: "bob", Token: bobToken, LastReadID: &lastRead}, "", nil)
	if status != 200 {
		t.Fatalf("read: status %d", status)
	}

	var poll PollResponse
	doJSON(t, ts, "GET", "/api/poll?"+pollQuery("world", "", "alice", aliceToken), nil, "", &poll)
	msg := poll.Messages[0]
	if got := msg.Reactions["🔥"]; len(got) != 1 || got[0] != "bob" {
		t.Fatalf("expected bob's reaction, got %v", msg.Reactions)
	}
	if len(msg.ReadBy) != 2 {
		t.Fatalf("expected read by alice and bob, got %v", msg.ReadBy)
	}
}

func TestTypingRequiresExplicitFlag(t *testing.T) {
	ts := newTestServer(t)

	token := joinRoom(t, ts, "world", "", "alice")

	// A body without the typing field is rejected rather than defaulted.
	status := doJSON(t, ts, "POST", "/api/typing",
		map[string]string{"room_id": "world", "username": "alice", "token": token}, "", nil)
	if status != 400 {
		t.Fatalf("expected 400 for missing typing flag, got %d", status)
	}

	typing := true
	status = doJSON(t, ts, "POST", "/api/typing",
		TypingRequest{RoomID: "world", Username: "alice", Token: token, Typing: &typing}, "", nil)
	if status != 200 {
		t.Fatalf("typing: status %d", status)
	}
}

func TestPinOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	// Creator of a fresh room is its admin.
	token := joinRoom(t, ts, "den", "", "alice")
	doJSON(t, ts, "POST", "/api/send",
		SendRequest{RoomID: "den", Name: "alice", Content: "pin me", Token: token}, "", nil)

	msgID := int64(0)
	status := doJSON(t, ts, "POST", "/api/pin",
		PinRequest{RoomID: "den", Username: "alice", Token: token, MessageID: &msgID}, "", nil)
	if status != 200 {
		t.Fatalf("pin: status %d", status)
	}

	var poll PollResponse
	doJSON(t, ts, "GET", "/api/poll?"+pollQuery("den", "", "alice", token), nil, "", &poll)
	if poll.Pinned == nil || poll.Pinned.ID != 0 {
		t.Fatalf("expected message 0 pinned, got %+v", poll.Pinned)
	}

	status = doJSON(t, ts, "POST", "/api/unpin",
		PinRequest{RoomID: "den", Username: "alice", Token: token}, "", nil)
	if status != 200 {
		t.Fatalf("unpin: status %d", status)
	}
}

func TestClearOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	token := joinRoom(t, ts, "world", "", "alice")
	doJSON(t, ts, "POST", "/api/send",
		SendRequest{RoomID: "world", Name: "alice", Content: "wipe me", Token: token}, "", nil)

	status := doJSON(t, ts, "POST", "/api/clear", ClearRequest{RoomID: "world"}, "", nil)
	if status != 200 {
		t.Fatalf("clear: status %d", status)
	}

	var poll PollResponse
	doJSON(t, ts, "GET", "/api/poll?"+pollQuery("world", "", "alice", token), nil, "", &poll)
	if len(poll.Messages) != 0 {
		t.Fatalf("expected empty history, got %+v", poll.Messages)
	}
}

func TestLeaveOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	token := joinRoom(t, ts, "world", "", "alice")

	status := doJSON(t, ts, "POST", "/api/leave",
		LeaveRequest{RoomID: "world", Username: "alice", Token: token}, "", nil)
	if status != 200 {
		t.Fatalf("leave: status %d", status)
	}

	// The name frees up immediately.
	status = doJSON(t, ts, "POST", "/api/join",
		JoinRequest{RoomID: "world", Username: "alice"}, "", nil)
	if status != 200 {
		t.Fatalf("rejoin after leave: status %d", status)
	}
}

func TestPollUnknownRoom(t *testing.T) {
	ts := newTestServer(t)

	status := doJSON(t, ts, "GET", "/api/poll?"+pollQuery("ghost", "", "alice", "tok"), nil, "", nil)
	if status != 403 {
		t.Fatalf("expected 403 for unknown room, got %d", status)
	}

	status = doJSON(t, ts, "GET", "/api/poll", nil, "", nil)
	if status != 400 {
		t.Fatalf("expected 400 for missing room_id, got %d", status)
	}
}

func pollQuery(roomID, passkey, username, token string) string {
	v := url.Values{}
	v.Set("room_id", roomID)
	if passkey != "" {
		v.Set("passkey", passkey)
	}
	v.Set("username", username)
	v.Set("token", token)
	return v.Encode()
}
