package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pollchat/pollchat-server/internal/auth"
	"github.com/pollchat/pollchat-server/internal/core"
	"github.com/pollchat/pollchat-server/internal/store"
)

// RoomHandlers provides HTTP handlers for the room/chat endpoints.
type RoomHandlers struct {
	chat    *core.Service
	auth    *auth.Service
	log     *zerolog.Logger
	sendLim *rateLimiter
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(chat *core.Service, authService *auth.Service, logger *zerolog.Logger, sendRateLimit int) *RoomHandlers {
	return &RoomHandlers{
		chat:    chat,
		auth:    authService,
		log:     logger,
		sendLim: newRateLimiter(sendRateLimit),
	}
}

// respondError translates a domain error into an HTTP response.
func (h *RoomHandlers) respondError(c *gin.Context, op string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("op", op).Msg("request failed")
		c.JSON(status, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// JoinRequest represents the join request body.
type JoinRequest struct {
	RoomID   string `json:"room_id" binding:"required"`
	Passkey  string `json:"passkey"`
	Username string `json:"username"`
}

// JoinResponse represents a successful join. Username echoes the canonical
// name the server stored, which may differ from the requested one after
// sanitization.
type JoinResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	Created  bool   `json:"created"`
}

// Join handles room join/create.
// POST /api/join
func (h *RoomHandlers) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid join request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	// Login is optional for joining; an authenticated caller gets profile
	// defaults and may create private rooms.
	var account *store.Account
	if token := bearerToken(c); token != "" {
		sess, err := h.auth.Validate(c.Request.Context(), token)
		if err != nil {
			h.log.Error().Err(err).Msg("session validation failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		if sess != nil {
			account, err = h.auth.Account(c.Request.Context(), sess.Email)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				h.log.Error().Err(err).Msg("account lookup failed")
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
				return
			}
		}
	}

	username := req.Username
	if username == "" && account != nil {
		username = account.DisplayName
	}

	result, err := h.chat.Join(c.Request.Context(), req.RoomID, req.Passkey, username, account)
	if err != nil {
		h.respondError(c, "join", err)
		return
	}

	c.JSON(http.StatusOK, JoinResponse{
		Token:    result.Token,
		Username: result.Username,
		IsAdmin:  result.IsAdmin,
		Created:  result.Created,
	})
}

// Poll handles the composite room snapshot read.
// GET /api/poll
func (h *RoomHandlers) Poll(c *gin.Context) {
	roomID := c.Query("room_id")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room_id required"})
		return
	}

	result, err := h.chat.Poll(c.Request.Context(),
		roomID, c.Query("passkey"), c.Query("username"), c.Query("token"))
	if err != nil {
		// Poll failures are expected noise; they self-heal on the next interval.
		if statusForError(err) != http.StatusInternalServerError {
			c.JSON(statusForError(err), ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Debug().Err(err).Str("room", roomID).Msg("poll failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, toPollResponse(result))
}

// SendRequest represents the send request body.
type SendRequest struct {
	RoomID  string `json:"room_id" binding:"required"`
	Passkey string `json:"passkey"`
	Name    string `json:"name" binding:"required"`
	Content string `json:"content" binding:"required"`
	Token   string `json:"token" binding:"required"`
}

// SendResponse represents the send outcome.
type SendResponse struct {
	Success   bool `json:"success"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// Send handles message posting.
// POST /api/send
func (h *RoomHandlers) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if !h.sendLim.allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
		return
	}

	duplicate, err := h.chat.Send(c.Request.Context(), req.RoomID, req.Passkey, req.Name, req.Content, req.Token)
	if err != nil {
		h.respondError(c, "send", err)
		return
	}

	c.JSON(http.StatusOK, SendResponse{Success: true, Duplicate: duplicate})
}

// ClearRequest represents the clear request body.
type ClearRequest struct {
	RoomID  string `json:"room_id" binding:"required"`
	Passkey string `json:"passkey"`
}

// Clear wipes a room's message history.
// POST /api/clear
func (h *RoomHandlers) Clear(c *gin.Context) {
	var req ClearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.chat.Clear(c.Request.Context(), req.RoomID, req.Passkey); err != nil {
		h.respondError(c, "clear", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// LeaveRequest represents the leave request body.
type LeaveRequest struct {
	RoomID   string `json:"room_id" binding:"required"`
	Username string `json:"username" binding:"required"`
	Token    string `json:"token"`
}

// Leave removes the caller's presence. Always 200; an invalid session is a
// no-op.
// POST /api/leave
func (h *RoomHandlers) Leave(c *gin.Context) {
	var req LeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.chat.Leave(c.Request.Context(), req.RoomID, req.Username, req.Token); err != nil {
		h.respondError(c, "leave", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// TypingRequest represents the typing request body.
type TypingRequest struct {
	RoomID   string `json:"room_id" binding:"required"`
	Passkey  string `json:"passkey"`
	Username string `json:"username" binding:"required"`
	Token    string `json:"token" binding:"required"`
	Typing   *bool  `json:"typing" binding:"required"`
}

// Typing records or clears the caller's typing signal.
// POST /api/typing
func (h *RoomHandlers) Typing(c *gin.Context) {
	var req TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.chat.SetTyping(c.Request.Context(), req.RoomID, req.Passkey, req.Username, req.Token, *req.Typing); err != nil {
		h.respondError(c, "typing", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ReactRequest represents the react request body.
type ReactRequest struct {
	RoomID    string `json:"room_id" binding:"required"`
	Passkey   string `json:"passkey"`
	Username  string `json:"username" binding:"required"`
	Token     string `json:"token" binding:"required"`
	MessageID *int64 `json:"message_id" binding:"required"`
	Emoji     string `json:"emoji" binding:"required"`
}

// React toggles a reaction on a message.
// POST /api/react
func (h *RoomHandlers) React(c *gin.Context) {
	var req ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.chat.React(c.Request.Context(), req.RoomID, req.Passkey, req.Username, req.Token, *req.MessageID, req.Emoji); err != nil {
		h.respondError(c, "react", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ReadRequest represents the read-receipt request body.
type ReadRequest struct {
	RoomID     string `json:"room_id" binding:"required"`
	Passkey    string `json:"passkey"`
	Username   string `json:"username" binding:"required"`
	Token      string `json:"token" binding:"required"`
	LastReadID *int64 `json:"last_read_id" binding:"required"`
}

// Read marks messages up to last_read_id as read by the caller.
// POST /api/read
func (h *RoomHandlers) Read(c *gin.Context) {
	var req ReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.chat.MarkRead(c.Request.Context(), req.RoomID, req.Passkey, req.Username, req.Token, *req.LastReadID); err != nil {
		h.respondError(c, "read", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PinRequest represents the pin/unpin request body.
type PinRequest struct {
	RoomID    string `json:"room_id" binding:"required"`
	Passkey   string `json:"passkey"`
	Username  string `json:"username" binding:"required"`
	Token     string `json:"token" binding:"required"`
	MessageID *int64 `json:"message_id"`
}

// Pin sets the room's pinned message. Admin-only.
// POST /api/pin
func (h *RoomHandlers) Pin(c *gin.Context) {
	var req PinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.MessageID == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message_id required"})
		return
	}

	if err := h.chat.Pin(c.Request.Context(), req.RoomID, req.Passkey, req.Username, req.Token, *req.MessageID); err != nil {
		h.respondError(c, "pin", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Unpin clears the room's pinned message. Admin-only.
// POST /api/unpin
func (h *RoomHandlers) Unpin(c *gin.Context) {
	var req PinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.chat.Unpin(c.Request.Context(), req.RoomID, req.Passkey, req.Username, req.Token); err != nil {
		h.respondError(c, "unpin", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
