package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pollchat/pollchat-server/internal/core"
)

// AdminHandlers provides HTTP handlers for admin-gated room operations.
type AdminHandlers struct {
	chat *core.Service
	log  *zerolog.Logger
}

// NewAdminHandlers creates a new admin handlers instance.
func NewAdminHandlers(chat *core.Service, logger *zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{chat: chat, log: logger}
}

func (h *AdminHandlers) respondError(c *gin.Context, op string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("op", op).Msg("request failed")
		c.JSON(status, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// ElevateRequest represents the admin elevation request body.
type ElevateRequest struct {
	RoomID   string `json:"room_id" binding:"required"`
	Username string `json:"username" binding:"required"`
	Token    string `json:"token" binding:"required"`
	Secret   string `json:"secret" binding:"required"`
}

// Elevate grants the caller room admin when the shared secret matches.
// POST /api/elevate
func (h *AdminHandlers) Elevate(c *gin.Context) {
	var req ElevateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.chat.Elevate(c.Request.Context(), req.RoomID, req.Username, req.Token, req.Secret); err != nil {
		h.respondError(c, "elevate", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// BanRequest represents the ban/unban request body.
type BanRequest struct {
	RoomID   string `json:"room_id" binding:"required"`
	Passkey  string `json:"passkey"`
	Username string `json:"username" binding:"required"`
	Token    string `json:"token" binding:"required"`
	Target   string `json:"target" binding:"required"`
}

// Ban adds a username to the room's ban list. Admin-only.
// POST /api/ban
func (h *AdminHandlers) Ban(c *gin.Context) {
	var req BanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.chat.Ban(c.Request.Context(), req.RoomID, req.Passkey, req.Username, req.Token, req.Target); err != nil {
		h.respondError(c, "ban", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Unban removes a username from the room's ban list. Admin-only.
// POST /api/unban
func (h *AdminHandlers) Unban(c *gin.Context) {
	var req BanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.chat.Unban(c.Request.Context(), req.RoomID, req.Passkey, req.Username, req.Token, req.Target); err != nil {
		h.respondError(c, "unban", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UnbanAllRequest represents the unban-all request body.
type UnbanAllRequest struct {
	RoomID   string `json:"room_id" binding:"required"`
	Passkey  string `json:"passkey"`
	Username string `json:"username" binding:"required"`
	Token    string `json:"token" binding:"required"`
}

// UnbanAll empties the room's ban list. Admin-only.
// POST /api/unban-all
func (h *AdminHandlers) UnbanAll(c *gin.Context) {
	var req UnbanAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.chat.UnbanAll(c.Request.Context(), req.RoomID, req.Passkey, req.Username, req.Token); err != nil {
		h.respondError(c, "unban-all", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListBans returns the room's banned usernames. Admin-only.
// GET /api/bans
func (h *AdminHandlers) ListBans(c *gin.Context) {
	roomID := c.Query("room_id")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room_id required"})
		return
	}

	banned, err := h.chat.ListBanned(c.Request.Context(),
		roomID, c.Query("passkey"), c.Query("username"), c.Query("token"))
	if err != nil {
		h.respondError(c, "bans", err)
		return
	}
	if banned == nil {
		banned = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"banned": banned})
}

// DeleteMessagesRequest represents the delete-by-content request body.
type DeleteMessagesRequest struct {
	RoomID   string `json:"room_id" binding:"required"`
	Passkey  string `json:"passkey"`
	Username string `json:"username" binding:"required"`
	Token    string `json:"token" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

// DeleteMessages removes every message with matching content. Admin-only.
// POST /api/messages/delete
func (h *AdminHandlers) DeleteMessages(c *gin.Context) {
	var req DeleteMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	removed, err := h.chat.DeleteMessages(c.Request.Context(),
		req.RoomID, req.Passkey, req.Username, req.Token, req.Content)
	if err != nil {
		h.respondError(c, "delete-messages", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed})
}
