package http

import (
	"errors"
	"net/http"

	"github.com/pollchat/pollchat-server/internal/core"
	"github.com/pollchat/pollchat-server/internal/store"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID        int64               `json:"id"`
	Name      string              `json:"name"`
	Content   string              `json:"content"`
	Time      int64               `json:"time"`
	Reactions map[string][]string `json:"reactions,omitempty"`
	ReadBy    []string            `json:"read_by,omitempty"`
}

// UserResponse represents a present user in API responses.
type UserResponse struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Status string `json:"status,omitempty"`
	Bio    string `json:"bio,omitempty"`
}

// PollResponse represents the composite poll snapshot.
type PollResponse struct {
	Messages    []MessageResponse `json:"messages"`
	Users       []UserResponse    `json:"users"`
	Typing      []string          `json:"typing"`
	Pinned      *MessageResponse  `json:"pinned_message,omitempty"`
	IsAdmin     bool              `json:"is_admin"`
	Description string            `json:"description"`
	Passkey     string            `json:"passkey,omitempty"`
}

func toMessageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Name:      m.Name,
		Content:   m.Content,
		Time:      m.Time,
		Reactions: m.Reactions,
		ReadBy:    m.ReadBy,
	}
}

func toPollResponse(r *core.PollResult) PollResponse {
	resp := PollResponse{
		Messages:    make([]MessageResponse, 0, len(r.Messages)),
		Users:       make([]UserResponse, 0, len(r.Users)),
		Typing:      r.Typing,
		IsAdmin:     r.IsAdmin,
		Description: r.Description,
		Passkey:     r.Passkey,
	}
	for _, m := range r.Messages {
		resp.Messages = append(resp.Messages, toMessageResponse(m))
	}
	for _, u := range r.Users {
		resp.Users = append(resp.Users, UserResponse(u))
	}
	if r.Typing == nil {
		resp.Typing = []string{}
	}
	if r.Pinned != nil {
		pinned := toMessageResponse(r.Pinned)
		resp.Pinned = &pinned
	}
	return resp
}

// statusForError maps domain errors onto HTTP statuses. Unknown rooms and
// auth failures both surface as 403 so room existence is not leaked.
func statusForError(err error) int {
	var coreErr *core.CoreError
	if errors.As(err, &coreErr) {
		switch coreErr.Code {
		case core.ErrCodeBadRequest:
			return http.StatusBadRequest
		case core.ErrCodeUsernameTaken:
			return http.StatusConflict
		case core.ErrCodeUnauthorized, core.ErrCodeBanned, core.ErrCodeNotAdmin:
			return http.StatusForbidden
		}
	}
	return http.StatusInternalServerError
}
