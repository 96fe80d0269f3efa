package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pollchat/pollchat-server/internal/auth"
	"github.com/pollchat/pollchat-server/internal/store"
)

// AccountHandlers provides HTTP handlers for account endpoints.
type AccountHandlers struct {
	auth *auth.Service
	log  *zerolog.Logger
}

// NewAccountHandlers creates a new account handlers instance.
func NewAccountHandlers(authService *auth.Service, logger *zerolog.Logger) *AccountHandlers {
	return &AccountHandlers{auth: authService, log: logger}
}

// RegisterRequest represents the registration request body. The email is
// treated as a pre-validated string.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Token string `json:"token"`
}

// ProfileResponse represents an account profile.
type ProfileResponse struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar,omitempty"`
	Status      string `json:"status,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

// Register handles account registration.
// POST /api/register
func (h *AccountHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountExists):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "account already exists"})
		case errors.Is(err, auth.ErrInvalidPassword), errors.Is(err, auth.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Msg("registration failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{Token: token})
}

// Login handles account login.
// POST /api/login
func (h *AccountHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "invalid credentials"})
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

// Logout revokes the caller's login session. Idempotent.
// POST /api/logout
func (h *AccountHandlers) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		h.log.Error().Err(err).Msg("logout failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetProfile returns the caller's account profile.
// GET /api/profile
func (h *AccountHandlers) GetProfile(c *gin.Context) {
	email := c.GetString(ContextKeyEmail)

	account, err := h.auth.Account(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "account not found"})
			return
		}
		h.log.Error().Err(err).Msg("profile lookup failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Avatar:      account.Avatar,
		Status:      account.Status,
		Bio:         account.Bio,
	})
}

// UpdateProfileRequest represents the profile update request body.
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
	Status      string `json:"status"`
	Bio         string `json:"bio"`
}

// UpdateProfile overwrites the caller's mutable profile fields.
// PUT /api/profile
func (h *AccountHandlers) UpdateProfile(c *gin.Context) {
	email := c.GetString(ContextKeyEmail)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	account, err := h.auth.Account(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "account not found"})
			return
		}
		h.log.Error().Err(err).Msg("profile lookup failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if req.DisplayName != "" {
		account.DisplayName = req.DisplayName
	}
	account.Avatar = req.Avatar
	account.Status = req.Status
	account.Bio = req.Bio

	if err := h.auth.UpdateProfile(c.Request.Context(), account); err != nil {
		h.log.Error().Err(err).Msg("profile update failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
