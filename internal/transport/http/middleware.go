package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pollchat/pollchat-server/internal/auth"
)

const (
	// ContextKeyEmail is the context key for the authenticated account email.
	ContextKeyEmail = "email"
	// ContextKeyDisplayName is the context key for the account display name.
	ContextKeyDisplayName = "display_name"
)

// AuthMiddleware validates the Bearer login token and stores the session's
// identity in the request context.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			logger.Debug().Msg("missing authorization header")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization header"})
			c.Abort()
			return
		}

		sess, err := authService.Validate(c.Request.Context(), token)
		if err != nil {
			logger.Error().Err(err).Msg("session validation failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			c.Abort()
			return
		}
		if sess == nil {
			logger.Debug().Msg("invalid or expired login session")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			c.Abort()
			return
		}

		c.Set(ContextKeyEmail, sess.Email)
		c.Set(ContextKeyDisplayName, sess.DisplayName)
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header, or returns "".
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// LoggerMiddleware logs HTTP requests. Poll requests log at debug to keep
// the steady-state output quiet.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ev := logger.Info()
		if c.Request.URL.Path == "/api/poll" {
			ev = logger.Debug()
		}
		ev.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}

// TimeoutMiddleware bounds each request context so no storage call can hang
// a handler indefinitely.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
