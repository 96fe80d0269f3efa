package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pollchat/pollchat-server/internal/auth"
	"github.com/pollchat/pollchat-server/internal/config"
	"github.com/pollchat/pollchat-server/internal/core"
)

// NewServer builds the HTTP server with all routes registered.
func NewServer(chat *core.Service, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(logger), TimeoutMiddleware(cfg.RequestTimeout))

	r.GET("/health", healthHandler)

	rooms := NewRoomHandlers(chat, authService, logger, cfg.SendRateLimit)
	admin := NewAdminHandlers(chat, logger)
	accounts := NewAccountHandlers(authService, logger)

	api := r.Group("/api")
	{
		api.POST("/join", rooms.Join)
		api.GET("/poll", rooms.Poll)
		api.POST("/send", rooms.Send)
		api.POST("/clear", rooms.Clear)
		api.POST("/leave", rooms.Leave)
		api.POST("/typing", rooms.Typing)
		api.POST("/react", rooms.React)
		api.POST("/read", rooms.Read)
		api.POST("/pin", rooms.Pin)
		api.POST("/unpin", rooms.Unpin)

		api.POST("/elevate", admin.Elevate)
		api.POST("/ban", admin.Ban)
		api.POST("/unban", admin.Unban)
		api.POST("/unban-all", admin.UnbanAll)
		api.GET("/bans", admin.ListBans)
		api.POST("/messages/delete", admin.DeleteMessages)

		api.POST("/register", accounts.Register)
		api.POST("/login", accounts.Login)

		authed := api.Group("")
		authed.Use(AuthMiddleware(authService, logger))
		{
			authed.POST("/logout", accounts.Logout)
			authed.GET("/profile", accounts.GetProfile)
			authed.PUT("/profile", accounts.UpdateProfile)
		}
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
