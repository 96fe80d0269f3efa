package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/pollchat/pollchat-server/internal/app"
	"github.com/pollchat/pollchat-server/internal/config"
	"github.com/pollchat/pollchat-server/internal/log"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	bootstrap := log.New("info")

	cfg, resolvedPath, err := config.Load(bootstrap, configPath)
	if err != nil {
		bootstrap.Fatal().Err(err).Str("path", resolvedPath).Msg("failed to load config")
	}

	logger := log.New(cfg.LogLevel)
	logger.Info().Str("config", resolvedPath).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting pollchat server")
	if err := application.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("server stopped")
}
