package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/averho/chatgate/internal/api"
	"github.com/averho/chatgate/internal/config"
	"github.com/averho/chatgate/internal/factory"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		// Startup proceeds so the failure is observable over HTTP, but every
		// handshake will be refused until the secret is set
		logger.Error("JWT_SECRET is not set; all connections will be rejected")
	}

	app, err := factory.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		Verifier:       app.Verifier,
		Authz:          app.Authz,
		Gateway:        app.Gateway,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Addr = cfg.HTTPAddr
	server := api.NewServer(router, serverConfig, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("gateway started",
		slog.String("addr", server.Addr()),
		slog.Bool("fanout", cfg.FanoutEnabled()),
		slog.Bool("auto_join", cfg.AutoJoinRooms))

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		// Broker connections close before the transport server stops
		if err := app.Close(); err != nil {
			logger.Error("close error", slog.String("error", err.Error()))
		}
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("gateway stopped")
}
