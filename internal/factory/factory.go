package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/averho/chatgate/internal/auth"
	"github.com/averho/chatgate/internal/authz"
	"github.com/averho/chatgate/internal/config"
	"github.com/averho/chatgate/internal/gateway"
	"github.com/averho/chatgate/internal/storage"
	"github.com/averho/chatgate/internal/storage/memory"
	"github.com/averho/chatgate/internal/storage/postgres"
	redisstore "github.com/averho/chatgate/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypePostgres = "postgres"
	StorageTypeRedis    = "redis"
)

// App contains all wired application components
type App struct {
	Store    storage.MembershipStore
	Verifier *auth.Verifier
	Authz    *authz.Service
	Gateway  *gateway.Gateway

	pg *postgres.Storage
	rd *redisstore.Storage
}

// New creates an application with all dependencies wired from the given
// configuration
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	app := &App{}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}
	switch storageType {
	case StorageTypeMemory:
		app.Store = memory.New()
	case StorageTypePostgres:
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		app.pg = pg
		app.Store = pg
	case StorageTypeRedis:
		redisCfg := redisstore.DefaultConfig()
		if cfg.RedisURL != "" {
			redisCfg.URL = cfg.RedisURL
		}
		rd, err := redisstore.New(redisCfg)
		if err != nil {
			return nil, err
		}
		app.rd = rd
		app.Store = rd
	default:
		return nil, errors.New("invalid STORAGE_TYPE: must be 'memory', 'postgres' or 'redis'")
	}

	app.Verifier = auth.NewVerifier(cfg.JWTSecret, logger)
	app.Authz = authz.New(app.Store, logger)

	gw, err := gateway.New(gateway.Config{
		AutoJoinRooms:  cfg.AutoJoinRooms,
		AllowedOrigins: cfg.AllowedOrigins,
		RedisURL:       cfg.RedisURL,
	}, app.Verifier, app.Store, logger)
	if err != nil {
		app.closeStores()
		return nil, err
	}
	app.Gateway = gw

	return app, nil
}

// Close releases everything the factory opened: the gateway (and through it
// the fanout broker connections) first, then the participant store
func (a *App) Close() error {
	err := a.Gateway.Close()
	a.closeStores()
	return err
}

func (a *App) closeStores() {
	if a.pg != nil {
		a.pg.Close()
	}
	if a.rd != nil {
		_ = a.rd.Close()
	}
}
