// File: internal/client/client.go
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"cafe_client/internal/auth"
	"cafe_client/internal/backend"
	"cafe_client/internal/config"
	"cafe_client/internal/idp"
	"cafe_client/internal/jobs"
	"cafe_client/internal/navigation"
	"cafe_client/internal/platform/database"
	"cafe_client/internal/platform/metrics"
	"cafe_client/internal/screens"
	"cafe_client/internal/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is the assembled client core: one orchestrator, the clients it
// drives and the screens that drive it.
type Client struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Store      *session.Store
	IDP        *idp.Client
	Backend    *backend.Client
	Auth       *auth.Orchestrator
	Router     *navigation.Router
	Login      *screens.LoginScreen
	Register   *screens.RegisterScreen
	Revalidate *jobs.SessionRevalidateJob

	closers []func() error
}

// New wires the client core from configuration. The orchestrator is returned
// in the Loading state; call Start to restore the session.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	c.Metrics = metrics.New(c.Registry)

	kv, closeKV, err := NewKeyValue(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closeKV)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	c.Store = session.NewStore(kv, logger, c.Metrics)
	c.IDP = idp.NewClient(cfg, httpClient, logger, c.Metrics)
	c.Backend = backend.NewClient(cfg, httpClient, logger)
	c.Auth = auth.NewOrchestrator(c.IDP, c.Backend, c.Store, logger, c.Metrics)
	c.Router = navigation.NewRouter(c.Auth, logger)
	c.Login = screens.NewLoginScreen(c.Auth, c.Router, logger)
	c.Register = screens.NewRegisterScreen(c.Auth, c.Router, logger)
	c.Revalidate = jobs.NewSessionRevalidateJob(c.Auth, logger, cfg)

	logger.Debug("Client core assembled",
		zap.String("store", cfg.SessionStoreDriver),
		zap.String("api", cfg.APIURL),
		zap.Int("credentials", len(cfg.CredentialSets())),
	)
	return c, nil
}

// Start restores the stored session and returns where the app should open.
func (c *Client) Start(ctx context.Context) navigation.Destination {
	state := c.Auth.Restore(ctx)
	return c.Router.Next(ctx, state)
}

// Close releases the session backend.
func (c *Client) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// NewKeyValue opens the session backend selected by SESSION_STORE_DRIVER.
func NewKeyValue(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.KeyValue, func() error, error) {
	noop := func() error { return nil }

	switch cfg.SessionStoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("Using in-memory session store; sessions will not survive a restart")
		return session.NewMemoryKV(), noop, nil

	case config.StoreDriverSQLite:
		if dir := filepath.Dir(cfg.SessionDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, nil, fmt.Errorf("create session directory %s: %w", dir, err)
			}
		}
		db, err := database.NewSQLite(cfg.SessionDBPath, "silent")
		if err != nil {
			return nil, nil, fmt.Errorf("open session database: %w", err)
		}
		kv, err := session.NewGormKV(db)
		if err != nil {
			database.CloseGORMDB(db)
			return nil, nil, fmt.Errorf("prepare session table: %w", err)
		}
		return kv, func() error { database.CloseGORMDB(db); return nil }, nil

	case config.StoreDriverRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return session.NewRedisKV(rdb, cfg.SessionKeyPrefix), rdb.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown session store driver %q", cfg.SessionStoreDriver)
	}
}
