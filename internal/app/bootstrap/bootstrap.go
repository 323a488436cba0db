// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bootstrap is the composition root: it turns a configuration into a
// wired client (credential store, router, dispatcher, API clients).
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ManuGH/seckill/internal/api"
	"github.com/ManuGH/seckill/internal/audit"
	"github.com/ManuGH/seckill/internal/config"
	"github.com/ManuGH/seckill/internal/dispatch"
	xglog "github.com/ManuGH/seckill/internal/log"
	"github.com/ManuGH/seckill/internal/platform/httpx"
	"github.com/ManuGH/seckill/internal/profile"
	"github.com/ManuGH/seckill/internal/router"
	"github.com/ManuGH/seckill/internal/seckill"
	"github.com/ManuGH/seckill/internal/session"
	"github.com/ManuGH/seckill/internal/telemetry"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Options are the inputs that do not come from the configuration.
type Options struct {
	Version string
	// Overrides adjust the loaded configuration (command-line flags).
	Overrides []func(*config.AppConfig)
	// Notifier receives user-facing messages in addition to the log.
	Notifier dispatch.Notifier
	// HTTPClient replaces the configured client; used by tests.
	HTTPClient *http.Client
	// Backend replaces the configured session backend; used by tests.
	Backend session.Backend
	Logger  *zerolog.Logger
}

// Container is the wired client.
type Container struct {
	Config     config.AppConfig
	Profile    profile.Profile
	Logger     zerolog.Logger
	Store      *session.Store
	Router     *router.Router
	Dispatcher *dispatch.Dispatcher
	API        *api.Client
	Audit      *audit.Logger

	telemetry *telemetry.Provider
}

// WireServices loads the configuration from configPath (may be empty), configures
// logging and builds the container.
func WireServices(ctx context.Context, configPath string, opts Options) (*Container, error) {
	if ctx == nil {
		return nil, fmt.Errorf("wire services context is nil")
	}
	cfg, err := config.NewLoader(strings.TrimSpace(configPath)).WithOverrides(opts.Overrides...).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "seckill",
		Version: opts.Version,
	})
	logger := xglog.WithComponent("bootstrap")
	source := "env+defaults"
	if configPath != "" {
		source = "file"
	}
	logger.Debug().
		Str(xglog.FieldEvent, "config.loaded").
		Str("source", source).
		Str("path", configPath).
		Str(xglog.FieldApp, cfg.App).
		Msg("loaded configuration")

	return Wire(ctx, cfg, opts)
}

// Wire builds the container from an already validated configuration.
func Wire(ctx context.Context, cfg config.AppConfig, opts Options) (*Container, error) {
	p, err := profile.ByName(cfg.App)
	if err != nil {
		return nil, err
	}
	logger := xglog.WithComponent("client")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	logger = logger.With().Str(xglog.FieldApp, p.Name).Logger()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "seckill-" + p.Name,
		ServiceVersion: opts.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	backend := opts.Backend
	if backend == nil {
		backend, err = session.OpenBackend(ctx, session.BackendConfig{
			Kind: cfg.Store.Backend,
			Path: cfg.Store.Path,
			Redis: session.RedisConfig{
				Addr:     cfg.Store.Redis.Addr,
				Password: cfg.Store.Redis.Password,
				DB:       cfg.Store.Redis.DB,
			},
		})
		if err != nil {
			_ = tp.Shutdown(ctx)
			return nil, fmt.Errorf("open session backend: %w", err)
		}
	}
	store, err := session.Open(ctx, backend, p, logger.With().Str(xglog.FieldComponent, "session").Logger())
	if err != nil {
		_ = backend.Close()
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("open session: %w", err)
	}

	notifier := dispatch.Fanout{dispatch.LogNotifier{Logger: logger}}
	if opts.Notifier != nil {
		notifier = append(notifier, opts.Notifier)
	}

	r, err := router.New(p, router.RoutesFor(p), store, notifier, logger.With().Str(xglog.FieldComponent, "router").Logger())
	if err != nil {
		_ = store.Close()
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	client := opts.HTTPClient
	if client == nil && cfg.Telemetry.Enabled {
		client = httpx.NewTracedClient(cfg.API.Timeout)
	}
	dlog := logger.With().Str(xglog.FieldComponent, "dispatch").Logger()
	d, err := dispatch.New(store, dispatch.Options{
		BaseURL:        cfg.API.BaseURL,
		HTTPClient:     client,
		Timeout:        cfg.API.Timeout,
		RateLimit:      rate.Limit(cfg.Dispatch.RateLimit),
		RateLimitBurst: cfg.Dispatch.RateBurst,
		Profile:        p,
		Notifier:       notifier,
		Navigator:      r,
		Logger:         &dlog,
	})
	if err != nil {
		_ = store.Close()
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	auditLog := audit.NewLoggerWith(logger.With().Str(xglog.FieldComponent, "audit").Logger())
	return &Container{
		Config:     cfg,
		Profile:    p,
		Logger:     logger,
		Store:      store,
		Router:     r,
		Dispatcher: d,
		API:        api.New(d, store, api.WithAudit(auditLog, p.Name)),
		Audit:      auditLog,
		telemetry:  tp,
	}, nil
}

// NewAttempt starts a purchase attempt for one seckill offer.
func (c *Container) NewAttempt(seckillGoodsID int64) (*seckill.Attempt, error) {
	logger := c.Logger.With().Str(xglog.FieldComponent, "seckill").Logger()
	return seckill.New(seckillGoodsID, seckill.FromClient(c.API), seckill.Options{Logger: &logger})
}

// PollOptions returns the configured result polling bounds.
func (c *Container) PollOptions() seckill.PollOptions {
	return seckill.PollOptions{
		Interval:    c.Config.Seckill.PollInterval,
		MaxAttempts: c.Config.Seckill.MaxPolls,
	}
}

// Close releases the session backend and flushes traces.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if err := c.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close session store: %w", err))
	}
	if c.telemetry != nil {
		if err := c.telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
	}
	return errors.Join(errs...)
}
