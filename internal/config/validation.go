// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	platformnet "github.com/ManuGH/seckill/internal/platform/net"
	"github.com/rs/zerolog"
)

// Validate reports every invalid setting at once as a *ValidationError.
func Validate(cfg AppConfig) error {
	v := &ValidationError{}

	switch cfg.App {
	case "user", "admin":
	default:
		v.add("app", "must be user or admin, got %q", cfg.App)
	}

	if _, err := platformnet.ParseBaseURL(cfg.API.BaseURL); err != nil {
		v.add("api.base_url", "%v", err)
	}
	if cfg.API.Timeout <= 0 {
		v.add("api.timeout", "must be positive, got %s", cfg.API.Timeout)
	}

	if cfg.Dispatch.RateLimit < 0 {
		v.add("dispatch.rate_limit", "must not be negative, got %g", cfg.Dispatch.RateLimit)
	}
	if cfg.Dispatch.RateBurst < 0 {
		v.add("dispatch.rate_burst", "must not be negative, got %d", cfg.Dispatch.RateBurst)
	}

	switch cfg.Store.Backend {
	case "memory":
	case "file", "sqlite", "badger":
		if cfg.Store.Path == "" {
			v.add("store.path", "required for the %s backend", cfg.Store.Backend)
		}
	case "redis":
		if cfg.Store.Redis.Addr == "" {
			v.add("store.redis.addr", "required for the redis backend")
		}
		if cfg.Store.Redis.DB < 0 {
			v.add("store.redis.db", "must not be negative, got %d", cfg.Store.Redis.DB)
		}
	default:
		v.add("store.backend", "must be one of file, memory, sqlite, badger, redis, got %q", cfg.Store.Backend)
	}

	if cfg.Seckill.PollInterval <= 0 {
		v.add("seckill.poll_interval", "must be positive, got %s", cfg.Seckill.PollInterval)
	}
	if cfg.Seckill.MaxPolls < 0 {
		v.add("seckill.max_polls", "must not be negative (0 polls until cancelled), got %d", cfg.Seckill.MaxPolls)
	}

	if cfg.Log.Level != "" {
		if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
			v.add("log.level", "%v", err)
		}
	}
	switch cfg.Log.Format {
	case "", "json", "console":
	default:
		v.add("log.format", "must be json or console, got %q", cfg.Log.Format)
	}

	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.Exporter {
		case "grpc", "http":
		default:
			v.add("telemetry.exporter", "must be grpc or http, got %q", cfg.Telemetry.Exporter)
		}
		if cfg.Telemetry.Endpoint == "" {
			v.add("telemetry.endpoint", "required when telemetry is enabled")
		}
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		v.add("telemetry.sampling_rate", "must be within [0,1], got %g", cfg.Telemetry.SamplingRate)
	}

	if len(v.Problems) > 0 {
		return v
	}
	return nil
}
