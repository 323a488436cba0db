// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"testing"
	"time"
)

func validConfig() AppConfig {
	cfg := Defaults()
	cfg.Store.Path = "/tmp/seckill/session.json"
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"app", func(c *AppConfig) { c.App = "shop" }, "app"},
		{"base url scheme", func(c *AppConfig) { c.API.BaseURL = "ftp://x/api" }, "api.base_url"},
		{"base url empty", func(c *AppConfig) { c.API.BaseURL = "" }, "api.base_url"},
		{"timeout", func(c *AppConfig) { c.API.Timeout = 0 }, "api.timeout"},
		{"rate limit", func(c *AppConfig) { c.Dispatch.RateLimit = -1 }, "dispatch.rate_limit"},
		{"backend", func(c *AppConfig) { c.Store.Backend = "etcd" }, "store.backend"},
		{"file path", func(c *AppConfig) { c.Store.Path = "" }, "store.path"},
		{"redis addr", func(c *AppConfig) { c.Store.Backend = "redis" }, "store.redis.addr"},
		{"poll interval", func(c *AppConfig) { c.Seckill.PollInterval = -time.Second }, "seckill.poll_interval"},
		{"max polls", func(c *AppConfig) { c.Seckill.MaxPolls = -1 }, "seckill.max_polls"},
		{"log level", func(c *AppConfig) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *AppConfig) { c.Log.Format = "xml" }, "log.format"},
		{"exporter", func(c *AppConfig) { c.Telemetry.Enabled = true; c.Telemetry.Endpoint = "x"; c.Telemetry.Exporter = "zipkin" }, "telemetry.exporter"},
		{"endpoint", func(c *AppConfig) { c.Telemetry.Enabled = true }, "telemetry.endpoint"},
		{"sampling", func(c *AppConfig) { c.Telemetry.SamplingRate = 2 }, "telemetry.sampling_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if len(verr.Problems) != 1 || verr.Problems[0].Field != tt.field {
				t.Errorf("problems = %+v, want exactly %s", verr.Problems, tt.field)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.App = ""
	cfg.API.Timeout = 0
	cfg.Seckill.PollInterval = 0

	var verr *ValidationError
	if !errors.As(Validate(cfg), &verr) {
		t.Fatal("expected *ValidationError")
	}
	if len(verr.Problems) != 3 {
		t.Errorf("got %d problems, want 3: %v", len(verr.Problems), verr)
	}
}
