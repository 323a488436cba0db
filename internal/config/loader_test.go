// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv(EnvStorePath, filepath.Join(t.TempDir(), "session.json"))

	cfg, err := NewLoader("").Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App != "user" {
		t.Errorf("App = %q, want user", cfg.App)
	}
	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.API.BaseURL, DefaultBaseURL)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("Timeout = %s, want 15s", cfg.API.Timeout)
	}
	if cfg.Seckill.PollInterval != time.Second || cfg.Seckill.MaxPolls != 30 {
		t.Errorf("poll settings = %s/%d, want 1s/30", cfg.Seckill.PollInterval, cfg.Seckill.MaxPolls)
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("Store.Backend = %q, want file", cfg.Store.Backend)
	}
}

func TestLoad_File(t *testing.T) {
	cfg, err := NewLoader(filepath.Join("testdata", "valid.yaml")).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App != "admin" {
		t.Errorf("App = %q, want admin", cfg.App)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("Timeout = %s, want 5s", cfg.API.Timeout)
	}
	if cfg.Dispatch.RateLimit != 20 || cfg.Dispatch.RateBurst != 5 {
		t.Errorf("Dispatch = %+v", cfg.Dispatch)
	}
	if cfg.Store.Redis.Addr != "localhost:6379" || cfg.Store.Redis.DB != 3 {
		t.Errorf("Redis = %+v", cfg.Store.Redis)
	}
	if cfg.Store.Path != "" {
		t.Errorf("Store.Path = %q, want empty for redis", cfg.Store.Path)
	}
	if cfg.Seckill.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %s", cfg.Seckill.PollInterval)
	}
	if cfg.Seckill.MaxPolls != 0 {
		t.Errorf("MaxPolls = %d, want explicit 0", cfg.Seckill.MaxPolls)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.SamplingRate != 0.5 {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv(EnvApp, "user")
	t.Setenv(EnvAPITimeout, "2s")
	t.Setenv(EnvMaxPolls, "7")
	t.Setenv(EnvTelemetryEnabled, "no")

	l := NewLoader(filepath.Join("testdata", "valid.yaml"))
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App != "user" {
		t.Errorf("App = %q, want env value user", cfg.App)
	}
	if cfg.API.Timeout != 2*time.Second {
		t.Errorf("Timeout = %s, want 2s", cfg.API.Timeout)
	}
	if cfg.Seckill.MaxPolls != 7 {
		t.Errorf("MaxPolls = %d, want 7", cfg.Seckill.MaxPolls)
	}
	if cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled should be overridden to false")
	}
	// File values survive where env is silent.
	if cfg.Dispatch.RateLimit != 20 {
		t.Errorf("RateLimit = %g, want 20 from file", cfg.Dispatch.RateLimit)
	}
	if _, ok := l.ConsumedEnvKeys[EnvRedisPassword]; !ok {
		t.Errorf("expected %s to be tracked as consumed", EnvRedisPassword)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv(EnvStorePath, filepath.Join(t.TempDir(), "session.json"))
	t.Setenv(EnvMaxPolls, "lots")
	t.Setenv(EnvAPITimeout, "soon")

	cfg, err := NewLoader("").Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seckill.MaxPolls != DefaultMaxPolls {
		t.Errorf("MaxPolls = %d, want default", cfg.Seckill.MaxPolls)
	}
	if cfg.API.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %s, want default", cfg.API.Timeout)
	}
}

func TestLoad_StrictFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		unknown bool
		substr  string
	}{
		{"unknown key", "unknown-key.yaml", true, "retries"},
		{"multiple documents", "multi-doc.yaml", false, "multiple documents"},
		{"wrong type", "invalid-type.yaml", false, "strict config parse error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(filepath.Join("testdata", tt.file)).Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrUnknownConfigField) != tt.unknown {
				t.Errorf("errors.Is(ErrUnknownConfigField) = %v, want %v (err: %v)", !tt.unknown, tt.unknown, err)
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q does not mention %q", err, tt.substr)
			}
		})
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvStoreBackend, "memory")
	cfg, err := NewLoader(filepath.Join("testdata", "empty.yaml")).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App != DefaultApp {
		t.Errorf("App = %q", cfg.App)
	}
}

func TestLoad_RejectsNonYAML(t *testing.T) {
	_, err := NewLoader("config.toml").Load()
	if err == nil || !strings.Contains(err.Error(), "only YAML") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestDefaultStorePath_PerApp(t *testing.T) {
	user := DefaultStorePath("user", "file")
	admin := DefaultStorePath("admin", "file")
	if user == admin {
		t.Fatalf("apps share a store path: %s", user)
	}
	if !strings.HasSuffix(DefaultStorePath("user", "sqlite"), ".db") {
		t.Error("sqlite path should end in .db")
	}
	if DefaultStorePath("user", "memory") != "" {
		t.Error("memory backend needs no path")
	}
}

func TestLoad_OverridesBeatEnvironment(t *testing.T) {
	t.Setenv(EnvApp, "user")
	t.Setenv(EnvStoreBackend, "file")
	t.Setenv(EnvStorePath, "")

	cfg, err := NewLoader("").WithOverrides(func(c *AppConfig) { c.App = "admin" }).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App != "admin" {
		t.Errorf("App = %q, want override admin", cfg.App)
	}
	if cfg.Store.Path != DefaultStorePath("admin", "file") {
		t.Errorf("Store.Path = %q, want the admin default", cfg.Store.Path)
	}
}
