// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the effective configuration.
type AppConfig struct {
	// App selects the client profile: "user" or "admin".
	App       string          `yaml:"app"`
	API       APIConfig       `yaml:"api"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Store     StoreConfig     `yaml:"store"`
	Seckill   SeckillConfig   `yaml:"seckill"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// APIConfig points the dispatcher at the remote API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DispatchConfig limits outbound request rate. RateLimit 0 disables limiting.
type DispatchConfig struct {
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// StoreConfig selects the credential store backend.
type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig is used by the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SeckillConfig bounds result polling.
type SeckillConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// FileConfig is the YAML file shape. Pointers distinguish "unset" from zero
// values that should override defaults.
type FileConfig struct {
	App       string             `yaml:"app,omitempty"`
	API       FileAPIConfig      `yaml:"api,omitempty"`
	Dispatch  FileDispatchConfig `yaml:"dispatch,omitempty"`
	Store     FileStoreConfig    `yaml:"store,omitempty"`
	Seckill   FileSeckillConfig  `yaml:"seckill,omitempty"`
	Log       LogConfig          `yaml:"log,omitempty"`
	Telemetry FileTelemetry      `yaml:"telemetry,omitempty"`
}

type FileAPIConfig struct {
	BaseURL string         `yaml:"base_url,omitempty"`
	Timeout *time.Duration `yaml:"timeout,omitempty"`
}

type FileDispatchConfig struct {
	RateLimit *float64 `yaml:"rate_limit,omitempty"`
	RateBurst *int     `yaml:"rate_burst,omitempty"`
}

type FileStoreConfig struct {
	Backend string          `yaml:"backend,omitempty"`
	Path    string          `yaml:"path,omitempty"`
	Redis   FileRedisConfig `yaml:"redis,omitempty"`
}

type FileRedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       *int   `yaml:"db,omitempty"`
}

type FileSeckillConfig struct {
	PollInterval *time.Duration `yaml:"poll_interval,omitempty"`
	MaxPolls     *int           `yaml:"max_polls,omitempty"`
}

type FileTelemetry struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"sampling_rate,omitempty"`
}
