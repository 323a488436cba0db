// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied before the file and the environment.
const (
	DefaultApp          = "user"
	DefaultBaseURL      = "http://localhost:8080/api"
	DefaultTimeout      = 15 * time.Second
	DefaultStoreBackend = "file"
	DefaultPollInterval = time.Second
	DefaultMaxPolls     = 30
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "json"
	DefaultExporter     = "grpc"
	DefaultSampling     = 1.0
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	overrides       []func(*AppConfig)
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath:      configPath,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// WithOverrides registers functions applied after the environment, before
// derived values and validation. Command-line flags use it.
func (l *Loader) WithOverrides(fns ...func(*AppConfig)) *Loader {
	l.overrides = append(l.overrides, fns...)
	return l
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: defaults -> strict file parse -> env -> overrides -> derived values -> Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	l.mergeEnvConfig(&cfg)
	for _, fn := range l.overrides {
		fn(&cfg)
	}

	cfg.App = strings.ToLower(strings.TrimSpace(cfg.App))
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath(cfg.App, cfg.Store.Backend)
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Defaults returns the configuration used when neither file nor environment
// set a value.
func Defaults() AppConfig {
	return AppConfig{
		App: DefaultApp,
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeout,
		},
		Store: StoreConfig{Backend: DefaultStoreBackend},
		Seckill: SeckillConfig{
			PollInterval: DefaultPollInterval,
			MaxPolls:     DefaultMaxPolls,
		},
		Log: LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Telemetry: TelemetryConfig{
			Exporter:     DefaultExporter,
			SamplingRate: DefaultSampling,
		},
	}
}

// DefaultStorePath places the session under the user config directory, one
// location per app so the two profiles never share storage.
func DefaultStorePath(app, backend string) string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	if app == "" {
		app = DefaultApp
	}
	base := filepath.Join(dir, "seckill", app+"-session")
	switch backend {
	case "sqlite":
		return base + ".db"
	case "badger":
		return base + ".badger"
	case "memory", "redis":
		return ""
	default:
		return base + ".json"
	}
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

// LoadFileConfig loads a YAML config file without applying defaults or env overrides.
func LoadFileConfig(path string) (*FileConfig, error) {
	return NewLoader(path).loadFile(path)
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) {
	if src.App != "" {
		dst.App = src.App
	}
	if src.API.BaseURL != "" {
		dst.API.BaseURL = expandEnv(src.API.BaseURL)
	}
	if src.API.Timeout != nil {
		dst.API.Timeout = *src.API.Timeout
	}
	if src.Dispatch.RateLimit != nil {
		dst.Dispatch.RateLimit = *src.Dispatch.RateLimit
	}
	if src.Dispatch.RateBurst != nil {
		dst.Dispatch.RateBurst = *src.Dispatch.RateBurst
	}
	if src.Store.Backend != "" {
		dst.Store.Backend = src.Store.Backend
	}
	if src.Store.Path != "" {
		dst.Store.Path = expandEnv(src.Store.Path)
	}
	if src.Store.Redis.Addr != "" {
		dst.Store.Redis.Addr = expandEnv(src.Store.Redis.Addr)
	}
	if src.Store.Redis.Password != "" {
		dst.Store.Redis.Password = expandEnv(src.Store.Redis.Password)
	}
	if src.Store.Redis.DB != nil {
		dst.Store.Redis.DB = *src.Store.Redis.DB
	}
	if src.Seckill.PollInterval != nil {
		dst.Seckill.PollInterval = *src.Seckill.PollInterval
	}
	if src.Seckill.MaxPolls != nil {
		dst.Seckill.MaxPolls = *src.Seckill.MaxPolls
	}
	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
	if src.Log.Format != "" {
		dst.Log.Format = src.Log.Format
	}
	if src.Telemetry.Enabled != nil {
		dst.Telemetry.Enabled = *src.Telemetry.Enabled
	}
	if src.Telemetry.Exporter != "" {
		dst.Telemetry.Exporter = src.Telemetry.Exporter
	}
	if src.Telemetry.Endpoint != "" {
		dst.Telemetry.Endpoint = expandEnv(src.Telemetry.Endpoint)
	}
	if src.Telemetry.SamplingRate != nil {
		dst.Telemetry.SamplingRate = *src.Telemetry.SamplingRate
	}
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.App = l.envString(EnvApp, cfg.App)

	cfg.API.BaseURL = l.envString(EnvAPIBaseURL, cfg.API.BaseURL)
	cfg.API.Timeout = l.envDuration(EnvAPITimeout, cfg.API.Timeout)

	cfg.Dispatch.RateLimit = l.envFloat(EnvRateLimit, cfg.Dispatch.RateLimit)
	cfg.Dispatch.RateBurst = l.envInt(EnvRateBurst, cfg.Dispatch.RateBurst)

	cfg.Store.Backend = l.envString(EnvStoreBackend, cfg.Store.Backend)
	cfg.Store.Path = l.envString(EnvStorePath, cfg.Store.Path)
	cfg.Store.Redis.Addr = l.envString(EnvRedisAddr, cfg.Store.Redis.Addr)
	cfg.Store.Redis.Password = l.envString(EnvRedisPassword, cfg.Store.Redis.Password)
	cfg.Store.Redis.DB = l.envInt(EnvRedisDB, cfg.Store.Redis.DB)

	cfg.Seckill.PollInterval = l.envDuration(EnvPollInterval, cfg.Seckill.PollInterval)
	cfg.Seckill.MaxPolls = l.envInt(EnvMaxPolls, cfg.Seckill.MaxPolls)

	cfg.Log.Level = l.envString(EnvLogLevel, cfg.Log.Level)
	cfg.Log.Format = l.envString(EnvLogFormat, cfg.Log.Format)

	cfg.Telemetry.Enabled = l.envBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvTelemetryExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvTelemetryEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvTelemetrySamplingRate, cfg.Telemetry.SamplingRate)
}
