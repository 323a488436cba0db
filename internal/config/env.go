// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/seckill/internal/log"
	"github.com/rs/zerolog"
)

// Environment keys, highest precedence.
const (
	EnvApp                   = "SECKILL_APP"
	EnvAPIBaseURL            = "SECKILL_API_BASE_URL"
	EnvAPITimeout            = "SECKILL_API_TIMEOUT"
	EnvRateLimit             = "SECKILL_RATE_LIMIT"
	EnvRateBurst             = "SECKILL_RATE_BURST"
	EnvStoreBackend          = "SECKILL_STORE_BACKEND"
	EnvStorePath             = "SECKILL_STORE_PATH"
	EnvRedisAddr             = "SECKILL_REDIS_ADDR"
	EnvRedisPassword         = "SECKILL_REDIS_PASSWORD"
	EnvRedisDB               = "SECKILL_REDIS_DB"
	EnvPollInterval          = "SECKILL_POLL_INTERVAL"
	EnvMaxPolls              = "SECKILL_MAX_POLLS"
	EnvLogLevel              = "SECKILL_LOG_LEVEL"
	EnvLogFormat             = "SECKILL_LOG_FORMAT"
	EnvTelemetryEnabled      = "SECKILL_TELEMETRY_ENABLED"
	EnvTelemetryExporter     = "SECKILL_TELEMETRY_EXPORTER"
	EnvTelemetryEndpoint     = "SECKILL_TELEMETRY_ENDPOINT"
	EnvTelemetrySamplingRate = "SECKILL_TELEMETRY_SAMPLING_RATE"
)

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	switch {
	case !exists:
		logDefault(logger, key, "using default value")
		return defaultValue
	case value == "":
		logDefault(logger, key, "using default value (environment variable is empty)")
		return defaultValue
	case isSensitiveKey(key):
		logger.Debug().
			Str("key", key).
			Str("source", "environment").
			Bool("sensitive", true).
			Msg("using environment variable")
	default:
		logger.Debug().
			Str("key", key).
			Str("value", value).
			Str("source", "environment").
			Msg("using environment variable")
	}
	return value
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, "integer", strconv.Atoi)
}

// ParseDuration reads a duration from environment variable in Go duration format (e.g. "5s").
// It falls back to default on parse errors or empty variables and logs the choice.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, "duration", time.ParseDuration)
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseEnv(key, defaultValue, "float", func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, "boolean", func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		default:
			return false, strconv.ErrSyntax
		}
	})
}

func parseEnv[T any](key string, defaultValue T, kind string, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok {
		logDefault(logger, key, "using default value")
		return defaultValue
	}
	if v == "" {
		logDefault(logger, key, "using default value (environment variable is empty)")
		return defaultValue
	}
	parsed, err := parse(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Interface("default", defaultValue).
			Msgf("invalid %s in environment variable, using default", kind)
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Interface("value", parsed).
		Str("source", "environment").
		Msg("using environment variable")
	return parsed
}

func logDefault(logger zerolog.Logger, key, msg string) {
	logger.Debug().
		Str("key", key).
		Str("source", "default").
		Msg(msg)
}

// expandEnv expands environment variables in the format ${VAR} or $VAR
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}
