// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Backend is the durable key-value storage behind a Store. Save and Delete apply
// all keys or none.
type Backend interface {
	// Load returns the values present for keys. Absent keys are omitted.
	Load(ctx context.Context, keys []string) (map[string]string, error)
	Save(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys []string) error
	Close() error
}

// Backend kinds accepted by OpenBackend.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindBadger = "badger"
	KindRedis  = "redis"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
}

// BackendConfig selects and parameterises a Backend.
type BackendConfig struct {
	Kind  string
	Path  string // file path (file, sqlite) or directory (badger)
	Redis RedisConfig
}

// OpenBackend creates a Backend based on the configuration. An empty kind defaults
// to the JSON file backend.
func OpenBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	if kind == "" {
		kind = KindFile
	}

	switch kind {
	case KindMemory:
		return NewMemoryBackend(), nil
	case KindFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file backend requires a path")
		}
		return NewFileBackend(filepath.Clean(cfg.Path)), nil
	case KindSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite backend requires a path")
		}
		b, err := OpenSQLiteBackend(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindBadger:
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger backend requires a directory")
		}
		b, err := OpenBadgerBackend(cfg.Path)
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindRedis:
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		b, err := OpenRedisBackend(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Kind)
	}
}
