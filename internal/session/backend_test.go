// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManuGH/seckill/internal/profile"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backendsUnderTest(t *testing.T) map[string]func(t *testing.T) Backend {
	t.Helper()
	return map[string]func(t *testing.T) Backend{
		KindMemory: func(t *testing.T) Backend { return NewMemoryBackend() },
		KindFile: func(t *testing.T) Backend {
			return NewFileBackend(filepath.Join(t.TempDir(), "nested", "session.json"))
		},
		KindSQLite: func(t *testing.T) Backend {
			b, err := OpenSQLiteBackend(context.Background(), filepath.Join(t.TempDir(), "session.db"))
			require.NoError(t, err)
			return b
		},
		KindBadger: func(t *testing.T) Backend {
			b, err := OpenBadgerBackend("")
			require.NoError(t, err)
			return b
		},
		KindRedis: func(t *testing.T) Backend {
			mr := miniredis.RunT(t)
			return NewRedisBackend(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
		},
	}
}

func TestBackends_Contract(t *testing.T) {
	for name, factory := range backendsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)
			t.Cleanup(func() { _ = b.Close() })

			got, err := b.Load(ctx, []string{"a", "b"})
			require.NoError(t, err)
			assert.Empty(t, got, "fresh backend must be empty")

			require.NoError(t, b.Save(ctx, map[string]string{"a": "1", "b": "", "c": "3"}))

			got, err = b.Load(ctx, []string{"a", "b", "missing"})
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"a": "1", "b": ""}, got)

			require.NoError(t, b.Save(ctx, map[string]string{"a": "updated"}))
			got, err = b.Load(ctx, []string{"a"})
			require.NoError(t, err)
			assert.Equal(t, "updated", got["a"])

			require.NoError(t, b.Delete(ctx, []string{"a", "b", "never-set"}))
			got, err = b.Load(ctx, []string{"a", "b", "c"})
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"c": "3"}, got)

			require.NoError(t, b.Delete(ctx, []string{"a"}), "delete of absent keys is idempotent")
		})
	}
}

func TestBackends_StoreRoundTrip(t *testing.T) {
	for name, factory := range backendsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)
			t.Cleanup(func() { _ = b.Close() })

			s, err := Open(ctx, b, profile.Admin, zerolog.Nop())
			require.NoError(t, err)

			want := Session{Token: "abc", UserID: "1", Username: "admin", Nickname: "Boss", Role: 1}
			require.NoError(t, s.SetUser(ctx, want))

			again, err := Open(ctx, b, profile.Admin, zerolog.Nop())
			require.NoError(t, err)
			assert.Equal(t, want, again.Snapshot())

			require.NoError(t, again.ClearUser(ctx))
			third, err := Open(ctx, b, profile.Admin, zerolog.Nop())
			require.NoError(t, err)
			assert.True(t, third.Snapshot().IsZero())
		})
	}
}

func TestFileBackend_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	require.NoError(t, NewFileBackend(path).Save(ctx, map[string]string{"seckill_token": "abc"}))

	got, err := NewFileBackend(path).Load(ctx, []string{"seckill_token"})
	require.NoError(t, err)
	assert.Equal(t, "abc", got["seckill_token"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileBackend_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not-json"), 0o600))

	_, err := NewFileBackend(path).Load(context.Background(), []string{"x"})
	require.Error(t, err)
}

func TestOpenBackend_Kinds(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := OpenBackend(ctx, BackendConfig{Kind: "", Path: filepath.Join(dir, "s.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, b)

	b, err = OpenBackend(ctx, BackendConfig{Kind: "MEMORY"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	b, err = OpenBackend(ctx, BackendConfig{Kind: KindSQLite, Path: filepath.Join(dir, "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteBackend{}, b)
	require.NoError(t, b.Close())

	b, err = OpenBackend(ctx, BackendConfig{Kind: KindBadger, Path: filepath.Join(dir, "badger")})
	require.NoError(t, err)
	assert.IsType(t, &BadgerBackend{}, b)
	require.NoError(t, b.Close())

	mr := miniredis.RunT(t)
	b, err = OpenBackend(ctx, BackendConfig{Kind: KindRedis, Redis: RedisConfig{Addr: mr.Addr()}})
	require.NoError(t, err)
	assert.IsType(t, &RedisBackend{}, b)
	require.NoError(t, b.Close())
}

func TestOpenBackend_Rejects(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		cfg     BackendConfig
		wantErr string
	}{
		{name: "unknown", cfg: BackendConfig{Kind: "bolt"}, wantErr: "unknown store backend"},
		{name: "file without path", cfg: BackendConfig{Kind: KindFile}, wantErr: "requires a path"},
		{name: "sqlite without path", cfg: BackendConfig{Kind: KindSQLite}, wantErr: "requires a path"},
		{name: "badger without dir", cfg: BackendConfig{Kind: KindBadger}, wantErr: "requires a directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := OpenBackend(ctx, tt.cfg)
			require.Error(t, err)
			assert.Nil(t, b)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q", err)
		})
	}
}
