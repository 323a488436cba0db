// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session is the credential store shared by the dispatcher, the route guard
// and the CLI. The in-memory session is mirrored to a durable Backend under
// profile-namespaced keys.
package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/ManuGH/seckill/internal/profile"
	"github.com/rs/zerolog"
)

// RoleAdmin is the role value granting access to the admin console.
const RoleAdmin = 1

// Field names of the persisted session.
const (
	fieldToken    = "token"
	fieldUserID   = "userId"
	fieldUsername = "username"
	fieldNickname = "nickname"
	fieldRole     = "role"
)

// Session is the current identity. An empty Token means logged out.
type Session struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Role     int    `json:"role"`
}

// IsZero reports whether every field is empty.
func (s Session) IsZero() bool {
	return s == Session{}
}

// Store is the single source of truth for the current Session.
type Store struct {
	mu      sync.RWMutex
	cur     Session
	profile profile.Profile
	backend Backend
	logger  zerolog.Logger
}

// Open creates a store for the given profile and initialises it from the backend.
// Missing keys yield zero values.
func Open(ctx context.Context, backend Backend, p profile.Profile, logger zerolog.Logger) (*Store, error) {
	s := &Store{profile: p, backend: backend, logger: logger}

	values, err := backend.Load(ctx, s.keys())
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}
	s.cur = Session{
		Token:    values[p.Key(fieldToken)],
		UserID:   values[p.Key(fieldUserID)],
		Username: values[p.Key(fieldUsername)],
		Nickname: values[p.Key(fieldNickname)],
	}
	if p.TracksRole {
		// Unparsable roles degrade to a normal user.
		if role, err := strconv.Atoi(values[p.Key(fieldRole)]); err == nil {
			s.cur.Role = role
		}
	}
	return s, nil
}

// Profile returns the application profile the store is namespaced for.
func (s *Store) Profile() profile.Profile {
	return s.profile
}

// SetUser replaces the whole session. The durable copy is written first; the
// in-memory copy only changes once the backend accepted every field.
func (s *Store) SetUser(ctx context.Context, sess Session) error {
	if !s.profile.TracksRole {
		sess.Role = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Save(ctx, s.encode(sess)); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	s.cur = sess
	s.logger.Debug().
		Str("event", "session.set").
		Str("user_id", sess.UserID).
		Int("role", sess.Role).
		Msg("session stored")
	return nil
}

// ClearUser resets every field and deletes every durable key. Clearing an empty
// store is a no-op that still succeeds. The in-memory session is dropped even
// when the backend delete fails; the error is still returned.
func (s *Store) ClearUser(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasSet := !s.cur.IsZero()
	s.cur = Session{}
	if err := s.backend.Delete(ctx, s.keys()); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	if wasSet {
		s.logger.Debug().Str("event", "session.cleared").Msg("session cleared")
	}
	return nil
}

// IsLoggedIn reports whether a non-empty token is held.
func (s *Store) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Token != ""
}

// IsAdmin reports whether the session carries the admin role. Always false for
// profiles that do not track roles.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.TracksRole && s.cur.Role == RoleAdmin
}

// Token returns the bearer credential, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Token
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) keys() []string {
	keys := []string{
		s.profile.Key(fieldToken),
		s.profile.Key(fieldUserID),
		s.profile.Key(fieldUsername),
		s.profile.Key(fieldNickname),
	}
	if s.profile.TracksRole {
		keys = append(keys, s.profile.Key(fieldRole))
	}
	return keys
}

func (s *Store) encode(sess Session) map[string]string {
	values := map[string]string{
		s.profile.Key(fieldToken):    sess.Token,
		s.profile.Key(fieldUserID):   sess.UserID,
		s.profile.Key(fieldUsername): sess.Username,
		s.profile.Key(fieldNickname): sess.Nickname,
	}
	if s.profile.TracksRole {
		values[s.profile.Key(fieldRole)] = strconv.Itoa(sess.Role)
	}
	return values
}
