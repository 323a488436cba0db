// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package router is the navigation shell around the route guard. It resolves
// targets against a route table, runs guard.Decide before committing, applies
// the decision's effects and follows redirects.
package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/ManuGH/seckill/internal/guard"
	"github.com/ManuGH/seckill/internal/log"
	"github.com/ManuGH/seckill/internal/metrics"
	"github.com/ManuGH/seckill/internal/profile"
	"github.com/ManuGH/seckill/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxRedirects = 5

var (
	ErrUnknownRoute = errors.New("router: unknown route")
	ErrMissingParam = errors.New("router: missing route parameter")
	ErrNoMatch      = errors.New("router: no route matches path")
	ErrRedirectLoop = errors.New("router: too many redirects")
)

// Store is the part of the credential store the router needs.
type Store interface {
	Snapshot() session.Session
	ClearUser(ctx context.Context) error
}

// Notifier shows a user-facing message.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Target names a route with its parameters and query.
type Target struct {
	Name   string
	Params map[string]string
	Query  map[string]string
}

// Location is a committed navigation.
type Location struct {
	Route    guard.Route
	FullPath string
	Params   map[string]string
	Query    map[string]string
	Title    string
	// RedirectedFrom is the full path originally requested when the guard
	// redirected the navigation; empty otherwise.
	RedirectedFrom string
	// Reason is the guard's reason for the last redirect.
	Reason string
}

// Redirected reports whether the guard changed the destination.
func (l Location) Redirected() bool {
	return l.RedirectedFrom != ""
}

// Router owns the route table and the current location.
type Router struct {
	profile  profile.Profile
	store    Store
	notifier Notifier
	logger   zerolog.Logger

	byName    map[string]guard.Route
	byPattern map[string]guard.Route
	mux       *chi.Mux

	mu      sync.Mutex
	current Location
	history []Location
}

// New builds a router over a route table. Paths use chi patterns ("/goods/{id}").
// The table must contain the profile's login and landing routes.
func New(p profile.Profile, table []guard.Route, store Store, notifier Notifier, logger zerolog.Logger) (*Router, error) {
	r := &Router{
		profile:  p,
		store:    store,
		notifier: notifier,
		logger:   logger.With().Str(log.FieldComponent, "router").Str(log.FieldApp, p.Name).Logger(),
		byName:    make(map[string]guard.Route, len(table)),
		byPattern: make(map[string]guard.Route, len(table)),
		mux:       chi.NewRouter(),
	}
	for _, rt := range table {
		if _, dup := r.byName[rt.Name]; dup {
			return nil, fmt.Errorf("router: duplicate route name %q", rt.Name)
		}
		if !strings.HasPrefix(rt.Path, "/") {
			return nil, fmt.Errorf("router: route %q path %q must start with /", rt.Name, rt.Path)
		}
		if _, dup := r.byPattern[rt.Path]; dup {
			return nil, fmt.Errorf("router: duplicate route path %q", rt.Path)
		}
		r.byName[rt.Name] = rt
		r.byPattern[rt.Path] = rt
		r.mux.Get(rt.Path, http.NotFound)
	}
	for _, name := range []string{p.LoginRoute, p.LandingRoute} {
		if _, ok := r.byName[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRoute, name)
		}
	}
	return r, nil
}

// Navigate moves to a parameterless named route. It implements dispatch.Navigator.
func (r *Router) Navigate(ctx context.Context, name string) error {
	_, err := r.Push(ctx, Target{Name: name})
	return err
}

// Push navigates to target, following guard redirects.
func (r *Router) Push(ctx context.Context, target Target) (Location, error) {
	var redirectedFrom, reason string
	for hop := 0; hop <= maxRedirects; hop++ {
		route, ok := r.byName[target.Name]
		if !ok {
			return Location{}, fmt.Errorf("%w: %q", ErrUnknownRoute, target.Name)
		}
		fullPath, err := buildPath(route.Path, target.Params, target.Query)
		if err != nil {
			return Location{}, err
		}

		decision := guard.Decide(r.profile, route, fullPath, r.store.Snapshot())
		if decision.Allowed() {
			loc := Location{
				Route:          route,
				FullPath:       fullPath,
				Params:         target.Params,
				Query:          target.Query,
				Title:          decision.Title,
				RedirectedFrom: redirectedFrom,
				Reason:         reason,
			}
			r.commit(loc)
			return loc, nil
		}

		r.apply(ctx, decision)
		if redirectedFrom == "" {
			redirectedFrom = fullPath
		}
		reason = decision.Reason
		r.logger.Debug().
			Str(log.FieldEvent, "router.redirect").
			Str(log.FieldPath, fullPath).
			Str("to", decision.Redirect.Name).
			Str("reason", decision.Reason).
			Msg("navigation redirected")
		target = Target{Name: decision.Redirect.Name, Query: decision.Redirect.Query}
	}
	return Location{}, fmt.Errorf("%w: last target %q", ErrRedirectLoop, target.Name)
}

// PushPath resolves a full path ("/goods/7?x=1") against the table and navigates to it.
func (r *Router) PushPath(ctx context.Context, fullPath string) (Location, error) {
	target, err := r.Resolve(fullPath)
	if err != nil {
		return Location{}, err
	}
	return r.Push(ctx, target)
}

// Resolve matches a full path to a route target.
func (r *Router) Resolve(fullPath string) (Target, error) {
	u, err := url.Parse(fullPath)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %q", ErrNoMatch, fullPath)
	}
	var query map[string]string
	if q := u.Query(); len(q) > 0 {
		query = make(map[string]string, len(q))
		for k := range q {
			query[k] = q.Get(k)
		}
	}
	rctx := chi.NewRouteContext()
	if rt, ok := r.byPattern[r.mux.Find(rctx, http.MethodGet, u.Path)]; ok {
		var params map[string]string
		for i, key := range rctx.URLParams.Keys {
			if params == nil {
				params = make(map[string]string, len(rctx.URLParams.Keys))
			}
			params[key] = rctx.URLParams.Values[i]
		}
		return Target{Name: rt.Name, Params: params, Query: query}, nil
	}
	return Target{}, fmt.Errorf("%w: %q", ErrNoMatch, fullPath)
}

// Current returns the committed location.
func (r *Router) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// History returns every committed location, oldest first.
func (r *Router) History() []Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Location(nil), r.history...)
}

func (r *Router) commit(loc Location) {
	r.mu.Lock()
	r.current = loc
	r.history = append(r.history, loc)
	r.mu.Unlock()
}

func (r *Router) apply(ctx context.Context, d guard.Decision) {
	if d.Notify != "" && r.notifier != nil {
		r.notifier.Notify(ctx, d.Notify)
	}
	if d.ClearSession {
		if err := r.store.ClearUser(ctx); err != nil {
			r.logger.Error().Err(err).Str(log.FieldEvent, "router.clear_failed").Msg("failed to clear session")
		}
		metrics.RecordSessionCleared(r.profile.Name, "role")
	}
	metrics.RecordGuardRedirect(r.profile.Name, d.Reason)
}

// buildPath expands the {name} parameters of a chi pattern and appends the query.
// chi only matches paths, so the reverse direction lives here.
func buildPath(pattern string, params, query map[string]string) (string, error) {
	segs := strings.Split(pattern, "/")
	for i, seg := range segs {
		if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
			continue
		}
		name := seg[1 : len(seg)-1]
		v, ok := params[name]
		if !ok || v == "" {
			return "", fmt.Errorf("%w: %s in %s", ErrMissingParam, name, pattern)
		}
		segs[i] = url.PathEscape(v)
	}
	p := strings.Join(segs, "/")
	if len(query) == 0 {
		return p, nil
	}
	q := make(url.Values, len(query))
	for k, v := range query {
		q.Set(k, v)
	}
	return p + "?" + q.Encode(), nil
}
