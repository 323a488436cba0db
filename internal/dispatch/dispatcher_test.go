// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/seckill/internal/log"
	"github.com/ManuGH/seckill/internal/profile"
	"github.com/ManuGH/seckill/internal/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (n *fakeNavigator) Navigate(_ context.Context, route string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
	return nil
}

func (n *fakeNavigator) Routes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

type captured struct {
	Method      string
	Path        string
	Query       string
	Auth        string
	ContentType string
	RequestID   string
	Body        string
}

type harness struct {
	srv       *httptest.Server
	store     *session.Store
	disp      *Dispatcher
	notes     *Recorder
	nav       *fakeNavigator
	mu        sync.Mutex
	requests  []captured
	responder func(w http.ResponseWriter, r *http.Request)
}

func newHarness(t *testing.T, p profile.Profile) *harness {
	t.Helper()
	h := &harness{notes: &Recorder{}, nav: &fakeNavigator{}}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		h.mu.Lock()
		h.requests = append(h.requests, captured{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.RawQuery,
			Auth:        r.Header.Get("Authorization"),
			ContentType: r.Header.Get("Content-Type"),
			RequestID:   r.Header.Get("X-Request-ID"),
			Body:        string(body),
		})
		respond := h.responder
		h.mu.Unlock()
		if respond == nil {
			writeEnvelope(w, Envelope{Code: 200, Message: "ok"})
			return
		}
		respond(w, r)
	}))
	t.Cleanup(h.srv.Close)

	store, err := session.Open(context.Background(), session.NewMemoryBackend(), p, zerolog.Nop())
	require.NoError(t, err)
	h.store = store

	logger := zerolog.Nop()
	h.disp, err = New(store, Options{
		BaseURL:   h.srv.URL + "/api",
		Timeout:   2 * time.Second,
		Profile:   p,
		Notifier:  h.notes,
		Navigator: h.nav,
		Logger:    &logger,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) respond(fn func(w http.ResponseWriter, r *http.Request)) {
	h.mu.Lock()
	h.responder = fn
	h.mu.Unlock()
}

func (h *harness) last(t *testing.T) captured {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(t, h.requests)
	return h.requests[len(h.requests)-1]
}

func writeEnvelope(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(env)
}

func TestDispatcher_AuthorizationHeaderFollowsToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, profile.User)

	out := h.disp.Get(ctx, "/goods/list", nil)
	require.True(t, out.OK())
	req := h.last(t)
	assert.Empty(t, req.Auth, "no token means no Authorization header")
	assert.Equal(t, "application/json", req.ContentType)
	assert.Equal(t, "/api/goods/list", req.Path)

	require.NoError(t, h.store.SetUser(ctx, session.Session{Token: "abc", UserID: "1"}))
	h.disp.Get(ctx, "/goods/list", nil)
	assert.Equal(t, "Bearer abc", h.last(t).Auth)

	require.NoError(t, h.store.ClearUser(ctx))
	h.disp.Get(ctx, "/goods/list", nil)
	assert.Empty(t, h.last(t).Auth)
}

func TestDispatcher_ForwardsCorrelationID(t *testing.T) {
	h := newHarness(t, profile.User)

	h.disp.Get(context.Background(), "/goods/list", nil)
	assert.Empty(t, h.last(t).RequestID)

	ctx := log.ContextWithCorrelationID(context.Background(), "cli-42")
	h.disp.Get(ctx, "/goods/list", nil)
	assert.Equal(t, "cli-42", h.last(t).RequestID)
}

func TestDispatcher_PassesMethodQueryAndBody(t *testing.T) {
	h := newHarness(t, profile.Admin)

	h.disp.Post(context.Background(), "/admin/reset-stock/3", map[string][]string{"stock": {"100"}}, nil)
	req := h.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "stock=100", req.Query)
	assert.Empty(t, req.Body)

	h.disp.Put(context.Background(), "/admin/goods/4", map[string]any{"goodsName": "phone"})
	req = h.last(t)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.JSONEq(t, `{"goodsName":"phone"}`, req.Body)

	h.disp.Delete(context.Background(), "/admin/goods/4")
	assert.Equal(t, http.MethodDelete, h.last(t).Method)
}

func TestDispatcher_OkCausesNoNavigation(t *testing.T) {
	h := newHarness(t, profile.User)
	h.respond(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, Envelope{Code: 200, Data: json.RawMessage(`[{"goodsId":1}]`)})
	})

	out := h.disp.Get(context.Background(), "/goods/list", nil)
	require.True(t, out.OK())
	assert.JSONEq(t, `[{"goodsId":1}]`, string(out.Envelope.Data))
	assert.Empty(t, h.nav.Routes())
	assert.Empty(t, h.notes.Messages())
}

func TestDispatcher_SessionExpiryClearsNotifiesAndNavigatesOnce(t *testing.T) {
	for _, code := range []int{CodeUnauthorized, CodeLoginExpired} {
		for _, p := range []profile.Profile{profile.User, profile.Admin} {
			ctx := context.Background()
			h := newHarness(t, p)
			require.NoError(t, h.store.SetUser(ctx, session.Session{Token: "abc", UserID: "1", Role: 1}))
			h.respond(func(w http.ResponseWriter, _ *http.Request) {
				writeEnvelope(w, Envelope{Code: code, Message: "session expired"})
			})

			out := h.disp.Get(ctx, "/order/list", nil)

			assert.Equal(t, KindSessionExpired, out.Kind, "%s/%d", p.Name, code)
			assert.False(t, h.store.IsLoggedIn())
			assert.True(t, h.store.Snapshot().IsZero())
			assert.Equal(t, []string{MsgSessionExpired}, h.notes.Messages())
			assert.Equal(t, []string{p.LoginRoute}, h.nav.Routes())
			assert.ErrorIs(t, out.Err(), ErrSessionExpired)
		}
	}
}

type deleteFailsBackend struct {
	*session.MemoryBackend
}

func (deleteFailsBackend) Delete(context.Context, []string) error {
	return errors.New("backend unavailable")
}

func TestDispatcher_SessionExpiryClearsEvenWhenBackendDeleteFails(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, Envelope{Code: CodeLoginExpired, Message: "session expired"})
	}))
	t.Cleanup(srv.Close)

	store, err := session.Open(ctx, deleteFailsBackend{session.NewMemoryBackend()}, profile.User, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.SetUser(ctx, session.Session{Token: "abc", UserID: "1"}))

	notes, nav := &Recorder{}, &fakeNavigator{}
	logger := zerolog.Nop()
	d, err := New(store, Options{
		BaseURL:   srv.URL,
		Timeout:   2 * time.Second,
		Profile:   profile.User,
		Notifier:  notes,
		Navigator: nav,
		Logger:    &logger,
	})
	require.NoError(t, err)

	out := d.Get(ctx, "/order/list", nil)
	assert.Equal(t, KindSessionExpired, out.Kind)
	assert.False(t, store.IsLoggedIn())
	assert.Empty(t, store.Token())
	assert.Equal(t, []string{profile.User.LoginRoute}, nav.Routes())
}

func TestDispatcher_BusinessErrorKeepsSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, profile.User)
	require.NoError(t, h.store.SetUser(ctx, session.Session{Token: "abc"}))
	h.respond(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, Envelope{Code: CodeCaptchaWrong, Message: "captcha wrong"})
	})

	out := h.disp.Get(ctx, "/seckill/path/1", map[string][]string{"captcha": {"3"}})
	assert.Equal(t, KindBusiness, out.Kind)
	assert.Equal(t, CodeCaptchaWrong, out.Code)
	assert.Equal(t, "captcha wrong", out.Message)
	assert.True(t, h.store.IsLoggedIn())
	assert.Empty(t, h.nav.Routes())
	assert.Equal(t, []string{"captcha wrong"}, h.notes.Messages())
}

func TestDispatcher_HTTP401NavigatesWithoutClearing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, profile.User)
	require.NoError(t, h.store.SetUser(ctx, session.Session{Token: "abc"}))
	h.respond(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	out := h.disp.Get(ctx, "/user/info", nil)
	assert.Equal(t, KindTransport, out.Kind)
	assert.Equal(t, 401, out.Status)
	assert.True(t, h.store.IsLoggedIn())
	assert.Equal(t, []string{"Login"}, h.nav.Routes())
	assert.Equal(t, []string{MsgUnauthorized}, h.notes.Messages())
}

func TestDispatcher_TransportFailure(t *testing.T) {
	h := newHarness(t, profile.User)
	h.srv.Close()

	out := h.disp.Get(context.Background(), "/goods/list", nil)
	assert.Equal(t, KindTransport, out.Kind)
	assert.Equal(t, 0, out.Status)
	assert.Equal(t, []string{MsgNetworkFailure}, h.notes.Messages())
	assert.ErrorIs(t, out.Err(), ErrTransport)
}

func TestDispatcher_TimeoutIsTransportFailure(t *testing.T) {
	h := newHarness(t, profile.User)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	h.respond(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	logger := zerolog.Nop()
	d, err := New(h.store, Options{
		BaseURL:  h.srv.URL,
		Timeout:  50 * time.Millisecond,
		Notifier: h.notes,
		Logger:   &logger,
	})
	require.NoError(t, err)

	out := d.Get(context.Background(), "/goods/list", nil)
	assert.Equal(t, KindTransport, out.Kind)
	assert.Equal(t, []string{MsgNetworkFailure}, h.notes.Messages())
}

func TestDispatcher_RateLimitHonoursContext(t *testing.T) {
	h := newHarness(t, profile.User)
	logger := zerolog.Nop()
	d, err := New(h.store, Options{
		BaseURL:        h.srv.URL,
		RateLimit:      0.001,
		RateLimitBurst: 1,
		Notifier:       h.notes,
		Logger:         &logger,
	})
	require.NoError(t, err)

	require.True(t, d.Get(context.Background(), "/goods/list", nil).OK())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	out := d.Get(ctx, "/goods/list", nil)
	assert.Equal(t, KindTransport, out.Kind)
}

func TestNew_RejectsInvalidBaseURL(t *testing.T) {
	store, err := session.Open(context.Background(), session.NewMemoryBackend(), profile.User, zerolog.Nop())
	require.NoError(t, err)

	_, err = New(store, Options{BaseURL: "ftp://example.com"})
	require.Error(t, err)

	_, err = New(nil, Options{})
	require.Error(t, err)
}
