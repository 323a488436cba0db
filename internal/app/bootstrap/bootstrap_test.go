// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/ManuGH/seckill/internal/apitest"
	"github.com/ManuGH/seckill/internal/config"
	"github.com/ManuGH/seckill/internal/dispatch"
	"github.com/ManuGH/seckill/internal/router"
	"github.com/ManuGH/seckill/internal/seckill"
	"github.com/ManuGH/seckill/internal/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wireTest(t *testing.T, app string) (*Container, *apitest.Server, *dispatch.Recorder) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	cfg := config.Defaults()
	cfg.App = app
	cfg.API.BaseURL = srv.BaseURL()
	cfg.API.Timeout = 2 * time.Second
	cfg.Store.Backend = "memory"
	cfg.Seckill.PollInterval = time.Millisecond
	require.NoError(t, config.Validate(cfg))

	notes := &dispatch.Recorder{}
	logger := zerolog.Nop()
	c, err := Wire(context.Background(), cfg, Options{
		Version:  "test",
		Notifier: notes,
		Backend:  session.NewMemoryBackend(),
		Logger:   &logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c, srv, notes
}

func TestWire_ExpiryNavigatesRouterToLogin(t *testing.T) {
	ctx := context.Background()
	c, srv, notes := wireTest(t, "user")

	_, err := c.API.User.Login(ctx, "13800000001", "secret")
	require.NoError(t, err)
	_, err = c.Router.Push(ctx, router.Target{Name: router.Orders})
	require.NoError(t, err)
	assert.Equal(t, router.Orders, c.Router.Current().Route.Name)

	srv.ExpireToken(c.Store.Token())
	_, err = c.API.Order.List(ctx, nil)
	require.ErrorIs(t, err, dispatch.ErrSessionExpired)

	assert.False(t, c.Store.IsLoggedIn())
	assert.Equal(t, router.Login, c.Router.Current().Route.Name)
	assert.Equal(t, []string{dispatch.MsgSessionExpired}, notes.Messages())
}

func TestWire_AdminProfile(t *testing.T) {
	ctx := context.Background()
	c, _, _ := wireTest(t, "admin")
	assert.Equal(t, "admin", c.Profile.Name)

	_, err := c.API.User.Login(ctx, "13800000002", "secret")
	require.NoError(t, err)
	assert.True(t, c.Store.IsAdmin())

	dash, err := c.API.Admin.Dashboard(ctx)
	require.NoError(t, err)
	assert.NotNil(t, dash)
}

func TestContainer_NewAttemptUsesConfiguredPolling(t *testing.T) {
	ctx := context.Background()
	c, srv, _ := wireTest(t, "user")
	_, err := c.API.User.Login(ctx, "13800000001", "secret")
	require.NoError(t, err)

	a, err := c.NewAttempt(1)
	require.NoError(t, err)
	_, err = a.Challenge(ctx)
	require.NoError(t, err)
	answer, ok := srv.CaptchaAnswer(1, 1)
	require.True(t, ok)

	poll := c.PollOptions()
	assert.Equal(t, time.Millisecond, poll.Interval)
	assert.Equal(t, config.DefaultMaxPolls, poll.MaxAttempts)

	out, err := a.Run(ctx, answer, poll)
	require.NoError(t, err)
	assert.Equal(t, seckill.Purchased, out.Result)
}

func TestWireServices_FromEnvironment(t *testing.T) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	t.Setenv(config.EnvApp, "admin")
	t.Setenv(config.EnvAPIBaseURL, srv.BaseURL())
	t.Setenv(config.EnvStoreBackend, "memory")
	t.Setenv(config.EnvLogLevel, "error")

	c, err := WireServices(context.Background(), "", Options{Version: "test"})
	require.NoError(t, err)
	defer func() { _ = c.Close(context.Background()) }()
	assert.Equal(t, "admin", c.Profile.Name)

	loc, err := c.Router.Push(context.Background(), router.Target{Name: router.Dashboard})
	require.NoError(t, err)
	assert.Equal(t, router.Login, loc.Route.Name)
	assert.True(t, loc.Redirected())
}

func TestWireServices_InvalidConfig(t *testing.T) {
	t.Setenv(config.EnvApp, "kiosk")
	t.Setenv(config.EnvStoreBackend, "memory")
	_, err := WireServices(context.Background(), "", Options{})
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}
