// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api holds typed clients for every endpoint of the remote seckill API.
// All calls go through a dispatch.Dispatcher, so credential handling and
// response side effects are uniform.
package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ManuGH/seckill/internal/audit"
	"github.com/ManuGH/seckill/internal/dispatch"
	"github.com/ManuGH/seckill/internal/session"
)

// Doer sends one request and classifies its response.
type Doer interface {
	Do(ctx context.Context, req dispatch.Request) dispatch.Outcome
}

// SessionWriter is the part of the credential store written by login and logout.
type SessionWriter interface {
	SetUser(ctx context.Context, sess session.Session) error
	ClearUser(ctx context.Context) error
	Snapshot() session.Session
}

// Option configures a Client.
type Option func(*options)

type options struct {
	audit *audit.Logger
	app   string
}

// WithAudit records logins, logouts and admin writes of app on l.
func WithAudit(l *audit.Logger, app string) Option {
	return func(o *options) {
		o.audit = l
		o.app = app
	}
}

// Client bundles the typed API clients of one application.
type Client struct {
	User    *UserAPI
	Goods   *GoodsAPI
	Captcha *CaptchaAPI
	Seckill *SeckillAPI
	Order   *OrderAPI
	Admin   *AdminAPI
}

// New builds every typed client over d. store receives the session on login.
func New(d Doer, store SessionWriter, opts ...Option) *Client {
	o := options{audit: audit.Nop()}
	for _, fn := range opts {
		fn(&o)
	}
	return &Client{
		User:    &UserAPI{d: d, store: store, audit: o.audit, app: o.app},
		Goods:   &GoodsAPI{d: d},
		Captcha: &CaptchaAPI{d: d},
		Seckill: &SeckillAPI{d: d},
		Order:   &OrderAPI{d: d},
		Admin:   &AdminAPI{d: d, store: store, audit: o.audit},
	}
}

func call(ctx context.Context, d Doer, req dispatch.Request, v any) error {
	return d.Do(ctx, req).Decode(v)
}

func idPath(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}

func statusQuery(status *int) url.Values {
	if status == nil {
		return nil
	}
	return url.Values{"status": {strconv.Itoa(*status)}}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
