// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ManuGH/seckill/internal/log"
	"github.com/ManuGH/seckill/internal/metrics"
	"github.com/ManuGH/seckill/internal/platform/httpx"
	platformnet "github.com/ManuGH/seckill/internal/platform/net"
	"github.com/ManuGH/seckill/internal/profile"
	"github.com/ManuGH/seckill/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is used when Options.BaseURL is empty.
const DefaultBaseURL = "http://localhost:8080/api"

const maxBodyBytes = 4 << 20

// Credentials is the part of the credential store the dispatcher needs.
type Credentials interface {
	Token() string
	ClearUser(ctx context.Context) error
}

// Notifier shows a user-facing error message.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Navigator moves the client to a named screen.
type Navigator interface {
	Navigate(ctx context.Context, route string) error
}

// Request describes one API call. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON encoded when non-nil.
	Body any
}

// Options configures a Dispatcher.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Timeout applies when HTTPClient is nil.
	Timeout time.Duration
	// RateLimit caps outbound requests per second; 0 disables limiting.
	RateLimit      rate.Limit
	RateLimitBurst int
	Profile        profile.Profile
	Notifier       Notifier
	Navigator      Navigator
	Logger         *zerolog.Logger
}

// Dispatcher is the single place every API request goes through.
type Dispatcher struct {
	base      *url.URL
	client    *http.Client
	limiter   *rate.Limiter
	creds     Credentials
	profile   profile.Profile
	notifier  Notifier
	navigator Navigator
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// New creates a dispatcher bound to a credential store.
func New(creds Credentials, opts Options) (*Dispatcher, error) {
	if creds == nil {
		return nil, fmt.Errorf("dispatch: credentials are required")
	}
	opts = normalizeOptions(opts)
	base, err := platformnet.ParseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	d := &Dispatcher{
		base:      base,
		client:    opts.HTTPClient,
		creds:     creds,
		profile:   opts.Profile,
		notifier:  opts.Notifier,
		navigator: opts.Navigator,
		tracer:    telemetry.Tracer("seckill.dispatch"),
	}
	if opts.RateLimit > 0 {
		d.limiter = rate.NewLimiter(opts.RateLimit, opts.RateLimitBurst)
	}
	if opts.Logger != nil {
		d.logger = *opts.Logger
	} else {
		d.logger = log.WithComponent("dispatch")
	}
	d.logger = d.logger.With().Str(log.FieldApp, d.profile.Name).Logger()
	return d, nil
}

func normalizeOptions(opts Options) Options {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = httpx.NewClient(opts.Timeout)
	}
	if opts.RateLimit > 0 && opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 1
	}
	if opts.Profile.Name == "" {
		opts.Profile = profile.User
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	return opts
}

// SetNavigator installs the navigator after construction. The router and the
// dispatcher reference each other, so one of them is wired late.
func (d *Dispatcher) SetNavigator(n Navigator) {
	d.navigator = n
}

// Profile returns the application profile of the dispatcher.
func (d *Dispatcher) Profile() profile.Profile {
	return d.profile
}

// Get issues a GET request.
func (d *Dispatcher) Get(ctx context.Context, path string, query url.Values) Outcome {
	return d.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post issues a POST request with an optional JSON body.
func (d *Dispatcher) Post(ctx context.Context, path string, query url.Values, body any) Outcome {
	return d.Do(ctx, Request{Method: http.MethodPost, Path: path, Query: query, Body: body})
}

// Put issues a PUT request with a JSON body.
func (d *Dispatcher) Put(ctx context.Context, path string, body any) Outcome {
	return d.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete issues a DELETE request.
func (d *Dispatcher) Delete(ctx context.Context, path string) Outcome {
	return d.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// Do sends the request, classifies the response and applies its effects. Effects
// are fully resolved before Do returns. Do never retries.
func (d *Dispatcher) Do(ctx context.Context, req Request) Outcome {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	ctx, span := d.tracer.Start(ctx, "seckill.dispatch.request", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.route", req.Path),
	)
	defer span.End()

	start := time.Now()
	status, body, err := d.roundTrip(ctx, req)
	out, effects := Classify(d.profile, status, body, err)
	out.Method, out.Path = req.Method, req.Path
	duration := time.Since(start)

	d.apply(ctx, effects)

	metrics.RecordDispatch(d.profile.Name, string(out.Kind), duration)
	span.SetAttributes(telemetry.OutcomeAttributes(d.profile.Name, string(out.Kind), out.Code)...)
	if out.OK() {
		span.SetStatus(codes.Ok, "")
	} else {
		if err != nil {
			span.RecordError(err)
		}
		span.SetStatus(codes.Error, string(out.Kind))
	}

	logger := log.WithContext(ctx, d.logger)
	ev := logger.Debug()
	if out.Kind == KindTransport && err != nil {
		ev = logger.Warn().Err(err)
	}
	ev.Str(log.FieldEvent, "dispatch.done").
		Str(log.FieldMethod, req.Method).
		Str(log.FieldPath, req.Path).
		Int(log.FieldStatus, out.Status).
		Int(log.FieldCode, out.Code).
		Str(log.FieldOutcome, string(out.Kind)).
		Dur(log.FieldDuration, duration).
		Msg("request dispatched")
	return out
}

func (d *Dispatcher) roundTrip(ctx context.Context, req Request) (int, []byte, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var payload io.Reader
	if req.Body != nil {
		buf, err := json.Marshal(req.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request body: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	target := platformnet.ResolveEndpoint(d.base, req.Path, req.Query)
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, payload)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if token := d.creds.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if cid := log.CorrelationIDFromContext(ctx); cid != "" {
		httpReq.Header.Set("X-Request-ID", cid)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// apply performs effects in a fixed order: clear, notify, navigate.
func (d *Dispatcher) apply(ctx context.Context, e Effects) {
	if e.ClearSession {
		if err := d.creds.ClearUser(ctx); err != nil {
			d.logger.Error().Err(err).Str(log.FieldEvent, "dispatch.clear_failed").Msg("failed to clear session")
		}
		metrics.RecordSessionCleared(d.profile.Name, "expired")
	}
	if e.Notify != "" {
		d.notifier.Notify(ctx, e.Notify)
	}
	if e.NavigateLogin && d.navigator != nil {
		if err := d.navigator.Navigate(ctx, d.profile.LoginRoute); err != nil {
			d.logger.Warn().Err(err).Str(log.FieldEvent, "dispatch.navigate_failed").Msg("navigation to login failed")
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string) {}
