// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package seckill drives one flash-sale purchase through the server protocol:
// captcha challenge, execution path, single-use execute call and result polling.
// Each Attempt is an explicit state machine; every failure names its step.
package seckill

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/seckill/internal/api"
	"github.com/ManuGH/seckill/internal/dispatch"
	"github.com/ManuGH/seckill/internal/fsm"
	"github.com/ManuGH/seckill/internal/log"
	"github.com/ManuGH/seckill/internal/metrics"
	"github.com/ManuGH/seckill/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Defaults for result polling.
const (
	DefaultPollInterval = time.Second
	DefaultMaxPolls     = 30
)

// Backend is the set of remote calls an attempt needs.
type Backend interface {
	Captcha(ctx context.Context, seckillGoodsID int64) (*api.Captcha, error)
	Path(ctx context.Context, seckillGoodsID int64, answer int) (string, error)
	Execute(ctx context.Context, path string, seckillGoodsID int64) error
	Result(ctx context.Context, seckillGoodsID int64) (int64, error)
}

type clientBackend struct {
	c *api.Client
}

// FromClient adapts the typed API clients to a Backend.
func FromClient(c *api.Client) Backend {
	return clientBackend{c: c}
}

func (b clientBackend) Captcha(ctx context.Context, id int64) (*api.Captcha, error) {
	return b.c.Captcha.Seckill(ctx, id)
}

func (b clientBackend) Path(ctx context.Context, id int64, answer int) (string, error) {
	return b.c.Seckill.Path(ctx, id, answer)
}

func (b clientBackend) Execute(ctx context.Context, path string, id int64) error {
	return b.c.Seckill.Execute(ctx, path, id)
}

func (b clientBackend) Result(ctx context.Context, id int64) (int64, error) {
	return b.c.Seckill.Result(ctx, id)
}

// PollOptions bounds result polling.
type PollOptions struct {
	Interval time.Duration
	// MaxAttempts caps the number of polls; 0 polls until ctx is done.
	MaxAttempts int
}

// DefaultPollOptions polls once a second, at most 30 times.
func DefaultPollOptions() PollOptions {
	return PollOptions{Interval: DefaultPollInterval, MaxAttempts: DefaultMaxPolls}
}

// Options configures an Attempt.
type Options struct {
	Clock  Clock
	Logger *zerolog.Logger
}

// Ticket is the per-attempt purchase credential. It is never persisted.
type Ticket struct {
	SeckillGoodsID int64
	CaptchaValue   int
	Path           string
	// Consumed is set once the path has been submitted.
	Consumed bool
}

// Attempt is one purchase of one seckill offer.
type Attempt struct {
	id      string
	goodsID int64
	backend Backend
	clock   Clock
	logger  zerolog.Logger
	tracer  trace.Tracer
	machine *fsm.Machine[State, event]

	mu         sync.Mutex
	captcha    *api.Captcha
	ticket     Ticket
	outcome    *Outcome
	abandoned  bool
	cancelPoll context.CancelFunc
}

// New prepares an attempt in the Idle state.
func New(seckillGoodsID int64, backend Backend, opts Options) (*Attempt, error) {
	if backend == nil {
		return nil, fmt.Errorf("seckill: backend is required")
	}
	a := &Attempt{
		id:      uuid.NewString(),
		goodsID: seckillGoodsID,
		backend: backend,
		clock:   opts.Clock,
		tracer:  telemetry.Tracer("seckill.attempt"),
		ticket:  Ticket{SeckillGoodsID: seckillGoodsID},
	}
	machine, err := fsm.New(Idle, transitions(a.claimPath))
	if err != nil {
		return nil, fmt.Errorf("seckill: build state machine: %w", err)
	}
	a.machine = machine
	if a.clock == nil {
		a.clock = RealClock{}
	}
	base := log.WithComponent("seckill")
	if opts.Logger != nil {
		base = *opts.Logger
	}
	a.logger = base.With().
		Str(log.FieldAttemptID, a.id).
		Int64(log.FieldGoodsID, seckillGoodsID).
		Logger()

	machine.OnTransition(func(from, to State, ev event) {
		a.logger.Debug().
			Str(log.FieldEvent, "seckill.transition").
			Str(log.FieldOldState, string(from)).
			Str(log.FieldNewState, string(to)).
			Str("trigger", string(ev)).
			Msg("attempt state changed")
	})
	return a, nil
}

// ID is the attempt's correlation id.
func (a *Attempt) ID() string { return a.id }

// GoodsID is the seckill offer being purchased.
func (a *Attempt) GoodsID() int64 { return a.goodsID }

// State returns the current state.
func (a *Attempt) State() State { return a.machine.State() }

// Captcha returns the current challenge, or nil before Challenge succeeded.
func (a *Attempt) Captcha() *api.Captcha {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.captcha
}

// Ticket returns a copy of the purchase ticket.
func (a *Attempt) Ticket() Ticket {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ticket
}

// Outcome returns the terminal outcome once the attempt is Done.
func (a *Attempt) Outcome() (Outcome, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.outcome == nil {
		return Outcome{}, false
	}
	return *a.outcome, true
}

// Challenge requests a captcha. It may be repeated while awaiting the answer
// to get a fresh challenge. Failures end the attempt as Aborted.
func (a *Attempt) Challenge(ctx context.Context) (*api.Captcha, error) {
	if err := a.require(evCaptchaIssued); err != nil {
		return nil, err
	}
	ctx, span := a.startStep(ctx, StepCaptcha)
	defer span.End()

	c, err := a.backend.Captcha(ctx, a.goodsID)
	if err != nil {
		return nil, a.fail(ctx, span, StepCaptcha, Aborted, err)
	}

	a.mu.Lock()
	a.captcha = c
	a.mu.Unlock()
	if _, err := a.machine.Fire(ctx, evCaptchaIssued); err != nil {
		return nil, invalidState(err)
	}
	span.SetStatus(codes.Ok, "")
	return c, nil
}

// Answer submits the captcha answer and obtains the execution path. A business
// rejection (wrong captcha, rate limit) keeps the attempt in AwaitingCaptcha;
// session expiry and transport failures end it as Aborted.
func (a *Attempt) Answer(ctx context.Context, answer int) error {
	if err := a.require(evPathIssued); err != nil {
		return err
	}
	ctx, span := a.startStep(ctx, StepPath)
	defer span.End()

	a.mu.Lock()
	a.ticket.CaptchaValue = answer
	a.mu.Unlock()

	path, err := a.backend.Path(ctx, a.goodsID, answer)
	if err != nil {
		if errors.Is(err, dispatch.ErrBusiness) || errors.Is(err, api.ErrEmptyPath) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "path rejected")
			if _, ferr := a.machine.Fire(ctx, evPathRejected); ferr != nil {
				return invalidState(ferr)
			}
			return &StepError{Step: StepPath, Err: err}
		}
		return a.fail(ctx, span, StepPath, Aborted, err)
	}

	a.mu.Lock()
	a.ticket.Path = path
	a.ticket.Consumed = false
	a.mu.Unlock()
	if _, err := a.machine.Fire(ctx, evPathIssued); err != nil {
		return invalidState(err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Execute submits the purchase with the ticket's path. The path is marked
// consumed before the request is sent, so a path is submitted at most once;
// a repeated call returns ErrPathConsumed without dispatching.
func (a *Attempt) Execute(ctx context.Context) error {
	a.mu.Lock()
	consumed, abandoned := a.ticket.Consumed, a.abandoned
	a.mu.Unlock()
	if consumed {
		return ErrPathConsumed
	}
	if abandoned {
		return ErrAbandoned
	}

	if _, err := a.machine.Fire(ctx, evExecute); err != nil {
		a.mu.Lock()
		consumed = a.ticket.Consumed
		a.mu.Unlock()
		switch {
		case errors.Is(err, ErrPathConsumed), consumed && errors.Is(err, fsm.ErrInvalidTransition):
			// Another caller claimed the path first.
			return ErrPathConsumed
		case errors.Is(err, ErrAbandoned), errors.Is(err, ErrInvalidState):
			return err
		}
		return invalidState(err)
	}
	a.mu.Lock()
	path := a.ticket.Path
	a.mu.Unlock()

	ctx, span := a.startStep(ctx, StepExecute)
	defer span.End()

	if err := a.backend.Execute(ctx, path, a.goodsID); err != nil {
		result := Aborted
		if errors.Is(err, dispatch.ErrBusiness) {
			result = Failed
		}
		return a.fail(ctx, span, StepExecute, result, err)
	}
	if _, err := a.machine.Fire(ctx, evAccepted); err != nil {
		return invalidState(err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// claimPath marks the ticket's path consumed. Concurrent callers race here and
// exactly one wins.
func (a *Attempt) claimPath(_ context.Context, _ State, _ event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.ticket.Consumed:
		return ErrPathConsumed
	case a.abandoned:
		return ErrAbandoned
	case a.ticket.Path == "":
		return fmt.Errorf("%w: no path issued", ErrInvalidState)
	}
	a.ticket.Consumed = true
	return nil
}

// Await polls for the purchase result until a non-pending answer arrives, the
// poll budget is spent, the attempt is abandoned or ctx is done. Polls never
// overlap: each one waits for the previous response and then for the interval.
func (a *Attempt) Await(ctx context.Context, opts PollOptions) (Outcome, error) {
	if a.machine.State() != AwaitingResult {
		return Outcome{}, fmt.Errorf("%w: await in state %s", ErrInvalidState, a.machine.State())
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.MaxAttempts < 0 {
		opts.MaxAttempts = 0
	}

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.mu.Lock()
	abandoned := a.abandoned
	a.cancelPoll = cancel
	a.mu.Unlock()
	if abandoned {
		return a.finish(ctx, Outcome{Result: Abandoned, Step: StepResult, Err: ErrAbandoned}), nil
	}

	ctx, span := a.startStep(ctx, StepResult)
	defer span.End()
	logger := log.WithContext(ctx, a.logger)

	for poll := 1; ; poll++ {
		metrics.RecordResultPoll()
		orderID, err := a.backend.Result(pollCtx, a.goodsID)
		span.SetAttributes(attribute.Int(telemetry.PollsKey, poll))

		if err == nil {
			span.SetStatus(codes.Ok, "")
			return a.finish(ctx, Outcome{Result: Purchased, OrderID: orderID, Step: StepResult, Polls: poll}), nil
		}
		if a.isAbandoned() {
			return a.finish(ctx, Outcome{Result: Abandoned, Step: StepResult, Polls: poll, Err: ErrAbandoned}), nil
		}

		code, business := dispatch.BusinessCode(err)
		switch {
		case business && code == dispatch.CodeQueuing:
			logger.Debug().Str(log.FieldEvent, "seckill.pending").Int(log.FieldPoll, poll).Msg("purchase still queued")
		case business && code == dispatch.CodeSoldOut:
			return a.finish(ctx, Outcome{Result: SoldOut, Step: StepResult, Polls: poll}), nil
		case business:
			span.SetStatus(codes.Error, "failed")
			return a.finish(ctx, Outcome{Result: Failed, Step: StepResult, Polls: poll, Err: &StepError{Step: StepResult, Err: err}}), nil
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "aborted")
			return a.finish(ctx, Outcome{Result: Aborted, Step: StepResult, Polls: poll, Err: &StepError{Step: StepResult, Err: err}}), nil
		}

		if opts.MaxAttempts > 0 && poll >= opts.MaxAttempts {
			return a.finish(ctx, Outcome{
				Result: PendingExceeded,
				Step:   StepResult,
				Polls:  poll,
				Err:    &StepError{Step: StepResult, Err: fmt.Errorf("still queued after %d polls", poll)},
			}), nil
		}

		if err := a.clock.Sleep(pollCtx, opts.Interval); err != nil {
			if a.isAbandoned() {
				return a.finish(ctx, Outcome{Result: Abandoned, Step: StepResult, Polls: poll, Err: ErrAbandoned}), nil
			}
			return a.finish(ctx, Outcome{Result: Aborted, Step: StepResult, Polls: poll, Err: &StepError{Step: StepResult, Err: err}}), nil
		}
	}
}

// Run answers the captcha, executes and awaits the result. Challenge must have
// succeeded first.
func (a *Attempt) Run(ctx context.Context, answer int, opts PollOptions) (Outcome, error) {
	if err := a.Answer(ctx, answer); err != nil {
		return a.outcomeOrZero(), err
	}
	if err := a.Execute(ctx); err != nil {
		return a.outcomeOrZero(), err
	}
	return a.Await(ctx, opts)
}

// Abandon gives up on the attempt. Before the execute call it ends the attempt
// immediately. Afterwards it only stops polling; the server-side purchase is
// not undone.
func (a *Attempt) Abandon() {
	a.mu.Lock()
	if a.outcome != nil || a.abandoned {
		a.mu.Unlock()
		return
	}
	a.abandoned = true
	cancel := a.cancelPoll
	a.mu.Unlock()

	switch a.machine.State() {
	case Idle, AwaitingCaptcha, AwaitingPath:
		if _, err := a.machine.Fire(context.Background(), evAbandon); err == nil {
			a.record(Outcome{Result: Abandoned, Err: ErrAbandoned})
		}
	default:
		if cancel != nil {
			cancel()
		}
	}
}

func (a *Attempt) isAbandoned() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.abandoned
}

func (a *Attempt) outcomeOrZero() Outcome {
	o, _ := a.Outcome()
	return o
}

func (a *Attempt) require(ev event) error {
	if a.isAbandoned() {
		return ErrAbandoned
	}
	if !a.machine.Can(ev) {
		return fmt.Errorf("%w: %s in state %s", ErrInvalidState, ev, a.machine.State())
	}
	return nil
}

func (a *Attempt) startStep(ctx context.Context, step Step) (context.Context, trace.Span) {
	ctx = log.ContextWithAttemptID(ctx, a.id)
	ctx, span := a.tracer.Start(ctx, "seckill.attempt."+string(step))
	span.SetAttributes(telemetry.AttemptAttributes(a.id, a.goodsID)...)
	span.SetAttributes(attribute.String(telemetry.StepKey, string(step)))
	return ctx, span
}

// fail ends the attempt with result and reports the failing step.
func (a *Attempt) fail(ctx context.Context, span trace.Span, step Step, result Result, err error) error {
	serr := &StepError{Step: step, Err: err}
	span.RecordError(err)
	span.SetStatus(codes.Error, string(result))
	a.finish(ctx, Outcome{Result: result, Step: step, Err: serr})
	return serr
}

func (a *Attempt) finish(ctx context.Context, o Outcome) Outcome {
	if _, err := a.machine.Fire(ctx, evFinish); err != nil {
		a.logger.Warn().Err(err).Str(log.FieldEvent, "seckill.finish_rejected").Msg("attempt already finished")
	}
	a.record(o)
	return o
}

func (a *Attempt) record(o Outcome) {
	a.mu.Lock()
	a.outcome = &o
	a.mu.Unlock()

	metrics.RecordAttempt(string(o.Result))
	ev := a.logger.Info()
	if o.Err != nil && o.Result != Abandoned {
		ev = a.logger.Warn().Err(o.Err)
	}
	ev.Str(log.FieldEvent, "seckill.done").
		Str(log.FieldOutcome, string(o.Result)).
		Str(log.FieldStep, string(o.Step)).
		Int64(log.FieldOrderID, o.OrderID).
		Int(log.FieldPoll, o.Polls).
		Msg("attempt finished")
}

func invalidState(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidState, err)
}
