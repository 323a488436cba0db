// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package seckill

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/seckill/internal/api"
	"github.com/ManuGH/seckill/internal/dispatch"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func businessErr(code int, msg string) error {
	return &dispatch.Error{Kind: dispatch.KindBusiness, Status: 200, Code: code, Message: msg, Method: "GET", Path: "/seckill"}
}

func expiredErr() error {
	return &dispatch.Error{Kind: dispatch.KindSessionExpired, Status: 200, Code: dispatch.CodeLoginExpired, Message: "login expired", Method: "GET", Path: "/seckill"}
}

func transportErr() error {
	return &dispatch.Error{Kind: dispatch.KindTransport, Message: dispatch.MsgNetworkFailure, Method: "GET", Path: "/seckill"}
}

// fakeBackend scripts server answers. results is consumed one entry per poll;
// the last entry repeats.
type fakeBackend struct {
	mu sync.Mutex

	captchaErr error
	pathErrs   []error
	path       string
	executeErr error
	results    []pollResult

	captchas  int
	answers   []int
	executed  []string
	polls     int
	onExecute func()
	onPoll    func(n int)
}

type pollResult struct {
	orderID int64
	err     error
}

func (f *fakeBackend) Captcha(context.Context, int64) (*api.Captcha, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captchas++
	if f.captchaErr != nil {
		return nil, f.captchaErr
	}
	return &api.Captcha{Image: "data:image/png;base64,AA=="}, nil
}

func (f *fakeBackend) Path(_ context.Context, _ int64, answer int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answer)
	if len(f.pathErrs) > 0 {
		err := f.pathErrs[0]
		f.pathErrs = f.pathErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return f.path, nil
}

func (f *fakeBackend) Execute(_ context.Context, path string, _ int64) error {
	f.mu.Lock()
	f.executed = append(f.executed, path)
	hook := f.onExecute
	err := f.executeErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeBackend) Result(ctx context.Context, _ int64) (int64, error) {
	f.mu.Lock()
	f.polls++
	n := f.polls
	hook := f.onPoll
	var r pollResult
	if len(f.results) > 0 {
		i := n - 1
		if i >= len(f.results) {
			i = len(f.results) - 1
		}
		r = f.results[i]
	}
	f.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	if err := ctx.Err(); err != nil {
		return 0, &dispatch.Error{Kind: dispatch.KindTransport, Message: dispatch.MsgCanceled}
	}
	return r.orderID, r.err
}

// fakeClock records requested sleeps without waiting.
type fakeClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sleeps)
}

func newAttempt(t *testing.T, b Backend, clock Clock) *Attempt {
	t.Helper()
	logger := zerolog.Nop()
	a, err := New(7, b, Options{Clock: clock, Logger: &logger})
	require.NoError(t, err)
	return a
}

func queuing() pollResult { return pollResult{err: businessErr(dispatch.CodeQueuing, "queuing")} }

func TestRun_PurchasedAfterQueuing(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()
	b := &fakeBackend{path: "x1y2", results: []pollResult{queuing(), queuing(), {orderID: 55}}}
	clock := &fakeClock{}
	a := newAttempt(t, b, clock)

	_, err := a.Challenge(ctx)
	require.NoError(t, err)
	assert.Equal(t, AwaitingCaptcha, a.State())
	require.NotNil(t, a.Captcha())

	out, err := a.Run(ctx, 12, PollOptions{Interval: 500 * time.Millisecond, MaxAttempts: 10})
	require.NoError(t, err)
	assert.Equal(t, Purchased, out.Result)
	assert.Equal(t, int64(55), out.OrderID)
	assert.Equal(t, 3, out.Polls)
	assert.NoError(t, out.Err)

	assert.Equal(t, Done, a.State())
	assert.Equal(t, []int{12}, b.answers)
	assert.Equal(t, []string{"x1y2"}, b.executed)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, clock.sleeps)

	ticket := a.Ticket()
	assert.Equal(t, "x1y2", ticket.Path)
	assert.Equal(t, 12, ticket.CaptchaValue)
	assert.True(t, ticket.Consumed)

	stored, ok := a.Outcome()
	require.True(t, ok)
	assert.Equal(t, out, stored)
}

func TestAnswer_RejectedReturnsToAwaitingCaptcha(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{path: "p", pathErrs: []error{businessErr(dispatch.CodeCaptchaWrong, "wrong captcha")}}
	a := newAttempt(t, b, &fakeClock{})

	_, err := a.Challenge(ctx)
	require.NoError(t, err)

	err = a.Answer(ctx, 1)
	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StepPath, serr.Step)
	assert.Equal(t, dispatch.KindBusiness, serr.Kind())
	code, ok := dispatch.BusinessCode(err)
	require.True(t, ok)
	assert.Equal(t, dispatch.CodeCaptchaWrong, code)

	assert.Equal(t, AwaitingCaptcha, a.State())
	assert.Empty(t, a.Ticket().Path)
	_, done := a.Outcome()
	assert.False(t, done)

	// A fresh captcha and a correct answer continue the same attempt.
	_, err = a.Challenge(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Answer(ctx, 2))
	assert.Equal(t, AwaitingPath, a.State())
	assert.Equal(t, 2, b.captchas)
	assert.Empty(t, b.executed)
}

func TestAnswer_RateLimitedStaysRetryable(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{path: "p", pathErrs: []error{businessErr(dispatch.CodeRateLimited, "too many requests")}}
	a := newAttempt(t, b, &fakeClock{})
	_, err := a.Challenge(ctx)
	require.NoError(t, err)

	require.Error(t, a.Answer(ctx, 1))
	assert.Equal(t, AwaitingCaptcha, a.State())
}

func TestAnswer_EmptyPathIsRejection(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{pathErrs: []error{api.ErrEmptyPath}}
	a := newAttempt(t, b, &fakeClock{})
	_, err := a.Challenge(ctx)
	require.NoError(t, err)

	require.ErrorIs(t, a.Answer(ctx, 1), api.ErrEmptyPath)
	assert.Equal(t, AwaitingCaptcha, a.State())
}

func TestAnswer_SessionExpiryAborts(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{pathErrs: []error{expiredErr()}}
	a := newAttempt(t, b, &fakeClock{})
	_, err := a.Challenge(ctx)
	require.NoError(t, err)

	err = a.Answer(ctx, 1)
	require.ErrorIs(t, err, dispatch.ErrSessionExpired)
	assert.Equal(t, Done, a.State())

	out, ok := a.Outcome()
	require.True(t, ok)
	assert.Equal(t, Aborted, out.Result)
	assert.Equal(t, StepPath, out.Step)
	assert.Empty(t, b.executed)
}

func TestChallenge_TransportFailureAborts(t *testing.T) {
	b := &fakeBackend{captchaErr: transportErr()}
	a := newAttempt(t, b, &fakeClock{})

	_, err := a.Challenge(context.Background())
	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StepCaptcha, serr.Step)
	assert.Equal(t, dispatch.KindTransport, serr.Kind())

	out, ok := a.Outcome()
	require.True(t, ok)
	assert.Equal(t, Aborted, out.Result)
	assert.Equal(t, Done, a.State())
}

func TestAnswer_RequiresChallenge(t *testing.T) {
	a := newAttempt(t, &fakeBackend{}, &fakeClock{})
	require.ErrorIs(t, a.Answer(context.Background(), 1), ErrInvalidState)
	assert.Equal(t, Idle, a.State())
}

func TestExecute_AtMostOnce(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{path: "once"}
	a := newAttempt(t, b, &fakeClock{})
	_, err := a.Challenge(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Answer(ctx, 1))

	require.NoError(t, a.Execute(ctx))
	require.ErrorIs(t, a.Execute(ctx), ErrPathConsumed)
	assert.Len(t, b.executed, 1)
	assert.Equal(t, AwaitingResult, a.State())
}

func TestExecute_ConcurrentCallsSubmitOnce(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	b := &fakeBackend{path: "race"}
	b.onExecute = func() { <-release }
	a := newAttempt(t, b, &fakeClock{})
	_, err := a.Challenge(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Answer(ctx, 1))

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = a.Execute(ctx)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	var ok, consumed int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrPathConsumed):
			consumed++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 3, consumed)
	assert.Len(t, b.executed, 1)
}

func TestTransitions_ExecuteEdgeClaimsPath(t *testing.T) {
	ctx := context.Background()
	a := newAttempt(t, &fakeBackend{path: "x1y2"}, &fakeClock{})
	_, err := a.Challenge(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Answer(ctx, 1))

	a.mu.Lock()
	a.ticket.Consumed = true
	a.mu.Unlock()
	_, err = a.machine.Fire(ctx, evExecute)
	require.ErrorIs(t, err, ErrPathConsumed)
	assert.Equal(t, AwaitingPath, a.State(), "a rejected claim keeps the state")

	a.mu.Lock()
	a.ticket.Consumed = false
	a.mu.Unlock()
	to, err := a.machine.Fire(ctx, evExecute)
	require.NoError(t, err)
	assert.Equal(t, Executing, to)
	assert.True(t, a.Ticket().Consumed)
}

func TestExecute_FailureDoesNotRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Result
	}{
		{"business", businessErr(3001, "repeat purchase"), Failed},
		{"transport", transportErr(), Aborted},
		{"expired", expiredErr(), Aborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			b := &fakeBackend{path: "p", executeErr: tt.err}
			a := newAttempt(t, b, &fakeClock{})
			_, err := a.Challenge(ctx)
			require.NoError(t, err)

			out, err := a.Run(ctx, 1, DefaultPollOptions())
			var serr *StepError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, StepExecute, serr.Step)
			assert.Equal(t, tt.want, out.Result)
			assert.Len(t, b.executed, 1)
			assert.Zero(t, b.polls)
			require.ErrorIs(t, a.Execute(ctx), ErrPathConsumed)
		})
	}
}

func TestAwait_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		results   []pollResult
		max       int
		want      Result
		wantPolls int
		wantErr   bool
	}{
		{"purchased", []pollResult{{orderID: 9}}, 5, Purchased, 1, false},
		{"sold out", []pollResult{queuing(), {err: businessErr(dispatch.CodeSoldOut, "sold out")}}, 5, SoldOut, 2, false},
		{"business failure", []pollResult{{err: businessErr(5000, "boom")}}, 5, Failed, 1, true},
		{"expired", []pollResult{queuing(), {err: expiredErr()}}, 5, Aborted, 2, true},
		{"transport", []pollResult{{err: transportErr()}}, 5, Aborted, 1, true},
		{"bounded", []pollResult{queuing()}, 4, PendingExceeded, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			b := &fakeBackend{path: "p", results: tt.results}
			clock := &fakeClock{}
			a := newAttempt(t, b, clock)
			_, err := a.Challenge(ctx)
			require.NoError(t, err)

			out, err := a.Run(ctx, 1, PollOptions{Interval: time.Second, MaxAttempts: tt.max})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Result)
			assert.Equal(t, tt.wantPolls, out.Polls)
			assert.Equal(t, tt.wantPolls, b.polls)
			assert.Equal(t, tt.wantErr, out.Err != nil)
			assert.Equal(t, tt.wantPolls-1, clock.count())
			assert.Equal(t, Done, a.State())
		})
	}
}

func TestAwait_UnboundedStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := &fakeBackend{path: "p", results: []pollResult{queuing()}}
	b.onPoll = func(n int) {
		if n == 25 {
			cancel()
		}
	}
	a := newAttempt(t, b, &fakeClock{})
	_, err := a.Challenge(ctx)
	require.NoError(t, err)

	out, err := a.Run(ctx, 1, PollOptions{Interval: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, Aborted, out.Result)
	assert.Equal(t, 25, out.Polls)
}

func TestAbandon_BeforeExecuteEndsAttempt(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{path: "p"}
	a := newAttempt(t, b, &fakeClock{})
	_, err := a.Challenge(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Answer(ctx, 1))

	a.Abandon()
	assert.Equal(t, Done, a.State())
	out, ok := a.Outcome()
	require.True(t, ok)
	assert.Equal(t, Abandoned, out.Result)

	require.ErrorIs(t, a.Execute(ctx), ErrAbandoned)
	_, err = a.Challenge(ctx)
	require.ErrorIs(t, err, ErrAbandoned)
	assert.Empty(t, b.executed)
}

func TestAbandon_DuringPollingStopsLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()
	b := &fakeBackend{path: "p", results: []pollResult{queuing()}}
	a := newAttempt(t, b, RealClock{})
	b.onPoll = func(n int) {
		if n == 3 {
			a.Abandon()
		}
	}
	_, err := a.Challenge(ctx)
	require.NoError(t, err)

	out, err := a.Run(ctx, 1, PollOptions{Interval: time.Millisecond, MaxAttempts: 100})
	require.NoError(t, err)
	assert.Equal(t, Abandoned, out.Result)
	assert.Equal(t, 3, out.Polls)
	assert.Len(t, b.executed, 1)
}

func TestRealClock_Sleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, RealClock{}.Sleep(ctx, time.Millisecond))
	cancel()
	require.ErrorIs(t, RealClock{}.Sleep(ctx, time.Hour), context.Canceled)
}
