// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package seckill

import (
	"context"

	"github.com/ManuGH/seckill/internal/fsm"
)

// State is the phase of a purchase attempt.
type State string

const (
	Idle            State = "idle"
	AwaitingCaptcha State = "awaiting_captcha"
	AwaitingPath    State = "awaiting_path"
	Executing       State = "executing"
	AwaitingResult  State = "awaiting_result"
	Done            State = "done"
)

type event string

const (
	evCaptchaIssued event = "captcha_issued"
	evPathIssued    event = "path_issued"
	evPathRejected  event = "path_rejected"
	evExecute       event = "execute"
	evAccepted      event = "accepted"
	evFinish        event = "finish"
	evAbandon       event = "abandon"
)

// transitions is the complete edge table of an attempt. Anything not listed is
// rejected by the machine. claimPath guards the execute edge: it consumes the
// ticket's path or rejects the transition.
func transitions(claimPath func(ctx context.Context, from State, ev event) error) []fsm.Transition[State, event] {
	return []fsm.Transition[State, event]{
		{From: Idle, Event: evCaptchaIssued, To: AwaitingCaptcha},
		{From: Idle, Event: evFinish, To: Done},
		{From: Idle, Event: evAbandon, To: Done},

		{From: AwaitingCaptcha, Event: evCaptchaIssued, To: AwaitingCaptcha},
		{From: AwaitingCaptcha, Event: evPathIssued, To: AwaitingPath},
		{From: AwaitingCaptcha, Event: evPathRejected, To: AwaitingCaptcha},
		{From: AwaitingCaptcha, Event: evFinish, To: Done},
		{From: AwaitingCaptcha, Event: evAbandon, To: Done},

		{From: AwaitingPath, Event: evExecute, To: Executing, Guard: claimPath},
		{From: AwaitingPath, Event: evAbandon, To: Done},

		{From: Executing, Event: evAccepted, To: AwaitingResult},
		{From: Executing, Event: evFinish, To: Done},

		{From: AwaitingResult, Event: evFinish, To: Done},
	}
}

// Result is the terminal classification of an attempt.
type Result string

const (
	Purchased       Result = "purchased"
	SoldOut         Result = "sold_out"
	Failed          Result = "failed"
	Aborted         Result = "aborted"
	Abandoned       Result = "abandoned"
	PendingExceeded Result = "pending_exceeded_max_attempts"
)

// Step names the protocol call an attempt was performing.
type Step string

const (
	StepCaptcha Step = "captcha"
	StepPath    Step = "path"
	StepExecute Step = "execute"
	StepResult  Step = "result"
)

// Outcome is the terminal state of an attempt.
type Outcome struct {
	Result Result
	// OrderID is set for Purchased.
	OrderID int64
	// Step is the step that produced the outcome.
	Step Step
	// Polls is the number of result polls issued.
	Polls int
	// Err describes failures; nil for Purchased and SoldOut.
	Err error
}
