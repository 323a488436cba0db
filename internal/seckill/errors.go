// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package seckill

import (
	"errors"
	"fmt"

	"github.com/ManuGH/seckill/internal/dispatch"
)

var (
	// ErrPathConsumed is returned when Execute is called again for a ticket whose
	// path was already submitted. No request is sent.
	ErrPathConsumed = errors.New("seckill: execution path already consumed")
	// ErrInvalidState is returned when an operation is not allowed in the
	// current state.
	ErrInvalidState = errors.New("seckill: operation not allowed in current state")
	// ErrAbandoned is returned by operations on an abandoned attempt.
	ErrAbandoned = errors.New("seckill: attempt abandoned")
)

// StepError reports which protocol step failed and why.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("seckill %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Kind returns the dispatch outcome kind behind the failure, or "" when the
// failure did not come from a dispatched request.
func (e *StepError) Kind() dispatch.Kind {
	var de *dispatch.Error
	if errors.As(e.Err, &de) {
		return de.Kind
	}
	return ""
}
