// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrSessionExpired = errors.New("dispatch: session expired")
	ErrTransport      = errors.New("dispatch: transport failure")
	ErrBusiness       = errors.New("dispatch: business error")
)

// Error is a rich error type that wraps the sentinel errors with context.
type Error struct {
	Kind    Kind
	Status  int
	Code    int
	Message string
	Method  string
	Path    string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Unwrap())
	if e.Status > 0 && e.Status != 200 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Kind == KindBusiness || e.Kind == KindSessionExpired {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	return msg
}

func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindSessionExpired:
		return ErrSessionExpired
	case KindBusiness:
		return ErrBusiness
	default:
		return ErrTransport
	}
}

// BusinessCode returns the business code carried by err, if it is a business error.
func BusinessCode(err error) (int, bool) {
	var de *Error
	if errors.As(err, &de) && de.Kind == KindBusiness {
		return de.Code, true
	}
	return 0, false
}
