// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package dispatch sends every API request of the client. It attaches the bearer
// credential, classifies each response into an Outcome and resolves the
// session-related side effects (notification, credential clearing, navigation to
// the login screen) before control returns to the caller.
package dispatch

import (
	"encoding/json"
	"fmt"
)

// Kind is the variant of an Outcome.
type Kind string

const (
	KindOK             Kind = "ok"
	KindBusiness       Kind = "business_error"
	KindSessionExpired Kind = "session_expired"
	KindTransport      Kind = "transport_error"
)

// Business codes the client interprets. Every other code is endpoint specific.
const (
	CodeSuccess      = 200
	CodeUnauthorized = 401
	CodeLoginExpired = 1005
	CodeSoldOut      = 3004
	CodeRateLimited  = 3005
	CodePathInvalid  = 3006
	CodeCaptchaWrong = 3007
	CodeQueuing      = 3008
)

// Envelope is the JSON body every endpoint answers with.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Outcome is the classified result of one request.
type Outcome struct {
	Kind Kind
	// Status is the HTTP status, 0 when no response arrived.
	Status int
	// Code is the business code of the envelope (0 when none was decoded).
	Code    int
	Message string
	// Envelope is the decoded body for KindOK.
	Envelope Envelope

	Method string
	Path   string
}

// OK reports whether the request succeeded.
func (o Outcome) OK() bool {
	return o.Kind == KindOK
}

// Decode unmarshals the envelope data into v. Non-OK outcomes return Err().
// A missing or null data field leaves v untouched.
func (o Outcome) Decode(v any) error {
	if !o.OK() {
		return o.Err()
	}
	if len(o.Envelope.Data) == 0 || v == nil {
		return nil
	}
	if err := json.Unmarshal(o.Envelope.Data, v); err != nil {
		return fmt.Errorf("dispatch: decode %s %s data: %w", o.Method, o.Path, err)
	}
	return nil
}

// Err converts a non-OK outcome into an *Error. It returns nil for KindOK.
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	return &Error{
		Kind:    o.Kind,
		Status:  o.Status,
		Code:    o.Code,
		Message: o.Message,
		Method:  o.Method,
		Path:    o.Path,
	}
}
