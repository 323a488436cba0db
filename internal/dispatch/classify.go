// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ManuGH/seckill/internal/profile"
)

// Notification texts.
const (
	MsgNetworkFailure = "network connection failed"
	MsgUnauthorized   = "not authorized, please log in"
	MsgNotFound       = "resource not found"
	MsgServerError    = "server error"
	MsgSessionExpired = "session expired, please log in again"
	MsgRequestFailed  = "request failed"
	MsgInvalidBody    = "invalid response body"
	MsgCanceled       = "request canceled"
)

// Effects are the side effects a classified response asks for. Each happens at
// most once per request.
type Effects struct {
	// Notify is the user-facing message; empty means no notification.
	Notify string
	// ClearSession drops the stored credentials.
	ClearSession bool
	// NavigateLogin moves the client to the login screen.
	NavigateLogin bool
}

// None reports whether no effect is requested.
func (e Effects) None() bool {
	return e == Effects{}
}

// Classify maps a raw response to an Outcome and the Effects to apply. It performs
// no I/O. transportErr non-nil means no response was received; status and body
// are ignored then. The profile only supplies the 403 wording.
func Classify(p profile.Profile, status int, body []byte, transportErr error) (Outcome, Effects) {
	if transportErr != nil {
		if errors.Is(transportErr, context.Canceled) {
			return Outcome{Kind: KindTransport, Message: MsgCanceled}, Effects{}
		}
		return Outcome{Kind: KindTransport, Message: MsgNetworkFailure}, Effects{Notify: MsgNetworkFailure}
	}

	switch status {
	case http.StatusOK:
		return classifyEnvelope(body)
	case http.StatusUnauthorized:
		return transport(status, MsgUnauthorized), Effects{Notify: MsgUnauthorized, NavigateLogin: true}
	case http.StatusForbidden:
		return transport(status, p.ForbiddenMessage), Effects{Notify: p.ForbiddenMessage}
	case http.StatusNotFound:
		return transport(status, MsgNotFound), Effects{Notify: MsgNotFound}
	case http.StatusInternalServerError:
		return transport(status, MsgServerError), Effects{Notify: MsgServerError}
	default:
		msg := fmt.Sprintf("request failed with status code %d", status)
		return transport(status, msg), Effects{Notify: msg}
	}
}

func classifyEnvelope(body []byte) (Outcome, Effects) {
	var env Envelope
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' || json.Unmarshal(trimmed, &env) != nil {
		return transport(http.StatusOK, MsgInvalidBody), Effects{Notify: MsgInvalidBody}
	}

	switch env.Code {
	case CodeSuccess:
		return Outcome{Kind: KindOK, Status: http.StatusOK, Code: env.Code, Message: env.Message, Envelope: env}, Effects{}
	case CodeUnauthorized, CodeLoginExpired:
		out := Outcome{Kind: KindSessionExpired, Status: http.StatusOK, Code: env.Code, Message: env.Message}
		return out, Effects{Notify: MsgSessionExpired, ClearSession: true, NavigateLogin: true}
	default:
		msg := env.Message
		if msg == "" {
			msg = MsgRequestFailed
		}
		out := Outcome{Kind: KindBusiness, Status: http.StatusOK, Code: env.Code, Message: env.Message}
		return out, Effects{Notify: msg}
	}
}

func transport(status int, msg string) Outcome {
	return Outcome{Kind: KindTransport, Status: status, Message: msg}
}
