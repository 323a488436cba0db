// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package audit records security-relevant client actions: logins, logouts,
// admin mutations and purchase outcomes. It follows the WHO/WHAT/WHEN pattern.
package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/ManuGH/seckill/internal/log"
	"github.com/rs/zerolog"
)

// EventType represents the type of audit event.
type EventType string

const (
	// Authentication events
	EventLoginSuccess EventType = "auth.login.success"
	EventLoginFailure EventType = "auth.login.failure"
	EventLogout       EventType = "auth.logout"

	// Admin events
	EventAdminMutation EventType = "admin.mutation"

	// Purchase events
	EventPurchase EventType = "seckill.purchase"
)

// Results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDenied  = "denied"
)

// Event represents a structured audit event.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	Actor     string            `json:"actor"`             // WHO: username or phone
	Action    string            `json:"action"`            // WHAT: human-readable action description
	Resource  string            `json:"resource"`          // API path or screen affected
	Result    string            `json:"result"`            // success, failure, denied
	RequestID string            `json:"request_id"`        // Correlation ID
	Details   map[string]string `json:"details,omitempty"` // Additional context
}

// Logger provides audit logging functionality.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new audit logger with a dedicated "audit" component.
func NewLogger() *Logger {
	return NewLoggerWith(log.WithComponent("audit"))
}

// NewLoggerWith writes audit events to base.
func NewLoggerWith(base zerolog.Logger) *Logger {
	return &Logger{logger: base.With().Str("log_type", "audit").Logger()}
}

// Nop discards every event.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// Log writes an audit event to the audit log.
func (l *Logger) Log(event Event) {
	if l == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	logEvent := l.logger.Info().
		Time("timestamp", event.Timestamp).
		Str("event_type", string(event.Type)).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("resource", event.Resource).
		Str("result", event.Result)

	if event.RequestID != "" {
		logEvent.Str("request_id", event.RequestID)
	}
	for key, value := range event.Details {
		logEvent.Str(key, value)
	}
	logEvent.Msg("audit event")
}

// LogFromContext logs an audit event, taking the correlation id from ctx.
func (l *Logger) LogFromContext(ctx context.Context, event Event) {
	if event.RequestID == "" {
		event.RequestID = log.CorrelationIDFromContext(ctx)
	}
	l.Log(event)
}

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, app, username string, userID int64) {
	l.LogFromContext(ctx, Event{
		Type:     EventLoginSuccess,
		Actor:    username,
		Action:   "logged in",
		Resource: "/user/login",
		Result:   ResultSuccess,
		Details: map[string]string{
			"app":     app,
			"user_id": strconv.FormatInt(userID, 10),
		},
	})
}

// LoginFailure logs a rejected login. The phone number is masked.
func (l *Logger) LoginFailure(ctx context.Context, app, phone, reason string) {
	l.LogFromContext(ctx, Event{
		Type:     EventLoginFailure,
		Actor:    MaskPhone(phone),
		Action:   "login failed",
		Resource: "/user/login",
		Result:   ResultFailure,
		Details: map[string]string{
			"app":    app,
			"reason": reason,
		},
	})
}

// Logout logs an explicit logout.
func (l *Logger) Logout(ctx context.Context, app, username string) {
	l.LogFromContext(ctx, Event{
		Type:     EventLogout,
		Actor:    username,
		Action:   "logged out",
		Resource: "/user/logout",
		Result:   ResultSuccess,
		Details:  map[string]string{"app": app},
	})
}

// AdminMutation logs an admin write (goods add/update/delete, stock reset).
func (l *Logger) AdminMutation(ctx context.Context, username, action, resource string, err error) {
	event := Event{
		Type:     EventAdminMutation,
		Actor:    username,
		Action:   action,
		Resource: resource,
		Result:   ResultSuccess,
	}
	if err != nil {
		event.Result = ResultFailure
		event.Details = map[string]string{"error": err.Error()}
	}
	l.LogFromContext(ctx, event)
}

// Purchase logs the terminal outcome of a seckill attempt.
func (l *Logger) Purchase(ctx context.Context, username string, seckillGoodsID int64, outcome string, orderID int64) {
	result := ResultFailure
	if orderID > 0 {
		result = ResultSuccess
	}
	l.LogFromContext(ctx, Event{
		Type:     EventPurchase,
		Actor:    username,
		Action:   "seckill purchase",
		Resource: "/seckill/" + strconv.FormatInt(seckillGoodsID, 10),
		Result:   result,
		Details: map[string]string{
			"outcome":  outcome,
			"order_id": strconv.FormatInt(orderID, 10),
		},
	})
}

// MaskPhone keeps the first three and last two digits.
func MaskPhone(phone string) string {
	if len(phone) <= 5 {
		return "***"
	}
	return phone[:3] + "***" + phone[len(phone)-2:]
}
