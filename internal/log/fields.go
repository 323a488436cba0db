// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldCorrelationID = "correlation_id"
	FieldAttemptID     = "attempt_id"
	FieldUserID        = "user_id"
	FieldApp           = "app"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldStep     = "step"

	// Request fields
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldCode     = "code"
	FieldOutcome  = "outcome"
	FieldDuration = "duration"
	FieldBaseURL  = "base_url"

	// Seckill fields
	FieldGoodsID = "goods_id"
	FieldOrderID = "order_id"
	FieldPoll    = "poll"
)
