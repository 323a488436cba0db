// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by the dispatcher and the seckill client.
const (
	AppKey          = "seckill.app"
	OutcomeKey      = "seckill.outcome"
	BusinessCodeKey = "seckill.business_code"
	GoodsIDKey      = "seckill.goods_id"
	AttemptIDKey    = "seckill.attempt_id"
	StepKey         = "seckill.step"
	PollsKey        = "seckill.polls"
)

// OutcomeAttributes describes a classified dispatch result.
func OutcomeAttributes(app, outcome string, code int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AppKey, app),
		attribute.String(OutcomeKey, outcome),
		attribute.Int(BusinessCodeKey, code),
	}
}

// AttemptAttributes identifies one purchase attempt.
func AttemptAttributes(attemptID string, goodsID int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttemptIDKey, attemptID),
		attribute.Int64(GoodsIDKey, goodsID),
	}
}
