// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus instruments of the seckill client.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seckill_dispatch_total",
		Help: "Dispatched API requests by app and classified outcome",
	}, []string{"app", "outcome"}) // outcome=ok|business_error|session_expired|transport_error

	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seckill_dispatch_duration_seconds",
		Help:    "Round-trip latency of dispatched API requests",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 15},
	}, []string{"app"})

	sessionCleared = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seckill_session_cleared_total",
		Help: "Credential store clears by reason",
	}, []string{"app", "reason"}) // reason=expired|role

	guardRedirects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seckill_guard_redirects_total",
		Help: "Navigations redirected by the route guard",
	}, []string{"app", "reason"}) // reason=login_required|admin_required|already_logged_in

	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seckill_attempts_total",
		Help: "Seckill attempts by terminal outcome",
	}, []string{"outcome"})

	resultPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seckill_result_polls_total",
		Help: "Result polls issued while awaiting an asynchronous purchase outcome",
	})
)

// RecordDispatch counts one classified request.
func RecordDispatch(app, outcome string, d time.Duration) {
	dispatchTotal.WithLabelValues(app, outcome).Inc()
	dispatchDuration.WithLabelValues(app).Observe(d.Seconds())
}

// RecordSessionCleared counts a credential store clear.
func RecordSessionCleared(app, reason string) {
	sessionCleared.WithLabelValues(app, reason).Inc()
}

// RecordGuardRedirect counts a guard redirect.
func RecordGuardRedirect(app, reason string) {
	guardRedirects.WithLabelValues(app, reason).Inc()
}

// RecordAttempt counts a terminal seckill outcome.
func RecordAttempt(outcome string) {
	attemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordResultPoll counts one result poll.
func RecordResultPoll() {
	resultPolls.Inc()
}

// WriteText writes every metric of the gatherer in the Prometheus text format.
// The CLI uses it to dump metrics at exit since it serves no /metrics endpoint.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
