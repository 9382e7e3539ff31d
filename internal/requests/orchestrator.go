// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package requests

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/medianest/medianest/internal/events"
	"github.com/medianest/medianest/internal/logging"
	"github.com/medianest/medianest/internal/metrics"
	"github.com/medianest/medianest/internal/ratelimit"
)

// User-facing messages. Upstream error text never reaches callers; the
// real error goes to the log with a correlation ID.
const (
	msgLimitReached = "You have reached your request limit. Please try again later."
	msgSubmitFailed = "Unable to submit your request right now. Please try again later."
)

// Submission describes one media request.
type Submission struct {
	MediaType string `json:"media_type"`
	MediaID   string `json:"media_id"`
	Title     string `json:"title,omitempty"`
	Seasons   []int  `json:"seasons,omitempty"`
}

// Submitter performs the actual upstream API call and returns the created
// request's ID. Implementations live at the API boundary; the orchestrator
// only decides whether and when to call it.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) (string, error)
}

// Invalidator drops cached entries under a key prefix. Implemented by
// cache.Store.
type Invalidator interface {
	Invalidate(prefix string) int
}

// Emitter is the realtime side of a successful submission. Implemented by
// realtime.Manager; nil disables the subscription side effect.
type Emitter interface {
	Emit(event string, payload any)
	IsConnected() bool
}

// OutcomeKind classifies a submission result.
type OutcomeKind string

const (
	// OutcomeRejected means admission control denied the submission
	// before any upstream call.
	OutcomeRejected OutcomeKind = "rejected"

	// OutcomeFailed means the upstream call was attempted and failed.
	OutcomeFailed OutcomeKind = "failed"

	OutcomeSucceeded OutcomeKind = "succeeded"
)

// Outcome is the full result of one submission attempt. Message is always
// safe to display verbatim.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	RequestID string      `json:"request_id,omitempty"`
	Remaining int         `json:"remaining"`
	Message   string      `json:"message,omitempty"`

	// ResetAt is when the next admission slot frees up; meaningful only
	// when ResetKnown is true.
	ResetAt    time.Time `json:"reset_at"`
	ResetKnown bool      `json:"reset_known"`
}

// Quota is the current admission budget, for display.
type Quota struct {
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	ResetKnown bool      `json:"reset_known"`
}

// Orchestrator coordinates one submission end to end. Concurrent Submit
// calls are independent; shared state lives in the limiter and the cache,
// which synchronize themselves.
type Orchestrator struct {
	limiter   *ratelimit.Limiter
	submitter Submitter
	cache     Invalidator
	realtime  Emitter

	breaker *gobreaker.CircuitBreaker[string]
}

// NewOrchestrator wires the submission pipeline. realtime may be nil when
// no push connection is available; the subscription side effect is then
// skipped entirely.
func NewOrchestrator(limiter *ratelimit.Limiter, submitter Submitter, cache Invalidator, realtime Emitter) *Orchestrator {
	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "request-api",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			logging.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &Orchestrator{
		limiter:   limiter,
		submitter: submitter,
		cache:     cache,
		realtime:  realtime,
		breaker:   breaker,
	}
}

// Submit runs one submission attempt. It never returns an error: every
// result, including upstream failure, is a typed Outcome with a
// display-safe message.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission) Outcome {
	start := time.Now()
	defer func() {
		metrics.SubmissionDuration.Observe(time.Since(start).Seconds())
	}()

	correlationID := logging.GenerateCorrelationID()
	log := logging.Logger().With().
		Str("correlation_id", correlationID).
		Str("media_type", sub.MediaType).
		Str("media_id", sub.MediaID).
		Logger()

	if !o.limiter.CanRequest() {
		metrics.AdmissionDecisions.WithLabelValues("denied").Inc()
		metrics.Submissions.WithLabelValues(string(OutcomeRejected)).Inc()
		log.Info().Msg("submission rejected by admission control")

		resetAt, ok := o.limiter.ResetTime()
		return Outcome{
			Kind:       OutcomeRejected,
			Remaining:  0,
			Message:    msgLimitReached,
			ResetAt:    resetAt,
			ResetKnown: ok,
		}
	}
	metrics.AdmissionDecisions.WithLabelValues("allowed").Inc()

	id, err := o.breaker.Execute(func() (string, error) {
		return o.submitter.Submit(ctx, sub)
	})
	if err != nil {
		metrics.Submissions.WithLabelValues(string(OutcomeFailed)).Inc()
		log.Error().Err(err).Msg("submission failed upstream")

		return Outcome{
			Kind:      OutcomeFailed,
			Remaining: o.limiter.RemainingRequests(),
			Message:   msgSubmitFailed,
		}
	}

	// The admission slot is consumed only by a confirmed success. A
	// failed persist is logged but does not fail the submission the user
	// already made.
	if err := o.limiter.TrackRequest(); err != nil {
		log.Warn().Err(err).Msg("failed to persist admission ledger entry")
	}

	o.cache.Invalidate("request")

	if o.realtime != nil && o.realtime.IsConnected() {
		o.realtime.Emit(events.SubscribeEvent("request"), map[string]string{"id": id})
	}

	metrics.Submissions.WithLabelValues(string(OutcomeSucceeded)).Inc()
	log.Info().Str("request_id", id).Msg("submission succeeded")

	resetAt, ok := o.limiter.ResetTime()
	return Outcome{
		Kind:       OutcomeSucceeded,
		RequestID:  id,
		Remaining:  o.limiter.RemainingRequests(),
		ResetAt:    resetAt,
		ResetKnown: ok,
	}
}

// CurrentQuota returns the admission budget as of now.
func (o *Orchestrator) CurrentQuota() Quota {
	resetAt, ok := o.limiter.ResetTime()
	return Quota{
		Limit:      o.limiter.Limit(),
		Remaining:  o.limiter.RemainingRequests(),
		ResetAt:    resetAt,
		ResetKnown: ok,
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}
