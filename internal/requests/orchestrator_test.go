// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package requests

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/medianest/medianest/internal/ratelimit"
)

type memStore struct {
	mu     sync.Mutex
	ledger ratelimit.Ledger
}

func (m *memStore) Load() ratelimit.Ledger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append(ratelimit.Ledger{}, m.ledger...)
}

func (m *memStore) Save(l ratelimit.Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger = append(ratelimit.Ledger{}, l...)
	return nil
}

type fakeSubmitter struct {
	mu    sync.Mutex
	calls int
	id    string
	err   error
}

func (f *fakeSubmitter) Submit(ctx context.Context, sub Submission) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.id, f.err
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCache struct {
	mu       sync.Mutex
	prefixes []string
}

func (f *fakeCache) Invalidate(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes = append(f.prefixes, prefix)
	return 1
}

func (f *fakeCache) invalidations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.prefixes...)
}

type fakeEmitter struct {
	connected bool

	mu     sync.Mutex
	events []string
}

func (f *fakeEmitter) Emit(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeEmitter) IsConnected() bool { return f.connected }

func (f *fakeEmitter) emitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.events...)
}

func newTestLimiter(limit int) *ratelimit.Limiter {
	return ratelimit.NewLimiter(&memStore{}, limit, time.Hour)
}

func TestSubmit_Succeeded(t *testing.T) {
	submitter := &fakeSubmitter{id: "req-42"}
	cache := &fakeCache{}
	emitter := &fakeEmitter{connected: true}
	limiter := newTestLimiter(5)

	o := NewOrchestrator(limiter, submitter, cache, emitter)
	outcome := o.Submit(context.Background(), Submission{MediaType: "movie", MediaID: "m-1"})

	if outcome.Kind != OutcomeSucceeded {
		t.Fatalf("Expected succeeded, got %s (%s)", outcome.Kind, outcome.Message)
	}
	if outcome.RequestID != "req-42" {
		t.Errorf("Expected request ID req-42, got %q", outcome.RequestID)
	}
	if outcome.Remaining != 4 {
		t.Errorf("Expected 4 remaining after one admission, got %d", outcome.Remaining)
	}
	if got := cache.invalidations(); len(got) != 1 || got[0] != "request" {
		t.Errorf("Expected one invalidation of the request prefix, got %v", got)
	}
	if got := emitter.emitted(); len(got) != 1 || got[0] != "subscribe:request" {
		t.Errorf("Expected subscribe:request emit, got %v", got)
	}
}

func TestSubmit_RejectedBeforeUpstreamCall(t *testing.T) {
	submitter := &fakeSubmitter{id: "req-1"}
	cache := &fakeCache{}
	limiter := newTestLimiter(1)

	o := NewOrchestrator(limiter, submitter, cache, nil)
	ctx := context.Background()

	if outcome := o.Submit(ctx, Submission{MediaType: "movie", MediaID: "m-1"}); outcome.Kind != OutcomeSucceeded {
		t.Fatalf("Expected first submission to succeed, got %s", outcome.Kind)
	}

	outcome := o.Submit(ctx, Submission{MediaType: "movie", MediaID: "m-2"})

	if outcome.Kind != OutcomeRejected {
		t.Fatalf("Expected rejection at limit, got %s", outcome.Kind)
	}
	if outcome.Remaining != 0 {
		t.Errorf("Expected 0 remaining, got %d", outcome.Remaining)
	}
	if !outcome.ResetKnown {
		t.Error("Expected a known reset time for a full window")
	}
	if outcome.Message == "" {
		t.Error("Expected a display-safe rejection message")
	}
	if submitter.callCount() != 1 {
		t.Errorf("Expected no upstream call for a rejected submission, got %d calls", submitter.callCount())
	}
	if got := cache.invalidations(); len(got) != 1 {
		t.Errorf("Expected only the first submission's invalidation, got %v", got)
	}
}

func TestSubmit_UpstreamFailureIsSanitized(t *testing.T) {
	upstream := errors.New("500 Internal Server Error: stack trace at handler.py:217")
	submitter := &fakeSubmitter{err: upstream}
	cache := &fakeCache{}
	limiter := newTestLimiter(5)

	o := NewOrchestrator(limiter, submitter, cache, nil)
	outcome := o.Submit(context.Background(), Submission{MediaType: "tv", MediaID: "t-1"})

	if outcome.Kind != OutcomeFailed {
		t.Fatalf("Expected failed outcome, got %s", outcome.Kind)
	}
	if strings.Contains(outcome.Message, "handler.py") || strings.Contains(outcome.Message, "500") {
		t.Errorf("Expected upstream error text suppressed, got %q", outcome.Message)
	}
	if outcome.Message == "" {
		t.Error("Expected a display-safe failure message")
	}
	if outcome.Remaining != 5 {
		t.Errorf("Expected no admission consumed on failure, got %d remaining", outcome.Remaining)
	}
	if len(cache.invalidations()) != 0 {
		t.Error("Expected cache untouched by a failed submission")
	}
}

func TestSubmit_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	submitter := &fakeSubmitter{err: errors.New("connection refused")}
	limiter := newTestLimiter(100)

	o := NewOrchestrator(limiter, submitter, &fakeCache{}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if outcome := o.Submit(ctx, Submission{MediaID: "m-1"}); outcome.Kind != OutcomeFailed {
			t.Fatalf("Expected failure %d, got %s", i+1, outcome.Kind)
		}
	}
	callsBeforeOpen := submitter.callCount()

	outcome := o.Submit(ctx, Submission{MediaID: "m-1"})
	if outcome.Kind != OutcomeFailed {
		t.Fatalf("Expected fast failure with open breaker, got %s", outcome.Kind)
	}
	if submitter.callCount() != callsBeforeOpen {
		t.Errorf("Expected open breaker to short-circuit the upstream call, got %d calls", submitter.callCount())
	}
}

func TestSubmit_NoEmitWhileDisconnected(t *testing.T) {
	submitter := &fakeSubmitter{id: "req-7"}
	emitter := &fakeEmitter{connected: false}

	o := NewOrchestrator(newTestLimiter(5), submitter, &fakeCache{}, emitter)
	outcome := o.Submit(context.Background(), Submission{MediaID: "m-1"})

	if outcome.Kind != OutcomeSucceeded {
		t.Fatalf("Expected success, got %s", outcome.Kind)
	}
	if got := emitter.emitted(); len(got) != 0 {
		t.Errorf("Expected no emit while disconnected, got %v", got)
	}
}

func TestSubmit_ConcurrentSubmissionsAreIndependent(t *testing.T) {
	submitter := &fakeSubmitter{id: "req-c"}
	limiter := newTestLimiter(10)

	o := NewOrchestrator(limiter, submitter, &fakeCache{}, nil)

	var wg sync.WaitGroup
	outcomes := make(chan Outcome, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes <- o.Submit(context.Background(), Submission{MediaID: "m-1"})
		}()
	}
	wg.Wait()
	close(outcomes)

	succeeded := 0
	for outcome := range outcomes {
		if outcome.Kind == OutcomeSucceeded {
			succeeded++
		}
	}
	if succeeded != 10 {
		t.Errorf("Expected all 10 concurrent submissions to succeed, got %d", succeeded)
	}
	if o.CurrentQuota().Remaining != 0 {
		t.Errorf("Expected 0 remaining after 10 admissions, got %d", o.CurrentQuota().Remaining)
	}
}

func TestCurrentQuota(t *testing.T) {
	o := NewOrchestrator(newTestLimiter(3), &fakeSubmitter{id: "r"}, &fakeCache{}, nil)

	q := o.CurrentQuota()
	if q.Limit != 3 || q.Remaining != 3 {
		t.Errorf("Expected fresh quota 3/3, got %d/%d", q.Remaining, q.Limit)
	}
	if q.ResetKnown {
		t.Error("Expected no reset time for an empty window")
	}

	o.Submit(context.Background(), Submission{MediaID: "m-1"})

	q = o.CurrentQuota()
	if q.Remaining != 2 {
		t.Errorf("Expected 2 remaining, got %d", q.Remaining)
	}
	if !q.ResetKnown {
		t.Error("Expected a known reset time once the window has entries")
	}
}
