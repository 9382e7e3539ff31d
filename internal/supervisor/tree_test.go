// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// blockingService runs until its context ends and counts starts.
type blockingService struct {
	starts atomic.Int32
}

func (s *blockingService) Serve(ctx context.Context) error {
	s.starts.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (s *blockingService) String() string { return "blocking-service" }

func TestDefaultTreeConfig(t *testing.T) {
	cfg := DefaultTreeConfig()

	if cfg.FailureThreshold != 5.0 {
		t.Errorf("Expected failure threshold 5.0, got %f", cfg.FailureThreshold)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected 10s shutdown timeout, got %v", cfg.ShutdownTimeout)
	}
}

func TestNewTree_AppliesDefaultsForZeroValues(t *testing.T) {
	tree := NewTree(slog.Default(), TreeConfig{})

	if tree.config.FailureThreshold != 5.0 {
		t.Errorf("Expected default failure threshold, got %f", tree.config.FailureThreshold)
	}
	if tree.config.FailureBackoff != 15*time.Second {
		t.Errorf("Expected default failure backoff, got %v", tree.config.FailureBackoff)
	}
}

func TestTree_RunsServicesUntilCancel(t *testing.T) {
	tree := NewTree(slog.Default(), DefaultTreeConfig())

	messaging := &blockingService{}
	api := &blockingService{}
	tree.AddMessagingService(messaging)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(3 * time.Second)
	for messaging.starts.Load() == 0 || api.starts.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for services to start")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for supervisor shutdown")
	}
}

func TestTree_RestartsFailedService(t *testing.T) {
	cfg := DefaultTreeConfig()
	cfg.FailureBackoff = 10 * time.Millisecond
	tree := NewTree(slog.Default(), cfg)

	svc := &flappingService{failUntil: 2}
	tree.AddMessagingService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tree.ServeBackground(ctx)

	deadline := time.After(3 * time.Second)
	for svc.starts.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("Timed out waiting for restarts, got %d starts", svc.starts.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// flappingService fails its first failUntil runs, then blocks.
type flappingService struct {
	starts    atomic.Int32
	failUntil int32
}

func (s *flappingService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	if n <= s.failUntil {
		return errForcedFailure
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *flappingService) String() string { return "flapping-service" }

var errForcedFailure = errors.New("forced failure")
