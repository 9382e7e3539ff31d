// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package events

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

type recordingApplier struct {
	single chan StatusUpdate
	bulk   chan []StatusUpdate
}

func newRecordingApplier() *recordingApplier {
	return &recordingApplier{
		single: make(chan StatusUpdate, 8),
		bulk:   make(chan []StatusUpdate, 8),
	}
}

func (r *recordingApplier) ApplySingleUpdate(resource, id string, fields map[string]any) {
	r.single <- StatusUpdate{ID: id, Fields: fields}
}

func (r *recordingApplier) ApplyBulkUpdate(resource string, entries []StatusUpdate) {
	r.bulk <- entries
}

func TestRouter_DeliversPushMessages(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	applier := newRecordingApplier()
	router, err := NewRouter(bus, applier)
	if err != nil {
		t.Fatalf("Unexpected router error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = router.Run(ctx)
	}()
	select {
	case <-router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("Router did not start")
	}

	err = bus.Publish(Message{
		Kind:     KindSingleStatus,
		Resource: "service",
		Single:   &StatusUpdate{ID: "svc-1", Fields: map[string]any{"status": "up"}},
	})
	if err != nil {
		t.Fatalf("Unexpected publish error: %v", err)
	}

	select {
	case got := <-applier.single:
		if got.ID != "svc-1" {
			t.Errorf("Expected svc-1, got %q", got.ID)
		}
		if got.Fields["status"] != "up" {
			t.Errorf("Expected status field, got %v", got.Fields)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Single update never reached the applier")
	}

	err = bus.Publish(Message{
		Kind:     KindBulkList,
		Resource: "service",
		Bulk:     []StatusUpdate{{ID: "a"}, {ID: "b"}},
	})
	if err != nil {
		t.Fatalf("Unexpected publish error: %v", err)
	}

	select {
	case got := <-applier.bulk:
		if len(got) != 2 {
			t.Errorf("Expected 2 bulk entries, got %d", len(got))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Bulk update never reached the applier")
	}
}

func TestRouter_EmptyBulkListSurvivesBus(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	applier := newRecordingApplier()
	router, err := NewRouter(bus, applier)
	if err != nil {
		t.Fatalf("Unexpected router error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = router.Run(ctx)
	}()
	select {
	case <-router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("Router did not start")
	}

	// An empty monitor:list is an authoritative "nothing exists" replace.
	// The empty-vs-nil distinction must survive the bus round trip, or the
	// applier would treat the wipe as a malformed no-op.
	msg, err := Decode(Envelope{Event: "monitor:list", Payload: json.RawMessage(`[]`)})
	if err != nil {
		t.Fatalf("Unexpected decode error: %v", err)
	}
	if msg.Bulk == nil {
		t.Fatal("Expected decoded empty list to be non-nil")
	}

	if err := bus.Publish(msg); err != nil {
		t.Fatalf("Unexpected publish error: %v", err)
	}

	select {
	case got := <-applier.bulk:
		if got == nil {
			t.Fatal("Expected non-nil empty list after the bus round trip, got nil")
		}
		if len(got) != 0 {
			t.Errorf("Expected 0 bulk entries, got %d", len(got))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Bulk update never reached the applier")
	}
}

func TestRouter_SkipsNonCacheKinds(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	applier := newRecordingApplier()
	router, err := NewRouter(bus, applier)
	if err != nil {
		t.Fatalf("Unexpected router error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = router.Run(ctx)
	}()
	select {
	case <-router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("Router did not start")
	}

	if err := bus.Publish(Message{Kind: KindPong}); err != nil {
		t.Fatalf("Unexpected publish error: %v", err)
	}
	if err := bus.Publish(Message{
		Kind:     KindSingleStatus,
		Resource: "request",
		Single:   &StatusUpdate{ID: "req-1", Fields: map[string]any{}},
	}); err != nil {
		t.Fatalf("Unexpected publish error: %v", err)
	}

	// The pong must not produce an apply; the follow-up single proves the
	// handler is still alive and ordered.
	select {
	case got := <-applier.single:
		if got.ID != "req-1" {
			t.Errorf("Expected req-1 after skipped pong, got %q", got.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Handler stalled after non-cache message")
	}
}
