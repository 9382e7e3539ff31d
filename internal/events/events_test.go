// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package events

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func TestDecodeEnvelope_RoundTrip(t *testing.T) {
	data, err := EncodeEnvelope("request:refresh", map[string]string{"id": "mon-1"})
	if err != nil {
		t.Fatalf("Unexpected encode error: %v", err)
	}

	env, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("Unexpected decode error: %v", err)
	}
	if env.Event != "request:refresh" {
		t.Errorf("Expected event request:refresh, got %q", env.Event)
	}
}

func TestDecodeEnvelope_Malformed(t *testing.T) {
	if _, err := DecodeEnvelope([]byte("{not json")); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed, got %v", err)
	}
	if _, err := DecodeEnvelope([]byte(`{"payload":{}}`)); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed for empty event, got %v", err)
	}
}

func TestDecode_SingleStatus(t *testing.T) {
	env := Envelope{
		Event:   "service:status",
		Payload: json.RawMessage(`{"id":"svc-1","status":"up","latency_ms":42}`),
	}

	msg, err := Decode(env)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if msg.Kind != KindSingleStatus {
		t.Fatalf("Expected single status, got %q", msg.Kind)
	}
	if msg.Resource != "service" {
		t.Errorf("Expected resource service, got %q", msg.Resource)
	}
	if msg.Single.ID != "svc-1" {
		t.Errorf("Expected id svc-1, got %q", msg.Single.ID)
	}
	if _, ok := msg.Single.Fields["id"]; ok {
		t.Error("Expected id stripped from fields")
	}
	if msg.Single.Fields["status"] != "up" {
		t.Errorf("Expected status field preserved, got %v", msg.Single.Fields["status"])
	}
}

func TestDecode_SingleStatusMissingID(t *testing.T) {
	env := Envelope{Event: "service:status", Payload: json.RawMessage(`{"status":"up"}`)}
	if _, err := Decode(env); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed without id, got %v", err)
	}
}

func TestDecode_BulkList(t *testing.T) {
	env := Envelope{
		Event:   "monitor:list",
		Payload: json.RawMessage(`[{"id":"a","status":"up"},{"status":"orphan"},null,{"id":"b","status":"down"}]`),
	}

	msg, err := Decode(env)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if msg.Kind != KindBulkList {
		t.Fatalf("Expected bulk list, got %q", msg.Kind)
	}
	if len(msg.Bulk) != 2 {
		t.Fatalf("Expected 2 valid entries (idless and null skipped), got %d", len(msg.Bulk))
	}
	if msg.Bulk[0].ID != "a" || msg.Bulk[1].ID != "b" {
		t.Errorf("Expected order preserved, got %q %q", msg.Bulk[0].ID, msg.Bulk[1].ID)
	}
}

func TestDecode_BulkListNonList(t *testing.T) {
	for _, payload := range []string{`null`, ``, `{"id":"a"}`, `"nope"`} {
		env := Envelope{Event: "monitor:list", Payload: json.RawMessage(payload)}
		msg, err := Decode(env)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("Expected ErrMalformed for non-list payload %q, got %v (%+v)", payload, err, msg)
		}
	}
}

func TestDecode_SubscribeAck(t *testing.T) {
	env := Envelope{
		Event:   "subscribe:status",
		Payload: json.RawMessage(`{"resource":"request","id":"req-9","ok":true}`),
	}

	msg, err := Decode(env)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if msg.Kind != KindSubscribeAck || !msg.Ack.OK || msg.Ack.ID != "req-9" {
		t.Errorf("Unexpected ack decode: %+v", msg)
	}
}

func TestDecode_UnknownEvent(t *testing.T) {
	for _, event := range []string{"bogus", ":status", "login"} {
		if _, err := Decode(Envelope{Event: event}); !errors.Is(err, ErrUnknownEvent) {
			t.Errorf("Expected ErrUnknownEvent for %q, got %v", event, err)
		}
	}
}

func TestSubscribeEvent(t *testing.T) {
	if got := SubscribeEvent("request"); got != "subscribe:request" {
		t.Errorf("Expected subscribe:request, got %q", got)
	}
	if got := UnsubscribeEvent("request"); got != "unsubscribe:request" {
		t.Errorf("Expected unsubscribe:request, got %q", got)
	}
}
