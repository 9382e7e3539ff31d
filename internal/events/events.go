// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package events

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Outbound event names.
const (
	EventLogin          = "login"
	EventPing           = "ping"
	EventRequestRefresh = "request:refresh"

	// subscribePrefix scopes a subscription to one resource kind,
	// e.g. "subscribe:request".
	subscribePrefix   = "subscribe:"
	unsubscribePrefix = "unsubscribe:"
)

// SubscribeEvent returns the outbound event name that opens a
// resource-scoped subscription ("subscribe:<resourceKind>").
func SubscribeEvent(resource string) string {
	return subscribePrefix + resource
}

// UnsubscribeEvent returns the outbound event name that closes a
// resource-scoped subscription.
func UnsubscribeEvent(resource string) string {
	return unsubscribePrefix + resource
}

// Kind identifies one inbound message shape.
type Kind string

const (
	// KindSingleStatus is a partial update for one entity
	// ("service:status", "request:status", "connection:status").
	KindSingleStatus Kind = "single_status"

	// KindBulkList is a wholesale replacement of a resource slice
	// ("monitor:list").
	KindBulkList Kind = "bulk_list"

	// KindSubscribeAck acknowledges a subscribe/unsubscribe request
	// ("subscribe:status", "unsubscribe:status").
	KindSubscribeAck Kind = "subscribe_ack"

	// KindPong answers a quality probe.
	KindPong Kind = "pong"
)

// Decode errors. Consumers treat both as "drop this frame"; they are
// distinguished only for metrics.
var (
	ErrMalformed    = errors.New("malformed payload")
	ErrUnknownEvent = errors.New("unknown event")
)

// Envelope is the wire frame.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EncodeEnvelope builds a wire frame for an outbound message.
func EncodeEnvelope(event string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		raw = data
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}

// DecodeEnvelope parses a wire frame. The payload stays raw; use Decode to
// produce a typed Message.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: empty event name", ErrMalformed)
	}
	return env, nil
}

// StatusUpdate is one entity's partial state as pushed by the backend.
// Fields holds every payload key except "id"; the cache engine decides
// which of them it understands.
type StatusUpdate struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// SubscribeAck reports the backend's answer to a subscription request.
type SubscribeAck struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// Message is the closed union of inbound message kinds. Exactly one of the
// kind-specific fields is set, matching Kind.
//
// Bulk must not carry omitempty: an authoritative empty list ([]) and an
// absent list (null) are different values, and the distinction has to
// survive serialization across the bus.
type Message struct {
	Kind     Kind           `json:"kind"`
	Resource string         `json:"resource,omitempty"`
	Single   *StatusUpdate  `json:"single,omitempty"`
	Bulk     []StatusUpdate `json:"bulk"`
	Ack      *SubscribeAck  `json:"ack,omitempty"`
}

// Decode validates an inbound envelope into a typed Message.
//
// Returns ErrUnknownEvent for event names outside the contract and
// ErrMalformed for payloads that cannot satisfy their kind's minimum shape
// (a single update without an entity ID, a bulk list that is not a list).
// Partial damage inside an otherwise well-shaped payload is preserved and
// left to the cache engine's best-effort merge.
func Decode(env Envelope) (Message, error) {
	switch {
	case env.Event == "monitor:list":
		return decodeBulk("service", env.Payload)

	case env.Event == "subscribe:status":
		return decodeAck(env.Payload)

	case env.Event == "unsubscribe:status":
		return decodeAck(env.Payload)

	case env.Event == "pong":
		return Message{Kind: KindPong}, nil

	case strings.HasSuffix(env.Event, ":status"):
		resource := strings.TrimSuffix(env.Event, ":status")
		if resource == "" {
			return Message{}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
		}
		return decodeSingle(resource, env.Payload)

	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

// decodeSingle parses a per-entity partial update.
func decodeSingle(resource string, payload json.RawMessage) (Message, error) {
	fields := map[string]any{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &fields); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	id, _ := fields["id"].(string)
	if id == "" {
		return Message{}, fmt.Errorf("%w: missing entity id", ErrMalformed)
	}
	delete(fields, "id")

	return Message{
		Kind:     KindSingleStatus,
		Resource: resource,
		Single:   &StatusUpdate{ID: id, Fields: fields},
	}, nil
}

// decodeBulk parses a wholesale list replacement. A payload that is not a
// JSON array is malformed; entries without an ID are skipped rather than
// failing the whole list.
func decodeBulk(resource string, payload json.RawMessage) (Message, error) {
	// A null or absent payload is "not a list", not "replace with nothing".
	// Only a real array may wipe the collection slice.
	if len(payload) == 0 || string(payload) == "null" {
		return Message{}, fmt.Errorf("%w: bulk payload is not a list", ErrMalformed)
	}

	var raw []map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	entries := make([]StatusUpdate, 0, len(raw))
	for _, fields := range raw {
		if fields == nil {
			continue
		}
		id, _ := fields["id"].(string)
		if id == "" {
			continue
		}
		delete(fields, "id")
		entries = append(entries, StatusUpdate{ID: id, Fields: fields})
	}

	return Message{Kind: KindBulkList, Resource: resource, Bulk: entries}, nil
}

func decodeAck(payload json.RawMessage) (Message, error) {
	var ack SubscribeAck
	if err := json.Unmarshal(payload, &ack); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Message{Kind: KindSubscribeAck, Resource: ack.Resource, Ack: &ack}, nil
}
