// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/medianest/medianest/internal/logging"
)

// TopicPush carries decoded push messages from the transport to the cache
// engine. One topic, one subscriber: ordering on the channel matches the
// order the transport yielded the frames.
const TopicPush = "push.messages"

// Bus is the in-process pub/sub bridge between the connection manager and
// the cache synchronization engine. It wraps a Watermill gochannel Pub/Sub,
// so the routing model stays broker-shaped without requiring a broker.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates the in-process bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 256},
			NewWatermillLogger(),
		),
	}
}

// Publish serializes a decoded Message onto the push topic.
func (b *Bus) Publish(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return b.pubsub.Publish(TopicPush, message.NewMessage(watermill.NewUUID(), payload))
}

// Subscriber exposes the underlying subscriber for router wiring.
func (b *Bus) Subscriber() message.Subscriber {
	return b.pubsub
}

// Close shuts the bus down; pending deliveries are dropped, matching the
// at-most-once contract of push notifications.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Applier is the cache-engine side of the bus. Implemented by
// cachesync.Engine.
type Applier interface {
	ApplySingleUpdate(resource, id string, fields map[string]any)
	ApplyBulkUpdate(resource string, entries []StatusUpdate)
}

// NewRouter builds a Watermill router that drains the push topic into the
// applier. Handler errors are never returned upward: a message that cannot
// be applied is logged and dropped so one bad frame cannot wedge the
// pipeline.
func NewRouter(bus *Bus, applier Applier) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, NewWatermillLogger())
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	router.AddNoPublisherHandler(
		"cache-sync",
		TopicPush,
		bus.Subscriber(),
		func(wmsg *message.Message) error {
			var msg Message
			if err := json.Unmarshal(wmsg.Payload, &msg); err != nil {
				logging.Warn().Err(err).Msg("dropping undecodable bus message")
				return nil
			}

			switch msg.Kind {
			case KindSingleStatus:
				if msg.Single != nil {
					applier.ApplySingleUpdate(msg.Resource, msg.Single.ID, msg.Single.Fields)
				}
			case KindBulkList:
				applier.ApplyBulkUpdate(msg.Resource, msg.Bulk)
			case KindSubscribeAck, KindPong:
				// Handled at the transport layer; nothing to apply.
			}
			return nil
		},
	)

	return router, nil
}

// watermillLogger adapts the global zerolog logger to Watermill's
// LoggerAdapter interface.
type watermillLogger struct {
	fields watermill.LogFields
}

// NewWatermillLogger returns a watermill.LoggerAdapter backed by the
// MediaNest global logger.
func NewWatermillLogger() watermill.LoggerAdapter {
	return &watermillLogger{}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(logging.Error().Err(err), fields).Msg(msg)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(logging.Debug(), fields).Msg(msg) // watermill is chatty; demote to debug
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(logging.Debug(), fields).Msg(msg)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(logging.Trace(), fields).Msg(msg)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{fields: l.fields.Add(fields)}
}

func (l *watermillLogger) event(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range l.fields {
		e = e.Interface(k, v)
	}
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}
