// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

// Package events ingests offer interaction events: deduplication, fan-out
// over the in-process event bus, batched persistence to DuckDB, and funnel
// analytics over the persisted history.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/NandaKumar8776/scene-plus-engine/internal/logging"
	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

// TopicOfferEvents is the bus topic carrying accepted offer events.
const TopicOfferEvents = "offers.events"

// Bus is the in-process pub/sub for offer events. Consumers subscribe
// before the first publish; the gochannel transport drops messages with no
// subscribers unless persistence is enabled, so the bus turns it on.
type Bus struct {
	pubsub *gochannel.GoChannel
	mu     sync.Mutex
	closed bool
}

// NewBus creates the event bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 256,
				Persistent:          true,
			},
			newWatermillLogger(logging.With().Str("component", "eventbus").Logger()),
		),
	}
}

// Publish serializes an offer event onto the bus.
func (b *Bus) Publish(ctx context.Context, event *models.OfferEvent) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("event bus is closed")
	}
	b.mu.Unlock()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal offer event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.EventType))
	return b.pubsub.Publish(TopicOfferEvents, msg)
}

// Subscribe returns a channel of offer event messages. Ack or Nack every
// message, or the subscriber stalls.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, TopicOfferEvents)
}

// DecodeEvent unmarshals a bus message back into an offer event.
func DecodeEvent(msg *message.Message) (*models.OfferEvent, error) {
	var event models.OfferEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("unmarshal offer event: %w", err)
	}
	return &event, nil
}

// Close shuts down the bus. Pending subscribers see their channels closed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

// watermillLogger adapts zerolog to the watermill.LoggerAdapter interface.
type watermillLogger struct {
	logger zerolog.Logger
}

func newWatermillLogger(logger zerolog.Logger) watermill.LoggerAdapter {
	return &watermillLogger{logger: logger}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.logger.Error().Err(err), msg, fields)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(l.logger.Info(), msg, fields)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.logger.Debug(), msg, fields)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.logger.Trace(), msg, fields)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &watermillLogger{logger: ctx.Logger()}
}

func (l *watermillLogger) event(ev *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
