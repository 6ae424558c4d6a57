// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NandaKumar8776/scene-plus-engine/internal/logging"
	"github.com/NandaKumar8776/scene-plus-engine/internal/metrics"
	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

// Recorder is the ingest path for offer events: deduplicate, buffer for
// persistence, and fan out on the bus. Dedup runs first so a retried
// request neither double counts in analytics nor re-notifies subscribers.
type Recorder struct {
	deduper  Deduper
	appender *Appender
	bus      *Bus
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewRecorder wires the ingest path. bus may be nil when no subscribers
// exist (tests, batch tools).
func NewRecorder(deduper Deduper, appender *Appender, bus *Bus, ttl time.Duration) *Recorder {
	return &Recorder{
		deduper:  deduper,
		appender: appender,
		bus:      bus,
		ttl:      ttl,
		logger:   logging.With().Str("component", "event_recorder").Logger(),
	}
}

// Record ingests one offer event. A missing event ID gets a generated one;
// a missing timestamp gets the current time. Returns ErrDuplicateEvent for
// a repeat within the dedup TTL.
func (r *Recorder) Record(ctx context.Context, event models.OfferEvent) (models.OfferEvent, error) {
	if !event.EventType.Valid() {
		return event, fmt.Errorf("unknown event type %q", event.EventType)
	}
	if !event.OfferType.Valid() {
		return event, fmt.Errorf("unknown offer type %q", event.OfferType)
	}
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := r.deduper.CheckAndStore(ctx, event.EventID, r.ttl); err != nil {
		return event, err
	}
	if err := r.appender.Append(ctx, event); err != nil {
		return event, fmt.Errorf("buffer event: %w", err)
	}
	if r.bus != nil {
		if err := r.bus.Publish(ctx, &event); err != nil {
			// The event is already queued for persistence; a bus failure
			// only affects live subscribers.
			r.logger.Warn().Err(err).Str("event_id", event.EventID).Msg("event bus publish failed")
		}
	}

	metrics.OfferEvents.WithLabelValues(string(event.EventType), string(event.OfferType)).Inc()
	return event, nil
}

// RecordGenerated emits generate events for a batch of freshly generated
// offers, feeding the top of the funnel. segments maps customer ID to the
// segment description the offers were generated under; customers missing
// from it get events without a segment.
func (r *Recorder) RecordGenerated(ctx context.Context, customerOffers map[string][]models.Offer, segments map[string]string) error {
	now := time.Now().UTC()
	for customerID, offers := range customerOffers {
		for _, offer := range offers {
			_, err := r.Record(ctx, models.OfferEvent{
				EventID:    uuid.New().String(),
				CustomerID: customerID,
				OfferID:    offer.OfferID,
				OfferType:  offer.OfferType,
				EventType:  models.OfferEventGenerate,
				Segment:    segments[customerID],
				Value:      offer.Value,
				Timestamp:  now,
			})
			if err != nil {
				return fmt.Errorf("record generate event for %s: %w", customerID, err)
			}
		}
	}
	return nil
}
