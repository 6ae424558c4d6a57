// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

func newTestRecorder(t *testing.T, bus *Bus) (*Recorder, *fakeSink) {
	t.Helper()
	sink := &fakeSink{}
	appender, err := NewAppender(sink, AppenderConfig{BatchSize: 100, FlushInterval: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = appender.Close() })
	return NewRecorder(NewMemoryDeduper(), appender, bus, time.Hour), sink
}

func TestRecordFillsDefaults(t *testing.T) {
	r, sink := newTestRecorder(t, nil)
	got, err := r.Record(context.Background(), models.OfferEvent{
		CustomerID: "C1",
		OfferID:    "O1",
		OfferType:  models.OfferPointsBonus,
		EventType:  models.OfferEventClick,
		Value:      250,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if got.EventID == "" {
		t.Error("event ID not generated")
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp not filled")
	}
	if err := r.appender.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sink.total() != 1 {
		t.Errorf("sink total: %d", sink.total())
	}
}

func TestRecordRejectsUnknownTypes(t *testing.T) {
	r, _ := newTestRecorder(t, nil)
	ctx := context.Background()

	_, err := r.Record(ctx, models.OfferEvent{
		OfferType: models.OfferPointsBonus,
		EventType: "impression",
	})
	if err == nil {
		t.Error("unknown event type accepted")
	}

	_, err = r.Record(ctx, models.OfferEvent{
		OfferType: "mystery_box",
		EventType: models.OfferEventView,
	})
	if err == nil {
		t.Error("unknown offer type accepted")
	}
}

func TestRecordDeduplicates(t *testing.T) {
	r, sink := newTestRecorder(t, nil)
	ctx := context.Background()
	event := models.OfferEvent{
		EventID:    "evt-1",
		CustomerID: "C1",
		OfferID:    "O1",
		OfferType:  models.OfferPointsBonus,
		EventType:  models.OfferEventRedeem,
		Value:      250,
	}
	if _, err := r.Record(ctx, event); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if _, err := r.Record(ctx, event); !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("want ErrDuplicateEvent, got %v", err)
	}
	if err := r.appender.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if sink.total() != 1 {
		t.Errorf("duplicate reached sink: total %d", sink.total())
	}
}

func TestRecordPublishesToBus(t *testing.T) {
	bus := NewBus()
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	messages, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	r, _ := newTestRecorder(t, bus)
	sent, err := r.Record(ctx, models.OfferEvent{
		CustomerID: "C1",
		OfferID:    "O1",
		OfferType:  models.OfferCrossBanner,
		EventType:  models.OfferEventView,
		Value:      500,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	select {
	case msg := <-messages:
		got, err := DecodeEvent(msg)
		if err != nil {
			t.Fatalf("DecodeEvent: %v", err)
		}
		msg.Ack()
		if got.EventID != sent.EventID || got.OfferType != models.OfferCrossBanner {
			t.Errorf("bus event mismatch: %+v", got)
		}
		if msg.Metadata.Get("event_type") != "view" {
			t.Errorf("metadata: %q", msg.Metadata.Get("event_type"))
		}
	case <-ctx.Done():
		t.Fatal("no message on bus")
	}
}

func TestRecordGenerated(t *testing.T) {
	r, sink := newTestRecorder(t, nil)
	ctx := context.Background()

	offers := map[string][]models.Offer{
		"C1": {
			{OfferID: "O1", OfferType: models.OfferPointsBonus, Value: 250},
			{OfferID: "O2", OfferType: models.OfferCrossBanner, Value: 500},
		},
		"C2": {
			{OfferID: "O3", OfferType: models.OfferThresholdBonus, Value: 1000},
		},
	}
	segments := map[string]string{"C1": "High Spender"}
	if err := r.RecordGenerated(ctx, offers, segments); err != nil {
		t.Fatalf("RecordGenerated: %v", err)
	}
	if err := r.appender.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if sink.total() != 3 {
		t.Errorf("generate events: %d", sink.total())
	}
	for _, batch := range sink.batches {
		for _, ev := range batch {
			if ev.EventType != models.OfferEventGenerate {
				t.Errorf("wrong event type: %s", ev.EventType)
			}
			switch ev.CustomerID {
			case "C1":
				if ev.Segment != "High Spender" {
					t.Errorf("C1 segment: %q", ev.Segment)
				}
			case "C2":
				// No assignment for C2, so no segment attribution.
				if ev.Segment != "" {
					t.Errorf("C2 segment: %q", ev.Segment)
				}
			}
		}
	}
}
