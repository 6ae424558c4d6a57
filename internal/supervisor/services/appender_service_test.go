// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NandaKumar8776/scene-plus-engine/internal/events"
	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

type captureSink struct {
	mu     sync.Mutex
	events []models.OfferEvent
}

func (s *captureSink) InsertOfferEvents(_ context.Context, batch []models.OfferEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestAppenderServiceDrainsOnShutdown(t *testing.T) {
	sink := &captureSink{}
	appender, err := events.NewAppender(sink, events.AppenderConfig{
		BatchSize:     100,
		FlushInterval: time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer appender.Close()

	svc := NewAppenderService(appender, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	if err := appender.Append(context.Background(), models.OfferEvent{
		EventID:    "evt-1",
		CustomerID: "C1",
		OfferID:    "o1",
		OfferType:  models.OfferPointsBonus,
		EventType:  models.OfferEventView,
		Timestamp:  time.Now(),
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve: got %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if sink.count() != 1 {
		t.Errorf("flushed events: got %d, want 1", sink.count())
	}
}

func TestAppenderServiceString(t *testing.T) {
	sink := &captureSink{}
	appender, err := events.NewAppender(sink, events.AppenderConfig{BatchSize: 1, FlushInterval: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	defer appender.Close()

	if got := NewAppenderService(appender, 0).String(); got != "event-appender" {
		t.Errorf("String: got %q", got)
	}
}
