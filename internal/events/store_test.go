// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package events

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func funnelEvent(i int, offerType models.OfferType, eventType models.OfferEventType, value float64, ts time.Time) models.OfferEvent {
	return models.OfferEvent{
		EventID:    fmt.Sprintf("evt-%s-%s-%d", offerType, eventType, i),
		CustomerID: fmt.Sprintf("C%d", i%5),
		OfferID:    fmt.Sprintf("O%d", i),
		OfferType:  offerType,
		EventType:  eventType,
		Value:      value,
		Timestamp:  ts,
	}
}

func TestInsertAndCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	batch := []models.OfferEvent{
		funnelEvent(1, models.OfferPointsBonus, models.OfferEventGenerate, 250, now),
		funnelEvent(2, models.OfferPointsBonus, models.OfferEventView, 250, now),
	}
	if err := s.InsertOfferEvents(ctx, batch); err != nil {
		t.Fatalf("InsertOfferEvents: %v", err)
	}
	n, err := s.EventCount(ctx)
	if err != nil {
		t.Fatalf("EventCount: %v", err)
	}
	if n != 2 {
		t.Errorf("count: %d", n)
	}
	// Empty batch is a no-op.
	if err := s.InsertOfferEvents(ctx, nil); err != nil {
		t.Errorf("empty batch: %v", err)
	}
}

func TestInsertDuplicatePrimaryKeyFailsAtomically(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := funnelEvent(1, models.OfferPointsBonus, models.OfferEventGenerate, 250, now)
	if err := s.InsertOfferEvents(ctx, []models.OfferEvent{first}); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	// Batch with a conflicting event_id fails and leaves the table unchanged.
	second := funnelEvent(2, models.OfferPointsBonus, models.OfferEventView, 250, now)
	if err := s.InsertOfferEvents(ctx, []models.OfferEvent{second, first}); err == nil {
		t.Fatal("conflicting batch accepted")
	}
	n, err := s.EventCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("partial batch persisted: count %d", n)
	}
}

func TestOfferPerformanceConversionRates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	var batch []models.OfferEvent
	// 10 generated, 6 viewed, 4 clicked, 2 redeemed.
	for i := 0; i < 10; i++ {
		batch = append(batch, funnelEvent(i, models.OfferPointsBonus, models.OfferEventGenerate, 250, now))
	}
	for i := 0; i < 6; i++ {
		batch = append(batch, funnelEvent(i, models.OfferPointsBonus, models.OfferEventView, 250, now))
	}
	for i := 0; i < 4; i++ {
		batch = append(batch, funnelEvent(i, models.OfferPointsBonus, models.OfferEventClick, 250, now))
	}
	for i := 0; i < 2; i++ {
		batch = append(batch, funnelEvent(i, models.OfferPointsBonus, models.OfferEventRedeem, 250, now))
	}
	if err := s.InsertOfferEvents(ctx, batch); err != nil {
		t.Fatalf("insert: %v", err)
	}

	report, err := s.OfferPerformance(ctx, 30)
	if err != nil {
		t.Fatalf("OfferPerformance: %v", err)
	}
	if report.ConversionRates == nil {
		t.Fatal("no conversion rates")
	}
	if math.Abs(report.ConversionRates.ViewRate-0.6) > 1e-9 {
		t.Errorf("view rate: %v", report.ConversionRates.ViewRate)
	}
	if math.Abs(report.ConversionRates.ClickRate-0.4) > 1e-9 {
		t.Errorf("click rate: %v", report.ConversionRates.ClickRate)
	}
	if math.Abs(report.ConversionRates.RedemptionRate-0.2) > 1e-9 {
		t.Errorf("redemption rate: %v", report.ConversionRates.RedemptionRate)
	}
	if report.LookbackDays != 30 {
		t.Errorf("lookback: %d", report.LookbackDays)
	}
}

func TestOfferPerformancePerTypeAndLookback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	old := now.AddDate(0, 0, -60)

	batch := []models.OfferEvent{
		funnelEvent(1, models.OfferPointsBonus, models.OfferEventGenerate, 250, now),
		funnelEvent(2, models.OfferPointsBonus, models.OfferEventView, 250, now),
		funnelEvent(3, models.OfferCrossBanner, models.OfferEventGenerate, 500, now),
		// Outside the 30 day window.
		funnelEvent(4, models.OfferThresholdBonus, models.OfferEventGenerate, 1000, old),
	}
	if err := s.InsertOfferEvents(ctx, batch); err != nil {
		t.Fatalf("insert: %v", err)
	}

	report, err := s.OfferPerformance(ctx, 30)
	if err != nil {
		t.Fatalf("OfferPerformance: %v", err)
	}
	if len(report.OfferTypes) != 2 {
		t.Fatalf("offer types in window: %+v", report.OfferTypes)
	}
	byType := make(map[string]OfferTypePerformance)
	for _, p := range report.OfferTypes {
		byType[p.OfferType] = p
	}
	bonus := byType["points_bonus"]
	if bonus.Count != 1 {
		t.Errorf("points_bonus generate count: %d", bonus.Count)
	}
	if math.Abs(bonus.ViewRate-0.5) > 1e-9 {
		t.Errorf("points_bonus view rate: %v", bonus.ViewRate)
	}
	if math.Abs(bonus.AverageValue-250) > 1e-9 {
		t.Errorf("points_bonus average value: %v", bonus.AverageValue)
	}
	if _, ok := byType["threshold_bonus"]; ok {
		t.Error("stale event leaked into window")
	}
}

func TestOfferPerformanceBySegment(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	segEvent := func(i int, eventType models.OfferEventType, segment string, value float64) models.OfferEvent {
		ev := funnelEvent(i, models.OfferPointsBonus, eventType, value, now)
		ev.Segment = segment
		return ev
	}
	batch := []models.OfferEvent{
		// High Spender: 2 generated, 1 viewed, 1 redeemed over 4 events.
		segEvent(1, models.OfferEventGenerate, "High Spender", 200),
		segEvent(2, models.OfferEventGenerate, "High Spender", 400),
		segEvent(3, models.OfferEventView, "High Spender", 200),
		segEvent(4, models.OfferEventRedeem, "High Spender", 200),
		// Points Saver: 1 generated, nothing else.
		segEvent(5, models.OfferEventGenerate, "Points Saver", 250),
		// Events without segment attribution stay out of the breakdown.
		segEvent(6, models.OfferEventGenerate, "", 100),
	}
	if err := s.InsertOfferEvents(ctx, batch); err != nil {
		t.Fatalf("insert: %v", err)
	}

	report, err := s.OfferPerformance(ctx, 30)
	if err != nil {
		t.Fatalf("OfferPerformance: %v", err)
	}
	if len(report.Segments) != 2 {
		t.Fatalf("segments: %+v", report.Segments)
	}
	bySegment := make(map[string]SegmentPerformance)
	for _, p := range report.Segments {
		bySegment[p.Segment] = p
	}
	high := bySegment["High Spender"]
	if high.OfferCount != 2 {
		t.Errorf("High Spender offer count: %d", high.OfferCount)
	}
	if math.Abs(high.ViewRate-0.25) > 1e-9 {
		t.Errorf("High Spender view rate: %v", high.ViewRate)
	}
	if math.Abs(high.RedemptionRate-0.25) > 1e-9 {
		t.Errorf("High Spender redemption rate: %v", high.RedemptionRate)
	}
	if math.Abs(high.AverageValue-250) > 1e-9 {
		t.Errorf("High Spender average value: %v", high.AverageValue)
	}
	saver := bySegment["Points Saver"]
	if saver.OfferCount != 1 || saver.ViewRate != 0 || saver.RedemptionRate != 0 {
		t.Errorf("Points Saver: %+v", saver)
	}
}

func TestOfferPerformanceEmptyWindow(t *testing.T) {
	s := openTestStore(t)
	report, err := s.OfferPerformance(context.Background(), 30)
	if err != nil {
		t.Fatalf("OfferPerformance: %v", err)
	}
	if report.ConversionRates != nil {
		t.Errorf("conversion rates on empty window: %+v", report.ConversionRates)
	}
	if len(report.OfferTypes) != 0 {
		t.Errorf("offer types on empty window: %+v", report.OfferTypes)
	}
	if len(report.Segments) != 0 {
		t.Errorf("segments on empty window: %+v", report.Segments)
	}
}
