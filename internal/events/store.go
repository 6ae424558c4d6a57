// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

// createOfferEventsTable is idempotent so reopening an existing database is
// safe.
const createOfferEventsTable = `
CREATE TABLE IF NOT EXISTS offer_events (
    event_id    VARCHAR PRIMARY KEY,
    customer_id VARCHAR NOT NULL,
    offer_id    VARCHAR NOT NULL,
    offer_type  VARCHAR NOT NULL,
    event_type  VARCHAR NOT NULL,
    customer_segment VARCHAR NOT NULL DEFAULT '',
    offer_value DOUBLE NOT NULL,
    event_ts    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_offer_events_ts ON offer_events (event_ts);
CREATE INDEX IF NOT EXISTS idx_offer_events_type ON offer_events (offer_type, event_type);
`

// Store persists offer events in DuckDB and serves funnel analytics over
// them. DuckDB's columnar layout keeps the aggregate queries cheap even as
// the event history grows.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the event database at path. Use ":memory:"
// for tests.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open event database: %w", err)
	}
	if _, err := db.Exec(createOfferEventsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create offer_events table: %w", err)
	}
	return &Store{db: db}, nil
}

// InsertOfferEvents writes a batch atomically. A failed batch leaves the
// table untouched so the appender can retry it.
func (s *Store) InsertOfferEvents(ctx context.Context, batch []models.OfferEvent) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO offer_events
			(event_id, customer_id, offer_id, offer_type, event_type, customer_segment, offer_value, event_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, ev := range batch {
		if _, err := stmt.ExecContext(ctx,
			ev.EventID, ev.CustomerID, ev.OfferID,
			string(ev.OfferType), string(ev.EventType),
			ev.Segment, ev.Value, ev.Timestamp,
		); err != nil {
			return fmt.Errorf("insert event %s: %w", ev.EventID, err)
		}
	}
	return tx.Commit()
}

// ConversionRates are funnel rates relative to generated offers.
type ConversionRates struct {
	ViewRate       float64 `json:"view_rate"`
	ClickRate      float64 `json:"click_rate"`
	RedemptionRate float64 `json:"redemption_rate"`
}

// OfferTypePerformance summarizes one offer type's funnel over the lookback
// window.
type OfferTypePerformance struct {
	OfferType      string  `json:"offer_type"`
	Count          int     `json:"count"`
	ViewRate       float64 `json:"view_rate"`
	RedemptionRate float64 `json:"redemption_rate"`
	AverageValue   float64 `json:"average_value"`
}

// SegmentPerformance summarizes one customer segment's funnel over the
// lookback window. Rates are relative to all events for the segment.
type SegmentPerformance struct {
	Segment        string  `json:"segment"`
	OfferCount     int     `json:"offer_count"`
	ViewRate       float64 `json:"view_rate"`
	RedemptionRate float64 `json:"redemption_rate"`
	AverageValue   float64 `json:"average_value"`
}

// PerformanceReport is the offer analytics payload.
type PerformanceReport struct {
	// ConversionRates is nil when no offers were generated in the window.
	ConversionRates *ConversionRates       `json:"conversion_rates,omitempty"`
	Segments        []SegmentPerformance   `json:"segment_performance"`
	OfferTypes      []OfferTypePerformance `json:"offer_type_performance"`
	PeriodStart     time.Time              `json:"period_start"`
	PeriodEnd       time.Time              `json:"period_end"`
	LookbackDays    int                    `json:"lookback_days"`
}

// OfferPerformance computes funnel analytics over events within the last
// lookbackDays.
func (s *Store) OfferPerformance(ctx context.Context, lookbackDays int) (*PerformanceReport, error) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, -lookbackDays)
	report := &PerformanceReport{
		PeriodStart:  cutoff,
		PeriodEnd:    now,
		LookbackDays: lookbackDays,
	}

	var generated, viewed, clicked, redeemed int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE event_type = 'generate'),
			COUNT(*) FILTER (WHERE event_type = 'view'),
			COUNT(*) FILTER (WHERE event_type = 'click'),
			COUNT(*) FILTER (WHERE event_type = 'redeem')
		FROM offer_events
		WHERE event_ts >= ?`, cutoff,
	).Scan(&generated, &viewed, &clicked, &redeemed)
	if err != nil {
		return nil, fmt.Errorf("query conversion rates: %w", err)
	}
	if generated > 0 {
		report.ConversionRates = &ConversionRates{
			ViewRate:       float64(viewed) / float64(generated),
			ClickRate:      float64(clicked) / float64(generated),
			RedemptionRate: float64(redeemed) / float64(generated),
		}
	}

	segRows, err := s.db.QueryContext(ctx, `
		SELECT
			customer_segment,
			COUNT(*) FILTER (WHERE event_type = 'generate'),
			CAST(COUNT(*) FILTER (WHERE event_type = 'view') AS DOUBLE) / COUNT(*),
			CAST(COUNT(*) FILTER (WHERE event_type = 'redeem') AS DOUBLE) / COUNT(*),
			AVG(offer_value)
		FROM offer_events
		WHERE event_ts >= ? AND customer_segment <> ''
		GROUP BY customer_segment
		ORDER BY customer_segment`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query segment performance: %w", err)
	}
	defer func() { _ = segRows.Close() }()

	for segRows.Next() {
		var p SegmentPerformance
		if err := segRows.Scan(&p.Segment, &p.OfferCount, &p.ViewRate, &p.RedemptionRate, &p.AverageValue); err != nil {
			return nil, fmt.Errorf("scan segment row: %w", err)
		}
		report.Segments = append(report.Segments, p)
	}
	if err := segRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segment rows: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			offer_type,
			COUNT(*) FILTER (WHERE event_type = 'generate'),
			CAST(COUNT(*) FILTER (WHERE event_type = 'view') AS DOUBLE) / COUNT(*),
			CAST(COUNT(*) FILTER (WHERE event_type = 'redeem') AS DOUBLE) / COUNT(*),
			AVG(offer_value)
		FROM offer_events
		WHERE event_ts >= ?
		GROUP BY offer_type
		ORDER BY offer_type`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query offer type performance: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var p OfferTypePerformance
		if err := rows.Scan(&p.OfferType, &p.Count, &p.ViewRate, &p.RedemptionRate, &p.AverageValue); err != nil {
			return nil, fmt.Errorf("scan offer type row: %w", err)
		}
		report.OfferTypes = append(report.OfferTypes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offer type rows: %w", err)
	}
	return report, nil
}

// EventCount returns the total number of persisted events.
func (s *Store) EventCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offer_events`).Scan(&n)
	return n, err
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
