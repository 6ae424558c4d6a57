// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/NandaKumar8776/scene-plus-engine/internal/logging"
	"github.com/NandaKumar8776/scene-plus-engine/internal/metrics"
	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

// EventSink persists offer event batches. Implemented by *Store; tests use
// in-memory fakes.
type EventSink interface {
	InsertOfferEvents(ctx context.Context, batch []models.OfferEvent) error
}

// AppenderConfig controls batching.
type AppenderConfig struct {
	// BatchSize triggers an async flush when the buffer reaches it.
	BatchSize int

	// FlushInterval bounds how long a buffered event waits.
	FlushInterval time.Duration
}

// Appender buffers offer events and writes them to the sink in batches,
// when the batch size is reached or the flush interval elapses.
//
// Flushes are serialized via flushMu so timer-based and batch-triggered
// flushes cannot interleave and reorder inserts. On a failed flush the
// batch is retained and retried on the next trigger.
type Appender struct {
	sink   EventSink
	config AppenderConfig
	logger zerolog.Logger

	mu     sync.Mutex
	buffer []models.OfferEvent

	flushMu sync.Mutex

	closed   atomic.Bool
	started  atomic.Bool
	stopChan chan struct{}
	doneChan chan struct{}
	flushWg  sync.WaitGroup
}

// NewAppender creates an appender over a sink.
func NewAppender(sink EventSink, cfg AppenderConfig) (*Appender, error) {
	if sink == nil {
		return nil, fmt.Errorf("sink required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	if cfg.FlushInterval <= 0 {
		return nil, fmt.Errorf("flush interval must be positive")
	}
	return &Appender{
		sink:     sink,
		config:   cfg,
		logger:   logging.With().Str("component", "event_appender").Logger(),
		buffer:   make([]models.OfferEvent, 0, cfg.BatchSize),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}, nil
}

// Start begins the periodic flush timer. Idempotent. The context controls
// shutdown only; individual flushes run under their own timeout.
func (a *Appender) Start(ctx context.Context) error {
	if a.closed.Load() {
		return fmt.Errorf("appender is closed")
	}
	if a.started.Swap(true) {
		return nil
	}
	go a.flushLoop(ctx)
	return nil
}

// Append buffers one event. Reaching the batch size triggers an async flush
// under a detached context, since the caller's request context may be
// canceled before the write lands.
func (a *Appender) Append(_ context.Context, event models.OfferEvent) error {
	if a.closed.Load() {
		return fmt.Errorf("appender is closed")
	}

	a.mu.Lock()
	a.buffer = append(a.buffer, event)
	needsFlush := len(a.buffer) >= a.config.BatchSize
	metrics.EventBufferSize.Set(float64(len(a.buffer)))
	a.mu.Unlock()

	if needsFlush {
		a.flushWg.Add(1)
		go func() {
			defer a.flushWg.Done()
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := a.flush(flushCtx); err != nil {
				a.logger.Debug().Err(err).Msg("async flush failed")
			}
		}()
	}
	return nil
}

// Flush synchronously drains the buffer, waiting out any in-flight async
// flush first.
func (a *Appender) Flush(ctx context.Context) error {
	a.flushWg.Wait()
	return a.flush(ctx)
}

// Close stops the flush loop and drains pending events. Idempotent.
func (a *Appender) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	if a.started.Load() {
		close(a.stopChan)
		<-a.doneChan
	}
	a.flushWg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.flush(ctx)
}

// Pending returns the current buffer size.
func (a *Appender) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffer)
}

func (a *Appender) flushLoop(ctx context.Context) {
	defer close(a.doneChan)

	ticker := time.NewTicker(a.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopChan:
			return
		case <-ticker.C:
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := a.flush(flushCtx); err != nil {
				a.logger.Debug().Err(err).Msg("interval flush failed")
			}
			cancel()
		}
	}
}

func (a *Appender) flush(ctx context.Context) error {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	a.mu.Lock()
	if len(a.buffer) == 0 {
		a.mu.Unlock()
		return nil
	}
	batch := a.buffer
	a.buffer = make([]models.OfferEvent, 0, a.config.BatchSize)
	metrics.EventBufferSize.Set(0)
	a.mu.Unlock()

	start := time.Now()
	if err := a.sink.InsertOfferEvents(ctx, batch); err != nil {
		// Retain the failed batch ahead of anything appended meanwhile.
		a.mu.Lock()
		a.buffer = append(batch, a.buffer...)
		metrics.EventBufferSize.Set(float64(len(a.buffer)))
		a.mu.Unlock()
		return fmt.Errorf("flush %d events: %w", len(batch), err)
	}

	metrics.EventFlushDuration.Observe(time.Since(start).Seconds())
	a.logger.Debug().
		Int("events", len(batch)).
		Dur("elapsed", time.Since(start)).
		Msg("event batch flushed")
	return nil
}
