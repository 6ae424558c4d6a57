// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package services

import (
	"context"
	"time"

	"github.com/NandaKumar8776/scene-plus-engine/internal/events"
)

// AppenderService runs the event appender's periodic flush loop under
// supervision and drains the buffer on shutdown.
type AppenderService struct {
	appender     *events.Appender
	drainTimeout time.Duration
}

// NewAppenderService wraps an event appender for supervision.
func NewAppenderService(appender *events.Appender, drainTimeout time.Duration) *AppenderService {
	if drainTimeout <= 0 {
		drainTimeout = 10 * time.Second
	}
	return &AppenderService{
		appender:     appender,
		drainTimeout: drainTimeout,
	}
}

// Serve implements suture.Service. Blocks until the context is canceled,
// then flushes whatever is still buffered.
func (s *AppenderService) Serve(ctx context.Context) error {
	if err := s.appender.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	drainCtx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()
	if err := s.appender.Flush(drainCtx); err != nil {
		return err
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture log messages.
func (s *AppenderService) String() string {
	return "event-appender"
}
