// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/NandaKumar8776/scene-plus-engine/internal/metrics"
)

var (
	// ErrDuplicateEvent indicates an event ID was already ingested within
	// its TTL window.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrDeduperClosed indicates the deduper has been closed.
	ErrDeduperClosed = errors.New("deduper is closed")
)

// dedupEntry is the stored record for a seen event ID.
type dedupEntry struct {
	EventID   string    `json:"event_id"`
	FirstSeen time.Time `json:"first_seen"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Deduper tracks seen event IDs so retried track requests do not double
// count in the funnel.
type Deduper interface {
	// CheckAndStore atomically checks whether an event ID was seen within
	// its TTL and stores it if not. Returns ErrDuplicateEvent on a repeat.
	CheckAndStore(ctx context.Context, eventID string, ttl time.Duration) error

	// Close releases resources.
	Close() error
}

// MemoryDeduper is an in-memory deduper for tests. Entries are lost on
// restart.
type MemoryDeduper struct {
	mu      sync.Mutex
	entries map[string]dedupEntry
	closed  bool
}

// NewMemoryDeduper creates an in-memory deduper.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{entries: make(map[string]dedupEntry)}
}

// CheckAndStore atomically checks and stores an event ID.
func (d *MemoryDeduper) CheckAndStore(_ context.Context, eventID string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeduperClosed
	}

	now := time.Now()
	if existing, ok := d.entries[eventID]; ok && now.Before(existing.ExpiresAt) {
		metrics.OfferEventsDeduplicated.Inc()
		return ErrDuplicateEvent
	}
	d.entries[eventID] = dedupEntry{
		EventID:   eventID,
		FirstSeen: now,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

// Close closes the deduper.
func (d *MemoryDeduper) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.entries = nil
	return nil
}

// BadgerDeduper is a BadgerDB-backed deduper that survives restarts. TTL
// enforcement is double-layered: Badger expires the key, and the stored
// expiry is checked in case compaction lags.
type BadgerDeduper struct {
	db     *badger.DB
	prefix []byte
	mu     sync.RWMutex
	closed bool
}

// NewBadgerDeduper creates a deduper over a shared Badger instance.
func NewBadgerDeduper(db *badger.DB, prefix string) *BadgerDeduper {
	if prefix == "" {
		prefix = "offerevent:"
	}
	return &BadgerDeduper{db: db, prefix: []byte(prefix)}
}

func (d *BadgerDeduper) key(eventID string) []byte {
	return append(append([]byte(nil), d.prefix...), []byte(eventID)...)
}

// CheckAndStore atomically checks and stores an event ID.
func (d *BadgerDeduper) CheckAndStore(_ context.Context, eventID string, ttl time.Duration) error {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrDeduperClosed
	}
	d.mu.RUnlock()

	key := d.key(eventID)
	return d.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == nil {
			var existing dedupEntry
			if valErr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); valErr == nil && time.Now().Before(existing.ExpiresAt) {
				metrics.OfferEventsDeduplicated.Inc()
				return ErrDuplicateEvent
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		now := time.Now()
		data, err := json.Marshal(dedupEntry{
			EventID:   eventID,
			FirstSeen: now,
			ExpiresAt: now.Add(ttl),
		})
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry(key, data).WithTTL(ttl))
	})
}

// Close marks the deduper closed. The underlying DB is shared and closed by
// its owner.
func (d *BadgerDeduper) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
