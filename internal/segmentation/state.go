// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package segmentation

import (
	"time"

	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

// State is the gob-serializable snapshot of a trained engine, the payload
// persisted through the model store.
type State struct {
	Centroids      [][]float64
	Mean           []float64
	Scale          []float64
	FeatureColumns []string
	Clusters       int
	Seed           int64
	Version        int
	TrainedAt      time.Time
}

// Snapshot captures the trained model state for persistence.
func (e *Engine) Snapshot() (*State, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.trained {
		return nil, models.NewModelError("snapshotting model", models.ErrNotTrained)
	}

	centroids := make([][]float64, len(e.centroids))
	for i, c := range e.centroids {
		centroids[i] = append([]float64(nil), c...)
	}
	return &State{
		Centroids:      centroids,
		Mean:           append([]float64(nil), e.scaler.Mean...),
		Scale:          append([]float64(nil), e.scaler.Scale...),
		FeatureColumns: append([]string(nil), e.columns...),
		Clusters:       e.clusters,
		Seed:           e.seed,
		Version:        e.version,
		TrainedAt:      e.lastTrainedAt,
	}, nil
}

// Restore replaces the engine's trained state from a snapshot, typically at
// startup from the latest persisted version.
func (e *Engine) Restore(state *State) error {
	if state == nil || len(state.Centroids) == 0 || len(state.Mean) == 0 {
		return models.NewModelError("restoring model", models.ErrInvalidState)
	}
	if len(state.Centroids) != state.Clusters {
		return models.NewModelError("restoring model", models.ErrInvalidState)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.centroids = state.Centroids
	e.scaler.Mean = state.Mean
	e.scaler.Scale = state.Scale
	e.columns = state.FeatureColumns
	e.clusters = state.Clusters
	e.seed = state.Seed
	e.version = state.Version
	e.lastTrainedAt = state.TrainedAt
	e.trained = true
	return nil
}
