// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package segmentation

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/NandaKumar8776/scene-plus-engine/internal/config"
	"github.com/NandaKumar8776/scene-plus-engine/internal/features"
	"github.com/NandaKumar8776/scene-plus-engine/internal/logging"
	"github.com/NandaKumar8776/scene-plus-engine/internal/metrics"
	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

// ModelName identifies the segmentation model in persistence and metrics.
const ModelName = "customer_segmentation"

// Engine is the customer segmentation model. Training acquires an exclusive
// lock while prediction uses a shared lock, so concurrent predictions never
// observe a half-trained model.
type Engine struct {
	mu            sync.RWMutex
	trained       bool
	version       int
	lastTrainedAt time.Time

	clusters int
	seed     int64
	maxIter  int

	scaler    features.StandardScaler
	centroids [][]float64
	columns   []string

	logger zerolog.Logger
}

// NewEngine creates an untrained segmentation engine.
func NewEngine(cfg config.SegmentationConfig) *Engine {
	return &Engine{
		clusters: cfg.Clusters,
		seed:     cfg.Seed,
		maxIter:  cfg.MaxIterations,
		logger:   logging.With().Str("component", "segmentation").Logger(),
	}
}

// IsTrained reports whether the model can serve predictions.
func (e *Engine) IsTrained() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trained
}

// Version returns the model version, incremented on each successful train.
func (e *Engine) Version() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// LastTrainedAt returns when the model last trained successfully.
func (e *Engine) LastTrainedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastTrainedAt
}

// Clusters returns k.
func (e *Engine) Clusters() int {
	return e.clusters
}

// Train fits the scaler and cluster centroids on a profile batch and returns
// the segment assignment for each training customer. A failed train leaves
// any previously trained state untouched.
func (e *Engine) Train(profiles []models.CustomerProfile) ([]models.SegmentAssignment, error) {
	start := time.Now()

	matrix, err := features.SegmentationMatrix(profiles)
	if err != nil {
		return nil, err
	}

	var scaler features.StandardScaler
	if err := scaler.Fit(matrix); err != nil {
		return nil, models.NewModelError("fitting feature scaler", err)
	}
	scaled, err := scaler.Transform(matrix)
	if err != nil {
		return nil, models.NewModelError("scaling training features", err)
	}

	centroids, labels, err := kmeans(scaled, e.clusters, e.maxIter, e.seed)
	if err != nil {
		return nil, models.NewModelError("clustering", err)
	}

	e.mu.Lock()
	e.scaler = scaler
	e.centroids = centroids
	e.columns = append([]string(nil), features.SegmentationColumns...)
	e.trained = true
	e.version++
	e.lastTrainedAt = time.Now()
	descriptions := e.describeLocked()
	e.mu.Unlock()

	assignments := make([]models.SegmentAssignment, len(profiles))
	counts := make([]int, e.clusters)
	for i, p := range profiles {
		assignments[i] = models.SegmentAssignment{
			CustomerID:  p.CustomerID,
			SegmentID:   labels[i],
			Description: descriptions[labels[i]],
		}
		counts[labels[i]]++
	}
	for seg, n := range counts {
		metrics.SegmentCustomers.WithLabelValues(descriptions[seg]).Set(float64(n))
	}
	metrics.ObserveTraining(ModelName, start)

	e.logger.Info().
		Int("customers", len(profiles)).
		Int("clusters", e.clusters).
		Dur("elapsed", time.Since(start)).
		Msg("segmentation model trained")
	return assignments, nil
}

// Predict assigns each profile to its nearest trained segment.
func (e *Engine) Predict(profiles []models.CustomerProfile) ([]models.SegmentAssignment, error) {
	matrix, err := features.SegmentationMatrix(profiles)
	if err != nil {
		metrics.ModelPredictions.WithLabelValues(ModelName, "error").Inc()
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.trained {
		metrics.ModelPredictions.WithLabelValues(ModelName, "error").Inc()
		return nil, models.NewModelError("predicting segments", models.ErrNotTrained)
	}

	scaled, err := e.scaler.Transform(matrix)
	if err != nil {
		metrics.ModelPredictions.WithLabelValues(ModelName, "error").Inc()
		return nil, models.NewModelError("scaling prediction features", err)
	}

	descriptions := e.describeLocked()
	assignments := make([]models.SegmentAssignment, len(profiles))
	for i, p := range profiles {
		seg := nearestCentroid(scaled[i], e.centroids)
		assignments[i] = models.SegmentAssignment{
			CustomerID:  p.CustomerID,
			SegmentID:   seg,
			Description: descriptions[seg],
		}
	}
	metrics.ModelPredictions.WithLabelValues(ModelName, "ok").Inc()
	return assignments, nil
}

// SegmentProfiles returns each segment's centroid expressed in original
// feature units, with its derived description.
func (e *Engine) SegmentProfiles() ([]models.SegmentProfile, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.trained {
		return nil, models.NewModelError("reading segment profiles", models.ErrNotTrained)
	}

	raw, err := e.scaler.InverseTransform(e.centroids)
	if err != nil {
		return nil, models.NewModelError("inverting centroid scaling", err)
	}
	descriptions := e.describeLocked()

	profiles := make([]models.SegmentProfile, len(e.centroids))
	for seg := range e.centroids {
		feats := make(map[string]float64, len(e.columns))
		for j, col := range e.columns {
			feats[col] = raw[seg][j]
		}
		profiles[seg] = models.SegmentProfile{
			SegmentID:   seg,
			Description: descriptions[seg],
			Features:    feats,
		}
	}
	return profiles, nil
}

// describeLocked derives a label per segment from its standardized centroid.
// A coordinate more than half a standard deviation from the mean counts as
// a distinguishing trait. Caller holds at least the read lock.
func (e *Engine) describeLocked() []string {
	col := make(map[string]int, len(e.columns))
	for j, name := range e.columns {
		col[name] = j
	}

	descriptions := make([]string, len(e.centroids))
	for seg, center := range e.centroids {
		var traits []string
		switch {
		case center[col["total_spend"]] > 0.5:
			traits = append(traits, "high spender")
		case center[col["total_spend"]] < -0.5:
			traits = append(traits, "low spender")
		}
		switch {
		case center[col["visit_frequency"]] > 0.5:
			traits = append(traits, "frequent shopper")
		case center[col["visit_frequency"]] < -0.5:
			traits = append(traits, "infrequent shopper")
		}
		if center[col["cross_banner_shopping"]] > 0.5 {
			traits = append(traits, "multi-banner")
		}
		if center[col["points_balance"]] > 0.5 {
			traits = append(traits, "points saver")
		} else if center[col["points_redemption_rate"]] > 0.5 {
			traits = append(traits, "points redeemer")
		}

		description := "average"
		if len(traits) > 0 {
			description = strings.Join(traits, " & ")
		}
		descriptions[seg] = titleCase(description)
	}
	return descriptions
}

// titleCase uppercases the first letter of every word, treating any
// non-letter as a word boundary ("multi-banner" becomes "Multi-Banner").
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) && !prevLetter {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(r)
		}
		prevLetter = unicode.IsLetter(r)
	}
	return b.String()
}
