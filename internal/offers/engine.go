// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package offers

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NandaKumar8776/scene-plus-engine/internal/config"
	"github.com/NandaKumar8776/scene-plus-engine/internal/features"
	"github.com/NandaKumar8776/scene-plus-engine/internal/logging"
	"github.com/NandaKumar8776/scene-plus-engine/internal/metrics"
	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

// segmentMultipliers boost scores for segments more likely to act on an
// offer. Compound descriptions fall through to the neutral multiplier.
var segmentMultipliers = map[string]float64{
	"High Spender":     1.2,
	"Frequent Shopper": 1.1,
	"Points Saver":     1.3,
	"Multi-Banner":     1.15,
}

// Engine generates ranked personalized offers. It is stateless across calls;
// feature scaling is always relative to the cohort being scored.
type Engine struct {
	defaultCount int
	maxCount     int
	nowFn        func() time.Time
	logger       zerolog.Logger
}

// NewEngine creates an offer engine.
func NewEngine(cfg config.OffersConfig) *Engine {
	return &Engine{
		defaultCount: cfg.DefaultCount,
		maxCount:     cfg.MaxCount,
		nowFn:        time.Now,
		logger:       logging.With().Str("component", "offers").Logger(),
	}
}

// Generate produces up to count offers per customer, ranked by expected
// value. Every profile must carry a segment assignment; a missing one is a
// caller bug and fails the whole call. count zero or negative means the
// configured default.
func (e *Engine) Generate(
	profiles []models.CustomerProfile,
	assignments []models.SegmentAssignment,
	count int,
) (map[string][]models.Offer, error) {
	if len(profiles) == 0 {
		return nil, models.NewFeatureError("cannot generate offers for zero profiles")
	}
	if count <= 0 {
		count = e.defaultCount
	}
	if count > e.maxCount {
		count = e.maxCount
	}

	segments := make(map[string]string, len(assignments))
	for _, a := range assignments {
		segments[a.CustomerID] = a.Description
	}
	for _, p := range profiles {
		if _, ok := segments[p.CustomerID]; !ok {
			return nil, models.NewFeatureError("customer %s has no segment assignment", p.CustomerID)
		}
	}

	feats, err := features.OfferFeatures(profiles)
	if err != nil {
		return nil, err
	}

	now := e.nowFn()
	out := make(map[string][]models.Offer, len(profiles))
	total := 0
	for _, p := range profiles {
		customerOffers := e.generateFor(p, feats[p.CustomerID], segments[p.CustomerID], count, now)
		out[p.CustomerID] = customerOffers
		total += len(customerOffers)
		for _, o := range customerOffers {
			metrics.OffersGenerated.WithLabelValues(string(o.OfferType)).Inc()
		}
	}

	e.logger.Debug().
		Int("customers", len(profiles)).
		Int("offers", total).
		Msg("offers generated")
	return out, nil
}

// generateFor evaluates the rule set for one customer and keeps the top
// count offers. The sort is stable, so equally scored offers keep rule
// order.
func (e *Engine) generateFor(
	profile models.CustomerProfile,
	feats map[string]float64,
	segment string,
	count int,
	now time.Time,
) []models.Offer {
	candidates := make([]models.Offer, 0, len(ruleSet))
	for _, r := range ruleSet {
		if offer := r(feats, profile, now); offer != nil {
			offer.OfferID = uuid.New().String()
			candidates = append(candidates, *offer)
		}
	}

	scores := make(map[string]float64, len(candidates))
	for _, o := range candidates {
		scores[o.OfferID] = scoreOffer(o, profile, segment)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return scores[candidates[i].OfferID] > scores[candidates[j].OfferID]
	})

	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates
}

// scoreOffer estimates the expected value of an offer for a customer.
// Multiplier offers scale with the customer's typical points haul, threshold
// bonuses with how close their usual transaction is to the threshold.
func scoreOffer(offer models.Offer, profile models.CustomerProfile, segment string) float64 {
	score := offer.Value
	switch offer.OfferType {
	case models.OfferPointsMultiplier:
		score *= profile.AveragePointsEarned
	case models.OfferThresholdBonus:
		score *= profile.AverageTransactionValue / offer.Conditions["spend_threshold"]
	}

	if m, ok := segmentMultipliers[segment]; ok {
		return score * m
	}
	return score
}
