// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package features

import (
	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

// SegmentationColumns is the fixed column order of the segmentation feature
// matrix. Persisted models carry this list so a loaded model rejects
// mismatched inputs.
var SegmentationColumns = []string{
	"total_spend",
	"visit_frequency",
	"points_balance",
	"points_redemption_rate",
	"cross_banner_shopping",
	"basket_size",
	"days_since_last_visit",
	"category_diversity",
}

// OfferColumns is the scaled feature set consumed by the offer rules.
var OfferColumns = []string{
	"total_spend",
	"visit_frequency",
	"points_balance",
	"points_redemption_rate",
	"cross_banner_shopping",
	"basket_size",
	"days_since_last_visit",
}

// SegmentationMatrix derives the raw (unscaled) segmentation feature matrix
// from customer profiles, one row per profile in input order.
//
// visit_frequency is visits per month, with the month span derived from the
// spread of last-transaction dates across the whole batch. A batch whose
// customers all stopped on the same day spans one month.
func SegmentationMatrix(profiles []models.CustomerProfile) ([][]float64, error) {
	if len(profiles) == 0 {
		return nil, models.NewFeatureError("cannot build features from zero profiles")
	}

	minLast, maxLast := profiles[0].LastTransaction, profiles[0].LastTransaction
	for _, p := range profiles[1:] {
		if p.LastTransaction.Before(minLast) {
			minLast = p.LastTransaction
		}
		if p.LastTransaction.After(maxLast) {
			maxLast = p.LastTransaction
		}
	}
	months := maxLast.Sub(minLast).Hours() / 24 / 30
	if months == 0 {
		months = 1
	}

	matrix := make([][]float64, len(profiles))
	for i, p := range profiles {
		redemptionRate := 0.0
		if p.AverageTransactionValue != 0 {
			redemptionRate = p.AveragePointsEarned / p.AverageTransactionValue
		}
		matrix[i] = []float64{
			p.TotalSpend,
			float64(p.TransactionCount) / months,
			p.TotalPoints,
			redemptionRate,
			float64(p.UniqueBanners),
			p.AverageBasketSize,
			float64(p.DaysSinceLastVisit),
			float64(p.UniqueBanners) * p.AverageBasketSize,
		}
	}
	return matrix, nil
}

// OfferFeatures derives the scaled per-customer feature map the offer rules
// evaluate. Values are min-max scaled within the batch, so thresholds in the
// rules compare customers against the cohort rather than absolute units.
// category_diversity is composed from the scaled banner and basket columns.
//
// The scaler is refit on every call. Offer targeting is always relative to
// the cohort being scored, unlike segmentation which must reproduce its
// training distribution.
func OfferFeatures(profiles []models.CustomerProfile) (map[string]map[string]float64, error) {
	if len(profiles) == 0 {
		return nil, models.NewFeatureError("cannot build features from zero profiles")
	}

	raw := make([][]float64, len(profiles))
	for i, p := range profiles {
		raw[i] = []float64{
			p.TotalSpend,
			float64(p.TransactionCount) / (float64(p.DaysSinceLastVisit) + 1),
			p.TotalPoints,
			p.AveragePointsEarned / (p.AverageTransactionValue + 1),
			float64(p.UniqueBanners),
			p.AverageBasketSize,
			float64(p.DaysSinceLastVisit),
		}
	}

	var scaler MinMaxScaler
	if err := scaler.Fit(raw); err != nil {
		return nil, err
	}
	scaled, err := scaler.Transform(raw)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]float64, len(profiles))
	for i, p := range profiles {
		row := make(map[string]float64, len(OfferColumns)+1)
		for j, col := range OfferColumns {
			row[col] = scaled[i][j]
		}
		row["category_diversity"] = row["cross_banner_shopping"] * row["basket_size"]
		out[p.CustomerID] = row
	}
	return out, nil
}
