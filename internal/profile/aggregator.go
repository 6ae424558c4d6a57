// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

// Package profile aggregates normalized transactions into per-customer
// behavioral profiles, the input shape for feature engineering.
package profile

import (
	"sort"

	"github.com/NandaKumar8776/scene-plus-engine/internal/metrics"
	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

type accumulator struct {
	count       int
	totalSpend  float64
	totalPoints float64
	basketSum   float64
	banners     map[string]struct{}
	lastVisit   models.Transaction
}

// Aggregate groups a transaction batch by customer and derives one profile
// per customer. Recency is batch-relative: days_since_last_visit counts
// whole days between the customer's newest transaction and the newest
// transaction anywhere in the batch, so historical batches do not skew
// recency toward the wall clock.
func Aggregate(transactions []models.Transaction) ([]models.CustomerProfile, error) {
	if len(transactions) == 0 {
		return nil, models.NewFeatureError("cannot aggregate an empty transaction batch")
	}

	accs := make(map[string]*accumulator)
	batchMax := transactions[0].Timestamp
	for _, tx := range transactions {
		if tx.CustomerID == "" {
			return nil, models.NewFeatureError("transaction %s has no customer_id", tx.TransactionID)
		}
		acc, ok := accs[tx.CustomerID]
		if !ok {
			acc = &accumulator{banners: make(map[string]struct{})}
			accs[tx.CustomerID] = acc
		}
		acc.count++
		acc.totalSpend += tx.TotalAmount
		acc.totalPoints += tx.PointsEarned
		acc.basketSum += float64(tx.BasketSize())
		acc.banners[tx.Banner] = struct{}{}
		if tx.Timestamp.After(acc.lastVisit.Timestamp) {
			acc.lastVisit = tx
		}
		if tx.Timestamp.After(batchMax) {
			batchMax = tx.Timestamp
		}
	}

	profiles := make([]models.CustomerProfile, 0, len(accs))
	for customerID, acc := range accs {
		n := float64(acc.count)
		banners := make([]string, 0, len(acc.banners))
		for b := range acc.banners {
			banners = append(banners, b)
		}
		sort.Strings(banners)

		days := int(batchMax.Sub(acc.lastVisit.Timestamp).Hours() / 24)
		profiles = append(profiles, models.CustomerProfile{
			CustomerID:              customerID,
			TransactionCount:        acc.count,
			TotalSpend:              acc.totalSpend,
			AverageTransactionValue: acc.totalSpend / n,
			TotalPoints:             acc.totalPoints,
			AveragePointsEarned:     acc.totalPoints / n,
			UniqueBanners:           len(acc.banners),
			AverageBasketSize:       acc.basketSum / n,
			DaysSinceLastVisit:      days,
			LastTransaction:         acc.lastVisit.Timestamp,
			VisitedBanners:          banners,
		})
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].CustomerID < profiles[j].CustomerID
	})
	metrics.ProfilesAggregated.Add(float64(len(profiles)))
	return profiles, nil
}
