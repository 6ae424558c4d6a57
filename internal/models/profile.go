// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package models

import "time"

// CustomerProfile is the per-customer aggregate computed from one batch of
// transactions. It is a view over the batch, recomputed on every aggregation
// call and never persisted on its own.
//
// DaysSinceLastVisit is batch-relative: it is measured against the most
// recent timestamp anywhere in the batch, not wall-clock time, so a given
// batch always aggregates to the same profiles regardless of when the call
// is made.
type CustomerProfile struct {
	// CustomerID identifies the customer.
	CustomerID string `json:"customer_id"`

	// TransactionCount is the number of transactions in the batch. Always >= 1.
	TransactionCount int `json:"transaction_count"`

	// TotalSpend is the sum of transaction totals.
	TotalSpend float64 `json:"total_spend"`

	// AverageTransactionValue is the mean transaction total.
	AverageTransactionValue float64 `json:"average_transaction_value"`

	// TotalPoints is the sum of points earned.
	TotalPoints float64 `json:"total_points"`

	// AveragePointsEarned is the mean points earned per transaction.
	AveragePointsEarned float64 `json:"average_points_earned"`

	// UniqueBanners is the count of distinct banners visited.
	UniqueBanners int `json:"unique_banners"`

	// AverageBasketSize is the mean item count across transactions.
	AverageBasketSize float64 `json:"average_basket_size"`

	// DaysSinceLastVisit is whole days between the customer's most recent
	// transaction and the batch-wide maximum timestamp. Always >= 0.
	DaysSinceLastVisit int `json:"days_since_last_visit"`

	// LastTransaction is the customer's most recent transaction timestamp.
	LastTransaction time.Time `json:"last_transaction"`

	// VisitedBanners lists the distinct banners visited, sorted.
	VisitedBanners []string `json:"visited_banners"`
}
