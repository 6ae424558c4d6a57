// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

// Package models defines the canonical entities shared across the engine:
// transactions, customer profiles, segments, offers, and offer events.
//
// Entities are created by the pipeline or the engines and are immutable
// afterwards; nothing in this package holds mutable state.
package models

import (
	"time"
)

// Item is a single purchased line item within a transaction.
type Item struct {
	// SKU is the stock keeping unit identifier.
	SKU string `json:"sku" validate:"required"`

	// Quantity is the number of units purchased.
	Quantity int `json:"quantity" validate:"required,gt=0"`

	// Price is the unit price.
	Price float64 `json:"price" validate:"gte=0"`
}

// Transaction is one purchase or points event in canonical form.
// It is produced by pipeline normalization from a source-specific raw
// record and never mutated afterwards.
type Transaction struct {
	// TransactionID uniquely identifies the transaction.
	TransactionID string `json:"transaction_id" validate:"required"`

	// CustomerID identifies the customer (or loyalty member).
	CustomerID string `json:"customer_id" validate:"required"`

	// Timestamp is when the transaction occurred.
	Timestamp time.Time `json:"timestamp" validate:"required"`

	// TotalAmount is the transaction total. Never negative.
	TotalAmount float64 `json:"total_amount" validate:"gte=0"`

	// Banner is the lowercased retail banner the transaction occurred under.
	Banner string `json:"banner" validate:"required,lowercase"`

	// Items is the ordered list of purchased items. Never empty.
	Items []Item `json:"items" validate:"required,min=1,dive"`

	// PaymentMethod is how the transaction was paid.
	PaymentMethod string `json:"payment_method" validate:"required"`

	// PointsEarned is the loyalty points earned. Defaults to 0.
	PointsEarned float64 `json:"points_earned" validate:"gte=0"`
}

// BasketSize returns the number of line items in the transaction.
func (t *Transaction) BasketSize() int {
	return len(t.Items)
}

// Transaction type vocabulary for loyalty-source records.
const (
	TransactionTypeEarn   = "earn"
	TransactionTypeRedeem = "redeem"
)

// Partner vocabulary for partner-source records.
const (
	PartnerCineplex   = "cineplex"
	PartnerScotiabank = "scotiabank"
)
