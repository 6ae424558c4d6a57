// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package models

import "time"

// OfferType classifies a personalized offer. The numeric Value field of an
// Offer is interpreted according to its type.
type OfferType string

const (
	// OfferPointsMultiplier multiplies points earned (Value 2.0 = double points).
	OfferPointsMultiplier OfferType = "points_multiplier"

	// OfferPointsBonus grants flat bonus points (Value is the point amount).
	OfferPointsBonus OfferType = "points_bonus"

	// OfferCrossBanner grants flat bonus points for shopping at a target
	// banner the customer has not visited.
	OfferCrossBanner OfferType = "cross_banner"

	// OfferCategoryDiscount discounts target categories (Value 0.15 = 15% off).
	OfferCategoryDiscount OfferType = "category_discount"

	// OfferThresholdBonus grants flat bonus points once a spend threshold
	// is met in a single transaction.
	OfferThresholdBonus OfferType = "threshold_bonus"
)

// Valid reports whether t is a known offer type.
func (t OfferType) Valid() bool {
	switch t {
	case OfferPointsMultiplier, OfferPointsBonus, OfferCrossBanner,
		OfferCategoryDiscount, OfferThresholdBonus:
		return true
	default:
		return false
	}
}

// Offer is a candidate personalized promotion. Offers are constructed fresh
// on every generation call and are not persisted by the engine.
type Offer struct {
	// OfferID uniquely identifies this offer instance.
	OfferID string `json:"offer_id"`

	// OfferType determines how Value is interpreted.
	OfferType OfferType `json:"offer_type"`

	// Value is the offer magnitude: a multiplier, bonus points, or a
	// discount fraction depending on OfferType.
	Value float64 `json:"value"`

	// Conditions maps named thresholds (min_spend, spend_threshold) to values.
	Conditions map[string]float64 `json:"conditions"`

	// StartDate is when the offer becomes valid (inclusive).
	StartDate time.Time `json:"start_date"`

	// EndDate is when the offer expires (exclusive). Always after StartDate.
	EndDate time.Time `json:"end_date"`

	// TargetBanners restricts the offer to specific banners, if set.
	TargetBanners []string `json:"target_banners,omitempty"`

	// TargetCategories restricts the offer to product categories, if set.
	TargetCategories []string `json:"target_categories,omitempty"`
}

// OfferEventType classifies offer outcome events.
type OfferEventType string

const (
	OfferEventGenerate OfferEventType = "generate"
	OfferEventView     OfferEventType = "view"
	OfferEventClick    OfferEventType = "click"
	OfferEventRedeem   OfferEventType = "redeem"
)

// Valid reports whether t is a known event type.
func (t OfferEventType) Valid() bool {
	switch t {
	case OfferEventGenerate, OfferEventView, OfferEventClick, OfferEventRedeem:
		return true
	default:
		return false
	}
}

// OfferEvent records an outcome event against a generated offer. Events feed
// the funnel analytics (view/click/redemption rates per offer type).
type OfferEvent struct {
	// EventID uniquely identifies the event and is used for deduplication.
	EventID string `json:"event_id"`

	// CustomerID is the customer the offer was generated for.
	CustomerID string `json:"customer_id"`

	// OfferID is the offer the event refers to.
	OfferID string `json:"offer_id"`

	// OfferType is the type of the offer, denormalized for analytics.
	OfferType OfferType `json:"offer_type"`

	// EventType is the outcome: generate, view, click, or redeem.
	EventType OfferEventType `json:"event_type"`

	// Segment is the customer's segment description at event time,
	// denormalized for analytics. Empty when the segment is unknown.
	Segment string `json:"segment,omitempty"`

	// Value is the offer value at event time, denormalized for analytics.
	Value float64 `json:"value"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}
