// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package models

// SegmentAssignment maps a customer to a trained segment.
type SegmentAssignment struct {
	// CustomerID identifies the customer.
	CustomerID string `json:"customer_id"`

	// SegmentID is in [0, k) for a model trained with k clusters.
	SegmentID int `json:"segment_id"`

	// Description is the derived human-readable segment label,
	// e.g. "High Spender & Frequent Shopper".
	Description string `json:"segment_description"`
}

// SegmentProfile describes one trained segment: its centroid expressed in
// original (unstandardized) feature units plus the derived label.
type SegmentProfile struct {
	// SegmentID is in [0, k).
	SegmentID int `json:"segment_id"`

	// Description is the derived label for this segment.
	Description string `json:"description"`

	// Features maps feature name to the centroid value in original units.
	Features map[string]float64 `json:"features"`
}
