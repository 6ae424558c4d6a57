// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/NandaKumar8776/scene-plus-engine/internal/validation"
)

// NormalizeRequest is the body for POST /api/v1/transactions/normalize.
// The same shape feeds training, prediction, and offer generation: raw
// per-source records that get normalized and aggregated server-side.
type NormalizeRequest struct {
	// Source selects the normalization rules: retail, loyalty, or partner.
	Source string `json:"source" validate:"required,oneof=retail loyalty partner"`

	// Records are raw key-value rows from the source system.
	Records []map[string]any `json:"records" validate:"required,min=1"`
}

// GenerateOffersRequest is the body for POST /api/v1/offers/generate.
type GenerateOffersRequest struct {
	Source  string           `json:"source" validate:"required,oneof=retail loyalty partner"`
	Records []map[string]any `json:"records" validate:"required,min=1"`

	// Count is offers per customer. Zero means the configured default.
	Count int `json:"count" validate:"gte=0"`
}

// TrackEventRequest is the body for POST /api/v1/offers/track.
type TrackEventRequest struct {
	// EventID is the caller's idempotency key. Empty means the server
	// assigns one, which disables deduplication for this event.
	EventID string `json:"event_id"`

	CustomerID string `json:"customer_id" validate:"required"`
	OfferID    string `json:"offer_id" validate:"required"`

	OfferType string `json:"offer_type" validate:"required,oneof=points_multiplier points_bonus cross_banner category_discount threshold_bonus"`
	EventType string `json:"event_type" validate:"required,oneof=view click redeem"`

	// Segment attributes the event to the customer's segment for the
	// per-segment analytics. Optional; unknown segments are left empty.
	Segment string `json:"segment"`

	// Value is the offer value at event time, for analytics.
	Value float64 `json:"value" validate:"gte=0"`

	// Timestamp defaults to the server clock when zero.
	Timestamp time.Time `json:"timestamp"`
}

// decodeAndValidate decodes the JSON body into dst and runs struct
// validation. On failure it writes the error response and returns false.
func decodeAndValidate(rw *ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		rw.BadRequest("Invalid JSON body: " + err.Error())
		return false
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		rw.ValidationError("Request validation failed", verr.Fields())
		return false
	}
	return true
}
