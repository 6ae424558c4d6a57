// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

// Package pipeline normalizes source-specific raw transaction records into
// the canonical Transaction entity.
//
// The set of data sources is small and fixed, so each source is described by
// a SourceConfig variant selected by explicit kind rather than an open
// plugin registry. Normalization isolates failures per record: a bad record
// lands in the error report and the rest of the batch proceeds. Only
// batch-level failures (missing column set, zero valid records) abort the
// call.
package pipeline

import (
	"fmt"

	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

// SourceKind identifies a data source variant.
type SourceKind string

const (
	// SourceRetail is point-of-sale transaction data from the retail banners.
	SourceRetail SourceKind = "retail"

	// SourceLoyalty is earn/redeem events from the loyalty program itself.
	SourceLoyalty SourceKind = "loyalty"

	// SourcePartner is transaction data from program partners.
	SourcePartner SourceKind = "partner"
)

// ParseSourceKind validates a source name.
func ParseSourceKind(s string) (SourceKind, error) {
	switch SourceKind(s) {
	case SourceRetail, SourceLoyalty, SourcePartner:
		return SourceKind(s), nil
	default:
		return "", fmt.Errorf("unknown source kind %q", s)
	}
}

// SourceConfig describes how one source's raw records map onto the
// canonical Transaction shape.
type SourceConfig struct {
	// Kind identifies the source.
	Kind SourceKind

	// Renames maps source-specific field names to canonical ones.
	// Canonical names always pass through unchanged.
	Renames map[string]string

	// RequiredColumns is the canonical column set the batch must carry.
	// A column missing from every record in the batch is a batch-level
	// feature error, not a per-record one.
	RequiredColumns []string

	// Categoricals lists string fields case-folded to lowercase before
	// validation.
	Categoricals []string

	// Vocab restricts a field to a closed value set (checked after
	// case-folding).
	Vocab map[string][]string

	// SynthesizeItems creates a single line item from the record amount
	// for sources that carry no item detail.
	SynthesizeItems bool

	// ItemSKU is the synthetic line item SKU when SynthesizeItems is set.
	ItemSKU string

	// DefaultPayment fills payment_method for sources that lack one.
	DefaultPayment string
}

// sourceConfigs is the closed set of supported source variants.
var sourceConfigs = map[SourceKind]SourceConfig{
	SourceRetail: {
		Kind: SourceRetail,
		Renames: map[string]string{
			"trans_id":              "transaction_id",
			"cust_id":               "customer_id",
			"transaction_timestamp": "timestamp",
			"amount":                "total_amount",
			"retail_banner":         "banner",
			"payment_type":          "payment_method",
			"scene_points":          "points_earned",
		},
		RequiredColumns: []string{
			"transaction_id", "customer_id", "timestamp",
			"total_amount", "banner", "items", "payment_method",
		},
		Categoricals: []string{"banner", "payment_method"},
	},
	SourceLoyalty: {
		Kind: SourceLoyalty,
		Renames: map[string]string{
			"member_id":             "customer_id",
			"transaction_timestamp": "timestamp",
			"points":                "points_earned",
			"partner":               "banner",
		},
		RequiredColumns: []string{
			"transaction_id", "customer_id", "timestamp",
			"transaction_type", "points_earned", "banner",
		},
		Categoricals: []string{"banner", "transaction_type"},
		Vocab: map[string][]string{
			"transaction_type": {models.TransactionTypeEarn, models.TransactionTypeRedeem},
		},
		SynthesizeItems: true,
		ItemSKU:         "loyalty-event",
		DefaultPayment:  "points",
	},
	SourcePartner: {
		Kind: SourcePartner,
		Renames: map[string]string{
			"member_id":             "customer_id",
			"transaction_timestamp": "timestamp",
			"partner_id":            "banner",
			"amount":                "total_amount",
			"points":                "points_earned",
		},
		RequiredColumns: []string{
			"transaction_id", "customer_id", "timestamp",
			"total_amount", "banner", "points_earned",
		},
		Categoricals: []string{"banner", "transaction_type"},
		Vocab: map[string][]string{
			"banner": {models.PartnerCineplex, models.PartnerScotiabank},
		},
		SynthesizeItems: true,
		ItemSKU:         "partner-event",
		DefaultPayment:  "partner",
	},
}

// SourceConfigFor returns the variant configuration for a source kind.
func SourceConfigFor(kind SourceKind) (SourceConfig, error) {
	cfg, ok := sourceConfigs[kind]
	if !ok {
		return SourceConfig{}, fmt.Errorf("unknown source kind %q", kind)
	}
	return cfg, nil
}
