// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package offers

import (
	"errors"
	"testing"
	"time"

	"github.com/NandaKumar8776/scene-plus-engine/internal/config"
	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

var fixedNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	e := NewEngine(config.OffersConfig{DefaultCount: 3, MaxCount: 10})
	e.nowFn = func() time.Time { return fixedNow }
	return e
}

// lapsedSaver is inactive for a long stretch, shops one banner, earns far
// more points per dollar than the rest of the cohort.
func lapsedSaver() models.CustomerProfile {
	return models.CustomerProfile{
		CustomerID:              "C-LAPSED",
		TransactionCount:        3,
		TotalSpend:              90,
		AverageTransactionValue: 30,
		TotalPoints:             900,
		AveragePointsEarned:     300,
		UniqueBanners:           1,
		AverageBasketSize:       2,
		DaysSinceLastVisit:      90,
		VisitedBanners:          []string{"sobeys"},
	}
}

// bigSpender is active across many banners with large baskets.
func bigSpender() models.CustomerProfile {
	return models.CustomerProfile{
		CustomerID:              "C-BIG",
		TransactionCount:        40,
		TotalSpend:              4000,
		AverageTransactionValue: 100,
		TotalPoints:             2000,
		AveragePointsEarned:     50,
		UniqueBanners:           5,
		AverageBasketSize:       15,
		DaysSinceLastVisit:      1,
		VisitedBanners:          []string{"foodland", "freshco", "iga", "safeway", "sobeys"},
	}
}

// midCustomer sits between the extremes so min-max scaling does not collapse.
func midCustomer() models.CustomerProfile {
	return models.CustomerProfile{
		CustomerID:              "C-MID",
		TransactionCount:        10,
		TotalSpend:              800,
		AverageTransactionValue: 80,
		TotalPoints:             700,
		AveragePointsEarned:     70,
		UniqueBanners:           2,
		AverageBasketSize:       6,
		DaysSinceLastVisit:      10,
		VisitedBanners:          []string{"safeway", "sobeys"},
	}
}

func assignAll(profiles []models.CustomerProfile, description string) []models.SegmentAssignment {
	out := make([]models.SegmentAssignment, len(profiles))
	for i, p := range profiles {
		out[i] = models.SegmentAssignment{CustomerID: p.CustomerID, SegmentID: 0, Description: description}
	}
	return out
}

func TestGenerateEmptyBatch(t *testing.T) {
	e := newTestEngine()
	_, err := e.Generate(nil, nil, 3)
	var ferr *models.FeatureError
	if !errors.As(err, &ferr) {
		t.Fatalf("want FeatureError, got %v", err)
	}
}

func TestGenerateMissingAssignment(t *testing.T) {
	e := newTestEngine()
	profiles := []models.CustomerProfile{lapsedSaver(), bigSpender()}
	assignments := assignAll(profiles[:1], "Average")
	_, err := e.Generate(profiles, assignments, 3)
	var ferr *models.FeatureError
	if !errors.As(err, &ferr) {
		t.Fatalf("want FeatureError, got %v", err)
	}
}

func TestGenerateLapsedCustomerOffers(t *testing.T) {
	e := newTestEngine()
	profiles := []models.CustomerProfile{lapsedSaver(), bigSpender(), midCustomer()}
	result, err := e.Generate(profiles, assignAll(profiles, "Average"), 10)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	got := result["C-LAPSED"]
	types := make(map[models.OfferType]models.Offer, len(got))
	for _, o := range got {
		types[o.OfferType] = o
	}

	// Maximum recency in the cohort triggers the win-back bonus.
	bonus, ok := types[models.OfferPointsBonus]
	if !ok {
		t.Fatalf("no points_bonus for lapsed customer: %v", types)
	}
	if bonus.Value != 250 || bonus.Conditions["min_spend"] != 25 {
		t.Errorf("points_bonus shape: %+v", bonus)
	}
	if !bonus.EndDate.Equal(fixedNow.AddDate(0, 0, 7)) {
		t.Errorf("points_bonus window: %v", bonus.EndDate)
	}

	// Single-banner shopper gets cross-banner targeting at the banners
	// they have not visited.
	cross, ok := types[models.OfferCrossBanner]
	if !ok {
		t.Fatalf("no cross_banner offer: %v", types)
	}
	want := []string{"safeway", "iga", "foodland", "freshco"}
	if len(cross.TargetBanners) != len(want) {
		t.Fatalf("target banners: %v", cross.TargetBanners)
	}
	for i, b := range want {
		if cross.TargetBanners[i] != b {
			t.Errorf("target banner %d: got %q want %q", i, cross.TargetBanners[i], b)
		}
	}

	// Highest points-per-dollar in the cohort triggers the multiplier.
	mult, ok := types[models.OfferPointsMultiplier]
	if !ok {
		t.Fatalf("no points_multiplier offer: %v", types)
	}
	if mult.Value != 2.0 {
		t.Errorf("multiplier value: %v", mult.Value)
	}

	for _, o := range got {
		if o.OfferID == "" {
			t.Error("offer without ID")
		}
		if !o.OfferType.Valid() {
			t.Errorf("invalid offer type %q", o.OfferType)
		}
	}
}

func TestGenerateBigSpenderOffers(t *testing.T) {
	e := newTestEngine()
	profiles := []models.CustomerProfile{lapsedSaver(), bigSpender(), midCustomer()}
	result, err := e.Generate(profiles, assignAll(profiles, "Average"), 10)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	got := result["C-BIG"]
	var threshold *models.Offer
	for i := range got {
		if got[i].OfferType == models.OfferThresholdBonus {
			threshold = &got[i]
		}
		if got[i].OfferType == models.OfferCrossBanner {
			t.Error("five-banner customer got a cross-banner offer")
		}
		if got[i].OfferType == models.OfferPointsBonus {
			t.Error("active customer got a win-back bonus")
		}
	}
	if threshold == nil {
		t.Fatalf("no threshold_bonus for top spender: %v", got)
	}
	if threshold.Value != 1000 || threshold.Conditions["spend_threshold"] != 150 {
		t.Errorf("threshold_bonus shape: %+v", threshold)
	}
}

func TestGenerateTruncatesToCount(t *testing.T) {
	e := newTestEngine()
	profiles := []models.CustomerProfile{lapsedSaver(), bigSpender(), midCustomer()}
	result, err := e.Generate(profiles, assignAll(profiles, "Average"), 1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for id, got := range result {
		if len(got) > 1 {
			t.Errorf("%s: got %d offers, want at most 1", id, len(got))
		}
	}
}

func TestGenerateDefaultAndMaxCount(t *testing.T) {
	e := NewEngine(config.OffersConfig{DefaultCount: 2, MaxCount: 3})
	e.nowFn = func() time.Time { return fixedNow }
	profiles := []models.CustomerProfile{lapsedSaver(), bigSpender(), midCustomer()}

	result, err := e.Generate(profiles, assignAll(profiles, "Average"), 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for id, got := range result {
		if len(got) > 2 {
			t.Errorf("%s: default count not applied, got %d offers", id, len(got))
		}
	}

	result, err = e.Generate(profiles, assignAll(profiles, "Average"), 50)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for id, got := range result {
		if len(got) > 3 {
			t.Errorf("%s: max count not applied, got %d offers", id, len(got))
		}
	}
}

func TestGenerateRankedByScore(t *testing.T) {
	e := newTestEngine()
	profiles := []models.CustomerProfile{lapsedSaver(), bigSpender(), midCustomer()}
	result, err := e.Generate(profiles, assignAll(profiles, "Average"), 10)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	lapsed := lapsedSaver()
	got := result["C-LAPSED"]
	for i := 1; i < len(got); i++ {
		prev := scoreOffer(got[i-1], lapsed, "Average")
		cur := scoreOffer(got[i], lapsed, "Average")
		if prev < cur {
			t.Errorf("offers not ranked: %v (%.2f) before %v (%.2f)",
				got[i-1].OfferType, prev, got[i].OfferType, cur)
		}
	}
}

func TestGenerateTiedScoresKeepRuleOrder(t *testing.T) {
	e := newTestEngine()

	// Only the multiplier and cross-banner rules fire, and the profile's
	// points haul makes their adjusted scores equal: 2.0 x 250 = 500, the
	// cross-banner flat value. The stable sort must then keep rule order.
	profile := models.CustomerProfile{
		CustomerID:          "C-TIE",
		AveragePointsEarned: 250,
		VisitedBanners:      []string{"sobeys"},
	}
	feats := map[string]float64{
		"points_redemption_rate": 0.9,
		"cross_banner_shopping":  0.1,
		"category_diversity":     0.9,
		"total_spend":            0.3,
		"days_since_last_visit":  0.3,
	}

	got := e.generateFor(profile, feats, "Average", 5, fixedNow)
	if len(got) != 2 {
		t.Fatalf("offers: got %d, want 2", len(got))
	}
	first := scoreOffer(got[0], profile, "Average")
	second := scoreOffer(got[1], profile, "Average")
	if first != second {
		t.Fatalf("scores not tied: %v vs %v", first, second)
	}
	if got[0].OfferType != models.OfferPointsMultiplier {
		t.Errorf("first offer: got %s, want %s", got[0].OfferType, models.OfferPointsMultiplier)
	}
	if got[1].OfferType != models.OfferCrossBanner {
		t.Errorf("second offer: got %s, want %s", got[1].OfferType, models.OfferCrossBanner)
	}
}

func TestScoreOffer(t *testing.T) {
	profile := models.CustomerProfile{
		AveragePointsEarned:     100,
		AverageTransactionValue: 75,
	}
	tests := []struct {
		name    string
		offer   models.Offer
		segment string
		want    float64
	}{
		{
			name:  "multiplier scales with points haul",
			offer: models.Offer{OfferType: models.OfferPointsMultiplier, Value: 2},
			want:  200,
		},
		{
			name: "threshold scales with transaction ratio",
			offer: models.Offer{
				OfferType:  models.OfferThresholdBonus,
				Value:      1000,
				Conditions: map[string]float64{"spend_threshold": 150},
			},
			want: 500,
		},
		{
			name:  "flat bonus unchanged",
			offer: models.Offer{OfferType: models.OfferPointsBonus, Value: 250},
			want:  250,
		},
		{
			name:    "points saver multiplier",
			offer:   models.Offer{OfferType: models.OfferPointsBonus, Value: 250},
			segment: "Points Saver",
			want:    325,
		},
		{
			name:    "compound description is neutral",
			offer:   models.Offer{OfferType: models.OfferPointsBonus, Value: 250},
			segment: "High Spender & Multi-Banner",
			want:    250,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoreOffer(tt.offer, profile, tt.segment); got != tt.want {
				t.Errorf("scoreOffer = %v, want %v", got, tt.want)
			}
		})
	}
}
