// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

// Package offers generates personalized offers from customer behavior and
// segment membership through a fixed, ordered rule set.
package offers

import (
	"time"

	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

// retailBanners are the grocery banners eligible for cross-banner targeting.
var retailBanners = []string{"sobeys", "safeway", "iga", "foodland", "freshco"}

// discountCategories are the categories eligible for category discounts.
var discountCategories = []string{"Produce", "Dairy", "Meat", "Bakery", "Pantry"}

// rule evaluates one offer trigger against a customer's scaled features. A
// nil return means the trigger did not fire. Rule order is fixed and doubles
// as the tie-break when scored offers are sorted.
type rule func(feats map[string]float64, profile models.CustomerProfile, now time.Time) *models.Offer

var ruleSet = []rule{
	pointsMultiplierRule,
	crossBannerRule,
	categoryDiscountRule,
	thresholdBonusRule,
	pointsBonusRule,
}

// pointsMultiplierRule rewards heavy points earners with 2x points.
func pointsMultiplierRule(feats map[string]float64, _ models.CustomerProfile, now time.Time) *models.Offer {
	if feats["points_redemption_rate"] <= 0.7 {
		return nil
	}
	return &models.Offer{
		OfferType:  models.OfferPointsMultiplier,
		Value:      2.0,
		Conditions: map[string]float64{"min_spend": 50},
		StartDate:  now,
		EndDate:    now.AddDate(0, 0, 30),
	}
}

// crossBannerRule nudges single-banner customers toward banners they have
// not visited.
func crossBannerRule(feats map[string]float64, profile models.CustomerProfile, now time.Time) *models.Offer {
	if feats["cross_banner_shopping"] >= 0.3 {
		return nil
	}
	return &models.Offer{
		OfferType:     models.OfferCrossBanner,
		Value:         500,
		Conditions:    map[string]float64{"min_spend": 75},
		StartDate:     now,
		EndDate:       now.AddDate(0, 0, 30),
		TargetBanners: unvisitedBanners(profile),
	}
}

// categoryDiscountRule gives a 15% discount to customers with narrow baskets.
func categoryDiscountRule(feats map[string]float64, _ models.CustomerProfile, now time.Time) *models.Offer {
	if feats["category_diversity"] >= 0.5 {
		return nil
	}
	return &models.Offer{
		OfferType:        models.OfferCategoryDiscount,
		Value:            0.15,
		Conditions:       map[string]float64{"min_spend": 25},
		StartDate:        now,
		EndDate:          now.AddDate(0, 0, 14),
		TargetCategories: append([]string(nil), discountCategories...),
	}
}

// thresholdBonusRule rewards top spenders for clearing a spend threshold.
func thresholdBonusRule(feats map[string]float64, _ models.CustomerProfile, now time.Time) *models.Offer {
	if feats["total_spend"] <= 0.7 {
		return nil
	}
	return &models.Offer{
		OfferType:  models.OfferThresholdBonus,
		Value:      1000,
		Conditions: map[string]float64{"spend_threshold": 150},
		StartDate:  now,
		EndDate:    now.AddDate(0, 0, 30),
	}
}

// pointsBonusRule is a win-back bonus for lapsed customers.
func pointsBonusRule(feats map[string]float64, _ models.CustomerProfile, now time.Time) *models.Offer {
	if feats["days_since_last_visit"] <= 0.8 {
		return nil
	}
	return &models.Offer{
		OfferType:  models.OfferPointsBonus,
		Value:      250,
		Conditions: map[string]float64{"min_spend": 25},
		StartDate:  now,
		EndDate:    now.AddDate(0, 0, 7),
	}
}

// unvisitedBanners returns the retail banners absent from the customer's
// visit history, preserving the canonical banner order.
func unvisitedBanners(profile models.CustomerProfile) []string {
	visited := make(map[string]bool, len(profile.VisitedBanners))
	for _, b := range profile.VisitedBanners {
		visited[b] = true
	}
	var out []string
	for _, b := range retailBanners {
		if !visited[b] {
			out = append(out, b)
		}
	}
	return out
}
