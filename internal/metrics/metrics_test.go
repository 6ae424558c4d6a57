// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordsNormalizedCounter(t *testing.T) {
	before := testutil.ToFloat64(RecordsNormalized.WithLabelValues("retail", "ok"))
	RecordsNormalized.WithLabelValues("retail", "ok").Add(3)
	after := testutil.ToFloat64(RecordsNormalized.WithLabelValues("retail", "ok"))

	if after-before != 3 {
		t.Errorf("counter delta = %f, want 3", after-before)
	}
}

func TestOfferEventCounters(t *testing.T) {
	before := testutil.ToFloat64(OfferEvents.WithLabelValues("redeem", "points_bonus"))
	OfferEvents.WithLabelValues("redeem", "points_bonus").Inc()
	after := testutil.ToFloat64(OfferEvents.WithLabelValues("redeem", "points_bonus"))

	if after-before != 1 {
		t.Errorf("counter delta = %f, want 1", after-before)
	}
}

func TestObserveTraining(t *testing.T) {
	// Histograms cannot be read via ToFloat64; just ensure no panic and the
	// sample lands in the right label set.
	ObserveTraining("segmentation", time.Now().Add(-10*time.Millisecond))

	count := testutil.CollectAndCount(ModelTrainingDuration)
	if count == 0 {
		t.Error("ModelTrainingDuration collected 0 series, want >= 1")
	}
}
