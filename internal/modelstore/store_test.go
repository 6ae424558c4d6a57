// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package modelstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeState struct {
	Centroids [][]float64
	Columns   []string
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	state := fakeState{
		Centroids: [][]float64{{1.5, 2.5}, {3.5, 4.5}},
		Columns:   []string{"total_spend", "basket_size"},
	}
	meta := ModelMetadata{
		TrainedAt:     time.Now().Add(-time.Minute),
		CustomerCount: 100,
		Clusters:      2,
	}
	if err := s.Save("customer_segmentation", 1, state, meta); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var loaded fakeState
	got, err := s.Load("customer_segmentation", 1, &loaded)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "customer_segmentation" || got.Version != 1 {
		t.Errorf("metadata: %+v", got)
	}
	if got.Checksum == "" || got.SizeBytes == 0 {
		t.Errorf("integrity fields not filled: %+v", got)
	}
	if got.CustomerCount != 100 || got.Clusters != 2 {
		t.Errorf("training fields lost: %+v", got)
	}
	if len(loaded.Centroids) != 2 || loaded.Centroids[1][0] != 3.5 {
		t.Errorf("state: %+v", loaded)
	}
	if len(loaded.Columns) != 2 || loaded.Columns[0] != "total_spend" {
		t.Errorf("columns: %+v", loaded.Columns)
	}
}

func TestLoadLatestVersion(t *testing.T) {
	s := newTestStore(t)
	for v := 1; v <= 3; v++ {
		state := fakeState{Centroids: [][]float64{{float64(v)}}}
		if err := s.Save("customer_segmentation", v, state, ModelMetadata{}); err != nil {
			t.Fatalf("Save v%d: %v", v, err)
		}
	}
	var loaded fakeState
	meta, err := s.Load("customer_segmentation", 0, &loaded)
	if err != nil {
		t.Fatalf("Load latest: %v", err)
	}
	if meta.Version != 3 || loaded.Centroids[0][0] != 3 {
		t.Errorf("latest: version %d state %v", meta.Version, loaded.Centroids)
	}
}

func TestLoadUnknownModel(t *testing.T) {
	s := newTestStore(t)
	var loaded fakeState
	if _, err := s.Load("nonexistent", 0, &loaded); err == nil {
		t.Fatal("expected error")
	}
}

func TestScanPicksUpExistingModels(t *testing.T) {
	dir := t.TempDir()
	first, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Save("customer_segmentation", 7, fakeState{Centroids: [][]float64{{1}}}, ModelMetadata{}); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := reopened.LatestVersion("customer_segmentation"); !ok || v != 7 {
		t.Errorf("LatestVersion after reopen: %d %v", v, ok)
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save("customer_segmentation", 1, fakeState{Centroids: [][]float64{{1}}}, ModelMetadata{}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "customer_segmentation_v1.gob.gz")
	if err := os.WriteFile(path, []byte("not a model"), 0o600); err != nil {
		t.Fatal(err)
	}
	var loaded fakeState
	if _, err := s.Load("customer_segmentation", 1, &loaded); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}

func TestListSortsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	for v := 1; v <= 2; v++ {
		if err := s.Save("customer_segmentation", v, fakeState{Centroids: [][]float64{{1}}}, ModelMetadata{}); err != nil {
			t.Fatal(err)
		}
	}
	metas, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d entries", len(metas))
	}
	if metas[0].Version != 2 || metas[1].Version != 1 {
		t.Errorf("order: %d then %d", metas[0].Version, metas[1].Version)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	s := newTestStore(t)
	for v := 1; v <= 5; v++ {
		if err := s.Save("customer_segmentation", v, fakeState{Centroids: [][]float64{{1}}}, ModelMetadata{}); err != nil {
			t.Fatal(err)
		}
	}
	removed, err := s.Prune("customer_segmentation", 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed %d, want 3", removed)
	}
	var loaded fakeState
	if _, err := s.Load("customer_segmentation", 5, &loaded); err != nil {
		t.Errorf("newest version gone: %v", err)
	}
	if _, err := s.Load("customer_segmentation", 4, &loaded); err != nil {
		t.Errorf("second newest gone: %v", err)
	}
	if _, err := s.Load("customer_segmentation", 3, &loaded); err == nil {
		t.Error("pruned version still loads")
	}
}

func TestParseModelFilename(t *testing.T) {
	tests := []struct {
		in          string
		wantName    string
		wantVersion int
	}{
		{"customer_segmentation_v3", "customer_segmentation", 3},
		{"offers_v12", "offers", 12},
		{"noversion", "", 0},
		{"_v1", "", 0},
	}
	for _, tt := range tests {
		name, version := parseModelFilename(tt.in)
		if name != tt.wantName || version != tt.wantVersion {
			t.Errorf("parseModelFilename(%q) = %q, %d", tt.in, name, version)
		}
	}
}
