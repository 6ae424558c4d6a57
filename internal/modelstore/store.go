// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

// Package modelstore persists trained model state to disk.
//
// Models are serialized with gob, gzip-compressed, and written as
// {name}_v{version}.gob.gz with metadata and a SHA-256 checksum so a
// corrupted file is rejected at load instead of producing silent garbage.
// Versions are monotonically increasing, which allows rollback to an
// earlier model and pruning of stale ones.
package modelstore

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ModelMetadata describes a stored model version.
type ModelMetadata struct {
	// Name is the model identifier (e.g. "customer_segmentation").
	Name string `json:"name"`

	// Version is monotonically increasing per model name.
	Version int `json:"version"`

	// TrainedAt is when the model was trained.
	TrainedAt time.Time `json:"trained_at"`

	// SavedAt is when the model was written to disk.
	SavedAt time.Time `json:"saved_at"`

	// CustomerCount is the number of customers in the training batch.
	CustomerCount int `json:"customer_count"`

	// Clusters is k for clustering models, zero otherwise.
	Clusters int `json:"clusters"`

	// Checksum is the SHA-256 of the uncompressed model bytes.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed size on disk.
	SizeBytes int64 `json:"size_bytes"`

	// TrainingDurationMS is how long training took.
	TrainingDurationMS int64 `json:"training_duration_ms"`
}

// storedFile is the on-disk format.
type storedFile struct {
	Metadata       ModelMetadata
	CompressedData []byte
}

// Store manages model files under one directory.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	// latest known version per model name
	versions map[string]int
}

// NewStore opens a store at the given directory, creating it if needed and
// scanning it for existing model versions.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}
	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string]int),
	}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan existing models: %w", err)
	}
	return s, nil
}

func (s *Store) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := trimModelExt(entry.Name())
		if !ok {
			continue
		}
		modelName, version := parseModelFilename(name)
		if modelName == "" {
			continue
		}
		if current, ok := s.versions[modelName]; !ok || version > current {
			s.versions[modelName] = version
		}
	}
	return nil
}

func trimModelExt(name string) (string, bool) {
	const ext = ".gob.gz"
	if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
		return name[:len(name)-len(ext)], true
	}
	return "", false
}

// parseModelFilename splits "customer_segmentation_v3" into name and version.
func parseModelFilename(name string) (modelName string, version int) {
	lastVIdx := -1
	for i := len(name) - 1; i >= 1; i-- {
		if name[i] == 'v' && name[i-1] == '_' {
			lastVIdx = i - 1
			break
		}
	}
	if lastVIdx <= 0 {
		return "", 0
	}
	if _, err := fmt.Sscanf(name[lastVIdx+2:], "%d", &version); err != nil {
		return "", 0
	}
	return name[:lastVIdx], version
}

func (s *Store) modelPath(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d.gob.gz", name, version))
}

// Save writes a model version to disk. The metadata's checksum, size, and
// save time are filled in here.
func (s *Store) Save(name string, version int, state any, meta ModelMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	rawData := buf.Bytes()

	hash := sha256.Sum256(rawData)
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(rawData); err != nil {
		return fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	meta.Name = name
	meta.Version = version
	meta.SavedAt = time.Now()
	meta.SizeBytes = int64(compressed.Len())

	f, err := os.Create(s.modelPath(name, version))
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sf := storedFile{Metadata: meta, CompressedData: compressed.Bytes()}
	if err := gob.NewEncoder(f).Encode(sf); err != nil {
		return fmt.Errorf("write model file: %w", err)
	}

	if current, ok := s.versions[name]; !ok || version > current {
		s.versions[name] = version
	}
	return nil
}

// Load reads a model version into target. Version 0 means the latest.
func (s *Store) Load(name string, version int, target any) (*ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		var ok bool
		version, ok = s.versions[name]
		if !ok {
			return nil, fmt.Errorf("no model found for %s", name)
		}
	}

	f, err := os.Open(s.modelPath(name, version))
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }()

	rawData, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(rawData)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(rawData)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &sf.Metadata, nil
}

// LatestVersion returns the newest known version for a model name.
func (s *Store) LatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	version, ok := s.versions[name]
	return version, ok
}

// List returns metadata for every stored model version, newest first per
// model name.
func (s *Store) List() ([]ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}
	var metas []ModelMetadata
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := trimModelExt(entry.Name()); !ok {
			continue
		}
		f, err := os.Open(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var sf storedFile
		err = gob.NewDecoder(f).Decode(&sf)
		_ = f.Close()
		if err != nil {
			continue
		}
		metas = append(metas, sf.Metadata)
	}
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].Name != metas[j].Name {
			return metas[i].Name < metas[j].Name
		}
		return metas[i].Version > metas[j].Version
	})
	return metas, nil
}

// Prune deletes all but the newest keep versions of a model. The latest
// version is never deleted.
func (s *Store) Prune(name string, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, err
	}
	var versions []int
	for _, entry := range entries {
		base, ok := trimModelExt(entry.Name())
		if !ok {
			continue
		}
		modelName, version := parseModelFilename(base)
		if modelName == name {
			versions = append(versions, version)
		}
	}
	if len(versions) <= keep {
		return 0, nil
	}

	sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	removed := 0
	for _, version := range versions[keep:] {
		if err := os.Remove(s.modelPath(name, version)); err != nil {
			return removed, fmt.Errorf("remove version %d: %w", version, err)
		}
		removed++
	}
	return removed, nil
}
