package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// snapshotEntry records one device's activity flag from the last run.
type snapshotEntry struct {
	Active bool   `json:"active"`
	Name   string `json:"name"`
}

// ActivitySnapshot persists per-device active flags between runs, keyed
// by device id. It is the only state carried across runs outside the
// persistent store, and exists solely so the collector can detect the
// inactive-to-active transition that resets lifetime counters.
type ActivitySnapshot struct {
	path string
}

// NewActivitySnapshot points the snapshot at a JSON file. The file is
// created on first save.
func NewActivitySnapshot(path string) (*ActivitySnapshot, error) {
	if path == "" {
		return nil, errors.New("fleet: empty snapshot path")
	}
	return &ActivitySnapshot{path: path}, nil
}

// Load reads the snapshot. A missing file reads as empty.
func (s *ActivitySnapshot) Load() (map[string]snapshotEntry, error) {
	if s == nil {
		return nil, errors.New("fleet: nil snapshot")
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]snapshotEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fleet: read snapshot: %w", err)
	}
	entries := map[string]snapshotEntry{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("fleet: decode snapshot: %w", err)
	}
	return entries, nil
}

// Save writes the snapshot atomically via a temp file rename.
func (s *ActivitySnapshot) Save(entries map[string]snapshotEntry) error {
	if s == nil {
		return errors.New("fleet: nil snapshot")
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("fleet: encode snapshot: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("fleet: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("fleet: replace snapshot: %w", err)
	}
	return nil
}
