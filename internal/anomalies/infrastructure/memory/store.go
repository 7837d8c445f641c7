package memory

import (
	"context"
	"errors"
	"sync"

	anomalies "fleetwatch/internal/anomalies/domain"
)

// Store is an in-memory acknowledgement store for demo/testing.
type Store struct {
	mu     sync.RWMutex
	tables map[anomalies.Kind][]anomalies.Anomaly
}

// NewStore constructs a store.
func NewStore() *Store {
	return &Store{tables: make(map[anomalies.Kind][]anomalies.Anomaly)}
}

// All returns a copy of the full table for a kind.
func (s *Store) All(ctx context.Context, kind anomalies.Kind) ([]anomalies.Anomaly, error) {
	_ = ctx
	if _, ok := anomalies.ParseKind(string(kind)); !ok {
		return nil, errors.New("anomaly store: unknown kind " + string(kind))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]anomalies.Anomaly, len(s.tables[kind]))
	copy(records, s.tables[kind])
	return records, nil
}

// ReplaceAll swaps the full table for a kind.
func (s *Store) ReplaceAll(ctx context.Context, kind anomalies.Kind, records []anomalies.Anomaly) error {
	_ = ctx
	if _, ok := anomalies.ParseKind(string(kind)); !ok {
		return errors.New("anomaly store: unknown kind " + string(kind))
	}
	replaced := make([]anomalies.Anomaly, len(records))
	copy(replaced, records)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[kind] = replaced
	return nil
}
