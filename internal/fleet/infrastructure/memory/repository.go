package memory

import (
	"context"
	"sync"

	fleet "fleetwatch/internal/fleet/domain"
)

// LogRepository is an in-memory device log for demo/testing.
type LogRepository struct {
	mu     sync.RWMutex
	states []fleet.DeviceState
}

// NewLogRepository constructs a repository.
func NewLogRepository() *LogRepository {
	return &LogRepository{}
}

// All returns a copy of every log row.
func (r *LogRepository) All(ctx context.Context) ([]fleet.DeviceState, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	states := make([]fleet.DeviceState, len(r.states))
	copy(states, r.states)
	return states, nil
}

// ReplaceAll swaps the whole log.
func (r *LogRepository) ReplaceAll(ctx context.Context, states []fleet.DeviceState) error {
	_ = ctx
	replaced := make([]fleet.DeviceState, len(states))
	copy(replaced, states)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = replaced
	return nil
}

// InventoryRepository is an in-memory device inventory for demo/testing.
type InventoryRepository struct {
	mu      sync.RWMutex
	watches []fleet.Watch
}

// NewInventoryRepository constructs a repository.
func NewInventoryRepository(watches []fleet.Watch) *InventoryRepository {
	repo := &InventoryRepository{}
	repo.SetWatches(watches)
	return repo
}

// Watches returns a copy of every inventory row.
func (r *InventoryRepository) Watches(ctx context.Context) ([]fleet.Watch, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	watches := make([]fleet.Watch, len(r.watches))
	copy(watches, r.watches)
	return watches, nil
}

// SetWatches swaps the inventory.
func (r *InventoryRepository) SetWatches(watches []fleet.Watch) {
	replaced := make([]fleet.Watch, len(watches))
	copy(replaced, watches)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watches = replaced
}
