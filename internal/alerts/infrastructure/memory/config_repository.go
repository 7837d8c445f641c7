package memory

import (
	"context"
	"sync"

	alerts "fleetwatch/internal/alerts/domain"
)

// ConfigRepository is an in-memory configuration table for demo/testing.
type ConfigRepository struct {
	mu      sync.RWMutex
	configs []alerts.Config
}

// NewConfigRepository constructs a repository.
func NewConfigRepository() *ConfigRepository {
	return &ConfigRepository{}
}

// All returns a copy of every configuration row.
func (r *ConfigRepository) All(ctx context.Context) ([]alerts.Config, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	configs := make([]alerts.Config, len(r.configs))
	copy(configs, r.configs)
	return configs, nil
}

// ReplaceAll swaps the whole configuration table.
func (r *ConfigRepository) ReplaceAll(ctx context.Context, configs []alerts.Config) error {
	_ = ctx
	replaced := make([]alerts.Config, len(configs))
	copy(replaced, configs)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = replaced
	return nil
}
