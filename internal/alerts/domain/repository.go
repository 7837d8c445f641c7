package alerts

import "context"

// ConfigRepository persists the configuration table. Like the device
// log it is a whole-table resource; saves read the full table, apply
// the upsert rule and write everything back.
type ConfigRepository interface {
	All(ctx context.Context) ([]Config, error)
	ReplaceAll(ctx context.Context, configs []Config) error
}
