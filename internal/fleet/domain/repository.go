package fleet

import "context"

// LogRepository persists the rolling device log, one row per device.
// The log is treated as a whole-table resource: reads and writes cover
// every row. Concurrent whole-table writers race with last-writer-wins.
type LogRepository interface {
	All(ctx context.Context) ([]DeviceState, error)
	ReplaceAll(ctx context.Context, states []DeviceState) error
}

// InventoryRepository reads the device inventory.
type InventoryRepository interface {
	Watches(ctx context.Context) ([]Watch, error)
}
