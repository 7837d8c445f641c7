package excel

import (
	"context"
	"errors"
	"strings"

	fleet "fleetwatch/internal/fleet/domain"
	storage "fleetwatch/internal/storage/excel"
)

const inventorySheet = "fitbit"

// InventoryRepository reads the device inventory from the fitbit sheet.
type InventoryRepository struct {
	workbook *storage.Workbook
}

// NewInventoryRepository constructs a workbook-backed inventory repository.
func NewInventoryRepository(workbook *storage.Workbook) (*InventoryRepository, error) {
	if workbook == nil {
		return nil, errors.New("fleet: nil workbook")
	}
	return &InventoryRepository{workbook: workbook}, nil
}

// Watches reads every inventory row.
func (r *InventoryRepository) Watches(ctx context.Context) ([]fleet.Watch, error) {
	if r == nil {
		return nil, errors.New("fleet: nil inventory repository")
	}
	rows, err := r.workbook.ReadSheet(inventorySheet)
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	watches := make([]fleet.Watch, 0, len(rows)-1)
	for _, row := range rows[1:] {
		watch := fleet.Watch{
			Project:        cell(row, 0),
			Name:           cell(row, 1),
			Token:          cell(row, 2),
			User:           cell(row, 3),
			CurrentStudent: cell(row, 4),
			IsActive:       parseActive(cell(row, 5)),
		}
		if watch.Project == "" && watch.Name == "" {
			continue
		}
		watches = append(watches, watch)
	}
	return watches, nil
}

// parseActive reads the inventory active flag. Only an explicit FALSE
// deactivates a device; hand-appended rows with a blank cell stay
// monitored.
func parseActive(value string) bool {
	return !strings.EqualFold(strings.TrimSpace(value), "FALSE")
}
