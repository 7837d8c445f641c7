package postgres

import (
	"context"
	"database/sql"
	"errors"

	fleet "fleetwatch/internal/fleet/domain"
)

// InventoryRepository is a Postgres repository for the device inventory.
type InventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository constructs a repository.
func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Watches loads every inventory row.
func (r *InventoryRepository) Watches(ctx context.Context) ([]fleet.Watch, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fleet inventory repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT project, name, token, fitbit_user, current_student, is_active
FROM fitbit_watches
ORDER BY project, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var watches []fleet.Watch
	for rows.Next() {
		var watch fleet.Watch
		if err := rows.Scan(&watch.Project, &watch.Name, &watch.Token, &watch.User, &watch.CurrentStudent, &watch.IsActive); err != nil {
			return nil, err
		}
		watches = append(watches, watch)
	}
	return watches, rows.Err()
}
