package postgres

import (
	"context"
	"database/sql"
	"errors"

	alerts "fleetwatch/internal/alerts/domain"
)

// ConfigRepository is a Postgres repository for the alert configuration
// table. The table mirrors the workbook sheet: reads and writes cover
// every row.
type ConfigRepository struct {
	db *sql.DB
}

// NewConfigRepository constructs a repository.
func NewConfigRepository(db *sql.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// All loads every configuration row.
func (r *ConfigRepository) All(ctx context.Context) ([]alerts.Config, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert config repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT project, watch, email, manager,
	current_sync_thr, total_sync_thr, current_hr_thr, total_hr_thr,
	current_sleep_thr, total_sleep_thr, current_steps_thr, total_steps_thr,
	battery_thr, end_date, updated_at
FROM fitbit_alerts_config
ORDER BY updated_at, project, watch`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []alerts.Config
	for rows.Next() {
		var cfg alerts.Config
		var endDate, updatedAt sql.NullTime
		if err := rows.Scan(
			&cfg.Project, &cfg.Watch, &cfg.Email, &cfg.Manager,
			&cfg.CurrentSyncThr, &cfg.TotalSyncThr, &cfg.CurrentHRThr, &cfg.TotalHRThr,
			&cfg.CurrentSleepThr, &cfg.TotalSleepThr, &cfg.CurrentStepsThr, &cfg.TotalStepsThr,
			&cfg.BatteryThr, &endDate, &updatedAt,
		); err != nil {
			return nil, err
		}
		if endDate.Valid {
			cfg.EndDate = endDate.Time.UTC()
		}
		if updatedAt.Valid {
			cfg.UpdatedAt = updatedAt.Time.UTC()
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// ReplaceAll writes the whole configuration table back in one transaction.
func (r *ConfigRepository) ReplaceAll(ctx context.Context, configs []alerts.Config) error {
	if r == nil || r.db == nil {
		return errors.New("alert config repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fitbit_alerts_config`); err != nil {
		return err
	}
	for _, cfg := range configs {
		var endDate, updatedAt sql.NullTime
		if !cfg.EndDate.IsZero() {
			endDate = sql.NullTime{Time: cfg.EndDate.UTC(), Valid: true}
		}
		if !cfg.UpdatedAt.IsZero() {
			updatedAt = sql.NullTime{Time: cfg.UpdatedAt.UTC(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO fitbit_alerts_config (
	project, watch, email, manager,
	current_sync_thr, total_sync_thr, current_hr_thr, total_hr_thr,
	current_sleep_thr, total_sleep_thr, current_steps_thr, total_steps_thr,
	battery_thr, end_date, updated_at
) VALUES (
	$1, $2, $3, $4,
	$5, $6, $7, $8,
	$9, $10, $11, $12,
	$13, $14, $15
)`, cfg.Project, cfg.Watch, cfg.Email, cfg.Manager,
			cfg.CurrentSyncThr, cfg.TotalSyncThr, cfg.CurrentHRThr, cfg.TotalHRThr,
			cfg.CurrentSleepThr, cfg.TotalSleepThr, cfg.CurrentStepsThr, cfg.TotalStepsThr,
			cfg.BatteryThr, endDate, updatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
