package postgres

import (
	"context"
	"database/sql"
	"errors"

	fleet "fleetwatch/internal/fleet/domain"
)

// LogRepository is a Postgres repository for the rolling device log.
type LogRepository struct {
	db *sql.DB
}

// NewLogRepository constructs a repository.
func NewLogRepository(db *sql.DB) *LogRepository {
	return &LogRepository{db: db}
}

// All loads every log row.
func (r *LogRepository) All(ctx context.Context) ([]fleet.DeviceState, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fleet log repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT project, watch_name, last_check, last_synced, last_battery, last_hr,
	last_sleep_start, last_sleep_end, last_sleep_dur, last_steps,
	current_failed_sync, total_failed_sync, current_failed_hr, total_failed_hr,
	current_failed_sleep, total_failed_sleep, current_failed_steps, total_failed_steps
FROM fitbit_log
ORDER BY project, watch_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []fleet.DeviceState
	for rows.Next() {
		var state fleet.DeviceState
		var lastCheck sql.NullTime
		if err := rows.Scan(
			&state.Project, &state.Name, &lastCheck, &state.LastSynced, &state.LastBattery, &state.LastHR,
			&state.LastSleepStart, &state.LastSleepEnd, &state.LastSleepDur, &state.LastSteps,
			&state.Sync.Current, &state.Sync.Total, &state.HR.Current, &state.HR.Total,
			&state.Sleep.Current, &state.Sleep.Total, &state.Steps.Current, &state.Steps.Total,
		); err != nil {
			return nil, err
		}
		if lastCheck.Valid {
			state.LastCheck = lastCheck.Time.UTC()
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// ReplaceAll writes the whole log back in one transaction.
func (r *LogRepository) ReplaceAll(ctx context.Context, states []fleet.DeviceState) error {
	if r == nil || r.db == nil {
		return errors.New("fleet log repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fitbit_log`); err != nil {
		return err
	}
	for _, state := range states {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO fitbit_log (
	id, project, watch_name, last_check, last_synced, last_battery, last_hr,
	last_sleep_start, last_sleep_end, last_sleep_dur, last_steps,
	current_failed_sync, total_failed_sync, current_failed_hr, total_failed_hr,
	current_failed_sleep, total_failed_sleep, current_failed_steps, total_failed_steps
) VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	$8, $9, $10, $11,
	$12, $13, $14, $15,
	$16, $17, $18, $19
)`, state.ID(), state.Project, state.Name, nullTime(state), state.LastSynced, state.LastBattery, state.LastHR,
			state.LastSleepStart, state.LastSleepEnd, state.LastSleepDur, state.LastSteps,
			state.Sync.Current, state.Sync.Total, state.HR.Current, state.HR.Total,
			state.Sleep.Current, state.Sleep.Total, state.Steps.Current, state.Steps.Total,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func nullTime(state fleet.DeviceState) sql.NullTime {
	if state.LastCheck.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: state.LastCheck.UTC(), Valid: true}
}
