package postgres

import (
	"context"
	"database/sql"
	"errors"

	anomalies "fleetwatch/internal/anomalies/domain"
)

// Store is a Postgres store for the acknowledgement tables. Rows are
// upserted by phone number; an accepted row is never downgraded even if
// the incoming row is unaccepted.
type Store struct {
	db *sql.DB
}

// NewStore constructs a store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func tableFor(kind anomalies.Kind) (string, error) {
	switch kind {
	case anomalies.KindSuspicious:
		return "suspicious_nums", nil
	case anomalies.KindLate:
		return "late_nums", nil
	default:
		return "", errors.New("anomaly store: unknown kind " + string(kind))
	}
}

// All loads the full table for a kind.
func (s *Store) All(ctx context.Context, kind anomalies.Kind) ([]anomalies.Anomaly, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("anomaly store: nil db")
	}
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT phone, filled_time, sent_time, hours_late, accepted, last_updated
FROM `+table+`
ORDER BY phone`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []anomalies.Anomaly
	for rows.Next() {
		var record anomalies.Anomaly
		var lastUpdated sql.NullTime
		if err := rows.Scan(&record.Phone, &record.FilledTime, &record.SentTime, &record.HoursLate, &record.Accepted, &lastUpdated); err != nil {
			return nil, err
		}
		if lastUpdated.Valid {
			record.LastUpdated = lastUpdated.Time.UTC()
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ReplaceAll upserts every row by phone in one transaction. Accepted
// rows keep their accepted flag regardless of the incoming value, and
// rows absent from the new table are left in place rather than deleted:
// acknowledgement records are never deleted automatically.
func (s *Store) ReplaceAll(ctx context.Context, kind anomalies.Kind, records []anomalies.Anomaly) error {
	if s == nil || s.db == nil {
		return errors.New("anomaly store: nil db")
	}
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, record := range records {
		if record.Phone == "" {
			continue
		}
		var lastUpdated sql.NullTime
		if !record.LastUpdated.IsZero() {
			lastUpdated = sql.NullTime{Time: record.LastUpdated.UTC(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO `+table+` (phone, filled_time, sent_time, hours_late, accepted, last_updated)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (phone) DO UPDATE SET
	filled_time = EXCLUDED.filled_time,
	sent_time = EXCLUDED.sent_time,
	hours_late = EXCLUDED.hours_late,
	accepted = `+table+`.accepted OR EXCLUDED.accepted,
	last_updated = EXCLUDED.last_updated`,
			record.Phone, record.FilledTime, record.SentTime, record.HoursLate, record.Accepted, lastUpdated,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
