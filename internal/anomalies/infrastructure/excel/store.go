package excel

import (
	"context"
	"errors"
	"strings"
	"time"

	anomalies "fleetwatch/internal/anomalies/domain"
	storage "fleetwatch/internal/storage/excel"
)

const (
	suspiciousSheet = "suspicious_nums"
	lateSheet       = "late_nums"
	timestampLayout = "2006-01-02 15:04:05"
)

var (
	suspiciousHeader = []string{"nums", "filledTime", "lastUpdated", "accepted"}
	lateHeader       = []string{"nums", "sentTime", "hoursLate", "lastUpdated", "accepted"}
)

// Store persists the acknowledgement tables on the suspicious_nums and
// late_nums sheets. The accepted column uses the literal strings
// "TRUE"/"FALSE" on write and reads case-insensitively.
type Store struct {
	workbook *storage.Workbook
}

// NewStore constructs a workbook-backed anomaly store.
func NewStore(workbook *storage.Workbook) (*Store, error) {
	if workbook == nil {
		return nil, errors.New("anomalies: nil workbook")
	}
	return &Store{workbook: workbook}, nil
}

// All reads the full table for a kind.
func (s *Store) All(ctx context.Context, kind anomalies.Kind) ([]anomalies.Anomaly, error) {
	if s == nil {
		return nil, errors.New("anomalies: nil store")
	}
	sheet, err := sheetFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.workbook.ReadSheet(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	records := make([]anomalies.Anomaly, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := anomalyFromRow(kind, row)
		if record.Phone == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// ReplaceAll writes the full table for a kind back.
func (s *Store) ReplaceAll(ctx context.Context, kind anomalies.Kind, records []anomalies.Anomaly) error {
	if s == nil {
		return errors.New("anomalies: nil store")
	}
	sheet, err := sheetFor(kind)
	if err != nil {
		return err
	}
	header := suspiciousHeader
	if kind == anomalies.KindLate {
		header = lateHeader
	}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, rowFromAnomaly(kind, record))
	}
	return s.workbook.WriteSheet(sheet, header, rows)
}

func sheetFor(kind anomalies.Kind) (string, error) {
	switch kind {
	case anomalies.KindSuspicious:
		return suspiciousSheet, nil
	case anomalies.KindLate:
		return lateSheet, nil
	default:
		return "", errors.New("anomalies: unknown kind " + string(kind))
	}
}

func anomalyFromRow(kind anomalies.Kind, row []string) anomalies.Anomaly {
	record := anomalies.Anomaly{Phone: cell(row, 0)}
	switch kind {
	case anomalies.KindSuspicious:
		record.FilledTime = cell(row, 1)
		record.Accepted = anomalies.ParseAccepted(cell(row, 3))
		if updated, err := time.Parse(timestampLayout, cell(row, 2)); err == nil {
			record.LastUpdated = updated.UTC()
		}
	case anomalies.KindLate:
		record.SentTime = cell(row, 1)
		record.HoursLate = cell(row, 2)
		record.Accepted = anomalies.ParseAccepted(cell(row, 4))
		if updated, err := time.Parse(timestampLayout, cell(row, 3)); err == nil {
			record.LastUpdated = updated.UTC()
		}
	}
	return record
}

func rowFromAnomaly(kind anomalies.Kind, record anomalies.Anomaly) []string {
	updated := ""
	if !record.LastUpdated.IsZero() {
		updated = record.LastUpdated.UTC().Format(timestampLayout)
	}
	if kind == anomalies.KindLate {
		return []string{record.Phone, record.SentTime, record.HoursLate, updated, anomalies.FormatAccepted(record.Accepted)}
	}
	return []string{record.Phone, record.FilledTime, updated, anomalies.FormatAccepted(record.Accepted)}
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
