package anomalies

import (
	"context"
	"errors"
)

// ErrNotFound indicates a missing anomaly record.
var ErrNotFound = errors.New("anomalies: record not found")

// Store provides whole-table access to one acknowledgement table per
// kind. Tables are read and replaced in full.
type Store interface {
	All(ctx context.Context, kind Kind) ([]Anomaly, error)
	ReplaceAll(ctx context.Context, kind Kind, rows []Anomaly) error
}
