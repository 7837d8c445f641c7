package application

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	anomalies "fleetwatch/internal/anomalies/domain"
	"fleetwatch/internal/asyncwriter"
	"fleetwatch/internal/audit"
	"fleetwatch/internal/auth"
	"fleetwatch/internal/observability/metrics"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Service ingests detected anomalies and handles acknowledgements.
type Service struct {
	store  anomalies.Store
	writer *asyncwriter.Writer
	audit  audit.Logger
	logger *log.Logger
	clock  Clock
}

// Option customizes the service.
type Option func(*Service)

// WithWriter routes ingest persistence through the background writer.
func WithWriter(writer *asyncwriter.Writer) Option {
	return func(s *Service) {
		s.writer = writer
	}
}

// WithAudit assigns an audit logger.
func WithAudit(auditLogger audit.Logger) Option {
	return func(s *Service) {
		if auditLogger != nil {
			s.audit = auditLogger
		}
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs an anomaly service.
func NewService(store anomalies.Store, logger *log.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("anomalies: nil store")
	}
	if logger == nil {
		logger = log.Default()
	}
	service := &Service{
		store:  store,
		audit:  audit.NopLogger{},
		logger: logger,
		clock:  systemClock{},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// List returns the full acknowledgement table for a kind.
func (s *Service) List(ctx context.Context, kind anomalies.Kind) ([]anomalies.Anomaly, error) {
	if s == nil {
		return nil, errors.New("anomalies: nil service")
	}
	return s.store.All(ctx, kind)
}

// Ingest filters newly-detected numbers against the acknowledgement
// table and persists the merge. The write is an idempotent upsert keyed
// by phone, so it is safe to run through the background writer.
func (s *Service) Ingest(ctx context.Context, kind anomalies.Kind, candidates []anomalies.Anomaly) ([]anomalies.Anomaly, error) {
	if s == nil {
		return nil, errors.New("anomalies: nil service")
	}
	existing, err := s.store.All(ctx, kind)
	if err != nil {
		return nil, err
	}

	fresh := anomalies.FilterNew(candidates, existing, s.clock.Now().UTC())
	if len(fresh) == 0 {
		return nil, nil
	}
	metrics.IncAnomaliesDetected(string(kind), len(fresh))

	persist := func(ctx context.Context) error {
		current, err := s.store.All(ctx, kind)
		if err != nil {
			return err
		}
		return s.store.ReplaceAll(ctx, kind, anomalies.Merge(current, fresh))
	}

	if s.writer != nil {
		job := asyncwriter.Job{Key: "anomalies:" + string(kind), Apply: persist}
		if err := s.writer.Enqueue(job); err == nil {
			return fresh, nil
		}
		s.logger.Printf("anomalies: background enqueue failed, writing inline")
	}
	if err := persist(ctx); err != nil {
		return nil, err
	}
	return fresh, nil
}

// Acknowledge marks one phone number as accepted. Acknowledging an
// already-accepted number is a no-op.
func (s *Service) Acknowledge(ctx context.Context, kind anomalies.Kind, phone string) error {
	if s == nil {
		return errors.New("anomalies: nil service")
	}
	if phone == "" {
		return errors.New("anomalies: phone required")
	}
	rows, err := s.store.All(ctx, kind)
	if err != nil {
		return err
	}

	found := false
	for i := range rows {
		if rows[i].Phone != phone {
			continue
		}
		found = true
		if rows[i].Accepted {
			return nil
		}
		rows[i].Accepted = true
		rows[i].LastUpdated = s.clock.Now().UTC()
	}
	if !found {
		return anomalies.ErrNotFound
	}
	if err := s.store.ReplaceAll(ctx, kind, rows); err != nil {
		return err
	}
	metrics.IncAnomalyAcked(string(kind))

	meta, _ := json.Marshal(map[string]string{"kind": string(kind)})
	_ = s.audit.Log(ctx, audit.Entry{
		Actor:        auth.SubjectFromContext(ctx),
		Role:         string(auth.RoleFromContext(ctx)),
		Action:       "anomaly.ack",
		ResourceType: "anomaly",
		ResourceID:   phone,
		Project:      auth.ProjectFromContext(ctx),
		Metadata:     meta,
		CreatedAt:    time.Now().UTC(),
	})
	return nil
}
