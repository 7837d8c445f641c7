package application

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	anomalies "fleetwatch/internal/anomalies/domain"
)

type stubStore struct {
	mu     sync.Mutex
	tables map[anomalies.Kind][]anomalies.Anomaly
	err    error
}

func newStubStore() *stubStore {
	return &stubStore{tables: make(map[anomalies.Kind][]anomalies.Anomaly)}
}

func (s *stubStore) All(ctx context.Context, kind anomalies.Kind) ([]anomalies.Anomaly, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	rows := make([]anomalies.Anomaly, len(s.tables[kind]))
	copy(rows, s.tables[kind])
	return rows, nil
}

func (s *stubStore) ReplaceAll(ctx context.Context, kind anomalies.Kind, rows []anomalies.Anomaly) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	replaced := make([]anomalies.Anomaly, len(rows))
	copy(replaced, rows)
	s.tables[kind] = replaced
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestIngestPersistsNewNumbers(t *testing.T) {
	store := newStubStore()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	service, err := NewService(store, testLogger(), WithClock(fixedClock{now: now}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	fresh, err := service.Ingest(context.Background(), anomalies.KindSuspicious, []anomalies.Anomaly{
		{Phone: "555-0100", FilledTime: "2024-03-01 09:00"},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(fresh) != 1 {
		t.Fatalf("expected 1 fresh anomaly, got %d", len(fresh))
	}

	rows, err := store.All(context.Background(), anomalies.KindSuspicious)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(rows) != 1 || rows[0].Phone != "555-0100" || rows[0].Accepted {
		t.Fatalf("unexpected persisted rows: %+v", rows)
	}
}

func TestIngestTwiceDoesNotDuplicate(t *testing.T) {
	store := newStubStore()
	service, err := NewService(store, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	candidates := []anomalies.Anomaly{{Phone: "555-0100", FilledTime: "2024-03-01 09:00"}}
	for i := 0; i < 2; i++ {
		if _, err := service.Ingest(context.Background(), anomalies.KindSuspicious, candidates); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	rows, err := store.All(context.Background(), anomalies.KindSuspicious)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after double ingest, got %d", len(rows))
	}
}

func TestIngestSkipsAcceptedNumbers(t *testing.T) {
	store := newStubStore()
	if err := store.ReplaceAll(context.Background(), anomalies.KindLate, []anomalies.Anomaly{
		{Phone: "555-0100", Accepted: true, SentTime: "2024-02-01 08:00"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	service, err := NewService(store, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	fresh, err := service.Ingest(context.Background(), anomalies.KindLate, []anomalies.Anomaly{
		{Phone: "555-0100", SentTime: "2024-03-01 09:00", HoursLate: "3"},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(fresh) != 0 {
		t.Fatalf("accepted number must not resurface, got %d fresh", len(fresh))
	}

	rows, err := store.All(context.Background(), anomalies.KindLate)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(rows) != 1 || !rows[0].Accepted || rows[0].SentTime != "2024-02-01 08:00" {
		t.Fatalf("accepted row must stay untouched: %+v", rows)
	}
}

func TestAcknowledgeMarksAccepted(t *testing.T) {
	store := newStubStore()
	if err := store.ReplaceAll(context.Background(), anomalies.KindSuspicious, []anomalies.Anomaly{
		{Phone: "555-0100"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	now := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	service, err := NewService(store, testLogger(), WithClock(fixedClock{now: now}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := service.Acknowledge(context.Background(), anomalies.KindSuspicious, "555-0100"); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if err := service.Acknowledge(context.Background(), anomalies.KindSuspicious, "555-0100"); err != nil {
		t.Fatalf("second acknowledge must be a no-op: %v", err)
	}

	rows, err := store.All(context.Background(), anomalies.KindSuspicious)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(rows) != 1 || !rows[0].Accepted || !rows[0].LastUpdated.Equal(now) {
		t.Fatalf("unexpected rows after acknowledge: %+v", rows)
	}
}

func TestAcknowledgeUnknownPhone(t *testing.T) {
	store := newStubStore()
	service, err := NewService(store, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	err = service.Acknowledge(context.Background(), anomalies.KindSuspicious, "555-0199")
	if !errors.Is(err, anomalies.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
