package integration_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	anomalies "fleetwatch/internal/anomalies/domain"
	anomalyrepo "fleetwatch/internal/anomalies/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestAnomalyStore_AcceptedNeverDowngraded(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if !tableExists(db, "suspicious_nums") {
		t.Skip("missing tables; run migrations")
	}

	ctx := context.Background()
	_, _ = db.ExecContext(ctx, "DELETE FROM suspicious_nums")

	store := anomalyrepo.NewStore(db)
	now := time.Now().UTC().Truncate(time.Second)

	if err := store.ReplaceAll(ctx, anomalies.KindSuspicious, []anomalies.Anomaly{
		{Phone: "555-0100", FilledTime: "2024-03-01 09:00", Accepted: true, LastUpdated: now},
	}); err != nil {
		t.Fatalf("seed accepted row: %v", err)
	}

	// Re-detection arrives unaccepted; the stored flag must survive.
	if err := store.ReplaceAll(ctx, anomalies.KindSuspicious, []anomalies.Anomaly{
		{Phone: "555-0100", FilledTime: "2024-03-02 09:00", Accepted: false, LastUpdated: now.Add(time.Hour)},
	}); err != nil {
		t.Fatalf("upsert re-detection: %v", err)
	}

	rows, err := store.All(ctx, anomalies.KindSuspicious)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !rows[0].Accepted {
		t.Fatal("accepted flag was downgraded by upsert")
	}
	if rows[0].FilledTime != "2024-03-02 09:00" {
		t.Fatalf("expected refreshed detection time, got %q", rows[0].FilledTime)
	}
}

func tableExists(db *sql.DB, name string) bool {
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (
		SELECT 1 FROM information_schema.tables WHERE table_name = $1
	)`, name).Scan(&exists)
	return err == nil && exists
}
