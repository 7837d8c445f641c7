package anomalies

import (
	"testing"
	"time"
)

func TestFilterNewDropsAcceptedNumbers(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	existing := []Anomaly{
		{Phone: "555-0100", Accepted: true},
		{Phone: "555-0101", Accepted: false},
	}
	candidates := []Anomaly{
		{Phone: "555-0100", FilledTime: "2024-03-01 09:00"},
		{Phone: "555-0101", FilledTime: "2024-03-01 09:05"},
		{Phone: "555-0102", FilledTime: "2024-03-01 09:10"},
	}

	fresh := FilterNew(candidates, existing, now)
	if len(fresh) != 2 {
		t.Fatalf("expected 2 fresh anomalies, got %d", len(fresh))
	}
	for _, row := range fresh {
		if row.Phone == "555-0100" {
			t.Fatal("accepted number must not resurface")
		}
		if row.Accepted {
			t.Fatalf("fresh anomaly %s must be unaccepted", row.Phone)
		}
		if !row.LastUpdated.Equal(now) {
			t.Fatalf("fresh anomaly %s must carry the detection time", row.Phone)
		}
	}
}

func TestFilterNewDedupesCandidates(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	candidates := []Anomaly{
		{Phone: "555-0100"},
		{Phone: "555-0100"},
		{Phone: ""},
	}

	fresh := FilterNew(candidates, nil, now)
	if len(fresh) != 1 {
		t.Fatalf("expected 1 fresh anomaly, got %d", len(fresh))
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	existing := []Anomaly{
		{Phone: "555-0100", Accepted: true, FilledTime: "2024-02-01 08:00"},
		{Phone: "555-0101", Accepted: false, FilledTime: "2024-02-01 08:05"},
	}
	incoming := FilterNew([]Anomaly{
		{Phone: "555-0101", FilledTime: "2024-03-01 09:05"},
		{Phone: "555-0102", FilledTime: "2024-03-01 09:10"},
	}, existing, now)

	once := Merge(existing, incoming)
	twice := Merge(once, incoming)

	if len(once) != 3 || len(twice) != 3 {
		t.Fatalf("expected 3 rows after merge, got %d then %d", len(once), len(twice))
	}
	for _, row := range twice {
		switch row.Phone {
		case "555-0100":
			if !row.Accepted || row.FilledTime != "2024-02-01 08:00" {
				t.Fatal("accepted row must stay untouched")
			}
		case "555-0101":
			if row.Accepted {
				t.Fatal("unaccepted row must stay unaccepted after overwrite")
			}
			if row.FilledTime != "2024-03-01 09:05" {
				t.Fatal("unaccepted row must be overwritten, not duplicated")
			}
		}
	}
}

func TestMergeNeverDowngradesAccepted(t *testing.T) {
	existing := []Anomaly{{Phone: "555-0100", Accepted: true}}
	incoming := []Anomaly{{Phone: "555-0100", Accepted: false, FilledTime: "2024-03-01 09:00"}}

	merged := Merge(existing, incoming)
	if len(merged) != 1 {
		t.Fatalf("expected 1 row, got %d", len(merged))
	}
	if !merged[0].Accepted {
		t.Fatal("accepted flag must never be downgraded")
	}
}

func TestParseAccepted(t *testing.T) {
	for _, value := range []string{"TRUE", "true", "True", " 1 ", "t", "yes"} {
		if !ParseAccepted(value) {
			t.Fatalf("expected %q to parse as accepted", value)
		}
	}
	for _, value := range []string{"FALSE", "false", "", "0", "no"} {
		if ParseAccepted(value) {
			t.Fatalf("expected %q to parse as unaccepted", value)
		}
	}
	if FormatAccepted(true) != "TRUE" || FormatAccepted(false) != "FALSE" {
		t.Fatal("canonical wire representation must be uppercase")
	}
}

func TestParseKind(t *testing.T) {
	if kind, ok := ParseKind(" Suspicious "); !ok || kind != KindSuspicious {
		t.Fatalf("expected suspicious, got %q ok=%v", kind, ok)
	}
	if kind, ok := ParseKind("late"); !ok || kind != KindLate {
		t.Fatalf("expected late, got %q ok=%v", kind, ok)
	}
	if _, ok := ParseKind("stolen"); ok {
		t.Fatal("expected unknown kind to fail")
	}
}
