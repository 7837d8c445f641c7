package alerts

import (
	"testing"
	"time"
)

var today = time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

func TestResolveDeviceSpecificBeatsProjectWide(t *testing.T) {
	configs := []Config{
		{Project: "nova", Watch: "", CurrentSyncThr: 3, Manager: "pm@lab.example"},
		{Project: "nova", Watch: "W1", CurrentSyncThr: 5, Manager: "pm@lab.example"},
	}

	got := Resolve("nova", "W1", configs, today)
	if got == nil {
		t.Fatal("expected a config")
	}
	if got.Watch != "W1" || got.CurrentSyncThr != 5 {
		t.Fatalf("resolved %+v, want device-specific row", got)
	}
}

func TestResolveFallsBackToProjectWide(t *testing.T) {
	configs := []Config{
		{Project: "nova", Watch: ""},
		{Project: "nova", Watch: "W7"},
	}

	got := Resolve("nova", "W7", configs, today)
	if got == nil || got.Watch != "W7" {
		t.Fatalf("resolved %+v, want W7 row", got)
	}

	got = Resolve("nova", "W9", configs, today)
	if got == nil || got.Watch != "" {
		t.Fatalf("resolved %+v, want project-wide row", got)
	}
}

func TestResolveIgnoresExpired(t *testing.T) {
	configs := []Config{
		{Project: "nova", EndDate: today.AddDate(0, 0, -1)},
	}
	if got := Resolve("nova", "W1", configs, today); got != nil {
		t.Fatalf("expected nil for expired config, got %+v", got)
	}

	configs[0].EndDate = today.AddDate(0, 0, 1)
	if got := Resolve("nova", "W1", configs, today); got == nil {
		t.Fatal("config with future end date must resolve")
	}
}

func TestResolveAppliesOnEndDateDay(t *testing.T) {
	// EndDate round-trips through storage as a bare date at midnight;
	// the row stays effective for the whole of that day.
	endDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	configs := []Config{
		{Project: "nova", EndDate: endDate, CurrentSyncThr: 3},
	}

	if got := Resolve("nova", "W1", configs, today); got == nil {
		t.Fatalf("config with endDate=%s must still apply at %s", endDate.Format("2006-01-02"), today)
	}

	nextDay := endDate.AddDate(0, 0, 1)
	if got := Resolve("nova", "W1", configs, nextDay); got != nil {
		t.Fatalf("expected nil the day after endDate, got %+v", got)
	}
}

func TestResolveIgnoresOtherProjects(t *testing.T) {
	configs := []Config{{Project: "fibro", CurrentSyncThr: 1}}
	if got := Resolve("nova", "W1", configs, today); got != nil {
		t.Fatalf("expected nil for foreign project, got %+v", got)
	}
}

func TestResolveNewestDuplicateWins(t *testing.T) {
	older := today.Add(-48 * time.Hour)
	newer := today.Add(-1 * time.Hour)
	configs := []Config{
		{Project: "nova", Watch: "", CurrentSyncThr: 3, UpdatedAt: older},
		{Project: "nova", Watch: "", CurrentSyncThr: 7, UpdatedAt: newer},
	}

	got := Resolve("nova", "W1", configs, today)
	if got == nil || got.CurrentSyncThr != 7 {
		t.Fatalf("resolved %+v, want newest duplicate", got)
	}
}

func TestResolveUntimestampedDuplicatesPreferLaterRow(t *testing.T) {
	configs := []Config{
		{Project: "nova", Watch: "", CurrentSyncThr: 3},
		{Project: "nova", Watch: "", CurrentSyncThr: 7},
	}

	got := Resolve("nova", "W1", configs, today)
	if got == nil || got.CurrentSyncThr != 7 {
		t.Fatalf("resolved %+v, want later row", got)
	}
}

func TestSaveIntoReplaceByProject(t *testing.T) {
	existing := []Config{
		{Project: "nova", Email: "a@lab.example"},
		{Project: "nova", Watch: "W1"},
		{Project: "fibro"},
	}
	next := SaveInto(Config{Project: "nova", BatteryThr: 20}, existing)

	if len(next) != 2 {
		t.Fatalf("got %d rows, want 2", len(next))
	}
	if next[0].Project != "fibro" {
		t.Fatalf("unrelated project row lost: %+v", next)
	}
	if next[1].Project != "nova" || next[1].BatteryThr != 20 {
		t.Fatalf("new row missing: %+v", next)
	}
}

func TestSaveIntoReplaceByProjectEmail(t *testing.T) {
	existing := []Config{
		{Project: "nova", Email: "a@lab.example", BatteryThr: 10},
		{Project: "nova", Email: "b@lab.example"},
	}
	next := SaveInto(Config{Project: "nova", Email: "a@lab.example", BatteryThr: 15}, existing)

	if len(next) != 2 {
		t.Fatalf("got %d rows, want 2", len(next))
	}
	for _, row := range next {
		if row.Email == "a@lab.example" && row.BatteryThr != 15 {
			t.Fatalf("row not replaced: %+v", row)
		}
	}
}

func TestSaveIntoReplaceByProjectEmailWatch(t *testing.T) {
	existing := []Config{
		{Project: "nova", Email: "a@lab.example", Watch: "W1", BatteryThr: 10},
		{Project: "nova", Email: "a@lab.example", Watch: "W2", BatteryThr: 10},
	}
	next := SaveInto(Config{Project: "nova", Email: "a@lab.example", Watch: "W1", BatteryThr: 25}, existing)

	if len(next) != 2 {
		t.Fatalf("got %d rows, want 2", len(next))
	}
	if next[0].Watch != "W2" {
		t.Fatalf("unrelated watch row lost: %+v", next)
	}
	if next[1].Watch != "W1" || next[1].BatteryThr != 25 {
		t.Fatalf("W1 row not replaced: %+v", next)
	}
}

func TestSaveIntoReplaceByProjectWatchWhenEmailEmpty(t *testing.T) {
	existing := []Config{
		{Project: "nova", Watch: "W1", BatteryThr: 10},
	}
	next := SaveInto(Config{Project: "nova", Watch: "W1", BatteryThr: 30}, existing)

	if len(next) != 1 {
		t.Fatalf("got %d rows, want 1 (upsert, not append)", len(next))
	}
	if next[0].BatteryThr != 30 {
		t.Fatalf("row not replaced: %+v", next[0])
	}
}
