package reports

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	fleet "fleetwatch/internal/fleet/domain"
)

func sampleStates() []fleet.DeviceState {
	return []fleet.DeviceState{
		{
			Project: "nova", Name: "W7",
			LastCheck: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), LastSynced: "2024-03-01 09:55", LastBattery: "45",
			Sync: fleet.FailureCounter{Current: 2, Total: 7},
		},
		{Project: "nova", Name: "W9"},
	}
}

func TestBuildFleetStatusXLSX(t *testing.T) {
	data, err := BuildFleetStatusXLSX(sampleStates(), time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open generated workbook: %v", err)
	}
	defer f.Close()

	devices, err := f.GetRows("devices")
	if err != nil {
		t.Fatalf("read devices sheet: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("expected header plus 2 device rows, got %d", len(devices))
	}
	if devices[1][0] != "W7" || devices[1][5] != "2/7" {
		t.Fatalf("unexpected device row: %v", devices[1])
	}

	degraded, err := f.GetCellValue("summary", "B5")
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if degraded != "1" {
		t.Fatalf("expected 1 degraded device, got %q", degraded)
	}
}

func TestBuildFleetStatusPDF(t *testing.T) {
	data, err := BuildFleetStatusPDF(sampleStates(), time.Now())
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if len(data) == 0 || !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected a PDF document, got %d bytes", len(data))
	}
}
