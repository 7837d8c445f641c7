package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	fleet "fleetwatch/internal/fleet/domain"
)

// BuildFleetStatusXLSX renders the current fleet status as a workbook.
func BuildFleetStatusXLSX(states []fleet.DeviceState, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	devicesSheet := "devices"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(devicesSheet)

	degraded := 0
	for _, state := range states {
		if hasFailures(state) {
			degraded++
		}
	}

	_ = f.SetCellValue(summarySheet, "A1", "Fleet Status")
	_ = f.SetCellValue(summarySheet, "A3", "Generated")
	_ = f.SetCellValue(summarySheet, "B3", generatedAt.UTC().Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A4", "Devices")
	_ = f.SetCellValue(summarySheet, "B4", len(states))
	_ = f.SetCellValue(summarySheet, "A5", "Devices with failures")
	_ = f.SetCellValue(summarySheet, "B5", degraded)

	headers := []string{
		"Device", "Project", "Last Check", "Last Synced", "Battery",
		"Sync Cur/Total", "HR Cur/Total", "Sleep Cur/Total", "Steps Cur/Total",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(devicesSheet, cell, header)
	}
	for i, state := range states {
		row := i + 2
		lastCheck := ""
		if !state.LastCheck.IsZero() {
			lastCheck = state.LastCheck.UTC().Format(time.RFC3339)
		}
		values := []any{
			state.Name, state.Project, lastCheck, state.LastSynced, state.LastBattery,
			counterCell(state.Sync), counterCell(state.HR), counterCell(state.Sleep), counterCell(state.Steps),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(devicesSheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildFleetStatusPDF renders the current fleet status as a PDF.
func BuildFleetStatusPDF(states []fleet.DeviceState, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Fleet Status")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.UTC().Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Devices: %d", len(states)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(35, 6, "Device", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Project", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Last Synced", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Battery", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Sync Cur/Total", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "HR Cur/Total", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Sleep Cur/Total", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Steps Cur/Total", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, state := range states {
		pdf.CellFormat(35, 6, state.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, state.Project, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, state.LastSynced, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, state.LastBattery, "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, counterCell(state.Sync), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, counterCell(state.HR), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, counterCell(state.Sleep), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, counterCell(state.Steps), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func counterCell(counter fleet.FailureCounter) string {
	return fmt.Sprintf("%d/%d", counter.Current, counter.Total)
}

func hasFailures(state fleet.DeviceState) bool {
	for _, cat := range fleet.Categories() {
		if state.Counter(cat).Current > 0 {
			return true
		}
	}
	return false
}
