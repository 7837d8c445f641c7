package excel

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	fleet "fleetwatch/internal/fleet/domain"
	storage "fleetwatch/internal/storage/excel"
)

const (
	logSheet   = "FitbitLog"
	timeLayout = "2006-01-02 15:04:05"
)

// Column names keep the spellings of the historical workbook, including
// "lastBattary", so existing files stay readable.
var logHeader = []string{
	"project", "watchName", "lastCheck", "lastSynced", "lastBattary",
	"lastHR", "lastSleepStartDateTime", "lastSleepEndDateTime", "lastSteps",
	"lastBattaryVal", "lastHRVal", "lastHRSeq", "lastSleepDur", "lastStepsVal",
	"CurrentFailedSync", "TotalFailedSync", "CurrentFailedHR", "TotalFailedHR",
	"CurrentFailedSleep", "TotalFailedSleep", "CurrentFailedSteps", "TotalFailedSteps",
	"ID",
}

// LogRepository persists the rolling device log on the FitbitLog sheet.
type LogRepository struct {
	workbook *storage.Workbook
}

// NewLogRepository constructs a workbook-backed log repository.
func NewLogRepository(workbook *storage.Workbook) (*LogRepository, error) {
	if workbook == nil {
		return nil, errors.New("fleet: nil workbook")
	}
	return &LogRepository{workbook: workbook}, nil
}

// All reads every log row.
func (r *LogRepository) All(ctx context.Context) ([]fleet.DeviceState, error) {
	if r == nil {
		return nil, errors.New("fleet: nil log repository")
	}
	rows, err := r.workbook.ReadSheet(logSheet)
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	states := make([]fleet.DeviceState, 0, len(rows)-1)
	for _, row := range rows[1:] {
		state := stateFromRow(row)
		if state.Project == "" && state.Name == "" {
			continue
		}
		states = append(states, state)
	}
	return states, nil
}

// ReplaceAll writes the whole log back.
func (r *LogRepository) ReplaceAll(ctx context.Context, states []fleet.DeviceState) error {
	if r == nil {
		return errors.New("fleet: nil log repository")
	}
	rows := make([][]string, 0, len(states))
	for _, state := range states {
		rows = append(rows, rowFromState(state))
	}
	return r.workbook.WriteSheet(logSheet, logHeader, rows)
}

func rowFromState(state fleet.DeviceState) []string {
	lastCheck := ""
	if !state.LastCheck.IsZero() {
		lastCheck = state.LastCheck.UTC().Format(timeLayout)
	}
	return []string{
		state.Project,
		state.Name,
		lastCheck,
		state.LastSynced,
		state.LastBattery,
		state.LastHR,
		state.LastSleepStart,
		state.LastSleepEnd,
		state.LastSteps,
		state.LastBattery,
		state.LastHR,
		"",
		state.LastSleepDur,
		state.LastSteps,
		formatUint(state.Sync.Current),
		formatUint(state.Sync.Total),
		formatUint(state.HR.Current),
		formatUint(state.HR.Total),
		formatUint(state.Sleep.Current),
		formatUint(state.Sleep.Total),
		formatUint(state.Steps.Current),
		formatUint(state.Steps.Total),
		state.ID(),
	}
}

func stateFromRow(row []string) fleet.DeviceState {
	state := fleet.DeviceState{
		Project:        cell(row, 0),
		Name:           cell(row, 1),
		LastSynced:     cell(row, 3),
		LastBattery:    cell(row, 4),
		LastHR:         cell(row, 5),
		LastSleepStart: cell(row, 6),
		LastSleepEnd:   cell(row, 7),
		LastSteps:      cell(row, 8),
		LastSleepDur:   cell(row, 12),
	}
	if checked, err := time.Parse(timeLayout, cell(row, 2)); err == nil {
		state.LastCheck = checked.UTC()
	}
	state.Sync = fleet.FailureCounter{Current: parseUint(cell(row, 14)), Total: parseUint(cell(row, 15))}
	state.HR = fleet.FailureCounter{Current: parseUint(cell(row, 16)), Total: parseUint(cell(row, 17))}
	state.Sleep = fleet.FailureCounter{Current: parseUint(cell(row, 18)), Total: parseUint(cell(row, 19))}
	state.Steps = fleet.FailureCounter{Current: parseUint(cell(row, 20)), Total: parseUint(cell(row, 21))}
	return state
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseUint(value string) uint {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0
	}
	return uint(n)
}

func formatUint(value uint) string {
	return strconv.FormatUint(uint64(value), 10)
}
