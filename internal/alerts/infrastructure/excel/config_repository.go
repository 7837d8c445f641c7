package excel

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	alerts "fleetwatch/internal/alerts/domain"
	storage "fleetwatch/internal/storage/excel"
)

const (
	configSheet     = "fitbit_alerts_config"
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// The trailing updatedAt column orders duplicate rows; older workbooks
// without it still read fine and resolve by row order.
var configHeader = []string{
	"project", "currentSyncThr", "totalSyncThr", "currentHrThr", "totalHrThr",
	"currentSleepThr", "totalSleepThr", "currentStepsThr", "totalStepsThr",
	"batteryThr", "manager", "email", "watch", "endDate", "updatedAt",
}

// ConfigRepository persists the alert configuration table on the
// fitbit_alerts_config sheet.
type ConfigRepository struct {
	workbook *storage.Workbook
}

// NewConfigRepository constructs a workbook-backed config repository.
func NewConfigRepository(workbook *storage.Workbook) (*ConfigRepository, error) {
	if workbook == nil {
		return nil, errors.New("alerts: nil workbook")
	}
	return &ConfigRepository{workbook: workbook}, nil
}

// All reads every configuration row.
func (r *ConfigRepository) All(ctx context.Context) ([]alerts.Config, error) {
	if r == nil {
		return nil, errors.New("alerts: nil config repository")
	}
	rows, err := r.workbook.ReadSheet(configSheet)
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	configs := make([]alerts.Config, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cfg := configFromRow(row)
		if cfg.Project == "" {
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// ReplaceAll writes the whole configuration table back.
func (r *ConfigRepository) ReplaceAll(ctx context.Context, configs []alerts.Config) error {
	if r == nil {
		return errors.New("alerts: nil config repository")
	}
	rows := make([][]string, 0, len(configs))
	for _, cfg := range configs {
		rows = append(rows, rowFromConfig(cfg))
	}
	return r.workbook.WriteSheet(configSheet, configHeader, rows)
}

func configFromRow(row []string) alerts.Config {
	cfg := alerts.Config{
		Project:         cell(row, 0),
		CurrentSyncThr:  parseUint(cell(row, 1)),
		TotalSyncThr:    parseUint(cell(row, 2)),
		CurrentHRThr:    parseUint(cell(row, 3)),
		TotalHRThr:      parseUint(cell(row, 4)),
		CurrentSleepThr: parseUint(cell(row, 5)),
		TotalSleepThr:   parseUint(cell(row, 6)),
		CurrentStepsThr: parseUint(cell(row, 7)),
		TotalStepsThr:   parseUint(cell(row, 8)),
		BatteryThr:      parseUint(cell(row, 9)),
		Manager:         cell(row, 10),
		Email:           cell(row, 11),
		Watch:           cell(row, 12),
	}
	if endDate, err := time.Parse(dateLayout, cell(row, 13)); err == nil {
		cfg.EndDate = endDate
	}
	if updatedAt, err := time.Parse(timestampLayout, cell(row, 14)); err == nil {
		cfg.UpdatedAt = updatedAt.UTC()
	}
	return cfg
}

func rowFromConfig(cfg alerts.Config) []string {
	endDate := ""
	if !cfg.EndDate.IsZero() {
		endDate = cfg.EndDate.Format(dateLayout)
	}
	updatedAt := ""
	if !cfg.UpdatedAt.IsZero() {
		updatedAt = cfg.UpdatedAt.UTC().Format(timestampLayout)
	}
	return []string{
		cfg.Project,
		formatUint(cfg.CurrentSyncThr),
		formatUint(cfg.TotalSyncThr),
		formatUint(cfg.CurrentHRThr),
		formatUint(cfg.TotalHRThr),
		formatUint(cfg.CurrentSleepThr),
		formatUint(cfg.TotalSleepThr),
		formatUint(cfg.CurrentStepsThr),
		formatUint(cfg.TotalStepsThr),
		formatUint(cfg.BatteryThr),
		cfg.Manager,
		cfg.Email,
		cfg.Watch,
		endDate,
		updatedAt,
	}
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
