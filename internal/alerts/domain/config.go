package alerts

import (
	"sort"
	"time"
)

// Config is one alert-threshold configuration row. Watch narrows the
// scope to a single device; an empty Watch applies to the whole
// project. A zero threshold disables that check.
type Config struct {
	Project string
	Watch   string
	Email   string
	Manager string

	CurrentSyncThr  uint
	TotalSyncThr    uint
	CurrentHRThr    uint
	TotalHRThr      uint
	CurrentSleepThr uint
	TotalSleepThr   uint
	CurrentStepsThr uint
	TotalStepsThr   uint
	BatteryThr      uint

	// EndDate makes the row inert once the current date passes it.
	// Zero means no expiry. Rows are never deleted on expiry.
	EndDate time.Time

	// UpdatedAt orders duplicate rows: the newest matching row wins.
	UpdatedAt time.Time
}

// effective reports whether the row applies to the project on the given
// day. EndDate is a calendar date: the row still applies on that day and
// turns inert from the next day on, whatever the time of day.
func (c Config) effective(project string, today time.Time) bool {
	if c.Project != project {
		return false
	}
	if !c.EndDate.IsZero() && !today.Before(c.EndDate.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// Resolve selects the single applicable configuration for a device:
// expired and foreign-project rows are dropped, a device-specific row
// beats a project-wide one, and within each class the most recently
// updated row wins (duplicates may exist in storage).
func Resolve(project, deviceName string, configs []Config, today time.Time) *Config {
	candidates := make([]Config, 0, len(configs))
	for _, cfg := range configs {
		if cfg.effective(project, today) {
			candidates = append(candidates, cfg)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	// Stable sort keeps later rows ahead of earlier ones on equal
	// timestamps, so untimestamped tables resolve to the newest row.
	for i, j := 0, len(candidates)-1; i < j; i, j = i+1, j-1 {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].UpdatedAt.After(candidates[j].UpdatedAt)
	})

	for i := range candidates {
		if candidates[i].Watch == deviceName {
			cfg := candidates[i]
			return &cfg
		}
	}
	for i := range candidates {
		if candidates[i].Watch == "" {
			cfg := candidates[i]
			return &cfg
		}
	}
	return nil
}

// SaveInto upserts a configuration row into the table and returns the
// new table. Matching rows are removed and the new row appended:
//
//	email empty, watch empty -> replace by project
//	email set,   watch empty -> replace by (project, email)
//	email set,   watch set   -> replace by (project, email, watch)
//	email empty, watch set   -> replace by (project, watch)
func SaveInto(cfg Config, existing []Config) []Config {
	matches := func(row Config) bool {
		if row.Project != cfg.Project {
			return false
		}
		switch {
		case cfg.Email == "" && cfg.Watch == "":
			return true
		case cfg.Email != "" && cfg.Watch == "":
			return row.Email == cfg.Email
		case cfg.Email != "" && cfg.Watch != "":
			return row.Email == cfg.Email && row.Watch == cfg.Watch
		default:
			return row.Watch == cfg.Watch
		}
	}

	next := make([]Config, 0, len(existing)+1)
	for _, row := range existing {
		if !matches(row) {
			next = append(next, row)
		}
	}
	return append(next, cfg)
}
