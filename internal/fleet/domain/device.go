package fleet

import (
	"strings"
	"time"
)

// Category identifies one of the tracked signal categories.
type Category string

const (
	CategorySync  Category = "sync"
	CategoryHR    Category = "hr"
	CategorySleep Category = "sleep"
	CategorySteps Category = "steps"
)

// Categories lists all tracked signal categories in evaluation order.
func Categories() []Category {
	return []Category{CategorySync, CategoryHR, CategorySleep, CategorySteps}
}

// Watch is an inventory row: one physical device enrolled in a project.
type Watch struct {
	Project        string
	Name           string
	Token          string
	User           string
	CurrentStudent string
	IsActive       bool
}

// ID returns the composite device key.
func (w Watch) ID() string {
	return w.Project + "-" + w.Name
}

// DevicePoll is one record from the device data source for one cycle.
// All observed values arrive as strings; an empty string means the
// source had no value for that signal this cycle.
type DevicePoll struct {
	Project       string
	Name          string
	SyncDate      string
	HR            string
	Steps         string
	SleepStart    string
	SleepEnd      string
	SleepDuration string
	Battery       string
	IsActive      bool
}

// FailureCounter tracks consecutive and lifetime failures for one category.
type FailureCounter struct {
	Current uint
	Total   uint
}

// DeviceState is the persisted per-device monitoring state, one logical
// entity per (project, name).
type DeviceState struct {
	Project string
	Name    string

	IsActive  bool
	LastCheck time.Time

	LastSynced     string
	LastHR         string
	LastSteps      string
	LastSleepStart string
	LastSleepEnd   string
	LastSleepDur   string
	LastBattery    string

	Sync  FailureCounter
	HR    FailureCounter
	Sleep FailureCounter
	Steps FailureCounter
}

// ID returns the composite device key, matching the log row ID column.
func (s DeviceState) ID() string {
	return s.Project + "-" + s.Name
}

// Counter returns the failure counter for a category.
func (s DeviceState) Counter(cat Category) FailureCounter {
	switch cat {
	case CategorySync:
		return s.Sync
	case CategoryHR:
		return s.HR
	case CategorySleep:
		return s.Sleep
	case CategorySteps:
		return s.Steps
	default:
		return FailureCounter{}
	}
}

func (s *DeviceState) setCounter(cat Category, c FailureCounter) {
	switch cat {
	case CategorySync:
		s.Sync = c
	case CategoryHR:
		s.HR = c
	case CategorySleep:
		s.Sleep = c
	case CategorySteps:
		s.Steps = c
	}
}

// succeeded reports whether the poll carries a value for the category.
func succeeded(poll DevicePoll, cat Category) bool {
	switch cat {
	case CategorySync:
		return strings.TrimSpace(poll.SyncDate) != ""
	case CategoryHR:
		return strings.TrimSpace(poll.HR) != ""
	case CategorySleep:
		return strings.TrimSpace(poll.SleepStart) != "" && strings.TrimSpace(poll.SleepEnd) != ""
	case CategorySteps:
		return strings.TrimSpace(poll.Steps) != ""
	default:
		return false
	}
}

// Update computes the next device state from the previous log row and a
// new poll result. prev is nil on the first-ever poll of a device, in
// which case all counters start at zero. wasJustReactivated resets all
// lifetime totals to zero before this cycle's result is applied, so a
// freshly reactivated device is not penalized for historical failures.
//
// Callers must not invoke Update for inactive poll records: inactive
// devices are skipped for the whole cycle.
func Update(prev *DeviceState, poll DevicePoll, wasJustReactivated bool, now time.Time) DeviceState {
	next := DeviceState{
		Project:   poll.Project,
		Name:      poll.Name,
		IsActive:  poll.IsActive,
		LastCheck: now,
	}
	if prev != nil {
		next.LastSynced = prev.LastSynced
		next.LastHR = prev.LastHR
		next.LastSteps = prev.LastSteps
		next.LastSleepStart = prev.LastSleepStart
		next.LastSleepEnd = prev.LastSleepEnd
		next.LastSleepDur = prev.LastSleepDur
		next.LastBattery = prev.LastBattery
		next.Sync = prev.Sync
		next.HR = prev.HR
		next.Sleep = prev.Sleep
		next.Steps = prev.Steps
	}
	// Reactivation clears whole counter pairs: totals per the reset
	// rule, currents to preserve Current <= Total.
	if wasJustReactivated {
		next.Sync = FailureCounter{}
		next.HR = FailureCounter{}
		next.Sleep = FailureCounter{}
		next.Steps = FailureCounter{}
	}

	for _, cat := range Categories() {
		counter := next.Counter(cat)
		if succeeded(poll, cat) {
			counter.Current = 0
		} else {
			counter.Current++
			counter.Total++
		}
		next.setCounter(cat, counter)
	}

	if succeeded(poll, CategorySync) {
		next.LastSynced = strings.TrimSpace(poll.SyncDate)
	}
	if succeeded(poll, CategoryHR) {
		next.LastHR = strings.TrimSpace(poll.HR)
	}
	if succeeded(poll, CategorySteps) {
		next.LastSteps = strings.TrimSpace(poll.Steps)
	}
	if succeeded(poll, CategorySleep) {
		next.LastSleepStart = strings.TrimSpace(poll.SleepStart)
		next.LastSleepEnd = strings.TrimSpace(poll.SleepEnd)
		if strings.TrimSpace(poll.SleepDuration) != "" {
			next.LastSleepDur = strings.TrimSpace(poll.SleepDuration)
		}
	}
	if strings.TrimSpace(poll.Battery) != "" {
		next.LastBattery = strings.TrimSpace(poll.Battery)
	}

	return next
}

// ResetFailures clears every counter pair. Used by the administrative
// reset operation.
func ResetFailures(state DeviceState) DeviceState {
	state.Sync = FailureCounter{}
	state.HR = FailureCounter{}
	state.Sleep = FailureCounter{}
	state.Steps = FailureCounter{}
	return state
}
