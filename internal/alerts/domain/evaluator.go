package alerts

import (
	"strconv"
	"strings"

	fleet "fleetwatch/internal/fleet/domain"
)

// MetricBattery joins the four fleet categories in trigger reports.
const MetricBattery = "battery"

// Trigger describes one metric that crossed its threshold, with enough
// context for the alert report.
type Trigger struct {
	Metric     string
	Current    uint
	Total      uint
	CurrentThr uint
	TotalThr   uint
	LastValue  string
	BatteryThr uint
}

// Evaluation is the outcome of checking one device against one config.
type Evaluation struct {
	AlertNeeded bool
	Triggered   []Trigger
}

// Metrics returns the triggered metric names in evaluation order.
func (e Evaluation) Metrics() []string {
	names := make([]string, 0, len(e.Triggered))
	for _, trig := range e.Triggered {
		names = append(names, trig.Metric)
	}
	return names
}

func lastValue(state fleet.DeviceState, cat fleet.Category) string {
	switch cat {
	case fleet.CategorySync:
		return state.LastSynced
	case fleet.CategoryHR:
		return state.LastHR
	case fleet.CategorySleep:
		return state.LastSleepEnd
	case fleet.CategorySteps:
		return state.LastSteps
	default:
		return ""
	}
}

func categoryThresholds(cfg Config, cat fleet.Category) (current, total uint) {
	switch cat {
	case fleet.CategorySync:
		return cfg.CurrentSyncThr, cfg.TotalSyncThr
	case fleet.CategoryHR:
		return cfg.CurrentHRThr, cfg.TotalHRThr
	case fleet.CategorySleep:
		return cfg.CurrentSleepThr, cfg.TotalSleepThr
	case fleet.CategorySteps:
		return cfg.CurrentStepsThr, cfg.TotalStepsThr
	default:
		return 0, 0
	}
}

// Evaluate checks every category plus battery and collects all
// triggered metrics. A zero threshold disables its check; an
// unparseable battery value is treated as absent, never as an error.
func Evaluate(state fleet.DeviceState, cfg Config) Evaluation {
	var eval Evaluation

	for _, cat := range fleet.Categories() {
		currentThr, totalThr := categoryThresholds(cfg, cat)
		counter := state.Counter(cat)

		triggered := false
		if currentThr > 0 && counter.Current >= currentThr {
			triggered = true
		} else if totalThr > 0 && counter.Total >= totalThr {
			triggered = true
		}
		if triggered {
			eval.Triggered = append(eval.Triggered, Trigger{
				Metric:     string(cat),
				Current:    counter.Current,
				Total:      counter.Total,
				CurrentThr: currentThr,
				TotalThr:   totalThr,
				LastValue:  lastValue(state, cat),
			})
		}
	}

	if cfg.BatteryThr > 0 {
		if level, ok := parseBattery(state.LastBattery); ok && level <= int(cfg.BatteryThr) {
			eval.Triggered = append(eval.Triggered, Trigger{
				Metric:     MetricBattery,
				LastValue:  state.LastBattery,
				BatteryThr: cfg.BatteryThr,
			})
		}
	}

	eval.AlertNeeded = len(eval.Triggered) > 0
	return eval
}

func parseBattery(value string) (int, bool) {
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	if value == "" {
		return 0, false
	}
	level, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return level, true
}
