package application

import (
	"context"
	"errors"
	"log"
	"time"

	alerts "fleetwatch/internal/alerts/domain"
	fleet "fleetwatch/internal/fleet/domain"
	"fleetwatch/internal/observability/metrics"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// DeviceSource polls one device's signals for a cycle.
type DeviceSource interface {
	Poll(ctx context.Context, watch fleet.Watch, day time.Time) (fleet.DevicePoll, error)
}

// AlertSink receives one dispatch request per alerting device. It
// reports sent/skipped/failed; the collector never retries.
type AlertSink interface {
	Alert(ctx context.Context, state fleet.DeviceState, cfg alerts.Config, eval alerts.Evaluation, studentEmail string) (sent bool, skipped bool, err error)
}

// RunReport summarizes one poll cycle.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time

	Evaluated     int
	Skipped       int
	Inactive      int
	NoConfig      int
	AlertsSent    int
	AlertsSkipped int
	AlertsFailed  int
}

// Collector runs the poll cycle: batch-read, per-device evaluation,
// batch-write. Per-device source failures are isolated; only a failed
// table read or write aborts the run.
type Collector struct {
	source    DeviceSource
	logs      fleet.LogRepository
	inventory fleet.InventoryRepository
	configs   alerts.ConfigRepository
	sink      AlertSink
	snapshot  *ActivitySnapshot
	logger    *log.Logger
	clock     Clock
}

// CollectorOption customizes the collector.
type CollectorOption func(*Collector)

// WithClock assigns a clock.
func WithClock(clock Clock) CollectorOption {
	return func(c *Collector) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithAlertSink assigns the alert sink. Without one, triggered alerts
// are only counted.
func WithAlertSink(sink AlertSink) CollectorOption {
	return func(c *Collector) {
		c.sink = sink
	}
}

// NewCollector constructs a collector.
func NewCollector(source DeviceSource, logs fleet.LogRepository, inventory fleet.InventoryRepository, configs alerts.ConfigRepository, snapshot *ActivitySnapshot, logger *log.Logger, opts ...CollectorOption) (*Collector, error) {
	if source == nil {
		return nil, errors.New("fleet: nil device source")
	}
	if logs == nil || inventory == nil || configs == nil {
		return nil, errors.New("fleet: nil repository")
	}
	if snapshot == nil {
		return nil, errors.New("fleet: nil activity snapshot")
	}
	if logger == nil {
		logger = log.Default()
	}
	collector := &Collector{
		source:    source,
		logs:      logs,
		inventory: inventory,
		configs:   configs,
		snapshot:  snapshot,
		logger:    logger,
		clock:     systemClock{},
	}
	for _, opt := range opts {
		opt(collector)
	}
	return collector, nil
}

// Run executes one poll cycle. All tables are read once up front: a
// config save landing mid-run does not affect this cycle.
func (c *Collector) Run(ctx context.Context) (RunReport, error) {
	if c == nil {
		return RunReport{}, errors.New("fleet: nil collector")
	}
	now := c.clock.Now().UTC()
	report := RunReport{StartedAt: now}

	watches, err := c.inventory.Watches(ctx)
	if err != nil {
		metrics.IncPollCycle(false)
		return report, err
	}
	states, err := c.logs.All(ctx)
	if err != nil {
		metrics.IncPollCycle(false)
		return report, err
	}
	configs, err := c.configs.All(ctx)
	if err != nil {
		metrics.IncPollCycle(false)
		return report, err
	}
	lastSeen, err := c.snapshot.Load()
	if err != nil {
		metrics.IncPollCycle(false)
		return report, err
	}

	previous := make(map[string]fleet.DeviceState, len(states))
	order := make([]string, 0, len(states))
	for _, state := range states {
		if _, ok := previous[state.ID()]; !ok {
			order = append(order, state.ID())
		}
		previous[state.ID()] = state
	}

	nextSnapshot := make(map[string]snapshotEntry, len(watches))
	active := 0
	for _, watch := range watches {
		id := watch.ID()
		nextSnapshot[id] = snapshotEntry{Active: watch.IsActive, Name: watch.Name}

		if !watch.IsActive {
			report.Inactive++
			continue
		}
		active++

		poll, err := c.source.Poll(ctx, watch, now)
		if err != nil {
			report.Skipped++
			c.logger.Printf("fleet: skipping device %s this cycle: %v", id, err)
			continue
		}

		seen, known := lastSeen[id]
		reactivated := known && !seen.Active

		var prev *fleet.DeviceState
		if state, ok := previous[id]; ok {
			prev = &state
		} else {
			order = append(order, id)
		}
		next := fleet.Update(prev, poll, reactivated, now)
		previous[id] = next
		report.Evaluated++

		cfg := alerts.Resolve(watch.Project, watch.Name, configs, now)
		if cfg == nil {
			report.NoConfig++
			c.logger.Printf("fleet: no alert config for device %s", id)
			continue
		}
		eval := alerts.Evaluate(next, *cfg)
		if !eval.AlertNeeded {
			continue
		}
		if c.sink == nil {
			report.AlertsSkipped++
			continue
		}
		sent, skipped, err := c.sink.Alert(ctx, next, *cfg, eval, watch.CurrentStudent)
		switch {
		case err != nil:
			report.AlertsFailed++
		case skipped:
			report.AlertsSkipped++
		case sent:
			report.AlertsSent++
		}
	}

	next := make([]fleet.DeviceState, 0, len(previous))
	for _, id := range order {
		next = append(next, previous[id])
	}
	if err := c.logs.ReplaceAll(ctx, next); err != nil {
		metrics.IncPollCycle(false)
		return report, err
	}
	if err := c.snapshot.Save(nextSnapshot); err != nil {
		metrics.IncPollCycle(false)
		return report, err
	}

	report.FinishedAt = c.clock.Now().UTC()
	metrics.IncPollCycle(true)
	metrics.ObservePollCycle(report.FinishedAt.Sub(report.StartedAt).Seconds())
	metrics.AddDevicesEvaluated(report.Evaluated)
	metrics.AddDevicesSkipped(report.Skipped)
	metrics.SetDevicesActive(active)
	c.logger.Printf("fleet: cycle done evaluated=%d skipped=%d inactive=%d alerts_sent=%d alerts_failed=%d",
		report.Evaluated, report.Skipped, report.Inactive, report.AlertsSent, report.AlertsFailed)
	return report, nil
}
