package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	alerts "fleetwatch/internal/alerts/domain"
	"fleetwatch/internal/alerts/notify"
	fleet "fleetwatch/internal/fleet/domain"
	"fleetwatch/internal/observability/metrics"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// DispatchResult reports what happened to one alert.
type DispatchResult struct {
	// Skipped is true when no recipient could be resolved. Not an error.
	Skipped    bool
	Sent       bool
	Recipients []string
	Err        error
}

// Dispatcher composes alert recipients, renders the report and invokes
// the notification channel. It never retries: the next scheduled run
// re-evaluates thresholds from persisted state.
type Dispatcher struct {
	channel  notify.Channel
	template *notify.Template
	logger   *log.Logger
	clock    Clock
}

// DispatcherOption customizes the dispatcher.
type DispatcherOption func(*Dispatcher)

// WithClock assigns a clock.
func WithClock(clock Clock) DispatcherOption {
	return func(d *Dispatcher) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// NewDispatcher constructs an alert dispatcher.
func NewDispatcher(channel notify.Channel, template *notify.Template, logger *log.Logger, opts ...DispatcherOption) (*Dispatcher, error) {
	if channel == nil {
		return nil, errors.New("alerts: nil channel")
	}
	if template == nil {
		defaultTemplate, err := notify.NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	d := &Dispatcher{
		channel:  channel,
		template: template,
		logger:   logger,
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch sends one alert for a device. Recipient order: config email
// if set, else the manager fallback; the assigned student is appended
// when known. Recipients are deduplicated; an empty list skips the send.
func (d *Dispatcher) Dispatch(ctx context.Context, state fleet.DeviceState, cfg alerts.Config, eval alerts.Evaluation, studentEmail string) DispatchResult {
	if d == nil {
		return DispatchResult{Err: errors.New("alerts: nil dispatcher")}
	}
	recipients := resolveRecipients(cfg, studentEmail)
	if len(recipients) == 0 {
		metrics.IncAlertEvent("skipped")
		if d.logger != nil {
			d.logger.Printf("alerts: no recipients for device %s, skipping", state.ID())
		}
		return DispatchResult{Skipped: true}
	}

	body, err := d.template.Render(buildTemplateData(state, eval, d.clock.Now().UTC()))
	if err != nil {
		metrics.IncAlertEvent("render_error")
		return DispatchResult{Recipients: recipients, Err: err}
	}

	msg := notify.Message{
		Recipients: recipients,
		Subject:    fmt.Sprintf("[Fleetwatch] %s: %s", state.ID(), strings.Join(eval.Metrics(), ", ")),
		HTMLBody:   body,
	}
	if err := d.channel.Send(ctx, msg); err != nil {
		metrics.IncNotifySend("error")
		metrics.IncAlertEvent("failed")
		if d.logger != nil {
			d.logger.Printf("alerts: notify failed for device %s: %v", state.ID(), err)
		}
		return DispatchResult{Recipients: recipients, Err: err}
	}
	metrics.IncNotifySend("success")
	metrics.IncAlertEvent("sent")
	return DispatchResult{Sent: true, Recipients: recipients}
}

func resolveRecipients(cfg alerts.Config, studentEmail string) []string {
	var recipients []string
	if cfg.Email != "" {
		recipients = append(recipients, cfg.Email)
	} else if cfg.Manager != "" {
		recipients = append(recipients, cfg.Manager)
	}
	if studentEmail != "" {
		recipients = append(recipients, studentEmail)
	}

	seen := make(map[string]struct{}, len(recipients))
	deduped := recipients[:0]
	for _, addr := range recipients {
		key := strings.ToLower(strings.TrimSpace(addr))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, addr)
	}
	return deduped
}

func buildTemplateData(state fleet.DeviceState, eval alerts.Evaluation, now time.Time) notify.TemplateData {
	data := notify.TemplateData{
		Device:    state.Name,
		Project:   state.Project,
		CheckedAt: now.Format(time.RFC3339),
		Battery:   state.LastBattery,
	}
	for _, trig := range eval.Triggered {
		row := notify.TemplateRow{
			Metric:    trig.Metric,
			LastValue: trig.LastValue,
		}
		if trig.Metric == alerts.MetricBattery {
			row.Threshold = fmt.Sprintf("<= %d%%", trig.BatteryThr)
			row.Current = "-"
			row.Total = "-"
		} else {
			row.Current = fmt.Sprintf("%d", trig.Current)
			row.Total = fmt.Sprintf("%d", trig.Total)
			row.Threshold = formatThreshold(trig)
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

func formatThreshold(trig alerts.Trigger) string {
	parts := make([]string, 0, 2)
	if trig.CurrentThr > 0 {
		parts = append(parts, fmt.Sprintf("current >= %d", trig.CurrentThr))
	}
	if trig.TotalThr > 0 {
		parts = append(parts, fmt.Sprintf("total >= %d", trig.TotalThr))
	}
	return strings.Join(parts, ", ")
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
