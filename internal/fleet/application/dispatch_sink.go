package application

import (
	"context"

	alertsapp "fleetwatch/internal/alerts/application"
	alerts "fleetwatch/internal/alerts/domain"
	fleet "fleetwatch/internal/fleet/domain"
)

type dispatchSink struct {
	dispatcher *alertsapp.Dispatcher
}

// NewDispatcherSink adapts the alert dispatcher to the collector's sink.
func NewDispatcherSink(dispatcher *alertsapp.Dispatcher) AlertSink {
	return dispatchSink{dispatcher: dispatcher}
}

func (s dispatchSink) Alert(ctx context.Context, state fleet.DeviceState, cfg alerts.Config, eval alerts.Evaluation, studentEmail string) (bool, bool, error) {
	result := s.dispatcher.Dispatch(ctx, state, cfg, eval, studentEmail)
	return result.Sent, result.Skipped, result.Err
}
