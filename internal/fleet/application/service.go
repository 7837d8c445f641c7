package application

import (
	"context"
	"errors"
	"time"

	"fleetwatch/internal/audit"
	"fleetwatch/internal/auth"
	fleet "fleetwatch/internal/fleet/domain"
)

// ErrDeviceNotFound indicates an unknown device id.
var ErrDeviceNotFound = errors.New("fleet: device not found")

// Service exposes fleet status reads and the administrative counter
// reset.
type Service struct {
	logs  fleet.LogRepository
	audit audit.Logger
}

// NewService constructs a fleet service.
func NewService(logs fleet.LogRepository, auditLogger audit.Logger) (*Service, error) {
	if logs == nil {
		return nil, errors.New("fleet: nil log repository")
	}
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &Service{logs: logs, audit: auditLogger}, nil
}

// Devices returns the current log, one row per device.
func (s *Service) Devices(ctx context.Context) ([]fleet.DeviceState, error) {
	if s == nil {
		return nil, errors.New("fleet: nil service")
	}
	return s.logs.All(ctx)
}

// ResetFailures clears every failure counter of one device and writes
// the log back.
func (s *Service) ResetFailures(ctx context.Context, deviceID string) (fleet.DeviceState, error) {
	if s == nil {
		return fleet.DeviceState{}, errors.New("fleet: nil service")
	}
	if deviceID == "" {
		return fleet.DeviceState{}, errors.New("fleet: device id required")
	}
	states, err := s.logs.All(ctx)
	if err != nil {
		return fleet.DeviceState{}, err
	}

	found := -1
	for i := range states {
		if states[i].ID() == deviceID {
			found = i
			break
		}
	}
	if found < 0 {
		return fleet.DeviceState{}, ErrDeviceNotFound
	}
	states[found] = fleet.ResetFailures(states[found])
	if err := s.logs.ReplaceAll(ctx, states); err != nil {
		return fleet.DeviceState{}, err
	}

	_ = s.audit.Log(ctx, audit.Entry{
		Actor:        auth.SubjectFromContext(ctx),
		Role:         string(auth.RoleFromContext(ctx)),
		Action:       "device.reset_failures",
		ResourceType: "device",
		ResourceID:   deviceID,
		Project:      states[found].Project,
		CreatedAt:    time.Now().UTC(),
	})
	return states[found], nil
}
