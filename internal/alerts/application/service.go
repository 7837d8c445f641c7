package application

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	alerts "fleetwatch/internal/alerts/domain"
	"fleetwatch/internal/audit"
	"fleetwatch/internal/auth"
)

// ConfigService loads and saves alert configuration rows with the
// upsert rule applied against a fresh table snapshot.
type ConfigService struct {
	repo  alerts.ConfigRepository
	audit audit.Logger
	clock Clock
}

// NewConfigService constructs a ConfigService.
func NewConfigService(repo alerts.ConfigRepository, auditLogger audit.Logger) (*ConfigService, error) {
	if repo == nil {
		return nil, errors.New("alerts: nil config repository")
	}
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &ConfigService{repo: repo, audit: auditLogger, clock: systemClock{}}, nil
}

// List returns the full configuration table.
func (s *ConfigService) List(ctx context.Context) ([]alerts.Config, error) {
	if s == nil {
		return nil, errors.New("alerts: nil config service")
	}
	return s.repo.All(ctx)
}

// Save upserts one configuration row and writes the table back.
func (s *ConfigService) Save(ctx context.Context, cfg alerts.Config) error {
	if s == nil {
		return errors.New("alerts: nil config service")
	}
	if cfg.Project == "" {
		return errors.New("alerts: config project required")
	}
	existing, err := s.repo.All(ctx)
	if err != nil {
		return err
	}
	cfg.UpdatedAt = s.clock.Now().UTC()
	next := alerts.SaveInto(cfg, existing)
	if err := s.repo.ReplaceAll(ctx, next); err != nil {
		return err
	}

	meta, _ := json.Marshal(map[string]string{"watch": cfg.Watch, "email": cfg.Email})
	_ = s.audit.Log(ctx, audit.Entry{
		Actor:        auth.SubjectFromContext(ctx),
		Role:         string(auth.RoleFromContext(ctx)),
		Action:       "config.save",
		ResourceType: "alert_config",
		ResourceID:   cfg.Project + "-" + cfg.Watch,
		Project:      cfg.Project,
		Metadata:     meta,
		CreatedAt:    time.Now().UTC(),
	})
	return nil
}
