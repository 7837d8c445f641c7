package application

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ScheduleConfig selects between interval polling and a daily run.
type ScheduleConfig struct {
	DailyAt  string        `yaml:"daily_at"`
	Interval time.Duration `yaml:"interval"`
}

// Config defines poll-cycle configuration.
type Config struct {
	Schedule      ScheduleConfig `yaml:"schedule"`
	FitbitBaseURL string         `yaml:"fitbit_base_url"`
	SnapshotPath  string         `yaml:"snapshot_path"`
}

// LoadConfig loads poll configuration from yaml or env. The yaml file
// pointed at by FLEETWATCH_POLL_CONFIG overrides the env defaults.
func LoadConfig() (Config, error) {
	cfg := Config{
		FitbitBaseURL: getenvDefault("FITBIT_BASE_URL", "https://api.fitbit.com"),
		SnapshotPath:  getenvDefault("FLEETWATCH_SNAPSHOT_PATH", filepath.FromSlash("var/fleetwatch/status.json")),
	}

	if path := os.Getenv("FLEETWATCH_POLL_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.Schedule.DailyAt == "" {
		cfg.Schedule.DailyAt = os.Getenv("FLEETWATCH_DAILY_AT")
	}
	if cfg.Schedule.Interval <= 0 {
		if value := os.Getenv("FLEETWATCH_POLL_INTERVAL"); value != "" {
			interval, err := time.ParseDuration(value)
			if err != nil {
				return cfg, errors.New("fleet: FLEETWATCH_POLL_INTERVAL must be a duration")
			}
			cfg.Schedule.Interval = interval
		}
	}
	if cfg.Schedule.DailyAt == "" && cfg.Schedule.Interval <= 0 {
		cfg.Schedule.Interval = time.Hour
	}
	if cfg.SnapshotPath == "" {
		return cfg, errors.New("fleet: snapshot path required")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
