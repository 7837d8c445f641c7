package application

import (
	"context"
	"log"
	"time"
)

// Scheduler triggers poll cycles either on a fixed interval or once a
// day at a fixed "HH:MM" UTC time.
type Scheduler struct {
	collector *Collector
	interval  time.Duration
	dailyAt   string
	logger    *log.Logger
}

// NewScheduler constructs a scheduler. When dailyAt is set it wins over
// the interval.
func NewScheduler(collector *Collector, interval time.Duration, dailyAt string, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		collector: collector,
		interval:  interval,
		dailyAt:   dailyAt,
		logger:    logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.collector == nil {
		return
	}
	if s.dailyAt != "" {
		s.runDaily(ctx)
		return
	}
	interval := s.interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runDaily(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !s.shouldRun(now.UTC()) {
				continue
			}
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) shouldRun(now time.Time) bool {
	hour, minute, err := parseDailyAt(s.dailyAt)
	if err != nil {
		return false
	}
	return now.Hour() == hour && now.Minute() == minute
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.collector.Run(ctx); err != nil {
		s.logger.Printf("fleet: scheduled cycle failed: %v", err)
	}
}

func parseDailyAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
