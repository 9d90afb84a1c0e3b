package consistency

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"artist-calendar-backend/pkg/metrics"
)

// Purger removes availability days left on blocked dates.
type Purger interface {
	PurgeBlockedAvailability(ctx context.Context) (int, error)
}

// Sweeper repairs the "no availability on a blocked date" invariant when a
// block cascade was interrupted on a store without transactions.
type Sweeper struct {
	store   Purger
	tracker Tracker
	logger  *slog.Logger
	timeout time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

func NewSweeper(store Purger, tracker Tracker, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, tracker: tracker, logger: logger, timeout: 30 * time.Second}
}

// RunOnce performs a single repair pass and returns the number of days removed.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	n, err := s.store.PurgeBlockedAvailability(ctx)
	if err != nil {
		s.logger.Error("sweeper pass failed", "error", err)
		return 0, err
	}
	if n > 0 {
		metrics.SweeperRepairs.Add(float64(n))
		if s.tracker != nil {
			s.tracker.MarkWrite(ctx, ScopeAvailability)
		}
		s.logger.Warn("sweeper removed availability on blocked dates", "removed", n)
	}
	return n, nil
}

// Start schedules RunOnce with a cron spec such as "@every 5m".
func (s *Sweeper) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("sweeper already started")
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		_, _ = s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("sweeper scheduled", "schedule", schedule)
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
