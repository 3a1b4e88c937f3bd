package scholarships

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/scholarship-finder/backend/internal/logging"
)

// Sweeper periodically deactivates scholarships whose deadline has
// passed. One instance runs per process.
type Sweeper struct {
	service  *Service
	logger   *logging.Logger
	interval time.Duration
	cron     *cron.Cron
}

// NewSweeper creates the expired-scholarship sweeper.
func NewSweeper(service *Service, logger *logging.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		service:  service,
		logger:   logger,
		interval: interval,
		cron:     cron.New(),
	}
}

// Start begins periodic sweeping. It returns immediately; jobs run on
// the cron goroutine until Stop is called.
func (s *Sweeper) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("schedule expiry sweep: %w", err)
	}
	s.cron.Start()
	s.logger.WithField("interval", s.interval.String()).Info("expiry sweeper started")
	return nil
}

// Stop halts sweeping and waits for an in-flight run to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("expiry sweeper stopped")
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if _, err := s.service.DeactivateExpired(ctx); err != nil {
		s.logger.WithError(err).Error("expiry sweep run failed")
	}
}
