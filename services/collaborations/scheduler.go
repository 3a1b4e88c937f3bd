package collaborations

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/scholarship-finder/backend/internal/logging"
)

// Dispatcher periodically sends scheduled invitations whose time has
// come. One instance runs per process.
type Dispatcher struct {
	service  *Service
	logger   *logging.Logger
	interval time.Duration
	cron     *cron.Cron
}

// NewDispatcher creates the scheduled-invite dispatcher.
func NewDispatcher(service *Service, logger *logging.Logger, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		service:  service,
		logger:   logger,
		interval: interval,
		cron:     cron.New(),
	}
}

// Start begins periodic dispatch. It returns immediately; jobs run on
// the cron goroutine until Stop is called.
func (d *Dispatcher) Start() error {
	spec := fmt.Sprintf("@every %s", d.interval)
	if _, err := d.cron.AddFunc(spec, d.run); err != nil {
		return fmt.Errorf("schedule invite dispatch: %w", err)
	}
	d.cron.Start()
	d.logger.WithField("interval", d.interval.String()).Info("invite dispatcher started")
	return nil
}

// Stop halts dispatch and waits for an in-flight run to finish.
func (d *Dispatcher) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
	d.logger.Info("invite dispatcher stopped")
}

func (d *Dispatcher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), d.interval)
	defer cancel()

	if err := d.service.DispatchDueInvites(ctx); err != nil {
		d.logger.WithError(err).Error("invite dispatch run failed")
	}
}
