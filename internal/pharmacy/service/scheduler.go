package service

import (
	"context"
	"time"

	"github.com/rxdesk/pharmacy-backend/pkg/logger"
)

// PharmacySweeper refreshes expiry alerts for every active pharmacy
type PharmacySweeper interface {
	ScanAll(ctx context.Context) error
}

// AlertScheduler sweeps all pharmacies once at start and then every
// interval. A cycle may not run longer than the interval.
type AlertScheduler struct {
	sweeper  PharmacySweeper
	interval time.Duration
	logger   *logger.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewAlertScheduler creates a scheduler; call Start to run it
func NewAlertScheduler(sweeper PharmacySweeper, interval time.Duration, log *logger.Logger) *AlertScheduler {
	return &AlertScheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   log.WithComponent("alert_scheduler"),
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called
func (s *AlertScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.logger.Info().Dur("interval", s.interval).Msg("alert scheduler started")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			s.sweep(ctx)

			select {
			case <-ctx.Done():
				s.logger.Info().Msg("alert scheduler stopped")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight sweep to return
func (s *AlertScheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *AlertScheduler) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	start := time.Now()
	err := s.sweeper.ScanAll(ctx)

	event := s.logger.Info()
	if err != nil {
		event = s.logger.Error().Err(err)
	}
	event.Dur("duration", time.Since(start)).Msg("expiry alert sweep finished")
}
