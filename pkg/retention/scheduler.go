package retention

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler runs rotations on a fixed interval until stopped. One rotation
// runs immediately on start so a long-idle deployment catches up without
// waiting a full interval.
type Scheduler struct {
	manager  *Manager
	logger   *logrus.Logger
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewScheduler(manager *Manager, logger *logrus.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		manager:  manager,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	s.rotate(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.rotate(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) rotate(ctx context.Context) {
	if _, err := s.manager.Rotate(ctx); err != nil {
		s.logger.WithError(err).Error("scheduled retention rotation failed")
	}
}

// Stop halts the schedule and waits for an in-flight rotation to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}
