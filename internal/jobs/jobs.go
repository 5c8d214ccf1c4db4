// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const runTimeout = 2 * time.Minute

// PendingExpirer rejects pending bookings whose date has passed.
type PendingExpirer interface {
	ExpireStalePending(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		// A run still in progress makes the next tick a no-op.
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
	}
}

// AddPendingExpiry schedules exp on spec, a standard five-field cron
// expression or a descriptor such as "@every 1h".
func (s *Scheduler) AddPendingExpiry(spec string, exp PendingExpirer) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		RunPendingExpiry(ctx, exp, s.logger)
	})
	if err != nil {
		return err
	}
	s.logger.Info("pending expiry scheduled", zap.String("spec", spec))
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits up to the context deadline for a running
// job to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// RunPendingExpiry runs one expiry pass and logs the outcome.
func RunPendingExpiry(ctx context.Context, exp PendingExpirer, logger *zap.Logger) int {
	start := time.Now()
	n, err := exp.ExpireStalePending(ctx)
	if err != nil {
		logger.Error("pending expiry failed", zap.Error(err), zap.Int("expired", n))
		return n
	}
	logger.Info("pending expiry done", zap.Int("expired", n), zap.Duration("took", time.Since(start)))
	return n
}
