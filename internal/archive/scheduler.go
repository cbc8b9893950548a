package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner performs one archive pass.
type Runner interface {
	Run(ctx context.Context) (*Result, error)
}

// Scheduler runs an archive pass periodically.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that runs r at the given interval.
func NewScheduler(r Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   r,
		interval: interval,
		logger:   logger,
	}
}

// Start begins periodic archiving. It runs once immediately, then on each
// tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current pass (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	s.once(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.once(ctx)
		}
	}
}

func (s *Scheduler) once(ctx context.Context) {
	res, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("archive failed", "err", err)
		return
	}
	s.logger.Info("archive completed", "key", res.Key, "events", res.Events, "bytes", res.Bytes, "pruned", res.Pruned)
}
