// Package jobs runs periodic maintenance work such as purging converted
// carts and expired refresh tokens.
package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is used when a job is registered without an interval.
const DefaultInterval = 24 * time.Hour

// Job is one unit of periodic work. Name identifies the job for locking
// and must be stable across instances.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job      Job
	interval time.Duration
}

// Scheduler runs registered jobs on fixed intervals. A job is skipped, not
// queued, while a previous run of it still holds the lock.
type Scheduler struct {
	locker  Locker
	lockTTL time.Duration
	logger  *zap.Logger
	entries []entry
	wg      sync.WaitGroup
}

func NewScheduler(locker Locker, lockTTL time.Duration, logger *zap.Logger) *Scheduler {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	return &Scheduler{
		locker:  locker,
		lockTTL: lockTTL,
		logger:  logger.Named("jobs"),
	}
}

// Register adds job to the schedule. It must be called before Start.
func (s *Scheduler) Register(job Job, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s.entries = append(s.entries, entry{job: job, interval: interval})
}

// Start launches one ticker per job. The goroutines stop when ctx is done;
// Wait blocks until they have.
func (s *Scheduler) Start(ctx context.Context) {
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.entries)))
}

func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	defer s.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.RunNow(ctx, e.job)
		}
	}
}

// RunNow runs job immediately under its lock. ran is false when another run
// holds the lock.
func (s *Scheduler) RunNow(ctx context.Context, job Job) (ran bool, err error) {
	name := job.Name()
	unlock, ok, err := s.locker.TryLock(ctx, name, s.lockTTL)
	if err != nil {
		s.logger.Error("Failed to acquire job lock", zap.String("job", name), zap.Error(err))
		return false, err
	}
	if !ok {
		s.logger.Info("Job already running, skipping", zap.String("job", name))
		return false, nil
	}
	defer unlock()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("Job failed",
			zap.String("job", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return true, err
	}

	s.logger.Info("Job finished",
		zap.String("job", name),
		zap.Duration("duration", time.Since(start)),
	)
	return true, nil
}
