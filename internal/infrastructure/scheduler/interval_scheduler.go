package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidConfig is returned for a non-positive interval or a nil task
var ErrInvalidConfig = errors.New("scheduler: interval must be positive and task set")

// Task is one run of a periodic job
type Task func(ctx context.Context) error

// IntervalSchedulerConfig holds configuration for an IntervalScheduler
type IntervalSchedulerConfig struct {
	// Name identifies the job in logs
	Name string

	// Interval is the time between the end of one run and the start of the next
	Interval time.Duration

	// Timeout bounds a single run; zero means Interval
	Timeout time.Duration

	// RunOnStart runs the task once immediately after Start
	RunOnStart bool
}

// IntervalScheduler runs a task at a fixed interval. Runs never overlap.
type IntervalScheduler struct {
	config IntervalSchedulerConfig
	task   Task
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIntervalScheduler creates a new scheduler for task
func NewIntervalScheduler(config IntervalSchedulerConfig, task Task, logger *zap.Logger) (*IntervalScheduler, error) {
	if config.Interval <= 0 || task == nil {
		return nil, ErrInvalidConfig
	}
	if config.Timeout <= 0 {
		config.Timeout = config.Interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntervalScheduler{
		config: config,
		task:   task,
		logger: logger.With(zap.String("job", config.Name)),
	}, nil
}

// Start starts the scheduler; starting a running scheduler is a no-op
func (s *IntervalScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Interval scheduler started", zap.Duration("interval", s.config.Interval))
	return nil
}

// Stop cancels the current run and waits for it to return or ctx to expire
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Interval scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Interval scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the scheduler is started
func (s *IntervalScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *IntervalScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.runOnce(ctx)
	}

	timer := time.NewTimer(s.config.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.runOnce(ctx)
			timer.Reset(s.config.Interval)
		}
	}
}

func (s *IntervalScheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled task panicked", zap.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := s.task(runCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("Scheduled task failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	s.logger.Debug("Scheduled task completed", zap.Duration("duration", time.Since(start)))
}
