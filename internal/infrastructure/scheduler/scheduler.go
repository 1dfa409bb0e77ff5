// Package scheduler runs named background tasks on a bounded worker pool
// and triggers them on fixed intervals.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotRunning    = errors.New("scheduler: not running")
	ErrQueueFull     = errors.New("scheduler: queue full")
	ErrUnknownTask   = errors.New("scheduler: unknown task")
	ErrInvalidConfig = errors.New("scheduler: invalid configuration")
)

// Job is one run of a task. Retries reuse the job with Attempt bumped.
type Job struct {
	ID      uuid.UUID
	Task    string
	Attempt int
	Err     error // last failure
}

func NewJob(task string) *Job {
	return &Job{ID: uuid.New(), Task: task}
}

// Executor runs jobs by task name
type Executor interface {
	Execute(ctx context.Context, job *Job) error
}

type Config struct {
	Workers    int
	JobTimeout time.Duration
	Retries    int // extra attempts after a failure
	RetryDelay time.Duration
	QueueSize  int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 5 * time.Minute
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 100
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	return c
}

// Scheduler feeds a queue of jobs to Config.Workers goroutines. Failed
// jobs go back on the queue after RetryDelay until Retries is used up.
type Scheduler struct {
	cfg    Config
	exec   Executor
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	queue   chan *Job
	pending map[*time.Timer]struct{}
	cancel  context.CancelFunc
	workers *errgroup.Group
}

func New(cfg Config, exec Executor, log *zap.Logger) *Scheduler {
	return &Scheduler{cfg: cfg.withDefaults(), exec: exec, logger: log}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.queue = make(chan *Job, s.cfg.QueueSize)
	s.pending = make(map[*time.Timer]struct{})
	s.workers = &errgroup.Group{}
	for range s.cfg.Workers {
		queue := s.queue
		s.workers.Go(func() error {
			s.work(ctx, queue)
			return nil
		})
	}
	s.running = true

	s.logger.Info("Scheduler started",
		zap.Int("workers", s.cfg.Workers),
		zap.Duration("job_timeout", s.cfg.JobTimeout))
	return nil
}

// Stop cancels running jobs, drops pending retries and waits for the
// workers until ctx is done
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	for t := range s.pending {
		t.Stop()
	}
	clear(s.pending)
	close(s.queue)
	workers := s.workers
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Schedule queues a run of task without blocking
func (s *Scheduler) Schedule(task string) error {
	return s.submit(NewJob(task))
}

func (s *Scheduler) submit(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotRunning
	}
	select {
	case s.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Scheduler) work(ctx context.Context, queue <-chan *Job) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-queue:
			if !ok {
				return
			}
			s.run(ctx, job)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, job *Job) {
	log := s.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("task", job.Task),
		zap.Int("attempt", job.Attempt))

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	job.Err = s.exec.Execute(jobCtx, job)
	if job.Err == nil {
		log.Debug("Job completed", zap.Duration("elapsed", time.Since(start)))
		return
	}

	log.Error("Job failed", zap.Error(job.Err))
	if job.Attempt < s.cfg.Retries && ctx.Err() == nil {
		s.retryLater(job)
	}
}

// retryLater requeues job after RetryDelay. The timer is registered under
// the lock so its callback cannot run before it is tracked.
func (s *Scheduler) retryLater(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	job.Attempt++

	var timer *time.Timer
	timer = time.AfterFunc(s.cfg.RetryDelay, func() {
		s.mu.Lock()
		delete(s.pending, timer)
		s.mu.Unlock()
		if err := s.submit(job); err != nil && !errors.Is(err, ErrNotRunning) {
			s.logger.Warn("Retry dropped",
				zap.String("job_id", job.ID.String()),
				zap.String("task", job.Task),
				zap.Error(err))
		}
	})
	s.pending[timer] = struct{}{}
}
