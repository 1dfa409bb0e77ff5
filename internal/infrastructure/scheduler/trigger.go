package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PeriodicTask is submitted every Interval
type PeriodicTask struct {
	Name     string
	Interval time.Duration
}

// Submitter queues a task run. *Scheduler implements it.
type Submitter interface {
	Schedule(task string) error
}

// Trigger submits periodic tasks, one ticker goroutine per task
type Trigger struct {
	tasks      []PeriodicTask
	runOnStart bool
	sub        Submitter
	logger     *zap.Logger

	mu    sync.Mutex
	stop  context.CancelFunc
	loops sync.WaitGroup
}

type TriggerOption func(*Trigger)

// RunOnStart submits every task once as soon as the trigger starts
func RunOnStart() TriggerOption {
	return func(t *Trigger) { t.runOnStart = true }
}

// NewTrigger rejects unnamed, duplicate and non-positive interval tasks
func NewTrigger(tasks []PeriodicTask, sub Submitter, log *zap.Logger, opts ...TriggerOption) (*Trigger, error) {
	seen := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		switch _, dup := seen[task.Name]; {
		case task.Name == "":
			return nil, fmt.Errorf("%w: unnamed task", ErrInvalidConfig)
		case task.Interval <= 0:
			return nil, fmt.Errorf("%w: task %s has interval %s", ErrInvalidConfig, task.Name, task.Interval)
		case dup:
			return nil, fmt.Errorf("%w: task %s listed twice", ErrInvalidConfig, task.Name)
		}
		seen[task.Name] = struct{}{}
	}

	t := &Trigger{tasks: tasks, sub: sub, logger: log}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return nil
	}

	ctx, t.stop = context.WithCancel(ctx)
	for _, task := range t.tasks {
		t.loops.Add(1)
		go func() {
			defer t.loops.Done()
			t.loop(ctx, task)
		}()
	}
	t.logger.Info("Periodic trigger started", zap.Int("tasks", len(t.tasks)))
	return nil
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	stop := t.stop
	t.stop = nil
	t.mu.Unlock()
	if stop == nil {
		return nil
	}
	stop()

	done := make(chan struct{})
	go func() {
		t.loops.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Trigger) loop(ctx context.Context, task PeriodicTask) {
	if t.runOnStart {
		t.fire(task.Name)
	}
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.fire(task.Name)
		}
	}
}

func (t *Trigger) fire(task string) {
	switch err := t.sub.Schedule(task); {
	case err == nil, errors.Is(err, ErrNotRunning):
	default:
		t.logger.Warn("Periodic task not queued", zap.String("task", task), zap.Error(err))
	}
}
