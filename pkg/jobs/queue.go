package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrDuplicate is returned when a task with the same name is already queued
// or running.
var ErrDuplicate = errors.New("task already pending")

// Task is one run of a named maintenance job.
type Task struct {
	Name      string
	Attempt   int
	Submitted time.Time
}

// Handler processes a task. ctx carries the per-attempt timeout.
type Handler func(ctx context.Context, task Task) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	// Timeout bounds a single attempt.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Queue runs tasks on a small goroutine pool, retrying failures after a
// delay. At most one task per name is pending or running at a time. Stop
// drains queued tasks before the workers exit.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	logger     *zap.Logger

	tasks    chan Task
	drain    chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
	draining bool
	inflight map[string]struct{}
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
		tasks:      make(chan Task, cfg.BufferSize),
		drain:      make(chan struct{}),
		inflight:   make(map[string]struct{}),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.workers))
}

// Stop refuses new tasks and lets the workers finish the running attempt and
// everything already queued. Pending retries are dropped. When ctx ends first,
// running attempts are cancelled and the remaining tasks are abandoned.
func (q *Queue) Stop(ctx context.Context) {
	q.mu.Lock()
	if !q.started || q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	close(q.drain)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.logger.Info("queue stopped", zap.String("queue", q.name))
	case <-ctx.Done():
		q.logger.Warn("queue stop timed out, cancelling running tasks",
			zap.String("queue", q.name),
			zap.Int("abandoned", len(q.tasks)))
	}
	q.cancel()
}

// Submit schedules a first attempt of the named task without blocking.
func (q *Queue) Submit(name string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if q.draining {
		return fmt.Errorf("queue %s is stopping", q.name)
	}
	if _, ok := q.inflight[name]; ok {
		return ErrDuplicate
	}
	task := Task{Name: name, Attempt: 1, Submitted: time.Now().UTC()}
	select {
	case q.tasks <- task:
		q.inflight[name] = struct{}{}
		return nil
	default:
		return fmt.Errorf("queue %s is full", q.name)
	}
}

// Pending reports whether a task with name is queued or running.
func (q *Queue) Pending(name string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.inflight[name]
	return ok
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			q.execute(task)
		case <-q.drain:
			q.drainTasks()
			return
		}
	}
}

// drainTasks runs whatever is still buffered, then returns.
func (q *Queue) drainTasks() {
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			q.execute(task)
		default:
			return
		}
	}
}

func (q *Queue) execute(task Task) {
	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	err := q.handler(ctx, task)
	cancel()
	if err == nil {
		q.finish(task.Name)
		return
	}
	if task.Attempt > q.maxRetries || q.ctx.Err() != nil || q.stopping() {
		q.logger.Error("task exceeded retries",
			zap.String("queue", q.name),
			zap.String("task", task.Name),
			zap.Int("attempt", task.Attempt),
			zap.Error(err))
		q.finish(task.Name)
		return
	}
	q.logger.Warn("task failed, retrying",
		zap.String("queue", q.name),
		zap.String("task", task.Name),
		zap.Int("attempt", task.Attempt),
		zap.Duration("delay", q.retryDelay),
		zap.Error(err))

	task.Attempt++
	go q.retry(task)
}

func (q *Queue) retry(task Task) {
	timer := time.NewTimer(q.retryDelay)
	defer timer.Stop()
	select {
	case <-q.drain:
		q.finish(task.Name)
		return
	case <-timer.C:
	}

	// Enqueue under the lock so a retry never lands after Stop began draining.
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.draining {
		delete(q.inflight, task.Name)
		return
	}
	select {
	case q.tasks <- task:
	default:
		q.logger.Warn("queue full, dropping retry", zap.String("queue", q.name), zap.String("task", task.Name))
		delete(q.inflight, task.Name)
	}
}

func (q *Queue) stopping() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.draining
}

func (q *Queue) finish(name string) {
	q.mu.Lock()
	delete(q.inflight, name)
	q.mu.Unlock()
}
