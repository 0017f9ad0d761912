package task

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/platform/logger"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// TaskTimeout bounds a single Execute call
	TaskTimeout time.Duration

	// StuckTaskAge defines how long a row can stay generating before the
	// monitor fails it
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 1 minute
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            4,
		QueueSize:              100,
		TaskTimeout:            5 * time.Minute,
		StuckTaskAge:           10 * time.Minute,
		StuckTaskCheckInterval: time.Minute,
	}
}

// TaskRunner manages background task processing
type TaskRunner struct {
	recoverer  Recoverer
	taskChan   chan Task
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
	stopped    bool
	config     TaskRunnerConfig
	logger     *slog.Logger
	observer   Observer
	errHandler func(task Task, err error)
	now        func() time.Time
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(recoverer Recoverer, config TaskRunnerConfig, log *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval <= 0 {
		config.StuckTaskCheckInterval = time.Minute
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	log = log.With(slog.String("component", "task_runner"))

	return &TaskRunner{
		recoverer:  recoverer,
		taskChan:   make(chan Task, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     log,
		observer:   noopObserver{},
		errHandler: func(task Task, err error) {
			log.Error("task execution failed",
				slog.String("task_id", task.ID().String()),
				slog.String("task_type", task.Type()),
				slog.String("error", err.Error()))
		},
		now: time.Now,
	}
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// SetObserver installs a lifecycle observer.
func (r *TaskRunner) SetObserver(o Observer) {
	if o != nil {
		r.observer = o
	}
}

// Submit adds a task to the queue without blocking. It returns ErrQueueFull
// when the queue has no room and ErrRunnerStopped after Stop.
func (r *TaskRunner) Submit(task Task) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		return ErrRunnerStopped
	}

	select {
	case r.taskChan <- task:
		r.observer.TaskQueued(task.Type())
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueDepth returns the number of tasks waiting for a worker.
func (r *TaskRunner) QueueDepth() int {
	return len(r.taskChan)
}

// Start fails rows orphaned by a previous process, then starts the workers
// and the stuck task monitor.
func (r *TaskRunner) Start(ctx context.Context) error {
	if err := r.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	r.logger.Info("task runner started",
		slog.Int("workers", r.config.WorkerCount),
		slog.Int("queue_size", cap(r.taskChan)))
	return nil
}

// Stop cancels in-flight tasks and waits for the workers to return.
// Queued tasks that never started are dropped.
func (r *TaskRunner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.cancelFunc()
	r.wg.Wait()
	close(r.taskChan)
	r.logger.Info("task runner stopped", slog.Int("dropped", len(r.taskChan)))
}

// Recover fails every row still generating. No worker of this process owns
// them, so their streams are lost.
func (r *TaskRunner) Recover(ctx context.Context) error {
	n, err := r.recoverer.FailGenerating(ctx, r.now(), domain.FailureInterrupted)
	if err != nil {
		return err
	}
	if n > 0 {
		r.logger.Warn("failed interrupted generation tasks", slog.Int64("count", n))
	}
	return nil
}

func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", slog.Int("worker_id", id))

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", slog.Int("worker_id", id))
			return

		case task, ok := <-r.taskChan:
			if !ok {
				return
			}
			r.processTask(task, id)
		}
	}
}

// processTask executes one task with the configured timeout and turns a
// panic into a task failure.
func (r *TaskRunner) processTask(task Task, workerID int) {
	log := r.logger.With(
		slog.String("task_id", task.ID().String()),
		slog.String("task_type", task.Type()),
		slog.Int("worker_id", workerID),
	)

	ctx := logger.WithLogger(r.ctx, log)
	if r.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.TaskTimeout)
		defer cancel()
	}

	start := r.now()
	log.Debug("processing task")

	err := r.execute(ctx, task)
	elapsed := r.now().Sub(start)
	r.observer.TaskFinished(task.Type(), err, elapsed)

	if err != nil {
		r.errHandler(task, err)
		return
	}
	log.Info("task completed", slog.Duration("elapsed", elapsed))
}

func (r *TaskRunner) execute(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
			logger.FromContextOrDefault(ctx, r.logger).Error("task panic recovered",
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())))
			if f, ok := task.(Failer); ok {
				f.Fail(context.WithoutCancel(ctx), err)
			}
		}
	}()
	return task.Execute(ctx)
}

// stuckTaskMonitor periodically fails rows that have been generating for
// longer than StuckTaskAge.
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	if r.config.StuckTaskAge <= 0 {
		return
	}

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.failStuckTasks()
		}
	}
}

func (r *TaskRunner) failStuckTasks() {
	cutoff := r.now().Add(-r.config.StuckTaskAge)
	n, err := r.recoverer.FailGenerating(r.ctx, cutoff, domain.FailureTimeout)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		r.logger.Warn("failed stuck generation tasks", slog.Int64("count", n))
	}
}
