package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"sitemap-audit/pkg/logger"
)

// Task is one unit of batch work.
type Task interface {
	Execute(ctx context.Context) error
	ID() string
}

// TaskResult is the per-slot outcome of a batch run. Unresolved marks a task
// that failed outside its own error contract (panic or cancellation) rather
// than a classified failure.
type TaskResult struct {
	Index      int
	ID         string
	Err        error
	Unresolved bool
	Duration   time.Duration
}

// PoolConfig holds configuration for the worker pool.
type PoolConfig struct {
	Workers     int           `json:"workers"`
	TaskTimeout time.Duration `json:"task_timeout"`
}

// DefaultPoolConfig returns defaults sized for URL probing.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:     10,
		TaskTimeout: 2 * time.Minute,
	}
}

// Pool runs task batches with a bounded number of concurrent workers.
// Workers pull from a shared index cursor, so slow tasks never block a fixed
// partition of the batch, and each worker writes only its own result slots.
type Pool struct {
	workers     int
	taskTimeout time.Duration

	completedTasks uint64
	failedTasks    uint64
	activeWorkers  int32

	log *logger.Logger
}

func NewPool(config PoolConfig) *Pool {
	workers := config.Workers
	if workers <= 0 {
		workers = DefaultPoolConfig().Workers
	}
	timeout := config.TaskTimeout
	if timeout <= 0 {
		timeout = DefaultPoolConfig().TaskTimeout
	}
	return &Pool{
		workers:     workers,
		taskTimeout: timeout,
		log:         logger.GetLogger().WithField("component", "worker_pool"),
	}
}

// RunAll executes every task with at most the configured number of workers
// in flight, and returns results ordered by the original task index
// regardless of completion order. onProgress, if set, is called once per
// completed task with the running completion count.
func (p *Pool) RunAll(ctx context.Context, tasks []Task, onProgress func(done, total int)) []TaskResult {
	if len(tasks) == 0 {
		return nil
	}

	results := make([]TaskResult, len(tasks))
	workers := p.workers
	if workers > len(tasks) {
		workers = len(tasks)
	}

	p.log.WithFields(map[string]interface{}{
		"tasks":   len(tasks),
		"workers": workers,
	}).Debug("Starting batch")

	var cursor int64 = -1
	var done uint64
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			atomic.AddInt32(&p.activeWorkers, 1)
			defer atomic.AddInt32(&p.activeWorkers, -1)

			for {
				idx := int(atomic.AddInt64(&cursor, 1))
				if idx >= len(tasks) {
					return
				}

				results[idx] = p.runTask(ctx, idx, tasks[idx])

				completed := atomic.AddUint64(&done, 1)
				if onProgress != nil {
					onProgress(int(completed), len(tasks))
				}
			}
		}()
	}

	wg.Wait()
	return results
}

// runTask executes a single task with timeout and panic isolation. A
// panicking task degrades its own slot to an unresolved marker; it never
// aborts the batch.
func (p *Pool) runTask(ctx context.Context, index int, task Task) (result TaskResult) {
	start := time.Now()
	result = TaskResult{Index: index, ID: task.ID()}

	defer func() {
		result.Duration = time.Since(start)
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("task panicked: %v", r)
			result.Unresolved = true
			atomic.AddUint64(&p.failedTasks, 1)
			p.log.WithFields(map[string]interface{}{
				"task_id": result.ID,
				"panic":   r,
			}).Error("Task panicked")
		}
	}()

	select {
	case <-ctx.Done():
		result.Err = ctx.Err()
		result.Unresolved = true
		return result
	default:
	}

	taskCtx, cancel := context.WithTimeout(ctx, p.taskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		result.Err = err
		atomic.AddUint64(&p.failedTasks, 1)
		return result
	}

	atomic.AddUint64(&p.completedTasks, 1)
	return result
}

// Metrics returns current pool counters.
func (p *Pool) Metrics() PoolMetrics {
	return PoolMetrics{
		CompletedTasks: atomic.LoadUint64(&p.completedTasks),
		FailedTasks:    atomic.LoadUint64(&p.failedTasks),
		ActiveWorkers:  atomic.LoadInt32(&p.activeWorkers),
	}
}

// PoolMetrics represents worker pool counters across batches.
type PoolMetrics struct {
	CompletedTasks uint64 `json:"completed_tasks"`
	FailedTasks    uint64 `json:"failed_tasks"`
	ActiveWorkers  int32  `json:"active_workers"`
}

// SuccessRate calculates the success rate of completed tasks.
func (m PoolMetrics) SuccessRate() float64 {
	total := m.CompletedTasks + m.FailedTasks
	if total == 0 {
		return 0
	}
	return float64(m.CompletedTasks) / float64(total)
}
