package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

type countingTask struct {
	id      string
	delay   time.Duration
	err     error
	current *int32
	peak    *int32
}

func (t *countingTask) ID() string { return t.id }

func (t *countingTask) Execute(ctx context.Context) error {
	if t.current != nil {
		now := atomic.AddInt32(t.current, 1)
		for {
			peak := atomic.LoadInt32(t.peak)
			if now <= peak || atomic.CompareAndSwapInt32(t.peak, peak, now) {
				break
			}
		}
		defer atomic.AddInt32(t.current, -1)
	}
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	return t.err
}

type panicTask struct{ id string }

func (t *panicTask) ID() string                        { return t.id }
func (t *panicTask) Execute(ctx context.Context) error { panic("boom") }

func TestRunAll_BoundedConcurrency(t *testing.T) {
	var current, peak int32
	tasks := make([]Task, 50)
	for i := range tasks {
		tasks[i] = &countingTask{
			id:      fmt.Sprintf("task-%d", i),
			delay:   5 * time.Millisecond,
			current: &current,
			peak:    &peak,
		}
	}

	pool := NewPool(PoolConfig{Workers: 5, TaskTimeout: time.Second})
	results := pool.RunAll(context.Background(), tasks, nil)

	if len(results) != 50 {
		t.Fatalf("Expected 50 results, got %d", len(results))
	}
	if got := atomic.LoadInt32(&peak); got > 5 {
		t.Errorf("Concurrency limit violated: peak %d workers", got)
	}
	for i, res := range results {
		if res.Index != i {
			t.Fatalf("Result slot %d holds index %d", i, res.Index)
		}
		if res.Err != nil {
			t.Errorf("Task %d failed: %v", i, res.Err)
		}
	}
}

func TestRunAll_ResultsKeepInputOrder(t *testing.T) {
	// Uneven delays shuffle completion order; slots must still line up.
	tasks := make([]Task, 20)
	for i := range tasks {
		delay := time.Duration(20-i) * time.Millisecond
		tasks[i] = &countingTask{id: fmt.Sprintf("task-%d", i), delay: delay}
	}

	pool := NewPool(PoolConfig{Workers: 8, TaskTimeout: time.Second})
	results := pool.RunAll(context.Background(), tasks, nil)

	for i, res := range results {
		if res.ID != fmt.Sprintf("task-%d", i) {
			t.Fatalf("Slot %d holds task %q", i, res.ID)
		}
	}
}

func TestRunAll_TaskErrorsIsolated(t *testing.T) {
	wantErr := errors.New("probe failed")
	tasks := []Task{
		&countingTask{id: "a"},
		&countingTask{id: "b", err: wantErr},
		&countingTask{id: "c"},
	}

	pool := NewPool(PoolConfig{Workers: 2, TaskTimeout: time.Second})
	results := pool.RunAll(context.Background(), tasks, nil)

	if results[0].Err != nil || results[2].Err != nil {
		t.Error("Sibling tasks must not inherit a failure")
	}
	if !errors.Is(results[1].Err, wantErr) {
		t.Errorf("Expected task error, got %v", results[1].Err)
	}
	if results[1].Unresolved {
		t.Error("A classified task error is not unresolved")
	}
}

func TestRunAll_PanicBecomesUnresolved(t *testing.T) {
	tasks := []Task{
		&countingTask{id: "a"},
		&panicTask{id: "b"},
		&countingTask{id: "c"},
	}

	pool := NewPool(PoolConfig{Workers: 2, TaskTimeout: time.Second})
	results := pool.RunAll(context.Background(), tasks, nil)

	if !results[1].Unresolved {
		t.Fatal("Panicking task must degrade to unresolved")
	}
	if results[1].Err == nil {
		t.Error("Expected panic error in result")
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Error("Panic must not poison sibling slots")
	}
}

func TestRunAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []Task{&countingTask{id: "a"}, &countingTask{id: "b"}}
	pool := NewPool(PoolConfig{Workers: 2, TaskTimeout: time.Second})
	results := pool.RunAll(ctx, tasks, nil)

	for i, res := range results {
		if !res.Unresolved {
			t.Errorf("Task %d must be unresolved after cancellation", i)
		}
	}
}

func TestRunAll_ProgressCallback(t *testing.T) {
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = &countingTask{id: fmt.Sprintf("task-%d", i)}
	}

	var calls uint64
	var final uint64
	pool := NewPool(PoolConfig{Workers: 3, TaskTimeout: time.Second})
	pool.RunAll(context.Background(), tasks, func(done, total int) {
		atomic.AddUint64(&calls, 1)
		if done == total {
			atomic.StoreUint64(&final, uint64(done))
		}
	})

	if got := atomic.LoadUint64(&calls); got != 10 {
		t.Errorf("Expected 10 progress calls, got %d", got)
	}
	if got := atomic.LoadUint64(&final); got != 10 {
		t.Errorf("Final progress call should report completion, got %d", got)
	}
}

func TestRunAll_EmptyBatch(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 4, TaskTimeout: time.Second})
	if results := pool.RunAll(context.Background(), nil, nil); results != nil {
		t.Errorf("Expected nil results for empty batch, got %v", results)
	}
}

func TestMetrics(t *testing.T) {
	tasks := []Task{
		&countingTask{id: "a"},
		&countingTask{id: "b", err: errors.New("failed")},
		&panicTask{id: "c"},
	}

	pool := NewPool(PoolConfig{Workers: 2, TaskTimeout: time.Second})
	pool.RunAll(context.Background(), tasks, nil)

	m := pool.Metrics()
	if m.CompletedTasks != 1 {
		t.Errorf("Expected 1 completed task, got %d", m.CompletedTasks)
	}
	if m.FailedTasks != 2 {
		t.Errorf("Expected 2 failed tasks, got %d", m.FailedTasks)
	}
	if rate := m.SuccessRate(); rate < 0.32 || rate > 0.34 {
		t.Errorf("Unexpected success rate %f", rate)
	}
}
