// Package dispatch runs batches of independent tasks on a bounded worker pool
// and collects every outcome by task name.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/steamlens/logger"
)

// ErrTaskPanic is matched by the error recorded for a task that panicked.
var ErrTaskPanic = errors.New("task panicked")

// ErrNoFunc is recorded for a task without a Run function.
var ErrNoFunc = errors.New("task has no function")

// PanicError carries a recovered panic value and the stack it came from.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("task panicked: %v", e.Value) }

// Is makes errors.Is(err, ErrTaskPanic) true.
func (e *PanicError) Is(target error) bool { return target == ErrTaskPanic }

// Task is a named unit of work.
type Task struct {
	Name string
	Run  func(ctx context.Context) (any, error)
}

// Outcome is the result of one task: a value or an error, never both.
type Outcome struct {
	Value    any
	Err      error
	Duration time.Duration
}

// Metrics receives batch-level observations.
type Metrics interface {
	ObserveBatch(tasks int, elapsed time.Duration)
	TaskFailed(panicked bool)
}

type noopMetrics struct{}

func (noopMetrics) ObserveBatch(int, time.Duration) {}
func (noopMetrics) TaskFailed(bool)                 {}

// Config configures a Dispatcher.
type Config struct {
	// MaxWorkers bounds how many tasks run at once, across all batches.
	MaxWorkers int `mapstructure:"max_workers" validate:"gte=1"`

	Logger  *logger.Logger `mapstructure:"-"`
	Metrics Metrics        `mapstructure:"-"`
}

// ApplyDefaults fills zero values: 5 workers.
func (c *Config) ApplyDefaults() {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 5
	}
	c.Logger = logger.OrNop(c.Logger)
	if c.Metrics == nil {
		c.Metrics = noopMetrics{}
	}
}

// Stats summarizes the batches a Dispatcher has run.
type Stats struct {
	MaxWorkers int    `json:"max_workers"`
	Batches    uint64 `json:"batches"`
	Tasks      uint64 `json:"tasks"`
	Failed     uint64 `json:"failed"`
	// AvgBatchTime is the mean wall-clock seconds per batch; 0 before any batch.
	AvgBatchTime float64 `json:"avg_batch_time_seconds"`
}

// Dispatcher executes batches of tasks concurrently. It is long-lived and safe
// for concurrent use; concurrent batches share the same worker slots.
type Dispatcher struct {
	cfg   Config
	log   *logger.Logger
	slots chan struct{}

	mu        sync.Mutex
	batches   uint64
	tasks     uint64
	failed    uint64
	totalTime time.Duration
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	cfg.ApplyDefaults()
	return &Dispatcher{
		cfg:   cfg,
		log:   cfg.Logger.WithComponent("dispatcher"),
		slots: make(chan struct{}, cfg.MaxWorkers),
	}
}

// ExecuteParallel runs every task and returns once all have finished. The
// result has one Outcome per distinct task name; for duplicate names the task
// submitted later wins. A task's error or panic is recorded in its own
// Outcome and never affects the others. Tasks that have not started when ctx
// is cancelled get ctx.Err() without running.
func (d *Dispatcher) ExecuteParallel(ctx context.Context, tasks []Task) map[string]Outcome {
	batchID := uuid.NewString()
	start := time.Now()
	outcomes := make([]Outcome, len(tasks))

	queue := make(chan int, len(tasks))
	for i := range tasks {
		queue <- i
	}
	close(queue)

	workers := min(d.cfg.MaxWorkers, len(tasks))
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range queue {
				outcomes[i] = d.run(ctx, tasks[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string]Outcome, len(tasks))
	var failed uint64
	for i, t := range tasks {
		results[t.Name] = outcomes[i]
		if outcomes[i].Err != nil {
			failed++
		}
	}

	elapsed := time.Since(start)
	d.mu.Lock()
	d.batches++
	d.tasks += uint64(len(tasks))
	d.failed += failed
	d.totalTime += elapsed
	d.mu.Unlock()
	d.cfg.Metrics.ObserveBatch(len(tasks), elapsed)

	d.log.Debug("batch finished", logger.Fields(
		logger.FieldBatchID, batchID,
		"tasks", len(tasks),
		"failed", failed,
		logger.FieldDuration, elapsed.Milliseconds(),
	))
	return results
}

// run executes one task in a worker slot, isolating errors and panics.
func (d *Dispatcher) run(ctx context.Context, t Task) (out Outcome) {
	if t.Run == nil {
		d.cfg.Metrics.TaskFailed(false)
		return Outcome{Err: ErrNoFunc}
	}

	select {
	case d.slots <- struct{}{}:
	case <-ctx.Done():
		return Outcome{Err: ctx.Err()}
	}
	defer func() { <-d.slots }()

	if err := ctx.Err(); err != nil {
		return Outcome{Err: err}
	}

	start := time.Now()
	defer func() {
		out.Duration = time.Since(start)
		if r := recover(); r != nil {
			d.log.Error("task panicked", logger.Fields("task", t.Name, "panic", fmt.Sprint(r)))
			out.Value = nil
			out.Err = &PanicError{Value: r, Stack: debug.Stack()}
			d.cfg.Metrics.TaskFailed(true)
			return
		}
		if out.Err != nil {
			out.Value = nil
			d.cfg.Metrics.TaskFailed(false)
		}
	}()

	v, err := t.Run(ctx)
	return Outcome{Value: v, Err: err}
}

// Stats returns aggregate counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Stats{
		MaxWorkers: d.cfg.MaxWorkers,
		Batches:    d.batches,
		Tasks:      d.tasks,
		Failed:     d.failed,
	}
	if d.batches > 0 {
		s.AvgBatchTime = d.totalTime.Seconds() / float64(d.batches)
	}
	return s
}
