// Package worker runs texture export tasks on a bounded set of goroutines.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/MeKo-Tech/climatetex/internal/climate"
	"github.com/MeKo-Tech/climatetex/internal/resolver"
)

// Exporter resolves and writes one task. Implementations need not be safe
// for concurrent use; every worker gets its own.
type Exporter interface {
	Export(ctx context.Context, task Task) (paths []string, err error)
}

// Task is one record to export under one climate.
type Task struct {
	Archive int
	Record  int
	Climate climate.Context
	Flags   resolver.Flags
	// Animated exports every frame instead of frame 0 only.
	Animated bool
}

// Result is the outcome of a task.
type Result struct {
	Task    Task
	Paths   []string
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers int
	// NewExporter is called once per worker.
	NewExporter func() Exporter
	OnProgress  ProgressFunc
}

// Pool runs export tasks in parallel.
type Pool struct {
	workers     int
	newExporter func() Exporter
	onProgress  ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:     workers,
		newExporter: cfg.NewExporter,
		onProgress:  cfg.OnProgress,
	}
}

// Run executes all tasks and returns their results in completion order.
// It blocks until every task has a result; tasks not started before ctx is
// cancelled report ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, p.newExporter(), taskCh, resultCh)
		}()
	}

	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})

	go func() {
		failed := 0
		for result := range resultCh {
			results = append(results, result)
			if result.Err != nil {
				failed++
			}
			if p.onProgress != nil {
				p.onProgress(len(results), len(tasks), failed)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

func (p *Pool) worker(ctx context.Context, exp Exporter, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		if err := ctx.Err(); err != nil {
			results <- Result{Task: task, Err: err}
			continue
		}

		start := time.Now()
		paths, err := exp.Export(ctx, task)
		results <- Result{
			Task:    task,
			Paths:   paths,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}
