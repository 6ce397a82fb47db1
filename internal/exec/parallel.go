// Package exec implements the Parallel Executor and Test Manager:
// bounded-concurrency dispatch with dependency-aware scheduling,
// and the top-level per-request procedure.
package exec

import (
	"context"
	"sync"

	"github.com/blackcoderx/httprun/internal/model"
	"golang.org/x/time/rate"
)

// ProgressFunc is invoked after each request completes with the running
// completed/total counts.
type ProgressFunc func(completed, total int)

// Task runs one request and returns its result; it must itself honor
// ctx cancellation.
type Task func(ctx context.Context, index int) *model.RequestResult

// Options configure one Executor run.
type Options struct {
	MaxConcurrency int
	Parallel       bool
	Bail           bool
	Progress       ProgressFunc
	// DependsOn maps a request's index to the set of indices it must wait
	// for: a request whose templates reference a not-yet-resolved named
	// response or free variable is only dispatched once every index it
	// depends on has completed.
	DependsOn map[int][]int
	// RPS caps the steady-state dispatch rate across all tasks; zero
	// means unbounded (only MaxConcurrency limits throughput).
	RPS float64
}

// Executor dispatches n tasks honoring Options, preserving result order
// by submission index regardless of completion order.
type Executor struct {
	opts    Options
	limiter *rate.Limiter
}

// New builds an Executor with the given options.
func New(opts Options) *Executor {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	e := &Executor{opts: opts}
	if opts.RPS > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}
	return e
}

// Run executes tasks[0..n) and returns their results in submission
// order. When Parallel is false, execution degenerates to sequential
// while preserving the same result shape.
func (e *Executor) Run(ctx context.Context, n int, task Task) []*model.RequestResult {
	results := make([]*model.RequestResult, n)

	if !e.opts.Parallel {
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				results[i] = &model.RequestResult{Skipped: true, SkippedCause: "cancelled"}
				continue
			}
			if e.limiter != nil {
				if err := e.limiter.Wait(ctx); err != nil {
					results[i] = &model.RequestResult{Skipped: true, SkippedCause: "cancelled"}
					continue
				}
			}
			r := task(ctx, i)
			results[i] = r
			if e.opts.Progress != nil {
				e.opts.Progress(i+1, n)
			}
			if e.opts.Bail && r != nil && !r.Passed() {
				for j := i + 1; j < n; j++ {
					results[j] = &model.RequestResult{Skipped: true, SkippedCause: "bailed"}
				}
				break
			}
		}
		return results
	}

	return e.runParallel(ctx, n, task, results)
}

// runParallel schedules in waves: each wave dispatches every
// not-yet-started task whose dependencies are all done, bounded by
// MaxConcurrency via a semaphore, then waits for the wave before
// recomputing readiness. This matches the implicit sequential chain
// for dependent requests without needing a general topological sort.
func (e *Executor) runParallel(ctx context.Context, n int, task Task, results []*model.RequestResult) []*model.RequestResult {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	done := make([]bool, n)
	started := make([]bool, n)
	completed := 0
	bailed := false
	sem := make(chan struct{}, e.opts.MaxConcurrency)

	ready := func(i int) bool {
		for _, dep := range e.opts.DependsOn[i] {
			if !done[dep] {
				return false
			}
		}
		return true
	}

	for {
		var wave []int
		mu.Lock()
		if runCtx.Err() != nil || bailed {
			mu.Unlock()
			break
		}
		for i := 0; i < n; i++ {
			if !started[i] && ready(i) {
				started[i] = true
				wave = append(wave, i)
			}
		}
		mu.Unlock()

		if len(wave) == 0 {
			break
		}

		var wg sync.WaitGroup
		for _, i := range wave {
			i := i
			sem <- struct{}{}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()

				if runCtx.Err() != nil {
					mu.Lock()
					results[i] = &model.RequestResult{Skipped: true, SkippedCause: "cancelled"}
					done[i] = true
					mu.Unlock()
					return
				}

				if e.limiter != nil {
					if err := e.limiter.Wait(runCtx); err != nil {
						mu.Lock()
						results[i] = &model.RequestResult{Skipped: true, SkippedCause: "cancelled"}
						done[i] = true
						mu.Unlock()
						return
					}
				}

				r := task(runCtx, i)

				mu.Lock()
				results[i] = r
				done[i] = true
				completed++
				c := completed
				if e.opts.Bail && r != nil && !r.Passed() {
					bailed = true
					cancel()
				}
				mu.Unlock()

				if e.opts.Progress != nil {
					e.opts.Progress(c, n)
				}
			}()
		}
		wg.Wait()
	}

	for i := 0; i < n; i++ {
		if results[i] == nil {
			cause := "cancelled"
			if bailed {
				cause = "bailed"
			} else if !started[i] {
				cause = "dependency never became ready"
			}
			results[i] = &model.RequestResult{Skipped: true, SkippedCause: cause}
		}
	}

	return results
}
