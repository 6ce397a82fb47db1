package exec

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/httprun/internal/model"
)

func TestExecutorSequentialPreservesOrder(t *testing.T) {
	e := New(Options{Parallel: false})
	results := e.Run(context.Background(), 5, func(ctx context.Context, i int) *model.RequestResult {
		return &model.RequestResult{Request: &model.Request{Name: string(rune('A' + i))}}
	})
	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, string(rune('A'+i)), r.Request.Name)
	}
}

func TestExecutorParallelPreservesResultOrder(t *testing.T) {
	for _, conc := range []int{1, 2, 4, 8} {
		e := New(Options{Parallel: true, MaxConcurrency: conc})
		n := 20
		results := e.Run(context.Background(), n, func(ctx context.Context, i int) *model.RequestResult {
			time.Sleep(time.Duration(n-i) * time.Millisecond / 4)
			return &model.RequestResult{Request: &model.Request{Line: i}}
		})
		require.Len(t, results, n)
		for i, r := range results {
			assert.Equal(t, i, r.Request.Line, "maxConcurrency=%d", conc)
		}
	}
}

func TestExecutorBoundsConcurrency(t *testing.T) {
	e := New(Options{Parallel: true, MaxConcurrency: 2})
	var inFlight int32
	var maxSeen int32
	var mu sync.Mutex

	e.Run(context.Background(), 10, func(ctx context.Context, i int) *model.RequestResult {
		n := atomic.AddInt32(&inFlight, 1)
		mu.Lock()
		if n > maxSeen {
			maxSeen = n
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return &model.RequestResult{}
	})

	assert.LessOrEqual(t, int(maxSeen), 2)
}

func TestExecutorProgressCallback(t *testing.T) {
	var calls []int
	var mu sync.Mutex
	e := New(Options{Progress: func(completed, total int) {
		mu.Lock()
		calls = append(calls, completed)
		mu.Unlock()
	}})
	e.Run(context.Background(), 3, func(ctx context.Context, i int) *model.RequestResult {
		return &model.RequestResult{}
	})
	assert.Equal(t, []int{1, 2, 3}, calls)
}

type failingResult struct{}

func TestExecutorBailStopsOnFirstFailureSequential(t *testing.T) {
	e := New(Options{Bail: true})
	var executed []int
	var mu sync.Mutex
	results := e.Run(context.Background(), 5, func(ctx context.Context, i int) *model.RequestResult {
		mu.Lock()
		executed = append(executed, i)
		mu.Unlock()
		return &model.RequestResult{TestResults: []model.TestResult{{Passed: i != 1}}}
	})
	require.Len(t, results, 5)
	assert.Equal(t, []int{0, 1}, executed)
	assert.True(t, results[2].Skipped)
	assert.Equal(t, "bailed", results[2].SkippedCause)
}

func TestExecutorDependsOnOrdersDispatch(t *testing.T) {
	e := New(Options{Parallel: true, MaxConcurrency: 4, DependsOn: map[int][]int{1: {0}}})
	var order []int
	var mu sync.Mutex

	results := e.Run(context.Background(), 2, func(ctx context.Context, i int) *model.RequestResult {
		if i == 1 {
			time.Sleep(2 * time.Millisecond)
		}
		mu.Lock()
		order = append(order, i)
		mu.Unlock()
		return &model.RequestResult{}
	})
	require.Len(t, results, 2)
	require.Len(t, order, 2)
	assert.Equal(t, 0, order[0], "dependency must complete before its dependent is dispatched")
}

func TestExecutorRPSPacesDispatch(t *testing.T) {
	e := New(Options{RPS: 20}) // one token every 50ms, burst 1
	start := time.Now()
	results := e.Run(context.Background(), 3, func(ctx context.Context, i int) *model.RequestResult {
		return &model.RequestResult{}
	})
	elapsed := time.Since(start)
	require.Len(t, results, 3)
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond, "3 requests at 20rps/burst1 need at least two ~50ms waits")
}

func TestExecutorRPSZeroMeansUnbounded(t *testing.T) {
	e := New(Options{})
	assert.Nil(t, e.limiter)
}

func TestExecutorCancellationYieldsSkippedResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(Options{Parallel: true, MaxConcurrency: 2})
	results := e.Run(ctx, 3, func(ctx context.Context, i int) *model.RequestResult {
		return &model.RequestResult{}
	})
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Skipped)
	}
}
