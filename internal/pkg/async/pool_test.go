package async_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulseboard/internal/pkg/async"
)

func TestExecuteRunsEveryTask(t *testing.T) {
	pool := async.NewPool(3)

	var running, peak int32
	tasks := make([]async.Task[int], 10)
	for i := range tasks {
		n := i
		tasks[i] = async.Task[int]{
			Name: fmt.Sprintf("task-%d", n),
			Execute: func(ctx context.Context) (int, error) {
				cur := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				if n == 4 {
					return 0, errors.New("boom")
				}
				return n * n, nil
			},
		}
	}

	results := async.Execute(context.Background(), pool, tasks)

	require.Len(t, results, 10)
	assert.Equal(t, 81, results["task-9"].Data)
	assert.EqualError(t, results["task-4"].Err, "boom")
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestExecuteReportsCancelledTasks(t *testing.T) {
	pool := async.NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())

	tasks := []async.Task[string]{
		{Name: "first", Execute: func(ctx context.Context) (string, error) {
			cancel()
			return "done", nil
		}},
		{Name: "second", Execute: func(ctx context.Context) (string, error) {
			return "late", ctx.Err()
		}},
	}

	results := async.Execute(ctx, pool, tasks)

	require.Len(t, results, 2)
	assert.Equal(t, "done", results["first"].Data)
	assert.ErrorIs(t, results["second"].Err, context.Canceled)
}

func TestExecuteWithNoTasks(t *testing.T) {
	results := async.Execute[int](context.Background(), async.NewPool(4), nil)
	assert.Empty(t, results)
}
