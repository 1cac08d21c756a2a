// Package async runs independent named tasks on a bounded number of goroutines.
package async

import (
	"context"
	"sync"
)

type Task[T any] struct {
	Name    string
	Execute func(ctx context.Context) (T, error)
}

type Result[T any] struct {
	Name string
	Data T
	Err  error
}

// Pool bounds how many tasks run at once. A Pool holds no state between calls and
// may be shared.
type Pool struct {
	workerCount int
}

func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

// Execute runs tasks on p and returns one result per task name. Tasks that never
// started because ctx ended report ctx.Err().
func Execute[T any](ctx context.Context, p *Pool, tasks []Task[T]) map[string]Result[T] {
	queue := make(chan Task[T])
	results := make(chan Result[T], len(tasks))

	workers := p.workerCount
	if workers > len(tasks) {
		workers = len(tasks)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				data, err := task.Execute(ctx)
				results <- Result[T]{Name: task.Name, Data: data, Err: err}
			}
		}()
	}

	var skipped []Task[T]
	for i, task := range tasks {
		select {
		case queue <- task:
			continue
		case <-ctx.Done():
			skipped = tasks[i:]
		}
		break
	}
	close(queue)
	wg.Wait()
	close(results)

	collected := make(map[string]Result[T], len(tasks))
	for r := range results {
		collected[r.Name] = r
	}
	for _, task := range skipped {
		collected[task.Name] = Result[T]{Name: task.Name, Err: ctx.Err()}
	}
	return collected
}
