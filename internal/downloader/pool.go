package downloader

import (
	"context"
	"sync"
	"time"

	"stickerdl/pkg/logger"
)

// Outcome is the result of one item. Index is the item's position in the
// submitted slice.
type Outcome[R any] struct {
	Index    int
	Value    R
	Err      error
	Duration time.Duration
	// Ran is false when the item was never started because the pool stopped
	Ran bool
}

// ProcessFunc handles a single item
type ProcessFunc[T, R any] func(ctx context.Context, index int, item T) (R, error)

// WorkerPool runs a bounded number of workers over a fixed list of items
type WorkerPool[T, R any] struct {
	numWorkers int
	process    ProcessFunc[T, R]
	isFatal    func(error) bool
	onResult   func(Outcome[R])
	logger     logger.Logger
}

// NewWorkerPool creates a pool. numWorkers below 1 means one worker.
func NewWorkerPool[T, R any](numWorkers int, process ProcessFunc[T, R], log logger.Logger) *WorkerPool[T, R] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool[T, R]{
		numWorkers: numWorkers,
		process:    process,
		logger:     log,
	}
}

// StopOn makes the pool cancel the remaining items as soon as an item fails
// with an error for which fatal returns true
func (wp *WorkerPool[T, R]) StopOn(fatal func(error) bool) *WorkerPool[T, R] {
	wp.isFatal = fatal
	return wp
}

// OnResult registers a callback for every finished item. Calls are
// serialized, so fn needs no locking of its own.
func (wp *WorkerPool[T, R]) OnResult(fn func(Outcome[R])) *WorkerPool[T, R] {
	wp.onResult = fn
	return wp
}

// Run processes items and returns one outcome per item, ordered by index.
// The error is the first fatal item error, or ctx's error if the caller
// cancelled.
func (wp *WorkerPool[T, R]) Run(ctx context.Context, items []T) ([]Outcome[R], error) {
	outcomes := make([]Outcome[R], len(items))
	for i := range outcomes {
		outcomes[i].Index = i
	}
	if len(items) == 0 {
		return outcomes, ctx.Err()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := wp.numWorkers
	if workers > len(items) {
		workers = len(items)
	}

	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": workers,
		"items":       len(items),
	})

	jobQueue := make(chan int)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fatalErr error
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for i := range jobQueue {
				if runCtx.Err() != nil {
					continue
				}

				start := time.Now()
				value, err := wp.process(runCtx, i, items[i])

				mu.Lock()
				outcomes[i] = Outcome[R]{
					Index:    i,
					Value:    value,
					Err:      err,
					Duration: time.Since(start),
					Ran:      true,
				}
				if err != nil && fatalErr == nil && wp.isFatal != nil && wp.isFatal(err) {
					fatalErr = err
					wp.logger.DebugWithFields("Worker pool stopping on fatal error", map[string]interface{}{
						"worker_id": workerID,
						"index":     i,
						"error":     err.Error(),
					})
					cancel()
				}
				if wp.onResult != nil {
					wp.onResult(outcomes[i])
				}
				mu.Unlock()
			}
		}(w)
	}

	// Items are handed out in order; once cancelled the rest stay unstarted
submit:
	for i := range items {
		select {
		case jobQueue <- i:
		case <-runCtx.Done():
			break submit
		}
	}
	close(jobQueue)
	wg.Wait()

	stopErr := fatalErr
	if stopErr == nil {
		stopErr = ctx.Err()
	}
	if stopErr != nil {
		for i := range outcomes {
			if !outcomes[i].Ran {
				outcomes[i].Err = stopErr
			}
		}
	}

	wp.logger.DebugWithFields("Worker pool finished", map[string]interface{}{
		"items": len(items),
	})

	return outcomes, stopErr
}
