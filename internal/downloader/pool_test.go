package downloader

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	apperrors "stickerdl/pkg/errors"
	"stickerdl/pkg/logger"
)

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	var calls int32
	pool := NewWorkerPool[int, int](3, func(ctx context.Context, index int, item int) (int, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(time.Duration(10-item) * time.Millisecond)
		return item * item, nil
	}, logger.NewNopLogger())

	outcomes, err := pool.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(outcomes) != len(items) {
		t.Fatalf("Expected %d outcomes, got %d", len(items), len(outcomes))
	}

	// outcomes follow input order regardless of completion order
	for i, o := range outcomes {
		if o.Index != i {
			t.Errorf("Outcome %d has index %d", i, o.Index)
		}
		if o.Value != items[i]*items[i] {
			t.Errorf("Outcome %d has value %d", i, o.Value)
		}
		if !o.Ran || o.Err != nil {
			t.Errorf("Outcome %d not successful: %+v", i, o)
		}
	}

	if int(atomic.LoadInt32(&calls)) != len(items) {
		t.Errorf("Expected %d calls, got %d", len(items), calls)
	}
}

func TestWorkerPoolWithErrors(t *testing.T) {
	pool := NewWorkerPool[string, string](2, func(ctx context.Context, index int, item string) (string, error) {
		if index%2 == 1 {
			return "", fmt.Errorf("item %s failed", item)
		}
		return item, nil
	}, logger.NewNopLogger())

	outcomes, err := pool.Run(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("Non-fatal errors must not fail the run: %v", err)
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	if failed != 2 {
		t.Errorf("Expected 2 failures, got %d", failed)
	}
	if outcomes[1].Err.Error() != "item b failed" {
		t.Errorf("Unexpected error %v", outcomes[1].Err)
	}
}

func TestWorkerPoolConcurrency(t *testing.T) {
	var active, peak int32
	pool := NewWorkerPool[int, struct{}](5, func(ctx context.Context, index int, item int) (struct{}, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return struct{}{}, nil
	}, logger.NewNopLogger())

	start := time.Now()
	if _, err := pool.Run(context.Background(), make([]int, 10)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	elapsed := time.Since(start)

	if p := atomic.LoadInt32(&peak); p > 5 {
		t.Errorf("Expected at most 5 concurrent workers, saw %d", p)
	}
	// 10 jobs of 50ms on 5 workers take about 100ms
	if elapsed > 400*time.Millisecond {
		t.Errorf("Pool took too long: %v", elapsed)
	}
}

func TestWorkerPoolSingleWorkerIsSequential(t *testing.T) {
	var order []int
	pool := NewWorkerPool[int, int](1, func(ctx context.Context, index int, item int) (int, error) {
		order = append(order, index)
		return 0, nil
	}, logger.NewNopLogger())

	if _, err := pool.Run(context.Background(), make([]int, 6)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i, idx := range order {
		if i != idx {
			t.Fatalf("Expected sequential order, got %v", order)
		}
	}
}

func TestWorkerPoolStopsOnFatalError(t *testing.T) {
	authErr := apperrors.NewAuthError("bot token rejected", 401)

	var calls int32
	pool := NewWorkerPool[int, int](1, func(ctx context.Context, index int, item int) (int, error) {
		atomic.AddInt32(&calls, 1)
		if index == 2 {
			return 0, authErr
		}
		return index, nil
	}, logger.NewNopLogger()).StopOn(apperrors.IsAuth)

	outcomes, err := pool.Run(context.Background(), make([]int, 10))
	if !errors.Is(err, authErr) {
		t.Fatalf("Expected auth error, got %v", err)
	}

	if c := atomic.LoadInt32(&calls); c > 4 {
		t.Errorf("Expected the pool to stop shortly after the fatal error, ran %d items", c)
	}
	for _, o := range outcomes[4:] {
		if o.Ran {
			t.Errorf("Item %d should not have run", o.Index)
		}
		if !errors.Is(o.Err, authErr) {
			t.Errorf("Unstarted item %d should carry the stop error, got %v", o.Index, o.Err)
		}
	}
}

func TestWorkerPoolOnResultSerialized(t *testing.T) {
	seen := 0
	pool := NewWorkerPool[int, int](4, func(ctx context.Context, index int, item int) (int, error) {
		return item, nil
	}, logger.NewNopLogger()).OnResult(func(o Outcome[int]) {
		// unsynchronized on purpose; the race detector flags concurrent calls
		seen++
	})

	if _, err := pool.Run(context.Background(), make([]int, 50)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if seen != 50 {
		t.Errorf("Expected 50 callbacks, got %d", seen)
	}
}

func TestWorkerPoolCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewWorkerPool[int, int](2, func(ctx context.Context, index int, item int) (int, error) {
		return 0, ctx.Err()
	}, logger.NewNopLogger())

	outcomes, err := pool.Run(ctx, make([]int, 3))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	for _, o := range outcomes {
		if o.Err == nil {
			t.Errorf("Item %d should report an error", o.Index)
		}
	}
}

func TestWorkerPoolEmpty(t *testing.T) {
	pool := NewWorkerPool[int, int](2, func(ctx context.Context, index int, item int) (int, error) {
		t.Fatal("process must not be called")
		return 0, nil
	}, nil)

	outcomes, err := pool.Run(context.Background(), nil)
	if err != nil || len(outcomes) != 0 {
		t.Errorf("Expected empty run, got %v %v", outcomes, err)
	}
}
