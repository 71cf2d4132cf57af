package payments

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutorDedupesPendingJobs(t *testing.T) {
	ctx := context.Background()
	e := NewExecutor(2, 8)

	job := Job{UserID: "u1", OrderID: "po1"}
	added, err := e.Enqueue(ctx, job)
	if err != nil || !added {
		t.Fatalf("first enqueue = %v, %v", added, err)
	}
	added, err = e.Enqueue(ctx, job)
	if err != nil || added {
		t.Fatalf("duplicate enqueue = %v, %v; want not added", added, err)
	}
	if _, err := e.Enqueue(ctx, Job{UserID: "u1", OrderID: "po2"}); err != nil {
		t.Fatal(err)
	}

	var handled atomic.Int64
	if err := e.Start(ctx, func(context.Context, Job) { handled.Add(1) }); err != nil {
		t.Fatal(err)
	}
	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := e.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
	if n := handled.Load(); n != 2 {
		t.Errorf("handled = %d, want 2", n)
	}
}

func TestExecutorClosed(t *testing.T) {
	e := NewExecutor(1, 1)
	if err := e.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := e.Stop(context.Background()); err != nil {
		t.Errorf("second Stop = %v, want nil", err)
	}
	if _, err := e.Enqueue(context.Background(), Job{OrderID: "x"}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("enqueue after stop = %v, want ErrQueueClosed", err)
	}
	if err := e.Start(context.Background(), func(context.Context, Job) {}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("start after stop = %v, want ErrQueueClosed", err)
	}
	if e.Running() {
		t.Error("stopped executor reports running")
	}
}

func TestExecutorRequeuesAfterCompletion(t *testing.T) {
	ctx := context.Background()
	e := NewExecutor(1, 4)
	done := make(chan struct{}, 2)
	if err := e.Start(ctx, func(context.Context, Job) { done <- struct{}{} }); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = e.Stop(ctx) }()

	job := Job{UserID: "u1", OrderID: "po1"}
	for i := range 2 {
		if _, err := e.Enqueue(ctx, job); err != nil {
			t.Fatal(err)
		}
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("job %d never ran", i)
		}
		// The pending mark is cleared right after the handler returns.
		deadline := time.Now().Add(5 * time.Second)
		for {
			e.mu.Lock()
			_, busy := e.pending[job]
			e.mu.Unlock()
			if !busy || time.Now().After(deadline) {
				break
			}
			time.Sleep(time.Millisecond)
		}
	}
}
