package utils

import (
	"context"
	"errors"
	"testing"
)

func TestShutdownRunsAllTasksInOrder(t *testing.T) {
	ctx, sm := NewShutdownManager(context.Background())

	var order []int
	sm.Register(func(ctx context.Context) error {
		order = append(order, 1)
		return nil
	})
	sm.Register(func(ctx context.Context) error {
		order = append(order, 2)
		return nil
	})

	if err := sm.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("tasks ran in order %v, want [1 2]", order)
	}
	select {
	case <-ctx.Done():
	default:
		t.Error("base context not cancelled after Shutdown")
	}
}

func TestShutdownAggregatesTaskErrors(t *testing.T) {
	_, sm := NewShutdownManager(context.Background())

	errMongo := errors.New("mongo close failed")
	errRedis := errors.New("redis close failed")
	ran := 0
	sm.Register(func(ctx context.Context) error { ran++; return errMongo })
	sm.Register(func(ctx context.Context) error { ran++; return nil })
	sm.Register(func(ctx context.Context) error { ran++; return errRedis })

	err := sm.Shutdown(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error, got nil")
	}
	if ran != 3 {
		t.Errorf("ran %d tasks, want 3; a failing task must not stop the drain", ran)
	}
	if !errors.Is(err, errMongo) || !errors.Is(err, errRedis) {
		t.Errorf("aggregated error %v missing a task error", err)
	}
}
