package utils

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const shutdownTimeout = 15 * time.Second

// ShutdownManager cancels the base context on SIGINT/SIGTERM and then drains
// the registered cleanup tasks in registration order. Tasks that fail do not
// stop the drain; their errors are aggregated so the process can exit non-zero
// when a resource did not close cleanly.
type ShutdownManager struct {
	cancelFunc    context.CancelFunc
	shutdownTasks []func(context.Context) error
	mu            sync.Mutex
}

func NewShutdownManager(ctx context.Context) (context.Context, *ShutdownManager) {
	ctx, cancel := context.WithCancel(ctx)
	manager := &ShutdownManager{
		cancelFunc: cancel,
	}
	return ctx, manager
}

func (sm *ShutdownManager) Register(task func(context.Context) error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.shutdownTasks = append(sm.shutdownTasks, task)
}

// Shutdown cancels the base context and runs every registered task, returning
// the joined errors of all tasks that failed.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	sm.cancelFunc()

	sm.mu.Lock()
	defer sm.mu.Unlock()

	var errs []error
	for _, task := range sm.shutdownTasks {
		if err := task(ctx); err != nil {
			log.Printf("[SHUTDOWN] Error during shutdown: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (sm *ShutdownManager) StartListening() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("[SHUTDOWN] Received signal: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := sm.Shutdown(ctx); err != nil {
			log.Printf("[SHUTDOWN] Shutdown finished with errors: %v", err)
			os.Exit(1)
		}

		log.Println("[SHUTDOWN] Graceful shutdown complete")
		os.Exit(0)
	}()
}
