package shutdown

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"abode/internal/pkg/logger"
)

func newTestLogger() *logger.Logger {
	var buf bytes.Buffer
	return logger.New(logger.Config{
		Level:  "debug",
		Format: "json",
		Output: &buf,
	})
}

func TestNewManager(t *testing.T) {
	log := newTestLogger()

	mgr := NewManager(log, 0)
	if mgr.timeout != 30*time.Second {
		t.Errorf("default timeout = %v, want 30s", mgr.timeout)
	}

	mgr = NewManager(log, 10*time.Second)
	if mgr.timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", mgr.timeout)
	}
}

func TestRegister(t *testing.T) {
	mgr := NewManager(newTestLogger(), 5*time.Second)

	mgr.Register("postgres", func(ctx context.Context) error { return nil })
	mgr.Register("redis", func(ctx context.Context) error { return nil })

	if len(mgr.handlers) != 2 {
		t.Fatalf("registered %d handlers, want 2", len(mgr.handlers))
	}
	if mgr.handlers[0].Name != "postgres" || mgr.handlers[1].Name != "redis" {
		t.Errorf("handler names = %s, %s", mgr.handlers[0].Name, mgr.handlers[1].Name)
	}
}

func TestRegisterSimple(t *testing.T) {
	mgr := NewManager(newTestLogger(), 5*time.Second)

	var called atomic.Bool
	mgr.RegisterSimple("queue", func() {
		called.Store(true)
	})

	mgr.Shutdown()

	if !called.Load() {
		t.Error("simple handler was not called")
	}
}

func TestShutdownRunsAllHandlers(t *testing.T) {
	mgr := NewManager(newTestLogger(), 5*time.Second)

	var ran atomic.Int32
	for _, name := range []string{"http-server", "worker", "postgres"} {
		mgr.Register(name, func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
	}

	mgr.Shutdown()

	if ran.Load() != 3 {
		t.Errorf("ran %d handlers, want 3", ran.Load())
	}
}

func TestShutdownHandlerError(t *testing.T) {
	mgr := NewManager(newTestLogger(), 5*time.Second)

	var after atomic.Bool
	mgr.Register("healthy", func(ctx context.Context) error {
		after.Store(true)
		return nil
	})
	mgr.Register("broken", func(ctx context.Context) error {
		return errors.New("connection already closed")
	})

	mgr.Shutdown()

	if !after.Load() {
		t.Error("handler after the failing one did not run")
	}
}

func TestDone(t *testing.T) {
	mgr := NewManager(newTestLogger(), 5*time.Second)

	select {
	case <-mgr.Done():
		t.Fatal("done channel closed before shutdown")
	default:
	}

	mgr.Shutdown()

	select {
	case <-mgr.Done():
	case <-time.After(time.Second):
		t.Error("done channel not closed after shutdown")
	}
}

func TestContext(t *testing.T) {
	mgr := NewManager(newTestLogger(), 5*time.Second)

	ctx := mgr.Context()
	select {
	case <-ctx.Done():
		t.Fatal("context canceled before shutdown")
	default:
	}

	mgr.Shutdown()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("context not canceled after shutdown")
	}
}

func TestShutdownTimeout(t *testing.T) {
	mgr := NewManager(newTestLogger(), 100*time.Millisecond)

	mgr.Register("stuck", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	mgr.Shutdown()

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("shutdown took %v, want under 500ms", elapsed)
	}
}
