// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() zerolog.Logger { return zerolog.Nop() }

// gateTransport counts Load calls and can hold them open or fail them on
// demand.
type gateTransport struct {
	loadCalls atomic.Int64
	release   chan struct{}

	mu      sync.Mutex
	loadErr error
}

func newGateTransport() *gateTransport {
	return &gateTransport{}
}

func (t *gateTransport) failNextLoads(err error) {
	t.mu.Lock()
	t.loadErr = err
	t.mu.Unlock()
}

func (t *gateTransport) Load(ctx context.Context) error {
	t.loadCalls.Add(1)
	if t.release != nil {
		<-t.release
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadErr
}

func (t *gateTransport) WriteInput(ctx context.Context, name string, data []byte) error {
	return nil
}
func (t *gateTransport) Execute(ctx context.Context, args []string) error { return nil }
func (t *gateTransport) ReadOutput(ctx context.Context, name string) ([]byte, error) {
	return nil, nil
}
func (t *gateTransport) Remove(ctx context.Context, name string) error { return nil }

func TestLoaderAcquireOnce(t *testing.T) {
	transport := newGateTransport()
	loader := NewLoader(transport, testLogger())

	h1, err := loader.Acquire(context.Background())
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	h2, err := loader.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	if h1 != h2 {
		t.Error("expected the same handle across acquires")
	}
	if n := transport.loadCalls.Load(); n != 1 {
		t.Errorf("expected 1 load, got %d", n)
	}
	if loader.State() != Ready {
		t.Errorf("expected Ready, got %v", loader.State())
	}
}

func TestLoaderConcurrentAcquireSingleLoad(t *testing.T) {
	transport := newGateTransport()
	transport.release = make(chan struct{})
	loader := NewLoader(transport, testLogger())

	const waiters = 50
	var wg sync.WaitGroup
	handles := make([]*Handle, waiters)
	errs := make([]error, waiters)

	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = loader.Acquire(context.Background())
		}(i)
	}

	// Let the waiters pile up behind the in-flight load, then release it.
	close(transport.release)
	wg.Wait()

	for i := 0; i < waiters; i++ {
		if errs[i] != nil {
			t.Fatalf("waiter %d: %v", i, errs[i])
		}
		if handles[i] != handles[0] {
			t.Fatalf("waiter %d received a different handle", i)
		}
	}
	if n := transport.loadCalls.Load(); n != 1 {
		t.Errorf("expected exactly 1 load, got %d", n)
	}
}

func TestLoaderFailurePropagatesAndResets(t *testing.T) {
	transport := newGateTransport()
	boom := errors.New("artifact fetch failed")
	transport.failNextLoads(boom)
	loader := NewLoader(transport, testLogger())

	const waiters = 10
	var wg sync.WaitGroup
	errs := make([]error, waiters)

	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = loader.Acquire(context.Background())
		}(i)
	}
	wg.Wait()

	var initErr *InitError
	for i, err := range errs {
		if err == nil {
			// singleflight may have run more than one flight as
			// goroutines arrive after a finished attempt; every
			// failed attempt must still carry the InitError.
			t.Fatalf("waiter %d: expected error, got nil", i)
		}
		if !errors.As(err, &initErr) {
			t.Fatalf("waiter %d: expected InitError, got %v", i, err)
		}
		if !errors.Is(err, boom) {
			t.Fatalf("waiter %d: expected wrapped cause, got %v", i, err)
		}
	}

	if loader.State() != Unloaded {
		t.Fatalf("expected Unloaded after failure, got %v", loader.State())
	}

	// A later acquire retries and succeeds.
	transport.failNextLoads(nil)
	if _, err := loader.Acquire(context.Background()); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if loader.State() != Ready {
		t.Fatalf("expected Ready after retry, got %v", loader.State())
	}
}
