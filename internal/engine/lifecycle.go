// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/cliplink/cliplink/internal/metrics"
)

// State describes the lifecycle of the shared engine instance.
type State int

const (
	// Unloaded means no initialisation has happened or the last attempt
	// failed.
	Unloaded State = iota
	// Loading means an initialisation is in flight.
	Loading
	// Ready means the engine is initialised and reusable.
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unloaded"
	}
}

// Handle is the process-wide engine handle returned by a successful Acquire.
// It is safe for concurrent use; each operation must address the transport
// with uniquely named resources.
type Handle struct {
	transport Transport
}

// Transport returns the engine's execution transport.
func (h *Handle) Transport() Transport { return h.transport }

// Loader owns the single shared engine instance. Initialisation runs at most
// once per successful lifetime; concurrent acquirers during Loading join the
// in-flight attempt and observe its outcome together. A failed attempt
// resets the state to Unloaded so a later Acquire can retry.
type Loader struct {
	transport Transport
	log       zerolog.Logger

	group singleflight.Group

	mu     sync.Mutex
	state  State
	handle *Handle
}

// NewLoader creates a loader for transport. The engine is not initialised
// until the first Acquire.
func NewLoader(transport Transport, logger zerolog.Logger) *Loader {
	return &Loader{
		transport: transport,
		log:       logger,
	}
}

// State reports the current lifecycle state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Acquire returns the shared engine handle, initialising the engine on first
// use. Callers that arrive while another initialisation is in flight block
// until it resolves and share its outcome. On failure every joined waiter
// receives the same InitError and the loader resets for retry.
//
// The in-flight load runs under the context of the caller that started it;
// cancelling that context fails the attempt for all joined waiters, which is
// the all-or-nothing outcome the lifecycle guarantees.
func (l *Loader) Acquire(ctx context.Context) (*Handle, error) {
	l.mu.Lock()
	if l.state == Ready {
		h := l.handle
		l.mu.Unlock()
		return h, nil
	}
	l.mu.Unlock()

	v, err, _ := l.group.Do("load", func() (any, error) {
		// A previous flight may have finished between the fast-path
		// check and joining the group.
		l.mu.Lock()
		if l.state == Ready {
			h := l.handle
			l.mu.Unlock()
			return h, nil
		}
		l.state = Loading
		l.mu.Unlock()

		l.log.Info().Msg("initialising engine")
		if err := l.transport.Load(ctx); err != nil {
			l.mu.Lock()
			l.state = Unloaded
			l.mu.Unlock()
			metrics.RecordEngineLoad(metrics.OutcomeError)
			l.log.Error().Err(err).Msg("engine initialisation failed")
			return nil, &InitError{Err: err}
		}

		h := &Handle{transport: l.transport}
		l.mu.Lock()
		l.state = Ready
		l.handle = h
		l.mu.Unlock()
		metrics.RecordEngineLoad(metrics.OutcomeOK)
		l.log.Info().Msg("engine ready")
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}
