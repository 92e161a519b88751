// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"fmt"
	"sync"
)

// FS is the virtual filesystem an in-process Runtime reads inputs from and
// writes outputs to.
type FS interface {
	Read(name string) ([]byte, bool)
	Write(name string, data []byte)
}

// Runtime is an in-process media engine. Implementations execute the same
// argument vector the subprocess transport would pass on the command line,
// addressing resources through the supplied FS.
type Runtime interface {
	Load(ctx context.Context) error
	Execute(ctx context.Context, fs FS, args []string) error
}

// MemTransport adapts an in-process Runtime to the Transport contract using
// an in-memory virtual filesystem. It backs the embedded execution mode and
// the engine test doubles.
type MemTransport struct {
	runtime Runtime

	mu    sync.Mutex
	files map[string][]byte
}

// NewMemTransport creates an in-process transport over runtime.
func NewMemTransport(runtime Runtime) *MemTransport {
	return &MemTransport{
		runtime: runtime,
		files:   make(map[string][]byte),
	}
}

// Load initialises the runtime.
func (t *MemTransport) Load(ctx context.Context) error {
	return t.runtime.Load(ctx)
}

// WriteInput stores data under name in the virtual filesystem.
func (t *MemTransport) WriteInput(ctx context.Context, name string, data []byte) error {
	if err := safeName(name); err != nil {
		return err
	}
	t.Write(name, data)
	return nil
}

// Execute delegates to the runtime. Runtime failures are surfaced as
// ExecError so both transports share one error taxonomy.
func (t *MemTransport) Execute(ctx context.Context, args []string) error {
	if err := t.runtime.Execute(ctx, t, args); err != nil {
		return &ExecError{ExitCode: 1, Err: err}
	}
	return nil
}

// ReadOutput reads the resource produced under name.
func (t *MemTransport) ReadOutput(ctx context.Context, name string) ([]byte, error) {
	if err := safeName(name); err != nil {
		return nil, err
	}
	data, ok := t.Read(name)
	if !ok {
		return nil, fmt.Errorf("no such resource: %s", name)
	}
	return data, nil
}

// Remove releases the named resource.
func (t *MemTransport) Remove(ctx context.Context, name string) error {
	if err := safeName(name); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.files, name)
	return nil
}

// Names lists the resources currently held in the virtual filesystem.
// Used by tests to check for leaked scoped resources.
func (t *MemTransport) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.files))
	for name := range t.files {
		names = append(names, name)
	}
	return names
}

// Read implements FS.
func (t *MemTransport) Read(name string) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, ok := t.files[name]
	return data, ok
}

// Write implements FS.
func (t *MemTransport) Write(name string, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files[name] = data
}
