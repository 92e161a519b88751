// SPDX-License-Identifier: MIT

// Package engine manages the shared media-processing engine: its execution
// transports (subprocess or in-process) and its once-per-process lifecycle.
package engine

import (
	"context"
	"errors"
	"strings"
)

// Transport is the execution boundary of the media engine. A transport
// addresses inputs and outputs by bare resource names inside its own
// namespace (a scratch directory for the subprocess transport, a virtual
// filesystem for the in-process one). Callers must use uniquely named
// resources per operation; the transport itself may serialise execution
// internally.
type Transport interface {
	// Load brings the engine into a usable state. Called once per process
	// lifetime by the Loader; must be safe to retry after a failure.
	Load(ctx context.Context) error
	// WriteInput materialises data under name in the transport namespace.
	WriteInput(ctx context.Context, name string, data []byte) error
	// Execute runs the engine with args. Resource names in args are
	// resolved inside the transport namespace.
	Execute(ctx context.Context, args []string) error
	// ReadOutput reads the resource produced under name.
	ReadOutput(ctx context.Context, name string) ([]byte, error)
	// Remove releases the named resource. Removing a name that does not
	// exist is not an error.
	Remove(ctx context.Context, name string) error
}

var errUnsafeName = errors.New("unsafe resource name")

// safeName rejects resource names that could escape the transport
// namespace.
func safeName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return errUnsafeName
	}
	return nil
}
