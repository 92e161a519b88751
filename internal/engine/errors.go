// SPDX-License-Identifier: MIT

package engine

import "fmt"

// InitError is returned when the engine could not be brought into the Ready
// state. The loader resets to Unloaded afterwards, so a later Acquire may
// retry the initialisation.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("engine init: %v", e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// ExecError is returned when the engine ran but the execution itself failed
// (non-zero exit, runtime fault). Scoped resources are still released by the
// caller on this path.
type ExecError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("engine exec failed (exit %d): %v: %s", e.ExitCode, e.Err, e.Stderr)
	}
	return fmt.Sprintf("engine exec failed (exit %d): %v", e.ExitCode, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }
