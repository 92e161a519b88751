// SPDX-License-Identifier: MIT

package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// ExecTransport invokes the engine binary (ffmpeg) as a subprocess. Resource
// names resolve inside a scratch directory; the command runs with that
// directory as its working directory so bare names in args address the same
// namespace.
type ExecTransport struct {
	bin     string
	scratch string
	log     zerolog.Logger
}

// NewExecTransport creates a subprocess transport for the given binary and
// scratch directory.
func NewExecTransport(bin, scratch string, logger zerolog.Logger) *ExecTransport {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &ExecTransport{bin: bin, scratch: scratch, log: logger}
}

// Load verifies the binary is present and runnable and prepares the scratch
// directory.
func (t *ExecTransport) Load(ctx context.Context) error {
	path, err := exec.LookPath(t.bin)
	if err != nil {
		return fmt.Errorf("locate engine binary %q: %w", t.bin, err)
	}

	if err := os.MkdirAll(t.scratch, 0o750); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}

	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("probe engine binary %q: %w", path, err)
	}

	version := string(out)
	if i := strings.IndexByte(version, '\n'); i >= 0 {
		version = version[:i]
	}
	t.log.Info().Str("bin", path).Str("version", version).Msg("engine binary ready")
	return nil
}

// WriteInput writes data to name inside the scratch directory.
func (t *ExecTransport) WriteInput(ctx context.Context, name string, data []byte) error {
	if err := safeName(name); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(t.scratch, name), data, 0o600)
}

// Execute runs the engine binary with args. Stderr is captured and attached
// to the returned ExecError on failure.
func (t *ExecTransport) Execute(ctx context.Context, args []string) error {
	fullArgs := append([]string{"-nostdin", "-hide_banner", "-y"}, args...)
	cmd := exec.CommandContext(ctx, t.bin, fullArgs...)
	cmd.Dir = t.scratch

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if cmd.ProcessState != nil {
			exitCode = cmd.ProcessState.ExitCode()
		}
		return &ExecError{
			ExitCode: exitCode,
			Stderr:   stderrTail(stderr.String(), 512),
			Err:      err,
		}
	}
	return nil
}

// ReadOutput reads the named resource from the scratch directory.
func (t *ExecTransport) ReadOutput(ctx context.Context, name string) ([]byte, error) {
	if err := safeName(name); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(t.scratch, name))
}

// Remove deletes the named resource. Missing resources are ignored.
func (t *ExecTransport) Remove(ctx context.Context, name string) error {
	if err := safeName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(t.scratch, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// stderrTail keeps the last max bytes of s for error reporting.
func stderrTail(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
