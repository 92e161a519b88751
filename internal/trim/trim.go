// SPDX-License-Identifier: MIT

// Package trim cuts a time range out of an encoded media blob using the
// shared engine.
package trim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cliplink/cliplink/internal/engine"
	"github.com/cliplink/cliplink/internal/log"
	"github.com/cliplink/cliplink/internal/media"
	"github.com/cliplink/cliplink/internal/metrics"
)

// ErrInvalidRange is returned when a trim range is malformed. Validation
// happens before any engine work begins; no scoped resources are allocated
// on this path.
var ErrInvalidRange = errors.New("invalid trim range")

// Request describes one trim operation over [Start, End) seconds of Source.
type Request struct {
	Source media.Blob
	Start  float64
	End    float64
}

// Validate checks the range invariants: finite, non-NaN, Start >= 0,
// Start < End.
func (r Request) Validate() error {
	for _, v := range []float64{r.Start, r.End} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: bounds must be finite", ErrInvalidRange)
		}
	}
	if r.Start < 0 {
		return fmt.Errorf("%w: start %v < 0", ErrInvalidRange, r.Start)
	}
	if r.Start >= r.End {
		return fmt.Errorf("%w: start %v >= end %v", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Trimmer performs trim operations through the engine loader. Concurrent
// trims share the engine handle; each call addresses the transport with its
// own uniquely named scratch resources.
type Trimmer struct {
	loader *engine.Loader
	policy Policy
	mime   string
	log    zerolog.Logger
}

// New creates a Trimmer. An invalid policy falls back to PolicyCopy; an
// empty mime falls back to the pipeline default.
func New(loader *engine.Loader, policy Policy, mime string) *Trimmer {
	if !policy.Valid() {
		policy = PolicyCopy
	}
	if mime == "" {
		mime = media.DefaultMIME
	}
	return &Trimmer{
		loader: loader,
		policy: policy,
		mime:   mime,
		log:    log.WithComponent("trim"),
	}
}

// Trim cuts [req.Start, req.End) seconds out of req.Source and returns the
// result as a new blob. Scoped resources are released on every exit path.
func (t *Trimmer) Trim(ctx context.Context, req Request) (media.Blob, error) {
	if err := req.Validate(); err != nil {
		return media.Blob{}, err
	}

	handle, err := t.loader.Acquire(ctx)
	if err != nil {
		return media.Blob{}, err
	}

	started := time.Now()
	out, err := t.run(ctx, handle.Transport(), req)
	if err != nil {
		metrics.RecordTrim(metrics.OutcomeError, time.Since(started))
		return media.Blob{}, err
	}
	metrics.RecordTrim(metrics.OutcomeOK, time.Since(started))

	t.log.Debug().
		Float64("start", req.Start).
		Float64("end", req.End).
		Int("in_bytes", req.Source.Len()).
		Int("out_bytes", out.Len()).
		Dur("took", time.Since(started)).
		Msg("trim complete")
	return out, nil
}

func (t *Trimmer) run(ctx context.Context, transport engine.Transport, req Request) (media.Blob, error) {
	id := uuid.NewString()
	inName := "in-" + id + ".webm"
	outName := "out-" + id + ".webm"

	// Release scratch resources on every exit path. Cleanup must still run
	// when ctx was cancelled mid-execution.
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if err := transport.Remove(cleanupCtx, inName); err != nil {
			t.log.Warn().Err(err).Str("name", inName).Msg("release input resource")
		}
		if err := transport.Remove(cleanupCtx, outName); err != nil {
			t.log.Warn().Err(err).Str("name", outName).Msg("release output resource")
		}
	}()

	if err := transport.WriteInput(ctx, inName, req.Source.Bytes()); err != nil {
		return media.Blob{}, fmt.Errorf("materialise input: %w", err)
	}

	args, err := t.policy.Args(inName, outName, req.Start, req.End)
	if err != nil {
		return media.Blob{}, err
	}

	if err := transport.Execute(ctx, args); err != nil {
		return media.Blob{}, err
	}

	data, err := transport.ReadOutput(ctx, outName)
	if err != nil {
		return media.Blob{}, fmt.Errorf("read trim output: %w", err)
	}
	return media.NewBlob(data, t.mime), nil
}
