// SPDX-License-Identifier: MIT

// Package enginetest provides an in-process engine runtime for tests. It
// understands the cut argument vector the trim policies build and
// synthesises output whose length encodes the requested clip duration.
package enginetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"github.com/cliplink/cliplink/internal/engine"
)

// BytesPerSecond is the synthetic "bitrate" of CutRuntime output.
const BytesPerSecond = 10

// CutRuntime is an in-process engine.Runtime double. It parses -i/-ss/-to
// from the argument vector and writes an output resource of
// BytesPerSecond*(end-start) bytes, so tests can assert on clip duration
// without a real encoder.
type CutRuntime struct {
	LoadCalls atomic.Int64
	ExecCalls atomic.Int64

	LoadErr error // returned from Load when set
	ExecErr error // returned from Execute when set
}

// Load counts the call and returns LoadErr.
func (r *CutRuntime) Load(ctx context.Context) error {
	r.LoadCalls.Add(1)
	return r.LoadErr
}

// Execute performs the synthetic cut.
func (r *CutRuntime) Execute(ctx context.Context, fs engine.FS, args []string) error {
	r.ExecCalls.Add(1)
	if r.ExecErr != nil {
		return r.ExecErr
	}

	var in, ss, to string
	for i := 0; i < len(args)-1; i++ {
		switch args[i] {
		case "-i":
			in = args[i+1]
		case "-ss":
			ss = args[i+1]
		case "-to":
			to = args[i+1]
		}
	}
	if in == "" || ss == "" || to == "" || len(args) == 0 {
		return fmt.Errorf("malformed cut args: %v", args)
	}
	out := args[len(args)-1]

	if _, ok := fs.Read(in); !ok {
		return errors.New("input resource not found")
	}

	start, err := strconv.ParseFloat(ss, 64)
	if err != nil {
		return fmt.Errorf("parse -ss: %w", err)
	}
	end, err := strconv.ParseFloat(to, 64)
	if err != nil {
		return fmt.Errorf("parse -to: %w", err)
	}
	if end <= start {
		return fmt.Errorf("empty clip range [%v, %v)", start, end)
	}

	n := int(math.Round((end - start) * BytesPerSecond))
	if n < 1 {
		n = 1
	}
	fs.Write(out, bytes.Repeat([]byte{'v'}, n))
	return nil
}

// DurationOf reports the clip duration encoded in a CutRuntime output blob.
func DurationOf(data []byte) float64 {
	return float64(len(data)) / BytesPerSecond
}
