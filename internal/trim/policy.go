// SPDX-License-Identifier: MIT

package trim

import (
	"fmt"
	"strconv"
)

// Policy selects how cut points are honoured. Stream copy avoids a re-encode
// and is fast, but cuts land on the container's keyframe structure; re-encode
// is frame-accurate at added CPU cost.
type Policy string

const (
	// PolicyCopy remuxes without re-encoding (-c copy).
	PolicyCopy Policy = "copy"
	// PolicyReencode performs a full re-encode for frame-accurate cuts.
	PolicyReencode Policy = "reencode"
)

// Valid reports whether p names a known policy.
func (p Policy) Valid() bool {
	return p == PolicyCopy || p == PolicyReencode
}

// Args builds the engine argument vector cutting [start, end) seconds of in
// into out.
func (p Policy) Args(in, out string, start, end float64) ([]string, error) {
	s := strconv.FormatFloat(start, 'f', -1, 64)
	e := strconv.FormatFloat(end, 'f', -1, 64)

	switch p {
	case PolicyCopy:
		return []string{"-i", in, "-ss", s, "-to", e, "-c", "copy", out}, nil
	case PolicyReencode:
		return []string{
			"-i", in,
			"-ss", s, "-to", e,
			"-c:v", "libx264", "-preset", "veryfast",
			"-c:a", "aac",
			out,
		}, nil
	default:
		return nil, fmt.Errorf("unknown trim policy %q", string(p))
	}
}
