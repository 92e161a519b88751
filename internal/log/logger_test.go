// SPDX-License-Identifier: MIT

package log

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestResolveLevel(t *testing.T) {
	t.Run("explicit level wins over env", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "warn")
		if got := resolveLevel("debug"); got != zerolog.DebugLevel {
			t.Errorf("level = %v, want debug", got)
		}
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "error")
		if got := resolveLevel(""); got != zerolog.ErrorLevel {
			t.Errorf("level = %v, want error", got)
		}
	})

	t.Run("unparseable falls through to env", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "warn")
		if got := resolveLevel("loud"); got != zerolog.WarnLevel {
			t.Errorf("level = %v, want warn", got)
		}
	})

	t.Run("default is info", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		if got := resolveLevel(""); got != zerolog.InfoLevel {
			t.Errorf("level = %v, want info", got)
		}
	})
}
