package transformtest

import (
	"testing"

	"github.com/chrisalex1117/zgstreamer/runtime/pipeline/transform"
)

// MustNew creates a harness or fails the test. The harness is closed when
// the test ends unless the test closed it already.
func MustNew(tb testing.TB, stageCfg *transform.Config, opts ...Option) *Harness {
	tb.Helper()
	h, err := New(stageCfg, opts...)
	if err != nil {
		tb.Fatalf("transformtest: create harness: %v", err)
	}
	tb.Cleanup(func() {
		if h.State() != StateTornDown {
			if err := h.Close(); err != nil {
				tb.Errorf("transformtest: close harness: %v", err)
			}
		}
	})
	return h
}
