//go:build !unix

package main

import (
	"io"

	"nexke/internal/frame"
)

// newHostZero has no mmap-backed arena to offer outside unix hosts;
// callers fall back to the notional nil zero callback.
func newHostZero(int) (func(frame.Paddr, int), io.Closer) {
	return nil, io.NopCloser(nil)
}
