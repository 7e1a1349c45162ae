//go:build unix

package main

import (
	"io"

	"nexke/internal/frame"
)

// newHostZero backs the demo boot's frame allocators with a real
// mmap'd arena (internal/frame.HostBackingStore) instead of the
// notional nil zero callback the rest of this module's tests use, so
// the demo actually exercises zero-on-alloc against real memory.
// size must cover every address the caller's allocators can hand out.
func newHostZero(size int) (func(frame.Paddr, int), io.Closer) {
	store, err := frame.NewHostBackingStore(size)
	if err != nil {
		// Falling back to no zeroing keeps the demo boot sequence
		// running on a host where anonymous mmap is unexpectedly
		// unavailable (e.g. a restrictive sandbox); this is a demo
		// convenience, not a path any real allocator user relies on.
		return nil, io.NopCloser(nil)
	}
	return store.Zero, store
}
