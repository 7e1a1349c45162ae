//go:build unix

package frame

import "golang.org/x/sys/unix"

// HostBackingStore is an mmap'd anonymous arena standing in for
// physical memory when Bump/List run host-side — cmd/nexke's demo
// boot and this package's own tests — instead of against real
// hardware. Passing its Zero method as a Bump/List zero callback
// means allocated frames are backed by real, independently addressable
// pages rather than purely notional addresses, so a test can write
// through a frame and assert the next allocation actually observed
// zeroed bytes.
//
// golang.org/x/sys/unix is already a transitive dependency of this
// module's corpus (biscuit's go.mod pulls it in indirectly); nothing
// in the corpus imports it directly, so there is no call pattern to
// match here beyond the standard library's equivalent lack of a raw
// Mmap/Munmap wrapper — x/sys/unix is simply the idiomatic place to
// reach for them.
type HostBackingStore struct {
	mem []byte
}

// NewHostBackingStore mmaps size bytes of anonymous, zero-filled
// memory. size must be a multiple of PageSize.
func NewHostBackingStore(size int) (*HostBackingStore, error) {
	if size <= 0 || size%PageSize != 0 {
		panic("frame: HostBackingStore size must be a positive multiple of PageSize")
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return &HostBackingStore{mem: mem}, nil
}

// Zero clears the byte range [p, p+n) of the arena. It matches the
// zero func(Paddr, int) signature Bump/List invoke on every
// allocation; p is treated as a byte offset into the arena, not a
// real physical address, so a HostBackingStore is only meaningful
// when paired with an allocator whose range starts at offset 0.
func (h *HostBackingStore) Zero(p Paddr, n int) {
	off := int(p)
	clear(h.mem[off : off+n])
}

// At returns a slice view onto the arena at byte offset off, length
// n, so tests can assert a frame was actually zeroed or to write
// content a later allocation must observe cleared.
func (h *HostBackingStore) At(off, n int) []byte { return h.mem[off : off+n] }

// Len reports the arena's total size in bytes.
func (h *HostBackingStore) Len() int { return len(h.mem) }

// Close unmaps the arena. Safe to call once; a HostBackingStore must
// not be used afterward.
func (h *HostBackingStore) Close() error {
	return unix.Munmap(h.mem)
}
