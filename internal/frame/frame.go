// Package frame is the frame-allocator collaborator (C1): it hands out
// and reclaims page-sized physical frames. Two implementations are
// provided. Bump is the early-boot allocator that hands frames out of
// a firmware-reported free range and never reclaims (grounded in the
// design note about the source's NbFwAllocPage, which "has no free
// path"; spec §9 directs us to preserve that behavior rather than
// invent a free path for it). List is the post-hand-off allocator, an
// intrusive free list of page descriptors with reference counts,
// grounded in biscuit's mem.Physmem_t / Physpg_t (per-page refcount,
// free-list-by-index) and mazarin's page.go (Page struct with
// next/prev intrusive links, zero-on-alloc).
package frame

import (
	"sync"

	"nexke/pkg/archparam"
)

// PageSize is the frame granularity. All addresses handed out are
// aligned to this value.
const PageSize = 4096

// Paddr is an opaque physical address, always a multiple of PageSize.
// Zero is the sentinel for "no frame" (out-of-memory), matching spec
// §7's "propagated via a sentinel null/0" policy. It is the same type
// archparam.Frame uses for PTE frame fields and internal/ptc/internal/mul
// use for table addresses, so a frame handed out here can be passed
// directly into the MUL/PTC without conversion — mirroring biscuit's
// single shared mem.Pa_t type used across its mem/vm packages.
type Paddr = archparam.Frame

// Allocator is the contract the rest of the kernel (principally MUL
// and PTC) consumes. All returned pages are zero-filled.
type Allocator interface {
	// AllocPage returns one zeroed frame, or 0 on exhaustion.
	AllocPage() Paddr
	// AllocPages returns n contiguous zeroed frames as a base address,
	// or 0 if no run of n contiguous frames is free.
	AllocPages(n int) Paddr
	// AllocPersistentPage allocates a frame that the allocator will
	// never reclaim or reuse for demand paging purposes (kernel
	// structures that must survive address-space teardown of any one
	// consumer). Implementations may simply delegate to AllocPage when
	// they do not distinguish lifetimes.
	AllocPersistentPage() Paddr
	// FreePage returns a frame previously obtained from this
	// allocator. Freeing a frame not owned by the allocator, or
	// double-freeing, is a programmer error (spec §7) and panics.
	FreePage(p Paddr)
}

// Bump is a monotonically-increasing allocator over a single
// contiguous range, suitable for early boot before the kernel has
// taken over memory management. It has no free path by design — see
// the package doc and DESIGN.md.
type Bump struct {
	mu   sync.Mutex
	next Paddr
	end  Paddr
	zero func(Paddr, int)
}

// NewBump creates a Bump allocator over [base, base+size). zero is
// invoked to clear each handed-out range; pass nil to skip zeroing
// (e.g. in host-side tests that don't model physical memory content).
func NewBump(base Paddr, size uint64, zero func(Paddr, int)) *Bump {
	if base%PageSize != 0 {
		panic("frame: bump base not page aligned")
	}
	return &Bump{next: base, end: base + Paddr(size), zero: zero}
}

func (b *Bump) alloc(n int) Paddr {
	b.mu.Lock()
	defer b.mu.Unlock()
	need := Paddr(n) * PageSize
	if b.next+need > b.end || need == 0 {
		return 0
	}
	p := b.next
	b.next += need
	if b.zero != nil {
		b.zero(p, n*PageSize)
	}
	return p
}

func (b *Bump) AllocPage() Paddr           { return b.alloc(1) }
func (b *Bump) AllocPages(n int) Paddr     { return b.alloc(n) }
func (b *Bump) AllocPersistentPage() Paddr { return b.alloc(1) }

// FreePage is a no-op: the bump allocator reclaims nothing itself.
// Early-boot pages are only reclaimed via the BOOT_RECLAIM memory-map
// region once the kernel has copied what it needs out of them — see
// ReclaimBootRegion.
func (b *Bump) FreePage(Paddr) {}

// Remaining reports the number of whole frames left in the bump range.
func (b *Bump) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int((b.end - b.next) / PageSize)
}

// page is the intrusive free-list node, one per physical frame,
// grounded in mazarin's Page struct and biscuit's Physpg_t.
type page struct {
	refcnt int32
	next   *page
	prev   *page
	onFree bool
	slot   int // index into List.pages, fixed at construction
}

// List is the post-hand-off allocator: a refcounted intrusive free
// list over a fixed frame range. Frames start at refcnt 0 and free;
// AllocPage pulls the head of the free list and sets refcnt to 1.
// Shared mappings bump the refcount via Retain; FreePage decrements
// and only returns the frame to the free list when the count reaches
// zero, so that a frame referenced by more than one mapping survives
// until the last reference drops.
type List struct {
	mu       sync.Mutex
	base     Paddr
	pages    []page
	freeHead *page
	freeLen  int
	zero     func(Paddr, int)
}

// NewList creates a List allocator managing the frame range
// [base, base+size). zero clears frames on allocation; pass nil in
// tests that don't model memory content.
func NewList(base Paddr, size uint64, zero func(Paddr, int)) *List {
	if base%PageSize != 0 {
		panic("frame: list base not page aligned")
	}
	n := size / PageSize
	l := &List{base: base, pages: make([]page, n), zero: zero}
	var prev *page
	for i := range l.pages {
		p := &l.pages[i]
		p.onFree = true
		p.slot = i
		p.prev = prev
		if prev != nil {
			prev.next = p
		} else {
			l.freeHead = p
		}
		prev = p
	}
	l.freeLen = int(n)
	return l
}

func (l *List) addrOf(i int) Paddr { return l.base + Paddr(i)*PageSize }

func (l *List) pageAt(p Paddr) *page {
	if p < l.base {
		return nil
	}
	i := (p - l.base) / PageSize
	if int(i) >= len(l.pages) {
		return nil
	}
	return &l.pages[i]
}

func (l *List) popFree() *page {
	p := l.freeHead
	if p == nil {
		return nil
	}
	l.freeHead = p.next
	if l.freeHead != nil {
		l.freeHead.prev = nil
	}
	p.next, p.prev = nil, nil
	p.onFree = false
	l.freeLen--
	return p
}

func (l *List) pushFree(p *page) {
	p.next = l.freeHead
	p.prev = nil
	if l.freeHead != nil {
		l.freeHead.prev = p
	}
	l.freeHead = p
	p.onFree = true
	l.freeLen++
}

func (l *List) AllocPage() Paddr {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.popFree()
	if p == nil {
		return 0
	}
	p.refcnt = 1
	addr := l.addrOf(p.slot)
	if l.zero != nil {
		l.zero(addr, PageSize)
	}
	return addr
}

func (l *List) AllocPages(n int) Paddr {
	if n <= 0 {
		return 0
	}
	if n == 1 {
		return l.AllocPage()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	// Contiguous runs are found by scanning page metadata, not the
	// free list (the free list is not ordered by address). This is
	// O(len(pages)) but AllocPages(n>1) is a rare path (large PTC or
	// multi-page table bootstrap allocations), matching the teacher's
	// own "simple append to head" tradeoff of clarity over asymptotic
	// optimality in page.go.
	run := 0
	for i := 0; i < len(l.pages); i++ {
		if l.pages[i].onFree {
			run++
			if run == n {
				start := i - n + 1
				for j := start; j <= i; j++ {
					l.removeFree(&l.pages[j])
					l.pages[j].refcnt = 1
				}
				addr := l.addrOf(start)
				if l.zero != nil {
					l.zero(addr, n*PageSize)
				}
				return addr
			}
		} else {
			run = 0
		}
	}
	return 0
}

func (l *List) removeFree(p *page) {
	if p.prev != nil {
		p.prev.next = p.next
	} else {
		l.freeHead = p.next
	}
	if p.next != nil {
		p.next.prev = p.prev
	}
	p.next, p.prev = nil, nil
	p.onFree = false
	l.freeLen--
}

func (l *List) AllocPersistentPage() Paddr { return l.AllocPage() }

// Retain increments a frame's reference count, used when a second
// mapping comes to reference an already-mapped frame (e.g. copy-on-
// write setup, shared page-table pages reached through PTC).
func (l *List) Retain(p Paddr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pg := l.pageAt(p)
	if pg == nil || pg.onFree {
		panic("frame: Retain of unowned or free page")
	}
	pg.refcnt++
}

func (l *List) FreePage(p Paddr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pg := l.pageAt(p)
	if pg == nil {
		panic("frame: FreePage of address outside managed range")
	}
	if pg.onFree || pg.refcnt <= 0 {
		panic("frame: double free")
	}
	pg.refcnt--
	if pg.refcnt == 0 {
		l.pushFree(pg)
	}
}

// FreeCount reports the number of frames currently on the free list.
func (l *List) FreeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.freeLen
}

// ReclaimBootRegion hands a firmware-reported BOOT_RECLAIM memory-map
// region (see internal/handoff) over to a List allocator after the
// kernel has finished copying anything it needed out of it. This is
// the only reclaim path early-boot pages get: the Bump allocator they
// were handed out of never frees them itself (spec §9's "preserve
// existing behavior" for NbFwAllocPage). base/size must be page
// aligned and must lie entirely within dst's managed range.
func ReclaimBootRegion(dst *List, base Paddr, size uint64) {
	if base%PageSize != 0 || size%PageSize != 0 {
		panic("frame: ReclaimBootRegion region not page aligned")
	}
	n := int(size / PageSize)
	dst.mu.Lock()
	defer dst.mu.Unlock()
	for i := 0; i < n; i++ {
		pg := dst.pageAt(base + Paddr(i)*PageSize)
		if pg == nil {
			panic("frame: ReclaimBootRegion region outside managed range")
		}
		if !pg.onFree {
			dst.pushFree(pg)
		}
	}
}
