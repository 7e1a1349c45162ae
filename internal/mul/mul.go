// Package mul is the Memory Unit Layer (C5): a portable radix
// page-table walker generic over N_levels ∈ {2,3,4,5}, parameterised
// by an archparam.Layout. It implements map/unmap/change/get/map_early
// exactly per spec §4.2, borrowing internal/ptc slots to read and
// write arbitrary physical table pages and internal/frame to allocate
// new interior/leaf frames on demand.
//
// Grounded in the teacher's mmu.go (page-table walk/map logic for its
// one real target) and biscuit's mem.go (Physmem_t._pmcount's
// recursive per-level walk over a pml4 tree, "recurse with lev-1 until
// lev reaches 0") — generalised here to an arbitrary level count
// driven by archparam.Layout instead of mmu.go's one hard-coded
// regime or mem.go's fixed four-level assumption.
package mul

import (
	"errors"
	"sync"

	"nexke/internal/frame"
	"nexke/internal/ptc"
	"nexke/pkg/archparam"
)

// ErrOom is returned when a new interior table frame cannot be
// allocated (by Map or MapEarly), or when Map cannot borrow a PTC
// slot. Per spec §7, MUL is one of the two subsystems (with
// wait/sync) that propagates an explicit error instead of panicking.
var ErrOom = errors.New("mul: out of memory")

// AddressSpace is one page-table tree: spec §4.2's `space`. TopLevel
// is the physical frame of the top-level table. Generation exists so
// callers (e.g. a future TLB-shootdown collaborator) can detect that a
// space has been mutated since a cached view was taken; MUL itself
// only increments it, never reads it.
type AddressSpace struct {
	mu         sync.Mutex // the walk lock: spec §4.2 "must hold that space's walk lock"
	TopLevel   archparam.Frame
	Generation uint64

	// TLBUpdatePending mirrors spec §4.2's "on platforms with lazy TLB,
	// set tlb_update_pending" — MUL sets it on every mutating op; a
	// platform-specific consumer (not implemented here, out of scope
	// per spec §1's device/firmware boundary) is responsible for
	// clearing it once it has actually flushed.
	TLBUpdatePending bool
}

// NewAddressSpace creates a space whose top-level table is the given
// freshly-zeroed frame (the caller is expected to have obtained it
// from a frame.Allocator).
func NewAddressSpace(topLevel archparam.Frame) *AddressSpace {
	return &AddressSpace{TopLevel: topLevel}
}

// MUL ties together the pieces every walk needs: the arch layout, the
// PTC it borrows slots from, and the frame allocator it pulls new
// table/leaf pages from.
type MUL struct {
	Layout archparam.Layout
	Cache  *ptc.Cache
	Frames frame.Allocator
}

// New constructs a MUL over the given layout/cache/allocator triple.
func New(layout archparam.Layout, cache *ptc.Cache, frames frame.Allocator) *MUL {
	return &MUL{Layout: layout, Cache: cache, Frames: frames}
}

// Map is spec §4.2's `map`: walk from the top level down to the leaf,
// allocating interior tables on demand, and write a leaf PTE
// translating vaddr to paddr with flags. Entries already written by a
// previous failed attempt are left in place and reused — the walk is
// idempotent at levels >= 2, exactly as spec §4.2 requires, so a
// caller may simply retry Map after reclaiming memory.
func (m *MUL) Map(space *AddressSpace, vaddr uint64, paddr archparam.Frame, flags archparam.Flags) error {
	space.mu.Lock()
	defer space.mu.Unlock()

	vaddr = m.Layout.Canonicalise(vaddr)
	n := m.Layout.NLevels()
	cur := space.TopLevel

	for level := n; level >= 2; level-- {
		slot, err := m.Cache.Get(cur, level)
		if err != nil {
			return ErrOom
		}
		idx := archparam.Index(m.Layout, vaddr, level)
		tbl := slot.Table(m.Cache)
		pte := tbl.Get(idx)
		if !m.Layout.Present(pte) {
			next := m.Frames.AllocPage()
			if next == 0 {
				m.Cache.Return(slot)
				return ErrOom
			}
			pte = m.Layout.EncodeInterior(next, interiorFlags(flags))
			tbl.Set(idx, pte)
			cur = next
		} else {
			cur = m.Layout.FrameOf(pte)
		}
		m.Cache.Return(slot)
	}

	slot, err := m.Cache.Get(cur, 1)
	if err != nil {
		return ErrOom
	}
	idx := archparam.Index(m.Layout, vaddr, 1)
	tbl := slot.Table(m.Cache)
	tbl.Set(idx, m.Layout.EncodeLeaf(paddr, flags))
	m.Cache.Return(slot)

	space.Generation++
	space.TLBUpdatePending = true
	return nil
}

// interiorFlags narrows the arch-neutral superset down to the subset
// meaningful on an interior entry: an interior PTE must stay writable
// and user-accessible if *any* leaf beneath it might need those
// rights, since the leaf PTE is what ultimately restricts access.
func interiorFlags(leaf archparam.Flags) archparam.Flags {
	f := archparam.R | archparam.W
	if leaf&archparam.User != 0 {
		f |= archparam.User
	}
	return f
}

// walkToLeaf performs the non-allocating walk shared by Unmap/Get/
// Change: descend from the top level, stopping with ok=false the
// moment an interior entry is absent (spec §4.2: "missing interior
// entries short-circuit with absent"). On success it returns the
// physical frame of the level-1 table and the leaf index within it.
func (m *MUL) walkToLeaf(space *AddressSpace, vaddr uint64) (leafTable archparam.Frame, leafIdx int, ok bool) {
	vaddr = m.Layout.Canonicalise(vaddr)
	n := m.Layout.NLevels()
	cur := space.TopLevel

	for level := n; level >= 2; level-- {
		slot, err := m.Cache.Get(cur, level)
		if err != nil {
			return 0, 0, false
		}
		idx := archparam.Index(m.Layout, vaddr, level)
		pte := slot.Table(m.Cache).Get(idx)
		m.Cache.Return(slot)
		if !m.Layout.Present(pte) {
			return 0, 0, false
		}
		cur = m.Layout.FrameOf(pte)
	}
	return cur, archparam.Index(m.Layout, vaddr, 1), true
}

// Unmap is spec §4.2's `unmap`: a no-op if vaddr is absent anywhere
// along the walk, otherwise clears the leaf PTE.
func (m *MUL) Unmap(space *AddressSpace, vaddr uint64) {
	space.mu.Lock()
	defer space.mu.Unlock()

	leafTable, idx, ok := m.walkToLeaf(space, vaddr)
	if !ok {
		return
	}
	slot, err := m.Cache.Get(leafTable, 1)
	if err != nil {
		// Transient PTC exhaustion on an unmap is not modeled as a
		// failure path by spec §4.2 (unmap has no documented error);
		// retry immediately since Get only fails here if slotCount==0,
		// which New forbids.
		slot, err = m.Cache.Get(leafTable, 1)
		if err != nil {
			return
		}
	}
	tbl := slot.Table(m.Cache)
	if tbl.Get(idx) == 0 {
		m.Cache.Return(slot)
		return
	}
	tbl.Set(idx, 0)
	m.Cache.Return(slot)

	space.Generation++
	space.TLBUpdatePending = true
}

// Get is spec §4.2's `get`: returns the raw leaf PTE and whether one
// is present. Callers needing decoded flags use archparam.Layout's own
// FlagsOf/FrameOf on the returned PTE.
func (m *MUL) Get(space *AddressSpace, vaddr uint64) (pte archparam.PTE, present bool) {
	space.mu.Lock()
	defer space.mu.Unlock()

	leafTable, idx, ok := m.walkToLeaf(space, vaddr)
	if !ok {
		return 0, false
	}
	slot, err := m.Cache.Get(leafTable, 1)
	if err != nil {
		return 0, false
	}
	defer m.Cache.Return(slot)
	p := slot.Table(m.Cache).Get(idx)
	return p, m.Layout.Present(p)
}

// Change is spec §4.2's `change`: rewrites an existing leaf's flags in
// place, preserving its translated frame. A no-op if vaddr is absent.
func (m *MUL) Change(space *AddressSpace, vaddr uint64, flags archparam.Flags) {
	space.mu.Lock()
	defer space.mu.Unlock()

	leafTable, idx, ok := m.walkToLeaf(space, vaddr)
	if !ok {
		return
	}
	slot, err := m.Cache.Get(leafTable, 1)
	if err != nil {
		return
	}
	tbl := slot.Table(m.Cache)
	pte := tbl.Get(idx)
	if !m.Layout.Present(pte) {
		m.Cache.Return(slot)
		return
	}
	tbl.Set(idx, m.Layout.EncodeLeaf(m.Layout.FrameOf(pte), flags))
	m.Cache.Return(slot)

	space.Generation++
	space.TLBUpdatePending = true
}

// EarlyTable is the pre-PTC bootstrap surface map_early operates on:
// an identity-mapped (virtual address == physical address) table, so
// no PTC slot is needed to read or write it. A real port backs this
// with the handful of statically-linked page-table pages the
// bootloader hands off in the boot record (internal/handoff); tests
// back it with a plain in-memory map, matching ptc.SimPhysMem's shape.
type EarlyTable interface {
	Get(frameAddr archparam.Frame, index int) archparam.PTE
	Set(frameAddr archparam.Frame, index int, pte archparam.PTE)
}

// MapEarly is spec §4.2's `map_early`: the bootstrap path used before
// the PTC exists, walking identity-mapped tables directly rather than
// borrowing cache slots. It shares the allocate-on-absent algorithm
// with Map but has no address-space walk lock to take (spec: "early
// boot... single-threaded by construction").
func (m *MUL) MapEarly(tables EarlyTable, topLevel archparam.Frame, vaddr uint64, paddr archparam.Frame, flags archparam.Flags) error {
	vaddr = m.Layout.Canonicalise(vaddr)
	n := m.Layout.NLevels()
	cur := topLevel

	for level := n; level >= 2; level-- {
		idx := archparam.Index(m.Layout, vaddr, level)
		pte := tables.Get(cur, idx)
		if !m.Layout.Present(pte) {
			next := m.Frames.AllocPage()
			if next == 0 {
				return ErrOom
			}
			tables.Set(cur, idx, m.Layout.EncodeInterior(next, interiorFlags(flags)))
			cur = next
		} else {
			cur = m.Layout.FrameOf(pte)
		}
	}
	idx := archparam.Index(m.Layout, vaddr, 1)
	tables.Set(cur, idx, m.Layout.EncodeLeaf(paddr, flags))
	return nil
}
