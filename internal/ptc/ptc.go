// Package ptc implements the Page-Table Cache (C4): a bounded pool of
// fixed "virtual slots" that let the MUL read and write arbitrary
// physical page-table pages without an identity mapping. The slot
// bookkeeping here — free/used intrusive lists, LRU-within-priority
// eviction, the in_use/mapped_phys/level invariants — is exactly spec
// §4.1's contract. What a "slot" ultimately grants access to is a
// PhysMem backing store (see phys.go); a real port backs PhysMem with
// an actual fixed kernel virtual window remapped via the arch's own
// page tables, the way the teacher's mmu.go remaps the exception
// vector page by writing a PTE and flushing the TLB for one address
// (InitializeExceptions in exceptions.go) — PTC.Get/Return do the same
// dance, generalised to arbitrary table pages instead of one fixed
// vector page.
package ptc

import (
	"errors"

	"nexke/pkg/archparam"
)

// ErrOutOfSlots is returned only transiently — callers are expected to
// retry; spec §4.1 calls this a "transient (eviction handles it
// internally)" condition. Get evicts before giving up, so it returns
// this only when no slot is free and none is on a used list to evict.
// The Cache has no option to turn eviction off.
var ErrOutOfSlots = errors.New("ptc: out of slots")

// ErrOom is returned when the backing PTE page for a slot cannot be
// faulted in (spec §4.1). The in-memory PhysMem backing used here
// never fails this way; it exists for symmetry with a real port where
// the slot's own backing page might itself need a frame.
var ErrOom = errors.New("ptc: out of memory mapping slot")

// Slot is a single PTC entry: spec §3's PT Cache entry record.
type Slot struct {
	index      int
	mappedPhys archparam.Frame
	level      int
	inUse      bool
	prev, next *Slot
}

// MappedPhys returns the physical table page this slot currently
// provides access to. Valid only while the slot is in use.
func (s *Slot) MappedPhys() archparam.Frame { return s.mappedPhys }

// Level returns the page-table level this slot was borrowed for.
func (s *Slot) Level() int { return s.level }

// Table returns a read/write view onto the slot's currently-mapped
// physical page. Calling Table after Return is a programmer error.
func (s *Slot) Table(cache *Cache) TableView {
	if !s.inUse {
		panic("ptc: Table() on a returned slot")
	}
	return cache.phys.Table(s.mappedPhys)
}

// TableView is the read/write interface onto one physical table page,
// exposed in PTE-word granularity. See phys.go for the in-memory
// backing used by tests and by cmd/nexke before a real MMU remap path
// exists.
type TableView interface {
	Get(index int) archparam.PTE
	Set(index int, pte archparam.PTE)
}

// PhysMem is the backing store PTC slots grant access to. It stands in
// for "a small fixed virtual window that temporarily maps arbitrary
// physical page-table pages" (spec §4.1): in a real port this is a
// handful of kernel PTEs rewritten on every Get/Return; here it is
// whatever physical-memory model the caller plugs in.
type PhysMem interface {
	Table(p archparam.Frame) TableView
}

// Cache is the Page-Table Cache. Its used lists l1 and rest are
// two strict FIFOs (spec §9's open-question resolution: not a blended
// LRU, level 1 is always evicted first).
type Cache struct {
	phys PhysMem

	freeHead, freeTail *Slot // free list used as a stack: returned slots go to the head (MRU), see pushFree
	freeLen            int

	// l1 holds slots currently mapping level-1 ("leaf scratch") tables;
	// rest holds slots mapping any level >= 2. Both are LRU ordered:
	// newly-borrowed slots go to the tail, eviction takes from the
	// head. l1 is drained before rest on eviction (spec §4.1: "level 1
	// ... is always preferred for eviction").
	l1, rest list

	slots []Slot
	stats Stats
}

type list struct {
	head, tail *Slot
	len        int
}

func (l *list) pushTail(s *Slot) {
	s.next, s.prev = nil, l.tail
	if l.tail != nil {
		l.tail.next = s
	} else {
		l.head = s
	}
	l.tail = s
	l.len++
}

func (l *list) remove(s *Slot) {
	if s.prev != nil {
		s.prev.next = s.next
	} else {
		l.head = s.next
	}
	if s.next != nil {
		s.next.prev = s.prev
	} else {
		l.tail = s.prev
	}
	s.next, s.prev = nil, nil
	l.len--
}

func (l *list) popHead() *Slot {
	s := l.head
	if s == nil {
		return nil
	}
	l.remove(s)
	return s
}

// New creates a Cache with the given number of slots backed by phys.
// Per spec §4.1, 8-32 slots is the typical range; New accepts any
// count >= 1 (a 1-slot cache is legal, just degenerate for anything
// beyond single-level walks).
func New(phys PhysMem, slotCount int) *Cache {
	if slotCount < 1 {
		panic("ptc: slotCount must be >= 1")
	}
	c := &Cache{phys: phys, slots: make([]Slot, slotCount)}
	for i := range c.slots {
		s := &c.slots[i]
		s.index = i
		c.pushFree(s)
	}
	return c
}

func (c *Cache) pushFree(s *Slot) {
	// New-to-free goes to MRU, per spec §4.1: "Returned-to-
	// free goes to MRU". We treat the free list itself as a plain
	// stack (head = MRU) since free-list *order* has no behavioral
	// consequence — only the used lists' order drives eviction.
	s.next = c.freeHead
	s.prev = nil
	if c.freeHead != nil {
		c.freeHead.prev = s
	} else {
		c.freeTail = s
	}
	c.freeHead = s
	c.freeLen++
}

func (c *Cache) popFree() *Slot {
	s := c.freeHead
	if s == nil {
		return nil
	}
	c.freeHead = s.next
	if c.freeHead != nil {
		c.freeHead.prev = nil
	} else {
		c.freeTail = nil
	}
	s.next, s.prev = nil, nil
	c.freeLen--
	return s
}

func (c *Cache) usedListFor(level int) *list {
	if level <= 1 {
		return &c.l1
	}
	return &c.rest
}

// evict takes the victim when Get finds no free slot: the head of l1
// if any level-1 slot is in use, else the head of rest. Get records
// each eviction in Stats, which tests read for spec §8's "at least
// one level-1 slot eviction" scenario (S3).
func (c *Cache) evict() *Slot {
	if c.l1.len > 0 {
		return c.l1.popHead()
	}
	if c.rest.len > 0 {
		return c.rest.popHead()
	}
	return nil
}

// Stats reports eviction counters for tests and diagnostics.
type Stats struct {
	Evictions     int
	L1Evictions   int
	RestEvictions int
}

// Stats returns a snapshot of the cache's eviction counters.
func (c *Cache) Stats() Stats { return c.stats }

// Quiescent reports whether |free| + sum(|used_level[i]|) equals the
// configured slot count — spec §8's PTC invariant, exposed for tests
// to assert at arbitrary points.
func (c *Cache) Quiescent() bool {
	return c.freeLen+c.l1.len+c.rest.len == len(c.slots)
}

func (c *Cache) Get(ptab archparam.Frame, level int) (*Slot, error) {
	s := c.popFree()
	if s == nil {
		victim := c.evict()
		if victim == nil {
			// Every slot is both in use and on no eviction candidate
			// list, i.e. slotCount == 0, which New forbids. Unreachable
			// in practice; kept as a defensive transient error rather
			// than a panic so callers retry instead of crashing.
			return nil, ErrOutOfSlots
		}
		c.stats.Evictions++
		if victim.level <= 1 {
			c.stats.L1Evictions++
		} else {
			c.stats.RestEvictions++
		}
		victim.inUse = false
		s = victim
	}
	s.mappedPhys = ptab
	s.level = level
	s.inUse = true
	c.usedListFor(level).pushTail(s)
	return s, nil
}

// Return releases a slot back to the free list.
func (c *Cache) Return(s *Slot) {
	if !s.inUse {
		panic("ptc: double Return")
	}
	c.usedListFor(s.level).remove(s)
	s.inUse = false
	s.mappedPhys = 0
	c.pushFree(s)
}

// Swap is equivalent to Return(s) followed by Get(newPtab, newLevel)
// but reuses the same slot entry, as spec §4.1 requires ("atomic
// relative to IPL-raised caller").
func (c *Cache) Swap(s *Slot, newPtab archparam.Frame, newLevel int) *Slot {
	oldList := c.usedListFor(s.level)
	oldList.remove(s)
	s.mappedPhys = newPtab
	s.level = newLevel
	c.usedListFor(newLevel).pushTail(s)
	return s
}

