package ptc

import "nexke/pkg/archparam"

// SimPhysMem is an in-memory PhysMem: each distinct frame address gets
// a lazily-allocated backing table the first time it is referenced.
// It is what cmd/nexke and the test suite use in the absence of real
// physical memory; a hosted build could instead back PhysMem with an
// mmap'd region (golang.org/x/sys) of a file standing in for RAM.
type SimPhysMem struct {
	tables map[archparam.Frame]*simTable
}

// NewSimPhysMem returns an empty simulated physical memory.
func NewSimPhysMem() *SimPhysMem {
	return &SimPhysMem{tables: make(map[archparam.Frame]*simTable)}
}

// simTable is keyed by index rather than backed by a fixed-size array:
// table entry counts vary by arch (4 for PAE's top level, 1024 for
// ia32, 512 elsewhere), and SimPhysMem has no Layout to size against.
// An absent key reads as the zero PTE, matching a freshly zeroed page.
type simTable struct {
	entries map[int]archparam.PTE
}

func (t *simTable) Get(index int) archparam.PTE { return t.entries[index] }
func (t *simTable) Set(index int, pte archparam.PTE) { t.entries[index] = pte }

// Table returns the (lazily created) table view backing frame p. A
// freshly created table reads as all-zero, matching a freshly
// zero-filled frame from the frame allocator.
func (m *SimPhysMem) Table(p archparam.Frame) TableView {
	t, ok := m.tables[p]
	if !ok {
		t = &simTable{entries: make(map[int]archparam.PTE)}
		m.tables[p] = t
	}
	return t
}
