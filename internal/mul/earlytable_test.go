package mul

import "nexke/pkg/archparam"

// simEarlyTable is an in-memory EarlyTable for map_early tests: it
// treats frameAddr as a direct map key, standing in for an identity
// mapping where physical frame N is reachable through some fixed
// virtual window at the same address.
type simEarlyTable struct {
	tables map[archparam.Frame]*[512]archparam.PTE
}

func newSimEarlyTable() *simEarlyTable {
	return &simEarlyTable{tables: make(map[archparam.Frame]*[512]archparam.PTE)}
}

func (s *simEarlyTable) table(f archparam.Frame) *[512]archparam.PTE {
	t, ok := s.tables[f]
	if !ok {
		t = &[512]archparam.PTE{}
		s.tables[f] = t
	}
	return t
}

func (s *simEarlyTable) Get(frameAddr archparam.Frame, index int) archparam.PTE {
	return s.table(frameAddr)[index]
}

func (s *simEarlyTable) Set(frameAddr archparam.Frame, index int, pte archparam.PTE) {
	s.table(frameAddr)[index] = pte
}
