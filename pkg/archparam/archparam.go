// Package archparam supplies the per-architecture paging parameters
// that internal/mul's walker is generic over: level count, index
// shifts, leaf/interior PTE encoding, and vaddr canonicalisation. This
// is the Go expression of spec §9's "arch-conditional compilation by
// preprocessor... replace with a parameterised module per arch,
// selected by build configuration" design note: one Layout value per
// regime instead of #ifdef'd C.
//
// Bit layouts are grounded directly in spec §6's "Page-table arch
// parameters" table and in the teacher's mmu.go (ARM64 descriptor
// bits: PTE_VALID, PTE_TABLE, PTE_AF, PTE_UXN/PTE_PXN, MAIR-indexed
// memory attributes) and biscuit's mem.go (PTE_P/PTE_W/PTE_U/PTE_G,
// Pa_t as the physical-address newtype).
package archparam

// Flags is the arch-neutral rights/attribute superset from spec §4.2.
// Each Layout maps the subset it supports onto its own PTE bits;
// unsupported bits are silently dropped, never an error (e.g. 32-bit
// non-PAE has no NX bit).
type Flags uint32

const (
	R Flags = 1 << iota
	W
	X
	User
	Kernel
	Global
	NoCache
	WriteThrough
	NonExec
)

// PTE is a raw page-table entry word. Its bit layout is private to the
// Layout that produced it.
type PTE uint64

// Frame is a physical frame address/number as used in PTE encodings;
// it is the same unit as frame.Paddr but kept distinct here so
// archparam has no dependency on the frame package.
type Frame uint64

// Layout is the per-architecture parameterisation that internal/mul's
// generic walker is built against. N_levels and the shift table are
// fixed at construction (spec: "selected at build time per arch");
// everything else is a pure function of a level and a PTE word.
type Layout interface {
	// Name identifies the regime, for diagnostics and tests.
	Name() string
	// NLevels returns the table depth: 2, 3 or 4 for the x86 and ARM64
	// layouts, 3 to 5 for RiscV.
	NLevels() int
	// EntryCount returns how many entries a table at this level has
	// (PAE's top level has 4; everything else in this package uses
	// 512 or 1024).
	EntryCount(level int) int
	// Shift returns the bit position of the index field for this
	// level: index = (vaddr >> Shift(level)) & (EntryCount(level)-1).
	Shift(level int) uint
	// EncodeInterior builds an interior (non-leaf) PTE referencing the
	// next-level table at frame.
	EncodeInterior(next Frame, flags Flags) PTE
	// EncodeLeaf builds a level-1 leaf PTE translating to frame with
	// the given arch-neutral flags.
	EncodeLeaf(frame Frame, flags Flags) PTE
	// Present reports whether pte's present bit is set.
	Present(pte PTE) bool
	// FrameOf extracts the physical frame field of pte.
	FrameOf(pte PTE) Frame
	// FlagsOf decodes pte's rights back into the arch-neutral
	// superset. The round trip FlagsOf(EncodeLeaf(f, x)) ⊇ x modulo
	// bits the arch lacks (spec §8).
	FlagsOf(pte PTE) Flags
	// Canonicalise masks/sign-extends a raw virtual address into the
	// form this regime's MMU expects to see (spec §4.2). It is
	// idempotent: Canonicalise(Canonicalise(v)) == Canonicalise(v).
	Canonicalise(vaddr uint64) uint64
}

// index computes the table index for vaddr at level using a layout's
// Shift/EntryCount; shared by every Layout implementation below.
func index(l Layout, vaddr uint64, level int) int {
	mask := uint64(l.EntryCount(level) - 1)
	return int((vaddr >> l.Shift(level)) & mask)
}

// Index is the exported form of the shared helper, used by
// internal/mul so the walker never computes shifts/masks itself.
func Index(l Layout, vaddr uint64, level int) int {
	return index(l, vaddr, level)
}
