package archparam

// LongMode is the 64-bit long-mode four-level regime: four levels of
// 512 entries, the identical bit layout to PAE extended to a 52-bit
// frame field, per spec §6.
type longMode struct{}

// LongMode is the singleton Layout for 64-bit long mode (amd64).
var LongMode Layout = longMode{}

func (longMode) Name() string       { return "amd64-longmode" }
func (longMode) NLevels() int       { return 4 }
func (longMode) EntryCount(int) int { return 512 }

func (longMode) Shift(level int) uint {
	switch level {
	case 4:
		return 39
	case 3:
		return 30
	case 2:
		return 21
	case 1:
		return 12
	default:
		panic("archparam/amd64: bad level")
	}
}

// Long mode reuses PAE's bit layout verbatim (spec §6), so encoding
// simply delegates.
func (longMode) EncodeInterior(next Frame, flags Flags) PTE { return PAE.EncodeInterior(next, flags) }
func (longMode) EncodeLeaf(frame Frame, flags Flags) PTE    { return PAE.EncodeLeaf(frame, flags) }
func (longMode) Present(pte PTE) bool                       { return PAE.Present(pte) }
func (longMode) FrameOf(pte PTE) Frame                       { return PAE.FrameOf(pte) }
func (longMode) FlagsOf(pte PTE) Flags                       { return PAE.FlagsOf(pte) }

// Canonicalise sign-extends bit 47 through bits 63..48, per the amd64
// canonical-address rule (the one detail spec §6 leaves to "legal v"
// round-tripping — bits above 47 must mirror bit 47 exactly).
func (longMode) Canonicalise(vaddr uint64) uint64 {
	const signBit = uint64(1) << 47
	if vaddr&signBit != 0 {
		return vaddr | 0xFFFF000000000000
	}
	return vaddr &^ 0xFFFF000000000000
}
