package archparam

// IA32 is the 32-bit non-PAE, two-level regime: present bit 0, RW bit
// 1, US bit 2, global bit 8, frame bits 12..31 — the exact bit
// contract in spec §6. There is no NX bit at this level, so X/NonExec
// are accepted by EncodeLeaf/EncodeInterior but silently dropped.
type ia32 struct{}

// IA32 is the singleton Layout for the 32-bit non-PAE regime.
var IA32 Layout = ia32{}

const (
	ia32Present = 1 << 0
	ia32RW      = 1 << 1
	ia32US      = 1 << 2
	ia32Global  = 1 << 8
	ia32FrameM  = 0xFFFFF000
)

func (ia32) Name() string    { return "ia32" }
func (ia32) NLevels() int    { return 2 }
func (ia32) EntryCount(int) int { return 1024 }

func (ia32) Shift(level int) uint {
	switch level {
	case 2:
		return 22
	case 1:
		return 12
	default:
		panic("archparam/ia32: bad level")
	}
}

func ia32Flags(flags Flags) uint64 {
	var v uint64 = ia32Present
	if flags&W != 0 {
		v |= ia32RW
	}
	if flags&User != 0 {
		v |= ia32US
	}
	if flags&Global != 0 {
		v |= ia32Global
	}
	return v
}

func (ia32) EncodeInterior(next Frame, flags Flags) PTE {
	return PTE(uint64(next)<<12&ia32FrameM | ia32Flags(flags|W|User))
}

func (ia32) EncodeLeaf(frame Frame, flags Flags) PTE {
	return PTE(uint64(frame)<<12&ia32FrameM | ia32Flags(flags))
}

func (ia32) Present(pte PTE) bool { return uint64(pte)&ia32Present != 0 }

func (ia32) FrameOf(pte PTE) Frame { return Frame(uint64(pte) & ia32FrameM >> 12) }

func (ia32) FlagsOf(pte PTE) Flags {
	v := uint64(pte)
	f := R
	if v&ia32RW != 0 {
		f |= W
	}
	if v&ia32US != 0 {
		f |= User
	} else {
		f |= Kernel
	}
	if v&ia32Global != 0 {
		f |= Global
	}
	f |= X // no NX bit at this level; execute is implicit
	return f
}

func (ia32) Canonicalise(vaddr uint64) uint64 { return vaddr & 0xFFFFFFFF }
