package archparam

// ARM64 is the ARMv8 48-bit, four-levels-of-512 regime: table vs block
// descriptors are distinguished by bit 1, AF is bit 10, AP/XN follow
// the ARM ARM, per spec §6. Bit positions are grounded directly in the
// teacher's mmu.go (PTE_VALID, PTE_TABLE, PTE_AF, PTE_UXN/PTE_PXN,
// PTE_AP_RW/PTE_AP_RO, MAIR-indexed memory attributes).
type arm64 struct{}

// ARM64 is the singleton Layout for the ARMv8 48-bit regime.
var ARM64 Layout = arm64{}

const (
	arm64Valid    = 1 << 0
	arm64Table    = 1 << 1 // distinguishes table (1) from block (0) at interior levels; always 1 at L3 (leaf "page" descriptor)
	arm64AF       = 1 << 10
	arm64NG       = 1 << 11
	arm64UXN      = uint64(1) << 54
	arm64PXN      = uint64(1) << 53
	arm64APRW     = uint64(0) << 6
	arm64APRWEL1  = uint64(1) << 6
	arm64APRO     = uint64(2) << 6
	arm64FrameM   = uint64(0x0000FFFFFFFFF000)
)

func (arm64) Name() string       { return "arm64" }
func (arm64) NLevels() int       { return 4 }
func (arm64) EntryCount(int) int { return 512 }

func (arm64) Shift(level int) uint {
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
		panic("archparam/arm64: bad level")
	}
}

func arm64Attrs(flags Flags) uint64 {
	v := uint64(arm64Valid | arm64Table | arm64AF)
	if flags&Global == 0 {
		v |= arm64NG
	}
	if flags&User == 0 {
		v |= arm64APRWEL1
	} else if flags&W == 0 {
		v |= arm64APRO
	} else {
		v |= arm64APRW
	}
	if flags&(X|NonExec) == NonExec {
		v |= arm64UXN | arm64PXN
	}
	return v
}

func (arm64) EncodeInterior(next Frame, flags Flags) PTE {
	return PTE(uint64(next)<<12&arm64FrameM | arm64Attrs(flags|W|User))
}

func (arm64) EncodeLeaf(frame Frame, flags Flags) PTE {
	return PTE(uint64(frame)<<12&arm64FrameM | arm64Attrs(flags))
}

func (arm64) Present(pte PTE) bool { return uint64(pte)&arm64Valid != 0 }

func (arm64) FrameOf(pte PTE) Frame { return Frame(uint64(pte) & arm64FrameM >> 12) }

func (arm64) FlagsOf(pte PTE) Flags {
	v := uint64(pte)
	f := R
	ap := (v >> 6) & 0x3
	switch ap {
	case 0:
		f |= W | User
	case 1:
		f |= W | Kernel
	case 2:
		f |= User
	case 3:
		f |= Kernel
	}
	if v&uint64(arm64NG) == 0 {
		f |= Global
	}
	if v&arm64UXN != 0 && v&arm64PXN != 0 {
		f |= NonExec
	} else {
		f |= X
	}
	return f
}

// Canonicalise mirrors long mode's sign-extension rule at bit 47,
// which ARMv8's TTBR0/TTBR1 split also relies on for the 48-bit VA
// space.
func (arm64) Canonicalise(vaddr uint64) uint64 { return LongMode.Canonicalise(vaddr) }
