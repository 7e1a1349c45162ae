package archparam

// RiscV is the Sv39/Sv48/Sv57-style regime: the same 9-bit-per-level
// radix as the PAE, long-mode and ARM64 ports here, parameterised by level count so a
// single descriptor serves whichever SvXX mode the platform's
// satp.MODE probe (spec §6: "selected by probing the largest satp.MODE
// that sticks when written in M-mode") settles on. PTE bit layout
// follows the RISC-V privileged spec: V=bit0, R=bit1, W=bit2, X=bit3,
// U=bit4, G=bit5, A=bit6, D=bit7, PPN starting at bit 10.
type riscv struct {
	levels int
}

// NewRiscV returns a Layout for Sv(39+9*(levels-3)): levels=3 is Sv39,
// levels=4 is Sv48, levels=5 is Sv57. Only 3 and 4 are exercised by
// spec §6 ("parameterized by the same framework" as the others), but
// the shift arithmetic generalises directly.
func NewRiscV(levels int) Layout {
	if levels < 3 || levels > 5 {
		panic("archparam: RiscV levels must be 3..5")
	}
	return riscv{levels: levels}
}

const (
	rvValid = 1 << 0
	rvRead  = 1 << 1
	rvWrite = 1 << 2
	rvExec  = 1 << 3
	rvUser  = 1 << 4
	rvGlob  = 1 << 5
	rvAcc   = 1 << 6
	rvDirty = 1 << 7
	rvPPNShift = 10
)

func (r riscv) Name() string {
	switch r.levels {
	case 3:
		return "riscv-sv39"
	case 4:
		return "riscv-sv48"
	default:
		return "riscv-sv57"
	}
}

func (r riscv) NLevels() int       { return r.levels }
func (riscv) EntryCount(int) int { return 512 }

func (r riscv) Shift(level int) uint {
	if level < 1 || level > r.levels {
		panic("archparam/riscv: bad level")
	}
	return uint(12 + 9*(level-1))
}

func rvFlags(flags Flags, leaf bool) uint64 {
	v := uint64(rvValid | rvAcc | rvDirty)
	if !leaf {
		// An interior (pointer-to-table) PTE has R=W=X=0.
		return v
	}
	v |= rvRead
	if flags&W != 0 {
		v |= rvWrite
	}
	if flags&(X|NonExec) != NonExec {
		v |= rvExec
	}
	if flags&User != 0 {
		v |= rvUser
	}
	if flags&Global != 0 {
		v |= rvGlob
	}
	return v
}

func (r riscv) EncodeInterior(next Frame, flags Flags) PTE {
	return PTE(uint64(next)<<rvPPNShift | rvFlags(flags, false))
}

func (r riscv) EncodeLeaf(frame Frame, flags Flags) PTE {
	return PTE(uint64(frame)<<rvPPNShift | rvFlags(flags, true))
}

func (riscv) Present(pte PTE) bool { return uint64(pte)&rvValid != 0 }

func (riscv) FrameOf(pte PTE) Frame { return Frame(uint64(pte) >> rvPPNShift) }

func (riscv) FlagsOf(pte PTE) Flags {
	v := uint64(pte)
	f := Flags(0)
	if v&rvRead != 0 {
		f |= R
	}
	if v&rvWrite != 0 {
		f |= W
	}
	if v&rvExec != 0 {
		f |= X
	} else {
		f |= NonExec
	}
	if v&rvUser != 0 {
		f |= User
	} else {
		f |= Kernel
	}
	if v&rvGlob != 0 {
		f |= Global
	}
	return f
}

// Canonicalise sign-extends above the top VPN field, mirroring the
// amd64/arm64 rule but at whatever bit this regime's level count
// implies (Sv39: bit 38, Sv48: bit 47).
func (r riscv) Canonicalise(vaddr uint64) uint64 {
	top := r.Shift(r.levels) + 9 - 1
	signBit := uint64(1) << top
	mask := signBit<<1 - 1
	if vaddr&signBit != 0 {
		return vaddr | ^mask
	}
	return vaddr & mask
}
