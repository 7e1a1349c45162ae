package archparam

import "testing"

func layouts() map[string]Layout {
	return map[string]Layout{
		"ia32":     IA32,
		"pae":      PAE,
		"amd64":    LongMode,
		"arm64":    ARM64,
		"riscv-39": NewRiscV(3),
		"riscv-48": NewRiscV(4),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for name, l := range layouts() {
		t.Run(name, func(t *testing.T) {
			cases := []Flags{R | W, R, R | W | User, R | X | Global}
			for _, want := range cases {
				pte := l.EncodeLeaf(0x123, want)
				if !l.Present(pte) {
					t.Fatalf("%s: leaf must be present", name)
				}
				if l.FrameOf(pte) != 0x123 {
					t.Fatalf("%s: frame mismatch: got %x", name, l.FrameOf(pte))
				}
				got := l.FlagsOf(pte)
				if got&want != want {
					t.Fatalf("%s: decode(encode(%v)) = %v, missing bits the arch claims to support", name, want, got)
				}
			}
		})
	}
}

func TestCanonicaliseIdempotent(t *testing.T) {
	for name, l := range layouts() {
		t.Run(name, func(t *testing.T) {
			vaddrs := []uint64{0, 0x1000, 0x7fffffffffff, 0x800000000000, 0xffffffffffffffff}
			for _, v := range vaddrs {
				c1 := l.Canonicalise(v)
				c2 := l.Canonicalise(c1)
				if c1 != c2 {
					t.Fatalf("%s: canonicalise not idempotent for %x: %x vs %x", name, v, c1, c2)
				}
			}
		})
	}
}

func TestIndexWithinEntryCount(t *testing.T) {
	for name, l := range layouts() {
		t.Run(name, func(t *testing.T) {
			for lvl := 1; lvl <= l.NLevels(); lvl++ {
				idx := Index(l, 0xFFFFFFFFFFFFFFFF, lvl)
				if idx < 0 || idx >= l.EntryCount(lvl) {
					t.Fatalf("%s level %d: index %d out of range [0,%d)", name, lvl, idx, l.EntryCount(lvl))
				}
			}
		})
	}
}
