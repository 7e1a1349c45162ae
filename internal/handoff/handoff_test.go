package handoff

import (
	"reflect"
	"testing"
)

func TestEncodeDecodeMemMapRoundTrip(t *testing.T) {
	entries := []MemEntry{
		{Base: 0, Size: 0x9fc00, Type: Free},
		{Base: 0x100000, Size: 0x7ee0000, Type: Free},
		{Base: 0xfec00000, Size: 0x1000, Type: Mmio},
		{Base: 0x7ff00000, Size: 0x100000, Type: BootReclaim, Flags: NonVolatile},
	}
	raw := EncodeMemMap(entries)
	got, err := DecodeMemMap(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, entries) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, entries)
	}
}

func TestDecodeMemMapRejectsMisalignedBuffer(t *testing.T) {
	if _, err := DecodeMemMap(make([]byte, wireEntrySize+1)); err == nil {
		t.Fatalf("expected an error for a buffer that is not a multiple of the entry size")
	}
}

func TestValidateRejectsUndersizedEarlyPool(t *testing.T) {
	h := &Handoff{EarlyPoolBase: 0x200000, EarlyPoolSize: 4096}
	if err := h.Validate(); err == nil {
		t.Fatalf("expected an error for an early pool smaller than 128 KiB")
	}
}

func TestValidateAcceptsWellFormedRecord(t *testing.T) {
	h := &Handoff{
		FirmwareType: "multiboot2",
		SystemName:   "nexke",
		CommandLine:  "console=ttyS0",
		MemMap: []MemEntry{
			{Base: 0, Size: 0x100000, Type: Free},
		},
		Modules:       []Module{{Base: 0x400000, Size: 0x1000, Tag: "initrd"}},
		EarlyPoolBase: 0x200000,
		EarlyPoolSize: 128 * 1024,
	}
	if err := h.Validate(); err != nil {
		t.Fatalf("expected a well-formed record to validate, got %v", err)
	}
}

func TestValidateRejectsZeroSizeMemoryEntry(t *testing.T) {
	h := &Handoff{MemMap: []MemEntry{{Base: 0, Size: 0, Type: Free}}}
	if err := h.Validate(); err == nil {
		t.Fatalf("expected an error for a zero-size memory map entry")
	}
}

func TestValidateRejectsUnalignedMemoryEntry(t *testing.T) {
	h := &Handoff{MemMap: []MemEntry{{Base: 1, Size: 4096, Type: Free}}}
	if err := h.Validate(); err == nil {
		t.Fatalf("expected an error for a non-page-aligned base")
	}
}

func TestValidateRejectsZeroSizeModule(t *testing.T) {
	h := &Handoff{Modules: []Module{{Base: 0x400000, Size: 0, Tag: "initrd"}}}
	if err := h.Validate(); err == nil {
		t.Fatalf("expected an error for a zero-size module")
	}
}

func TestFreeRegionsFiltersByType(t *testing.T) {
	h := &Handoff{MemMap: []MemEntry{
		{Base: 0, Size: 0x1000, Type: Free},
		{Base: 0x1000, Size: 0x1000, Type: Reserved},
		{Base: 0x2000, Size: 0x1000, Type: Free},
	}}
	free := h.FreeRegions()
	if len(free) != 2 {
		t.Fatalf("expected 2 free regions, got %d", len(free))
	}
}

func TestBootReclaimRegionsFiltersByType(t *testing.T) {
	h := &Handoff{MemMap: []MemEntry{
		{Base: 0, Size: 0x1000, Type: Free},
		{Base: 0x1000, Size: 0x1000, Type: BootReclaim},
	}}
	reclaim := h.BootReclaimRegions()
	if len(reclaim) != 1 || reclaim[0].Base != 0x1000 {
		t.Fatalf("unexpected boot reclaim regions: %+v", reclaim)
	}
}

func TestMemTypeString(t *testing.T) {
	cases := map[MemType]string{
		Free:        "FREE",
		Reserved:    "RESERVED",
		AcpiReclaim: "ACPI_RECLAIM",
		AcpiNvs:     "ACPI_NVS",
		Mmio:        "MMIO",
		FwReclaim:   "FW_RECLAIM",
		BootReclaim: "BOOT_RECLAIM",
	}
	for mt, want := range cases {
		if got := mt.String(); got != want {
			t.Fatalf("MemType(%d).String() = %q, want %q", mt, got, want)
		}
	}
}
