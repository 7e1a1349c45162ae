// Package handoff is the boot hand-off record (spec §6): the
// fixed-layout structure the bootloader constructs and the kernel
// consumes at entry. It is the one external data contract spec §6
// gives literal field names for, so it is implemented here as a
// concrete Go struct plus a validating decoder rather than left as a
// named-only collaborator. Grounded in the teacher's own
// scheduler_bootstrap.go hand-off path (a single struct built by
// mazboot and read by kmazarin) and in multiboot2/stivale2-style
// record layouts for the encoding shape (tag-less fixed arrays rather
// than a tagged linked list, since spec §6 describes fixed fields).
package handoff

import (
	"encoding/binary"
	"fmt"
)

// MemType is a memory-map entry's region classification.
type MemType uint32

const (
	Free MemType = iota
	Reserved
	AcpiReclaim
	AcpiNvs
	Mmio
	FwReclaim
	BootReclaim
)

func (t MemType) String() string {
	switch t {
	case Free:
		return "FREE"
	case Reserved:
		return "RESERVED"
	case AcpiReclaim:
		return "ACPI_RECLAIM"
	case AcpiNvs:
		return "ACPI_NVS"
	case Mmio:
		return "MMIO"
	case FwReclaim:
		return "FW_RECLAIM"
	case BootReclaim:
		return "BOOT_RECLAIM"
	default:
		return fmt.Sprintf("MemType(%d)", uint32(t))
	}
}

// MemFlags is the per-entry flag bitmask.
type MemFlags uint32

const NonVolatile MemFlags = 1 << 0

// MemEntry is one memory-map record.
type MemEntry struct {
	Base  uint64
	Size  uint64
	Type  MemType
	Flags MemFlags
}

// Module is one bootloader-loaded module (initrd, kernel symbol table,
// ...): base address and size within physical memory, plus the
// command-line string the loader was told to tag it with.
type Module struct {
	Base uint64
	Size uint64
	Tag  string
}

// Display is the framebuffer descriptor handed off for an early,
// driver-less console. No consumer of this struct exists in this
// repository (VBE/GOP drivers are out of scope); it is carried only so
// the hand-off record's shape is complete and round-trips.
type Display struct {
	Width, Height, BytesPerLine uint32
	Bpp, BytesPerPixel          uint32
	LfbSize                     uint64
	RedMask, GreenMask, BlueMask, ReservedMask     uint32
	RedShift, GreenShift, BlueShift, ReservedShift uint32
	FramebufferAddr uint64
}

// FirmwareTable enumerates the table kinds a firmware-table bitmap can
// report as present.
type FirmwareTable int

const (
	ACPI FirmwareTable = iota
	MPS
	PNP
	APM
	SMBIOS
	SMBIOS3
	PCI
	VESA
	BIOS32
	firmwareTableCount
)

// Handoff is the full record passed from bootloader to kernel.
type Handoff struct {
	FirmwareType string
	SystemName   string
	CommandLine  string

	MemMap  []MemEntry
	Modules []Module

	EarlyPoolBase uint64 // 128 KiB early memory pool, spec §6
	EarlyPoolSize uint64

	Display Display

	// FirmwareTables is indexed by FirmwareTable; a zero entry means
	// the table was not detected. Fixed at 32 entries per spec §6 ("a
	// 32-entry physical-address array").
	FirmwareTables [32]uint64
	TablesPresent  [firmwareTableCount]bool
}

// Validate checks the structural invariants a decoded (or
// hand-constructed, in tests) Handoff must satisfy before the kernel
// trusts it.
func (h *Handoff) Validate() error {
	if h.EarlyPoolSize != 0 && h.EarlyPoolSize < 128*1024 {
		return fmt.Errorf("handoff: early pool must be at least 128 KiB, got %d", h.EarlyPoolSize)
	}
	for i, e := range h.MemMap {
		if e.Size == 0 {
			return fmt.Errorf("handoff: memory map entry %d has zero size", i)
		}
		if e.Base%4096 != 0 {
			return fmt.Errorf("handoff: memory map entry %d base %#x is not page aligned", i, e.Base)
		}
	}
	for i, m := range h.Modules {
		if m.Size == 0 {
			return fmt.Errorf("handoff: module %d (%q) has zero size", i, m.Tag)
		}
	}
	return nil
}

// FreeRegions returns every FREE memory-map entry, the set the early
// frame allocator bootstraps from.
func (h *Handoff) FreeRegions() []MemEntry {
	var out []MemEntry
	for _, e := range h.MemMap {
		if e.Type == Free {
			out = append(out, e)
		}
	}
	return out
}

// BootReclaimRegions returns every BOOT_RECLAIM entry: the regions
// internal/frame.ReclaimBootRegion hands over to the post-hand-off
// allocator once the kernel no longer needs them in their original
// form.
func (h *Handoff) BootReclaimRegions() []MemEntry {
	var out []MemEntry
	for _, e := range h.MemMap {
		if e.Type == BootReclaim {
			out = append(out, e)
		}
	}
	return out
}

// wireEntry is the fixed-layout, on-the-wire form of one MemEntry:
// base(8) size(8) type(4) flags(4), little-endian, matching the
// "fixed-layout record" spec §6 calls for.
const wireEntrySize = 8 + 8 + 4 + 4

// DecodeMemMap parses a flat little-endian array of wire-format memory
// entries, the shape a real bootloader would hand the kernel a raw
// pointer and count for. It is the one piece of the hand-off record
// actually exercised by a binary decode path in this repository; the
// remaining fields (display, firmware tables, modules) are populated
// directly by whatever constructs the Handoff (cmd/nexke's boot
// sequence, or a test) since spec §6 does not pin down their wire
// encoding as tightly as the memory map.
func DecodeMemMap(raw []byte) ([]MemEntry, error) {
	if len(raw)%wireEntrySize != 0 {
		return nil, fmt.Errorf("handoff: memory map buffer length %d is not a multiple of %d", len(raw), wireEntrySize)
	}
	n := len(raw) / wireEntrySize
	out := make([]MemEntry, n)
	for i := 0; i < n; i++ {
		b := raw[i*wireEntrySize:]
		out[i] = MemEntry{
			Base:  binary.LittleEndian.Uint64(b[0:8]),
			Size:  binary.LittleEndian.Uint64(b[8:16]),
			Type:  MemType(binary.LittleEndian.Uint32(b[16:20])),
			Flags: MemFlags(binary.LittleEndian.Uint32(b[20:24])),
		}
	}
	return out, nil
}

// EncodeMemMap is DecodeMemMap's inverse; in this repository only the
// package's own tests call it.
func EncodeMemMap(entries []MemEntry) []byte {
	out := make([]byte, len(entries)*wireEntrySize)
	for i, e := range entries {
		b := out[i*wireEntrySize:]
		binary.LittleEndian.PutUint64(b[0:8], e.Base)
		binary.LittleEndian.PutUint64(b[8:16], e.Size)
		binary.LittleEndian.PutUint32(b[16:20], uint32(e.Type))
		binary.LittleEndian.PutUint32(b[20:24], uint32(e.Flags))
	}
	return out
}
