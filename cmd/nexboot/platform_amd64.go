//go:build amd64

package main

import (
	"nexke/internal/handoff"
	"nexke/pkg/archparam"
)

// platformHandoff builds the hand-off record for an amd64 long-mode
// target. A real loader would fill this in from firmware-provided
// tables (UEFI memory map, ACPI/SMBIOS pointers); here it is a fixed
// stand-in, since discovering those tables is out of scope.
func platformHandoff() (*handoff.Handoff, archparam.Layout) {
	ho := &handoff.Handoff{
		FirmwareType:  "uefi",
		SystemName:    "nexke",
		CommandLine:   "console=ttyS0",
		MemMap:        []handoff.MemEntry{{Base: 0, Size: 64 * 1024 * 1024, Type: handoff.Free}},
		EarlyPoolBase: 64 * 1024 * 1024,
		EarlyPoolSize: 128 * 1024,
	}
	return ho, archparam.LongMode
}
