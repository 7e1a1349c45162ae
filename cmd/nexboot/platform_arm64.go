//go:build arm64

package main

import (
	"nexke/internal/handoff"
	"nexke/pkg/archparam"
)

// platformHandoff builds the hand-off record for an ARMv8-48 target,
// grounded in the teacher's own Raspberry Pi 4 / QEMU virt bring-up
// (device-tree-sourced memory map, PL011/PL031 MMIO regions reserved
// rather than handed out as FREE).
func platformHandoff() (*handoff.Handoff, archparam.Layout) {
	ho := &handoff.Handoff{
		FirmwareType: "device-tree",
		SystemName:   "nexke",
		CommandLine:  "console=ttyAMA0",
		MemMap: []handoff.MemEntry{
			{Base: 0, Size: 64 * 1024 * 1024, Type: handoff.Free},
			{Base: 0xFE000000, Size: 0x01800000, Type: handoff.Mmio},
		},
		EarlyPoolBase: 64 * 1024 * 1024,
		EarlyPoolSize: 128 * 1024,
	}
	return ho, archparam.ARM64
}
