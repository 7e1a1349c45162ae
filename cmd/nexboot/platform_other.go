//go:build !amd64 && !arm64

package main

import (
	"nexke/internal/handoff"
	"nexke/pkg/archparam"
)

// platformHandoff is the fallback for build targets other than amd64
// or arm64: 32-bit non-PAE paging, the narrowest regime this module
// supports.
func platformHandoff() (*handoff.Handoff, archparam.Layout) {
	ho := &handoff.Handoff{
		FirmwareType:  "generic",
		SystemName:    "nexke",
		CommandLine:   "console=ttyS0",
		MemMap:        []handoff.MemEntry{{Base: 0, Size: 16 * 1024 * 1024, Type: handoff.Free}},
		EarlyPoolBase: 16 * 1024 * 1024,
		EarlyPoolSize: 128 * 1024,
	}
	return ho, archparam.IA32
}
