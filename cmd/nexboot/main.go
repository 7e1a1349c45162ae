// Command nexboot is the bootloader entry point. It is intentionally
// thin: real bootloader responsibilities (firmware table discovery,
// loading the kernel image and initrd from disk, setting the initial
// page tables) are out of scope for this module, which only
// implements the kernel side of the contract those responsibilities
// feed into. What nexboot does here is assemble the hand-off record
// spec §6 describes, in the shape and paging regime the build's
// target architecture uses, and report it — standing in for the
// "exec into the kernel at the hand-off record's address" step a real
// loader performs. Grounded in the teacher's mazboot, which is itself
// a thin bring-up stage ahead of a separate kernel binary (kmazarin).
package main

import (
	"fmt"
	"os"

	"nexke/internal/console"
	"nexke/internal/handoff"
	"nexke/internal/klog"
)

func main() {
	logger := klog.New(klog.NewConsoleSink(console.New(os.Stdout)), klog.Info)

	ho, layout := platformHandoff()
	logger.Infof("nexboot: target %s, %d paging levels", layout.Name(), layout.NLevels())

	if err := ho.Validate(); err != nil {
		logger.Emergencyf("nexboot: hand-off record failed validation: %v", err)
		os.Exit(1)
	}

	logger.Infof("nexboot: hand-off record ready (%d memory regions, %d modules)",
		len(ho.MemMap), len(ho.Modules))
	fmt.Fprintln(os.Stdout, "nexboot: would transfer control to nexke here")
}
