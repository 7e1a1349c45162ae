// Command nexke is the kernel entry point: it wires every collaborator
// built under internal/ into one running system and brings up a
// handful of demo threads to exercise the scheduler and sync core end
// to end. A real port's entry point is called from assembly after the
// bootloader's hand-off (spec §6); this one is invoked as an ordinary
// Go program and synthesizes its own hand-off record, since nothing in
// this repository runs on real hardware. The staged, narrated
// bring-up below is grounded in the teacher's kernelMainBody (UART
// init, MMU init, timer init, scheduler init, each announced on the
// console before the next begins), translated into the portable,
// simulated form the rest of this module already uses (Soft IPL gate,
// Fake clock, SimPhysMem) rather than reaching for //go:linkname and
// inline assembly the way the teacher does for its one real target.
package main

import (
	"fmt"
	"os"
	"sync"

	"nexke/internal/clock"
	"nexke/internal/console"
	"nexke/internal/frame"
	"nexke/internal/handoff"
	"nexke/internal/ipl"
	"nexke/internal/klog"
	"nexke/internal/mul"
	"nexke/internal/objtree"
	"nexke/internal/ptc"
	"nexke/internal/sched"
	"nexke/internal/sync2"
	"nexke/internal/timewheel"
	"nexke/internal/wait"
	"nexke/pkg/archparam"
)

func main() {
	logger := klog.New(klog.NewConsoleSink(console.New(os.Stdout)), klog.Debug)
	if err := boot(logger); err != nil {
		logger.Emergencyf("boot failed: %v", err)
		os.Exit(1)
	}
}

// namedNode satisfies objtree.Node with nothing but a fixed name;
// none of the collaborators registered below (the frame allocator,
// the clock) have a Name() method of their own, since naming is a
// registry concern, not theirs.
type namedNode struct{ name string }

func (n namedNode) Name() string { return n.name }

func newNamedNode(name string) namedNode { return namedNode{name: name} }

func demoHandoff() *handoff.Handoff {
	return &handoff.Handoff{
		FirmwareType: "simulated",
		SystemName:   "nexke",
		CommandLine:  "console=host",
		MemMap: []handoff.MemEntry{
			{Base: 0, Size: 16 * 1024 * 1024, Type: handoff.Free},
			{Base: 16 * 1024 * 1024, Size: 4096, Type: handoff.BootReclaim},
		},
		EarlyPoolBase: 16*1024*1024 + 4096,
		EarlyPoolSize: 128 * 1024,
	}
}

// boot runs the staged bring-up and then a short scheduler/sync demo,
// returning once the demo threads have all finished. Every stage is
// narrated through logger, mirroring the teacher's staged console
// breadcrumbs.
func boot(logger *klog.Logger) error {
	logger.Noticef("stage 0: hand-off record")
	ho := demoHandoff()
	if err := ho.Validate(); err != nil {
		return fmt.Errorf("hand-off record failed validation: %w", err)
	}

	logger.Noticef("stage 1: interrupt gate")
	gate := ipl.NewSoft()
	old := gate.Raise(ipl.High)
	defer gate.Lower(old)

	logger.Noticef("stage 2: early frame allocator")
	hostZero, hostMem := newHostZero(20 * 1024 * 1024)
	defer hostMem.Close()
	early := frame.NewBump(frame.Paddr(ho.EarlyPoolBase), ho.EarlyPoolSize, hostZero)
	logger.Debugf("early pool: %d frames available", early.Remaining())

	logger.Noticef("stage 3: page-table cache")
	cache := ptc.New(ptc.NewSimPhysMem(), 8)

	logger.Noticef("stage 4: post-hand-off frame allocator")
	free := ho.FreeRegions()[0]
	frames := frame.NewList(frame.Paddr(free.Base), free.Size, hostZero)
	for _, r := range ho.BootReclaimRegions() {
		frame.ReclaimBootRegion(frames, frame.Paddr(r.Base), r.Size)
	}
	logger.Debugf("frame allocator: %d frames free", frames.FreeCount())

	logger.Noticef("stage 5: memory unit layer")
	layout := archparam.LongMode
	memUnit := mul.New(layout, cache, frames)
	topLevel := frames.AllocPersistentPage()
	if topLevel == 0 {
		return fmt.Errorf("out of memory allocating the top-level page table")
	}
	space := mul.NewAddressSpace(topLevel)
	const demoVaddr = 0x0000_7f00_0000_0000
	demoFrame := frames.AllocPage()
	if demoFrame == 0 {
		return fmt.Errorf("out of memory allocating the demo page")
	}
	if err := memUnit.Map(space, demoVaddr, demoFrame, archparam.R|archparam.W); err != nil {
		return fmt.Errorf("mapping demo page: %w", err)
	}
	if _, present := memUnit.Get(space, demoVaddr); !present {
		return fmt.Errorf("demo page did not read back as present after Map")
	}
	logger.Debugf("mapped demo page at %#x on %s", demoVaddr, layout.Name())

	logger.Noticef("stage 6: clock and time wheel")
	clk := clock.NewFake()
	wheel := timewheel.New(clk)

	logger.Noticef("stage 7: scheduler")
	idle := sched.NewThread(63)
	ccb := sched.New(8, 10, idle)
	adapter := sched.NewAdapter(ccb)

	logger.Noticef("stage 8: wait and sync core")
	waitQueue := wait.New(adapter, wheel, clk.Now, 0)
	logger.Debugf("wait queue ready, %d waiters parked", waitQueue.Waiting())
	mu := sync2.NewMutex(adapter)

	logger.Noticef("stage 9: object-tree registry")
	tree := objtree.New()
	tree.Register(newNamedNode("frame0"))
	tree.Register(newNamedNode("clock0"))
	if _, ok := tree.Lookup("frame0"); !ok {
		return fmt.Errorf("frame0 did not register")
	}

	logger.Noticef("stage 10: demo threads")
	runDemoThreads(logger, mu)

	logger.Noticef("boot complete")
	return nil
}

// runDemoThreads spawns a handful of goroutine-backed threads that
// contend over a single sync2.Mutex, exercising sched.CCB's Block/
// Ready path through the Adapter whenever the mutex is actually held
// by another thread. Purely illustrative: a real kernel's threads run
// kernel or user code, not this increment loop.
func runDemoThreads(logger *klog.Logger, mu *sync2.Mutex) {
	const workers = 4
	const increments = 50

	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		thread := sched.NewThread(i % 8)
		go func(id int, t *sched.Thread) {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				mu.Lock(t)
				counter++
				mu.Unlock()
			}
		}(i, thread)
	}

	wg.Wait()
	logger.Infof("demo threads finished, counter=%d (want %d)", counter, workers*increments)
}
