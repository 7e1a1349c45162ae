// Package sched implements the scheduler (C8): per-CPU ready queues
// indexed by priority with an O(1) highest-priority lookup bitmask,
// ready/block/schedule/yield/preempt, and preemption gating. There is
// no scheduler.go in the teacher to port: its scheduler_bootstrap.go
// only bootstraps g0/m0/P far enough for the Go runtime's own
// gopark/goready to work ("minimal scheduler initialization to allow
// schedinit() to run") and never implements a ready queue of its own,
// and biscuit's proc/ directory carries a go.mod with no Go source at
// all. The priority-ready-queue-plus-bitmask design here is this
// module's own; only the intrusive next/prev linking idiom is shared
// with internal/ptc and internal/frame.
package sched

import "sync"

// ThreadState is spec §4.3's per-thread scheduling state.
type ThreadState int

const (
	Ready ThreadState = iota
	Running
	Waiting
	Idle
)

func (s ThreadState) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Idle:
		return "idle"
	default:
		return "unknown"
	}
}

// Thread is the scheduling-relevant slice of a TCB. A real port embeds
// this in a much larger structure (registers, kernel stack, address
// space pointer); sched only ever looks at the fields below.
type Thread struct {
	Priority    int
	State       ThreadState
	QuantumLeft int

	prev, next *Thread // intrusive ready-queue link; valid only while State == Ready

	resumeOnce sync.Once
	resume     chan struct{}
}

// NewThread creates a thread at the given priority, initially Waiting
// (callers place it on the ready queue themselves via CCB.Ready once
// it has somewhere to run from).
func NewThread(priority int) *Thread {
	return &Thread{Priority: priority, State: Waiting}
}

func (t *Thread) resumeChan() chan struct{} {
	t.resumeOnce.Do(func() { t.resume = make(chan struct{}, 1) })
	return t.resume
}

type readyList struct {
	head, tail *Thread
}

func (l *readyList) pushTail(t *Thread) {
	t.next, t.prev = nil, l.tail
	if l.tail != nil {
		l.tail.next = t
	} else {
		l.head = t
	}
	l.tail = t
}

func (l *readyList) popHead() *Thread {
	t := l.head
	if t == nil {
		return nil
	}
	l.head = t.next
	if l.head != nil {
		l.head.prev = nil
	} else {
		l.tail = nil
	}
	t.next, t.prev = nil, nil
	return t
}

func (l *readyList) empty() bool { return l.head == nil }

// CCB is one CPU's scheduling-control block: spec §4.3's per-CPU
// ready_queues/cur_thread/idle_thread/preempt_disable_count/preempt_req.
type CCB struct {
	mu sync.Mutex

	queues   []readyList
	nonEmpty uint64 // bitmask, bit i set iff queues[i] is non-empty; requires Priorities <= 64

	QuantumTotal int

	CurThread  *Thread
	IdleThread *Thread

	preemptDisableCount int
	preemptReq          bool

	LastScheduleNs int64
}

// New creates a CCB with the given number of priority levels (spec:
// "P fixed, >= 8") and per-thread quantum, starting on idleThread.
func New(priorities int, quantumTotal int, idleThread *Thread) *CCB {
	if priorities < 1 || priorities > 64 {
		panic("sched: priorities must be in [1,64]")
	}
	idleThread.State = Idle
	return &CCB{
		queues:       make([]readyList, priorities),
		QuantumTotal: quantumTotal,
		CurThread:    idleThread,
		IdleThread:   idleThread,
	}
}

func (c *CCB) enqueue(t *Thread) {
	t.State = Ready
	c.queues[t.Priority].pushTail(t)
	c.nonEmpty |= 1 << uint(t.Priority)
}

func (c *CCB) highestReady() int {
	if c.nonEmpty == 0 {
		return -1
	}
	return bitsTrailingZero(c.nonEmpty)
}

// bitsTrailingZero returns the index of the lowest set bit, i.e. the
// numerically smallest non-empty priority level. Priority 0 is treated
// as highest, matching mazarin's convention (lower number = more
// urgent); callers that want "bigger number wins" simply invert their
// own priority assignment.
func bitsTrailingZero(mask uint64) int {
	for i := 0; i < 64; i++ {
		if mask&(1<<uint(i)) != 0 {
			return i
		}
	}
	return -1
}

// Ready is spec §4.3's ready(thread): enqueue at the tail of its
// priority's queue; if the new thread outranks the one currently
// running, flag a preemption request for the running thread to honor
// at its next gating check (Schedule/EnablePreempt). If thread was
// parked via Block, also physically resumes its goroutine.
func (c *CCB) Ready(thread *Thread) {
	c.mu.Lock()
	c.enqueue(thread)
	if thread.Priority < c.CurThread.Priority {
		c.preemptReq = true
	}
	c.mu.Unlock()

	select {
	case thread.resumeChan() <- struct{}{}:
	default:
	}
}

// Block is spec §4.3's block(): the caller has already arranged for
// thread to be woken (e.g. placed onto a wait queue) and is not on any
// ready queue right now. It marks the thread Waiting, runs the
// bookkeeping half of a reschedule, and then parks the calling
// goroutine until a matching Ready call resumes it -- the stand-in for
// an actual context switch away from and back to this thread.
func (c *CCB) Block(thread *Thread) {
	c.mu.Lock()
	thread.State = Waiting
	c.reschedule(0)
	c.mu.Unlock()

	<-thread.resumeChan()
}

// Adapter exposes a CCB as a wait.Scheduler (internal/wait's Block/
// Ready take an opaque `any` owner since wait has no reason to know
// about sched.Thread concretely); it type-asserts owners back to
// *Thread, which is the only kind of owner sched ever hands out.
type Adapter struct{ CCB *CCB }

// NewAdapter wraps ccb so it satisfies wait.Scheduler.
func NewAdapter(ccb *CCB) Adapter { return Adapter{CCB: ccb} }

func (a Adapter) Block(owner any) { a.CCB.Block(owner.(*Thread)) }
func (a Adapter) Ready(owner any) { a.CCB.Ready(owner.(*Thread)) }

// Schedule is spec §4.3's schedule(): pick the highest-priority
// non-empty queue, or idle if none, and make it current. nowNs
// supplies last_schedule_ns; callers pass their clock's Now().
func (c *CCB) Schedule(nowNs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reschedule(nowNs)
}

func (c *CCB) reschedule(nowNs int64) {
	prio := c.highestReady()
	var next *Thread
	if prio < 0 {
		next = c.IdleThread
	} else {
		next = c.queues[prio].popHead()
		if c.queues[prio].empty() {
			c.nonEmpty &^= 1 << uint(prio)
		}
	}

	if next != c.CurThread {
		next.QuantumLeft = c.QuantumTotal
	}
	next.State = Running
	c.CurThread = next
	c.LastScheduleNs = nowNs
}

// Yield is spec §4.3's yield(): push the running thread to the back
// of its own ready queue and reschedule.
func (c *CCB) Yield(nowNs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.CurThread
	if cur != c.IdleThread {
		c.enqueue(cur)
	}
	c.reschedule(nowNs)
}

// Preempt is spec §4.3's preempt(): invoked from the timer tick.
// Decrements the running thread's quantum; if it reaches zero and
// another thread at the same priority is ready, rotate; otherwise let
// the current thread continue.
func (c *CCB) Preempt(nowNs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.CurThread
	if cur == c.IdleThread {
		return
	}
	cur.QuantumLeft--
	if cur.QuantumLeft > 0 {
		return
	}
	if c.queues[cur.Priority].empty() {
		cur.QuantumLeft = c.QuantumTotal
		return
	}
	c.enqueue(cur)
	c.reschedule(nowNs)
}

// DisablePreempt/EnablePreempt maintain spec §4.3's preempt_disable_count.
// When the count returns to zero with a pending preemption request,
// EnablePreempt yields immediately.
func (c *CCB) DisablePreempt() {
	c.mu.Lock()
	c.preemptDisableCount++
	c.mu.Unlock()
}

func (c *CCB) EnablePreempt(nowNs int64) {
	c.mu.Lock()
	c.preemptDisableCount--
	if c.preemptDisableCount < 0 {
		c.mu.Unlock()
		panic("sched: EnablePreempt without matching DisablePreempt")
	}
	yieldNow := c.preemptDisableCount == 0 && c.preemptReq
	if yieldNow {
		c.preemptReq = false
	}
	c.mu.Unlock()
	if yieldNow {
		c.Yield(nowNs)
	}
}

// PreemptDisableCount reports the current nesting depth, for tests.
func (c *CCB) PreemptDisableCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preemptDisableCount
}

// PreemptRequested reports whether a preemption is pending, for tests.
func (c *CCB) PreemptRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preemptReq
}
