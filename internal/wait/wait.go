// Package wait implements wait objects and wait queues (C7): the
// suspend/resume primitive every blocking synchronisation type in
// internal/sync2 is layered on. No example repo in the corpus ships a
// standalone sleep queue or condvar to copy directly — scheduler_
// bootstrap.go only bootstraps g0/m0/P far enough for the Go
// runtime's own gopark/goready to work, it does not implement the
// queue gopark suspends onto. This package's mutex-protected waiter
// list plus pending-wake credit counter, with the signal path and the
// timer-fire path both resolved under one lock, is this module's own
// design for the suspend/resume contract that bootstrap sequence
// implies must exist somewhere.
package wait

import (
	"sync"

	"nexke/internal/timewheel"
)

// Errno is the small explicit-error-code type spec §7 calls for: wait
// primitives are one of only two subsystems (with MUL) that propagate
// an error instead of panicking.
type Errno int

const (
	// EOK is success: the wait resolved via pending credit or a normal
	// wake, never an error in the Go sense, but returned alongside
	// ETIMEDOUT/EWOULDBLOCK/EAGAIN so callers can switch on one type.
	EOK Errno = iota
	// ETIMEDOUT: the armed deadline elapsed before any signal arrived.
	ETIMEDOUT
	// EWOULDBLOCK: the non-blocking flag was set and no credit was
	// available.
	EWOULDBLOCK
	// EAGAIN: the queue was already closed.
	EAGAIN
)

func (e Errno) Error() string {
	switch e {
	case EOK:
		return "wait: ok"
	case ETIMEDOUT:
		return "wait: timed out"
	case EWOULDBLOCK:
		return "wait: would block"
	case EAGAIN:
		return "wait: queue closed"
	default:
		return "wait: unknown"
	}
}

// Scheduler is the subset of internal/sched's contract that wait needs:
// enough to suspend the calling thread and to wake a specific one back
// up. owner is whatever opaque handle the caller passed to AssertWait
// (typically a *sched.Thread); wait never dereferences it itself. A
// real port's Block needs no argument (the CPU's CCB already names the
// current thread); Block takes owner here only because nothing plays
// that role for goroutine-simulated threads in this codebase.
type Scheduler interface {
	// Block suspends owner; the caller must already have placed itself
	// on a wait queue (spec §4.3's block(): "caller must have placed
	// itself on some wait queue").
	Block(owner any)
	// Ready makes owner's thread runnable again.
	Ready(owner any)
}

// WaitObj is the per-waiter record, meant to be inlined in a TCB per
// spec §4.4 ("allocate a WaitObj (inlined in TCB)"); here it is
// allocated by AssertWait or Enqueue since internal/sched's TCB doesn't
// exist at this layer. AssertWait keeps it internal; Enqueue returns it
// as the handle to pass to Park.
type WaitObj struct {
	owner      any
	queue      *Queue
	timer      *timewheel.Event
	linked     bool
	timedOut   bool
	prev, next *WaitObj
}

// Queue is a single wait queue: spec §4.4's suspend/signal/broadcast/
// close contract with pending-wake credit.
type Queue struct {
	mu   sync.Mutex
	head *WaitObj
	tail *WaitObj

	pendingWakes int
	// pendingWakeCap bounds credit accumulation; 0 means uncapped,
	// matching spec §4.4's "up to pending_wakes cap" with the cap left
	// to the caller. sync2's Semaphore, Mutex and Cond all pass 0, so
	// their queues are uncapped.
	pendingWakeCap int
	closed         bool

	scheduler Scheduler
	wheel     *timewheel.Wheel
	now       func() int64
}

// New creates a Queue. scheduler and wheel are the collaborators the
// protocol suspends through and arms timeouts against; now returns the
// current monotonic time in the same units the wheel uses
// (ordinarily clock.Source.Now). pendingWakeCap of 0 means uncapped.
func New(scheduler Scheduler, wheel *timewheel.Wheel, now func() int64, pendingWakeCap int) *Queue {
	return &Queue{scheduler: scheduler, wheel: wheel, now: now, pendingWakeCap: pendingWakeCap}
}

func (q *Queue) pushTail(w *WaitObj) {
	w.prev, w.next = q.tail, nil
	if q.tail != nil {
		q.tail.next = w
	} else {
		q.head = w
	}
	q.tail = w
	w.linked = true
}

func (q *Queue) remove(w *WaitObj) {
	if w.prev != nil {
		w.prev.next = w.next
	} else {
		q.head = w.next
	}
	if w.next != nil {
		w.next.prev = w.prev
	} else {
		q.tail = w.prev
	}
	w.prev, w.next = nil, nil
	w.linked = false
}

// AssertWait is spec §4.4's protocol steps 1-5. timeoutNs <= 0 means
// wait indefinitely. nonBlocking requests EWOULDBLOCK instead of
// suspending when no credit is immediately available.
func (q *Queue) AssertWait(owner any, timeoutNs int64, nonBlocking bool) Errno {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return EAGAIN
	}
	if q.pendingWakes > 0 {
		q.pendingWakes--
		q.mu.Unlock()
		return EOK
	}
	if nonBlocking {
		q.mu.Unlock()
		return EWOULDBLOCK
	}

	w := &WaitObj{owner: owner, queue: q}
	q.pushTail(w)
	if timeoutNs > 0 && q.wheel != nil {
		deadline := q.now() + timeoutNs
		w.timer = q.wheel.Arm(deadline, func(any) { q.onTimeout(w) }, nil)
	}
	q.mu.Unlock()

	q.scheduler.Block(owner)

	q.mu.Lock()
	timedOut := w.timedOut
	q.mu.Unlock()
	if timedOut {
		return ETIMEDOUT
	}
	return EOK
}

// Enqueue registers owner as a waiter without consulting pending-wake
// credit or blocking, returning a handle to pass to Park. It exists
// for callers that must make their own "are we going to wait" decision
// atomic with respect to some other lock — sync2.Mutex's hand-off-vs-
// clear decision on release, and sync2.Cond's atomic unlock-and-wait —
// by performing the enqueue inside that other lock's critical section,
// the same way AssertWait performs its own enqueue-or-consume-credit
// decision inside q.mu in one uninterrupted step.
func (q *Queue) Enqueue(owner any) *WaitObj {
	q.mu.Lock()
	defer q.mu.Unlock()
	w := &WaitObj{owner: owner, queue: q}
	q.pushTail(w)
	return w
}

// Park blocks until w is woken by Signal/Broadcast/WakeOne/Close and
// returns EOK. Enqueue arms no timeout, so a waiter parked this way
// never times out. Call it after Enqueue, with no other lock held.
func (q *Queue) Park(w *WaitObj) Errno {
	q.scheduler.Block(w.owner)
	q.mu.Lock()
	timedOut := w.timedOut
	q.mu.Unlock()
	if timedOut {
		return ETIMEDOUT
	}
	return EOK
}

// WakeOne wakes the longest-waiting thread if one is queued, reporting
// whether it did. Unlike Signal, it never banks a pending-wake credit
// when the queue is empty: sync2.Mutex uses the boolean to decide
// between handing ownership off and clearing its own locked bit, and
// an unconsumed credit left behind here would later let an unrelated
// contended Lock sail through on stale credit while someone else still
// legitimately holds the mutex.
func (q *Queue) WakeOne() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.signalOne()
}

// onTimeout fires from the time wheel (spec §4.5: invoked "with
// interrupts masked", modeled here simply as running under the
// queue's own lock). If w has already been woken by Signal/Broadcast,
// it has already been unlinked and this is a no-op — whichever side
// reaches w first while holding q.mu wins the race spec §4.4 describes
// between a firing timer and a concurrent signal.
func (q *Queue) onTimeout(w *WaitObj) {
	q.mu.Lock()
	if !w.linked {
		q.mu.Unlock()
		return
	}
	q.remove(w)
	w.timedOut = true
	q.mu.Unlock()
	q.scheduler.Ready(w.owner)
}

// signalOne pops and wakes the head waiter, canceling its timer. It is
// called with q.mu held. Returns false if the queue was empty.
func (q *Queue) signalOne() bool {
	w := q.head
	if w == nil {
		return false
	}
	q.remove(w)
	if w.timer != nil {
		q.wheel.Cancel(w.timer)
	}
	q.scheduler.Ready(w.owner)
	return true
}

// Signal wakes one waiter, or banks a pending-wake credit if none are
// queued (spec §4.4's "If empty, increment pending_wakes (bounded)").
func (q *Queue) Signal() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.signalOne() {
		return
	}
	if q.pendingWakeCap <= 0 || q.pendingWakes < q.pendingWakeCap {
		q.pendingWakes++
	}
}

// Broadcast wakes every waiter currently queued. It never accumulates
// pending-wake credit, per spec §4.4.
func (q *Queue) Broadcast() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.signalOne() {
	}
}

// Close broadcasts to every current waiter, then marks the queue
// closed: every AssertWait call from here on returns EAGAIN
// immediately (spec §4.4).
func (q *Queue) Close() {
	q.mu.Lock()
	for q.signalOne() {
	}
	q.closed = true
	q.mu.Unlock()
}

// Waiting reports the number of threads currently queued, for tests
// and diagnostics.
func (q *Queue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for w := q.head; w != nil; w = w.next {
		n++
	}
	return n
}

// PendingWakes reports the current signal credit, for tests.
func (q *Queue) PendingWakes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pendingWakes
}
