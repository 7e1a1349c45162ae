// Package sync2 implements the blocking synchronisation primitives
// (C9) layered on internal/wait (C7): Semaphore, Mutex, and Cond.
// Named sync2 to avoid colliding with the standard library's sync,
// which these deliberately do not wrap — they block through the
// kernel's own wait-queue/scheduler path rather than a goroutine
// park, per spec §4.4's layering. None of the corpus kernels ships a
// mutex/semaphore/condvar implementation to port directly; Mutex's
// direct-hand-off release (Unlock keeps locked true and wakes the next
// waiter straight through instead of clearing the bit for anyone to
// grab) and Semaphore's count-as-pending-wakes framing both come
// straight from spec §4.4's own description. What is grounded in the
// corpus is the discipline, not the shape: every decision here that
// must stay atomic with a concurrent Signal/Broadcast is made under
// the same lock that guards the decision it races against, exactly
// the way internal/wait resolves its own signal-vs-timeout race under
// one lock instead of a bare atomic.
package sync2

import (
	"sync"

	"nexke/internal/wait"
)

// Semaphore is spec §4.4's semaphore: initial pending_wakes = count;
// acquire = wait, release = signal.
type Semaphore struct {
	q *wait.Queue
}

// NewSemaphore creates a semaphore with the given initial count,
// banked directly as the queue's pending-wake credit.
func NewSemaphore(scheduler wait.Scheduler, count int) *Semaphore {
	q := wait.New(scheduler, nil, nil, 0)
	for i := 0; i < count; i++ {
		q.Signal()
	}
	return &Semaphore{q: q}
}

// Acquire blocks (or consumes banked credit) until a unit is
// available. owner identifies the calling thread to the scheduler.
func (s *Semaphore) Acquire(owner any) wait.Errno {
	return s.q.AssertWait(owner, 0, false)
}

// TryAcquire is the non-blocking form, returning EWOULDBLOCK instead
// of suspending when no unit is immediately available.
func (s *Semaphore) TryAcquire(owner any) wait.Errno {
	return s.q.AssertWait(owner, 0, true)
}

// Release returns one unit, waking a waiter if any are queued.
func (s *Semaphore) Release() { s.q.Signal() }

// Mutex is spec §4.4's mutex: one-bit state plus a wait queue.
// Release hands ownership directly to the next waiter without
// clearing `locked`, preventing a wake-and-race where a third thread
// could steal the lock between the wake and the waiter actually
// running.
//
// The bit and the queue live behind one lock, mu, and every place that
// reads or changes either one does so without releasing mu first: a
// thread that finds the mutex already held enqueues itself onto q
// before mu is released, and a concurrent Unlock's "is anyone
// waiting" check happens under that same mu. An earlier version of
// this type checked `locked` and called AssertWait as two separate
// steps under mu, releasing mu in between — a thread could observe
// `locked == true` and commit to waiting, but not yet have reached
// AssertWait when a concurrent Unlock ran, found the queue still
// empty, and cleared `locked` without signalling anything. The waiter
// then enqueued into a queue nobody would ever wake again. Keeping the
// enqueue inside the same critical section as the bit closes that
// window: Unlock cannot observe "nobody is waiting" while a Lock call
// is still between its own check and its own enqueue.
type Mutex struct {
	mu     sync.Mutex // guards locked and serializes it against q's enqueue/wake
	locked bool
	q      *wait.Queue
}

// NewMutex creates an unlocked mutex.
func NewMutex(scheduler wait.Scheduler) *Mutex {
	return &Mutex{q: wait.New(scheduler, nil, nil, 0)}
}

// Lock acquires the mutex, blocking through the wait queue if it is
// already held.
func (m *Mutex) Lock(owner any) {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return
	}
	w := m.q.Enqueue(owner)
	m.mu.Unlock()
	// Waking from here means ownership was handed directly to us by
	// Unlock (see release): locked is already true on our behalf.
	m.q.Park(w)
}

// Unlock releases the mutex. If a waiter is queued, ownership passes
// directly to it (locked stays true); otherwise locked is cleared.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// release performs the hand-off-vs-clear decision described on Mutex.
// mu must already be held.
func (m *Mutex) release() {
	if !m.q.WakeOne() {
		m.locked = false
	}
}

// unlockAndEnqueue is Cond.Wait's building block: it enqueues owner
// onto q and releases m as a single step under m's own lock, so that
// nothing can call Signal/Broadcast on q between the unlock and the
// enqueue — the same race Lock/Unlock above closes, but for a
// companion queue instead of m's own.
func (m *Mutex) unlockAndEnqueue(q *wait.Queue, owner any) *wait.WaitObj {
	m.mu.Lock()
	w := q.Enqueue(owner)
	m.release()
	m.mu.Unlock()
	return w
}

// Cond is a condition variable associated with a companion Mutex, per
// spec §4.4: Wait atomically unlocks the mutex and enqueues, then
// re-acquires the mutex before returning.
type Cond struct {
	mu *Mutex
	q  *wait.Queue
}

// NewCond creates a condition variable guarded by mu.
func NewCond(scheduler wait.Scheduler, mu *Mutex) *Cond {
	return &Cond{mu: mu, q: wait.New(scheduler, nil, nil, 0)}
}

// Wait unlocks the companion mutex, suspends until Signal/Broadcast,
// then re-acquires the mutex before returning. The caller must hold
// mu when calling Wait, exactly as with the standard library's
// sync.Cond.
//
// The unlock and the enqueue happen together inside mu's own
// companion-mutex lock (see Mutex.unlockAndEnqueue), not as two
// separate steps. Doing them separately — unlock first, enqueue after
// — leaves a window where another thread can acquire mu, change the
// state Wait's caller was waiting on, call Broadcast (which, unlike
// Signal, never banks a pending-wake credit for an empty queue), and
// release mu, all before this call has actually enqueued itself. That
// broadcast would then wake no one, and this call would go on to
// enqueue and block with no further signal ever coming. Doing the
// enqueue and the release atomically means no other thread can even
// acquire mu — and therefore cannot call Broadcast as part of holding
// it in the usual pattern — until after the enqueue has already
// happened.
func (c *Cond) Wait(owner any) {
	w := c.mu.unlockAndEnqueue(c.q, owner)
	c.q.Park(w)
	c.mu.Lock(owner)
}

// Signal wakes one waiter.
func (c *Cond) Signal() { c.q.Signal() }

// Broadcast wakes every waiter.
func (c *Cond) Broadcast() { c.q.Broadcast() }
