// Package timewheel implements the Time-Event Wheel (C6): an ordered
// list of deadline-sorted events per CPU, driving a single one-shot
// hardware timer exposed through internal/clock.Source. The teacher's
// own timer_qemu.go programs exactly one deadline register
// (cntv_cval_el0) and fires exactly one interrupt per arm — it never
// needed a list, since its bootstrap only ever waits on one thing at a
// time. This package's sorted-insert-with-reprogram-on-head-change
// design generalises that single-deadline register into a queue of
// many independent software deadlines multiplexed onto it, which none
// of the corpus repos implement directly.
package timewheel

import "nexke/internal/clock"

// Callback runs at IPL_HIGH (interrupts masked) when its deadline
// elapses; per spec §4.5 it "must be short" — typically just a call
// into internal/sched.Ready for the thread it is waking.
type Callback func(arg any)

// Event is one armed deadline. Callers hold onto the pointer returned
// by Arm only to pass to Cancel; no other field is meant to be read.
type Event struct {
	deadlineNs int64
	cb         Callback
	arg        any
	next       *Event
	canceled   bool
}

// Wheel is a single CPU's sorted event list, backed by a
// clock.Source for both "now" and hardware timer arm/disarm.
type Wheel struct {
	clock clock.Source
	head  *Event
}

// New creates a Wheel driven by the given clock source. One Wheel per
// CPU, per spec §4.5/§5 ("Time-event list: one spinlock per CPU") —
// the caller is responsible for serializing access to a Wheel the same
// way it would serialize any other per-CPU structure (this package
// itself takes no lock, matching the "never hold two spinlocks
// simultaneously except cpu-time-event after queue" ordering rule,
// which only makes sense if this layer doesn't introduce its own).
func New(c clock.Source) *Wheel {
	w := &Wheel{clock: c}
	c.SetCallback(w.tick)
	return w
}

// Arm inserts a new event sorted by deadline (spec §4.5: "insert
// sorted; if new head, reprogram the one-shot hardware timer for
// deadline - now()"). deadlineNs is an absolute monotonic nanosecond
// timestamp, matching clock.Source.Now's unit.
func (w *Wheel) Arm(deadlineNs int64, cb Callback, arg any) *Event {
	e := &Event{deadlineNs: deadlineNs, cb: cb, arg: arg}

	if w.head == nil || deadlineNs < w.head.deadlineNs {
		e.next = w.head
		w.head = e
		w.clock.Arm(deadlineNs)
		return e
	}

	cur := w.head
	for cur.next != nil && cur.next.deadlineNs <= deadlineNs {
		cur = cur.next
	}
	e.next = cur.next
	cur.next = e
	return e
}

// Cancel removes e from the list (spec §4.5: "remove; if head
// removed, reprogram to new head (or disarm)"). Canceling an event
// that has already fired or already been canceled is a no-op.
func (w *Wheel) Cancel(e *Event) {
	if e.canceled {
		return
	}
	e.canceled = true

	if w.head == e {
		w.head = e.next
		w.reprogram()
		return
	}
	cur := w.head
	for cur != nil && cur.next != e {
		cur = cur.next
	}
	if cur != nil {
		cur.next = e.next
	}
}

func (w *Wheel) reprogram() {
	if w.head == nil {
		w.clock.Disarm()
		return
	}
	w.clock.Arm(w.head.deadlineNs)
}

// tick is the clock.Callback registered with the clock source: it pops
// every event whose deadline has elapsed and invokes its callback,
// then reprograms the timer for whatever is left (spec §4.5: "pop all
// events with deadline <= now, invoke their callbacks ..., then
// reprogram").
func (w *Wheel) tick() {
	nowNs := w.clock.Now()
	for w.head != nil && w.head.deadlineNs <= nowNs {
		e := w.head
		w.head = e.next
		e.next = nil
		e.canceled = true
		e.cb(e.arg)
	}
	w.reprogram()
}
