// Package clock is the platform-clock-and-timer collaborator (C3): a
// monotonic nanosecond clock plus the ability to arm a one-shot
// hardware deadline and have it deliver a tick callback. The teacher's
// nanotime.go reads the ARM generic timer counter and converts ticks
// to nanoseconds with a frequency captured at init; Source mirrors that
// shape (Now/arm) without hard-coding a register layout, so the same
// contract serves the real hardware port and the software fake used by
// tests.
package clock

import "time"

// Source is the collaborator the time-event wheel (C6) is built on.
type Source interface {
	// Now returns nanoseconds on a monotonic clock. The origin is
	// unspecified; only differences are meaningful.
	Now() int64
	// Arm schedules a single hardware interrupt at or after
	// deadlineNs. Arming with a past deadline fires
	// as soon as possible. Arm(0) is invalid; callers disarm via
	// Disarm instead. A new Arm call before the previous one fires
	// replaces it (single outstanding one-shot per Source).
	Arm(deadlineNs int64)
	// Disarm cancels any outstanding one-shot. Safe to call when
	// nothing is armed.
	Disarm()
	// SetCallback installs the function invoked when an armed deadline
	// elapses. A real port wires this to its timer interrupt's top
	// half; Fake's Advance plays that role for tests.
	SetCallback(cb Callback)
}

// Callback is invoked when an armed deadline elapses. It runs with
// interrupts masked at ipl.High on the arming CPU, matching spec §4.5;
// it must be short and must not block.
type Callback func()

// Fake is a software Source for tests and host tooling: Now advances
// only when Advance is called, and Arm/Disarm are recorded rather than
// driving real hardware. Advance invokes the installed callback once
// Now has passed the armed deadline; a real port's interrupt handler
// plays that role.
type Fake struct {
	now     int64
	armed   bool
	arm     int64
	onFire  Callback
	fireLog []int64
}

// NewFake returns a Fake clock starting at t=0.
func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) Now() int64 { return f.now }

func (f *Fake) Arm(deadlineNs int64) {
	f.armed = true
	f.arm = deadlineNs
}

func (f *Fake) Disarm() {
	f.armed = false
}

// SetCallback installs the function Advance invokes when the clock has
// been advanced past an armed deadline.
func (f *Fake) SetCallback(cb Callback) { f.onFire = cb }

// Advance moves the clock forward by d and fires the installed
// callback at most once if the armed deadline was crossed, mirroring a
// real one-shot timer (which must be re-armed by its own callback to
// fire again).
func (f *Fake) Advance(d time.Duration) {
	f.now += int64(d)
	if f.armed && f.now >= f.arm {
		f.armed = false
		f.fireLog = append(f.fireLog, f.now)
		if f.onFire != nil {
			f.onFire()
		}
	}
}

// Armed reports whether a deadline is currently outstanding, and what
// it is. Used by tests asserting the time wheel's armed-deadline
// invariant (spec §8).
func (f *Fake) Armed() (deadline int64, ok bool) {
	return f.arm, f.armed
}
