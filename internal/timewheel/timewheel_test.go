package timewheel

import (
	"testing"
	"time"

	"nexke/internal/clock"
)

func TestArmFiresInOrder(t *testing.T) {
	c := clock.NewFake()
	w := New(c)

	var fired []string
	w.Arm(30, func(arg any) { fired = append(fired, arg.(string)) }, "third")
	w.Arm(10, func(arg any) { fired = append(fired, arg.(string)) }, "first")
	w.Arm(20, func(arg any) { fired = append(fired, arg.(string)) }, "second")

	deadline, ok := c.Armed()
	if !ok || deadline != 10 {
		t.Fatalf("expected the earliest deadline (10) armed, got %d ok=%v", deadline, ok)
	}

	c.Advance(10 * time.Nanosecond)
	if len(fired) != 1 || fired[0] != "first" {
		t.Fatalf("expected only the first event to fire, got %v", fired)
	}
	deadline, ok = c.Armed()
	if !ok || deadline != 20 {
		t.Fatalf("expected reprogram to the next deadline (20), got %d ok=%v", deadline, ok)
	}

	c.Advance(10 * time.Nanosecond)
	c.Advance(10 * time.Nanosecond)
	if len(fired) != 3 {
		t.Fatalf("expected all three events to have fired by now, got %v", fired)
	}
	if fired[1] != "second" || fired[2] != "third" {
		t.Fatalf("fired out of deadline order: %v", fired)
	}
}

func TestCancelHeadReprograms(t *testing.T) {
	c := clock.NewFake()
	w := New(c)

	fired := false
	e1 := w.Arm(10, func(any) { fired = true }, nil)
	w.Arm(20, func(any) {}, nil)

	w.Cancel(e1)
	deadline, ok := c.Armed()
	if !ok || deadline != 20 {
		t.Fatalf("expected cancel of the head to reprogram to 20, got %d ok=%v", deadline, ok)
	}

	c.Advance(10 * time.Nanosecond)
	if fired {
		t.Fatalf("canceled event must not fire")
	}
}

func TestCancelNonHeadDoesNotReprogram(t *testing.T) {
	c := clock.NewFake()
	w := New(c)

	w.Arm(10, func(any) {}, nil)
	e2 := w.Arm(20, func(any) {}, nil)

	w.Cancel(e2)
	deadline, ok := c.Armed()
	if !ok || deadline != 10 {
		t.Fatalf("expected head's deadline (10) to remain armed, got %d ok=%v", deadline, ok)
	}
}

func TestCancelTwiceIsNoOp(t *testing.T) {
	c := clock.NewFake()
	w := New(c)
	e := w.Arm(10, func(any) {}, nil)
	w.Cancel(e)
	w.Cancel(e) // must not panic or corrupt the list
	if _, ok := c.Armed(); ok {
		t.Fatalf("expected the wheel to be disarmed once empty")
	}
}

func TestEmptyWheelDisarmsOnLastFire(t *testing.T) {
	c := clock.NewFake()
	w := New(c)
	w.Arm(10, func(any) {}, nil)
	c.Advance(10 * time.Nanosecond)
	if _, ok := c.Armed(); ok {
		t.Fatalf("expected clock to be disarmed once the wheel is empty")
	}
}
