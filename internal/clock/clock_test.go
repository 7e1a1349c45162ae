package clock

import (
	"testing"
	"time"
)

func TestFakeFiresOnceAtDeadline(t *testing.T) {
	c := NewFake()
	fires := 0
	c.SetCallback(func() { fires++ })
	c.Arm(100)

	c.Advance(50 * time.Nanosecond)
	if fires != 0 {
		t.Fatalf("must not fire before the deadline")
	}
	c.Advance(50 * time.Nanosecond)
	if fires != 1 {
		t.Fatalf("expected exactly one fire at the deadline, got %d", fires)
	}

	// A one-shot does not refire on its own; only a fresh Arm does.
	c.Advance(1000 * time.Nanosecond)
	if fires != 1 {
		t.Fatalf("one-shot timer must not refire without being re-armed")
	}
}

func TestDisarmPreventsFire(t *testing.T) {
	c := NewFake()
	fires := 0
	c.SetCallback(func() { fires++ })
	c.Arm(10)
	c.Disarm()
	c.Advance(100 * time.Nanosecond)
	if fires != 0 {
		t.Fatalf("disarmed clock must not fire")
	}
}

func TestNowAdvances(t *testing.T) {
	c := NewFake()
	if c.Now() != 0 {
		t.Fatalf("expected fresh clock to start at 0")
	}
	c.Advance(250 * time.Nanosecond)
	if c.Now() != 250 {
		t.Fatalf("expected Now to reflect Advance, got %d", c.Now())
	}
}
