package wait

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"nexke/internal/clock"
	"nexke/internal/timewheel"
)

// fakeScheduler stands in for internal/sched in these tests: each
// owner gets a buffered channel that Block receives from and Ready
// sends to, simulating "suspend this thread" / "make it runnable"
// without a real scheduler.
type fakeScheduler struct {
	mu   sync.Mutex
	wake map[any]chan struct{}
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{wake: make(map[any]chan struct{})}
}

func (f *fakeScheduler) chanFor(owner any) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.wake[owner]
	if !ok {
		ch = make(chan struct{}, 1)
		f.wake[owner] = ch
	}
	return ch
}

func (f *fakeScheduler) Block(owner any) {
	<-f.chanFor(owner)
}

func (f *fakeScheduler) Ready(owner any) {
	select {
	case f.chanFor(owner) <- struct{}{}:
	default:
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition never became true")
}

func TestSignalWakesWaiter(t *testing.T) {
	sched := newFakeScheduler()
	q := New(sched, nil, nil, 0)

	result := make(chan Errno, 1)
	go func() { result <- q.AssertWait("t1", 0, false) }()

	waitUntil(t, func() bool { return q.Waiting() == 1 })
	q.Signal()

	select {
	case err := <-result:
		if err != EOK {
			t.Fatalf("expected EOK, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("AssertWait never returned after Signal")
	}
	if q.Waiting() != 0 {
		t.Fatalf("expected queue empty after signal")
	}
}

func TestPendingWakeCreditBeforeWaiterArrives(t *testing.T) {
	sched := newFakeScheduler()
	q := New(sched, nil, nil, 0)

	q.Signal() // no waiters yet: banks one credit
	if q.PendingWakes() != 1 {
		t.Fatalf("expected one banked credit, got %d", q.PendingWakes())
	}

	err := q.AssertWait("t1", 0, false)
	if err != EOK {
		t.Fatalf("expected EOK consuming the banked credit, got %v", err)
	}
	if q.PendingWakes() != 0 {
		t.Fatalf("expected credit consumed")
	}
}

func TestNonBlockingReturnsEWouldBlock(t *testing.T) {
	sched := newFakeScheduler()
	q := New(sched, nil, nil, 0)
	if err := q.AssertWait("t1", 0, true); err != EWOULDBLOCK {
		t.Fatalf("expected EWOULDBLOCK, got %v", err)
	}
}

func TestClosedQueueReturnsEAgain(t *testing.T) {
	sched := newFakeScheduler()
	q := New(sched, nil, nil, 0)
	q.Close()
	if err := q.AssertWait("t1", 0, false); err != EAGAIN {
		t.Fatalf("expected EAGAIN on a closed queue, got %v", err)
	}
}

func TestCloseWakesExistingWaiters(t *testing.T) {
	sched := newFakeScheduler()
	q := New(sched, nil, nil, 0)

	result := make(chan Errno, 1)
	go func() { result <- q.AssertWait("t1", 0, false) }()
	waitUntil(t, func() bool { return q.Waiting() == 1 })

	q.Close()
	select {
	case err := <-result:
		if err != EOK {
			t.Fatalf("expected EOK (woken, not timed out) from close, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("close did not wake the waiter")
	}
}

func TestBroadcastWakesEveryone(t *testing.T) {
	sched := newFakeScheduler()
	q := New(sched, nil, nil, 0)

	n := 3
	results := make(chan Errno, n)
	for i := 0; i < n; i++ {
		owner := i
		go func() { results <- q.AssertWait(owner, 0, false) }()
	}
	waitUntil(t, func() bool { return q.Waiting() == n })

	q.Broadcast()
	for i := 0; i < n; i++ {
		select {
		case err := <-results:
			if err != EOK {
				t.Fatalf("expected EOK, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("broadcast did not wake all waiters")
		}
	}
}

func TestTimeoutFiresETimedOut(t *testing.T) {
	sched := newFakeScheduler()
	fc := clock.NewFake()
	wheel := timewheel.New(fc)
	q := New(sched, wheel, fc.Now, 0)

	result := make(chan Errno, 1)
	go func() { result <- q.AssertWait("t1", 10, false) }()
	waitUntil(t, func() bool { return q.Waiting() == 1 })

	fc.Advance(10 * time.Nanosecond)

	select {
	case err := <-result:
		if err != ETIMEDOUT {
			t.Fatalf("expected ETIMEDOUT, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout never fired")
	}
	if q.Waiting() != 0 {
		t.Fatalf("expected waiter removed from queue after timeout")
	}
}

func TestSignalBeatsTimeoutWhenEarlier(t *testing.T) {
	sched := newFakeScheduler()
	fc := clock.NewFake()
	wheel := timewheel.New(fc)
	q := New(sched, wheel, fc.Now, 0)

	result := make(chan Errno, 1)
	go func() { result <- q.AssertWait("t1", 1000, false) }()
	waitUntil(t, func() bool { return q.Waiting() == 1 })

	q.Signal()
	select {
	case err := <-result:
		if err != EOK {
			t.Fatalf("expected EOK since signal arrived before the deadline, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("signal did not wake the waiter")
	}

	// Advancing the clock past the (now-canceled) deadline must not
	// cause a second, spurious wake.
	fc.Advance(2000 * time.Nanosecond)
}

// TestPendingWakeCapTable exercises the pending-wake credit cap across
// a table of {cap, signals banked, non-blocking attempts} cases,
// comparing each case's sequence of AssertWait outcomes against what
// the cap should allow in one diff rather than one assertion per
// attempt.
func TestPendingWakeCapTable(t *testing.T) {
	cases := []struct {
		name     string
		cap      int
		signals  int
		attempts int
		want     []Errno
	}{
		{
			name:     "uncapped banks every signal",
			cap:      0,
			signals:  3,
			attempts: 4,
			want:     []Errno{EOK, EOK, EOK, EWOULDBLOCK},
		},
		{
			name:     "capped at one ignores the extra signal",
			cap:      1,
			signals:  3,
			attempts: 2,
			want:     []Errno{EOK, EWOULDBLOCK},
		},
		{
			name:     "capped at two banks exactly two",
			cap:      2,
			signals:  3,
			attempts: 3,
			want:     []Errno{EOK, EOK, EWOULDBLOCK},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sched := newFakeScheduler()
			q := New(sched, nil, nil, c.cap)
			for i := 0; i < c.signals; i++ {
				q.Signal()
			}

			got := make([]Errno, c.attempts)
			for i := range got {
				got[i] = q.AssertWait(i, 0, true)
			}

			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Fatalf("AssertWait outcomes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
