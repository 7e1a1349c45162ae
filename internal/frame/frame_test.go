package frame

import "testing"

func TestBumpAllocExhaustion(t *testing.T) {
	b := NewBump(0x1000, 2*PageSize, nil)
	p1 := b.AllocPage()
	p2 := b.AllocPage()
	p3 := b.AllocPage()
	if p1 != 0x1000 || p2 != 0x1000+PageSize {
		t.Fatalf("unexpected addresses %x %x", p1, p2)
	}
	if p3 != 0 {
		t.Fatalf("expected exhaustion to return 0, got %x", p3)
	}
}

func TestListAllocFreeRoundTrip(t *testing.T) {
	l := NewList(0x2000, 4*PageSize, nil)
	if l.FreeCount() != 4 {
		t.Fatalf("expected 4 free frames, got %d", l.FreeCount())
	}
	p := l.AllocPage()
	if p == 0 {
		t.Fatalf("expected a frame")
	}
	if l.FreeCount() != 3 {
		t.Fatalf("expected 3 free after alloc, got %d", l.FreeCount())
	}
	l.FreePage(p)
	if l.FreeCount() != 4 {
		t.Fatalf("expected 4 free after free, got %d", l.FreeCount())
	}
}

func TestListRefcountedFree(t *testing.T) {
	l := NewList(0x3000, 1*PageSize, nil)
	p := l.AllocPage()
	l.Retain(p)
	l.FreePage(p)
	if l.FreeCount() != 0 {
		t.Fatalf("frame with outstanding reference must not be freed")
	}
	l.FreePage(p)
	if l.FreeCount() != 1 {
		t.Fatalf("frame should be freed once refcount reaches zero")
	}
}

func TestListDoubleFreePanics(t *testing.T) {
	l := NewList(0x4000, 1*PageSize, nil)
	p := l.AllocPage()
	l.FreePage(p)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on double free")
		}
	}()
	l.FreePage(p)
}

func TestListAllocPagesContiguous(t *testing.T) {
	l := NewList(0x5000, 8*PageSize, nil)
	base := l.AllocPages(3)
	if base == 0 {
		t.Fatalf("expected a contiguous run of 3")
	}
	if l.FreeCount() != 5 {
		t.Fatalf("expected 5 free remaining, got %d", l.FreeCount())
	}
}

func TestReclaimBootRegion(t *testing.T) {
	l := NewList(0x6000, 4*PageSize, nil)
	// Simulate boot frames already carved out as "allocated" by boot.
	p := l.AllocPage()
	p2 := l.AllocPage()
	_ = p2
	if l.FreeCount() != 2 {
		t.Fatalf("setup: expected 2 free, got %d", l.FreeCount())
	}
	ReclaimBootRegion(l, p, PageSize)
	if l.FreeCount() != 3 {
		t.Fatalf("expected reclaimed frame to become free, got %d", l.FreeCount())
	}
}
