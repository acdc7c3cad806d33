package muxer

import (
	"context"
	"sync"
	"testing"
	"time"

	"libdb.so/luxmux/internal/led"
)

// fakeClock lets tests control expiry without sleeping through real
// timeouts. NowMS is safe for concurrent use since the actor goroutine and
// the test goroutine both read it.
type fakeClock struct {
	mu  sync.Mutex
	now int64
}

func (c *fakeClock) NowMS() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += ms
}

// recorder collects events published on a bus, for assertions on ordering
// and edges.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func newTestMuxer(t *testing.T) (*Muxer, *fakeClock, *recorder, context.CancelFunc) {
	t.Helper()
	clock := &fakeClock{}
	m := New(nil, clock, 3)

	rec := &recorder{}
	m.Bus().OnVisiblePriorityChanged(func(e VisiblePriorityChangedEvent) {
		rec.add("visible")
	})
	m.Bus().OnPriorityChanged(func(e PriorityChangedEvent) {
		if e.Present {
			rec.add("registered")
		} else {
			rec.add("removed")
		}
	})
	m.Bus().OnActiveStateChanged(func(e ActiveStateChangedEvent) {
		rec.add("active")
	})
	m.Bus().OnAutoSelectChanged(func(e AutoSelectChangedEvent) {
		rec.add("auto")
	})

	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)
	// Give the actor goroutine a chance to start servicing commands.
	time.Sleep(10 * time.Millisecond)

	t.Cleanup(cancel)
	return m, clock, rec, cancel
}

func TestBasicOverride(t *testing.T) {
	m, _, _, _ := newTestMuxer(t)

	m.Register(100, ComponentColor, "ui", "", 0)
	red := led.Solid(3, led.RGB(255, 0, 0))
	ok, err := m.SetColorInput(100, red, -1)
	if !ok || err != nil {
		t.Fatalf("SetColorInput failed: ok=%v err=%v", ok, err)
	}

	visible := m.GetVisible()
	if visible.Priority != 100 {
		t.Fatalf("visible priority = %d, want 100", visible.Priority)
	}
	for _, c := range visible.LEDColors {
		if c != led.RGB(255, 0, 0) {
			t.Fatalf("led colors = %v, want all red", visible.LEDColors)
		}
	}

	if !m.Clear(100) {
		t.Fatal("Clear(100) should succeed")
	}
	visible = m.GetVisible()
	if visible.Priority != LowestPriority {
		t.Fatalf("visible priority = %d, want LOWEST", visible.Priority)
	}
	for _, c := range visible.LEDColors {
		if c != led.Black {
			t.Fatalf("led colors = %v, want all black", visible.LEDColors)
		}
	}
}

func TestTimeoutExpiry(t *testing.T) {
	m, clock, _, _ := newTestMuxer(t)

	m.Register(50, ComponentEffect, "fx", "rainbow", 0)
	ok, err := m.SetColorInput(50, led.Solid(3, led.RGB(0, 255, 0)), 300)
	if !ok || err != nil {
		t.Fatalf("SetColorInput failed: ok=%v err=%v", ok, err)
	}

	clock.Advance(300)
	// Wait past one tick period for the sweep to observe the expiry.
	time.Sleep(400 * time.Millisecond)

	if m.HasPriority(50) {
		t.Fatal("priority 50 should have expired")
	}
	if got := m.GetVisible().Priority; got != LowestPriority {
		t.Fatalf("visible priority = %d, want LOWEST", got)
	}
}

func TestPriorityZeroWins(t *testing.T) {
	m, _, _, _ := newTestMuxer(t)

	m.Register(50, ComponentColor, "a", "", 0)
	m.SetColorInput(50, led.Solid(3, led.RGB(1, 0, 0)), -1)
	m.Register(100, ComponentColor, "b", "", 0)
	m.SetColorInput(100, led.Solid(3, led.RGB(2, 0, 0)), -1)

	if got := m.GetVisible().Priority; got != 50 {
		t.Fatalf("visible priority = %d, want 50", got)
	}

	m.Register(0, ComponentBoblightServer, "net", "", 0)
	m.SetColorInput(0, led.Solid(3, led.RGB(9, 9, 9)), -1)

	if got := m.GetVisible().Priority; got != 0 {
		t.Fatalf("visible priority = %d, want 0", got)
	}
}

func TestManualPinSurvivesOrdering(t *testing.T) {
	m, _, _, _ := newTestMuxer(t)

	m.Register(30, ComponentColor, "a", "", 0)
	m.SetColorInput(30, led.Solid(3, led.RGB(1, 0, 0)), -1)
	m.Register(60, ComponentColor, "b", "", 0)
	m.SetColorInput(60, led.Solid(3, led.RGB(2, 0, 0)), -1)

	if got := m.GetVisible().Priority; got != 30 {
		t.Fatalf("visible priority = %d, want 30", got)
	}

	if !m.SetManualPriority(60) {
		t.Fatal("SetManualPriority(60) should succeed")
	}
	if got := m.GetVisible().Priority; got != 60 {
		t.Fatalf("visible priority = %d, want 60", got)
	}

	if !m.Clear(60) {
		t.Fatal("Clear(60) should succeed")
	}
	if got := m.GetVisible().Priority; got != 30 {
		t.Fatalf("visible priority = %d, want 30", got)
	}
}

func TestSoftClearPreservesStreams(t *testing.T) {
	m, _, _, _ := newTestMuxer(t)

	m.Register(40, ComponentGrabber, "cam", "", 0)
	m.SetColorInput(40, led.Solid(3, led.RGB(1, 1, 1)), -1)
	m.Register(80, ComponentColor, "ui", "", 0)
	m.SetColorInput(80, led.Solid(3, led.RGB(2, 2, 2)), -1)

	m.ClearAll(false)

	if !m.HasPriority(40) {
		t.Fatal("grabber source should survive a soft clear-all")
	}
	if m.HasPriority(80) {
		t.Fatal("color source should be removed by a soft clear-all")
	}
	if got := m.GetVisible().Priority; got != 40 {
		t.Fatalf("visible priority = %d, want 40", got)
	}
}

func TestInactiveSlotIgnoredInSelection(t *testing.T) {
	m, _, _, _ := newTestMuxer(t)

	m.Register(20, ComponentColor, "x", "", 0)
	if got := m.GetVisible().Priority; got != LowestPriority {
		t.Fatalf("visible priority = %d, want LOWEST while inactive", got)
	}

	ok, err := m.SetColorInput(20, led.Solid(3, led.RGB(0, 0, 255)), -1)
	if !ok || err != nil {
		t.Fatalf("SetColorInput failed: ok=%v err=%v", ok, err)
	}
	if got := m.GetVisible().Priority; got != 20 {
		t.Fatalf("visible priority = %d, want 20", got)
	}
}

func TestSetColorInputWithoutRegisterFails(t *testing.T) {
	m, _, _, _ := newTestMuxer(t)

	ok, err := m.SetColorInput(9, led.Solid(3, led.Black), -1)
	if ok || err != ErrUnregisteredPriority {
		t.Fatalf("expected ErrUnregisteredPriority, got ok=%v err=%v", ok, err)
	}
}

func TestClearRejectsLowestAndUnknown(t *testing.T) {
	m, _, _, _ := newTestMuxer(t)

	if m.Clear(LowestPriority) {
		t.Fatal("clear(LOWEST) should fail")
	}
	if m.Clear(200) {
		t.Fatal("clear of an unregistered priority should fail")
	}
}

func TestRegisterClearRoundTrip(t *testing.T) {
	m, _, _, _ := newTestMuxer(t)

	before := m.GetPriorities()
	m.Register(77, ComponentColor, "x", "", 0)
	m.Clear(77)
	after := m.GetPriorities()

	if len(before) != len(after) {
		t.Fatalf("priority set changed across register+clear: before=%v after=%v", before, after)
	}
}

func TestUpdateLEDCountResizesVisible(t *testing.T) {
	m, _, _, _ := newTestMuxer(t)
	m.UpdateLEDCount(6)
	if got := len(m.GetVisible().LEDColors); got != 6 {
		t.Fatalf("LOWEST buffer len = %d, want 6", got)
	}
}
