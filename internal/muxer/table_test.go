package muxer

import (
	"testing"

	"libdb.so/luxmux/internal/led"
)

func TestTableLowestAlwaysPresent(t *testing.T) {
	tb := newTable(5)
	if !tb.contains(LowestPriority) {
		t.Fatal("LOWEST missing at construction")
	}
	in, ok := tb.get(LowestPriority)
	if !ok || len(in.LEDColors) != 5 {
		t.Fatalf("LOWEST record wrong: %+v", in)
	}
	if !tb.remove(LowestPriority) {
		t.Fatal("expected removal to succeed at the table layer")
	}
	// The Muxer, not the table, is responsible for the invariant that
	// LOWEST is never actually removed by public clear(); at the table
	// layer removal is unconditional and reset() is what restores it.
	tb.reset(5)
	if !tb.contains(LowestPriority) {
		t.Fatal("reset should reinsert LOWEST")
	}
}

func TestTableGetOrDefault(t *testing.T) {
	tb := newTable(3)
	in := tb.getOrDefault(42)
	if in.Priority != LowestPriority {
		t.Fatalf("expected fallback to LOWEST, got priority %d", in.Priority)
	}

	tb.insertOrUpdate(InputInfo{Priority: 42, Deadline: PersistentDeadline()})
	in = tb.getOrDefault(42)
	if in.Priority != 42 {
		t.Fatalf("expected record at 42, got %d", in.Priority)
	}
}

func TestTableKeysSorted(t *testing.T) {
	tb := newTable(3)
	tb.insertOrUpdate(InputInfo{Priority: 100})
	tb.insertOrUpdate(InputInfo{Priority: 5})
	tb.insertOrUpdate(InputInfo{Priority: 50})

	keys := tb.keys()
	want := []Priority{5, 50, 100, LowestPriority}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i, p := range want {
		if keys[i] != p {
			t.Fatalf("got %v, want %v", keys, want)
		}
	}
}

func TestTableResizeAllLEDBuffers(t *testing.T) {
	tb := newTable(3)
	tb.insertOrUpdate(InputInfo{Priority: 10})                                              // empty buffer
	tb.insertOrUpdate(InputInfo{Priority: 20, LEDColors: led.Solid(1, led.RGB(200, 0, 0))}) // single-color buffer

	tb.resizeAllLEDBuffers(4)

	if got := len(tb.getOrDefault(LowestPriority).LEDColors); got != 4 {
		t.Fatalf("LOWEST buffer len = %d, want 4", got)
	}
	empty := tb.getOrDefault(10)
	if len(empty.LEDColors) != 4 {
		t.Fatalf("grown-from-empty buffer len = %d, want 4", len(empty.LEDColors))
	}
	for _, c := range empty.LEDColors {
		if c != led.Black {
			t.Fatalf("grown-from-empty slots should be black, got %v", c)
		}
	}
	filled := tb.getOrDefault(20)
	if len(filled.LEDColors) != 4 {
		t.Fatalf("grown buffer len = %d, want 4", len(filled.LEDColors))
	}
	for _, c := range filled.LEDColors[1:] {
		if c != filled.LEDColors[0] {
			t.Fatalf("grown slots should copy element 0, got %v vs %v", c, filled.LEDColors[0])
		}
	}
}
