package muxer

import "testing"

func TestSelectVisible(t *testing.T) {
	newTableWith := func(entries map[Priority]Deadline) *table {
		tb := newTable(3)
		for p, d := range entries {
			tb.insertOrUpdate(InputInfo{Priority: p, ComponentId: ComponentColor, Deadline: d})
		}
		return tb
	}

	t.Run("only LOWEST present selects LOWEST", func(t *testing.T) {
		tb := newTable(3)
		got := selectVisible(tb, selectorMode{autoSelect: true})
		if got != LowestPriority {
			t.Fatalf("got %d, want LOWEST", got)
		}
	})

	t.Run("priority zero always wins", func(t *testing.T) {
		tb := newTableWith(map[Priority]Deadline{
			0:  PersistentDeadline(),
			50: PersistentDeadline(),
		})
		got := selectVisible(tb, selectorMode{autoSelect: true})
		if got != 0 {
			t.Fatalf("got %d, want 0", got)
		}
	})

	t.Run("inactive slot ignored", func(t *testing.T) {
		tb := newTableWith(map[Priority]Deadline{
			20: InactiveDeadline(),
		})
		got := selectVisible(tb, selectorMode{autoSelect: true})
		if got != LowestPriority {
			t.Fatalf("got %d, want LOWEST", got)
		}
	})

	t.Run("auto select picks smallest active priority", func(t *testing.T) {
		tb := newTableWith(map[Priority]Deadline{
			30: PersistentDeadline(),
			60: PersistentDeadline(),
		})
		got := selectVisible(tb, selectorMode{autoSelect: true})
		if got != 30 {
			t.Fatalf("got %d, want 30", got)
		}
	})

	t.Run("manual pin overrides auto winner while present", func(t *testing.T) {
		tb := newTableWith(map[Priority]Deadline{
			30: PersistentDeadline(),
			60: PersistentDeadline(),
		})
		mode := selectorMode{autoSelect: false, manualPriority: 60, manualPinnedYet: true}
		got := selectVisible(tb, mode)
		if got != 60 {
			t.Fatalf("got %d, want 60", got)
		}
	})

	t.Run("manual pin ignored when priority absent", func(t *testing.T) {
		tb := newTableWith(map[Priority]Deadline{
			30: PersistentDeadline(),
		})
		mode := selectorMode{autoSelect: false, manualPriority: 60, manualPinnedYet: true}
		got := selectVisible(tb, mode)
		if got != 30 {
			t.Fatalf("got %d, want 30 (fallback to auto winner)", got)
		}
	})

	t.Run("manual pin survives while merely inactive", func(t *testing.T) {
		tb := newTableWith(map[Priority]Deadline{
			30: PersistentDeadline(),
			60: InactiveDeadline(),
		})
		mode := selectorMode{autoSelect: false, manualPriority: 60, manualPinnedYet: true}
		got := selectVisible(tb, mode)
		if got != 60 {
			t.Fatalf("got %d, want 60 (pin is present, not vanished)", got)
		}
	})
}
