package muxer

import (
	"sort"

	"libdb.so/luxmux/internal/led"
)

// table is the keyed associative store of InputInfo records indexed by
// Priority. It is not safe for concurrent use; the Muxer actor is the only
// goroutine that ever touches it.
type table struct {
	entries map[Priority]InputInfo
}

func newTable(ledCount int) *table {
	t := &table{entries: make(map[Priority]InputInfo)}
	t.entries[LowestPriority] = lowestPriorityInfo(ledCount)
	return t
}

func lowestPriorityInfo(ledCount int) InputInfo {
	return InputInfo{
		Priority:    LowestPriority,
		ComponentId: ComponentColor,
		Origin:      "System",
		Deadline:    PersistentDeadline(),
		LEDColors:   led.New(ledCount),
	}
}

func (t *table) contains(p Priority) bool {
	_, ok := t.entries[p]
	return ok
}

func (t *table) get(p Priority) (InputInfo, bool) {
	in, ok := t.entries[p]
	return in, ok
}

// getOrDefault returns the record at p, or the LOWEST record when p is
// absent, per the original implementation's getInputInfo fallback.
func (t *table) getOrDefault(p Priority) InputInfo {
	if in, ok := t.entries[p]; ok {
		return in
	}
	return t.entries[LowestPriority]
}

func (t *table) insertOrUpdate(in InputInfo) {
	t.entries[in.Priority] = in
}

func (t *table) remove(p Priority) bool {
	if _, ok := t.entries[p]; !ok {
		return false
	}
	delete(t.entries, p)
	return true
}

// keys returns the current priority set in ascending order.
func (t *table) keys() []Priority {
	out := make([]Priority, 0, len(t.entries))
	for p := range t.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// resizeAllLEDBuffers resizes every record's LED buffer to n, per §4.1.
func (t *table) resizeAllLEDBuffers(n int) {
	for p, in := range t.entries {
		in.LEDColors = in.LEDColors.Resized(n)
		t.entries[p] = in
	}
}

func (t *table) reset(ledCount int) {
	t.entries = make(map[Priority]InputInfo)
	t.entries[LowestPriority] = lowestPriorityInfo(ledCount)
}
