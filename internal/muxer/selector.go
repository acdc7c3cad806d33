package muxer

// selectorMode is the input the Selector needs beyond the table itself.
type selectorMode struct {
	autoSelect bool
	// manualPriority and manualPinnedYet describe the current manual pin.
	// Validity of the pin is decided by table presence, not activity: a
	// manually pinned source that is briefly inactive (still registered,
	// just awaiting data) keeps its pin. See DESIGN.md for why this departs
	// from a literal reading of "manual_priority not in A" in favor of the
	// original implementation's presence check.
	manualPriority  Priority
	manualPinnedYet bool
}

// selectVisible is the pure Selector function of §4.2. It never mutates the
// table and never emits events; callers decide what to do when its result
// differs from the previously published priority, and whether the manual
// pin needs to be released (see Muxer.reselect).
func selectVisible(t *table, mode selectorMode) Priority {
	if in, ok := t.get(0); ok && in.Deadline.Active() {
		return 0
	}

	best := LowestPriority
	for p, in := range t.entries {
		if in.Deadline.Active() && p < best {
			best = p
		}
	}

	if !mode.autoSelect && mode.manualPinnedYet && t.contains(mode.manualPriority) {
		return mode.manualPriority
	}
	return best
}
