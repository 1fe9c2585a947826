package of

// FlowEntry is one forwarding rule, independent of its priority (spec.md
// §3: FlowEntry { pattern, actions, cookie, idle_timeout, hard_timeout }).
type FlowEntry struct {
	Pattern     Pattern
	Actions     []Action
	Cookie      uint64
	IdleTimeout uint16
	HardTimeout uint16
}

// PrioritizedEntry pairs a FlowEntry with the priority it is installed at.
type PrioritizedEntry struct {
	Entry    FlowEntry
	Priority Priority
}

// FlowTable is an ordered sequence of PrioritizedEntry. Builders that
// produce one (policy.Compiler.Compile, AssignPriorities) must return entries
// in strictly decreasing priority order starting at MaxPriority — callers
// that install a FlowTable rely on that order and do not re-sort.
type FlowTable []PrioritizedEntry

// SortedDescending reports whether t is already in the strictly decreasing
// priority order every other component assumes, used defensively by the
// updaters before they start talking to a switch.
func (t FlowTable) SortedDescending() bool {
	for i := 1; i < len(t); i++ {
		if t[i-1].Priority <= t[i].Priority {
			return false
		}
	}
	return true
}

// AssignPriorities returns a copy of entries installed starting at
// MaxPriority and decrementing by one per entry, matching the install order
// used by the best-effort updater (§4.5) and both consistent-update phases
// (§4.6 steps 1-2, §8 property 4).
func AssignPriorities(entries []FlowEntry) FlowTable {
	t := make(FlowTable, len(entries))
	p := uint32(MaxPriority)
	for i, e := range entries {
		t[i] = PrioritizedEntry{Entry: e, Priority: Priority(p)}
		p--
	}
	return t
}
