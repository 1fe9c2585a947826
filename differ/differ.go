// Package differ implements the flow-table differ (spec.md §4.1): a pure
// function computing the minimal set of deletions needed to turn an old,
// installed flow table into a new one. It has no I/O and no dependency on
// the session, barrier, or update packages, matching the "pure and
// unit-testable without network I/O" design note in spec.md §9.
package differ

import "github.com/ofcored/controller/of"

// Deletions computes the entries present in old but absent from new,
// returned in ascending priority order (lowest first). The consistent
// updater's Phase II sends these deletions only after installing the new
// table, so a removed low-priority catch-all already has its replacement in
// place and no gap opens where no rule matches a packet (spec.md §4.1).
//
// old and new must both already be in strictly decreasing priority order;
// Deletions does not sort its inputs.
func Deletions(old, new of.FlowTable) []of.PrioritizedEntry {
	var deletions []of.PrioritizedEntry

	i, j := 0, 0
	for i < len(old) && j < len(new) {
		switch {
		case old[i].Priority > new[j].Priority:
			deletions = append(deletions, old[i])
			i++
		case old[i].Priority == new[j].Priority && old[i].Entry.Pattern.Equal(new[j].Entry.Pattern):
			// Same rule (priority + pattern); actions may differ but that
			// is realized by installing the new entry, not by a delete.
			i++
			j++
		default:
			// new[j] is either at a higher priority than anything left in
			// old, or collides at the same priority with a different
			// pattern — either way it is an addition, not a deletion.
			j++
		}
	}
	// Anything left in old past the point new was exhausted is a deletion.
	for ; i < len(old); i++ {
		deletions = append(deletions, old[i])
	}

	reverse(deletions)
	return deletions
}

func reverse(s []of.PrioritizedEntry) {
	for l, r := 0, len(s)-1; l < r; l, r = l+1, r-1 {
		s[l], s[r] = s[r], s[l]
	}
}
