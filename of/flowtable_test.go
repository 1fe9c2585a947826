package of

import "testing"

func TestAssignPrioritiesStartsAtMaxAndDecrements(t *testing.T) {
	entries := []FlowEntry{{Cookie: 1}, {Cookie: 2}, {Cookie: 3}}
	table := AssignPriorities(entries)

	if len(table) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(table))
	}
	if table[0].Priority != MaxPriority {
		t.Fatalf("expected first entry at MaxPriority, got %v", table[0].Priority)
	}
	for i := 1; i < len(table); i++ {
		if table[i].Priority != table[i-1].Priority-1 {
			t.Fatalf("expected strictly decreasing priorities, got %v then %v", table[i-1].Priority, table[i].Priority)
		}
	}
	if !table.SortedDescending() {
		t.Fatal("AssignPriorities must produce a table SortedDescending reports true for")
	}
}

func TestAssignPrioritiesPreservesInputOrder(t *testing.T) {
	entries := []FlowEntry{{Cookie: 10}, {Cookie: 20}}
	table := AssignPriorities(entries)
	if table[0].Entry.Cookie != 10 || table[1].Entry.Cookie != 20 {
		t.Fatalf("expected entry order preserved, got %+v", table)
	}
}

func TestSortedDescendingDetectsOutOfOrderTable(t *testing.T) {
	table := FlowTable{
		{Priority: 10},
		{Priority: 20},
	}
	if table.SortedDescending() {
		t.Fatal("expected an ascending table to report not sorted-descending")
	}
}

func TestSortedDescendingRejectsEqualPriorities(t *testing.T) {
	table := FlowTable{
		{Priority: 10},
		{Priority: 10},
	}
	if table.SortedDescending() {
		t.Fatal("equal adjacent priorities are not strictly decreasing")
	}
}

func TestSortedDescendingTrivialForEmptyAndSingleton(t *testing.T) {
	if !FlowTable(nil).SortedDescending() {
		t.Fatal("an empty table is vacuously sorted")
	}
	singleton := FlowTable{{Priority: 5}}
	if !singleton.SortedDescending() {
		t.Fatal("a single-entry table is vacuously sorted")
	}
}
