package session

import (
	"testing"

	"github.com/ofcored/controller/of"
)

func TestStoreAddGetRemove(t *testing.T) {
	st := NewStore()
	if st.Get(1) != nil {
		t.Fatal("expected no session for an unknown switch")
	}

	s1 := New(1, &fakeConn{sw: 1})
	st.Add(s1)
	if got := st.Get(1); got != s1 {
		t.Fatalf("expected Get to return the added session, got %v", got)
	}
	if st.Len() != 1 {
		t.Fatalf("expected Len 1, got %d", st.Len())
	}

	st.Remove(1)
	if st.Get(1) != nil {
		t.Fatal("expected the session to be gone after Remove")
	}
	if st.Len() != 0 {
		t.Fatalf("expected Len 0 after Remove, got %d", st.Len())
	}
}

func TestStoreAddReplacesExistingSessionForSameSwitch(t *testing.T) {
	st := NewStore()
	first := New(1, &fakeConn{sw: 1})
	second := New(1, &fakeConn{sw: 1})

	st.Add(first)
	st.Add(second)

	if st.Len() != 1 {
		t.Fatalf("expected a reconnect to replace rather than duplicate, got Len %d", st.Len())
	}
	if st.Get(1) != second {
		t.Fatal("expected Get to return the most recently added session")
	}
}

func TestStoreAllReturnsEverySession(t *testing.T) {
	st := NewStore()
	st.Add(New(1, &fakeConn{sw: 1}))
	st.Add(New(2, &fakeConn{sw: 2}))

	all := st.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(all))
	}

	seen := map[of.SwitchId]bool{}
	for _, s := range all {
		seen[s.Id()] = true
	}
	if !seen[1] || !seen[2] {
		t.Fatalf("expected to see both switch ids, got %v", seen)
	}
}
