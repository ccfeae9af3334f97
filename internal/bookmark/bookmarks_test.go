package bookmark

import (
	"testing"

	"github.com/sindng-ui/tailpane/internal/view"
)

func TestToggle(t *testing.T) {
	s := NewSet()

	if !s.Toggle(42) {
		t.Error("first toggle should set")
	}
	if !s.Has(42) {
		t.Error("Has after set")
	}
	if s.Toggle(42) {
		t.Error("second toggle should clear")
	}
	if s.Has(42) {
		t.Error("Has after clear")
	}
}

func TestAllSorted(t *testing.T) {
	s := NewSet()
	for _, n := range []int64{30, 10, 20} {
		s.Toggle(n)
	}
	got := s.All()
	want := []int64{10, 20, 30}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("All = %v, want %v", got, want)
		}
	}
}

func TestClear(t *testing.T) {
	s := NewSet()
	s.Toggle(1)
	s.Toggle(2)
	s.Clear()
	if s.Count() != 0 {
		t.Errorf("Count after Clear = %d", s.Count())
	}
}

// Bookmarks key on original line numbers; their filtered positions shift as
// the rule changes but navigation always lands on the bookmarked lines.
func TestNavigationSurvivesRuleChange(t *testing.T) {
	s := NewSet()
	s.Toggle(10)
	s.Toggle(50)

	// Wide view: every tenth line matched
	v := view.NewFilteredView()
	v.Replace([]int64{10, 20, 30, 40, 50})

	hit, ok := s.Next(0, v)
	if !ok || hit.LineNum != 50 || hit.GlobalIdx != 4 {
		t.Fatalf("Next(0) = %+v, %v", hit, ok)
	}

	// Narrower view: positions shift, same lines
	v.Replace([]int64{10, 50})
	hit, ok = s.Next(0, v)
	if !ok || hit.LineNum != 50 || hit.GlobalIdx != 1 {
		t.Fatalf("Next(0) after rule change = %+v, %v", hit, ok)
	}
}

func TestNextPrevWraparound(t *testing.T) {
	s := NewSet()
	s.Toggle(10)
	s.Toggle(30)

	v := view.NewFilteredView()
	v.Replace([]int64{10, 20, 30, 40})

	// Forward past the last bookmark wraps to the first
	hit, ok := s.Next(2, v)
	if !ok || hit.LineNum != 10 || !hit.Wrapped {
		t.Errorf("Next(2) = %+v, %v; want wrap to line 10", hit, ok)
	}

	// Backward past the first bookmark wraps to the last
	hit, ok = s.Prev(0, v)
	if !ok || hit.LineNum != 30 || !hit.Wrapped {
		t.Errorf("Prev(0) = %+v, %v; want wrap to line 30", hit, ok)
	}

	// In-range navigation does not wrap
	hit, ok = s.Next(0, v)
	if !ok || hit.LineNum != 30 || hit.Wrapped {
		t.Errorf("Next(0) = %+v, %v; want line 30 unwrapped", hit, ok)
	}
}

func TestNavigationEmptySet(t *testing.T) {
	s := NewSet()
	v := view.NewFilteredView()
	v.Replace([]int64{1, 2, 3})

	if _, ok := s.Next(0, v); ok {
		t.Error("Next on empty set should miss")
	}
	if _, ok := s.Prev(2, v); ok {
		t.Error("Prev on empty set should miss")
	}
}

func TestBookmarkFilteredOutResolvesToInsertion(t *testing.T) {
	s := NewSet()
	s.Toggle(25) // not in the current view

	v := view.NewFilteredView()
	v.Replace([]int64{10, 20, 30})

	// PositionOf(25) resolves to index 2 (line 30); navigation reports the
	// insertion position, keyed to the original line number.
	hit, ok := s.Next(0, v)
	if !ok || hit.LineNum != 25 || hit.GlobalIdx != 2 {
		t.Errorf("Next(0) = %+v, %v", hit, ok)
	}
}
