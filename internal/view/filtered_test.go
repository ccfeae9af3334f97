package view

import "testing"

func TestFilteredViewReplaceAndAppend(t *testing.T) {
	v := NewFilteredView()
	if v.Len() != 0 {
		t.Fatal("new view not empty")
	}

	v.Replace([]int64{2, 5, 9})
	if v.Len() != 3 {
		t.Fatalf("Len = %d, want 3", v.Len())
	}

	v.Append([]int64{12, 20})
	if v.Len() != 5 {
		t.Fatalf("Len after append = %d, want 5", v.Len())
	}
	if got, _ := v.At(3); got != 12 {
		t.Errorf("At(3) = %d, want 12", got)
	}
}

func TestFilteredViewAt(t *testing.T) {
	v := NewFilteredView()
	v.Replace([]int64{10, 20, 30})

	if _, ok := v.At(-1); ok {
		t.Error("At(-1) should miss")
	}
	if _, ok := v.At(3); ok {
		t.Error("At(len) should miss")
	}
	if got, ok := v.At(1); !ok || got != 20 {
		t.Errorf("At(1) = %d, %v", got, ok)
	}
}

func TestFilteredViewSlice(t *testing.T) {
	v := NewFilteredView()
	v.Replace([]int64{1, 3, 5, 7, 9})

	got := v.Slice(1, 4)
	want := []int64{3, 5, 7}
	if len(got) != len(want) {
		t.Fatalf("Slice(1,4) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Slice(1,4) = %v, want %v", got, want)
		}
	}

	if got := v.Slice(-5, 100); int64(len(got)) != v.Len() {
		t.Errorf("clamped slice returned %d lines, want %d", len(got), v.Len())
	}
	if got := v.Slice(4, 2); got != nil {
		t.Errorf("inverted slice = %v, want nil", got)
	}
}

func TestPositionOf(t *testing.T) {
	v := NewFilteredView()
	v.Replace([]int64{10, 20, 30})

	tests := []struct {
		lineNum   int64
		wantIdx   int64
		wantExact bool
	}{
		{10, 0, true},
		{20, 1, true},
		{30, 2, true},
		{5, 0, false},   // before the first match
		{15, 1, false},  // filtered out, points at next match
		{35, 3, false},  // past the end
	}
	for _, tt := range tests {
		idx, exact := v.PositionOf(tt.lineNum)
		if idx != tt.wantIdx || exact != tt.wantExact {
			t.Errorf("PositionOf(%d) = (%d, %v), want (%d, %v)",
				tt.lineNum, idx, exact, tt.wantIdx, tt.wantExact)
		}
	}
}

func TestDropLast(t *testing.T) {
	v := NewFilteredView()
	v.Replace([]int64{1, 4, 9})

	if v.DropLast(4) {
		t.Error("dropped a non-final line number")
	}
	if !v.DropLast(9) {
		t.Error("final line number not dropped")
	}
	if got := v.Len(); got != 2 {
		t.Fatalf("Len after DropLast = %d, want 2", got)
	}

	v.Replace(nil)
	if v.DropLast(1) {
		t.Error("DropLast on an empty view")
	}
}
