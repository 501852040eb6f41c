package models

import "testing"

func TestLabel_StringParse(t *testing.T) {
	for _, l := range []Label{Positive, Negative, Uncertain, Absent, Unset} {
		got, err := ParseLabel(l.String())
		if err != nil {
			t.Fatalf("ParseLabel(%q): %v", l.String(), err)
		}
		if got != l {
			t.Errorf("ParseLabel(%q) = %v, want %v", l.String(), got, l)
		}
	}
	if _, err := ParseLabel("maybe"); err == nil {
		t.Error("expected error for unknown label")
	}
}

func TestLabel_UnsetIsDistinctFromNegative(t *testing.T) {
	if Unset == Negative || Unset.String() == Negative.String() {
		t.Fatal("Unset must not collapse into Negative")
	}
	if Absent.String() != "" {
		t.Errorf("Absent should encode as empty cell, got %q", Absent.String())
	}
}

func TestLabelVector_HasUnset(t *testing.T) {
	v := NewLabelVector(3)
	if !v.HasUnset() {
		t.Error("new vector should be unset")
	}
	v[0], v[1], v[2] = Positive, Absent, Negative
	if v.HasUnset() {
		t.Error("fully assigned vector reported unset")
	}
}

func TestLabelMatrix_Shape(t *testing.T) {
	m := LabelMatrix{NewLabelVector(4), NewLabelVector(4)}
	r, c := m.Shape()
	if r != 2 || c != 4 {
		t.Errorf("Shape() = %d,%d", r, c)
	}
	if r, c := (LabelMatrix{}).Shape(); r != 0 || c != 0 {
		t.Errorf("empty Shape() = %d,%d", r, c)
	}
}

func TestWindowAndChunkLen(t *testing.T) {
	w := Window{Index: 1, Start: 5000, End: 7345}
	if w.Len() != 2345 {
		t.Errorf("Window.Len() = %d", w.Len())
	}
	c := Chunk{Offset: 100, End: 120}
	if c.Len() != 20 {
		t.Errorf("Chunk.Len() = %d", c.Len())
	}
}
