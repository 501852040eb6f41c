package models

import (
	"fmt"
	"strings"
)

// Label is the per-category outcome for one report.
type Label int8

const (
	// Unset marks a cell not yet written by the merger. It is never a labeling outcome.
	Unset Label = iota - 3
	// Absent means the category was not mentioned.
	Absent
	// Uncertain means the category was mentioned with uncertainty.
	Uncertain
	// Negative means the category was mentioned and negated.
	Negative
	// Positive means the category was mentioned affirmatively.
	Positive
)

// String returns the CSV encoding of the label (pandas float style for real outcomes).
func (l Label) String() string {
	switch l {
	case Positive:
		return "1.0"
	case Negative:
		return "0.0"
	case Uncertain:
		return "-1.0"
	case Absent:
		return ""
	case Unset:
		return "unset"
	default:
		return fmt.Sprintf("Label(%d)", int8(l))
	}
}

// Name returns a human-readable name, used in metrics and logs.
func (l Label) Name() string {
	switch l {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	case Uncertain:
		return "uncertain"
	case Absent:
		return "absent"
	case Unset:
		return "unset"
	default:
		return "invalid"
	}
}

// ParseLabel decodes the CSV encoding produced by String. Integer forms ("1", "-1", "0") are accepted.
func ParseLabel(s string) (Label, error) {
	switch strings.TrimSpace(s) {
	case "1.0", "1":
		return Positive, nil
	case "0.0", "0":
		return Negative, nil
	case "-1.0", "-1":
		return Uncertain, nil
	case "":
		return Absent, nil
	case "unset":
		return Unset, nil
	}
	return Unset, fmt.Errorf("invalid label %q", s)
}

// LabelVector holds one label per category, in the pipeline's fixed category order.
type LabelVector []Label

// NewLabelVector returns a vector of n Unset labels.
func NewLabelVector(n int) LabelVector {
	v := make(LabelVector, n)
	for i := range v {
		v[i] = Unset
	}
	return v
}

// HasUnset reports whether any cell is still Unset.
func (v LabelVector) HasUnset() bool {
	for _, l := range v {
		if l == Unset {
			return true
		}
	}
	return false
}

// LabelMatrix is a [documents x categories] block of labels.
type LabelMatrix []LabelVector

// Shape returns the row count and the width of the first row (0 when empty).
func (m LabelMatrix) Shape() (rows, cols int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m), len(m[0])
}

// ChunkResult is the label matrix for one chunk, tagged with the chunk's start offset in its window.
type ChunkResult struct {
	Offset int         `json:"offset"`
	Labels LabelMatrix `json:"labels"`
}
