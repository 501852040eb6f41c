package pipeline

import (
	"errors"
	"fmt"
)

// ErrWindowOutOfRange is returned when a window index selects no rows of the table.
var ErrWindowOutOfRange = errors.New("window index out of range")

// StructuralError reports a document that did not split into exactly one passage.
type StructuralError struct {
	Offset   int // chunk start offset within the window
	Row      int // row within the window
	ReportID string
	Passages int
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("report %q (window row %d, chunk %d) split into %d passages, want 1",
		e.ReportID, e.Row, e.Offset, e.Passages)
}

// ChunkError wraps a failure of one chunk with its location.
type ChunkError struct {
	Offset int
	Stage  string
	Err    error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk at offset %d: %s: %v", e.Offset, e.Stage, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }
