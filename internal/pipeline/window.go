package pipeline

import (
	"fmt"

	"github.com/hyperjump/radlabel/internal/models"
)

// Windows partitions [0, total) into consecutive windows of at most size rows.
func Windows(total, size int) []models.Window {
	if total <= 0 || size <= 0 {
		return nil
	}
	windows := make([]models.Window, 0, (total+size-1)/size)
	for start, idx := 0, 0; start < total; start, idx = start+size, idx+1 {
		windows = append(windows, models.Window{Index: idx, Start: start, End: min(start+size, total)})
	}
	return windows
}

// SelectWindow returns window index of a table with total rows.
// An index that selects no rows yields ErrWindowOutOfRange.
func SelectWindow(total, size, index int) (models.Window, error) {
	if size <= 0 {
		return models.Window{}, fmt.Errorf("window size must be positive, got %d", size)
	}
	if total < 0 {
		total = 0
	}
	// Compare against the window count; index*size can overflow for huge indices.
	if index < 0 || index >= (total+size-1)/size {
		return models.Window{}, fmt.Errorf("%w: index %d with window size %d on %d rows",
			ErrWindowOutOfRange, index, size, total)
	}
	start := index * size
	return models.Window{Index: index, Start: start, End: min(start+size, total)}, nil
}

// Chunks partitions [0, length) into chunks of at most size rows, in ascending offset order.
func Chunks(length, size int) []models.Chunk {
	if length <= 0 || size <= 0 {
		return nil
	}
	chunks := make([]models.Chunk, 0, (length+size-1)/size)
	for off := 0; off < length; off += size {
		chunks = append(chunks, models.Chunk{Offset: off, End: min(off+size, length)})
	}
	return chunks
}
