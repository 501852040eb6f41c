// Package merge writes label matrices into report tables, persists window partitions,
// and concatenates partitions into the final labeled table.
package merge

import (
	"errors"
	"fmt"

	"github.com/hyperjump/radlabel/internal/models"
	"github.com/hyperjump/radlabel/internal/table"
)

// ErrIncomplete is returned when a labeled table still has Unset cells.
var ErrIncomplete = errors.New("labeled table is incomplete")

// LabeledTable is a window's rows joined with one label column per category.
type LabeledTable struct {
	base       *table.Table
	overrides  map[int][]string
	categories []string
	labels     models.LabelMatrix
}

// Fill creates a labeled table over window with every category cell Unset, then writes each
// result's rows at its offset. Results must not reach past the window or have the wrong width.
func Fill(window *table.Table, categories []string, results []models.ChunkResult) (*LabeledTable, error) {
	if len(categories) == 0 {
		return nil, errors.New("fill: no categories")
	}
	lt := &LabeledTable{
		base:       window,
		overrides:  make(map[int][]string),
		categories: append([]string(nil), categories...),
		labels:     make(models.LabelMatrix, window.Len()),
	}
	for i := range lt.labels {
		lt.labels[i] = models.NewLabelVector(len(categories))
	}
	for _, res := range results {
		if res.Offset < 0 || res.Offset+len(res.Labels) > window.Len() {
			return nil, fmt.Errorf("fill: result at offset %d with %d rows exceeds window of %d rows",
				res.Offset, len(res.Labels), window.Len())
		}
		for i, v := range res.Labels {
			if len(v) != len(categories) {
				return nil, fmt.Errorf("fill: result at offset %d row %d has %d labels, want %d",
					res.Offset, i, len(v), len(categories))
			}
			copy(lt.labels[res.Offset+i], v)
		}
	}
	return lt, nil
}

// SetColumn replaces the values of an existing column, e.g. the report column with normalized text.
// The underlying window table is not modified.
func (lt *LabeledTable) SetColumn(name string, values []string) error {
	idx, err := lt.base.Column(name)
	if err != nil {
		return err
	}
	if len(values) != lt.base.Len() {
		return fmt.Errorf("set column %q: got %d values for %d rows", name, len(values), lt.base.Len())
	}
	lt.overrides[idx] = append([]string(nil), values...)
	return nil
}

// Len returns the number of rows.
func (lt *LabeledTable) Len() int { return len(lt.labels) }

// Labels returns the label vector of row i.
func (lt *LabeledTable) Labels(i int) models.LabelVector { return lt.labels[i] }

// Gaps returns the rows that still hold an Unset label.
func (lt *LabeledTable) Gaps() []int {
	var gaps []int
	for i, v := range lt.labels {
		if v.HasUnset() {
			gaps = append(gaps, i)
		}
	}
	return gaps
}

// Complete reports whether every cell holds a real labeling outcome.
func (lt *LabeledTable) Complete() bool {
	for _, v := range lt.labels {
		if v.HasUnset() {
			return false
		}
	}
	return true
}

// Table renders the original columns followed by one column per category.
// A category whose name is already a column replaces that column in place.
func (lt *LabeledTable) Table() *table.Table {
	header := append([]string(nil), lt.base.Header...)
	target := make([]int, len(lt.categories))
	for ci, c := range lt.categories {
		if idx, err := lt.base.Column(c); err == nil {
			target[ci] = idx
			continue
		}
		target[ci] = len(header)
		header = append(header, c)
	}

	rows := make([][]string, lt.base.Len())
	for i, src := range lt.base.Rows {
		row := make([]string, len(header))
		copy(row, src)
		for idx, values := range lt.overrides {
			row[idx] = values[i]
		}
		for ci, l := range lt.labels[i] {
			row[target[ci]] = l.String()
		}
		rows[i] = row
	}
	return &table.Table{Header: header, Rows: rows}
}
