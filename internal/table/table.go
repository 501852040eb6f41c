// Package table reads and writes the tabular report files the labeler consumes and produces.
package table

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/hyperjump/radlabel/internal/models"
)

// Table is a header plus data rows. Every row has at least len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Column returns the index of the named header column.
func (t *Table) Column(name string) (int, error) {
	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("column %q not found in header %v", name, t.Header)
}

// Slice returns the rows [start, end) as a table sharing the same header and row storage.
func (t *Table) Slice(start, end int) *Table {
	return &Table{Header: t.Header, Rows: t.Rows[start:end]}
}

// Window returns the rows covered by w.
func (t *Table) Window(w models.Window) *Table {
	return t.Slice(w.Start, w.End)
}

// Reports returns the report text and id of every row in the table. Row numbers are table-relative.
func (t *Table) Reports(idColumn, reportColumn string) ([]models.Report, error) {
	idIdx, err := t.Column(idColumn)
	if err != nil {
		return nil, err
	}
	reportIdx, err := t.Column(reportColumn)
	if err != nil {
		return nil, err
	}
	out := make([]models.Report, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = models.Report{Row: i, ID: row[idIdx], Text: row[reportIdx]}
	}
	return out, nil
}

// WriteCSV writes the header and rows as RFC 4180 CSV.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
