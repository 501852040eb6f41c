package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrEmpty is returned for a file without a header row.
var ErrEmpty = errors.New("table has no header row")

// Read loads a table from path. The format is chosen by extension:
// .csv and .tsv are delimited text, .xlsx is the first worksheet of an Excel workbook.
func Read(path string) (*Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	return ReadBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ReadBytes parses content according to ext (with leading dot).
func ReadBytes(content []byte, ext string) (*Table, error) {
	var records [][]string
	var err error
	switch ext {
	case ".csv", "":
		records, err = parseDelimited(content, ',')
	case ".tsv":
		records, err = parseDelimited(content, '\t')
	case ".xlsx":
		records, err = parseExcel(content)
	default:
		return nil, fmt.Errorf("unsupported table format %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return fromRecords(records)
}

func parseDelimited(content []byte, comma rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

func parseExcel(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// fromRecords splits off the header and pads short rows to the header width.
func fromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrEmpty
	}
	header := records[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	rows := records[1:]
	for i, row := range rows {
		for len(row) < len(header) {
			row = append(row, "")
		}
		rows[i] = row
	}
	return &Table{Header: header, Rows: rows}, nil
}
