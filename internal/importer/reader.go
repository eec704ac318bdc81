// Package importer implements the spreadsheet-import reconciliation
// pipeline: decoding a tabular file, validating every row, resolving or
// creating the referenced categories and accounts, and committing the
// resulting transactions as one atomic batch.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ErrMalformedFile marks a file whose container could not be decoded at
// all. The run aborts before any row is processed.
var ErrMalformedFile = errors.New("malformed file")

// RowRecord maps column headers to cell values for one data row. Cells
// that are empty in the source are absent from the map.
type RowRecord map[string]string

// ParseFile decodes a spreadsheet (.xlsx/.xls) or delimited-text (.csv)
// file into row records. The first non-empty row is the header; rows are
// returned in file order, fully materialized. Cell semantics are not
// validated here.
func ParseFile(name string, data []byte) ([]RowRecord, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return parseCSV(data)
	case ".xlsx", ".xls":
		return parseWorkbook(data)
	default:
		// No recognized extension: sniff the zip container magic that
		// xlsx files start with, otherwise treat as delimited text.
		if bytes.HasPrefix(data, []byte("PK")) {
			return parseWorkbook(data)
		}
		return parseCSV(data)
	}
}

func parseCSV(data []byte) ([]RowRecord, error) {
	r := csv.NewReader(bytes.NewReader(sanitizeUTF8(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	return tableToRecords(rows), nil
}

func parseWorkbook(data []byte) ([]RowRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedFile)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	return tableToRecords(rows), nil
}

// tableToRecords turns raw rows into header-keyed records. Fully empty
// rows are skipped; empty cells produce no map entry so the validator
// sees them as missing.
func tableToRecords(rows [][]string) []RowRecord {
	start := -1
	for i, row := range rows {
		if !isEmptyRow(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	header := make([]string, len(rows[start]))
	for i, h := range rows[start] {
		header[i] = strings.TrimSpace(h)
	}

	var records []RowRecord
	for _, row := range rows[start+1:] {
		if isEmptyRow(row) {
			continue
		}
		rec := make(RowRecord, len(header))
		for i, cell := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			rec[header[i]] = cell
		}
		records = append(records, rec)
	}
	return records
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement
// rune so the csv reader never chokes on stray Windows-1252 bytes.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}
	return buf.Bytes()
}
