package helpers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spektr-org/tableplan/table"
)

// ============================================================================
// CSV / JSON HELPERS: Raw bytes → table.Table, table.Table → CSV
// ============================================================================
// Consumer reads the data from wherever it lives (file, S3, Sheets).
// These helpers convert raw bytes into an untyped table; the engine's
// coercion pass assigns numeric and timestamp kinds later.
// ============================================================================

// ErrNoHeader is returned for CSV input without a header row.
var ErrNoHeader = errors.New("csv has no header row")

// ReadCSV parses CSV bytes with a header row into a table of Text columns.
// Empty cells are missing. Duplicate headers are suffixed ".1", ".2", ...
// and empty headers are named "column_N".
func ReadCSV(data []byte) (*table.Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	names := uniqueHeaders(headers)

	values := make([][]any, len(names))
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		for i := range names {
			var v any
			if i < len(row) {
				if s := strings.TrimSpace(row[i]); s != "" {
					v = s
				}
			}
			values[i] = append(values[i], v)
		}
	}

	cols := make([]*table.Column, len(names))
	for i, n := range names {
		vals := values[i]
		if vals == nil {
			vals = []any{}
		}
		cols[i] = table.NewColumn(n, table.Text, vals)
	}
	return table.New(cols...)
}

// uniqueHeaders trims header names and makes them unique.
func uniqueHeaders(headers []string) []string {
	names := make([]string, len(headers))
	used := make(map[string]bool, len(headers))
	dups := make(map[string]int)
	for i, h := range headers {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if used[name] {
			base := name
			for used[name] {
				dups[base]++
				name = fmt.Sprintf("%s.%d", base, dups[base])
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// ReadJSONRecords parses a JSON array of objects into a table. Column order
// follows the first record's key order where possible; see table.FromRecords.
func ReadJSONRecords(data []byte) (*table.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse JSON records: %w", err)
	}
	return table.FromRecords(records, jsonKeyOrder(data)...)
}

// jsonKeyOrder returns the keys of the first object in a JSON array, in
// document order. Maps lose that order when decoded.
func jsonKeyOrder(data []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('[') {
		return nil
	}
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := tok.(string)
		if !ok {
			return keys
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
	}
	return keys
}

// WriteCSV writes t as CSV with a header row. Missing values are empty cells.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return err
	}
	record := make([]string, t.NumColumns())
	for i := 0; i < t.NumRows(); i++ {
		for j, v := range t.Row(i) {
			record[j] = table.Format(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
