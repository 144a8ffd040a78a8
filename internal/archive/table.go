// Package archive extracts the measurement file from a downloaded zip
// archive and parses it into a column-named table.
package archive

import (
	"archive/zip"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// measurementFilePattern matches the single data entry inside each
// archive, e.g. produkt_tu_stunde_19500101_20231231_00691.txt.
const measurementFilePattern = "produkt_*.txt"

// ParsedTable is the parsed content of one measurement file: ordered
// column names plus one row per hour. A nil token is a missing value.
// Produced once per archive and consumed once by the merger.
type ParsedTable struct {
	Columns      []string
	Rows         [][]*string
	RejectedRows int
}

// ColumnIndex returns the position of the named column, or -1.
func (t *ParsedTable) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Empty reports whether the table carries no data rows.
func (t *ParsedTable) Empty() bool {
	return len(t.Rows) == 0
}

// ParseError represents a malformed archive. It is scoped to a single
// file and never aborts an unrelated station.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsTransient returns false as malformed input does not heal on retry.
func (e *ParseError) IsTransient() bool {
	return false
}

// ExtractTable locates the measurement file inside the archive bytes
// and parses it. An archive without a matching entry legitimately
// contains no data for the period and yields an empty table, not an
// error.
func ExtractTable(name string, data []byte) (*ParsedTable, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ParseError{Name: name, Err: err}
	}

	for _, entry := range reader.File {
		if ok, _ := path.Match(measurementFilePattern, path.Base(entry.Name)); !ok {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, &ParseError{Name: name, Err: err}
		}
		defer rc.Close()

		table, err := parseMeasurementFile(rc)
		if err != nil {
			return nil, &ParseError{Name: name, Err: err}
		}
		return table, nil
	}

	return &ParsedTable{}, nil
}

// parseMeasurementFile reads a semicolon-separated measurement file.
// The first line is the header; every other line is one hourly row.
func parseMeasurementFile(r io.Reader) (*ParsedTable, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return &ParsedTable{}, nil
	}

	columns := splitColumns(scanner.Text())
	table := &ParsedTable{Columns: columns}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Split(line, ";")
		// A row with the wrong column count is rejected alone; the
		// rest of the file stays usable.
		if len(tokens) != len(columns) {
			table.RejectedRows++
			continue
		}

		row := make([]*string, len(tokens))
		for i, token := range tokens {
			row[i] = normalizeToken(token)
		}
		table.Rows = append(table.Rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

func splitColumns(header string) []string {
	parts := strings.Split(header, ";")
	columns := make([]string, len(parts))
	for i, part := range parts {
		columns[i] = strings.TrimSpace(part)
	}
	return columns
}

// normalizeToken trims a raw token and maps the -999 missing-value
// sentinel (and textual variants like -999.0) to nil.
func normalizeToken(token string) *string {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" || isMissingSentinel(trimmed) {
		return nil
	}
	return &trimmed
}

func isMissingSentinel(token string) bool {
	// The sources encode missing values as a number ending in -999,
	// sometimes with a decimal tail (-999.0).
	base := token
	if idx := strings.IndexByte(token, '.'); idx >= 0 {
		tail := token[idx+1:]
		if strings.Trim(tail, "0") != "" {
			return false
		}
		base = token[:idx]
	}
	return strings.HasSuffix(base, "-999")
}
