package exercise

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Row is one data-source row keyed by column name
type Row map[string]string

// LoadStats describes what a load found in a data source
type LoadStats struct {
	Path    string
	Found   bool
	Loaded  int // well-formed rows
	Valid   int // rows with every required field present
	Skipped int // malformed rows
}

// Dropped is the number of well-formed rows rejected for missing required fields
func (s LoadStats) Dropped() int {
	return s.Loaded - s.Valid
}

// nullValues are cell contents treated as missing: the default NA strings of
// pandas read_csv, which the data files were prepared with
var nullValues = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

func isNull(value string) bool {
	return nullValues[strings.TrimSpace(value)]
}

// LoadRows reads every row of the CSV file at path and keeps the rows that
// carry a non-null value for each required field. Malformed rows are skipped.
// A missing file yields no rows and no error.
func LoadRows(path string, required []string) ([]Row, LoadStats, error) {
	stats := LoadStats{Path: path}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, stats, nil
		}
		return nil, stats, fmt.Errorf("failed to open data source: %w", err)
	}
	defer f.Close()
	stats.Found = true

	rows, err := readRows(f, required, &stats)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read data source %s: %w", path, err)
	}
	return rows, stats, nil
}

var byteOrderMark = []byte("\ufeff")

func newCSVReader(data []byte) *csv.Reader {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

func readRows(r io.Reader, required []string, stats *LoadStats) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, byteOrderMark)

	reader := newCSVReader(data)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
	}

	// base is the offset in data where the current reader started
	base := 0
	var rows []Row
	for {
		start := skipLineBreaks(data, base+int(reader.InputOffset()))
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				stats.Skipped++
				continue
			}
			return nil, err
		}

		// An unclosed quote swallows the lines after it. Drop the line it
		// opened on and read on from the next one.
		end := base + int(reader.InputOffset())
		if runaway(data[start:end], end == len(data)) {
			stats.Skipped++
			next := bytes.IndexByte(data[start:end], '\n')
			if next < 0 {
				break
			}
			base = start + next + 1
			reader = newCSVReader(data[base:])
			continue
		}

		if len(record) > len(header) {
			stats.Skipped++
			continue
		}
		stats.Loaded++

		row := make(Row, len(header))
		for i, name := range header {
			if i < len(record) && !isNull(record[i]) {
				row[name] = record[i]
			}
		}

		if !hasFields(row, required) {
			continue
		}
		stats.Valid++
		rows = append(rows, row)
	}

	return rows, nil
}

func skipLineBreaks(data []byte, i int) int {
	for i < len(data) && (data[i] == '\n' || data[i] == '\r') {
		i++
	}
	return i
}

// runaway reports whether raw, one record as read leniently, is really a
// quoted field that never closed. Such a record spans several lines or ends
// the file, and fails a strict re-read on a quote.
func runaway(raw []byte, atEOF bool) bool {
	if !atEOF && !bytes.Contains(bytes.TrimRight(raw, "\r\n"), []byte("\n")) {
		return false
	}
	strict := csv.NewReader(bytes.NewReader(raw))
	strict.FieldsPerRecord = -1
	_, err := strict.Read()
	return errors.Is(err, csv.ErrQuote)
}

func hasFields(row Row, required []string) bool {
	for _, field := range required {
		if _, ok := row[field]; !ok {
			return false
		}
	}
	return true
}
