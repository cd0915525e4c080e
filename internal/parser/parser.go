// Package parser reads exported measurement CSV files into per-series
// datapoint runs.
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/fieldline/datapump/internal/infrastructure/logging"
	"github.com/fieldline/datapump/internal/infrastructure/seriesapi"
)

// ErrMalformed indicates the file could not be parsed as a measurement
// CSV. The whole file fails; individual bad cells do not.
var ErrMalformed = errors.New("parser: malformed file")

// delimiter is the field separator used by the source system.
const delimiter = ';'

// millisecondsPerSecond converts index-column seconds to the store's
// millisecond timestamps.
const millisecondsPerSecond = 1000

// SeriesKey is the identity parsed from a value column header.
//
// Headers have the form "<externalID>:<name>"; the segment after the
// last colon is the display name, everything before it the stable
// external identifier. A header without a colon is both at once.
type SeriesKey struct {
	ExternalID string
	Name       string
}

// ParseSeriesKey splits a column header into its series key.
func ParseSeriesKey(header string) SeriesKey {
	idx := strings.LastIndex(header, ":")
	if idx < 0 {
		trimmed := strings.TrimSpace(header)
		return SeriesKey{ExternalID: trimmed, Name: trimmed}
	}
	return SeriesKey{
		ExternalID: strings.TrimSpace(header[:idx]),
		Name:       strings.TrimSpace(header[idx+1:]),
	}
}

// Column is one value column materialised as an ordered datapoint run.
// Points share the file's timestamp index, minus dropped cells.
type Column struct {
	Key    SeriesKey
	Points []seriesapi.Datapoint
}

// Parser reads measurement CSV files into per-series datapoint runs.
type Parser struct {
	log *logging.Logger
}

// New creates a Parser.
func New(log *logging.Logger) *Parser {
	return &Parser{log: log.With("component", "parser")}
}

// Parse reads one measurement file.
//
// Input format: ';' delimited, '"' quoted, Latin-1 encoded. The first
// row names the columns, the second row carries units and is skipped.
// Each remaining row holds the index column (seconds since epoch) and
// one value cell per series.
//
// Empty or unparseable value cells are dropped for that (series,
// timestamp) pair only. Anything else that goes wrong — unreadable
// file, malformed CSV, a bad index cell — fails the whole file with
// ErrMalformed.
//
// Parameters:
//   - path: File to read
//
// Returns:
//   - []Column: Value columns in file order, aligned to the index column
//   - error: ErrMalformed (wrapped) if the file cannot be parsed
func (p *Parser) Parse(path string) ([]Column, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrMalformed, path, err)
	}
	defer f.Close()

	// Source files are exported Latin-1; decode before CSV parsing so
	// degree signs and similar survive in headers.
	reader := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(f))
	reader.Comma = delimiter

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header of %s: %w", ErrMalformed, path, err)
	}
	if len(header) < 1 {
		return nil, fmt.Errorf("%w: %s has no columns", ErrMalformed, path)
	}

	// Units row: present in every export, carries no data.
	if _, err := reader.Read(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: reading units row of %s: %w", ErrMalformed, path, err)
	}

	columns := make([]Column, len(header)-1)
	for i, h := range header[1:] {
		columns[i] = Column{Key: ParseSeriesKey(h)}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", ErrMalformed, path, err)
		}

		timestamp, err := parseTimestamp(record[0])
		if err != nil {
			return nil, fmt.Errorf("%w: index cell %q in %s: %w", ErrMalformed, record[0], path, err)
		}

		for i := range columns {
			cell := record[i+1]
			value, ok := parseValue(cell)
			if !ok {
				if strings.TrimSpace(cell) != "" {
					p.log.Debug("dropping unparseable cell",
						"path", path,
						"series", columns[i].Key.ExternalID,
						"cell", cell,
					)
				}
				continue
			}
			columns[i].Points = append(columns[i].Points, seriesapi.Datapoint{
				Timestamp: timestamp,
				Value:     value,
			})
		}
	}

	return columns, nil
}

// parseTimestamp converts an index cell (seconds since epoch) to
// milliseconds.
func parseTimestamp(cell string) (int64, error) {
	seconds, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
	if err != nil {
		return 0, err
	}
	return seconds * millisecondsPerSecond, nil
}

// parseValue coerces a locale-formatted numeric cell. The source system
// writes a comma decimal separator; empty and non-numeric cells report
// ok=false and are dropped by the caller.
func parseValue(cell string) (float64, bool) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(trimmed, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
