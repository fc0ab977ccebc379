// Package csvutil reads CSV exports and coerces their loosely-typed fields.
// The source sheets come from an external system: blank cells, mixed
// timestamp formats and stray whitespace are normal, so every accessor is
// tolerant and falls back to a zero value instead of failing the row.
package csvutil

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one CSV record keyed by header name.
type Row map[string]string

// ReadAll reads an entire CSV document, mapping each record onto its header.
func ReadAll(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		row := make(Row, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Str returns the trimmed cell value.
func (r Row) Str(key string) string {
	return strings.TrimSpace(r[key])
}

// Int parses an integer cell; ok is false for blank or malformed values.
func (r Row) Int(key string) (int64, bool) {
	s := r.Str(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// OptionalInt parses an integer cell into a nullable value.
func (r Row) OptionalInt(key string) *int64 {
	if v, ok := r.Int(key); ok {
		return &v
	}
	return nil
}

// Bool parses a boolean cell the way the source system writes them.
func (r Row) Bool(key string) bool {
	switch strings.ToLower(r.Str(key)) {
	case "true", "1", "yes", "t":
		return true
	default:
		return false
	}
}

// Decimal parses a monetary cell; blank or malformed values become zero.
func (r Row) Decimal(key string) decimal.Decimal {
	s := r.Str(key)
	if s == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// timeFormats are the timestamp layouts observed across the source exports.
var timeFormats = []string{
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Time parses a timestamp cell against the known layouts; nil when blank or
// unparseable. Layouts without a zone are taken as UTC.
func (r Row) Time(key string) *time.Time {
	s := r.Str(key)
	if s == "" {
		return nil
	}
	for _, layout := range timeFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

// JSON parses a JSON-object cell; blank or malformed values become an empty
// map so downstream code never sees nil metadata.
func (r Row) JSON(key string) map[string]any {
	s := r.Str(key)
	if s == "" {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}
