// Package codec converts between CSV text and workout log records.
//
// The file format is RFC 4180: the first non-blank line is the header,
// every following non-blank line is one record. Fields that contain the
// delimiter, a double quote or a newline are wrapped in double quotes with
// internal quotes doubled.
package codec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/liftlog/internal/record"
)

// ErrMalformedRow is returned for rows whose quoting cannot be parsed or
// whose column count differs from the header.
var ErrMalformedRow = errors.New("malformed row")

// ParseHeader decodes a header line into column names.
// Names are trimmed. A header that cannot be parsed, or whose names are all
// blank, yields the standard columns.
func ParseHeader(line string) []string {
	fields, err := splitFields(line)
	if err != nil {
		return record.StandardColumns()
	}
	blank := true
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
		if fields[i] != "" {
			blank = false
		}
	}
	if blank {
		return record.StandardColumns()
	}
	return fields
}

// EncodeHeader renders schema as a header line, without a line terminator.
func EncodeHeader(schema []string) (string, error) {
	return joinFields(schema)
}

// DecodeRow maps a data line onto a record using header positions.
//
// Columns with a standard name fill the matching field. Any other non-blank
// column name becomes a custom field. Blank numeric cells stay nil so callers
// can tell "not measured" from "measured as zero". Notes are kept verbatim;
// every other cell is trimmed.
func DecodeRow(header []string, line string) (record.LogRecord, error) {
	fields, err := splitFields(line)
	if err != nil {
		return record.LogRecord{}, err
	}
	if len(fields) != len(header) {
		return record.LogRecord{}, fmt.Errorf("%w: %d columns, header has %d", ErrMalformedRow, len(fields), len(header))
	}

	var rec record.LogRecord
	for i, col := range header {
		cell := strings.TrimSpace(fields[i])
		switch col {
		case record.ColDate:
			rec.Date = cell
		case record.ColExercise:
			rec.Exercise = cell
		case record.ColReps:
			rec.Reps = parseInt(cell)
		case record.ColWeight:
			rec.Weight = parseFloat(cell)
		case record.ColVolume:
			rec.Volume = parseFloat(cell)
		case record.ColOrigin:
			rec.Origin = cell
		case record.ColWorkout:
			rec.Workout = cell
		case record.ColTimestamp:
			rec.Timestamp = parseTimestamp(cell)
		case record.ColNotes:
			rec.Notes = fields[i]
		case record.ColProtocol:
			rec.Protocol = record.Protocol(cell).OrDefault()
		case "":
			// Unnamed column, nothing to map it to.
		default:
			v, ok := record.ParseFieldValue(cell)
			if !ok {
				continue
			}
			if rec.CustomFields == nil {
				rec.CustomFields = make(record.Fields)
			}
			rec.CustomFields[col] = v
		}
	}
	rec.Protocol = rec.Protocol.OrDefault()
	return rec, nil
}

// EncodeRow projects rec onto schema order. Custom fields missing from rec
// become empty cells. Custom fields absent from schema are not written.
func EncodeRow(schema []string, rec record.LogRecord) (string, error) {
	cells := make([]string, len(schema))
	for i, col := range schema {
		cells[i] = cellFor(col, rec)
	}
	return joinFields(cells)
}

func cellFor(col string, rec record.LogRecord) string {
	switch col {
	case record.ColDate:
		return rec.Date
	case record.ColExercise:
		return rec.Exercise
	case record.ColReps:
		if rec.Reps == nil {
			return ""
		}
		return strconv.Itoa(*rec.Reps)
	case record.ColWeight:
		return formatFloat(rec.Weight)
	case record.ColVolume:
		return formatFloat(rec.Volume)
	case record.ColOrigin:
		return rec.Origin
	case record.ColWorkout:
		return rec.Workout
	case record.ColTimestamp:
		if rec.Timestamp == 0 {
			return ""
		}
		return strconv.FormatInt(rec.Timestamp, 10)
	case record.ColNotes:
		return rec.Notes
	case record.ColProtocol:
		return string(rec.Protocol.OrDefault())
	default:
		v, ok := rec.CustomFields[col]
		if !ok || v == nil {
			return ""
		}
		return v.String()
	}
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

// parseInt accepts integers and whole floats ("8", "8.0"). Anything else,
// including blank, is treated as not measured.
func parseInt(cell string) *int {
	if cell == "" {
		return nil
	}
	if n, err := strconv.Atoi(cell); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(f)
	return &n
}

func parseFloat(cell string) *float64 {
	if cell == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func parseTimestamp(cell string) int64 {
	if cell == "" {
		return 0
	}
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int64(f)
	}
	return 0
}

// splitFields parses exactly one CSV record from line.
func splitFields(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	if _, err := r.Read(); err != io.EOF {
		return nil, fmt.Errorf("%w: more than one record on line", ErrMalformedRow)
	}
	return fields, nil
}

func joinFields(fields []string) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(fields); err != nil {
		return "", fmt.Errorf("encode row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("encode row: %w", err)
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}
