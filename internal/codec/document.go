package codec

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/liftlog/internal/record"
)

// Document is a parsed log file: one header plus raw data rows.
//
// Rows keep their original text so a mutation rewrites only the rows it
// touches. Blank lines are dropped and the rendered text always ends with a
// newline.
type Document struct {
	header    []string
	hasHeader bool
	rows      []string
}

// ParseDocument splits text into logical rows. A newline inside a quoted
// field does not end a row, and "\r\n" terminators are accepted.
func ParseDocument(text string) *Document {
	d := &Document{}
	for _, row := range splitRows(text) {
		if strings.TrimSpace(row) == "" {
			continue
		}
		if !d.hasHeader {
			d.header = ParseHeader(row)
			d.hasHeader = true
			continue
		}
		d.rows = append(d.rows, row)
	}
	if !d.hasHeader {
		d.header = record.StandardColumns()
	}
	return d
}

// NewDocument returns an empty document with the standard header.
func NewDocument() *Document {
	return &Document{header: record.StandardColumns(), hasHeader: true}
}

// Header returns a copy of the column names. A missing or empty header
// reads as the standard columns.
func (d *Document) Header() []string {
	return slices.Clone(d.header)
}

// HasColumn reports whether name is in the header.
func (d *Document) HasColumn(name string) bool {
	return slices.Contains(d.header, name)
}

// Len returns the number of data rows.
func (d *Document) Len() int {
	return len(d.rows)
}

// Decode parses data row i against the header.
func (d *Document) Decode(i int) (record.LogRecord, error) {
	return DecodeRow(d.header, d.rows[i])
}

// Records decodes every data row, skipping malformed ones. onSkip, if not
// nil, is called with the index and error of each skipped row.
func (d *Document) Records(onSkip func(row int, err error)) []record.LogRecord {
	out := make([]record.LogRecord, 0, len(d.rows))
	for i, row := range d.rows {
		rec, err := DecodeRow(d.header, row)
		if err != nil {
			if onSkip != nil {
				onSkip(i, err)
			}
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Append encodes rec against the header and adds it as the last row.
func (d *Document) Append(rec record.LogRecord) error {
	line, err := EncodeRow(d.header, rec)
	if err != nil {
		return err
	}
	d.rows = append(d.rows, line)
	return nil
}

// Replace re-encodes row i from rec.
func (d *Document) Replace(i int, rec record.LogRecord) error {
	if i < 0 || i >= len(d.rows) {
		return fmt.Errorf("replace row %d: out of range", i)
	}
	line, err := EncodeRow(d.header, rec)
	if err != nil {
		return err
	}
	d.rows[i] = line
	return nil
}

// Remove deletes row i.
func (d *Document) Remove(i int) error {
	if i < 0 || i >= len(d.rows) {
		return fmt.Errorf("remove row %d: out of range", i)
	}
	d.rows = slices.Delete(d.rows, i, i+1)
	return nil
}

// AddColumn appends name to the header and an empty cell to every data row.
// Existing columns keep their positions. Adding a column that already
// exists is a no-op and reports false.
func (d *Document) AddColumn(name string) bool {
	if d.HasColumn(name) {
		return false
	}
	d.header = append(d.header, name)
	d.hasHeader = true
	for i := range d.rows {
		d.rows[i] += ","
	}
	return true
}

// String renders the document as file text.
func (d *Document) String() (string, error) {
	head, err := EncodeHeader(d.header)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(head)
	b.WriteByte('\n')
	for _, row := range d.rows {
		b.WriteString(row)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// ReadHeader returns the header of text without decoding any data rows.
func ReadHeader(text string) []string {
	for start := 0; start < len(text); {
		row, next := nextRow(text, start)
		if strings.TrimSpace(row) != "" {
			return ParseHeader(row)
		}
		start = next
	}
	return record.StandardColumns()
}

// splitRows splits text into logical CSV rows.
func splitRows(text string) []string {
	var rows []string
	for start := 0; start < len(text); {
		row, next := nextRow(text, start)
		rows = append(rows, row)
		start = next
	}
	return rows
}

// nextRow returns the row beginning at start and the offset just past its
// terminator. Quote state is only entered at the start of a field, so a
// stray quote inside an unquoted cell does not swallow the rest of the file.
func nextRow(text string, start int) (string, int) {
	inQuotes := false
	fieldStart := true
	for i := start; i < len(text); i++ {
		c := text[i]
		if inQuotes {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					i++
				} else {
					inQuotes = false
				}
			}
			continue
		}
		switch c {
		case '"':
			inQuotes = fieldStart
		case '\n':
			return strings.TrimSuffix(text[start:i], "\r"), i + 1
		}
		fieldStart = c == ','
	}
	return strings.TrimSuffix(text[start:], "\r"), len(text)
}
