// Package entrycheck validates log entries before they are written.
//
// The constraints live in an embedded CUE schema (entry.cue) so the rules
// read as data: non-blank date and exercise, non-negative reps, weight and
// volume, a known protocol and scalar custom values. Checks CUE cannot
// express on map keys (reserved column names) are done in Go.
package entrycheck

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/liftlog/internal/record"
)

//go:embed entry.cue
var entrySchema string

// Error lists every problem found in one entry.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return "invalid entry: " + strings.Join(e.Problems, "; ")
}

// Validator checks records against the entry schema.
// A cue.Context is not safe for concurrent use, so Validate serializes.
type Validator struct {
	mu    sync.Mutex
	ctx   *cue.Context
	entry cue.Value
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(entrySchema, cue.Filename("entry.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling entry schema: %w", err)
	}
	entry := schema.LookupPath(cue.ParsePath("#Entry"))
	if !entry.Exists() {
		return nil, fmt.Errorf("entry schema has no #Entry definition")
	}
	return &Validator{ctx: ctx, entry: entry}, nil
}

// Validate returns an *Error describing every violated constraint, or nil.
func (v *Validator) Validate(rec record.LogRecord) error {
	var problems []string
	for _, key := range rec.CustomFields.Keys() {
		switch {
		case strings.TrimSpace(key) == "":
			problems = append(problems, "customFields: blank field name")
		case record.IsStandardColumn(key):
			problems = append(problems, fmt.Sprintf("customFields.%s: reserved column name", key))
		}
	}

	v.mu.Lock()
	value := v.entry.Unify(v.ctx.Encode(toCUEInput(rec)))
	err := value.Validate(cue.Concrete(true))
	v.mu.Unlock()

	for _, e := range cueerrors.Errors(err) {
		problems = append(problems, e.Error())
	}

	if len(problems) > 0 {
		return &Error{Problems: problems}
	}
	return nil
}

func toCUEInput(rec record.LogRecord) map[string]any {
	in := map[string]any{
		"date":     rec.Date,
		"exercise": rec.Exercise,
		"protocol": string(rec.Protocol.OrDefault()),
	}
	if rec.Reps != nil {
		in["reps"] = *rec.Reps
	}
	if rec.Weight != nil {
		in["weight"] = *rec.Weight
	}
	if rec.Volume != nil {
		in["volume"] = *rec.Volume
	}
	if rec.Origin != "" {
		in["origin"] = rec.Origin
	}
	if rec.Workout != "" {
		in["workout"] = rec.Workout
	}
	if rec.Timestamp != 0 {
		in["timestamp"] = rec.Timestamp
	}
	if rec.Notes != "" {
		in["notes"] = rec.Notes
	}
	if len(rec.CustomFields) > 0 {
		custom := make(map[string]any, len(rec.CustomFields))
		for k, fv := range rec.CustomFields {
			switch val := fv.(type) {
			case record.Number:
				custom[k] = float64(val)
			case record.Text:
				custom[k] = string(val)
			case record.Flag:
				custom[k] = bool(val)
			}
		}
		in["customFields"] = custom
	}
	return in
}
