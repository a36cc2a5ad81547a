package logstore

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/liftlog/internal/record"
)

// FilterCriteria narrows a record set before it reaches presentation code.
// Zero-valued fields impose no constraint. All set fields must match.
type FilterCriteria struct {
	// Exercise is compared against LogRecord.Exercise.
	Exercise string `json:"exercise,omitempty"`

	// Workout is compared against LogRecord.Group(): the origin link when
	// present, otherwise the workout name.
	Workout string `json:"workout,omitempty"`

	// ExactMatch selects normalized equality instead of normalized
	// substring containment.
	ExactMatch bool `json:"exactMatch,omitempty"`

	// Protocols keeps records whose protocol is any of these.
	Protocols []record.Protocol `json:"protocols,omitempty"`
}

// Normalize canonicalises a name for comparison: NFC, trimmed, one leading
// "[[" and one trailing "]]" removed, inner whitespace runs collapsed to a
// single space, lower-cased.
func Normalize(s string) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	s = strings.TrimPrefix(s, "[[")
	s = strings.TrimSuffix(s, "]]")
	s = strings.Join(strings.Fields(s), " ")
	// A Caser is stateful, so one per call.
	return cases.Lower(language.Und).String(s)
}

// ApplyFilter returns the records matching c. A nil or empty c returns
// records unchanged.
func ApplyFilter(records []record.LogRecord, c *FilterCriteria) []record.LogRecord {
	if c == nil {
		return records
	}
	exercise := Normalize(c.Exercise)
	workout := Normalize(c.Workout)
	protocols := make([]record.Protocol, len(c.Protocols))
	for i, p := range c.Protocols {
		protocols[i] = record.Protocol(strings.TrimSpace(string(p))).OrDefault()
	}
	if exercise == "" && workout == "" && len(protocols) == 0 {
		return records
	}

	out := make([]record.LogRecord, 0, len(records))
	for _, rec := range records {
		if exercise != "" && !nameMatches(Normalize(rec.Exercise), exercise, c.ExactMatch) {
			continue
		}
		if workout != "" && !nameMatches(Normalize(rec.Group()), workout, c.ExactMatch) {
			continue
		}
		if len(protocols) > 0 && !slices.Contains(protocols, rec.Protocol.OrDefault()) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func nameMatches(candidate, want string, exact bool) bool {
	if exact {
		return candidate == want
	}
	return strings.Contains(candidate, want)
}
