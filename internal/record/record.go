package record

import (
	"maps"
	"slices"
)

// Standard column names, in file order.
const (
	ColDate      = "date"
	ColExercise  = "exercise"
	ColReps      = "reps"
	ColWeight    = "weight"
	ColVolume    = "volume"
	ColOrigin    = "origin"
	ColWorkout   = "workout"
	ColTimestamp = "timestamp"
	ColNotes     = "notes"
	ColProtocol  = "protocol"
)

var standardColumns = []string{
	ColDate,
	ColExercise,
	ColReps,
	ColWeight,
	ColVolume,
	ColOrigin,
	ColWorkout,
	ColTimestamp,
	ColNotes,
	ColProtocol,
}

// StandardColumns returns a fresh copy of the fixed column prefix.
func StandardColumns() []string {
	return slices.Clone(standardColumns)
}

// IsStandardColumn reports whether name is one of the fixed columns.
// The comparison is case-sensitive.
func IsStandardColumn(name string) bool {
	return slices.Contains(standardColumns, name)
}

// Protocol tags how a set was performed.
type Protocol string

const (
	ProtocolStandard  Protocol = "standard"
	ProtocolDropSet   Protocol = "drop_set"
	ProtocolMyoReps   Protocol = "myo_reps"
	ProtocolRestPause Protocol = "rest_pause"
	ProtocolSuperset  Protocol = "superset"
	ProtocolTwentyOne Protocol = "twentyone"
)

// Protocols lists every known protocol in display order.
var Protocols = []Protocol{
	ProtocolStandard,
	ProtocolDropSet,
	ProtocolMyoReps,
	ProtocolRestPause,
	ProtocolSuperset,
	ProtocolTwentyOne,
}

// Valid reports whether p is a known protocol.
func (p Protocol) Valid() bool {
	return slices.Contains(Protocols, p)
}

// OrDefault returns p, or ProtocolStandard when p is empty.
func (p Protocol) OrDefault() Protocol {
	if p == "" {
		return ProtocolStandard
	}
	return p
}

// LogRecord is one logged set.
type LogRecord struct {
	Date         string   `json:"date" yaml:"date"`
	Exercise     string   `json:"exercise" yaml:"exercise"`
	Reps         *int     `json:"reps,omitempty" yaml:"reps,omitempty"`
	Weight       *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	Volume       *float64 `json:"volume,omitempty" yaml:"volume,omitempty"`
	Origin       string   `json:"origin,omitempty" yaml:"origin,omitempty"`
	Workout      string   `json:"workout,omitempty" yaml:"workout,omitempty"`
	Timestamp    int64    `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Notes        string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	Protocol     Protocol `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	CustomFields Fields   `json:"customFields,omitempty" yaml:"customFields,omitempty"`
}

// Group returns the label used for workout grouping: Origin when set,
// otherwise Workout.
func (r LogRecord) Group() string {
	if r.Origin != "" {
		return r.Origin
	}
	return r.Workout
}

// WithDerivedVolume fills Volume with reps×weight when Volume is absent and
// both operands are present.
func (r LogRecord) WithDerivedVolume() LogRecord {
	if r.Volume == nil && r.Reps != nil && r.Weight != nil {
		r.Volume = Float(float64(*r.Reps) * *r.Weight)
	}
	return r
}

// Clone returns a deep copy of r.
func (r LogRecord) Clone() LogRecord {
	out := r
	if r.Reps != nil {
		out.Reps = Int(*r.Reps)
	}
	if r.Weight != nil {
		out.Weight = Float(*r.Weight)
	}
	if r.Volume != nil {
		out.Volume = Float(*r.Volume)
	}
	if r.CustomFields != nil {
		out.CustomFields = maps.Clone(r.CustomFields)
	}
	return out
}

// Int returns a pointer to n.
func Int(n int) *int { return &n }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }
