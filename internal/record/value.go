package record

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldValue is a sealed interface for custom column values.
// Only Number, Text and Flag implement it.
type FieldValue interface {
	fieldValue() // Sealed

	// String renders the value as it is stored in a CSV cell.
	String() string
}

// Number is a numeric custom value (duration, distance, heart rate, ...).
type Number float64

func (Number) fieldValue() {}

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// Text is a free-text custom value.
type Text string

func (Text) fieldValue() {}

func (t Text) String() string { return string(t) }

// Flag is a boolean custom value.
type Flag bool

func (Flag) fieldValue() {}

func (f Flag) String() string { return strconv.FormatBool(bool(f)) }

// ParseFieldValue infers the type of a CSV cell.
//
// A cell that round-trips through float formatting is a Number, the literals
// "true" and "false" are Flags, anything else non-blank is Text. Blank cells
// return ok=false. "007" and "1.50" stay Text so re-encoding never rewrites
// what the user typed.
func ParseFieldValue(cell string) (v FieldValue, ok bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil, false
	}
	switch s {
	case "true":
		return Flag(true), true
	case "false":
		return Flag(false), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		if strconv.FormatFloat(f, 'f', -1, 64) == s {
			return Number(f), true
		}
	}
	return Text(s), true
}

// FromAny converts a decoded JSON or YAML scalar into a FieldValue.
func FromAny(v any) (FieldValue, error) {
	switch val := v.(type) {
	case FieldValue:
		return val, nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(val), nil
	case int:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Number(f), nil
	case bool:
		return Flag(val), nil
	case string:
		return Text(val), nil
	default:
		return nil, fmt.Errorf("unsupported custom field type %T", v)
	}
}

// toAny is the inverse of FromAny, used for JSON encoding.
func toAny(v FieldValue) any {
	switch val := v.(type) {
	case Number:
		return float64(val)
	case Text:
		return string(val)
	case Flag:
		return bool(val)
	default:
		panic(fmt.Sprintf("record: unhandled FieldValue %T", v))
	}
}

// Fields maps custom column names to their values.
type Fields map[string]FieldValue

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// MarshalJSON encodes values as native JSON numbers, strings and booleans.
func (f Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	m := make(map[string]any, len(f))
	for k, v := range f {
		if v == nil {
			continue
		}
		m[k] = toAny(v)
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes an object of scalars.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out, err := fieldsFromMap(raw)
	if err != nil {
		return err
	}
	*f = out
	return nil
}

// UnmarshalYAML decodes a mapping of scalars.
func (f *Fields) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	out, err := fieldsFromMap(raw)
	if err != nil {
		return err
	}
	*f = out
	return nil
}

func fieldsFromMap(raw map[string]any) (Fields, error) {
	if raw == nil {
		return nil, nil
	}
	out := make(Fields, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		fv, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("custom field %q: %w", k, err)
		}
		out[k] = fv
	}
	return out, nil
}
