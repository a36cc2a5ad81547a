package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestStandardColumns_Order(t *testing.T) {
	assert.Equal(t, []string{
		"date", "exercise", "reps", "weight", "volume",
		"origin", "workout", "timestamp", "notes", "protocol",
	}, StandardColumns())
}

func TestStandardColumns_ReturnsCopy(t *testing.T) {
	cols := StandardColumns()
	cols[0] = "mutated"
	assert.Equal(t, "date", StandardColumns()[0])
}

func TestIsStandardColumn(t *testing.T) {
	assert.True(t, IsStandardColumn("reps"))
	assert.False(t, IsStandardColumn("Reps"), "comparison is case-sensitive")
	assert.False(t, IsStandardColumn("duration"))
}

func TestProtocol(t *testing.T) {
	assert.True(t, ProtocolDropSet.Valid())
	assert.False(t, Protocol("cluster").Valid())
	assert.Equal(t, ProtocolStandard, Protocol("").OrDefault())
	assert.Equal(t, ProtocolMyoReps, ProtocolMyoReps.OrDefault())
}

func TestParseFieldValue(t *testing.T) {
	tests := []struct {
		cell   string
		want   FieldValue
		wantOK bool
	}{
		{"", nil, false},
		{"   ", nil, false},
		{"42", Number(42), true},
		{"12.5", Number(12.5), true},
		{"-3", Number(-3), true},
		{"true", Flag(true), true},
		{"false", Flag(false), true},
		{"easy", Text("easy"), true},
		{"007", Text("007"), true},
		{"1.50", Text("1.50"), true},
		{"NaN", Text("NaN"), true},
		{" 9 ", Number(9), true},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got, ok := ParseFieldValue(tt.cell)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldValue_String(t *testing.T) {
	assert.Equal(t, "12.5", Number(12.5).String())
	assert.Equal(t, "1800", Number(1800).String())
	assert.Equal(t, "true", Flag(true).String())
	assert.Equal(t, "a,b", Text("a,b").String())
}

func TestFields_JSON(t *testing.T) {
	in := Fields{"duration": Number(90), "felt": Text("good"), "pr": Flag(true)}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"duration":90,"felt":"good","pr":true}`, string(data))

	var out Fields
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestFields_JSONRejectsNested(t *testing.T) {
	var out Fields
	err := json.Unmarshal([]byte(`{"sets":[1,2]}`), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sets")
}

func TestLogRecord_YAML(t *testing.T) {
	src := `
date: "2024-03-01"
exercise: Running
protocol: standard
customFields:
  distance: 5.2
  duration: 1800
  outdoor: true
`
	var rec LogRecord
	require.NoError(t, yaml.Unmarshal([]byte(src), &rec))

	assert.Equal(t, "Running", rec.Exercise)
	assert.Nil(t, rec.Reps)
	assert.Equal(t, Fields{
		"distance": Number(5.2),
		"duration": Number(1800),
		"outdoor":  Flag(true),
	}, rec.CustomFields)
}

func TestFields_Keys(t *testing.T) {
	f := Fields{"b": Number(1), "a": Number(2), "c": Number(3)}
	assert.Equal(t, []string{"a", "b", "c"}, f.Keys())
}

func TestWithDerivedVolume(t *testing.T) {
	rec := LogRecord{Reps: Int(8), Weight: Float(100)}.WithDerivedVolume()
	require.NotNil(t, rec.Volume)
	assert.Equal(t, 800.0, *rec.Volume)

	explicit := LogRecord{Reps: Int(8), Weight: Float(100), Volume: Float(1)}.WithDerivedVolume()
	assert.Equal(t, 1.0, *explicit.Volume)

	cardio := LogRecord{Exercise: "Running"}.WithDerivedVolume()
	assert.Nil(t, cardio.Volume)
}

func TestClone_IsDeep(t *testing.T) {
	orig := LogRecord{Reps: Int(5), CustomFields: Fields{"rpe": Number(8)}}
	cp := orig.Clone()

	*cp.Reps = 6
	cp.CustomFields["rpe"] = Number(9)

	assert.Equal(t, 5, *orig.Reps)
	assert.Equal(t, Number(8), orig.CustomFields["rpe"])
}

func TestGroup(t *testing.T) {
	assert.Equal(t, "[[Push Day]]", LogRecord{Origin: "[[Push Day]]", Workout: "Push"}.Group())
	assert.Equal(t, "Push", LogRecord{Workout: "Push"}.Group())
}
