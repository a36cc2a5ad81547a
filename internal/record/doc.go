// Package record defines the workout log entry types shared by every other
// liftlog package.
//
// This package contains type definitions only. It imports nothing internal,
// so codec, logstore, api and cli can all depend on it without cycles.
//
// Key conventions:
//   - Numeric standard fields are pointers: nil means "not measured", a
//     pointer to zero means "measured as zero"
//   - Timestamp is Unix milliseconds, 0 means absent
//   - Custom fields are a closed union (Number | Text | Flag), see FieldValue
//   - An empty Protocol is read as ProtocolStandard
package record
