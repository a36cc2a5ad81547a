package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/roach88/liftlog/internal/logstore"
	"github.com/roach88/liftlog/internal/record"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The store rejected or failed the operation
	ExitCommandError = 2 // Bad flags, unreadable input files, unusable config
)

// ExitError carries the exit code a command should end with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err. Errors that are not an
// ExitError map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as a JSON CLIResponse.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; defaults to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope for every command result.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// textWriter is implemented by results with a custom text rendering.
type textWriter interface {
	WriteText(w io.Writer) error
}

// Success writes data in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	if tw, ok := data.(textWriter); ok {
		return tw.WriteText(f.Writer)
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog writes a diagnostic line when verbose mode is on.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// StoreFailure reports a log store error and returns the ExitError the
// command should end with. Invalid input exits with ExitCommandError, every
// other store failure with ExitFailure.
func (f *OutputFormatter) StoreFailure(message string, err error) error {
	code := string(logstore.CodeOf(err))
	if code == "" {
		code = "STORE_ERROR"
	}
	if outErr := f.Error(code, err.Error(), nil); outErr != nil {
		return outErr
	}
	exit := ExitFailure
	if logstore.IsInvalidError(err) {
		exit = ExitCommandError
	}
	return WrapExitError(exit, message, err)
}

// recordTable renders records as an aligned table in text mode and as a
// plain array in JSON.
type recordTable []record.LogRecord

func (t recordTable) MarshalJSON() ([]byte, error) {
	return json.Marshal([]record.LogRecord(t))
}

func (t recordTable) WriteText(w io.Writer) error {
	if len(t) == 0 {
		_, err := fmt.Fprintln(w, "No entries.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tEXERCISE\tREPS\tWEIGHT\tVOLUME\tWORKOUT\tPROTOCOL\tTIMESTAMP\tEXTRA")
	for _, r := range t {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.Date, r.Exercise,
			intCell(r.Reps), floatCell(r.Weight), floatCell(r.Volume),
			r.Group(), r.Protocol.OrDefault(), r.Timestamp,
			extraCell(r),
		)
	}
	return tw.Flush()
}

// nameList renders one name per line.
type nameList []string

func (l nameList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l nameList) WriteText(w io.Writer) error {
	for _, n := range l {
		if _, err := fmt.Fprintln(w, n); err != nil {
			return err
		}
	}
	return nil
}

func intCell(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}

func floatCell(p *float64) string {
	if p == nil {
		return "-"
	}
	return record.Number(*p).String()
}

func extraCell(r record.LogRecord) string {
	var parts []string
	for _, k := range r.CustomFields.Keys() {
		parts = append(parts, k+"="+r.CustomFields[k].String())
	}
	if r.Notes != "" {
		parts = append(parts, fmt.Sprintf("notes=%q", r.Notes))
	}
	return strings.Join(parts, " ")
}
