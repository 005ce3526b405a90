package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/roach88/wastelog/internal/service"
	"github.com/roach88/wastelog/internal/waste"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation rejected or scenarios failed
	ExitCommandError = 2 // Command error (bad flags, unreadable config, store unavailable)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
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

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // error kind, e.g. "NOT_FOUND"
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	switch v := data.(type) {
	case waste.Entry:
		return writeEntryText(f.Writer, v)
	case []waste.Entry:
		return writeEntriesText(f.Writer, v)
	case service.Stats:
		return writeStatsText(f.Writer, v)
	default:
		fmt.Fprintln(f.Writer, data)
		return nil
	}
}

// Error outputs an error in the configured format.
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

// Fail reports err and returns the ExitError the command should return.
// Rejected operations exit 1; anything else is a command error.
func (f *OutputFormatter) Fail(err error) error {
	var we *waste.Error
	if errors.As(err, &we) {
		details := map[string]string{}
		if we.ID != "" {
			details["id"] = we.ID
		}
		if we.Field != "" {
			details["field"] = we.Field
		}
		var d any
		if len(details) > 0 {
			d = details
		}
		if outErr := f.Error(string(we.Kind), we.Message, d); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "operation failed", err)
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if outErr := f.Error("E_COMMAND", exitErr.Error(), nil); outErr != nil {
			return outErr
		}
		return exitErr
	}

	if outErr := f.Error("E_COMMAND", err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "command failed", err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func writeEntryText(w io.Writer, e waste.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", e.ID)
	fmt.Fprintf(tw, "owner:\t%s\n", e.Owner)
	fmt.Fprintf(tw, "waste type:\t%s\n", e.WasteType)
	fmt.Fprintf(tw, "quantity:\t%s\n", formatQuantity(e.Quantity))
	fmt.Fprintf(tw, "recycled:\t%s\n", formatOptionalQuantity(e.RecycledQuantity))
	fmt.Fprintf(tw, "location:\t%s\n", e.Location)
	fmt.Fprintf(tw, "verified:\t%t\n", e.Verified)
	fmt.Fprintf(tw, "created:\t%s\n", formatTimestamp(e.CreatedAt))
	if at, ok := e.UpdatedAt.Get(); ok {
		fmt.Fprintf(tw, "updated:\t%s\n", formatTimestamp(at))
	} else {
		fmt.Fprintf(tw, "updated:\t-\n")
	}
	return tw.Flush()
}

func writeEntriesText(w io.Writer, entries []waste.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tQUANTITY\tRECYCLED\tLOCATION\tVERIFIED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
			e.ID,
			e.WasteType,
			formatQuantity(e.Quantity),
			formatOptionalQuantity(e.RecycledQuantity),
			e.Location,
			e.Verified,
		)
	}
	return tw.Flush()
}

func writeStatsText(w io.Writer, s service.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "entries:\t%d\n", s.Entries)
	fmt.Fprintf(tw, "verified:\t%d\n", s.Verified)
	fmt.Fprintf(tw, "outstanding:\t%s\n", formatQuantity(s.Outstanding))
	fmt.Fprintf(tw, "recycled:\t%s\n", formatQuantity(s.Recycled))
	return tw.Flush()
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func formatOptionalQuantity(q waste.Optional[float64]) string {
	if v, ok := q.Get(); ok {
		return formatQuantity(v)
	}
	return "-"
}

func formatTimestamp(ts waste.Timestamp) string {
	return ts.Time().UTC().Format(time.RFC3339Nano)
}
