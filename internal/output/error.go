package output

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

// ErrorOutput represents a structured error for JSON output.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Cause      string            `json:"cause,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// FormatError formats an error for display.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}

	if format == FormatJSON {
		return formatErrorJSON(w, err)
	}
	return formatErrorText(w, err)
}

func toDetail(err error) ErrorDetail {
	var ce *cferr.CoinfundError
	if !errors.As(err, &ce) {
		return ErrorDetail{
			Code:     "GENERAL_ERROR",
			Message:  err.Error(),
			ExitCode: cferr.ExitGeneral,
		}
	}

	detail := ErrorDetail{
		Code:       ce.Code,
		Message:    ce.Message,
		Details:    ce.Details,
		Suggestion: ce.Suggestion,
		ExitCode:   ce.ExitCode,
	}
	// Provider and node messages are the useful part of most failures.
	if root := rootCause(ce); root != nil {
		detail.Cause = root.Error()
	}
	return detail
}

// rootCause returns the first error below ce that is not a CoinfundError.
func rootCause(ce *cferr.CoinfundError) error {
	for cause := ce.Cause; cause != nil; {
		var next *cferr.CoinfundError
		if !errors.As(cause, &next) {
			return cause
		}
		if next.Cause == nil {
			return nil
		}
		cause = next.Cause
	}
	return nil
}

func formatErrorJSON(w io.Writer, err error) error {
	return WriteJSON(w, ErrorOutput{Error: toDetail(err)})
}

func formatErrorText(w io.Writer, err error) error {
	var sb strings.Builder
	d := toDetail(err)

	sb.WriteString(fmt.Sprintf("Error: %s\n", d.Message))
	if d.Cause != "" {
		sb.WriteString(fmt.Sprintf("Reason: %s\n", d.Cause))
	}

	if len(d.Details) > 0 {
		keys := make([]string, 0, len(d.Details))
		for k := range d.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nDetails:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, d.Details[k]))
		}
	}

	if d.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\nSuggestion: %s\n", d.Suggestion))
	}

	_, writeErr := io.WriteString(w, sb.String())
	return writeErr
}

// FormatSuccess formats a success message.
func FormatSuccess(w io.Writer, message string, format Format) error {
	if format == FormatJSON {
		return WriteJSON(w, map[string]string{"status": "success", "message": message})
	}
	_, err := fmt.Fprintln(w, message)
	return err
}
