// Package apperr defines the closed set of failures csvlens reports to users.
// Every error that reaches a CLI command or an HTTP handler is either one of
// these types (possibly wrapped) or an internal failure.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind codes, stable for JSON responses and metrics labels.
const (
	KindParse            = "parse_error"
	KindInsufficientData = "insufficient_data"
	KindInvalidSelection = "invalid_selection"
	KindInternal         = "internal_error"
)

// ParseError indicates the input is not valid delimited tabular text.
// The user must upload a valid CSV.
type ParseError struct {
	Line int // 1-based line in the input, 0 when unknown
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "malformed CSV"
	}
	if e.Line > 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("parse error: %s: %v", msg, e.Err)
	}
	return "parse error: " + msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// InsufficientDataError indicates the dataset lacks the columns or rows an
// operation needs.
type InsufficientDataError struct {
	Op   string
	Need string
}

func (e *InsufficientDataError) Error() string {
	if e.Op == "" {
		return "insufficient data: " + e.Need
	}
	return fmt.Sprintf("insufficient data for %s: %s", e.Op, e.Need)
}

// InvalidSelectionError indicates parameters that violate an operation's
// input constraints, e.g. target == candidate or an unknown column.
type InvalidSelectionError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidSelectionError) Error() string {
	switch {
	case e.Field != "" && e.Value != "":
		return fmt.Sprintf("invalid selection for %s %q: %s", e.Field, e.Value, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid selection for %s: %s", e.Field, e.Reason)
	default:
		return "invalid selection: " + e.Reason
	}
}

// Parse builds a ParseError.
func Parse(line int, msg string, err error) *ParseError {
	return &ParseError{Line: line, Msg: msg, Err: err}
}

// Insufficient builds an InsufficientDataError.
func Insufficient(op, need string) *InsufficientDataError {
	return &InsufficientDataError{Op: op, Need: need}
}

// Invalid builds an InvalidSelectionError.
func Invalid(field, value, reason string) *InvalidSelectionError {
	return &InvalidSelectionError{Field: field, Value: value, Reason: reason}
}

// Kind returns the stable code for err.
func Kind(err error) string {
	var pe *ParseError
	var ie *InsufficientDataError
	var se *InvalidSelectionError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return KindParse
	case errors.As(err, &ie):
		return KindInsufficientData
	case errors.As(err, &se):
		return KindInvalidSelection
	default:
		return KindInternal
	}
}

// IsUserError reports whether err belongs to the taxonomy, i.e. the user can
// fix it by re-uploading or changing the selection.
func IsUserError(err error) bool {
	k := Kind(err)
	return k != "" && k != KindInternal
}

// Message renders err for a non-technical reader.
func Message(err error) string {
	var pe *ParseError
	var ie *InsufficientDataError
	var se *InvalidSelectionError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		msg := "The file could not be read as a CSV table"
		if pe.Msg != "" {
			msg += ": " + pe.Msg
		}
		if pe.Line > 0 {
			msg += fmt.Sprintf(" (line %d)", pe.Line)
		}
		return msg + ". Please upload a valid CSV file."
	case errors.As(err, &ie):
		return "Not enough data: " + ie.Need + "."
	case errors.As(err, &se):
		if se.Field != "" {
			return fmt.Sprintf("Check your %s selection: %s.", se.Field, se.Reason)
		}
		return "Check your selection: " + se.Reason + "."
	default:
		return "Something went wrong while analyzing the data."
	}
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case "":
		return http.StatusOK
	case KindParse:
		return http.StatusBadRequest
	case KindInsufficientData, KindInvalidSelection:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
