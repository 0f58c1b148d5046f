package errors

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RecordContext provides context information for record-level parsing operations
type RecordContext struct {
	File     string `json:"file"`
	Record   int    `json:"record"`
	Field    string `json:"field"`
	Value    string `json:"value"`
	Expected string `json:"expected,omitempty"`
}

// RecordParseError extends the base ParseError with record context. Recoverable
// errors let ingestion skip the record and keep going.
type RecordParseError struct {
	*ReconcilerError
	Context     *RecordContext `json:"context"`
	Recoverable bool           `json:"recoverable"`
}

// Error implements the error interface with location information
func (e *RecordParseError) Error() string {
	var parts []string

	parts = append(parts, e.ReconcilerError.Error())

	if e.Context != nil {
		location := fmt.Sprintf("at %s", filepath.Base(e.Context.File))
		if e.Context.Record > 0 {
			location += fmt.Sprintf(" record %d", e.Context.Record)
		}
		if e.Context.Field != "" {
			location += fmt.Sprintf(" field '%s'", e.Context.Field)
		}
		parts = append(parts, location)
	}

	return strings.Join(parts, " ")
}

// GetDetailedError returns a detailed multi-line error description
func (e *RecordParseError) GetDetailedError() string {
	var lines []string

	lines = append(lines, fmt.Sprintf("ERROR: %s", e.Message))

	if e.Context != nil {
		lines = append(lines, fmt.Sprintf("  File: %s", e.Context.File))
		if e.Context.Record > 0 {
			lines = append(lines, fmt.Sprintf("  Record: %d", e.Context.Record))
		}
		if e.Context.Field != "" {
			lines = append(lines, fmt.Sprintf("  Field: %s", e.Context.Field))
		}
		if e.Context.Value != "" {
			lines = append(lines, fmt.Sprintf("  Value: '%s'", e.Context.Value))
		}
		if e.Context.Expected != "" {
			lines = append(lines, fmt.Sprintf("  Expected: %s", e.Context.Expected))
		}
	}

	if e.Suggestion != "" {
		lines = append(lines, fmt.Sprintf("  Suggestion: %s", e.Suggestion))
	}

	return strings.Join(lines, "\n")
}

// NewRecordParseError creates a new record-level parse error
func NewRecordParseError(code ErrorCode, context *RecordContext, message string, cause error) *RecordParseError {
	var baseError *ReconcilerError
	if cause != nil {
		baseError = Wrap(cause, CategoryParse, code, message)
	} else {
		baseError = New(CategoryParse, code, message)
	}

	if context != nil {
		baseError.WithContext("file", context.File).
			WithContext("record", context.Record).
			WithContext("field", context.Field).
			WithContext("value", context.Value)
	}

	return &RecordParseError{
		ReconcilerError: baseError,
		Context:         context,
		Recoverable:     true,
	}
}

// WithSuggestion adds a suggestion and returns the RecordParseError
func (e *RecordParseError) WithSuggestion(suggestion string) *RecordParseError {
	e.ReconcilerError.WithSuggestion(suggestion)
	return e
}

// WithRecoverable sets whether this error is recoverable
func (e *RecordParseError) WithRecoverable(recoverable bool) *RecordParseError {
	e.Recoverable = recoverable
	return e
}

// Common record error constructors

// MissingOrderIDError creates an error for records without an identifier
func MissingOrderIDError(file string, record int) *RecordParseError {
	context := &RecordContext{
		File:     file,
		Record:   record,
		Field:    "orderId",
		Expected: "non-empty order identifier",
	}

	return NewRecordParseError(CodeMissingHeader, context, "record has no order identifier", nil).
		WithSuggestion("records without an identifier are skipped; re-export if this is unexpected")
}

// InvalidAmountError creates an error for invalid amount format
func InvalidAmountError(file string, record int, field string, value string) *RecordParseError {
	context := &RecordContext{
		File:     file,
		Record:   record,
		Field:    field,
		Value:    value,
		Expected: "numeric amount, optionally with a currency marker",
	}

	return NewRecordParseError(CodeInvalidRecord, context, "invalid amount format", nil).
		WithSuggestion("amounts like '$12.34', '500 TRY' or '1.234,56' are accepted")
}

// InvalidDateError creates an error for invalid date format
func InvalidDateError(file string, record int, field string, value string) *RecordParseError {
	context := &RecordContext{
		File:     file,
		Record:   record,
		Field:    field,
		Value:    value,
		Expected: "order date such as 2024-01-15 or 01/15/2024",
	}

	return NewRecordParseError(CodeInvalidRecord, context, "invalid date format", nil).
		WithSuggestion("unparsable dates do not fail the run; date validation is skipped for the record")
}

// HeaderNotFoundError creates an error when a CSV export has no usable header row
func HeaderNotFoundError(file string, marker string) *RecordParseError {
	context := &RecordContext{
		File:     file,
		Expected: fmt.Sprintf("header row containing '%s'", marker),
	}

	err := NewRecordParseError(CodeMissingHeader, context, "header row not found in CSV export", nil).
		WithSuggestion("export the orders report again without modifying its header rows")
	err.Recoverable = false
	return err
}

// EncodingError creates an error for file encoding issues
func EncodingError(file string, record int, cause error) *RecordParseError {
	context := &RecordContext{
		File:   file,
		Record: record,
	}

	err := NewRecordParseError(CodeEncodingError, context, "file encoding error", cause).
		WithSuggestion("save the file in UTF-8 encoding")
	err.Recoverable = false
	return err
}

// RecordErrorCollector collects record-level errors during ingestion
type RecordErrorCollector struct {
	errors          []*RecordParseError
	maxErrors       int
	continueOnError bool
}

// NewRecordErrorCollector creates a new error collector
func NewRecordErrorCollector(maxErrors int, continueOnError bool) *RecordErrorCollector {
	return &RecordErrorCollector{
		errors:          make([]*RecordParseError, 0),
		maxErrors:       maxErrors,
		continueOnError: continueOnError,
	}
}

// Add adds an error to the collector and reports whether processing may continue
func (c *RecordErrorCollector) Add(err *RecordParseError) bool {
	if err == nil {
		return true
	}

	c.errors = append(c.errors, err)

	if len(c.errors) >= c.maxErrors {
		return false
	}

	return c.continueOnError || err.Recoverable
}

// HasErrors returns true if any errors have been collected
func (c *RecordErrorCollector) HasErrors() bool {
	return len(c.errors) > 0
}

// GetErrors returns all collected errors
func (c *RecordErrorCollector) GetErrors() []*RecordParseError {
	return c.errors
}

// GetReconcilerErrors converts all errors to base ReconcilerError type
func (c *RecordErrorCollector) GetReconcilerErrors() []*ReconcilerError {
	result := make([]*ReconcilerError, len(c.errors))
	for i, err := range c.errors {
		result[i] = err.ReconcilerError
	}
	return result
}

// GetSummary returns an error summary for all collected errors
func (c *RecordErrorCollector) GetSummary() *ErrorSummary {
	return NewErrorSummary(c.GetReconcilerErrors())
}

// Clear clears all collected errors
func (c *RecordErrorCollector) Clear() {
	c.errors = c.errors[:0]
}
