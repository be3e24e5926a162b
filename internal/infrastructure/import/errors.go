package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Row error codes
const (
	ErrCodeMalformedRow   = "ERR_IMPORT_MALFORMED_ROW"
	ErrCodeRequiredField  = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeInvalidNumber  = "ERR_IMPORT_INVALID_NUMBER"
	ErrCodeInvalidProduct = "ERR_IMPORT_INVALID_PRODUCT"
	ErrCodeDuplicate      = "ERR_IMPORT_DUPLICATE_IN_FILE"
)

var (
	ErrEmptyFile       = errors.New("catalog file is empty")
	ErrInvalidEncoding = errors.New("catalog file is not valid UTF-8")
	ErrMissingHeader   = errors.New("catalog file missing header row")
	ErrNoDataRows      = errors.New("catalog file contains no products")
)

// RowError is a problem with one line of the file
type RowError struct {
	Row     int
	Column  string
	Code    string
	Message string
	Value   string
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, column, code, message string) RowError {
	return RowError{Row: row, Column: column, Code: code, Message: message}
}

// ErrorCollection gathers row errors up to a limit while counting all of them
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a collection keeping at most maxErrors entries
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{maxErrors: maxErrors}
}

// Add records err
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequired records a missing value
func (ec *ErrorCollection) AddRequired(row int, column string) {
	ec.Add(NewRowError(row, column, ErrCodeRequiredField, "value is required"))
}

// AddInvalidNumber records a value that is not a decimal number
func (ec *ErrorCollection) AddInvalidNumber(row int, column, value string) {
	e := NewRowError(row, column, ErrCodeInvalidNumber, "expected a decimal number")
	e.Value = value
	ec.Add(e)
}

// Errors returns the kept errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount returns every error added, kept or not
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors reports whether anything was added
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// Err returns nil when the collection is empty, else an error listing the kept entries
func (ec *ErrorCollection) Err() error {
	if !ec.HasErrors() {
		return nil
	}
	return &ValidationError{Collection: ec}
}

// ValidationError reports every rejected line of a file
type ValidationError struct {
	Collection *ErrorCollection
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "catalog file has %d error(s)", e.Collection.TotalCount())
	for _, re := range e.Collection.Errors() {
		sb.WriteString("; ")
		sb.WriteString(re.Error())
	}
	if hidden := e.Collection.TotalCount() - len(e.Collection.Errors()); hidden > 0 {
		fmt.Fprintf(&sb, "; and %d more", hidden)
	}
	return sb.String()
}
