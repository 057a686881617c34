package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors wrapped by the typed errors below.
var (
	// ErrUnsupportedConversion is wrapped by every ConversionError.
	ErrUnsupportedConversion = errors.New("unsupported conversion")

	// ErrInvalidDatePart is returned for a truncation part outside the allow-list.
	ErrInvalidDatePart = errors.New("invalid date part")

	// ErrSliceStep is returned when a slice carries a step.
	ErrSliceStep = errors.New("slice step is not implemented")

	// ErrQuotedKey is returned for a JSON object key containing a double quote.
	ErrQuotedKey = errors.New("key contains a double quote")

	// ErrUnsupportedFormatCode is returned for a strftime code a dialect cannot express.
	ErrUnsupportedFormatCode = errors.New("unsupported format code")

	// ErrInvalidDtype is returned when an operation is applied to a column of the wrong logical type.
	ErrInvalidDtype = errors.New("invalid dtype")

	// ErrUnknownDtype is returned when a dtype name or alias is not registered.
	ErrUnknownDtype = errors.New("unknown dtype")

	// ErrDialectMismatch is returned when operands are bound to different dialects.
	ErrDialectMismatch = errors.New("dialect mismatch")
)

// DatabaseNotSupportedError is returned when a dialect switch finds a
// dialect it does not know, or a known dialect that lacks a feature
// (Feature is then set). It is a configuration error and never retried.
type DatabaseNotSupportedError struct {
	Dialect string
	Feature string
}

func (e *DatabaseNotSupportedError) Error() string {
	switch {
	case e.Dialect == "":
		return "database not supported: no dialect bound"
	case e.Feature != "":
		return fmt.Sprintf("database not supported: %s does not support %s", e.Dialect, e.Feature)
	}
	return fmt.Sprintf("database not supported: %s", e.Dialect)
}

// ConversionError is returned when no cast rule exists between two
// logical types, or a value cannot be encoded as the requested type.
type ConversionError struct {
	From string
	To   string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s to %s", e.From, e.To)
}

// Unwrap lets callers match any conversion failure with errors.Is.
func (e *ConversionError) Unwrap() error {
	return ErrUnsupportedConversion
}

// KeyKindError is returned when JSON item access receives a key of the wrong kind.
type KeyKindError struct {
	Got string
}

func (e *KeyKindError) Error() string {
	return fmt.Sprintf("invalid key type: %s", e.Got)
}

// ValueError reports an argument that has the right type but an
// unacceptable value. Err is one of the sentinels above.
type ValueError struct {
	Value  string
	Reason string
	Err    error
}

func (e *ValueError) Error() string {
	var sb strings.Builder
	if e.Value != "" {
		sb.WriteString(fmt.Sprintf("%q: ", e.Value))
	}
	switch {
	case e.Reason != "":
		sb.WriteString(e.Reason)
	case e.Err != nil:
		sb.WriteString(e.Err.Error())
	default:
		sb.WriteString("invalid value")
	}
	return sb.String()
}

func (e *ValueError) Unwrap() error {
	return e.Err
}

// ParseError is returned when a literal string matches none of the
// accepted formats. Formats lists every format that was attempted.
type ParseError struct {
	Value   string
	Dtype   string
	Formats []string
}

func (e *ParseError) Error() string {
	kind := e.Dtype
	if kind == "" {
		kind = "temporal"
	}
	return fmt.Sprintf("not a valid %s string literal: %q (supported formats: %s)",
		kind, e.Value, strings.Join(e.Formats, ", "))
}
