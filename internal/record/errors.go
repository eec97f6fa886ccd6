package record

import (
	"fmt"
	"strconv"
)

// ReasonCode classifies why a row, or one field of it, was rejected.
type ReasonCode string

const (
	ReasonMissingRequired     ReasonCode = "MISSING_REQUIRED"
	ReasonTypeMismatch        ReasonCode = "TYPE_MISMATCH"
	ReasonConstraintViolation ReasonCode = "CONSTRAINT_VIOLATION"
	ReasonExtraColumn         ReasonCode = "EXTRA_COLUMN"
	ReasonMissingColumn       ReasonCode = "MISSING_COLUMN"
	ReasonSinkFailure         ReasonCode = "SINK_FAILURE"
	// ReasonMalformedRow marks a row the tokenizer could not parse but was
	// able to skip past.
	ReasonMalformedRow ReasonCode = "MALFORMED_ROW"
)

// FieldError is one itemized problem with one row. Index is the 0-based
// position of the offending field, or -1 when the error is row-wide (for
// example a failed transform or sink write).
type FieldError struct {
	Line    int        `json:"line"`
	Column  string     `json:"column"`
	Index   int        `json:"index"`
	Raw     string     `json:"raw,omitempty"`
	Reason  ReasonCode `json:"reason"`
	Message string     `json:"message,omitempty"`
}

// Error implements error so a FieldError can travel through error-typed
// channels (transform results, logs) when convenient.
func (e FieldError) Error() string {
	s := fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	if e.Column != "" {
		s += " on " + strconv.Quote(e.Column)
	}
	if e.Raw != "" {
		s += " (raw " + strconv.Quote(e.Raw) + ")"
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	return s
}

// ExtraColumnName is the synthesized column name for a field past the end
// of the declared columns.
func ExtraColumnName(index int) string { return "col_" + strconv.Itoa(index) }

// TokenizeCode classifies tokenizer faults.
type TokenizeCode string

const (
	MalformedQuoting TokenizeCode = "MALFORMED_QUOTING"
	ReadFailure      TokenizeCode = "READ_FAILURE"
)

// TokenizeError reports a record the tokenizer could not produce. When
// Resync is true the tokenizer has already advanced to the next record
// boundary and Next may be called again.
type TokenizeError struct {
	Line   int
	Code   TokenizeCode
	Resync bool
	Err    error
}

func (e *TokenizeError) Error() string {
	return fmt.Sprintf("tokenize line %d: %s: %v", e.Line, e.Code, e.Err)
}

func (e *TokenizeError) Unwrap() error { return e.Err }

// SinkError is returned by sinks that refuse a single record. Any other
// error returned from a sink is treated the same way by the coordinator;
// SinkError just carries a short machine-friendly reason.
type SinkError struct {
	Reason string
	Err    error
}

func (e *SinkError) Error() string {
	if e.Err == nil {
		return "sink: " + e.Reason
	}
	return fmt.Sprintf("sink: %s: %v", e.Reason, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
