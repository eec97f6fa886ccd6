package schema

import "fmt"

// ErrorCode classifies a SchemaError.
type ErrorCode string

const (
	ErrDuplicateColumn   ErrorCode = "DUPLICATE_COLUMN"
	ErrInvalidColumn     ErrorCode = "INVALID_COLUMN"
	ErrInvalidType       ErrorCode = "INVALID_TYPE"
	ErrInvalidConstraint ErrorCode = "INVALID_CONSTRAINT"
	ErrHeaderMismatch    ErrorCode = "HEADER_MISMATCH"
	ErrDuplicateSchema   ErrorCode = "DUPLICATE_SCHEMA"
	ErrUnknownSchema     ErrorCode = "UNKNOWN_SCHEMA"
)

// SchemaError is a registration-time misconfiguration. It is fatal: no
// ingestion starts against a schema that failed to register.
type SchemaError struct {
	Code    ErrorCode
	Column  string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("schema: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("schema: %s on %q: %s", e.Code, e.Column, e.Message)
}
