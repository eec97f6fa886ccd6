package ingest

import "fmt"

// ErrorCode classifies an IngestError.
type ErrorCode string

const (
	// StreamCorrupt: the tokenizer hit a fault it cannot skip past. This is
	// the only way a run ends ABORTED.
	StreamCorrupt ErrorCode = "STREAM_CORRUPT"
	// InvalidArgument: Run was called without a tokenizer, schema or sink.
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// IngestError is a hard failure of Run. Row-level problems never produce
// one; they are reported as rejected outcomes in the Summary.
type IngestError struct {
	Code ErrorCode
	Line int
	Err  error
}

func (e *IngestError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("ingest: %s at line %d: %v", e.Code, e.Line, e.Err)
	}
	return fmt.Sprintf("ingest: %s: %v", e.Code, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }
