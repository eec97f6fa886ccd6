package record

// Outcome is the accept/reject result for exactly one input row. Accepted
// outcomes carry Record; rejected outcomes carry at least one FieldError and
// a nil Record.
type Outcome struct {
	Line     int          `json:"line"`
	Accepted bool         `json:"accepted"`
	Record   *Record      `json:"-"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// Accept wraps rec in an accepted outcome.
func Accept(rec Record) Outcome {
	return Outcome{Line: rec.Line, Accepted: true, Record: &rec}
}

// Reject builds a rejected outcome for line. Callers must pass at least one
// error; an empty list is replaced by a generic MALFORMED_ROW entry so the
// "rejected implies ≥1 error" rule cannot be broken by accident.
func Reject(line int, errs ...FieldError) Outcome {
	if len(errs) == 0 {
		errs = []FieldError{{Line: line, Index: -1, Reason: ReasonMalformedRow, Message: "rejected without detail"}}
	}
	return Outcome{Line: line, Errors: errs}
}

// Reasons returns the distinct reason codes of a rejected outcome in first
// occurrence order.
func (o Outcome) Reasons() []ReasonCode {
	var out []ReasonCode
	seen := make(map[ReasonCode]struct{}, len(o.Errors))
	for _, e := range o.Errors {
		if _, ok := seen[e.Reason]; ok {
			continue
		}
		seen[e.Reason] = struct{}{}
		out = append(out, e.Reason)
	}
	return out
}
