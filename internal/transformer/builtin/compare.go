package builtin

import (
	"fmt"
	"strings"

	"csvingest/internal/record"
	"csvingest/internal/schema"
)

// Op is a comparison operator for Compare.
type Op string

const (
	OpLT Op = "<"
	OpLE Op = "<="
	OpGT Op = ">"
	OpGE Op = ">="
	OpEQ Op = "=="
	OpNE Op = "!="
)

// ParseOp accepts the symbol or its mnemonic (lt, le, gt, ge, eq, ne).
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "<", "lt":
		return OpLT, nil
	case "<=", "le":
		return OpLE, nil
	case ">", "gt":
		return OpGT, nil
	case ">=", "ge":
		return OpGE, nil
	case "==", "=", "eq":
		return OpEQ, nil
	case "!=", "<>", "ne":
		return OpNE, nil
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

// Compare requires Left Op Right between two ordered columns of the same
// type (for example a DATE end after a DATE start). Rows where either side
// is null pass; combine with Require when both must be present.
type Compare struct {
	Left  string
	Op    Op
	Right string
}

func (Compare) Name() string { return "compare" }

func (c Compare) Apply(rec record.Record) (record.Record, error) {
	l, r := rec.Values[c.Left], rec.Values[c.Right]
	if l == nil || r == nil {
		return rec, nil
	}
	n, ok := schema.Compare(l, r)
	if !ok {
		return rec, fmt.Errorf("%s and %s are not comparable", c.Left, c.Right)
	}
	var pass bool
	switch c.Op {
	case OpLT:
		pass = n < 0
	case OpLE:
		pass = n <= 0
	case OpGT:
		pass = n > 0
	case OpGE:
		pass = n >= 0
	case OpEQ:
		pass = n == 0
	case OpNE:
		pass = n != 0
	default:
		return rec, fmt.Errorf("unknown operator %q", c.Op)
	}
	if !pass {
		return rec, fmt.Errorf("%s (%s) must be %s %s (%s)",
			c.Left, record.Canonical(l), c.Op, c.Right, record.Canonical(r))
	}
	return rec, nil
}
