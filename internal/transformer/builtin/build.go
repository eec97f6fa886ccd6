package builtin

import (
	"fmt"

	"csvingest/internal/config"
	"csvingest/internal/schema"
	"csvingest/internal/transformer"
)

// Build constructs the builtin named by cfg.Kind. s is consulted for typed
// options: default values are coerced with the target column's own type so
// a DATE default becomes a time.Time like any validated DATE. The optional
// "name" option replaces the kind as the transform's identifier.
func Build(cfg config.Transform, s *schema.Schema) (transformer.Transform, error) {
	t, err := build(cfg, s)
	if err != nil {
		return nil, err
	}
	if name := cfg.Options.String("name", ""); name != "" {
		return named{Transform: t, name: name}, nil
	}
	return t, nil
}

// named overrides the identifier of a builtin.
type named struct {
	transformer.Transform
	name string
}

func (n named) Name() string { return n.name }

func build(cfg config.Transform, s *schema.Schema) (transformer.Transform, error) {
	o := cfg.Options
	switch cfg.Kind {
	case "normalize":
		return Normalize{
			Fields:   o.StringSlice("fields"),
			Collapse: o.Bool("collapse", false),
			Fold:     o.Bool("fold", false),
		}, nil

	case "rename":
		from, to := o.String("from", ""), o.String("to", "")
		if from == "" || to == "" {
			return nil, fmt.Errorf("rename: from and to are required")
		}
		return Rename{From: from, To: to}, nil

	case "default":
		raw, ok := o.Any("values").(map[string]any)
		if !ok || len(raw) == 0 {
			return nil, fmt.Errorf("default: values must be a non-empty object")
		}
		vals := make(map[string]any, len(raw))
		for k, v := range raw {
			str := fmt.Sprint(v)
			if s != nil {
				if i, ok := s.Lookup(k); ok {
					tv, err := s.Coerce(i, str)
					if err != nil {
						return nil, fmt.Errorf("default: %s: %w", k, err)
					}
					vals[k] = tv
					continue
				}
			}
			vals[k] = str
		}
		return Default{Values: vals}, nil

	case "require":
		f := o.StringSlice("fields")
		if len(f) == 0 {
			return nil, fmt.Errorf("require: fields must not be empty")
		}
		return Require{Fields: f}, nil

	case "compare":
		op, err := ParseOp(o.String("op", ""))
		if err != nil {
			return nil, fmt.Errorf("compare: %w", err)
		}
		c := Compare{Left: o.String("left", ""), Op: op, Right: o.String("right", "")}
		if c.Left == "" || c.Right == "" {
			return nil, fmt.Errorf("compare: left and right are required")
		}
		if s != nil {
			li, lok := s.Lookup(c.Left)
			ri, rok := s.Lookup(c.Right)
			if lok && rok && s.TypeOf(li) != s.TypeOf(ri) {
				return nil, fmt.Errorf("compare: %s is %s but %s is %s", c.Left, s.TypeOf(li), c.Right, s.TypeOf(ri))
			}
		}
		return c, nil

	case "case":
		f := o.StringSlice("fields")
		if len(f) == 0 {
			return nil, fmt.Errorf("case: fields must not be empty")
		}
		upper := false
		switch o.String("to", "lower") {
		case "upper":
			upper = true
		case "lower":
		default:
			return nil, fmt.Errorf("case: to must be upper or lower")
		}
		return Case{Fields: f, Upper: upper}, nil

	case "drop":
		f := o.StringSlice("fields")
		if len(f) == 0 {
			return nil, fmt.Errorf("drop: fields must not be empty")
		}
		return Drop{Fields: f}, nil
	}
	return nil, fmt.Errorf("unknown transform kind %q", cfg.Kind)
}

// BuildPipeline builds every configured transform in order. Unnamed
// transforms whose kind occurs more than once are identified as kind[i], i
// being the position in cfgs, so rejects can tell them apart. Explicit names
// must be unique.
func BuildPipeline(cfgs []config.Transform, s *schema.Schema) (transformer.Pipeline, error) {
	kinds := make(map[string]int, len(cfgs))
	for _, c := range cfgs {
		if c.Options.String("name", "") == "" {
			kinds[c.Kind]++
		}
	}

	p := make(transformer.Pipeline, 0, len(cfgs))
	seen := make(map[string]int, len(cfgs))
	for i, c := range cfgs {
		t, err := Build(c, s)
		if err != nil {
			return nil, fmt.Errorf("transform[%d]: %w", i, err)
		}
		if c.Options.String("name", "") == "" && kinds[c.Kind] > 1 {
			t = named{Transform: t, name: fmt.Sprintf("%s[%d]", c.Kind, i)}
		}
		if j, dup := seen[t.Name()]; dup {
			return nil, fmt.Errorf("transform[%d]: name %q already used by transform[%d]", i, t.Name(), j)
		}
		seen[t.Name()] = i
		p = append(p, t)
	}
	return p, nil
}
