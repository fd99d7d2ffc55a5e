// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import "fmt"

// Collect turns the value produced by a clause closure into the expression
// the clause stores. A single expression passes through unwrapped. An
// ordered collection flattens into a Sequence preserving order, every
// element must already be an expression, Collect performs no resolution of
// its own.
func Collect(v any) (Expression, error) {
	switch v := v.(type) {
	case nil:
		return nil, fmt.Errorf("cannot collect nil clause value")
	case Expression:
		return v, nil
	case []Expression:
		return &Sequence{elems: append([]Expression(nil), v...)}, nil
	case []any:
		elems := make([]Expression, 0, len(v))
		for i, el := range v {
			e, ok := el.(Expression)
			if !ok {
				return nil, fmt.Errorf("cannot collect element %d: %T is not an expression", i, el)
			}
			elems = append(elems, e)
		}
		return &Sequence{elems: elems}, nil
	}
	return nil, fmt.Errorf("cannot collect clause value of type %T", v)
}

// Condition interprets the result of a filter closure. An expression passes
// through, a mapping becomes a conjunction of equality conditions on its
// keys.
func Condition(v any) (Expression, error) {
	switch v := v.(type) {
	case nil:
		return nil, fmt.Errorf("cannot use nil as a condition")
	case Expression:
		return v, nil
	case M:
		return &BooleanOp{kind: AndOp, operands: []any{v}}, nil
	case map[string]any:
		return &BooleanOp{kind: AndOp, operands: []any{M(v)}}, nil
	}
	return nil, fmt.Errorf("cannot use %T as a condition", v)
}
