// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"fmt"
	"sort"
)

// Call describes one captured DSL invocation: the method name, its ordered
// argument values and whether the call used the function form (the block
// form of the original DSL). A Call is never mutated by Resolve.
type Call struct {
	Name  string
	Args  []any
	Block bool
}

// Resolve maps a Call to exactly one expression. It is a pure function,
// identical calls always resolve to structurally identical expressions and
// a call that fails once fails identically forever.
//
// Reserved operator names are intercepted first and never reach the generic
// rules. The generic rules are then tried in order:
//
//  1. function form, no arguments: a plain function call, name().
//  2. function form, leading Wildcard marker: a wildcard call, name(*).
//  3. function form, leading Distinct marker: name(DISTINCT args...).
//  4. function form, leading Over marker: a window function call.
//  5. function form, any other non-empty argument list: an error.
//  6. plain form with arguments: a function call with those arguments.
//  7. plain form, no arguments, qualified name: a qualified identifier.
//  8. plain form, no arguments, plain name: an identifier.
func Resolve(call Call) (Expression, error) {
	if call.Name == "" {
		return nil, fmt.Errorf("cannot resolve call with empty name")
	}
	if shortcut, ok := operatorShortcuts[call.Name]; ok {
		return shortcut(call)
	}
	if call.Block {
		return resolveFunction(call)
	}
	if len(call.Args) > 0 {
		return &FunctionCall{name: call.Name, args: call.Args}, nil
	}
	table, column, qualified, err := splitName(call.Name)
	if err != nil {
		return nil, err
	}
	if qualified {
		return &QualifiedIdentifier{table: table, column: column}, nil
	}
	return &Identifier{name: call.Name}, nil
}

// resolveFunction applies the function form rules. The first argument, if
// any, must be one of the three markers.
func resolveFunction(call Call) (Expression, error) {
	if len(call.Args) == 0 {
		return &FunctionCall{name: call.Name}, nil
	}
	marker, ok := call.Args[0].(Marker)
	if !ok {
		// Arguments without a leading marker have no defined meaning in
		// the function form, the plain form already covers them.
		return nil, invalidFunctionArgsError(call.Name, "arguments in the function form must start with a marker")
	}
	rest := call.Args[1:]
	switch marker {
	case Wildcard:
		if len(rest) > 0 {
			return nil, invalidFunctionArgsError(call.Name, "arguments after the wildcard marker")
		}
		return &FunctionCall{name: call.Name, wildcard: true}, nil
	case Distinct:
		if len(rest) == 0 {
			return nil, invalidFunctionArgsError(call.Name, "distinct call needs at least one argument")
		}
		return &FunctionCall{name: call.Name, args: rest, distinct: true}, nil
	case Over:
		return resolveWindow(call.Name, rest)
	}
	return nil, invalidFunctionArgsError(call.Name, "unknown marker")
}

// resolveWindow resolves a window function call. The Over marker may be
// followed by a single options mapping with the keys:
//
//   - "args": a single value or ordered list of values, the function
//     arguments.
//   - "wildcard": true to make the function call a wildcard call.
//   - "partition": the window's PARTITION BY expression.
//   - "order": the window's ORDER BY expression.
//   - "frame": a raw SQL frame clause, e.g. "ROWS UNBOUNDED PRECEDING".
//
// Without options the call resolves to a bare name() OVER ().
func resolveWindow(name string, rest []any) (Expression, error) {
	fc := &FunctionCall{name: name, window: &WindowSpec{}}
	if len(rest) == 0 {
		return fc, nil
	}
	if len(rest) > 1 {
		return nil, invalidFunctionArgsError(name, "more than one argument after the over marker")
	}
	opts, ok := windowOptions(rest[0])
	if !ok {
		return nil, invalidFunctionArgsError(name, "window options must be a mapping")
	}
	// Iterate the keys in a deterministic order so that the same invalid
	// options always produce the same error.
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := opts[k]
		var err error
		switch k {
		case "args":
			fc.args, err = windowArgs(name, v)
		case "wildcard":
			b, ok := v.(bool)
			if !ok {
				return nil, invalidWindowSpecError(name, "wildcard option must be a bool")
			}
			fc.wildcard = b
		case "partition":
			fc.window.partition, err = windowExpression(name, k, v)
		case "order":
			fc.window.order, err = windowExpression(name, k, v)
		case "frame":
			s, ok := v.(string)
			if !ok {
				return nil, invalidWindowSpecError(name, "frame option must be a string")
			}
			fc.window.frame = s
		default:
			return nil, invalidWindowSpecError(name, fmt.Sprintf("unrecognised option %q", k))
		}
		if err != nil {
			return nil, err
		}
	}
	if fc.wildcard && len(fc.args) > 0 {
		return nil, invalidWindowSpecError(name, "wildcard and args are mutually exclusive")
	}
	return fc, nil
}

func windowOptions(v any) (M, bool) {
	switch m := v.(type) {
	case M:
		return m, true
	case map[string]any:
		return m, true
	}
	return nil, false
}

// windowArgs normalises the "args" option, a single value or an ordered
// list, into a function argument list. Column name strings resolve through
// the name splitter like any identifier.
func windowArgs(name string, v any) ([]any, error) {
	vals, ok := v.([]any)
	if !ok {
		vals = []any{v}
	}
	args := make([]any, 0, len(vals))
	for _, val := range vals {
		arg, err := windowExpression(name, "args", val)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

// windowExpression interprets one window option value. Strings name columns
// and resolve through the splitter, expressions pass through unchanged.
func windowExpression(name, key string, v any) (Expression, error) {
	switch v := v.(type) {
	case Expression:
		return v, nil
	case string:
		table, column, qualified, err := splitName(v)
		if err != nil {
			return nil, err
		}
		if qualified {
			return &QualifiedIdentifier{table: table, column: column}, nil
		}
		return &Identifier{name: v}, nil
	}
	return nil, invalidWindowSpecError(name, fmt.Sprintf("%s option must be an expression or column name, got %T", key, v))
}

// operatorShortcuts maps each reserved operator name to a constructor that
// bypasses the generic resolution rules. Shortcuts ignore the call form
// entirely, only the name and arity matter.
var operatorShortcuts = map[string]func(Call) (Expression, error){
	"+": arithmeticShortcut,
	"-": arithmeticShortcut,
	"*": arithmeticShortcut,
	"/": arithmeticShortcut,
	"&": func(call Call) (Expression, error) {
		if len(call.Args) < 1 {
			return nil, invalidOperatorArityError(call.Name, "at least 1", len(call.Args))
		}
		return &BooleanOp{kind: AndOp, operands: call.Args}, nil
	},
	"|": func(call Call) (Expression, error) {
		if len(call.Args) < 1 {
			return nil, invalidOperatorArityError(call.Name, "at least 1", len(call.Args))
		}
		return &BooleanOp{kind: OrOp, operands: call.Args}, nil
	},
	"~": func(call Call) (Expression, error) {
		if len(call.Args) != 1 {
			return nil, invalidOperatorArityError(call.Name, "exactly 1", len(call.Args))
		}
		return &Negation{operand: call.Args[0]}, nil
	},
	">":  comparisonShortcut,
	"<":  comparisonShortcut,
	">=": comparisonShortcut,
	"<=": comparisonShortcut,
	"lit": func(call Call) (Expression, error) {
		if len(call.Args) != 1 {
			return nil, invalidOperatorArityError(call.Name, "exactly 1", len(call.Args))
		}
		text, ok := call.Args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: operator %q needs a string operand, got %T", ErrInvalidOperatorArity, call.Name, call.Args[0])
		}
		return &LiteralString{text: text}, nil
	},
}

func arithmeticShortcut(call Call) (Expression, error) {
	if len(call.Args) < 2 {
		return nil, invalidOperatorArityError(call.Name, "at least 2", len(call.Args))
	}
	return &ArithmeticOp{operator: call.Name, operands: call.Args}, nil
}

func comparisonShortcut(call Call) (Expression, error) {
	if len(call.Args) < 2 {
		return nil, invalidOperatorArityError(call.Name, "at least 2", len(call.Args))
	}
	return &Comparison{operator: call.Name, operands: call.Args}, nil
}
