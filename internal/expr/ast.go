// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"bytes"
	"fmt"
)

// Expression is a single node of the query expression AST. Expressions are
// built once by Resolve and are immutable from then on. The set of variants
// is closed, mirroring the limited composable forms of SQL itself.
type Expression interface {
	// String returns a textual representation of the expression for
	// debugging and testing purposes.
	String() string

	// expression is a marker method.
	expression()
}

// M is a mapping value usable wherever an expression operand is expected.
// Each key names a column and each value is the condition on it. M is not a
// special type, a plain map[string]any works everywhere M does.
type M map[string]any

// Identifier is an unqualified column or name reference.
type Identifier struct {
	name string
}

func (id *Identifier) String() string {
	return "Ident[" + id.name + "]"
}

// Name returns the referenced name.
func (id *Identifier) Name() string {
	return id.name
}

func (id *Identifier) expression() {}

// QualifiedIdentifier is a column reference qualified by its table or source
// name.
type QualifiedIdentifier struct {
	table, column string
}

func (qi *QualifiedIdentifier) String() string {
	return "Ident[" + qi.table + "." + qi.column + "]"
}

// Table returns the qualifying table name.
func (qi *QualifiedIdentifier) Table() string {
	return qi.table
}

// Column returns the column name.
func (qi *QualifiedIdentifier) Column() string {
	return qi.column
}

func (qi *QualifiedIdentifier) expression() {}

// FunctionCall is a named function invocation. A call is either a wildcard
// call, e.g. count(*), or has zero or more argument values, optionally
// marked distinct. A call resolved via the Over marker additionally carries
// a window specification.
type FunctionCall struct {
	name     string
	args     []any
	distinct bool
	wildcard bool
	window   *WindowSpec
}

func (fc *FunctionCall) String() string {
	var out bytes.Buffer
	out.WriteString("Func[")
	out.WriteString(fc.name)
	out.WriteString("(")
	if fc.wildcard {
		out.WriteString("*")
	}
	if fc.distinct {
		out.WriteString("distinct ")
	}
	writeValueList(&out, fc.args)
	out.WriteString(")")
	if fc.window != nil {
		out.WriteString(" over(")
		out.WriteString(fc.window.String())
		out.WriteString(")")
	}
	out.WriteString("]")
	return out.String()
}

func (fc *FunctionCall) expression() {}

// WindowSpec holds the partition, order and framing metadata of a windowed
// function call. It only ever exists attached to a FunctionCall resolved via
// the Over marker.
type WindowSpec struct {
	partition Expression
	order     Expression
	frame     string
}

func (ws *WindowSpec) String() string {
	var out bytes.Buffer
	if ws.partition != nil {
		out.WriteString("partition ")
		out.WriteString(ws.partition.String())
	}
	if ws.order != nil {
		if out.Len() > 0 {
			out.WriteString(" ")
		}
		out.WriteString("order ")
		out.WriteString(ws.order.String())
	}
	if ws.frame != "" {
		if out.Len() > 0 {
			out.WriteString(" ")
		}
		out.WriteString("frame ")
		out.WriteString(ws.frame)
	}
	return out.String()
}

// ArithmeticOp applies one of the operators + - * / to two or more operands.
type ArithmeticOp struct {
	operator string
	operands []any
}

func (ao *ArithmeticOp) String() string {
	var out bytes.Buffer
	out.WriteString("Arith[")
	out.WriteString(ao.operator)
	out.WriteString(" ")
	writeValueList(&out, ao.operands)
	out.WriteString("]")
	return out.String()
}

func (ao *ArithmeticOp) expression() {}

// BooleanKind selects the connective of a BooleanOp.
type BooleanKind string

const (
	AndOp BooleanKind = "AND"
	OrOp  BooleanKind = "OR"
)

// BooleanOp joins one or more operands with AND or OR.
type BooleanOp struct {
	kind     BooleanKind
	operands []any
}

func (bo *BooleanOp) String() string {
	var out bytes.Buffer
	out.WriteString("Bool[")
	out.WriteString(string(bo.kind))
	out.WriteString(" ")
	writeValueList(&out, bo.operands)
	out.WriteString("]")
	return out.String()
}

func (bo *BooleanOp) expression() {}

// Negation wraps exactly one expression with a logical NOT. Semantic
// inversion of the wrapped condition is left to the renderer's literal
// handling, Negation itself only records the wrapping.
type Negation struct {
	operand any
}

func (n *Negation) String() string {
	return "Not[" + valueString(n.operand) + "]"
}

func (n *Negation) expression() {}

// Comparison applies one of the operators > < >= <= to two or more operands.
type Comparison struct {
	operator string
	operands []any
}

func (co *Comparison) String() string {
	var out bytes.Buffer
	out.WriteString("Cmp[")
	out.WriteString(co.operator)
	out.WriteString(" ")
	writeValueList(&out, co.operands)
	out.WriteString("]")
	return out.String()
}

func (co *Comparison) expression() {}

// LiteralString is a fragment of raw SQL inserted verbatim by the renderer.
// No escaping is performed, the text must never contain untrusted input.
type LiteralString struct {
	text string
}

func (ls *LiteralString) String() string {
	return "Literal[" + ls.text + "]"
}

// Text returns the raw SQL fragment.
func (ls *LiteralString) Text() string {
	return ls.text
}

func (ls *LiteralString) expression() {}

// Sequence is an ordered list of sibling expressions. It is only produced by
// Collect when a clause evaluates to an ordered collection rather than a
// single expression, e.g. a multi-column select or order list.
type Sequence struct {
	elems []Expression
}

func (s *Sequence) String() string {
	var out bytes.Buffer
	out.WriteString("Seq[")
	for i, e := range s.elems {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(e.String())
	}
	out.WriteString("]")
	return out.String()
}

// Exprs returns the expressions in the sequence in order.
func (s *Sequence) Exprs() []Expression {
	return append([]Expression(nil), s.elems...)
}

func (s *Sequence) expression() {}

// valueString renders an argument value, which may be a nested expression or
// a plain Go value, for String methods.
func valueString(v any) string {
	if e, ok := v.(Expression); ok {
		return e.String()
	}
	return fmt.Sprintf("%v", v)
}

func writeValueList(out *bytes.Buffer, vals []any) {
	for i, v := range vals {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(valueString(v))
	}
}
