// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package vrow

import (
	"bytes"
	"fmt"

	"github.com/canonical/vrow/internal/expr"
)

// Row is the virtual row handed to clause closures. Every method funnels
// into [Resolve], the row itself holds no expression building logic. The
// first resolution error is recorded on the row and reported by the dataset
// from [Dataset.Build], methods called after a failure return nil.
type Row struct {
	err error
}

func (r *Row) resolve(call expr.Call) Expression {
	if r.err != nil {
		return nil
	}
	e, err := expr.Resolve(call)
	if err != nil {
		r.err = err
		return nil
	}
	return e
}

// V resolves a plain invocation. A bare name resolves to a column
// reference, a name containing "__" to a qualified reference, and a name
// with arguments to a function call.
func (r *Row) V(name string, args ...any) Expression {
	return r.resolve(expr.Call{Name: name, Args: args})
}

// F resolves a function form invocation. With no arguments it resolves to
// name(). The first argument, if present, must be one of the markers
// [Wildcard], [Distinct] or [Over].
func (r *Row) F(name string, args ...any) Expression {
	return r.resolve(expr.Call{Name: name, Args: args, Block: true})
}

// Add resolves to an addition over two or more operands.
func (r *Row) Add(operands ...any) Expression {
	return r.resolve(expr.Call{Name: "+", Args: operands})
}

// Sub resolves to a subtraction over two or more operands.
func (r *Row) Sub(operands ...any) Expression {
	return r.resolve(expr.Call{Name: "-", Args: operands})
}

// Mul resolves to a multiplication over two or more operands.
func (r *Row) Mul(operands ...any) Expression {
	return r.resolve(expr.Call{Name: "*", Args: operands})
}

// Div resolves to a division over two or more operands.
func (r *Row) Div(operands ...any) Expression {
	return r.resolve(expr.Call{Name: "/", Args: operands})
}

// And resolves to a conjunction of one or more operands.
func (r *Row) And(operands ...any) Expression {
	return r.resolve(expr.Call{Name: "&", Args: operands})
}

// Or resolves to a disjunction of one or more operands.
func (r *Row) Or(operands ...any) Expression {
	return r.resolve(expr.Call{Name: "|", Args: operands})
}

// Not resolves to the negation of exactly one operand.
func (r *Row) Not(operand any) Expression {
	return r.resolve(expr.Call{Name: "~", Args: []any{operand}})
}

// Gt resolves to a greater-than comparison over two or more operands.
func (r *Row) Gt(operands ...any) Expression {
	return r.resolve(expr.Call{Name: ">", Args: operands})
}

// Lt resolves to a less-than comparison over two or more operands.
func (r *Row) Lt(operands ...any) Expression {
	return r.resolve(expr.Call{Name: "<", Args: operands})
}

// Gte resolves to a greater-or-equal comparison over two or more operands.
func (r *Row) Gte(operands ...any) Expression {
	return r.resolve(expr.Call{Name: ">=", Args: operands})
}

// Lte resolves to a less-or-equal comparison over two or more operands.
func (r *Row) Lte(operands ...any) Expression {
	return r.resolve(expr.Call{Name: "<=", Args: operands})
}

// Lit resolves to a raw SQL fragment inserted verbatim by the renderer. No
// escaping is performed, text must never contain untrusted input.
func (r *Row) Lit(text string) Expression {
	return r.resolve(expr.Call{Name: "lit", Args: []any{text}})
}

// Err returns the first resolution error recorded on the row.
func (r *Row) Err() error {
	return r.err
}

// Dataset accumulates the clauses of one SELECT query. Clause methods
// mutate and return the dataset for chaining. The first error encountered,
// in a clause closure or while building, is reported by [Dataset.Build].
type Dataset struct {
	table   string
	selects []Expression
	wheres  []Expression
	orders  []Expression
	err     error
}

// From returns a dataset selecting from the named table.
func From(table string) *Dataset {
	return &Dataset{table: table}
}

// clause evaluates fn against a fresh row and returns its result.
func (ds *Dataset) clause(fn func(*Row) any) (any, bool) {
	if ds.err != nil {
		return nil, false
	}
	row := &Row{}
	v := fn(row)
	if row.err != nil {
		ds.err = row.err
		return nil, false
	}
	return v, true
}

// Where adds a filter condition. Conditions from repeated calls are joined
// with AND. The closure may return an expression or a mapping of column
// conditions.
func (ds *Dataset) Where(fn func(*Row) any) *Dataset {
	v, ok := ds.clause(fn)
	if !ok {
		return ds
	}
	cond, err := expr.Condition(v)
	if err != nil {
		ds.err = err
		return ds
	}
	ds.wheres = append(ds.wheres, cond)
	return ds
}

// Select adds one or more selected expressions. The closure may return a
// single expression or an ordered collection of expressions.
func (ds *Dataset) Select(fn func(*Row) any) *Dataset {
	v, ok := ds.clause(fn)
	if !ok {
		return ds
	}
	e, err := expr.Collect(v)
	if err != nil {
		ds.err = err
		return ds
	}
	ds.selects = append(ds.selects, e)
	return ds
}

// Order adds one or more ordering expressions. The closure may return a
// single expression or an ordered collection of expressions.
func (ds *Dataset) Order(fn func(*Row) any) *Dataset {
	v, ok := ds.clause(fn)
	if !ok {
		return ds
	}
	e, err := expr.Collect(v)
	if err != nil {
		ds.err = err
		return ds
	}
	ds.orders = append(ds.orders, e)
	return ds
}

// Build renders the dataset to SQL text and the ordered bind arguments for
// its literal values.
func (ds *Dataset) Build() (string, []any, error) {
	if ds.err != nil {
		return "", nil, ds.err
	}
	if ds.table == "" {
		return "", nil, fmt.Errorf("cannot build query: no table")
	}

	var buf bytes.Buffer
	var args []any

	writeClause := func(exprs []Expression, sep string) error {
		for i, e := range exprs {
			if i > 0 {
				buf.WriteString(sep)
			}
			sql, clauseArgs, err := expr.Render(e)
			if err != nil {
				return err
			}
			buf.WriteString(sql)
			args = append(args, clauseArgs...)
		}
		return nil
	}

	buf.WriteString("SELECT ")
	if len(ds.selects) == 0 {
		buf.WriteString("*")
	} else if err := writeClause(ds.selects, ", "); err != nil {
		return "", nil, err
	}
	buf.WriteString(" FROM ")
	buf.WriteString(ds.table)
	if len(ds.wheres) > 0 {
		buf.WriteString(" WHERE ")
		if err := writeClause(ds.wheres, " AND "); err != nil {
			return "", nil, err
		}
	}
	if len(ds.orders) > 0 {
		buf.WriteString(" ORDER BY ")
		if err := writeClause(ds.orders, ", "); err != nil {
			return "", nil, err
		}
	}
	return buf.String(), args, nil
}
