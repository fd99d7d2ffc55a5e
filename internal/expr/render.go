// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Render generates the SQL fragment for an expression along with the bind
// arguments for its literal values, in placeholder order. LiteralString
// fragments are emitted verbatim, everything else that is not a name is
// passed to the database as a bind argument.
func Render(e Expression) (string, []any, error) {
	w := &sqlWriter{}
	if err := w.writeExpression(e); err != nil {
		return "", nil, err
	}
	return w.buf.String(), w.args, nil
}

// sqlWriter accumulates generated SQL and the bind arguments belonging to
// the placeholders written so far.
type sqlWriter struct {
	buf  bytes.Buffer
	args []any
}

func (w *sqlWriter) writeExpression(e Expression) error {
	switch e := e.(type) {
	case *Identifier:
		w.buf.WriteString(e.name)
	case *QualifiedIdentifier:
		w.buf.WriteString(e.table)
		w.buf.WriteString(".")
		w.buf.WriteString(e.column)
	case *FunctionCall:
		return w.writeFunctionCall(e)
	case *ArithmeticOp:
		return w.writeJoined(e.operands, " "+e.operator+" ")
	case *BooleanOp:
		return w.writeJoined(e.operands, " "+string(e.kind)+" ")
	case *Negation:
		w.buf.WriteString("NOT (")
		if err := w.writeValue(e.operand); err != nil {
			return err
		}
		w.buf.WriteString(")")
	case *Comparison:
		return w.writeComparison(e)
	case *LiteralString:
		w.buf.WriteString(e.text)
	case *Sequence:
		for i, el := range e.elems {
			if i > 0 {
				w.buf.WriteString(", ")
			}
			if err := w.writeExpression(el); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("internal error: unknown expression type %T", e)
	}
	return nil
}

func (w *sqlWriter) writeFunctionCall(fc *FunctionCall) error {
	w.buf.WriteString(fc.name)
	w.buf.WriteString("(")
	if fc.wildcard {
		w.buf.WriteString("*")
	}
	if fc.distinct {
		w.buf.WriteString("DISTINCT ")
	}
	for i, arg := range fc.args {
		if i > 0 {
			w.buf.WriteString(", ")
		}
		if err := w.writeValue(arg); err != nil {
			return err
		}
	}
	w.buf.WriteString(")")
	if fc.window != nil {
		w.buf.WriteString(" OVER (")
		if err := w.writeWindow(fc.window); err != nil {
			return err
		}
		w.buf.WriteString(")")
	}
	return nil
}

func (w *sqlWriter) writeWindow(ws *WindowSpec) error {
	var parts []string
	if ws.partition != nil {
		sql, args, err := Render(ws.partition)
		if err != nil {
			return err
		}
		w.args = append(w.args, args...)
		parts = append(parts, "PARTITION BY "+sql)
	}
	if ws.order != nil {
		sql, args, err := Render(ws.order)
		if err != nil {
			return err
		}
		w.args = append(w.args, args...)
		parts = append(parts, "ORDER BY "+sql)
	}
	if ws.frame != "" {
		parts = append(parts, ws.frame)
	}
	w.buf.WriteString(strings.Join(parts, " "))
	return nil
}

// writeJoined writes operands separated by sep inside parentheses.
func (w *sqlWriter) writeJoined(operands []any, sep string) error {
	w.buf.WriteString("(")
	for i, op := range operands {
		if i > 0 {
			w.buf.WriteString(sep)
		}
		if err := w.writeValue(op); err != nil {
			return err
		}
	}
	w.buf.WriteString(")")
	return nil
}

// writeComparison chains consecutive operand pairs, so that a comparison
// over more than two operands, e.g. >(a, b, c), renders as
// (a > b AND b > c).
func (w *sqlWriter) writeComparison(co *Comparison) error {
	w.buf.WriteString("(")
	for i := 0; i+1 < len(co.operands); i++ {
		if i > 0 {
			w.buf.WriteString(" AND ")
		}
		if err := w.writeValue(co.operands[i]); err != nil {
			return err
		}
		w.buf.WriteString(" " + co.operator + " ")
		if err := w.writeValue(co.operands[i+1]); err != nil {
			return err
		}
	}
	w.buf.WriteString(")")
	return nil
}

// writeValue writes one operand value. Expressions render recursively,
// mappings render as equality conditions, any other value becomes a
// placeholder with a bind argument.
func (w *sqlWriter) writeValue(v any) error {
	switch v := v.(type) {
	case Expression:
		return w.writeExpression(v)
	case M:
		return w.writeMapCondition(v)
	case map[string]any:
		return w.writeMapCondition(v)
	case Marker:
		return fmt.Errorf("misplaced %s marker", v)
	}
	w.buf.WriteString("?")
	w.args = append(w.args, v)
	return nil
}

// writeMapCondition renders a mapping as an AND joined list of conditions
// on its keys. Keys are column names and may be qualified. Values may be
// nil (IS NULL), a list (IN), an expression, or a literal (equality).
func (w *sqlWriter) writeMapCondition(m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Sort for deterministic SQL.
	sort.Strings(keys)

	if len(keys) > 1 {
		w.buf.WriteString("(")
	}
	for i, k := range keys {
		if i > 0 {
			w.buf.WriteString(" AND ")
		}
		if err := w.writeColumnName(k); err != nil {
			return err
		}
		switch v := m[k].(type) {
		case nil:
			w.buf.WriteString(" IS NULL")
		case []any:
			if len(v) == 0 {
				return fmt.Errorf("cannot render empty IN list for column %q", k)
			}
			w.buf.WriteString(" IN (")
			for j, el := range v {
				if j > 0 {
					w.buf.WriteString(", ")
				}
				if err := w.writeValue(el); err != nil {
					return err
				}
			}
			w.buf.WriteString(")")
		default:
			w.buf.WriteString(" = ")
			if err := w.writeValue(v); err != nil {
				return err
			}
		}
	}
	if len(keys) > 1 {
		w.buf.WriteString(")")
	}
	return nil
}

func (w *sqlWriter) writeColumnName(name string) error {
	table, column, qualified, err := splitName(name)
	if err != nil {
		return err
	}
	if qualified {
		w.buf.WriteString(table + "." + column)
	} else {
		w.buf.WriteString(name)
	}
	return nil
}
