// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr_test

import (
	. "gopkg.in/check.v1"

	"github.com/canonical/vrow/internal/expr"
)

type RenderSuite struct{}

var _ = Suite(&RenderSuite{})

var renderTests = []struct {
	summary string
	call    expr.Call
	sql     string
	args    []any
}{{
	"identifier",
	expr.Call{Name: "name"},
	"name",
	nil,
}, {
	"qualified identifier",
	expr.Call{Name: "people__name"},
	"people.name",
	nil,
}, {
	"function call with literal and expression arguments",
	expr.Call{Name: "coalesce", Args: []any{mustIdent("nickname"), "unknown"}},
	"coalesce(nickname, ?)",
	[]any{"unknown"},
}, {
	"wildcard function call",
	expr.Call{Name: "count", Args: []any{expr.Wildcard}, Block: true},
	"count(*)",
	nil,
}, {
	"distinct function call",
	expr.Call{Name: "count", Args: []any{expr.Distinct, mustIdent("name")}, Block: true},
	"count(DISTINCT name)",
	nil,
}, {
	"bare window function",
	expr.Call{Name: "rank", Args: []any{expr.Over}, Block: true},
	"rank() OVER ()",
	nil,
}, {
	"window function with partition and order",
	expr.Call{Name: "sum", Args: []any{expr.Over, expr.M{
		"args":      "amount",
		"partition": "team",
		"order":     "id",
	}}, Block: true},
	"sum(amount) OVER (PARTITION BY team ORDER BY id)",
	nil,
}, {
	"wildcard window function with frame",
	expr.Call{Name: "count", Args: []any{expr.Over, expr.M{
		"wildcard": true,
		"frame":    "ROWS UNBOUNDED PRECEDING",
	}}, Block: true},
	"count(*) OVER (ROWS UNBOUNDED PRECEDING)",
	nil,
}, {
	"arithmetic operands become binds",
	expr.Call{Name: "+", Args: []any{1, 2, 3}},
	"(? + ? + ?)",
	[]any{1, 2, 3},
}, {
	"arithmetic with nested expression",
	expr.Call{Name: "-", Args: []any{mustIdent("height_cm"), 10}},
	"(height_cm - ?)",
	[]any{10},
}, {
	"conjunction of a mapping and a comparison",
	expr.Call{Name: "&", Args: []any{
		expr.M{"team": "engineering"},
		mustResolveOp(">", mustIdent("id"), 5),
	}},
	"(team = ? AND (id > ?))",
	[]any{"engineering", 5},
}, {
	"mapping with several keys renders in sorted key order",
	expr.Call{Name: "&", Args: []any{expr.M{
		"b": 2,
		"a": 1,
	}}},
	"((a = ? AND b = ?))",
	[]any{1, 2},
}, {
	"mapping with list value renders IN",
	expr.Call{Name: "&", Args: []any{expr.M{"id": []any{1, 2, 3}}}},
	"(id IN (?, ?, ?))",
	[]any{1, 2, 3},
}, {
	"mapping with nil value renders IS NULL",
	expr.Call{Name: "&", Args: []any{expr.M{"email": nil}}},
	"(email IS NULL)",
	nil,
}, {
	"mapping with qualified key",
	expr.Call{Name: "&", Args: []any{expr.M{"people__team": "legal"}}},
	"(people.team = ?)",
	[]any{"legal"},
}, {
	"mapping with expression value",
	expr.Call{Name: "&", Args: []any{expr.M{"updated_at": mustIdent("created_at")}}},
	"(updated_at = created_at)",
	nil,
}, {
	"negation",
	expr.Call{Name: "~", Args: []any{expr.M{"team": "legal"}}},
	"NOT (team = ?)",
	[]any{"legal"},
}, {
	"comparison chains over three operands",
	expr.Call{Name: "<", Args: []any{1, mustIdent("id"), 10}},
	"(? < id AND id < ?)",
	[]any{1, 10},
}, {
	"literal string is inserted verbatim",
	expr.Call{Name: "lit", Args: []any{"strftime('%Y', birth_date)"}},
	"strftime('%Y', birth_date)",
	nil,
}}

func mustResolveOp(name string, args ...any) expr.Expression {
	e, err := expr.Resolve(expr.Call{Name: name, Args: args})
	if err != nil {
		panic(err)
	}
	return e
}

func (s *RenderSuite) TestRender(c *C) {
	for _, t := range renderTests {
		c.Logf("test: %s", t.summary)
		e := mustResolve(c, t.call)
		sql, args, err := expr.Render(e)
		c.Assert(err, IsNil)
		c.Check(sql, Equals, t.sql)
		if t.args == nil {
			c.Check(args, HasLen, 0)
		} else {
			c.Check(args, DeepEquals, t.args)
		}
	}
}

func (s *RenderSuite) TestRenderSequence(c *C) {
	seq, err := expr.Collect([]any{
		mustIdent("name"),
		mustResolveOp("+", mustIdent("height_cm"), 5),
		mustIdent("people__team"),
	})
	c.Assert(err, IsNil)
	sql, args, err := expr.Render(seq)
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "name, (height_cm + ?), people.team")
	c.Check(args, DeepEquals, []any{5})
}

// The bind arguments of a window function come out in placeholder order:
// function arguments first, then partition, then order.
func (s *RenderSuite) TestRenderWindowArgOrder(c *C) {
	e := mustResolve(c, expr.Call{Name: "nth_value", Args: []any{expr.Over, expr.M{
		"args":      []any{"amount", mustResolveOp("+", 1, 2)},
		"partition": mustResolveOp("*", mustIdent("a"), 10),
		"order":     "id",
	}}, Block: true})
	sql, args, err := expr.Render(e)
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "nth_value(amount, (? + ?)) OVER (PARTITION BY (a * ?) ORDER BY id)")
	c.Check(args, DeepEquals, []any{1, 2, 10})
}

func (s *RenderSuite) TestRenderErrors(c *C) {
	e := mustResolveOp("+", 1, expr.Wildcard)
	_, _, err := expr.Render(e)
	c.Assert(err, ErrorMatches, "misplaced wildcard marker")

	e = mustResolveOp("&", expr.M{"id": []any{}})
	_, _, err = expr.Render(e)
	c.Assert(err, ErrorMatches, `cannot render empty IN list for column "id"`)

	e = mustResolveOp("&", expr.M{"a__b__c": 1})
	_, _, err = expr.Render(e)
	c.Assert(err, ErrorMatches, `invalid qualified name "a__b__c": more than one qualifier separator`)
}
