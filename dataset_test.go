// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package vrow_test

import (
	"errors"

	. "gopkg.in/check.v1"

	"github.com/canonical/vrow"
)

type DatasetSuite struct{}

var _ = Suite(&DatasetSuite{})

var buildTests = []struct {
	summary string
	dataset *vrow.Dataset
	sql     string
	args    []any
}{{
	"bare dataset selects everything",
	vrow.From("people"),
	"SELECT * FROM people",
	nil,
}, {
	"single filter",
	vrow.From("people").Where(func(r *vrow.Row) any {
		return r.Gt(r.V("height_cm"), 170)
	}),
	"SELECT * FROM people WHERE (height_cm > ?)",
	[]any{170},
}, {
	"filters from repeated calls are joined with AND",
	vrow.From("people").Where(func(r *vrow.Row) any {
		return r.Gt(r.V("height_cm"), 170)
	}).Where(func(r *vrow.Row) any {
		return vrow.M{"team": "engineering"}
	}),
	"SELECT * FROM people WHERE (height_cm > ?) AND (team = ?)",
	[]any{170, "engineering"},
}, {
	"select list flattens an ordered collection",
	vrow.From("people").Select(func(r *vrow.Row) any {
		return []any{r.V("name"), r.F("count", vrow.Wildcard)}
	}),
	"SELECT name, count(*) FROM people",
	nil,
}, {
	"select, filter and order together",
	vrow.From("people").Select(func(r *vrow.Row) any {
		return r.V("name")
	}).Where(func(r *vrow.Row) any {
		return r.Or(vrow.M{"team": "legal"}, vrow.M{"team": "hr"})
	}).Order(func(r *vrow.Row) any {
		return []any{r.V("team"), r.V("name")}
	}),
	"SELECT name FROM people WHERE (team = ? OR team = ?) ORDER BY team, name",
	[]any{"legal", "hr"},
}, {
	"window function in the select list",
	vrow.From("people").Select(func(r *vrow.Row) any {
		return []any{
			r.V("name"),
			r.F("sum", vrow.Over, vrow.M{"args": "height_cm", "partition": "team"}),
		}
	}),
	"SELECT name, sum(height_cm) OVER (PARTITION BY team) FROM people",
	nil,
}, {
	"qualified references against joined tables",
	vrow.From("people AS p, location AS l").Where(func(r *vrow.Row) any {
		return r.And(
			vrow.M{"p__home_town": r.V("l__town_name")},
			r.Gt(r.V("p__height_cm"), 170),
		)
	}).Select(func(r *vrow.Row) any {
		return r.V("p__name")
	}),
	"SELECT p.name FROM people AS p, location AS l WHERE (p.home_town = l.town_name AND (p.height_cm > ?))",
	[]any{170},
}, {
	"literal fragment is inserted verbatim",
	vrow.From("people").Where(func(r *vrow.Row) any {
		return r.Lt(r.V("created_at"), r.Lit("datetime('now')"))
	}),
	"SELECT * FROM people WHERE (created_at < datetime('now'))",
	nil,
}}

func (s *DatasetSuite) TestBuild(c *C) {
	for _, t := range buildTests {
		c.Logf("test: %s", t.summary)
		sql, args, err := t.dataset.Build()
		c.Assert(err, IsNil)
		c.Check(sql, Equals, t.sql)
		if t.args == nil {
			c.Check(args, HasLen, 0)
		} else {
			c.Check(args, DeepEquals, t.args)
		}
	}
}

func (s *DatasetSuite) TestBuildDeterministic(c *C) {
	ds := vrow.From("people").Where(func(r *vrow.Row) any {
		return vrow.M{"team": "engineering", "home_town": "Berlin"}
	})
	first, args1, err := ds.Build()
	c.Assert(err, IsNil)
	second, args2, err := ds.Build()
	c.Assert(err, IsNil)
	c.Assert(first, Equals, second)
	c.Assert(args1, DeepEquals, args2)
	c.Assert(first, Equals, "SELECT * FROM people WHERE (home_town = ? AND team = ?)")
}

func (s *DatasetSuite) TestBuildNoTable(c *C) {
	_, _, err := vrow.From("").Build()
	c.Assert(err, ErrorMatches, "cannot build query: no table")
}

// A resolution failure inside a clause closure surfaces at Build, later
// clauses are skipped.
func (s *DatasetSuite) TestResolutionErrorDeferred(c *C) {
	evaluated := false
	ds := vrow.From("people").Where(func(r *vrow.Row) any {
		return r.V("a__b__c")
	}).Select(func(r *vrow.Row) any {
		evaluated = true
		return r.V("name")
	})
	_, _, err := ds.Build()
	c.Assert(errors.Is(err, vrow.ErrInvalidQualifiedName), Equals, true)
	c.Assert(evaluated, Equals, false)
}

func (s *DatasetSuite) TestWhereRejectsNonCondition(c *C) {
	_, _, err := vrow.From("people").Where(func(r *vrow.Row) any {
		return 42
	}).Build()
	c.Assert(err, ErrorMatches, "cannot use int as a condition")
}

func (s *DatasetSuite) TestSelectRejectsNonExpressions(c *C) {
	_, _, err := vrow.From("people").Select(func(r *vrow.Row) any {
		return []any{42}
	}).Build()
	c.Assert(err, ErrorMatches, "cannot collect element 0: int is not an expression")
}

func (s *DatasetSuite) TestRowMethodsAfterErrorReturnNil(c *C) {
	row := &vrow.Row{}
	e := row.V("a__b__c")
	c.Assert(e, IsNil)
	c.Assert(errors.Is(row.Err(), vrow.ErrInvalidQualifiedName), Equals, true)
	// Later calls are inert and keep the first error.
	c.Assert(row.V("name"), IsNil)
	c.Assert(errors.Is(row.Err(), vrow.ErrInvalidQualifiedName), Equals, true)
}

func (s *DatasetSuite) TestPrepareError(c *C) {
	ds := vrow.From("people").Where(func(r *vrow.Row) any {
		return r.Add(1)
	})
	_, err := vrow.Prepare(ds)
	c.Assert(err, NotNil)

	c.Assert(func() { vrow.MustPrepare(ds) }, PanicMatches,
		`invalid operator arity: operator "\+" needs at least 2 operands, got 1`)
}

func (s *DatasetSuite) TestResolveAndCollect(c *C) {
	e, err := vrow.Resolve(vrow.Call{Name: "count", Args: []any{vrow.Wildcard}, Block: true})
	c.Assert(err, IsNil)
	c.Assert(e.String(), Equals, "Func[count(*)]")

	seq, err := vrow.Collect([]any{e})
	c.Assert(err, IsNil)
	c.Assert(seq.String(), Equals, "Seq[Func[count(*)]]")
}
