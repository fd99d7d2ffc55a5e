// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

/*
Package vrow builds SQL queries from virtual row expressions: small Go
closures that describe filter, select and order clauses as method calls on a
row value. Each call on the row is resolved into one node of a fixed set of
query expression forms, and a dataset renders the accumulated nodes to SQL
text with bind arguments. This package also provides an API for running the
built queries on a database/sql database.

# Basics

A dataset names a table and accumulates clauses:

	ds := vrow.From("people").
		Where(func(r *vrow.Row) any {
			return r.Gt(r.V("height_cm"), 170)
		}).
		Select(func(r *vrow.Row) any {
			return []any{r.V("name"), r.V("home_town")}
		})

	stmt, err := vrow.Prepare(ds)

The closure receives a virtual row. Calls on the row resolve as follows:

 1. r.V("name")
    - A plain name resolves to a column reference.

 2. r.V("people__name")
    - A name with a "__" separator resolves to a qualified reference,
    people.name.

 3. r.V("coalesce", a, b)
    - A plain call with arguments resolves to a function call.

 4. r.F("version")
    - The function form with no arguments resolves to version().

 5. r.F("count", vrow.Wildcard)
    - The Wildcard marker resolves to count(*).

 6. r.F("count", vrow.Distinct, r.V("name"))
    - The Distinct marker resolves to count(DISTINCT name).

 7. r.F("rank", vrow.Over)
    - The Over marker resolves to a window function, rank() OVER (). An
    options mapping may follow the marker:

	r.F("sum", vrow.Over, vrow.M{
		"args":      "amount",
		"partition": "team",
		"order":     "id",
	})

The arithmetic, boolean and comparison operators are reserved and resolve
directly, bypassing the rules above: Add, Sub, Mul, Div (two or more
operands), And, Or (one or more), Not (exactly one), Gt, Lt, Gte, Lte (two
or more), and Lit, which inserts a raw SQL fragment verbatim.

Plain Go values used as operands become bind arguments of the built query.
Mappings render as conjunctions of conditions on their keys:

	r.And(vrow.M{"team": "engineering", "id": []any{1, 2, 3}})
	// (id IN (?, ?, ?) AND team = ?)

A clause closure returns either a single expression or, for select and
order clauses, an ordered collection of expressions.

Resolution failures are deferred: the row records the first error and the
dataset reports it from Build or Prepare, so closures stay free of error
handling.

# Running queries

Statements prepared from a dataset run on a database through [DB], which
caches the driver prepared statement of each [Statement] per database:

	db := vrow.NewDB(sqldb)
	iter := db.Query(ctx, stmt).Iter()
	for iter.Next() {
		var name string
		if err := iter.Scan(&name); err != nil {
			break
		}
	}
	err := iter.Close()
*/
package vrow
