// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package example

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/canonical/vrow"
)

func example() error {
	sqldb, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return err
	}

	_, err = sqldb.Exec(`
	CREATE TABLE people (
		name text,
		height_cm integer,
		home_town text
	);
	CREATE TABLE location (
		town_name text,
		population integer
	)`)
	if err != nil {
		return err
	}

	people := [][]any{
		{"Jim", 150, "Kabul"},
		{"Saba", 162, "Berlin"},
		{"Dave", 169, "Brasília"},
		{"Sophie", 174, "Berlin"},
		{"Kiri", 168, "Cape Town"},
	}
	for _, p := range people {
		if _, err := sqldb.Exec("INSERT INTO people VALUES (?, ?, ?)", p...); err != nil {
			return err
		}
	}
	places := [][]any{
		{"Kabul", 13000000},
		{"Berlin", 3677472},
		{"Brasília", 3039444},
		{"Cape Town", 4710000},
	}
	for _, p := range places {
		if _, err := sqldb.Exec("INSERT INTO location VALUES (?, ?)", p...); err != nil {
			return err
		}
	}

	db := vrow.NewDB(sqldb)
	ctx := context.Background()

	// Everyone taller than Kiri, together with the population of their
	// home town.
	tallerThanKiri := vrow.MustPrepare(vrow.From("people AS p, location AS l").
		Select(func(r *vrow.Row) any {
			return []any{r.V("p__name"), r.V("l__population")}
		}).
		Where(func(r *vrow.Row) any {
			return r.And(
				vrow.M{"p__home_town": r.V("l__town_name")},
				r.Gt(r.V("p__height_cm"), 168),
			)
		}).
		Order(func(r *vrow.Row) any {
			return r.V("p__name")
		}))

	iter := db.Query(ctx, tallerThanKiri).Iter()
	for iter.Next() {
		var name string
		var population int
		if err := iter.Scan(&name, &population); err != nil {
			break
		}
		fmt.Printf("%s lives in a town of %d people\n", name, population)
	}
	if err := iter.Close(); err != nil {
		return err
	}

	// The tallest person per home town, using a window function.
	tallest := vrow.MustPrepare(vrow.From("people").
		Select(func(r *vrow.Row) any {
			return []any{
				r.V("name"),
				r.F("max", vrow.Over, vrow.M{"args": "height_cm", "partition": "home_town"}),
			}
		}))

	iter = db.Query(ctx, tallest).Iter()
	for iter.Next() {
		var name string
		var max int
		if err := iter.Scan(&name, &max); err != nil {
			break
		}
		fmt.Printf("the tallest person in %s's home town is %dcm\n", name, max)
	}
	return iter.Close()
}
