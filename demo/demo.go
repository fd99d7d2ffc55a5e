// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Command demo runs a vrow query against a single node dqlite cluster.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/canonical/go-dqlite/app"

	"github.com/canonical/vrow"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dir, err := os.MkdirTemp("", "vrow-demo")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	dqlite, err := app.New(dir, app.WithAddress("127.0.0.1:9001"))
	if err != nil {
		return err
	}
	defer dqlite.Close()

	ctx := context.Background()
	if err := dqlite.Ready(ctx); err != nil {
		return err
	}

	sqldb, err := dqlite.Open(ctx, "demo")
	if err != nil {
		return err
	}

	_, err = sqldb.Exec(`
	CREATE TABLE IF NOT EXISTS people (
		name text,
		height_cm integer,
		team text
	)`)
	if err != nil {
		return err
	}
	people := [][]any{
		{"Jim", 150, "engineering"},
		{"Saba", 162, "engineering"},
		{"Dave", 169, "legal"},
		{"Sophie", 174, "legal"},
	}
	for _, p := range people {
		if _, err := sqldb.Exec("INSERT INTO people VALUES (?, ?, ?)", p...); err != nil {
			return err
		}
	}

	db := vrow.NewDB(sqldb)

	tall := vrow.MustPrepare(vrow.From("people").
		Select(func(r *vrow.Row) any {
			return []any{r.V("name"), r.V("team")}
		}).
		Where(func(r *vrow.Row) any {
			return r.Gt(r.V("height_cm"), 155)
		}).
		Order(func(r *vrow.Row) any {
			return r.V("name")
		}))
	fmt.Printf("running: %s\n", tall.SQL())

	iter := db.Query(ctx, tall).Iter()
	for iter.Next() {
		var name, team string
		if err := iter.Scan(&name, &team); err != nil {
			break
		}
		fmt.Printf("%s (%s) is taller than 155cm\n", name, team)
	}
	if err := iter.Close(); err != nil {
		return err
	}

	total := vrow.MustPrepare(vrow.From("people").Select(func(r *vrow.Row) any {
		return r.F("count", vrow.Wildcard)
	}))
	var n int
	if err := db.Query(ctx, total).Get(&n); err != nil {
		return err
	}
	fmt.Printf("%d people in total\n", n)
	return nil
}
