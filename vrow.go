// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package vrow

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/canonical/vrow/internal/expr"
)

// M is a mapping value usable wherever an expression operand is expected,
// for example as a window options mapping or a condition:
//
//	r.F("sum", vrow.Over, vrow.M{"args": "amount", "partition": "team"})
//	r.And(vrow.M{"team": "engineering"})
//
// M is not a special type, a plain map[string]any works everywhere M does.
type M = expr.M

// Expression is one node of the query expression AST produced by [Resolve].
// Expressions are immutable once built.
type Expression = expr.Expression

// Call describes one captured DSL invocation for programmatic callers of
// [Resolve]. [Row] builds these descriptors itself.
type Call = expr.Call

// The three reserved markers. A marker as the first argument of a function
// form call selects a resolution sub-mode, see [Row.F].
const (
	Wildcard = expr.Wildcard
	Distinct = expr.Distinct
	Over     = expr.Over
)

// The resolution error taxonomy. Every resolution failure wraps one of
// these and can be tested with errors.Is.
var (
	ErrInvalidQualifiedName = expr.ErrInvalidQualifiedName
	ErrInvalidFunctionArgs  = expr.ErrInvalidFunctionArgs
	ErrInvalidOperatorArity = expr.ErrInvalidOperatorArity
	ErrInvalidWindowSpec    = expr.ErrInvalidWindowSpec
)

var ErrNoRows = sql.ErrNoRows
var ErrTXDone = sql.ErrTxDone

// Resolve maps one invocation descriptor to one expression. It is the
// single entry point of the resolution engine, [Row] methods are sugar over
// it.
func Resolve(call Call) (Expression, error) {
	return expr.Resolve(call)
}

// Collect flattens an ordered collection of expressions into a single
// sequence expression, preserving order. A single expression passes
// through unwrapped.
func Collect(v any) (Expression, error) {
	return expr.Collect(v)
}

// stmtCache stores the driver prepared statements associated to vrow
// Statement objects.
var stmtCache = newStatementCache()

// Statement is a query built from a [Dataset], ready to be run on a
// database. A Statement can be used with any [DB].
type Statement struct {
	// cacheID is used to look up the driver prepared statements associated
	// with this Statement.
	cacheID int64
	// sql and args are the built query text and its bind arguments.
	sql  string
	args []any
}

// SQL returns the built query text.
func (s *Statement) SQL() string {
	return s.sql
}

// Prepare builds the dataset and generates a [Statement].
func Prepare(ds *Dataset) (*Statement, error) {
	sql, args, err := ds.Build()
	if err != nil {
		return nil, err
	}
	return stmtCache.newStatement(sql, args), nil
}

// MustPrepare is the same as [Prepare] except that it panics on error.
func MustPrepare(ds *Dataset) *Statement {
	s, err := Prepare(ds)
	if err != nil {
		panic(err)
	}
	return s
}

// DB wraps a database/sql database with the vrow query API.
type DB struct {
	// cacheID is used to look up the cached driver prepared statements
	// prepared on this database.
	cacheID int64
	// sqldb is the underlying database/sql DB object.
	sqldb *sql.DB
}

// NewDB creates a new [DB] from a [sql.DB].
func NewDB(sqldb *sql.DB) *DB {
	if sqldb == nil {
		return nil
	}
	return stmtCache.newDB(sqldb)
}

// PlainDB returns the underlying database object.
func (db *DB) PlainDB() *sql.DB {
	return db.sqldb
}

// Query represents a query on a database. It is designed to be run once.
type Query struct {
	// run executes the query against the DB or the TX.
	run func(context.Context) (*sql.Rows, error)
	ctx context.Context
	err error
}

// Iterator is used to iterate over the results of the query.
type Iterator struct {
	rows    *sql.Rows
	err     error
	started bool
}

// Query builds a new query from a context and a [Statement]. The query is
// run on the database when [Query.Iter], [Query.Run] or [Query.Get] is
// executed.
func (db *DB) Query(ctx context.Context, s *Statement) *Query {
	if ctx == nil {
		ctx = context.Background()
	}

	run := func(innerCtx context.Context) (*sql.Rows, error) {
		sqlstmt, err := stmtCache.prepareStmt(innerCtx, db.cacheID, db.sqldb, s)
		if err != nil {
			return nil, err
		}
		return sqlstmt.QueryContext(innerCtx, s.args...)
	}

	return &Query{run: run, ctx: ctx}
}

// Run runs the query and discards any results.
func (q *Query) Run() error {
	if q.err != nil {
		return q.err
	}
	iter := q.Iter()
	for iter.Next() {
	}
	return iter.Close()
}

// Get runs the query and scans the first row returned into the provided
// destinations. It returns [ErrNoRows] if no results were found.
func (q *Query) Get(dests ...any) error {
	if q.err != nil {
		return q.err
	}
	iter := q.Iter()
	if !iter.Next() {
		err := iter.Close()
		if err == nil {
			err = ErrNoRows
		}
		return err
	}
	err := iter.Scan(dests...)
	if cerr := iter.Close(); err == nil {
		err = cerr
	}
	return err
}

// Iter returns an [Iterator] to iterate through the results row by row.
// [Iterator.Close] must be run once iteration is finished.
func (q *Query) Iter() *Iterator {
	if q.err != nil {
		return &Iterator{err: q.err}
	}
	rows, err := q.run(q.ctx)
	if err != nil {
		return &Iterator{err: err}
	}
	return &Iterator{rows: rows}
}

// Next prepares the next row for [Iterator.Scan]. If an error occurs during
// iteration it will be returned with [Iterator.Close].
func (iter *Iterator) Next() bool {
	iter.started = true
	if iter.err != nil || iter.rows == nil {
		return false
	}
	return iter.rows.Next()
}

// Scan copies the columns of the row prepared by the previous call to
// [Iterator.Next] into the provided destinations.
func (iter *Iterator) Scan(dests ...any) (err error) {
	if iter.err != nil {
		return iter.err
	}
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot get result: %s", err)
		}
	}()
	if !iter.started {
		return fmt.Errorf("cannot call Scan before Next")
	}
	if iter.rows == nil {
		return fmt.Errorf("iteration ended")
	}
	return iter.rows.Scan(dests...)
}

// Close finishes the iteration and returns any errors encountered. Close
// can be called multiple times on the [Iterator] and the same error will be
// returned.
func (iter *Iterator) Close() error {
	iter.started = true
	if iter.rows == nil {
		return iter.err
	}
	err := iter.rows.Close()
	iter.rows = nil
	if iter.err != nil {
		return iter.err
	}
	return err
}

// TX represents a transaction on the database.
type TX struct {
	sqltx *sql.Tx
	db    *DB
	done  int32
}

func (tx *TX) isDone() bool {
	return atomic.LoadInt32(&tx.done) == 1
}

func (tx *TX) setDone() error {
	if !atomic.CompareAndSwapInt32(&tx.done, 0, 1) {
		return ErrTXDone
	}
	return nil
}

// Begin starts a transaction. A transaction must be ended with a
// [TX.Commit] or [TX.Rollback].
func (db *DB) Begin(ctx context.Context, opts *TXOptions) (*TX, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sqltx, err := db.sqldb.BeginTx(ctx, opts.plainTXOptions())
	if err != nil {
		return nil, err
	}
	return &TX{sqltx: sqltx, db: db}, nil
}

// Commit commits the transaction.
func (tx *TX) Commit() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Commit()
	}
	return err
}

// Rollback aborts the transaction.
func (tx *TX) Rollback() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Rollback()
	}
	return err
}

// TXOptions holds the transaction options to be used in [DB.Begin].
type TXOptions struct {
	// Isolation is the transaction isolation level.
	// If zero, the driver or database's default level is used.
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

func (txopts *TXOptions) plainTXOptions() *sql.TxOptions {
	if txopts == nil {
		return nil
	}
	return &sql.TxOptions{Isolation: txopts.Isolation, ReadOnly: txopts.ReadOnly}
}

// Query builds a new query on the transaction from a context and a
// [Statement]. A driver statement already prepared on the database is
// reused, registering it on the transaction does not re-prepare it.
func (tx *TX) Query(ctx context.Context, s *Statement) *Query {
	if ctx == nil {
		ctx = context.Background()
	}
	if tx.isDone() {
		return &Query{ctx: ctx, err: ErrTXDone}
	}

	run := func(innerCtx context.Context) (*sql.Rows, error) {
		sqlstmt, ok := stmtCache.lookupStmt(tx.db, s)
		if ok {
			// The txstmt is closed by database/sql when the transaction
			// is committed or rolled back.
			txstmt := tx.sqltx.Stmt(sqlstmt)
			return txstmt.QueryContext(innerCtx, s.args...)
		}
		return tx.sqltx.QueryContext(innerCtx, s.sql, s.args...)
	}

	return &Query{run: run, ctx: ctx}
}
