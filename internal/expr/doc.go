// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

/*
Package expr resolves captured virtual row invocations into query expression
AST nodes and renders those nodes to SQL. It covers all functionality
relating to vrow expressions, it does not cover interaction with databases.

The package is split into three stages: resolution, collection and
rendering.

# Resolution stage

Resolution consumes one Call descriptor, the name, ordered arguments and
form of a single DSL invocation, and produces exactly one expression. The
reserved operator names are intercepted by the operator shortcut table
before the generic rules run. Resolution is a pure function with no hidden
state: identical descriptors always resolve to structurally identical
expressions, and a descriptor that fails resolution always fails with the
same error. No partial expression is ever returned on failure.

# Collection stage

A clause closure may evaluate to a single expression or to an ordered
collection of expressions. Collect flattens a collection into a Sequence,
preserving order, and passes single expressions through untouched. It never
resolves anything itself.

# Rendering stage

Render walks a resolved expression and generates the SQL fragment together
with the ordered bind arguments for its literal values. Mappings render as
conjunctions of per column conditions, LiteralString fragments are emitted
verbatim. Rendering is the only stage that interprets plain Go values, the
resolution stage forwards them untouched.
*/
package expr
