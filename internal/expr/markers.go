// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

// Marker is a reserved sentinel passed as the first argument of a function
// form call to select a resolution sub-mode. Markers are a dedicated type so
// that a collision with a legitimate argument value, a column name, an
// integer, a string, is a static impossibility rather than a runtime
// equality check.
type Marker uint8

const (
	// Wildcard marks a call as a wildcard function call, e.g. count(*).
	Wildcard Marker = iota + 1
	// Distinct marks the remaining arguments of a call as distinct, e.g.
	// count(DISTINCT col).
	Distinct
	// Over marks a call as a window function and makes the following
	// options mapping, if any, describe its window.
	Over
)

func (m Marker) String() string {
	switch m {
	case Wildcard:
		return "wildcard"
	case Distinct:
		return "distinct"
	case Over:
		return "over"
	}
	return "unknown marker"
}
