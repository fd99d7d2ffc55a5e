// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import "strings"

// qualifierSeparator splits a qualified name into its table and column
// segments. It is part of the input contract of Resolve, changing it breaks
// every caller.
const qualifierSeparator = "__"

// splitName splits a call name on the qualifier separator. A name with no
// separator is not qualified. A name with exactly one separator and two
// non-empty segments is qualified. Anything else is ambiguous and fails
// with ErrInvalidQualifiedName.
func splitName(name string) (table, column string, qualified bool, err error) {
	switch strings.Count(name, qualifierSeparator) {
	case 0:
		return "", "", false, nil
	case 1:
		table, column, _ = strings.Cut(name, qualifierSeparator)
		if table == "" || column == "" {
			return "", "", false, invalidQualifiedNameError(name, "empty segment")
		}
		return table, column, true, nil
	default:
		return "", "", false, invalidQualifiedNameError(name, "more than one qualifier separator")
	}
}
