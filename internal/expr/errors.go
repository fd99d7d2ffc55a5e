// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"errors"
	"fmt"
)

// The resolution error taxonomy. All resolution failures wrap exactly one of
// these sentinels and are raised synchronously, a failed resolution never
// returns a partial expression.
var (
	// ErrInvalidQualifiedName is returned when a name contains more than
	// one qualifier separator or a separator producing an empty segment.
	ErrInvalidQualifiedName = errors.New("invalid qualified name")

	// ErrInvalidFunctionArgs is returned when the arguments of a function
	// form call do not fit any resolution rule.
	ErrInvalidFunctionArgs = errors.New("invalid function arguments")

	// ErrInvalidOperatorArity is returned when an operator shortcut is
	// called with the wrong number of operands.
	ErrInvalidOperatorArity = errors.New("invalid operator arity")

	// ErrInvalidWindowSpec is returned when a window options mapping
	// contains unrecognised keys or conflicting options.
	ErrInvalidWindowSpec = errors.New("invalid window specification")
)

func invalidQualifiedNameError(name, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidQualifiedName, name, reason)
}

func invalidFunctionArgsError(name, reason string) error {
	return fmt.Errorf("%w in call to %q: %s", ErrInvalidFunctionArgs, name, reason)
}

func invalidOperatorArityError(operator string, want string, got int) error {
	return fmt.Errorf("%w: operator %q needs %s operands, got %d", ErrInvalidOperatorArity, operator, want, got)
}

func invalidWindowSpecError(name, reason string) error {
	return fmt.Errorf("%w in call to %q: %s", ErrInvalidWindowSpec, name, reason)
}
