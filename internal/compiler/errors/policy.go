package errors

import (
	"github.com/choreo-dev/policy-validator/internal/compiler/symbols"
)

// Policy error codes (GWPOLICY001-099)
const (
	// ErrNonPublicPolicy indicates a policy function without the public qualifier
	ErrNonPublicPolicy ErrorCode = "GWPOLICY001"
	// ErrMultiplePolicies indicates more than one policy function in a package
	ErrMultiplePolicies ErrorCode = "GWPOLICY002"
)

// NewNonPublicPolicy creates a GWPOLICY001 error
func NewNonPublicPolicy(loc symbols.Location, fnName string) *CompilerError {
	return newError(
		ErrNonPublicPolicy,
		"non_public_policy",
		CategoryPolicy,
		SeverityError,
		"a policy should be 'public'",
		loc,
	).WithSymbol(fnName).
		WithSuggestion("Declare the policy function with the 'public' qualifier")
}

// NewMultiplePolicies creates a GWPOLICY002 error
func NewMultiplePolicies(loc symbols.Location, fnName string) *CompilerError {
	return newError(
		ErrMultiplePolicies,
		"multiple_policies",
		CategoryPolicy,
		SeverityError,
		"there can only be one policy per package",
		loc,
	).WithSymbol(fnName).
		WithSuggestion("Move additional policies into their own packages")
}
