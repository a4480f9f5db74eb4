// Package errors provides error handling for stagegen.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints and details
//
// It also defines the sentinel errors shared by the pass engine, the filter
// registry and the program model. Callers test for them with Is:
//
//	if errors.Is(err, errors.ErrSealed) {
//	    // the group or container was frozen
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint       = crdb.WithHint
	WithHintf      = crdb.WithHintf
	WithDetail     = crdb.WithDetail
	WithDetailf    = crdb.WithDetailf
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Error inspection
var (
	Is         = crdb.Is
	IsAny      = crdb.IsAny
	As         = crdb.As
	Unwrap     = crdb.Unwrap
	UnwrapOnce = crdb.UnwrapOnce
	UnwrapAll  = crdb.UnwrapAll
	Join       = crdb.Join
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors. Wrap them with Wrap/Wrapf to add context; Is still matches.
var (
	// ErrInvalidArgument indicates a malformed argument (empty name, nil filter)
	ErrInvalidArgument = New("invalid argument")

	// ErrSealed indicates a structural mutation of a sealed group or container
	ErrSealed = New("sealed")

	// ErrPhaseLocked indicates a mutation attempted during a pass phase that forbids it
	ErrPhaseLocked = New("locked by active pass phase")

	// ErrDuplicateName indicates a group name already used within a container
	ErrDuplicateName = New("duplicate name")

	// ErrNotMember indicates a group that is not registered in the container
	ErrNotMember = New("not a member")

	// ErrIndexOutOfRange indicates a position outside the collection
	ErrIndexOutOfRange = New("index out of range")

	// ErrNoContext indicates that no pass context is registered for a handle
	ErrNoContext = New("no pass context registered")

	// ErrContextType indicates a registered pass context of an unexpected shape
	ErrContextType = New("pass context has unexpected type")

	// ErrPrecondition indicates that a host-level precondition was not met
	ErrPrecondition = New("precondition failed")
)

// IsSealedError reports whether err was caused by a sealed or phase-locked target.
func IsSealedError(err error) bool {
	return err != nil && IsAny(err, ErrSealed, ErrPhaseLocked)
}

// IsLookupError reports whether err is a registry lookup failure.
func IsLookupError(err error) bool {
	return err != nil && IsAny(err, ErrNoContext, ErrContextType)
}

// IsPreconditionError reports whether err is or wraps ErrPrecondition.
func IsPreconditionError(err error) bool {
	return err != nil && Is(err, ErrPrecondition)
}

// NewPreconditionError creates a precondition failure with a formatted message
func NewPreconditionError(format string, args ...interface{}) error {
	return Wrapf(ErrPrecondition, format, args...)
}
