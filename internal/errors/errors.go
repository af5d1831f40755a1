// Package errors provides error handling for winmdgen.
//
// It re-exports github.com/cockroachdb/errors and adds the three failure
// classes a generation run can end with:
//
//	ErrUnsupported        a type shape or expression the generator does not understand
//	ErrInvalidConfig      an unknown or malformed configuration value
//	ErrMalformedNamespace an empty segment or duplicate node in the namespace tree
//
// Wrap the sentinels to add the offending namespace, type or key:
//
//	return errors.Wrapf(errors.ErrUnsupported, "field %s.%s", typeName, fieldName)
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
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

var (
	// ErrUnsupported indicates a metadata construct outside the closed set the
	// generator understands. The current output target is aborted.
	ErrUnsupported = New("unsupported construct")

	// ErrInvalidConfig indicates a configuration key or value the selected
	// backend does not accept. Reported before any generation work.
	ErrInvalidConfig = New("invalid configuration value")

	// ErrMalformedNamespace indicates a structural problem while building the
	// namespace tree.
	ErrMalformedNamespace = New("malformed namespace")
)

// IsUnsupported checks if an error is or wraps ErrUnsupported
func IsUnsupported(err error) bool {
	return err != nil && Is(err, ErrUnsupported)
}

// IsInvalidConfig checks if an error is or wraps ErrInvalidConfig
func IsInvalidConfig(err error) bool {
	return err != nil && Is(err, ErrInvalidConfig)
}

// IsMalformedNamespace checks if an error is or wraps ErrMalformedNamespace
func IsMalformedNamespace(err error) bool {
	return err != nil && Is(err, ErrMalformedNamespace)
}

// Unsupportedf wraps ErrUnsupported with a formatted description of the
// offending construct.
func Unsupportedf(format string, args ...interface{}) error {
	return Wrapf(ErrUnsupported, format, args...)
}
