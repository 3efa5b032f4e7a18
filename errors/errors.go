// Package errors provides error handling for the wikibase library.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints and details
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrNotFound) {
//	    // handle not found
//	}
//
// The typed error kinds a caller is expected to branch on (resolver
// conflicts, integrity failures, server-reported API errors, ...) live in
// kinds.go in this package.
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
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Common sentinel errors. Use these with errors.Is() for type-safe error
// checking; wrap them with errors.Wrap() to add context while preserving
// the type.
var (
	// ErrNotFound indicates the requested entity or page does not exist
	ErrNotFound = New("not found")

	// ErrIDMissing indicates an engine was constructed with neither an
	// entity id nor enough statement data to resolve one
	ErrIDMissing = New("no entity id and no data to resolve one")

	// ErrCancelled indicates an operation was aborted mid-retry by its context
	ErrCancelled = New("cancelled")
)
