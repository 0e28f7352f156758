package errors

import (
	stderrors "errors"
	"fmt"
)

// ConfigError occurs when an option value is invalid. It is always detected before any I/O.
type ConfigError struct {
	Option string
	Reason string
}

// Error returns a textual representation of this ConfigError
func (e ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Option, e.Reason)
}

// NotFoundError occurs when an object does not exist in a store
type NotFoundError struct{ Path string }

// Error returns a textual representation of this NotFoundError
func (e NotFoundError) Error() string {
	return fmt.Sprintf("object %s does not exist", e.Path)
}

// AccessError occurs when an operation is not permitted, either because credentials are
// missing or because an anonymous write was attempted
type AccessError struct {
	Path   string
	Op     string
	Reason string
}

// Error returns a textual representation of this AccessError
func (e AccessError) Error() string {
	return fmt.Sprintf("%s %s denied: %s", e.Op, e.Path, e.Reason)
}

// LineageError occurs when an artifact name cannot carry a further iteration prefix
type LineageError struct{ Name string }

// Error returns a textual representation of this LineageError
func (e LineageError) Error() string {
	return fmt.Sprintf("basename %q has no remainder after its first two \"_\" tokens", e.Name)
}

// SkippedError marks a deferred node which never ran because a dependency failed
type SkippedError struct {
	Node  string
	Cause error
}

// Error returns a textual representation of this SkippedError
func (e SkippedError) Error() string {
	return fmt.Sprintf("node %s skipped: %v", e.Node, e.Cause)
}

// Unwrap returns the failure which caused the skip
func (e SkippedError) Unwrap() error {
	return e.Cause
}

// InstrumentationError occurs when a timing event cannot be appended to the benchmark log.
// It is never returned to pipeline callers.
type InstrumentationError struct {
	Path string
	Err  error
}

// Error returns a textual representation of this InstrumentationError
func (e InstrumentationError) Error() string {
	return fmt.Sprintf("unable to append to benchmark log %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying I/O error
func (e InstrumentationError) Unwrap() error {
	return e.Err
}

// IsConfig returns true iff err is, or wraps, a ConfigError
func IsConfig(err error) bool {
	var target ConfigError
	return stderrors.As(err, &target)
}

// IsNotFound returns true iff err is, or wraps, a NotFoundError
func IsNotFound(err error) bool {
	var target NotFoundError
	return stderrors.As(err, &target)
}

// IsAccess returns true iff err is, or wraps, an AccessError
func IsAccess(err error) bool {
	var target AccessError
	return stderrors.As(err, &target)
}

// IsLineage returns true iff err is, or wraps, a LineageError
func IsLineage(err error) bool {
	var target LineageError
	return stderrors.As(err, &target)
}

// IsSkipped returns true iff err is, or wraps, a SkippedError
func IsSkipped(err error) bool {
	var target SkippedError
	return stderrors.As(err, &target)
}
