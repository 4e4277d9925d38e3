package preload

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common failure modes.
var (
	// ErrInvalidPath is returned when a relation path is malformed or names
	// a relation unknown to the entity type at its depth.
	ErrInvalidPath = errors.New("preload: invalid relation path")

	// ErrFetchFailed is returned when a batch fetch against the backend fails.
	ErrFetchFailed = errors.New("preload: fetch failed")

	// ErrCardinality is returned when a to-one relation resolves to more
	// than one row for a single key.
	ErrCardinality = errors.New("preload: cardinality mismatch")
)

// PathError represents a malformed or unresolvable relation path.
// It is always detected at parse time, before any fetch is issued.
type PathError struct {
	path    string // the full path string as given by the caller
	segment string // the offending segment, if any
	depth   int    // zero-based depth of the offending segment
	reason  string
}

// Error returns the error string.
func (e *PathError) Error() string {
	if e.segment != "" {
		return fmt.Sprintf("preload: invalid relation path %q: %s at segment %q (depth %d)", e.path, e.reason, e.segment, e.depth)
	}
	return fmt.Sprintf("preload: invalid relation path %q: %s", e.path, e.reason)
}

// Is reports whether the target error matches PathError.
// This allows errors.Is(pathErr, ErrInvalidPath) to return true.
func (e *PathError) Is(err error) bool {
	return err == ErrInvalidPath
}

// Path returns the full path string that failed to parse.
func (e *PathError) Path() string {
	return e.path
}

// Segment returns the offending path segment, or "" if the path as a
// whole was malformed.
func (e *PathError) Segment() string {
	return e.segment
}

// Depth returns the zero-based depth of the offending segment.
func (e *PathError) Depth() int {
	return e.depth
}

// NewPathError returns a new PathError for a path that is malformed as a whole.
func NewPathError(path, reason string) *PathError {
	return &PathError{path: path, reason: reason}
}

// NewPathSegmentError returns a new PathError pinpointing a segment.
func NewPathSegmentError(path, segment string, depth int, reason string) *PathError {
	return &PathError{path: path, segment: segment, depth: depth, reason: reason}
}

// IsInvalidPath returns true if the error is a PathError.
func IsInvalidPath(err error) bool {
	if err == nil {
		return false
	}
	var e *PathError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidPath)
}

// FetchError wraps a backend error that occurred while batch-fetching one
// relation edge. The pipeline aborts the remaining traversal; already
// attached levels are kept (hydration is additive, not transactional).
type FetchError struct {
	path  string // full path of the edge being fetched
	depth int
	err   error
}

// Error returns the error string.
func (e *FetchError) Error() string {
	if e.depth < 0 {
		return fmt.Sprintf("preload: fetching %s roots: %v", e.path, e.err)
	}
	return fmt.Sprintf("preload: fetching %q (depth %d): %v", e.path, e.depth, e.err)
}

// Is reports whether the target error matches FetchError.
func (e *FetchError) Is(err error) bool {
	return err == ErrFetchFailed
}

// Unwrap returns the underlying backend error.
func (e *FetchError) Unwrap() error {
	return e.err
}

// Path returns the full path of the edge whose fetch failed.
func (e *FetchError) Path() string {
	return e.path
}

// Depth returns the zero-based depth of the failing edge.
func (e *FetchError) Depth() int {
	return e.depth
}

// NewFetchError returns a new FetchError wrapping the backend error.
func NewFetchError(path string, depth int, err error) *FetchError {
	return &FetchError{path: path, depth: depth, err: err}
}

// NewRootFetchError returns a FetchError for the root fetch of a query,
// which precedes the path forest and has no depth.
func NewRootFetchError(typeName string, err error) *FetchError {
	return &FetchError{path: typeName, depth: -1, err: err}
}

// IsFetchFailed returns true if the error is a FetchError.
func IsFetchFailed(err error) bool {
	if err == nil {
		return false
	}
	var e *FetchError
	return errors.As(err, &e) || errors.Is(err, ErrFetchFailed)
}

// CardinalityError represents a to-one relation that resolved to more than
// one row for a single key. The violation is surfaced at attach time rather
// than coerced by picking an arbitrary row.
type CardinalityError struct {
	path  string
	depth int
	key   any
	count int
}

// Error returns the error string.
func (e *CardinalityError) Error() string {
	return fmt.Sprintf("preload: to-one relation %q (depth %d) matched %d rows for key %v", e.path, e.depth, e.count, e.key)
}

// Is reports whether the target error matches CardinalityError.
func (e *CardinalityError) Is(err error) bool {
	return err == ErrCardinality
}

// Path returns the full path of the violating edge.
func (e *CardinalityError) Path() string {
	return e.path
}

// Depth returns the zero-based depth of the violating edge.
func (e *CardinalityError) Depth() int {
	return e.depth
}

// Key returns the key that matched multiple rows.
func (e *CardinalityError) Key() any {
	return e.key
}

// Count returns the number of rows that matched.
func (e *CardinalityError) Count() int {
	return e.count
}

// NewCardinalityError returns a new CardinalityError.
func NewCardinalityError(path string, depth int, key any, count int) *CardinalityError {
	return &CardinalityError{path: path, depth: depth, key: key, count: count}
}

// IsCardinalityMismatch returns true if the error is a CardinalityError.
func IsCardinalityMismatch(err error) bool {
	if err == nil {
		return false
	}
	var e *CardinalityError
	return errors.As(err, &e) || errors.Is(err, ErrCardinality)
}

// NotLoadedError represents an error when accessing a relation that was not
// requested for eager loading. Access never falls back to an implicit fetch.
type NotLoadedError struct {
	relation string
}

// Error returns the error string.
func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("preload: relation %q was not loaded", e.relation)
}

// Relation returns the relation name that was accessed.
func (e *NotLoadedError) Relation() string {
	return e.relation
}

// NewNotLoadedError returns a new NotLoadedError for the given relation name.
func NewNotLoadedError(relation string) *NotLoadedError {
	return &NotLoadedError{relation: relation}
}

// IsNotLoaded returns true if the error is a NotLoadedError.
func IsNotLoaded(err error) bool {
	if err == nil {
		return false
	}
	var e *NotLoadedError
	return errors.As(err, &e)
}
