// Package merrors holds the sentinel errors spec.md §7 enumerates, shared
// between the root package and the lower-level packages that raise them
// (pkg/fingerprint, pkg/neverdie). Kept separate from the root package so
// that those lower-level packages can return them without importing
// upward into the root package, which imports them.
//
// Grounded on osmike-fcache/internal/lib/errs: a small set of wrapped
// sentinels with structured context, rendered with the standard library's
// error-wrapping idiom (fmt.Errorf("%w", ...), errors.Is/errors.As)
// instead of that package's hand-rolled formatter.
package merrors

import "errors"

var (
	// ErrBadConfig is returned at decoration time when KeyFunction and
	// IgnoreFields are both configured — spec §4.A/§7 forbids the
	// combination because IgnoreFields only has meaning relative to the
	// default signature-binding fingerprint.
	ErrBadConfig = errors.New("memoize: bad config")

	// ErrBadKeyFunction is returned to the caller when a configured key
	// function's return value is not hashable.
	ErrBadKeyFunction = errors.New("memoize: key function returned an unhashable value")

	// ErrSchedulerClosed marks a never-die registration whose captured
	// cooperative scheduler is no longer running; the supervisor skips
	// that registration for the current tick and logs it at debug level.
	ErrSchedulerClosed = errors.New("memoize: captured cooperative scheduler is no longer running")
)

// RefreshError wraps a background refresh failure for logging. It is never
// returned to a caller — spec §7 says refresh failures are "swallowed,
// logged at debug, back-off extended" — but giving it a named type lets
// the logger collaborator and tests distinguish it from other debug lines.
type RefreshError struct {
	FunctionID string
	Err        error
}

func (e *RefreshError) Error() string {
	return "memoize: refresh failed for " + e.FunctionID + ": " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}
