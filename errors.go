package memoize

import "github.com/go-memoize/memoize/pkg/merrors"

// These re-export pkg/merrors' sentinels on the public surface so callers
// never need to import the internal package directly — the same
// surface-vs-internals split spec §7's error table implies.
var (
	ErrBadConfig       = merrors.ErrBadConfig
	ErrBadKeyFunction  = merrors.ErrBadKeyFunction
	ErrSchedulerClosed = merrors.ErrSchedulerClosed
)

// RefreshError wraps a background never-die refresh failure for logging.
// It is never returned to a caller of a wrapped function — spec §7 says
// refresh failures are swallowed, logged at debug, and the back-off
// extended — a caller only ever sees the last successfully cached value.
type RefreshError = merrors.RefreshError
