package models

import (
	"errors"
	"fmt"
)

// Error taxonomy. Per-item and per-artifact errors (invalid identifier,
// schema mismatch) are recovered locally by callers: logged, counted,
// skipped. Store errors are fatal. Scheduler unavailability degrades the
// reconciler to an empty in-flight set. NoWork is informational, not a
// failure.
var (
	ErrInvalidIdentifier    = errors.New("invalid identifier")
	ErrSchemaMismatch       = errors.New("schema mismatch")
	ErrSchedulerUnavailable = errors.New("scheduler unavailable")
	ErrStoreIO              = errors.New("registry store error")
	ErrNoWork               = errors.New("no work found")
	ErrUnknownPipeline      = errors.New("unknown pipeline")
)

// Errorf wraps one of the sentinel errors above with context so callers
// can still match with errors.Is.
func Errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
