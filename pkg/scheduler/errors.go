package scheduler

import "errors"

// Engine error conditions. Anything that only degrades a single unit (an
// empty candidate set, an unfillable upgrade week) is reported as a warning
// on the run instead of an error, so generation always completes.
var (
	// ErrInvalidMonth reports a target month that is unparseable or out of
	// range. It fails the whole call.
	ErrInvalidMonth = errors.New("invalid month")

	// ErrMalformedPTORange reports a PTO range that cannot be normalized to
	// calendar dates. It never fails a run: the owning user's PTO is dropped
	// for the run and a warning recorded.
	ErrMalformedPTORange = errors.New("malformed pto range")
)
