package align

import "errors"

var (
	// ErrInvalidConfiguration indicates a malformed tunable; surfaced before
	// any work starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrDegenerateSignal indicates a zero-energy (silent) chunk. It is
	// local to one correlation job: the scheduler records the pair as
	// unmatched and the run continues.
	ErrDegenerateSignal = errors.New("degenerate signal")
)
