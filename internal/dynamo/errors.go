package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for coupling operations.
var (
	// ErrConfiguration indicates an invalid particle count, radius, density
	// or timestep at initialization.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrIndex indicates a particle index outside [0, count).
	ErrIndex = errors.New("dynamo: particle index out of range")

	// ErrDegenerateGeometry indicates a query point or a particle pair whose
	// separation vanishes, so no direction can be defined.
	ErrDegenerateGeometry = errors.New("dynamo: degenerate geometry")

	// ErrNumericalInstability indicates the rigid-body update diverged.
	ErrNumericalInstability = errors.New("dynamo: numerical instability (state diverged)")
)

// IndexError reports an out-of-range particle access.
type IndexError struct {
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("particle %d outside [0, %d)", e.Index, e.Count)
}

func (e *IndexError) Unwrap() error { return ErrIndex }

// CheckIndex returns an *IndexError when i is outside [0, n).
func CheckIndex(i, n int) error {
	if i < 0 || i >= n {
		return &IndexError{Index: i, Count: n}
	}
	return nil
}

// Configf wraps ErrConfiguration with a formatted reason.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
