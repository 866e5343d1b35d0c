package fluid

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration indicates a zero or negative resolution or spacing.
	ErrInvalidConfiguration = errors.New("fluid: invalid configuration")

	// ErrDegenerateField indicates a grid whose minimum spacing is zero.
	ErrDegenerateField = errors.New("fluid: degenerate field (zero grid spacing)")

	// ErrUnboundedSubstepping indicates the CFL condition asked for more
	// sub-steps than the animation allows per frame.
	ErrUnboundedSubstepping = errors.New("fluid: sub-step count exceeds limit")
)

// StepError wraps an error raised while advancing a frame. The simulation
// state is left as it was before the frame started.
type StepError struct {
	Frame int
	Time  float64
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("frame %d (t=%g): %v", e.Frame, e.Time, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
