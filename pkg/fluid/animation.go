package fluid

import (
	"fmt"
	"io"
	"log"
	"math"
)

const (
	// DefaultFrameTimeInterval is the length of one frame in seconds.
	DefaultFrameTimeInterval = 1.0 / 60.0

	// DefaultMaxSubTimeSteps caps adaptive sub-stepping per frame.
	DefaultMaxSubTimeSteps = 256
)

// Frame identifies an animation frame.
type Frame struct {
	Index                 int
	TimeIntervalInSeconds float64
}

// TimeInSeconds returns the start time of the frame.
func (f Frame) TimeInSeconds() float64 {
	return float64(f.Index) * f.TimeIntervalInSeconds
}

// Advance moves to the next frame.
func (f *Frame) Advance() { f.Index++ }

// Stepper is the part of a simulation the animation drives.
type Stepper interface {
	// Initialize runs once, before the first sub-step.
	Initialize()
	// OnAdvanceTimeStep advances the simulation by dt.
	OnAdvanceTimeStep(dt float64)
	// NumberOfSubTimeSteps returns how many sub-steps a frame of length dt
	// needs when adaptive sub-stepping is on.
	NumberOfSubTimeSteps(dt float64) (int, error)
}

// PhysicsAnimation owns the simulation clock and splits frames into
// sub-steps. Sub-steps always run sequentially, in time order.
type PhysicsAnimation struct {
	stepper Stepper

	currentFrame Frame
	currentTime  float64
	initialized  bool

	useFixedSubTimeSteps bool
	numberOfSubTimeSteps int
	maxSubTimeSteps      int

	logger *log.Logger
}

// NewPhysicsAnimation returns an animation that has not produced any frame.
func NewPhysicsAnimation(s Stepper) *PhysicsAnimation {
	return &PhysicsAnimation{
		stepper:              s,
		currentFrame:         Frame{Index: -1, TimeIntervalInSeconds: DefaultFrameTimeInterval},
		numberOfSubTimeSteps: 1,
		maxSubTimeSteps:      DefaultMaxSubTimeSteps,
		logger:               log.New(io.Discard, "", 0),
	}
}

// CurrentFrame returns the last completed frame.
func (a *PhysicsAnimation) CurrentFrame() Frame { return a.currentFrame }

// CurrentTime returns the simulated time in seconds.
func (a *PhysicsAnimation) CurrentTime() float64 { return a.currentTime }

// FrameTimeInterval returns the length of one frame.
func (a *PhysicsAnimation) FrameTimeInterval() float64 {
	return a.currentFrame.TimeIntervalInSeconds
}

// SetFrameTimeInterval changes the length of subsequent frames.
func (a *PhysicsAnimation) SetFrameTimeInterval(dt float64) {
	a.currentFrame.TimeIntervalInSeconds = dt
}

func (a *PhysicsAnimation) IsUsingFixedSubTimeSteps() bool { return a.useFixedSubTimeSteps }

func (a *PhysicsAnimation) SetIsUsingFixedSubTimeSteps(fixed bool) {
	a.useFixedSubTimeSteps = fixed
}

// NumberOfFixedSubTimeSteps returns the sub-step count used in fixed mode.
func (a *PhysicsAnimation) NumberOfFixedSubTimeSteps() int { return a.numberOfSubTimeSteps }

// SetNumberOfSubTimeSteps sets the fixed-mode sub-step count, at least 1.
func (a *PhysicsAnimation) SetNumberOfSubTimeSteps(n int) {
	a.numberOfSubTimeSteps = max(n, 1)
}

func (a *PhysicsAnimation) MaxSubTimeSteps() int { return a.maxSubTimeSteps }

// SetMaxSubTimeSteps caps adaptive sub-stepping, at least 1.
func (a *PhysicsAnimation) SetMaxSubTimeSteps(n int) {
	a.maxSubTimeSteps = max(n, 1)
}

// SetLogger replaces the diagnostics logger. Nil discards output.
func (a *PhysicsAnimation) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	a.logger = l
}

// AdvanceFrame simulates every frame after the current one up to and
// including frameIndex. Indices at or before the current frame do nothing.
// When a frame fails, frames before it stay committed and the failing frame
// leaves the simulation untouched.
func (a *PhysicsAnimation) AdvanceFrame(frameIndex int) error {
	if frameIndex <= a.currentFrame.Index {
		return nil
	}
	if !a.initialized {
		a.stepper.Initialize()
		a.initialized = true
	}
	for a.currentFrame.Index < frameIndex {
		if err := a.advanceTimeStep(a.currentFrame.TimeIntervalInSeconds); err != nil {
			return &StepError{Frame: a.currentFrame.Index + 1, Time: a.currentTime, Err: err}
		}
		a.currentFrame.Advance()
	}
	return nil
}

// AdvanceSingleFrame simulates the frame after the current one.
func (a *PhysicsAnimation) AdvanceSingleFrame() error {
	return a.AdvanceFrame(a.currentFrame.Index + 1)
}

func (a *PhysicsAnimation) advanceTimeStep(frameDt float64) error {
	n := a.numberOfSubTimeSteps
	if !a.useFixedSubTimeSteps {
		var err error
		if n, err = a.stepper.NumberOfSubTimeSteps(frameDt); err != nil {
			return err
		}
		if n > a.maxSubTimeSteps {
			return fmt.Errorf("%w: %d sub-steps requested, limit is %d", ErrUnboundedSubstepping, n, a.maxSubTimeSteps)
		}
	}
	n = max(n, 1)

	dt := frameDt / float64(n)
	a.logger.Printf("frame %d: %d sub-steps of %gs", a.currentFrame.Index+1, n, dt)
	for i := 0; i < n; i++ {
		a.stepper.OnAdvanceTimeStep(dt)
		a.currentTime += dt
	}
	return nil
}

// subStepsForCfl converts a CFL number into a sub-step count,
// max(1, ceil(cfl/maxCfl)), saturating instead of overflowing.
func subStepsForCfl(cfl, maxCfl float64) (int, error) {
	if math.IsNaN(cfl) || math.IsInf(cfl, 0) {
		return 0, fmt.Errorf("%w: non-finite CFL number %g", ErrUnboundedSubstepping, cfl)
	}
	if math.IsNaN(maxCfl) || !(maxCfl > 0) {
		return 0, fmt.Errorf("%w: max CFL %g must be positive", ErrUnboundedSubstepping, maxCfl)
	}
	k := math.Ceil(cfl / maxCfl)
	if k >= math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return max(int(k), 1), nil
}
