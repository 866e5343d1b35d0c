package fluid

import (
	"fmt"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// StepHook is called at the beginning or end of every sub-step.
type StepHook func(s *GridSolver, dt float64)

// Config holds the construction parameters of a GridSolver. Resolution,
// spacing and origin are fixed for the solver's lifetime; everything else can
// be changed later through setters.
type Config struct {
	// Size is the number of interior cells per axis. One ghost cell is added
	// on every side.
	Size    Index2
	Spacing mgl64.Vec2
	// Origin is the lower-left corner of the interior domain.
	Origin mgl64.Vec2

	Gravity                     mgl64.Vec2
	ViscosityCoefficient        float64
	DensityDiffusionCoefficient float64
	VorticityConfinement        float64
	MaxCfl                      float64
	ClosedDomainBoundaryFlag    int

	// Fixed sub-stepping is used when UseFixedSubTimeSteps is set; otherwise
	// the sub-step count follows the CFL number, capped at MaxSubTimeSteps.
	UseFixedSubTimeSteps   bool
	NumberOfSubTimeSteps   int
	MaxSubTimeSteps        int
	FrameTimeIntervalInSec float64

	OnBeginAdvanceTimeStep StepHook
	OnEndAdvanceTimeStep   StepHook

	// Logger receives solver diagnostics. Nil discards them.
	Logger *log.Logger
}

// DefaultConfig returns an n×n grid of the given spacing at the origin.
func DefaultConfig(n int, spacing float64) Config {
	return Config{
		Size:                     Index2{n, n},
		Spacing:                  mgl64.Vec2{spacing, spacing},
		Gravity:                  mgl64.Vec2{0, -9.8},
		MaxCfl:                   5,
		ClosedDomainBoundaryFlag: DirectionAll,
		NumberOfSubTimeSteps:     1,
		MaxSubTimeSteps:          DefaultMaxSubTimeSteps,
		FrameTimeIntervalInSec:   DefaultFrameTimeInterval,
	}
}

// Validate reports resolutions and spacings that cannot form a grid.
func (c Config) Validate() error {
	if c.Size[0] <= 0 || c.Size[1] <= 0 {
		return fmt.Errorf("%w: resolution %dx%d must be positive", ErrInvalidConfiguration, c.Size[0], c.Size[1])
	}
	if !(c.Spacing[0] > 0) || !(c.Spacing[1] > 0) || math.IsInf(c.Spacing[0], 0) || math.IsInf(c.Spacing[1], 0) {
		return fmt.Errorf("%w: spacing (%g, %g) must be positive and finite", ErrInvalidConfiguration, c.Spacing[0], c.Spacing[1])
	}
	if c.FrameTimeIntervalInSec < 0 {
		return fmt.Errorf("%w: negative frame interval %g", ErrInvalidConfiguration, c.FrameTimeIntervalInSec)
	}
	return nil
}
