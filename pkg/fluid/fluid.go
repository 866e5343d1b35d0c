package fluid

import (
	"io"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats"
)

// smallestNormal is the lower bound for the maximum CFL number.
const smallestNormal = 0x1p-1022

// GridSolver advances a smoke simulation on a staggered grid with one ghost
// cell on every side: U is (N+3)×(N+2), V is (N+2)×(N+3) and the density is
// (N+2)×(N+2), all with origin at the domain origin minus one spacing.
//
// A GridSolver is driven by its embedded PhysicsAnimation and is not safe for
// concurrent use.
type GridSolver struct {
	*PhysicsAnimation

	size Index2

	gravity              mgl64.Vec2
	viscosityCoefficient float64
	densityDiffusion     float64
	confinement          float64
	maxCfl               float64
	closedDomainFlag     int

	velocity *FaceCenteredGrid
	density  *ScalarGrid

	// scratch copies read by advection
	velocityPrev *FaceCenteredGrid
	densityPrev  *ScalarGrid

	collider Collider
	emitter  Emitter
	fluidSdf ConstantScalarField

	diffusionSolver *BackwardEulerDiffusionSolver
	pressureSolver  *FractionalSinglePhasePressureSolver
	boundarySolver  *FractionalBoundaryConditionSolver

	onBegin StepHook
	onEnd   StepHook

	logger *log.Logger
}

// NewGridSolver allocates a solver with zero velocity and density.
func NewGridSolver(cfg Config) (*GridSolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	total := cfg.Size.Add(Index2{2, 2})
	origin := cfg.Origin.Sub(cfg.Spacing)
	s := &GridSolver{
		size:            cfg.Size,
		velocity:        NewFaceCenteredGrid(total, cfg.Spacing, origin),
		density:         NewCellCenteredScalarGrid(total, cfg.Spacing, origin),
		velocityPrev:    NewFaceCenteredGrid(total, cfg.Spacing, origin),
		densityPrev:     NewCellCenteredScalarGrid(total, cfg.Spacing, origin),
		fluidSdf:        ConstantScalarField(-math.MaxFloat64),
		diffusionSolver: NewBackwardEulerDiffusionSolver(),
		pressureSolver:  NewFractionalSinglePhasePressureSolver(),
		boundarySolver:  NewFractionalBoundaryConditionSolver(),
		onBegin:         cfg.OnBeginAdvanceTimeStep,
		onEnd:           cfg.OnEndAdvanceTimeStep,
	}
	s.PhysicsAnimation = NewPhysicsAnimation(s)

	s.SetGravity(cfg.Gravity)
	s.SetViscosityCoefficient(cfg.ViscosityCoefficient)
	s.SetDensityDiffusionCoefficient(cfg.DensityDiffusionCoefficient)
	s.SetVorticityConfinement(cfg.VorticityConfinement)
	s.SetMaxCfl(cfg.MaxCfl)
	s.SetClosedDomainBoundaryFlag(cfg.ClosedDomainBoundaryFlag)
	s.SetLogger(cfg.Logger)

	s.SetIsUsingFixedSubTimeSteps(cfg.UseFixedSubTimeSteps)
	s.SetNumberOfSubTimeSteps(cfg.NumberOfSubTimeSteps)
	if cfg.MaxSubTimeSteps > 0 {
		s.SetMaxSubTimeSteps(cfg.MaxSubTimeSteps)
	}
	if cfg.FrameTimeIntervalInSec > 0 {
		s.SetFrameTimeInterval(cfg.FrameTimeIntervalInSec)
	}
	s.boundarySolver.UpdateCollider(nil, s.velocity.Size(), s.velocity.GridSpacing(), s.velocity.Origin())
	return s, nil
}

// Size returns the interior resolution.
func (s *GridSolver) Size() Index2 { return s.size }

func (s *GridSolver) GridSpacing() mgl64.Vec2 { return s.velocity.GridSpacing() }

// GridOrigin returns the lower-left corner of the ghost ring.
func (s *GridSolver) GridOrigin() mgl64.Vec2 { return s.velocity.Origin() }

// Velocity returns the live velocity field.
func (s *GridSolver) Velocity() *FaceCenteredGrid { return s.velocity }

// Density returns the live density field.
func (s *GridSolver) Density() *ScalarGrid { return s.density }

func (s *GridSolver) Gravity() mgl64.Vec2 { return s.gravity }

func (s *GridSolver) SetGravity(g mgl64.Vec2) { s.gravity = g }

func (s *GridSolver) ViscosityCoefficient() float64 { return s.viscosityCoefficient }

// SetViscosityCoefficient sets the kinematic viscosity, clamped to be
// non-negative.
func (s *GridSolver) SetViscosityCoefficient(mu float64) {
	s.viscosityCoefficient = nonNegative(mu)
}

func (s *GridSolver) DensityDiffusionCoefficient() float64 { return s.densityDiffusion }

// SetDensityDiffusionCoefficient sets the smoke diffusion rate, clamped to be
// non-negative.
func (s *GridSolver) SetDensityDiffusionCoefficient(k float64) {
	s.densityDiffusion = nonNegative(k)
}

func (s *GridSolver) VorticityConfinement() float64 { return s.confinement }

// SetVorticityConfinement sets the confinement strength. 0 disables it.
func (s *GridSolver) SetVorticityConfinement(eps float64) {
	s.confinement = nonNegative(eps)
}

func (s *GridSolver) MaxCfl() float64 { return s.maxCfl }

// SetMaxCfl sets the CFL number one sub-step may reach, clamped to the
// smallest positive normal float. NaN selects the clamp bound.
func (s *GridSolver) SetMaxCfl(cfl float64) {
	if math.IsNaN(cfl) || cfl < smallestNormal {
		cfl = smallestNormal
	}
	s.maxCfl = cfl
}

// nonNegative clamps x to [0, +Inf], mapping NaN to 0.
func nonNegative(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	return x
}

func (s *GridSolver) ClosedDomainBoundaryFlag() int { return s.closedDomainFlag }

// SetClosedDomainBoundaryFlag selects which domain sides are walls.
func (s *GridSolver) SetClosedDomainBoundaryFlag(flag int) {
	s.closedDomainFlag = flag & DirectionAll
	s.boundarySolver.SetClosedDomainBoundaryFlag(s.closedDomainFlag)
	s.pressureSolver.SetClosedDomainBoundaryFlag(s.closedDomainFlag)
}

func (s *GridSolver) Collider() Collider { return s.collider }

// SetCollider replaces the obstacle. Nil removes it.
func (s *GridSolver) SetCollider(c Collider) { s.collider = c }

func (s *GridSolver) Emitter() Emitter { return s.emitter }

// SetEmitter replaces the smoke source. Nil removes it.
func (s *GridSolver) SetEmitter(e Emitter) { s.emitter = e }

// ColliderSdf returns the collider distance sampled at cell centres. It is
// refreshed at the start of every sub-step and reads +MaxFloat64 everywhere
// until then.
func (s *GridSolver) ColliderSdf() *ScalarGrid { return s.boundarySolver.ColliderSdf() }

// Pressure returns the pressure of the last projection.
func (s *GridSolver) Pressure() *ScalarGrid { return s.pressureSolver.Pressure() }

// SetLogger replaces the diagnostics logger. Nil discards output.
func (s *GridSolver) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	s.logger = l
	s.PhysicsAnimation.SetLogger(l)
}

// Reset zeroes velocity, density and pressure. Time and frame are kept.
func (s *GridSolver) Reset() {
	s.velocity.Fill(mgl64.Vec2{})
	s.density.Fill(0)
	if p := s.pressureSolver.Pressure(); p != nil {
		p.Fill(0)
	}
}

// Cfl returns the largest distance, in cells, any cell-centre velocity
// (with gravity applied over dt) travels in dt.
func (s *GridSolver) Cfl(dt float64) (float64, error) {
	h := s.velocity.GridSpacing()
	minH := min(h[0], h[1])
	if !(minH > 0) {
		return 0, ErrDegenerateField
	}

	g := s.gravity.Mul(dt)
	size := s.velocity.Size()
	maxVel := 0.0
	for i := 0; i < size[0]; i++ {
		for j := 0; j < size[1]; j++ {
			v := s.velocity.ValueAtCellCenter(i, j).Add(g)
			maxVel = max(maxVel, v.Len())
		}
	}
	return maxVel * dt / minH, nil
}

// Initialize samples the collider before the first step.
func (s *GridSolver) Initialize() {
	s.updateCollider(0)
	s.updateEmitter(0)
}

// NumberOfSubTimeSteps returns max(1, ceil(cfl/maxCfl)) for a frame of dt.
func (s *GridSolver) NumberOfSubTimeSteps(dt float64) (int, error) {
	cfl, err := s.Cfl(dt)
	if err != nil {
		return 0, err
	}
	return subStepsForCfl(cfl, s.maxCfl)
}

// OnAdvanceTimeStep runs one sub-step of length dt.
func (s *GridSolver) OnAdvanceTimeStep(dt float64) {
	s.beginAdvanceTimeStep(dt)

	s.computeSource(dt)
	s.computeDensityDiffusion(dt)
	s.advectDensity(dt)

	s.computeExternalForces(dt)
	s.computeViscosity(dt)
	s.computePressure(dt)
	s.advectVelocity(dt)

	s.endAdvanceTimeStep(dt)
}

func (s *GridSolver) beginAdvanceTimeStep(dt float64) {
	s.updateCollider(dt)
	s.updateEmitter(dt)
	s.ApplyBoundaryCondition()
	if s.onBegin != nil {
		s.onBegin(s, dt)
	}
}

func (s *GridSolver) endAdvanceTimeStep(dt float64) {
	if s.onEnd != nil {
		s.onEnd(s, dt)
	}
}

func (s *GridSolver) updateCollider(dt float64) {
	if s.collider != nil {
		s.collider.Update(s.CurrentTime(), dt)
	}
	s.boundarySolver.UpdateCollider(s.collider, s.velocity.Size(), s.velocity.GridSpacing(), s.velocity.Origin())
}

func (s *GridSolver) updateEmitter(dt float64) {
	if s.emitter != nil {
		s.emitter.Update(s.CurrentTime(), dt)
	}
}

// ApplyBoundaryCondition constrains the velocity against the collider and the
// domain walls and mirrors density into the ghost ring.
func (s *GridSolver) ApplyBoundaryCondition() {
	s.boundarySolver.ConstrainVelocity(s.velocity, s.extrapolationDepth())
	ApplyDensityBoundaryCondition(s.density.GridData)
}

func (s *GridSolver) extrapolationDepth() int {
	depth := math.Ceil(s.maxCfl)
	if depth >= math.MaxInt32 {
		return math.MaxInt32
	}
	return max(int(depth), 1)
}

func (s *GridSolver) computeSource(dt float64) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(s.density, s.velocity, dt)
	s.ApplyBoundaryCondition()
}

func (s *GridSolver) computeDensityDiffusion(dt float64) {
	if s.densityDiffusion <= 0 {
		return
	}
	stats := s.diffusionSolver.SolveScalar(s.density, s.densityDiffusion, dt, s.ColliderSdf(), s.fluidSdf)
	s.logSolve("density diffusion", stats)
	s.ApplyBoundaryCondition()
}

func (s *GridSolver) computeExternalForces(dt float64) {
	s.computeGravity(dt)
	s.computeVorticityConfinement(dt)
}

func (s *GridSolver) computeGravity(dt float64) {
	if s.gravity.LenSqr() <= smallestNormal {
		return
	}
	for axis := 0; axis < 2; axis++ {
		if s.gravity[axis] != 0 {
			floats.AddConst(dt*s.gravity[axis], s.velocity.Component(axis).Data())
		}
	}
	s.ApplyBoundaryCondition()
}

func (s *GridSolver) computeViscosity(dt float64) {
	if s.viscosityCoefficient <= 0 {
		return
	}
	stats := s.diffusionSolver.Solve(s.velocity, s.viscosityCoefficient, dt, s.ColliderSdf(), s.fluidSdf)
	s.logSolve("viscosity", stats)
	s.ApplyBoundaryCondition()
}

func (s *GridSolver) computePressure(dt float64) {
	stats := s.pressureSolver.Solve(s.velocity, dt, s.ColliderSdf(), s.fluidSdf, s.boundarySolver.ColliderVelocityField())
	s.logSolve("pressure", stats)
	s.ApplyBoundaryCondition()
}

func (s *GridSolver) logSolve(phase string, stats SolverStats) {
	if !stats.Converged {
		s.logger.Printf("%s: linear solve stopped after %d iterations, residual %g", phase, stats.Iterations, stats.Residual)
	}
}

// clampToDomain keeps back-traced points at least one cell inside the bounds.
func (s *GridSolver) clampToDomain(p mgl64.Vec2) mgl64.Vec2 {
	lo, hi := s.velocity.Bounds()
	h := s.velocity.GridSpacing()
	return mgl64.Vec2{
		mgl64.Clamp(p[0], lo[0]+h[0], hi[0]-h[0]),
		mgl64.Clamp(p[1], lo[1]+h[1], hi[1]-h[1]),
	}
}

func (s *GridSolver) advectDensity(dt float64) {
	s.extrapolateDensityIntoCollider()
	s.densityPrev.CopyFrom(s.density.GridData)

	size := s.density.Size()
	parallelRange(1, size[0]-1, func(i int) {
		for j := 1; j < size[1]-1; j++ {
			vel := s.velocity.ValueAtCellCenter(i, j)
			p := s.clampToDomain(s.density.DataPosition(i, j).Sub(vel.Mul(dt)))
			s.density.Set(i, j, s.densityPrev.Sample(p))
		}
	})
	s.ApplyBoundaryCondition()
}

// extrapolateDensityIntoCollider fills cells inside the collider with values
// from nearby fluid cells so traces ending in the solid read the surface.
func (s *GridSolver) extrapolateDensityIntoCollider() {
	if s.collider == nil {
		return
	}
	sdf := s.ColliderSdf()
	valid := NewGridData[uint8](s.density.Size())
	anySolid := false
	for n, phi := range sdf.Data() {
		if IsInsideSdf(phi) {
			anySolid = true
		} else {
			valid.Data()[n] = 1
		}
	}
	if anySolid {
		ExtrapolateToRegion(s.density.GridData, valid, s.extrapolationDepth(), s.density.GridData)
	}
}

func (s *GridSolver) advectVelocity(dt float64) {
	s.velocityPrev.CopyFrom(s.velocity)

	for axis := 0; axis < 2; axis++ {
		dst := s.velocity.Component(axis)
		src := s.velocityPrev.Component(axis)
		size := dst.Size()
		parallelRange(1, size[0]-1, func(i int) {
			for j := 1; j < size[1]-1; j++ {
				pos := dst.DataPosition(i, j)
				vel := s.velocityPrev.Sample(pos)
				p := s.clampToDomain(pos.Sub(vel.Mul(dt)))
				dst.Set(i, j, src.Sample(p))
			}
		})
	}
	s.ApplyBoundaryCondition()
}

// computeVorticityConfinement pushes velocity along N × ω, where N points up
// the gradient of |ω|.
func (s *GridSolver) computeVorticityConfinement(dt float64) {
	if s.confinement <= 0 {
		return
	}
	size := s.velocity.Size()
	h := s.velocity.GridSpacing()
	sdf := s.ColliderSdf()

	curl := NewGridData[float64](size)
	for i := 1; i < size[0]-1; i++ {
		for j := 1; j < size[1]-1; j++ {
			curl.Set(i, j, s.velocity.CurlAtCellCenter(i, j))
		}
	}

	const eps = 1e-5
	u, v := s.velocity.U(), s.velocity.V()
	for i := 2; i < size[0]-2; i++ {
		for j := 2; j < size[1]-2; j++ {
			if sdf != nil && IsInsideSdf(sdf.At(i, j)) {
				continue
			}
			gx := (math.Abs(curl.At(i+1, j)) - math.Abs(curl.At(i-1, j))) * 0.5 / h[0]
			gy := (math.Abs(curl.At(i, j+1)) - math.Abs(curl.At(i, j-1))) * 0.5 / h[1]
			mag := math.Hypot(gx, gy) + eps
			gx /= mag
			gy /= mag

			w := curl.At(i, j)
			fx := s.confinement * h[0] * gy * w * dt * 0.5
			fy := -s.confinement * h[1] * gx * w * dt * 0.5
			*u.Ptr(i, j) += fx
			*u.Ptr(i+1, j) += fx
			*v.Ptr(i, j) += fy
			*v.Ptr(i, j+1) += fy
		}
	}
	s.ApplyBoundaryCondition()
}
