package fluid

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Face weights below this are treated as fully blocked.
const minFaceWeight = 1e-9

// FractionalSinglePhasePressureSolver projects a staggered velocity field onto
// its divergence-free part. Each face is weighted by the fraction of it that
// lies outside the collider, so partially covered faces carry proportionally
// less flux instead of snapping to solid or open.
type FractionalSinglePhasePressureSolver struct {
	Solver ConjugateGradientSolver

	closedDomainBoundaryFlag int
	system                   FdmLinearSystem
	uWeights, vWeights       *GridData[float64]
	fluid                    *GridData[uint8]
	pressure                 *ScalarGrid
}

// NewFractionalSinglePhasePressureSolver returns a solver for a closed box.
func NewFractionalSinglePhasePressureSolver() *FractionalSinglePhasePressureSolver {
	return &FractionalSinglePhasePressureSolver{
		Solver:                   DefaultConjugateGradientSolver(),
		closedDomainBoundaryFlag: DirectionAll,
	}
}

func (p *FractionalSinglePhasePressureSolver) SetClosedDomainBoundaryFlag(flag int) {
	p.closedDomainBoundaryFlag = flag
}

// Pressure returns the pressure of the last solve, one sample per cell. It is
// nil before the first solve.
func (p *FractionalSinglePhasePressureSolver) Pressure() *ScalarGrid { return p.pressure }

// UWeights returns the open fraction of every x-face from the last solve.
func (p *FractionalSinglePhasePressureSolver) UWeights() *GridData[float64] { return p.uWeights }

// VWeights returns the open fraction of every y-face from the last solve.
func (p *FractionalSinglePhasePressureSolver) VWeights() *GridData[float64] { return p.vWeights }

// Solve makes vel divergence free in place. boundarySdf and boundaryVelocity
// describe the collider, fluidSdf is negative where fluid is present.
func (p *FractionalSinglePhasePressureSolver) Solve(vel *FaceCenteredGrid, dt float64, boundarySdf, fluidSdf ScalarField, boundaryVelocity VectorField) SolverStats {
	p.buildWeights(vel, boundarySdf)
	p.buildMarkers(vel, fluidSdf)
	p.buildSystem(vel, boundaryVelocity)
	stats := p.Solver.Solve(&p.system)
	p.applyPressureGradient(vel, boundaryVelocity)

	if p.pressure == nil || p.pressure.Size() != vel.Size() {
		p.pressure = NewCellCenteredScalarGrid(vel.Size(), vel.GridSpacing(), vel.Origin())
	}
	scale := 1.0
	if dt > 0 {
		scale = 1 / dt
	}
	for n, x := range p.system.X.Data() {
		p.pressure.Data()[n] = x * scale
	}
	return stats
}

// isClosedFace reports whether face index i along axis lies on (or outside)
// a closed domain wall. n is the cell count along that axis, ghosts included.
func (p *FractionalSinglePhasePressureSolver) isClosedFace(axis, i, n int) bool {
	lowFlag, highFlag := DirectionLeft, DirectionRight
	if axis == 1 {
		lowFlag, highFlag = DirectionDown, DirectionUp
	}
	return (i <= 1 && p.closedDomainBoundaryFlag&lowFlag != 0) ||
		(i >= n-1 && p.closedDomainBoundaryFlag&highFlag != 0)
}

func (p *FractionalSinglePhasePressureSolver) buildWeights(vel *FaceCenteredGrid, boundarySdf ScalarField) {
	size := vel.Size()
	h := vel.GridSpacing()
	if p.uWeights == nil || p.uWeights.Size() != vel.U().Size() {
		p.uWeights = NewGridData[float64](vel.U().Size())
		p.vWeights = NewGridData[float64](vel.V().Size())
	}

	for axis, weights := range [2]*GridData[float64]{p.uWeights, p.vWeights} {
		g := vel.Component(axis)
		// Half extent of the face, perpendicular to axis.
		half := mgl64.Vec2{0, 0.5 * h[1]}
		if axis == 1 {
			half = mgl64.Vec2{0.5 * h[0], 0}
		}
		gs := g.Size()
		parallelRange(0, gs[0], func(i int) {
			for j := 0; j < gs[1]; j++ {
				idx := Index2{i, j}[axis]
				if p.isClosedFace(axis, idx, size[axis]) || idx == 0 || idx == size[axis] {
					weights.Set(i, j, 0)
					continue
				}
				pos := g.DataPosition(i, j)
				frac := FractionInsideSdf(boundarySdf.Sample(pos.Sub(half)), boundarySdf.Sample(pos.Add(half)))
				w := min(max(1-frac, 0), 1)
				if w < minFaceWeight {
					w = 0
				}
				weights.Set(i, j, w)
			}
		})
	}
}

func (p *FractionalSinglePhasePressureSolver) buildMarkers(vel *FaceCenteredGrid, fluidSdf ScalarField) {
	size := vel.Size()
	if p.fluid == nil || p.fluid.Size() != size {
		p.fluid = NewGridData[uint8](size)
	}
	for i := 0; i < size[0]; i++ {
		for j := 0; j < size[1]; j++ {
			interior := i > 0 && j > 0 && i < size[0]-1 && j < size[1]-1
			if interior && IsInsideSdf(fluidSdf.Sample(vel.CellCenterPosition(i, j))) {
				p.fluid.Set(i, j, 1)
			} else {
				p.fluid.Set(i, j, 0)
			}
		}
	}
}

func (p *FractionalSinglePhasePressureSolver) isFluid(i, j int) bool {
	return p.fluid.At(i, j) != 0
}

func (p *FractionalSinglePhasePressureSolver) buildSystem(vel *FaceCenteredGrid, boundaryVelocity VectorField) {
	size := vel.Size()
	h := vel.GridSpacing()
	invH := mgl64.Vec2{1 / h[0], 1 / h[1]}
	invH2 := mgl64.Vec2{invH[0] * invH[0], invH[1] * invH[1]}
	u, v := vel.U(), vel.V()
	p.system.Resize(size)

	parallelRange(0, size[0], func(i int) {
		for j := 0; j < size[1]; j++ {
			row := p.system.A.Ptr(i, j)
			if !p.isFluid(i, j) {
				row.Center = 1
				continue
			}

			wl, wr := p.uWeights.At(i, j), p.uWeights.At(i+1, j)
			wd, wu := p.vWeights.At(i, j), p.vWeights.At(i, j+1)

			// Blocked fractions of each face move with the collider;
			// closed domain walls do not move.
			ul := p.solidVelocity(boundaryVelocity, u, 0, i, j, size[0])
			ur := p.solidVelocity(boundaryVelocity, u, 0, i+1, j, size[0])
			vd := p.solidVelocity(boundaryVelocity, v, 1, i, j, size[1])
			vu := p.solidVelocity(boundaryVelocity, v, 1, i, j+1, size[1])

			div := (wr*u.At(i+1, j)+(1-wr)*ur-wl*u.At(i, j)-(1-wl)*ul)*invH[0] +
				(wu*v.At(i, j+1)+(1-wu)*vu-wd*v.At(i, j)-(1-wd)*vd)*invH[1]

			row.Center = (wl+wr)*invH2[0] + (wd+wu)*invH2[1]
			if p.isFluid(i+1, j) {
				row.Right = -wr * invH2[0]
			}
			if p.isFluid(i, j+1) {
				row.Up = -wu * invH2[1]
			}
			if row.Center == 0 {
				row.Center = 1
				continue
			}
			p.system.B.Set(i, j, -div)
		}
	})
}

func (p *FractionalSinglePhasePressureSolver) solidVelocity(boundaryVelocity VectorField, g *ScalarGrid, axis, i, j, n int) float64 {
	if p.isClosedFace(axis, Index2{i, j}[axis], n) {
		return 0
	}
	return boundaryVelocity.Sample(g.DataPosition(i, j))[axis]
}

func (p *FractionalSinglePhasePressureSolver) pressureAt(i, j int) float64 {
	if p.isFluid(i, j) {
		return p.system.X.At(i, j)
	}
	return 0
}

func (p *FractionalSinglePhasePressureSolver) applyPressureGradient(vel *FaceCenteredGrid, boundaryVelocity VectorField) {
	size := vel.Size()
	h := vel.GridSpacing()

	for axis, weights := range [2]*GridData[float64]{p.uWeights, p.vWeights} {
		g := vel.Component(axis)
		gs := g.Size()
		parallelRange(1, gs[0]-1, func(i int) {
			for j := 1; j < gs[1]-1; j++ {
				idx := Index2{i, j}[axis]
				if p.isClosedFace(axis, idx, size[axis]) {
					g.Set(i, j, 0)
					continue
				}
				lo := Index2{i, j}
				lo[axis]--
				if !p.isFluid(lo[0], lo[1]) && !p.isFluid(i, j) {
					continue
				}
				if weights.At(i, j) > 0 {
					grad := (p.pressureAt(i, j) - p.pressureAt(lo[0], lo[1])) / h[axis]
					g.Set(i, j, g.At(i, j)-grad)
				} else {
					g.Set(i, j, boundaryVelocity.Sample(g.DataPosition(i, j))[axis])
				}
			}
		})
	}
}
