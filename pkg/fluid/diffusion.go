package fluid

const (
	markerFluid uint8 = iota
	markerAir
	markerBoundary
)

// BackwardEulerDiffusionSolver performs implicit diffusion,
// (I - dt·μ·∇²) x = x₀, on grids of samples. Samples inside the boundary SDF
// are excluded with a zero-flux condition; samples outside the fluid SDF are
// held at zero; the outermost ring of samples is held at its current value.
type BackwardEulerDiffusionSolver struct {
	Solver ConjugateGradientSolver

	system  FdmLinearSystem
	markers *GridData[uint8]
}

// NewBackwardEulerDiffusionSolver returns a solver using the default CG settings.
func NewBackwardEulerDiffusionSolver() *BackwardEulerDiffusionSolver {
	return &BackwardEulerDiffusionSolver{Solver: DefaultConjugateGradientSolver()}
}

// Solve diffuses both components of vel in place and returns the stats of the
// component that needed more iterations.
func (d *BackwardEulerDiffusionSolver) Solve(vel *FaceCenteredGrid, coefficient, dt float64, boundarySdf, fluidSdf ScalarField) SolverStats {
	su := d.SolveScalar(vel.U(), coefficient, dt, boundarySdf, fluidSdf)
	sv := d.SolveScalar(vel.V(), coefficient, dt, boundarySdf, fluidSdf)
	if sv.Iterations > su.Iterations || !sv.Converged {
		return sv
	}
	return su
}

// SolveScalar diffuses grid in place.
func (d *BackwardEulerDiffusionSolver) SolveScalar(grid *ScalarGrid, coefficient, dt float64, boundarySdf, fluidSdf ScalarField) SolverStats {
	if coefficient <= 0 || dt <= 0 {
		return SolverStats{Converged: true}
	}
	d.buildMarkers(grid, boundarySdf, fluidSdf)
	d.buildSystem(grid, coefficient, dt)
	stats := d.Solver.Solve(&d.system)
	grid.CopyFrom(d.system.X)
	return stats
}

func (d *BackwardEulerDiffusionSolver) buildMarkers(grid *ScalarGrid, boundarySdf, fluidSdf ScalarField) {
	size := grid.Size()
	if d.markers == nil || d.markers.Size() != size {
		d.markers = NewGridData[uint8](size)
	}
	parallelRange(0, size[0], func(i int) {
		for j := 0; j < size[1]; j++ {
			pos := grid.DataPosition(i, j)
			switch {
			case IsInsideSdf(boundarySdf.Sample(pos)):
				d.markers.Set(i, j, markerBoundary)
			case IsInsideSdf(fluidSdf.Sample(pos)):
				d.markers.Set(i, j, markerFluid)
			default:
				d.markers.Set(i, j, markerAir)
			}
		}
	})
}

func (d *BackwardEulerDiffusionSolver) isActive(i, j int) bool {
	size := d.markers.Size()
	return i > 0 && j > 0 && i < size[0]-1 && j < size[1]-1 && d.markers.At(i, j) == markerFluid
}

func (d *BackwardEulerDiffusionSolver) buildSystem(grid *ScalarGrid, coefficient, dt float64) {
	size := grid.Size()
	d.system.Resize(size)
	d.system.X.CopyFrom(grid.GridData)

	h := grid.Spacing()
	c := [2]float64{coefficient * dt / (h[0] * h[0]), coefficient * dt / (h[1] * h[1])}

	parallelRange(0, size[0], func(i int) {
		for j := 0; j < size[1]; j++ {
			row := d.system.A.Ptr(i, j)
			b := grid.At(i, j)
			if !d.isActive(i, j) {
				row.Center = 1
				d.system.B.Set(i, j, b)
				continue
			}

			row.Center = 1
			for _, o := range neighborOffsets {
				ni, nj := i+o[0], j+o[1]
				axis := 0
				if o[1] != 0 {
					axis = 1
				}
				switch d.markers.At(ni, nj) {
				case markerBoundary:
					continue
				case markerAir:
					row.Center += c[axis]
					continue
				}
				row.Center += c[axis]
				switch {
				case !d.isActive(ni, nj):
					b += c[axis] * grid.At(ni, nj)
				case o == Index2{1, 0}:
					row.Right = -c[axis]
				case o == Index2{0, 1}:
					row.Up = -c[axis]
				}
			}
			d.system.B.Set(i, j, b)
		}
	})
}
