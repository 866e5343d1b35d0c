package fluid

import "math"

// Vorticity returns the curl of the velocity at every interior cell centre.
// Cells inside the collider read 0.
func (s *GridSolver) Vorticity() *ScalarGrid {
	out := NewCellCenteredScalarGrid(s.density.Size(), s.GridSpacing(), s.GridOrigin())
	s.forEachFluidCell(func(i, j int) {
		out.Set(i, j, s.velocity.CurlAtCellCenter(i, j))
	})
	return out
}

// VelocityMagnitude returns the speed at every interior cell centre.
func (s *GridSolver) VelocityMagnitude() *ScalarGrid {
	out := NewCellCenteredScalarGrid(s.density.Size(), s.GridSpacing(), s.GridOrigin())
	s.forEachFluidCell(func(i, j int) {
		out.Set(i, j, s.velocity.ValueAtCellCenter(i, j).Len())
	})
	return out
}

// MaxDivergence returns the largest |∇·u| over interior fluid cells.
func (s *GridSolver) MaxDivergence() float64 {
	maxDiv := 0.0
	s.forEachFluidCell(func(i, j int) {
		maxDiv = max(maxDiv, math.Abs(s.velocity.DivergenceAtCellCenter(i, j)))
	})
	return maxDiv
}

func (s *GridSolver) forEachFluidCell(fn func(i, j int)) {
	sdf := s.ColliderSdf()
	for i := 1; i <= s.size[0]; i++ {
		for j := 1; j <= s.size[1]; j++ {
			if sdf != nil && IsInsideSdf(sdf.At(i, j)) {
				continue
			}
			fn(i, j)
		}
	}
}
