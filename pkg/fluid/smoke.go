package fluid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// AddDensity adds amount to cell (i, j), ghost ring included.
func (s *GridSolver) AddDensity(i, j int, amount float64) {
	size := s.density.Size()
	if i < 0 || i >= size[0] {
		panic(fmt.Sprintf("invalid x-index: %d", i))
	}
	if j < 0 || j >= size[1] {
		panic(fmt.Sprintf("invalid y-index: %d", j))
	}
	*s.density.Ptr(i, j) += amount
}

// TotalDensity sums the density of the interior cells outside the collider.
func (s *GridSolver) TotalDensity() float64 {
	total := 0.0
	s.forEachFluidCell(func(i, j int) {
		total += s.density.At(i, j)
	})
	return total
}

// DensityRange returns the smallest and largest interior density.
func (s *GridSolver) DensityRange() (lo, hi float64) {
	return InteriorRange(s.density.GridData)
}

// InteriorRange returns the extrema of g without its outer ring.
func InteriorRange(g *GridData[float64]) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	forEachInteriorRow(g, func(row []float64) {
		lo = min(lo, floats.Min(row))
		hi = max(hi, floats.Max(row))
	})
	return lo, hi
}

// forEachInteriorRow calls fn with the contiguous j-run of every interior
// column i, skipping the outer ring.
func forEachInteriorRow(g *GridData[float64], fn func(row []float64)) {
	n := g.Size()
	if n[0] < 3 || n[1] < 3 {
		return
	}
	data := g.Data()
	for i := 1; i < n[0]-1; i++ {
		fn(data[i*n[1]+1 : i*n[1]+n[1]-1])
	}
}
