package fluid

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SetVelocity sets the left x-face and bottom y-face of cell (i, j).
func (s *GridSolver) SetVelocity(i, j int, u, v float64) {
	size := s.velocity.Size()
	if i < 0 || i >= size[0] {
		panic(fmt.Sprintf("invalid x-index: %d", i))
	}
	if j < 0 || j >= size[1] {
		panic(fmt.Sprintf("invalid y-index: %d", j))
	}
	s.velocity.U().Set(i, j, u)
	s.velocity.V().Set(i, j, v)
}

// SampleVelocity interpolates the velocity at a world position.
func (s *GridSolver) SampleVelocity(p mgl64.Vec2) mgl64.Vec2 {
	return s.velocity.Sample(p)
}

// ApplyForce adds (fx, fy) to the left and bottom faces of interior cell
// (i, j). Cells outside the interior or inside the collider are ignored.
func (s *GridSolver) ApplyForce(i, j int, fx, fy float64) {
	if i < 1 || i > s.size[0] || j < 1 || j > s.size[1] {
		return
	}
	if s.IsSolid(i, j) {
		return
	}
	*s.velocity.U().Ptr(i, j) += fx
	*s.velocity.V().Ptr(i, j) += fy
}

// ApplyForceRadius applies a force with Gaussian falloff to every cell within
// radius cells of (cx, cy).
func (s *GridSolver) ApplyForceRadius(cx, cy int, fx, fy float64, radius int) {
	if radius <= 0 {
		s.ApplyForce(cx, cy, fx, fy)
		return
	}
	r2 := float64(radius * radius)
	for i := cx - radius; i <= cx+radius; i++ {
		for j := cy - radius; j <= cy+radius; j++ {
			dx := float64(i - cx)
			dy := float64(j - cy)
			dist2 := dx*dx + dy*dy
			if dist2 > r2 {
				continue
			}
			// exp(-3 d²/r²) leaves about 5% at the edge
			w := math.Exp(-3 * dist2 / r2)
			s.ApplyForce(i, j, fx*w, fy*w)
		}
	}
}
