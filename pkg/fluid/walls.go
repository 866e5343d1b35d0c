package fluid

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// IsSolid reports whether the centre of cell (i, j) lies inside the collider.
func (s *GridSolver) IsSolid(i, j int) bool {
	size := s.density.Size()
	if i < 0 || i >= size[0] {
		panic(fmt.Sprintf("invalid x-index: %d", i))
	}
	if j < 0 || j >= size[1] {
		panic(fmt.Sprintf("invalid y-index: %d", j))
	}
	if s.collider == nil {
		return false
	}
	return IsInsideSdf(s.collider.SignedDistance(s.density.DataPosition(i, j)))
}

// SetCircularObstacle replaces the collider with a static circle and returns
// it so callers can move it.
func (s *GridSolver) SetCircularObstacle(center mgl64.Vec2, radius float64) *RigidBodyCollider {
	c := NewRigidBodyCollider(Circle{Center: center, Radius: radius})
	s.SetCollider(c)
	return c
}

// SetBoxObstacle replaces the collider with a static axis-aligned box.
func (s *GridSolver) SetBoxObstacle(lower, upper mgl64.Vec2) *RigidBodyCollider {
	c := NewRigidBodyCollider(Box{Lower: lower, Upper: upper})
	s.SetCollider(c)
	return c
}
