package fluid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Domain faces that can be closed, combined as a bit mask.
const (
	DirectionLeft = 1 << iota
	DirectionRight
	DirectionDown
	DirectionUp

	DirectionNone = 0
	DirectionAll  = DirectionLeft | DirectionRight | DirectionDown | DirectionUp
)

// FractionalBoundaryConditionSolver keeps a gridded copy of the collider
// geometry and enforces solid and domain boundary conditions on velocity.
type FractionalBoundaryConditionSolver struct {
	closedDomainBoundaryFlag int

	colliderSdf *ScalarGrid
	colliderVel *FaceCenteredGrid
	markers     [2]*GridData[uint8]
}

// NewFractionalBoundaryConditionSolver returns a solver for a closed box.
func NewFractionalBoundaryConditionSolver() *FractionalBoundaryConditionSolver {
	return &FractionalBoundaryConditionSolver{closedDomainBoundaryFlag: DirectionAll}
}

func (b *FractionalBoundaryConditionSolver) ClosedDomainBoundaryFlag() int {
	return b.closedDomainBoundaryFlag
}

func (b *FractionalBoundaryConditionSolver) SetClosedDomainBoundaryFlag(flag int) {
	b.closedDomainBoundaryFlag = flag
}

// ColliderSdf returns the collider distance sampled at cell centres. It reads
// as "far outside" everywhere when no collider is set.
func (b *FractionalBoundaryConditionSolver) ColliderSdf() *ScalarGrid { return b.colliderSdf }

// ColliderVelocityField returns the collider velocity sampled at faces.
func (b *FractionalBoundaryConditionSolver) ColliderVelocityField() *FaceCenteredGrid {
	return b.colliderVel
}

// UpdateCollider resamples the collider onto a grid of size cells. collider is
// only read during the call.
func (b *FractionalBoundaryConditionSolver) UpdateCollider(collider Collider, size Index2, spacing, origin mgl64.Vec2) {
	if b.colliderSdf == nil || b.colliderSdf.Size() != size ||
		b.colliderSdf.Spacing() != spacing || b.colliderSdf.Origin() != origin {
		b.colliderSdf = NewCellCenteredScalarGrid(size, spacing, origin)
		b.colliderVel = NewFaceCenteredGrid(size, spacing, origin)
	}
	if collider == nil {
		b.colliderSdf.Fill(math.MaxFloat64)
		b.colliderVel.Fill(mgl64.Vec2{})
		return
	}
	b.colliderSdf.FillFrom(ScalarFieldFunc(collider.SignedDistance))
	b.colliderVel.FillFrom(VectorFieldFunc(collider.VelocityAt))
}

// ConstrainVelocity extrapolates vel into the collider up to depth cells,
// removes the normal component of the velocity relative to the collider on
// faces inside it, and applies the domain boundary conditions.
func (b *FractionalBoundaryConditionSolver) ConstrainVelocity(vel *FaceCenteredGrid, depth int) {
	if b.colliderSdf != nil {
		b.constrainAgainstCollider(vel, depth)
	}
	b.applyDomainBoundary(vel)
}

func (b *FractionalBoundaryConditionSolver) constrainAgainstCollider(vel *FaceCenteredGrid, depth int) {
	anySolid := false
	for axis := 0; axis < 2; axis++ {
		g := vel.Component(axis)
		if b.markers[axis] == nil || b.markers[axis].Size() != g.Size() {
			b.markers[axis] = NewGridData[uint8](g.Size())
		}
		m := b.markers[axis]
		solid := false
		gs := g.Size()
		for i := 0; i < gs[0]; i++ {
			for j := 0; j < gs[1]; j++ {
				if IsInsideSdf(b.colliderSdf.Sample(g.DataPosition(i, j))) {
					m.Set(i, j, 0)
					solid = true
				} else {
					m.Set(i, j, 1)
				}
			}
		}
		if !solid {
			continue
		}
		anySolid = true
		ExtrapolateToRegion(g.GridData, m, depth, g.GridData)
	}
	if !anySolid {
		return
	}

	// Project against a snapshot so both components see the same field.
	extrapolated := vel.Clone()
	for axis := 0; axis < 2; axis++ {
		g := vel.Component(axis)
		m := b.markers[axis]
		gs := g.Size()
		parallelRange(0, gs[0], func(i int) {
			for j := 0; j < gs[1]; j++ {
				if m.At(i, j) != 0 {
					continue
				}
				pos := g.DataPosition(i, j)
				colliderVel := b.colliderVel.Sample(pos)
				normal := b.colliderSdf.Gradient(pos)
				if normal.Len() == 0 {
					g.Set(i, j, colliderVel[axis])
					continue
				}
				normal = normal.Normalize()
				relative := extrapolated.Sample(pos).Sub(colliderVel)
				tangential := relative.Sub(normal.Mul(relative.Dot(normal)))
				g.Set(i, j, tangential.Add(colliderVel)[axis])
			}
		})
	}
}

// applyDomainBoundary zeroes the normal velocity on closed domain faces and
// their outer ghosts, and copies the adjacent face elsewhere on the ghost ring.
func (b *FractionalBoundaryConditionSolver) applyDomainBoundary(vel *FaceCenteredGrid) {
	u, v := vel.U(), vel.V()
	us, vs := u.Size(), v.Size()
	flag := b.closedDomainBoundaryFlag

	for j := 0; j < us[1]; j++ {
		if flag&DirectionLeft != 0 {
			u.Set(0, j, 0)
			u.Set(1, j, 0)
		} else {
			u.Set(0, j, u.At(1, j))
		}
		if flag&DirectionRight != 0 {
			u.Set(us[0]-1, j, 0)
			u.Set(us[0]-2, j, 0)
		} else {
			u.Set(us[0]-1, j, u.At(us[0]-2, j))
		}
	}
	for i := 0; i < us[0]; i++ {
		u.Set(i, 0, u.At(i, 1))
		u.Set(i, us[1]-1, u.At(i, us[1]-2))
	}

	for i := 0; i < vs[0]; i++ {
		if flag&DirectionDown != 0 {
			v.Set(i, 0, 0)
			v.Set(i, 1, 0)
		} else {
			v.Set(i, 0, v.At(i, 1))
		}
		if flag&DirectionUp != 0 {
			v.Set(i, vs[1]-1, 0)
			v.Set(i, vs[1]-2, 0)
		} else {
			v.Set(i, vs[1]-1, v.At(i, vs[1]-2))
		}
	}
	for j := 0; j < vs[1]; j++ {
		v.Set(0, j, v.At(1, j))
		v.Set(vs[0]-1, j, v.At(vs[0]-2, j))
	}
}

// ApplyDensityBoundaryCondition sets every edge ghost of an (nx+2)×(ny+2)
// cell grid to its interior neighbour and every ghost corner to the average
// of its two adjacent edge ghosts.
func ApplyDensityBoundaryCondition(d *GridData[float64]) {
	size := d.Size()
	nx, ny := size[0]-2, size[1]-2
	for j := 1; j <= ny; j++ {
		d.Set(0, j, d.At(1, j))
		d.Set(nx+1, j, d.At(nx, j))
	}
	for i := 1; i <= nx; i++ {
		d.Set(i, 0, d.At(i, 1))
		d.Set(i, ny+1, d.At(i, ny))
	}
	d.Set(0, 0, 0.5*(d.At(1, 0)+d.At(0, 1)))
	d.Set(0, ny+1, 0.5*(d.At(1, ny+1)+d.At(0, ny)))
	d.Set(nx+1, 0, 0.5*(d.At(nx, 0)+d.At(nx+1, 1)))
	d.Set(nx+1, ny+1, 0.5*(d.At(nx, ny+1)+d.At(nx+1, ny)))
}
