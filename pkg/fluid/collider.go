package fluid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Collider is a solid obstacle immersed in the fluid. The solver calls Update
// once per sub-step before sampling its geometry.
type Collider interface {
	Update(currentTime, dt float64)
	// SignedDistance is negative inside the solid.
	SignedDistance(p mgl64.Vec2) float64
	// VelocityAt returns the velocity of the solid at p.
	VelocityAt(p mgl64.Vec2) mgl64.Vec2
}

// Surface is an implicit shape in local coordinates.
type Surface interface {
	SignedDistance(p mgl64.Vec2) float64
}

// Circle is a disc of the given radius.
type Circle struct {
	Center mgl64.Vec2
	Radius float64
}

func (c Circle) SignedDistance(p mgl64.Vec2) float64 {
	return p.Sub(c.Center).Len() - c.Radius
}

// Box is an axis-aligned rectangle.
type Box struct {
	Lower, Upper mgl64.Vec2
}

func (b Box) SignedDistance(p mgl64.Vec2) float64 {
	c := b.Lower.Add(b.Upper).Mul(0.5)
	half := b.Upper.Sub(b.Lower).Mul(0.5)
	qx := math.Abs(p[0]-c[0]) - half[0]
	qy := math.Abs(p[1]-c[1]) - half[1]
	outside := mgl64.Vec2{math.Max(qx, 0), math.Max(qy, 0)}.Len()
	return outside + math.Min(math.Max(qx, qy), 0)
}

// Union is the set union of its members.
type Union []Surface

func (u Union) SignedDistance(p mgl64.Vec2) float64 {
	d := math.MaxFloat64
	for _, s := range u {
		d = math.Min(d, s.SignedDistance(p))
	}
	return d
}

// RigidBodyCollider moves a Surface rigidly. Translation is integrated from
// LinearVelocity on every Update; AngularVelocity (radians per second, about
// Translation) only contributes to the surface velocity.
type RigidBodyCollider struct {
	Surface         Surface
	Translation     mgl64.Vec2
	LinearVelocity  mgl64.Vec2
	AngularVelocity float64

	// OnUpdate, when set, runs before the translation is integrated and may
	// change the velocities.
	OnUpdate func(c *RigidBodyCollider, currentTime, dt float64)
}

// NewRigidBodyCollider returns a static collider for s.
func NewRigidBodyCollider(s Surface) *RigidBodyCollider {
	return &RigidBodyCollider{Surface: s}
}

func (c *RigidBodyCollider) Update(currentTime, dt float64) {
	if c.OnUpdate != nil {
		c.OnUpdate(c, currentTime, dt)
	}
	c.Translation = c.Translation.Add(c.LinearVelocity.Mul(dt))
}

func (c *RigidBodyCollider) SignedDistance(p mgl64.Vec2) float64 {
	if c.Surface == nil {
		return math.MaxFloat64
	}
	return c.Surface.SignedDistance(p.Sub(c.Translation))
}

func (c *RigidBodyCollider) VelocityAt(p mgl64.Vec2) mgl64.Vec2 {
	r := p.Sub(c.Translation)
	return c.LinearVelocity.Add(mgl64.Vec2{-r[1], r[0]}.Mul(c.AngularVelocity))
}
