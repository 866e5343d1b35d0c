package fluid

import "github.com/go-gl/mathgl/mgl64"

// Emitter injects smoke into the solver during the source phase.
type Emitter interface {
	Update(currentTime, dt float64)
	Emit(density *ScalarGrid, velocity *FaceCenteredGrid, dt float64)
}

// VolumeEmitter adds density at Rate per second inside Surface and, when
// SetsVelocity is true, overwrites the velocity of faces inside it.
type VolumeEmitter struct {
	Surface      Surface
	Rate         float64
	MaxDensity   float64 // 0 disables the cap
	Velocity     mgl64.Vec2
	SetsVelocity bool
	IsOneShot    bool

	active bool
}

// NewVolumeEmitter returns an enabled emitter.
func NewVolumeEmitter(s Surface, rate float64) *VolumeEmitter {
	return &VolumeEmitter{Surface: s, Rate: rate, active: true}
}

// IsActive reports whether the emitter will emit on the next source phase.
func (e *VolumeEmitter) IsActive() bool { return e.active }

// SetActive turns the emitter on or off.
func (e *VolumeEmitter) SetActive(on bool) { e.active = on }

func (e *VolumeEmitter) Update(currentTime, dt float64) {}

func (e *VolumeEmitter) Emit(density *ScalarGrid, velocity *FaceCenteredGrid, dt float64) {
	if !e.active || e.Surface == nil {
		return
	}
	size := density.Size()
	for i := 1; i < size[0]-1; i++ {
		for j := 1; j < size[1]-1; j++ {
			if !IsInsideSdf(e.Surface.SignedDistance(density.DataPosition(i, j))) {
				continue
			}
			d := density.At(i, j) + e.Rate*dt
			if e.MaxDensity > 0 {
				d = min(d, e.MaxDensity)
			}
			density.Set(i, j, d)
		}
	}

	if e.SetsVelocity && velocity != nil {
		for axis := 0; axis < 2; axis++ {
			g := velocity.Component(axis)
			gs := g.Size()
			for i := 0; i < gs[0]; i++ {
				for j := 0; j < gs[1]; j++ {
					if IsInsideSdf(e.Surface.SignedDistance(g.DataPosition(i, j))) {
						g.Set(i, j, e.Velocity[axis])
					}
				}
			}
		}
	}

	if e.IsOneShot {
		e.active = false
	}
}
