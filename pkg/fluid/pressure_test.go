package fluid

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

var allFluid = ConstantScalarField(-math.MaxFloat64)

func newPressureTestField(n int) *FaceCenteredGrid {
	h := 1 / float64(n)
	vel := NewFaceCenteredGrid(Index2{n + 2, n + 2}, mgl64.Vec2{h, h}, mgl64.Vec2{-h, -h})
	u, v := vel.U(), vel.V()
	for i := 0; i < u.Size()[0]; i++ {
		for j := 0; j < u.Size()[1]; j++ {
			u.Set(i, j, math.Cos(float64(i)*0.4)+0.3*float64(j%3))
		}
	}
	for i := 0; i < v.Size()[0]; i++ {
		for j := 0; j < v.Size()[1]; j++ {
			v.Set(i, j, math.Sin(float64(j)*0.6)-0.2*float64(i%2))
		}
	}
	return vel
}

// weightedDivergence is the discrete divergence the solver drives to zero:
// each face flux blends fluid and collider velocity by the face weight.
func weightedDivergence(p *FractionalSinglePhasePressureSolver, vel *FaceCenteredGrid, solidVel VectorField, i, j int) float64 {
	u, v := vel.U(), vel.V()
	h := vel.GridSpacing()
	flux := func(g *ScalarGrid, w *GridData[float64], axis, fi, fj int) float64 {
		if p.isClosedFace(axis, Index2{fi, fj}[axis], vel.Size()[axis]) {
			return 0
		}
		wf := w.At(fi, fj)
		return wf*g.At(fi, fj) + (1-wf)*solidVel.Sample(g.DataPosition(fi, fj))[axis]
	}
	return (flux(u, p.UWeights(), 0, i+1, j)-flux(u, p.UWeights(), 0, i, j))/h[0] +
		(flux(v, p.VWeights(), 1, i, j+1)-flux(v, p.VWeights(), 1, i, j))/h[1]
}

func TestFractionalPressureClosedBox(t *testing.T) {
	const n = 12
	vel := newPressureTestField(n)
	p := NewFractionalSinglePhasePressureSolver()
	noSolid := ConstantScalarField(math.MaxFloat64)
	still := ConstantVectorField{}

	stats := p.Solve(vel, 0.02, noSolid, allFluid, still)
	if !stats.Converged {
		t.Fatalf("pressure solve did not converge: %+v", stats)
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= n; j++ {
			if d := vel.DivergenceAtCellCenter(i, j); math.Abs(d) > 1e-6 {
				t.Fatalf("divergence at (%d,%d) = %g", i, j, d)
			}
		}
	}
	for j := 1; j <= n; j++ {
		if vel.U().At(1, j) != 0 || vel.U().At(n+1, j) != 0 {
			t.Fatalf("closed wall faces carry flow in row %d", j)
		}
	}
	if p.Pressure() == nil || p.Pressure().Size() != (Index2{n + 2, n + 2}) {
		t.Fatal("pressure grid not stored")
	}
}

func TestFractionalPressureWithMovingCollider(t *testing.T) {
	const n = 16
	vel := newPressureTestField(n)
	solid := ScalarFieldFunc(Circle{Center: mgl64.Vec2{0.5, 0.5}, Radius: 0.2}.SignedDistance)
	solidVel := ConstantVectorField{0.5, -0.25}

	p := NewFractionalSinglePhasePressureSolver()
	stats := p.Solve(vel, 0.02, solid, allFluid, solidVel)
	if !stats.Converged {
		t.Fatalf("pressure solve did not converge: %+v", stats)
	}

	partial := 0
	for axis, w := range [2]*GridData[float64]{p.UWeights(), p.VWeights()} {
		g := vel.Component(axis)
		size := g.Size()
		for i := 2; i < size[0]-2; i++ {
			for j := 2; j < size[1]-2; j++ {
				switch wf := w.At(i, j); {
				case wf == 0:
					if g.At(i, j) != solidVel[axis] {
						t.Fatalf("blocked face axis %d (%d,%d) = %v, want collider velocity %v", axis, i, j, g.At(i, j), solidVel[axis])
					}
				case wf < 1:
					partial++
				}
			}
		}
	}
	if partial == 0 {
		t.Fatal("expected partially covered faces around the circle")
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= n; j++ {
			if d := weightedDivergence(p, vel, solidVel, i, j); math.Abs(d) > 1e-6 {
				t.Fatalf("weighted divergence at (%d,%d) = %g", i, j, d)
			}
		}
	}
}

func TestFractionalPressureOpenBoundary(t *testing.T) {
	const n = 8
	vel := newPressureTestField(n)
	p := NewFractionalSinglePhasePressureSolver()
	p.SetClosedDomainBoundaryFlag(DirectionNone)

	stats := p.Solve(vel, 0.02, ConstantScalarField(math.MaxFloat64), allFluid, ConstantVectorField{})
	if !stats.Converged {
		t.Fatalf("pressure solve did not converge: %+v", stats)
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= n; j++ {
			if d := vel.DivergenceAtCellCenter(i, j); math.Abs(d) > 1e-6 {
				t.Fatalf("divergence at (%d,%d) = %g", i, j, d)
			}
		}
	}
}
