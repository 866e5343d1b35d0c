package fluid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ScalarField is anything that can be point-sampled for a scalar value.
type ScalarField interface {
	Sample(p mgl64.Vec2) float64
}

// ConstantScalarField returns the same value everywhere.
type ConstantScalarField float64

func (c ConstantScalarField) Sample(mgl64.Vec2) float64 { return float64(c) }

// ScalarGrid is a GridData of float64 samples laid out in space. Sample (i, j)
// sits at DataOrigin + (i, j)*Spacing.
type ScalarGrid struct {
	*GridData[float64]
	spacing    mgl64.Vec2
	origin     mgl64.Vec2
	dataOrigin mgl64.Vec2
}

// NewScalarGrid allocates a grid whose lower-left corner is origin and whose
// first sample sits at dataOrigin.
func NewScalarGrid(size Index2, spacing, origin, dataOrigin mgl64.Vec2) *ScalarGrid {
	return &ScalarGrid{
		GridData:   NewGridData[float64](size),
		spacing:    spacing,
		origin:     origin,
		dataOrigin: dataOrigin,
	}
}

// NewCellCenteredScalarGrid allocates size cells starting at origin with samples
// at the cell centres.
func NewCellCenteredScalarGrid(size Index2, spacing, origin mgl64.Vec2) *ScalarGrid {
	return NewScalarGrid(size, spacing, origin, origin.Add(spacing.Mul(0.5)))
}

func (g *ScalarGrid) Spacing() mgl64.Vec2 { return g.spacing }

func (g *ScalarGrid) Origin() mgl64.Vec2 { return g.origin }

func (g *ScalarGrid) DataOrigin() mgl64.Vec2 { return g.dataOrigin }

// Bounds returns the lower and upper corners covered by the grid's cells.
func (g *ScalarGrid) Bounds() (lo, hi mgl64.Vec2) {
	hi = mgl64.Vec2{
		g.origin[0] + float64(g.size[0])*g.spacing[0],
		g.origin[1] + float64(g.size[1])*g.spacing[1],
	}
	return g.origin, hi
}

// DataPosition returns the world position of sample (i, j).
func (g *ScalarGrid) DataPosition(i, j int) mgl64.Vec2 {
	return mgl64.Vec2{
		g.dataOrigin[0] + float64(i)*g.spacing[0],
		g.dataOrigin[1] + float64(j)*g.spacing[1],
	}
}

// Sample interpolates bilinearly. Positions outside the sample range clamp to
// the nearest edge; sampling exactly at a data position returns the stored value.
func (g *ScalarGrid) Sample(p mgl64.Vec2) float64 {
	i, fx := g.locate(p[0], 0)
	j, fy := g.locate(p[1], 1)
	i1 := min(i+1, g.size[0]-1)
	j1 := min(j+1, g.size[1]-1)

	sx := 1 - fx
	sy := 1 - fy
	return sx*(sy*g.At(i, j)+fy*g.At(i, j1)) +
		fx*(sy*g.At(i1, j)+fy*g.At(i1, j1))
}

// locate returns the lower sample index and the fractional offset along an axis.
func (g *ScalarGrid) locate(x float64, axis int) (int, float64) {
	n := g.size[axis]
	if n < 2 {
		return 0, 0
	}
	t := (x - g.dataOrigin[axis]) / g.spacing[axis]
	if r := math.Round(t); math.Abs(t-r) < 1e-9 {
		t = r
	}
	switch {
	case t <= 0:
		return 0, 0
	case t >= float64(n-1):
		return n - 2, 1
	}
	i := int(math.Floor(t))
	return i, t - float64(i)
}

// Gradient estimates the gradient at p with central differences of Sample.
func (g *ScalarGrid) Gradient(p mgl64.Vec2) mgl64.Vec2 {
	dx := mgl64.Vec2{g.spacing[0], 0}
	dy := mgl64.Vec2{0, g.spacing[1]}
	return mgl64.Vec2{
		(g.Sample(p.Add(dx)) - g.Sample(p.Sub(dx))) / (2 * g.spacing[0]),
		(g.Sample(p.Add(dy)) - g.Sample(p.Sub(dy))) / (2 * g.spacing[1]),
	}
}

// Clone returns a deep copy sharing no storage with g.
func (g *ScalarGrid) Clone() *ScalarGrid {
	return &ScalarGrid{
		GridData:   g.GridData.Clone(),
		spacing:    g.spacing,
		origin:     g.origin,
		dataOrigin: g.dataOrigin,
	}
}

// FillFrom sets every sample to the value of field at its position.
func (g *ScalarGrid) FillFrom(field ScalarField) {
	parallelRange(0, g.size[0], func(i int) {
		for j := 0; j < g.size[1]; j++ {
			g.Set(i, j, field.Sample(g.DataPosition(i, j)))
		}
	})
}

// ScalarFieldFunc adapts a function to ScalarField.
type ScalarFieldFunc func(p mgl64.Vec2) float64

func (f ScalarFieldFunc) Sample(p mgl64.Vec2) float64 { return f(p) }
