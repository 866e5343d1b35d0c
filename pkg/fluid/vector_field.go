package fluid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// VectorField is anything that can be point-sampled for a 2D vector.
type VectorField interface {
	Sample(p mgl64.Vec2) mgl64.Vec2
}

// ConstantVectorField returns the same vector everywhere.
type ConstantVectorField mgl64.Vec2

func (c ConstantVectorField) Sample(mgl64.Vec2) mgl64.Vec2 { return mgl64.Vec2(c) }

// VectorFieldFunc adapts a function to VectorField.
type VectorFieldFunc func(p mgl64.Vec2) mgl64.Vec2

func (f VectorFieldFunc) Sample(p mgl64.Vec2) mgl64.Vec2 { return f(p) }

// FaceCenteredGrid stores a staggered (MAC) velocity field. For a grid of
// size (nx, ny) cells, U holds (nx+1)×ny x-face samples and V holds
// nx×(ny+1) y-face samples.
type FaceCenteredGrid struct {
	size    Index2
	spacing mgl64.Vec2
	origin  mgl64.Vec2
	u, v    *ScalarGrid
}

// NewFaceCenteredGrid allocates a zero velocity field over size cells whose
// lower-left corner is origin.
func NewFaceCenteredGrid(size Index2, spacing, origin mgl64.Vec2) *FaceCenteredGrid {
	h2 := spacing.Mul(0.5)
	return &FaceCenteredGrid{
		size:    size,
		spacing: spacing,
		origin:  origin,
		u:       NewScalarGrid(Index2{size[0] + 1, size[1]}, spacing, origin, origin.Add(mgl64.Vec2{0, h2[1]})),
		v:       NewScalarGrid(Index2{size[0], size[1] + 1}, spacing, origin, origin.Add(mgl64.Vec2{h2[0], 0})),
	}
}

// Size returns the cell resolution, ghost ring included.
func (f *FaceCenteredGrid) Size() Index2 { return f.size }

func (f *FaceCenteredGrid) GridSpacing() mgl64.Vec2 { return f.spacing }

func (f *FaceCenteredGrid) Origin() mgl64.Vec2 { return f.origin }

// U returns the x-component samples.
func (f *FaceCenteredGrid) U() *ScalarGrid { return f.u }

// V returns the y-component samples.
func (f *FaceCenteredGrid) V() *ScalarGrid { return f.v }

// Component returns U for axis 0 and V for axis 1.
func (f *FaceCenteredGrid) Component(axis int) *ScalarGrid {
	if axis == 0 {
		return f.u
	}
	return f.v
}

// Bounds returns the lower and upper corners covered by the grid's cells.
func (f *FaceCenteredGrid) Bounds() (lo, hi mgl64.Vec2) {
	hi = mgl64.Vec2{
		f.origin[0] + float64(f.size[0])*f.spacing[0],
		f.origin[1] + float64(f.size[1])*f.spacing[1],
	}
	return f.origin, hi
}

// CellCenterPosition returns the world position of cell (i, j).
func (f *FaceCenteredGrid) CellCenterPosition(i, j int) mgl64.Vec2 {
	return mgl64.Vec2{
		f.origin[0] + (float64(i)+0.5)*f.spacing[0],
		f.origin[1] + (float64(j)+0.5)*f.spacing[1],
	}
}

// ValueAtCellCenter averages the two faces of cell (i, j) on each axis.
func (f *FaceCenteredGrid) ValueAtCellCenter(i, j int) mgl64.Vec2 {
	return mgl64.Vec2{
		0.5 * (f.u.At(i, j) + f.u.At(i+1, j)),
		0.5 * (f.v.At(i, j) + f.v.At(i, j+1)),
	}
}

// Value is the bounds-checked cell-centre velocity used by external readers.
func (f *FaceCenteredGrid) Value(i, j int) (float64, float64, error) {
	if _, err := f.u.Value(i, j); err != nil {
		return 0, 0, err
	}
	if _, err := f.v.Value(i, j); err != nil {
		return 0, 0, err
	}
	c := f.ValueAtCellCenter(i, j)
	return c[0], c[1], nil
}

// DivergenceAtCellCenter returns the discrete divergence of cell (i, j).
func (f *FaceCenteredGrid) DivergenceAtCellCenter(i, j int) float64 {
	return (f.u.At(i+1, j)-f.u.At(i, j))/f.spacing[0] +
		(f.v.At(i, j+1)-f.v.At(i, j))/f.spacing[1]
}

// CurlAtCellCenter returns dv/dx - du/dy at cell (i, j) using neighbouring
// cell centres. Cells on the outer ring use one-sided neighbours.
func (f *FaceCenteredGrid) CurlAtCellCenter(i, j int) float64 {
	il, ir := max(i-1, 0), min(i+1, f.size[0]-1)
	jd, ju := max(j-1, 0), min(j+1, f.size[1]-1)
	left := f.ValueAtCellCenter(il, j)
	right := f.ValueAtCellCenter(ir, j)
	down := f.ValueAtCellCenter(i, jd)
	up := f.ValueAtCellCenter(i, ju)
	dvdx := (right[1] - left[1]) / (float64(ir-il) * f.spacing[0])
	dudy := (up[0] - down[0]) / (float64(ju-jd) * f.spacing[1])
	return dvdx - dudy
}

// Sample interpolates both components at p.
func (f *FaceCenteredGrid) Sample(p mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{f.u.Sample(p), f.v.Sample(p)}
}

// Fill sets every face to the matching component of vel.
func (f *FaceCenteredGrid) Fill(vel mgl64.Vec2) {
	f.u.Fill(vel[0])
	f.v.Fill(vel[1])
}

// FillFrom samples field at every face position.
func (f *FaceCenteredGrid) FillFrom(field VectorField) {
	for axis := 0; axis < 2; axis++ {
		g := f.Component(axis)
		parallelRange(0, g.size[0], func(i int) {
			for j := 0; j < g.size[1]; j++ {
				g.Set(i, j, field.Sample(g.DataPosition(i, j))[axis])
			}
		})
	}
}

// CopyFrom copies the samples of src, which must have the same size.
func (f *FaceCenteredGrid) CopyFrom(src *FaceCenteredGrid) {
	f.u.CopyFrom(src.u.GridData)
	f.v.CopyFrom(src.v.GridData)
}

// Clone returns a deep copy.
func (f *FaceCenteredGrid) Clone() *FaceCenteredGrid {
	return &FaceCenteredGrid{
		size:    f.size,
		spacing: f.spacing,
		origin:  f.origin,
		u:       f.u.Clone(),
		v:       f.v.Clone(),
	}
}

// MaxSpeed returns the largest cell-centre speed, ignoring non-finite cells.
func (f *FaceCenteredGrid) MaxSpeed() float64 {
	var m float64
	for i := 0; i < f.size[0]; i++ {
		for j := 0; j < f.size[1]; j++ {
			if s := f.ValueAtCellCenter(i, j).Len(); s > m && !math.IsInf(s, 0) {
				m = s
			}
		}
	}
	return m
}
