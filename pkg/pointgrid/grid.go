// Package pointgrid buckets 2D points into a uniform grid for fixed-radius
// neighbor queries.
package pointgrid

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidRadius is returned for a radius that is not positive and finite.
var ErrInvalidRadius = errors.New("pointgrid: radius must be positive and finite")

// Grid indexes a point slice owned by the caller. The cell size equals the
// query radius, so a query only has to scan the 3×3 block of cells around the
// probe. Call Rebuild after the points move.
type Grid struct {
	points   []mgl64.Vec2
	lower    mgl64.Vec2
	cellSize mgl64.Vec2
	size     [2]int

	// ids lists point indices grouped by cell; cell c owns
	// ids[start[c]:start[c+1]]. Cells are x-major.
	ids   []int
	start []int
}

// New buckets points into cells of side radius covering [lower, upper].
// Points outside the bounds are kept in the nearest edge cell.
func New(points []mgl64.Vec2, radius float64, lower, upper mgl64.Vec2) (*Grid, error) {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRadius, radius)
	}
	g := &Grid{
		points:   points,
		lower:    lower,
		cellSize: mgl64.Vec2{radius, radius},
	}
	for axis := 0; axis < 2; axis++ {
		n := math.Ceil((upper[axis] - lower[axis]) / radius)
		g.size[axis] = max(int(n), 1)
	}
	g.start = make([]int, g.size[0]*g.size[1]+1)
	g.Rebuild()
	return g, nil
}

// Size returns the number of cells per axis.
func (g *Grid) Size() [2]int { return g.size }

func (g *Grid) CellSize() mgl64.Vec2 { return g.cellSize }

// Points returns the indexed points.
func (g *Grid) Points() []mgl64.Vec2 { return g.points }

// SetPoints replaces the indexed slice and rebuilds the buckets.
func (g *Grid) SetPoints(points []mgl64.Vec2) {
	g.points = points
	g.Rebuild()
}

// Rebuild re-buckets every point.
func (g *Grid) Rebuild() {
	for c := range g.start {
		g.start[c] = 0
	}
	cells := make([]int, len(g.points))
	for id, p := range g.points {
		c := g.cellIndex(g.Index(p))
		cells[id] = c
		g.start[c+1]++
	}
	for c := 1; c < len(g.start); c++ {
		g.start[c] += g.start[c-1]
	}

	if cap(g.ids) < len(g.points) {
		g.ids = make([]int, len(g.points))
	}
	g.ids = g.ids[:len(g.points)]
	next := make([]int, len(g.start)-1)
	copy(next, g.start)
	for id, c := range cells {
		g.ids[next[c]] = id
		next[c]++
	}
}

// Index returns the cell containing p, clamped to the grid.
func (g *Grid) Index(p mgl64.Vec2) [2]int {
	var idx [2]int
	for axis := 0; axis < 2; axis++ {
		i := int(math.Floor((p[axis] - g.lower[axis]) / g.cellSize[axis]))
		idx[axis] = min(max(i, 0), g.size[axis]-1)
	}
	return idx
}

func (g *Grid) cellIndex(idx [2]int) int {
	return idx[0]*g.size[1] + idx[1]
}

// Cell returns the indices of the points bucketed in cell idx.
func (g *Grid) Cell(idx [2]int) []int {
	c := g.cellIndex(idx)
	return g.ids[g.start[c]:g.start[c+1]]
}

// ForEachNeighbor calls fn for every point within the radius of p, excluding
// points that coincide with p.
func (g *Grid) ForEachNeighbor(p mgl64.Vec2, fn func(id int, d2 float64)) {
	s := g.Index(p)
	h := min(g.cellSize[0], g.cellSize[1])
	h2 := h * h

	for j := s[1] - 1; j <= s[1]+1; j++ {
		if j < 0 || j >= g.size[1] {
			continue
		}
		for i := s[0] - 1; i <= s[0]+1; i++ {
			if i < 0 || i >= g.size[0] {
				continue
			}
			for _, id := range g.Cell([2]int{i, j}) {
				d2 := p.Sub(g.points[id]).LenSqr()
				if d2 != 0 && d2 <= h2 {
					fn(id, d2)
				}
			}
		}
	}
}

// FindNeighbors appends the indices of the points within the radius of p to
// dst[:0] and returns it.
func (g *Grid) FindNeighbors(p mgl64.Vec2, dst []int) []int {
	dst = dst[:0]
	g.ForEachNeighbor(p, func(id int, _ float64) {
		dst = append(dst, id)
	})
	return dst
}
