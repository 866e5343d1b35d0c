package fluid

import "fmt"

// Index2 addresses a sample of a 2D grid as (i, j) = (x, y).
type Index2 [2]int

// Add returns the component-wise sum of two indices.
func (a Index2) Add(b Index2) Index2 { return Index2{a[0] + b[0], a[1] + b[1]} }

// Min returns the smallest component.
func (a Index2) Min() int { return min(a[0], a[1]) }

// Prod returns the number of samples covered by a size.
func (a Index2) Prod() int { return a[0] * a[1] }

// GridData is a dense 2D array stored x-major, sample (i, j) at i*ny + j.
type GridData[T any] struct {
	size Index2
	data []T
}

// NewGridData allocates a zeroed array of the given size.
func NewGridData[T any](size Index2) *GridData[T] {
	return &GridData[T]{size: size, data: make([]T, size.Prod())}
}

func (g *GridData[T]) Size() Index2 { return g.size }

func (g *GridData[T]) Len() int { return len(g.data) }

// Data exposes the backing slice.
func (g *GridData[T]) Data() []T { return g.data }

// Linear maps (i, j) to the backing slice offset.
func (g *GridData[T]) Linear(i, j int) int { return i*g.size[1] + j }

// Index is the inverse of Linear.
func (g *GridData[T]) Index(n int) Index2 { return Index2{n / g.size[1], n % g.size[1]} }

func (g *GridData[T]) Contains(i, j int) bool {
	return i >= 0 && i < g.size[0] && j >= 0 && j < g.size[1]
}

func (g *GridData[T]) At(i, j int) T { return g.data[i*g.size[1]+j] }

func (g *GridData[T]) Set(i, j int, v T) { g.data[i*g.size[1]+j] = v }

// Ptr returns a pointer to sample (i, j) for in-place updates.
func (g *GridData[T]) Ptr(i, j int) *T { return &g.data[i*g.size[1]+j] }

// Value is the bounds-checked accessor used by external readers.
func (g *GridData[T]) Value(i, j int) (T, error) {
	var zero T
	if i < 0 || i >= g.size[0] {
		return zero, fmt.Errorf("x index out of range, must be between 0 and %d", g.size[0]-1)
	}
	if j < 0 || j >= g.size[1] {
		return zero, fmt.Errorf("y index out of range, must be between 0 and %d", g.size[1]-1)
	}
	return g.At(i, j), nil
}

func (g *GridData[T]) Fill(v T) {
	for n := range g.data {
		g.data[n] = v
	}
}

// CopyFrom copies src, which must have the same size.
func (g *GridData[T]) CopyFrom(src *GridData[T]) {
	copy(g.data, src.data)
}

// Clone returns a deep copy.
func (g *GridData[T]) Clone() *GridData[T] {
	c := NewGridData[T](g.size)
	copy(c.data, g.data)
	return c
}

// ForEachIndex visits every index, x-major.
func (g *GridData[T]) ForEachIndex(fn func(i, j int)) {
	for i := 0; i < g.size[0]; i++ {
		for j := 0; j < g.size[1]; j++ {
			fn(i, j)
		}
	}
}
