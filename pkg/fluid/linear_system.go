package fluid

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// FdmRow is one row of a symmetric 5-point finite-difference matrix. Right
// couples (i, j) with (i+1, j) and Up couples (i, j) with (i, j+1); the
// couplings to (i-1, j) and (i, j-1) are stored on those neighbours.
type FdmRow struct {
	Center, Right, Up float64
}

// FdmLinearSystem is A x = b over a 2D grid of unknowns.
type FdmLinearSystem struct {
	A *GridData[FdmRow]
	X *GridData[float64]
	B *GridData[float64]
}

// NewFdmLinearSystem allocates a zero system of the given size.
func NewFdmLinearSystem(size Index2) *FdmLinearSystem {
	return &FdmLinearSystem{
		A: NewGridData[FdmRow](size),
		X: NewGridData[float64](size),
		B: NewGridData[float64](size),
	}
}

// Resize reallocates the system when size changes and clears it otherwise.
func (s *FdmLinearSystem) Resize(size Index2) {
	if s.A == nil || s.A.Size() != size {
		*s = *NewFdmLinearSystem(size)
		return
	}
	s.A.Fill(FdmRow{})
	s.X.Fill(0)
	s.B.Fill(0)
}

// apply computes y = A x.
func (s *FdmLinearSystem) apply(x, y []float64) {
	size := s.A.Size()
	nx, ny := size[0], size[1]
	a := s.A.Data()
	parallelRange(0, nx, func(i int) {
		for j := 0; j < ny; j++ {
			n := i*ny + j
			v := a[n].Center * x[n]
			if i > 0 {
				v += a[n-ny].Right * x[n-ny]
			}
			if i+1 < nx {
				v += a[n].Right * x[n+ny]
			}
			if j > 0 {
				v += a[n-1].Up * x[n-1]
			}
			if j+1 < ny {
				v += a[n].Up * x[n+1]
			}
			y[n] = v
		}
	})
}

// SolverStats reports how a linear solve ended.
type SolverStats struct {
	Iterations int
	Residual   float64
	Converged  bool
}

// ConjugateGradientSolver solves symmetric positive (semi-)definite systems
// with Jacobi-preconditioned conjugate gradients.
type ConjugateGradientSolver struct {
	MaxIterations int
	// Tolerance is relative to the largest right-hand side entry.
	Tolerance float64
}

// DefaultConjugateGradientSolver returns the solver used by the diffusion and
// pressure phases.
func DefaultConjugateGradientSolver() ConjugateGradientSolver {
	return ConjugateGradientSolver{MaxIterations: 500, Tolerance: 1e-10}
}

// Solve refines s.X in place, using its current content as the initial guess.
func (cg ConjugateGradientSolver) Solve(s *FdmLinearSystem) SolverStats {
	n := s.X.Len()
	x := mat.NewVecDense(n, s.X.Data())
	b := mat.NewVecDense(n, s.B.Data())

	ax := mat.NewVecDense(n, nil)
	s.apply(x.RawVector().Data, ax.RawVector().Data)
	r := mat.NewVecDense(n, nil)
	r.SubVec(b, ax)

	invDiag := make([]float64, n)
	for k, row := range s.A.Data() {
		if row.Center != 0 {
			invDiag[k] = 1 / row.Center
		}
	}
	z := mat.NewVecDense(n, nil)
	precondition(invDiag, r, z)

	p := mat.NewVecDense(n, nil)
	p.CopyVec(z)
	q := mat.NewVecDense(n, nil)

	tol := cg.Tolerance * math.Max(1, mat.Norm(b, math.Inf(1)))
	rz := mat.Dot(r, z)
	stats := SolverStats{Residual: mat.Norm(r, math.Inf(1))}
	for stats.Iterations < cg.MaxIterations {
		if stats.Residual <= tol {
			stats.Converged = true
			return stats
		}
		if rz == 0 {
			break
		}
		s.apply(p.RawVector().Data, q.RawVector().Data)
		pq := mat.Dot(p, q)
		if pq == 0 || math.IsNaN(pq) {
			break
		}
		alpha := rz / pq
		x.AddScaledVec(x, alpha, p)
		r.AddScaledVec(r, -alpha, q)
		stats.Iterations++
		stats.Residual = mat.Norm(r, math.Inf(1))

		precondition(invDiag, r, z)
		rzNext := mat.Dot(r, z)
		beta := rzNext / rz
		rz = rzNext
		p.ScaleVec(beta, p)
		p.AddVec(p, z)
	}
	stats.Converged = stats.Residual <= tol
	return stats
}

func precondition(invDiag []float64, r, z *mat.VecDense) {
	rd := r.RawVector().Data
	zd := z.RawVector().Data
	for k, d := range invDiag {
		zd[k] = d * rd[k]
	}
}
