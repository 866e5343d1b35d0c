package fluid

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func newTestSolver(t testing.TB, n int, h float64) *GridSolver {
	t.Helper()
	cfg := DefaultConfig(n, h)
	cfg.Gravity = mgl64.Vec2{}
	s, err := NewGridSolver(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewGridSolverLayout(t *testing.T) {
	cfg := DefaultConfig(4, 0.25)
	cfg.Origin = mgl64.Vec2{1, 2}
	s, err := NewGridSolver(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if got := s.Velocity().U().Size(); got != (Index2{7, 6}) {
		t.Errorf("U size = %v, want [7 6]", got)
	}
	if got := s.Velocity().V().Size(); got != (Index2{6, 7}) {
		t.Errorf("V size = %v, want [6 7]", got)
	}
	if got := s.Density().Size(); got != (Index2{6, 6}) {
		t.Errorf("density size = %v, want [6 6]", got)
	}
	if got := s.GridOrigin(); got != (mgl64.Vec2{0.75, 1.75}) {
		t.Errorf("grid origin = %v, want [0.75 1.75]", got)
	}
	if got := s.Density().DataPosition(1, 1); got != (mgl64.Vec2{1.125, 2.125}) {
		t.Errorf("first interior cell centre = %v", got)
	}
	if s.Gravity() != (mgl64.Vec2{0, -9.8}) {
		t.Errorf("default gravity = %v", s.Gravity())
	}
	if s.MaxCfl() != 5 {
		t.Errorf("default max CFL = %f", s.MaxCfl())
	}
	if s.ClosedDomainBoundaryFlag() != DirectionAll {
		t.Errorf("default boundary flag = %d", s.ClosedDomainBoundaryFlag())
	}
}

func TestNewGridSolverRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"zero resolution", func(c *Config) { c.Size = Index2{0, 4} }},
		{"negative resolution", func(c *Config) { c.Size = Index2{4, -1} }},
		{"zero spacing", func(c *Config) { c.Spacing = mgl64.Vec2{0, 1} }},
		{"negative spacing", func(c *Config) { c.Spacing = mgl64.Vec2{1, -1} }},
		{"nan spacing", func(c *Config) { c.Spacing = mgl64.Vec2{math.NaN(), 1} }},
		{"infinite spacing", func(c *Config) { c.Spacing = mgl64.Vec2{1, math.Inf(1)} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(4, 1)
			tt.edit(&cfg)
			if _, err := NewGridSolver(cfg); !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestCflUniformVelocity(t *testing.T) {
	s := newTestSolver(t, 8, 0.25)
	s.Velocity().Fill(mgl64.Vec2{3, 4})

	cfl, err := s.Cfl(0.1)
	if err != nil {
		t.Fatal(err)
	}
	if want := 5.0 * 0.1 / 0.25; cfl != want {
		t.Errorf("cfl = %v, want %v", cfl, want)
	}
}

func TestCflIncludesGravity(t *testing.T) {
	s := newTestSolver(t, 8, 1)
	s.SetGravity(mgl64.Vec2{0, -10})

	cfl, err := s.Cfl(0.5)
	if err != nil {
		t.Fatal(err)
	}
	// |0 + 0.5*(-10)| * 0.5 / 1
	if cfl != 2.5 {
		t.Errorf("cfl = %v, want 2.5", cfl)
	}
}

func TestCflDegenerateSpacing(t *testing.T) {
	s := newTestSolver(t, 4, 1)
	s.velocity = NewFaceCenteredGrid(Index2{6, 6}, mgl64.Vec2{0, 1}, mgl64.Vec2{})
	if _, err := s.Cfl(0.1); !errors.Is(err, ErrDegenerateField) {
		t.Fatalf("expected ErrDegenerateField, got %v", err)
	}
}

func TestNumberOfSubTimeSteps(t *testing.T) {
	s := newTestSolver(t, 8, 1)
	s.SetMaxCfl(5)

	s.Velocity().Fill(mgl64.Vec2{12, 0})
	if n, err := s.NumberOfSubTimeSteps(1); err != nil || n != 3 {
		t.Errorf("cfl 12: got %d sub-steps (err %v), want 3", n, err)
	}

	s.Velocity().Fill(mgl64.Vec2{})
	if n, err := s.NumberOfSubTimeSteps(1); err != nil || n != 1 {
		t.Errorf("cfl 0: got %d sub-steps (err %v), want 1", n, err)
	}
}

func TestSettersClamp(t *testing.T) {
	s := newTestSolver(t, 4, 1)

	s.SetViscosityCoefficient(-5)
	if s.ViscosityCoefficient() != 0 {
		t.Errorf("viscosity = %f, want 0", s.ViscosityCoefficient())
	}
	s.SetDensityDiffusionCoefficient(-1)
	if s.DensityDiffusionCoefficient() != 0 {
		t.Errorf("density diffusion = %f, want 0", s.DensityDiffusionCoefficient())
	}
	s.SetMaxCfl(-3)
	if !(s.MaxCfl() > 0) {
		t.Errorf("max CFL = %g, want positive", s.MaxCfl())
	}
	s.SetClosedDomainBoundaryFlag(0xff)
	if s.ClosedDomainBoundaryFlag() != DirectionAll {
		t.Errorf("boundary flag = %d, want %d", s.ClosedDomainBoundaryFlag(), DirectionAll)
	}

	nan := math.NaN()
	s.SetViscosityCoefficient(nan)
	if s.ViscosityCoefficient() != 0 {
		t.Errorf("viscosity after NaN = %v, want 0", s.ViscosityCoefficient())
	}
	s.SetDensityDiffusionCoefficient(nan)
	if s.DensityDiffusionCoefficient() != 0 {
		t.Errorf("density diffusion after NaN = %v, want 0", s.DensityDiffusionCoefficient())
	}
	s.SetVorticityConfinement(nan)
	if s.VorticityConfinement() != 0 {
		t.Errorf("confinement after NaN = %v, want 0", s.VorticityConfinement())
	}
	s.SetMaxCfl(nan)
	if s.MaxCfl() != smallestNormal {
		t.Errorf("max CFL after NaN = %v, want %v", s.MaxCfl(), smallestNormal)
	}
	if d := s.extrapolationDepth(); d != 1 {
		t.Errorf("extrapolation depth = %d, want 1", d)
	}
}

func TestNaNMaxCflKeepsSubStepCap(t *testing.T) {
	s := newTestSolver(t, 8, 1)
	s.Velocity().Fill(mgl64.Vec2{1000, 0})
	s.SetMaxCfl(math.NaN())

	k, err := s.NumberOfSubTimeSteps(DefaultFrameTimeInterval)
	if err != nil {
		t.Fatal(err)
	}
	if k <= DefaultMaxSubTimeSteps {
		t.Fatalf("sub-steps = %d, want more than %d", k, DefaultMaxSubTimeSteps)
	}
	if err := s.AdvanceFrame(0); !errors.Is(err, ErrUnboundedSubstepping) {
		t.Fatalf("expected ErrUnboundedSubstepping, got %v", err)
	}
}

func TestColliderSdfReadyBeforeFirstStep(t *testing.T) {
	s := newTestSolver(t, 6, 1)
	sdf := s.ColliderSdf()
	if sdf == nil {
		t.Fatal("collider sdf is nil after construction")
	}
	if sdf.Size() != s.Density().Size() {
		t.Fatalf("sdf size = %v, want %v", sdf.Size(), s.Density().Size())
	}
	for _, phi := range sdf.Data() {
		if IsInsideSdf(phi) {
			t.Fatal("no collider installed, yet the sdf reports solid cells")
		}
	}
}

func TestSampleVelocityMatchesCellCenter(t *testing.T) {
	s := newTestSolver(t, 6, 0.5)
	s.Velocity().Fill(mgl64.Vec2{2, -1})
	s.SetVelocity(3, 3, 4, 4)
	p := s.Density().DataPosition(3, 3)
	got := s.SampleVelocity(p)
	want := s.Velocity().ValueAtCellCenter(3, 3)
	if !got.ApproxEqualThreshold(want, 1e-12) {
		t.Errorf("SampleVelocity(%v) = %v, want %v", p, got, want)
	}
	if got := s.SampleVelocity(s.Density().DataPosition(1, 1)); !got.ApproxEqualThreshold(mgl64.Vec2{2, -1}, 1e-12) {
		t.Errorf("uniform region sample = %v, want (2, -1)", got)
	}
}

func TestSetBoxObstacle(t *testing.T) {
	s := newTestSolver(t, 10, 1)
	c := s.SetBoxObstacle(mgl64.Vec2{3, 3}, mgl64.Vec2{6, 5})
	if s.Collider() != Collider(c) {
		t.Fatal("collider not installed")
	}
	// Cell (i, j) is centred at (i-0.5, j-0.5).
	if !s.IsSolid(5, 5) {
		t.Error("cell (5,5) should be inside the box")
	}
	if s.IsSolid(2, 5) || s.IsSolid(5, 7) {
		t.Error("cells outside the box reported solid")
	}
}

func TestTotalDensitySkipsColliderCells(t *testing.T) {
	s := newTestSolver(t, 10, 1)
	s.SetBoxObstacle(mgl64.Vec2{3, 3}, mgl64.Vec2{6, 6})
	s.Initialize()
	s.Density().Fill(1)

	fluid := 0
	for i := 1; i <= 10; i++ {
		for j := 1; j <= 10; j++ {
			if !s.IsSolid(i, j) {
				fluid++
			}
		}
	}
	if fluid == 100 {
		t.Fatal("box covers no cell centres")
	}
	if got := s.TotalDensity(); got != float64(fluid) {
		t.Errorf("total density = %v, want %d", got, fluid)
	}
}

func TestSamplingExactAtNodes(t *testing.T) {
	s := newTestSolver(t, 6, 0.3)
	grids := []*ScalarGrid{s.Density(), s.Velocity().U(), s.Velocity().V()}
	for g, grid := range grids {
		for n := range grid.Data() {
			grid.Data()[n] = math.Sin(float64(n)*0.37) + float64(g)
		}
		size := grid.Size()
		for i := 0; i < size[0]; i++ {
			for j := 0; j < size[1]; j++ {
				if got := grid.Sample(grid.DataPosition(i, j)); got != grid.At(i, j) {
					t.Fatalf("grid %d: sample at node (%d,%d) = %v, stored %v", g, i, j, got, grid.At(i, j))
				}
			}
		}
	}
}

func TestMassConservedWithoutFlow(t *testing.T) {
	s := newTestSolver(t, 4, 0.25)
	s.AddDensity(2, 2, 1)

	if err := s.AdvanceFrame(0); err != nil {
		t.Fatal(err)
	}
	if s.CurrentFrame().Index != 0 {
		t.Errorf("current frame = %d, want 0", s.CurrentFrame().Index)
	}
	if total := s.TotalDensity(); math.Abs(total-1) > 1e-12 {
		t.Errorf("total density = %v, want 1", total)
	}
	if d := s.Density().At(2, 2); math.Abs(d-1) > 1e-12 {
		t.Errorf("density moved without flow: %v", d)
	}
}

func TestStepHooksRunInOrder(t *testing.T) {
	var events []string
	var dts []float64

	cfg := DefaultConfig(4, 1)
	cfg.Gravity = mgl64.Vec2{}
	cfg.UseFixedSubTimeSteps = true
	cfg.NumberOfSubTimeSteps = 3
	cfg.OnBeginAdvanceTimeStep = func(_ *GridSolver, dt float64) {
		events = append(events, "begin")
		dts = append(dts, dt)
	}
	cfg.OnEndAdvanceTimeStep = func(*GridSolver, float64) {
		events = append(events, "end")
	}
	s, err := NewGridSolver(cfg)
	if err != nil {
		t.Fatal(err)
	}
	c := NewRigidBodyCollider(Circle{Center: mgl64.Vec2{2, 2}, Radius: 0.5})
	c.OnUpdate = func(*RigidBodyCollider, float64, float64) {
		events = append(events, "collider")
	}
	s.SetCollider(c)

	if err := s.AdvanceFrame(1); err != nil {
		t.Fatal(err)
	}

	want := []string{"collider"}
	for k := 0; k < 6; k++ {
		want = append(want, "collider", "begin", "end")
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for k := range want {
		if events[k] != want[k] {
			t.Fatalf("event %d = %q, want %q (all: %v)", k, events[k], want[k], events)
		}
	}
	for _, dt := range dts {
		if math.Abs(dt-DefaultFrameTimeInterval/3) > 1e-15 {
			t.Errorf("sub-step dt = %v, want %v", dt, DefaultFrameTimeInterval/3)
		}
	}
	if math.Abs(s.CurrentTime()-2*DefaultFrameTimeInterval) > 1e-12 {
		t.Errorf("current time = %v", s.CurrentTime())
	}

	// Frames already simulated are not repeated.
	n := len(events)
	if err := s.AdvanceFrame(1); err != nil {
		t.Fatal(err)
	}
	if err := s.AdvanceFrame(0); err != nil {
		t.Fatal(err)
	}
	if len(events) != n {
		t.Errorf("re-advancing a past frame ran %d more events", len(events)-n)
	}
}

func TestUnboundedSubsteppingLeavesStateUnchanged(t *testing.T) {
	cfg := DefaultConfig(8, 1)
	cfg.Gravity = mgl64.Vec2{}
	cfg.MaxSubTimeSteps = 2
	s, err := NewGridSolver(cfg)
	if err != nil {
		t.Fatal(err)
	}
	s.Velocity().Fill(mgl64.Vec2{1000, 0})
	s.AddDensity(4, 4, 1)
	before := s.Velocity().Clone()
	densityBefore := s.Density().Clone()

	err = s.AdvanceFrame(0)
	if !errors.Is(err, ErrUnboundedSubstepping) {
		t.Fatalf("expected ErrUnboundedSubstepping, got %v", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Frame != 0 {
		t.Fatalf("expected StepError for frame 0, got %#v", err)
	}
	if s.CurrentFrame().Index != -1 || s.CurrentTime() != 0 {
		t.Errorf("clock advanced: frame %d, time %v", s.CurrentFrame().Index, s.CurrentTime())
	}
	for n, u := range s.Velocity().U().Data() {
		if u != before.U().Data()[n] {
			t.Fatalf("U[%d] changed from %v to %v", n, before.U().Data()[n], u)
		}
	}
	for n, d := range s.Density().Data() {
		if d != densityBefore.Data()[n] {
			t.Fatalf("density[%d] changed from %v to %v", n, densityBefore.Data()[n], d)
		}
	}

	s.SetMaxSubTimeSteps(DefaultMaxSubTimeSteps)
	if err := s.AdvanceFrame(0); err != nil {
		t.Fatalf("frame should succeed with a higher limit: %v", err)
	}
}

func TestGravityInOpenDomain(t *testing.T) {
	cfg := DefaultConfig(6, 1)
	cfg.ClosedDomainBoundaryFlag = DirectionNone
	cfg.UseFixedSubTimeSteps = true
	s, err := NewGridSolver(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AdvanceFrame(0); err != nil {
		t.Fatal(err)
	}

	want := -9.8 * DefaultFrameTimeInterval
	v := s.Velocity().V()
	for i := 1; i <= 6; i++ {
		for j := 1; j <= 7; j++ {
			if math.Abs(v.At(i, j)-want) > 1e-12 {
				t.Fatalf("v(%d,%d) = %v, want %v", i, j, v.At(i, j), want)
			}
		}
	}
}

func TestClosedBoxCancelsGravity(t *testing.T) {
	cfg := DefaultConfig(8, 0.125)
	s, err := NewGridSolver(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for frame := 0; frame < 3; frame++ {
		if err := s.AdvanceFrame(frame); err != nil {
			t.Fatal(err)
		}
	}
	if d := s.MaxDivergence(); d > 1e-6 {
		t.Errorf("max divergence = %g", d)
	}
	if v := s.Velocity().MaxSpeed(); v > 1e-6 {
		t.Errorf("resting fluid moves at %g", v)
	}
	p := s.Pressure()
	if p == nil {
		t.Fatal("pressure not stored")
	}
	if p.At(4, 1) <= p.At(4, 8) {
		t.Errorf("pressure should grow with depth: bottom %g, top %g", p.At(4, 1), p.At(4, 8))
	}
}

func TestPressureRemovesDivergence(t *testing.T) {
	s := newTestSolver(t, 16, 1.0/16)
	s.Initialize()
	u, v := s.Velocity().U(), s.Velocity().V()
	for i := 0; i < u.Size()[0]; i++ {
		for j := 0; j < u.Size()[1]; j++ {
			u.Set(i, j, math.Sin(float64(i)*0.7)*math.Cos(float64(j)*0.3))
		}
	}
	for i := 0; i < v.Size()[0]; i++ {
		for j := 0; j < v.Size()[1]; j++ {
			v.Set(i, j, math.Cos(float64(i)*0.2)*math.Sin(float64(j)*0.5))
		}
	}
	s.ApplyBoundaryCondition()
	if s.MaxDivergence() < 1 {
		t.Fatalf("test field is nearly divergence free already: %g", s.MaxDivergence())
	}

	s.computePressure(0.01)

	if d := s.MaxDivergence(); d > 1e-6 {
		t.Errorf("max divergence after projection = %g", d)
	}
}

func TestViscositySmoothsVelocity(t *testing.T) {
	s := newTestSolver(t, 12, 1)
	s.SetViscosityCoefficient(0.5)
	s.Initialize()
	s.SetVelocity(6, 6, 4, 0)
	peak := s.Velocity().U().At(6, 6)

	s.computeViscosity(0.1)

	u := s.Velocity().U()
	if u.At(6, 6) >= peak {
		t.Errorf("peak not reduced: %f", u.At(6, 6))
	}
	if u.At(5, 6) <= 0 || u.At(7, 6) <= 0 || u.At(6, 5) <= 0 || u.At(6, 7) <= 0 {
		t.Error("neighbours should gain velocity")
	}
}

func TestDensityDiffusionDisabledByDefault(t *testing.T) {
	s := newTestSolver(t, 6, 1)
	s.Initialize()
	s.AddDensity(3, 3, 1)
	s.computeDensityDiffusion(0.1)
	if s.Density().At(3, 3) != 1 || s.Density().At(4, 3) != 0 {
		t.Error("density diffused with a zero coefficient")
	}

	s.SetDensityDiffusionCoefficient(1)
	s.computeDensityDiffusion(0.1)
	if s.Density().At(3, 3) >= 1 || s.Density().At(4, 3) <= 0 {
		t.Error("density did not diffuse")
	}
}

func TestDensityAdvectsWithFlow(t *testing.T) {
	s := newTestSolver(t, 10, 1)
	s.SetClosedDomainBoundaryFlag(DirectionNone)
	s.Initialize()
	s.AddDensity(4, 5, 1)
	s.Velocity().Fill(mgl64.Vec2{1, 0})

	s.advectDensity(1)

	d := s.Density()
	if math.Abs(d.At(5, 5)-1) > 1e-12 {
		t.Errorf("density should move one cell right, got %v", d.At(5, 5))
	}
	if math.Abs(d.At(4, 5)) > 1e-12 {
		t.Errorf("source cell should be empty, got %v", d.At(4, 5))
	}
}

func TestEmitterFillsDensity(t *testing.T) {
	s := newTestSolver(t, 8, 1)
	e := NewVolumeEmitter(Box{Lower: mgl64.Vec2{1, 1}, Upper: mgl64.Vec2{3, 3}}, 6)
	s.SetEmitter(e)
	if err := s.AdvanceFrame(0); err != nil {
		t.Fatal(err)
	}
	if got := s.TotalDensity(); math.Abs(got-4*6*DefaultFrameTimeInterval) > 1e-9 {
		t.Errorf("total density = %v, want %v", got, 4*6*DefaultFrameTimeInterval)
	}
	if lo, hi := s.DensityRange(); lo != 0 || hi <= 0 {
		t.Errorf("density range = [%v, %v]", lo, hi)
	}
}

func TestColliderExcludesDensity(t *testing.T) {
	s := newTestSolver(t, 12, 1)
	c := s.SetCircularObstacle(mgl64.Vec2{6, 6}, 2)
	if s.Collider() != Collider(c) {
		t.Fatal("collider not installed")
	}
	s.Initialize()
	sdf := s.ColliderSdf()
	if sdf == nil || !IsInsideSdf(sdf.At(7, 7)) {
		t.Fatal("collider sdf should be negative at the circle centre")
	}
	if IsInsideSdf(sdf.At(2, 2)) {
		t.Fatal("collider sdf should be positive far from the circle")
	}
}

func TestApplyForce(t *testing.T) {
	s := newTestSolver(t, 10, 1)

	s.ApplyForce(5, 5, 3, -2)
	if got := s.Velocity().U().At(5, 5); got != 3 {
		t.Errorf("expected U=3, got %f", got)
	}
	if got := s.Velocity().V().At(5, 5); got != -2 {
		t.Errorf("expected V=-2, got %f", got)
	}

	// Force on solid cell should be a no-op
	s.SetCircularObstacle(s.Density().DataPosition(7, 7), 0.4)
	s.ApplyForce(7, 7, 10, 10)
	if s.Velocity().U().At(7, 7) != 0 || s.Velocity().V().At(7, 7) != 0 {
		t.Error("force should not apply to solid cells")
	}

	// Ghost cells are ignored
	s.ApplyForce(0, 0, 1, 1)
	if s.Velocity().U().At(0, 0) != 0 {
		t.Error("force should not apply to ghost cells")
	}
}

func TestApplyForceRadius(t *testing.T) {
	s := newTestSolver(t, 20, 1)
	cx, cy := 10, 10
	s.ApplyForceRadius(cx, cy, 5, 0, 3)

	u := s.Velocity().U()
	if u.At(cx, cy) < 4.5 {
		t.Errorf("center should have near-full force, got %f", u.At(cx, cy))
	}
	edge := u.At(cx+3, cy)
	if edge >= u.At(cx, cy) || edge <= 0 {
		t.Errorf("edge force should be positive and below the centre: edge=%f centre=%f", edge, u.At(cx, cy))
	}
	if u.At(cx+4, cy) != 0 {
		t.Errorf("outside radius should be zero, got %f", u.At(cx+4, cy))
	}
}

func TestSetCircularObstacle(t *testing.T) {
	s := newTestSolver(t, 20, 1)
	s.SetCircularObstacle(s.Density().DataPosition(10, 10), 3)

	if !s.IsSolid(10, 10) {
		t.Error("center should be solid")
	}
	if !s.IsSolid(12, 10) {
		t.Error("(12,10) should be solid (dist=2)")
	}
	if s.IsSolid(14, 10) {
		t.Error("(14,10) should not be solid (dist=4)")
	}
}

func TestVorticityField(t *testing.T) {
	s := newTestSolver(t, 10, 1)
	u, v := s.Velocity().U(), s.Velocity().V()
	u.Set(5, 4, 1)
	u.Set(5, 6, -1)
	v.Set(4, 5, -1)
	v.Set(6, 5, 1)

	got, err := s.Vorticity().Value(5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("vorticity at vortex centre = %f, want 1", got)
	}
}

func TestVelocityMagnitudeField(t *testing.T) {
	s := newTestSolver(t, 10, 1)
	u, v := s.Velocity().U(), s.Velocity().V()
	u.Set(5, 5, 3)
	u.Set(6, 5, 3)
	v.Set(5, 5, 4)
	v.Set(5, 6, 4)

	got, err := s.VelocityMagnitude().Value(5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-5) > 1e-12 {
		t.Errorf("expected velocity magnitude 5, got %f", got)
	}
}

func TestReset(t *testing.T) {
	s := newTestSolver(t, 6, 1)
	s.AddDensity(2, 2, 3)
	s.SetVelocity(3, 3, 1, 1)
	s.Reset()
	if s.TotalDensity() != 0 || s.Velocity().MaxSpeed() != 0 {
		t.Error("reset left state behind")
	}
}

func TestSmokeStaysBoundedWithObstacle(t *testing.T) {
	cfg := DefaultConfig(24, 1.0/24)
	cfg.ViscosityCoefficient = 0.001
	s, err := NewGridSolver(cfg)
	if err != nil {
		t.Fatal(err)
	}
	s.SetCircularObstacle(mgl64.Vec2{0.5, 0.6}, 0.12)
	e := NewVolumeEmitter(Box{Lower: mgl64.Vec2{0.4, 0.05}, Upper: mgl64.Vec2{0.6, 0.15}}, 10)
	e.MaxDensity = 1
	e.SetsVelocity = true
	e.Velocity = mgl64.Vec2{0, 2}
	s.SetEmitter(e)

	for frame := 0; frame < 20; frame++ {
		if err := s.AdvanceFrame(frame); err != nil {
			t.Fatal(err)
		}
	}
	lo, hi := s.DensityRange()
	if lo < -1e-9 || hi > 1+1e-9 {
		t.Errorf("density left [0, 1]: [%g, %g]", lo, hi)
	}
	if math.IsNaN(s.Velocity().MaxSpeed()) {
		t.Fatal("velocity became NaN")
	}
}
