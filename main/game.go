package main

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/Gls-Facom/SmokeGridSim/pkg/fluid"
)

type viewMode int

const (
	viewDensity viewMode = iota
	viewVorticity
	viewSpeed
	numViews
)

func (m viewMode) String() string {
	switch m {
	case viewDensity:
		return "density"
	case viewVorticity:
		return "vorticity"
	case viewSpeed:
		return "speed"
	}
	return "?"
}

type Game struct {
	solver  *fluid.GridSolver
	scene   sceneConfig
	palette palette

	paused bool
	view   viewMode
	pixels []byte

	lastX, lastY int
	dragging     bool
}

func NewGame(solver *fluid.GridSolver, scene sceneConfig) (*Game, error) {
	pal, err := newPalette(scene.Palette)
	if err != nil {
		return nil, err
	}
	n := solver.Size()
	g := &Game{
		solver:  solver,
		scene:   scene,
		palette: pal,
		pixels:  make([]byte, 4*n[0]*n[1]),
	}
	g.setupScene()
	return g, nil
}

// setupScene places the obstacle and the smoke jet relative to the domain.
func (g *Game) setupScene() {
	n := g.solver.Size()
	h := g.solver.GridSpacing()
	lo := g.solver.GridOrigin().Add(h)
	w := mgl64.Vec2{float64(n[0]) * h[0], float64(n[1]) * h[1]}

	if g.scene.ObstacleRadius > 0 {
		center := lo.Add(mgl64.Vec2{0.5 * w[0], 0.6 * w[1]})
		g.solver.SetCircularObstacle(center, g.scene.ObstacleRadius*w[0])
	}

	if g.scene.EmitterRate > 0 {
		src := fluid.NewVolumeEmitter(fluid.Box{
			Lower: lo.Add(mgl64.Vec2{0.42 * w[0], h[1]}),
			Upper: lo.Add(mgl64.Vec2{0.58 * w[0], 0.08 * w[1]}),
		}, g.scene.EmitterRate)
		src.MaxDensity = 1
		if g.scene.JetSpeed != 0 {
			src.SetsVelocity = true
			src.Velocity = mgl64.Vec2{0, g.scene.JetSpeed}
		}
		g.solver.SetEmitter(src)
	}
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyV) {
		g.view = (g.view + 1) % numViews
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.solver.Reset()
	}
	g.handleMouse()

	if g.paused && !inpututil.IsKeyJustPressed(ebiten.KeyN) {
		return nil
	}
	next := g.solver.CurrentFrame().Index + 1
	if err := g.solver.AdvanceFrame(next); err != nil {
		var stepErr *fluid.StepError
		if !errors.As(err, &stepErr) {
			return err
		}
		log.Printf("pausing: %v", err)
		g.paused = true
	}
	return nil
}

// cellAt converts a screen position into interior cell indices.
func (g *Game) cellAt(x, y int) (int, int, bool) {
	n := g.solver.Size()
	if x < 0 || y < 0 || x >= n[0] || y >= n[1] {
		return 0, 0, false
	}
	return x + 1, n[1] - y, true
}

func (g *Game) handleMouse() {
	x, y := ebiten.CursorPosition()
	i, j, ok := g.cellAt(x, y)
	left := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	right := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)

	if ok && left && g.dragging {
		dx, dy := float64(x-g.lastX), float64(g.lastY-y)
		if dx != 0 || dy != 0 {
			scale := 1 / (g.solver.GridSpacing()[0] * float64(ebiten.TPS()))
			g.solver.ApplyForceRadius(i, j, dx*scale, dy*scale, g.scene.ForceRadius)
		}
	}
	if ok && right && !g.solver.IsSolid(i, j) {
		g.solver.AddDensity(i, j, 0.5)
	}
	g.dragging = left
	g.lastX, g.lastY = x, y
}

// field returns the grid for the current view and the value range mapped to
// the palette.
func (g *Game) field() (*fluid.ScalarGrid, float64, float64) {
	switch g.view {
	case viewVorticity:
		w := g.solver.Vorticity()
		lo, hi := fluid.InteriorRange(w.GridData)
		m := math.Max(math.Max(-lo, hi), 1e-6)
		return w, -m, m
	case viewSpeed:
		s := g.solver.VelocityMagnitude()
		_, hi := fluid.InteriorRange(s.GridData)
		return s, 0, math.Max(hi, 1e-6)
	}
	_, hi := g.solver.DensityRange()
	return g.solver.Density(), 0, math.Max(hi, 1)
}

func (g *Game) Draw(screen *ebiten.Image) {
	n := g.solver.Size()
	f, lo, hi := g.field()
	sdf := g.solver.ColliderSdf()

	p := 0
	for y := 0; y < n[1]; y++ {
		j := n[1] - y
		for x := 0; x < n[0]; x++ {
			i := x + 1
			if sdf != nil && fluid.IsInsideSdf(sdf.At(i, j)) {
				g.pixels[p], g.pixels[p+1], g.pixels[p+2], g.pixels[p+3] = 0x60, 0x60, 0x60, 0xff
			} else {
				c := g.palette((f.At(i, j) - lo) / (hi - lo))
				g.pixels[p], g.pixels[p+1], g.pixels[p+2], g.pixels[p+3] = c.R, c.G, c.B, 0xff
			}
			p += 4
		}
	}
	screen.WritePixels(g.pixels)

	state := ""
	if g.paused {
		state = " [paused]"
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"SmokeGridSim%s\nFPS: %0.2f\nframe %d t=%.2fs\nview: %s\nmass %.3f div %.2e",
		state, ebiten.ActualFPS(), g.solver.CurrentFrame().Index, g.solver.CurrentTime(),
		g.view, g.solver.TotalDensity(), g.solver.MaxDivergence()))
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	n := g.solver.Size()
	return n[0], n[1]
}
