package main

import (
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"

	"github.com/Gls-Facom/SmokeGridSim/pkg/fluid"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smokegridsim",
		Short: "Interactive 2D grid smoke simulation",
		Long: `Runs a staggered-grid smoke solver in a window.

Keys: space pauses, N steps one frame while paused, V cycles the view,
R resets the fields, Q quits. Drag with the left mouse button to push the
fluid and hold the right button to add smoke.

Every flag can also be set in the config file or through SMOKE_<FLAG>
environment variables, e.g. SMOKE_MAX_CFL=2.`,
		SilenceUsage: true,
		RunE:         run,
	}
	registerFlags(cmd)
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	v, err := newViper(cmd)
	if err != nil {
		return err
	}
	cfg, scene, err := loadConfig(v)
	if err != nil {
		return err
	}
	solver, err := fluid.NewGridSolver(cfg)
	if err != nil {
		return err
	}
	game, err := NewGame(solver, scene)
	if err != nil {
		return err
	}

	ebiten.SetWindowSize(cfg.Size[0]*scene.Scale, cfg.Size[1]*scene.Scale)
	ebiten.SetWindowTitle("SmokeGridSim")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(game)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}
