package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Gls-Facom/SmokeGridSim/pkg/fluid"
)

// sceneConfig holds the viewer settings that are not solver parameters.
type sceneConfig struct {
	Scale          int
	Palette        string
	ObstacleRadius float64
	EmitterRate    float64
	JetSpeed       float64
	ForceRadius    int
}

func registerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "config file (yaml, toml or json)")
	f.Int("size", 128, "interior cells per axis")
	f.Float64("spacing", 0, "cell size; 0 fits the domain to [0,1]")
	f.Float64("gravity-x", 0, "gravity along x")
	f.Float64("gravity-y", -9.8, "gravity along y")
	f.Float64("viscosity", 0, "kinematic viscosity")
	f.Float64("diffusion", 0, "smoke diffusion coefficient")
	f.Float64("vorticity", 0, "vorticity confinement strength")
	f.Float64("max-cfl", 5, "CFL number allowed per sub-step")
	f.Int("substeps", 0, "fixed sub-steps per frame; 0 adapts to the CFL number")
	f.Int("max-substeps", fluid.DefaultMaxSubTimeSteps, "upper bound for adaptive sub-steps")
	f.StringSlice("open", nil, "open domain sides: left, right, down, up")
	f.Float64("obstacle-radius", 0.1, "radius of the circular obstacle; 0 disables it")
	f.Float64("emitter-rate", 10, "smoke emitted per second")
	f.Float64("jet-speed", 1, "upward speed of the smoke source")
	f.Int("force-radius", 6, "mouse force radius in cells")
	f.Int("scale", 4, "window pixels per cell")
	f.String("palette", "viridis", "colour map: viridis, inferno, turbo or sci")
	f.Bool("verbose", false, "log solver diagnostics")
}

func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("SMOKE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
	}
	return v, nil
}

var sideFlags = map[string]int{
	"left":  fluid.DirectionLeft,
	"right": fluid.DirectionRight,
	"down":  fluid.DirectionDown,
	"up":    fluid.DirectionUp,
}

func loadConfig(v *viper.Viper) (fluid.Config, sceneConfig, error) {
	n := v.GetInt("size")
	spacing := v.GetFloat64("spacing")
	if spacing == 0 && n > 0 {
		spacing = 1 / float64(n)
	}
	cfg := fluid.DefaultConfig(n, spacing)

	cfg.Gravity = mgl64.Vec2{v.GetFloat64("gravity-x"), v.GetFloat64("gravity-y")}
	cfg.ViscosityCoefficient = v.GetFloat64("viscosity")
	cfg.DensityDiffusionCoefficient = v.GetFloat64("diffusion")
	cfg.VorticityConfinement = v.GetFloat64("vorticity")
	cfg.MaxCfl = v.GetFloat64("max-cfl")
	cfg.MaxSubTimeSteps = v.GetInt("max-substeps")
	if k := v.GetInt("substeps"); k > 0 {
		cfg.UseFixedSubTimeSteps = true
		cfg.NumberOfSubTimeSteps = k
	}
	for _, side := range v.GetStringSlice("open") {
		bit, ok := sideFlags[strings.ToLower(side)]
		if !ok {
			return cfg, sceneConfig{}, fmt.Errorf("unknown side %q", side)
		}
		cfg.ClosedDomainBoundaryFlag &^= bit
	}
	if v.GetBool("verbose") {
		cfg.Logger = log.New(os.Stderr, "fluid: ", log.Lmicroseconds)
	} else {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, sceneConfig{}, err
	}

	scene := sceneConfig{
		Scale:          max(v.GetInt("scale"), 1),
		Palette:        v.GetString("palette"),
		ObstacleRadius: v.GetFloat64("obstacle-radius"),
		EmitterRate:    v.GetFloat64("emitter-rate"),
		JetSpeed:       v.GetFloat64("jet-speed"),
		ForceRadius:    v.GetInt("force-radius"),
	}
	return cfg, scene, nil
}
