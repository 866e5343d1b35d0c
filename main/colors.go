package main

import (
	"fmt"
	"image/color"
	"math"

	"github.com/mazznoer/colorgrad"
)

// palette maps a normalized value in [0, 1] to a colour.
type palette func(t float64) color.RGBA

func newPalette(name string) (palette, error) {
	var grad colorgrad.Gradient
	switch name {
	case "sci":
		return func(t float64) color.RGBA { return getSciValue(t, 0, 1) }, nil
	case "viridis":
		grad = colorgrad.Viridis()
	case "inferno":
		grad = colorgrad.Inferno()
	case "turbo":
		grad = colorgrad.Turbo()
	default:
		return nil, fmt.Errorf("unknown palette %q", name)
	}

	var lut [256]color.RGBA
	for i, c := range grad.Colors(uint(len(lut))) {
		lut[i] = color.RGBAModel.Convert(c).(color.RGBA)
	}
	return func(t float64) color.RGBA {
		i := int(t * float64(len(lut)-1))
		return lut[min(max(i, 0), len(lut)-1)]
	}, nil
}

func getSciValue(val, minVal, maxVal float64) color.RGBA {
	val = min(max(val, minVal), maxVal-0.0001)
	d := maxVal - minVal
	if d <= 0 {
		val = 0.5
	} else {
		val = (val - minVal) / d
	}
	const m = 0.25
	num := math.Floor(val / m)
	s := (val - num*m) / m
	var r, g, b float64

	switch num {
	case 0:
		r = 0.0
		g = s
		b = 1.0
	case 1:
		r = 0.0
		g = 1.0
		b = 1.0 - s
	case 2:
		r = s
		g = 1.0
		b = 0.0
	case 3:
		r = 1.0
		g = 1.0 - s
		b = 0.0
	}

	return color.RGBA{
		R: uint8(255 * r),
		G: uint8(255 * g),
		B: uint8(255 * b),
		A: 0xff,
	}
}
