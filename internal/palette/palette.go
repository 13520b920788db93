// Package palette hands out distinct calendar colors by rotating the hue of
// a base color in sixth-turn steps.
package palette

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"monthcal/internal/model"
)

// Base is the default starting color (a pale blue).
var Base = model.Color{R: 0x91, G: 0xb8, B: 0xc9}

const hueStep = 1.0 / 6

type Palette struct {
	h, s, v float64
	n       int
}

func New(base model.Color) *Palette {
	h, s, v := rgbToHSV(base)
	return &Palette{h: h, s: s, v: v}
}

// Next returns the following color; the sequence repeats after six colors.
func (p *Palette) Next() model.Color {
	p.n = p.n%6 + 1
	h := p.h - float64(p.n)*hueStep
	h -= math.Floor(h)
	return hsvToRGB(h, p.s, p.v)
}

// ParseHex parses "#rrggbb" (the leading '#' is optional).
func ParseHex(s string) (model.Color, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(raw) != 6 {
		return model.Color{}, fmt.Errorf("palette: invalid color %q", s)
	}
	n, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return model.Color{}, fmt.Errorf("palette: invalid color %q: %w", s, err)
	}
	return model.Color{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n)}, nil
}

func rgbToHSV(c model.Color) (h, s, v float64) {
	r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255
	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	v = hi
	if hi == lo {
		return 0, 0, v
	}
	d := hi - lo
	s = d / hi
	switch hi {
	case r:
		h = (g - b) / d
	case g:
		h = 2 + (b-r)/d
	default:
		h = 4 + (r-g)/d
	}
	h /= 6
	h -= math.Floor(h)
	return h, s, v
}

func hsvToRGB(h, s, v float64) model.Color {
	if s == 0 {
		return model.Color{R: to8(v), G: to8(v), B: to8(v)}
	}
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return model.Color{R: to8(r), G: to8(g), B: to8(b)}
}

func to8(x float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, x)) * 255))
}
