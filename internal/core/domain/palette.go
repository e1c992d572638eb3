package domain

import (
	"fmt"
	"math"
)

// Color is an RGB triple with components nominally in [0,1]. Components are
// serialized as-is, so extrapolated palettes reach the renderer unclamped.
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Hex builds a Color from a 0xRRGGBB literal.
func Hex(v uint32) Color {
	return Color{
		R: float64((v>>16)&0xFF) / 255,
		G: float64((v>>8)&0xFF) / 255,
		B: float64(v&0xFF) / 255,
	}
}

// Lerp interpolates toward other by t. t is not clamped, so values outside
// [0,1] extrapolate past either endpoint.
func (c Color) Lerp(other Color, t float64) Color {
	return Color{
		R: c.R + (other.R-c.R)*t,
		G: c.G + (other.G-c.G)*t,
		B: c.B + (other.B-c.B)*t,
	}
}

// String renders the color as #rrggbb, clamping each channel into a byte.
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", channelByte(c.R), channelByte(c.G), channelByte(c.B))
}

// HSL converts to hue, saturation and lightness, each in [0,1].
func (c Color) HSL() (h, s, l float64) {
	max := math.Max(c.R, math.Max(c.G, c.B))
	min := math.Min(c.R, math.Min(c.G, c.B))
	l = (min + max) / 2
	if min == max {
		return 0, 0, l
	}
	delta := max - min
	if l <= 0.5 {
		s = delta / (max + min)
	} else {
		s = delta / (2 - max - min)
	}
	switch max {
	case c.R:
		h = (c.G - c.B) / delta
		if c.G < c.B {
			h += 6
		}
	case c.G:
		h = (c.B-c.R)/delta + 2
	default:
		h = (c.R-c.G)/delta + 4
	}
	return h / 6, s, l
}

// FromHSL builds a color from hue, saturation and lightness. Hue wraps around
// [0,1); saturation and lightness are clamped.
func FromHSL(h, s, l float64) Color {
	h = h - math.Floor(h)
	s = clamp01(s)
	l = clamp01(l)
	if s == 0 {
		return Color{R: l, G: l, B: l}
	}
	var q float64
	if l <= 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return Color{
		R: hueToRGB(p, q, h+1.0/3),
		G: hueToRGB(p, q, h),
		B: hueToRGB(p, q, h-1.0/3),
	}
}

// OffsetHSL shifts the color in HSL space.
func (c Color) OffsetHSL(dh, ds, dl float64) Color {
	h, s, l := c.HSL()
	return FromHSL(h+dh, s+ds, l+dl)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*6*(2.0/3-t)
	}
	return p
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func channelByte(v float64) int {
	return int(math.Round(clamp01(v) * 255))
}

// ColorPalette holds the nine scene colors derived from valence.
type ColorPalette struct {
	Sky      Color `json:"sky"`
	Sand     Color `json:"sand"`
	Grass    Color `json:"grass"`
	Grass2   Color `json:"grass2"`
	Rock     Color `json:"rock"`
	Mountain Color `json:"mountain"`
	Snow     Color `json:"snow"`
	Tree     Color `json:"tree"`
	Ocean    Color `json:"ocean"`
}

// ColdPalette and WarmPalette are the interpolation endpoints for valence 0 and 1.
var (
	ColdPalette = ColorPalette{
		Sky:      Hex(0x7A8B9C),
		Sand:     Hex(0xA0A8B0),
		Grass:    Hex(0x5B8B7D),
		Grass2:   Hex(0x4A6B5B),
		Rock:     Hex(0x6B7B8C),
		Mountain: Hex(0x3D4A5C),
		Snow:     Hex(0xD5E5F0),
		Tree:     Hex(0x2B5F5F),
		Ocean:    Hex(0x2B5876),
	}
	WarmPalette = ColorPalette{
		Sky:      Hex(0xFFB584),
		Sand:     Hex(0xE8C170),
		Grass:    Hex(0xA8C256),
		Grass2:   Hex(0x7B8E3D),
		Rock:     Hex(0xA0653F),
		Mountain: Hex(0x5C3D2E),
		Snow:     Hex(0xFFEBD9),
		Tree:     Hex(0x6B8E23),
		Ocean:    Hex(0x48C9B0),
	}
)

// PaletteFor interpolates every slot between the cold and warm endpoints using
// valence directly. Out-of-range valence extrapolates.
func PaletteFor(valence float64) ColorPalette {
	c, w := ColdPalette, WarmPalette
	return ColorPalette{
		Sky:      c.Sky.Lerp(w.Sky, valence),
		Sand:     c.Sand.Lerp(w.Sand, valence),
		Grass:    c.Grass.Lerp(w.Grass, valence),
		Grass2:   c.Grass2.Lerp(w.Grass2, valence),
		Rock:     c.Rock.Lerp(w.Rock, valence),
		Mountain: c.Mountain.Lerp(w.Mountain, valence),
		Snow:     c.Snow.Lerp(w.Snow, valence),
		Tree:     c.Tree.Lerp(w.Tree, valence),
		Ocean:    c.Ocean.Lerp(w.Ocean, valence),
	}
}
