package render

import (
	"image/color"
	"math"
)

// Color is a linear RGBA color with components nominally in [0, 1].
// Lighting may push components above 1; they are clamped only on export.
type Color struct {
	R, G, B, A float64
}

// Colors for convenience
var (
	ColorBlack = Color{0, 0, 0, 1}
	ColorWhite = Color{1, 1, 1, 1}
	ColorRed   = Color{1, 0, 0, 1}
	ColorGreen = Color{0, 1, 0, 1}
	ColorBlue  = Color{0, 0, 1, 1}
	ColorGray  = Color{0.5, 0.5, 0.5, 1}
)

// RGB creates an opaque color.
func RGB(r, g, b float64) Color {
	return Color{r, g, b, 1}
}

// RGBA creates a color from all four components.
func RGBA(r, g, b, a float64) Color {
	return Color{r, g, b, a}
}

// Gray creates an opaque gray of intensity v.
func Gray(v float64) Color {
	return Color{v, v, v, 1}
}

// FromColor converts a standard color.Color.
func FromColor(c color.Color) Color {
	r, g, b, a := c.RGBA()
	return Color{
		R: float64(r) / 65535,
		G: float64(g) / 65535,
		B: float64(b) / 65535,
		A: float64(a) / 65535,
	}
}

// NRGBA converts to an 8-bit color, clamping each component to [0, 1].
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{
		R: clamp255(c.R),
		G: clamp255(c.G),
		B: clamp255(c.B),
		A: clamp255(c.A),
	}
}

// Add returns the component-wise sum, alpha included.
func (c Color) Add(o Color) Color {
	return Color{c.R + o.R, c.G + o.G, c.B + o.B, c.A + o.A}
}

// AddRGB adds the color channels of o and keeps the alpha of c.
func (c Color) AddRGB(o Color) Color {
	return Color{c.R + o.R, c.G + o.G, c.B + o.B, c.A}
}

// Mul returns the component-wise product.
func (c Color) Mul(o Color) Color {
	return Color{c.R * o.R, c.G * o.G, c.B * o.B, c.A * o.A}
}

// Scale multiplies every component by s.
func (c Color) Scale(s float64) Color {
	return Color{c.R * s, c.G * s, c.B * s, c.A * s}
}

// ScaleRGB multiplies the color channels by s and keeps alpha.
func (c Color) ScaleRGB(s float64) Color {
	return Color{c.R * s, c.G * s, c.B * s, c.A}
}

// Lerp interpolates between c and o.
func (c Color) Lerp(o Color, t float64) Color {
	return Color{
		R: c.R + (o.R-c.R)*t,
		G: c.G + (o.G-c.G)*t,
		B: c.B + (o.B-c.B)*t,
		A: c.A + (o.A-c.A)*t,
	}
}

// ApproxEqual reports whether all components differ by at most eps.
func (c Color) ApproxEqual(o Color, eps float64) bool {
	return math.Abs(c.R-o.R) <= eps && math.Abs(c.G-o.G) <= eps &&
		math.Abs(c.B-o.B) <= eps && math.Abs(c.A-o.A) <= eps
}

func clamp255(v float64) uint8 {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
