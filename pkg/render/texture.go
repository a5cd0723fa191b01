package render

import (
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"os"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// WrapMode determines how texture coordinates outside [0,1] are handled.
type WrapMode int

const (
	WrapRepeat WrapMode = iota // Tile the texture
	WrapClamp                  // Clamp to edge
	WrapMirror                 // Tile, flipping every other repeat
)

// Texture is a 2D grid of colors addressed by normalized uv with the origin
// at the bottom-left. Sampling is nearest-neighbor only.
type Texture struct {
	Width  int
	Height int
	Pixels []Color // Row-major, row 0 is the top of the image
	WrapU  WrapMode
	WrapV  WrapMode
}

// NewTexture creates an empty texture with the given dimensions.
func NewTexture(width, height int) *Texture {
	return &Texture{
		Width:  width,
		Height: height,
		Pixels: make([]Color, width*height),
	}
}

// LoadTexture loads a texture from a PNG, JPEG, BMP, TIFF or WebP file.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return TextureFromImage(img), nil
}

// TextureFromImage creates a texture from an image.Image.
func TextureFromImage(img image.Image) *Texture {
	bounds := img.Bounds()
	tex := NewTexture(bounds.Dx(), bounds.Dy())
	for y := range tex.Height {
		for x := range tex.Width {
			tex.Pixels[y*tex.Width+x] = FromColor(img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return tex
}

// NewSolidTexture creates a 1x1 texture of a single color.
func NewSolidTexture(c Color) *Texture {
	tex := NewTexture(1, 1)
	tex.Pixels[0] = c
	return tex
}

// NewCheckerTexture creates a procedural checkerboard texture.
func NewCheckerTexture(width, height, checkSize int, c1, c2 Color) *Texture {
	tex := NewTexture(width, height)
	for y := range height {
		for x := range width {
			if (x/checkSize+y/checkSize)%2 == 0 {
				tex.SetPixel(x, y, c1)
			} else {
				tex.SetPixel(x, y, c2)
			}
		}
	}
	return tex
}

// SetPixel sets a pixel in the texture. Out-of-range coordinates are ignored.
func (t *Texture) SetPixel(x, y int, c Color) {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return
	}
	t.Pixels[y*t.Width+x] = c
}

// GetPixel returns the pixel at (x, y), or transparent black out of range.
func (t *Texture) GetPixel(x, y int) Color {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return Color{}
	}
	return t.Pixels[y*t.Width+x]
}

// Sample returns the texel nearest to (u, v).
func (t *Texture) Sample(u, v float64) Color {
	if t == nil || t.Width == 0 || t.Height == 0 {
		return Color{}
	}
	u = wrapCoord(u, t.WrapU)
	v = wrapCoord(v, t.WrapV)

	// Image row 0 is the top, v = 0 is the bottom.
	v = 1.0 - v

	x := int(u * float64(t.Width))
	y := int(v * float64(t.Height))
	if x >= t.Width {
		x = t.Width - 1
	}
	if y >= t.Height {
		y = t.Height - 1
	}
	return t.Pixels[y*t.Width+x]
}

func wrapCoord(coord float64, mode WrapMode) float64 {
	switch mode {
	case WrapClamp:
		return math.Max(0, math.Min(1, coord))
	case WrapMirror:
		f := coord - 2*math.Floor(coord/2) // [0,2)
		if f > 1 {
			f = 2 - f
		}
		return f
	default:
		return coord - math.Floor(coord)
	}
}
