// Package render is a CPU rasterizer: geometry buffers, homogeneous clipping,
// scan conversion with perspective-correct interpolation, early depth testing
// and pluggable shading stages writing into a FrameBuffer.
package render

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
)

// MaxDepth is the "infinitely far" depth written by a default depth clear.
// Any fragment in [0, 1] passes the depth test against it.
const MaxDepth = math.MaxFloat64

// ClearMask selects which attachments Clear touches.
type ClearMask uint8

const (
	ClearColor ClearMask = 1 << iota
	ClearDepth
)

// FrameBuffer owns a color attachment and a depth attachment of the same size.
//
// Row 0 is the bottom of the image, matching screen space where y grows
// upward. ToImage flips rows so exported pictures are upright.
type FrameBuffer struct {
	width  int
	height int
	color  []Color
	depth  []float64
	frames int
}

// NewFrameBuffer allocates a width x height frame buffer. Color starts as
// transparent black and depth as MaxDepth.
func NewFrameBuffer(width, height int) *FrameBuffer {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("render: invalid frame buffer size %dx%d", width, height))
	}
	fb := &FrameBuffer{
		width:  width,
		height: height,
		color:  make([]Color, width*height),
		depth:  make([]float64, width*height),
	}
	for i := range fb.depth {
		fb.depth[i] = MaxDepth
	}
	return fb
}

// Width returns the width in pixels.
func (fb *FrameBuffer) Width() int { return fb.width }

// Height returns the height in pixels.
func (fb *FrameBuffer) Height() int { return fb.height }

// Frame returns how many times Apply has been called.
func (fb *FrameBuffer) Frame() int { return fb.frames }

func (fb *FrameBuffer) index(x, y int) int {
	if x < 0 || x >= fb.width || y < 0 || y >= fb.height {
		panic(fmt.Sprintf("render: pixel (%d, %d) outside %dx%d frame buffer", x, y, fb.width, fb.height))
	}
	return y*fb.width + x
}

// ColorAt returns the color at (x, y). It panics if (x, y) is out of bounds.
func (fb *FrameBuffer) ColorAt(x, y int) Color {
	return fb.color[fb.index(x, y)]
}

// SetColor sets the color at (x, y). It panics if (x, y) is out of bounds.
func (fb *FrameBuffer) SetColor(x, y int, c Color) {
	fb.color[fb.index(x, y)] = c
}

// DepthAt returns the depth at (x, y). It panics if (x, y) is out of bounds.
func (fb *FrameBuffer) DepthAt(x, y int) float64 {
	return fb.depth[fb.index(x, y)]
}

// SetDepth sets the depth at (x, y). It panics if (x, y) is out of bounds.
func (fb *FrameBuffer) SetDepth(x, y int, d float64) {
	fb.depth[fb.index(x, y)] = d
}

// Clear writes c to every pixel when mask has ClearColor and d to every
// depth sample when mask has ClearDepth.
func (fb *FrameBuffer) Clear(mask ClearMask, c Color, d float64) {
	if mask&ClearColor != 0 {
		for i := range fb.color {
			fb.color[i] = c
		}
	}
	if mask&ClearDepth != 0 {
		for i := range fb.depth {
			fb.depth[i] = d
		}
	}
}

// Apply marks the current frame as complete. Presenters read the color
// attachment after Apply returns.
func (fb *FrameBuffer) Apply() {
	fb.frames++
}

// DrawLine draws a line from (x0, y0) to (x1, y1) using Bresenham's algorithm.
// Pixels falling outside the frame buffer are skipped.
func (fb *FrameBuffer) DrawLine(x0, y0, x1, y1 int, c Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		if x0 >= 0 && x0 < fb.width && y0 >= 0 && y0 < fb.height {
			fb.color[y0*fb.width+x0] = c
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ToImage converts the color attachment to an upright image.NRGBA.
func (fb *FrameBuffer) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fb.width, fb.height))
	for y := range fb.height {
		row := (fb.height - 1 - y) * fb.width
		for x := range fb.width {
			img.SetNRGBA(x, y, fb.color[row+x].NRGBA())
		}
	}
	return img
}

// ScaledImage returns ToImage enlarged factor times with nearest neighbor
// sampling, keeping pixel edges hard. Factors below 2 return ToImage.
func (fb *FrameBuffer) ScaledImage(factor int) *image.NRGBA {
	src := fb.ToImage()
	if factor < 2 {
		return src
	}
	dst := image.NewNRGBA(image.Rect(0, 0, fb.width*factor, fb.height*factor))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// SavePNG saves the color attachment as a PNG file.
func (fb *FrameBuffer) SavePNG(path string) error {
	return WritePNG(path, fb.ToImage())
}

// WritePNG encodes img to a new file at path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
