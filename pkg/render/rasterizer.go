package render

import (
	"math"

	"github.com/taigrr/softrender/pkg/math3d"
)

// PrimitiveMode selects how Draw interprets the bound geometry.
type PrimitiveMode int

const (
	Triangles PrimitiveMode = iota // filled, clipped, depth-tested, shaded
	Lines                          // triangle edges only, no clipping or depth
)

func (m PrimitiveMode) String() string {
	switch m {
	case Triangles:
		return "triangles"
	case Lines:
		return "lines"
	}
	return "unknown"
}

// CullMode selects which triangle winding is discarded.
// Front faces wind clockwise on screen.
type CullMode int

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

func (m CullMode) String() string {
	switch m {
	case CullNone:
		return "none"
	case CullBack:
		return "back"
	case CullFront:
		return "front"
	}
	return "unknown"
}

// DrawStats counts what happened to triangles since the last ResetStats.
type DrawStats struct {
	Draws         int // Draw calls that rasterized geometry
	Rejected      int // Draw calls skipped because the buffer bounds were outside the frustum
	Triangles     int // Triangles submitted
	Clipped       int // Triangles clipped away entirely
	Culled        int // Triangles discarded by winding
	Degenerate    int // Triangles with zero screen area
	Fragments     int // Fragments shaded
	DepthRejected int // Fragments that failed the depth test
}

// Rasterizer is a CPU rendering pipeline. It owns geometry buffers, render
// state and the frame buffer it draws into. It is not safe for concurrent use.
type Rasterizer struct {
	fb *FrameBuffer

	vertexBuffers []*vertexBuffer
	indexBuffers  [][]int
	boundVertex   BufferHandle
	boundIndex    BufferHandle

	model      math3d.Mat4
	view       math3d.Mat4
	projection math3d.Mat4
	cull       CullMode
	shader     Shader
	lights     []Light
	lineColor  Color

	clip        *clipper
	transformed []clipVertex
	stats       DrawStats
}

// NewRasterizer creates a rasterizer drawing into a new width x height
// frame buffer. Matrices start as identity and back faces are culled.
func NewRasterizer(width, height int) *Rasterizer {
	return &Rasterizer{
		fb:          NewFrameBuffer(width, height),
		boundVertex: NoBuffer,
		boundIndex:  NoBuffer,
		model:       math3d.Identity(),
		view:        math3d.Identity(),
		projection:  math3d.Identity(),
		cull:        CullBack,
		lineColor:   ColorWhite,
		clip:        newClipper(),
	}
}

// Resize replaces the frame buffer with one of the new size. Buffers and
// render state are kept.
func (r *Rasterizer) Resize(width, height int) {
	if width == r.fb.Width() && height == r.fb.Height() {
		return
	}
	r.fb = NewFrameBuffer(width, height)
}

// Width returns the frame buffer width.
func (r *Rasterizer) Width() int { return r.fb.Width() }

// Height returns the frame buffer height.
func (r *Rasterizer) Height() int { return r.fb.Height() }

// Aspect returns width / height of the frame buffer.
func (r *Rasterizer) Aspect() float64 {
	return float64(r.fb.Width()) / float64(r.fb.Height())
}

// SetModel sets the model-to-world transform.
func (r *Rasterizer) SetModel(m math3d.Mat4) { r.model = m }

// SetView sets the world-to-view transform.
func (r *Rasterizer) SetView(m math3d.Mat4) { r.view = m }

// SetProjection sets the view-to-clip transform.
func (r *Rasterizer) SetProjection(m math3d.Mat4) { r.projection = m }

// SetCullMode sets which winding is discarded.
func (r *Rasterizer) SetCullMode(m CullMode) { r.cull = m }

// SetShader sets the shading stage used by triangle draws.
func (r *Rasterizer) SetShader(s Shader) { r.shader = s }

// SetLights replaces the light list.
func (r *Rasterizer) SetLights(lights ...Light) {
	r.lights = append(r.lights[:0], lights...)
}

// SetLineColor sets the color of Lines draws.
func (r *Rasterizer) SetLineColor(c Color) { r.lineColor = c }

// Model returns the current model matrix.
func (r *Rasterizer) Model() math3d.Mat4 { return r.model }

// View returns the current view matrix.
func (r *Rasterizer) View() math3d.Mat4 { return r.view }

// Projection returns the current projection matrix.
func (r *Rasterizer) Projection() math3d.Mat4 { return r.projection }

// Perspective returns a left-handed perspective projection. fovy is the
// vertical field of view in degrees.
func (r *Rasterizer) Perspective(near, far, fovy, aspect float64) math3d.Mat4 {
	return math3d.PerspectiveLH(fovy*math.Pi/180, aspect, near, far)
}

// Orthographic returns a left-handed orthographic projection covering
// height world units vertically.
func (r *Rasterizer) Orthographic(near, far, height, aspect float64) math3d.Mat4 {
	return math3d.OrthographicLH(height, aspect, near, far)
}

// ClearOption overrides a Clear default.
type ClearOption func(*clearOptions)

type clearOptions struct {
	color Color
	depth float64
}

// WithClearColor sets the color written by a ClearColor clear.
func WithClearColor(c Color) ClearOption {
	return func(o *clearOptions) { o.color = c }
}

// WithClearDepth sets the depth written by a ClearDepth clear.
func WithClearDepth(d float64) ClearOption {
	return func(o *clearOptions) { o.depth = d }
}

// Clear clears the frame buffer attachments selected by mask. The color
// defaults to opaque black and the depth to MaxDepth.
func (r *Rasterizer) Clear(mask ClearMask, opts ...ClearOption) {
	o := clearOptions{color: ColorBlack, depth: MaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	r.fb.Clear(mask, o.color, o.depth)
}

// OutputColorBuffer returns the frame buffer holding the rendered image.
func (r *Rasterizer) OutputColorBuffer() *FrameBuffer { return r.fb }

// Stats returns the counters accumulated since the last ResetStats.
func (r *Rasterizer) Stats() DrawStats { return r.stats }

// ResetStats zeroes the draw counters.
func (r *Rasterizer) ResetStats() { r.stats = DrawStats{} }
