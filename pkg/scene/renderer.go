package scene

import (
	"fmt"
	"time"

	"github.com/taigrr/softrender/pkg/render"
)

var gridColor = render.Gray(0.35)

// Renderer draws scenes into a rasterizer, one frame per Render call.
type Renderer struct {
	r *render.Rasterizer
}

// NewRenderer creates a renderer drawing with r.
func NewRenderer(r *render.Rasterizer) *Renderer {
	return &Renderer{r: r}
}

// Rasterizer returns the rasterizer frames are drawn with.
func (rd *Renderer) Rasterizer() *render.Rasterizer {
	return rd.r
}

// Render draws one frame of s: clear color and depth, set view, projection
// and lights, then draw every object part. Wireframe scenes draw lines
// instead of filled triangles. The ground grid is drawn first, the other
// debug overlays last.
func (rd *Renderer) Render(s *Scene) error {
	start := time.Now()
	r := rd.r
	r.ResetStats()
	r.Clear(render.ClearColor|render.ClearDepth, render.WithClearColor(s.Background))

	s.Camera.Apply(r)
	r.SetLights(s.Lights...)
	r.SetLineColor(s.LineColor)
	env := render.Environment{Ambient: s.Ambient, Eye: s.Camera.Position()}

	// The grid is not depth tested, so it goes first and objects cover it.
	if s.Grid > 0 {
		r.DrawGrid(s.Grid, 1, gridColor)
	}

	mode := render.Triangles
	if s.Wireframe {
		mode = render.Lines
	}

	if err := rd.drawObjects(s, mode, env); err != nil {
		return err
	}

	if s.Axes > 0 {
		r.DrawAxes(s.Axes)
	}
	r.OutputColorBuffer().Apply()

	st := r.Stats()
	render.Logger().Debug("frame rendered",
		"frame", r.OutputColorBuffer().Frame(),
		"elapsed", time.Since(start),
		"draws", st.Draws,
		"rejected", st.Rejected,
		"triangles", st.Triangles,
		"culled", st.Culled,
		"fragments", st.Fragments)
	return nil
}

// drawObjects draws every object part. Buffers are unbound on return, also
// when a draw fails.
func (rd *Renderer) drawObjects(s *Scene, mode render.PrimitiveMode, env render.Environment) error {
	r := rd.r
	defer func() {
		r.UnbindIndexBuffer()
		r.UnbindVertexBuffer()
	}()

	for _, obj := range s.Objects {
		r.SetModel(obj.Matrix())
		r.SetCullMode(obj.Cull)
		if err := r.BindVertexBuffer(obj.Model.VertexBuffer); err != nil {
			return fmt.Errorf("object %s: %w", obj.Name, err)
		}
		for i, part := range obj.Model.Parts {
			if err := r.BindIndexBuffer(part.IndexBuffer); err != nil {
				return fmt.Errorf("object %s: %w", obj.Name, err)
			}
			r.SetShader(obj.Shaders[i])
			if err := r.Draw(mode, env); err != nil {
				return fmt.Errorf("object %s: %w", obj.Name, err)
			}
		}
		if s.Bounds {
			r.DrawBounds(obj.Model.Bounds, s.LineColor)
		}
	}
	return nil
}
