package render

import (
	"fmt"
	"math"

	"github.com/taigrr/softrender/pkg/math3d"
)

// Draw renders the bound geometry. Triangles come from consecutive index
// triples when an index buffer is bound, or consecutive vertices otherwise;
// a trailing partial triangle is ignored.
//
// env supplies the ambient color and viewer position; together with the
// light list it forms the Lighting passed to the shader.
func (r *Rasterizer) Draw(mode PrimitiveMode, env Environment) error {
	if r.boundVertex == NoBuffer {
		Logger().Warn("draw refused", "reason", ErrNoVertexBuffer)
		return ErrNoVertexBuffer
	}
	if mode != Triangles && mode != Lines {
		return fmt.Errorf("render: unknown primitive mode %d", mode)
	}
	if mode == Triangles && r.shader == nil {
		Logger().Warn("draw refused", "reason", ErrNoShader)
		return ErrNoShader
	}

	vb := r.vertexBuffers[r.boundVertex]
	var indices []int
	count := len(vb.vertices)
	if r.boundIndex != NoBuffer {
		indices = r.indexBuffers[r.boundIndex]
		count = len(indices)
		for i, idx := range indices {
			if idx >= len(vb.vertices) {
				err := fmt.Errorf("%w: index %d at position %d, vertex buffer %d holds %d vertices",
					ErrIndexOutOfRange, idx, i, r.boundVertex, len(vb.vertices))
				Logger().Warn("draw refused", "reason", err)
				return err
			}
		}
	}
	if count < 3 {
		return nil
	}

	mvp := r.projection.Mul(r.view).Mul(r.model)
	if !NewFrustumFromMatrix(mvp).IntersectAABB(vb.bounds) {
		r.stats.Rejected++
		Logger().Debug("draw rejected by frustum", "vertexBuffer", int(r.boundVertex))
		return nil
	}
	r.stats.Draws++
	r.transformVertices(vb.vertices, mvp)

	lit := Lighting{Ambient: env.Ambient, Eye: env.Eye, Lights: r.lights}
	before := r.stats
	for t := 0; t+2 < count; t += 3 {
		i0, i1, i2 := t, t+1, t+2
		if indices != nil {
			i0, i1, i2 = indices[t], indices[t+1], indices[t+2]
		}
		v0, v1, v2 := &r.transformed[i0], &r.transformed[i1], &r.transformed[i2]
		if mode == Lines {
			r.drawWireTriangle(v0, v1, v2)
			continue
		}
		r.drawTriangle(v0, v1, v2, &lit)
	}

	Logger().Debug("draw",
		"mode", mode.String(),
		"triangles", r.stats.Triangles-before.Triangles,
		"clipped", r.stats.Clipped-before.Clipped,
		"culled", r.stats.Culled-before.Culled,
		"fragments", r.stats.Fragments-before.Fragments,
		"depthRejected", r.stats.DepthRejected-before.DepthRejected,
	)
	return nil
}

// transformVertices runs the vertex stage over every vertex of the buffer.
func (r *Rasterizer) transformVertices(vs []Vertex, mvp math3d.Mat4) {
	if cap(r.transformed) < len(vs) {
		r.transformed = make([]clipVertex, len(vs))
	}
	r.transformed = r.transformed[:len(vs)]

	normalMat := r.model.NormalMatrix()
	for i, v := range vs {
		p := math3d.V4FromV3(v.Position, 1)
		t := r.model.MulVec3Dir(v.Tangent.Vec3()).Normalize()
		r.transformed[i] = clipVertex{
			pos: mvp.MulVec4(p),
			varyings: varyings{
				worldPos: r.model.MulVec4(p).Vec3(),
				normal:   normalMat.MulVec3Dir(v.Normal).Normalize(),
				tangent:  math3d.V4FromV3(t, v.Tangent.W),
				uv:       v.UV,
				color:    v.Color,
			},
		}
	}
}

func (r *Rasterizer) drawTriangle(v0, v1, v2 *clipVertex, lit *Lighting) {
	r.stats.Triangles++
	poly := r.clip.clip([3]clipVertex{*v0, *v1, *v2})
	if len(poly) < 3 {
		r.stats.Clipped++
		return
	}
	for i := 1; i+1 < len(poly); i++ {
		r.rasterize(&poly[0], &poly[i], &poly[i+1], lit)
	}
}

// screenVertex is a clip vertex after the perspective divide and viewport
// mapping.
type screenVertex struct {
	x, y float64 // pixels, y up
	z    float64 // NDC z
	invW float64
	*varyings
}

func (r *Rasterizer) toScreen(v *clipVertex) screenVertex {
	invW := 1 / v.pos.W
	return screenVertex{
		x:        (v.pos.X*invW + 1) * 0.5 * float64(r.fb.width),
		y:        (v.pos.Y*invW + 1) * 0.5 * float64(r.fb.height),
		z:        v.pos.Z * invW,
		invW:     invW,
		varyings: &v.varyings,
	}
}

// rasterize scan converts one clipped triangle.
func (r *Rasterizer) rasterize(c0, c1, c2 *clipVertex, lit *Lighting) {
	if c0.pos.W <= 0 || c1.pos.W <= 0 || c2.pos.W <= 0 {
		r.stats.Clipped++
		return
	}
	sv := [3]screenVertex{r.toScreen(c0), r.toScreen(c1), r.toScreen(c2)}

	edges, ok := newEdgeSetup(
		math3d.V2(sv[0].x, sv[0].y),
		math3d.V2(sv[1].x, sv[1].y),
		math3d.V2(sv[2].x, sv[2].y),
	)
	if !ok {
		r.stats.Degenerate++
		return
	}
	if (r.cull == CullBack && edges.area > 0) || (r.cull == CullFront && edges.area < 0) {
		r.stats.Culled++
		return
	}

	fb := r.fb
	minX := int(math.Max(0, math.Floor(min(sv[0].x, sv[1].x, sv[2].x))))
	maxX := int(math.Min(float64(fb.width-1), math.Ceil(max(sv[0].x, sv[1].x, sv[2].x))))
	minY := int(math.Max(0, math.Floor(min(sv[0].y, sv[1].y, sv[2].y))))
	maxY := int(math.Min(float64(fb.height-1), math.Ceil(max(sv[0].y, sv[1].y, sv[2].y))))

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			b0, b1, b2, inside := edges.weights(float64(x)+0.5, py)
			if !inside {
				continue
			}

			z := b0*sv[0].z + b1*sv[1].z + b2*sv[2].z
			depth := (z + 1) * 0.5
			idx := y*fb.width + x
			if !(depth < fb.depth[idx]) {
				r.stats.DepthRejected++
				continue
			}
			fb.depth[idx] = depth

			w0, w1, w2 := perspectiveWeights(b0, b1, b2, &sv)

			a0, a1, a2 := sv[0].varyings, sv[1].varyings, sv[2].varyings
			frag := Fragment{
				X:        x,
				Y:        y,
				Depth:    depth,
				WorldPos: blend3(a0.worldPos, a1.worldPos, a2.worldPos, w0, w1, w2),
				Normal:   blend3(a0.normal, a1.normal, a2.normal, w0, w1, w2).Normalize(),
				Tangent: math3d.Vec4{
					X: w0*a0.tangent.X + w1*a1.tangent.X + w2*a2.tangent.X,
					Y: w0*a0.tangent.Y + w1*a1.tangent.Y + w2*a2.tangent.Y,
					Z: w0*a0.tangent.Z + w1*a1.tangent.Z + w2*a2.tangent.Z,
					W: w0*a0.tangent.W + w1*a1.tangent.W + w2*a2.tangent.W,
				},
				UV: math3d.Vec2{
					X: w0*a0.uv.X + w1*a1.uv.X + w2*a2.uv.X,
					Y: w0*a0.uv.Y + w1*a1.uv.Y + w2*a2.uv.Y,
				},
				Color: Color{
					R: w0*a0.color.R + w1*a1.color.R + w2*a2.color.R,
					G: w0*a0.color.G + w1*a1.color.G + w2*a2.color.G,
					B: w0*a0.color.B + w1*a1.color.B + w2*a2.color.B,
					A: w0*a0.color.A + w1*a1.color.A + w2*a2.color.A,
				},
			}
			fb.color[idx] = r.shader.Shade(frag, *lit)
			r.stats.Fragments++
		}
	}
}

// perspectiveWeights turns screen-space barycentrics into weights that
// interpolate attributes linearly in view space: blend 1/w, recover the
// view depth, then rescale.
func perspectiveWeights(b0, b1, b2 float64, sv *[3]screenVertex) (w0, w1, w2 float64) {
	w0, w1, w2 = b0*sv[0].invW, b1*sv[1].invW, b2*sv[2].invW
	viewDepth := 1 / (w0 + w1 + w2)
	return w0 * viewDepth, w1 * viewDepth, w2 * viewDepth
}

func blend3(a, b, c math3d.Vec3, w0, w1, w2 float64) math3d.Vec3 {
	return math3d.Vec3{
		X: w0*a.X + w1*b.X + w2*c.X,
		Y: w0*a.Y + w1*b.Y + w2*c.Y,
		Z: w0*a.Z + w1*b.Z + w2*c.Z,
	}
}

// edgeSetup holds the edge functions of a screen-space triangle.
// Edge i is opposite vertex i: e0 runs v1->v2, e1 v2->v0, e2 v0->v1.
// Each evaluates to A*x + B*y + C.
type edgeSetup struct {
	a, b, c [3]float64
	area    float64 // signed, positive for counter-clockwise (y up)
	invArea float64
}

func edgeCoeffs(p, q math3d.Vec2) (a, b, c float64) {
	return p.Y - q.Y, q.X - p.X, p.X*q.Y - q.X*p.Y
}

// newEdgeSetup prepares the edge functions of triangle p0 p1 p2.
// It reports false for a triangle with zero area.
func newEdgeSetup(p0, p1, p2 math3d.Vec2) (edgeSetup, bool) {
	area := p1.Sub(p0).Cross(p2.Sub(p0))
	if area == 0 || math.IsNaN(area) {
		return edgeSetup{}, false
	}
	var e edgeSetup
	e.a[0], e.b[0], e.c[0] = edgeCoeffs(p1, p2)
	e.a[1], e.b[1], e.c[1] = edgeCoeffs(p2, p0)
	e.a[2], e.b[2], e.c[2] = edgeCoeffs(p0, p1)
	e.area = area
	e.invArea = 1 / area
	return e, true
}

// weights returns the barycentric coordinates of (x, y) and whether the
// point lies inside the triangle or on its boundary. Dividing by the signed
// area makes the inside test independent of winding.
func (e *edgeSetup) weights(x, y float64) (b0, b1, b2 float64, inside bool) {
	b0 = (e.a[0]*x + e.b[0]*y + e.c[0]) * e.invArea
	b1 = (e.a[1]*x + e.b[1]*y + e.c[1]) * e.invArea
	b2 = (e.a[2]*x + e.b[2]*y + e.c[2]) * e.invArea
	return b0, b1, b2, b0 >= 0 && b1 >= 0 && b2 >= 0
}

// drawWireTriangle draws the three edges of a triangle with the line color.
// Triangles with a vertex behind the eye are skipped; edges are clipped to
// the view volume.
func (r *Rasterizer) drawWireTriangle(v0, v1, v2 *clipVertex) {
	r.stats.Triangles++
	vs := [3]*clipVertex{v0, v1, v2}
	for _, v := range vs {
		if v.pos.W <= 0 {
			r.stats.Clipped++
			return
		}
	}
	drawn := false
	for i := range 3 {
		if r.drawClipLine(vs[i].pos, vs[(i+1)%3].pos, r.lineColor) {
			drawn = true
		}
	}
	if !drawn {
		r.stats.Clipped++
	}
}

// drawClipLine clips the clip space segment ab and draws what remains. It
// reports whether anything was left to draw.
func (r *Rasterizer) drawClipLine(a, b math3d.Vec4, c Color) bool {
	a, b, ok := clipSegment(a, b)
	if !ok {
		return false
	}
	x0, y0, ok := r.linePixel(a)
	if !ok {
		return false
	}
	x1, y1, ok := r.linePixel(b)
	if !ok {
		return false
	}
	r.fb.DrawLine(x0, y0, x1, y1, c)
	return true
}

// linePixel maps a clip space position to a pixel for line drawing. It
// reports false for points on or behind the eye plane.
func (r *Rasterizer) linePixel(p math3d.Vec4) (x, y int, ok bool) {
	if p.W <= 0 {
		return 0, 0, false
	}
	ndc := p.PerspectiveDivide()
	x = int(math.Floor((ndc.X + 1) * 0.5 * float64(r.fb.width)))
	y = int(math.Floor((ndc.Y + 1) * 0.5 * float64(r.fb.height)))
	return x, y, true
}
