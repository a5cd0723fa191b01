package render

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/taigrr/softrender/pkg/math3d"
)

// recordShader remembers every fragment it shades and returns white.
type recordShader struct {
	frags map[[2]int]Fragment
}

func newRecordShader() *recordShader {
	return &recordShader{frags: map[[2]int]Fragment{}}
}

func (s *recordShader) Shade(frag Fragment, _ Lighting) Color {
	s.frags[[2]int{frag.X, frag.Y}] = frag
	return ColorWhite
}

// newTestRasterizer returns a rasterizer with identity matrices, a cleared
// frame buffer and the given shader.
func newTestRasterizer(width, height int, s Shader) *Rasterizer {
	r := NewRasterizer(width, height)
	r.SetShader(s)
	r.Clear(ClearColor | ClearDepth)
	return r
}

// upload creates and binds buffers holding vs and, when non-nil, indices.
func upload(t testing.TB, r *Rasterizer, vs []Vertex, indices []int) {
	t.Helper()
	if err := r.BindVertexBuffer(r.GenVertexBuffer()); err != nil {
		t.Fatal(err)
	}
	if err := r.SetVertexBufferData(vs...); err != nil {
		t.Fatal(err)
	}
	if indices == nil {
		r.UnbindIndexBuffer()
		return
	}
	if err := r.BindIndexBuffer(r.GenIndexBuffer()); err != nil {
		t.Fatal(err)
	}
	if err := r.SetIndexBufferData(indices...); err != nil {
		t.Fatal(err)
	}
}

// tri builds an unlit white triangle from NDC positions at depth z.
func tri(z float64, pts ...[2]float64) []Vertex {
	vs := make([]Vertex, len(pts))
	for i, p := range pts {
		vs[i] = Vertex{
			Position: math3d.V3(p[0], p[1], z),
			Normal:   math3d.V3(0, 0, -1),
			Color:    ColorWhite,
		}
	}
	return vs
}

// countColor counts pixels whose color differs from bg.
func countColor(fb *FrameBuffer, bg Color) int {
	n := 0
	for y := range fb.Height() {
		for x := range fb.Width() {
			if fb.ColorAt(x, y) != bg {
				n++
			}
		}
	}
	return n
}

func TestBufferHandles(t *testing.T) {
	r := NewRasterizer(4, 4)

	for want := range 3 {
		if got := r.GenVertexBuffer(); got != BufferHandle(want) {
			t.Errorf("GenVertexBuffer() = %d, want %d", got, want)
		}
	}
	if got := r.GenIndexBuffer(); got != 0 {
		t.Errorf("first index buffer handle = %d, want 0", got)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"bind valid vertex buffer", r.BindVertexBuffer(2), nil},
		{"bind out of range vertex buffer", r.BindVertexBuffer(3), ErrInvalidHandle},
		{"bind negative vertex buffer", r.BindVertexBuffer(-2), ErrInvalidHandle},
		{"bind out of range index buffer", r.BindIndexBuffer(1), ErrInvalidHandle},
		{"unbind with sentinel", r.BindIndexBuffer(NoBuffer), nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.want) {
				t.Errorf("err = %v, want %v", tc.err, tc.want)
			}
		})
	}

	if got := r.BoundVertexBuffer(); got != 2 {
		t.Errorf("failed bind changed binding: got %d, want 2", got)
	}
}

func TestBufferUploadRequiresBinding(t *testing.T) {
	r := NewRasterizer(4, 4)
	if err := r.SetVertexBufferData(Vertex{}); !errors.Is(err, ErrNoVertexBuffer) {
		t.Errorf("vertex upload unbound: err = %v", err)
	}
	if err := r.SetIndexBufferData(0); !errors.Is(err, ErrNoIndexBuffer) {
		t.Errorf("index upload unbound: err = %v", err)
	}
	if err := r.BindIndexBuffer(r.GenIndexBuffer()); err != nil {
		t.Fatal(err)
	}
	if err := r.SetIndexBufferData(0, -1); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("negative index: err = %v", err)
	}
}

func TestBufferAppend(t *testing.T) {
	r := NewRasterizer(4, 4)
	h := r.GenVertexBuffer()
	if err := r.BindVertexBuffer(h); err != nil {
		t.Fatal(err)
	}
	_ = r.SetVertexBufferData(Vertex{Position: math3d.V3(1, 2, 3)})
	_ = r.SetVertexBufferData(Vertex{Position: math3d.V3(-1, 0, 5)}, Vertex{Position: math3d.V3(0, 4, 0)})

	vb := r.vertexBuffers[h]
	if len(vb.vertices) != 3 {
		t.Fatalf("vertex count = %d, want 3", len(vb.vertices))
	}
	if vb.bounds.Min != math3d.V3(-1, 0, 0) || vb.bounds.Max != math3d.V3(1, 4, 5) {
		t.Errorf("bounds = %+v", vb.bounds)
	}
}

func TestDrawUsageErrors(t *testing.T) {
	t.Run("no vertex buffer", func(t *testing.T) {
		r := newTestRasterizer(4, 4, newRecordShader())
		if err := r.Draw(Triangles, Environment{}); !errors.Is(err, ErrNoVertexBuffer) {
			t.Errorf("err = %v, want ErrNoVertexBuffer", err)
		}
	})

	t.Run("no shader", func(t *testing.T) {
		r := newTestRasterizer(4, 4, nil)
		upload(t, r, tri(0, [2]float64{-1, -1}, [2]float64{-1, 1}, [2]float64{1, -1}), nil)
		if err := r.Draw(Triangles, Environment{}); !errors.Is(err, ErrNoShader) {
			t.Errorf("err = %v, want ErrNoShader", err)
		}
		// Lines need no shader.
		if err := r.Draw(Lines, Environment{}); err != nil {
			t.Errorf("lines without shader: %v", err)
		}
	})

	t.Run("index out of range writes nothing", func(t *testing.T) {
		r := newTestRasterizer(4, 4, newRecordShader())
		vs := tri(0, [2]float64{-1, -1}, [2]float64{-1, 1}, [2]float64{1, -1})
		upload(t, r, vs, []int{0, 1, 2, 0, 1, 7})
		err := r.Draw(Triangles, Environment{})
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("err = %v, want ErrIndexOutOfRange", err)
		}
		if n := countColor(r.OutputColorBuffer(), ColorBlack); n != 0 {
			t.Errorf("%d pixels written by a refused draw", n)
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		r := newTestRasterizer(4, 4, newRecordShader())
		upload(t, r, tri(0, [2]float64{-1, -1}, [2]float64{-1, 1}, [2]float64{1, -1}), nil)
		if err := r.Draw(PrimitiveMode(9), Environment{}); err == nil {
			t.Error("expected error for unknown primitive mode")
		}
	})
}

func TestClearScenario(t *testing.T) {
	r := NewRasterizer(5, 3)
	r.Clear(ClearColor|ClearDepth, WithClearColor(ColorBlack), WithClearDepth(MaxDepth))

	fb := r.OutputColorBuffer()
	for y := range fb.Height() {
		for x := range fb.Width() {
			if c := fb.ColorAt(x, y); c != ColorBlack {
				t.Fatalf("pixel (%d, %d) = %v, want black", x, y, c)
			}
			if d := fb.DepthAt(x, y); d != MaxDepth {
				t.Fatalf("depth (%d, %d) = %v, want MaxDepth", x, y, d)
			}
		}
	}
}

func TestClearMask(t *testing.T) {
	r := NewRasterizer(2, 2)
	r.Clear(ClearColor|ClearDepth, WithClearColor(ColorRed), WithClearDepth(0.25))
	r.Clear(ClearColor, WithClearColor(ColorBlue))

	fb := r.OutputColorBuffer()
	if c := fb.ColorAt(1, 1); c != ColorBlue {
		t.Errorf("color = %v, want blue", c)
	}
	if d := fb.DepthAt(1, 1); d != 0.25 {
		t.Errorf("color-only clear touched depth: %v", d)
	}

	r.Clear(ClearDepth)
	if d := fb.DepthAt(0, 0); d != MaxDepth {
		t.Errorf("default clear depth = %v, want MaxDepth", d)
	}
	if c := fb.ColorAt(0, 0); c != ColorBlue {
		t.Errorf("depth-only clear touched color: %v", c)
	}
}

func TestTwoByTwoBlinnPhong(t *testing.T) {
	m := Material{Ambient: 1, Diffuse: 1, Specular: 0, Shininess: 1, BaseColor: ColorWhite}
	r := newTestRasterizer(2, 2, NewBlinnPhongShader(m))
	r.SetLights(Light{Color: ColorWhite, Intensity: 1, Position: math3d.V3(0, 0, -10)})

	// Covers the whole clip square; clipping trims it to the viewport.
	upload(t, r, tri(0, [2]float64{-1, -1}, [2]float64{-1, 3}, [2]float64{3, -1}), nil)

	env := Environment{Ambient: Color{}, Eye: math3d.V3(0, 0, -10)}
	if err := r.Draw(Triangles, env); err != nil {
		t.Fatal(err)
	}

	// Every pixel center sits at (±0.5, ±0.5, 0), equidistant from the light.
	want := 10 / math.Sqrt(100.5)
	fb := r.OutputColorBuffer()
	for y := range 2 {
		for x := range 2 {
			c := fb.ColorAt(x, y)
			if math.Abs(c.R-want) > 1e-9 || math.Abs(c.G-want) > 1e-9 || math.Abs(c.B-want) > 1e-9 {
				t.Errorf("pixel (%d, %d) = %v, want gray %v", x, y, c, want)
			}
			if c.A != 1 {
				t.Errorf("pixel (%d, %d) alpha = %v, want 1", x, y, c.A)
			}
			if d := fb.DepthAt(x, y); math.Abs(d-0.5) > 1e-12 {
				t.Errorf("depth (%d, %d) = %v, want 0.5", x, y, d)
			}
		}
	}
	if got := r.Stats().Fragments; got != 4 {
		t.Errorf("fragments = %d, want 4", got)
	}
}

func TestBackFaceCulling(t *testing.T) {
	// Screen-space (2,2), (2,6), (6,2) on an 8x8 buffer: clockwise, so front.
	front := tri(0, [2]float64{-0.5, -0.5}, [2]float64{-0.5, 0.5}, [2]float64{0.5, -0.5})
	back := []Vertex{front[0], front[2], front[1]}

	inside := 0
	for y := range 8 {
		for x := range 8 {
			px, py := float64(x)+0.5, float64(y)+0.5
			if px >= 2 && py >= 2 && (px-2)+(py-2) <= 4 {
				inside++
			}
		}
	}

	tests := []struct {
		name  string
		cull  CullMode
		verts []Vertex
		want  int
	}{
		{"back culling keeps front face", CullBack, front, inside},
		{"back culling drops back face", CullBack, back, 0},
		{"front culling drops front face", CullFront, front, 0},
		{"front culling keeps back face", CullFront, back, inside},
		{"no culling keeps front face", CullNone, front, inside},
		{"no culling keeps back face", CullNone, back, inside},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRasterizer(8, 8, newRecordShader())
			r.SetCullMode(tc.cull)
			upload(t, r, tc.verts, nil)
			if err := r.Draw(Triangles, Environment{}); err != nil {
				t.Fatal(err)
			}
			if got := countColor(r.OutputColorBuffer(), ColorBlack); got != tc.want {
				t.Errorf("pixels written = %d, want %d", got, tc.want)
			}
			if tc.want == 0 && r.Stats().Culled != 1 {
				t.Errorf("culled = %d, want 1", r.Stats().Culled)
			}
		})
	}
}

func TestDepthTestIdempotence(t *testing.T) {
	vs := tri(0.3, [2]float64{-0.8, -0.8}, [2]float64{-0.2, 0.9}, [2]float64{0.7, -0.4})
	vs[0].Color = ColorRed
	vs[1].Color = ColorGreen
	vs[2].Color = ColorBlue
	shader := &UnlitShader{Material: DefaultMaterial()}

	render := func(times int) (*FrameBuffer, DrawStats) {
		r := newTestRasterizer(16, 16, shader)
		upload(t, r, vs, nil)
		for range times {
			if err := r.Draw(Triangles, Environment{}); err != nil {
				t.Fatal(err)
			}
		}
		return r.OutputColorBuffer(), r.Stats()
	}

	once, s1 := render(1)
	twice, s2 := render(2)
	if s1.Fragments == 0 {
		t.Fatal("triangle produced no fragments")
	}
	for i := range once.color {
		if once.color[i] != twice.color[i] || once.depth[i] != twice.depth[i] {
			t.Fatalf("pixel %d differs after second draw", i)
		}
	}
	if s2.Fragments != s1.Fragments || s2.DepthRejected != s1.Fragments {
		t.Errorf("second draw: fragments %d rejected %d, want %d and %d",
			s2.Fragments, s2.DepthRejected, s1.Fragments, s1.Fragments)
	}
}

func TestDepthClosestWins(t *testing.T) {
	near := tri(-0.5, [2]float64{-1, -1}, [2]float64{-1, 1}, [2]float64{1, -1})
	far := tri(0.5, [2]float64{-1, -1}, [2]float64{-1, 1}, [2]float64{1, -1})
	for i := range near {
		near[i].Color = ColorRed
		far[i].Color = ColorBlue
	}
	shader := &UnlitShader{Material: DefaultMaterial()}

	for _, order := range [][2][]Vertex{{near, far}, {far, near}} {
		r := newTestRasterizer(4, 4, shader)
		for _, vs := range order {
			upload(t, r, vs, nil)
			if err := r.Draw(Triangles, Environment{}); err != nil {
				t.Fatal(err)
			}
		}
		if c := r.OutputColorBuffer().ColorAt(0, 0); c != ColorRed {
			t.Errorf("closest triangle should win regardless of order, got %v", c)
		}
		if d := r.OutputColorBuffer().DepthAt(0, 0); math.Abs(d-0.25) > 1e-12 {
			t.Errorf("depth = %v, want 0.25", d)
		}
	}
}

func TestBarycentricWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := range 200 {
		p := [3]math3d.Vec2{}
		for j := range p {
			p[j] = math3d.V2(rng.Float64()*100, rng.Float64()*100)
		}
		e, ok := newEdgeSetup(p[0], p[1], p[2])
		if !ok {
			continue
		}

		// Random interior point from random convex weights.
		w := [3]float64{rng.Float64() + 0.01, rng.Float64() + 0.01, rng.Float64() + 0.01}
		sum := w[0] + w[1] + w[2]
		x := (w[0]*p[0].X + w[1]*p[1].X + w[2]*p[2].X) / sum
		y := (w[0]*p[0].Y + w[1]*p[1].Y + w[2]*p[2].Y) / sum

		b0, b1, b2, inside := e.weights(x, y)
		if !inside {
			t.Fatalf("case %d: interior point reported outside (%v %v %v)", i, b0, b1, b2)
		}
		if math.Abs(b0+b1+b2-1) > 1e-9 {
			t.Errorf("case %d: weights sum to %v", i, b0+b1+b2)
		}
		if b0 < 0 || b1 < 0 || b2 < 0 {
			t.Errorf("case %d: negative weight %v %v %v", i, b0, b1, b2)
		}
		if math.Abs(b0-w[0]/sum) > 1e-6 || math.Abs(b1-w[1]/sum) > 1e-6 {
			t.Errorf("case %d: weights (%v, %v) want (%v, %v)", i, b0, b1, w[0]/sum, w[1]/sum)
		}
	}
}

func TestBarycentricAtVertices(t *testing.T) {
	p0, p1, p2 := math3d.V2(0, 0), math3d.V2(4, 0), math3d.V2(0, 4)
	e, ok := newEdgeSetup(p0, p1, p2)
	if !ok {
		t.Fatal("triangle reported degenerate")
	}
	tests := []struct {
		name string
		p    math3d.Vec2
		want [3]float64
	}{
		{"vertex 0", p0, [3]float64{1, 0, 0}},
		{"vertex 1", p1, [3]float64{0, 1, 0}},
		{"vertex 2", p2, [3]float64{0, 0, 1}},
		{"edge midpoint", math3d.V2(2, 0), [3]float64{0.5, 0.5, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b0, b1, b2, inside := e.weights(tc.p.X, tc.p.Y)
			if !inside {
				t.Error("boundary point should count as inside")
			}
			got := [3]float64{b0, b1, b2}
			for i := range got {
				if math.Abs(got[i]-tc.want[i]) > 1e-12 {
					t.Errorf("weights = %v, want %v", got, tc.want)
					break
				}
			}
		})
	}

	if _, _, _, inside := e.weights(-1, -1); inside {
		t.Error("point outside triangle reported inside")
	}
}

func TestZeroAreaTriangle(t *testing.T) {
	if _, ok := newEdgeSetup(math3d.V2(0, 0), math3d.V2(1, 1), math3d.V2(2, 2)); ok {
		t.Error("collinear triangle should be degenerate")
	}

	r := newTestRasterizer(8, 8, newRecordShader())
	r.SetCullMode(CullNone)
	upload(t, r, tri(0, [2]float64{-1, -1}, [2]float64{0, 0}, [2]float64{1, 1}), nil)
	if err := r.Draw(Triangles, Environment{}); err != nil {
		t.Fatal(err)
	}
	if n := countColor(r.OutputColorBuffer(), ColorBlack); n != 0 {
		t.Errorf("degenerate triangle wrote %d pixels", n)
	}
	if r.Stats().Degenerate != 1 {
		t.Errorf("degenerate = %d, want 1", r.Stats().Degenerate)
	}
}

func TestPerspectiveCorrectUV(t *testing.T) {
	const (
		width, height = 64, 48
		fovy          = 60.0
	)
	// A floor quad at y = -1 running from z = 2 to z = 10.
	quad := []Vertex{
		{Position: math3d.V3(-1, -1, 2), UV: math3d.V2(0, 0)},
		{Position: math3d.V3(1, -1, 2), UV: math3d.V2(1, 0)},
		{Position: math3d.V3(1, -1, 10), UV: math3d.V2(1, 1)},
		{Position: math3d.V3(-1, -1, 10), UV: math3d.V2(0, 1)},
	}
	halves := [][]int{{0, 1, 2}, {0, 2, 3}}

	aspect := float64(width) / float64(height)
	tanHalf := math.Tan(fovy * math.Pi / 360)

	// groundTruth intersects the ray through a pixel center with the floor.
	groundTruth := func(x, y int) (math3d.Vec2, bool) {
		nx := (float64(x)+0.5)/width*2 - 1
		ny := (float64(y)+0.5)/height*2 - 1
		dir := math3d.V3(nx*tanHalf*aspect, ny*tanHalf, 1)
		if dir.Y >= 0 {
			return math3d.Vec2{}, false
		}
		p := dir.Scale(-1 / dir.Y)
		return math3d.V2((p.X+1)/2, (p.Z-2)/8), true
	}

	var perHalf []map[[2]int]Fragment
	for _, idx := range halves {
		s := newRecordShader()
		r := newTestRasterizer(width, height, s)
		r.SetCullMode(CullNone)
		r.SetProjection(r.Perspective(0.1, 100, fovy, aspect))
		upload(t, r, quad, idx)
		if err := r.Draw(Triangles, Environment{}); err != nil {
			t.Fatal(err)
		}
		if len(s.frags) == 0 {
			t.Fatal("quad half produced no fragments")
		}
		perHalf = append(perHalf, s.frags)
	}

	maxAffineErr := 0.0
	for i, frags := range perHalf {
		for px, f := range frags {
			want, ok := groundTruth(px[0], px[1])
			if !ok {
				t.Fatalf("half %d shaded pixel %v above the horizon", i, px)
			}
			if math.Abs(f.UV.X-want.X) > 1e-9 || math.Abs(f.UV.Y-want.Y) > 1e-9 {
				t.Errorf("half %d pixel %v: uv %v, want %v", i, px, f.UV, want)
			}
			// Depth of the floor point grows with v; screen-linear v would not match it.
			maxAffineErr = math.Max(maxAffineErr, math.Abs(f.UV.Y-affineV(px[1], height, tanHalf)))
		}
	}
	if maxAffineErr < 0.01 {
		t.Errorf("test quad does not exercise perspective: max affine error %v", maxAffineErr)
	}
}

func TestPerspectiveCorrectSharedEdge(t *testing.T) {
	r := NewRasterizer(64, 48)
	mvp := r.Perspective(0.1, 100, 60, r.Aspect())

	pos := []math3d.Vec3{
		math3d.V3(-1, -1, 2), math3d.V3(1, -1, 2), math3d.V3(1, -1, 10), math3d.V3(-1, -1, 10),
	}
	uvs := []math3d.Vec2{math3d.V2(0, 0), math3d.V2(1, 0), math3d.V2(1, 1), math3d.V2(0, 1)}
	cv := make([]clipVertex, len(pos))
	sv := make([]screenVertex, len(pos))
	for i := range pos {
		cv[i] = clipVertex{pos: mvp.MulVec4(math3d.V4FromV3(pos[i], 1))}
		cv[i].uv = uvs[i]
		sv[i] = r.toScreen(&cv[i])
	}

	uvFrom := func(tri [3]int, x, y float64) math3d.Vec2 {
		s := [3]screenVertex{sv[tri[0]], sv[tri[1]], sv[tri[2]]}
		e, ok := newEdgeSetup(math3d.V2(s[0].x, s[0].y), math3d.V2(s[1].x, s[1].y), math3d.V2(s[2].x, s[2].y))
		if !ok {
			t.Fatal("degenerate quad half")
		}
		b0, b1, b2, _ := e.weights(x, y)
		w0, w1, w2 := perspectiveWeights(b0, b1, b2, &s)
		return s[0].uv.Scale(w0).Add(s[1].uv.Scale(w1)).Add(s[2].uv.Scale(w2))
	}

	// Walk the shared diagonal A->C in screen space.
	for i := 1; i < 10; i++ {
		k := float64(i) / 10
		x := sv[0].x + (sv[2].x-sv[0].x)*k
		y := sv[0].y + (sv[2].y-sv[0].y)*k

		fromFirst := uvFrom([3]int{0, 1, 2}, x, y)
		fromSecond := uvFrom([3]int{0, 2, 3}, x, y)
		if math.Abs(fromFirst.X-fromSecond.X) > 1e-9 || math.Abs(fromFirst.Y-fromSecond.Y) > 1e-9 {
			t.Errorf("k=%v: halves disagree: %v vs %v", k, fromFirst, fromSecond)
		}

		// Ground truth: undo the projection explicitly. On the diagonal
		// u == v, and view depth z follows from the screen row.
		ndcY := y/48*2 - 1
		tanHalf := math.Tan(math.Pi / 6)
		z := -1 / (ndcY * tanHalf)
		want := (z - 2) / 8
		if math.Abs(fromFirst.Y-want) > 1e-9 || math.Abs(fromFirst.X-want) > 1e-9 {
			t.Errorf("k=%v: uv %v, want (%v, %v)", k, fromFirst, want, want)
		}
		if math.Abs(want-k) < 0.01 {
			t.Errorf("k=%v: screen-linear v would already match; quad does not exercise perspective", k)
		}
	}
}

// affineV is the v a screen-linear interpolation between the near edge
// (z=2) and far edge (z=10) of the floor would produce at row y.
func affineV(y, height int, tanHalf float64) float64 {
	screenY := func(z float64) float64 {
		ndc := -1 / (z * tanHalf)
		return (ndc + 1) / 2 * float64(height)
	}
	y0, y1 := screenY(2), screenY(10)
	return (float64(y) + 0.5 - y0) / (y1 - y0)
}

func TestLinesMode(t *testing.T) {
	r := newTestRasterizer(8, 8, nil)
	r.SetLineColor(ColorRed)
	upload(t, r, tri(0, [2]float64{-0.75, -0.75}, [2]float64{-0.75, 0.75}, [2]float64{0.75, -0.75}), nil)
	if err := r.Draw(Lines, Environment{}); err != nil {
		t.Fatal(err)
	}

	fb := r.OutputColorBuffer()
	// Vertices land on pixels (1,1), (1,7) and (7,1).
	for _, p := range [][2]int{{1, 1}, {1, 7}, {7, 1}, {1, 4}, {4, 1}, {4, 4}} {
		if c := fb.ColorAt(p[0], p[1]); c != ColorRed {
			t.Errorf("edge pixel %v = %v, want red", p, c)
		}
	}
	if c := fb.ColorAt(2, 2); c != ColorBlack {
		t.Errorf("interior pixel filled in line mode: %v", c)
	}
	for i, d := range fb.depth {
		if d != MaxDepth {
			t.Fatalf("line mode wrote depth at %d", i)
		}
	}
}

func TestLinesModeClipsLargeTriangle(t *testing.T) {
	r := newTestRasterizer(8, 8, nil)
	r.SetLineColor(ColorRed)
	// Only the bottom edge passes through the view, along ndc y = -0.5.
	upload(t, r, tri(0, [2]float64{-20, -0.5}, [2]float64{0, 20}, [2]float64{20, -0.5}), nil)
	if err := r.Draw(Lines, Environment{}); err != nil {
		t.Fatal(err)
	}

	fb := r.OutputColorBuffer()
	for x := 0; x < 8; x++ {
		if c := fb.ColorAt(x, 2); c != ColorRed {
			t.Errorf("edge pixel (%d,2) = %v, want red", x, c)
		}
	}
	if got := countColor(fb, ColorBlack); got != 8 {
		t.Errorf("drawn pixels = %d, want 8", got)
	}
	if s := r.Stats(); s.Clipped != 0 {
		t.Errorf("Clipped = %d, want 0", s.Clipped)
	}
}

func TestFrustumRejectedDraw(t *testing.T) {
	r := newTestRasterizer(8, 8, newRecordShader())
	r.SetModel(math3d.Translate(math3d.V3(10, 0, 0)))
	upload(t, r, tri(0, [2]float64{-0.5, -0.5}, [2]float64{-0.5, 0.5}, [2]float64{0.5, -0.5}), nil)
	if err := r.Draw(Triangles, Environment{}); err != nil {
		t.Fatal(err)
	}
	if s := r.Stats(); s.Rejected != 1 || s.Triangles != 0 {
		t.Errorf("stats = %+v, want one rejected draw", s)
	}
}

func TestModelTransformMovesGeometry(t *testing.T) {
	r := newTestRasterizer(8, 8, newRecordShader())
	// Shift a small triangle from the left half into the right half.
	r.SetModel(math3d.Translate(math3d.V3(1, 0, 0)))
	upload(t, r, tri(0, [2]float64{-0.75, -0.5}, [2]float64{-0.75, 0.5}, [2]float64{-0.25, -0.5}), nil)
	if err := r.Draw(Triangles, Environment{}); err != nil {
		t.Fatal(err)
	}
	fb := r.OutputColorBuffer()
	for y := range 8 {
		for x := range 4 {
			if fb.ColorAt(x, y) != ColorBlack {
				t.Fatalf("pixel (%d, %d) in left half was written", x, y)
			}
		}
	}
	if countColor(fb, ColorBlack) == 0 {
		t.Error("translated triangle wrote no pixels")
	}
}

func TestResize(t *testing.T) {
	r := NewRasterizer(4, 4)
	h := r.GenVertexBuffer()
	r.Resize(10, 6)
	if r.Width() != 10 || r.Height() != 6 {
		t.Errorf("size = %dx%d, want 10x6", r.Width(), r.Height())
	}
	if err := r.BindVertexBuffer(h); err != nil {
		t.Errorf("buffers lost on resize: %v", err)
	}
	if a := r.Aspect(); math.Abs(a-10.0/6.0) > 1e-12 {
		t.Errorf("aspect = %v", a)
	}
}

func BenchmarkDrawTriangles(b *testing.B) {
	r := NewRasterizer(320, 240)
	r.SetShader(NewBlinnPhongShader(DefaultMaterial()))
	r.SetLights(Light{Color: ColorWhite, Intensity: 1, Position: math3d.V3(0, 2, -4)})
	r.SetProjection(r.Perspective(0.1, 100, 60, r.Aspect()))
	r.SetModel(math3d.Translate(math3d.V3(0, 0, 3)))
	upload(b, r, tri(0, [2]float64{-1, -1}, [2]float64{-1, 1}, [2]float64{1, -1}), nil)
	env := Environment{Ambient: Gray(0.1)}

	for b.Loop() {
		r.Clear(ClearColor | ClearDepth)
		_ = r.Draw(Triangles, env)
	}
}
