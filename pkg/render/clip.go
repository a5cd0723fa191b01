package render

import (
	"github.com/taigrr/softrender/pkg/math3d"
)

// varyings are the per-vertex attributes carried from the vertex stage to
// the fragment stage.
type varyings struct {
	worldPos math3d.Vec3
	normal   math3d.Vec3
	tangent  math3d.Vec4
	uv       math3d.Vec2
	color    Color
}

// clipVertex is a vertex after the model-view-projection transform.
type clipVertex struct {
	pos math3d.Vec4
	varyings
}

// lerp interpolates position and every varying with the same t.
func (a clipVertex) lerp(b clipVertex, t float64) clipVertex {
	return clipVertex{
		pos: a.pos.Lerp(b.pos, t),
		varyings: varyings{
			worldPos: a.worldPos.Lerp(b.worldPos, t),
			normal:   a.normal.Lerp(b.normal, t),
			tangent:  a.tangent.Lerp(b.tangent, t),
			uv:       a.uv.Lerp(b.uv, t),
			color:    a.color.Lerp(b.color, t),
		},
	}
}

// clipper runs Sutherland-Hodgman polygon clipping in homogeneous clip
// space. It reuses its scratch buffers across calls, so the returned
// polygon is only valid until the next call.
type clipper struct {
	a, b []clipVertex
}

func newClipper() *clipper {
	// A triangle gains at most one vertex per plane.
	return &clipper{
		a: make([]clipVertex, 0, 3+len(clipPlanes)),
		b: make([]clipVertex, 0, 3+len(clipPlanes)),
	}
}

// clip clips a triangle against the six planes of the clip volume and
// returns the resulting convex polygon. Fewer than three vertices means the
// triangle is entirely outside. A triangle already inside comes back as the
// same three vertices in the same order.
func (c *clipper) clip(tri [3]clipVertex) []clipVertex {
	in := append(c.a[:0], tri[:]...)
	out := c.b[:0]

	for _, plane := range clipPlanes {
		if len(in) == 0 {
			break
		}
		out = out[:0]

		prev := in[len(in)-1]
		dPrev := plane.Dot(prev.pos)
		for _, cur := range in {
			dCur := plane.Dot(cur.pos)
			if (dPrev > 0 && dCur < 0) || (dPrev < 0 && dCur > 0) {
				t := dPrev / (dPrev - dCur)
				out = append(out, prev.lerp(cur, t))
			}
			if dCur >= 0 {
				out = append(out, cur)
			}
			prev, dPrev = cur, dCur
		}
		in, out = out, in
	}

	c.a, c.b = in, out
	return in
}

// clipSegment clips the segment ab against the clip volume. It reports false
// when no part of the segment is inside.
func clipSegment(a, b math3d.Vec4) (math3d.Vec4, math3d.Vec4, bool) {
	t0, t1 := 0.0, 1.0
	for _, plane := range clipPlanes {
		da, db := plane.Dot(a), plane.Dot(b)
		switch {
		case da < 0 && db < 0:
			return a, b, false
		case da < 0:
			t0 = max(t0, da/(da-db))
		case db < 0:
			t1 = min(t1, da/(da-db))
		}
	}
	if t0 > t1 {
		return a, b, false
	}
	return a.Lerp(b, t0), a.Lerp(b, t1), true
}
