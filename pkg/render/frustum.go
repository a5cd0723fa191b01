package render

import (
	"github.com/taigrr/softrender/pkg/math3d"
)

// clipPlanes are the six half-spaces of the canonical clip volume as
// homogeneous plane coefficients: a clip-space point v is inside plane p
// when p.Dot(v) >= 0. Order is near, far, left, right, top, bottom.
var clipPlanes = [6]math3d.Vec4{
	{X: 0, Y: 0, Z: 1, W: 1},  // near:   z > -w
	{X: 0, Y: 0, Z: -1, W: 1}, // far:    z <  w
	{X: 1, Y: 0, Z: 0, W: 1},  // left:   x > -w
	{X: -1, Y: 0, Z: 0, W: 1}, // right:  x <  w
	{X: 0, Y: -1, Z: 0, W: 1}, // top:    y <  w
	{X: 0, Y: 1, Z: 0, W: 1},  // bottom: y > -w
}

// Plane represents a plane Normal·p + D = 0.
type Plane struct {
	Normal math3d.Vec3
	D      float64
}

// DistanceToPoint returns the signed distance from the plane to a point.
// Positive is on the side the normal points to.
func (p Plane) DistanceToPoint(point math3d.Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// Frustum is the set of six inward-facing planes of a view volume, in the
// same order as the clipper uses them.
type Frustum struct {
	Planes [6]Plane
}

// NewFrustumFromMatrix extracts the frustum of a projection chain
// (Gribb/Hartmann). With m = P*V the planes are in world space; with
// m = P*V*M they are in model space.
func NewFrustumFromMatrix(m math3d.Mat4) Frustum {
	rows := [4]math3d.Vec4{m.Row(0), m.Row(1), m.Row(2), m.Row(3)}

	var f Frustum
	for i, c := range clipPlanes {
		coeff := rows[0].Scale(c.X).
			Add(rows[1].Scale(c.Y)).
			Add(rows[2].Scale(c.Z)).
			Add(rows[3].Scale(c.W))
		p := Plane{Normal: coeff.Vec3(), D: coeff.W}
		if l := p.Normal.Len(); l > 0 {
			p.Normal = p.Normal.Scale(1 / l)
			p.D /= l
		}
		f.Planes[i] = p
	}
	return f
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math3d.Vec3
	Max math3d.Vec3
}

// Expand returns the smallest box containing b and p.
func (b AABB) Expand(p math3d.Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Center returns the center of the AABB.
func (b AABB) Center() math3d.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the dimensions of the AABB.
func (b AABB) Size() math3d.Vec3 {
	return b.Max.Sub(b.Min)
}

// IntersectAABB reports whether any part of box may be inside the frustum.
// It is conservative: boxes near a frustum corner can pass while invisible.
func (f Frustum) IntersectAABB(box AABB) bool {
	for _, plane := range f.Planes {
		// The corner furthest along the plane normal; if even that one is
		// outside, the whole box is.
		p := math3d.V3(
			pick(plane.Normal.X >= 0, box.Max.X, box.Min.X),
			pick(plane.Normal.Y >= 0, box.Max.Y, box.Min.Y),
			pick(plane.Normal.Z >= 0, box.Max.Z, box.Min.Z),
		)
		if plane.DistanceToPoint(p) < 0 {
			return false
		}
	}
	return true
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
