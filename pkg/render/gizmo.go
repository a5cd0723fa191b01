package render

import (
	"fmt"
	"math"

	"github.com/taigrr/softrender/pkg/math3d"
)

// DrawLine3D draws a world space segment through the current view and
// projection, ignoring the model matrix. The segment is clipped against the
// view volume; it is not depth tested.
func (r *Rasterizer) DrawLine3D(p, q math3d.Vec3, c Color) {
	vp := r.projection.Mul(r.view)
	r.drawClipLine(vp.MulVec4(math3d.V4FromV3(p, 1)), vp.MulVec4(math3d.V4FromV3(q, 1)), c)
}

// DrawAxes draws the world axes from the origin: X red, Y green, Z blue.
func (r *Rasterizer) DrawAxes(length float64) {
	var origin math3d.Vec3
	r.DrawLine3D(origin, math3d.V3(length, 0, 0), ColorRed)
	r.DrawLine3D(origin, math3d.V3(0, length, 0), ColorGreen)
	r.DrawLine3D(origin, math3d.V3(0, 0, length), ColorBlue)
}

// DrawGrid draws a grid on the XZ plane at y=0.
func (r *Rasterizer) DrawGrid(size, step float64, c Color) {
	if step <= 0 {
		return
	}
	half := size / 2
	n := int(math.Floor(size/step + 1e-9))
	for i := 0; i <= n; i++ {
		t := -half + float64(i)*step
		r.DrawLine3D(math3d.V3(t, 0, -half), math3d.V3(t, 0, half), c)
		r.DrawLine3D(math3d.V3(-half, 0, t), math3d.V3(half, 0, t), c)
	}
}

// DrawBounds draws the twelve edges of box after transforming its corners by
// the model matrix.
func (r *Rasterizer) DrawBounds(box AABB, c Color) {
	lo, hi := box.Min, box.Max
	corners := [8]math3d.Vec3{
		{X: lo.X, Y: lo.Y, Z: lo.Z},
		{X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: hi.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z},
		{X: hi.X, Y: lo.Y, Z: hi.Z},
		{X: hi.X, Y: hi.Y, Z: hi.Z},
		{X: lo.X, Y: hi.Y, Z: hi.Z},
	}
	for i := range corners {
		corners[i] = r.model.MulVec3(corners[i])
	}

	edges := [12][2]int{
		{0, 1}, {1, 2}, {2, 3}, {3, 0},
		{4, 5}, {5, 6}, {6, 7}, {7, 4},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}
	for _, e := range edges {
		r.DrawLine3D(corners[e[0]], corners[e[1]], c)
	}
}

// Bounds returns the bounding box of the vertex buffer h.
func (r *Rasterizer) Bounds(h BufferHandle) (AABB, error) {
	if h < 0 || int(h) >= len(r.vertexBuffers) {
		return AABB{}, fmt.Errorf("%w: vertex buffer %d", ErrInvalidHandle, h)
	}
	return r.vertexBuffers[h].bounds, nil
}
