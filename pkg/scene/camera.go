package scene

import (
	"math"

	"github.com/taigrr/softrender/pkg/math3d"
	"github.com/taigrr/softrender/pkg/render"
)

// maxPitch keeps the view direction away from the up vector.
const maxPitch = math.Pi/2 - 0.01

// Camera orbits a target point. Yaw 0 and pitch 0 look down +Z.
type Camera struct {
	Target   math3d.Vec3
	Distance float64
	Yaw      float64 // radians, rotation about +Y
	Pitch    float64 // radians, positive looks up

	FOV          float64 // vertical field of view in degrees
	Near         float64 // Near clipping plane
	Far          float64 // Far clipping plane
	Orthographic bool
	Size         float64 // orthographic view height in world units
}

// NewCamera creates a perspective camera five units in front of the origin.
func NewCamera() *Camera {
	c := &Camera{
		FOV:  60,
		Near: 0.1,
		Far:  100,
		Size: 4,
	}
	c.LookAt(math3d.V3(0, 0, -5), math3d.Vec3{})
	return c
}

// NewCameraFromConfig creates a camera from a normalized config.
func NewCameraFromConfig(cfg CameraConfig) *Camera {
	c := &Camera{
		FOV:          cfg.FOV,
		Near:         cfg.Near,
		Far:          cfg.Far,
		Orthographic: cfg.Orthographic,
		Size:         cfg.Size,
	}
	c.LookAt(vec3(cfg.Position), vec3(cfg.Target))
	return c
}

// LookAt places the camera at position looking at target.
func (c *Camera) LookAt(position, target math3d.Vec3) {
	d := target.Sub(position)
	c.Target = target
	c.Distance = d.Len()
	dir := d.Normalize()
	c.Pitch = clampPitch(math.Asin(dir.Y))
	c.Yaw = math.Atan2(dir.X, dir.Z)
}

// Forward returns the unit view direction.
func (c *Camera) Forward() math3d.Vec3 {
	return math3d.V3(
		math.Sin(c.Yaw)*math.Cos(c.Pitch),
		math.Sin(c.Pitch),
		math.Cos(c.Yaw)*math.Cos(c.Pitch),
	)
}

// Right returns the right direction vector.
func (c *Camera) Right() math3d.Vec3 {
	return math3d.V3(math.Cos(c.Yaw), 0, -math.Sin(c.Yaw))
}

// Position returns the eye position in world space.
func (c *Camera) Position() math3d.Vec3 {
	return c.Target.Sub(c.Forward().Scale(c.Distance))
}

// Orbit rotates the camera around its target by the given angles (in radians).
func (c *Camera) Orbit(deltaYaw, deltaPitch float64) {
	c.Yaw = math.Remainder(c.Yaw+deltaYaw, 2*math.Pi)
	c.Pitch = clampPitch(c.Pitch + deltaPitch)
}

// Zoom scales the distance to the target, keeping it at least Near. For an
// orthographic camera the view height scales too.
func (c *Camera) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	c.Distance = max(c.Distance*factor, c.Near)
	if c.Orthographic {
		c.Size *= factor
	}
}

// Turntable returns a copy of c orbited about its target by frame/frames of
// a full turn.
func (c *Camera) Turntable(frame, frames int) *Camera {
	cc := *c
	if frames > 0 {
		cc.Orbit(2*math.Pi*float64(frame)/float64(frames), 0)
	}
	return &cc
}

// ViewMatrix returns the view matrix.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	return math3d.LookAtLH(c.Position(), c.Target, math3d.Up())
}

// Projection returns the projection matrix for r's frame buffer aspect.
func (c *Camera) Projection(r *render.Rasterizer) math3d.Mat4 {
	if c.Orthographic {
		return r.Orthographic(c.Near, c.Far, c.Size, r.Aspect())
	}
	return r.Perspective(c.Near, c.Far, c.FOV, r.Aspect())
}

// Apply sets r's view and projection matrices.
func (c *Camera) Apply(r *render.Rasterizer) {
	r.SetView(c.ViewMatrix())
	r.SetProjection(c.Projection(r))
}

func clampPitch(p float64) float64 {
	return max(-maxPitch, min(maxPitch, p))
}
