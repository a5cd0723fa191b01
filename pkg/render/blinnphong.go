package render

import (
	"math"

	"github.com/taigrr/softrender/pkg/math3d"
)

// BlinnPhongShader is a Blinn-Phong local lighting model with optional
// albedo and normal maps.
//
// Ambient is added once; diffuse and specular are summed over all lights.
type BlinnPhongShader struct {
	Material Material
}

// NewBlinnPhongShader returns a shader for m.
func NewBlinnPhongShader(m Material) *BlinnPhongShader {
	return &BlinnPhongShader{Material: m}
}

// Shade implements Shader.
func (s *BlinnPhongShader) Shade(frag Fragment, lit Lighting) Color {
	m := &s.Material
	albedo := m.albedo(&frag)
	n := s.shadingNormal(&frag)
	view := lit.Eye.Sub(frag.WorldPos).Normalize()

	out := lit.Ambient.ScaleRGB(m.Ambient)

	for _, l := range lit.Lights {
		toLight := frag.WorldPos.Sub(l.Position).Normalize().Negate()
		radiance := l.Color.ScaleRGB(l.Intensity)

		diff := math.Max(0, n.Dot(toLight))
		diffuse := albedo.ScaleRGB(m.Diffuse * diff)

		half := toLight.Add(view).Normalize()
		spec := m.Specular * math.Pow(math.Max(0, half.Dot(n)), m.Shininess)
		specular := ColorWhite.ScaleRGB(spec)

		out = out.AddRGB(diffuse.AddRGB(specular).Mul(radiance))
	}
	out.A = albedo.A
	return out
}

// shadingNormal returns the interpolated normal, perturbed by the normal map
// when one is bound.
func (s *BlinnPhongShader) shadingNormal(frag *Fragment) math3d.Vec3 {
	n := frag.Normal.Normalize()
	if s.Material.Normal == nil {
		return n
	}

	t := frag.Tangent.Vec3()
	// Re-orthogonalize; interpolation drifts the tangent off the surface.
	t = t.Sub(n.Scale(n.Dot(t))).Normalize()
	if t.LenSq() == 0 {
		return n
	}
	sign := 1.0
	if frag.Tangent.W < 0 {
		sign = -1
	}
	b := n.Cross(t).Normalize().Scale(sign)

	c := s.Material.Normal.Sample(frag.UV.X, frag.UV.Y)
	ts := math3d.V3(c.R*2-1, c.G*2-1, c.B*2-1)

	mapped := t.Scale(ts.X).Add(b.Scale(ts.Y)).Add(n.Scale(ts.Z)).Normalize()
	if mapped.LenSq() == 0 {
		return n
	}
	return mapped
}
