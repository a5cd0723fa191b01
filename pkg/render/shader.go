package render

import (
	"github.com/taigrr/softrender/pkg/math3d"
)

// Fragment holds the perspective-correct attributes of one covered pixel.
type Fragment struct {
	X, Y     int
	Depth    float64 // [0, 1], 0 is the near plane
	Normal   math3d.Vec3
	Tangent  math3d.Vec4
	UV       math3d.Vec2
	Color    Color
	WorldPos math3d.Vec3
}

// Light is a point light.
type Light struct {
	Color     Color
	Intensity float64
	Position  math3d.Vec3
}

// Environment is the per-draw lighting context supplied by the caller.
type Environment struct {
	Ambient Color
	Eye     math3d.Vec3 // viewer position in world space
}

// Lighting is everything a shader may use besides the fragment itself.
type Lighting struct {
	Ambient Color
	Eye     math3d.Vec3
	Lights  []Light
}

// Shader is the programmable shading stage. Shade is called once per
// fragment that passes the depth test.
type Shader interface {
	Shade(frag Fragment, lit Lighting) Color
}

// Material describes a surface for the built-in shaders.
type Material struct {
	Ambient   float64 // ka
	Diffuse   float64 // kd
	Specular  float64 // ks
	Shininess float64
	BaseColor Color
	Albedo    *Texture // optional
	Normal    *Texture // optional tangent-space normal map
}

// DefaultMaterial returns a white material with moderate highlights.
func DefaultMaterial() Material {
	return Material{
		Ambient:   1,
		Diffuse:   1,
		Specular:  0.5,
		Shininess: 32,
		BaseColor: ColorWhite,
	}
}

// albedo returns the surface color at frag: the albedo map when bound, the
// interpolated vertex color otherwise, tinted by BaseColor.
func (m *Material) albedo(frag *Fragment) Color {
	base := frag.Color
	if m.Albedo != nil {
		base = m.Albedo.Sample(frag.UV.X, frag.UV.Y)
	}
	return base.Mul(m.BaseColor)
}

// UnlitShader outputs the material albedo and ignores lights.
type UnlitShader struct {
	Material Material
}

// Shade implements Shader.
func (s *UnlitShader) Shade(frag Fragment, _ Lighting) Color {
	return s.Material.albedo(&frag)
}

// NormalShader visualizes world-space normals mapped to [0, 1].
type NormalShader struct{}

// Shade implements Shader.
func (NormalShader) Shade(frag Fragment, _ Lighting) Color {
	n := frag.Normal.Normalize()
	return RGB(n.X*0.5+0.5, n.Y*0.5+0.5, n.Z*0.5+0.5)
}
