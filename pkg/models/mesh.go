// Package models provides mesh representation, procedural primitives and
// loaders for glTF and Wavefront OBJ files.
//
// Meshes live in the renderer's left-handed space: +X right, +Y up, +Z away
// from the viewer. A face is front facing when its vertices run clockwise as
// seen from the front, which makes (v1-v0)×(v2-v0) point out of the surface.
// Loaders convert right-handed files by mirroring Z and swapping winding.
package models

import (
	"image"
	"math"

	"github.com/taigrr/softrender/pkg/math3d"
)

// White is the default vertex color.
var White = [4]float64{1, 1, 1, 1}

// Mesh represents a 3D mesh with vertices, faces, and materials.
type Mesh struct {
	Name      string
	Vertices  []MeshVertex
	Faces     []Face
	Materials []Material

	// Bounding box (calculated on load)
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// MeshVertex holds all vertex attributes.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	UV       math3d.Vec2
	Tangent  math3d.Vec4 // xyz tangent, w bitangent sign
	Color    [4]float64  // RGBA in 0-1 range
}

// Face represents a triangle face with vertex indices and material reference.
type Face struct {
	V        [3]int // Indices into Mesh.Vertices
	Material int    // Index into Mesh.Materials (-1 for no material)
}

// Material represents a surface description read from a model file.
type Material struct {
	Name      string
	BaseColor [4]float64  // RGBA in 0-1 range
	Metallic  float64     // 0 = dielectric, 1 = metal
	Roughness float64     // 0 = smooth, 1 = rough
	BaseMap   image.Image // Optional base color texture
}

// HasTexture reports whether the material carries a base color texture.
func (m *Material) HasTexture() bool {
	return m.BaseMap != nil
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:     name,
		Vertices: make([]MeshVertex, 0),
		Faces:    make([]Face, 0),
	}
}

// AddVertex appends a white vertex and returns its index.
func (m *Mesh) AddVertex(pos, normal math3d.Vec3, uv math3d.Vec2) int {
	m.Vertices = append(m.Vertices, MeshVertex{
		Position: pos,
		Normal:   normal,
		UV:       uv,
		Color:    White,
	})
	return len(m.Vertices) - 1
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position

	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// faceNormal returns the unnormalized front-facing normal of f.
func (m *Mesh) faceNormal(f Face) math3d.Vec3 {
	v0 := m.Vertices[f.V[0]].Position
	v1 := m.Vertices[f.V[1]].Position
	v2 := m.Vertices[f.V[2]].Position
	return v1.Sub(v0).Cross(v2.Sub(v0))
}

// CalculateNormals assigns each face's normal to its vertices. Vertices
// shared between faces end up with the normal of the last face.
func (m *Mesh) CalculateNormals() {
	for _, f := range m.Faces {
		normal := m.faceNormal(f).Normalize()
		for _, i := range f.V {
			m.Vertices[i].Normal = normal
		}
	}
}

// CalculateSmoothNormals computes area-weighted averaged normals.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Vec3{}
	}

	for _, f := range m.Faces {
		normal := m.faceNormal(f) // Don't normalize yet
		for _, i := range f.V {
			m.Vertices[i].Normal = m.Vertices[i].Normal.Add(normal)
		}
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

// HasNormals reports whether any vertex carries a non-zero normal.
func (m *Mesh) HasNormals() bool {
	for _, v := range m.Vertices {
		if v.Normal.LenSq() > 1e-6 {
			return true
		}
	}
	return false
}

// CalculateTangents derives per-vertex tangents from positions and uvs.
// The tangent follows increasing u; W is the sign that turns N×T into the
// direction of increasing v. Faces with degenerate uvs contribute nothing,
// and vertices left without a tangent get an arbitrary one perpendicular to
// the normal.
func (m *Mesh) CalculateTangents() {
	tan := make([]math3d.Vec3, len(m.Vertices))
	bitan := make([]math3d.Vec3, len(m.Vertices))

	for _, f := range m.Faces {
		a, b, c := m.Vertices[f.V[0]], m.Vertices[f.V[1]], m.Vertices[f.V[2]]
		e1 := b.Position.Sub(a.Position)
		e2 := c.Position.Sub(a.Position)
		d1 := b.UV.Sub(a.UV)
		d2 := c.UV.Sub(a.UV)

		det := d1.X*d2.Y - d2.X*d1.Y
		if math.Abs(det) < 1e-12 {
			continue
		}
		r := 1 / det
		sdir := e1.Scale(d2.Y).Sub(e2.Scale(d1.Y)).Scale(r)
		tdir := e2.Scale(d1.X).Sub(e1.Scale(d2.X)).Scale(r)
		for _, i := range f.V {
			tan[i] = tan[i].Add(sdir)
			bitan[i] = bitan[i].Add(tdir)
		}
	}

	for i := range m.Vertices {
		n := m.Vertices[i].Normal.Normalize()
		// Gram-Schmidt against the normal.
		t := tan[i].Sub(n.Scale(n.Dot(tan[i])))
		if t.LenSq() < 1e-12 {
			t = perpendicular(n)
		}
		t = t.Normalize()
		w := 1.0
		if n.Cross(t).Dot(bitan[i]) < 0 {
			w = -1
		}
		m.Vertices[i].Tangent = math3d.V4FromV3(t, w)
	}
}

// perpendicular returns a unit vector orthogonal to n.
func perpendicular(n math3d.Vec3) math3d.Vec3 {
	axis := math3d.V3(1, 0, 0)
	if math.Abs(n.X) > 0.9 {
		axis = math3d.V3(0, 1, 0)
	}
	return axis.Sub(n.Scale(n.Dot(axis))).Normalize()
}

// Transform applies a transformation matrix to all vertices.
func (m *Mesh) Transform(mat math3d.Mat4) {
	nm := mat.NormalMatrix()
	for i := range m.Vertices {
		v := &m.Vertices[i]
		v.Position = mat.MulVec3(v.Position)
		v.Normal = nm.MulVec3Dir(v.Normal).Normalize()
		t := mat.MulVec3Dir(v.Tangent.Vec3()).Normalize()
		v.Tangent = math3d.V4FromV3(t, v.Tangent.W)
	}
	if mat.Determinant() < 0 {
		// A mirroring transform reverses winding and handedness.
		for i := range m.Faces {
			f := &m.Faces[i]
			f.V[1], f.V[2] = f.V[2], f.V[1]
		}
		for i := range m.Vertices {
			m.Vertices[i].Tangent.W = -m.Vertices[i].Tangent.W
		}
	}
	m.CalculateBounds()
}

// Clone creates a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Name:      m.Name,
		Vertices:  make([]MeshVertex, len(m.Vertices)),
		Faces:     make([]Face, len(m.Faces)),
		Materials: make([]Material, len(m.Materials)),
		BoundsMin: m.BoundsMin,
		BoundsMax: m.BoundsMax,
	}
	copy(clone.Vertices, m.Vertices)
	copy(clone.Faces, m.Faces)
	copy(clone.Materials, m.Materials)
	return clone
}

// Indices returns the vertex indices of every face using material mat, in
// face order. Pass -1 for faces without a material.
func (m *Mesh) Indices(mat int) []int {
	var out []int
	for _, f := range m.Faces {
		if f.Material == mat {
			out = append(out, f.V[0], f.V[1], f.V[2])
		}
	}
	return out
}

// GetFaceMaterial returns the material index for face i.
// Returns -1 if no material assigned.
func (m *Mesh) GetFaceMaterial(i int) int {
	return m.Faces[i].Material
}

// GetMaterial returns the material at index i.
// Returns nil if index is out of bounds or -1.
func (m *Mesh) GetMaterial(i int) *Material {
	if i < 0 || i >= len(m.Materials) {
		return nil
	}
	return &m.Materials[i]
}

// MaterialCount returns the number of materials.
func (m *Mesh) MaterialCount() int {
	return len(m.Materials)
}
