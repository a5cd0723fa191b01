package models

import (
	"math"

	"github.com/taigrr/softrender/pkg/math3d"
)

// addTriangle appends face (i0, i1, i2), reordering it so that it is front
// facing on the side its vertex normals point to. Degenerate triangles are
// dropped.
func (m *Mesh) addTriangle(i0, i1, i2, material int) {
	f := Face{V: [3]int{i0, i1, i2}, Material: material}
	n := m.faceNormal(f)
	if n.LenSq() < 1e-18 {
		return
	}
	want := m.Vertices[i0].Normal.Add(m.Vertices[i1].Normal).Add(m.Vertices[i2].Normal)
	if n.Dot(want) < 0 {
		f.V[1], f.V[2] = f.V[2], f.V[1]
	}
	m.Faces = append(m.Faces, f)
}

// addQuad appends quad a, b, c, d (in order around its rim) as two triangles.
func (m *Mesh) addQuad(a, b, c, d int) {
	m.addTriangle(a, b, c, -1)
	m.addTriangle(a, c, d, -1)
}

// finish computes tangents and bounds for a generated mesh.
func (m *Mesh) finish() *Mesh {
	m.CalculateTangents()
	m.CalculateBounds()
	return m
}

// NewCube creates an axis-aligned cube of edge length size centered at the
// origin. Each side has its own four vertices so normals stay flat and uvs
// span the full texture.
func NewCube(size float64) *Mesh {
	m := NewMesh("cube")
	h := size / 2

	// normal, u axis, v axis for each side
	sides := [6][3]math3d.Vec3{
		{math3d.V3(0, 0, -1), math3d.V3(1, 0, 0), math3d.V3(0, 1, 0)},  // front
		{math3d.V3(0, 0, 1), math3d.V3(-1, 0, 0), math3d.V3(0, 1, 0)},  // back
		{math3d.V3(1, 0, 0), math3d.V3(0, 0, 1), math3d.V3(0, 1, 0)},   // right
		{math3d.V3(-1, 0, 0), math3d.V3(0, 0, -1), math3d.V3(0, 1, 0)}, // left
		{math3d.V3(0, 1, 0), math3d.V3(1, 0, 0), math3d.V3(0, 0, 1)},   // top
		{math3d.V3(0, -1, 0), math3d.V3(1, 0, 0), math3d.V3(0, 0, -1)}, // bottom
	}

	for _, s := range sides {
		n, u, v := s[0], s[1], s[2]
		var idx [4]int
		for k, c := range [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			pos := n.Add(u.Scale(c[0])).Add(v.Scale(c[1])).Scale(h)
			uv := math3d.V2((c[0]+1)/2, (c[1]+1)/2)
			idx[k] = m.AddVertex(pos, n, uv)
		}
		m.addQuad(idx[0], idx[1], idx[2], idx[3])
	}
	return m.finish()
}

// NewPlane creates a square on the XZ plane facing +Y, split into
// divisions x divisions quads. U follows +X and V follows +Z.
func NewPlane(size float64, divisions int) *Mesh {
	m := NewMesh("plane")
	divisions = max(divisions, 1)
	h := size / 2
	up := math3d.Up()
	row := divisions + 1

	for j := 0; j <= divisions; j++ {
		for i := 0; i <= divisions; i++ {
			u := float64(i) / float64(divisions)
			v := float64(j) / float64(divisions)
			m.AddVertex(math3d.V3(-h+u*size, 0, -h+v*size), up, math3d.V2(u, v))
		}
	}
	for j := range divisions {
		for i := range divisions {
			a := j*row + i
			m.addQuad(a, a+1, a+row+1, a+row)
		}
	}
	return m.finish()
}

// NewSphere creates a UV sphere centered at the origin. segments divides
// the equator and rings divides pole to pole.
func NewSphere(radius float64, segments, rings int) *Mesh {
	m := NewMesh("sphere")
	segments = max(segments, 3)
	rings = max(rings, 2)
	row := segments + 1

	for r := 0; r <= rings; r++ {
		theta := math.Pi * float64(r) / float64(rings)
		for s := 0; s <= segments; s++ {
			phi := 2 * math.Pi * float64(s) / float64(segments)
			n := math3d.V3(math.Sin(theta)*math.Cos(phi), math.Cos(theta), math.Sin(theta)*math.Sin(phi))
			uv := math3d.V2(float64(s)/float64(segments), 1-float64(r)/float64(rings))
			m.AddVertex(n.Scale(radius), n, uv)
		}
	}
	for r := range rings {
		for s := range segments {
			a := r*row + s
			// Pole quads collapse to one triangle; addTriangle drops the other.
			m.addQuad(a, a+row, a+row+1, a+1)
		}
	}
	return m.finish()
}
