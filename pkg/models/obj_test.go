package models

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taigrr/softrender/pkg/math3d"
)

const quadOBJ = `# unit quad facing +Z in a right-handed file
mtllib quad.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
usemtl brick
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestReadOBJQuad(t *testing.T) {
	m, err := ReadOBJ(strings.NewReader(quadOBJ), "quad.obj")
	if err != nil {
		t.Fatal(err)
	}
	if m.VertexCount() != 4 || m.TriangleCount() != 2 {
		t.Fatalf("got %d vertices, %d faces; want 4, 2", m.VertexCount(), m.TriangleCount())
	}
	for i, v := range m.Vertices {
		if v.Position.Z != 0 || !v.Normal.ApproxEqual(math3d.V3(0, 0, -1), eps) {
			t.Errorf("vertex %d = %v normal %v, want z mirrored", i, v.Position, v.Normal)
		}
	}
	if got := m.Vertices[2].UV; got != math3d.V2(1, 1) {
		t.Errorf("vertex 2 uv = %v, want (1,1)", got)
	}
	// Fan (0,1,2),(0,2,3) with the last two indices swapped.
	if m.Faces[0].V != [3]int{0, 2, 1} || m.Faces[1].V != [3]int{0, 3, 2} {
		t.Errorf("faces = %v, %v", m.Faces[0].V, m.Faces[1].V)
	}
	assertOutward(t, m)

	// The library is missing, so the material is plain white.
	mat := m.GetMaterial(m.GetFaceMaterial(0))
	if mat == nil || mat.Name != "brick" || mat.BaseColor != White {
		t.Errorf("material = %+v, want white brick", mat)
	}
}

func TestLoadOBJWithMaterialLibrary(t *testing.T) {
	dir := t.TempDir()

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	f, err := os.Create(filepath.Join(dir, "brick.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	mtl := "newmtl brick\nKd 0.5 0.25 1\nd 0.75\nNs 30\nmap_Kd brick.png\n"
	if err := os.WriteFile(filepath.Join(dir, "quad.mtl"), []byte(mtl), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "quad.obj")
	if err := os.WriteFile(path, []byte(quadOBJ), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadOBJ(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.MaterialCount() != 1 {
		t.Fatalf("materials = %d, want 1", m.MaterialCount())
	}
	mat := m.GetMaterial(0)
	if mat.BaseColor != [4]float64{0.5, 0.25, 1, 0.75} {
		t.Errorf("base color = %v", mat.BaseColor)
	}
	if math.Abs(ShininessFromRoughness(mat.Roughness)-30) > 1e-9 {
		t.Errorf("roughness %v does not round trip to Ns 30", mat.Roughness)
	}
	if !mat.HasTexture() || mat.BaseMap.Bounds().Dx() != 2 {
		t.Error("map_Kd texture not loaded")
	}
	if m.GetFaceMaterial(0) != 0 || m.GetFaceMaterial(1) != 0 {
		t.Error("faces should use the library material")
	}
}

func TestReadOBJ(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		vertices int
		faces    int
		err      error
	}{
		{
			name:     "positions only gets smooth normals",
			src:      "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n",
			vertices: 3,
			faces:    1,
		},
		{
			name:     "negative indices",
			src:      "v 0 0 0\nv 1 0 0\nv 0 1 0\nf -3 -2 -1\n",
			vertices: 3,
			faces:    1,
		},
		{
			name:     "shared vertices are deduplicated",
			src:      "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3\nf 1 3 4\n",
			vertices: 4,
			faces:    2,
		},
		{
			name:     "pentagon fans into three triangles",
			src:      "v 0 0 0\nv 1 0 0\nv 1.5 1 0\nv 0.5 2 0\nv -0.5 1 0\nf 1 2 3 4 5\n",
			vertices: 5,
			faces:    3,
		},
		{
			name: "zero index",
			src:  "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n",
			err:  ErrMalformed,
		},
		{
			name: "index out of range",
			src:  "v 0 0 0\nv 1 0 0\nf 1 2 3\n",
			err:  ErrMalformed,
		},
		{
			name: "face with two vertices",
			src:  "v 0 0 0\nv 1 0 0\nf 1 2\n",
			err:  ErrMalformed,
		},
		{
			name: "bad number",
			src:  "v 0 zero 0\n",
			err:  ErrMalformed,
		},
		{
			name: "no faces",
			src:  "v 0 0 0\n# nothing else\n",
			err:  ErrNoGeometry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ReadOBJ(strings.NewReader(tt.src), "test.obj")
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("error = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if m.VertexCount() != tt.vertices || m.TriangleCount() != tt.faces {
				t.Errorf("got %d vertices, %d faces; want %d, %d",
					m.VertexCount(), m.TriangleCount(), tt.vertices, tt.faces)
			}
			if !m.HasNormals() {
				t.Error("mesh has no normals")
			}
			assertOutward(t, m)
		})
	}
}

func TestReadOBJVertexColors(t *testing.T) {
	m, err := ReadOBJ(strings.NewReader("v 0 0 0 1 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"), "c.obj")
	if err != nil {
		t.Fatal(err)
	}
	if m.Vertices[0].Color != [4]float64{1, 0, 0, 1} {
		t.Errorf("vertex 0 color = %v, want red", m.Vertices[0].Color)
	}
	if m.Vertices[1].Color != White {
		t.Errorf("vertex 1 color = %v, want white", m.Vertices[1].Color)
	}
}
