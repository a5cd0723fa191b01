package models

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/taigrr/softrender/pkg/math3d"
)

func TestLoadGLBInvalidPath(t *testing.T) {
	_, err := LoadGLB("/nonexistent/path.glb")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestGLTFLoaderCreation(t *testing.T) {
	loader := NewGLTFLoader()
	if loader == nil {
		t.Error("NewGLTFLoader returned nil")
		return
	}
	if !loader.CalculateNormals {
		t.Error("CalculateNormals should default to true")
	}
	if !loader.SmoothNormals {
		t.Error("SmoothNormals should default to true")
	}
	if !loader.LoadTextures {
		t.Error("LoadTextures should default to true")
	}
}

// writeTriangleGLTF writes a one-triangle glTF with an embedded buffer. The
// triangle lies in the XY plane, winds counter-clockwise seen from +Z and
// sits under a node translated by +2 on Z.
func writeTriangleGLTF(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	put := func(vals ...float32) {
		for _, v := range vals {
			binary.Write(&buf, binary.LittleEndian, v)
		}
	}
	put(0, 0, 0, 1, 0, 0, 0, 1, 0) // positions
	put(0, 0, 1, 0, 0, 1, 0, 0, 1) // normals
	put(0, 0, 1, 0, 0, 1)          // uvs
	for _, i := range []uint16{0, 1, 2} {
		binary.Write(&buf, binary.LittleEndian, i)
	}

	doc := fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [{"mesh": 0, "translation": [0, 0, 2]}],
  "meshes": [{
    "name": "tri",
    "primitives": [{
      "attributes": {"POSITION": 0, "NORMAL": 1, "TEXCOORD_0": 2},
      "indices": 3,
      "material": 0
    }]
  }],
  "materials": [{
    "name": "red",
    "pbrMetallicRoughness": {"baseColorFactor": [1, 0, 0, 1], "metallicFactor": 0.25, "roughnessFactor": 0.5}
  }],
  "buffers": [{"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 36},
    {"buffer": 0, "byteOffset": 72, "byteLength": 24},
    {"buffer": 0, "byteOffset": 96, "byteLength": 6}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
    {"bufferView": 1, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 2, "componentType": 5126, "count": 3, "type": "VEC2"},
    {"bufferView": 3, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ]
}`, buf.Len(), base64.StdEncoding.EncodeToString(buf.Bytes()))

	path := filepath.Join(t.TempDir(), "tri.gltf")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadGLTFTriangle(t *testing.T) {
	m, err := LoadGLTF(writeTriangleGLTF(t))
	if err != nil {
		t.Fatal(err)
	}

	if m.VertexCount() != 3 || m.TriangleCount() != 1 {
		t.Fatalf("got %d vertices, %d faces; want 3, 1", m.VertexCount(), m.TriangleCount())
	}

	// Node translation applies before Z is mirrored.
	wantPos := []math3d.Vec3{math3d.V3(0, 0, -2), math3d.V3(1, 0, -2), math3d.V3(0, 1, -2)}
	wantUV := []math3d.Vec2{math3d.V2(0, 1), math3d.V2(1, 1), math3d.V2(0, 0)}
	for i, v := range m.Vertices {
		if !v.Position.ApproxEqual(wantPos[i], 1e-6) {
			t.Errorf("vertex %d position = %v, want %v", i, v.Position, wantPos[i])
		}
		if !v.Normal.ApproxEqual(math3d.V3(0, 0, -1), 1e-6) {
			t.Errorf("vertex %d normal = %v, want -Z", i, v.Normal)
		}
		if v.UV != wantUV[i] {
			t.Errorf("vertex %d uv = %v, want %v", i, v.UV, wantUV[i])
		}
		if v.Color != White {
			t.Errorf("vertex %d color = %v, want white", i, v.Color)
		}
	}

	if got := m.Faces[0].V; got != [3]int{0, 2, 1} {
		t.Errorf("face = %v, want winding swapped to [0 2 1]", got)
	}
	assertOutward(t, m)

	mat := m.GetMaterial(m.GetFaceMaterial(0))
	if mat == nil {
		t.Fatal("face has no material")
	}
	if mat.Name != "red" || mat.BaseColor != [4]float64{1, 0, 0, 1} {
		t.Errorf("material = %q %v, want red [1 0 0 1]", mat.Name, mat.BaseColor)
	}
	if mat.Metallic != 0.25 || mat.Roughness != 0.5 {
		t.Errorf("metallic/roughness = %v/%v, want 0.25/0.5", mat.Metallic, mat.Roughness)
	}
	if mat.HasTexture() {
		t.Error("material should have no texture")
	}
}

func TestLoadGLTFNoGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.gltf")
	if err := os.WriteFile(path, []byte(`{"asset": {"version": "2.0"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGLTF(path); !errors.Is(err, ErrNoGeometry) {
		t.Errorf("error = %v, want ErrNoGeometry", err)
	}
}
