package models

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"

	"github.com/taigrr/softrender/pkg/math3d"
)

// ErrNoGeometry is returned when a model file holds no triangles.
var ErrNoGeometry = errors.New("models: no triangle geometry")

// GLTFLoader loads GLTF/GLB files into Mesh format.
type GLTFLoader struct {
	// Options
	CalculateNormals bool
	SmoothNormals    bool
	LoadTextures     bool
}

// NewGLTFLoader creates a new GLTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		CalculateNormals: true,
		SmoothNormals:    true,
		LoadTextures:     true,
	}
}

// LoadGLTF loads a .gltf or .glb file with default options.
func LoadGLTF(path string) (*Mesh, error) {
	return NewGLTFLoader().Load(path)
}

// LoadGLB loads a binary GLTF (.glb) file.
func LoadGLB(path string) (*Mesh, error) {
	return LoadGLTF(path)
}

// gltfState carries per-load lookups.
type gltfState struct {
	doc       *gltf.Document
	dir       string
	mesh      *Mesh
	materials map[int]int // document material -> mesh material
}

// Load loads a GLTF or GLB file and returns a Mesh in left-handed space.
// Node transforms of the default scene are applied; a document without
// scenes contributes every mesh untransformed.
func (l *GLTFLoader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	st := &gltfState{
		doc:       doc,
		dir:       filepath.Dir(path),
		mesh:      NewMesh(filepath.Base(path)),
		materials: make(map[int]int),
	}

	if roots := sceneRoots(doc); roots != nil {
		for _, n := range roots {
			if err := l.processNode(st, n, math3d.Identity()); err != nil {
				return nil, err
			}
		}
	} else {
		for _, m := range doc.Meshes {
			if err := l.processMesh(st, m, math3d.Identity()); err != nil {
				return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
			}
		}
	}

	mesh := st.mesh
	if len(mesh.Faces) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoGeometry)
	}

	if l.CalculateNormals && !mesh.HasNormals() {
		if l.SmoothNormals {
			mesh.CalculateSmoothNormals()
		} else {
			mesh.CalculateNormals()
		}
	}
	if !hasTangents(mesh) {
		mesh.CalculateTangents()
	}

	mesh.CalculateBounds()

	return mesh, nil
}

// sceneRoots returns the root nodes of the default scene, or nil when the
// document has no scenes.
func sceneRoots(doc *gltf.Document) []int {
	if len(doc.Scenes) == 0 {
		return nil
	}
	idx := 0
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		idx = *doc.Scene
	}
	return doc.Scenes[idx].Nodes
}

// processNode adds the node's mesh under its world transform and recurses.
func (l *GLTFLoader) processNode(st *gltfState, idx int, parent math3d.Mat4) error {
	if idx < 0 || idx >= len(st.doc.Nodes) {
		return fmt.Errorf("node %d out of range", idx)
	}
	node := st.doc.Nodes[idx]
	world := parent.Mul(nodeMatrix(node))

	if node.Mesh != nil {
		m := st.doc.Meshes[*node.Mesh]
		if err := l.processMesh(st, m, world); err != nil {
			return fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
	}
	for _, c := range node.Children {
		if err := l.processNode(st, c, world); err != nil {
			return err
		}
	}
	return nil
}

// nodeMatrix returns the local transform of a node: its matrix when set,
// T*R*S otherwise.
func nodeMatrix(n *gltf.Node) math3d.Mat4 {
	if m := n.MatrixOrDefault(); m != gltfIdentity {
		return math3d.Mat4(m)
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	return math3d.Translate(math3d.V3(t[0], t[1], t[2])).
		Mul(math3d.FromQuat(r[0], r[1], r[2], r[3])).
		Mul(math3d.Scale(math3d.V3(s[0], s[1], s[2])))
}

var gltfIdentity = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// processMesh extracts geometry from a GLTF mesh. Attributes are transformed
// by world and then mirrored from glTF's right-handed space by negating Z.
func (l *GLTFLoader) processMesh(st *gltfState, m *gltf.Mesh, world math3d.Mat4) error {
	doc, mesh := st.doc, st.mesh
	normalMat := world.NormalMatrix()

	// Mirroring Z inverts orientation, so the second and third index swap to
	// keep (v1-v0)×(v2-v0) pointing outward and the bitangent sign flips. A
	// world transform with negative determinant has already mirrored once.
	flip := world.Determinant() >= 0
	handedness := -1.0
	if !flip {
		handedness = 1
	}

	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// Skip non-triangle primitives (lines, points, etc)
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}

		positions, err := readVec3Accessor(doc, posIdx)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var normals []math3d.Vec3
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			normals, err = readVec3Accessor(doc, normIdx)
			if err != nil {
				return fmt.Errorf("read normals: %w", err)
			}
		}

		var uvs []math3d.Vec2
		if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			uvs, err = readVec2Accessor(doc, uvIdx)
			if err != nil {
				return fmt.Errorf("read uvs: %w", err)
			}
		}

		var tangents []math3d.Vec4
		if tanIdx, ok := prim.Attributes[gltf.TANGENT]; ok {
			tangents, err = readVec4Accessor(doc, tanIdx)
			if err != nil {
				return fmt.Errorf("read tangents: %w", err)
			}
		}

		var colors [][4]float64
		if colIdx, ok := prim.Attributes[gltf.COLOR_0]; ok {
			colors, err = readColorAccessor(doc, colIdx)
			if err != nil {
				return fmt.Errorf("read colors: %w", err)
			}
		}

		material := -1
		if prim.Material != nil {
			material, err = l.material(st, *prim.Material)
			if err != nil {
				return err
			}
		}

		// Base vertex index for this primitive
		baseVertex := len(mesh.Vertices)

		for i := range positions {
			v := MeshVertex{
				Position: mirrorZ(world.MulVec3(positions[i])),
				Color:    White,
			}
			if i < len(normals) {
				v.Normal = mirrorZ(normalMat.MulVec3Dir(normals[i]).Normalize())
			}
			if i < len(uvs) {
				// GLTF uses top-left origin (V=0 at top), flip V for bottom-left origin
				v.UV = math3d.V2(uvs[i].X, 1.0-uvs[i].Y)
			}
			if i < len(tangents) {
				t := mirrorZ(world.MulVec3Dir(tangents[i].Vec3()).Normalize())
				v.Tangent = math3d.V4FromV3(t, handedness*tangents[i].W)
			}
			if i < len(colors) {
				v.Color = colors[i]
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		var indices []int
		if prim.Indices != nil {
			indices, err = readIndices(doc, *prim.Indices)
			if err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
		} else {
			// No indices, assume sequential triangles
			indices = make([]int, len(positions))
			for i := range indices {
				indices[i] = i
			}
		}

		for i := 0; i+2 < len(indices); i += 3 {
			a, b, c := indices[i], indices[i+1], indices[i+2]
			if a >= len(positions) || b >= len(positions) || c >= len(positions) {
				return fmt.Errorf("index out of range at triangle %d", i/3)
			}
			if flip {
				b, c = c, b
			}
			mesh.Faces = append(mesh.Faces, Face{
				V:        [3]int{baseVertex + a, baseVertex + b, baseVertex + c},
				Material: material,
			})
		}
	}

	return nil
}

func mirrorZ(v math3d.Vec3) math3d.Vec3 {
	return math3d.V3(v.X, v.Y, -v.Z)
}

func hasTangents(m *Mesh) bool {
	for _, v := range m.Vertices {
		if v.Tangent.Vec3().LenSq() > 1e-6 {
			return true
		}
	}
	return false
}

// material converts document material idx, caching the result.
func (l *GLTFLoader) material(st *gltfState, idx int) (int, error) {
	if mi, ok := st.materials[idx]; ok {
		return mi, nil
	}
	if idx < 0 || idx >= len(st.doc.Materials) {
		return -1, fmt.Errorf("material %d out of range", idx)
	}
	src := st.doc.Materials[idx]
	mat := Material{
		Name:      src.Name,
		BaseColor: White,
		Roughness: 1,
	}
	if pbr := src.PBRMetallicRoughness; pbr != nil {
		mat.BaseColor = pbr.BaseColorFactorOrDefault()
		mat.Metallic = pbr.MetallicFactorOrDefault()
		mat.Roughness = pbr.RoughnessFactorOrDefault()
		if l.LoadTextures && pbr.BaseColorTexture != nil {
			img, err := textureImage(st, pbr.BaseColorTexture.Index)
			if err != nil {
				return -1, fmt.Errorf("material %q: %w", src.Name, err)
			}
			mat.BaseMap = img
		}
	}

	st.mesh.Materials = append(st.mesh.Materials, mat)
	mi := len(st.mesh.Materials) - 1
	st.materials[idx] = mi
	return mi, nil
}

// textureImage decodes the image behind texture idx.
func textureImage(st *gltfState, idx int) (image.Image, error) {
	doc := st.doc
	if idx < 0 || idx >= len(doc.Textures) || doc.Textures[idx].Source == nil {
		return nil, fmt.Errorf("texture %d has no image", idx)
	}
	img := doc.Images[*doc.Textures[idx].Source]

	var data []byte
	switch {
	case img.BufferView != nil:
		bv := doc.BufferViews[*img.BufferView]
		buf := doc.Buffers[bv.Buffer]
		if buf.Data == nil {
			return nil, fmt.Errorf("texture %d: buffer has no data", idx)
		}
		data = buf.Data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength]
	case strings.HasPrefix(img.URI, "data:"):
		_, payload, ok := strings.Cut(img.URI, ",")
		if !ok {
			return nil, fmt.Errorf("texture %d: malformed data uri", idx)
		}
		var err error
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("texture %d: %w", idx, err)
		}
	case img.URI != "":
		var err error
		data, err = os.ReadFile(filepath.Join(st.dir, filepath.FromSlash(img.URI)))
		if err != nil {
			return nil, fmt.Errorf("texture %d: %w", idx, err)
		}
	default:
		return nil, fmt.Errorf("texture %d has no image", idx)
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode texture %d: %w", idx, err)
	}
	return decoded, nil
}

// readVec3Accessor reads Vec3 data from a GLTF accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	floats, err := readFloats(doc, accessorIdx, gltf.AccessorVec3)
	if err != nil {
		return nil, err
	}
	result := make([]math3d.Vec3, len(floats))
	for i, f := range floats {
		result[i] = math3d.V3(f[0], f[1], f[2])
	}
	return result, nil
}

// readVec2Accessor reads Vec2 data from a GLTF accessor.
func readVec2Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec2, error) {
	floats, err := readFloats(doc, accessorIdx, gltf.AccessorVec2)
	if err != nil {
		return nil, err
	}
	result := make([]math3d.Vec2, len(floats))
	for i, f := range floats {
		result[i] = math3d.V2(f[0], f[1])
	}
	return result, nil
}

// readVec4Accessor reads Vec4 data from a GLTF accessor.
func readVec4Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec4, error) {
	floats, err := readFloats(doc, accessorIdx, gltf.AccessorVec4)
	if err != nil {
		return nil, err
	}
	result := make([]math3d.Vec4, len(floats))
	for i, f := range floats {
		result[i] = math3d.V4(f[0], f[1], f[2], f[3])
	}
	return result, nil
}

// readColorAccessor reads COLOR_0, which may be RGB or RGBA.
func readColorAccessor(doc *gltf.Document, accessorIdx int) ([][4]float64, error) {
	typ := gltf.AccessorVec4
	if doc.Accessors[accessorIdx].Type == gltf.AccessorVec3 {
		typ = gltf.AccessorVec3
	}
	floats, err := readFloats(doc, accessorIdx, typ)
	if err != nil {
		return nil, err
	}
	result := make([][4]float64, len(floats))
	for i, f := range floats {
		result[i] = [4]float64{f[0], f[1], f[2], 1}
		if typ == gltf.AccessorVec4 {
			result[i][3] = f[3]
		}
	}
	return result, nil
}

// readIndices reads index data from a GLTF accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR, got %v", accessor.Type)
	}

	data, stride, err := accessorBytes(doc, accessor)
	if err != nil {
		return nil, err
	}

	result := make([]int, accessor.Count)
	for i := range result {
		b := data[i*stride:]
		switch accessor.ComponentType {
		case gltf.ComponentUbyte:
			result[i] = int(b[0])
		case gltf.ComponentUshort:
			result[i] = int(binary.LittleEndian.Uint16(b))
		case gltf.ComponentUint:
			result[i] = int(binary.LittleEndian.Uint32(b))
		default:
			return nil, fmt.Errorf("unexpected index component type: %v", accessor.ComponentType)
		}
	}
	return result, nil
}

// readFloats reads a float accessor of the given type into rows of up to
// four components.
func readFloats(doc *gltf.Document, accessorIdx int, typ gltf.AccessorType) ([][4]float64, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != typ {
		return nil, fmt.Errorf("expected %v, got %v", typ, accessor.Type)
	}
	if accessor.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("unsupported component type %v for %v", accessor.ComponentType, typ)
	}

	data, stride, err := accessorBytes(doc, accessor)
	if err != nil {
		return nil, err
	}

	n := componentCount(typ)
	result := make([][4]float64, accessor.Count)
	for i := range result {
		for j := range n {
			bits := binary.LittleEndian.Uint32(data[i*stride+j*4:])
			result[i][j] = float64(math.Float32frombits(bits))
		}
	}
	return result, nil
}

func componentCount(typ gltf.AccessorType) int {
	switch typ {
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4:
		return 4
	}
	return 1
}

func componentSize(ct gltf.ComponentType) int {
	switch ct {
	case gltf.ComponentUbyte, gltf.ComponentByte:
		return 1
	case gltf.ComponentUshort, gltf.ComponentShort:
		return 2
	}
	return 4
}

// accessorBytes returns the accessor's bytes starting at its first element
// together with the element stride, after checking that every element lies
// inside the buffer.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor) ([]byte, int, error) {
	if accessor.BufferView == nil {
		return nil, 0, fmt.Errorf("accessor has no buffer view")
	}

	bufferView := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[bufferView.Buffer]

	// Embedded and external buffers are both loaded by gltf.Open.
	if buffer.Data == nil {
		return nil, 0, fmt.Errorf("buffer has no data")
	}

	elem := componentCount(accessor.Type) * componentSize(accessor.ComponentType)
	stride := bufferView.ByteStride
	if stride == 0 {
		stride = elem
	}

	start := bufferView.ByteOffset + accessor.ByteOffset
	if accessor.Count > 0 {
		end := start + (accessor.Count-1)*stride + elem
		if end > len(buffer.Data) || end > bufferView.ByteOffset+bufferView.ByteLength {
			return nil, 0, fmt.Errorf("accessor reads past its buffer view")
		}
	}
	return buffer.Data[start:], stride, nil
}
