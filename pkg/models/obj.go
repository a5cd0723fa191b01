package models

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/softrender/pkg/math3d"
)

// ErrMalformed is returned for model files that cannot be parsed.
var ErrMalformed = errors.New("models: malformed model")

// LoadOBJ loads a Wavefront OBJ file. Material libraries referenced with
// mtllib are read from the same directory; a missing library is ignored.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()
	return readOBJ(f, filepath.Base(path), filepath.Dir(path))
}

// ReadOBJ parses OBJ data from r. Material libraries resolve against the
// working directory.
func ReadOBJ(r io.Reader, name string) (*Mesh, error) {
	return readOBJ(r, name, ".")
}

// objKey identifies a unique position/uv/normal combination. Missing
// attributes are -1.
type objKey [3]int

type objReader struct {
	name string
	dir  string
	line int

	positions []math3d.Vec3
	colors    [][4]float64
	uvs       []math3d.Vec2
	normals   []math3d.Vec3

	mesh      *Mesh
	vertices  map[objKey]int
	materials map[string]int
	material  int
}

func readOBJ(r io.Reader, name, dir string) (*Mesh, error) {
	o := &objReader{
		name:      name,
		dir:       dir,
		mesh:      NewMesh(name),
		vertices:  make(map[objKey]int),
		materials: make(map[string]int),
		material:  -1,
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		o.line++
		if err := o.parseLine(sc.Text()); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, o.line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read obj: %w", err)
	}

	mesh := o.mesh
	if len(mesh.Faces) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoGeometry)
	}
	if !mesh.HasNormals() {
		mesh.CalculateSmoothNormals()
	}
	mesh.CalculateTangents()
	mesh.CalculateBounds()
	return mesh, nil
}

func (o *objReader) parseLine(line string) error {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	args := fields[1:]
	switch fields[0] {
	case "v":
		vals, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		// Mirror Z into left-handed space.
		o.positions = append(o.positions, math3d.V3(vals[0], vals[1], -vals[2]))
		c := White
		if len(vals) >= 6 {
			c = [4]float64{vals[3], vals[4], vals[5], 1}
		}
		o.colors = append(o.colors, c)
	case "vt":
		vals, err := parseFloats(args, 2)
		if err != nil {
			return err
		}
		o.uvs = append(o.uvs, math3d.V2(vals[0], vals[1]))
	case "vn":
		vals, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		o.normals = append(o.normals, math3d.V3(vals[0], vals[1], -vals[2]).Normalize())
	case "f":
		return o.parseFace(args)
	case "usemtl":
		if len(args) == 0 {
			return fmt.Errorf("%w: usemtl without a name", ErrMalformed)
		}
		o.material = o.materialIndex(args[0])
	case "mtllib":
		for _, lib := range args {
			if err := o.loadMTL(lib); err != nil {
				return err
			}
		}
	}
	// Groups, objects, smoothing groups and curves are ignored.
	return nil
}

// parseFace adds a polygon as a triangle fan.
func (o *objReader) parseFace(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("%w: face needs at least 3 vertices, got %d", ErrMalformed, len(args))
	}
	idx := make([]int, len(args))
	for i, a := range args {
		v, err := o.vertex(a)
		if err != nil {
			return err
		}
		idx[i] = v
	}
	for i := 1; i+1 < len(idx); i++ {
		// Mirroring Z reverses orientation, so the fan winds backwards.
		o.mesh.Faces = append(o.mesh.Faces, Face{
			V:        [3]int{idx[0], idx[i+1], idx[i]},
			Material: o.material,
		})
	}
	return nil
}

// vertex resolves a "p", "p/t", "p//n" or "p/t/n" reference to a mesh
// vertex, creating it on first use.
func (o *objReader) vertex(ref string) (int, error) {
	parts := strings.Split(ref, "/")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: bad vertex reference %q", ErrMalformed, ref)
	}

	key := objKey{-1, -1, -1}
	counts := [3]int{len(o.positions), len(o.uvs), len(o.normals)}
	for i, p := range parts {
		if p == "" {
			if i == 0 {
				return 0, fmt.Errorf("%w: vertex reference %q has no position", ErrMalformed, ref)
			}
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("%w: bad vertex reference %q", ErrMalformed, ref)
		}
		// OBJ indices are 1-based; negative ones count back from the end.
		switch {
		case n > 0:
			n--
		case n < 0:
			n += counts[i]
		default:
			return 0, fmt.Errorf("%w: zero index in %q", ErrMalformed, ref)
		}
		if n < 0 || n >= counts[i] {
			return 0, fmt.Errorf("%w: index out of range in %q", ErrMalformed, ref)
		}
		key[i] = n
	}

	if v, ok := o.vertices[key]; ok {
		return v, nil
	}
	mv := MeshVertex{
		Position: o.positions[key[0]],
		Color:    o.colors[key[0]],
	}
	if key[1] >= 0 {
		mv.UV = o.uvs[key[1]]
	}
	if key[2] >= 0 {
		mv.Normal = o.normals[key[2]]
	}
	o.mesh.Vertices = append(o.mesh.Vertices, mv)
	v := len(o.mesh.Vertices) - 1
	o.vertices[key] = v
	return v, nil
}

// materialIndex returns the mesh material called name, adding a plain white
// one when no library defined it.
func (o *objReader) materialIndex(name string) int {
	if i, ok := o.materials[name]; ok {
		return i
	}
	o.mesh.Materials = append(o.mesh.Materials, Material{
		Name:      name,
		BaseColor: White,
		Roughness: 1,
	})
	i := len(o.mesh.Materials) - 1
	o.materials[name] = i
	return i
}

// loadMTL reads a material library. Kd, d, Tr, Ns and map_Kd are used.
func (o *objReader) loadMTL(lib string) error {
	path := filepath.Join(o.dir, filepath.FromSlash(lib))
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open mtl: %w", err)
	}
	defer f.Close()

	var cur *Material
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] == "newmtl" {
			if len(fields) < 2 {
				return fmt.Errorf("%s:%d: %w: newmtl without a name", lib, n, ErrMalformed)
			}
			cur = o.mesh.GetMaterial(o.materialIndex(fields[1]))
			continue
		}
		if cur == nil {
			continue
		}
		if err := parseMTLStatement(cur, fields, filepath.Dir(path)); err != nil {
			return fmt.Errorf("%s:%d: %w", lib, n, err)
		}
	}
	return sc.Err()
}

func parseMTLStatement(m *Material, fields []string, dir string) error {
	args := fields[1:]
	switch fields[0] {
	case "Kd":
		vals, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		m.BaseColor[0], m.BaseColor[1], m.BaseColor[2] = vals[0], vals[1], vals[2]
	case "d":
		vals, err := parseFloats(args, 1)
		if err != nil {
			return err
		}
		m.BaseColor[3] = vals[0]
	case "Tr":
		vals, err := parseFloats(args, 1)
		if err != nil {
			return err
		}
		m.BaseColor[3] = 1 - vals[0]
	case "Ns":
		vals, err := parseFloats(args, 1)
		if err != nil {
			return err
		}
		m.Roughness = RoughnessFromShininess(vals[0])
	case "map_Kd":
		if len(args) == 0 {
			return fmt.Errorf("%w: map_Kd without a file", ErrMalformed)
		}
		// Options such as -s precede the file name, which comes last.
		img, err := decodeImageFile(filepath.Join(dir, filepath.FromSlash(args[len(args)-1])))
		if err != nil {
			return err
		}
		m.BaseMap = img
	}
	return nil
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// parseFloats parses at least want numbers from args.
func parseFloats(args []string, want int) ([]float64, error) {
	if len(args) < want {
		return nil, fmt.Errorf("%w: want %d numbers, got %d", ErrMalformed, want, len(args))
	}
	vals := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrMalformed, a)
		}
		vals[i] = v
	}
	return vals, nil
}

// RoughnessFromShininess converts a Blinn-Phong exponent to a roughness in
// [0, 1] using shininess = 2/r⁴ - 2.
func RoughnessFromShininess(ns float64) float64 {
	if ns <= 0 {
		return 1
	}
	return math.Pow(2/(ns+2), 0.25)
}

// ShininessFromRoughness is the inverse of RoughnessFromShininess, clamped
// to [1, 1024].
func ShininessFromRoughness(r float64) float64 {
	if r <= 0 {
		return 1024
	}
	return min(max(2/math.Pow(r, 4)-2, 1), 1024)
}
