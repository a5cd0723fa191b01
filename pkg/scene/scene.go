package scene

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/taigrr/softrender/pkg/math3d"
	"github.com/taigrr/softrender/pkg/models"
	"github.com/taigrr/softrender/pkg/render"
)

// ErrUnsupportedMesh is returned for mesh names that are neither a
// primitive nor a known model file format.
var ErrUnsupportedMesh = errors.New("scene: unsupported mesh")

// Scene is a config resolved into uploaded geometry and ready shaders.
type Scene struct {
	Camera     *Camera
	Objects    []*Object
	Lights     []render.Light
	Ambient    render.Color
	Background render.Color
	LineColor  render.Color
	Wireframe  bool
	Axes       float64
	Grid       float64
	Bounds     bool
}

// Object is one mesh instance with its transform and per-part shaders.
type Object struct {
	Name     string
	Model    *Model
	Shaders  []render.Shader // parallel to Model.Parts
	Cull     render.CullMode
	Position math3d.Vec3
	Rotation math3d.Vec3 // radians about X, Y, Z
	Scale    math3d.Vec3
}

// Matrix returns the model matrix T * Ry * Rx * Rz * S.
func (o *Object) Matrix() math3d.Mat4 {
	return math3d.Translate(o.Position).
		Mul(math3d.RotateY(o.Rotation.Y)).
		Mul(math3d.RotateX(o.Rotation.X)).
		Mul(math3d.RotateZ(o.Rotation.Z)).
		Mul(math3d.Scale(o.Scale))
}

// Build loads every mesh and texture the config names and uploads the
// meshes into r.
func Build(r *render.Rasterizer, cfg *Config) (*Scene, error) {
	s := &Scene{
		Camera:     NewCameraFromConfig(cfg.Camera),
		Ambient:    color(cfg.Ambient),
		Background: color(cfg.Background),
		LineColor:  color(cfg.LineColor),
		Wireframe:  cfg.Wireframe,
		Axes:       cfg.Axes,
		Grid:       cfg.Grid,
		Bounds:     cfg.Bounds,
	}
	for _, l := range cfg.Lights {
		s.Lights = append(s.Lights, render.Light{
			Position:  vec3(l.Position),
			Color:     color(l.Color),
			Intensity: l.Intensity,
		})
	}

	cache := make(textures)
	for i := range cfg.Objects {
		obj, err := cfg.buildObject(r, &cfg.Objects[i], cache)
		if err != nil {
			return nil, err
		}
		s.Objects = append(s.Objects, obj)
	}
	return s, nil
}

func (c *Config) buildObject(r *render.Rasterizer, oc *ObjectConfig, cache textures) (*Object, error) {
	mesh, err := c.loadMesh(oc)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", oc.Name, err)
	}
	model, err := Upload(r, mesh)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", oc.Name, err)
	}

	rot := vec3(oc.Rotation).Scale(math.Pi / 180)
	obj := &Object{
		Name:     oc.Name,
		Model:    model,
		Cull:     cullModes[oc.Cull],
		Position: vec3(oc.Position),
		Rotation: rot,
		Scale:    vec3(oc.Scale),
	}
	for _, p := range model.Parts {
		m, err := c.material(oc, mesh.GetMaterial(p.Material), cache)
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", oc.Name, err)
		}
		obj.Shaders = append(obj.Shaders, shader(shaderKinds[oc.Shader], m))
	}
	return obj, nil
}

// loadMesh generates a primitive or loads a model file.
func (c *Config) loadMesh(oc *ObjectConfig) (*models.Mesh, error) {
	switch strings.ToLower(oc.Mesh) {
	case "cube":
		return models.NewCube(oc.Size), nil
	case "plane":
		return models.NewPlane(oc.Size, max(oc.Divisions, 1)), nil
	case "sphere":
		detail := oc.Divisions
		if detail <= 0 {
			detail = 16
		}
		return models.NewSphere(oc.Size/2, detail*2, detail), nil
	}

	path := c.resolve(oc.Mesh)
	var (
		mesh *models.Mesh
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		mesh, err = models.LoadOBJ(path)
	case ".gltf", ".glb":
		mesh, err = models.LoadGLTF(path)
	default:
		return nil, fmt.Errorf("%w: %q (use cube, sphere, plane, .obj, .gltf or .glb)", ErrUnsupportedMesh, oc.Mesh)
	}
	if err != nil {
		return nil, err
	}
	if oc.Fit {
		Fit(mesh, oc.Size)
	}
	return mesh, nil
}

// Fit centers mesh on the origin and scales it so its largest dimension
// equals size.
func Fit(mesh *models.Mesh, size float64) {
	mesh.CalculateBounds()
	center := mesh.Center()
	dims := mesh.Size()
	maxDim := math.Max(dims.X, math.Max(dims.Y, dims.Z))
	if maxDim <= 0 {
		return
	}
	scale := size / maxDim
	transform := math3d.Scale(math3d.V3(scale, scale, scale)).Mul(math3d.Translate(center.Negate()))
	mesh.Transform(transform)
}

// Triangles returns the number of triangles across all objects.
func (s *Scene) Triangles() int {
	n := 0
	for _, o := range s.Objects {
		n += o.Model.Triangles
	}
	return n
}
