// Package scene describes what to render: a camera, lights and objects read
// from a YAML file, uploaded into a render.Rasterizer and drawn once per
// frame by a Renderer.
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/taigrr/softrender/pkg/math3d"
	"github.com/taigrr/softrender/pkg/render"
)

// ErrInvalidConfig is returned for scene files that decode but describe an
// impossible scene.
var ErrInvalidConfig = errors.New("scene: invalid config")

// Config is the YAML form of a scene.
//
//	width: 320
//	height: 240
//	background: [0.1, 0.1, 0.15]
//	ambient: [0.1, 0.1, 0.1]
//	camera:
//	  position: [0, 1, -5]
//	  target: [0, 0, 0]
//	  fov: 60
//	lights:
//	  - position: [-2, 4, -3]
//	objects:
//	  - mesh: cube
//	    rotation: [0, 30, 0]
//	    material:
//	      color: [1, 0.5, 0.2]
type Config struct {
	Width      int            `yaml:"width"`
	Height     int            `yaml:"height"`
	Background []float64      `yaml:"background"`
	Ambient    []float64      `yaml:"ambient"`
	LineColor  []float64      `yaml:"line_color"`
	Wireframe  bool           `yaml:"wireframe"`
	Axes       float64        `yaml:"axes"`   // gizmo length, 0 hides it
	Grid       float64        `yaml:"grid"`   // ground grid extent, 0 hides it
	Bounds     bool           `yaml:"bounds"` // draw object bounding boxes
	Camera     CameraConfig   `yaml:"camera"`
	Lights     []LightConfig  `yaml:"lights"`
	Objects    []ObjectConfig `yaml:"objects"`

	// Dir is the directory relative asset paths resolve against.
	Dir string `yaml:"-"`
}

// CameraConfig places the camera.
type CameraConfig struct {
	Position     []float64 `yaml:"position"`
	Target       []float64 `yaml:"target"`
	FOV          float64   `yaml:"fov"` // vertical, degrees
	Near         float64   `yaml:"near"`
	Far          float64   `yaml:"far"`
	Orthographic bool      `yaml:"orthographic"`
	Size         float64   `yaml:"size"` // orthographic view height
}

// LightConfig is a point light.
type LightConfig struct {
	Position  []float64 `yaml:"position"`
	Color     []float64 `yaml:"color"`
	Intensity float64   `yaml:"intensity"`
}

// ObjectConfig is one mesh instance.
type ObjectConfig struct {
	Name string `yaml:"name"`
	// Mesh is cube, sphere, plane or a path to an .obj, .gltf or .glb file.
	Mesh      string         `yaml:"mesh"`
	Size      float64        `yaml:"size"`      // primitive size, or fitted size for files
	Divisions int            `yaml:"divisions"` // plane subdivisions and sphere detail
	Fit       bool           `yaml:"fit"`       // center a loaded file and scale it to Size
	Position  []float64      `yaml:"position"`
	Rotation  []float64      `yaml:"rotation"` // degrees about X, Y, Z
	Scale     []float64      `yaml:"scale"`
	Cull      string         `yaml:"cull"`   // back, front or none
	Shader    string         `yaml:"shader"` // blinnphong, unlit or normal
	Material  MaterialConfig `yaml:"material"`
}

// MaterialConfig overrides the material of every part of an object. Unset
// fields keep the value from the model file, or the default material.
type MaterialConfig struct {
	Color     []float64 `yaml:"color"`
	Ambient   *float64  `yaml:"ambient"`
	Diffuse   *float64  `yaml:"diffuse"`
	Specular  *float64  `yaml:"specular"`
	Shininess *float64  `yaml:"shininess"`
	Texture   string    `yaml:"texture"` // image path, or "checker"
	NormalMap string    `yaml:"normal_map"`
	Wrap      string    `yaml:"wrap"` // repeat, clamp or mirror
}

// Load reads and normalizes a scene file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

// Decode reads a scene from r. Unknown keys are rejected.
func Decode(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes a scene from YAML bytes.
func Parse(data []byte) (*Config, error) {
	return Decode(bytes.NewReader(data))
}

// Default returns the scene used when none is given: a cube above a plane.
func Default() *Config {
	cfg := &Config{
		Objects: []ObjectConfig{
			{Name: "cube", Mesh: "cube", Position: []float64{0, 0.5, 0}, Rotation: []float64{0, 30, 0},
				Material: MaterialConfig{Color: []float64{0.9, 0.45, 0.2}}},
			{Name: "floor", Mesh: "plane", Size: 6, Material: MaterialConfig{Texture: "checker"}},
		},
	}
	if err := cfg.normalize(); err != nil {
		panic(err)
	}
	return cfg
}

// ModelConfig returns a scene showing the model file at path, centered and
// fitted to two units, in front of the default camera.
func ModelConfig(path string) (*Config, error) {
	cfg := &Config{
		Camera: CameraConfig{Position: []float64{0, 1, -4}},
		Objects: []ObjectConfig{{
			Name: filepath.Base(path),
			Mesh: path,
			Size: 2,
			Fit:  true,
			Cull: "none",
		}},
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize fills defaults and validates the config.
func (c *Config) normalize() error {
	if c.Width == 0 {
		c.Width = 320
	}
	if c.Height == 0 {
		c.Height = 240
	}
	if c.Axes < 0 || c.Grid < 0 {
		return fmt.Errorf("%w: negative axes or grid size", ErrInvalidConfig)
	}
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}

	defaults := []struct {
		name string
		v    *[]float64
		def  []float64
	}{
		{"background", &c.Background, []float64{0, 0, 0}},
		{"ambient", &c.Ambient, []float64{0.1, 0.1, 0.1}},
		{"line_color", &c.LineColor, []float64{1, 1, 1}},
		{"camera.position", &c.Camera.Position, []float64{0, 1, -5}},
		{"camera.target", &c.Camera.Target, []float64{0, 0, 0}},
	}
	for _, d := range defaults {
		if err := fill3(d.name, d.v, d.def); err != nil {
			return err
		}
	}

	cam := &c.Camera
	if cam.FOV == 0 {
		cam.FOV = 60
	}
	if cam.Near == 0 {
		cam.Near = 0.1
	}
	if cam.Far == 0 {
		cam.Far = 100
	}
	if cam.Size == 0 {
		cam.Size = 4
	}
	if cam.FOV <= 0 || cam.FOV >= 180 {
		return fmt.Errorf("%w: camera fov %v", ErrInvalidConfig, cam.FOV)
	}
	if cam.Near <= 0 || cam.Far <= cam.Near {
		return fmt.Errorf("%w: camera near %v far %v", ErrInvalidConfig, cam.Near, cam.Far)
	}
	if vec3(cam.Position) == vec3(cam.Target) {
		return fmt.Errorf("%w: camera position equals target", ErrInvalidConfig)
	}

	if len(c.Lights) == 0 {
		c.Lights = []LightConfig{{Position: []float64{-2, 4, -3}}}
	}
	for i := range c.Lights {
		l := &c.Lights[i]
		name := fmt.Sprintf("lights[%d]", i)
		if err := fill3(name+".position", &l.Position, []float64{0, 0, 0}); err != nil {
			return err
		}
		if err := fill3(name+".color", &l.Color, []float64{1, 1, 1}); err != nil {
			return err
		}
		if l.Intensity == 0 {
			l.Intensity = 1
		}
	}

	for i := range c.Objects {
		if err := c.Objects[i].normalize(i); err != nil {
			return err
		}
	}
	return nil
}

func (o *ObjectConfig) normalize(i int) error {
	name := fmt.Sprintf("objects[%d]", i)
	if o.Name == "" {
		o.Name = name
	}
	if o.Mesh == "" {
		return fmt.Errorf("%w: %s has no mesh", ErrInvalidConfig, name)
	}
	if o.Size == 0 {
		o.Size = 1
	}
	if o.Size < 0 {
		return fmt.Errorf("%w: %s size %v", ErrInvalidConfig, name, o.Size)
	}
	if err := fill3(name+".position", &o.Position, []float64{0, 0, 0}); err != nil {
		return err
	}
	if err := fill3(name+".rotation", &o.Rotation, []float64{0, 0, 0}); err != nil {
		return err
	}
	if err := fill3(name+".scale", &o.Scale, []float64{1, 1, 1}); err != nil {
		return err
	}

	o.Cull = strings.ToLower(o.Cull)
	if _, ok := cullModes[o.Cull]; !ok {
		return fmt.Errorf("%w: %s cull %q", ErrInvalidConfig, name, o.Cull)
	}
	o.Shader = strings.ToLower(o.Shader)
	if _, ok := shaderKinds[o.Shader]; !ok {
		return fmt.Errorf("%w: %s shader %q", ErrInvalidConfig, name, o.Shader)
	}

	m := &o.Material
	if len(m.Color) != 0 && len(m.Color) != 3 && len(m.Color) != 4 {
		return fmt.Errorf("%w: %s.material.color needs 3 or 4 values", ErrInvalidConfig, name)
	}
	m.Wrap = strings.ToLower(m.Wrap)
	if _, ok := wrapModes[m.Wrap]; !ok {
		return fmt.Errorf("%w: %s.material.wrap %q", ErrInvalidConfig, name, m.Wrap)
	}
	return nil
}

var cullModes = map[string]render.CullMode{
	"":      render.CullBack,
	"back":  render.CullBack,
	"front": render.CullFront,
	"none":  render.CullNone,
}

var wrapModes = map[string]render.WrapMode{
	"":       render.WrapRepeat,
	"repeat": render.WrapRepeat,
	"clamp":  render.WrapClamp,
	"mirror": render.WrapMirror,
}

// fill3 sets *v to def when empty and checks it holds three values.
func fill3(name string, v *[]float64, def []float64) error {
	if len(*v) == 0 {
		*v = append([]float64(nil), def...)
		return nil
	}
	if len(*v) != 3 {
		return fmt.Errorf("%w: %s needs 3 values, got %d", ErrInvalidConfig, name, len(*v))
	}
	return nil
}

// vec3 converts a normalized 3-element slice.
func vec3(v []float64) math3d.Vec3 {
	return math3d.V3(v[0], v[1], v[2])
}

// color converts a normalized 3 or 4 element slice.
func color(v []float64) render.Color {
	if len(v) == 4 {
		return render.RGBA(v[0], v[1], v[2], v[3])
	}
	return render.RGB(v[0], v[1], v[2])
}

// resolve returns path relative to the scene directory.
func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) || c.Dir == "" {
		return path
	}
	return filepath.Join(c.Dir, path)
}
