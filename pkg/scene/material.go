package scene

import (
	"fmt"

	"github.com/taigrr/softrender/pkg/models"
	"github.com/taigrr/softrender/pkg/render"
)

type shaderKind int

const (
	shaderBlinnPhong shaderKind = iota
	shaderUnlit
	shaderNormal
)

var shaderKinds = map[string]shaderKind{
	"":           shaderBlinnPhong,
	"blinnphong": shaderBlinnPhong,
	"phong":      shaderBlinnPhong,
	"unlit":      shaderUnlit,
	"normal":     shaderNormal,
}

// textures caches decoded images by resolved path so objects sharing a
// texture share one copy.
type textures map[string]*render.Texture

func (t textures) load(path string) (*render.Texture, error) {
	if tex, ok := t[path]; ok {
		return tex, nil
	}
	tex, err := render.LoadTexture(path)
	if err != nil {
		return nil, err
	}
	t[path] = tex
	return tex, nil
}

// material builds the render material for one part: the model file's
// material when there is one, then the object's overrides.
func (c *Config) material(obj *ObjectConfig, src *models.Material, cache textures) (render.Material, error) {
	m := render.DefaultMaterial()
	if src != nil {
		m.BaseColor = render.RGBA(src.BaseColor[0], src.BaseColor[1], src.BaseColor[2], src.BaseColor[3])
		m.Shininess = models.ShininessFromRoughness(src.Roughness)
		// Metals keep more of their highlight.
		m.Specular = 0.5 + 0.5*src.Metallic
		if src.HasTexture() {
			m.Albedo = render.TextureFromImage(src.BaseMap)
		}
	}

	o := &obj.Material
	if len(o.Color) != 0 {
		m.BaseColor = color(o.Color)
	}
	if o.Ambient != nil {
		m.Ambient = *o.Ambient
	}
	if o.Diffuse != nil {
		m.Diffuse = *o.Diffuse
	}
	if o.Specular != nil {
		m.Specular = *o.Specular
	}
	if o.Shininess != nil {
		m.Shininess = *o.Shininess
	}

	switch o.Texture {
	case "":
	case "checker":
		m.Albedo = render.NewCheckerTexture(64, 64, 8, render.Gray(0.8), render.Gray(0.4))
	default:
		tex, err := cache.load(c.resolve(o.Texture))
		if err != nil {
			return m, fmt.Errorf("%s texture: %w", obj.Name, err)
		}
		m.Albedo = tex
	}
	if o.NormalMap != "" {
		tex, err := cache.load(c.resolve(o.NormalMap))
		if err != nil {
			return m, fmt.Errorf("%s normal map: %w", obj.Name, err)
		}
		m.Normal = tex
	}

	if o.Wrap != "" {
		wrap := wrapModes[o.Wrap]
		m.Albedo = withWrap(m.Albedo, wrap)
		m.Normal = withWrap(m.Normal, wrap)
	}
	return m, nil
}

// withWrap returns a copy of tex using wrap on both axes. Cached textures
// are shared between objects, so they are never modified in place.
func withWrap(tex *render.Texture, wrap render.WrapMode) *render.Texture {
	if tex == nil {
		return nil
	}
	cp := *tex
	cp.WrapU, cp.WrapV = wrap, wrap
	return &cp
}

// shader returns the shader of kind k for material m.
func shader(k shaderKind, m render.Material) render.Shader {
	switch k {
	case shaderUnlit:
		return &render.UnlitShader{Material: m}
	case shaderNormal:
		return render.NormalShader{}
	}
	return render.NewBlinnPhongShader(m)
}
