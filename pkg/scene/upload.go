package scene

import (
	"fmt"

	"github.com/taigrr/softrender/pkg/models"
	"github.com/taigrr/softrender/pkg/render"
)

// Model is a mesh living in rasterizer buffers: one vertex buffer shared by
// one index buffer per material.
type Model struct {
	Name         string
	VertexBuffer render.BufferHandle
	Parts        []Part
	Bounds       render.AABB
	Triangles    int
}

// Part is the set of triangles drawn with one material.
type Part struct {
	IndexBuffer render.BufferHandle
	Material    int // index into the source mesh materials, -1 for none
	Indices     int
}

// Upload copies mesh into new buffers of r. Buffer bindings are restored to
// NoBuffer afterwards.
func Upload(r *render.Rasterizer, mesh *models.Mesh) (*Model, error) {
	defer r.UnbindVertexBuffer()
	defer r.UnbindIndexBuffer()

	m := &Model{
		Name:         mesh.Name,
		VertexBuffer: r.GenVertexBuffer(),
		Triangles:    mesh.TriangleCount(),
	}
	if err := r.BindVertexBuffer(m.VertexBuffer); err != nil {
		return nil, err
	}

	vs := make([]render.Vertex, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		vs[i] = render.Vertex{
			Position: v.Position,
			UV:       v.UV,
			Normal:   v.Normal,
			Tangent:  v.Tangent,
			Color:    render.RGBA(v.Color[0], v.Color[1], v.Color[2], v.Color[3]),
		}
	}
	if err := r.SetVertexBufferData(vs...); err != nil {
		return nil, fmt.Errorf("upload %s vertices: %w", mesh.Name, err)
	}

	bounds, err := r.Bounds(m.VertexBuffer)
	if err != nil {
		return nil, err
	}
	m.Bounds = bounds

	for mat := -1; mat < mesh.MaterialCount(); mat++ {
		indices := mesh.Indices(mat)
		if len(indices) == 0 {
			continue
		}
		part := Part{
			IndexBuffer: r.GenIndexBuffer(),
			Material:    mat,
			Indices:     len(indices),
		}
		if err := r.BindIndexBuffer(part.IndexBuffer); err != nil {
			return nil, err
		}
		if err := r.SetIndexBufferData(indices...); err != nil {
			return nil, fmt.Errorf("upload %s indices: %w", mesh.Name, err)
		}
		m.Parts = append(m.Parts, part)
	}

	render.Logger().Debug("mesh uploaded",
		"mesh", mesh.Name,
		"vertices", len(vs),
		"triangles", m.Triangles,
		"parts", len(m.Parts))
	return m, nil
}
