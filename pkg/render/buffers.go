package render

import (
	"errors"
	"fmt"

	"github.com/taigrr/softrender/pkg/math3d"
)

// Errors returned for invalid use of the rasterizer.
var (
	ErrNoVertexBuffer  = errors.New("render: no vertex buffer bound")
	ErrNoIndexBuffer   = errors.New("render: no index buffer bound")
	ErrInvalidHandle   = errors.New("render: invalid buffer handle")
	ErrInvalidIndex    = errors.New("render: negative vertex index")
	ErrIndexOutOfRange = errors.New("render: vertex index out of range")
	ErrNoShader        = errors.New("render: no shader set")
)

// BufferHandle identifies a vertex or index buffer owned by a Rasterizer.
type BufferHandle int

// NoBuffer is the handle value meaning "nothing bound".
const NoBuffer BufferHandle = -1

// Vertex is the attribute bundle stored in a vertex buffer.
type Vertex struct {
	Position math3d.Vec3 // model space
	UV       math3d.Vec2
	Normal   math3d.Vec3
	Tangent  math3d.Vec4 // xyz direction, w bitangent sign
	Color    Color
}

type vertexBuffer struct {
	vertices []Vertex
	bounds   AABB
}

// GenVertexBuffer creates an empty vertex buffer and returns its handle.
// Handles increase monotonically for the lifetime of the rasterizer.
func (r *Rasterizer) GenVertexBuffer() BufferHandle {
	r.vertexBuffers = append(r.vertexBuffers, &vertexBuffer{})
	return BufferHandle(len(r.vertexBuffers) - 1)
}

// GenIndexBuffer creates an empty index buffer and returns its handle.
func (r *Rasterizer) GenIndexBuffer() BufferHandle {
	r.indexBuffers = append(r.indexBuffers, nil)
	return BufferHandle(len(r.indexBuffers) - 1)
}

// BindVertexBuffer makes h the current vertex buffer for uploads and draws.
// Binding NoBuffer unbinds.
func (r *Rasterizer) BindVertexBuffer(h BufferHandle) error {
	if h != NoBuffer && (h < 0 || int(h) >= len(r.vertexBuffers)) {
		return fmt.Errorf("%w: vertex buffer %d", ErrInvalidHandle, h)
	}
	r.boundVertex = h
	return nil
}

// BindIndexBuffer makes h the current index buffer for uploads and draws.
// Binding NoBuffer unbinds, after which draws walk vertices in order.
func (r *Rasterizer) BindIndexBuffer(h BufferHandle) error {
	if h != NoBuffer && (h < 0 || int(h) >= len(r.indexBuffers)) {
		return fmt.Errorf("%w: index buffer %d", ErrInvalidHandle, h)
	}
	r.boundIndex = h
	return nil
}

// UnbindVertexBuffer clears the current vertex buffer.
func (r *Rasterizer) UnbindVertexBuffer() { r.boundVertex = NoBuffer }

// UnbindIndexBuffer clears the current index buffer.
func (r *Rasterizer) UnbindIndexBuffer() { r.boundIndex = NoBuffer }

// SetVertexBufferData appends vertices to the bound vertex buffer.
func (r *Rasterizer) SetVertexBufferData(vs ...Vertex) error {
	if r.boundVertex == NoBuffer {
		return ErrNoVertexBuffer
	}
	vb := r.vertexBuffers[r.boundVertex]
	for _, v := range vs {
		if len(vb.vertices) == 0 {
			vb.bounds = AABB{Min: v.Position, Max: v.Position}
		} else {
			vb.bounds = vb.bounds.Expand(v.Position)
		}
		vb.vertices = append(vb.vertices, v)
	}
	return nil
}

// SetIndexBufferData appends indices to the bound index buffer.
// Indices are checked against the vertex buffer at draw time.
func (r *Rasterizer) SetIndexBufferData(indices ...int) error {
	if r.boundIndex == NoBuffer {
		return ErrNoIndexBuffer
	}
	for i, idx := range indices {
		if idx < 0 {
			return fmt.Errorf("%w: %d at position %d", ErrInvalidIndex, idx, i)
		}
	}
	r.indexBuffers[r.boundIndex] = append(r.indexBuffers[r.boundIndex], indices...)
	return nil
}

// BoundVertexBuffer returns the current vertex buffer handle or NoBuffer.
func (r *Rasterizer) BoundVertexBuffer() BufferHandle { return r.boundVertex }

// BoundIndexBuffer returns the current index buffer handle or NoBuffer.
func (r *Rasterizer) BoundIndexBuffer() BufferHandle { return r.boundIndex }
