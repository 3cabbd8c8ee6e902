package model

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-gfx/common"
)

// Vertex is the GPU-aligned representation of a coloured vertex, read by the "color" pipeline.
// Matches the WGSL VertexInput struct in include/vertex.wgsl.
// Size: 28 bytes, tightly packed.
type Vertex struct {
	Position [3]float32 // offset  0: position in model space (12 bytes)
	Color    [4]float32 // offset 12: linear RGBA colour (16 bytes)
}

// Size returns the size of the Vertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (v *Vertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// put writes the vertex at off and returns the offset after it.
func (v *Vertex) put(buf []byte, off int) int {
	off = common.PutFloat32s(buf, off, v.Position[:]...)
	return common.PutFloat32s(buf, off, v.Color[:]...)
}

// Vertices is a vertex buffer of coloured vertices.
type Vertices []Vertex

// VertexBytes serializes every vertex into one buffer suitable for GPU upload.
//
// Returns:
//   - []byte: len(v) * 28 bytes
func (v Vertices) VertexBytes() []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*v[0].Size())
	off := 0
	for i := range v {
		off = v[i].put(buf, off)
	}
	return buf
}

// VertexCount returns the number of vertices.
func (v Vertices) VertexCount() uint32 {
	return uint32(len(v))
}

// TexturedVertex is the GPU-aligned representation of a decoded mesh vertex, read by the "textured"
// pipeline. Matches the WGSL VertexInput struct in include/textured_vertex.wgsl.
// Size: 56 bytes, tightly packed.
type TexturedVertex struct {
	Position  [3]float32 // offset  0: position in model space
	TexCoords [2]float32 // offset 12: UV coordinate, v grows downward
	Normal    [3]float32 // offset 20: vertex normal
	Tangent   [3]float32 // offset 32: tangent for normal mapping
	Bitangent [3]float32 // offset 44: bitangent for normal mapping
}

// Size returns the size of the TexturedVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (v *TexturedVertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

func (v *TexturedVertex) put(buf []byte, off int) int {
	off = common.PutFloat32s(buf, off, v.Position[:]...)
	off = common.PutFloat32s(buf, off, v.TexCoords[:]...)
	off = common.PutFloat32s(buf, off, v.Normal[:]...)
	off = common.PutFloat32s(buf, off, v.Tangent[:]...)
	return common.PutFloat32s(buf, off, v.Bitangent[:]...)
}

// TexturedVertices is a vertex buffer of decoded mesh vertices.
type TexturedVertices []TexturedVertex

// VertexBytes serializes every vertex into one buffer suitable for GPU upload.
//
// Returns:
//   - []byte: len(v) * 56 bytes
func (v TexturedVertices) VertexBytes() []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*v[0].Size())
	off := 0
	for i := range v {
		off = v[i].put(buf, off)
	}
	return buf
}

// VertexCount returns the number of vertices.
func (v TexturedVertices) VertexCount() uint32 {
	return uint32(len(v))
}

// Uniform is the GPU-aligned representation of the per-drawable model uniform.
// Matches the WGSL ModelUniform struct in include/model.wgsl: 64 bytes.
type Uniform struct {
	Transform [16]float32 // offset 0: model-to-world matrix, column-major (mat4x4<f32>)
}

// Size returns the size of the Uniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (u Uniform) Size() int {
	return int(unsafe.Sizeof(u))
}

// Marshal serializes the Uniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (u Uniform) Marshal() []byte {
	return common.Float32sToBytes(u.Transform[:])
}
