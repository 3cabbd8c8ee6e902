package uploader

import "github.com/Carmen-Shannon/oxy-gfx/engine/renderer/bind_group_provider"

// Mesh is an uploaded vertex buffer with its optional index buffer. The buffers are owned by Provider.
type Mesh struct {
	Label    string
	Provider bind_group_provider.BindGroupProvider
}

// Indexed reports whether the mesh is drawn with an index buffer.
func (m *Mesh) Indexed() bool {
	return m.Provider.Indexed()
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() uint32 {
	return m.Provider.VertexCount()
}

// IndexCount returns the number of indices, 0 for non-indexed meshes.
func (m *Mesh) IndexCount() uint32 {
	return m.Provider.IndexCount()
}

// Release frees the vertex and index buffers.
func (m *Mesh) Release() {
	if m != nil && m.Provider != nil {
		m.Provider.Release()
	}
}
