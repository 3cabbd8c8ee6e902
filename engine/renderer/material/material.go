package material

import (
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/bind_group_provider"
)

// material is the implementation of the Material interface.
type material struct {
	name              string
	diffuse           *renderer.Texture
	normal            *renderer.Texture
	owned             []*renderer.Texture
	pipelineKey       string
	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Material is a named pair of diffuse and normal textures bound into one bind group against a
// pipeline's material layout. Many drawables may reference the same Material; none of them own it.
//
// Textures are referenced, not owned, unless they were handed over with WithOwnedTextures. Releasing a
// Material always frees its bind group and only the textures it owns, so default textures can be shared
// across materials and sets.
type Material interface {
	// Name retrieves the material identifier, unique within a Set.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Diffuse retrieves the diffuse (albedo) texture.
	//
	// Returns:
	//   - *renderer.Texture: the diffuse texture, or nil before it is set
	Diffuse() *renderer.Texture

	// Normal retrieves the tangent-space normal map.
	//
	// Returns:
	//   - *renderer.Texture: the normal texture, or nil before it is set
	Normal() *renderer.Texture

	// PipelineKey retrieves the key of the pipeline whose material layout the bind group was built against.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// BindGroupProvider retrieves the provider holding the material's bind group.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider, or nil before the bind group is built
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// Release frees the bind group and every owned texture. Releasing twice is a no-op.
	Release()
}

var _ Material = &material{}

// NewMaterial creates a new Material with the given name.
//
// Parameters:
//   - name: the material name
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(name string, options ...MaterialBuilderOption) Material {
	m := &material{name: name}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Diffuse() *renderer.Texture {
	return m.diffuse
}

func (m *material) Normal() *renderer.Texture {
	return m.normal
}

func (m *material) PipelineKey() string {
	return m.pipelineKey
}

func (m *material) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return m.bindGroupProvider
}

func (m *material) Release() {
	if m.bindGroupProvider != nil {
		m.bindGroupProvider.Release()
	}
	for _, t := range m.owned {
		t.Release()
	}
	m.owned = nil
}
