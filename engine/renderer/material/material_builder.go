package material

import (
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/bind_group_provider"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithDiffuse is an option builder that sets the diffuse texture of the material.
//
// Parameters:
//   - tex: the uploaded diffuse texture
//
// Returns:
//   - MaterialBuilderOption: a function that applies the diffuse texture option to a material
func WithDiffuse(tex *renderer.Texture) MaterialBuilderOption {
	return func(m *material) {
		m.diffuse = tex
	}
}

// WithNormal is an option builder that sets the normal map of the material.
//
// Parameters:
//   - tex: the uploaded normal texture
//
// Returns:
//   - MaterialBuilderOption: a function that applies the normal texture option to a material
func WithNormal(tex *renderer.Texture) MaterialBuilderOption {
	return func(m *material) {
		m.normal = tex
	}
}

// WithOwnedTextures hands textures over to the material, which releases them with itself.
//
// Parameters:
//   - textures: the textures to own; nil entries are skipped
//
// Returns:
//   - MaterialBuilderOption: a function that applies the ownership option to a material
func WithOwnedTextures(textures ...*renderer.Texture) MaterialBuilderOption {
	return func(m *material) {
		for _, t := range textures {
			if t != nil {
				m.owned = append(m.owned, t)
			}
		}
	}
}

// WithPipelineKey is an option builder that sets the render pipeline key for the material.
//
// Parameters:
//   - key: the pipeline key to associate with the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the pipeline key option to a material
func WithPipelineKey(key string) MaterialBuilderOption {
	return func(m *material) {
		m.pipelineKey = key
	}
}

// WithBindGroupProvider is an option builder that sets the bind group provider for the material.
//
// Parameters:
//   - provider: the bind group provider containing GPU resources for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the bind group provider option to a material
func WithBindGroupProvider(provider bind_group_provider.BindGroupProvider) MaterialBuilderOption {
	return func(m *material) {
		m.bindGroupProvider = provider
	}
}
