package model

import (
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/material"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithMaterial is an option builder that sets the material bound to the "material" group. The
// material is shared, not owned.
//
// Parameters:
//   - mat: the material
//
// Returns:
//   - ModelBuilderOption: a function that applies the material option to a model
func WithMaterial(mat material.Material) ModelBuilderOption {
	return func(m *model) {
		m.material = mat
	}
}

// WithTransform is an option builder that sets the initial model transform.
//
// Parameters:
//   - t: the transform
//
// Returns:
//   - ModelBuilderOption: a function that applies the transform option to a model
func WithTransform(t Transform) ModelBuilderOption {
	return func(m *model) {
		m.transform = t
	}
}

// WithPosition is an option builder that sets only the translation of the initial transform.
//
// Parameters:
//   - x, y, z: the position in world units
//
// Returns:
//   - ModelBuilderOption: a function that applies the position option to a model
func WithPosition(x, y, z float32) ModelBuilderOption {
	return func(m *model) {
		m.transform.Position = [3]float32{x, y, z}
	}
}
