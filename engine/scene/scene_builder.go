package scene

import "github.com/Carmen-Shannon/oxy-gfx/engine/renderer/uploader"

// DefaultMaterialName is the material built from the default textures for meshes that name no material.
const DefaultMaterialName = "default"

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithName sets the scene name used in logs and errors.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		s.name = name
	}
}

// WithUploader uploads through a shared Uploader instead of one owned by the scene. A shared uploader
// keeps its default textures when the scene is released.
//
// Parameters:
//   - u: the uploader
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithUploader(u uploader.Uploader) SceneBuilderOption {
	return func(s *scene) {
		s.uploader = u
	}
}
