package shader

// ShaderBuilderOption is a functional option applied to a shader during construction via NewShader.
type ShaderBuilderOption func(*shader)

// WithLanguage sets the shading language of the source. The default is LanguageWGSL.
//
// Parameters:
//   - language: the source language
//
// Returns:
//   - ShaderBuilderOption: a function that sets the language
func WithLanguage(language Language) ShaderBuilderOption {
	return func(s *shader) {
		s.language = language
	}
}

// WithEntryPoint overrides the reflected entry point. Useful when a WGSL module declares several
// functions for the same stage.
//
// Parameters:
//   - name: the entry point function name
//
// Returns:
//   - ShaderBuilderOption: a function that sets the entry point
func WithEntryPoint(name string) ShaderBuilderOption {
	return func(s *shader) {
		s.entryPoint = name
	}
}

// WithBindings sets the GLSL name to group/binding mapping.
//
// Parameters:
//   - bindings: one entry per uniform block or sampler2D uniform
//
// Returns:
//   - ShaderBuilderOption: a function that sets the bindings
func WithBindings(bindings ...Binding) ShaderBuilderOption {
	return func(s *shader) {
		s.bindings = append(s.bindings, bindings...)
	}
}
