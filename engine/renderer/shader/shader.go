package shader

import (
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies the pipeline stage a shader runs in.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// Language identifies the shading language of a shader's source.
type Language int

const (
	// LanguageWGSL is consumed by the WebGPU backends.
	LanguageWGSL Language = iota
	// LanguageGLSL is GLSL ES 3.00, consumed by the WebGL2 backend.
	LanguageGLSL
)

// Binding maps a GLSL uniform block or sampler name to the WebGPU group and binding it stands in for.
// GLSL ES 3.00 has no binding layout qualifiers, so the WebGL2 backend resolves names at link time.
type Binding struct {
	Name    string
	Group   uint32
	Binding uint32
}

// shader is the implementation of the Shader interface.
type shader struct {
	key        string
	source     string
	shaderType ShaderType
	language   Language
	entryPoint string

	vertexLayouts              []wgpu.VertexBufferLayout
	bindGroupLayoutDescriptors map[uint32]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[uint32]map[uint32]string
	bindings                   []Binding
}

// Shader is an opaque shader module plus the metadata pipelines need to wire it: the entry point,
// vertex buffer layouts and bind group layouts. For WGSL sources the metadata is reflected from the
// source; GLSL sources carry their bindings explicitly.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed shader source code.
	//
	// Returns:
	//   - string: the source code of the shader
	Source() string

	// ShaderType returns the stage of the shader.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// Language returns the shading language of Source.
	//
	// Returns:
	//   - Language: LanguageWGSL or LanguageGLSL
	Language() Language

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main"); always "main" for GLSL
	EntryPoint() string

	// VertexLayouts returns the vertex buffer layouts of a WGSL vertex shader in buffer slot order.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the layouts, empty for fragment and GLSL shaders
	VertexLayouts() []wgpu.VertexBufferLayout

	// BindGroupLayoutDescriptors retrieves all reflected bind group layout descriptors keyed by group.
	// Entry visibility is set to this shader's stage.
	//
	// Returns:
	//   - map[uint32]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[uint32]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the WGSL variable name declared at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not declared
	BindGroupVarName(group, binding uint32) string

	// Bindings returns the GLSL name to group/binding mapping.
	//
	// Returns:
	//   - []Binding: the mapping, empty for WGSL shaders
	Bindings() []Binding
}

var _ Shader = &shader{}

// NewShader creates a new Shader from source. WGSL sources are pre-processed for include
// annotations and reflected; GLSL sources are used as-is.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the stage of the shader
//   - source: the shader source code
//   - options: builder options
//
// Returns:
//   - Shader: the new shader
//   - error: an error if pre-processing failed or no entry point for the stage was found
func NewShader(key string, shaderType ShaderType, source string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		key:                        key,
		shaderType:                 shaderType,
		bindGroupLayoutDescriptors: make(map[uint32]wgpu.BindGroupLayoutDescriptor),
		bindingVarNames:            make(map[uint32]map[uint32]string),
	}
	for _, opt := range options {
		opt(s)
	}

	if s.language == LanguageGLSL {
		s.source = source
		s.entryPoint = "main"
		return s, nil
	}

	processed, err := NewPreProcessor().Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	s.source = processed
	if s.entryPoint == "" {
		s.entryPoint = reflectEntryPoint(processed, shaderType)
	}
	if s.entryPoint == "" {
		return nil, fmt.Errorf("shader %s: no entry point for stage %d", key, shaderType)
	}

	visibility := wgpu.ShaderStageVertex
	if shaderType == ShaderTypeFragment {
		visibility = wgpu.ShaderStageFragment
	} else {
		s.vertexLayouts = reflectVertexLayouts(processed)
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = reflectBindGroups(processed, visibility)
	return s, nil
}

// NewShaderFromFile reads the source from disk and calls NewShader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage of the shader
//   - path: the file path to read the source from
//   - options: builder options
//
// Returns:
//   - Shader: the new shader
//   - error: an error if the file could not be read or the shader could not be built
func NewShaderFromFile(key string, shaderType ShaderType, path string, options ...ShaderBuilderOption) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader %s: failed to read source file %q: %w", key, path, err)
	}
	return NewShader(key, shaderType, string(data), options...)
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Language() Language {
	return s.language
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) BindGroupLayoutDescriptors() map[uint32]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding uint32) string {
	return s.bindingVarNames[group][binding]
}

func (s *shader) Bindings() []Binding {
	return s.bindings
}
