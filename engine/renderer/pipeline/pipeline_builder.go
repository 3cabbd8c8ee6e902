package pipeline

import (
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithGroupName names the bind group layout at a group index.
//
// Parameters:
//   - group: the group index
//   - name: the layout name, e.g. GroupCamera
//
// Returns:
//   - PipelineBuilderOption: a function that names the group
func WithGroupName(group uint32, name string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.groupNames[group] = name
	}
}

// WithDepthTestEnabled sets whether depth testing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test enabled state for this pipeline
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write enabled state for this pipeline
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithBlendEnabled turns on alpha blending with the pipeline's blend state.
//
// Parameters:
//   - enabled: a boolean indicating whether blending should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend enabled state for this pipeline
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendEnabled = enabled
	}
}

// WithCullMode sets the cull mode for this pipeline.
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// Keys of the built-in pipelines.
const (
	KeyColor    = "color"
	KeyTextured = "textured"
)

// NewColorPipeline creates the pipeline for per-vertex colored geometry such as quads and triangles.
//
// Returns:
//   - Pipeline: the pipeline with "camera" and "model" layouts
//   - error: an error if the embedded program failed to build
func NewColorPipeline() (Pipeline, error) {
	prog, err := shader.LoadProgram(shader.ProgramColor)
	if err != nil {
		return nil, err
	}
	return NewPipeline(KeyColor, prog,
		WithGroupName(0, GroupCamera),
		WithGroupName(1, GroupModel),
	)
}

// NewTexturedPipeline creates the pipeline for decoded meshes with a diffuse and a normal map.
//
// Returns:
//   - Pipeline: the pipeline with "camera", "material" and "model" layouts
//   - error: an error if the embedded program failed to build
func NewTexturedPipeline() (Pipeline, error) {
	prog, err := shader.LoadProgram(shader.ProgramTextured)
	if err != nil {
		return nil, err
	}
	return NewPipeline(KeyTextured, prog,
		WithGroupName(0, GroupCamera),
		WithGroupName(1, GroupMaterial),
		WithGroupName(2, GroupModel),
		WithCullMode(wgpu.CullModeBack),
	)
}
