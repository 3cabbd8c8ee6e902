package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTexturedPipelineLayouts(t *testing.T) {
	p, err := NewTexturedPipeline()
	require.NoError(t, err)
	assert.Equal(t, KeyTextured, p.PipelineKey())

	layouts := p.Layouts()
	require.Len(t, layouts, 3)
	assert.Equal(t, []string{GroupCamera, GroupMaterial, GroupModel},
		[]string{layouts[0].Name, layouts[1].Name, layouts[2].Name})

	group, ok := p.GroupIndex(GroupMaterial)
	require.True(t, ok)
	assert.Equal(t, uint32(1), group)

	material, ok := p.Layout(GroupMaterial)
	require.True(t, ok)
	require.Len(t, material.Descriptor.Entries, 4)
	assert.Equal(t, "textured material", material.Descriptor.Label)

	// The camera block is read by the vertex stage and declared by both, so visibility is merged.
	camera, _ := p.Layout(GroupCamera)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, camera.Descriptor.Entries[0].Visibility)

	_, ok = p.Layout("lights")
	assert.False(t, ok)

	assert.Len(t, p.VertexLayouts(), 1)
	assert.NotNil(t, p.GLSLShader(shader.ShaderTypeVertex))
	assert.Equal(t, wgpu.CullModeBack, p.CullMode())
}

func TestColorPipelineDefaults(t *testing.T) {
	p, err := NewColorPipeline()
	require.NoError(t, err)

	assert.True(t, p.DepthTestEnabled())
	assert.True(t, p.DepthWriteEnabled())
	assert.False(t, p.BlendEnabled())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, p.Topology())

	_, ok := p.GroupIndex(GroupMaterial)
	assert.False(t, ok)
	model, ok := p.GroupIndex(GroupModel)
	require.True(t, ok)
	assert.Equal(t, uint32(1), model)
}

func TestNewPipelineRejectsGaps(t *testing.T) {
	src := `
struct U { v: vec4<f32>, };
@group(0) @binding(0) var<uniform> a: U;
@group(2) @binding(0) var<uniform> b: U;
struct VertexInput { @location(0) position: vec3<f32>, };
@vertex fn vs(in: VertexInput) -> @builtin(position) vec4<f32> { return a.v + b.v; }
@fragment fn fs() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`
	vs, err := shader.NewShader("vs", shader.ShaderTypeVertex, src)
	require.NoError(t, err)
	fs, err := shader.NewShader("fs", shader.ShaderTypeFragment, src)
	require.NoError(t, err)

	_, err = NewPipeline("gappy", shader.Program{Vertex: vs, Fragment: fs})
	assert.ErrorContains(t, err, "bind group 1 is missing")

	_, err = NewPipeline("incomplete", shader.Program{Vertex: vs})
	assert.Error(t, err)
}

func TestLayoutsCarryPipelineKey(t *testing.T) {
	p, err := NewColorPipeline()
	require.NoError(t, err)
	for _, l := range p.Layouts() {
		assert.Equal(t, KeyColor, l.Pipeline)
	}
}
