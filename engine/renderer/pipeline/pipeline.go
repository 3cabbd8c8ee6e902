package pipeline

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Names of the bind group layouts drawables bind against. The frame loop resolves group indices
// through GroupIndex, so pipelines are free to order their groups differently.
const (
	GroupCamera   = "camera"
	GroupMaterial = "material"
	GroupModel    = "model"
)

// LayoutDescriptor is a bind group layout descriptor with a name. Materials and uniform blocks are
// created against a named layout and validated against its entries at upload time.
type LayoutDescriptor struct {
	// Pipeline is the key of the pipeline the layout belongs to.
	Pipeline   string
	Name       string
	Group      uint32
	Descriptor wgpu.BindGroupLayoutDescriptor
}

// pipeline is the implementation of the Pipeline interface.
// It holds the shader program and fixed-function state needed to create a render pipeline on any backend.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string
	program     shader.Program

	groupNames map[uint32]string
	layouts    []LayoutDescriptor

	depthTestEnabled  bool
	depthWriteEnabled bool
	blendEnabled      bool
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	frontFace         wgpu.FrontFace
	writeMask         wgpu.ColorWriteMask
	blendState        *wgpu.BlendState
}

// Pipeline describes a render pipeline independently of the backend that creates it: the shader
// program, its named bind group layouts, its vertex layouts and the fixed-function state.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the WGSL shader for a stage.
	//
	// Parameters:
	//   - shaderType: the stage
	//
	// Returns:
	//   - shader.Shader: the WGSL shader
	Shader(shaderType shader.ShaderType) shader.Shader

	// GLSLShader retrieves the GLSL ES shader for a stage, used by the WebGL2 backend.
	//
	// Parameters:
	//   - shaderType: the stage
	//
	// Returns:
	//   - shader.Shader: the GLSL shader, or nil if the program has none
	GLSLShader(shaderType shader.ShaderType) shader.Shader

	// VertexLayouts returns the vertex buffer layouts of the vertex stage.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: layouts in buffer slot order
	VertexLayouts() []wgpu.VertexBufferLayout

	// Layouts returns every named bind group layout, sorted by group index.
	//
	// Returns:
	//   - []LayoutDescriptor: the layouts
	Layouts() []LayoutDescriptor

	// Layout looks up a named bind group layout.
	//
	// Parameters:
	//   - name: the layout name, e.g. GroupMaterial
	//
	// Returns:
	//   - LayoutDescriptor: the layout
	//   - bool: false if the pipeline has no layout with that name
	Layout(name string) (LayoutDescriptor, bool)

	// GroupIndex returns the group index of a named layout.
	//
	// Parameters:
	//   - name: the layout name
	//
	// Returns:
	//   - uint32: the group index
	//   - bool: false if the pipeline has no layout with that name
	GroupIndex(name string) (uint32, bool)

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	DepthWriteEnabled() bool

	// BlendEnabled returns whether blending is enabled for this pipeline.
	BlendEnabled() bool

	// BlendState returns the blend state used when blending is enabled.
	BlendState() *wgpu.BlendState

	// CullMode returns the cull mode configured for this pipeline.
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	WriteMask() wgpu.ColorWriteMask
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a Pipeline from a shader program. The bind group layouts of the vertex and
// fragment stages are merged; groups must be numbered contiguously from 0.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - program: the shader program; Vertex and Fragment are required
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: the new pipeline
//   - error: an error if a stage is missing or the bind groups are not contiguous
func NewPipeline(pipelineKey string, program shader.Program, opts ...PipelineBuilderOption) (Pipeline, error) {
	if program.Vertex == nil || program.Fragment == nil {
		return nil, fmt.Errorf("pipeline %s: both vertex and fragment shaders are required", pipelineKey)
	}

	p := &pipeline{
		pipelineKey:       pipelineKey,
		program:           program,
		groupNames:        make(map[uint32]string),
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}

	merged := mergeBindGroupLayouts(program.Vertex.BindGroupLayoutDescriptors(), program.Fragment.BindGroupLayoutDescriptors())
	for g := uint32(0); g < uint32(len(merged)); g++ {
		desc, ok := merged[g]
		if !ok {
			return nil, fmt.Errorf("pipeline %s: bind group %d is missing, groups must be contiguous", pipelineKey, g)
		}
		name, ok := p.groupNames[g]
		if !ok {
			name = fmt.Sprintf("group%d", g)
		}
		desc.Label = pipelineKey + " " + name
		p.layouts = append(p.layouts, LayoutDescriptor{Pipeline: pipelineKey, Name: name, Group: g, Descriptor: desc})
	}

	return p, nil
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	if shaderType == shader.ShaderTypeFragment {
		return p.program.Fragment
	}
	return p.program.Vertex
}

func (p *pipeline) GLSLShader(shaderType shader.ShaderType) shader.Shader {
	if shaderType == shader.ShaderTypeFragment {
		return p.program.GLSLFragment
	}
	return p.program.GLSLVertex
}

func (p *pipeline) VertexLayouts() []wgpu.VertexBufferLayout {
	return p.program.Vertex.VertexLayouts()
}

func (p *pipeline) Layouts() []LayoutDescriptor {
	return p.layouts
}

func (p *pipeline) Layout(name string) (LayoutDescriptor, bool) {
	for _, l := range p.layouts {
		if l.Name == name {
			return l, true
		}
	}
	return LayoutDescriptor{}, false
}

func (p *pipeline) GroupIndex(name string) (uint32, bool) {
	l, ok := p.Layout(name)
	return l.Group, ok
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

// mergeBindGroupLayouts merges the per-stage descriptors of a vertex and fragment shader into one
// descriptor per group. Entries declared by both stages have their visibility flags ORed together.
func mergeBindGroupLayouts(vertex, fragment map[uint32]wgpu.BindGroupLayoutDescriptor) map[uint32]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[uint32]wgpu.BindGroupLayoutDescriptor)
	byBinding := make(map[uint32]map[uint32]wgpu.BindGroupLayoutEntry)

	for _, stage := range []map[uint32]wgpu.BindGroupLayoutDescriptor{vertex, fragment} {
		for g, desc := range stage {
			if byBinding[g] == nil {
				byBinding[g] = make(map[uint32]wgpu.BindGroupLayoutEntry)
			}
			for _, e := range desc.Entries {
				if existing, ok := byBinding[g][e.Binding]; ok {
					existing.Visibility |= e.Visibility
					byBinding[g][e.Binding] = existing
					continue
				}
				byBinding[g][e.Binding] = e
			}
		}
	}

	for g, entries := range byBinding {
		sorted := make([]wgpu.BindGroupLayoutEntry, 0, len(entries))
		for _, e := range entries {
			sorted = append(sorted, e)
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Binding < sorted[j].Binding })
		merged[g] = wgpu.BindGroupLayoutDescriptor{Entries: sorted}
	}
	return merged
}
