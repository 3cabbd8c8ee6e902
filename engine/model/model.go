package model

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/uniform"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/uploader"
)

// Transform is a decomposed model transform.
type Transform struct {
	// Position is the translation in world units.
	Position [3]float32
	// Rotation is the Euler rotation in radians around X, Y and Z.
	Rotation [3]float32
	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// IdentityTransform returns a transform that leaves vertices where they are.
//
// Returns:
//   - Transform: zero position and rotation, unit scale
func IdentityTransform() Transform {
	return Transform{Scale: [3]float32{1, 1, 1}}
}

// Matrix composes the transform into a column-major model matrix.
//
// Returns:
//   - [16]float32: the model matrix
func (t Transform) Matrix() [16]float32 {
	var m [16]float32
	common.BuildModelMatrix(m[:], t.Position, t.Rotation, t.Scale)
	return m
}

// model is the implementation of the Model interface.
type model struct {
	mu *sync.Mutex

	name        string
	pipelineKey string
	mesh        *uploader.Mesh
	material    material.Material
	transform   Transform
	block       *uniform.Block[Uniform]
}

// Model is one drawable: a mesh, an optional material shared with other models, and a model uniform
// block of its own. Releasing a model frees its mesh and uniform block but never its material.
type Model interface {
	// Name returns the model identifier.
	Name() string

	// PipelineKey returns the key of the pipeline the model is drawn with.
	PipelineKey() string

	// Mesh returns the vertex and index buffers.
	//
	// Returns:
	//   - *uploader.Mesh: the mesh
	Mesh() *uploader.Mesh

	// Material returns the material bound to the "material" group, or nil for pipelines without one.
	//
	// Returns:
	//   - material.Material: the material or nil
	Material() material.Material

	// Transform returns the current model transform.
	Transform() Transform

	// SetTransform replaces the model transform. The uniform is written on the next Flush.
	//
	// Parameters:
	//   - t: the new transform
	//
	// Returns:
	//   - error: an error if the uniform could not be updated
	SetTransform(t Transform) error

	// Uniform returns the model uniform block bound to the "model" group.
	//
	// Returns:
	//   - *uniform.Block[Uniform]: the block
	Uniform() *uniform.Block[Uniform]

	// Release frees the mesh and the model uniform block.
	Release()
}

var _ Model = &model{}

// NewModel creates a drawable for a registered pipeline. The pipeline must have a "model" layout; if it
// also has a "material" layout a material built for that pipeline is required.
//
// Parameters:
//   - ctx: the GraphicsContext the pipeline is registered on
//   - name: the model identifier
//   - pipelineKey: the key of the pipeline to draw with
//   - mesh: the uploaded mesh, owned by the model from now on
//   - options: variadic list of ModelBuilderOption functions
//
// Returns:
//   - Model: the model
//   - error: an error if the pipeline is unknown or the material does not fit it
func NewModel(ctx renderer.GraphicsContext, name, pipelineKey string, mesh *uploader.Mesh, options ...ModelBuilderOption) (Model, error) {
	if mesh == nil {
		return nil, fmt.Errorf("model %s: no mesh", name)
	}
	m := &model{
		mu:          &sync.Mutex{},
		name:        name,
		pipelineKey: pipelineKey,
		mesh:        mesh,
		transform:   IdentityTransform(),
	}
	for _, opt := range options {
		opt(m)
	}

	layout, ok := ctx.BindGroupLayout(pipelineKey, pipeline.GroupModel)
	if !ok {
		return nil, fmt.Errorf("model %s: pipeline %q has no %q layout", name, pipelineKey, pipeline.GroupModel)
	}
	if _, wantsMaterial := ctx.BindGroupLayout(pipelineKey, pipeline.GroupMaterial); wantsMaterial {
		if m.material == nil {
			return nil, fmt.Errorf("model %s: pipeline %q needs a material", name, pipelineKey)
		}
		if m.material.PipelineKey() != pipelineKey {
			return nil, fmt.Errorf("model %s: material %s was built for pipeline %q, not %q", name, m.material.Name(), m.material.PipelineKey(), pipelineKey)
		}
	}

	block, err := uniform.New(ctx, name+" model", layout, Uniform{Transform: m.transform.Matrix()})
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}
	m.block = block
	return m, nil
}

func (m *model) Name() string {
	return m.name
}

func (m *model) PipelineKey() string {
	return m.pipelineKey
}

func (m *model) Mesh() *uploader.Mesh {
	return m.mesh
}

func (m *model) Material() material.Material {
	return m.material
}

func (m *model) Transform() Transform {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transform
}

func (m *model) SetTransform(t Transform) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.block.Update(Uniform{Transform: t.Matrix()}); err != nil {
		return err
	}
	m.transform = t
	return nil
}

func (m *model) Uniform() *uniform.Block[Uniform] {
	return m.block
}

func (m *model) Release() {
	m.block.Release()
	m.mesh.Release()
}
