package frameloop

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/engine/camera"
	"github.com/Carmen-Shannon/oxy-gfx/engine/model"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/uniform"
)

// Layer is a camera and the models drawn with it. Layers are recorded in the order they were added,
// all into the same render pass.
type Layer struct {
	name   string
	ctx    renderer.GraphicsContext
	camera camera.Camera
	models []model.Model

	// cameraBlocks holds one camera uniform per pipeline, created against that pipeline's "camera"
	// layout.
	cameraBlocks map[string]*uniform.Block[camera.Uniform]
}

func newLayer(ctx renderer.GraphicsContext, name string, cam camera.Camera) *Layer {
	return &Layer{
		name:         name,
		ctx:          ctx,
		camera:       cam,
		cameraBlocks: make(map[string]*uniform.Block[camera.Uniform]),
	}
}

// Name returns the layer name.
func (l *Layer) Name() string {
	return l.name
}

// Camera returns the layer's camera.
func (l *Layer) Camera() camera.Camera {
	return l.camera
}

// Models returns the models of the layer in draw order.
func (l *Layer) Models() []model.Model {
	return l.models
}

// Add appends a model to the layer. The first model of each pipeline creates the camera uniform for
// that pipeline.
//
// Parameters:
//   - m: the model; the layer does not take ownership
//
// Returns:
//   - error: an error if the model's pipeline is not registered or has no "camera" layout
func (l *Layer) Add(m model.Model) error {
	key := m.PipelineKey()
	if _, ok := l.cameraBlocks[key]; !ok {
		layout, ok := l.ctx.BindGroupLayout(key, pipeline.GroupCamera)
		if !ok {
			return fmt.Errorf("layer %s: pipeline %q has no %q layout", l.name, key, pipeline.GroupCamera)
		}
		block, err := uniform.New(l.ctx, l.name+" camera "+key, layout, l.camera.Uniform())
		if err != nil {
			return fmt.Errorf("layer %s: %w", l.name, err)
		}
		l.cameraBlocks[key] = block
	}
	l.models = append(l.models, m)
	return nil
}

// CameraBlock returns the camera uniform used with a pipeline.
//
// Parameters:
//   - pipelineKey: the pipeline key
//
// Returns:
//   - *uniform.Block[camera.Uniform]: the block
//   - bool: false if no model of the layer uses the pipeline
func (l *Layer) CameraBlock(pipelineKey string) (*uniform.Block[camera.Uniform], bool) {
	b, ok := l.cameraBlocks[pipelineKey]
	return b, ok
}

// resize updates the camera's viewport.
func (l *Layer) resize(width, height int) {
	l.camera.Resize(width, height)
}

// update applies camera input and stages the camera uniform when it changed.
func (l *Layer) update(dt time.Duration) error {
	l.camera.Update(dt)
	u := l.camera.Uniform()
	for _, block := range l.cameraBlocks {
		if block.Value() == u {
			continue
		}
		if err := block.Update(u); err != nil {
			return err
		}
	}
	return nil
}

// flush writes the staged camera and model uniforms.
func (l *Layer) flush() error {
	for _, block := range l.cameraBlocks {
		if _, err := block.Flush(); err != nil {
			return err
		}
	}
	for _, m := range l.models {
		if _, err := m.Uniform().Flush(); err != nil {
			return err
		}
	}
	return nil
}

// record issues one draw per model, binding each group the model's pipeline names.
func (l *Layer) record(frame *renderer.FrameTarget) error {
	for _, m := range l.models {
		key := m.PipelineKey()
		p, ok := l.ctx.Pipeline(key)
		if !ok {
			return fmt.Errorf("model %s: pipeline %q is not registered", m.Name(), key)
		}

		groups := make([]bind_group_provider.BindGroupProvider, len(p.Layouts()))
		bind := func(name string, provider bind_group_provider.BindGroupProvider) error {
			idx, ok := p.GroupIndex(name)
			if !ok {
				return nil
			}
			if int(idx) >= len(groups) {
				return fmt.Errorf("model %s: group %q at index %d outside %d layouts", m.Name(), name, idx, len(groups))
			}
			groups[idx] = provider
			return nil
		}

		camProvider, err := l.cameraBlocks[key].BindGroup()
		if err != nil {
			return err
		}
		modelProvider, err := m.Uniform().BindGroup()
		if err != nil {
			return err
		}
		if err := bind(pipeline.GroupCamera, camProvider); err != nil {
			return err
		}
		if err := bind(pipeline.GroupModel, modelProvider); err != nil {
			return err
		}
		if mat := m.Material(); mat != nil {
			if err := bind(pipeline.GroupMaterial, mat.BindGroupProvider()); err != nil {
				return err
			}
		}
		for i, g := range groups {
			if g == nil {
				return fmt.Errorf("model %s: nothing bound to group %d of pipeline %q", m.Name(), i, key)
			}
		}

		if err := l.ctx.DrawCall(frame, key, m.Mesh().Provider, groups); err != nil {
			return fmt.Errorf("model %s: %w", m.Name(), err)
		}
	}
	return nil
}

// release frees the camera uniforms. Models belong to the caller.
func (l *Layer) release() {
	for _, block := range l.cameraBlocks {
		block.Release()
	}
}
