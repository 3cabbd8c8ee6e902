package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-gfx/engine/camera"
	"github.com/Carmen-Shannon/oxy-gfx/engine/frameloop"
	"github.com/Carmen-Shannon/oxy-gfx/engine/loader"
	"github.com/Carmen-Shannon/oxy-gfx/engine/model"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/uploader"
)

// Layer names used by Attach.
const (
	LayerWorld = "world"
	LayerHUD   = "hud"
)

// Scene is an AssetBundle uploaded to one GraphicsContext: its textures, the materials built from them,
// a textured model per mesh and a color model per quad.
type Scene interface {
	// Name returns the scene name.
	Name() string

	// Materials returns the material set every textured model draws from.
	Materials() *material.Set

	// Models returns the textured models in bundle order.
	Models() []model.Model

	// Quads returns the screen-space quad models in bundle order.
	Quads() []model.Model

	// Model returns a model by name, searching the textured models first.
	//
	// Parameters:
	//   - name: the model name
	//
	// Returns:
	//   - model.Model: the model
	//   - bool: false if no model has that name
	Model(name string) (model.Model, bool)

	// Attach adds the scene to a frame loop: the textured models as the "world" layer drawn with world
	// and the quads as the "hud" layer drawn with hud. A layer with no models is not added.
	//
	// Parameters:
	//   - loop: the frame loop
	//   - world: the camera of the textured models
	//   - hud: the camera of the quads
	//
	// Returns:
	//   - error: an error if a layer could not be added
	Attach(loop frameloop.FrameLoop, world, hud camera.Camera) error

	// Release frees every model, material and texture of the scene. It is safe to call more than once.
	Release()
}

type scene struct {
	mu *sync.Mutex

	name     string
	ctx      renderer.GraphicsContext
	uploader uploader.Uploader
	ownsUp   bool

	textures  map[string]*renderer.Texture
	materials *material.Set
	models    []model.Model
	quads     []model.Model
}

var _ Scene = &scene{}

// NewScene uploads a bundle. The color and textured pipelines are registered on ctx if they are not
// already. On failure everything created so far is released.
//
// Parameters:
//   - ctx: the GraphicsContext to upload to
//   - bundle: the decoded assets
//   - options: variadic list of SceneBuilderOption functions
//
// Returns:
//   - Scene: the uploaded scene
//   - error: the validation error of the bundle, or the first upload error
func NewScene(ctx renderer.GraphicsContext, bundle *loader.AssetBundle, options ...SceneBuilderOption) (Scene, error) {
	if bundle == nil {
		return nil, errors.New("scene: no bundle")
	}
	s := &scene{
		mu:        &sync.Mutex{},
		name:      "scene",
		ctx:       ctx,
		textures:  make(map[string]*renderer.Texture),
		materials: material.NewSet(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.uploader == nil {
		s.uploader = uploader.NewUploader(ctx)
		s.ownsUp = true
	}

	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("scene %s: %w", s.name, err)
	}
	if err := s.build(bundle); err != nil {
		s.Release()
		return nil, fmt.Errorf("scene %s: %w", s.name, err)
	}
	slog.Info("[Scene] uploaded", "name", s.name, "textures", len(s.textures), "materials", s.materials.Len(), "models", len(s.models), "quads", len(s.quads))
	return s, nil
}

func (s *scene) build(bundle *loader.AssetBundle) error {
	color, err := pipeline.NewColorPipeline()
	if err != nil {
		return err
	}
	textured, err := pipeline.NewTexturedPipeline()
	if err != nil {
		return err
	}
	if err := s.ctx.RegisterPipelines(color, textured); err != nil {
		return err
	}

	for _, t := range bundle.Textures {
		tex, err := s.uploader.UploadTexture(t.Name, t.Pixels, t.Width, t.Height, t.Format)
		if err != nil {
			return err
		}
		s.textures[t.Name] = tex
	}

	layout, ok := s.ctx.BindGroupLayout(pipeline.KeyTextured, pipeline.GroupMaterial)
	if !ok {
		return fmt.Errorf("pipeline %q has no %q layout", pipeline.KeyTextured, pipeline.GroupMaterial)
	}
	for _, m := range bundle.Materials {
		diffuse, normal, err := s.resolveTextures(m)
		if err != nil {
			return err
		}
		if _, err := s.uploader.BuildMaterial(s.materials, m.Name, diffuse, normal, layout); err != nil {
			return err
		}
	}

	for _, m := range bundle.Meshes {
		mat, err := s.material(m.Material, layout)
		if err != nil {
			return err
		}
		mdl, err := s.upload(m.Name, pipeline.KeyTextured, m.Vertices, m.Indices, model.WithMaterial(mat), model.WithTransform(m.Transform))
		if err != nil {
			return err
		}
		s.models = append(s.models, mdl)
	}

	for i, q := range bundle.Quads {
		mdl, err := s.upload(fmt.Sprintf("quad %d", i), pipeline.KeyColor, model.Quad(q), model.QuadIndices, model.WithTransform(model.QuadTransform(q)))
		if err != nil {
			return err
		}
		s.quads = append(s.quads, mdl)
	}
	return nil
}

// resolveTextures looks up the textures of a material, using the default textures for empty names.
func (s *scene) resolveTextures(m loader.MaterialAsset) (*renderer.Texture, *renderer.Texture, error) {
	defDiffuse, defNormal, err := s.uploader.DefaultTextures()
	if err != nil {
		return nil, nil, err
	}
	diffuse, normal := defDiffuse, defNormal
	if m.Diffuse != "" {
		diffuse = s.textures[m.Diffuse]
	}
	if m.Normal != "" {
		normal = s.textures[m.Normal]
	}
	return diffuse, normal, nil
}

// material returns the named material, or the default material for an empty name.
func (s *scene) material(name string, layout renderer.BindGroupLayout) (material.Material, error) {
	if name != "" {
		mat, ok := s.materials.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown material %q", name)
		}
		return mat, nil
	}
	if mat, ok := s.materials.Get(DefaultMaterialName); ok {
		return mat, nil
	}
	diffuse, normal, err := s.uploader.DefaultTextures()
	if err != nil {
		return nil, err
	}
	return s.uploader.BuildMaterial(s.materials, DefaultMaterialName, diffuse, normal, layout)
}

// upload creates the mesh and model, releasing the mesh when the model cannot be created.
func (s *scene) upload(name, key string, vertices uploader.VertexSource, indices []uint32, options ...model.ModelBuilderOption) (model.Model, error) {
	mesh, err := s.uploader.UploadMesh(name, vertices, indices)
	if err != nil {
		return nil, err
	}
	mdl, err := model.NewModel(s.ctx, name, key, mesh, options...)
	if err != nil {
		mesh.Release()
		return nil, err
	}
	return mdl, nil
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Materials() *material.Set {
	return s.materials
}

func (s *scene) Models() []model.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Model(nil), s.models...)
}

func (s *scene) Quads() []model.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Model(nil), s.quads...)
}

func (s *scene) Model(name string) (model.Model, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range [][]model.Model{s.models, s.quads} {
		for _, m := range list {
			if m.Name() == name {
				return m, true
			}
		}
	}
	return nil, false
}

func (s *scene) Attach(loop frameloop.FrameLoop, world, hud camera.Camera) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.models) > 0 {
		if _, err := loop.AddLayer(LayerWorld, world, s.models...); err != nil {
			return fmt.Errorf("scene %s: %w", s.name, err)
		}
	}
	if len(s.quads) > 0 {
		if _, err := loop.AddLayer(LayerHUD, hud, s.quads...); err != nil {
			return fmt.Errorf("scene %s: %w", s.name, err)
		}
	}
	return nil
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.models {
		m.Release()
	}
	for _, m := range s.quads {
		m.Release()
	}
	s.models, s.quads = nil, nil

	s.materials.Release()
	for name, tex := range s.textures {
		tex.Release()
		delete(s.textures, name)
	}
	if s.ownsUp {
		s.uploader.Release()
	}
}
