package uploader

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
)

// VertexSource is vertex data already laid out the way the pipeline's vertex buffer layout reads it.
type VertexSource interface {
	// VertexBytes returns the packed vertex data.
	VertexBytes() []byte
	// VertexCount returns the number of vertices in VertexBytes.
	VertexCount() uint32
}

// uploader is the implementation of the Uploader interface.
type uploader struct {
	mu *sync.Mutex

	ctx     renderer.GraphicsContext
	sampler common.SamplerStagingData

	defaultDiffuse *renderer.Texture
	defaultNormal  *renderer.Texture
}

// Uploader validates CPU-side asset data and turns it into device resources on one GraphicsContext.
// All validation happens before anything is allocated, so a rejected upload leaves the device untouched.
type Uploader interface {
	// UploadTexture creates a single-mip 2D texture with its sampler.
	//
	// Parameters:
	//   - label: the debug label
	//   - pixels: tightly packed rows, top row first
	//   - width: the width in pixels
	//   - height: the height in pixels
	//   - format: the pixel format of pixels
	//
	// Returns:
	//   - *renderer.Texture: the texture, reporting the given width, height and format
	//   - error: an *renderer.UploadError with UnsupportedFormat, SizeMismatch or TooLarge
	UploadTexture(label string, pixels []byte, width, height uint32, format wgpu.TextureFormat) (*renderer.Texture, error)

	// UploadMesh creates the vertex buffer and, when indices are given, the index buffer of a mesh.
	//
	// Parameters:
	//   - label: the debug label
	//   - vertices: the vertex data
	//   - indices: the triangle list indices; nil for a sequential non-indexed draw
	//
	// Returns:
	//   - *Mesh: the mesh
	//   - error: an error if the mesh is empty, an index is out of range or buffer creation failed
	UploadMesh(label string, vertices VertexSource, indices []uint32) (*Mesh, error)

	// BuildMaterial binds a diffuse and a normal texture, each with its sampler, into one bind group
	// created against a pipeline's material layout. When set is not nil the name is checked against it
	// before anything is allocated and the material is inserted on success.
	//
	// Parameters:
	//   - set: the set to add the material to, may be nil
	//   - name: the material name
	//   - diffuse: the diffuse texture
	//   - normal: the normal texture
	//   - layout: the material layout of the pipeline the material is drawn with
	//   - options: extra options applied to the material, e.g. material.WithOwnedTextures
	//
	// Returns:
	//   - material.Material: the material
	//   - error: an *renderer.UploadError with DuplicateMaterialName or LayoutMismatch
	BuildMaterial(set *material.Set, name string, diffuse, normal *renderer.Texture, layout renderer.BindGroupLayout, options ...material.MaterialBuilderOption) (material.Material, error)

	// DefaultTextures returns a 1x1 white sRGB diffuse texture and a 1x1 flat normal map, created on
	// first use and shared by every caller.
	//
	// Returns:
	//   - *renderer.Texture: the default diffuse texture
	//   - *renderer.Texture: the default normal texture
	//   - error: an error if either texture could not be created
	DefaultTextures() (diffuse, normal *renderer.Texture, err error)

	// Release frees the default textures.
	Release()
}

var _ Uploader = &uploader{}

// NewUploader creates an Uploader for a GraphicsContext.
//
// Parameters:
//   - ctx: the GraphicsContext resources are created on
//   - options: variadic list of UploaderBuilderOption functions
//
// Returns:
//   - Uploader: the uploader
func NewUploader(ctx renderer.GraphicsContext, options ...UploaderBuilderOption) Uploader {
	u := &uploader{
		mu:  &sync.Mutex{},
		ctx: ctx,
	}
	for _, opt := range options {
		opt(u)
	}
	return u
}

func (u *uploader) UploadTexture(label string, pixels []byte, width, height uint32, format wgpu.TextureFormat) (*renderer.Texture, error) {
	staging := common.TextureStagingData{Label: label, Pixels: pixels, Width: width, Height: height, Format: format}
	if err := u.validateTexture(staging); err != nil {
		return nil, err
	}

	tex, err := u.ctx.InitTexture(staging, u.sampler)
	if err != nil {
		return nil, fmt.Errorf("upload texture %s: %w", label, err)
	}
	slog.Debug("[Uploader] texture uploaded", "label", label, "width", width, "height", height, "bytes", len(pixels))
	return tex, nil
}

// validateTexture checks format, dimensions and pixel buffer length, then the dimensions against the
// device limits. A buffer that disagrees with its dimensions is a SizeMismatch however large it is.
func (u *uploader) validateTexture(s common.TextureStagingData) error {
	want, err := s.ByteSize()
	if err != nil {
		return renderer.NewUploadError(renderer.UnsupportedFormat, s.Label, "%v", err)
	}
	if s.Width == 0 || s.Height == 0 {
		return renderer.NewUploadError(renderer.SizeMismatch, s.Label, "zero dimension %dx%d", s.Width, s.Height)
	}
	if len(s.Pixels) != want {
		return renderer.NewUploadError(renderer.SizeMismatch, s.Label, "%d bytes for %dx%d %v, want %d", len(s.Pixels), s.Width, s.Height, s.Format, want)
	}
	if limit := u.ctx.MaxTextureDimension(); s.Width > limit || s.Height > limit {
		return renderer.NewUploadError(renderer.TooLarge, s.Label, "%dx%d exceeds %d", s.Width, s.Height, limit)
	}
	return nil
}

func (u *uploader) UploadMesh(label string, vertices VertexSource, indices []uint32) (*Mesh, error) {
	if vertices == nil || vertices.VertexCount() == 0 {
		return nil, fmt.Errorf("upload mesh %s: no vertices", label)
	}
	count := vertices.VertexCount()
	for i, idx := range indices {
		if idx >= count {
			return nil, fmt.Errorf("upload mesh %s: index %d at %d out of range for %d vertices", label, idx, i, count)
		}
	}

	provider := u.ctx.NewBindGroupProvider(label)
	var indexData []byte
	if len(indices) > 0 {
		indexData = common.Uint32sToBytes(indices)
	}
	if err := u.ctx.InitMeshBuffers(provider, vertices.VertexBytes(), indexData, count, uint32(len(indices))); err != nil {
		return nil, fmt.Errorf("upload mesh %s: %w", label, err)
	}
	return &Mesh{Label: label, Provider: provider}, nil
}

// materialSlot is one texture binding of a material layout and the sampler binding that follows it.
type materialSlot struct {
	texture wgpu.BindGroupLayoutEntry
	sampler wgpu.BindGroupLayoutEntry
}

// materialSlots splits a material layout into texture+sampler pairs in binding order. Every texture
// must be followed by its sampler at the next binding.
func materialSlots(layout renderer.BindGroupLayout) ([]materialSlot, error) {
	entries := append([]wgpu.BindGroupLayoutEntry(nil), layout.Descriptor.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })

	samplers := make(map[uint32]wgpu.BindGroupLayoutEntry)
	for _, e := range entries {
		if e.Sampler.Type != wgpu.SamplerBindingTypeUndefined {
			samplers[e.Binding] = e
		}
	}

	var slots []materialSlot
	for _, e := range entries {
		switch {
		case e.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			s, ok := samplers[e.Binding+1]
			if !ok {
				return nil, fmt.Errorf("layout %s: texture binding %d has no sampler at binding %d", layout.Name, e.Binding, e.Binding+1)
			}
			slots = append(slots, materialSlot{texture: e, sampler: s})
		case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
		default:
			return nil, fmt.Errorf("layout %s: binding %d is not a texture or sampler", layout.Name, e.Binding)
		}
	}
	if len(slots) != 2 {
		return nil, fmt.Errorf("layout %s: %d texture bindings, a material binds diffuse and normal", layout.Name, len(slots))
	}
	return slots, nil
}

// checkSlot verifies a texture can be bound to a slot.
func checkSlot(slot materialSlot, tex *renderer.Texture, role string) error {
	if tex == nil {
		return fmt.Errorf("no %s texture", role)
	}
	have := common.SampleType(tex.Format)
	if !common.SampleTypeCompatible(slot.texture.Texture.SampleType, have) {
		return fmt.Errorf("%s texture %s samples as %v, binding %d expects %v", role, tex.Label, have, slot.texture.Binding, slot.texture.Texture.SampleType)
	}
	if have == wgpu.TextureSampleTypeUnfilterableFloat && slot.sampler.Sampler.Type == wgpu.SamplerBindingTypeFiltering {
		return fmt.Errorf("%s texture %s (%v) cannot be filtered by sampler binding %d", role, tex.Label, tex.Format, slot.sampler.Binding)
	}
	return nil
}

func (u *uploader) BuildMaterial(set *material.Set, name string, diffuse, normal *renderer.Texture, layout renderer.BindGroupLayout, options ...material.MaterialBuilderOption) (material.Material, error) {
	if set != nil && set.Has(name) {
		return nil, renderer.NewUploadError(renderer.DuplicateMaterialName, name, "material set already holds %q", name)
	}

	slots, err := materialSlots(layout)
	if err != nil {
		return nil, &renderer.UploadError{Kind: renderer.LayoutMismatch, Resource: name, Err: err}
	}
	for i, tex := range []*renderer.Texture{diffuse, normal} {
		role := [...]string{"diffuse", "normal"}[i]
		if err := checkSlot(slots[i], tex, role); err != nil {
			return nil, &renderer.UploadError{Kind: renderer.LayoutMismatch, Resource: name, Err: err}
		}
	}

	provider := u.ctx.NewBindGroupProvider("material " + name)
	for i, tex := range []*renderer.Texture{diffuse, normal} {
		provider.SetTexture(slots[i].texture.Binding, tex.Image)
		provider.SetSampler(slots[i].sampler.Binding, tex.Sampler)
	}
	if err := u.ctx.InitBindGroup(provider, layout, nil); err != nil {
		provider.Release()
		var uploadErr *renderer.UploadError
		if errors.As(err, &uploadErr) {
			uploadErr.Resource = name
			return nil, uploadErr
		}
		return nil, fmt.Errorf("build material %s: %w", name, err)
	}

	opts := append([]material.MaterialBuilderOption{
		material.WithDiffuse(diffuse),
		material.WithNormal(normal),
		material.WithPipelineKey(layout.Pipeline),
		material.WithBindGroupProvider(provider),
	}, options...)
	m := material.NewMaterial(name, opts...)

	if set != nil {
		if err := set.Insert(m); err != nil {
			provider.Release()
			return nil, err
		}
	}
	slog.Debug("[Uploader] material built", "name", name, "pipeline", layout.Pipeline)
	return m, nil
}

func (u *uploader) DefaultTextures() (*renderer.Texture, *renderer.Texture, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.defaultDiffuse == nil {
		tex, err := u.UploadTexture("default diffuse", []byte{255, 255, 255, 255}, 1, 1, wgpu.TextureFormatRGBA8UnormSrgb)
		if err != nil {
			return nil, nil, err
		}
		u.defaultDiffuse = tex
	}
	if u.defaultNormal == nil {
		tex, err := u.UploadTexture("default normal", []byte{128, 128, 255, 255}, 1, 1, wgpu.TextureFormatRGBA8Unorm)
		if err != nil {
			return nil, nil, err
		}
		u.defaultNormal = tex
	}
	return u.defaultDiffuse, u.defaultNormal, nil
}

func (u *uploader) Release() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.defaultDiffuse.Release()
	u.defaultNormal.Release()
	u.defaultDiffuse, u.defaultNormal = nil, nil
}
