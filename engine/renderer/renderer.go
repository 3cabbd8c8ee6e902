package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/arena"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// BindGroupLayout is a device bind group layout together with the named descriptor it was created from.
type BindGroupLayout struct {
	Handle arena.Handle
	pipeline.LayoutDescriptor
}

// Texture is an uploaded, immutable 2D texture. Image refers to the texture and its default view,
// Sampler to the sampler created alongside it.
type Texture struct {
	Label         string
	Width         uint32
	Height        uint32
	Format        wgpu.TextureFormat
	MipLevelCount uint32
	SampleCount   uint32
	Usage         wgpu.TextureUsage
	Image         arena.Handle
	Sampler       arena.Handle

	res *arena.Arena
}

// Release frees the texture and its sampler. Releasing twice is a no-op.
func (t *Texture) Release() {
	if t == nil || t.res == nil {
		return
	}
	t.res.Release(t.Image)
	t.res.Release(t.Sampler)
}

// FrameTarget is the presentable image of one frame. It is valid from AcquireFrame until Present or
// Discard.
type FrameTarget struct {
	Width  int
	Height int
	// Index counts acquired frames since Initialize, starting at 1.
	Index uint64

	frame BackendFrame
	ended bool
}

// registeredPipeline is a pipeline whose layouts and render pipeline live in the arena.
type registeredPipeline struct {
	pipeline pipeline.Pipeline
	handle   arena.Handle
	layouts  []BindGroupLayout
}

// graphicsContext is the implementation of the GraphicsContext interface.
type graphicsContext struct {
	mu *sync.Mutex

	target  Target
	backend RendererBackend
	res     *arena.Arena

	pipelines map[string]*registeredPipeline

	surface    SurfaceConfig
	frameIndex uint64
	inFlight   *FrameTarget
	lost       bool

	// Pre-creation config collected from builder options
	candidates           []BackendCandidate
	onlyKind             *BackendKind
	forceFallbackAdapter bool
}

// GraphicsContext owns one device, its presentation surface and every resource created on it.
// Resources are referenced by arena handles; Teardown releases all of them at once and makes every
// outstanding handle stale.
//
// A GraphicsContext is used from a single goroutine, the one running the frame loop.
type GraphicsContext interface {
	// Kind returns which backend was selected by Initialize.
	Kind() BackendKind

	// Arena returns the arena holding every resource of this context.
	Arena() *arena.Arena

	// Size returns the current surface size in pixels.
	Size() (width, height int)

	// SurfaceFormat returns the color format of the surface.
	SurfaceFormat() wgpu.TextureFormat

	// MaxTextureDimension returns the largest width or height accepted for a texture.
	MaxTextureDimension() uint32

	// Resize reconfigures the surface for a new size. A zero width or height is ignored and the last
	// valid configuration is kept, which is what a minimized window reports.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the surface could not be reconfigured
	Resize(width, height int) error

	// SetPresentMode reconfigures the surface with a new present mode.
	//
	// Parameters:
	//   - mode: PresentModeVSync or PresentModeUncapped
	//
	// Returns:
	//   - error: an error if the surface could not be reconfigured
	SetPresentMode(mode PresentMode) error

	// SetClearColor changes the color frames are cleared to, starting with the next acquired frame.
	//
	// Parameters:
	//   - color: the clear color
	//
	// Returns:
	//   - error: an error if the surface could not be reconfigured
	SetClearColor(color wgpu.Color) error

	// AcquireFrame obtains the next presentable image with a bounded wait.
	//
	// Returns:
	//   - *FrameTarget: the frame to record into
	//   - error: an *AcquireError for Outdated, SurfaceLost or Timeout; a *DeviceLostError when the
	//     device can no longer be used
	AcquireFrame() (*FrameTarget, error)

	// Submit ends recording and submits the frame's commands.
	//
	// Parameters:
	//   - frame: the frame returned by AcquireFrame
	//
	// Returns:
	//   - error: a *DeviceLostError when submission fails; the frame is discarded
	Submit(frame *FrameTarget) error

	// Present hands a submitted frame to the compositor. On browser targets this is a no-op hand-off;
	// the compositor presents when the animation callback returns.
	//
	// Parameters:
	//   - frame: the submitted frame
	//
	// Returns:
	//   - error: an error if the frame was not submitted or already ended
	Present(frame *FrameTarget) error

	// Discard drops a frame without presenting it.
	//
	// Parameters:
	//   - frame: the frame to drop; nil is ignored
	Discard(frame *FrameTarget)

	// Reinitialize recreates the surface from the original target and reconfigures it. The device and
	// every handle stay valid.
	//
	// Returns:
	//   - error: an *InitError if the surface could not be recreated
	Reinitialize() error

	// Lost reports whether a submission failed with a lost device. A lost context only accepts Teardown.
	Lost() bool

	// Teardown releases every resource, invalidates every handle and destroys the device.
	Teardown()

	// RegisterPipelines creates the bind group layouts and render pipeline of each pipeline.
	// Pipelines whose keys are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if layout or pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Pipeline retrieves a registered pipeline by key.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline
	//   - bool: false if no pipeline is registered under key
	Pipeline(key string) (pipeline.Pipeline, bool)

	// BindGroupLayout retrieves a named bind group layout of a registered pipeline.
	//
	// Parameters:
	//   - pipelineKey: the pipeline key
	//   - name: the layout name, e.g. pipeline.GroupMaterial
	//
	// Returns:
	//   - BindGroupLayout: the layout
	//   - bool: false if the pipeline or the layout is unknown
	BindGroupLayout(pipelineKey, name string) (BindGroupLayout, bool)

	// NewBindGroupProvider creates a provider whose handles are released through this context's arena.
	//
	// Parameters:
	//   - label: the debug label
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the new provider
	NewBindGroupProvider(label string) bind_group_provider.BindGroupProvider

	// InitMeshBuffers creates vertex and index buffers from raw byte data and stores them on the provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created buffers on
	//   - vertexData: the raw vertex data bytes
	//   - indexData: the raw uint32 index data bytes; empty for non-indexed meshes
	//   - vertexCount: the number of vertices
	//   - indexCount: the number of indices
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, vertexCount, indexCount uint32) error

	// InitTexture creates a texture from validated staging data together with its sampler.
	//
	// Parameters:
	//   - staging: the pixels, dimensions and format
	//   - sampler: the sampler configuration; zero values use linear filtering with repeat addressing
	//
	// Returns:
	//   - *Texture: the uploaded texture
	//   - error: an error if creation fails
	InitTexture(staging common.TextureStagingData, sampler common.SamplerStagingData) (*Texture, error)

	// InitSampler creates a standalone sampler, for bind groups that pair one sampler with several textures.
	//
	// Parameters:
	//   - label: the debug label
	//   - data: the sampler configuration; zero values use linear filtering with repeat addressing
	//
	// Returns:
	//   - arena.Handle: the sampler handle
	//   - error: an error if creation fails
	InitSampler(label string, data common.SamplerStagingData) (arena.Handle, error)

	// InitBindGroup creates the bind group of a provider against a named layout. Uniform buffers are
	// created for buffer entries that have none yet; textures and samplers must already be set on the
	// provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the bind group on
	//   - layout: the layout to create the bind group against
	//   - sizeOverrides: buffer sizes to use instead of MinBindingSize, keyed by binding (nil safe)
	//
	// Returns:
	//   - error: an *UploadError with LayoutMismatch when a texture or sampler binding is missing
	InitBindGroup(provider bind_group_provider.BindGroupProvider, layout BindGroupLayout, sizeOverrides map[uint32]uint64) error

	// WriteBuffers queues every buffer write. Each BufferWrite targets a buffer on a provider at a
	// binding and offset.
	//
	// Parameters:
	//   - writes: the writes to queue
	//
	// Returns:
	//   - error: an error if a target buffer is missing or stale
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// DrawCall records one draw into a frame. bindGroups is indexed by group.
	//
	// Parameters:
	//   - frame: the frame being recorded
	//   - pipelineKey: the registered pipeline to draw with
	//   - mesh: the provider holding vertex and index buffers
	//   - bindGroups: one provider per bind group of the pipeline, in group order
	//
	// Returns:
	//   - error: an error if the pipeline is unknown or a handle is stale
	DrawCall(frame *FrameTarget, pipelineKey string, mesh bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error
}

var _ GraphicsContext = &graphicsContext{}

// Initialize selects a backend for the target by probing the candidate list in order and configures
// the surface. A candidate that reports ErrBackendUnavailable is skipped; a surface creation failure
// stops the probe.
//
// Parameters:
//   - target: the presentation target
//   - width: the initial surface width in pixels
//   - height: the initial surface height in pixels
//   - options: variadic list of GraphicsContextOption functions
//
// Returns:
//   - GraphicsContext: the initialized context
//   - error: an *InitError with NoSuitableAdapter or SurfaceCreationFailed
func Initialize(target Target, width, height int, options ...GraphicsContextOption) (GraphicsContext, error) {
	c := &graphicsContext{
		mu:        &sync.Mutex{},
		target:    target,
		res:       arena.New(),
		pipelines: make(map[string]*registeredPipeline),
		surface: SurfaceConfig{
			Width:       max(width, 1),
			Height:      max(height, 1),
			PresentMode: PresentModeVSync,
			ClearColor:  DefaultClearColor,
		},
		candidates: defaultCandidates(),
	}
	for _, opt := range options {
		opt(c)
	}
	if target == nil {
		return nil, &InitError{Kind: SurfaceCreationFailed, Err: errors.New("nil target")}
	}
	if c.onlyKind != nil {
		kept := c.candidates[:0:0]
		for _, candidate := range c.candidates {
			if candidate.Kind == *c.onlyKind {
				kept = append(kept, candidate)
			}
		}
		c.candidates = kept
	}

	var errs []error
	for _, candidate := range c.candidates {
		backend, err := candidate.Open(target, CandidateOptions{ForceFallbackAdapter: c.forceFallbackAdapter})
		if err == nil {
			c.backend = backend
			break
		}
		if errors.Is(err, ErrSurfaceCreationFailed) {
			return nil, &InitError{Kind: SurfaceCreationFailed, Err: fmt.Errorf("%s: %w", candidate.Name, err)}
		}
		if !errors.Is(err, ErrBackendUnavailable) {
			slog.Warn("[GraphicsContext] backend candidate failed", "candidate", candidate.Name, "error", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", candidate.Name, err))
	}
	if c.backend == nil {
		return nil, &InitError{Kind: NoSuitableAdapter, Err: errors.Join(errs...)}
	}

	if err := c.backend.ConfigureSurface(c.surface); err != nil {
		c.backend.Destroy()
		return nil, &InitError{Kind: SurfaceCreationFailed, Err: fmt.Errorf("configure surface: %w", err)}
	}

	slog.Info("[GraphicsContext] initialized",
		"target", target.targetName(),
		"backend", c.backend.Kind().String(),
		"format", c.backend.SurfaceFormat(),
		"width", c.surface.Width,
		"height", c.surface.Height,
	)
	return c, nil
}

func (c *graphicsContext) Kind() BackendKind {
	return c.backend.Kind()
}

func (c *graphicsContext) Arena() *arena.Arena {
	return c.res
}

func (c *graphicsContext) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surface.Width, c.surface.Height
}

func (c *graphicsContext) SurfaceFormat() wgpu.TextureFormat {
	return c.backend.SurfaceFormat()
}

func (c *graphicsContext) MaxTextureDimension() uint32 {
	return c.backend.MaxTextureDimension()
}

func (c *graphicsContext) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg := c.surface
	cfg.Width, cfg.Height = width, height
	return c.configure(cfg)
}

func (c *graphicsContext) SetPresentMode(mode PresentMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.surface.PresentMode == mode {
		return nil
	}
	cfg := c.surface
	cfg.PresentMode = mode
	return c.configure(cfg)
}

func (c *graphicsContext) SetClearColor(color wgpu.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.surface.ClearColor == color {
		return nil
	}
	cfg := c.surface
	cfg.ClearColor = color
	return c.configure(cfg)
}

// configure applies a surface configuration and keeps it as the last valid one. Caller must hold the mutex.
func (c *graphicsContext) configure(cfg SurfaceConfig) error {
	if err := c.backend.ConfigureSurface(cfg); err != nil {
		return fmt.Errorf("configure surface %dx%d: %w", cfg.Width, cfg.Height, err)
	}
	c.surface = cfg
	return nil
}

func (c *graphicsContext) AcquireFrame() (*FrameTarget, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lost {
		return nil, &DeviceLostError{Err: errors.New("acquire on lost device")}
	}
	if c.inFlight != nil {
		return nil, fmt.Errorf("frame %d still in flight", c.inFlight.Index)
	}

	bf, err := c.backend.AcquireFrame()
	if err != nil {
		var acquireErr *AcquireError
		var lostErr *DeviceLostError
		if errors.As(err, &lostErr) {
			c.lost = true
			return nil, err
		}
		if errors.As(err, &acquireErr) {
			return nil, err
		}
		return nil, &AcquireError{Kind: Outdated, Err: err}
	}

	c.frameIndex++
	ft := &FrameTarget{
		Width:  c.surface.Width,
		Height: c.surface.Height,
		Index:  c.frameIndex,
		frame:  bf,
	}
	c.inFlight = ft
	return ft, nil
}

func (c *graphicsContext) Submit(frame *FrameTarget) error {
	if frame == nil || frame.ended {
		return errors.New("submit: frame already ended")
	}
	if err := frame.frame.Submit(); err != nil {
		c.mu.Lock()
		c.lost = true
		c.mu.Unlock()
		c.Discard(frame)

		var lostErr *DeviceLostError
		if errors.As(err, &lostErr) {
			return lostErr
		}
		return &DeviceLostError{Err: err}
	}
	return nil
}

func (c *graphicsContext) Present(frame *FrameTarget) error {
	if frame == nil || frame.ended {
		return errors.New("present: frame already ended")
	}
	err := frame.frame.Present()
	c.end(frame)
	return err
}

func (c *graphicsContext) Discard(frame *FrameTarget) {
	if frame == nil || frame.ended {
		return
	}
	frame.frame.Discard()
	c.end(frame)
}

func (c *graphicsContext) end(frame *FrameTarget) {
	frame.ended = true
	c.mu.Lock()
	if c.inFlight == frame {
		c.inFlight = nil
	}
	c.mu.Unlock()
}

func (c *graphicsContext) Reinitialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight != nil {
		c.inFlight.frame.Discard()
		c.inFlight.ended = true
		c.inFlight = nil
	}
	if err := c.backend.RecreateSurface(); err != nil {
		return &InitError{Kind: SurfaceCreationFailed, Err: err}
	}
	if err := c.backend.ConfigureSurface(c.surface); err != nil {
		return &InitError{Kind: SurfaceCreationFailed, Err: err}
	}
	slog.Info("[GraphicsContext] surface recreated", "width", c.surface.Width, "height", c.surface.Height)
	return nil
}

func (c *graphicsContext) Lost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lost
}

func (c *graphicsContext) Teardown() {
	c.mu.Lock()
	if c.inFlight != nil {
		c.inFlight.frame.Discard()
		c.inFlight.ended = true
		c.inFlight = nil
	}
	c.pipelines = make(map[string]*registeredPipeline)
	c.mu.Unlock()

	live, bytes := c.res.Live(), c.res.Bytes()
	c.res.ReleaseAll()
	c.backend.Destroy()
	slog.Info("[GraphicsContext] torn down", "released", live, "bytes", bytes)
}

func (c *graphicsContext) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := c.pipelines[key]; exists {
			continue
		}

		reg := &registeredPipeline{pipeline: p}
		backendLayouts := make([]any, 0, len(p.Layouts()))
		for _, desc := range p.Layouts() {
			created, err := c.backend.CreateBindGroupLayout(desc.Descriptor)
			if err != nil {
				c.releaseLayouts(reg.layouts)
				return fmt.Errorf("pipeline %s: layout %s: %w", key, desc.Name, err)
			}
			h := c.res.Insert(arena.KindBindGroupLayout, created, 0, c.releaser(created))
			reg.layouts = append(reg.layouts, BindGroupLayout{Handle: h, LayoutDescriptor: desc})
			backendLayouts = append(backendLayouts, created)
		}

		created, err := c.backend.CreateRenderPipeline(p, backendLayouts)
		if err != nil {
			c.releaseLayouts(reg.layouts)
			return fmt.Errorf("pipeline %s: %w", key, err)
		}
		reg.handle = c.res.Insert(arena.KindPipeline, created, 0, c.releaser(created))
		c.pipelines[key] = reg
	}
	return nil
}

func (c *graphicsContext) releaseLayouts(layouts []BindGroupLayout) {
	for _, l := range layouts {
		c.res.Release(l.Handle)
	}
}

func (c *graphicsContext) Pipeline(key string) (pipeline.Pipeline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reg, ok := c.pipelines[key]
	if !ok {
		return nil, false
	}
	return reg.pipeline, true
}

func (c *graphicsContext) BindGroupLayout(pipelineKey, name string) (BindGroupLayout, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reg, ok := c.pipelines[pipelineKey]
	if !ok {
		return BindGroupLayout{}, false
	}
	for _, l := range reg.layouts {
		if l.Name == name {
			return l, true
		}
	}
	return BindGroupLayout{}, false
}

func (c *graphicsContext) NewBindGroupProvider(label string) bind_group_provider.BindGroupProvider {
	return bind_group_provider.NewBindGroupProvider(label, bind_group_provider.WithArena(c.res))
}

func (c *graphicsContext) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, vertexCount, indexCount uint32) error {
	if len(vertexData) == 0 {
		return fmt.Errorf("mesh %s: no vertex data", provider.Label())
	}

	vb, err := c.createFilledBuffer(provider.Label()+" vertex buffer", vertexData, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst)
	if err != nil {
		return err
	}

	var ib arena.Handle
	if len(indexData) > 0 {
		ib, err = c.createFilledBuffer(provider.Label()+" index buffer", indexData, wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst)
		if err != nil {
			c.res.Release(vb)
			return err
		}
	} else {
		indexCount = 0
	}

	provider.SetMesh(vb, ib, vertexCount, indexCount)
	return nil
}

// createFilledBuffer creates a buffer sized to data and writes data into it.
func (c *graphicsContext) createFilledBuffer(label string, data []byte, usage wgpu.BufferUsage) (arena.Handle, error) {
	size := uint64(len(data))
	// wgpu requires buffer writes to be a multiple of 4 bytes.
	if rem := size % 4; rem != 0 {
		data = append(append([]byte(nil), data...), make([]byte, 4-rem)...)
		size = uint64(len(data))
	}

	buf, err := c.backend.CreateBuffer(label, size, usage)
	if err != nil {
		return arena.Handle{}, fmt.Errorf("create %s: %w", label, err)
	}
	if err := c.backend.WriteBuffer(buf, 0, data); err != nil {
		c.backend.Release(buf)
		return arena.Handle{}, fmt.Errorf("write %s: %w", label, err)
	}
	return c.res.Insert(arena.KindBuffer, buf, size, c.releaser(buf)), nil
}

func (c *graphicsContext) InitTexture(staging common.TextureStagingData, sampler common.SamplerStagingData) (*Texture, error) {
	img, err := c.backend.CreateTexture(staging)
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", staging.Label, err)
	}
	s, err := c.backend.CreateSampler(staging.Label+" sampler", sampler)
	if err != nil {
		c.backend.Release(img)
		return nil, fmt.Errorf("create sampler %s: %w", staging.Label, err)
	}

	return &Texture{
		Label:         staging.Label,
		Width:         staging.Width,
		Height:        staging.Height,
		Format:        staging.Format,
		MipLevelCount: 1,
		SampleCount:   1,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Image:         c.res.Insert(arena.KindTexture, img, uint64(len(staging.Pixels)), c.releaser(img)),
		Sampler:       c.res.Insert(arena.KindSampler, s, 0, c.releaser(s)),
		res:           c.res,
	}, nil
}

func (c *graphicsContext) InitSampler(label string, data common.SamplerStagingData) (arena.Handle, error) {
	s, err := c.backend.CreateSampler(label, data)
	if err != nil {
		return arena.Handle{}, fmt.Errorf("create sampler %s: %w", label, err)
	}
	return c.res.Insert(arena.KindSampler, s, 0, c.releaser(s)), nil
}

func (c *graphicsContext) InitBindGroup(provider bind_group_provider.BindGroupProvider, layout BindGroupLayout, sizeOverrides map[uint32]uint64) error {
	backendLayout, err := c.res.Get(layout.Handle, arena.KindBindGroupLayout)
	if err != nil {
		return fmt.Errorf("bind group %s: layout %s: %w", provider.Label(), layout.Name, err)
	}

	entries := make([]BindGroupEntry, 0, len(layout.Descriptor.Entries))
	for _, entry := range layout.Descriptor.Entries {
		binding := entry.Binding
		switch {
		case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			h, ok := provider.Texture(binding)
			if !ok {
				return NewUploadError(LayoutMismatch, provider.Label(), "layout %s binding %d expects a texture", layout.Name, binding)
			}
			tex, err := c.res.Get(h, arena.KindTexture)
			if err != nil {
				return &UploadError{Kind: LayoutMismatch, Resource: provider.Label(), Err: err}
			}
			entries = append(entries, BindGroupEntry{Binding: binding, Texture: tex})

		case entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			h, ok := provider.Sampler(binding)
			if !ok {
				return NewUploadError(LayoutMismatch, provider.Label(), "layout %s binding %d expects a sampler", layout.Name, binding)
			}
			s, err := c.res.Get(h, arena.KindSampler)
			if err != nil {
				return &UploadError{Kind: LayoutMismatch, Resource: provider.Label(), Err: err}
			}
			entries = append(entries, BindGroupEntry{Binding: binding, Sampler: s})

		default:
			h, ok := provider.Buffer(binding)
			if !ok || !c.res.Valid(h) {
				size := entry.Buffer.MinBindingSize
				if override, ok := sizeOverrides[binding]; ok {
					size = override
				}
				if size == 0 {
					return NewUploadError(LayoutMismatch, provider.Label(), "layout %s binding %d has no buffer size", layout.Name, binding)
				}
				usage := wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
				if entry.Buffer.Type == wgpu.BufferBindingTypeStorage || entry.Buffer.Type == wgpu.BufferBindingTypeReadOnlyStorage {
					usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
				}
				buf, err := c.backend.CreateBuffer(fmt.Sprintf("%s binding %d", provider.Label(), binding), size, usage)
				if err != nil {
					return fmt.Errorf("bind group %s: %w", provider.Label(), err)
				}
				h = c.res.Insert(arena.KindBuffer, buf, size, c.releaser(buf))
				provider.SetBuffer(binding, h)
			}
			buf, err := c.res.Get(h, arena.KindBuffer)
			if err != nil {
				return fmt.Errorf("bind group %s: %w", provider.Label(), err)
			}
			entries = append(entries, BindGroupEntry{Binding: binding, Buffer: buf})
		}
	}

	bg, err := c.backend.CreateBindGroup(provider.Label()+" bind group", backendLayout, entries)
	if err != nil {
		return &UploadError{Kind: LayoutMismatch, Resource: provider.Label(), Err: err}
	}
	if old := provider.BindGroup(); !old.IsZero() {
		c.res.Release(old)
	}
	provider.SetBindGroup(c.res.Insert(arena.KindBindGroup, bg, 0, c.releaser(bg)), layout.Handle)
	return nil
}

func (c *graphicsContext) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	for _, w := range writes {
		h, ok := w.Provider.Buffer(w.Binding)
		if !ok {
			return fmt.Errorf("write %s binding %d: no buffer", w.Provider.Label(), w.Binding)
		}
		buf, err := c.res.Get(h, arena.KindBuffer)
		if err != nil {
			return fmt.Errorf("write %s binding %d: %w", w.Provider.Label(), w.Binding, err)
		}
		if err := c.backend.WriteBuffer(buf, w.Offset, w.Data); err != nil {
			return fmt.Errorf("write %s binding %d: %w", w.Provider.Label(), w.Binding, err)
		}
	}
	return nil
}

func (c *graphicsContext) DrawCall(frame *FrameTarget, pipelineKey string, mesh bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error {
	if frame == nil || frame.ended {
		return errors.New("draw: frame already ended")
	}

	c.mu.Lock()
	reg, exists := c.pipelines[pipelineKey]
	c.mu.Unlock()
	if !exists {
		return fmt.Errorf("render pipeline %q not registered", pipelineKey)
	}
	if len(bindGroups) != len(reg.layouts) {
		return fmt.Errorf("pipeline %s: %d bind groups given, %d expected", pipelineKey, len(bindGroups), len(reg.layouts))
	}

	rp, err := c.res.Get(reg.handle, arena.KindPipeline)
	if err != nil {
		return fmt.Errorf("pipeline %s: %w", pipelineKey, err)
	}
	frame.frame.SetPipeline(rp)

	for i, provider := range bindGroups {
		bg, err := c.res.Get(provider.BindGroup(), arena.KindBindGroup)
		if err != nil {
			return fmt.Errorf("draw %s: group %d (%s): %w", mesh.Label(), i, provider.Label(), err)
		}
		frame.frame.SetBindGroup(uint32(i), bg)
	}

	vb, err := c.res.Get(mesh.VertexBuffer(), arena.KindBuffer)
	if err != nil {
		return fmt.Errorf("draw %s: vertex buffer: %w", mesh.Label(), err)
	}
	frame.frame.SetVertexBuffer(vb)

	if !mesh.Indexed() {
		frame.frame.Draw(mesh.VertexCount())
		return nil
	}
	ib, err := c.res.Get(mesh.IndexBuffer(), arena.KindBuffer)
	if err != nil {
		return fmt.Errorf("draw %s: index buffer: %w", mesh.Label(), err)
	}
	frame.frame.SetIndexBuffer(ib)
	frame.frame.DrawIndexed(mesh.IndexCount())
	return nil
}

// releaser returns the arena release callback for a backend resource.
func (c *graphicsContext) releaser(resource any) func() {
	backend := c.backend
	return func() { backend.Release(resource) }
}
