package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuRendererBackend drives WebGPU through cogentcore/webgpu. The same code serves wgpu-native on
// desktop and navigator.gpu in the browser; only surface creation differs per platform.
type wgpuRendererBackend struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	// newSurface creates a surface for the original target; used on creation and after SurfaceLost.
	newSurface func(instance *wgpu.Instance) (*wgpu.Surface, error)

	surfaceFormat wgpu.TextureFormat
	config        SurfaceConfig
	limits        wgpu.Limits

	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	// offscreen renders frames into colorTexture and copies it to the surface in Present. The browser
	// composites whatever the canvas texture holds once it was fetched, so a dropped frame must never
	// touch it.
	offscreen    bool
	colorTexture *wgpu.Texture
	colorView    *wgpu.TextureView

	// inFlight guards against acquiring a second surface image before the first is presented or
	// discarded; wgpu-native rejects that with "Surface image is already acquired".
	inFlight bool
}

// wgpuTexture pairs a texture with its default view; the view is what bind groups reference.
type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

var _ RendererBackend = &wgpuRendererBackend{}

// newWGPURendererBackend requests an adapter and device compatible with the surface produced by
// newSurface. Surface failures wrap ErrSurfaceCreationFailed; adapter or device failures wrap
// ErrNoSuitableAdapter.
func newWGPURendererBackend(newSurface func(*wgpu.Instance) (*wgpu.Surface, error), forceFallbackAdapter bool) (*wgpuRendererBackend, error) {
	b := &wgpuRendererBackend{
		mu:         &sync.Mutex{},
		instance:   wgpu.CreateInstance(nil),
		newSurface: newSurface,
	}
	if b.instance == nil {
		return nil, fmt.Errorf("%w: webgpu instance unavailable", ErrBackendUnavailable)
	}

	surface, err := newSurface(b.instance)
	if err != nil {
		b.instance.Release()
		return nil, err
	}
	b.surface = surface

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.release()
		return nil, fmt.Errorf("%w: %w", ErrNoSuitableAdapter, err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "oxy-gfx device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		b.release()
		return nil, fmt.Errorf("%w: request device: %w", ErrNoSuitableAdapter, err)
	}
	b.device = device
	b.queue = device.GetQueue()
	b.limits = wgpu.DefaultLimits()

	return b, nil
}

func (b *wgpuRendererBackend) Kind() BackendKind {
	return BackendWebGPU
}

func (b *wgpuRendererBackend) MaxTextureDimension() uint32 {
	return b.limits.MaxTextureDimension2D
}

func (b *wgpuRendererBackend) ConfigureSurface(cfg SurfaceConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return fmt.Errorf("%w: no surface to configure", ErrSurfaceLost)
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		return fmt.Errorf("%w: surface reports no formats", ErrSurfaceCreationFailed)
	}
	b.surfaceFormat = preferSRGB(capabilities.Formats)

	alphaMode := wgpu.CompositeAlphaModeAuto
	if len(capabilities.AlphaModes) > 0 {
		alphaMode = capabilities.AlphaModes[0]
	}

	presentMode := wgpu.PresentModeFifo
	if cfg.PresentMode == PresentModeUncapped {
		presentMode = wgpu.PresentModeImmediate
	}

	usage := wgpu.TextureUsageRenderAttachment
	if b.offscreen {
		usage |= wgpu.TextureUsageCopyDst
	}
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       usage,
		Format:      b.surfaceFormat,
		Width:       uint32(cfg.Width),
		Height:      uint32(cfg.Height),
		PresentMode: presentMode,
		AlphaMode:   alphaMode,
	})

	b.releaseDepth()
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "depth texture",
		Size: wgpu.Extent3D{
			Width:              uint32(cfg.Width),
			Height:             uint32(cfg.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}
	depthView, err := depthTexture.CreateView(nil)
	if err != nil {
		depthTexture.Release()
		return fmt.Errorf("create depth view: %w", err)
	}
	b.depthTexture, b.depthView = depthTexture, depthView

	if b.offscreen {
		if err := b.createColorTarget(cfg.Width, cfg.Height); err != nil {
			return err
		}
	}
	b.config = cfg
	return nil
}

// createColorTarget replaces the offscreen color texture. Caller must hold the mutex.
func (b *wgpuRendererBackend) createColorTarget(width, height int) error {
	b.releaseColor()
	colorTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "offscreen color texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        b.surfaceFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create color texture: %w", err)
	}
	colorView, err := colorTexture.CreateView(nil)
	if err != nil {
		colorTexture.Release()
		return fmt.Errorf("create color view: %w", err)
	}
	b.colorTexture, b.colorView = colorTexture, colorView
	return nil
}

func (b *wgpuRendererBackend) RecreateSurface() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	b.inFlight = false
	surface, err := b.newSurface(b.instance)
	if err != nil {
		return err
	}
	b.surface = surface
	return nil
}

func (b *wgpuRendererBackend) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceFormat
}

func (b *wgpuRendererBackend) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (any, error) {
	return b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
}

func (b *wgpuRendererBackend) WriteBuffer(buffer any, offset uint64, data []byte) error {
	buf, ok := buffer.(*wgpu.Buffer)
	if !ok {
		return fmt.Errorf("write buffer: got %T", buffer)
	}
	return b.queue.WriteBuffer(buf, offset, data)
}

func (b *wgpuRendererBackend) CreateTexture(staging common.TextureStagingData) (any, error) {
	bpp, err := common.BytesPerPixel(staging.Format)
	if err != nil {
		return nil, err
	}

	size := wgpu.Extent3D{
		Width:              staging.Width,
		Height:             staging.Height,
		DepthOrArrayLayers: 1,
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         staging.Label,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        staging.Format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		staging.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  staging.Width * uint32(bpp),
			RowsPerImage: staging.Height,
		},
		&size,
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &wgpuTexture{texture: tex, view: view}, nil
}

func (b *wgpuRendererBackend) CreateSampler(label string, data common.SamplerStagingData) (any, error) {
	return b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(data.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(data.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(data.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(data.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(data.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(data.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   data.LodMinClamp,
		LodMaxClamp:   common.Coalesce(data.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(data.MaxAnisotropy, 1),
	})
}

func (b *wgpuRendererBackend) CreateBindGroupLayout(desc wgpu.BindGroupLayoutDescriptor) (any, error) {
	return b.device.CreateBindGroupLayout(&desc)
}

func (b *wgpuRendererBackend) CreateBindGroup(label string, layout any, entries []BindGroupEntry) (any, error) {
	bgl, ok := layout.(*wgpu.BindGroupLayout)
	if !ok {
		return nil, fmt.Errorf("bind group %q: layout is %T", label, layout)
	}

	wgpuEntries := make([]wgpu.BindGroupEntry, len(entries))
	for i, e := range entries {
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != nil:
			buf, ok := e.Buffer.(*wgpu.Buffer)
			if !ok {
				return nil, fmt.Errorf("bind group %q binding %d: buffer is %T", label, e.Binding, e.Buffer)
			}
			entry.Buffer = buf
			entry.Size = wgpu.WholeSize
		case e.Texture != nil:
			tex, ok := e.Texture.(*wgpuTexture)
			if !ok {
				return nil, fmt.Errorf("bind group %q binding %d: texture is %T", label, e.Binding, e.Texture)
			}
			entry.TextureView = tex.view
		case e.Sampler != nil:
			s, ok := e.Sampler.(*wgpu.Sampler)
			if !ok {
				return nil, fmt.Errorf("bind group %q binding %d: sampler is %T", label, e.Binding, e.Sampler)
			}
			entry.Sampler = s
		}
		wgpuEntries[i] = entry
	}

	return b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  bgl,
		Entries: wgpuEntries,
	})
}

func (b *wgpuRendererBackend) CreateRenderPipeline(p pipeline.Pipeline, layouts []any) (any, error) {
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          vertexShader.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: vertexShader.Source()},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: vertex module: %w", p.PipelineKey(), err)
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          fragmentShader.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: fragmentShader.Source()},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: fragment module: %w", p.PipelineKey(), err)
	}
	defer fs.Release()

	bindGroupLayouts := make([]*wgpu.BindGroupLayout, len(layouts))
	for i, l := range layouts {
		bgl, ok := l.(*wgpu.BindGroupLayout)
		if !ok {
			return nil, fmt.Errorf("pipeline %s: layout %d is %T", p.PipelineKey(), i, l)
		}
		bindGroupLayouts[i] = bgl
	}
	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return nil, err
	}
	defer pipelineLayout.Release()

	target := wgpu.ColorTargetState{
		Format:    b.SurfaceFormat(),
		WriteMask: p.WriteMask(),
	}
	if p.BlendEnabled() {
		target.Blend = p.BlendState()
	}

	depthCompare := wgpu.CompareFunctionLess
	if !p.DepthTestEnabled() {
		depthCompare = wgpu.CompareFunctionAlways
	}

	return b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " render pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    p.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: p.DepthWriteEnabled(),
			DepthCompare:      depthCompare,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
	})
}

func (b *wgpuRendererBackend) Release(resource any) {
	switch r := resource.(type) {
	case *wgpu.Buffer:
		r.Release()
	case *wgpuTexture:
		r.view.Release()
		r.texture.Release()
	case *wgpu.Sampler:
		r.Release()
	case *wgpu.BindGroupLayout:
		r.Release()
	case *wgpu.BindGroup:
		r.Release()
	case *wgpu.RenderPipeline:
		r.Release()
	}
}

func (b *wgpuRendererBackend) AcquireFrame() (BackendFrame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return nil, &AcquireError{Kind: SurfaceLost, Err: errors.New("no surface")}
	}
	if b.inFlight {
		return nil, &AcquireError{Kind: Timeout, Err: errors.New("previous surface image not yet presented")}
	}

	frame := &wgpuFrame{backend: b}
	target := b.colorView
	if !b.offscreen {
		surfaceTexture, err := b.surface.GetCurrentTexture()
		if err != nil {
			return nil, classifyAcquireError(err)
		}
		view, err := surfaceTexture.CreateView(nil)
		if err != nil {
			surfaceTexture.Release()
			return nil, &AcquireError{Kind: Outdated, Err: err}
		}
		frame.texture, frame.view = surfaceTexture, view
		target = view
	} else if target == nil {
		return nil, &AcquireError{Kind: Outdated, Err: errors.New("offscreen target not configured")}
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		frame.releaseImage()
		return nil, &DeviceLostError{Err: err}
	}

	frame.encoder = encoder
	frame.pass = encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: b.config.ClearColor,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})

	b.inFlight = true
	return frame, nil
}

func (b *wgpuRendererBackend) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.release()
}

// release frees the device-level objects. Caller must hold the mutex or own b exclusively.
func (b *wgpuRendererBackend) release() {
	b.releaseDepth()
	b.releaseColor()
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

func (b *wgpuRendererBackend) releaseDepth() {
	if b.depthView != nil {
		b.depthView.Release()
		b.depthView = nil
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
}

func (b *wgpuRendererBackend) releaseColor() {
	if b.colorView != nil {
		b.colorView.Release()
		b.colorView = nil
	}
	if b.colorTexture != nil {
		b.colorTexture.Release()
		b.colorTexture = nil
	}
}

// preferSRGB returns the first sRGB format reported by the surface, or the first format.
func preferSRGB(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range formats {
		if f == wgpu.TextureFormatBGRA8UnormSrgb || f == wgpu.TextureFormatRGBA8UnormSrgb {
			return f
		}
	}
	return formats[0]
}

// classifyAcquireError maps a GetCurrentTexture failure onto the acquire taxonomy. wgpu reports the
// surface status only through the error text. Out-of-memory is not recoverable and is returned as a
// lost device.
func classifyAcquireError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Outdated"):
		return &AcquireError{Kind: Outdated, Err: err}
	case strings.Contains(msg, "Lost"):
		return &AcquireError{Kind: SurfaceLost, Err: err}
	case strings.Contains(msg, "Timeout"):
		return &AcquireError{Kind: Timeout, Err: err}
	case strings.Contains(msg, "OutOfMemory"):
		return &DeviceLostError{Err: err}
	default:
		slog.Warn("[wgpu] unclassified acquire failure, treating as outdated", "error", err)
		return &AcquireError{Kind: Outdated, Err: err}
	}
}

// wgpuFrame holds the encoders of one frame and, when rendering straight to the surface, its image.
type wgpuFrame struct {
	backend *wgpuRendererBackend
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (f *wgpuFrame) SetPipeline(p any) {
	if rp, ok := p.(*wgpu.RenderPipeline); ok {
		f.pass.SetPipeline(rp)
	}
}

func (f *wgpuFrame) SetBindGroup(group uint32, bindGroup any) {
	if bg, ok := bindGroup.(*wgpu.BindGroup); ok {
		f.pass.SetBindGroup(group, bg, nil)
	}
}

func (f *wgpuFrame) SetVertexBuffer(buffer any) {
	if buf, ok := buffer.(*wgpu.Buffer); ok {
		f.pass.SetVertexBuffer(0, buf, 0, wgpu.WholeSize)
	}
}

func (f *wgpuFrame) SetIndexBuffer(buffer any) {
	if buf, ok := buffer.(*wgpu.Buffer); ok {
		f.pass.SetIndexBuffer(buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	}
}

func (f *wgpuFrame) Draw(vertexCount uint32) {
	f.pass.Draw(vertexCount, 1, 0, 0)
}

func (f *wgpuFrame) DrawIndexed(indexCount uint32) {
	f.pass.DrawIndexed(indexCount, 1, 0, 0, 0)
}

func (f *wgpuFrame) Submit() error {
	f.pass.End()
	f.pass.Release()
	f.pass = nil

	commandBuffer, err := f.encoder.Finish(nil)
	f.encoder.Release()
	f.encoder = nil
	if err != nil {
		return &DeviceLostError{Err: err}
	}
	f.backend.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (f *wgpuFrame) Present() error {
	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()

	defer f.releaseImage()
	if f.backend.surface == nil {
		return nil
	}
	if f.backend.offscreen {
		if err := f.copyToSurface(); err != nil {
			return err
		}
	}
	f.backend.surface.Present()
	return nil
}

// copyToSurface fetches the surface image and copies the rendered offscreen texture into it. Caller
// must hold the backend mutex.
func (f *wgpuFrame) copyToSurface() error {
	b := f.backend
	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return classifyAcquireError(err)
	}
	f.texture = surfaceTexture

	encoder, err := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "present copy"})
	if err != nil {
		return &DeviceLostError{Err: err}
	}
	defer encoder.Release()

	size := wgpu.Extent3D{
		Width:              uint32(b.config.Width),
		Height:             uint32(b.config.Height),
		DepthOrArrayLayers: 1,
	}
	err = encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: b.colorTexture, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: surfaceTexture, Aspect: wgpu.TextureAspectAll},
		&size,
	)
	if err != nil {
		return &DeviceLostError{Err: err}
	}
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return &DeviceLostError{Err: err}
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (f *wgpuFrame) Discard() {
	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()

	if f.pass != nil {
		f.pass.End()
		f.pass.Release()
		f.pass = nil
	}
	if f.encoder != nil {
		f.encoder.Release()
		f.encoder = nil
	}
	f.releaseImage()
}

// releaseImage frees the surface image, if one was fetched. Caller must hold the backend mutex.
func (f *wgpuFrame) releaseImage() {
	if f.view != nil {
		f.view.Release()
		f.view = nil
	}
	if f.texture != nil {
		f.texture.Release()
		f.texture = nil
	}
	f.backend.inFlight = false
}
