package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// BackendKind identifies the GPU API implementation behind a GraphicsContext.
type BackendKind int

const (
	// BackendWebGPU is WebGPU, either through the native wgpu library or the browser's navigator.gpu.
	BackendWebGPU BackendKind = iota
	// BackendWebGL is the WebGL2 fallback used in browsers without WebGPU.
	BackendWebGL
	// BackendHeadless is the in-memory backend used for tests and CI.
	BackendHeadless
)

// String returns the name of the backend kind.
func (k BackendKind) String() string {
	switch k {
	case BackendWebGPU:
		return "webgpu"
	case BackendWebGL:
		return "webgl2"
	case BackendHeadless:
		return "headless"
	default:
		return "unknown"
	}
}

// ParseBackendKind maps a config value ("webgpu", "webgl2", "webgl" or "headless") to a BackendKind.
//
// Parameters:
//   - s: the config value
//
// Returns:
//   - BackendKind: the kind
//   - bool: false for "auto", "" and unknown values, which keep the platform's full candidate list
func ParseBackendKind(s string) (BackendKind, bool) {
	switch s {
	case "webgpu":
		return BackendWebGPU, true
	case "webgl", "webgl2":
		return BackendWebGL, true
	case "headless":
		return BackendHeadless, true
	}
	return 0, false
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ParsePresentMode maps a config value ("vsync" or "uncapped") to a PresentMode.
// Unknown values fall back to PresentModeVSync.
func ParsePresentMode(s string) PresentMode {
	if s == "uncapped" || s == "immediate" {
		return PresentModeUncapped
	}
	return PresentModeVSync
}

// DepthFormat is the format of the depth attachment created alongside every surface configuration.
const DepthFormat = wgpu.TextureFormatDepth32Float

// DefaultClearColor is the color every frame's color attachment is cleared to.
var DefaultClearColor = wgpu.Color{R: 0.1, G: 0.2, B: 0.3, A: 1.0}

// ErrBackendUnavailable is returned by a backend candidate that cannot serve the given target on this
// platform, for example the WebGPU candidate in a browser without navigator.gpu. The probe moves on to
// the next candidate.
var ErrBackendUnavailable = errors.New("backend unavailable")

// SurfaceConfig is the configuration applied to a surface by ConfigureSurface.
type SurfaceConfig struct {
	Width       int
	Height      int
	PresentMode PresentMode
	ClearColor  wgpu.Color
}

// BindGroupEntry pairs a binding index with the backend resource bound to it. Exactly one of Buffer,
// Texture or Sampler is set.
type BindGroupEntry struct {
	Binding uint32
	Buffer  any
	Texture any
	Sampler any
}

// RendererBackend is the contract every GPU API implementation satisfies. Resources cross this
// boundary as opaque values; the GraphicsContext stores them in its arena and only ever hands
// handles to callers. wgpu enum types are used as the shared vocabulary for formats and usages.
type RendererBackend interface {
	// Kind returns which API this backend drives.
	Kind() BackendKind

	// MaxTextureDimension returns the largest width or height accepted for a 2D texture.
	MaxTextureDimension() uint32

	// ConfigureSurface (re)configures the presentation surface and recreates the depth attachment.
	//
	// Parameters:
	//   - cfg: the surface size, present mode and clear color
	//
	// Returns:
	//   - error: an error if the surface could not be configured
	ConfigureSurface(cfg SurfaceConfig) error

	// RecreateSurface rebuilds the surface from the original target while keeping the device and
	// every resource created on it. The caller reconfigures the surface afterwards.
	//
	// Returns:
	//   - error: an error if the surface could not be recreated
	RecreateSurface() error

	// SurfaceFormat returns the color format of the configured surface.
	SurfaceFormat() wgpu.TextureFormat

	// CreateBuffer allocates a device buffer.
	//
	// Parameters:
	//   - label: debug label
	//   - size: size in bytes
	//   - usage: wgpu usage flags, used to pick the binding target on APIs that need one
	//
	// Returns:
	//   - any: the backend buffer
	//   - error: an error if the allocation failed
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (any, error)

	// WriteBuffer queues a write into a buffer created by CreateBuffer.
	//
	// Parameters:
	//   - buffer: the backend buffer
	//   - offset: byte offset into the buffer
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the write could not be queued
	WriteBuffer(buffer any, offset uint64, data []byte) error

	// CreateTexture allocates a single-mip, single-sample 2D texture, uploads the staged pixels and
	// creates its default view. Staging data has already been validated by the caller.
	//
	// Parameters:
	//   - staging: the pixels, dimensions and format
	//
	// Returns:
	//   - any: the backend texture
	//   - error: an error if the texture could not be created
	CreateTexture(staging common.TextureStagingData) (any, error)

	// CreateSampler creates a sampler, filling zero values with linear filtering and repeat addressing.
	//
	// Parameters:
	//   - label: debug label
	//   - data: the sampler configuration
	//
	// Returns:
	//   - any: the backend sampler
	//   - error: an error if the sampler could not be created
	CreateSampler(label string, data common.SamplerStagingData) (any, error)

	// CreateBindGroupLayout creates a bind group layout from a descriptor.
	//
	// Parameters:
	//   - desc: the layout descriptor
	//
	// Returns:
	//   - any: the backend layout
	//   - error: an error if the layout could not be created
	CreateBindGroupLayout(desc wgpu.BindGroupLayoutDescriptor) (any, error)

	// CreateBindGroup creates a bind group against a layout created by CreateBindGroupLayout.
	//
	// Parameters:
	//   - label: debug label
	//   - layout: the backend layout
	//   - entries: the resources to bind, one per layout entry
	//
	// Returns:
	//   - any: the backend bind group
	//   - error: an error if the bind group could not be created
	CreateBindGroup(label string, layout any, entries []BindGroupEntry) (any, error)

	// CreateRenderPipeline compiles the pipeline's shaders and creates the render pipeline.
	//
	// Parameters:
	//   - p: the pipeline description
	//   - layouts: backend bind group layouts indexed by group
	//
	// Returns:
	//   - any: the backend pipeline
	//   - error: an error if compilation or creation failed
	CreateRenderPipeline(p pipeline.Pipeline, layouts []any) (any, error)

	// Release frees a resource created by this backend.
	Release(resource any)

	// AcquireFrame obtains the next presentable image and begins its render pass, cleared to the
	// configured clear color. Failures are returned as *AcquireError.
	//
	// Returns:
	//   - BackendFrame: the frame being recorded
	//   - error: an *AcquireError when no image could be acquired
	AcquireFrame() (BackendFrame, error)

	// Destroy releases the surface, device and every backend-owned object.
	Destroy()
}

// BackendFrame records the commands for one frame. Submit, Present and Discard end the frame.
type BackendFrame interface {
	SetPipeline(pipeline any)
	SetBindGroup(group uint32, bindGroup any)
	SetVertexBuffer(buffer any)
	SetIndexBuffer(buffer any)
	Draw(vertexCount uint32)
	DrawIndexed(indexCount uint32)

	// Submit ends the render pass and submits the recorded commands. Failures are returned as
	// *DeviceLostError.
	Submit() error

	// Present hands the submitted image to the compositor.
	Present() error

	// Discard drops the frame without presenting it and releases its image.
	Discard()
}

// BackendCandidate is one entry in the ordered list probed by Initialize.
type BackendCandidate struct {
	// Name is used in logs and in the joined error when every candidate fails.
	Name string
	// Kind is the backend kind Open produces.
	Kind BackendKind
	// Open builds a backend for the target or returns ErrBackendUnavailable when it cannot serve it.
	// Errors wrapping ErrSurfaceCreationFailed stop the probe.
	Open func(target Target, opts CandidateOptions) (RendererBackend, error)
}

// CandidateOptions carries the construction-time configuration a candidate needs.
type CandidateOptions struct {
	ForceFallbackAdapter bool
}

// Target is the presentation target a GraphicsContext renders into. It is implemented by
// NativeWindowHandle, BrowserCanvasHandle and HeadlessTarget.
type Target interface {
	targetName() string
}

// NativeWindowHandle targets a desktop window through a platform surface descriptor, usually
// obtained from window.Window.SurfaceDescriptor.
type NativeWindowHandle struct {
	Descriptor *wgpu.SurfaceDescriptor
}

func (NativeWindowHandle) targetName() string { return "native window" }

// BrowserCanvasHandle targets an HTML canvas element by id.
type BrowserCanvasHandle struct {
	CanvasID string
}

func (BrowserCanvasHandle) targetName() string { return "browser canvas" }

// HeadlessTarget renders into memory. Backend may be supplied to script faults and inspect counters;
// when nil a fresh HeadlessBackend is created.
type HeadlessTarget struct {
	Backend *HeadlessBackend
}

func (HeadlessTarget) targetName() string { return "headless" }
