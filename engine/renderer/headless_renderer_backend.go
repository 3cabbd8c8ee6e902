package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultMaxTextureDimension is the texture limit reported by the headless backend. It matches the
// WebGL2 limit so uploads that pass headless also pass in the browser.
const DefaultMaxTextureDimension = 16384

// HeadlessStats counts what a HeadlessBackend was asked to do.
type HeadlessStats struct {
	Allocations   int
	Releases      int
	BufferWrites  int
	TextureWrites int
	Configures    int
	Recreates     int
	Acquires      int
	Draws         int
	Submits       int
	Presents      int
	Discards      int

	// LastSurface is the configuration the surface was last configured with.
	LastSurface SurfaceConfig
	// LastFrameSize is the surface size of the most recently acquired frame.
	LastFrameSize [2]int
}

// HeadlessBackend is a RendererBackend that keeps every resource in memory. It validates bind groups
// and buffer writes like a device would, counts work for assertions and can be scripted to fail.
type HeadlessBackend struct {
	mu *sync.Mutex

	maxDimension uint32
	format       wgpu.TextureFormat
	configured   bool
	destroyed    bool

	acquireFaults []AcquireErrorKind
	submitFaults  int
	surfaceFault  bool

	live  map[any]struct{}
	stats HeadlessStats
}

type headlessBuffer struct {
	label string
	usage wgpu.BufferUsage
	data  []byte
}

type headlessTexture struct {
	label  string
	width  uint32
	height uint32
	format wgpu.TextureFormat
	pixels []byte
}

type headlessSampler struct {
	label string
	data  common.SamplerStagingData
}

type headlessLayout struct {
	desc wgpu.BindGroupLayoutDescriptor
}

type headlessBindGroup struct {
	label   string
	layout  *headlessLayout
	entries []BindGroupEntry
}

type headlessPipeline struct {
	key    string
	groups int
}

var _ RendererBackend = &HeadlessBackend{}

// HeadlessBackendOption configures a HeadlessBackend during construction.
type HeadlessBackendOption func(*HeadlessBackend)

// WithHeadlessMaxTextureDimension overrides the maximum texture dimension.
func WithHeadlessMaxTextureDimension(n uint32) HeadlessBackendOption {
	return func(b *HeadlessBackend) {
		b.maxDimension = n
	}
}

// NewHeadlessBackend creates an in-memory backend whose surface format is RGBA8UnormSrgb.
//
// Parameters:
//   - options: variadic list of HeadlessBackendOption functions
//
// Returns:
//   - *HeadlessBackend: the backend
func NewHeadlessBackend(options ...HeadlessBackendOption) *HeadlessBackend {
	b := &HeadlessBackend{
		mu:           &sync.Mutex{},
		maxDimension: DefaultMaxTextureDimension,
		format:       wgpu.TextureFormatRGBA8UnormSrgb,
		live:         make(map[any]struct{}),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// QueueAcquireErrors makes the next len(kinds) calls to AcquireFrame fail with the given kinds, in order.
func (b *HeadlessBackend) QueueAcquireErrors(kinds ...AcquireErrorKind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.acquireFaults = append(b.acquireFaults, kinds...)
}

// FailNextSubmit makes the next frame submission report a lost device.
func (b *HeadlessBackend) FailNextSubmit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitFaults++
}

// FailSurfaceCreation makes every later surface creation fail until cleared.
func (b *HeadlessBackend) FailSurfaceCreation(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.surfaceFault = fail
}

// Stats returns a snapshot of the work counters.
func (b *HeadlessBackend) Stats() HeadlessStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// LiveResources returns the number of resources created and not yet released.
func (b *HeadlessBackend) LiveResources() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

// BufferContents returns a copy of a buffer's bytes, for assertions on uniform writes.
func (b *HeadlessBackend) BufferContents(buffer any) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := buffer.(*headlessBuffer)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), buf.data...), true
}

func (b *HeadlessBackend) Kind() BackendKind {
	return BackendHeadless
}

func (b *HeadlessBackend) MaxTextureDimension() uint32 {
	return b.maxDimension
}

func (b *HeadlessBackend) ConfigureSurface(cfg SurfaceConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return ErrDeviceLost
	}
	b.configured = true
	b.stats.Configures++
	b.stats.LastSurface = cfg
	return nil
}

func (b *HeadlessBackend) RecreateSurface() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surfaceFault {
		return fmt.Errorf("%w: headless surface fault", ErrSurfaceCreationFailed)
	}
	b.configured = false
	b.stats.Recreates++
	return nil
}

func (b *HeadlessBackend) SurfaceFormat() wgpu.TextureFormat {
	return b.format
}

func (b *HeadlessBackend) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (any, error) {
	buf := &headlessBuffer{label: label, usage: usage, data: make([]byte, size)}
	b.track(buf)
	return buf, nil
}

func (b *HeadlessBackend) WriteBuffer(buffer any, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := buffer.(*headlessBuffer)
	if !ok {
		return fmt.Errorf("headless: write to %T, want buffer", buffer)
	}
	if _, live := b.live[buf]; !live {
		return fmt.Errorf("headless: write to released buffer %q", buf.label)
	}
	if offset+uint64(len(data)) > uint64(len(buf.data)) {
		return fmt.Errorf("headless: write of %d bytes at %d overflows buffer %q (%d bytes)", len(data), offset, buf.label, len(buf.data))
	}
	copy(buf.data[offset:], data)
	b.stats.BufferWrites++
	return nil
}

func (b *HeadlessBackend) CreateTexture(staging common.TextureStagingData) (any, error) {
	tex := &headlessTexture{
		label:  staging.Label,
		width:  staging.Width,
		height: staging.Height,
		format: staging.Format,
		pixels: append([]byte(nil), staging.Pixels...),
	}
	b.track(tex)
	b.mu.Lock()
	b.stats.TextureWrites++
	b.mu.Unlock()
	return tex, nil
}

func (b *HeadlessBackend) CreateSampler(label string, data common.SamplerStagingData) (any, error) {
	s := &headlessSampler{label: label, data: data}
	b.track(s)
	return s, nil
}

func (b *HeadlessBackend) CreateBindGroupLayout(desc wgpu.BindGroupLayoutDescriptor) (any, error) {
	l := &headlessLayout{desc: desc}
	b.track(l)
	return l, nil
}

func (b *HeadlessBackend) CreateBindGroup(label string, layout any, entries []BindGroupEntry) (any, error) {
	l, ok := layout.(*headlessLayout)
	if !ok {
		return nil, fmt.Errorf("headless: bind group %q: layout is %T", label, layout)
	}
	if len(entries) != len(l.desc.Entries) {
		return nil, fmt.Errorf("headless: bind group %q has %d entries, layout %q wants %d", label, len(entries), l.desc.Label, len(l.desc.Entries))
	}
	for i, want := range l.desc.Entries {
		got := entries[i]
		if got.Binding != want.Binding {
			return nil, fmt.Errorf("headless: bind group %q entry %d binds %d, want %d", label, i, got.Binding, want.Binding)
		}
		switch {
		case want.Buffer.Type != wgpu.BufferBindingTypeUndefined:
			if _, ok := got.Buffer.(*headlessBuffer); !ok {
				return nil, fmt.Errorf("headless: bind group %q binding %d wants a buffer", label, want.Binding)
			}
		case want.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			if _, ok := got.Texture.(*headlessTexture); !ok {
				return nil, fmt.Errorf("headless: bind group %q binding %d wants a texture", label, want.Binding)
			}
		case want.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			if _, ok := got.Sampler.(*headlessSampler); !ok {
				return nil, fmt.Errorf("headless: bind group %q binding %d wants a sampler", label, want.Binding)
			}
		}
	}
	bg := &headlessBindGroup{label: label, layout: l, entries: append([]BindGroupEntry(nil), entries...)}
	b.track(bg)
	return bg, nil
}

func (b *HeadlessBackend) CreateRenderPipeline(p pipeline.Pipeline, layouts []any) (any, error) {
	if len(layouts) != len(p.Layouts()) {
		return nil, fmt.Errorf("headless: pipeline %s has %d layouts, got %d", p.PipelineKey(), len(p.Layouts()), len(layouts))
	}
	rp := &headlessPipeline{key: p.PipelineKey(), groups: len(layouts)}
	b.track(rp)
	return rp, nil
}

func (b *HeadlessBackend) Release(resource any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.live[resource]; !ok {
		return
	}
	delete(b.live, resource)
	b.stats.Releases++
}

func (b *HeadlessBackend) AcquireFrame() (BackendFrame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.Acquires++

	if len(b.acquireFaults) > 0 {
		kind := b.acquireFaults[0]
		b.acquireFaults = b.acquireFaults[1:]
		if kind == SurfaceLost {
			b.configured = false
		}
		return nil, &AcquireError{Kind: kind, Err: fmt.Errorf("headless: scripted %s", kind)}
	}
	if !b.configured {
		return nil, &AcquireError{Kind: Outdated, Err: fmt.Errorf("headless: surface not configured")}
	}

	b.stats.LastFrameSize = [2]int{b.stats.LastSurface.Width, b.stats.LastSurface.Height}
	return &headlessFrame{backend: b}, nil
}

func (b *HeadlessBackend) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyed = true
	b.configured = false
	b.stats.Releases += len(b.live)
	b.live = make(map[any]struct{})
}

func (b *HeadlessBackend) track(resource any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.live[resource] = struct{}{}
	b.stats.Allocations++
}

// headlessFrame records draw state and checks that draws happen with a pipeline and every group bound.
type headlessFrame struct {
	backend   *HeadlessBackend
	pipeline  *headlessPipeline
	groups    map[uint32]bool
	vertex    bool
	index     bool
	submitted bool
	ended     bool
	err       error
}

func (f *headlessFrame) SetPipeline(p any) {
	rp, ok := p.(*headlessPipeline)
	if !ok {
		f.fail(fmt.Errorf("headless: SetPipeline with %T", p))
		return
	}
	f.pipeline = rp
	f.groups = make(map[uint32]bool)
}

func (f *headlessFrame) SetBindGroup(group uint32, bindGroup any) {
	if _, ok := bindGroup.(*headlessBindGroup); !ok {
		f.fail(fmt.Errorf("headless: SetBindGroup(%d) with %T", group, bindGroup))
		return
	}
	if f.groups == nil {
		f.groups = make(map[uint32]bool)
	}
	f.groups[group] = true
}

func (f *headlessFrame) SetVertexBuffer(buffer any) {
	_, f.vertex = buffer.(*headlessBuffer)
}

func (f *headlessFrame) SetIndexBuffer(buffer any) {
	_, f.index = buffer.(*headlessBuffer)
}

func (f *headlessFrame) Draw(vertexCount uint32) {
	f.draw(false)
}

func (f *headlessFrame) DrawIndexed(indexCount uint32) {
	f.draw(true)
}

func (f *headlessFrame) draw(indexed bool) {
	switch {
	case f.pipeline == nil:
		f.fail(fmt.Errorf("headless: draw without a pipeline"))
		return
	case !f.vertex:
		f.fail(fmt.Errorf("headless: draw without a vertex buffer"))
		return
	case indexed && !f.index:
		f.fail(fmt.Errorf("headless: indexed draw without an index buffer"))
		return
	}
	for g := 0; g < f.pipeline.groups; g++ {
		if !f.groups[uint32(g)] {
			f.fail(fmt.Errorf("headless: pipeline %s drawn without bind group %d", f.pipeline.key, g))
			return
		}
	}
	f.backend.mu.Lock()
	f.backend.stats.Draws++
	f.backend.mu.Unlock()
}

func (f *headlessFrame) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

func (f *headlessFrame) Submit() error {
	b := f.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.submitFaults > 0 {
		b.submitFaults--
		return &DeviceLostError{Err: fmt.Errorf("headless: scripted submit failure")}
	}
	if f.err != nil {
		return &DeviceLostError{Err: f.err}
	}
	f.submitted = true
	b.stats.Submits++
	return nil
}

func (f *headlessFrame) Present() error {
	if !f.submitted {
		return fmt.Errorf("headless: present before submit")
	}
	if f.ended {
		return fmt.Errorf("headless: frame already ended")
	}
	f.ended = true
	f.backend.mu.Lock()
	f.backend.stats.Presents++
	f.backend.mu.Unlock()
	return nil
}

func (f *headlessFrame) Discard() {
	if f.ended {
		return
	}
	f.ended = true
	f.backend.mu.Lock()
	f.backend.stats.Discards++
	f.backend.mu.Unlock()
}

// openHeadless is the candidate for HeadlessTarget.
func openHeadless(target Target, opts CandidateOptions) (RendererBackend, error) {
	t, ok := target.(HeadlessTarget)
	if !ok {
		return nil, ErrBackendUnavailable
	}
	b := t.Backend
	if b == nil {
		b = NewHeadlessBackend()
	}
	b.mu.Lock()
	fault := b.surfaceFault
	b.destroyed = false
	b.mu.Unlock()
	if fault {
		return nil, fmt.Errorf("%w: headless surface fault", ErrSurfaceCreationFailed)
	}
	return b, nil
}
