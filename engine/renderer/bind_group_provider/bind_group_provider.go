package bind_group_provider

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/arena"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	mu *sync.Mutex

	// label is a debug label forwarded to every resource the graphics context creates for this provider.
	label string

	// res is the arena that issued the handles below. Release is a no-op for handles when nil.
	res *arena.Arena

	// The following handles are populated by the GraphicsContext during initialization, not by user-creation.

	// bindGroup is the bind group created for this provider, or the zero handle if not initialized.
	bindGroup arena.Handle
	// layout is the bind group layout the bind group was created against. It is owned by the pipeline
	// registry and never released by the provider.
	layout arena.Handle
	// buffers holds the uniform buffers owned by this provider, keyed by binding index.
	buffers map[uint32]arena.Handle
	// textures and samplers are referenced, not owned: textures are shared between materials.
	textures map[uint32]arena.Handle
	samplers map[uint32]arena.Handle

	// The following fields are specific to mesh providers.

	vertexBuffer arena.Handle
	indexBuffer  arena.Handle
	vertexCount  uint32
	indexCount   uint32
}

// BindGroupProvider records the arena handles behind one bind group or one mesh.
// Components (camera blocks, model blocks, materials, meshes) hold a BindGroupProvider to describe
// their device resources; the GraphicsContext fills it in and reads it back when drawing.
//
// Usage pattern:
//  1. GraphicsContext.NewBindGroupProvider creates a provider bound to the context's arena
//  2. GraphicsContext.InitBindGroup or InitMeshBuffers allocates resources and stores their handles
//  3. GraphicsContext.WriteBuffers updates uniform buffers through BufferWrite values
//  4. GraphicsContext.DrawCall resolves the handles for the current frame
type BindGroupProvider interface {
	// Release releases the bind group and every buffer owned by this provider.
	// Referenced textures, samplers and the layout are left alive. Calling Release twice is safe.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the handle of the bind group.
	// The zero handle is returned if the bind group has not been initialized.
	//
	// Returns:
	//   - arena.Handle: the bind group handle
	BindGroup() arena.Handle

	// Layout returns the handle of the bind group layout the bind group was created against.
	//
	// Returns:
	//   - arena.Handle: the layout handle
	Layout() arena.Handle

	// Buffer returns the uniform buffer for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - arena.Handle: the buffer handle
	//   - bool: false if no buffer is set for the binding
	Buffer(binding uint32) (arena.Handle, bool)

	// Buffers returns a copy of all buffers owned by this provider, keyed by binding index.
	Buffers() map[uint32]arena.Handle

	// Texture returns the texture bound at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - arena.Handle: the texture handle
	//   - bool: false if no texture is set for the binding
	Texture(binding uint32) (arena.Handle, bool)

	// Sampler returns the sampler bound at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - arena.Handle: the sampler handle
	//   - bool: false if no sampler is set for the binding
	Sampler(binding uint32) (arena.Handle, bool)

	// VertexBuffer returns the vertex buffer handle, or the zero handle for non-mesh providers.
	VertexBuffer() arena.Handle

	// IndexBuffer returns the index buffer handle. The zero handle means the mesh draws non-indexed.
	IndexBuffer() arena.Handle

	// VertexCount returns the number of vertices for non-indexed draws.
	VertexCount() uint32

	// IndexCount returns the number of indices for indexed draws.
	IndexCount() uint32

	// Indexed reports whether the mesh has an index buffer.
	Indexed() bool

	// SetBindGroup stores the bind group created by GraphicsContext.InitBindGroup.
	//
	// Parameters:
	//   - bindGroup: the bind group handle
	//   - layout: the layout it was created against
	SetBindGroup(bindGroup, layout arena.Handle)

	// SetBuffer stores an owned uniform buffer for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer handle
	SetBuffer(binding uint32, buf arena.Handle)

	// SetTexture stores a referenced texture for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tex: the texture handle
	SetTexture(binding uint32, tex arena.Handle)

	// SetSampler stores a referenced sampler for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler handle
	SetSampler(binding uint32, s arena.Handle)

	// SetMesh stores the vertex and index buffers created by GraphicsContext.InitMeshBuffers.
	//
	// Parameters:
	//   - vertexBuffer: the vertex buffer handle
	//   - indexBuffer: the index buffer handle, or the zero handle for non-indexed meshes
	//   - vertexCount: the number of vertices
	//   - indexCount: the number of indices, 0 for non-indexed meshes
	SetMesh(vertexBuffer, indexBuffer arena.Handle, vertexCount, indexCount uint32)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		mu:       &sync.Mutex{},
		label:    label,
		buffers:  make(map[uint32]arena.Handle),
		textures: make(map[uint32]arena.Handle),
		samplers: make(map[uint32]arena.Handle),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() arena.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindGroup
}

func (p *bindGroupProvider) Layout() arena.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.layout
}

func (p *bindGroupProvider) Buffer(binding uint32) (arena.Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.buffers[binding]
	return h, ok
}

func (p *bindGroupProvider) Buffers() map[uint32]arena.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[uint32]arena.Handle, len(p.buffers))
	for k, v := range p.buffers {
		out[k] = v
	}
	return out
}

func (p *bindGroupProvider) Texture(binding uint32) (arena.Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.textures[binding]
	return h, ok
}

func (p *bindGroupProvider) Sampler(binding uint32) (arena.Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.samplers[binding]
	return h, ok
}

func (p *bindGroupProvider) VertexBuffer() arena.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vertexBuffer
}

func (p *bindGroupProvider) IndexBuffer() arena.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indexBuffer
}

func (p *bindGroupProvider) VertexCount() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vertexCount
}

func (p *bindGroupProvider) IndexCount() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indexCount
}

func (p *bindGroupProvider) Indexed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.indexBuffer.IsZero()
}

func (p *bindGroupProvider) SetBindGroup(bindGroup, layout arena.Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bindGroup = bindGroup
	p.layout = layout
}

func (p *bindGroupProvider) SetBuffer(binding uint32, buf arena.Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTexture(binding uint32, tex arena.Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.textures[binding] = tex
}

func (p *bindGroupProvider) SetSampler(binding uint32, s arena.Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samplers[binding] = s
}

func (p *bindGroupProvider) SetMesh(vertexBuffer, indexBuffer arena.Handle, vertexCount, indexCount uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vertexBuffer = vertexBuffer
	p.indexBuffer = indexBuffer
	p.vertexCount = vertexCount
	p.indexCount = indexCount
}

func (p *bindGroupProvider) Release() {
	p.mu.Lock()
	owned := []arena.Handle{p.bindGroup, p.vertexBuffer, p.indexBuffer}
	for binding, h := range p.buffers {
		owned = append(owned, h)
		delete(p.buffers, binding)
	}
	for binding := range p.textures {
		delete(p.textures, binding)
	}
	for binding := range p.samplers {
		delete(p.samplers, binding)
	}
	p.bindGroup = arena.Handle{}
	p.layout = arena.Handle{}
	p.vertexBuffer = arena.Handle{}
	p.indexBuffer = arena.Handle{}
	p.vertexCount, p.indexCount = 0, 0
	res := p.res
	p.mu.Unlock()

	if res == nil {
		return
	}
	for _, h := range owned {
		if !h.IsZero() {
			res.Release(h)
		}
	}
}
