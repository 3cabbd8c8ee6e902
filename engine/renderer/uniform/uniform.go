package uniform

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// Marshaler is a value with a fixed-size GPU encoding.
type Marshaler interface {
	Marshal() []byte
}

// Block is a typed uniform buffer bound as the only buffer of a bind group. Updates are coalesced:
// however often Update is called between flushes, Flush issues at most one device write.
type Block[T Marshaler] struct {
	mu *sync.Mutex

	ctx      renderer.GraphicsContext
	layout   renderer.BindGroupLayout
	provider bind_group_provider.BindGroupProvider
	binding  uint32
	size     uint64

	value T
	data  []byte
	dirty bool
	built bool
}

// New creates a uniform block for a layout whose first buffer entry receives the encoded value. No
// device resource is created until the bind group is first needed.
//
// Parameters:
//   - ctx: the GraphicsContext owning the buffer and bind group
//   - label: the debug label
//   - layout: the bind group layout, e.g. the pipeline's "camera" or "model" layout
//   - initial: the initial value, written on the first Flush
//
// Returns:
//   - *Block[T]: the block
//   - error: an error if the layout has no buffer entry or its minimum size differs from the encoding
func New[T Marshaler](ctx renderer.GraphicsContext, label string, layout renderer.BindGroupLayout, initial T) (*Block[T], error) {
	var entry *wgpu.BindGroupLayoutEntry
	for i := range layout.Descriptor.Entries {
		if layout.Descriptor.Entries[i].Buffer.Type != wgpu.BufferBindingTypeUndefined {
			entry = &layout.Descriptor.Entries[i]
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("uniform %s: layout %s has no buffer binding", label, layout.Name)
	}

	data := initial.Marshal()
	size := uint64(len(data))
	if size == 0 {
		return nil, fmt.Errorf("uniform %s: value encodes to zero bytes", label)
	}
	if want := entry.Buffer.MinBindingSize; want != 0 && want != size {
		return nil, fmt.Errorf("uniform %s: value encodes to %d bytes, layout %s binding %d expects %d", label, size, layout.Name, entry.Binding, want)
	}

	return &Block[T]{
		mu:       &sync.Mutex{},
		ctx:      ctx,
		layout:   layout,
		provider: ctx.NewBindGroupProvider(label),
		binding:  entry.Binding,
		size:     size,
		value:    initial,
		data:     data,
		dirty:    true,
	}, nil
}

// Value returns the most recent value passed to New or Update.
func (b *Block[T]) Value() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Size returns the encoded size of the value in bytes.
func (b *Block[T]) Size() uint64 {
	return b.size
}

// Dirty reports whether an update is waiting for Flush.
func (b *Block[T]) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

// Update replaces the value and marks the block dirty. Nothing is written until Flush.
//
// Parameters:
//   - v: the new value
//
// Returns:
//   - error: an error if v encodes to a different size than the backing buffer
func (b *Block[T]) Update(v T) error {
	data := v.Marshal()
	if uint64(len(data)) != b.size {
		return fmt.Errorf("uniform %s: value encodes to %d bytes, buffer holds %d", b.provider.Label(), len(data), b.size)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = v
	b.data = data
	b.dirty = true
	return nil
}

// Flush writes the latest value to the device if it changed since the last flush.
//
// Returns:
//   - bool: true if a write was issued
//   - error: an error if the bind group could not be built or the write failed
func (b *Block[T]) Flush() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.dirty {
		return false, nil
	}
	if err := b.build(); err != nil {
		return false, err
	}
	err := b.ctx.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: b.provider,
		Binding:  b.binding,
		Data:     b.data,
	}})
	if err != nil {
		return false, fmt.Errorf("uniform %s: %w", b.provider.Label(), err)
	}
	b.dirty = false
	return true, nil
}

// BindGroup returns the provider holding the block's bind group, creating the buffer and bind group on
// first use. Later calls return the same provider.
//
// Returns:
//   - bind_group_provider.BindGroupProvider: the provider
//   - error: an error if the bind group could not be created
func (b *Block[T]) BindGroup() (bind_group_provider.BindGroupProvider, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.build(); err != nil {
		return nil, err
	}
	return b.provider, nil
}

// build creates the buffer and bind group once. Caller must hold the mutex.
func (b *Block[T]) build() error {
	if b.built {
		return nil
	}
	if err := b.ctx.InitBindGroup(b.provider, b.layout, map[uint32]uint64{b.binding: b.size}); err != nil {
		return fmt.Errorf("uniform %s: %w", b.provider.Label(), err)
	}
	b.built = true
	return nil
}

// Release frees the buffer and bind group. The block is rebuilt if used again.
func (b *Block[T]) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.provider.Release()
	b.built = false
	b.dirty = true
}
