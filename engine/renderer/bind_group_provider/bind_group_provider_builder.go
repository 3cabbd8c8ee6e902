package bind_group_provider

import "github.com/Carmen-Shannon/oxy-gfx/engine/renderer/arena"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithArena sets the arena that issues this provider's handles. Release frees owned handles through it.
//
// Parameters:
//   - a: the arena of the owning GraphicsContext
//
// Returns:
//   - BindGroupProviderOption: a function that sets the arena for this provider
func WithArena(a *arena.Arena) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.res = a
	}
}

// WithBuffer sets an owned buffer for a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer handle to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding uint32, buf arena.Handle) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}
