package arena

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Kind identifies the category of device resource a Handle refers to.
type Kind uint8

const (
	// KindInvalid is the zero Kind carried by zero-value handles.
	KindInvalid Kind = iota
	// KindBuffer is a vertex, index or uniform buffer.
	KindBuffer
	// KindTexture is a sampled texture together with its default view.
	KindTexture
	// KindSampler is a texture sampler.
	KindSampler
	// KindBindGroupLayout is a bind group layout created from a named layout descriptor.
	KindBindGroupLayout
	// KindBindGroup is a bind group referencing buffers, textures and samplers.
	KindBindGroup
	// KindPipeline is a render pipeline.
	KindPipeline
)

// String returns the debug name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindTexture:
		return "texture"
	case KindSampler:
		return "sampler"
	case KindBindGroupLayout:
		return "bind group layout"
	case KindBindGroup:
		return "bind group"
	case KindPipeline:
		return "pipeline"
	default:
		return "invalid"
	}
}

var (
	// ErrInvalidHandle is returned for zero-value handles or handles of an unexpected kind.
	ErrInvalidHandle = errors.New("invalid handle")
	// ErrStaleHandle is returned for handles whose resource was released or whose arena was torn down.
	ErrStaleHandle = errors.New("stale handle")
)

// Handle is an index into an Arena. Handles are plain values: copying one does not extend the
// lifetime of the resource, and using one after its resource was released is detected rather than
// dereferenced.
type Handle struct {
	kind       Kind
	index      uint32
	generation uint32
	epoch      uint32
}

// Kind returns the resource kind of the handle.
func (h Handle) Kind() Kind {
	return h.kind
}

// IsZero reports whether the handle is the zero value (never allocated).
func (h Handle) IsZero() bool {
	return h.kind == KindInvalid
}

// String returns a debug representation of the handle.
func (h Handle) String() string {
	if h.IsZero() {
		return "handle(nil)"
	}
	return fmt.Sprintf("%s#%d.%d@%d", h.kind, h.index, h.generation, h.epoch)
}

// slot stores one arena entry. A free slot keeps its generation so that handles pointing at the
// previous occupant stay stale after reuse.
type slot struct {
	kind       Kind
	generation uint32
	live       bool
	resource   any
	bytes      uint64
	release    func()
	// seq orders live slots by creation; slot indices do not, since freed slots are reused.
	seq uint64
}

// Arena owns every device resource created through a graphics context. Resources are referenced by
// Handle; ReleaseAll tears every resource down and bumps the epoch so that all outstanding handles
// become stale at once.
type Arena struct {
	mu    *sync.Mutex
	epoch uint32
	slots []slot
	free  []uint32
	bytes uint64
	live  int
	seq   uint64
}

// New creates an empty arena.
//
// Returns:
//   - *Arena: the new arena
func New() *Arena {
	return &Arena{
		mu:    &sync.Mutex{},
		epoch: 1,
	}
}

// Insert stores a resource and returns its handle.
//
// Parameters:
//   - kind: the resource kind
//   - resource: the backend resource object
//   - bytes: device memory accounted to this resource
//   - release: called exactly once when the resource is released (may be nil)
//
// Returns:
//   - Handle: the handle for the stored resource
func (a *Arena) Insert(kind Kind, resource any, bytes uint64, release func()) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot{})
		idx = uint32(len(a.slots) - 1)
	}

	s := &a.slots[idx]
	s.kind = kind
	s.generation++
	s.live = true
	s.resource = resource
	s.bytes = bytes
	s.release = release
	a.seq++
	s.seq = a.seq

	a.bytes += bytes
	a.live++

	return Handle{kind: kind, index: idx, generation: s.generation, epoch: a.epoch}
}

// Get resolves a handle to its backend resource.
//
// Parameters:
//   - h: the handle to resolve
//   - kind: the kind the caller expects
//
// Returns:
//   - any: the backend resource
//   - error: ErrInvalidHandle or ErrStaleHandle when the handle cannot be resolved
func (a *Arena) Get(h Handle, kind Kind) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.lookup(h, kind)
	if err != nil {
		return nil, err
	}
	return s.resource, nil
}

// Valid reports whether the handle still refers to a live resource.
//
// Parameters:
//   - h: the handle to check
//
// Returns:
//   - bool: true if the handle resolves
func (a *Arena) Valid(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, err := a.lookup(h, h.kind)
	return err == nil
}

// Release frees the resource behind the handle. Releasing a stale handle is a no-op.
//
// Parameters:
//   - h: the handle to release
func (a *Arena) Release(h Handle) {
	a.mu.Lock()
	s, err := a.lookup(h, h.kind)
	if err != nil {
		a.mu.Unlock()
		return
	}
	release := s.release
	a.clear(h.index, s)
	a.mu.Unlock()

	if release != nil {
		release()
	}
}

// ReleaseAll frees every live resource and invalidates every handle issued so far.
// Resources are released in reverse creation order so that bind groups go before the buffers and
// textures they reference.
func (a *Arena) ReleaseAll() {
	a.mu.Lock()
	type pending struct {
		seq     uint64
		release func()
	}
	var releases []pending
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		if s.release != nil {
			releases = append(releases, pending{seq: s.seq, release: s.release})
		}
		a.clear(uint32(i), s)
	}
	a.epoch++
	a.mu.Unlock()

	slices.SortFunc(releases, func(x, y pending) int {
		return cmp.Compare(y.seq, x.seq)
	})
	for _, p := range releases {
		p.release()
	}
}

// Live returns the number of live resources.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

// LiveOf returns the number of live resources of the given kind.
func (a *Arena) LiveOf(kind Kind) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, s := range a.slots {
		if s.live && s.kind == kind {
			n++
		}
	}
	return n
}

// Bytes returns the device memory accounted to live resources.
func (a *Arena) Bytes() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bytes
}

// lookup finds the live slot for a handle. Caller must hold the mutex.
func (a *Arena) lookup(h Handle, kind Kind) (*slot, error) {
	if h.IsZero() || h.kind != kind {
		return nil, fmt.Errorf("%w: %s (want %s)", ErrInvalidHandle, h, kind)
	}
	if h.epoch != a.epoch || int(h.index) >= len(a.slots) {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	s := &a.slots[h.index]
	if !s.live || s.generation != h.generation || s.kind != h.kind {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	return s, nil
}

// clear marks a slot free. Caller must hold the mutex.
func (a *Arena) clear(idx uint32, s *slot) {
	a.bytes -= s.bytes
	a.live--
	s.live = false
	s.resource = nil
	s.release = nil
	s.bytes = 0
	a.free = append(a.free, idx)
}
