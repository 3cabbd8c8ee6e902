package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/arena"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleaseFreesOwnedHandlesOnly(t *testing.T) {
	a := arena.New()
	var released []string
	track := func(name string) func() { return func() { released = append(released, name) } }

	buf := a.Insert(arena.KindBuffer, "ubo", 64, track("ubo"))
	tex := a.Insert(arena.KindTexture, "tex", 16, track("tex"))
	smp := a.Insert(arena.KindSampler, "smp", 0, track("smp"))
	layout := a.Insert(arena.KindBindGroupLayout, "layout", 0, track("layout"))
	bg := a.Insert(arena.KindBindGroup, "bg", 0, track("bg"))

	p := NewBindGroupProvider("material", WithArena(a), WithBuffer(3, buf))
	p.SetTexture(0, tex)
	p.SetSampler(1, smp)
	p.SetBindGroup(bg, layout)

	h, ok := p.Buffer(3)
	require.True(t, ok)
	assert.Equal(t, buf, h)

	p.Release()
	assert.ElementsMatch(t, []string{"bg", "ubo"}, released)
	assert.True(t, a.Valid(tex))
	assert.True(t, a.Valid(smp))
	assert.True(t, a.Valid(layout))
	assert.True(t, p.BindGroup().IsZero())

	_, ok = p.Texture(0)
	assert.False(t, ok)

	p.Release()
	assert.Len(t, released, 2)
}

func TestMeshProvider(t *testing.T) {
	a := arena.New()
	vb := a.Insert(arena.KindBuffer, "vb", 112, nil)

	p := NewBindGroupProvider("triangle", WithArena(a))
	p.SetMesh(vb, arena.Handle{}, 3, 0)
	assert.False(t, p.Indexed())
	assert.Equal(t, uint32(3), p.VertexCount())

	ib := a.Insert(arena.KindBuffer, "ib", 24, nil)
	p.SetMesh(vb, ib, 4, 6)
	assert.True(t, p.Indexed())
	assert.Equal(t, uint32(6), p.IndexCount())

	p.Release()
	assert.Equal(t, 0, a.Live())
}

func TestBuffersReturnsCopy(t *testing.T) {
	p := NewBindGroupProvider("camera")
	p.SetBuffer(0, arena.Handle{})
	m := p.Buffers()
	delete(m, 0)
	_, ok := p.Buffer(0)
	assert.True(t, ok)

	// No arena: Release only clears the bookkeeping.
	p.Release()
	_, ok = p.Buffer(0)
	assert.False(t, ok)
}
