package arena

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertGetRelease(t *testing.T) {
	a := New()
	released := 0
	h := a.Insert(KindBuffer, "vertex", 64, func() { released++ })

	res, err := a.Get(h, KindBuffer)
	require.NoError(t, err)
	assert.Equal(t, "vertex", res)
	assert.Equal(t, uint64(64), a.Bytes())
	assert.Equal(t, 1, a.Live())

	a.Release(h)
	assert.Equal(t, 1, released)
	assert.Equal(t, uint64(0), a.Bytes())
	assert.False(t, a.Valid(h))

	_, err = a.Get(h, KindBuffer)
	assert.True(t, errors.Is(err, ErrStaleHandle))

	// Releasing twice does not call the release func again.
	a.Release(h)
	assert.Equal(t, 1, released)
}

func TestSlotReuseKeepsOldHandlesStale(t *testing.T) {
	a := New()
	first := a.Insert(KindTexture, 1, 0, nil)
	a.Release(first)
	second := a.Insert(KindTexture, 2, 0, nil)

	assert.False(t, a.Valid(first))
	assert.True(t, a.Valid(second))

	res, err := a.Get(second, KindTexture)
	require.NoError(t, err)
	assert.Equal(t, 2, res)
}

func TestKindMismatch(t *testing.T) {
	a := New()
	h := a.Insert(KindSampler, "s", 0, nil)

	_, err := a.Get(h, KindTexture)
	assert.True(t, errors.Is(err, ErrInvalidHandle))

	_, err = a.Get(Handle{}, KindTexture)
	assert.True(t, errors.Is(err, ErrInvalidHandle))
}

func TestReleaseAllInvalidatesEverything(t *testing.T) {
	a := New()
	var order []string
	buf := a.Insert(KindBuffer, nil, 16, func() { order = append(order, "buffer") })
	tex := a.Insert(KindTexture, nil, 16, func() { order = append(order, "texture") })
	bg := a.Insert(KindBindGroup, nil, 0, func() { order = append(order, "bind group") })

	a.ReleaseAll()

	assert.Equal(t, []string{"bind group", "texture", "buffer"}, order)
	for _, h := range []Handle{buf, tex, bg} {
		assert.False(t, a.Valid(h), h.String())
	}
	assert.Equal(t, 0, a.Live())
	assert.Equal(t, uint64(0), a.Bytes())

	// New handles issued after teardown resolve normally.
	h := a.Insert(KindBuffer, "new", 8, nil)
	assert.True(t, a.Valid(h))
	assert.Equal(t, 1, a.LiveOf(KindBuffer))
}

func TestReleaseAllFollowsCreationOrderAcrossReusedSlots(t *testing.T) {
	a := New()
	var order []string
	record := func(name string) func() {
		return func() { order = append(order, name) }
	}
	first := a.Insert(KindBuffer, nil, 16, record("first"))
	a.Insert(KindTexture, nil, 16, record("texture"))
	a.Insert(KindBuffer, nil, 16, record("buffer"))
	a.Release(first)
	order = nil

	// The bind group takes over slot 0 but is the newest resource.
	a.Insert(KindBindGroup, nil, 0, record("bind group"))
	a.ReleaseAll()

	assert.Equal(t, []string{"bind group", "buffer", "texture"}, order)
}
