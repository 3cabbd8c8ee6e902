package uniform

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/arena"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cameraValue encodes like the camera uniform: a vec4 followed by a mat4.
type cameraValue struct {
	eye      [4]float32
	viewProj [16]float32
}

func (c cameraValue) Marshal() []byte {
	return common.Float32sToBytes(append(c.eye[:], c.viewProj[:]...))
}

type floats []float32

func (f floats) Marshal() []byte { return common.Float32sToBytes(f) }

func setup(t *testing.T) (renderer.GraphicsContext, *renderer.HeadlessBackend, renderer.BindGroupLayout) {
	t.Helper()
	hb := renderer.NewHeadlessBackend()
	ctx, err := renderer.Initialize(renderer.HeadlessTarget{Backend: hb}, 800, 600)
	require.NoError(t, err)
	t.Cleanup(ctx.Teardown)

	p, err := pipeline.NewColorPipeline()
	require.NoError(t, err)
	require.NoError(t, ctx.RegisterPipelines(p))
	layout, ok := ctx.BindGroupLayout(pipeline.KeyColor, pipeline.GroupCamera)
	require.True(t, ok)
	return ctx, hb, layout
}

func TestUpdatesCoalesceIntoOneWrite(t *testing.T) {
	ctx, hb, layout := setup(t)

	block, err := New(ctx, "camera", layout, cameraValue{viewProj: common.IdentityMatrix()})
	require.NoError(t, err)
	assert.Equal(t, uint64(80), block.Size())

	for i := 0; i < 5; i++ {
		require.NoError(t, block.Update(cameraValue{eye: [4]float32{float32(i), 0, 0, 1}}))
	}
	wrote, err := block.Flush()
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, 1, hb.Stats().BufferWrites)

	wrote, err = block.Flush()
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, 1, hb.Stats().BufferWrites)
	assert.False(t, block.Dirty())

	// The last update wins.
	provider, err := block.BindGroup()
	require.NoError(t, err)
	h, ok := provider.Buffer(0)
	require.True(t, ok)
	buf, err := ctx.Arena().Get(h, arena.KindBuffer)
	require.NoError(t, err)
	contents, ok := hb.BufferContents(buf)
	require.True(t, ok)
	assert.Equal(t, common.Float32sToBytes([]float32{4, 0, 0, 1}), contents[:16])
	assert.Equal(t, float32(4), block.Value().eye[0])
}

func TestBindGroupIsCreatedOnce(t *testing.T) {
	ctx, hb, layout := setup(t)

	block, err := New(ctx, "camera", layout, cameraValue{})
	require.NoError(t, err)
	before := hb.Stats().Allocations

	first, err := block.BindGroup()
	require.NoError(t, err)
	bg := first.BindGroup()
	allocated := hb.Stats().Allocations - before
	assert.Equal(t, 2, allocated, "one buffer and one bind group")

	second, err := block.BindGroup()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, bg, second.BindGroup())
	assert.Equal(t, before+2, hb.Stats().Allocations)
}

func TestSizeMismatchIsRejected(t *testing.T) {
	ctx, _, layout := setup(t)

	_, err := New(ctx, "short", layout, floats(make([]float32, 4)))
	assert.Error(t, err)

	block, err := New(ctx, "camera", layout, floats(make([]float32, 20)))
	require.NoError(t, err)
	assert.Error(t, block.Update(floats(make([]float32, 16))))
	assert.NoError(t, block.Update(floats(make([]float32, 20))))
}

func TestReleaseRebuilds(t *testing.T) {
	ctx, hb, layout := setup(t)

	block, err := New(ctx, "camera", layout, cameraValue{})
	require.NoError(t, err)
	_, err = block.Flush()
	require.NoError(t, err)

	block.Release()
	assert.True(t, block.Dirty())
	assert.Equal(t, 0, ctx.Arena().LiveOf(arena.KindBuffer))

	wrote, err := block.Flush()
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, 2, hb.Stats().BufferWrites)
}
