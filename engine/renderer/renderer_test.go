package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/arena"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHeadlessContext(t *testing.T, options ...HeadlessBackendOption) (GraphicsContext, *HeadlessBackend) {
	t.Helper()
	hb := NewHeadlessBackend(options...)
	ctx, err := Initialize(HeadlessTarget{Backend: hb}, 800, 600)
	require.NoError(t, err)
	t.Cleanup(ctx.Teardown)
	return ctx, hb
}

func TestInitializeHeadless(t *testing.T) {
	ctx, hb := newHeadlessContext(t)

	assert.Equal(t, BackendHeadless, ctx.Kind())
	w, h := ctx.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
	assert.Equal(t, uint32(DefaultMaxTextureDimension), ctx.MaxTextureDimension())

	stats := hb.Stats()
	assert.Equal(t, 1, stats.Configures)
	assert.Equal(t, DefaultClearColor, stats.LastSurface.ClearColor)
	assert.Equal(t, PresentModeVSync, stats.LastSurface.PresentMode)
}

func TestInitializeProbesCandidatesInOrder(t *testing.T) {
	var probed []string
	candidate := func(name string, err error) BackendCandidate {
		return BackendCandidate{Name: name, Open: func(Target, CandidateOptions) (RendererBackend, error) {
			probed = append(probed, name)
			return nil, err
		}}
	}

	ctx, err := Initialize(HeadlessTarget{}, 320, 240,
		WithBackendCandidates(
			candidate("webgpu", ErrBackendUnavailable),
			candidate("webgl2", errors.New("context creation failed")),
			HeadlessCandidate(),
			candidate("never", nil),
		),
	)
	require.NoError(t, err)
	defer ctx.Teardown()

	assert.Equal(t, []string{"webgpu", "webgl2"}, probed)
	assert.Equal(t, BackendHeadless, ctx.Kind())
}

func TestInitializeNoSuitableAdapter(t *testing.T) {
	_, err := Initialize(BrowserCanvasHandle{CanvasID: "view"}, 640, 480, WithBackendCandidates(HeadlessCandidate()))
	require.Error(t, err)

	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, NoSuitableAdapter, initErr.Kind)
	assert.ErrorIs(t, err, ErrNoSuitableAdapter)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestInitializeBackendKindFiltersCandidates(t *testing.T) {
	_, err := Initialize(HeadlessTarget{}, 640, 480, WithBackendKind(BackendWebGL))
	assert.ErrorIs(t, err, ErrNoSuitableAdapter)

	ctx, err := Initialize(HeadlessTarget{}, 640, 480, WithBackendKind(BackendHeadless))
	require.NoError(t, err)
	defer ctx.Teardown()
	assert.Equal(t, BackendHeadless, ctx.Kind())

	kind, ok := ParseBackendKind("webgl")
	assert.True(t, ok)
	assert.Equal(t, BackendWebGL, kind)
	_, ok = ParseBackendKind("auto")
	assert.False(t, ok)
}

func TestInitializeSurfaceCreationFailedStopsProbe(t *testing.T) {
	hb := NewHeadlessBackend()
	hb.FailSurfaceCreation(true)

	reached := false
	_, err := Initialize(HeadlessTarget{Backend: hb}, 640, 480, WithBackendCandidates(
		HeadlessCandidate(),
		BackendCandidate{Name: "after", Open: func(Target, CandidateOptions) (RendererBackend, error) {
			reached = true
			return NewHeadlessBackend(), nil
		}},
	))

	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, SurfaceCreationFailed, initErr.Kind)
	assert.ErrorIs(t, err, ErrSurfaceCreationFailed)
	assert.False(t, reached)
}

func TestInitializeNilTarget(t *testing.T) {
	_, err := Initialize(nil, 640, 480)
	assert.ErrorIs(t, err, ErrSurfaceCreationFailed)
}

func TestInitializeClampsZeroSize(t *testing.T) {
	hb := NewHeadlessBackend()
	ctx, err := Initialize(HeadlessTarget{Backend: hb}, 0, 0)
	require.NoError(t, err)
	defer ctx.Teardown()

	w, h := ctx.Size()
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}

func TestResizeIgnoresZeroDimensions(t *testing.T) {
	ctx, hb := newHeadlessContext(t)

	require.NoError(t, ctx.Resize(0, 300))
	require.NoError(t, ctx.Resize(300, 0))
	w, h := ctx.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
	assert.Equal(t, 1, hb.Stats().Configures)

	require.NoError(t, ctx.Resize(1024, 768))
	w, h = ctx.Size()
	assert.Equal(t, 1024, w)
	assert.Equal(t, 768, h)
	assert.Equal(t, 1024, hb.Stats().LastSurface.Width)

	frame, err := ctx.AcquireFrame()
	require.NoError(t, err)
	assert.Equal(t, 1024, frame.Width)
	assert.Equal(t, [2]int{1024, 768}, hb.Stats().LastFrameSize)
	ctx.Discard(frame)
}

func TestSurfaceSettings(t *testing.T) {
	ctx, hb := newHeadlessContext(t)

	require.NoError(t, ctx.SetPresentMode(PresentModeVSync))
	assert.Equal(t, 1, hb.Stats().Configures, "unchanged mode does not reconfigure")

	require.NoError(t, ctx.SetPresentMode(PresentModeUncapped))
	assert.Equal(t, PresentModeUncapped, hb.Stats().LastSurface.PresentMode)

	black := wgpu.Color{A: 1}
	require.NoError(t, ctx.SetClearColor(black))
	assert.Equal(t, black, hb.Stats().LastSurface.ClearColor)

	configures := hb.Stats().Configures
	require.NoError(t, ctx.SetClearColor(black))
	require.NoError(t, ctx.SetPresentMode(PresentModeUncapped))
	assert.Equal(t, configures, hb.Stats().Configures, "unchanged settings do not reconfigure")
}

func TestFrameCycle(t *testing.T) {
	ctx, hb := newHeadlessContext(t)

	for i := 1; i <= 3; i++ {
		frame, err := ctx.AcquireFrame()
		require.NoError(t, err)
		assert.Equal(t, uint64(i), frame.Index)
		require.NoError(t, ctx.Submit(frame))
		require.NoError(t, ctx.Present(frame))
	}

	stats := hb.Stats()
	assert.Equal(t, 3, stats.Acquires)
	assert.Equal(t, 3, stats.Submits)
	assert.Equal(t, 3, stats.Presents)
}

func TestAcquireWhileInFlight(t *testing.T) {
	ctx, _ := newHeadlessContext(t)

	frame, err := ctx.AcquireFrame()
	require.NoError(t, err)
	_, err = ctx.AcquireFrame()
	assert.Error(t, err)

	ctx.Discard(frame)
	assert.Error(t, ctx.Present(frame), "discarded frame cannot be presented")

	next, err := ctx.AcquireFrame()
	require.NoError(t, err)
	ctx.Discard(next)
}

func TestAcquireErrorsPassThrough(t *testing.T) {
	ctx, hb := newHeadlessContext(t)
	hb.QueueAcquireErrors(Outdated, Timeout, SurfaceLost)

	_, err := ctx.AcquireFrame()
	var acquireErr *AcquireError
	require.ErrorAs(t, err, &acquireErr)
	assert.Equal(t, Outdated, acquireErr.Kind)
	assert.True(t, acquireErr.Retryable())

	_, err = ctx.AcquireFrame()
	assert.ErrorIs(t, err, ErrAcquireTimeout)

	_, err = ctx.AcquireFrame()
	require.ErrorAs(t, err, &acquireErr)
	assert.Equal(t, SurfaceLost, acquireErr.Kind)
	assert.False(t, acquireErr.Retryable())

	require.NoError(t, ctx.Reinitialize())
	assert.Equal(t, 1, hb.Stats().Recreates)

	frame, err := ctx.AcquireFrame()
	require.NoError(t, err)
	ctx.Discard(frame)
	assert.False(t, ctx.Lost())
}

func TestReinitializeSurfaceFault(t *testing.T) {
	ctx, hb := newHeadlessContext(t)
	hb.FailSurfaceCreation(true)

	err := ctx.Reinitialize()
	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, SurfaceCreationFailed, initErr.Kind)
}

func TestSubmitFailureLosesDevice(t *testing.T) {
	ctx, hb := newHeadlessContext(t)
	hb.FailNextSubmit()

	frame, err := ctx.AcquireFrame()
	require.NoError(t, err)

	err = ctx.Submit(frame)
	assert.ErrorIs(t, err, ErrDeviceLost)
	assert.True(t, ctx.Lost())
	assert.Equal(t, 1, hb.Stats().Discards)

	_, err = ctx.AcquireFrame()
	var lostErr *DeviceLostError
	assert.ErrorAs(t, err, &lostErr)
}

// registerColor registers the color pipeline and returns camera and model providers with bind groups.
func registerColor(t *testing.T, ctx GraphicsContext) (camera, model bind_group_provider.BindGroupProvider) {
	t.Helper()
	p, err := pipeline.NewColorPipeline()
	require.NoError(t, err)
	require.NoError(t, ctx.RegisterPipelines(p))

	cameraLayout, ok := ctx.BindGroupLayout(pipeline.KeyColor, pipeline.GroupCamera)
	require.True(t, ok)
	modelLayout, ok := ctx.BindGroupLayout(pipeline.KeyColor, pipeline.GroupModel)
	require.True(t, ok)

	camera = ctx.NewBindGroupProvider("camera")
	require.NoError(t, ctx.InitBindGroup(camera, cameraLayout, nil))
	model = ctx.NewBindGroupProvider("model")
	require.NoError(t, ctx.InitBindGroup(model, modelLayout, nil))
	return camera, model
}

func TestDrawCall(t *testing.T) {
	ctx, hb := newHeadlessContext(t)
	camera, model := registerColor(t, ctx)

	mesh := ctx.NewBindGroupProvider("triangle")
	require.NoError(t, ctx.InitMeshBuffers(mesh, make([]byte, 3*28), []byte{0, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0}, 3, 3))
	assert.True(t, mesh.Indexed())

	frame, err := ctx.AcquireFrame()
	require.NoError(t, err)
	require.NoError(t, ctx.DrawCall(frame, pipeline.KeyColor, mesh, []bind_group_provider.BindGroupProvider{camera, model}))
	require.NoError(t, ctx.Submit(frame))
	require.NoError(t, ctx.Present(frame))

	assert.Equal(t, 1, hb.Stats().Draws)
}

func TestDrawCallValidation(t *testing.T) {
	ctx, _ := newHeadlessContext(t)
	camera, _ := registerColor(t, ctx)

	mesh := ctx.NewBindGroupProvider("points")
	require.NoError(t, ctx.InitMeshBuffers(mesh, make([]byte, 28), nil, 1, 0))
	assert.False(t, mesh.Indexed())

	frame, err := ctx.AcquireFrame()
	require.NoError(t, err)
	defer ctx.Discard(frame)

	assert.Error(t, ctx.DrawCall(frame, "missing", mesh, nil))
	assert.Error(t, ctx.DrawCall(frame, pipeline.KeyColor, mesh, []bind_group_provider.BindGroupProvider{camera}))
}

func TestInitMeshBuffersPadsToFourBytes(t *testing.T) {
	ctx, _ := newHeadlessContext(t)

	mesh := ctx.NewBindGroupProvider("odd")
	require.NoError(t, ctx.InitMeshBuffers(mesh, []byte{1, 2, 3, 4, 5, 6}, []byte{0, 0}, 1, 1))
	assert.Equal(t, uint64(12), ctx.Arena().Bytes())

	assert.Error(t, ctx.InitMeshBuffers(ctx.NewBindGroupProvider("empty"), nil, nil, 0, 0))
}

func TestWriteBuffers(t *testing.T) {
	ctx, hb := newHeadlessContext(t)
	camera, _ := registerColor(t, ctx)

	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i + 1)
	}
	require.NoError(t, ctx.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: camera, Binding: 0, Offset: 16, Data: data},
	}))

	h, ok := camera.Buffer(0)
	require.True(t, ok)
	buf, err := ctx.Arena().Get(h, arena.KindBuffer)
	require.NoError(t, err)
	contents, ok := hb.BufferContents(buf)
	require.True(t, ok)
	assert.Len(t, contents, 80)
	assert.Equal(t, data, contents[16:32])

	err = ctx.WriteBuffers([]bind_group_provider.BufferWrite{{Provider: camera, Binding: 0, Offset: 72, Data: data}})
	assert.Error(t, err, "write past the end of the buffer")
	err = ctx.WriteBuffers([]bind_group_provider.BufferWrite{{Provider: camera, Binding: 5, Data: data}})
	assert.Error(t, err)
}

func TestInitBindGroupLayoutMismatch(t *testing.T) {
	ctx, _ := newHeadlessContext(t)
	p, err := pipeline.NewTexturedPipeline()
	require.NoError(t, err)
	require.NoError(t, ctx.RegisterPipelines(p))

	layout, ok := ctx.BindGroupLayout(pipeline.KeyTextured, pipeline.GroupMaterial)
	require.True(t, ok)

	provider := ctx.NewBindGroupProvider("bare")
	err = ctx.InitBindGroup(provider, layout, nil)
	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, LayoutMismatch, uploadErr.Kind)
	assert.ErrorIs(t, err, ErrLayoutMismatch)

	tex, err := ctx.InitTexture(common.TextureStagingData{
		Label:  "white",
		Pixels: []byte{255, 255, 255, 255},
		Width:  1,
		Height: 1,
		Format: wgpu.TextureFormatRGBA8UnormSrgb,
	}, common.SamplerStagingData{})
	require.NoError(t, err)

	provider.SetTexture(0, tex.Image)
	provider.SetSampler(1, tex.Sampler)
	provider.SetTexture(2, tex.Image)
	provider.SetSampler(3, tex.Sampler)
	require.NoError(t, ctx.InitBindGroup(provider, layout, nil))
	assert.False(t, provider.BindGroup().IsZero())

	// Rebuilding replaces the previous bind group.
	first := provider.BindGroup()
	require.NoError(t, ctx.InitBindGroup(provider, layout, nil))
	assert.False(t, ctx.Arena().Valid(first))
}

func TestRegisterPipelinesSkipsKnownKeys(t *testing.T) {
	ctx, hb := newHeadlessContext(t)
	p, err := pipeline.NewColorPipeline()
	require.NoError(t, err)

	require.NoError(t, ctx.RegisterPipelines(p))
	allocations := hb.Stats().Allocations
	require.NoError(t, ctx.RegisterPipelines(p))
	assert.Equal(t, allocations, hb.Stats().Allocations)

	got, ok := ctx.Pipeline(pipeline.KeyColor)
	require.True(t, ok)
	assert.Equal(t, p, got)
	_, ok = ctx.BindGroupLayout(pipeline.KeyColor, pipeline.GroupMaterial)
	assert.False(t, ok)
}

func TestTextureRelease(t *testing.T) {
	ctx, _ := newHeadlessContext(t)

	tex, err := ctx.InitTexture(common.TextureStagingData{
		Label:  "checker",
		Pixels: make([]byte, 4*4*4),
		Width:  4,
		Height: 4,
		Format: wgpu.TextureFormatRGBA8Unorm,
	}, common.SamplerStagingData{})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), tex.MipLevelCount)
	assert.Equal(t, 2, ctx.Arena().Live())

	tex.Release()
	tex.Release()
	assert.Equal(t, 0, ctx.Arena().Live())
}

func TestTeardownInvalidatesHandles(t *testing.T) {
	hb := NewHeadlessBackend()
	ctx, err := Initialize(HeadlessTarget{Backend: hb}, 800, 600)
	require.NoError(t, err)
	camera, _ := registerColor(t, ctx)

	h, ok := camera.Buffer(0)
	require.True(t, ok)
	require.Positive(t, hb.LiveResources())

	frame, err := ctx.AcquireFrame()
	require.NoError(t, err)

	ctx.Teardown()

	_, err = ctx.Arena().Get(h, arena.KindBuffer)
	assert.ErrorIs(t, err, arena.ErrStaleHandle)
	assert.Equal(t, 0, hb.LiveResources())
	assert.Equal(t, 1, hb.Stats().Discards)
	assert.Error(t, ctx.Present(frame))
	_, ok = ctx.Pipeline(pipeline.KeyColor)
	assert.False(t, ok)
}

func TestInitSampler(t *testing.T) {
	ctx, hb := newHeadlessContext(t)

	h, err := ctx.InitSampler("nearest", common.SamplerStagingData{MagFilter: wgpu.FilterModeNearest})
	require.NoError(t, err)
	assert.Equal(t, arena.KindSampler, h.Kind())
	assert.Equal(t, 1, hb.LiveResources())

	ctx.Arena().Release(h)
	assert.Equal(t, 0, hb.LiveResources())
}
