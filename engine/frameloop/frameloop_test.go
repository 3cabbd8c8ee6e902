package frameloop

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/engine/camera"
	"github.com/Carmen-Shannon/oxy-gfx/engine/config"
	"github.com/Carmen-Shannon/oxy-gfx/engine/model"
	"github.com/Carmen-Shannon/oxy-gfx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/uploader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transition struct{ from, to State }

type scene struct {
	hb          *renderer.HeadlessBackend
	ctx         renderer.GraphicsContext
	loop        FrameLoop
	cam         camera.Camera
	quad        model.Model
	transitions []transition
}

// newScene builds an 800x600 headless context drawing one textured quad with a 2x2 RGBA8 texture
// through one material.
func newScene(t *testing.T, options ...FrameLoopBuilderOption) *scene {
	t.Helper()
	s := &scene{hb: renderer.NewHeadlessBackend()}
	ctx, err := renderer.Initialize(renderer.HeadlessTarget{Backend: s.hb}, 800, 600)
	require.NoError(t, err)
	t.Cleanup(ctx.Teardown)
	s.ctx = ctx

	textured, err := pipeline.NewTexturedPipeline()
	require.NoError(t, err)
	require.NoError(t, ctx.RegisterPipelines(textured))

	up := uploader.NewUploader(ctx)
	tex, err := up.UploadTexture("checker", []byte{
		255, 255, 255, 255, 0, 0, 0, 255,
		0, 0, 0, 255, 255, 255, 255, 255,
	}, 2, 2, wgpu.TextureFormatRGBA8Unorm)
	require.NoError(t, err)
	_, normal, err := up.DefaultTextures()
	require.NoError(t, err)
	layout, ok := ctx.BindGroupLayout(pipeline.KeyTextured, pipeline.GroupMaterial)
	require.True(t, ok)
	set := material.NewSet()
	mat, err := up.BuildMaterial(set, "checker", tex, normal, layout)
	require.NoError(t, err)

	vertices := model.TexturedVertices{
		{Position: [3]float32{-1, 1, 0}, TexCoords: [2]float32{0, 0}, Normal: [3]float32{0, 0, 1}},
		{Position: [3]float32{1, 1, 0}, TexCoords: [2]float32{1, 0}, Normal: [3]float32{0, 0, 1}},
		{Position: [3]float32{-1, -1, 0}, TexCoords: [2]float32{0, 1}, Normal: [3]float32{0, 0, 1}},
		{Position: [3]float32{1, -1, 0}, TexCoords: [2]float32{1, 1}, Normal: [3]float32{0, 0, 1}},
	}
	model.ComputeTangents(vertices, model.QuadIndices)
	mesh, err := up.UploadMesh("quad", vertices, model.QuadIndices)
	require.NoError(t, err)
	require.Equal(t, uint32(4), mesh.VertexCount())
	require.Equal(t, uint32(6), mesh.IndexCount())

	s.quad, err = model.NewModel(ctx, "quad", pipeline.KeyTextured, mesh, model.WithMaterial(mat))
	require.NoError(t, err)

	s.cam = camera.NewPerspectiveCamera(800, 600)
	options = append(options, WithObserver(func(from, to State) {
		s.transitions = append(s.transitions, transition{from, to})
	}))
	s.loop = NewFrameLoop(ctx, options...)
	t.Cleanup(s.loop.Release)
	_, err = s.loop.AddLayer("world", s.cam, s.quad)
	require.NoError(t, err)
	return s
}

var presentedFrame = []transition{
	{Idle, Acquiring},
	{Acquiring, Recording},
	{Recording, Submitted},
	{Submitted, Presented},
	{Presented, Idle},
}

func TestEndToEndThreeFrames(t *testing.T) {
	s := newScene(t)

	for range 3 {
		err := s.loop.Tick(16 * time.Millisecond)
		require.NoError(t, err)
		var lost *renderer.DeviceLostError
		assert.False(t, errors.As(err, &lost))
		assert.Equal(t, Idle, s.loop.State())
	}

	stats := s.hb.Stats()
	assert.Equal(t, 3, stats.Presents)
	assert.Equal(t, 3, stats.Submits)
	assert.Equal(t, 3, stats.Draws)
	assert.Equal(t, 0, stats.Discards)
	assert.Equal(t, [2]int{800, 600}, stats.LastFrameSize)
	assert.False(t, s.ctx.Lost())

	var want []transition
	for range 3 {
		want = append(want, presentedFrame...)
	}
	assert.Equal(t, want, s.transitions)
}

func TestSurfaceLostReinitializesAndRecovers(t *testing.T) {
	s := newScene(t)

	require.NoError(t, s.loop.Tick(0))
	s.transitions = nil
	s.hb.QueueAcquireErrors(renderer.SurfaceLost)

	require.NoError(t, s.loop.Tick(0), "a recreated surface drops the frame without an error")
	assert.Equal(t, []transition{{Idle, Acquiring}, {Acquiring, Reinitializing}, {Reinitializing, Idle}}, s.transitions)
	assert.Equal(t, 1, s.hb.Stats().Presents)
	assert.Equal(t, 1, s.hb.Stats().Recreates)

	s.transitions = nil
	require.NoError(t, s.loop.Tick(0))
	assert.Equal(t, presentedFrame, s.transitions)
	assert.Equal(t, 2, s.hb.Stats().Presents)
}

func TestReinitializeFailureIsInitError(t *testing.T) {
	s := newScene(t)
	s.hb.QueueAcquireErrors(renderer.SurfaceLost)
	s.hb.FailSurfaceCreation(true)

	err := s.loop.Tick(0)
	var initErr *renderer.InitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, renderer.SurfaceCreationFailed, initErr.Kind)
	assert.Equal(t, Idle, s.loop.State())
	assert.Equal(t, 0, s.hb.Stats().Presents)
}

func TestOutdatedIsRetriedOnce(t *testing.T) {
	s := newScene(t)
	configures := s.hb.Stats().Configures

	s.hb.QueueAcquireErrors(renderer.Outdated)
	require.NoError(t, s.loop.Tick(0))
	assert.Equal(t, 1, s.hb.Stats().Presents)
	assert.Equal(t, configures+1, s.hb.Stats().Configures, "the retry reconfigures with the current size")
	assert.Equal(t, 800, s.hb.Stats().LastSurface.Width)
	assert.Equal(t, 600, s.hb.Stats().LastSurface.Height)
}

func TestUnrecoveredAcquireErrorIsNeverPresented(t *testing.T) {
	cases := []struct {
		name  string
		kinds []renderer.AcquireErrorKind
		want  error
	}{
		{"outdated twice", []renderer.AcquireErrorKind{renderer.Outdated, renderer.Outdated}, renderer.ErrSurfaceOutdated},
		{"timeout twice", []renderer.AcquireErrorKind{renderer.Timeout, renderer.Timeout}, renderer.ErrAcquireTimeout},
		{"timeout then outdated", []renderer.AcquireErrorKind{renderer.Timeout, renderer.Outdated}, renderer.ErrSurfaceOutdated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newScene(t)
			s.hb.QueueAcquireErrors(tc.kinds...)

			err := s.loop.Tick(0)
			assert.ErrorIs(t, err, tc.want)
			stats := s.hb.Stats()
			assert.Equal(t, 0, stats.Presents)
			assert.Equal(t, 0, stats.Submits)
			assert.Equal(t, 2, stats.Acquires)
			assert.Equal(t, Idle, s.loop.State())
			assert.NotContains(t, s.transitions, transition{Acquiring, Recording})

			require.NoError(t, s.loop.Tick(0))
			assert.Equal(t, 1, s.hb.Stats().Presents)
		})
	}
}

func TestSubmitFailureIsDeviceLost(t *testing.T) {
	s := newScene(t)
	s.hb.FailNextSubmit()

	err := s.loop.Tick(0)
	var lost *renderer.DeviceLostError
	require.ErrorAs(t, err, &lost)
	assert.ErrorIs(t, err, renderer.ErrDeviceLost)
	assert.Equal(t, 1, s.hb.Stats().Discards)
	assert.Equal(t, 0, s.hb.Stats().Presents)
	assert.Equal(t, Idle, s.loop.State())
	assert.True(t, s.ctx.Lost())

	assert.ErrorAs(t, s.loop.Tick(0), &lost, "a lost context is not retried")
}

func TestRecordFailureDiscardsTheFrame(t *testing.T) {
	s := newScene(t)
	require.NoError(t, s.loop.Tick(0))
	before := s.hb.Stats()

	s.quad.Mesh().Release()
	err := s.loop.Tick(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vertex buffer")

	stats := s.hb.Stats()
	assert.Equal(t, before.Presents, stats.Presents, "a frame that failed to record is never presented")
	assert.Equal(t, before.Submits, stats.Submits)
	assert.Equal(t, before.Discards+1, stats.Discards)
	assert.Equal(t, Idle, s.loop.State())
	assert.False(t, s.ctx.Lost())
	assert.NotContains(t, s.transitions[len(s.transitions)-2:], transition{Recording, Submitted})
}

func TestCameraUpdatesCoalescePerFrame(t *testing.T) {
	s := newScene(t)
	require.NoError(t, s.loop.Tick(0))
	writes := s.hb.Stats().BufferWrites

	require.NoError(t, s.loop.Tick(0))
	assert.Equal(t, writes, s.hb.Stats().BufferWrites, "unchanged uniforms are not rewritten")

	for i := range 5 {
		s.cam.SetPosition([3]float32{float32(i), 5, 10})
	}
	require.NoError(t, s.loop.Tick(0))
	assert.Equal(t, writes+1, s.hb.Stats().BufferWrites)

	block, ok := s.loop.Layers()[0].CameraBlock(pipeline.KeyTextured)
	require.True(t, ok)
	assert.Equal(t, [4]float32{4, 5, 10, 1}, block.Value().ViewPosition)
}

func TestResizeIsCoalescedAndZeroIgnored(t *testing.T) {
	s := newScene(t)
	configures := s.hb.Stats().Configures

	s.loop.Resize(1024, 768)
	s.loop.Resize(640, 480)
	require.NoError(t, s.loop.Tick(0))
	assert.Equal(t, configures+1, s.hb.Stats().Configures)
	assert.Equal(t, [2]int{640, 480}, s.hb.Stats().LastFrameSize)
	assert.InDelta(t, 640.0/480.0, s.cam.Aspect(), 1e-6)

	s.loop.Resize(0, 480)
	require.NoError(t, s.loop.Tick(0))
	s.loop.Resize(640, 0)
	require.NoError(t, s.loop.Tick(0))
	assert.Equal(t, configures+1, s.hb.Stats().Configures)
	assert.Equal(t, [2]int{640, 480}, s.hb.Stats().LastFrameSize)
	assert.InDelta(t, 640.0/480.0, s.cam.Aspect(), 1e-6)
	assert.Equal(t, 3, s.hb.Stats().Presents)
}

func TestLayersDrawWithTheirOwnPipelines(t *testing.T) {
	s := newScene(t)
	color, err := pipeline.NewColorPipeline()
	require.NoError(t, err)
	require.NoError(t, s.ctx.RegisterPipelines(color))

	opts := model.DefaultQuadOptions()
	mesh, err := uploader.NewUploader(s.ctx).UploadMesh("hud", model.Quad(opts), model.QuadIndices)
	require.NoError(t, err)
	hud, err := model.NewModel(s.ctx, "hud", pipeline.KeyColor, mesh, model.WithTransform(model.QuadTransform(opts)))
	require.NoError(t, err)
	defer hud.Release()

	layer, err := s.loop.AddLayer("hud", camera.NewOrthographicCamera(800, 600))
	require.NoError(t, err)
	require.NoError(t, layer.Add(hud))
	_, ok := layer.CameraBlock(pipeline.KeyColor)
	assert.True(t, ok)
	_, ok = layer.CameraBlock(pipeline.KeyTextured)
	assert.False(t, ok)

	require.NoError(t, s.loop.Tick(0))
	assert.Equal(t, 2, s.hb.Stats().Draws)
	assert.Equal(t, 1, s.hb.Stats().Presents)
}

func TestReloadsApplyBetweenFrames(t *testing.T) {
	reloads := make(chan config.Config, 2)
	s := newScene(t, WithReloads(reloads))

	c := config.Default()
	c.Renderer.PresentMode = "uncapped"
	c.Renderer.ClearColor = [4]float64{1, 0, 0, 1}
	reloads <- c
	require.NoError(t, s.loop.Tick(0))

	surface := s.hb.Stats().LastSurface
	assert.Equal(t, renderer.PresentModeUncapped, surface.PresentMode)
	assert.Equal(t, wgpu.Color{R: 1, A: 1}, surface.ClearColor)

	configures := s.hb.Stats().Configures
	reloads <- c
	require.NoError(t, s.loop.Tick(0))
	assert.Equal(t, configures, s.hb.Stats().Configures, "an identical reload leaves the surface alone")

	close(reloads)
	require.NoError(t, s.loop.Tick(0))
	assert.Equal(t, 3, s.hb.Stats().Presents)
}

func TestProfilerSeesEveryOutcome(t *testing.T) {
	clock := time.Unix(0, 0)
	var reports []profiler.Stats
	p := profiler.NewProfiler(
		profiler.WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
		profiler.WithMemStats(false),
		profiler.WithSink(func(st profiler.Stats) { reports = append(reports, st) }),
	)
	s := newScene(t, WithProfiler(p))

	require.NoError(t, s.loop.Tick(0))
	s.hb.QueueAcquireErrors(renderer.SurfaceLost)
	require.NoError(t, s.loop.Tick(0))
	s.hb.QueueAcquireErrors(renderer.Outdated, renderer.Outdated)
	assert.Error(t, s.loop.Tick(0))

	require.Len(t, reports, 3)
	assert.Equal(t, 1, reports[0].Presented)
	assert.Equal(t, 1, reports[1].Reinitialized)
	assert.Equal(t, 1, reports[2].Dropped)
	assert.Equal(t, 1, reports[2].Retries)
}

func TestTickOutsideIdleIsRejected(t *testing.T) {
	s := newScene(t)
	var inner error
	s.loop.Observe(func(_, to State) {
		if to == Recording && inner == nil {
			inner = s.loop.Tick(0)
		}
	})
	require.NoError(t, s.loop.Tick(0))
	assert.Error(t, inner)
}
