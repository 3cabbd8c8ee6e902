package uploader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawVertices struct {
	data  []byte
	count uint32
}

func (r rawVertices) VertexBytes() []byte { return r.data }
func (r rawVertices) VertexCount() uint32 { return r.count }

func setup(t *testing.T, options ...renderer.HeadlessBackendOption) (renderer.GraphicsContext, *renderer.HeadlessBackend, Uploader) {
	t.Helper()
	hb := renderer.NewHeadlessBackend(options...)
	ctx, err := renderer.Initialize(renderer.HeadlessTarget{Backend: hb}, 800, 600)
	require.NoError(t, err)
	t.Cleanup(ctx.Teardown)
	return ctx, hb, NewUploader(ctx)
}

func materialLayout(t *testing.T, ctx renderer.GraphicsContext) renderer.BindGroupLayout {
	t.Helper()
	p, err := pipeline.NewTexturedPipeline()
	require.NoError(t, err)
	require.NoError(t, ctx.RegisterPipelines(p))
	layout, ok := ctx.BindGroupLayout(pipeline.KeyTextured, pipeline.GroupMaterial)
	require.True(t, ok)
	return layout
}

func TestUploadTextureReportsDimensions(t *testing.T) {
	cases := []struct {
		name   string
		width  uint32
		height uint32
		format wgpu.TextureFormat
		bpp    int
	}{
		{"rgba8", 2, 2, wgpu.TextureFormatRGBA8Unorm, 4},
		{"srgb wide", 16, 1, wgpu.TextureFormatRGBA8UnormSrgb, 4},
		{"r8 tall", 1, 9, wgpu.TextureFormatR8Unorm, 1},
		{"rgba16f", 3, 5, wgpu.TextureFormatRGBA16Float, 8},
		{"rgba32f", 4, 4, wgpu.TextureFormatRGBA32Float, 16},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, u := setup(t)
			pixels := make([]byte, int(tc.width*tc.height)*tc.bpp)

			tex, err := u.UploadTexture(tc.name, pixels, tc.width, tc.height, tc.format)
			require.NoError(t, err)

			want := renderer.Texture{
				Label:         tc.name,
				Width:         tc.width,
				Height:        tc.height,
				Format:        tc.format,
				MipLevelCount: 1,
				SampleCount:   1,
				Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
			}
			opts := cmpopts.IgnoreFields(renderer.Texture{}, "Image", "Sampler")
			if diff := cmp.Diff(want, *tex, opts, cmpopts.IgnoreUnexported(renderer.Texture{})); diff != "" {
				t.Errorf("texture mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUploadTextureRejectsBeforeAllocating(t *testing.T) {
	cases := []struct {
		name   string
		pixels int
		width  uint32
		height uint32
		format wgpu.TextureFormat
		want   error
	}{
		{"short buffer", 15, 2, 2, wgpu.TextureFormatRGBA8Unorm, renderer.ErrSizeMismatch},
		{"long buffer", 17, 2, 2, wgpu.TextureFormatRGBA8Unorm, renderer.ErrSizeMismatch},
		{"zero width", 0, 0, 4, wgpu.TextureFormatRGBA8Unorm, renderer.ErrSizeMismatch},
		{"depth format", 4, 1, 1, wgpu.TextureFormatDepth32Float, renderer.ErrUnsupportedFormat},
		{"undefined format", 4, 1, 1, wgpu.TextureFormatUndefined, renderer.ErrUnsupportedFormat},
		{"too wide", 4 * 65, 65, 1, wgpu.TextureFormatRGBA8Unorm, renderer.ErrTooLarge},
		{"too wide and short", 4 * 64, 65, 1, wgpu.TextureFormatRGBA8Unorm, renderer.ErrSizeMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, hb, u := setup(t, renderer.WithHeadlessMaxTextureDimension(64))

			tex, err := u.UploadTexture(tc.name, make([]byte, tc.pixels), tc.width, tc.height, tc.format)
			assert.Nil(t, tex)
			assert.ErrorIs(t, err, tc.want)

			var uploadErr *renderer.UploadError
			require.ErrorAs(t, err, &uploadErr)
			assert.Equal(t, tc.name, uploadErr.Resource)
			assert.Zero(t, hb.Stats().Allocations)
			assert.Zero(t, hb.Stats().TextureWrites)
		})
	}
}

func TestUploadMesh(t *testing.T) {
	_, hb, u := setup(t)

	quad, err := u.UploadMesh("quad", rawVertices{make([]byte, 4*28), 4}, []uint32{0, 1, 2, 2, 1, 3})
	require.NoError(t, err)
	assert.True(t, quad.Indexed())
	assert.Equal(t, uint32(4), quad.VertexCount())
	assert.Equal(t, uint32(6), quad.IndexCount())

	tri, err := u.UploadMesh("triangle", rawVertices{make([]byte, 3*28), 3}, nil)
	require.NoError(t, err)
	assert.False(t, tri.Indexed())
	assert.Equal(t, uint32(0), tri.IndexCount())

	live := hb.LiveResources()
	quad.Release()
	assert.Equal(t, live-2, hb.LiveResources())

	_, err = u.UploadMesh("bad", rawVertices{make([]byte, 3*28), 3}, []uint32{0, 1, 3})
	assert.Error(t, err)
	_, err = u.UploadMesh("empty", rawVertices{}, nil)
	assert.Error(t, err)
}

func TestBuildMaterial(t *testing.T) {
	ctx, _, u := setup(t)
	layout := materialLayout(t, ctx)

	diffuse, normal, err := u.DefaultTextures()
	require.NoError(t, err)
	d2, n2, err := u.DefaultTextures()
	require.NoError(t, err)
	assert.Same(t, diffuse, d2)
	assert.Same(t, normal, n2)

	set := material.NewSet()
	m, err := u.BuildMaterial(set, "brick", diffuse, normal, layout)
	require.NoError(t, err)
	assert.Equal(t, pipeline.KeyTextured, m.PipelineKey())
	assert.False(t, m.BindGroupProvider().BindGroup().IsZero())

	got, ok := set.Get("brick")
	require.True(t, ok)
	assert.Same(t, m, got)
}

func TestBuildMaterialDuplicateNameAllocatesNothing(t *testing.T) {
	ctx, hb, u := setup(t)
	layout := materialLayout(t, ctx)
	diffuse, normal, err := u.DefaultTextures()
	require.NoError(t, err)

	set := material.NewSet()
	first, err := u.BuildMaterial(set, "brick", diffuse, normal, layout)
	require.NoError(t, err)

	before := hb.Stats().Allocations
	_, err = u.BuildMaterial(set, "brick", diffuse, normal, layout)
	assert.ErrorIs(t, err, renderer.ErrDuplicateMaterialName)
	assert.Equal(t, before, hb.Stats().Allocations)

	kept, ok := set.Get("brick")
	require.True(t, ok)
	assert.Same(t, first, kept)
	assert.Equal(t, 1, set.Len())
}

func TestBuildMaterialLayoutMismatch(t *testing.T) {
	ctx, _, u := setup(t)
	layout := materialLayout(t, ctx)
	diffuse, normal, err := u.DefaultTextures()
	require.NoError(t, err)

	float, err := u.UploadTexture("heights", make([]byte, 4), 1, 1, wgpu.TextureFormatR32Float)
	require.NoError(t, err)

	_, err = u.BuildMaterial(nil, "unfilterable", float, normal, layout)
	assert.ErrorIs(t, err, renderer.ErrLayoutMismatch)

	_, err = u.BuildMaterial(nil, "missing", diffuse, nil, layout)
	assert.ErrorIs(t, err, renderer.ErrLayoutMismatch)

	camera, ok := ctx.BindGroupLayout(pipeline.KeyTextured, pipeline.GroupCamera)
	require.True(t, ok)
	_, err = u.BuildMaterial(nil, "wrong layout", diffuse, normal, camera)
	assert.ErrorIs(t, err, renderer.ErrLayoutMismatch)

	// A released texture is stale by the time the bind group is created.
	stale, err := u.UploadTexture("stale", []byte{1, 2, 3, 4}, 1, 1, wgpu.TextureFormatRGBA8Unorm)
	require.NoError(t, err)
	stale.Release()
	_, err = u.BuildMaterial(nil, "stale", stale, normal, layout)
	var uploadErr *renderer.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, renderer.LayoutMismatch, uploadErr.Kind)
	assert.Equal(t, "stale", uploadErr.Resource)
}

func TestReleaseDefaultTextures(t *testing.T) {
	ctx, _, u := setup(t)

	diffuse, _, err := u.DefaultTextures()
	require.NoError(t, err)
	u.Release()
	assert.False(t, ctx.Arena().Valid(diffuse.Image))

	again, _, err := u.DefaultTextures()
	require.NoError(t, err)
	assert.NotSame(t, diffuse, again)
}
