package model

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/arena"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/uploader"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (renderer.GraphicsContext, uploader.Uploader) {
	t.Helper()
	ctx, err := renderer.Initialize(renderer.HeadlessTarget{Backend: renderer.NewHeadlessBackend()}, 800, 600)
	require.NoError(t, err)
	t.Cleanup(ctx.Teardown)

	color, err := pipeline.NewColorPipeline()
	require.NoError(t, err)
	textured, err := pipeline.NewTexturedPipeline()
	require.NoError(t, err)
	require.NoError(t, ctx.RegisterPipelines(color, textured))
	return ctx, uploader.NewUploader(ctx)
}

func TestVertexSizes(t *testing.T) {
	assert.Equal(t, 28, (&Vertex{}).Size())
	assert.Equal(t, 56, (&TexturedVertex{}).Size())
	assert.Equal(t, 64, Uniform{}.Size())
	assert.Len(t, Uniform{}.Marshal(), 64)
}

func TestVertexBytesLayout(t *testing.T) {
	v := Vertices{{Position: [3]float32{1, 2, 3}, Color: [4]float32{4, 5, 6, 7}}}
	assert.Equal(t, common.Float32sToBytes([]float32{1, 2, 3, 4, 5, 6, 7}), v.VertexBytes())
	assert.Equal(t, uint32(1), v.VertexCount())
	assert.Nil(t, Vertices{}.VertexBytes())

	tv := TexturedVertices{{
		Position:  [3]float32{1, 2, 3},
		TexCoords: [2]float32{4, 5},
		Normal:    [3]float32{6, 7, 8},
		Tangent:   [3]float32{9, 10, 11},
		Bitangent: [3]float32{12, 13, 14},
	}}
	assert.Equal(t, common.Float32sToBytes([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}), tv.VertexBytes())
}

func TestDefaultQuad(t *testing.T) {
	opts := DefaultQuadOptions()
	quad := Quad(opts)
	require.Len(t, quad, 4)

	want := [4]float32{252.0 / 255, 3.0 / 255, 223.0 / 255, 1}
	for _, v := range quad {
		assert.Equal(t, want, v.Color)
	}
	assert.Equal(t, [3]float32{40, 40, 0}, quad[3].Position)
	assert.Equal(t, []uint32{0, 1, 2, 2, 1, 3}, QuadIndices)
	assert.Len(t, quad.VertexBytes(), 4*28)

	opts.Position = [2]float32{100, 50}
	m := QuadTransform(opts).Matrix()
	assert.Equal(t, [4]float32{140, 90, 0, 1}, common.TransformPoint(m, 40, 40, 0))
}

func TestTriangleIsNotIndexed(t *testing.T) {
	_, u := setup(t)
	mesh, err := u.UploadMesh("triangle", Triangle(), nil)
	require.NoError(t, err)
	assert.False(t, mesh.Indexed())
	assert.Equal(t, uint32(3), mesh.VertexCount())
}

func TestComputeTangents(t *testing.T) {
	// A unit quad in the XY plane with u along +X and v growing towards -Y.
	vertices := TexturedVertices{
		{Position: [3]float32{0, 1, 0}, TexCoords: [2]float32{0, 0}},
		{Position: [3]float32{1, 1, 0}, TexCoords: [2]float32{1, 0}},
		{Position: [3]float32{0, 0, 0}, TexCoords: [2]float32{0, 1}},
		{Position: [3]float32{1, 0, 0}, TexCoords: [2]float32{1, 1}},
		{Position: [3]float32{5, 5, 5}, TexCoords: [2]float32{0, 0}},
	}
	ComputeTangents(vertices, QuadIndices)

	approx := cmpopts.EquateApprox(0, 1e-6)
	for i := range 4 {
		if diff := cmp.Diff([3]float32{1, 0, 0}, vertices[i].Tangent, approx); diff != "" {
			t.Errorf("vertex %d tangent mismatch (-want +got):\n%s", i, diff)
		}
		if diff := cmp.Diff([3]float32{0, 1, 0}, vertices[i].Bitangent, approx); diff != "" {
			t.Errorf("vertex %d bitangent mismatch (-want +got):\n%s", i, diff)
		}
	}
	assert.Equal(t, [3]float32{}, vertices[4].Tangent, "unused vertices keep a zero frame")
}

func TestComputeTangentsSkipsDegenerateUVs(t *testing.T) {
	vertices := TexturedVertices{
		{Position: [3]float32{0, 0, 0}},
		{Position: [3]float32{1, 0, 0}},
		{Position: [3]float32{0, 1, 0}},
	}
	ComputeTangents(vertices, nil)
	for _, v := range vertices {
		assert.Equal(t, [3]float32{}, v.Tangent)
	}
}

func TestNewModelColor(t *testing.T) {
	ctx, u := setup(t)
	opts := DefaultQuadOptions()
	mesh, err := u.UploadMesh("quad", Quad(opts), QuadIndices)
	require.NoError(t, err)

	m, err := NewModel(ctx, "quad", pipeline.KeyColor, mesh, WithTransform(QuadTransform(opts)))
	require.NoError(t, err)
	assert.Nil(t, m.Material())
	assert.Equal(t, uint64(64), m.Uniform().Size())
	assert.True(t, m.Uniform().Dirty())

	_, err = m.Uniform().Flush()
	require.NoError(t, err)
	require.NoError(t, m.SetTransform(Transform{Position: [3]float32{1, 2, 3}, Scale: [3]float32{1, 1, 1}}))
	assert.True(t, m.Uniform().Dirty())
	assert.Equal(t, [3]float32{1, 2, 3}, m.Transform().Position)

	m.Release()
	assert.Equal(t, 0, ctx.Arena().LiveOf(arena.KindBuffer))
}

func TestNewModelTexturedNeedsMatchingMaterial(t *testing.T) {
	ctx, u := setup(t)
	verts := TexturedVertices{{}, {}, {}}
	mesh, err := u.UploadMesh("mesh", verts, nil)
	require.NoError(t, err)

	_, err = NewModel(ctx, "bare", pipeline.KeyTextured, mesh)
	assert.Error(t, err)

	_, err = NewModel(ctx, "wrong", pipeline.KeyTextured, mesh, WithMaterial(material.NewMaterial("other", material.WithPipelineKey(pipeline.KeyColor))))
	assert.Error(t, err)

	layout, ok := ctx.BindGroupLayout(pipeline.KeyTextured, pipeline.GroupMaterial)
	require.True(t, ok)
	diffuse, normal, err := u.DefaultTextures()
	require.NoError(t, err)
	mat, err := u.BuildMaterial(nil, "default", diffuse, normal, layout)
	require.NoError(t, err)

	m, err := NewModel(ctx, "mesh", pipeline.KeyTextured, mesh, WithMaterial(mat), WithPosition(0, 1, 0))
	require.NoError(t, err)
	assert.Same(t, mat, m.Material())
	assert.Equal(t, [3]float32{0, 1, 0}, m.Transform().Position)

	_, err = NewModel(ctx, "unknown", "missing", mesh)
	assert.Error(t, err)
	_, err = NewModel(ctx, "nil mesh", pipeline.KeyColor, nil)
	assert.Error(t, err)
}
