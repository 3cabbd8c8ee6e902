package loader

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"runtime"
	"testing"
	"testing/fstest"
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/engine/model"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func encodePNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeBMP(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{B: 255, A: 255})
		}
	}
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))
	return buf.Bytes()
}

const tomlManifest = `
[[textures]]
name = "brick"
path = "img/brick.png"
srgb = true

[[textures]]
name = "brick_n"
path = "img/brick_n.bmp"

[[materials]]
name = "brick"
diffuse = "brick"
normal = "brick_n"

[[meshes]]
name = "wall"
shape = "cube"
size = 2.0
material = "brick"
position = [1.0, 0.0, -3.0]

[[quads]]
position = [10.0, 20.0]
`

const yamlManifest = `
textures:
  - name: brick
    path: img/brick.png
    srgb: true
materials:
  - name: brick
    diffuse: brick
meshes:
  - name: tri
    shape: inline
    material: brick
    vertices: [0, 0, 0, 0, 1, 0, 0, 1,  1, 0, 0, 1, 1, 0, 0, 1,  0, 1, 0, 0, 0, 0, 0, 1]
quads:
  - color: [10, 207, 131, 0.5]
    dimensions: [400, 200]
`

func testFS(t *testing.T) fstest.MapFS {
	return fstest.MapFS{
		"scene/scene.toml":        {Data: []byte(tomlManifest)},
		"scene/scene.yaml":        {Data: []byte(yamlManifest)},
		"scene/img/brick.png":     {Data: encodePNG(t, 3, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 128})},
		"scene/img/brick_n.bmp":   {Data: encodeBMP(t, 2, 2)},
		"scene/bad.json":          {Data: []byte(`{}`)},
		"scene/typo.toml":         {Data: []byte("[[textures]]\nnmae = \"x\"\n")},
		"scene/missing_img.yaml":  {Data: []byte("textures:\n  - name: a\n    path: nope.png\n")},
		"scene/dangling_ref.yaml": {Data: []byte("materials:\n  - name: m\n    diffuse: ghost\n")},
	}
}

func TestLoadTOML(t *testing.T) {
	l := NewLoader(WithWorkers(2))
	b, err := l.LoadFS(testFS(t), "scene/scene.toml")
	require.NoError(t, err)

	require.Len(t, b.Textures, 2)
	brick, ok := b.Texture("brick")
	require.True(t, ok)
	assert.Equal(t, uint32(3), brick.Width)
	assert.Equal(t, uint32(2), brick.Height)
	assert.Equal(t, wgpu.TextureFormatRGBA8UnormSrgb, brick.Format)
	require.Len(t, brick.Pixels, 3*2*4)
	assert.Equal(t, []byte{200, 100, 50, 128}, brick.Pixels[:4], "alpha is not premultiplied")

	normal, ok := b.Texture("brick_n")
	require.True(t, ok)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, normal.Format)
	assert.Equal(t, []byte{255, 0, 0, 255}, normal.Pixels[:4])

	if diff := cmp.Diff([]MaterialAsset{{Name: "brick", Diffuse: "brick", Normal: "brick_n"}}, b.Materials); diff != "" {
		t.Errorf("materials mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, b.Meshes, 1)
	wall := b.Meshes[0]
	assert.Len(t, wall.Vertices, 24)
	assert.Len(t, wall.Indices, 36)
	assert.Equal(t, [3]float32{1, 0, -3}, wall.Transform.Position)
	assert.Equal(t, [3]float32{1, 1, 1}, wall.Transform.Scale)
	assert.Equal(t, [3]float32{-1, -1, 1}, wall.Vertices[0].Position)

	want := model.DefaultQuadOptions()
	want.Position = [2]float32{10, 20}
	assert.Equal(t, []model.QuadOptions{want}, b.Quads)

	again, err := l.LoadFS(testFS(t), "scene/scene.toml")
	require.NoError(t, err)
	assert.Same(t, b, again)
	assert.Same(t, b, l.Get("scene/scene.toml"))
}

func TestLoadYAML(t *testing.T) {
	b, err := NewLoader().LoadFS(testFS(t), "scene/scene.yaml")
	require.NoError(t, err)

	require.Len(t, b.Meshes, 1)
	tri := b.Meshes[0]
	require.Len(t, tri.Vertices, 3)
	assert.Nil(t, tri.Indices)
	assert.Equal(t, [2]float32{1, 1}, tri.Vertices[1].TexCoords)
	assert.InDelta(t, 1, tri.Vertices[0].Tangent[0], 1e-6)

	require.Len(t, b.Quads, 1)
	assert.Equal(t, [4]float32{10, 207, 131, 0.5}, b.Quads[0].Color)
	assert.Equal(t, [2]float32{400, 200}, b.Quads[0].Dimensions)
	assert.Equal(t, [2]float32{0, 0}, b.Quads[0].Position)
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		file string
	}{
		{"unsupported format", "scene/bad.json"},
		{"unknown field", "scene/typo.toml"},
		{"missing image", "scene/missing_img.yaml"},
		{"dangling reference", "scene/dangling_ref.yaml"},
		{"missing manifest", "scene/none.toml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLoader()
			_, err := l.LoadFS(testFS(t), tc.file)
			assert.Error(t, err)
			assert.Nil(t, l.Get(tc.file))
		})
	}
}

func TestRepeatedLoadsDoNotGrowGoroutines(t *testing.T) {
	fsys := testFS(t)
	_, err := NewLoader().LoadFS(fsys, "scene/scene.toml")
	require.NoError(t, err)
	baseline := runtime.NumGoroutine()

	for range 50 {
		_, err := NewLoader(WithWorkers(3)).LoadFS(fsys, "scene/scene.toml")
		require.NoError(t, err)
	}
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= baseline
	}, time.Second, 10*time.Millisecond, "decode goroutines leaked across loads")
}

func TestWithWorkersIsClamped(t *testing.T) {
	assert.Equal(t, 1, NewLoader(WithWorkers(0)).(*loader).workers)
	assert.Equal(t, MaxWorkers, NewLoader(WithWorkers(1000)).(*loader).workers)
}

func TestMaxSizeDownscales(t *testing.T) {
	fsys := fstest.MapFS{"big.png": {Data: encodePNG(t, 64, 16, color.NRGBA{G: 255, A: 255})}}
	b, err := NewLoader().Build(fsys, Manifest{Textures: []TextureEntry{{Name: "big", Path: "big.png", MaxSize: 16}}})
	require.NoError(t, err)
	assert.Equal(t, uint32(16), b.Textures[0].Width)
	assert.Equal(t, uint32(4), b.Textures[0].Height)
	assert.Len(t, b.Textures[0].Pixels, 16*4*4)
}

func TestValidate(t *testing.T) {
	b := DemoBundle()
	require.NoError(t, b.Validate())

	b.Textures[0].Pixels = b.Textures[0].Pixels[:4]
	b.Meshes[0].Indices = append(b.Meshes[0].Indices, 99)
	b.Meshes = append(b.Meshes, MeshAsset{Name: "empty", Material: "ghost"})
	err := b.Validate()
	require.Error(t, err)
	for _, part := range []string{"checker", "out of range", "no vertices", "ghost"} {
		assert.Contains(t, err.Error(), part)
	}
}

func TestShapes(t *testing.T) {
	v, idx := Plane(2)
	require.Len(t, v, 4)
	assert.Len(t, idx, 6)
	for _, vert := range v {
		assert.Equal(t, float32(0), vert.Position[1])
		assert.Equal(t, [3]float32{0, 1, 0}, vert.Normal)
	}

	cube, cubeIdx := Cube(1)
	for _, i := range cubeIdx {
		assert.Less(t, int(i), len(cube))
	}
}
