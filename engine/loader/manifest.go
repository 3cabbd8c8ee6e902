package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gfx/engine/model"
)

// Manifest lists the files and generated shapes that make up an AssetBundle. Paths are relative to
// the manifest's directory.
type Manifest struct {
	Textures  []TextureEntry  `toml:"textures" yaml:"textures"`
	Materials []MaterialEntry `toml:"materials" yaml:"materials"`
	Meshes    []MeshEntry     `toml:"meshes" yaml:"meshes"`
	Quads     []QuadEntry     `toml:"quads" yaml:"quads"`
}

// TextureEntry is an image file to decode.
type TextureEntry struct {
	Name string `toml:"name" yaml:"name"`
	Path string `toml:"path" yaml:"path"`
	// SRGB marks colour data. Normal maps and other data textures leave it false.
	SRGB bool `toml:"srgb" yaml:"srgb"`
	// MaxSize downscales images whose larger side exceeds it. Zero keeps the original size.
	MaxSize int `toml:"max_size" yaml:"max_size"`
}

// MaterialEntry pairs a diffuse and a normal texture by name.
type MaterialEntry struct {
	Name    string `toml:"name" yaml:"name"`
	Diffuse string `toml:"diffuse" yaml:"diffuse"`
	Normal  string `toml:"normal" yaml:"normal"`
}

// Mesh shapes a MeshEntry can generate.
const (
	ShapeCube   = "cube"
	ShapePlane  = "plane"
	ShapeInline = "inline"
)

// MeshEntry is a generated shape or inline vertex data.
type MeshEntry struct {
	Name     string  `toml:"name" yaml:"name"`
	Shape    string  `toml:"shape" yaml:"shape"`
	Size     float32 `toml:"size" yaml:"size"`
	Material string  `toml:"material" yaml:"material"`

	Position [3]float32  `toml:"position" yaml:"position"`
	Rotation [3]float32  `toml:"rotation" yaml:"rotation"`
	Scale    *[3]float32 `toml:"scale" yaml:"scale"`

	// Vertices holds position (3), uv (2) and normal (3) per vertex for ShapeInline.
	Vertices []float32 `toml:"vertices" yaml:"vertices"`
	Indices  []uint32  `toml:"indices" yaml:"indices"`
}

// QuadEntry is a screen-space quad; omitted fields take the quad defaults.
type QuadEntry struct {
	Position   *[2]float32 `toml:"position" yaml:"position"`
	Color      *[4]float32 `toml:"color" yaml:"color"`
	Dimensions *[2]float32 `toml:"dimensions" yaml:"dimensions"`
}

// inlineStride is the number of floats per vertex in MeshEntry.Vertices.
const inlineStride = 8

// mesh builds the decoded mesh of an entry.
func (e MeshEntry) mesh() (MeshAsset, error) {
	size := e.Size
	if size == 0 {
		size = 1
	}
	t := model.Transform{Position: e.Position, Rotation: e.Rotation, Scale: [3]float32{1, 1, 1}}
	if e.Scale != nil {
		t.Scale = *e.Scale
	}
	out := MeshAsset{Name: e.Name, Material: e.Material, Transform: t}

	switch e.Shape {
	case ShapeCube, "":
		out.Vertices, out.Indices = Cube(size)
	case ShapePlane:
		out.Vertices, out.Indices = Plane(size)
	case ShapeInline:
		if len(e.Vertices) == 0 || len(e.Vertices)%inlineStride != 0 {
			return MeshAsset{}, fmt.Errorf("mesh %q: %d inline floats is not a multiple of %d", e.Name, len(e.Vertices), inlineStride)
		}
		out.Vertices = make(model.TexturedVertices, len(e.Vertices)/inlineStride)
		for i := range out.Vertices {
			f := e.Vertices[i*inlineStride:]
			out.Vertices[i] = model.TexturedVertex{
				Position:  [3]float32{f[0], f[1], f[2]},
				TexCoords: [2]float32{f[3], f[4]},
				Normal:    [3]float32{f[5], f[6], f[7]},
			}
		}
		out.Indices = e.Indices
		model.ComputeTangents(out.Vertices, out.Indices)
	default:
		return MeshAsset{}, fmt.Errorf("mesh %q: unknown shape %q", e.Name, e.Shape)
	}
	return out, nil
}

// quad fills the omitted fields of an entry with the quad defaults.
func (e QuadEntry) quad() model.QuadOptions {
	q := model.DefaultQuadOptions()
	if e.Position != nil {
		q.Position = *e.Position
	}
	if e.Color != nil {
		q.Color = *e.Color
	}
	if e.Dimensions != nil {
		q.Dimensions = *e.Dimensions
	}
	return q
}
