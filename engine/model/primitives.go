package model

import (
	"github.com/chewxy/math32"
)

// QuadOptions describes a screen-space rectangle drawn with the orthographic camera.
type QuadOptions struct {
	// Position is the top-left corner in pixels.
	Position [2]float32
	// Color is the fill colour, 0-255 per channel with alpha in [0, 1].
	Color [4]float32
	// Dimensions is the width and height in pixels.
	Dimensions [2]float32
}

// DefaultQuadOptions returns a 40x40 magenta quad at the origin.
//
// Returns:
//   - QuadOptions: the defaults
func DefaultQuadOptions() QuadOptions {
	return QuadOptions{
		Position:   [2]float32{0, 0},
		Color:      [4]float32{252, 3, 223, 1},
		Dimensions: [2]float32{40, 40},
	}
}

// QuadIndices is the index list of every quad: two triangles sharing the 1-2 edge.
var QuadIndices = []uint32{0, 1, 2, 2, 1, 3}

// Quad builds the four vertices of a quad in its local space, with the top-left corner at the origin.
// The position is applied by the model transform returned by QuadTransform.
//
// Parameters:
//   - opts: the quad options
//
// Returns:
//   - Vertices: top-left, top-right, bottom-left, bottom-right
func Quad(opts QuadOptions) Vertices {
	c := [4]float32{opts.Color[0] / 255, opts.Color[1] / 255, opts.Color[2] / 255, opts.Color[3]}
	w, h := opts.Dimensions[0], opts.Dimensions[1]
	return Vertices{
		{Position: [3]float32{0, 0, 0}, Color: c},
		{Position: [3]float32{w, 0, 0}, Color: c},
		{Position: [3]float32{0, h, 0}, Color: c},
		{Position: [3]float32{w, h, 0}, Color: c},
	}
}

// QuadTransform returns the transform placing a quad at its position.
//
// Parameters:
//   - opts: the quad options
//
// Returns:
//   - Transform: a translation by Position
func QuadTransform(opts QuadOptions) Transform {
	t := IdentityTransform()
	t.Position = [3]float32{opts.Position[0], opts.Position[1], 0}
	return t
}

// Triangle returns the red, green and blue triangle centered on the origin, drawn without indices.
//
// Returns:
//   - Vertices: the three vertices, counter-clockwise
func Triangle() Vertices {
	return Vertices{
		{Position: [3]float32{0, 0.5, 0}, Color: [4]float32{1, 0, 0, 1}},
		{Position: [3]float32{-0.5, -0.5, 0}, Color: [4]float32{0, 1, 0, 1}},
		{Position: [3]float32{0.5, -0.5, 0}, Color: [4]float32{0, 0, 1, 1}},
	}
}

// ComputeTangents fills Tangent and Bitangent of every vertex from positions and UVs. Each vertex
// gets the average over the triangles that use it. Triangles with degenerate UVs are skipped, and a
// vertex used by no valid triangle keeps a zero tangent frame.
//
// Parameters:
//   - vertices: the vertices to update in place
//   - indices: the triangle list; nil means consecutive vertex triples
func ComputeTangents(vertices TexturedVertices, indices []uint32) {
	if indices == nil {
		indices = make([]uint32, len(vertices)-len(vertices)%3)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	counts := make([]int, len(vertices))
	for i := range vertices {
		vertices[i].Tangent = [3]float32{}
		vertices[i].Bitangent = [3]float32{}
	}

	for t := 0; t+2 < len(indices); t += 3 {
		tri := [3]uint32{indices[t], indices[t+1], indices[t+2]}
		if int(tri[0]) >= len(vertices) || int(tri[1]) >= len(vertices) || int(tri[2]) >= len(vertices) {
			continue
		}
		v0, v1, v2 := vertices[tri[0]], vertices[tri[1]], vertices[tri[2]]

		var dp1, dp2 [3]float32
		for k := range 3 {
			dp1[k] = v1.Position[k] - v0.Position[k]
			dp2[k] = v2.Position[k] - v0.Position[k]
		}
		du1, dv1 := v1.TexCoords[0]-v0.TexCoords[0], v1.TexCoords[1]-v0.TexCoords[1]
		du2, dv2 := v2.TexCoords[0]-v0.TexCoords[0], v2.TexCoords[1]-v0.TexCoords[1]

		det := du1*dv2 - dv1*du2
		if math32.Abs(det) < 1e-12 {
			continue
		}
		r := 1 / det

		var tangent, bitangent [3]float32
		for k := range 3 {
			tangent[k] = (dp1[k]*dv2 - dp2[k]*dv1) * r
			// Flipped so normal maps read right-handed with v growing downward.
			bitangent[k] = (dp2[k]*du1 - dp1[k]*du2) * -r
		}
		for _, idx := range tri {
			for k := range 3 {
				vertices[idx].Tangent[k] += tangent[k]
				vertices[idx].Bitangent[k] += bitangent[k]
			}
			counts[idx]++
		}
	}

	for i, n := range counts {
		if n < 2 {
			continue
		}
		inv := 1 / float32(n)
		for k := range 3 {
			vertices[i].Tangent[k] *= inv
			vertices[i].Bitangent[k] *= inv
		}
	}
}
