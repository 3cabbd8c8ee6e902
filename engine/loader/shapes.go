package loader

import (
	"github.com/Carmen-Shannon/oxy-gfx/engine/model"
)

// face appends one square face to a mesh. right x up must equal normal so the face winds
// counter-clockwise seen from outside.
func face(vertices model.TexturedVertices, indices []uint32, center, normal, right, up [3]float32, half float32) (model.TexturedVertices, []uint32) {
	base := uint32(len(vertices))
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	uvs := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}
	for i, c := range corners {
		var p [3]float32
		for k := range 3 {
			p[k] = center[k] + (normal[k]+c[0]*right[k]+c[1]*up[k])*half
		}
		vertices = append(vertices, model.TexturedVertex{Position: p, TexCoords: uvs[i], Normal: normal})
	}
	indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	return vertices, indices
}

// Cube returns a cube centered on the origin with one texture per face and tangents filled in.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - model.TexturedVertices: 24 vertices, four per face
//   - []uint32: 36 indices
func Cube(size float32) (model.TexturedVertices, []uint32) {
	faces := [6][3][3]float32{
		// normal, right, up
		{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
		{{0, 0, -1}, {-1, 0, 0}, {0, 1, 0}},
		{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
		{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
		{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}},
		{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
	}
	vertices := make(model.TexturedVertices, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range faces {
		vertices, indices = face(vertices, indices, [3]float32{}, f[0], f[1], f[2], size/2)
	}
	model.ComputeTangents(vertices, indices)
	return vertices, indices
}

// Plane returns a square in the XZ plane facing +Y, centered on the origin.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - model.TexturedVertices: 4 vertices
//   - []uint32: 6 indices
func Plane(size float32) (model.TexturedVertices, []uint32) {
	half := size / 2
	// face offsets the square along its normal; start half a unit below so it lands on y = 0
	vertices, indices := face(nil, nil, [3]float32{0, -half, 0}, [3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}, half)
	model.ComputeTangents(vertices, indices)
	return vertices, indices
}
