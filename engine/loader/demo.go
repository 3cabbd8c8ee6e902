package loader

import (
	"github.com/Carmen-Shannon/oxy-gfx/engine/model"
	"github.com/cogentcore/webgpu/wgpu"
)

// DemoBundle returns a small scene that needs no files: a 2x2 checker texture, one material using it
// with the default normal map, a textured plane and the default quad.
//
// Returns:
//   - *AssetBundle: the bundle
func DemoBundle() *AssetBundle {
	plane, indices := Plane(4)
	return &AssetBundle{
		Textures: []TextureAsset{{
			Name: "checker",
			Pixels: []byte{
				255, 255, 255, 255, 40, 40, 40, 255,
				40, 40, 40, 255, 255, 255, 255, 255,
			},
			Width:  2,
			Height: 2,
			Format: wgpu.TextureFormatRGBA8UnormSrgb,
		}},
		Materials: []MaterialAsset{{Name: "checker", Diffuse: "checker"}},
		Meshes: []MeshAsset{{
			Name:      "floor",
			Vertices:  plane,
			Indices:   indices,
			Material:  "checker",
			Transform: model.IdentityTransform(),
		}},
		Quads: []model.QuadOptions{model.DefaultQuadOptions()},
	}
}
