package loader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/model"
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureAsset is a decoded image: tightly packed rows, top row first.
type TextureAsset struct {
	Name   string
	Pixels []byte
	Width  uint32
	Height uint32
	Format wgpu.TextureFormat
}

// MaterialAsset names the textures of a material. An empty texture name selects the default texture
// for that slot.
type MaterialAsset struct {
	Name    string
	Diffuse string
	Normal  string
}

// MeshAsset is a decoded textured mesh and the material it is drawn with.
type MeshAsset struct {
	Name     string
	Vertices model.TexturedVertices
	// Indices is the triangle list; nil draws the vertices in order.
	Indices   []uint32
	Material  string
	Transform model.Transform
}

// AssetBundle is everything a scene needs on the CPU side, decoded and ready for upload.
type AssetBundle struct {
	Textures  []TextureAsset
	Materials []MaterialAsset
	Meshes    []MeshAsset
	// Quads are drawn in pixel space with the orthographic camera.
	Quads []model.QuadOptions
}

// Texture returns the texture with the given name.
//
// Parameters:
//   - name: the texture name
//
// Returns:
//   - *TextureAsset: the texture
//   - bool: false if the bundle has no such texture
func (b *AssetBundle) Texture(name string) (*TextureAsset, bool) {
	for i := range b.Textures {
		if b.Textures[i].Name == name {
			return &b.Textures[i], true
		}
	}
	return nil, false
}

// Validate checks that every reference in the bundle resolves and every buffer has the size its
// metadata claims. Duplicate material names are left to the material set, which rejects them at
// upload time.
//
// Returns:
//   - error: every problem found, joined
func (b *AssetBundle) Validate() error {
	var errs []error

	textures := make(map[string]bool, len(b.Textures))
	for _, t := range b.Textures {
		if textures[t.Name] {
			errs = append(errs, fmt.Errorf("texture %q defined twice", t.Name))
		}
		textures[t.Name] = true
		want, err := common.TextureStagingData{Width: t.Width, Height: t.Height, Format: t.Format}.ByteSize()
		if err != nil {
			errs = append(errs, fmt.Errorf("texture %q: %w", t.Name, err))
		} else if len(t.Pixels) != want {
			errs = append(errs, fmt.Errorf("texture %q: %d bytes for %dx%d, want %d", t.Name, len(t.Pixels), t.Width, t.Height, want))
		}
	}

	materials := make(map[string]bool, len(b.Materials))
	for _, m := range b.Materials {
		materials[m.Name] = true
		for _, ref := range []string{m.Diffuse, m.Normal} {
			if ref != "" && !textures[ref] {
				errs = append(errs, fmt.Errorf("material %q: unknown texture %q", m.Name, ref))
			}
		}
	}

	for _, m := range b.Meshes {
		if len(m.Vertices) == 0 {
			errs = append(errs, fmt.Errorf("mesh %q: no vertices", m.Name))
		}
		if m.Material != "" && !materials[m.Material] {
			errs = append(errs, fmt.Errorf("mesh %q: unknown material %q", m.Name, m.Material))
		}
		for _, idx := range m.Indices {
			if int(idx) >= len(m.Vertices) {
				errs = append(errs, fmt.Errorf("mesh %q: index %d out of range for %d vertices", m.Name, idx, len(m.Vertices)))
				break
			}
		}
	}
	return errors.Join(errs...)
}
