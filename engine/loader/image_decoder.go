package loader

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/cogentcore/webgpu/wgpu"
)

// decodeTexture opens an image file and converts it to tightly packed, non-premultiplied RGBA8.
// png, jpeg, bmp, tiff and webp are supported.
//
// Parameters:
//   - fsys: the filesystem holding the image
//   - entry: the texture entry
//
// Returns:
//   - TextureAsset: the decoded texture
//   - error: error if the file cannot be read or decoded
func decodeTexture(fsys fs.FS, entry TextureEntry) (TextureAsset, error) {
	f, err := fsys.Open(entry.Path)
	if err != nil {
		return TextureAsset{}, fmt.Errorf("texture %q: %w", entry.Name, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return TextureAsset{}, fmt.Errorf("texture %q: decode %s: %w", entry.Name, entry.Path, err)
	}

	rgba := toNRGBA(img, entry.MaxSize)
	out := TextureAsset{
		Name:   entry.Name,
		Pixels: rgba.Pix,
		Width:  uint32(rgba.Rect.Dx()),
		Height: uint32(rgba.Rect.Dy()),
		Format: wgpu.TextureFormatRGBA8Unorm,
	}
	if entry.SRGB {
		out.Format = wgpu.TextureFormatRGBA8UnormSrgb
	}
	slog.Debug("[Loader] texture decoded", "name", entry.Name, "format", format, "width", out.Width, "height", out.Height)
	return out, nil
}

// toNRGBA converts any image to an NRGBA image whose Pix has no row padding, scaling it down so
// that neither side exceeds maxSize when maxSize is positive.
func toNRGBA(img image.Image, maxSize int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize > 0 && (w > maxSize || h > maxSize) {
		if w >= h {
			w, h = maxSize, max(1, h*maxSize/w)
		} else {
			w, h = max(1, w*maxSize/h), maxSize
		}
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		return dst
	}

	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*w {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
