// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds decoded pixel data for a texture pending GPU upload.
// The uploader validates Pixels against Width, Height and Format before anything is allocated on the device.
type TextureStagingData struct {
	// Label is a debug label forwarded to the backend.
	Label string
	// Pixels is the tightly packed pixel data, row-major, top row first.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
	// Format is the pixel format of Pixels. The zero value (wgpu.TextureFormatUndefined) is rejected.
	Format wgpu.TextureFormat
}

// ByteSize returns the number of bytes Pixels must hold for the staged dimensions and format.
//
// Returns:
//   - int: the expected pixel buffer length
//   - error: an error if the format is not a supported sampled color format
func (t TextureStagingData) ByteSize() (int, error) {
	bpp, err := BytesPerPixel(t.Format)
	if err != nil {
		return 0, err
	}
	return int(t.Width) * int(t.Height) * bpp, nil
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// Zero values fall back to linear filtering with repeat addressing when the sampler is created.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// formatInfo describes the properties of a sampled color format that the uploader and the bind
// group validation care about.
type formatInfo struct {
	bytesPerPixel int
	sampleType    wgpu.TextureSampleType
	srgb          bool
}

// sampledFormats lists every format the uploader accepts for sampled textures.
var sampledFormats = map[wgpu.TextureFormat]formatInfo{
	wgpu.TextureFormatR8Unorm:         {1, wgpu.TextureSampleTypeFloat, false},
	wgpu.TextureFormatRG8Unorm:        {2, wgpu.TextureSampleTypeFloat, false},
	wgpu.TextureFormatRGBA8Unorm:      {4, wgpu.TextureSampleTypeFloat, false},
	wgpu.TextureFormatRGBA8UnormSrgb:  {4, wgpu.TextureSampleTypeFloat, true},
	wgpu.TextureFormatBGRA8Unorm:      {4, wgpu.TextureSampleTypeFloat, false},
	wgpu.TextureFormatBGRA8UnormSrgb:  {4, wgpu.TextureSampleTypeFloat, true},
	wgpu.TextureFormatRGBA8Uint:       {4, wgpu.TextureSampleTypeUint, false},
	wgpu.TextureFormatRGBA8Sint:       {4, wgpu.TextureSampleTypeSint, false},
	wgpu.TextureFormatR32Float:        {4, wgpu.TextureSampleTypeUnfilterableFloat, false},
	wgpu.TextureFormatRG32Float:       {8, wgpu.TextureSampleTypeUnfilterableFloat, false},
	wgpu.TextureFormatRGBA16Float:     {8, wgpu.TextureSampleTypeFloat, false},
	wgpu.TextureFormatRGBA32Float:     {16, wgpu.TextureSampleTypeUnfilterableFloat, false},
	wgpu.TextureFormatRGBA32Uint:      {16, wgpu.TextureSampleTypeUint, false},
}

// BytesPerPixel returns the texel size of a sampled color format.
//
// Parameters:
//   - format: the texture format
//
// Returns:
//   - int: bytes per pixel
//   - error: an error if the format is not supported for sampled textures
func BytesPerPixel(format wgpu.TextureFormat) (int, error) {
	info, ok := sampledFormats[format]
	if !ok {
		return 0, fmt.Errorf("unsupported texture format %v", format)
	}
	return info.bytesPerPixel, nil
}

// SampleType returns the shader sample type a texture of the given format binds as.
// Unknown formats report wgpu.TextureSampleTypeUndefined.
//
// Parameters:
//   - format: the texture format
//
// Returns:
//   - wgpu.TextureSampleType: the sample type for bind group layout matching
func SampleType(format wgpu.TextureFormat) wgpu.TextureSampleType {
	return sampledFormats[format].sampleType
}

// IsSRGB reports whether the format stores sRGB-encoded color.
//
// Parameters:
//   - format: the texture format
//
// Returns:
//   - bool: true for *UnormSrgb formats
func IsSRGB(format wgpu.TextureFormat) bool {
	return sampledFormats[format].srgb
}

// SampleTypeCompatible reports whether a texture that samples as have can be bound to a layout entry
// expecting want. Filterable float textures may be bound where unfilterable float is expected, the
// reverse is not allowed.
//
// Parameters:
//   - want: the sample type declared by the layout entry
//   - have: the sample type of the texture format
//
// Returns:
//   - bool: true if the binding is valid
func SampleTypeCompatible(want, have wgpu.TextureSampleType) bool {
	if want == have {
		return true
	}
	return want == wgpu.TextureSampleTypeUnfilterableFloat && have == wgpu.TextureSampleTypeFloat
}
