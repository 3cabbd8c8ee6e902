package common

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesPerPixel(t *testing.T) {
	tests := []struct {
		format wgpu.TextureFormat
		want   int
	}{
		{wgpu.TextureFormatR8Unorm, 1},
		{wgpu.TextureFormatRG8Unorm, 2},
		{wgpu.TextureFormatRGBA8Unorm, 4},
		{wgpu.TextureFormatRGBA8UnormSrgb, 4},
		{wgpu.TextureFormatRGBA16Float, 8},
		{wgpu.TextureFormatRGBA32Float, 16},
	}
	for _, tt := range tests {
		got, err := BytesPerPixel(tt.format)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "format %v", tt.format)
	}

	_, err := BytesPerPixel(wgpu.TextureFormatUndefined)
	assert.Error(t, err)
	_, err = BytesPerPixel(wgpu.TextureFormatDepth32Float)
	assert.Error(t, err)
}

func TestTextureStagingDataByteSize(t *testing.T) {
	size, err := TextureStagingData{Width: 3, Height: 5, Format: wgpu.TextureFormatRGBA8Unorm}.ByteSize()
	require.NoError(t, err)
	assert.Equal(t, 60, size)
}

func TestSampleTypeCompatible(t *testing.T) {
	filterable := SampleType(wgpu.TextureFormatRGBA8UnormSrgb)
	unfilterable := SampleType(wgpu.TextureFormatR32Float)

	assert.True(t, SampleTypeCompatible(wgpu.TextureSampleTypeFloat, filterable))
	assert.True(t, SampleTypeCompatible(wgpu.TextureSampleTypeUnfilterableFloat, filterable))
	assert.False(t, SampleTypeCompatible(wgpu.TextureSampleTypeFloat, unfilterable))
	assert.False(t, SampleTypeCompatible(wgpu.TextureSampleTypeUint, filterable))

	assert.True(t, IsSRGB(wgpu.TextureFormatRGBA8UnormSrgb))
	assert.False(t, IsSRGB(wgpu.TextureFormatRGBA8Unorm))
}

func TestCoalesceAndClamp(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 3, 4))
	assert.Equal(t, "", Coalesce("", ""))
	assert.Equal(t, float32(1), Clamp(float32(2), 0, 1))
	assert.Equal(t, 0, Clamp(-4, 0, 10))
}
