package camera

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-gfx/common"
)

// Uniform is the GPU-aligned representation of the camera uniform buffer.
// Matches the WGSL CameraUniform struct (include/camera.wgsl): 80 bytes.
type Uniform struct {
	ViewPosition [4]float32  // offset  0: world-space camera position, w = 1 (vec4<f32>)
	ViewProj     [16]float32 // offset 16: combined projection * view matrix (mat4x4<f32>)
}

// Size returns the size of the Uniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (u Uniform) Size() int {
	return int(unsafe.Sizeof(u))
}

// Marshal serializes the Uniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (u Uniform) Marshal() []byte {
	buf := make([]byte, u.Size())
	off := common.PutFloat32s(buf, 0, u.ViewPosition[:]...)
	common.PutFloat32s(buf, off, u.ViewProj[:]...)
	return buf
}
