package common

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
)

// Transform composition is fixed across the engine:
//
//	clip = Projection * View * Model * position
//
// All matrices are column-major 4x4 (WebGPU/WGSL convention) and vectors are column vectors.
// The camera uploads the premultiplied Projection*View product and each drawable uploads its Model
// matrix; shaders apply them as `camera.view_proj * model.transform * vec4(position, 1.0)`.

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// IdentityMatrix returns a new 4x4 identity matrix.
//
// Returns:
//   - [16]float32: the identity matrix in column-major order
func IdentityMatrix() [16]float32 {
	var m [16]float32
	Identity(m[:])
	return m
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order (OpenGL/WebGPU convention).
// Result: out = a * b, so b is applied to a vector first.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements, may alias a or b)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			buf[col*4+row] = sum
		}
	}
	copy(out, buf[:])
}

// ComposeMVP builds the full clip-space transform Projection * View * Model.
// This is the only composition order used by the engine; see the package comment above.
//
// Parameters:
//   - projection: the projection matrix
//   - view: the view matrix
//   - model: the model matrix
//
// Returns:
//   - [16]float32: the combined matrix
func ComposeMVP(projection, view, model [16]float32) [16]float32 {
	var vp, mvp [16]float32
	Mul4(vp[:], projection[:], view[:])
	Mul4(mvp[:], vp[:], model[:])
	return mvp
}

// TransformPoint applies a column-major 4x4 matrix to the point (x, y, z, 1) and returns the
// homogeneous result.
//
// Parameters:
//   - m: the matrix to apply
//   - x, y, z: the point
//
// Returns:
//   - [4]float32: the transformed homogeneous point
func TransformPoint(m [16]float32, x, y, z float32) [4]float32 {
	return [4]float32{
		m[0]*x + m[4]*y + m[8]*z + m[12],
		m[1]*x + m[5]*y + m[9]*z + m[13],
		m[2]*x + m[6]*y + m[10]*z + m[14],
		m[3]*x + m[7]*y + m[11]*z + m[15],
	}
}

// Perspective creates a right-handed perspective projection matrix that maps view-space depth
// [-near, -far] onto the WebGPU clip depth range [0, 1].
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func Perspective(out []float32, fovY, aspect, near, far float32) {
	f := 1.0 / math32.Tan(fovY/2.0)
	Identity(out)

	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	out[15] = 0.0
}

// Orthographic creates a right-handed orthographic projection matrix with the WebGPU clip depth
// range [0, 1]. Passing top < bottom flips the Y axis, which is how pixel-space 2D cameras place
// the origin in the top-left corner.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - left, right: horizontal extents of the view volume
//   - bottom, top: vertical extents of the view volume
//   - near, far: depth extents of the view volume
func Orthographic(out []float32, left, right, bottom, top, near, far float32) {
	Identity(out)

	out[0] = 2.0 / (right - left)
	out[5] = 2.0 / (top - bottom)
	out[10] = 1.0 / (near - far)
	out[12] = -(right + left) / (right - left)
	out[13] = -(top + bottom) / (top - bottom)
	out[14] = near / (near - far)
}

// Translation writes a translation matrix into out.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - x, y, z: translation in world units
func Translation(out []float32, x, y, z float32) {
	Identity(out)
	out[12], out[13], out[14] = x, y, z
}

// BuildModelMatrix constructs a 4x4 model matrix from position, Euler rotation, and scale.
// The rotation order is Y * X * Z (yaw-pitch-roll). All matrices are column-major.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - pos: translation in world space
//   - rot: rotation angles in radians around the X, Y and Z axes
//   - scale: scale factors along each axis
func BuildModelMatrix(out []float32, pos, rot, scale [3]float32) {
	sx, cx := math32.Sincos(rot[0])
	sy, cy := math32.Sincos(rot[1])
	sz, cz := math32.Sincos(rot[2])

	out[0] = (cy*cz + sy*sx*sz) * scale[0]
	out[1] = (cx * sz) * scale[0]
	out[2] = (-sy*cz + cy*sx*sz) * scale[0]
	out[3] = 0

	out[4] = (cy*-sz + sy*sx*cz) * scale[1]
	out[5] = (cx * cz) * scale[1]
	out[6] = (sy*sz + cy*sx*cz) * scale[1]
	out[7] = 0

	out[8] = (sy * cx) * scale[2]
	out[9] = (-sx) * scale[2]
	out[10] = (cy * cx) * scale[2]
	out[11] = 0

	out[12] = pos[0]
	out[13] = pos[1]
	out[14] = pos[2]
	out[15] = 1
}

// LookTo creates a right-handed view matrix for a camera at eye looking along dir.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - eye: camera position in world space
//   - dir: view direction (need not be normalized, must be non-zero)
//   - up: up vector (typically 0,1,0)
func LookTo(out []float32, eye, dir, up [3]float32) {
	f := Normalize3(dir)
	s := Normalize3(Cross3(f, up))
	u := Cross3(s, f)

	out[0], out[4], out[8], out[12] = s[0], s[1], s[2], -Dot3(s, eye)
	out[1], out[5], out[9], out[13] = u[0], u[1], u[2], -Dot3(u, eye)
	out[2], out[6], out[10], out[14] = -f[0], -f[1], -f[2], Dot3(f, eye)
	out[3], out[7], out[11], out[15] = 0, 0, 0, 1
}

// LookAt creates a right-handed view matrix for a camera at eye looking at center.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - eye: camera position in world space
//   - center: target point the camera looks at
//   - up: up vector (typically 0,1,0)
func LookAt(out []float32, eye, center, up [3]float32) {
	LookTo(out, eye, Sub3(center, eye), up)
}

// Sub3 returns a - b.
func Sub3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Dot3 returns the dot product of a and b.
func Dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Cross3 returns the cross product a x b.
func Cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Normalize3 returns v scaled to unit length. A zero vector is returned unchanged.
func Normalize3(v [3]float32) [3]float32 {
	l := math32.Sqrt(Dot3(v, v))
	if l == 0 {
		return v
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}

// PutFloat32s writes values into dst as little-endian IEEE-754 floats, starting at byte offset off.
// This is the encoding every uniform and vertex struct uses before GPU upload.
//
// Parameters:
//   - dst: destination buffer (must hold off + 4*len(values) bytes)
//   - off: starting byte offset
//   - values: the floats to encode
//
// Returns:
//   - int: the byte offset just past the last written value
func PutFloat32s(dst []byte, off int, values ...float32) int {
	for _, v := range values {
		binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(v))
		off += 4
	}
	return off
}

// Float32sToBytes encodes a float slice as little-endian bytes in a freshly allocated buffer.
//
// Parameters:
//   - values: the floats to encode
//
// Returns:
//   - []byte: the encoded bytes, or nil if values is empty
func Float32sToBytes(values []float32) []byte {
	if len(values) == 0 {
		return nil
	}
	buf := make([]byte, len(values)*4)
	PutFloat32s(buf, 0, values...)
	return buf
}

// Uint32sToBytes encodes a uint32 slice as little-endian bytes, the index format used by every
// backend.
//
// Parameters:
//   - values: the indices to encode
//
// Returns:
//   - []byte: the encoded bytes, or nil if values is empty
func Uint32sToBytes(values []uint32) []byte {
	if len(values) == 0 {
		return nil
	}
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}
