package camera

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/chewxy/math32"
)

// Projection selects how a camera maps view space to clip space.
type Projection int

const (
	// ProjectionPerspective is a right-handed perspective projection driven by position, yaw and pitch.
	ProjectionPerspective Projection = iota
	// ProjectionOrthographic is a pixel-space projection with the origin in the top-left corner.
	ProjectionOrthographic
)

func (p Projection) String() string {
	if p == ProjectionOrthographic {
		return "orthographic"
	}
	return "perspective"
}

// SafeFracPi2 is the largest pitch magnitude a camera accepts. Looking straight up or down would make
// the view direction parallel to the up vector.
const SafeFracPi2 float32 = math32.Pi/2 - 0.0001

// Defaults of a perspective camera.
var (
	DefaultPosition         = [3]float32{0, 5, 10}
	DefaultYaw      float32 = -90 * math32.Pi / 180
	DefaultPitch    float32 = -20 * math32.Pi / 180
	DefaultFovY     float32 = 45 * math32.Pi / 180
)

// Depth range of the defaults.
const (
	DefaultNear      float32 = 0.1
	DefaultFar       float32 = 100
	DefaultOrthoNear float32 = -10
	DefaultOrthoFar  float32 = 100
)

type cameraImpl struct {
	mu *sync.Mutex

	projection Projection
	up         [3]float32
	position   [3]float32
	yaw        float32
	pitch      float32

	fov    float32
	near   float32
	far    float32
	width  float32
	height float32

	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32

	controller CameraController
}

// Camera holds a projection and a pose and computes the matrices uploaded in the camera uniform.
// Every setter recomputes the matrices, so the getters are always current.
type Camera interface {
	// Projection returns whether the camera is perspective or orthographic.
	Projection() Projection

	// Position returns the camera's world-space position.
	Position() [3]float32

	// SetPosition moves the camera.
	//
	// Parameters:
	//   - position: the new world-space position
	SetPosition(position [3]float32)

	// Yaw returns the rotation around the up axis in radians. A yaw of -π/2 looks down -Z.
	Yaw() float32

	// Pitch returns the rotation above the horizon in radians.
	Pitch() float32

	// SetOrientation sets yaw and pitch in radians. Pitch is clamped to ±SafeFracPi2.
	//
	// Parameters:
	//   - yaw: rotation around the up axis
	//   - pitch: rotation above the horizon
	SetOrientation(yaw, pitch float32)

	// Forward returns the unit view direction derived from yaw and pitch.
	//
	// Returns:
	//   - [3]float32: the view direction
	Forward() [3]float32

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// Aspect returns the viewport aspect ratio (width / height).
	Aspect() float32

	// Resize updates the viewport size. A zero width or height is ignored.
	//
	// Parameters:
	//   - width: the viewport width in pixels
	//   - height: the viewport height in pixels
	Resize(width, height int)

	// ViewMatrix returns the current 4x4 view matrix (column-major).
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current 4x4 projection matrix (column-major).
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns projection * view (column-major).
	ViewProjectionMatrix() [16]float32

	// Uniform returns the value uploaded to the "camera" bind group.
	//
	// Returns:
	//   - Uniform: the view position and view-projection matrix
	Uniform() Uniform

	// Controller returns the attached CameraController, or nil.
	Controller() CameraController

	// Update applies the attached controller's accumulated input for a frame of length dt. It does
	// nothing without a controller.
	//
	// Parameters:
	//   - dt: the time since the previous update
	Update(dt time.Duration)
}

var _ Camera = &cameraImpl{}

// NewPerspectiveCamera creates a perspective camera for a viewport, positioned at (0, 5, 10) and
// looking down -Z, tilted 20 degrees towards the ground.
//
// Parameters:
//   - width: the viewport width in pixels
//   - height: the viewport height in pixels
//   - options: variadic list of CameraBuilderOption functions
//
// Returns:
//   - Camera: the camera
func NewPerspectiveCamera(width, height int, options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:         &sync.Mutex{},
		projection: ProjectionPerspective,
		up:         [3]float32{0, 1, 0},
		position:   DefaultPosition,
		yaw:        DefaultYaw,
		pitch:      DefaultPitch,
		fov:        DefaultFovY,
		near:       DefaultNear,
		far:        DefaultFar,
	}
	return c.init(width, height, options)
}

// NewOrthographicCamera creates a 2D camera in pixel space: x grows to the right, y grows downward
// and (0, 0) is the top-left corner of the viewport.
//
// Parameters:
//   - width: the viewport width in pixels
//   - height: the viewport height in pixels
//   - options: variadic list of CameraBuilderOption functions
//
// Returns:
//   - Camera: the camera
func NewOrthographicCamera(width, height int, options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:         &sync.Mutex{},
		projection: ProjectionOrthographic,
		up:         [3]float32{0, 1, 0},
		yaw:        DefaultYaw,
		near:       DefaultOrthoNear,
		far:        DefaultOrthoFar,
	}
	return c.init(width, height, options)
}

func (c *cameraImpl) init(width, height int, options []CameraBuilderOption) Camera {
	c.width = float32(max(width, 1))
	c.height = float32(max(height, 1))
	for _, opt := range options {
		opt(c)
	}
	c.pitch = common.Clamp(c.pitch, -SafeFracPi2, SafeFracPi2)
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Projection() Projection {
	return c.projection
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) SetPosition(position [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = position
	c.updateMatrices()
}

func (c *cameraImpl) Yaw() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.yaw
}

func (c *cameraImpl) Pitch() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pitch
}

func (c *cameraImpl) SetOrientation(yaw, pitch float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.yaw = yaw
	c.pitch = common.Clamp(pitch, -SafeFracPi2, SafeFracPi2)
	c.updateMatrices()
}

func (c *cameraImpl) Forward() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forward()
}

func (c *cameraImpl) forward() [3]float32 {
	sy, cy := math32.Sincos(c.yaw)
	sp, cp := math32.Sincos(c.pitch)
	return common.Normalize3([3]float32{cp * cy, sp, cp * sy})
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width / c.height
}

func (c *cameraImpl) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = float32(width), float32(height)
	c.updateMatrices()
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Uniform() Uniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Uniform{
		ViewPosition: [4]float32{c.position[0], c.position[1], c.position[2], 1},
		ViewProj:     c.viewProjectionMatrix,
	}
}

func (c *cameraImpl) Controller() CameraController {
	return c.controller
}

func (c *cameraImpl) Update(dt time.Duration) {
	if c.controller == nil {
		return
	}
	c.controller.Apply(c, dt)
}

// updateMatrices recomputes view, projection and view-projection. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	switch c.projection {
	case ProjectionOrthographic:
		common.Translation(c.viewMatrix[:], c.position[0], c.position[1], c.position[2])
		common.Orthographic(c.projectionMatrix[:], 0, c.width, c.height, 0, c.near, c.far)
	default:
		common.LookTo(c.viewMatrix[:], c.position, c.forward(), c.up)
		common.Perspective(c.projectionMatrix[:], c.fov, c.width/c.height, c.near, c.far)
	}
	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
}
