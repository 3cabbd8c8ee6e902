package camera

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/chewxy/math32"
)

// Direction is one movement axis of a CameraController.
type Direction int

const (
	MoveForward Direction = iota
	MoveBackward
	MoveLeft
	MoveRight
	MoveUp
	MoveDown
	directionCount
)

// Defaults of a CameraController.
const (
	DefaultSpeed       float32 = 4.0
	DefaultSensitivity float32 = 0.4
)

type cameraControllerImpl struct {
	mu *sync.Mutex

	speed       float32
	sensitivity float32

	amounts          [directionCount]float32
	rotateHorizontal float32
	rotateVertical   float32
	scroll           float32
}

// CameraController accumulates fly-camera input between frames and applies it to a Camera once per
// frame. It does not read input devices itself; the window forwards key, mouse and scroll events.
type CameraController interface {
	// Press records whether a movement key is held.
	//
	// Parameters:
	//   - dir: the movement direction the key maps to
	//   - pressed: true while the key is held
	Press(dir Direction, pressed bool)

	// Rotate records a mouse movement. It is consumed by the next Apply.
	//
	// Parameters:
	//   - dx: horizontal movement in pixels
	//   - dy: vertical movement in pixels, positive downward
	Rotate(dx, dy float32)

	// Scroll records a scroll movement in pixels. It is consumed by the next Apply.
	//
	// Parameters:
	//   - delta: scroll amount, positive moves along the view direction
	Scroll(delta float32)

	// Speed returns the movement speed in world units per second.
	Speed() float32

	// Sensitivity returns the rotation and scroll multiplier.
	Sensitivity() float32

	// Apply moves and rotates a camera by the accumulated input for a frame of length dt. Mouse and
	// scroll input is reset afterwards; held keys stay held.
	//
	// Parameters:
	//   - cam: the camera to update
	//   - dt: the frame time
	Apply(cam Camera, dt time.Duration)
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a fly-camera controller.
//
// Parameters:
//   - options: variadic list of CameraControllerOption functions
//
// Returns:
//   - CameraController: the controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:          &sync.Mutex{},
		speed:       DefaultSpeed,
		sensitivity: DefaultSensitivity,
	}
	for _, opt := range options {
		opt(cc)
	}
	return cc
}

func (cc *cameraControllerImpl) Press(dir Direction, pressed bool) {
	if dir < 0 || dir >= directionCount {
		return
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if pressed {
		cc.amounts[dir] = 1
	} else {
		cc.amounts[dir] = 0
	}
}

func (cc *cameraControllerImpl) Rotate(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.rotateHorizontal += dx
	cc.rotateVertical += dy
}

func (cc *cameraControllerImpl) Scroll(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.scroll += delta
}

func (cc *cameraControllerImpl) Speed() float32 {
	return cc.speed
}

func (cc *cameraControllerImpl) Sensitivity() float32 {
	return cc.sensitivity
}

func (cc *cameraControllerImpl) Apply(cam Camera, dt time.Duration) {
	cc.mu.Lock()
	a := cc.amounts
	rh, rv, scroll := cc.rotateHorizontal, cc.rotateVertical, cc.scroll
	cc.rotateHorizontal, cc.rotateVertical, cc.scroll = 0, 0, 0
	cc.mu.Unlock()

	secs := float32(dt.Seconds())
	yaw, pitch := cam.Yaw(), cam.Pitch()
	sy, cy := math32.Sincos(yaw)
	sp, cp := math32.Sincos(pitch)

	// Walking stays on the ground plane, scrolling follows the view direction.
	forward := common.Normalize3([3]float32{cy, 0, sy})
	right := common.Normalize3([3]float32{-sy, 0, cy})
	look := common.Normalize3([3]float32{cp * cy, sp, cp * sy})

	walk := (a[MoveForward] - a[MoveBackward]) * cc.speed * secs
	strafe := (a[MoveRight] - a[MoveLeft]) * cc.speed * secs
	zoom := scroll * cc.speed * cc.sensitivity * secs

	pos := cam.Position()
	for i := range pos {
		pos[i] += forward[i]*walk + right[i]*strafe + look[i]*zoom
	}
	pos[1] += (a[MoveUp] - a[MoveDown]) * cc.speed * secs

	cam.SetPosition(pos)
	cam.SetOrientation(yaw+rh*cc.sensitivity*secs, pitch-rv*cc.sensitivity*secs)
}
