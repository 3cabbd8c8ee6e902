package camera

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toNDC(m [16]float32, p [3]float32) [3]float32 {
	clip := common.TransformPoint(m, p[0], p[1], p[2])
	return [3]float32{clip[0] / clip[3], clip[1] / clip[3], clip[2] / clip[3]}
}

func TestUniformLayout(t *testing.T) {
	cam := NewPerspectiveCamera(800, 600)
	u := cam.Uniform()
	data := u.Marshal()
	require.Len(t, data, 80)
	assert.Equal(t, 80, u.Size())

	assert.Equal(t, common.Float32sToBytes([]float32{0, 5, 10, 1}), data[:16])
	vp := cam.ViewProjectionMatrix()
	assert.Equal(t, common.Float32sToBytes(vp[:]), data[16:])
}

func TestViewProjectionIsProjectionTimesView(t *testing.T) {
	cam := NewPerspectiveCamera(800, 600)
	view, proj := cam.ViewMatrix(), cam.ProjectionMatrix()

	var want [16]float32
	common.Mul4(want[:], proj[:], view[:])
	assert.Equal(t, want, cam.ViewProjectionMatrix())
}

func TestPerspectiveDefaults(t *testing.T) {
	cam := NewPerspectiveCamera(800, 600)
	assert.Equal(t, ProjectionPerspective, cam.Projection())
	assert.Equal(t, [3]float32{0, 5, 10}, cam.Position())
	assert.InDelta(t, 800.0/600.0, cam.Aspect(), 1e-6)
	assert.InDelta(t, math32.Pi/4, cam.Fov(), 1e-6)
	assert.Equal(t, float32(0.1), cam.Near())
	assert.Equal(t, float32(100), cam.Far())

	// Yaw -90 and pitch -20 look down -Z and slightly towards the ground.
	f := cam.Forward()
	assert.InDelta(t, 0, f[0], 1e-5)
	assert.InDelta(t, -math32.Sin(20*math32.Pi/180), f[1], 1e-5)
	assert.InDelta(t, -math32.Cos(20*math32.Pi/180), f[2], 1e-5)
}

func TestPerspectiveCentersTheViewDirection(t *testing.T) {
	cam := NewPerspectiveCamera(800, 600)
	eye, f := cam.Position(), cam.Forward()
	ahead := [3]float32{eye[0] + 10*f[0], eye[1] + 10*f[1], eye[2] + 10*f[2]}

	ndc := toNDC(cam.ViewProjectionMatrix(), ahead)
	assert.InDelta(t, 0, ndc[0], 1e-4)
	assert.InDelta(t, 0, ndc[1], 1e-4)
	assert.Greater(t, ndc[2], float32(0))
	assert.Less(t, ndc[2], float32(1))

	behind := [3]float32{eye[0] - f[0], eye[1] - f[1], eye[2] - f[2]}
	clip := common.TransformPoint(cam.ViewProjectionMatrix(), behind[0], behind[1], behind[2])
	assert.Less(t, clip[3], float32(0), "points behind the camera have negative w")
}

func TestOrthographicIsPixelSpace(t *testing.T) {
	cam := NewOrthographicCamera(800, 600)
	assert.Equal(t, ProjectionOrthographic, cam.Projection())
	vp := cam.ViewProjectionMatrix()

	topLeft := toNDC(vp, [3]float32{0, 0, 0})
	assert.InDelta(t, -1, topLeft[0], 1e-6)
	assert.InDelta(t, 1, topLeft[1], 1e-6)
	assert.GreaterOrEqual(t, topLeft[2], float32(0))
	assert.LessOrEqual(t, topLeft[2], float32(1))

	bottomRight := toNDC(vp, [3]float32{800, 600, 0})
	assert.InDelta(t, 1, bottomRight[0], 1e-6)
	assert.InDelta(t, -1, bottomRight[1], 1e-6)

	cam.Resize(400, 300)
	center := toNDC(cam.ViewProjectionMatrix(), [3]float32{200, 150, 0})
	assert.InDelta(t, 0, center[0], 1e-6)
	assert.InDelta(t, 0, center[1], 1e-6)
}

func TestResizeIgnoresZeroDimensions(t *testing.T) {
	cam := NewPerspectiveCamera(800, 600)
	before := cam.ViewProjectionMatrix()

	cam.Resize(0, 600)
	cam.Resize(800, 0)
	assert.Equal(t, before, cam.ViewProjectionMatrix())

	cam.Resize(600, 600)
	assert.InDelta(t, 1, cam.Aspect(), 1e-6)
}

func TestPitchIsClamped(t *testing.T) {
	cam := NewPerspectiveCamera(800, 600, WithOrientation(0, 4))
	assert.Equal(t, SafeFracPi2, cam.Pitch())

	cam.SetOrientation(1, -4)
	assert.Equal(t, float32(1), cam.Yaw())
	assert.Equal(t, -SafeFracPi2, cam.Pitch())
}

func TestControllerMovesAndRotates(t *testing.T) {
	ctrl := NewCameraController()
	cam := NewPerspectiveCamera(800, 600, WithPosition(0, 0, 0), WithOrientation(DefaultYaw, 0), WithController(ctrl))
	require.Same(t, ctrl, cam.Controller())

	ctrl.Press(MoveForward, true)
	cam.Update(time.Second)
	pos := cam.Position()
	assert.InDelta(t, 0, pos[0], 1e-4)
	assert.InDelta(t, 0, pos[1], 1e-4)
	assert.InDelta(t, -DefaultSpeed, pos[2], 1e-4)

	ctrl.Press(MoveForward, false)
	ctrl.Press(MoveUp, true)
	ctrl.Rotate(1, 0)
	cam.Update(500 * time.Millisecond)
	pos = cam.Position()
	assert.InDelta(t, DefaultSpeed/2, pos[1], 1e-4)
	assert.InDelta(t, DefaultYaw+DefaultSensitivity/2, cam.Yaw(), 1e-5)

	// Mouse input is consumed, held keys are not.
	ctrl.Press(MoveUp, false)
	yaw := cam.Yaw()
	cam.Update(time.Second)
	assert.Equal(t, yaw, cam.Yaw())
	assert.Equal(t, pos, cam.Position())
}

func TestUpdateWithoutController(t *testing.T) {
	cam := NewPerspectiveCamera(800, 600)
	before := cam.Uniform()
	cam.Update(time.Second)
	assert.Equal(t, before, cam.Uniform())
}
