package app

import (
	"testing"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestApplyCameraInputMove(t *testing.T) {
	cam := core.NewCameraState()
	cam.Position = mgl32.Vec3{}
	cam.Pitch = 0
	cam.Speed = 2

	ApplyCameraInput(cam, CameraInput{Move: mgl32.Vec3{0, 0, 1}}, 0.5)
	assert.InDelta(t, 0, cam.Position[0], 1e-5)
	assert.InDelta(t, -1, cam.Position[2], 1e-5, "yaw 0 looks down -Z")

	ApplyCameraInput(cam, CameraInput{Move: mgl32.Vec3{1, 0, 0}}, 0.5)
	assert.InDelta(t, 1, cam.Position[0], 1e-5)

	ApplyCameraInput(cam, CameraInput{Move: mgl32.Vec3{0, 1, 0}}, 1)
	assert.InDelta(t, 2, cam.Position[1], 1e-5)

	// diagonal input is normalized
	cam.Position = mgl32.Vec3{}
	ApplyCameraInput(cam, CameraInput{Move: mgl32.Vec3{1, 0, 1}}, 1)
	assert.InDelta(t, 2, cam.Position.Len(), 1e-5)
}

func TestApplyCameraInputLook(t *testing.T) {
	cam := core.NewCameraState()
	cam.Pitch = 0
	cam.Sensitivity = 0.01

	ApplyCameraInput(cam, CameraInput{Look: mgl32.Vec2{10, 0}}, 0.016)
	assert.InDelta(t, 0.1, cam.Yaw, 1e-6)

	ApplyCameraInput(cam, CameraInput{Look: mgl32.Vec2{0, -1e6}}, 0.016)
	assert.InDelta(t, maxPitch, cam.Pitch, 1e-6, "pitch is clamped short of straight up")

	before := *cam
	ApplyCameraInput(cam, CameraInput{Move: mgl32.Vec3{1, 1, 1}, Look: mgl32.Vec2{5, 5}}, 0)
	assert.Equal(t, before, *cam, "no time, no change")
}
