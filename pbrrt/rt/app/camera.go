package app

import (
	"math"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

const maxPitch = math.Pi/2 - 0.01

// CameraInput is one frame of fly-camera input: Move in camera space
// (x right, y up, z forward) and Look in cursor pixels.
type CameraInput struct {
	Move mgl32.Vec3
	Look mgl32.Vec2
}

// ApplyCameraInput moves and rotates cam for a frame of length dt seconds.
func ApplyCameraInput(cam *core.CameraState, in CameraInput, dt float32) {
	if dt <= 0 {
		return
	}
	cam.Yaw += in.Look[0] * cam.Sensitivity
	cam.Pitch -= in.Look[1] * cam.Sensitivity
	cam.Pitch = mgl32.Clamp(cam.Pitch, -maxPitch, maxPitch)

	if in.Move.Len() == 0 {
		return
	}
	move := in.Move.Normalize()
	delta := cam.GetForward().Mul(move[2]).
		Add(cam.GetRight().Mul(move[0])).
		Add(mgl32.Vec3{0, 1, 0}.Mul(move[1]))
	cam.Position = cam.Position.Add(delta.Mul(cam.Speed * dt))
}
