package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type CameraState struct {
	Position    mgl32.Vec3
	Yaw         float32
	Pitch       float32
	Fov         float32 // vertical, radians
	Near        float32
	Far         float32
	Speed       float32
	Sensitivity float32
}

func NewCameraState() *CameraState {
	return &CameraState{
		Position:    mgl32.Vec3{0, 2, 8},
		Yaw:         0,
		Pitch:       -0.15,
		Fov:         mgl32.DegToRad(60),
		Near:        0.1,
		Far:         100.0,
		Speed:       5.0,
		Sensitivity: 0.003,
	}
}

// CameraData is the per-frame camera snapshot shared read-only by every pass.
type CameraData struct {
	View        mgl32.Mat4
	Proj        mgl32.Mat4
	ViewProj    mgl32.Mat4
	InvView     mgl32.Mat4
	InvProj     mgl32.Mat4
	InvViewProj mgl32.Mat4
	Position    mgl32.Vec3
	Near        float32
	Far         float32
}

func (c *CameraState) GetForward() mgl32.Vec3 {
	// Y-up: yaw rotates around Y, yaw 0 looks down -Z
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Pitch)) * math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		float32(-math.Cos(float64(c.Pitch)) * math.Cos(float64(c.Yaw))),
	}
}

func (c *CameraState) GetRight() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Yaw))),
		0,
		float32(math.Sin(float64(c.Yaw))),
	}
}

func (c *CameraState) GetViewMatrix() mgl32.Mat4 {
	eye := c.Position
	return mgl32.LookAtV(eye, eye.Add(c.GetForward()), mgl32.Vec3{0, 1, 0})
}

func (c *CameraState) GetProjectionMatrix(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1.0
	}
	return PerspectiveZO(c.Fov, aspect, c.Near, c.Far)
}

// LookAt points the camera at target by solving yaw and pitch.
func (c *CameraState) LookAt(target mgl32.Vec3) {
	d := target.Sub(c.Position)
	if d.Len() == 0 {
		return
	}
	d = d.Normalize()
	c.Pitch = float32(math.Asin(float64(mgl32.Clamp(d.Y(), -1, 1))))
	c.Yaw = float32(math.Atan2(float64(d.X()), float64(-d.Z())))
}

// Data builds the frame snapshot for a viewport with the given aspect ratio.
func (c *CameraState) Data(aspect float32) CameraData {
	view := c.GetViewMatrix()
	proj := c.GetProjectionMatrix(aspect)
	viewProj := proj.Mul4(view)
	return CameraData{
		View:        view,
		Proj:        proj,
		ViewProj:    viewProj,
		InvView:     view.Inv(),
		InvProj:     proj.Inv(),
		InvViewProj: viewProj.Inv(),
		Position:    c.Position,
		Near:        c.Near,
		Far:         c.Far,
	}
}

// Ray returns the normalized world-space direction through uv (texture space, y down).
func (d CameraData) Ray(uv mgl32.Vec2) mgl32.Vec3 {
	ndc := mgl32.Vec4{uv.X()*2 - 1, 1 - uv.Y()*2, 1, 1}
	far := d.InvViewProj.Mul4x1(ndc)
	if far.W() == 0 {
		return mgl32.Vec3{0, 0, -1}
	}
	p := far.Vec3().Mul(1 / far.W())
	return p.Sub(d.Position).Normalize()
}

// LinearDepth converts a [0,1] device depth into view-space distance along -Z.
func (d CameraData) LinearDepth(depth float32) float32 {
	n, f := d.Near, d.Far
	return n * f / (f - depth*(f-n))
}

// ExtractFrustum extracts the 6 planes of the frustum from a view-projection
// matrix with a [0,1] depth range. Planes are returned in the order
// Left, Right, Bottom, Top, Near, Far as Ax + By + Cz + D = 0, normals inside.
func ExtractFrustum(vp mgl32.Mat4) [6]mgl32.Vec4 {
	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(r, 0), vp.At(r, 1), vp.At(r, 2), vp.At(r, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes := [6]mgl32.Vec4{
		r3.Add(r0),
		r3.Sub(r0),
		r3.Add(r1),
		r3.Sub(r1),
		r2, // z >= 0
		r3.Sub(r2),
	}

	for i := 0; i < 6; i++ {
		length := planes[i].Vec3().Len()
		if length > 0 {
			planes[i] = planes[i].Mul(1.0 / length)
		}
	}
	return planes
}
