package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// LightKind is the integer tag written into the GPU light layout.
type LightKind uint32

const (
	LightKindPoint       LightKind = 1
	LightKindDirectional LightKind = 2
)

func (k LightKind) String() string {
	switch k {
	case LightKindPoint:
		return "point"
	case LightKindDirectional:
		return "directional"
	}
	return "unknown"
}

const (
	NearPlane                = 0.1
	PointLightFarPlane       = 100.0
	DirectionalLightFarPlane = 250.0

	// DirectionalLightDistance is how far back along the light direction the
	// shadow camera sits, looking at the world origin.
	DirectionalLightDistance = 25.0
	// DirectionalLightHalfExtent is half the side of the orthographic shadow box.
	DirectionalLightHalfExtent = 10.0
)

// Light is implemented by *PointLight and *DirectionalLight only.
type Light interface {
	Kind() LightKind
	LightColor() mgl32.Vec3
	isLight()
}

type PointLight struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3 // linear RGB, unscaled
	FarPlane float32
}

func NewPointLight(position, color mgl32.Vec3) *PointLight {
	return &PointLight{Position: position, Color: color, FarPlane: PointLightFarPlane}
}

func (l *PointLight) Kind() LightKind        { return LightKindPoint }
func (l *PointLight) LightColor() mgl32.Vec3 { return l.Color }
func (l *PointLight) isLight()               {}

func (l *PointLight) Far() float32 {
	if l.FarPlane <= NearPlane {
		return PointLightFarPlane
	}
	return l.FarPlane
}

// cubeFaces lists forward and up vectors in cube-map layer order +X, -X, +Y, -Y, +Z, -Z.
var cubeFaces = [6][2]mgl32.Vec3{
	{{1, 0, 0}, {0, 1, 0}},
	{{-1, 0, 0}, {0, 1, 0}},
	{{0, 1, 0}, {0, 0, -1}},
	{{0, -1, 0}, {0, 0, 1}},
	{{0, 0, 1}, {0, 1, 0}},
	{{0, 0, -1}, {0, 1, 0}},
}

// CubeFaceViewProjs returns the six 90 degree light-space transforms used to
// render a cube map centred on eye.
func CubeFaceViewProjs(eye mgl32.Vec3, near, far float32) [6]mgl32.Mat4 {
	proj := FlipX.Mul4(PerspectiveZO(mgl32.DegToRad(90), 1, near, far))
	var out [6]mgl32.Mat4
	for i, f := range cubeFaces {
		out[i] = proj.Mul4(mgl32.LookAtV(eye, eye.Add(f[0]), f[1]))
	}
	return out
}

func (l *PointLight) FaceViewProjs() [6]mgl32.Mat4 {
	return CubeFaceViewProjs(l.Position, NearPlane, l.Far())
}

type DirectionalLight struct {
	Direction mgl32.Vec3 // direction the light travels
	Color     mgl32.Vec3
}

func NewDirectionalLight(direction, color mgl32.Vec3) *DirectionalLight {
	return &DirectionalLight{Direction: direction, Color: color}
}

func (l *DirectionalLight) Kind() LightKind        { return LightKindDirectional }
func (l *DirectionalLight) LightColor() mgl32.Vec3 { return l.Color }
func (l *DirectionalLight) isLight()               {}

// Dir returns the normalized travel direction, straight down when unset.
func (l *DirectionalLight) Dir() mgl32.Vec3 {
	if l.Direction.Len() == 0 {
		return mgl32.Vec3{0, -1, 0}
	}
	return l.Direction.Normalize()
}

// ViewProj is the orthographic light-space transform including the x flip.
func (l *DirectionalLight) ViewProj() mgl32.Mat4 {
	dir := l.Dir()
	eye := dir.Mul(-DirectionalLightDistance)

	right := dir.Cross(mgl32.Vec3{0, 1, 0})
	if right.Len() < 1e-4 {
		right = dir.Cross(mgl32.Vec3{0, 0, 1})
	}
	up := right.Normalize().Cross(dir)

	view := mgl32.LookAtV(eye, mgl32.Vec3{0, 0, 0}, up)
	h := float32(DirectionalLightHalfExtent)
	proj := OrthoZO(-h, h, -h, h, NearPlane, DirectionalLightFarPlane)
	return FlipX.Mul4(proj).Mul4(view)
}
