// Package ibl precomputes image-based lighting inputs from an environment map.
package ibl

import (
	"github.com/chewxy/math32"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultIrradianceSize = 64

	// Hemisphere integration steps in radians.
	AzimuthStep = 0.125
	PolarStep   = 0.025
)

// TangentFrame returns right and up vectors completing an orthonormal basis
// around n.
func TangentFrame(n mgl32.Vec3) (right, up mgl32.Vec3) {
	up = mgl32.Vec3{0, 1, 0}
	if math32.Abs(n.Y()) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}
	right = up.Cross(n).Normalize()
	up = n.Cross(right)
	return right, up
}

// IrradianceAt integrates env over the hemisphere around n with cosine
// weighting, stepping azimuth and polar angle at fixed increments.
func IrradianceAt(env *core.Cubemap, n mgl32.Vec3) mgl32.Vec3 {
	right, up := TangentFrame(n)

	var sum mgl32.Vec3
	count := 0
	for phi := float32(0); phi < 2*math32.Pi; phi += AzimuthStep {
		sinPhi, cosPhi := math32.Sincos(phi)
		for theta := float32(0); theta < 0.5*math32.Pi; theta += PolarStep {
			sinTheta, cosTheta := math32.Sincos(theta)
			// tangent space to world
			dir := right.Mul(sinTheta * cosPhi).Add(up.Mul(sinTheta * sinPhi)).Add(n.Mul(cosTheta))
			sum = sum.Add(env.Sample(dir).Vec3().Mul(cosTheta * sinTheta))
			count++
		}
	}
	return sum.Mul(math32.Pi / float32(count))
}

// Convolve produces the diffuse irradiance cube of env at the given face size.
func Convolve(env *core.Cubemap, size int, d *frame.Dispatcher) *core.Cubemap {
	if size <= 0 {
		size = DefaultIrradianceSize
	}
	out := core.NewCubemap(size)
	for face := core.CubeFacePosX; face <= core.CubeFaceNegZ; face++ {
		d.Dispatch(size, size, func(x, y int) {
			n := core.CubeFaceDirection(face, core.TexelCenter(x, y, size, size))
			out.Set(face, x, y, IrradianceAt(env, n).Vec4(1))
		})
	}
	return out
}
