package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// OpenGLToWGPU remaps clip z from [-w, w] to [0, w].
var OpenGLToWGPU = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// FlipX mirrors clip-space x. Every light-space projection carries it so that
// rendered faces line up with the cube-map addressing convention.
var FlipX = mgl32.Scale3D(-1, 1, 1)

func PerspectiveZO(fovy, aspect, near, far float32) mgl32.Mat4 {
	return OpenGLToWGPU.Mul4(mgl32.Perspective(fovy, aspect, near, far))
}

func OrthoZO(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	return OpenGLToWGPU.Mul4(mgl32.Ortho(left, right, bottom, top, near, far))
}

// ProjectToTexture maps a world point through viewProj into texture space.
// uv has its origin at the top-left; depth is NDC z. w is the clip w, callers
// must reject w <= 0 before trusting uv or depth.
func ProjectToTexture(viewProj mgl32.Mat4, p mgl32.Vec3) (uv mgl32.Vec2, depth float32, w float32) {
	clip := viewProj.Mul4x1(p.Vec4(1))
	w = clip.W()
	if w == 0 {
		return mgl32.Vec2{}, 0, 0
	}
	ndc := clip.Vec3().Mul(1 / w)
	uv = mgl32.Vec2{ndc.X()*0.5 + 0.5, 0.5 - ndc.Y()*0.5}
	return uv, ndc.Z(), w
}

// TexelCenter returns the texture-space coordinate of texel (x, y).
func TexelCenter(x, y, width, height int) mgl32.Vec2 {
	return mgl32.Vec2{(float32(x) + 0.5) / float32(width), (float32(y) + 0.5) / float32(height)}
}

type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) Empty() bool {
	return b.Min.X() > b.Max.X() || b.Min.Y() > b.Max.Y() || b.Min.Z() > b.Max.Z()
}

// Transform returns the conservative world box of the 8 transformed corners.
func (b AABB) Transform(m mgl32.Mat4) AABB {
	inf := float32(1e20)
	out := AABB{Min: mgl32.Vec3{inf, inf, inf}, Max: mgl32.Vec3{-inf, -inf, -inf}}
	for i := 0; i < 8; i++ {
		c := mgl32.Vec3{b.Min.X(), b.Min.Y(), b.Min.Z()}
		if i&1 != 0 {
			c[0] = b.Max.X()
		}
		if i&2 != 0 {
			c[1] = b.Max.Y()
		}
		if i&4 != 0 {
			c[2] = b.Max.Z()
		}
		wc := m.Mul4x1(c.Vec4(1.0)).Vec3()
		for k := 0; k < 3; k++ {
			out.Min[k] = min(out.Min[k], wc[k])
			out.Max[k] = max(out.Max[k], wc[k])
		}
	}
	return out
}

// InFrustum checks the box against planes whose normals point inside.
func (b AABB) InFrustum(planes [6]mgl32.Vec4) bool {
	for _, plane := range planes {
		// most-inside corner; if even that is behind the plane the box is out
		var p mgl32.Vec3
		for k := 0; k < 3; k++ {
			if plane[k] > 0 {
				p[k] = b.Max[k]
			} else {
				p[k] = b.Min[k]
			}
		}
		if plane.Vec3().Dot(p)+plane[3] < 0 {
			return false
		}
	}
	return true
}
