package shadow

import (
	"github.com/chewxy/math32"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/go-gl/mathgl/mgl32"
)

func texel(img *frame.DepthImage, uv mgl32.Vec2) float32 {
	x := min(max(int(math32.Floor(uv.X()*float32(img.Width))), 0), img.Width-1)
	y := min(max(int(math32.Floor(uv.Y()*float32(img.Height))), 0), img.Height-1)
	return img.At(x, y)
}

func compare(ref, bias, stored float32) float32 {
	if ref-bias <= stored {
		return 1
	}
	return 0
}

// SampleDirectional returns 1 when p is lit by the directional light in the
// given layer and 0 when it is occluded. Positions behind the light, outside
// the projected map or past its far plane are treated as lit.
func SampleDirectional(maps *DepthArray, l core.DirectionalLightData, p mgl32.Vec3, bias float32) float32 {
	if maps == nil || l.Slot < 0 || l.Slot >= len(maps.Layers) {
		return 1
	}
	uv, depth, w := core.ProjectToTexture(l.ViewProj, p)
	if w <= 0 {
		return 1
	}
	if uv.X() <= 0 || uv.X() >= 1 || uv.Y() <= 0 || uv.Y() >= 1 {
		return 1
	}
	if depth > 1 || math32.IsNaN(depth) {
		return 1
	}
	return compare(depth, bias, texel(maps.Layers[l.Slot], uv))
}

// SamplePoint compares the normalized light distance of p against the cube
// slot of the point light. The direction vector alone selects the face.
func SamplePoint(maps *DepthCubeArray, l core.PointLightData, p mgl32.Vec3, bias float32) float32 {
	if maps == nil || l.Slot < 0 || l.Slot >= len(maps.Cubes) || l.FarPlane <= 0 {
		return 1
	}
	v := p.Sub(l.Position)
	ref := v.Len() / l.FarPlane
	if ref >= 1 || ref == 0 || math32.IsNaN(ref) {
		return 1
	}
	face, uv := core.CubeFaceUV(v)
	return compare(ref, bias, texel(maps.Cubes[l.Slot][face], uv))
}
