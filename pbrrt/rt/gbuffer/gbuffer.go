package gbuffer

import (
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/go-gl/mathgl/mgl32"
)

// GBuffer holds the per-pixel surface attributes written by the geometry
// pass. Position.w is 1 where geometry was rasterized and 0 elsewhere; all
// other targets are undefined where Position.w is 0.
type GBuffer struct {
	Width  int
	Height int

	Position *frame.Image // xyz world position, w validity
	Normal   *frame.Image // xyz world normal
	Albedo   *frame.Image // rgb linear albedo
	Material *frame.Image // r roughness, g metalness, b ambient occlusion
	Depth    *frame.DepthImage
}

func New(width, height int) *GBuffer {
	return &GBuffer{
		Width:    width,
		Height:   height,
		Position: frame.NewImage(width, height),
		Normal:   frame.NewImage(width, height),
		Albedo:   frame.NewImage(width, height),
		Material: frame.NewImage(width, height),
		Depth:    frame.NewDepthImage(width, height),
	}
}

// Clear resets every target to the empty sentinel and depth to the far plane.
func (g *GBuffer) Clear() {
	g.Position.Clear(mgl32.Vec4{})
	g.Normal.Clear(mgl32.Vec4{})
	g.Albedo.Clear(mgl32.Vec4{})
	g.Material.Clear(mgl32.Vec4{})
	g.Depth.Clear(1)
}

func (g *GBuffer) Valid(x, y int) bool {
	return g.Position.At(x, y).W() > 0
}

// Texel is a decoded GBuffer sample.
type Texel struct {
	Valid     bool
	Position  mgl32.Vec3
	Normal    mgl32.Vec3
	Albedo    mgl32.Vec3
	Roughness float32
	Metalness float32
	AO        float32
	Depth     float32
}

func (g *GBuffer) Fetch(x, y int) Texel {
	p := g.Position.At(x, y)
	if p.W() <= 0 {
		return Texel{Depth: 1}
	}
	r, m, ao := UnpackRMA(g.Material.At(x, y))
	return Texel{
		Valid:     true,
		Position:  p.Vec3(),
		Normal:    g.Normal.At(x, y).Vec3(),
		Albedo:    g.Albedo.At(x, y).Vec3(),
		Roughness: r,
		Metalness: m,
		AO:        ao,
		Depth:     g.Depth.At(x, y),
	}
}

// PackRMA stores roughness, metalness and AO in one target. Channels are
// kept unquantized so decoding is exact.
func PackRMA(roughness, metalness, ao float32) mgl32.Vec4 {
	return mgl32.Vec4{roughness, metalness, ao, 1}
}

func UnpackRMA(v mgl32.Vec4) (roughness, metalness, ao float32) {
	return v.X(), v.Y(), v.Z()
}
