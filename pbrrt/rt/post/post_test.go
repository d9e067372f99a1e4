package post

import (
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/gekko3d/deferred/pbrrt/rt/gbuffer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownsampleBoxFilter(t *testing.T) {
	src := frame.NewImage(4, 2)
	for x := 0; x < 4; x++ {
		src.Set(x, 0, mgl32.Vec4{float32(x), 0, 0, 1})
		src.Set(x, 1, mgl32.Vec4{float32(x) + 4, 0, 0, 1})
	}
	out := Downsample(src, frame.Serial())
	require.Equal(t, 2, out.Width)
	require.Equal(t, 1, out.Height)
	assert.InDelta(t, (0+1+4+5)/4.0, out.At(0, 0).X(), 1e-6)
	assert.InDelta(t, (2+3+6+7)/4.0, out.At(1, 0).X(), 1e-6)
	assert.InDelta(t, 1, out.At(1, 0).W(), 1e-6)
}

func TestMipChain(t *testing.T) {
	src := frame.NewImage(13, 6)
	src.Clear(mgl32.Vec4{0.5, 0.5, 0.5, 1})
	chain := BuildMipChain(src, 10, frame.NewDispatcher(2))
	require.Len(t, chain, MipLevels(13, 6))
	assert.Same(t, src, chain[0])

	last := chain[len(chain)-1]
	assert.Equal(t, 1, last.Width)
	assert.Equal(t, 1, last.Height)
	// a constant image stays constant
	assert.InDelta(t, 0.5, last.At(0, 0).X(), 1e-6)

	assert.Len(t, BuildMipChain(src, 2, frame.Serial()), 2)
	assert.Equal(t, 4, MipLevels(8, 8))
}

func TestReinhardMonotoneAndBounded(t *testing.T) {
	prev := float32(-1)
	for c := float32(0); c < 1e4; c = c*1.5 + 0.01 {
		v := ReinhardOperator(c)
		require.GreaterOrEqual(t, v, float32(0))
		require.Less(t, v, float32(1))
		require.Greater(t, v, prev)
		prev = v

		out := ToneMap(mgl32.Vec3{c, c, c}, core.ToneMapReinhard, 1)
		require.GreaterOrEqual(t, out.X(), float32(0))
		require.Less(t, out.X(), float32(1))
	}

	for _, c := range []float32{65504, 1e7, 1e8, math32.MaxFloat32, math32.Inf(1)} {
		v := ReinhardOperator(c)
		assert.False(t, math32.IsNaN(v), "%g", c)
		assert.GreaterOrEqual(t, v, float32(0), "%g", c)
		assert.Less(t, v, float32(1), "%g", c)

		out := ToneMap(mgl32.Vec3{c, c, c}, core.ToneMapReinhard, 1)
		for i := range 3 {
			assert.False(t, math32.IsNaN(out[i]), "%g", c)
			assert.GreaterOrEqual(t, out[i], float32(0), "%g", c)
			assert.Less(t, out[i], float32(1), "%g", c)
		}
	}
}

func TestExposureOperator(t *testing.T) {
	assert.Equal(t, float32(0), ExposureOperator(0, 2))
	assert.InDelta(t, 1-math.Exp(-2), ExposureOperator(1, 2), 1e-6)
	assert.Greater(t, ExposureOperator(1, 4), ExposureOperator(1, 1))

	out := ToneMap(mgl32.Vec3{1, 0, -3}, core.ToneMapExposure, 1)
	assert.InDelta(t, math.Pow(1-math.Exp(-1), 1/2.2), out.X(), 1e-5)
	assert.Equal(t, float32(0), out.Y())
	assert.Equal(t, float32(0), out.Z(), "negative input clamps to black")

	nan := float32(math.NaN())
	assert.Equal(t, mgl32.Vec3{}, ToneMap(mgl32.Vec3{nan, nan, nan}, core.ToneMapExposure, 1))
}

func TestToneMapPassAndResolve(t *testing.T) {
	cam := core.NewCameraState()
	params := core.DefaultRenderParams()
	params.ToneMap = core.ToneMapReinhard
	ctx, err := frame.NewContext(0, 3, 2, cam, nil, params)
	require.NoError(t, err)

	src := frame.NewImage(3, 2)
	src.Clear(mgl32.Vec4{1, 0, 100, 1})
	out := frame.NewImage(3, 2)
	(&ToneMapPass{Dispatcher: frame.Serial()}).Run(ctx, src, out)

	want := float32(math.Pow(0.5, 1/2.2))
	assert.InDelta(t, want, out.At(2, 1).X(), 1e-5)

	rgba := Resolve(out)
	assert.Equal(t, uint8(math.Round(float64(want)*255)), rgba.RGBAAt(0, 0).R)
	assert.Equal(t, uint8(0), rgba.RGBAAt(0, 0).G)
	assert.Equal(t, uint8(255), rgba.RGBAAt(0, 0).A)
}

func ssrContext(t *testing.T, w, h int) *frame.Context {
	t.Helper()
	cam := core.NewCameraState()
	cam.Position = mgl32.Vec3{0, 1, 4}
	cam.LookAt(mgl32.Vec3{0, 0.6, 0})
	ctx, err := frame.NewContext(0, w, h, cam, nil, core.DefaultRenderParams())
	require.NoError(t, err)
	return ctx
}

func TestSSRImmediateExitKeepsSource(t *testing.T) {
	ctx := ssrContext(t, 16, 16)
	g := gbuffer.New(16, 16)
	g.Clear()

	// a mirror at the left edge whose reflection points straight off screen
	x, y := 0, 8
	uv := core.TexelCenter(x, y, 16, 16)
	p := ctx.Camera.Position.Add(ctx.Camera.Ray(uv).Mul(5))
	_, depth, _ := core.ProjectToTexture(ctx.Camera.ViewProj, p)
	v := p.Sub(ctx.Camera.Position).Normalize()
	r := ctx.Camera.Ray(uv).Cross(mgl32.Vec3{0, 1, 0}).Normalize().Mul(-1)
	n := r.Sub(v).Normalize()

	g.Position.Set(x, y, p.Vec4(1))
	g.Normal.Set(x, y, n.Vec4(0))
	g.Albedo.Set(x, y, mgl32.Vec4{1, 1, 1, 1})
	g.Material.Set(x, y, gbuffer.PackRMA(0, 1, 1))
	g.Depth.Set(x, y, depth)

	color := frame.NewImage(16, 16)
	color.Clear(mgl32.Vec4{0.1, 0.7, 0.3, 1})
	color.Set(x, y, mgl32.Vec4{0.25, 0.5, 0.75, 1})

	hit := March(ctx, g, p, n)
	assert.False(t, hit.OK)
	assert.Equal(t, 1, hit.Steps, "ray leaves the texture on the first step")

	out := frame.NewImage(16, 16)
	NewSSRPass(frame.Serial(), nil).Run(ctx, SSRInputs{GBuffer: g, Color: color}, out)
	assert.Equal(t, color.At(x, y), out.At(x, y))
	// texels without geometry pass through
	assert.Equal(t, color.At(5, 5), out.At(5, 5))
}

func TestSSRReflectsWall(t *testing.T) {
	const w, h = 48, 48
	ctx := ssrContext(t, w, h)
	scene := core.NewScene()
	scene.Add("floor", core.NewPlane(20, 1), core.NewTransform(), core.NewMaterial(mgl32.Vec3{1, 1, 1}, 0, 1))
	scene.Add("wall", core.NewCube(2), core.NewTransformAt(mgl32.Vec3{0, 1, -1.5}), core.NewMaterial(mgl32.Vec3{1, 0, 0}, 1, 0))

	g := gbuffer.New(w, h)
	gbuffer.NewPass(nil).Run(ctx, g, scene.Drawables)

	// flat colour: red wall, black floor
	color := frame.NewImage(w, h)
	floorTexels := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tx := g.Fetch(x, y)
			switch {
			case !tx.Valid:
				color.Set(x, y, mgl32.Vec4{0, 0, 0, 1})
			case tx.Normal.Y() > 0.9 && tx.Position.Y() < 1e-3:
				color.Set(x, y, mgl32.Vec4{0, 0, 0, 1})
				floorTexels++
			default:
				color.Set(x, y, tx.Albedo.Vec4(1))
			}
		}
	}
	require.Greater(t, floorTexels, 0)

	out := frame.NewImage(w, h)
	mips := BuildMipChain(color, MipLevels(w, h), frame.Serial())
	NewSSRPass(frame.NewDispatcher(2), nil).Run(ctx, SSRInputs{GBuffer: g, Color: color, Mips: mips}, out)

	reflected := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tx := g.Fetch(x, y)
			if tx.Valid && tx.Normal.Y() > 0.9 && tx.Position.Y() < 1e-3 && out.At(x, y).X() > 0.5 {
				reflected++
			}
		}
	}
	assert.Greater(t, reflected, 0, "the mirror floor should pick up the red wall")

	// the source image is untouched
	assert.Equal(t, mgl32.Vec4{0, 0, 0, 1}, color.At(0, h-1))
}
