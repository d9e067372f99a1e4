package render

import (
	"context"
	"math"
	"testing"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/ibl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScene(t *testing.T) (*core.Scene, *core.Drawable) {
	t.Helper()
	scene := core.NewScene()
	scene.Add("floor", core.NewPlane(10, 2), core.NewTransform(), core.NewMaterial(mgl32.Vec3{0.8, 0.8, 0.8}, 0.2, 0))
	ball := scene.Add("ball", core.NewUVSphere(0.75, 12, 16), core.NewTransformAt(mgl32.Vec3{0, 0.75, 0}), core.NewMaterial(mgl32.Vec3{0.9, 0.3, 0.2}, 0.4, 0.5))
	require.NoError(t, scene.Lights.Add(core.NewDirectionalLight(mgl32.Vec3{0.3, -1, -0.2}, mgl32.Vec3{2, 2, 2})))
	require.NoError(t, scene.Lights.Add(core.NewPointLight(mgl32.Vec3{2, 2, 1}, mgl32.Vec3{8, 6, 4})))
	scene.SetEnvironment(ibl.GradientSky(8, ibl.DefaultSky()))
	return scene, ball
}

func testCamera() *core.CameraState {
	cam := core.NewCameraState()
	cam.Position = mgl32.Vec3{0, 2, 5}
	cam.LookAt(mgl32.Vec3{0, 0.5, 0})
	return cam
}

func newRenderer() *Renderer {
	return New(Options{Workers: 2, ShadowMapSize: 128, IrradianceSize: 4})
}

func TestRenderProducesDisplayImage(t *testing.T) {
	scene, ball := testScene(t)
	r := newRenderer()
	params := core.DefaultRenderParams()
	params.Picking = true

	f, err := r.Render(context.Background(), scene, testCamera(), 40, 30, params)
	require.NoError(t, err)

	for i, c := range f.LDR.Pix {
		for k := 0; k < 4; k++ {
			v := float64(c[k])
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "texel %d", i)
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 1.0)
		}
	}

	// the top row looks over the floor into the sky
	assert.False(t, f.GBuffer.Valid(20, 0))
	assert.Greater(t, f.LDR.At(20, 0).Z(), float32(0))

	// the ball is in the middle of the view
	assert.True(t, f.GBuffer.Valid(20, 15))
	id, ok := f.Pick(scene, 20, 15)
	require.True(t, ok)
	assert.Equal(t, ball.ID, id)

	for _, scope := range []string{"shadows", "gbuffer", "irradiance", "lighting", "downsample", "ssr", "tonemap", "picking"} {
		assert.Contains(t, r.Profiler.Order, scope)
	}
	assert.Equal(t, 2, r.Profiler.Counts["lights"])
}

func TestRenderCachesIrradiance(t *testing.T) {
	scene, _ := testScene(t)
	r := newRenderer()
	for range 2 {
		_, err := r.Render(context.Background(), scene, testCamera(), 16, 12, core.DefaultRenderParams())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, r.irradiance.Builds())

	scene.SetEnvironment(core.UniformCubemap(4, mgl32.Vec3{0.5, 0.5, 0.5}))
	_, err := r.Render(context.Background(), scene, testCamera(), 16, 12, core.DefaultRenderParams())
	require.NoError(t, err)
	assert.Equal(t, 2, r.irradiance.Builds())
}

func TestRenderRejectsBeforeAnyPass(t *testing.T) {
	scene, _ := testScene(t)
	require.NoError(t, scene.Lights.Add(core.NewPointLight(mgl32.Vec3{-2, 2, 0}, mgl32.Vec3{1, 1, 1})))

	r := New(Options{Workers: 1, ShadowMapSize: 32, IrradianceSize: 2, MaxPointLights: 1})
	_, err := r.Render(context.Background(), scene, testCamera(), 16, 12, core.DefaultRenderParams())
	require.ErrorIs(t, err, core.ErrLightCapacity)
	assert.Empty(t, r.Profiler.Order, "no pass may run")
	assert.Nil(t, r.gbuf)

	bad := core.DefaultRenderParams()
	bad.SSRThickness = float32(math.NaN())
	_, err = newRenderer().Render(context.Background(), scene, testCamera(), 16, 12, bad)
	assert.ErrorIs(t, err, core.ErrInvalidParams)
}

func TestRenderReinhardAndNoEnvironment(t *testing.T) {
	scene, _ := testScene(t)
	scene.SetEnvironment(nil)
	params := core.DefaultRenderParams()
	params.ToneMap = core.ToneMapReinhard
	params.SSRStrength = 0

	f, err := newRenderer().Render(context.Background(), scene, testCamera(), 24, 16, params)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{0, 0, 0, 1}, f.LDR.At(12, 0), "background is black without an environment")
	assert.Equal(t, f.Lit.At(12, 8), f.HDR.At(12, 8), "zero strength disables reflections")
	assert.Nil(t, f.Picking)
}
