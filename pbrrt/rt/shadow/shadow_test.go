package shadow

import (
	"context"
	"testing"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dirBias   = 0.0008
	pointBias = 0.002
)

func bake(t *testing.T, scene *core.Scene, size int) (*Maps, core.LightSnapshot) {
	t.Helper()
	fc, err := frame.NewContext(0, 4, 4, core.NewCameraState(), scene.Lights, core.DefaultRenderParams())
	require.NoError(t, err)
	maps, err := NewBaker(size, nil).Bake(context.Background(), fc, scene.Drawables)
	require.NoError(t, err)
	return maps, fc.Lights
}

func floorScene() *core.Scene {
	scene := core.NewScene()
	scene.Add("floor", core.NewPlane(12, 1), core.NewTransform(), core.DefaultMaterial())
	return scene
}

func TestDirectionalShadow(t *testing.T) {
	scene := floorScene()
	scene.Add("cube", core.NewCube(1), core.NewTransformAt(mgl32.Vec3{0, 1, 0}), core.DefaultMaterial())
	require.NoError(t, scene.Lights.Add(core.NewDirectionalLight(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 1, 1})))

	maps, snap := bake(t, scene, 256)
	sun := snap.Directionals()[0]

	assert.Equal(t, float32(0), SampleDirectional(maps.Directional, sun, mgl32.Vec3{0, 0, 0}, dirBias), "under the cube")
	assert.Equal(t, float32(0), SampleDirectional(maps.Directional, sun, mgl32.Vec3{0.3, 0, -0.3}, dirBias))
	assert.Equal(t, float32(1), SampleDirectional(maps.Directional, sun, mgl32.Vec3{3, 0, 3}, dirBias), "open floor")
	assert.Equal(t, float32(1), SampleDirectional(maps.Directional, sun, mgl32.Vec3{0, 1.5, 0}, dirBias), "cube top")
}

func TestDirectionalOutOfRangeIsLit(t *testing.T) {
	scene := core.NewScene()
	scene.Add("cube", core.NewCube(2), core.NewTransform(), core.DefaultMaterial())
	require.NoError(t, scene.Lights.Add(core.NewDirectionalLight(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 1, 1})))
	maps, snap := bake(t, scene, 64)
	sun := snap.Directionals()[0]

	// outside the projected map
	assert.Equal(t, float32(1), SampleDirectional(maps.Directional, sun, mgl32.Vec3{50, 0, 0}, dirBias))
	// straight below the cube but past the far plane
	assert.Equal(t, float32(1), SampleDirectional(maps.Directional, sun, mgl32.Vec3{0, -300, 0}, dirBias))
	// inside range and occluded
	assert.Equal(t, float32(0), SampleDirectional(maps.Directional, sun, mgl32.Vec3{0, -5, 0}, dirBias))

	// behind a perspective light (w <= 0)
	persp := sun
	persp.ViewProj = core.PerspectiveZO(1, 1, 0.1, 10).Mul4(mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}))
	assert.Equal(t, float32(1), SampleDirectional(maps.Directional, persp, mgl32.Vec3{0, 0, 5}, dirBias))

	assert.Equal(t, float32(1), SampleDirectional(nil, sun, mgl32.Vec3{}, dirBias))
}

func TestPointShadow(t *testing.T) {
	scene := floorScene()
	scene.Add("cube", core.NewCube(1), core.NewTransformAt(mgl32.Vec3{0, 2, 0}), core.DefaultMaterial())
	light := core.NewPointLight(mgl32.Vec3{0, 4, 0}, mgl32.Vec3{10, 10, 10})
	require.NoError(t, scene.Lights.Add(light))

	maps, snap := bake(t, scene, 256)
	pl := snap.Points()[0]

	assert.Equal(t, float32(0), SamplePoint(maps.Point, pl, mgl32.Vec3{0, 0, 0}, pointBias), "floor under the cube")
	assert.Equal(t, float32(1), SamplePoint(maps.Point, pl, mgl32.Vec3{4, 0, 0}, pointBias), "open floor")
	assert.Equal(t, float32(1), SamplePoint(maps.Point, pl, mgl32.Vec3{0, 2.5, 0}, pointBias), "cube top faces the light")
}

func TestPointShadowOffAxisOccluders(t *testing.T) {
	// An occluder along a direction far from every face centre must shadow the
	// points behind it on each of the six faces.
	dirs := []mgl32.Vec3{
		{1, 0.7, 0.3}, {-1, -0.6, 0.4}, {0.5, 1, -0.7},
		{-0.4, -1, 0.6}, {0.7, -0.5, 1}, {-0.6, 0.4, -1},
	}
	for _, d := range dirs {
		d = d.Normalize()
		scene := core.NewScene()
		scene.Add("occluder", core.NewCube(0.6), core.NewTransformAt(d.Mul(2)), core.DefaultMaterial())
		require.NoError(t, scene.Lights.Add(core.NewPointLight(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})))

		maps, snap := bake(t, scene, 128)
		pl := snap.Points()[0]

		face, _ := core.CubeFaceUV(d)
		assert.Equal(t, float32(0), SamplePoint(maps.Point, pl, d.Mul(4), pointBias), "behind occluder on face %d", face)
		assert.Equal(t, float32(1), SamplePoint(maps.Point, pl, d.Mul(1), pointBias), "in front of occluder on face %d", face)
		assert.Equal(t, float32(1), SamplePoint(maps.Point, pl, d.Mul(-4), pointBias), "opposite side on face %d", face)
	}
}

func TestPointShadowFarPlaneIsLit(t *testing.T) {
	scene := core.NewScene()
	scene.Add("cube", core.NewCube(1), core.NewTransformAt(mgl32.Vec3{2, 0, 0}), core.DefaultMaterial())
	light := core.NewPointLight(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
	light.FarPlane = 10
	require.NoError(t, scene.Lights.Add(light))

	maps, snap := bake(t, scene, 64)
	pl := snap.Points()[0]

	assert.Equal(t, float32(0), SamplePoint(maps.Point, pl, mgl32.Vec3{9, 0, 0}, pointBias))
	assert.Equal(t, float32(1), SamplePoint(maps.Point, pl, mgl32.Vec3{10, 0, 0}, pointBias), "exactly at the far plane")
	assert.Equal(t, float32(1), SamplePoint(maps.Point, pl, mgl32.Vec3{25, 0, 0}, pointBias))
	assert.Equal(t, float32(1), SamplePoint(maps.Point, pl, pl.Position, pointBias))
}

func TestSampleRangeIsUnitInterval(t *testing.T) {
	scene := floorScene()
	scene.Add("cube", core.NewCube(1), core.NewTransformAt(mgl32.Vec3{0, 1, 0}), core.DefaultMaterial())
	require.NoError(t, scene.Lights.Add(core.NewDirectionalLight(mgl32.Vec3{0.4, -1, 0.2}, mgl32.Vec3{1, 1, 1})))
	require.NoError(t, scene.Lights.Add(core.NewPointLight(mgl32.Vec3{1, 3, 1}, mgl32.Vec3{1, 1, 1})))
	maps, snap := bake(t, scene, 64)

	for x := float32(-20); x <= 20; x += 1.3 {
		for z := float32(-20); z <= 20; z += 1.7 {
			p := mgl32.Vec3{x, 0, z}
			s := SampleDirectional(maps.Directional, snap.Directionals()[0], p, dirBias)
			assert.True(t, s == 0 || s == 1, "directional %v -> %v", p, s)
			s = SamplePoint(maps.Point, snap.Points()[0], p, pointBias)
			assert.True(t, s == 0 || s == 1, "point %v -> %v", p, s)
		}
	}
}

func TestBakerReusesMaps(t *testing.T) {
	scene := floorScene()
	require.NoError(t, scene.Lights.Add(core.NewPointLight(mgl32.Vec3{0, 3, 0}, mgl32.Vec3{1, 1, 1})))
	fc, err := frame.NewContext(0, 4, 4, core.NewCameraState(), scene.Lights, core.DefaultRenderParams())
	require.NoError(t, err)

	b := NewBaker(32, nil)
	first, err := b.Bake(context.Background(), fc, scene.Drawables)
	require.NoError(t, err)
	second, err := b.Bake(context.Background(), fc, scene.Drawables)
	require.NoError(t, err)
	assert.Same(t, first, second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Bake(ctx, fc, scene.Drawables)
	assert.ErrorIs(t, err, context.Canceled)
}
