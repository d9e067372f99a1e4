package gbuffer

import (
	"testing"

	"github.com/gekko3d/deferred"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T, w, h int) *frame.Context {
	cam := core.NewCameraState()
	cam.Position = mgl32.Vec3{0, 4, 4}
	cam.LookAt(mgl32.Vec3{})
	ctx, err := frame.NewContext(0, w, h, cam, nil, core.DefaultRenderParams())
	require.NoError(t, err)
	return ctx
}

func TestPackRMARoundTrip(t *testing.T) {
	values := [][3]float32{{0, 0, 0}, {1, 1, 1}, {0.123456, 0.987654, 0.5}, {0.3333333, 1e-7, 0.75}}
	for _, v := range values {
		r, m, ao := UnpackRMA(PackRMA(v[0], v[1], v[2]))
		assert.Equal(t, v[0], r)
		assert.Equal(t, v[1], m)
		assert.Equal(t, v[2], ao)
	}
}

func TestPassWritesSurfaceAttributes(t *testing.T) {
	ctx := newContext(t, 32, 32)
	scene := core.NewScene()
	mat := core.NewMaterial(mgl32.Vec3{0.8, 0.2, 0.1}, 0.3, 0.7)
	mat.AO = 0.5
	scene.Add("floor", core.NewPlane(1, 1), core.NewTransform(), mat)

	g := New(32, 32)
	stats := NewPass(deferred.NewNopLogger()).Run(ctx, g, scene.Drawables)
	require.Greater(t, stats.Fragments, 0)

	center := g.Fetch(16, 16)
	require.True(t, center.Valid)
	assert.InDelta(t, 0, center.Position.Y(), 1e-4)
	assert.InDelta(t, 1, center.Normal.Y(), 1e-4)
	assert.Equal(t, mgl32.Vec3{0.8, 0.2, 0.1}, center.Albedo)
	assert.Equal(t, float32(0.3), center.Roughness)
	assert.Equal(t, float32(0.7), center.Metalness)
	assert.Equal(t, float32(0.5), center.AO)
	assert.Greater(t, center.Depth, float32(0))
	assert.Less(t, center.Depth, float32(1))

	// the unit plane does not reach the corners of the view
	corner := g.Fetch(0, 0)
	assert.False(t, corner.Valid)
	assert.False(t, g.Valid(31, 0))
	assert.Equal(t, float32(1), g.Depth.At(0, 0))
}

func TestPassNormalMapping(t *testing.T) {
	ctx := newContext(t, 16, 16)
	mat := core.DefaultMaterial()
	// tangent-space +X
	mat.Textures.Normal = core.SolidTexture(mgl32.Vec4{1, 0.5, 0.5, 1})

	scene := core.NewScene()
	scene.Add("floor", core.NewPlane(2, 1), core.NewTransform(), mat)

	g := New(16, 16)
	NewPass(nil).Run(ctx, g, scene.Drawables)

	texel := g.Fetch(8, 8)
	require.True(t, texel.Valid)
	assert.InDelta(t, 1, texel.Normal.X(), 1e-3, "plane tangent follows +u, which is world +X")
}

func TestPassClosestSurfaceWins(t *testing.T) {
	ctx := newContext(t, 16, 16)
	scene := core.NewScene()
	scene.Add("low", core.NewPlane(2, 1), core.NewTransform(), core.NewMaterial(mgl32.Vec3{1, 0, 0}, 1, 0))
	scene.Add("high", core.NewPlane(2, 1), core.NewTransformAt(mgl32.Vec3{0, 0.5, 0}), core.NewMaterial(mgl32.Vec3{0, 1, 0}, 1, 0))

	g := New(16, 16)
	NewPass(nil).Run(ctx, g, scene.Drawables)

	texel := g.Fetch(8, 8)
	require.True(t, texel.Valid)
	assert.Equal(t, float32(1), texel.Albedo.Y())
	assert.InDelta(t, 0.5, texel.Position.Y(), 1e-4)
}

func TestPassSkipsOutsideFrustum(t *testing.T) {
	ctx := newContext(t, 8, 8)
	scene := core.NewScene()
	scene.Add("far away", core.NewCube(1), core.NewTransformAt(mgl32.Vec3{0, 0, 500}), core.DefaultMaterial())

	g := New(8, 8)
	stats := NewPass(nil).Run(ctx, g, scene.Drawables)
	assert.Zero(t, stats.Triangles)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			assert.False(t, g.Valid(x, y))
		}
	}
}
