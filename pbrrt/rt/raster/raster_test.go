package raster

import (
	"math"
	"testing"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearedTarget(w, h int) Target {
	d := frame.NewDepthImage(w, h)
	d.Clear(1)
	return NewTarget(d)
}

// ccw triangle covering the whole viewport at the given NDC depth
func fullscreen(z float32) [3]ClipVertex {
	return [3]ClipVertex{
		{Clip: mgl32.Vec4{-1, -1, z, 1}},
		{Clip: mgl32.Vec4{3, -1, z, 1}},
		{Clip: mgl32.Vec4{-1, 3, z, 1}},
	}
}

func reversed(v [3]ClipVertex) [3]ClipVertex {
	return [3]ClipVertex{v[0], v[2], v[1]}
}

func TestTriangleCoversViewport(t *testing.T) {
	tgt := clearedTarget(16, 12)
	stats := Triangle(tgt, State{Cull: CullBack}, fullscreen(0.5), nil)
	assert.Equal(t, 16*12, stats.Fragments)
	assert.Zero(t, stats.Culled)
	for _, d := range tgt.Depth.Pix {
		assert.InDelta(t, 0.5, d, 1e-6)
	}
}

func TestDepthTestKeepsNearest(t *testing.T) {
	tgt := clearedTarget(8, 8)
	Triangle(tgt, State{}, fullscreen(0.3), nil)
	stats := Triangle(tgt, State{}, fullscreen(0.6), nil)
	assert.Zero(t, stats.Fragments, "farther triangle must fail the depth test")
	stats = Triangle(tgt, State{}, fullscreen(0.1), nil)
	assert.Equal(t, 64, stats.Fragments)
}

func TestCulling(t *testing.T) {
	tgt := clearedTarget(8, 8)
	stats := Triangle(tgt, State{Cull: CullBack}, reversed(fullscreen(0.5)), nil)
	assert.Equal(t, 1, stats.Culled)
	assert.Zero(t, stats.Fragments)

	// a clockwise front face turns the same triangle around
	stats = Triangle(tgt, State{Cull: CullBack, Front: FrontCW}, reversed(fullscreen(0.5)), nil)
	assert.Equal(t, 64, stats.Fragments)

	tgt = clearedTarget(8, 8)
	stats = Triangle(tgt, State{Cull: CullFront}, fullscreen(0.5), nil)
	assert.Equal(t, 1, stats.Culled)
}

func TestNearClip(t *testing.T) {
	tgt := clearedTarget(32, 32)
	proj := core.PerspectiveZO(mgl32.DegToRad(90), 1, 0.5, 10)

	// the third vertex sits behind the camera
	world := [3]mgl32.Vec3{{-1, -1, -2}, {1, -1, -2}, {0, 3, 2}}
	var tri [3]ClipVertex
	for i, p := range world {
		tri[i] = ClipVertex{Clip: proj.Mul4x1(p.Vec4(1)), Vary: []float32{float32(i)}}
	}

	stats := Triangle(tgt, State{}, tri, func(x, y int, depth float32, vary []float32) {
		require.False(t, math.IsNaN(float64(vary[0])))
		require.GreaterOrEqual(t, depth, float32(0))
		require.LessOrEqual(t, depth, float32(1))
	})
	assert.Equal(t, 1, stats.Clipped)
	assert.Greater(t, stats.Fragments, 0)

	behind := [3]ClipVertex{
		{Clip: proj.Mul4x1(mgl32.Vec4{-1, -1, 2, 1})},
		{Clip: proj.Mul4x1(mgl32.Vec4{1, -1, 2, 1})},
		{Clip: proj.Mul4x1(mgl32.Vec4{0, 1, 2, 1})},
	}
	stats = Triangle(tgt, State{}, behind, nil)
	assert.Zero(t, stats.Fragments)
}

func TestPerspectiveCorrectVaryings(t *testing.T) {
	// A floor quad receding from the camera. View-space depth interpolated as a
	// varying must agree with the linearized hardware depth.
	const near, far = 0.1, 100
	proj := core.PerspectiveZO(mgl32.DegToRad(90), 1, near, far)
	view := mgl32.LookAtV(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, -1}, mgl32.Vec3{0, 1, 0})
	mvp := proj.Mul4(view)

	mesh := &core.Mesh{
		Vertices: []core.Vertex{
			{Position: mgl32.Vec3{-10, 0, -1}},
			{Position: mgl32.Vec3{10, 0, -1}},
			{Position: mgl32.Vec3{10, 0, -21}},
			{Position: mgl32.Vec3{-10, 0, -21}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}

	tgt := clearedTarget(64, 64)
	stats := Mesh(tgt, State{}, mesh, mvp, 1, func(v *core.Vertex, out []float32) {
		out[0] = -v.Position.Z()
	}, func(x, y int, depth float32, vary []float32) {
		linear := near * far / (far - depth*(far-near))
		assert.InEpsilon(t, linear, vary[0], 1e-2, "texel %d,%d", x, y)
	})
	assert.Equal(t, 2, stats.Triangles)
	assert.Greater(t, stats.Fragments, 0)
}
