package picking

import (
	"testing"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickingPass(t *testing.T) {
	scene := core.NewScene()
	left := scene.Add("left", core.NewCube(1), core.NewTransformAt(mgl32.Vec3{-1.5, 0, 0}), core.DefaultMaterial())
	right := scene.Add("right", core.NewCube(1), core.NewTransformAt(mgl32.Vec3{1.5, 0, 0}), core.DefaultMaterial())

	cam := core.NewCameraState()
	cam.Position = mgl32.Vec3{0, 0, 6}
	cam.LookAt(mgl32.Vec3{})
	ctx, err := frame.NewContext(0, 32, 16, cam, nil, core.DefaultRenderParams())
	require.NoError(t, err)

	b := NewBuffer(32, 16)
	stats := NewPass(nil).Run(ctx, b, scene.Drawables)
	require.Greater(t, stats.Fragments, 0)

	// the cubes sit left and right of the centre column
	assert.Equal(t, left.PickID, b.Lookup(12, 8))
	assert.Equal(t, right.PickID, b.Lookup(19, 8))
	assert.Equal(t, uint32(0), b.Lookup(16, 8))
	assert.Equal(t, uint32(0), b.Lookup(0, 0))
	assert.Equal(t, uint32(0), b.Lookup(-1, 99))

	id, ok := Pick(scene, b, 19, 8)
	require.True(t, ok)
	assert.Equal(t, right.ID, id)
	_, ok = Pick(scene, b, 16, 8)
	assert.False(t, ok)
}

func TestReadbackStateMachine(t *testing.T) {
	var r Readback
	assert.Equal(t, ReadbackIdle, r.State())
	_, _, ok := r.Pending()
	assert.False(t, ok)

	require.True(t, r.Request(3, 4))
	assert.False(t, r.Request(5, 6), "one read in flight")
	x, y, ok := r.Pending()
	require.True(t, ok)
	assert.Equal(t, [2]int{3, 4}, [2]int{x, y})

	r.Submitted()
	assert.Equal(t, ReadbackMapping, r.State())
	_, ok = r.Take()
	assert.False(t, ok)

	r.Complete(42, true)
	assert.Equal(t, ReadbackMapped, r.State())
	v, ok := r.Take()
	require.True(t, ok)
	assert.Equal(t, uint32(42), v)
	assert.Equal(t, ReadbackIdle, r.State())

	// a failed map rearms without a value
	require.True(t, r.Request(0, 0))
	r.Submitted()
	r.Complete(0, false)
	assert.Equal(t, ReadbackIdle, r.State())
	assert.Equal(t, "idle", r.State().String())
}
