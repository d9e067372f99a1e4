package bvh

import (
	"testing"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(x float32) core.AABB {
	return core.AABB{Min: mgl32.Vec3{x - 1, -1, -1}, Max: mgl32.Vec3{x + 1, 1, 1}}
}

func TestTwoObjectsSplit(t *testing.T) {
	tree := Build([]core.AABB{box(-100), box(100)})
	require.Len(t, tree.Nodes, 3)

	root := tree.Nodes[0]
	assert.Equal(t, int32(-1), root.Leaf)
	assert.LessOrEqual(t, root.Bounds.Min.X(), float32(-101))
	assert.GreaterOrEqual(t, root.Bounds.Max.X(), float32(101))

	left, right := tree.Nodes[root.Left], tree.Nodes[root.Right]
	assert.Equal(t, int32(0), left.Leaf)
	assert.Equal(t, int32(1), right.Leaf)
	assert.Less(t, left.Bounds.Max.X(), right.Bounds.Min.X())
}

func TestEmpty(t *testing.T) {
	tree := Build(nil)
	assert.Empty(t, tree.Nodes)
	assert.Empty(t, tree.Visible([6]mgl32.Vec4{}))
}

func TestFrustumMatchesLinearCull(t *testing.T) {
	var bounds []core.AABB
	for i := -10; i <= 10; i++ {
		bounds = append(bounds, box(float32(i)*3))
	}
	tree := Build(bounds)
	require.Len(t, tree.Nodes, 2*len(bounds)-1)

	cam := core.NewCameraState()
	cam.Position = mgl32.Vec3{0, 0, 10}
	cam.Fov = mgl32.DegToRad(40)
	planes := core.ExtractFrustum(cam.Data(1).ViewProj)

	mask := tree.Visible(planes)
	visible := 0
	for i, b := range bounds {
		assert.Equal(t, b.InFrustum(planes), mask[i], "box %d", i)
		if mask[i] {
			visible++
		}
	}
	assert.Greater(t, visible, 0)
	assert.Less(t, visible, len(bounds))
}
