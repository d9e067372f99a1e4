// Package bvh builds a bounding volume hierarchy over drawable bounds for
// frustum culling.
package bvh

import (
	"sort"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Node is an inner node when Leaf < 0, otherwise a leaf holding the
// index of one input box.
type Node struct {
	Bounds core.AABB
	Left   int32
	Right  int32
	Leaf   int32
}

type item struct {
	bounds   core.AABB
	centroid mgl32.Vec3
	index    int
}

// Tree is a binary BVH; Nodes[0] is the root when the tree is not empty.
type Tree struct {
	Nodes []Node
	count int
}

// Build splits at the centroid median along the longest axis of each node.
func Build(bounds []core.AABB) *Tree {
	t := &Tree{count: len(bounds)}
	if len(bounds) == 0 {
		return t
	}
	items := make([]item, len(bounds))
	for i, b := range bounds {
		items[i] = item{bounds: b, centroid: b.Min.Add(b.Max).Mul(0.5), index: i}
	}
	t.Nodes = make([]Node, 0, 2*len(bounds)-1)
	t.build(items)
	return t
}

func (t *Tree) build(items []item) int32 {
	idx := int32(len(t.Nodes))
	t.Nodes = append(t.Nodes, Node{Left: -1, Right: -1, Leaf: -1})

	b := items[0].bounds
	for _, it := range items[1:] {
		for k := 0; k < 3; k++ {
			b.Min[k] = min(b.Min[k], it.bounds.Min[k])
			b.Max[k] = max(b.Max[k], it.bounds.Max[k])
		}
	}
	t.Nodes[idx].Bounds = b

	if len(items) == 1 {
		t.Nodes[idx].Leaf = int32(items[0].index)
		return idx
	}

	extent := b.Max.Sub(b.Min)
	axis := 0
	if extent.Y() > extent.X() {
		axis = 1
	}
	if extent.Z() > extent[axis] {
		axis = 2
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].centroid[axis] < items[j].centroid[axis]
	})

	mid := len(items) / 2
	left := t.build(items[:mid])
	right := t.build(items[mid:])
	t.Nodes[idx].Left = left
	t.Nodes[idx].Right = right
	return idx
}

// Len is the number of boxes the tree was built from.
func (t *Tree) Len() int { return t.count }

// Frustum calls visit with the index of every box intersecting the
// frustum. Subtrees whose bounds are outside are skipped whole.
func (t *Tree) Frustum(planes [6]mgl32.Vec4, visit func(i int)) {
	if len(t.Nodes) == 0 {
		return
	}
	stack := []int32{0}
	for len(stack) > 0 {
		n := t.Nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if !n.Bounds.InFrustum(planes) {
			continue
		}
		if n.Leaf >= 0 {
			visit(int(n.Leaf))
			continue
		}
		stack = append(stack, n.Right, n.Left)
	}
}

// Visible returns a mask over the input boxes for the frustum.
func (t *Tree) Visible(planes [6]mgl32.Vec4) []bool {
	mask := make([]bool, t.count)
	t.Frustum(planes, func(i int) { mask[i] = true })
	return mask
}
