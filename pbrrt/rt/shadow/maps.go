package shadow

import (
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
)

const DefaultMapSize = 1024

// DepthArray is a layered 2D depth texture, one layer per directional shadow slot.
// Layers store NDC depth from the light's orthographic projection.
type DepthArray struct {
	Size   int
	Layers []*frame.DepthImage
}

func NewDepthArray(size, layers int) *DepthArray {
	a := &DepthArray{Size: size, Layers: make([]*frame.DepthImage, max(layers, 1))}
	for i := range a.Layers {
		a.Layers[i] = frame.NewDepthImage(size, size)
		a.Layers[i].Clear(1)
	}
	return a
}

// DepthCubeArray holds one depth cube per point shadow slot. Texels store
// distance(fragment, light) / far, not projective depth.
type DepthCubeArray struct {
	Size  int
	Cubes [][6]*frame.DepthImage
}

func NewDepthCubeArray(size, cubes int) *DepthCubeArray {
	a := &DepthCubeArray{Size: size, Cubes: make([][6]*frame.DepthImage, max(cubes, 1))}
	for i := range a.Cubes {
		for f := range a.Cubes[i] {
			a.Cubes[i][f] = frame.NewDepthImage(size, size)
			a.Cubes[i][f].Clear(1)
		}
	}
	return a
}

// Face returns the depth image of one cube face.
func (a *DepthCubeArray) Face(slot int, face core.CubeFace) *frame.DepthImage {
	return a.Cubes[slot][face]
}

// Maps are the shadow resources consumed by the lighting pass.
type Maps struct {
	Directional *DepthArray
	Point       *DepthCubeArray
}

func NewMaps(size int, snap core.LightSnapshot) *Maps {
	return &Maps{
		Directional: NewDepthArray(size, snap.DirectionSlots),
		Point:       NewDepthCubeArray(size, snap.PointSlots),
	}
}

// Fits reports whether m already has room for every slot of snap at size.
func (m *Maps) Fits(size int, snap core.LightSnapshot) bool {
	return m != nil &&
		m.Directional.Size == size && len(m.Directional.Layers) >= snap.DirectionSlots &&
		m.Point.Size == size && len(m.Point.Cubes) >= snap.PointSlots
}
