// Package picking renders per-pixel object identifiers for editor selection.
package picking

import (
	"github.com/gekko3d/deferred"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/gekko3d/deferred/pbrrt/rt/raster"
	"github.com/google/uuid"
)

// Buffer is the picking target: one PickID per pixel, 0 where nothing was drawn.
type Buffer struct {
	IDs   *frame.IDImage
	Depth *frame.DepthImage
}

func NewBuffer(width, height int) *Buffer {
	return &Buffer{IDs: frame.NewIDImage(width, height), Depth: frame.NewDepthImage(width, height)}
}

// Lookup returns the id under (x, y), or 0 outside the buffer.
func (b *Buffer) Lookup(x, y int) uint32 {
	if b == nil || x < 0 || y < 0 || x >= b.IDs.Width || y >= b.IDs.Height {
		return 0
	}
	return b.IDs.At(x, y)
}

type Pass struct {
	Logger deferred.Logger
}

func NewPass(logger deferred.Logger) *Pass {
	return &Pass{Logger: deferred.OrNop(logger)}
}

// Run rasterizes the PickID of every drawable with the camera transform and
// the same culling as the geometry pass. No shading takes place.
func (p *Pass) Run(ctx *frame.Context, b *Buffer, drawables []*core.Drawable) raster.Stats {
	b.IDs.Clear()
	b.Depth.Clear(1)
	tgt := raster.NewTarget(b.Depth)
	state := raster.State{Cull: raster.CullBack}
	planes := core.ExtractFrustum(ctx.Camera.ViewProj)

	var stats raster.Stats
	for _, d := range drawables {
		if d.Mesh == nil || d.PickID == 0 || !d.WorldBounds().InFrustum(planes) {
			continue
		}
		id := d.PickID
		mvp := ctx.Camera.ViewProj.Mul4(d.Transform.ObjectToWorld())
		stats.Add(raster.Mesh(tgt, state, d.Mesh, mvp, 0, nil, func(x, y int, _ float32, _ []float32) {
			b.IDs.Set(x, y, id)
		}))
	}
	return stats
}

// Pick resolves the drawable under (x, y).
func Pick(scene *core.Scene, b *Buffer, x, y int) (uuid.UUID, bool) {
	d := scene.FindByPickID(b.Lookup(x, y))
	if d == nil {
		return uuid.Nil, false
	}
	return d.ID, true
}
