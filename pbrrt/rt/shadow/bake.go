package shadow

import (
	"context"
	"fmt"

	"github.com/gekko3d/deferred"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/gekko3d/deferred/pbrrt/rt/raster"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// Light-space projections carry an x flip, which reverses winding.
var casterState = raster.State{Cull: raster.CullBack, Front: raster.FrontCW}

// Baker renders shadow casters into per-light depth targets. Lights write
// disjoint slots, so each one is baked on its own goroutine.
type Baker struct {
	Size   int
	Logger deferred.Logger

	maps *Maps
}

func NewBaker(size int, logger deferred.Logger) *Baker {
	if size <= 0 {
		size = DefaultMapSize
	}
	return &Baker{Size: size, Logger: deferred.OrNop(logger)}
}

// Bake clears and re-renders every light of the frame. The returned maps are
// reused across frames while the slot count fits.
func (b *Baker) Bake(ctx context.Context, fc *frame.Context, drawables []*core.Drawable) (*Maps, error) {
	if !b.maps.Fits(b.Size, fc.Lights) {
		b.maps = NewMaps(b.Size, fc.Lights)
		b.Logger.Debugf("shadow: allocated %d directional layers, %d point cubes at %d^2",
			len(b.maps.Directional.Layers), len(b.maps.Point.Cubes), b.Size)
	}
	maps := b.maps

	casters := make([]*core.Drawable, 0, len(drawables))
	for _, d := range drawables {
		if d.CastShadows && d.Mesh != nil {
			casters = append(casters, d)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range fc.Lights.Lights {
		switch l := l.(type) {
		case core.DirectionalLightData:
			g.Go(func() error {
				return bakeDirectional(gctx, maps.Directional.Layers[l.Slot], l, casters)
			})
		case core.PointLightData:
			for face := range 6 {
				g.Go(func() error {
					return bakePointFace(gctx, maps.Point.Cubes[l.Slot][face], l, face, casters)
				})
			}
		default:
			_ = g.Wait()
			return nil, fmt.Errorf("shadow: unsupported light data %T", l)
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("shadow bake: %w", err)
	}
	return maps, nil
}

func bakeDirectional(ctx context.Context, layer *frame.DepthImage, l core.DirectionalLightData, casters []*core.Drawable) error {
	layer.Clear(1)
	tgt := raster.NewTarget(layer)
	for _, d := range casters {
		if err := ctx.Err(); err != nil {
			return err
		}
		mvp := l.ViewProj.Mul4(d.Transform.ObjectToWorld())
		raster.Mesh(tgt, casterState, d.Mesh, mvp, 0, nil, nil)
	}
	return nil
}

// bakePointFace stores the linear light distance normalized by the far plane,
// keeping the nearest value per texel.
func bakePointFace(ctx context.Context, face *frame.DepthImage, l core.PointLightData, index int, casters []*core.Drawable) error {
	face.Clear(1)
	// distances are compared in the fragment callback, projective depth is unused
	tgt := raster.Target{Width: face.Width, Height: face.Height}
	invFar := 1 / l.FarPlane
	for _, d := range casters {
		if err := ctx.Err(); err != nil {
			return err
		}
		model := d.Transform.ObjectToWorld()
		mvp := l.FaceViewProjs[index].Mul4(model)
		raster.Mesh(tgt, casterState, d.Mesh, mvp, 3, func(v *core.Vertex, out []float32) {
			wp := model.Mul4x1(v.Position.Vec4(1)).Vec3()
			copy(out, wp[:])
		}, func(x, y int, _ float32, vary []float32) {
			dist := mgl32.Vec3{vary[0], vary[1], vary[2]}.Sub(l.Position).Len() * invFar
			if dist < face.At(x, y) {
				face.Set(x, y, dist)
			}
		})
	}
	return nil
}
