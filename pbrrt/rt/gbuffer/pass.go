package gbuffer

import (
	"github.com/gekko3d/deferred"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/gekko3d/deferred/pbrrt/rt/raster"
	"github.com/go-gl/mathgl/mgl32"
)

// varying layout: world position, normal, tangent, bitangent, uv
const (
	varyPos     = 0
	varyNormal  = 3
	varyTangent = 6
	varyBitan   = 9
	varyUV      = 12
	varyCount   = 14
)

type Pass struct {
	Logger deferred.Logger
}

func NewPass(logger deferred.Logger) *Pass {
	return &Pass{Logger: deferred.OrNop(logger)}
}

// Run clears g and rasterizes the drawables that intersect the camera frustum.
func (p *Pass) Run(ctx *frame.Context, g *GBuffer, drawables []*core.Drawable) raster.Stats {
	g.Clear()

	planes := core.ExtractFrustum(ctx.Camera.ViewProj)
	tgt := raster.NewTarget(g.Depth)
	state := raster.State{Cull: raster.CullBack}

	var stats raster.Stats
	culled := 0
	for _, d := range drawables {
		if d.Mesh == nil {
			continue
		}
		if !d.WorldBounds().InFrustum(planes) {
			culled++
			continue
		}
		stats.Add(p.draw(ctx, g, tgt, state, d))
	}
	p.Logger.Debugf("gbuffer: %d drawables, %d frustum-culled, %d fragments", len(drawables)-culled, culled, stats.Fragments)
	return stats
}

func (p *Pass) draw(ctx *frame.Context, g *GBuffer, tgt raster.Target, state raster.State, d *core.Drawable) raster.Stats {
	model := d.Transform.ObjectToWorld()
	normalMat := d.Transform.NormalMatrix()
	model3 := model.Mat3()
	mvp := ctx.Camera.ViewProj.Mul4(model)
	mat := d.Material
	normalMapped := mat.HasNormalMap()

	varying := func(v *core.Vertex, out []float32) {
		wp := model.Mul4x1(v.Position.Vec4(1)).Vec3()
		n := normalMat.Mul3x1(v.Normal)
		t := model3.Mul3x1(v.Tangent)
		b := model3.Mul3x1(v.Bitangent)
		copy(out[varyPos:], wp[:])
		copy(out[varyNormal:], n[:])
		copy(out[varyTangent:], t[:])
		copy(out[varyBitan:], b[:])
		out[varyUV] = v.UV.X()
		out[varyUV+1] = v.UV.Y()
	}

	frag := func(x, y int, depth float32, vary []float32) {
		wp := vec3(vary, varyPos)
		n := vec3(vary, varyNormal).Normalize()
		uv := mgl32.Vec2{vary[varyUV], vary[varyUV+1]}

		if normalMapped {
			t := vec3(vary, varyTangent)
			b := vec3(vary, varyBitan)
			if t.Len() > 0 && b.Len() > 0 {
				ts := mat.TangentNormal(uv)
				mapped := t.Normalize().Mul(ts.X()).Add(b.Normalize().Mul(ts.Y())).Add(n.Mul(ts.Z()))
				if mapped.Len() > 0 {
					n = mapped.Normalize()
				}
			}
		}

		s := mat.Evaluate(uv)
		g.Position.Set(x, y, wp.Vec4(1))
		g.Normal.Set(x, y, n.Vec4(0))
		g.Albedo.Set(x, y, s.Albedo.Vec4(1))
		g.Material.Set(x, y, PackRMA(s.Roughness, s.Metalness, s.AO))
	}

	return raster.Mesh(tgt, state, d.Mesh, mvp, varyCount, varying, frag)
}

func vec3(v []float32, at int) mgl32.Vec3 {
	return mgl32.Vec3{v[at], v[at+1], v[at+2]}
}
