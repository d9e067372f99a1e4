package pbr

import (
	"github.com/gekko3d/deferred"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/gekko3d/deferred/pbrrt/rt/gbuffer"
	"github.com/gekko3d/deferred/pbrrt/rt/shadow"
	"github.com/go-gl/mathgl/mgl32"
)

// Inputs are the read-only resources of the lighting pass. Shadows,
// Irradiance and Environment may be nil.
type Inputs struct {
	GBuffer     *gbuffer.GBuffer
	Shadows     *shadow.Maps
	Irradiance  *core.Cubemap
	Environment *core.Cubemap
}

type LightingPass struct {
	Dispatcher *frame.Dispatcher
	Logger     deferred.Logger
}

func NewLightingPass(d *frame.Dispatcher, logger deferred.Logger) *LightingPass {
	return &LightingPass{Dispatcher: d, Logger: deferred.OrNop(logger)}
}

// Run shades every texel of out. Texels without geometry receive the
// environment along the camera ray, or black.
func (p *LightingPass) Run(ctx *frame.Context, in Inputs, out *frame.Image) {
	if in.GBuffer == nil {
		out.Clear(mgl32.Vec4{0, 0, 0, 1})
		return
	}
	w := min(out.Width, in.GBuffer.Width)
	h := min(out.Height, in.GBuffer.Height)

	var dirMaps *shadow.DepthArray
	var pointMaps *shadow.DepthCubeArray
	if in.Shadows != nil {
		dirMaps, pointMaps = in.Shadows.Directional, in.Shadows.Point
	}

	p.Dispatcher.Dispatch(w, h, func(x, y int) {
		t := in.GBuffer.Fetch(x, y)
		if !t.Valid {
			out.Set(x, y, background(ctx, in.Environment, x, y))
			return
		}
		s := Surface{
			Position:  t.Position,
			Normal:    safeNormalize(t.Normal),
			Albedo:    t.Albedo,
			Roughness: t.Roughness,
			Metalness: t.Metalness,
			AO:        t.AO,
		}
		color := Shade(ctx, s, dirMaps, pointMaps, in.Irradiance)
		out.Set(x, y, color.Vec4(1))
	})
}

// Shade evaluates ambient plus every light of the frame for one surface point.
func Shade(ctx *frame.Context, s Surface, dirMaps *shadow.DepthArray, pointMaps *shadow.DepthCubeArray, irradiance *core.Cubemap) mgl32.Vec3 {
	v := safeNormalize(ctx.Camera.Position.Sub(s.Position))

	var irr mgl32.Vec3
	if irradiance != nil {
		irr = irradiance.Sample(s.Normal).Vec3()
	}
	color := Ambient(s, v, irr)

	for _, l := range ctx.Lights.Lights {
		switch l := l.(type) {
		case core.PointLightData:
			toLight := l.Position.Sub(s.Position)
			dist := toLight.Len()
			if dist == 0 {
				continue
			}
			vis := shadow.SamplePoint(pointMaps, l, s.Position, ctx.Params.PointShadowBias)
			if vis <= 0 {
				continue
			}
			radiance := l.Color.Mul(InverseSquare(dist) * vis)
			color = color.Add(Direct(s, v, toLight.Mul(1/dist), radiance))
		case core.DirectionalLightData:
			vis := shadow.SampleDirectional(dirMaps, l, s.Position, ctx.Params.DirectionalShadowBias)
			if vis <= 0 {
				continue
			}
			color = color.Add(Direct(s, v, l.Direction.Mul(-1), l.Color.Mul(vis)))
		}
	}
	return color
}

func background(ctx *frame.Context, env *core.Cubemap, x, y int) mgl32.Vec4 {
	if env == nil {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	ray := ctx.Camera.Ray(core.TexelCenter(x, y, ctx.Width, ctx.Height))
	c := env.Sample(ray)
	return mgl32.Vec4{c.X(), c.Y(), c.Z(), 1}
}

func safeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	if l := v.Len(); l > 0 {
		return v.Mul(1 / l)
	}
	return mgl32.Vec3{0, 1, 0}
}
