package post

import (
	"github.com/chewxy/math32"
	"github.com/gekko3d/deferred"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/gekko3d/deferred/pbrrt/rt/gbuffer"
	"github.com/gekko3d/deferred/pbrrt/rt/pbr"
	"github.com/go-gl/mathgl/mgl32"
)

// SSRInputs are read by the reflection pass. Color is the lit frame and is
// never written; Mips, when present, starts with Color.
type SSRInputs struct {
	GBuffer *gbuffer.GBuffer
	Color   *frame.Image
	Mips    []*frame.Image
}

type SSRPass struct {
	Dispatcher *frame.Dispatcher
	Logger     deferred.Logger
}

func NewSSRPass(d *frame.Dispatcher, logger deferred.Logger) *SSRPass {
	return &SSRPass{Dispatcher: d, Logger: deferred.OrNop(logger)}
}

// Hit is the outcome of one reflection march.
type Hit struct {
	OK    bool
	UV    mgl32.Vec2
	Steps int
}

// Run writes Color blended with its screen-space reflection into out.
// Texels whose ray misses keep the source colour.
func (p *SSRPass) Run(ctx *frame.Context, in SSRInputs, out *frame.Image) {
	mips := in.Mips
	if len(mips) == 0 {
		mips = []*frame.Image{in.Color}
	}
	strength := ctx.Params.SSRStrength
	g := in.GBuffer

	p.Dispatcher.Dispatch(out.Width, out.Height, func(x, y int) {
		src := in.Color.At(x, y)
		if strength <= 0 || g == nil || !g.Valid(x, y) {
			out.Set(x, y, src)
			return
		}
		t := g.Fetch(x, y)
		gloss := (1 - t.Roughness) * (1 - t.Roughness)
		if gloss <= 0 {
			out.Set(x, y, src)
			return
		}

		hit := March(ctx, g, t.Position, t.Normal)
		if !hit.OK {
			out.Set(x, y, src)
			return
		}

		level := int(math32.Round(t.Roughness * float32(len(mips)-1)))
		reflected := mips[level].Sample(hit.UV)

		v := ctx.Camera.Position.Sub(t.Position).Normalize()
		f := pbr.FresnelSchlick(max(t.Normal.Dot(v), 0), pbr.BaseReflectivity(t.Albedo, t.Metalness))
		out.Set(x, y, lerp4(src, reflected, f.Mul(strength*gloss)))
	})
}

// March walks the reflection of the view ray at p in texture space, one
// texel or more per step, and reports the first texel whose scene depth lies
// within the thickness tolerance behind the ray.
func March(ctx *frame.Context, g *gbuffer.GBuffer, p, n mgl32.Vec3) Hit {
	cam := ctx.Camera
	params := ctx.Params
	if params.SSRMaxSteps == 0 || params.SSRMaxDistance <= 0 {
		return Hit{}
	}

	view := p.Sub(cam.Position)
	if view.Len() == 0 || n.Len() == 0 {
		return Hit{}
	}
	view = view.Normalize()
	n = n.Normalize()
	r := view.Sub(n.Mul(2 * view.Dot(n)))

	start := p
	end := p.Add(r.Mul(params.SSRMaxDistance))

	uvS, dS, wS := core.ProjectToTexture(cam.ViewProj, start)
	if wS <= 0 {
		return Hit{}
	}
	_, _, wE := core.ProjectToTexture(cam.ViewProj, end)
	if wE < cam.Near {
		// pull the end point in front of the near plane
		s := (wS - cam.Near) / (wS - wE)
		end = p.Add(r.Mul(params.SSRMaxDistance * s * 0.99))
	}
	uvE, dE, _ := core.ProjectToTexture(cam.ViewProj, end)

	w, h := float32(g.Width), float32(g.Height)
	dx := (uvE.X() - uvS.X()) * w
	dy := (uvE.Y() - uvS.Y()) * h
	texels := max(math32.Abs(dx), math32.Abs(dy))
	steps := min(int(math32.Floor(texels)), int(params.SSRMaxSteps))
	if steps < 1 {
		return Hit{}
	}
	// at least one texel per step
	inc := 1 / float32(steps)

	for i := 1; i <= steps; i++ {
		s := float32(i) * inc
		uv := uvS.Add(uvE.Sub(uvS).Mul(s))
		if uv.X() < 0 || uv.X() >= 1 || uv.Y() < 0 || uv.Y() >= 1 {
			return Hit{Steps: i}
		}
		px, py := int(uv.X()*w), int(uv.Y()*h)
		if !g.Valid(px, py) {
			continue
		}
		rayDepth := dS + (dE-dS)*s
		diff := cam.LinearDepth(rayDepth) - cam.LinearDepth(g.Depth.At(px, py))
		if diff > 0 && diff < params.SSRThickness {
			return Hit{OK: true, UV: uv, Steps: i}
		}
	}
	return Hit{Steps: steps}
}
