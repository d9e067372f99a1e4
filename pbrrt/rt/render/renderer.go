// Package render drives the CPU reference pipeline: shadow bake, geometry
// pass, irradiance, lighting, reflections, tone mapping and picking, in that
// order, over explicit per-frame contexts.
package render

import (
	"context"
	"fmt"

	"github.com/gekko3d/deferred"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/gekko3d/deferred/pbrrt/rt/gbuffer"
	"github.com/gekko3d/deferred/pbrrt/rt/ibl"
	"github.com/gekko3d/deferred/pbrrt/rt/pbr"
	"github.com/gekko3d/deferred/pbrrt/rt/picking"
	"github.com/gekko3d/deferred/pbrrt/rt/post"
	"github.com/gekko3d/deferred/pbrrt/rt/shadow"
	"github.com/google/uuid"
)

type Options struct {
	Workers        int
	ShadowMapSize  int
	IrradianceSize int

	// Capacity of the light buffers; zero uses the core defaults.
	MaxPointLights       int
	MaxDirectionalLights int

	Logger deferred.Logger
}

// Frame is the output of one Render call. Images are owned by the renderer
// and stay valid until the next call.
type Frame struct {
	Context *frame.Context
	GBuffer *gbuffer.GBuffer
	Shadows *shadow.Maps
	Lit     *frame.Image // lighting output
	HDR     *frame.Image // lighting with reflections
	LDR     *frame.Image // tone mapped and gamma corrected
	Picking *picking.Buffer
}

// Pick resolves the drawable under (x, y) when picking was enabled.
func (f *Frame) Pick(scene *core.Scene, x, y int) (uuid.UUID, bool) {
	if f.Picking == nil {
		return uuid.Nil, false
	}
	return picking.Pick(scene, f.Picking, x, y)
}

type Renderer struct {
	Logger   deferred.Logger
	Profiler *deferred.Profiler

	dispatcher *frame.Dispatcher
	baker      *shadow.Baker
	geometry   *gbuffer.Pass
	lighting   *pbr.LightingPass
	ssr        *post.SSRPass
	tonemap    *post.ToneMapPass
	pick       *picking.Pass
	irradiance *ibl.Cache

	maxPoint       int
	maxDirectional int

	frameIndex uint64
	width      int
	height     int
	gbuf       *gbuffer.GBuffer
	lit        *frame.Image
	hdr        *frame.Image
	ldr        *frame.Image
	ids        *picking.Buffer
}

func New(opts Options) *Renderer {
	logger := deferred.OrNop(opts.Logger)
	d := frame.NewDispatcher(opts.Workers)
	irrSize := opts.IrradianceSize
	if irrSize <= 0 {
		irrSize = ibl.DefaultIrradianceSize
	}
	r := &Renderer{
		Logger:         logger,
		Profiler:       deferred.NewProfiler(),
		dispatcher:     d,
		baker:          shadow.NewBaker(opts.ShadowMapSize, logger),
		geometry:       gbuffer.NewPass(logger),
		lighting:       pbr.NewLightingPass(d, logger),
		ssr:            post.NewSSRPass(d, logger),
		tonemap:        &post.ToneMapPass{Dispatcher: d},
		pick:           picking.NewPass(logger),
		irradiance:     ibl.NewCache(irrSize, d, logger),
		maxPoint:       opts.MaxPointLights,
		maxDirectional: opts.MaxDirectionalLights,
	}
	if r.maxPoint <= 0 {
		r.maxPoint = core.MaxPointLights
	}
	if r.maxDirectional <= 0 {
		r.maxDirectional = core.MaxDirectionalLights
	}
	return r
}

func (r *Renderer) Dispatcher() *frame.Dispatcher {
	return r.dispatcher
}

func (r *Renderer) resize(width, height int) {
	if r.gbuf != nil && r.width == width && r.height == height {
		return
	}
	r.width, r.height = width, height
	r.gbuf = gbuffer.New(width, height)
	r.lit = frame.NewImage(width, height)
	r.hdr = frame.NewImage(width, height)
	r.ldr = frame.NewImage(width, height)
	r.ids = nil
	r.Logger.Debugf("render: targets resized to %dx%d", width, height)
}

func (r *Renderer) checkCapacity(snap core.LightSnapshot) error {
	if n := len(snap.Points()); n > r.maxPoint || snap.PointSlots > r.maxPoint {
		return fmt.Errorf("%w: %d point lights, capacity %d", core.ErrLightCapacity, n, r.maxPoint)
	}
	if n := len(snap.Directionals()); n > r.maxDirectional || snap.DirectionSlots > r.maxDirectional {
		return fmt.Errorf("%w: %d directional lights, capacity %d", core.ErrLightCapacity, n, r.maxDirectional)
	}
	return nil
}

// Render produces one frame. Configuration errors (light capacity, invalid
// params or size) are returned before any pass runs.
func (r *Renderer) Render(ctx context.Context, scene *core.Scene, camera *core.CameraState, width, height int, params core.RenderParams) (*Frame, error) {
	fc, err := frame.NewContext(r.frameIndex, width, height, camera, scene.Lights, params)
	if err != nil {
		return nil, err
	}
	if err := r.checkCapacity(fc.Lights); err != nil {
		return nil, err
	}
	r.frameIndex++
	r.resize(width, height)
	prof := r.Profiler
	prof.Reset()

	done := prof.Scope("shadows")
	maps, err := r.baker.Bake(ctx, fc, scene.Drawables)
	done()
	if err != nil {
		return nil, err
	}

	done = prof.Scope("gbuffer")
	stats := r.geometry.Run(fc, r.gbuf, scene.Drawables)
	done()
	prof.SetCount("triangles", stats.Triangles)
	prof.SetCount("fragments", stats.Fragments)

	done = prof.Scope("irradiance")
	irr := r.irradiance.Irradiance(scene.Environment, scene.EnvironmentVersion)
	done()

	done = prof.Scope("lighting")
	r.lighting.Run(fc, pbr.Inputs{
		GBuffer:     r.gbuf,
		Shadows:     maps,
		Irradiance:  irr,
		Environment: scene.Environment,
	}, r.lit)
	done()

	done = prof.Scope("downsample")
	mips := post.BuildMipChain(r.lit, post.MipLevels(width, height), r.dispatcher)
	done()
	prof.SetCount("mips", len(mips))

	done = prof.Scope("ssr")
	r.ssr.Run(fc, post.SSRInputs{GBuffer: r.gbuf, Color: r.lit, Mips: mips}, r.hdr)
	done()

	done = prof.Scope("tonemap")
	r.tonemap.Run(fc, r.hdr, r.ldr)
	done()

	out := &Frame{
		Context: fc,
		GBuffer: r.gbuf,
		Shadows: maps,
		Lit:     r.lit,
		HDR:     r.hdr,
		LDR:     r.ldr,
	}

	if params.Picking {
		if r.ids == nil {
			r.ids = picking.NewBuffer(width, height)
		}
		done = prof.Scope("picking")
		r.pick.Run(fc, r.ids, scene.Drawables)
		done()
		out.Picking = r.ids
	}

	prof.SetCount("lights", len(fc.Lights.Lights))
	prof.SetCount("drawables", len(scene.Drawables))
	prof.Log(r.Logger)
	return out, nil
}
