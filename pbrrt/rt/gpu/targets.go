package gpu

import (
	"fmt"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/post"

	"github.com/cogentcore/webgpu/wgpu"
)

// Target is a texture with its default view and optional per-layer or
// per-mip views.
type Target struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Format  wgpu.TextureFormat
	Width   uint32
	Height  uint32

	Layers   []*wgpu.TextureView // single-layer 2D views
	MipViews []*wgpu.TextureView // single-mip 2D views
}

type targetDesc struct {
	label     string
	width     uint32
	height    uint32
	layers    uint32
	mips      uint32
	format    wgpu.TextureFormat
	usage     wgpu.TextureUsage
	dimension wgpu.TextureViewDimension
	aspect    wgpu.TextureAspect

	layerViews bool
	mipViews   bool
}

func newTarget(device *wgpu.Device, d targetDesc) (*Target, error) {
	layers := max(d.layers, 1)
	mips := max(d.mips, 1)
	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         d.label,
		Size:          wgpu.Extent3D{Width: d.width, Height: d.height, DepthOrArrayLayers: layers},
		MipLevelCount: mips,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        d.format,
		Usage:         d.usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", d.label, err)
	}
	t := &Target{Texture: tex, Format: d.format, Width: d.width, Height: d.height}

	t.View, err = tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           d.label + " View",
		Format:          d.format,
		Dimension:       d.dimension,
		BaseMipLevel:    0,
		MipLevelCount:   mips,
		BaseArrayLayer:  0,
		ArrayLayerCount: layers,
		Aspect:          d.aspect,
	})
	if err != nil {
		t.Release()
		return nil, fmt.Errorf("create %s view: %w", d.label, err)
	}

	if d.layerViews {
		t.Layers = make([]*wgpu.TextureView, layers)
		for i := uint32(0); i < layers; i++ {
			t.Layers[i], err = tex.CreateView(&wgpu.TextureViewDescriptor{
				Label:           fmt.Sprintf("%s Layer %d", d.label, i),
				Format:          d.format,
				Dimension:       wgpu.TextureViewDimension2D,
				BaseMipLevel:    0,
				MipLevelCount:   1,
				BaseArrayLayer:  i,
				ArrayLayerCount: 1,
				Aspect:          d.aspect,
			})
			if err != nil {
				t.Release()
				return nil, fmt.Errorf("create %s layer %d: %w", d.label, i, err)
			}
		}
	}
	if d.mipViews {
		t.MipViews = make([]*wgpu.TextureView, mips)
		for i := uint32(0); i < mips; i++ {
			t.MipViews[i], err = tex.CreateView(&wgpu.TextureViewDescriptor{
				Label:           fmt.Sprintf("%s Mip %d", d.label, i),
				Format:          d.format,
				Dimension:       wgpu.TextureViewDimension2D,
				BaseMipLevel:    i,
				MipLevelCount:   1,
				BaseArrayLayer:  0,
				ArrayLayerCount: 1,
				Aspect:          d.aspect,
			})
			if err != nil {
				t.Release()
				return nil, fmt.Errorf("create %s mip %d: %w", d.label, i, err)
			}
		}
	}
	return t, nil
}

func (t *Target) Release() {
	if t == nil {
		return
	}
	for _, v := range t.Layers {
		if v != nil {
			v.Release()
		}
	}
	for _, v := range t.MipViews {
		if v != nil {
			v.Release()
		}
	}
	if t.View != nil {
		t.View.Release()
	}
	if t.Texture != nil {
		t.Texture.Release()
	}
	t.Layers, t.MipViews, t.View, t.Texture = nil, nil, nil, nil
}

// MipSize returns the extent of mip level i.
func (t *Target) MipSize(i int) (uint32, uint32) {
	return max(t.Width>>i, 1), max(t.Height>>i, 1)
}

const (
	PositionFormat = wgpu.TextureFormatRGBA32Float
	GBufferFormat  = wgpu.TextureFormatRGBA16Float
	DepthFormat    = wgpu.TextureFormatDepth32Float
	HDRFormat      = wgpu.TextureFormatRGBA16Float
	LDRFormat      = wgpu.TextureFormatRGBA8Unorm
	PickFormat     = wgpu.TextureFormatR32Uint
)

// GBufferTargets are the geometry pass attachments. Position.w is 1 where
// geometry was rasterized and 0 elsewhere.
type GBufferTargets struct {
	Position *Target
	Normal   *Target
	Albedo   *Target
	Material *Target // r roughness, g metalness, b ambient occlusion
	Depth    *Target
}

func NewGBufferTargets(device *wgpu.Device, width, height uint32) (*GBufferTargets, error) {
	color := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	g := &GBufferTargets{}
	specs := []struct {
		dst    **Target
		label  string
		format wgpu.TextureFormat
		aspect wgpu.TextureAspect
	}{
		{&g.Position, "GBuffer Position", PositionFormat, wgpu.TextureAspectAll},
		{&g.Normal, "GBuffer Normal", GBufferFormat, wgpu.TextureAspectAll},
		{&g.Albedo, "GBuffer Albedo", GBufferFormat, wgpu.TextureAspectAll},
		{&g.Material, "GBuffer Material", GBufferFormat, wgpu.TextureAspectAll},
		{&g.Depth, "GBuffer Depth", DepthFormat, wgpu.TextureAspectDepthOnly},
	}
	for _, s := range specs {
		t, err := newTarget(device, targetDesc{
			label:     s.label,
			width:     width,
			height:    height,
			format:    s.format,
			usage:     color,
			dimension: wgpu.TextureViewDimension2D,
			aspect:    s.aspect,
		})
		if err != nil {
			g.Release()
			return nil, err
		}
		*s.dst = t
	}
	return g, nil
}

func (g *GBufferTargets) Release() {
	if g == nil {
		return
	}
	for _, t := range []*Target{g.Position, g.Normal, g.Albedo, g.Material, g.Depth} {
		t.Release()
	}
}

// ShadowTargets hold the directional depth array (one layer per slot) and
// the point depth cube array (six layers per slot).
type ShadowTargets struct {
	Size        uint32
	Directional *Target
	Point       *Target

	directionalSlots int
	pointSlots       int
}

func NewShadowTargets(device *wgpu.Device, size uint32, directionalSlots, pointSlots int) (*ShadowTargets, error) {
	directionalSlots = max(directionalSlots, 1)
	pointSlots = max(pointSlots, 1)
	usage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding

	dir, err := newTarget(device, targetDesc{
		label:      "Directional Shadow Maps",
		width:      size,
		height:     size,
		layers:     uint32(directionalSlots),
		format:     DepthFormat,
		usage:      usage,
		dimension:  wgpu.TextureViewDimension2DArray,
		aspect:     wgpu.TextureAspectDepthOnly,
		layerViews: true,
	})
	if err != nil {
		return nil, err
	}
	point, err := newTarget(device, targetDesc{
		label:      "Point Shadow Cubes",
		width:      size,
		height:     size,
		layers:     uint32(pointSlots * 6),
		format:     DepthFormat,
		usage:      usage,
		dimension:  wgpu.TextureViewDimensionCubeArray,
		aspect:     wgpu.TextureAspectDepthOnly,
		layerViews: true,
	})
	if err != nil {
		dir.Release()
		return nil, err
	}
	return &ShadowTargets{
		Size:             size,
		Directional:      dir,
		Point:            point,
		directionalSlots: directionalSlots,
		pointSlots:       pointSlots,
	}, nil
}

// Fits reports whether every shadow slot of snap has a layer.
func (s *ShadowTargets) Fits(snap core.LightSnapshot) bool {
	return s != nil && snap.DirectionSlots <= s.directionalSlots && snap.PointSlots <= s.pointSlots
}

// LayerView returns the attachment view a shadow view renders into.
func (s *ShadowTargets) LayerView(v ShadowView) *wgpu.TextureView {
	if v.Kind == core.LightKindPoint {
		return s.Point.Layers[v.Layer]
	}
	return s.Directional.Layers[v.Layer]
}

func (s *ShadowTargets) Release() {
	if s == nil {
		return
	}
	s.Directional.Release()
	s.Point.Release()
}

// ColorTargets are the screen-sized outputs after the GBuffer: Lit carries
// the full mip chain read by SSR, HDR receives SSR, LDR the tone mapped
// result and Pick the object ids.
type ColorTargets struct {
	Lit  *Target
	HDR  *Target
	LDR  *Target
	Pick *Target
}

func NewColorTargets(device *wgpu.Device, width, height uint32) (*ColorTargets, error) {
	storage := wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding
	c := &ColorTargets{}
	specs := []struct {
		dst  **Target
		desc targetDesc
	}{
		{&c.Lit, targetDesc{
			label:     "Lit",
			mips:      uint32(post.MipLevels(int(width), int(height))),
			format:    HDRFormat,
			usage:     storage,
			mipViews:  true,
			dimension: wgpu.TextureViewDimension2D,
		}},
		{&c.HDR, targetDesc{label: "HDR", format: HDRFormat, usage: storage, dimension: wgpu.TextureViewDimension2D}},
		{&c.LDR, targetDesc{label: "LDR", format: LDRFormat, usage: storage, dimension: wgpu.TextureViewDimension2D}},
		{&c.Pick, targetDesc{
			label:     "Pick IDs",
			format:    PickFormat,
			usage:     wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
			dimension: wgpu.TextureViewDimension2D,
		}},
	}
	for _, s := range specs {
		s.desc.width, s.desc.height = width, height
		s.desc.aspect = wgpu.TextureAspectAll
		t, err := newTarget(device, s.desc)
		if err != nil {
			c.Release()
			return nil, err
		}
		*s.dst = t
	}
	return c, nil
}

func (c *ColorTargets) Release() {
	if c == nil {
		return
	}
	for _, t := range []*Target{c.Lit, c.HDR, c.LDR, c.Pick} {
		t.Release()
	}
}
