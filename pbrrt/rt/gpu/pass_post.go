package gpu

import (
	"fmt"

	"github.com/gekko3d/deferred/pbrrt/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

// DownsamplePass fills mips 1..N of a target from mip 0 with a 2x2 box
// filter. Bind groups are cached per mip pair until the target changes.
type DownsamplePass struct {
	BGL      *wgpu.BindGroupLayout
	Pipeline *wgpu.ComputePipeline

	target *Target
	groups []*wgpu.BindGroup
}

func NewDownsamplePass(device *wgpu.Device) (*DownsamplePass, error) {
	bgl, err := createLayout(device, "Downsample BGL",
		textureEntry(0, wgpu.ShaderStageCompute, wgpu.TextureSampleTypeUnfilterableFloat, wgpu.TextureViewDimension2D),
		storageEntry(1, HDRFormat, wgpu.TextureViewDimension2D),
	)
	if err != nil {
		return nil, err
	}
	pipeline, err := createComputePipeline(device, "downsample", shaders.DownsampleWGSL, bgl)
	if err != nil {
		bgl.Release()
		return nil, err
	}
	return &DownsamplePass{BGL: bgl, Pipeline: pipeline}, nil
}

func (p *DownsamplePass) Bind(device *wgpu.Device, t *Target) error {
	groups := make([]*wgpu.BindGroup, 0, len(t.MipViews))
	for i := 0; i+1 < len(t.MipViews); i++ {
		bg, err := createBindGroup(device, fmt.Sprintf("Downsample %d", i+1), p.BGL,
			viewBinding(0, t.MipViews[i]),
			viewBinding(1, t.MipViews[i+1]),
		)
		if err != nil {
			releaseBindGroups(groups...)
			return err
		}
		groups = append(groups, bg)
	}
	releaseBindGroups(p.groups...)
	p.groups = groups
	p.target = t
	return nil
}

func (p *DownsamplePass) Encode(encoder *wgpu.CommandEncoder) error {
	if len(p.groups) == 0 {
		return nil
	}
	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: "Downsample"})
	pass.SetPipeline(p.Pipeline)
	for i, bg := range p.groups {
		w, h := p.target.MipSize(i + 1)
		pass.SetBindGroup(0, bg, nil)
		x, y := Workgroups(w, h)
		pass.DispatchWorkgroups(x, y, 1)
	}
	if err := pass.End(); err != nil {
		return fmt.Errorf("downsample pass: %w", err)
	}
	return nil
}

func (p *DownsamplePass) Release() {
	releaseBindGroups(p.groups...)
	p.groups = nil
	if p.Pipeline != nil {
		p.Pipeline.Release()
	}
	if p.BGL != nil {
		p.BGL.Release()
	}
}

// SSRPass marches reflections against the GBuffer depth and blends the
// lit mip chain into the HDR target.
type SSRPass struct {
	Pipeline *wgpu.ComputePipeline
	BGLs     [4]*wgpu.BindGroupLayout

	groups [4]*wgpu.BindGroup
	width  uint32
	height uint32
}

func NewSSRPass(device *wgpu.Device) (*SSRPass, error) {
	cs := wgpu.ShaderStageCompute
	unfilterable := wgpu.TextureSampleTypeUnfilterableFloat
	entries := [4][]wgpu.BindGroupLayoutEntry{
		{
			uniformEntry(0, cs, CameraUniformSize, false),
			uniformEntry(1, cs, ParamsUniformSize, false),
		},
		{
			textureEntry(0, cs, unfilterable, wgpu.TextureViewDimension2D),
			textureEntry(1, cs, unfilterable, wgpu.TextureViewDimension2D),
			textureEntry(2, cs, unfilterable, wgpu.TextureViewDimension2D),
			textureEntry(3, cs, unfilterable, wgpu.TextureViewDimension2D),
			textureEntry(4, cs, wgpu.TextureSampleTypeDepth, wgpu.TextureViewDimension2D),
		},
		{
			textureEntry(0, cs, wgpu.TextureSampleTypeFloat, wgpu.TextureViewDimension2D),
			samplerEntry(1, cs, wgpu.SamplerBindingTypeFiltering),
		},
		{
			storageEntry(0, HDRFormat, wgpu.TextureViewDimension2D),
		},
	}
	p := &SSRPass{}
	for i, e := range entries {
		bgl, err := createLayout(device, fmt.Sprintf("SSR BGL %d", i), e...)
		if err != nil {
			p.Release()
			return nil, err
		}
		p.BGLs[i] = bgl
	}
	var err error
	if p.Pipeline, err = createComputePipeline(device, "ssr", shaders.SSRWGSL, p.BGLs[:]...); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func (p *SSRPass) Bind(m *GpuBufferManager, s *Samplers, g *GBufferTargets, lit, out *Target) error {
	sets := [4][]wgpu.BindGroupEntry{
		{
			bufferBinding(0, m.CameraBuf, CameraUniformSize),
			bufferBinding(1, m.ParamsBuf, ParamsUniformSize),
		},
		{
			viewBinding(0, g.Position.View),
			viewBinding(1, g.Normal.View),
			viewBinding(2, g.Albedo.View),
			viewBinding(3, g.Material.View),
			viewBinding(4, g.Depth.View),
		},
		{
			viewBinding(0, lit.View),
			samplerBinding(1, s.Linear),
		},
		{
			viewBinding(0, out.View),
		},
	}
	var groups [4]*wgpu.BindGroup
	for i, e := range sets {
		bg, err := createBindGroup(m.Device, fmt.Sprintf("SSR BG %d", i), p.BGLs[i], e...)
		if err != nil {
			releaseBindGroups(groups[:]...)
			return err
		}
		groups[i] = bg
	}
	releaseBindGroups(p.groups[:]...)
	p.groups = groups
	p.width, p.height = out.Width, out.Height
	return nil
}

func (p *SSRPass) Encode(encoder *wgpu.CommandEncoder) error {
	if p.groups[0] == nil {
		return fmt.Errorf("ssr pass: not bound")
	}
	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: "SSR"})
	pass.SetPipeline(p.Pipeline)
	for i, bg := range p.groups {
		pass.SetBindGroup(uint32(i), bg, nil)
	}
	x, y := Workgroups(p.width, p.height)
	pass.DispatchWorkgroups(x, y, 1)
	if err := pass.End(); err != nil {
		return fmt.Errorf("ssr pass: %w", err)
	}
	return nil
}

func (p *SSRPass) Release() {
	releaseBindGroups(p.groups[:]...)
	p.groups = [4]*wgpu.BindGroup{}
	if p.Pipeline != nil {
		p.Pipeline.Release()
	}
	for _, bgl := range p.BGLs {
		if bgl != nil {
			bgl.Release()
		}
	}
}

// ToneMapPass maps the HDR target into the LDR target with gamma encoding.
type ToneMapPass struct {
	BGL      *wgpu.BindGroupLayout
	Pipeline *wgpu.ComputePipeline

	group  *wgpu.BindGroup
	width  uint32
	height uint32
}

func NewToneMapPass(device *wgpu.Device) (*ToneMapPass, error) {
	cs := wgpu.ShaderStageCompute
	bgl, err := createLayout(device, "ToneMap BGL",
		textureEntry(0, cs, wgpu.TextureSampleTypeUnfilterableFloat, wgpu.TextureViewDimension2D),
		storageEntry(1, LDRFormat, wgpu.TextureViewDimension2D),
		uniformEntry(2, cs, ParamsUniformSize, false),
	)
	if err != nil {
		return nil, err
	}
	pipeline, err := createComputePipeline(device, "tonemap", shaders.ToneMapWGSL, bgl)
	if err != nil {
		bgl.Release()
		return nil, err
	}
	return &ToneMapPass{BGL: bgl, Pipeline: pipeline}, nil
}

func (p *ToneMapPass) Bind(m *GpuBufferManager, hdr, ldr *Target) error {
	bg, err := createBindGroup(m.Device, "ToneMap BG", p.BGL,
		viewBinding(0, hdr.View),
		viewBinding(1, ldr.View),
		bufferBinding(2, m.ParamsBuf, ParamsUniformSize),
	)
	if err != nil {
		return err
	}
	releaseBindGroups(p.group)
	p.group = bg
	p.width, p.height = ldr.Width, ldr.Height
	return nil
}

func (p *ToneMapPass) Encode(encoder *wgpu.CommandEncoder) error {
	if p.group == nil {
		return fmt.Errorf("tone map pass: not bound")
	}
	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: "ToneMap"})
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, p.group, nil)
	x, y := Workgroups(p.width, p.height)
	pass.DispatchWorkgroups(x, y, 1)
	if err := pass.End(); err != nil {
		return fmt.Errorf("tone map pass: %w", err)
	}
	return nil
}

func (p *ToneMapPass) Release() {
	releaseBindGroups(p.group)
	p.group = nil
	if p.Pipeline != nil {
		p.Pipeline.Release()
	}
	if p.BGL != nil {
		p.BGL.Release()
	}
}

// BlitPass draws a texture over the whole surface with a fullscreen
// triangle.
type BlitPass struct {
	Pipeline *wgpu.RenderPipeline

	group *wgpu.BindGroup
}

func NewBlitPass(device *wgpu.Device, format wgpu.TextureFormat) (*BlitPass, error) {
	mod, err := createShaderModule(device, "fullscreen", shaders.FullscreenWGSL)
	if err != nil {
		return nil, err
	}
	defer mod.Release()
	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Blit Pipeline",
		Vertex: wgpu.VertexState{
			Module:     mod,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     mod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: singleSample,
	})
	if err != nil {
		return nil, fmt.Errorf("blit pipeline: %w", err)
	}
	return &BlitPass{Pipeline: pipeline}, nil
}

func (p *BlitPass) Bind(device *wgpu.Device, source *Target, sampler *wgpu.Sampler) error {
	bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Blit BG",
		Layout: p.Pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			viewBinding(0, source.View),
			samplerBinding(1, sampler),
		},
	})
	if err != nil {
		return fmt.Errorf("blit bind group: %w", err)
	}
	releaseBindGroups(p.group)
	p.group = bg
	return nil
}

func (p *BlitPass) Encode(encoder *wgpu.CommandEncoder, view *wgpu.TextureView) error {
	if p.group == nil {
		return fmt.Errorf("blit pass: not bound")
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Blit",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, p.group, nil)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("blit pass: %w", err)
	}
	return nil
}

func (p *BlitPass) Release() {
	releaseBindGroups(p.group)
	p.group = nil
	if p.Pipeline != nil {
		p.Pipeline.Release()
	}
}
