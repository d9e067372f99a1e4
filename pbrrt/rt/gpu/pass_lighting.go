package gpu

import (
	"fmt"

	"github.com/gekko3d/deferred/pbrrt/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

// LightingInputs are the resources the lighting pass reads and writes.
type LightingInputs struct {
	GBuffer    *GBufferTargets
	Shadows    *ShadowTargets
	Irradiance *Target
	Env        *Target
	Out        *Target
}

// LightingPass evaluates direct lighting, shadows and diffuse image based
// lighting per GBuffer texel and writes mip 0 of the lit target. Texels
// without geometry receive the environment along the camera ray.
type LightingPass struct {
	Pipeline *wgpu.ComputePipeline
	BGLs     [4]*wgpu.BindGroupLayout

	groups [4]*wgpu.BindGroup
	width  uint32
	height uint32
}

func NewLightingPass(device *wgpu.Device) (*LightingPass, error) {
	cs := wgpu.ShaderStageCompute
	unfilterable := wgpu.TextureSampleTypeUnfilterableFloat
	entries := [4][]wgpu.BindGroupLayoutEntry{
		{
			uniformEntry(0, cs, CameraUniformSize, false),
			uniformEntry(1, cs, LightsUniformSize, false),
			uniformEntry(2, cs, ParamsUniformSize, false),
		},
		{
			textureEntry(0, cs, unfilterable, wgpu.TextureViewDimension2D),
			textureEntry(1, cs, unfilterable, wgpu.TextureViewDimension2D),
			textureEntry(2, cs, unfilterable, wgpu.TextureViewDimension2D),
			textureEntry(3, cs, unfilterable, wgpu.TextureViewDimension2D),
		},
		{
			textureEntry(0, cs, wgpu.TextureSampleTypeDepth, wgpu.TextureViewDimension2DArray),
			textureEntry(1, cs, wgpu.TextureSampleTypeDepth, wgpu.TextureViewDimensionCubeArray),
			samplerEntry(2, cs, wgpu.SamplerBindingTypeComparison),
			textureEntry(3, cs, wgpu.TextureSampleTypeFloat, wgpu.TextureViewDimensionCube),
			textureEntry(4, cs, wgpu.TextureSampleTypeFloat, wgpu.TextureViewDimensionCube),
			samplerEntry(5, cs, wgpu.SamplerBindingTypeFiltering),
		},
		{
			storageEntry(0, HDRFormat, wgpu.TextureViewDimension2D),
		},
	}
	p := &LightingPass{}
	for i, e := range entries {
		bgl, err := createLayout(device, fmt.Sprintf("Lighting BGL %d", i), e...)
		if err != nil {
			p.Release()
			return nil, err
		}
		p.BGLs[i] = bgl
	}
	var err error
	p.Pipeline, err = createComputePipeline(device, "lighting", shaders.LightingWGSL, p.BGLs[:]...)
	if err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

// Bind rebuilds the bind groups. Call it after a resize, a shadow target
// or environment change, or when the manager recreated a uniform buffer.
func (p *LightingPass) Bind(m *GpuBufferManager, s *Samplers, in LightingInputs) error {
	g := in.GBuffer
	sets := [4][]wgpu.BindGroupEntry{
		{
			bufferBinding(0, m.CameraBuf, CameraUniformSize),
			bufferBinding(1, m.LightsBuf, LightsUniformSize),
			bufferBinding(2, m.ParamsBuf, ParamsUniformSize),
		},
		{
			viewBinding(0, g.Position.View),
			viewBinding(1, g.Normal.View),
			viewBinding(2, g.Albedo.View),
			viewBinding(3, g.Material.View),
		},
		{
			viewBinding(0, in.Shadows.Directional.View),
			viewBinding(1, in.Shadows.Point.View),
			samplerBinding(2, s.Shadow),
			viewBinding(3, in.Irradiance.View),
			viewBinding(4, in.Env.View),
			samplerBinding(5, s.Linear),
		},
		{
			viewBinding(0, in.Out.MipViews[0]),
		},
	}
	var groups [4]*wgpu.BindGroup
	for i, e := range sets {
		bg, err := createBindGroup(m.Device, fmt.Sprintf("Lighting BG %d", i), p.BGLs[i], e...)
		if err != nil {
			releaseBindGroups(groups[:]...)
			return err
		}
		groups[i] = bg
	}
	releaseBindGroups(p.groups[:]...)
	p.groups = groups
	p.width, p.height = in.Out.Width, in.Out.Height
	return nil
}

func (p *LightingPass) Encode(encoder *wgpu.CommandEncoder) error {
	if p.groups[0] == nil {
		return fmt.Errorf("lighting pass: not bound")
	}
	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: "Lighting"})
	pass.SetPipeline(p.Pipeline)
	for i, bg := range p.groups {
		pass.SetBindGroup(uint32(i), bg, nil)
	}
	x, y := Workgroups(p.width, p.height)
	pass.DispatchWorkgroups(x, y, 1)
	if err := pass.End(); err != nil {
		return fmt.Errorf("lighting pass: %w", err)
	}
	return nil
}

func (p *LightingPass) Release() {
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
