package gpu

import (
	"fmt"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

// GBufferPass rasterizes every visible drawable into the four GBuffer
// attachments and the depth target.
type GBufferPass struct {
	Pipeline    *wgpu.RenderPipeline
	MaterialBGL *wgpu.BindGroupLayout

	textures  *MaterialTextures
	sampler   *wgpu.Sampler
	materials map[core.TextureSet]*wgpu.BindGroup
}

func NewGBufferPass(device *wgpu.Device, layouts *SceneLayouts, textures *MaterialTextures, sampler *wgpu.Sampler) (*GBufferPass, error) {
	frag := wgpu.ShaderStageFragment
	materialBGL, err := createLayout(device, "Material BGL",
		textureEntry(0, frag, wgpu.TextureSampleTypeFloat, wgpu.TextureViewDimension2D),
		textureEntry(1, frag, wgpu.TextureSampleTypeFloat, wgpu.TextureViewDimension2D),
		textureEntry(2, frag, wgpu.TextureSampleTypeFloat, wgpu.TextureViewDimension2D),
		textureEntry(3, frag, wgpu.TextureSampleTypeFloat, wgpu.TextureViewDimension2D),
		samplerEntry(4, frag, wgpu.SamplerBindingTypeFiltering),
	)
	if err != nil {
		return nil, err
	}
	layout, err := createPipelineLayout(device, "GBuffer Layout", layouts.Camera, layouts.Instance, materialBGL)
	if err != nil {
		materialBGL.Release()
		return nil, err
	}
	defer layout.Release()
	mod, err := createShaderModule(device, "gbuffer", shaders.GBufferWGSL)
	if err != nil {
		materialBGL.Release()
		return nil, err
	}
	defer mod.Release()

	targets := []wgpu.ColorTargetState{
		{Format: PositionFormat, WriteMask: wgpu.ColorWriteMaskAll},
		{Format: GBufferFormat, WriteMask: wgpu.ColorWriteMaskAll},
		{Format: GBufferFormat, WriteMask: wgpu.ColorWriteMaskAll},
		{Format: GBufferFormat, WriteMask: wgpu.ColorWriteMaskAll},
	}
	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "GBuffer Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     mod,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{vertexLayout(false)},
		},
		Fragment: &wgpu.FragmentState{
			Module:     mod,
			EntryPoint: "fs_main",
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: singleSample,
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      noStencil,
			StencilBack:       noStencil,
		},
	})
	if err != nil {
		materialBGL.Release()
		return nil, fmt.Errorf("gbuffer pipeline: %w", err)
	}
	return &GBufferPass{
		Pipeline:    pipeline,
		MaterialBGL: materialBGL,
		textures:    textures,
		sampler:     sampler,
		materials:   make(map[core.TextureSet]*wgpu.BindGroup),
	}, nil
}

func (p *GBufferPass) materialGroup(device *wgpu.Device, set core.TextureSet) (*wgpu.BindGroup, error) {
	if bg, ok := p.materials[set]; ok {
		return bg, nil
	}
	views := make([]*wgpu.TextureView, 4)
	sources := []struct {
		tex      *core.Texture2D
		fallback *Target
	}{
		{set.Albedo, p.textures.White},
		{set.Normal, p.textures.FlatNormal},
		{set.MetalRough, p.textures.White},
		{set.AO, p.textures.White},
	}
	for i, s := range sources {
		v, err := p.textures.View(s.tex, s.fallback)
		if err != nil {
			return nil, err
		}
		views[i] = v
	}
	bg, err := createBindGroup(device, "Material BG", p.MaterialBGL,
		viewBinding(0, views[0]),
		viewBinding(1, views[1]),
		viewBinding(2, views[2]),
		viewBinding(3, views[3]),
		samplerBinding(4, p.sampler),
	)
	if err != nil {
		return nil, err
	}
	p.materials[set] = bg
	return bg, nil
}

// Encode clears the GBuffer and draws the drawables whose world bounds
// intersect the camera frustum.
func (p *GBufferPass) Encode(encoder *wgpu.CommandEncoder, m *GpuBufferManager, b *SceneBindings, g *GBufferTargets, camera core.CameraData) (int, error) {
	// bind groups first so a texture upload never interleaves with the pass
	groups := make([]*wgpu.BindGroup, len(m.Drawables))
	for i, d := range m.Drawables {
		bg, err := p.materialGroup(m.Device, d.Material.Textures)
		if err != nil {
			return 0, err
		}
		groups[i] = bg
	}

	clear := func(view *wgpu.TextureView) wgpu.RenderPassColorAttachment {
		return wgpu.RenderPassColorAttachment{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
		}
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "GBuffer",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			clear(g.Position.View),
			clear(g.Normal.View),
			clear(g.Albedo.View),
			clear(g.Material.View),
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            g.Depth.View,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, b.Camera, nil)

	planes := core.ExtractFrustum(camera.ViewProj)
	mask := m.Visible(planes)
	visible := func(i int) bool { return mask[i] }
	draws := drawMeshes(pass, m, b.Instance, visible, func(i int) {
		pass.SetBindGroup(2, groups[i], nil)
	})
	if err := pass.End(); err != nil {
		return draws, fmt.Errorf("gbuffer pass: %w", err)
	}
	return draws, nil
}

func (p *GBufferPass) Release() {
	for set, bg := range p.materials {
		bg.Release()
		delete(p.materials, set)
	}
	if p.Pipeline != nil {
		p.Pipeline.Release()
	}
	if p.MaterialBGL != nil {
		p.MaterialBGL.Release()
	}
}
