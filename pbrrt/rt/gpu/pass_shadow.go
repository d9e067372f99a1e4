package gpu

import (
	"fmt"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

const (
	shadowDepthBias      = 2
	shadowDepthBiasSlope = 2.0
)

// ShadowPass renders one depth view per directional light and six per
// point light. Every light projection mirrors X, so the clockwise faces
// of the result are the front faces.
type ShadowPass struct {
	Directional *wgpu.RenderPipeline
	Point       *wgpu.RenderPipeline
}

func shadowPrimitive() wgpu.PrimitiveState {
	return wgpu.PrimitiveState{
		Topology:  wgpu.PrimitiveTopologyTriangleList,
		FrontFace: wgpu.FrontFaceCW,
		CullMode:  wgpu.CullModeBack,
	}
}

func NewShadowPass(device *wgpu.Device, layouts *SceneLayouts) (*ShadowPass, error) {
	layout, err := createPipelineLayout(device, "Shadow Layout", layouts.ShadowView, layouts.Instance)
	if err != nil {
		return nil, err
	}
	defer layout.Release()

	dirMod, err := createShaderModule(device, "shadow_directional", shaders.ShadowDirectionalWGSL)
	if err != nil {
		return nil, err
	}
	defer dirMod.Release()
	pointMod, err := createShaderModule(device, "shadow_point", shaders.ShadowPointWGSL)
	if err != nil {
		return nil, err
	}
	defer pointMod.Release()

	p := &ShadowPass{}
	p.Directional, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Directional Shadow Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     dirMod,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{vertexLayout(true)},
		},
		Fragment:    nil,
		Primitive:   shadowPrimitive(),
		Multisample: singleSample,
		DepthStencil: &wgpu.DepthStencilState{
			Format:              DepthFormat,
			DepthWriteEnabled:   true,
			DepthCompare:        wgpu.CompareFunctionLess,
			DepthBias:           shadowDepthBias,
			DepthBiasSlopeScale: shadowDepthBiasSlope,
			StencilFront:        noStencil,
			StencilBack:         noStencil,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("directional shadow pipeline: %w", err)
	}

	// point depth is written by the fragment stage, so no raster bias
	p.Point, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Point Shadow Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     pointMod,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{vertexLayout(true)},
		},
		Fragment: &wgpu.FragmentState{
			Module:     pointMod,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{},
		},
		Primitive:   shadowPrimitive(),
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
		p.Release()
		return nil, fmt.Errorf("point shadow pipeline: %w", err)
	}
	return p, nil
}

// Encode records every shadow view of the frame. It returns the number of
// draws issued.
func (p *ShadowPass) Encode(encoder *wgpu.CommandEncoder, m *GpuBufferManager, b *SceneBindings, targets *ShadowTargets) (int, error) {
	casters := func(i int) bool { return m.Drawables[i].CastShadows }
	draws := 0
	for _, v := range m.ShadowViews {
		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			Label:            fmt.Sprintf("Shadow %d/%d", v.Layer, v.Face),
			ColorAttachments: nil,
			DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
				View:            targets.LayerView(v),
				DepthLoadOp:     wgpu.LoadOpClear,
				DepthStoreOp:    wgpu.StoreOpStore,
				DepthClearValue: 1.0,
			},
		})
		if v.Kind == core.LightKindPoint {
			pass.SetPipeline(p.Point)
		} else {
			pass.SetPipeline(p.Directional)
		}
		pass.SetBindGroup(0, b.ShadowView, []uint32{v.Offset})
		draws += drawMeshes(pass, m, b.Instance, casters, nil)
		if err := pass.End(); err != nil {
			return draws, fmt.Errorf("shadow pass: %w", err)
		}
	}
	return draws, nil
}

func (p *ShadowPass) Release() {
	if p.Directional != nil {
		p.Directional.Release()
	}
	if p.Point != nil {
		p.Point.Release()
	}
}
