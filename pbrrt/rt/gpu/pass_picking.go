package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gekko3d/deferred"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/picking"
	"github.com/gekko3d/deferred/pbrrt/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

// PickingPass writes the PickID of every visible drawable into an R32Uint
// target, depth tested against the GBuffer depth, and reads single texels
// back on request.
type PickingPass struct {
	Pipeline *wgpu.RenderPipeline
	Readback picking.Readback

	buffer *wgpu.Buffer
	logger deferred.Logger
}

func NewPickingPass(device *wgpu.Device, layouts *SceneLayouts, logger deferred.Logger) (*PickingPass, error) {
	layout, err := createPipelineLayout(device, "Picking Layout", layouts.Camera, layouts.Instance)
	if err != nil {
		return nil, err
	}
	defer layout.Release()
	mod, err := createShaderModule(device, "picking", shaders.PickingWGSL)
	if err != nil {
		return nil, err
	}
	defer mod.Release()

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Picking Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     mod,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{vertexLayout(true)},
		},
		Fragment: &wgpu.FragmentState{
			Module:     mod,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{{Format: PickFormat, WriteMask: wgpu.ColorWriteMaskAll}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: singleSample,
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: false,
			DepthCompare:      wgpu.CompareFunctionLessEqual,
			StencilFront:      noStencil,
			StencilBack:       noStencil,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("picking pipeline: %w", err)
	}

	// one aligned row is enough for a single texel
	buffer, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Pick Readback",
		Size:  uint64(AlignedBytesPerRow(1, 4)),
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		pipeline.Release()
		return nil, fmt.Errorf("pick readback buffer: %w", err)
	}
	return &PickingPass{Pipeline: pipeline, buffer: buffer, logger: deferred.OrNop(logger)}, nil
}

// Encode draws the ids and, when a read is pending, copies the requested
// texel into the readback buffer.
func (p *PickingPass) Encode(encoder *wgpu.CommandEncoder, m *GpuBufferManager, b *SceneBindings, g *GBufferTargets, pick *Target, camera core.CameraData) (int, error) {
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Picking",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       pick.View,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:         g.Depth.View,
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		},
	})
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, b.Camera, nil)
	planes := core.ExtractFrustum(camera.ViewProj)
	mask := m.Visible(planes)
	visible := func(i int) bool { return mask[i] }
	draws := drawMeshes(pass, m, b.Instance, visible, nil)
	if err := pass.End(); err != nil {
		return draws, fmt.Errorf("picking pass: %w", err)
	}

	x, y, ok := p.Readback.Pending()
	if !ok {
		return draws, nil
	}
	if x < 0 || y < 0 || uint32(x) >= pick.Width || uint32(y) >= pick.Height {
		// outside the viewport nothing is hit
		p.Readback.Submitted()
		p.Readback.Complete(0, true)
		return draws, nil
	}
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  pick.Texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: uint32(x), Y: uint32(y), Z: 0},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: p.buffer,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  AlignedBytesPerRow(1, 4),
				RowsPerImage: 1,
			},
		},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)
	return draws, nil
}

// AfterSubmit maps the readback buffer once the copy was submitted. The map
// callback fires from a later device poll.
func (p *PickingPass) AfterSubmit() {
	if p.Readback.State() != picking.ReadbackCopy {
		return
	}
	p.Readback.Submitted()
	size := p.buffer.GetSize()
	err := p.buffer.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			p.logger.Warnf("pick readback map failed: %v", status)
			p.Readback.Complete(0, false)
			return
		}
		data := p.buffer.GetMappedRange(0, uint(size))
		id := binary.LittleEndian.Uint32(data[:4])
		p.buffer.Unmap()
		p.Readback.Complete(id, true)
	})
	if err != nil {
		p.logger.Warnf("pick readback map: %v", err)
		p.Readback.Complete(0, false)
	}
}

func (p *PickingPass) Release() {
	if p.Pipeline != nil {
		p.Pipeline.Release()
	}
	if p.buffer != nil {
		p.buffer.Release()
	}
}
