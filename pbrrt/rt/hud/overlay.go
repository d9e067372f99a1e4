package hud

import (
	"fmt"
	"unsafe"

	"github.com/gekko3d/deferred/pbrrt/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

// Overlay draws text items on top of a presented frame.
type Overlay struct {
	Atlas *Atlas

	device    *wgpu.Device
	pipeline  *wgpu.RenderPipeline
	atlasTex  *wgpu.Texture
	atlasView *wgpu.TextureView
	sampler   *wgpu.Sampler
	bindGroup *wgpu.BindGroup
	vertices  *wgpu.Buffer

	items []Item
}

func NewOverlay(device *wgpu.Device, format wgpu.TextureFormat, atlas *Atlas) (*Overlay, error) {
	o := &Overlay{Atlas: atlas, device: device}
	w, h := atlas.Image.Bounds().Dx(), atlas.Image.Bounds().Dy()

	var err error
	o.atlasTex, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Text Atlas",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("create text atlas: %w", err)
	}
	device.GetQueue().WriteTexture(o.atlasTex.AsImageCopy(), atlas.Image.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(w),
		RowsPerImage: uint32(h),
	}, &wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1})

	if o.atlasView, err = o.atlasTex.CreateView(nil); err != nil {
		o.Release()
		return nil, fmt.Errorf("create text atlas view: %w", err)
	}
	o.sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		o.Release()
		return nil, fmt.Errorf("create text sampler: %w", err)
	}

	mod, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Text Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.TextWGSL},
	})
	if err != nil {
		o.Release()
		return nil, fmt.Errorf("create text shader: %w", err)
	}
	defer mod.Release()

	o.pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Text Pipeline",
		Vertex: wgpu.VertexState{
			Module:     mod,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: VertexStride,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     mod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: format,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOne,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		o.Release()
		return nil, fmt.Errorf("create text pipeline: %w", err)
	}

	o.bindGroup, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Text BG",
		Layout: o.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: o.atlasView},
			{Binding: 1, Sampler: o.sampler},
		},
	})
	if err != nil {
		o.Release()
		return nil, fmt.Errorf("create text bind group: %w", err)
	}
	return o, nil
}

// Text queues one item for the next Encode.
func (o *Overlay) Text(text string, x, y, scale float32, color [4]float32) {
	o.items = append(o.items, Item{Text: text, Position: [2]float32{x, y}, Scale: scale, Color: color})
}

// Encode draws the queued items over view and clears the queue.
func (o *Overlay) Encode(encoder *wgpu.CommandEncoder, view *wgpu.TextureView, width, height int) error {
	defer func() { o.items = o.items[:0] }()
	vertices := o.Atlas.Layout(o.items, width, height)
	if len(vertices) == 0 {
		return nil
	}

	size := uint64(len(vertices) * VertexStride)
	if o.vertices == nil || o.vertices.GetSize() < size {
		if o.vertices != nil {
			o.vertices.Release()
		}
		buf, err := o.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Text VB",
			Size:  size,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			o.vertices = nil
			return fmt.Errorf("create text vertex buffer: %w", err)
		}
		o.vertices = buf
	}
	o.device.GetQueue().WriteBuffer(o.vertices, 0, unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size))

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Text",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	pass.SetPipeline(o.pipeline)
	pass.SetBindGroup(0, o.bindGroup, nil)
	pass.SetVertexBuffer(0, o.vertices, 0, wgpu.WholeSize)
	pass.Draw(uint32(len(vertices)), 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("text pass: %w", err)
	}
	return nil
}

func (o *Overlay) Release() {
	if o.bindGroup != nil {
		o.bindGroup.Release()
	}
	if o.pipeline != nil {
		o.pipeline.Release()
	}
	if o.vertices != nil {
		o.vertices.Release()
	}
	if o.sampler != nil {
		o.sampler.Release()
	}
	if o.atlasView != nil {
		o.atlasView.Release()
	}
	if o.atlasTex != nil {
		o.atlasTex.Release()
	}
}
