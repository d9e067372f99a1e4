package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

func createShaderModule(device *wgpu.Device, label, code string) (*wgpu.ShaderModule, error) {
	mod, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", label, err)
	}
	return mod, nil
}

func createLayout(device *wgpu.Device, label string, entries ...wgpu.BindGroupLayoutEntry) (*wgpu.BindGroupLayout, error) {
	bgl, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group layout %s: %w", label, err)
	}
	return bgl, nil
}

func createPipelineLayout(device *wgpu.Device, label string, layouts ...*wgpu.BindGroupLayout) (*wgpu.PipelineLayout, error) {
	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline layout %s: %w", label, err)
	}
	return layout, nil
}

func createComputePipeline(device *wgpu.Device, label, code string, layouts ...*wgpu.BindGroupLayout) (*wgpu.ComputePipeline, error) {
	mod, err := createShaderModule(device, label, code)
	if err != nil {
		return nil, err
	}
	defer mod.Release()
	layout, err := createPipelineLayout(device, label, layouts...)
	if err != nil {
		return nil, err
	}
	defer layout.Release()

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label,
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     mod,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compute pipeline %s: %w", label, err)
	}
	return pipeline, nil
}

func createBindGroup(device *wgpu.Device, label string, layout *wgpu.BindGroupLayout, entries ...wgpu.BindGroupEntry) (*wgpu.BindGroup, error) {
	bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group %s: %w", label, err)
	}
	return bg, nil
}

func uniformEntry(binding uint32, visibility wgpu.ShaderStage, size uint64, dynamic bool) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
		Buffer: wgpu.BufferBindingLayout{
			Type:             wgpu.BufferBindingTypeUniform,
			HasDynamicOffset: dynamic,
			MinBindingSize:   size,
		},
	}
}

func textureEntry(binding uint32, visibility wgpu.ShaderStage, sample wgpu.TextureSampleType, dim wgpu.TextureViewDimension) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
		Texture: wgpu.TextureBindingLayout{
			SampleType:    sample,
			ViewDimension: dim,
		},
	}
}

func samplerEntry(binding uint32, visibility wgpu.ShaderStage, kind wgpu.SamplerBindingType) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
		Sampler:    wgpu.SamplerBindingLayout{Type: kind},
	}
}

func storageEntry(binding uint32, format wgpu.TextureFormat, dim wgpu.TextureViewDimension) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		StorageTexture: wgpu.StorageTextureBindingLayout{
			Access:        wgpu.StorageTextureAccessWriteOnly,
			Format:        format,
			ViewDimension: dim,
		},
	}
}

func bufferBinding(binding uint32, buf *wgpu.Buffer, size uint64) wgpu.BindGroupEntry {
	return wgpu.BindGroupEntry{Binding: binding, Buffer: buf, Offset: 0, Size: size}
}

func viewBinding(binding uint32, view *wgpu.TextureView) wgpu.BindGroupEntry {
	return wgpu.BindGroupEntry{Binding: binding, TextureView: view}
}

func samplerBinding(binding uint32, s *wgpu.Sampler) wgpu.BindGroupEntry {
	return wgpu.BindGroupEntry{Binding: binding, Sampler: s}
}

func releaseBindGroups(groups ...*wgpu.BindGroup) {
	for _, g := range groups {
		if g != nil {
			g.Release()
		}
	}
}

var noStencil = wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways}

var singleSample = wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF}

// vertexLayout describes core.Vertex. Depth-only passes bind only the position.
func vertexLayout(positionOnly bool) wgpu.VertexBufferLayout {
	attrs := []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
	}
	if !positionOnly {
		attrs = append(attrs,
			wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
			wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x3, Offset: 20, ShaderLocation: 2},
			wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x3, Offset: 32, ShaderLocation: 3},
			wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x3, Offset: 44, ShaderLocation: 4},
		)
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: 56,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

// SceneLayouts are the bind group layouts shared by every pass that draws
// meshes: group 0 a view uniform and group 1 the per-drawable instance.
type SceneLayouts struct {
	Camera     *wgpu.BindGroupLayout
	ShadowView *wgpu.BindGroupLayout
	Instance   *wgpu.BindGroupLayout
}

func NewSceneLayouts(device *wgpu.Device) (*SceneLayouts, error) {
	stages := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	camera, err := createLayout(device, "Camera BGL", uniformEntry(0, stages, CameraUniformSize, false))
	if err != nil {
		return nil, err
	}
	view, err := createLayout(device, "Shadow View BGL", uniformEntry(0, stages, ShadowViewUniformSize, true))
	if err != nil {
		return nil, err
	}
	inst, err := createLayout(device, "Instance BGL", uniformEntry(0, stages, InstanceUniformSize, true))
	if err != nil {
		return nil, err
	}
	return &SceneLayouts{Camera: camera, ShadowView: view, Instance: inst}, nil
}

func (l *SceneLayouts) Release() {
	for _, bgl := range []*wgpu.BindGroupLayout{l.Camera, l.ShadowView, l.Instance} {
		if bgl != nil {
			bgl.Release()
		}
	}
}

// SceneBindings are the bind groups over the manager's shared buffers.
// They are rebuilt whenever the manager recreates a buffer.
type SceneBindings struct {
	Camera     *wgpu.BindGroup
	ShadowView *wgpu.BindGroup
	Instance   *wgpu.BindGroup
}

func NewSceneBindings(m *GpuBufferManager, l *SceneLayouts) (*SceneBindings, error) {
	camera, err := createBindGroup(m.Device, "Camera BG", l.Camera, bufferBinding(0, m.CameraBuf, CameraUniformSize))
	if err != nil {
		return nil, err
	}
	view, err := createBindGroup(m.Device, "Shadow View BG", l.ShadowView, bufferBinding(0, m.ShadowViewBuf, ShadowViewUniformSize))
	if err != nil {
		camera.Release()
		return nil, err
	}
	inst, err := createBindGroup(m.Device, "Instance BG", l.Instance, bufferBinding(0, m.InstancesBuf, InstanceUniformSize))
	if err != nil {
		releaseBindGroups(camera, view)
		return nil, err
	}
	return &SceneBindings{Camera: camera, ShadowView: view, Instance: inst}, nil
}

func (b *SceneBindings) Release() {
	if b == nil {
		return
	}
	releaseBindGroups(b.Camera, b.ShadowView, b.Instance)
}

// drawMeshes binds group 1 per drawable and issues one indexed draw each.
func drawMeshes(pass *wgpu.RenderPassEncoder, m *GpuBufferManager, inst *wgpu.BindGroup, include func(i int) bool, perDrawable func(i int)) int {
	draws := 0
	for i, d := range m.Drawables {
		if include != nil && !include(i) {
			continue
		}
		mb := m.Meshes[d.Mesh]
		if mb == nil {
			continue
		}
		if perDrawable != nil {
			perDrawable(i)
		}
		pass.SetBindGroup(1, inst, []uint32{InstanceOffset(i)})
		pass.SetVertexBuffer(0, mb.Vertex, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(mb.Index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(mb.IndexCount, 1, 0, 0, 0)
		draws++
	}
	return draws
}
