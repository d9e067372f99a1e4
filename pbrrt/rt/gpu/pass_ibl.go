package gpu

import (
	"fmt"

	"github.com/gekko3d/deferred/pbrrt/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

// IBLPass bakes an equirect panorama into the environment cube and the
// environment cube into the irradiance cube. Both write all six faces in
// one dispatch.
type IBLPass struct {
	EquirectBGL   *wgpu.BindGroupLayout
	IrradianceBGL *wgpu.BindGroupLayout
	Equirect      *wgpu.ComputePipeline
	Irradiance    *wgpu.ComputePipeline
}

func NewIBLPass(device *wgpu.Device) (*IBLPass, error) {
	cs := wgpu.ShaderStageCompute
	eqBGL, err := createLayout(device, "Equirect BGL",
		textureEntry(0, cs, wgpu.TextureSampleTypeFloat, wgpu.TextureViewDimension2D),
		samplerEntry(1, cs, wgpu.SamplerBindingTypeFiltering),
		storageEntry(2, HDRFormat, wgpu.TextureViewDimension2DArray),
	)
	if err != nil {
		return nil, err
	}
	irrBGL, err := createLayout(device, "Irradiance BGL",
		textureEntry(0, cs, wgpu.TextureSampleTypeFloat, wgpu.TextureViewDimensionCube),
		samplerEntry(1, cs, wgpu.SamplerBindingTypeFiltering),
		storageEntry(2, HDRFormat, wgpu.TextureViewDimension2DArray),
	)
	if err != nil {
		eqBGL.Release()
		return nil, err
	}
	p := &IBLPass{EquirectBGL: eqBGL, IrradianceBGL: irrBGL}
	if p.Equirect, err = createComputePipeline(device, "equirect", shaders.EquirectWGSL, eqBGL); err != nil {
		p.Release()
		return nil, err
	}
	if p.Irradiance, err = createComputePipeline(device, "irradiance", shaders.IrradianceWGSL, irrBGL); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func (p *IBLPass) dispatchCube(encoder *wgpu.CommandEncoder, pipeline *wgpu.ComputePipeline, bg *wgpu.BindGroup, size uint32, label string) error {
	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	x, y := Workgroups(size, size)
	pass.DispatchWorkgroups(x, y, 6)
	if err := pass.End(); err != nil {
		return fmt.Errorf("%s pass: %w", label, err)
	}
	return nil
}

// EncodeEquirect projects panorama onto every face of cube.
func (p *IBLPass) EncodeEquirect(device *wgpu.Device, encoder *wgpu.CommandEncoder, panorama, cube *Target, sampler *wgpu.Sampler) error {
	bg, err := createBindGroup(device, "Equirect BG", p.EquirectBGL,
		viewBinding(0, panorama.View),
		samplerBinding(1, sampler),
		viewBinding(2, cube.StorageView()),
	)
	if err != nil {
		return err
	}
	defer bg.Release()
	return p.dispatchCube(encoder, p.Equirect, bg, cube.Width, "Equirect")
}

// EncodeIrradiance convolves env into irradiance.
func (p *IBLPass) EncodeIrradiance(device *wgpu.Device, encoder *wgpu.CommandEncoder, env, irradiance *Target, sampler *wgpu.Sampler) error {
	bg, err := createBindGroup(device, "Irradiance BG", p.IrradianceBGL,
		viewBinding(0, env.View),
		samplerBinding(1, sampler),
		viewBinding(2, irradiance.StorageView()),
	)
	if err != nil {
		return err
	}
	defer bg.Release()
	return p.dispatchCube(encoder, p.Irradiance, bg, irradiance.Width, "Irradiance")
}

func (p *IBLPass) Release() {
	if p.Equirect != nil {
		p.Equirect.Release()
	}
	if p.Irradiance != nil {
		p.Irradiance.Release()
	}
	if p.EquirectBGL != nil {
		p.EquirectBGL.Release()
	}
	if p.IrradianceBGL != nil {
		p.IrradianceBGL.Release()
	}
}
