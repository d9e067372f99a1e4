package gpu

import (
	"fmt"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/cogentcore/webgpu/wgpu"
)

// Samplers shared by every pass.
type Samplers struct {
	Linear   *wgpu.Sampler // clamp, trilinear
	Material *wgpu.Sampler // repeat, trilinear
	Shadow   *wgpu.Sampler // comparison, lit when ref <= stored
}

func NewSamplers(device *wgpu.Device) (*Samplers, error) {
	linear, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Linear Clamp",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create linear sampler: %w", err)
	}
	material, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Material Repeat",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		linear.Release()
		return nil, fmt.Errorf("create material sampler: %w", err)
	}
	// nearest filtering keeps shadow edges hard
	shadow, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Shadow Comparison Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		Compare:       wgpu.CompareFunctionLessEqual,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		linear.Release()
		material.Release()
		return nil, fmt.Errorf("create comparison sampler: %w", err)
	}
	return &Samplers{Linear: linear, Material: material, Shadow: shadow}, nil
}

func (s *Samplers) Release() {
	for _, smp := range []*wgpu.Sampler{s.Linear, s.Material, s.Shadow} {
		if smp != nil {
			smp.Release()
		}
	}
}

// NewCubeTarget creates an RGBA16Float cube usable as a compute output
// (through Layers as a 2D array) and as a sampled cube (View).
func NewCubeTarget(device *wgpu.Device, label string, size uint32) (*Target, error) {
	t, err := newTarget(device, targetDesc{
		label:     label,
		width:     size,
		height:    size,
		layers:    6,
		format:    wgpu.TextureFormatRGBA16Float,
		usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageStorageBinding | wgpu.TextureUsageCopyDst,
		dimension: wgpu.TextureViewDimensionCube,
		aspect:    wgpu.TextureAspectAll,
	})
	if err != nil {
		return nil, err
	}
	// the compute passes write all faces at once
	arrayView, err := t.Texture.CreateView(&wgpu.TextureViewDescriptor{
		Label:           label + " Array",
		Format:          wgpu.TextureFormatRGBA16Float,
		Dimension:       wgpu.TextureViewDimension2DArray,
		MipLevelCount:   1,
		ArrayLayerCount: 6,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		t.Release()
		return nil, fmt.Errorf("create %s array view: %w", label, err)
	}
	t.Layers = []*wgpu.TextureView{arrayView}
	return t, nil
}

// StorageView is the 2D array view of a cube target.
func (t *Target) StorageView() *wgpu.TextureView {
	if len(t.Layers) == 1 {
		return t.Layers[0]
	}
	return t.View
}

// UploadCubemap writes the six faces of c into a cube target of equal size.
func UploadCubemap(queue *wgpu.Queue, t *Target, c *core.Cubemap) error {
	if int(t.Width) != c.Size {
		return fmt.Errorf("cubemap size %d does not match target %d", c.Size, t.Width)
	}
	size := uint32(c.Size)
	for face := 0; face < 6; face++ {
		queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  t.Texture,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{X: 0, Y: 0, Z: uint32(face)},
				Aspect:   wgpu.TextureAspectAll,
			},
			PackRGBA16F(c.Faces[face]),
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  size * 8,
				RowsPerImage: size,
			},
			&wgpu.Extent3D{Width: size, Height: size, DepthOrArrayLayers: 1},
		)
	}
	return nil
}

// NewPanoramaTexture uploads an equirectangular image for the projection pass.
func NewPanoramaTexture(device *wgpu.Device, tex *core.Texture2D) (*Target, error) {
	t, err := newTarget(device, targetDesc{
		label:     "Environment Panorama",
		width:     uint32(tex.Width),
		height:    uint32(tex.Height),
		format:    wgpu.TextureFormatRGBA16Float,
		usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		dimension: wgpu.TextureViewDimension2D,
		aspect:    wgpu.TextureAspectAll,
	})
	if err != nil {
		return nil, err
	}
	w, h := uint32(tex.Width), uint32(tex.Height)
	device.GetQueue().WriteTexture(
		t.Texture.AsImageCopy(),
		PackRGBA16F(tex.Pix),
		&wgpu.TextureDataLayout{Offset: 0, BytesPerRow: w * 8, RowsPerImage: h},
		&wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return t, nil
}

// MaterialTextures caches uploaded material textures keyed by their source.
// Missing slots bind 1x1 fallbacks: white, or a flat normal.
type MaterialTextures struct {
	device *wgpu.Device
	cache  map[*core.Texture2D]*Target

	White      *Target
	FlatNormal *Target
}

func NewMaterialTextures(device *wgpu.Device) (*MaterialTextures, error) {
	m := &MaterialTextures{device: device, cache: make(map[*core.Texture2D]*Target)}
	var err error
	m.White, err = m.upload("Fallback White", core.SolidTexture(mgl32.Vec4{1, 1, 1, 1}))
	if err != nil {
		return nil, err
	}
	m.FlatNormal, err = m.upload("Fallback Normal", core.SolidTexture(mgl32.Vec4{0.5, 0.5, 1, 1}))
	if err != nil {
		m.White.Release()
		return nil, err
	}
	return m, nil
}

func (m *MaterialTextures) upload(label string, tex *core.Texture2D) (*Target, error) {
	t, err := newTarget(m.device, targetDesc{
		label:     label,
		width:     uint32(tex.Width),
		height:    uint32(tex.Height),
		format:    wgpu.TextureFormatRGBA8Unorm,
		usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		dimension: wgpu.TextureViewDimension2D,
		aspect:    wgpu.TextureAspectAll,
	})
	if err != nil {
		return nil, err
	}
	w, h := uint32(tex.Width), uint32(tex.Height)
	m.device.GetQueue().WriteTexture(
		t.Texture.AsImageCopy(),
		PackRGBA8(tex),
		&wgpu.TextureDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return t, nil
}

// View returns the uploaded view for tex, or fallback when tex is nil.
func (m *MaterialTextures) View(tex *core.Texture2D, fallback *Target) (*wgpu.TextureView, error) {
	if tex == nil || tex.Width == 0 || tex.Height == 0 {
		return fallback.View, nil
	}
	if t, ok := m.cache[tex]; ok {
		return t.View, nil
	}
	t, err := m.upload("Material Texture", tex)
	if err != nil {
		return nil, err
	}
	m.cache[tex] = t
	return t.View, nil
}

func (m *MaterialTextures) Release() {
	for k, t := range m.cache {
		t.Release()
		delete(m.cache, k)
	}
	m.White.Release()
	m.FlatNormal.Release()
}
