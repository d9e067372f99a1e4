package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	CameraUniformSize = 256

	// Per-drawable and per-shadow-view uniforms are packed at the minimum
	// dynamic offset alignment.
	DynamicStride         = 256
	InstanceUniformSize   = 176
	ShadowViewUniformSize = 80

	LightRawSize      = 112
	MaxGPULights      = core.MaxPointLights + core.MaxDirectionalLights
	LightsUniformSize = 16 + LightRawSize*MaxGPULights

	ParamsUniformSize = 32
)

// Instance flags select which material textures the GBuffer shader samples.
const (
	InstanceAlbedoMap     uint32 = 1
	InstanceNormalMap     uint32 = 2
	InstanceMetalRoughMap uint32 = 4
	InstanceAOMap         uint32 = 8
)

func putF32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

func putU32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:], v)
}

func putMat4(buf []byte, off int, m mgl32.Mat4) {
	for i, v := range m {
		putF32(buf, off+i*4, v)
	}
}

func putVec3(buf []byte, off int, v mgl32.Vec3) {
	putF32(buf, off, v[0])
	putF32(buf, off+4, v[1])
	putF32(buf, off+8, v[2])
}

func putVec4(buf []byte, off int, v mgl32.Vec4) {
	for i, f := range v {
		putF32(buf, off+i*4, f)
	}
}

// PackCamera lays out the camera uniform:
//
//	view_proj     mat4  0
//	inv_view_proj mat4  64
//	view          mat4  128
//	position      vec4  192 (w = 1 when an environment cube is bound)
//	viewport      vec4  208 (near, far, width, height)
func PackCamera(c core.CameraData, width, height int, hasEnvironment bool) []byte {
	buf := make([]byte, CameraUniformSize)
	putMat4(buf, 0, c.ViewProj)
	putMat4(buf, 64, c.InvViewProj)
	putMat4(buf, 128, c.View)
	env := float32(0)
	if hasEnvironment {
		env = 1
	}
	putVec4(buf, 192, c.Position.Vec4(env))
	putVec4(buf, 208, mgl32.Vec4{c.Near, c.Far, float32(width), float32(height)})
	return buf
}

// PackLights writes the light count header followed by one LightRaw per light:
//
//	view_proj    mat4  0
//	pos_dir      vec3  64
//	kind         u32   76
//	color        vec3  80
//	far          f32   92
//	shadow_index u32   96
func PackLights(snap core.LightSnapshot) ([]byte, error) {
	if len(snap.Lights) > MaxGPULights {
		return nil, fmt.Errorf("%w: %d lights, uniform holds %d", core.ErrLightCapacity, len(snap.Lights), MaxGPULights)
	}
	buf := make([]byte, LightsUniformSize)
	putU32(buf, 0, uint32(len(snap.Lights)))
	putU32(buf, 4, uint32(len(snap.Points())))
	putU32(buf, 8, uint32(len(snap.Directionals())))

	for i, l := range snap.Lights {
		off := 16 + i*LightRawSize
		switch l := l.(type) {
		case core.PointLightData:
			// the lighting pass addresses the cube by direction
			putMat4(buf, off, l.FaceViewProjs[0])
			putVec3(buf, off+64, l.Position)
			putU32(buf, off+76, uint32(core.LightKindPoint))
			putVec3(buf, off+80, l.Color)
			putF32(buf, off+92, l.FarPlane)
			putU32(buf, off+96, uint32(l.Slot))
		case core.DirectionalLightData:
			putMat4(buf, off, l.ViewProj)
			putVec3(buf, off+64, l.Direction)
			putU32(buf, off+76, uint32(core.LightKindDirectional))
			putVec3(buf, off+80, l.Color)
			putF32(buf, off+92, core.DirectionalLightFarPlane)
			putU32(buf, off+96, uint32(l.Slot))
		}
	}
	return buf, nil
}

// PackParams lays out the runtime parameters in declaration order.
func PackParams(p core.RenderParams) []byte {
	buf := make([]byte, ParamsUniformSize)
	putU32(buf, 0, uint32(p.ToneMap))
	putF32(buf, 4, p.Exposure)
	putF32(buf, 8, p.SSRThickness)
	putF32(buf, 12, p.SSRMaxDistance)
	putU32(buf, 16, p.SSRMaxSteps)
	putF32(buf, 20, p.SSRStrength)
	putF32(buf, 24, p.DirectionalShadowBias)
	putF32(buf, 28, p.PointShadowBias)
	return buf
}

func instanceFlags(m core.Material) uint32 {
	var flags uint32
	if m.Textures.Albedo != nil {
		flags |= InstanceAlbedoMap
	}
	if m.Textures.Normal != nil {
		flags |= InstanceNormalMap
	}
	if m.Textures.MetalRough != nil {
		flags |= InstanceMetalRoughMap
	}
	if m.Textures.AO != nil {
		flags |= InstanceAOMap
	}
	return flags
}

// PackInstances writes one DynamicStride slot per drawable:
//
//	model     mat4  0
//	normal    mat4  64 (inverse transpose, upper 3x3 used)
//	albedo    vec4  128
//	roughness f32   144
//	metalness f32   148
//	ao        f32   152
//	pick_id   u32   156
//	flags     u32   160
func PackInstances(drawables []*core.Drawable) []byte {
	buf := make([]byte, max(len(drawables), 1)*DynamicStride)
	for i, d := range drawables {
		off := i * DynamicStride
		putMat4(buf, off, d.Transform.ObjectToWorld())
		putMat4(buf, off+64, d.Transform.NormalMatrix().Mat4())
		putVec4(buf, off+128, d.Material.Albedo.Vec4(1))
		putF32(buf, off+144, d.Material.Roughness)
		putF32(buf, off+148, d.Material.Metalness)
		putF32(buf, off+152, d.Material.AO)
		putU32(buf, off+156, d.PickID)
		putU32(buf, off+160, instanceFlags(d.Material))
	}
	return buf
}

// ShadowView is one depth render of the shadow pass.
type ShadowView struct {
	Kind   core.LightKind
	Slot   int
	Face   int    // cube face, 0 for directional
	Layer  int    // array layer of the target texture
	Offset uint32 // dynamic offset into the shadow view uniform
}

// PackShadowViews lists every depth render of the snapshot (one per
// directional light, six per point light) and packs their uniforms:
//
//	view_proj mat4  0
//	light     vec4  64 (xyz position, w far)
func PackShadowViews(snap core.LightSnapshot) ([]byte, []ShadowView) {
	var views []ShadowView
	var buf []byte
	add := func(v ShadowView, viewProj mgl32.Mat4, light mgl32.Vec4) {
		v.Offset = uint32(len(views) * DynamicStride)
		slot := make([]byte, DynamicStride)
		putMat4(slot, 0, viewProj)
		putVec4(slot, 64, light)
		buf = append(buf, slot...)
		views = append(views, v)
	}
	for _, l := range snap.Lights {
		switch l := l.(type) {
		case core.DirectionalLightData:
			add(ShadowView{Kind: core.LightKindDirectional, Slot: l.Slot, Layer: l.Slot},
				l.ViewProj, mgl32.Vec4{0, 0, 0, core.DirectionalLightFarPlane})
		case core.PointLightData:
			for face, vp := range l.FaceViewProjs {
				add(ShadowView{Kind: core.LightKindPoint, Slot: l.Slot, Face: face, Layer: l.Slot*6 + face},
					vp, l.Position.Vec4(l.FarPlane))
			}
		}
	}
	if len(buf) == 0 {
		buf = make([]byte, DynamicStride)
	}
	return buf, views
}

// PackVertices writes core.Vertex records at VertexStride:
// position 0, uv 12, normal 20, tangent 32, bitangent 44.
func PackVertices(m *core.Mesh) []byte {
	buf := make([]byte, len(m.Vertices)*core.VertexStride)
	for i, v := range m.Vertices {
		off := i * core.VertexStride
		putVec3(buf, off, v.Position)
		putF32(buf, off+12, v.UV[0])
		putF32(buf, off+16, v.UV[1])
		putVec3(buf, off+20, v.Normal)
		putVec3(buf, off+32, v.Tangent)
		putVec3(buf, off+44, v.Bitangent)
	}
	return buf
}

func PackIndices(m *core.Mesh) []byte {
	buf := make([]byte, len(m.Indices)*4)
	for i, idx := range m.Indices {
		putU32(buf, i*4, idx)
	}
	return buf
}

// Float16Bits converts f to IEEE 754 binary16, rounding to nearest.
func Float16Bits(f float32) uint16 {
	b := math.Float32bits(f)
	sign := uint16(b>>16) & 0x8000
	exp := int32(b>>23&0xff) - 127 + 15
	mant := b & 0x7fffff

	switch {
	case b&0x7fffffff > 0x7f800000:
		return sign | 0x7e00
	case exp >= 31:
		return sign | 0x7c00
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - exp)
		half := uint16(mant >> shift)
		if mant>>(shift-1)&1 != 0 {
			half++
		}
		return sign | half
	}
	half := sign | uint16(exp)<<10 | uint16(mant>>13)
	if mant&0x1000 != 0 {
		// a carry into the exponent is still the correctly rounded value
		half++
	}
	return half
}

// PackRGBA16F encodes float pixels for an RGBA16Float texture upload.
func PackRGBA16F(pix []mgl32.Vec4) []byte {
	buf := make([]byte, len(pix)*8)
	for i, p := range pix {
		for c := 0; c < 4; c++ {
			binary.LittleEndian.PutUint16(buf[i*8+c*2:], Float16Bits(p[c]))
		}
	}
	return buf
}

// PackRGBA8 quantizes a linear texture for an RGBA8Unorm upload.
func PackRGBA8(t *core.Texture2D) []byte {
	buf := make([]byte, len(t.Pix)*4)
	for i, p := range t.Pix {
		for c := 0; c < 4; c++ {
			buf[i*4+c] = uint8(mgl32.Clamp(p[c], 0, 1)*255 + 0.5)
		}
	}
	return buf
}

// AlignedBytesPerRow rounds a copy row up to the 256-byte buffer alignment.
func AlignedBytesPerRow(width, bytesPerTexel uint32) uint32 {
	return (width*bytesPerTexel + 255) &^ uint32(255)
}

// Workgroups returns the 8x8 dispatch size covering a width x height target.
func Workgroups(width, height uint32) (uint32, uint32) {
	return (width + 7) / 8, (height + 7) / 8
}
