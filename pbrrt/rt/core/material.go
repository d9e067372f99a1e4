package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// TextureSet is the optional bound texture set of a material. MetalRough uses
// the glTF channel convention: G = roughness, B = metalness. AO reads R.
type TextureSet struct {
	Albedo     *Texture2D
	Normal     *Texture2D
	MetalRough *Texture2D
	AO         *Texture2D
}

// Material holds PBR factors. Bound textures are multiplied by the factors.
type Material struct {
	Albedo    mgl32.Vec3 // linear
	Roughness float32
	Metalness float32
	AO        float32
	Textures  TextureSet
}

func NewMaterial(albedo mgl32.Vec3, roughness, metalness float32) Material {
	return Material{
		Albedo:    albedo,
		Roughness: roughness,
		Metalness: metalness,
		AO:        1.0,
	}
}

// Helper for default white
func DefaultMaterial() Material {
	return NewMaterial(mgl32.Vec3{1, 1, 1}, 1.0, 0.0)
}

func (m Material) HasNormalMap() bool {
	return m.Textures.Normal != nil
}

// SurfaceParams are material values resolved at one texture coordinate.
type SurfaceParams struct {
	Albedo    mgl32.Vec3
	Roughness float32
	Metalness float32
	AO        float32
}

func (m Material) Evaluate(uv mgl32.Vec2) SurfaceParams {
	p := SurfaceParams{
		Albedo:    m.Albedo,
		Roughness: m.Roughness,
		Metalness: m.Metalness,
		AO:        m.AO,
	}
	if t := m.Textures.Albedo; t != nil {
		c := t.SampleBilinear(uv)
		p.Albedo = mgl32.Vec3{p.Albedo.X() * c.X(), p.Albedo.Y() * c.Y(), p.Albedo.Z() * c.Z()}
	}
	if t := m.Textures.MetalRough; t != nil {
		c := t.SampleBilinear(uv)
		p.Roughness *= c.Y()
		p.Metalness *= c.Z()
	}
	if t := m.Textures.AO; t != nil {
		p.AO *= t.SampleBilinear(uv).X()
	}
	p.Roughness = mgl32.Clamp(p.Roughness, 0, 1)
	p.Metalness = mgl32.Clamp(p.Metalness, 0, 1)
	p.AO = mgl32.Clamp(p.AO, 0, 1)
	return p
}

// TangentNormal decodes the bound normal map at uv into [-1,1] tangent space.
// Without a normal map it returns +Z.
func (m Material) TangentNormal(uv mgl32.Vec2) mgl32.Vec3 {
	if m.Textures.Normal == nil {
		return mgl32.Vec3{0, 0, 1}
	}
	c := m.Textures.Normal.SampleBilinear(uv)
	return mgl32.Vec3{c.X()*2 - 1, c.Y()*2 - 1, c.Z()*2 - 1}
}
