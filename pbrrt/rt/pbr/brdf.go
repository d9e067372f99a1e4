// Package pbr evaluates the Cook-Torrance microfacet model used by the
// deferred lighting pass.
package pbr

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// DielectricF0 is the base reflectivity of non-metals.
const DielectricF0 = 0.04

// DistributionGGX is the Trowbridge-Reitz normal distribution with
// alpha = roughness^2.
func DistributionGGX(nDotH, roughness float32) float32 {
	a := roughness * roughness
	a2 := a * a
	nDotH = max(nDotH, 0)
	d := nDotH*nDotH*(a2-1) + 1
	return a2 / max(math32.Pi*d*d, 1e-7)
}

// GeometrySchlickGGX is the single-direction Schlick-GGX occlusion term
// with the direct-lighting remapping k = (roughness+1)^2 / 8.
func GeometrySchlickGGX(nDotX, roughness float32) float32 {
	r := roughness + 1
	k := r * r / 8
	nDotX = max(nDotX, 0)
	return nDotX / (nDotX*(1-k) + k)
}

func GeometrySmith(nDotV, nDotL, roughness float32) float32 {
	return GeometrySchlickGGX(nDotV, roughness) * GeometrySchlickGGX(nDotL, roughness)
}

// BaseReflectivity interpolates F0 between the dielectric constant and albedo.
func BaseReflectivity(albedo mgl32.Vec3, metalness float32) mgl32.Vec3 {
	f := mgl32.Vec3{DielectricF0, DielectricF0, DielectricF0}
	return f.Add(albedo.Sub(f).Mul(metalness))
}

func schlickWeight(cosTheta float32) float32 {
	m := 1 - mgl32.Clamp(cosTheta, 0, 1)
	m2 := m * m
	return m2 * m2 * m
}

func FresnelSchlick(cosTheta float32, f0 mgl32.Vec3) mgl32.Vec3 {
	w := schlickWeight(cosTheta)
	one := mgl32.Vec3{1, 1, 1}
	return f0.Add(one.Sub(f0).Mul(w))
}

// FresnelSchlickRoughness damps the grazing-angle rise for rough surfaces;
// used for the ambient term.
func FresnelSchlickRoughness(cosTheta float32, f0 mgl32.Vec3, roughness float32) mgl32.Vec3 {
	w := schlickWeight(cosTheta)
	g := 1 - roughness
	limit := mgl32.Vec3{max(g, f0.X()), max(g, f0.Y()), max(g, f0.Z())}
	return f0.Add(limit.Sub(f0).Mul(w))
}

// InverseSquare returns 1/d^2, clamped near the light.
func InverseSquare(distance float32) float32 {
	return 1 / max(distance*distance, 1e-4)
}

// Surface is the shading input reconstructed from the GBuffer.
type Surface struct {
	Position  mgl32.Vec3
	Normal    mgl32.Vec3
	Albedo    mgl32.Vec3
	Roughness float32
	Metalness float32
	AO        float32
}

// Direct returns the outgoing radiance toward v from light direction l
// carrying radiance. v, l and s.Normal must be normalized.
func Direct(s Surface, v, l, radiance mgl32.Vec3) mgl32.Vec3 {
	n := s.Normal
	nDotL := n.Dot(l)
	if nDotL <= 0 {
		return mgl32.Vec3{}
	}
	nDotV := max(n.Dot(v), 0)

	h := v.Add(l)
	if h.Len() == 0 {
		h = n
	} else {
		h = h.Normalize()
	}

	f0 := BaseReflectivity(s.Albedo, s.Metalness)
	d := DistributionGGX(n.Dot(h), s.Roughness)
	g := GeometrySmith(nDotV, nDotL, s.Roughness)
	f := FresnelSchlick(max(h.Dot(v), 0), f0)

	specular := f.Mul(d * g / (4*nDotV*nDotL + 1e-4))

	one := mgl32.Vec3{1, 1, 1}
	kD := one.Sub(f).Mul(1 - s.Metalness)
	diffuse := mul(kD, s.Albedo).Mul(1 / math32.Pi)

	return mul(diffuse.Add(specular), radiance).Mul(nDotL)
}

// Ambient is the diffuse image-based term (1 - F_r) * irradiance * albedo * AO.
func Ambient(s Surface, v, irradiance mgl32.Vec3) mgl32.Vec3 {
	f0 := BaseReflectivity(s.Albedo, s.Metalness)
	fr := FresnelSchlickRoughness(max(s.Normal.Dot(v), 0), f0, s.Roughness)
	one := mgl32.Vec3{1, 1, 1}
	return mul(mul(one.Sub(fr), irradiance), s.Albedo).Mul(s.AO)
}

func mul(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}
