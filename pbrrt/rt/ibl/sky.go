package ibl

import (
	"github.com/chewxy/math32"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Sky describes a procedural gradient environment with a sun disc.
type Sky struct {
	Zenith  mgl32.Vec3
	Horizon mgl32.Vec3
	Ground  mgl32.Vec3

	SunDirection mgl32.Vec3 // toward the sun
	SunColor     mgl32.Vec3
	SunSize      float32 // cosine of the disc half-angle
}

func DefaultSky() Sky {
	return Sky{
		Zenith:       mgl32.Vec3{0.18, 0.32, 0.62},
		Horizon:      mgl32.Vec3{0.75, 0.8, 0.85},
		Ground:       mgl32.Vec3{0.2, 0.18, 0.16},
		SunDirection: mgl32.Vec3{0.3, 0.8, 0.4}.Normalize(),
		SunColor:     mgl32.Vec3{30, 28, 24},
		SunSize:      0.9995,
	}
}

// Radiance returns the sky colour seen along dir.
func (s Sky) Radiance(dir mgl32.Vec3) mgl32.Vec3 {
	d := dir.Normalize()
	y := d.Y()
	var c mgl32.Vec3
	if y >= 0 {
		t := math32.Pow(y, 0.5)
		c = s.Horizon.Add(s.Zenith.Sub(s.Horizon).Mul(t))
	} else {
		t := math32.Min(-y*4, 1)
		c = s.Horizon.Add(s.Ground.Sub(s.Horizon).Mul(t))
	}
	if s.SunSize > 0 && s.SunDirection.Len() > 0 && d.Dot(s.SunDirection.Normalize()) >= s.SunSize {
		c = c.Add(s.SunColor)
	}
	return c
}

func GradientSky(size int, sky Sky) *core.Cubemap {
	if size <= 0 {
		size = DefaultEnvironmentSize
	}
	c := core.NewCubemap(size)
	c.Fill(func(dir mgl32.Vec3) mgl32.Vec4 { return sky.Radiance(dir).Vec4(1) })
	return c
}
