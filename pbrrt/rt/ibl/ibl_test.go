package ibl

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func TestTangentFrameOrthonormal(t *testing.T) {
	for _, n := range []mgl32.Vec3{{0, 1, 0}, {0, -1, 0}, {1, 0, 0}, mgl32.Vec3{0.3, -0.4, 0.8}.Normalize()} {
		r, u := TangentFrame(n)
		assert.InDelta(t, 1, r.Len(), 1e-5)
		assert.InDelta(t, 1, u.Len(), 1e-5)
		assert.InDelta(t, 0, r.Dot(n), 1e-5)
		assert.InDelta(t, 0, u.Dot(n), 1e-5)
		assert.InDelta(t, 0, r.Dot(u), 1e-5)
	}
}

func TestUniformEnvironmentIrradiance(t *testing.T) {
	env := core.UniformCubemap(8, mgl32.Vec3{1, 1, 1})
	for _, n := range []mgl32.Vec3{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}, mgl32.Vec3{1, 1, 1}.Normalize()} {
		e := IrradianceAt(env, n)
		assert.InDelta(t, 1, e.X(), 0.01, "normal %v", n)
	}

	irr := Convolve(core.UniformCubemap(8, mgl32.Vec3{2, 2, 2}), 4, frame.NewDispatcher(2))
	require.Equal(t, 4, irr.Size)
	for _, face := range irr.Faces {
		for _, c := range face {
			assert.InDelta(t, 2, c.Y(), 0.02)
		}
	}
}

func TestHemisphereEnvironment(t *testing.T) {
	env := core.NewCubemap(16)
	env.Fill(func(dir mgl32.Vec3) mgl32.Vec4 {
		if dir.Y() > 0 {
			return mgl32.Vec4{1, 1, 1, 1}
		}
		return mgl32.Vec4{0, 0, 0, 1}
	})
	assert.InDelta(t, 1, IrradianceAt(env, mgl32.Vec3{0, 1, 0}).X(), 0.02)
	assert.InDelta(t, 0, IrradianceAt(env, mgl32.Vec3{0, -1, 0}).X(), 0.02)
	assert.InDelta(t, 0.5, IrradianceAt(env, mgl32.Vec3{1, 0, 0}).X(), 0.05)
}

func TestEquirectToCubemap(t *testing.T) {
	tex := core.NewTexture2D(64, 32)
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			v := float32(0)
			if y < 16 {
				v = 1
			}
			tex.Set(x, y, mgl32.Vec4{v, v, v, 1})
		}
	}
	cube := EquirectToCubemap(tex, 8, frame.Serial())
	assert.InDelta(t, 1, cube.Sample(mgl32.Vec3{0, 1, 0}).X(), 1e-5)
	assert.InDelta(t, 0, cube.Sample(mgl32.Vec3{0, -1, 0}).X(), 1e-5)
	assert.InDelta(t, 1, cube.Sample(mgl32.Vec3{1, 0.5, 0}).X(), 1e-5)

	uv := EquirectUV(mgl32.Vec3{0, 1, 0})
	assert.InDelta(t, 0, uv.Y(), 1e-6)
	uv = EquirectUV(mgl32.Vec3{-1, 0, 0})
	assert.InDelta(t, 0.5, uv.Y(), 1e-6)
}

func TestLoadEquirect(t *testing.T) {
	dir := t.TempDir()

	img8 := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	for i := range img8.Pix {
		img8.Pix[i] = 255
	}
	img8.SetNRGBA(0, 0, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	pngPath := filepath.Join(dir, "sky.png")
	f, err := os.Create(pngPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img8))
	require.NoError(t, f.Close())

	tex, err := LoadEquirect(pngPath, 0)
	require.NoError(t, err)
	assert.Equal(t, 8, tex.Width)
	// 8-bit input is gamma decoded
	assert.InDelta(t, 0.22, tex.At(0, 0).X(), 0.01)
	assert.InDelta(t, 1, tex.At(1, 0).X(), 1e-6)

	img16 := image.NewRGBA64(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img16.SetRGBA64(x, y, color.RGBA64{R: 32768, G: 16384, B: 65535, A: 65535})
		}
	}
	tiffPath := filepath.Join(dir, "sky.tiff")
	f, err = os.Create(tiffPath)
	require.NoError(t, err)
	require.NoError(t, tiff.Encode(f, img16, nil))
	require.NoError(t, f.Close())

	tex, err = LoadEquirect(tiffPath, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, tex.Width)
	assert.Equal(t, 4, tex.Height)
	// 16-bit input stays linear
	assert.InDelta(t, 0.5, tex.At(3, 2).X(), 1e-3)
	assert.InDelta(t, 0.25, tex.At(3, 2).Y(), 1e-3)

	_, err = LoadEquirect(filepath.Join(dir, "missing.png"), 0)
	assert.Error(t, err)
}

func TestCacheRebuildsOnChange(t *testing.T) {
	c := NewCache(2, frame.Serial(), nil)
	env := core.UniformCubemap(4, mgl32.Vec3{1, 1, 1})

	first := c.Irradiance(env, 1)
	require.NotNil(t, first)
	assert.Same(t, first, c.Irradiance(env, 1))
	assert.Equal(t, 1, c.Builds())

	c.Irradiance(env, 2)
	assert.Equal(t, 2, c.Builds())
	c.Irradiance(core.UniformCubemap(4, mgl32.Vec3{1, 1, 1}), 2)
	assert.Equal(t, 3, c.Builds())

	assert.Nil(t, c.Irradiance(nil, 3))
}

func TestGradientSky(t *testing.T) {
	sky := DefaultSky()
	cube := GradientSky(16, sky)
	up := cube.Sample(mgl32.Vec3{0, 1, 0}).Vec3()
	down := cube.Sample(mgl32.Vec3{0, -1, 0}).Vec3()
	assert.InDelta(t, sky.Zenith.Z(), up.Z(), 0.05)
	assert.InDelta(t, sky.Ground.X(), down.X(), 1e-4)

	assert.Greater(t, sky.Radiance(sky.SunDirection).X(), float32(10))
}
