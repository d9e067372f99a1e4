package core

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Texture2D is a linear float RGBA image sampled with repeat addressing.
type Texture2D struct {
	Width  int
	Height int
	Pix    []mgl32.Vec4
}

func NewTexture2D(width, height int) *Texture2D {
	return &Texture2D{Width: width, Height: height, Pix: make([]mgl32.Vec4, width*height)}
}

// SolidTexture returns a 1x1 texture of c.
func SolidTexture(c mgl32.Vec4) *Texture2D {
	t := NewTexture2D(1, 1)
	t.Pix[0] = c
	return t
}

func (t *Texture2D) At(x, y int) mgl32.Vec4 {
	return t.Pix[y*t.Width+x]
}

func (t *Texture2D) Set(x, y int, c mgl32.Vec4) {
	t.Pix[y*t.Width+x] = c
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func (t *Texture2D) SampleNearest(uv mgl32.Vec2) mgl32.Vec4 {
	x := int(math.Floor(float64(uv.X() * float32(t.Width))))
	y := int(math.Floor(float64(uv.Y() * float32(t.Height))))
	return t.At(wrap(x, t.Width), wrap(y, t.Height))
}

func (t *Texture2D) SampleBilinear(uv mgl32.Vec2) mgl32.Vec4 {
	fx := uv.X()*float32(t.Width) - 0.5
	fy := uv.Y()*float32(t.Height) - 0.5
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	c00 := t.At(wrap(x0, t.Width), wrap(y0, t.Height))
	c10 := t.At(wrap(x0+1, t.Width), wrap(y0, t.Height))
	c01 := t.At(wrap(x0, t.Width), wrap(y0+1, t.Height))
	c11 := t.At(wrap(x0+1, t.Width), wrap(y0+1, t.Height))

	top := c00.Mul(1 - tx).Add(c10.Mul(tx))
	bottom := c01.Mul(1 - tx).Add(c11.Mul(tx))
	return top.Mul(1 - ty).Add(bottom.Mul(ty))
}

// TextureFromImage converts img to float RGBA. With srgb set, color channels
// are decoded from gamma 2.2 to linear; alpha is always linear.
func TextureFromImage(img image.Image, srgb bool) *Texture2D {
	b := img.Bounds()
	t := NewTexture2D(b.Dx(), b.Dy())
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			v := mgl32.Vec4{float32(c.R) / 65535, float32(c.G) / 65535, float32(c.B) / 65535, float32(c.A) / 65535}
			if srgb {
				for k := 0; k < 3; k++ {
					v[k] = float32(math.Pow(float64(v[k]), 2.2))
				}
			}
			t.Set(x, y, v)
		}
	}
	return t
}

// CubeFace indexes cube-map layers in WebGPU order.
type CubeFace int

const (
	CubeFacePosX CubeFace = iota
	CubeFaceNegX
	CubeFacePosY
	CubeFaceNegY
	CubeFacePosZ
	CubeFaceNegZ
)

// CubeFaceUV selects the face hit by dir and returns texture coordinates on it,
// origin top-left, following the WebGPU/Vulkan major-axis table.
func CubeFaceUV(dir mgl32.Vec3) (CubeFace, mgl32.Vec2) {
	ax, ay, az := abs32(dir.X()), abs32(dir.Y()), abs32(dir.Z())
	var face CubeFace
	var sc, tc, ma float32
	switch {
	case ax >= ay && ax >= az:
		ma = ax
		if dir.X() >= 0 {
			face, sc, tc = CubeFacePosX, -dir.Z(), -dir.Y()
		} else {
			face, sc, tc = CubeFaceNegX, dir.Z(), -dir.Y()
		}
	case ay >= az:
		ma = ay
		if dir.Y() >= 0 {
			face, sc, tc = CubeFacePosY, dir.X(), dir.Z()
		} else {
			face, sc, tc = CubeFaceNegY, dir.X(), -dir.Z()
		}
	default:
		ma = az
		if dir.Z() >= 0 {
			face, sc, tc = CubeFacePosZ, dir.X(), -dir.Y()
		} else {
			face, sc, tc = CubeFaceNegZ, -dir.X(), -dir.Y()
		}
	}
	if ma == 0 {
		return CubeFacePosX, mgl32.Vec2{0.5, 0.5}
	}
	return face, mgl32.Vec2{(sc/ma + 1) * 0.5, (tc/ma + 1) * 0.5}
}

// CubeFaceDirection is the inverse of CubeFaceUV; the result is normalized.
func CubeFaceDirection(face CubeFace, uv mgl32.Vec2) mgl32.Vec3 {
	sc := uv.X()*2 - 1
	tc := uv.Y()*2 - 1
	var d mgl32.Vec3
	switch face {
	case CubeFacePosX:
		d = mgl32.Vec3{1, -tc, -sc}
	case CubeFaceNegX:
		d = mgl32.Vec3{-1, -tc, sc}
	case CubeFacePosY:
		d = mgl32.Vec3{sc, 1, tc}
	case CubeFaceNegY:
		d = mgl32.Vec3{sc, -1, -tc}
	case CubeFacePosZ:
		d = mgl32.Vec3{sc, -tc, 1}
	default:
		d = mgl32.Vec3{-sc, -tc, -1}
	}
	return d.Normalize()
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Cubemap holds six square float RGBA faces.
type Cubemap struct {
	Size  int
	Faces [6][]mgl32.Vec4
}

func NewCubemap(size int) *Cubemap {
	c := &Cubemap{Size: size}
	for i := range c.Faces {
		c.Faces[i] = make([]mgl32.Vec4, size*size)
	}
	return c
}

// UniformCubemap returns a cube map of constant radiance.
func UniformCubemap(size int, radiance mgl32.Vec3) *Cubemap {
	c := NewCubemap(size)
	c.Fill(func(mgl32.Vec3) mgl32.Vec4 { return radiance.Vec4(1) })
	return c
}

func (c *Cubemap) At(face CubeFace, x, y int) mgl32.Vec4 {
	return c.Faces[face][y*c.Size+x]
}

func (c *Cubemap) Set(face CubeFace, x, y int, v mgl32.Vec4) {
	c.Faces[face][y*c.Size+x] = v
}

// Fill evaluates fn at every texel centre direction.
func (c *Cubemap) Fill(fn func(dir mgl32.Vec3) mgl32.Vec4) {
	for f := CubeFacePosX; f <= CubeFaceNegZ; f++ {
		for y := 0; y < c.Size; y++ {
			for x := 0; x < c.Size; x++ {
				dir := CubeFaceDirection(f, TexelCenter(x, y, c.Size, c.Size))
				c.Set(f, x, y, fn(dir))
			}
		}
	}
}

// Sample filters bilinearly within the selected face, clamping at face edges.
func (c *Cubemap) Sample(dir mgl32.Vec3) mgl32.Vec4 {
	face, uv := CubeFaceUV(dir)
	n := c.Size
	fx := uv.X()*float32(n) - 0.5
	fy := uv.Y()*float32(n) - 0.5
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	clampi := func(i int) int { return max(0, min(n-1, i)) }
	c00 := c.At(face, clampi(x0), clampi(y0))
	c10 := c.At(face, clampi(x0+1), clampi(y0))
	c01 := c.At(face, clampi(x0), clampi(y0+1))
	c11 := c.At(face, clampi(x0+1), clampi(y0+1))

	top := c00.Mul(1 - tx).Add(c10.Mul(tx))
	bottom := c01.Mul(1 - tx).Add(c11.Mul(tx))
	return top.Mul(1 - ty).Add(bottom.Mul(ty))
}
