package ibl

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/chewxy/math32"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/go-gl/mathgl/mgl32"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

const DefaultEnvironmentSize = 256

// EquirectUV maps a direction to latitude-longitude texture coordinates,
// +Y at the top row.
func EquirectUV(dir mgl32.Vec3) mgl32.Vec2 {
	d := dir.Normalize()
	u := 0.5 + math32.Atan2(d.Z(), d.X())/(2*math32.Pi)
	v := math32.Acos(mgl32.Clamp(d.Y(), -1, 1)) / math32.Pi
	return mgl32.Vec2{u, v}
}

// EquirectToCubemap projects a latitude-longitude panorama onto a cube.
func EquirectToCubemap(tex *core.Texture2D, size int, d *frame.Dispatcher) *core.Cubemap {
	if size <= 0 {
		size = DefaultEnvironmentSize
	}
	out := core.NewCubemap(size)
	// latitude must not wrap across the poles
	vMin := 0.5 / float32(tex.Height)
	for face := core.CubeFacePosX; face <= core.CubeFaceNegZ; face++ {
		d.Dispatch(size, size, func(x, y int) {
			dir := core.CubeFaceDirection(face, core.TexelCenter(x, y, size, size))
			uv := EquirectUV(dir)
			uv[1] = mgl32.Clamp(uv[1], vMin, 1-vMin)
			c := tex.SampleBilinear(uv)
			out.Set(face, x, y, mgl32.Vec4{c.X(), c.Y(), c.Z(), 1})
		})
	}
	return out
}

// LoadEquirect decodes a PNG, JPEG, BMP or TIFF panorama into linear RGB.
// 8-bit images are treated as gamma encoded, 16-bit ones as linear. Images
// wider than maxWidth are downscaled first; zero keeps the source size.
func LoadEquirect(path string, maxWidth int) (*core.Texture2D, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open environment: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode environment %s: %w", path, err)
	}

	srgb := !highPrecision(img)
	if b := img.Bounds(); maxWidth > 0 && b.Dx() > maxWidth {
		h := max(1, b.Dy()*maxWidth/b.Dx())
		dst := image.NewRGBA64(image.Rect(0, 0, maxWidth, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
	}
	return core.TextureFromImage(img, srgb), nil
}

func highPrecision(img image.Image) bool {
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16:
		return true
	}
	return false
}
