package post

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/go-gl/mathgl/mgl32"
)

const DisplayGamma = 2.2

// belowOne is the largest float32 less than 1.
var belowOne = math32.Nextafter(1, 0)

func ExposureOperator(c, exposure float32) float32 {
	return 1 - math32.Exp(-c*exposure)
}

// ReinhardOperator saturates below 1 for every non-negative input,
// including +Inf.
func ReinhardOperator(c float32) float32 {
	if math32.IsInf(c, 1) {
		return belowOne
	}
	return min(c/(c+1), belowOne)
}

func GammaCorrect(c float32) float32 {
	return math32.Pow(c, 1/DisplayGamma)
}

// ToneMap maps an HDR colour to display range using the selected operator.
// Negative and NaN inputs map to zero.
func ToneMap(c mgl32.Vec3, op core.ToneMapOperator, exposure float32) mgl32.Vec3 {
	var out mgl32.Vec3
	for i := range 3 {
		v := c[i]
		if !(v > 0) {
			continue
		}
		switch op {
		case core.ToneMapReinhard:
			out[i] = min(GammaCorrect(ReinhardOperator(v)), belowOne)
		default:
			out[i] = GammaCorrect(ExposureOperator(v, exposure))
		}
	}
	return out
}

// ToneMapPass writes the display-ready image: tone map, then gamma.
type ToneMapPass struct {
	Dispatcher *frame.Dispatcher
}

func (p *ToneMapPass) Run(ctx *frame.Context, src, out *frame.Image) {
	op, exposure := ctx.Params.ToneMap, ctx.Params.Exposure
	p.Dispatcher.Dispatch(min(src.Width, out.Width), min(src.Height, out.Height), func(x, y int) {
		out.Set(x, y, ToneMap(src.At(x, y).Vec3(), op, exposure).Vec4(1))
	})
}

// Resolve quantizes a display-range image to 8 bits per channel.
func Resolve(img *frame.Image) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	q := func(v float32) uint8 {
		return uint8(mgl32.Clamp(v, 0, 1)*255 + 0.5)
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			c := img.At(x, y)
			out.SetRGBA(x, y, color.RGBA{R: q(c.X()), G: q(c.Y()), B: q(c.Z()), A: 255})
		}
	}
	return out
}
