package post

import (
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/go-gl/mathgl/mgl32"
)

// Downsample halves src with a 2x2 box filter. Odd edges clamp to the last
// row or column.
func Downsample(src *frame.Image, d *frame.Dispatcher) *frame.Image {
	w := max(src.Width/2, 1)
	h := max(src.Height/2, 1)
	out := frame.NewImage(w, h)
	d.Dispatch(w, h, func(x, y int) {
		x0, y0 := min(2*x, src.Width-1), min(2*y, src.Height-1)
		x1, y1 := min(2*x+1, src.Width-1), min(2*y+1, src.Height-1)
		sum := src.At(x0, y0).Add(src.At(x1, y0)).Add(src.At(x0, y1)).Add(src.At(x1, y1))
		out.Set(x, y, sum.Mul(0.25))
	})
	return out
}

// BuildMipChain returns src followed by successive halvings, at most levels
// images in total, stopping at 1x1.
func BuildMipChain(src *frame.Image, levels int, d *frame.Dispatcher) []*frame.Image {
	chain := []*frame.Image{src}
	for len(chain) < levels {
		last := chain[len(chain)-1]
		if last.Width == 1 && last.Height == 1 {
			break
		}
		chain = append(chain, Downsample(last, d))
	}
	return chain
}

// MipLevels is the length of a full chain for a width x height image.
func MipLevels(width, height int) int {
	n := 1
	for width > 1 || height > 1 {
		width, height = max(width/2, 1), max(height/2, 1)
		n++
	}
	return n
}

func lerp4(a, b mgl32.Vec4, t mgl32.Vec3) mgl32.Vec4 {
	return mgl32.Vec4{
		a.X() + (b.X()-a.X())*t.X(),
		a.Y() + (b.Y()-a.Y())*t.Y(),
		a.Z() + (b.Z()-a.Z())*t.Z(),
		a.W(),
	}
}
