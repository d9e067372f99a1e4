package frame

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrInvalidSize = errors.New("invalid image size")

func checkSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	return nil
}

// Image is a float RGBA render target.
type Image struct {
	Width  int
	Height int
	Pix    []mgl32.Vec4
}

func NewImage(width, height int) *Image {
	return &Image{Width: width, Height: height, Pix: make([]mgl32.Vec4, width*height)}
}

func (im *Image) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < im.Width && y < im.Height
}

func (im *Image) At(x, y int) mgl32.Vec4 {
	return im.Pix[y*im.Width+x]
}

func (im *Image) Set(x, y int, c mgl32.Vec4) {
	im.Pix[y*im.Width+x] = c
}

func (im *Image) Clear(c mgl32.Vec4) {
	for i := range im.Pix {
		im.Pix[i] = c
	}
}

func (im *Image) Clone() *Image {
	out := &Image{Width: im.Width, Height: im.Height, Pix: make([]mgl32.Vec4, len(im.Pix))}
	copy(out.Pix, im.Pix)
	return out
}

// Sample filters bilinearly with clamp-to-edge addressing; uv origin is top-left.
func (im *Image) Sample(uv mgl32.Vec2) mgl32.Vec4 {
	fx := uv.X()*float32(im.Width) - 0.5
	fy := uv.Y()*float32(im.Height) - 0.5
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	cx := func(x int) int { return max(0, min(im.Width-1, x)) }
	cy := func(y int) int { return max(0, min(im.Height-1, y)) }

	c00 := im.At(cx(x0), cy(y0))
	c10 := im.At(cx(x0+1), cy(y0))
	c01 := im.At(cx(x0), cy(y0+1))
	c11 := im.At(cx(x0+1), cy(y0+1))

	top := c00.Mul(1 - tx).Add(c10.Mul(tx))
	bottom := c01.Mul(1 - tx).Add(c11.Mul(tx))
	return top.Mul(1 - ty).Add(bottom.Mul(ty))
}

// DepthImage is a single-channel float32 target.
type DepthImage struct {
	Width  int
	Height int
	Pix    []float32
}

func NewDepthImage(width, height int) *DepthImage {
	return &DepthImage{Width: width, Height: height, Pix: make([]float32, width*height)}
}

func (d *DepthImage) At(x, y int) float32 {
	return d.Pix[y*d.Width+x]
}

func (d *DepthImage) Set(x, y int, v float32) {
	d.Pix[y*d.Width+x] = v
}

func (d *DepthImage) Clear(v float32) {
	for i := range d.Pix {
		d.Pix[i] = v
	}
}

// IDImage is a single-channel uint32 target.
type IDImage struct {
	Width  int
	Height int
	Pix    []uint32
}

func NewIDImage(width, height int) *IDImage {
	return &IDImage{Width: width, Height: height, Pix: make([]uint32, width*height)}
}

func (d *IDImage) At(x, y int) uint32 {
	return d.Pix[y*d.Width+x]
}

func (d *IDImage) Set(x, y int, v uint32) {
	d.Pix[y*d.Width+x] = v
}

func (d *IDImage) Clear() {
	clear(d.Pix)
}
