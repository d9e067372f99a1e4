package frame

import (
	"sync/atomic"
	"testing"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkgroups(t *testing.T) {
	gx, gy := Workgroups(1920, 1080)
	assert.Equal(t, uint32(240), gx)
	assert.Equal(t, uint32(135), gy)

	gx, gy = Workgroups(13, 9)
	assert.Equal(t, uint32(2), gx)
	assert.Equal(t, uint32(2), gy)
}

func TestDispatchCoversEveryTexelOnce(t *testing.T) {
	for _, d := range []*Dispatcher{Serial(), NewDispatcher(4)} {
		for _, size := range [][2]int{{1, 1}, {13, 9}, {64, 64}, {301, 157}} {
			w, h := size[0], size[1]
			hits := make([]int32, w*h)
			var outOfBounds atomic.Int32
			d.Dispatch(w, h, func(x, y int) {
				if x < 0 || y < 0 || x >= w || y >= h {
					outOfBounds.Add(1)
					return
				}
				atomic.AddInt32(&hits[y*w+x], 1)
			})
			require.Zero(t, outOfBounds.Load(), "%dx%d with %d workers", w, h, d.Workers())
			for i, n := range hits {
				if n != 1 {
					t.Fatalf("%dx%d: texel %d visited %d times", w, h, i, n)
				}
			}
		}
	}
}

func TestDispatchEmptyTarget(t *testing.T) {
	called := false
	NewDispatcher(2).Dispatch(0, 10, func(x, y int) { called = true })
	assert.False(t, called)
}

func TestImageSample(t *testing.T) {
	im := NewImage(2, 1)
	im.Set(0, 0, mgl32.Vec4{0, 0, 0, 1})
	im.Set(1, 0, mgl32.Vec4{1, 1, 1, 1})

	assert.Equal(t, im.At(0, 0), im.Sample(mgl32.Vec2{0.25, 0.5}))
	assert.InDelta(t, 0.5, im.Sample(mgl32.Vec2{0.5, 0.5}).X(), 1e-6)
	// clamp to edge
	assert.Equal(t, im.At(1, 0), im.Sample(mgl32.Vec2{2, 0.5}))

	c := im.Clone()
	c.Set(0, 0, mgl32.Vec4{5, 5, 5, 5})
	assert.Equal(t, float32(0), im.At(0, 0).X())
}

func TestNewContext(t *testing.T) {
	cam := core.NewCameraState()
	lights := core.NewLightSet()
	require.NoError(t, lights.Add(core.NewPointLight(mgl32.Vec3{0, 3, 0}, mgl32.Vec3{10, 10, 10})))

	ctx, err := NewContext(7, 320, 200, cam, lights, core.DefaultRenderParams())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), ctx.Index)
	assert.Len(t, ctx.Lights.Points(), 1)
	assert.Equal(t, cam.Position, ctx.Camera.Position)

	_, err = NewContext(0, 0, 200, cam, lights, core.DefaultRenderParams())
	assert.ErrorIs(t, err, ErrInvalidSize)

	bad := core.DefaultRenderParams()
	bad.Exposure = -1
	_, err = NewContext(0, 320, 200, cam, lights, bad)
	assert.ErrorIs(t, err, core.ErrInvalidParams)
}
