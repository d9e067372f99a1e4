package frame

import (
	"fmt"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
)

// Context is everything a pass may read about the frame being rendered.
// It is built once by the orchestrator and never mutated by a pass.
type Context struct {
	Index  uint64
	Width  int
	Height int
	Camera core.CameraData
	Lights core.LightSnapshot
	Params core.RenderParams
}

// NewContext snapshots camera, lights and params for one frame. Capacity and
// parameter errors surface here, before any pass is recorded.
func NewContext(index uint64, width, height int, camera *core.CameraState, lights *core.LightSet, params core.RenderParams) (*Context, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	snap := core.LightSnapshot{}
	if lights != nil {
		var err error
		snap, err = lights.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", index, err)
		}
	}
	return &Context{
		Index:  index,
		Width:  width,
		Height: height,
		Camera: camera.Data(float32(width) / float32(height)),
		Lights: snap,
		Params: params,
	}, nil
}

// UV returns the texture-space centre of texel (x, y).
func (c *Context) UV(x, y int) [2]float32 {
	uv := core.TexelCenter(x, y, c.Width, c.Height)
	return [2]float32{uv.X(), uv.Y()}
}
