package frame

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// WorkgroupSize is the side of the square compute tile, matching
// @workgroup_size(8, 8) in the WGSL passes.
const WorkgroupSize = 8

// maxTasks bounds in-flight tasks below the pool queue size.
const maxTasks = 128

// Workgroups returns the dispatch grid covering a width x height target.
func Workgroups(width, height int) (uint32, uint32) {
	return uint32((width + WorkgroupSize - 1) / WorkgroupSize), uint32((height + WorkgroupSize - 1) / WorkgroupSize)
}

// Dispatcher runs per-texel kernels the way a compute dispatch does: the
// target is tiled in 8x8 workgroups, every invocation owns one texel and
// invocations past the image edge return without calling the kernel.
// Workers persist across frames; Dispatch returns after the implicit
// end-of-dispatch barrier.
type Dispatcher struct {
	pool    worker.DynamicWorkerPool
	workers int
}

// NewDispatcher creates a dispatcher with the given worker count; zero or
// negative picks one per spare CPU. A single worker runs kernels inline.
func NewDispatcher(workers int) *Dispatcher {
	if workers <= 0 {
		workers = max(runtime.NumCPU()-1, 1)
	}
	d := &Dispatcher{workers: workers}
	if workers > 1 {
		d.pool = worker.NewDynamicWorkerPool(workers, 256, 1*time.Second)
	}
	return d
}

// Serial returns a dispatcher that runs every workgroup on the calling goroutine.
func Serial() *Dispatcher {
	return &Dispatcher{workers: 1}
}

func (d *Dispatcher) Workers() int {
	if d == nil {
		return 1
	}
	return d.workers
}

func runGroups(width, height, gyStart, gyEnd, groupsX int, kernel func(x, y int)) {
	for gy := gyStart; gy < gyEnd; gy++ {
		for gx := 0; gx < groupsX; gx++ {
			for ly := 0; ly < WorkgroupSize; ly++ {
				for lx := 0; lx < WorkgroupSize; lx++ {
					x := gx*WorkgroupSize + lx
					y := gy*WorkgroupSize + ly
					if x >= width || y >= height {
						continue
					}
					kernel(x, y)
				}
			}
		}
	}
}

// Dispatch invokes kernel(x, y) once for every texel of a width x height target.
func (d *Dispatcher) Dispatch(width, height int, kernel func(x, y int)) {
	if width <= 0 || height <= 0 {
		return
	}
	gx, gy := Workgroups(width, height)
	groupsX, groupsY := int(gx), int(gy)

	if d == nil || d.pool == nil || groupsY == 1 {
		runGroups(width, height, 0, groupsY, groupsX, kernel)
		return
	}

	tasks := min(groupsY, maxTasks)
	band := (groupsY + tasks - 1) / tasks

	var wg sync.WaitGroup
	id := 0
	for start := 0; start < groupsY; start += band {
		end := min(start+band, groupsY)
		wg.Add(1)
		s, e := start, end
		d.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				runGroups(width, height, s, e, groupsX, kernel)
				return nil, nil
			},
		})
		id++
	}
	wg.Wait()
}
