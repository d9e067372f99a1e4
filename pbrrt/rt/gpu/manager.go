package gpu

import (
	"fmt"

	"github.com/gekko3d/deferred/pbrrt/rt/bvh"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/cogentcore/webgpu/wgpu"
)

// MeshBuffers are the uploaded vertex and index buffers of one mesh.
type MeshBuffers struct {
	Vertex     *wgpu.Buffer
	Index      *wgpu.Buffer
	IndexCount uint32
}

func (b *MeshBuffers) Release() {
	if b.Vertex != nil {
		b.Vertex.Release()
	}
	if b.Index != nil {
		b.Index.Release()
	}
}

// GpuBufferManager owns every uniform and geometry buffer of the GPU
// backend. Uniforms are rewritten once per frame and are read-only for
// the passes of that frame.
type GpuBufferManager struct {
	Device *wgpu.Device

	CameraBuf     *wgpu.Buffer
	LightsBuf     *wgpu.Buffer
	ParamsBuf     *wgpu.Buffer
	InstancesBuf  *wgpu.Buffer
	ShadowViewBuf *wgpu.Buffer

	Meshes map[*core.Mesh]*MeshBuffers

	// Drawables in instance-slot order; slot i lives at i*DynamicStride.
	Drawables   []*core.Drawable
	ShadowViews []ShadowView

	bounds *bvh.Tree
}

func NewGpuBufferManager(device *wgpu.Device) *GpuBufferManager {
	return &GpuBufferManager{
		Device: device,
		Meshes: make(map[*core.Mesh]*MeshBuffers),
	}
}

// ensureBuffer grows buf to fit data and uploads it. It reports whether the
// buffer was recreated, in which case bind groups referencing it are stale.
func (m *GpuBufferManager) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, headroom int) (bool, error) {
	neededSize := uint64(len(data) + headroom)
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}

	current := *buf
	recreated := false
	if current == nil || current.GetSize() < neededSize {
		if current != nil {
			current.Release()
		}
		newBuf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: name,
			Size:  neededSize,
			Usage: usage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			*buf = nil
			return false, fmt.Errorf("create %s: %w", name, err)
		}
		*buf = newBuf
		recreated = true
	}
	if len(data) > 0 {
		m.Device.GetQueue().WriteBuffer(*buf, 0, data)
	}
	return recreated, nil
}

// UpdateFrame writes the per-frame uniforms: camera, lights, params and the
// shadow views. It reports whether any uniform buffer was recreated.
func (m *GpuBufferManager) UpdateFrame(camera core.CameraData, width, height int, hasEnvironment bool, lights core.LightSnapshot, params core.RenderParams) (bool, error) {
	lightData, err := PackLights(lights)
	if err != nil {
		return false, err
	}
	viewData, views := PackShadowViews(lights)
	m.ShadowViews = views

	recreated := false
	uploads := []struct {
		name  string
		buf   **wgpu.Buffer
		data  []byte
		usage wgpu.BufferUsage
	}{
		{"CameraUB", &m.CameraBuf, PackCamera(camera, width, height, hasEnvironment), wgpu.BufferUsageUniform},
		{"LightsUB", &m.LightsBuf, lightData, wgpu.BufferUsageUniform},
		{"ParamsUB", &m.ParamsBuf, PackParams(params), wgpu.BufferUsageUniform},
		{"ShadowViewUB", &m.ShadowViewBuf, viewData, wgpu.BufferUsageUniform},
	}
	for _, u := range uploads {
		r, err := m.ensureBuffer(u.name, u.buf, u.data, u.usage, 0)
		if err != nil {
			return false, err
		}
		recreated = recreated || r
	}
	return recreated, nil
}

// UpdateScene uploads instance uniforms for drawables and any mesh not
// resident yet. Meshes no longer referenced are released.
func (m *GpuBufferManager) UpdateScene(drawables []*core.Drawable) (bool, error) {
	m.Drawables = m.Drawables[:0]
	used := make(map[*core.Mesh]bool, len(m.Meshes))
	for _, d := range drawables {
		if d.Mesh == nil || len(d.Mesh.Indices) == 0 {
			continue
		}
		m.Drawables = append(m.Drawables, d)
		used[d.Mesh] = true
		if _, ok := m.Meshes[d.Mesh]; ok {
			continue
		}
		mb, err := m.uploadMesh(d.Mesh)
		if err != nil {
			return false, err
		}
		m.Meshes[d.Mesh] = mb
	}
	worldBounds := make([]core.AABB, len(m.Drawables))
	for i, d := range m.Drawables {
		worldBounds[i] = d.WorldBounds()
	}
	m.bounds = bvh.Build(worldBounds)

	for mesh, mb := range m.Meshes {
		if !used[mesh] {
			mb.Release()
			delete(m.Meshes, mesh)
		}
	}

	// keep room for a few more drawables before the bind groups go stale
	return m.ensureBuffer("InstancesUB", &m.InstancesBuf, PackInstances(m.Drawables), wgpu.BufferUsageUniform, 16*DynamicStride)
}

// Visible masks the drawables of the last UpdateScene against planes.
func (m *GpuBufferManager) Visible(planes [6]mgl32.Vec4) []bool {
	if m.bounds == nil || m.bounds.Len() != len(m.Drawables) {
		mask := make([]bool, len(m.Drawables))
		for i, d := range m.Drawables {
			mask[i] = d.WorldBounds().InFrustum(planes)
		}
		return mask
	}
	return m.bounds.Visible(planes)
}

func (m *GpuBufferManager) uploadMesh(mesh *core.Mesh) (*MeshBuffers, error) {
	mb := &MeshBuffers{IndexCount: uint32(len(mesh.Indices))}
	if _, err := m.ensureBuffer("VertexBuf "+mesh.Name, &mb.Vertex, PackVertices(mesh), wgpu.BufferUsageVertex, 0); err != nil {
		return nil, err
	}
	if _, err := m.ensureBuffer("IndexBuf "+mesh.Name, &mb.Index, PackIndices(mesh), wgpu.BufferUsageIndex, 0); err != nil {
		mb.Release()
		return nil, err
	}
	return mb, nil
}

// InstanceOffset is the dynamic offset of drawable slot i.
func InstanceOffset(i int) uint32 {
	return uint32(i * DynamicStride)
}

func (m *GpuBufferManager) Release() {
	for _, b := range []*wgpu.Buffer{m.CameraBuf, m.LightsBuf, m.ParamsBuf, m.InstancesBuf, m.ShadowViewBuf} {
		if b != nil {
			b.Release()
		}
	}
	for mesh, mb := range m.Meshes {
		mb.Release()
		delete(m.Meshes, mesh)
	}
}
