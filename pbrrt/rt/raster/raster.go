// Package raster is an edge-function triangle rasterizer used by the CPU
// reference passes. It follows the WebGPU fixed-function conventions: clip
// z in [0, w], counter-clockwise NDC front faces, texel centres at half
// integers and a less-than depth test.
package raster

import (
	"math"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
	"github.com/go-gl/mathgl/mgl32"
)

type CullMode int

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

type FrontFace int

const (
	FrontCCW FrontFace = iota
	FrontCW
)

// State mirrors the primitive and depth-stencil state of a render pipeline.
type State struct {
	Cull      CullMode
	Front     FrontFace
	DepthBias float32
}

// Target is the set of attachments a draw writes. With a nil Depth the depth
// test is disabled.
type Target struct {
	Width  int
	Height int
	Depth  *frame.DepthImage
}

func NewTarget(depth *frame.DepthImage) Target {
	return Target{Width: depth.Width, Height: depth.Height, Depth: depth}
}

// ClipVertex is a vertex shader output.
type ClipVertex struct {
	Clip mgl32.Vec4
	Vary []float32
}

// FragmentFunc receives every fragment that survives the depth test. vary is
// reused between calls.
type FragmentFunc func(x, y int, depth float32, vary []float32)

type Stats struct {
	Triangles int
	Culled    int
	Clipped   int
	Fragments int
}

func (s *Stats) Add(o Stats) {
	s.Triangles += o.Triangles
	s.Culled += o.Culled
	s.Clipped += o.Clipped
	s.Fragments += o.Fragments
}

// Mesh transforms every vertex through mvp, evaluates varying for it and
// rasterizes the indexed triangle list.
func Mesh(tgt Target, st State, mesh *core.Mesh, mvp mgl32.Mat4, nvary int, varying func(v *core.Vertex, out []float32), frag FragmentFunc) Stats {
	verts := make([]ClipVertex, len(mesh.Vertices))
	for i := range mesh.Vertices {
		v := &mesh.Vertices[i]
		cv := ClipVertex{Clip: mvp.Mul4x1(v.Position.Vec4(1))}
		if nvary > 0 {
			cv.Vary = make([]float32, nvary)
			varying(v, cv.Vary)
		}
		verts[i] = cv
	}

	var stats Stats
	scratch := make([]float32, nvary)
	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		tri := [3]ClipVertex{verts[mesh.Indices[i]], verts[mesh.Indices[i+1]], verts[mesh.Indices[i+2]]}
		stats.Add(triangle(tgt, st, tri, scratch, frag))
	}
	return stats
}

// Triangle rasterizes a single clip-space triangle.
func Triangle(tgt Target, st State, v [3]ClipVertex, frag FragmentFunc) Stats {
	return triangle(tgt, st, v, make([]float32, len(v[0].Vary)), frag)
}

func triangle(tgt Target, st State, v [3]ClipVertex, scratch []float32, frag FragmentFunc) Stats {
	stats := Stats{Triangles: 1}
	poly := clipNear(v[:])
	if len(poly) < 3 {
		stats.Clipped++
		return stats
	}
	if len(poly) != 3 {
		stats.Clipped++
	}
	for i := 1; i+1 < len(poly); i++ {
		if !raster(tgt, st, [3]ClipVertex{poly[0], poly[i], poly[i+1]}, scratch, frag, &stats) {
			stats.Culled++
			return stats
		}
	}
	return stats
}

// clipNear clips the polygon against z >= 0, the WebGPU near plane.
func clipNear(in []ClipVertex) []ClipVertex {
	inside := 0
	for _, v := range in {
		if v.Clip.Z() >= 0 {
			inside++
		}
	}
	if inside == len(in) {
		return in
	}
	if inside == 0 {
		return nil
	}
	out := make([]ClipVertex, 0, len(in)+1)
	for i := range in {
		a := in[i]
		b := in[(i+1)%len(in)]
		da, db := a.Clip.Z(), b.Clip.Z()
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			t := da / (da - db)
			out = append(out, lerpVertex(a, b, t))
		}
	}
	return out
}

func lerpVertex(a, b ClipVertex, t float32) ClipVertex {
	out := ClipVertex{Clip: a.Clip.Add(b.Clip.Sub(a.Clip).Mul(t))}
	if len(a.Vary) > 0 {
		out.Vary = make([]float32, len(a.Vary))
		for i := range a.Vary {
			out.Vary[i] = a.Vary[i] + (b.Vary[i]-a.Vary[i])*t
		}
	}
	return out
}

type screenVertex struct {
	x, y, z float32
	invW    float32
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// raster returns false when the triangle is culled.
func raster(tgt Target, st State, v [3]ClipVertex, scratch []float32, frag FragmentFunc, stats *Stats) bool {
	var s [3]screenVertex
	for i, cv := range v {
		w := cv.Clip.W()
		if w <= 0 {
			return true
		}
		invW := 1 / w
		ndcX := cv.Clip.X() * invW
		ndcY := cv.Clip.Y() * invW
		s[i] = screenVertex{
			x:    (ndcX*0.5 + 0.5) * float32(tgt.Width),
			y:    (0.5 - ndcY*0.5) * float32(tgt.Height),
			z:    cv.Clip.Z() * invW,
			invW: invW,
		}
	}

	area := edge(s[0].x, s[0].y, s[1].x, s[1].y, s[2].x, s[2].y)
	if area == 0 {
		return true
	}
	// y points down in screen space, so an NDC counter-clockwise triangle has negative area.
	front := area < 0
	if st.Front == FrontCW {
		front = !front
	}
	if (st.Cull == CullBack && !front) || (st.Cull == CullFront && front) {
		return false
	}

	minX := max(0, int(math.Floor(float64(min(s[0].x, s[1].x, s[2].x)))))
	maxX := min(tgt.Width-1, int(math.Ceil(float64(max(s[0].x, s[1].x, s[2].x)))))
	minY := max(0, int(math.Floor(float64(min(s[0].y, s[1].y, s[2].y)))))
	maxY := min(tgt.Height-1, int(math.Ceil(float64(max(s[0].y, s[1].y, s[2].y)))))

	invArea := 1 / area
	for py := minY; py <= maxY; py++ {
		cy := float32(py) + 0.5
		for px := minX; px <= maxX; px++ {
			cx := float32(px) + 0.5
			b0 := edge(s[1].x, s[1].y, s[2].x, s[2].y, cx, cy) * invArea
			b1 := edge(s[2].x, s[2].y, s[0].x, s[0].y, cx, cy) * invArea
			b2 := edge(s[0].x, s[0].y, s[1].x, s[1].y, cx, cy) * invArea
			if b0 < 0 || b1 < 0 || b2 < 0 {
				continue
			}

			depth := b0*s[0].z + b1*s[1].z + b2*s[2].z + st.DepthBias
			if depth < 0 || depth > 1 {
				continue
			}
			if tgt.Depth != nil {
				if depth >= tgt.Depth.At(px, py) {
					continue
				}
				tgt.Depth.Set(px, py, depth)
			}

			if len(scratch) > 0 {
				p0, p1, p2 := b0*s[0].invW, b1*s[1].invW, b2*s[2].invW
				norm := 1 / (p0 + p1 + p2)
				for i := range scratch {
					scratch[i] = (p0*v[0].Vary[i] + p1*v[1].Vary[i] + p2*v[2].Vary[i]) * norm
				}
			}
			stats.Fragments++
			if frag != nil {
				frag(px, py, depth, scratch)
			}
		}
	}
	return true
}
