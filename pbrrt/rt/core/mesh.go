package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex matches the GBuffer vertex layout: 14 floats, 56 bytes.
type Vertex struct {
	Position  mgl32.Vec3
	UV        mgl32.Vec2
	Normal    mgl32.Vec3
	Tangent   mgl32.Vec3
	Bitangent mgl32.Vec3
}

const VertexStride = 56

// Mesh is a finalized indexed triangle list, counter-clockwise front faces.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
}

func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

func (m *Mesh) Bounds() AABB {
	if len(m.Vertices) == 0 {
		return AABB{Min: mgl32.Vec3{1, 1, 1}, Max: mgl32.Vec3{-1, -1, -1}}
	}
	b := AABB{Min: m.Vertices[0].Position, Max: m.Vertices[0].Position}
	for _, v := range m.Vertices[1:] {
		for k := 0; k < 3; k++ {
			b.Min[k] = min(b.Min[k], v.Position[k])
			b.Max[k] = max(b.Max[k], v.Position[k])
		}
	}
	return b
}

// appendQuad adds a face with normal n = t x b centred at c, half size h.
func (m *Mesh) appendQuad(c, n, t, b mgl32.Vec3, h float32, uvScale float32) {
	base := uint32(len(m.Vertices))
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	uvs := [4]mgl32.Vec2{{0, 1}, {1, 1}, {1, 0}, {0, 0}}
	for i, k := range corners {
		p := c.Add(t.Mul(k[0] * h)).Add(b.Mul(k[1] * h))
		m.Vertices = append(m.Vertices, Vertex{
			Position: p,
			UV:       uvs[i].Mul(uvScale),
			Normal:   n,
		})
	}
	m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
}

// NewPlane returns a square in the XZ plane facing +Y.
func NewPlane(size float32, uvScale float32) *Mesh {
	m := &Mesh{Name: "Plane"}
	m.appendQuad(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, size/2, uvScale)
	m.ComputeTangents()
	return m
}

func NewCube(size float32) *Mesh {
	m := &Mesh{Name: "Cube"}
	h := size / 2
	faces := [6][3]mgl32.Vec3{
		{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
		{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
		{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}},
		{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
		{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
		{{0, 0, -1}, {-1, 0, 0}, {0, 1, 0}},
	}
	for _, f := range faces {
		m.appendQuad(f[0].Mul(h), f[0], f[1], f[2], h, 1)
	}
	m.ComputeTangents()
	return m
}

func NewUVSphere(radius float32, rings, segments int) *Mesh {
	rings = max(rings, 2)
	segments = max(segments, 3)
	m := &Mesh{Name: "Sphere"}

	for ring := 0; ring <= rings; ring++ {
		phi := float64(ring) * math.Pi / float64(rings)
		sinPhi, cosPhi := float32(math.Sin(phi)), float32(math.Cos(phi))
		for seg := 0; seg <= segments; seg++ {
			theta := float64(seg) * 2 * math.Pi / float64(segments)
			sinTheta, cosTheta := float32(math.Sin(theta)), float32(math.Cos(theta))

			n := mgl32.Vec3{sinPhi * cosTheta, cosPhi, sinPhi * sinTheta}
			m.Vertices = append(m.Vertices, Vertex{
				Position: n.Mul(radius),
				UV:       mgl32.Vec2{float32(seg) / float32(segments), float32(ring) / float32(rings)},
				Normal:   n,
			})
		}
	}

	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			current := uint32(ring*(segments+1) + seg)
			next := current + uint32(segments+1)
			m.Indices = append(m.Indices, current, current+1, next)
			m.Indices = append(m.Indices, current+1, next+1, next)
		}
	}
	m.ComputeTangents()
	return m
}

// ComputeTangents derives per-vertex tangent (dP/du) and bitangent (dP/dv)
// from UVs, Gram-Schmidt orthogonalized against the normal.
func (m *Mesh) ComputeTangents() {
	for i := range m.Vertices {
		m.Vertices[i].Tangent = mgl32.Vec3{}
		m.Vertices[i].Bitangent = mgl32.Vec3{}
	}

	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		v0, v1, v2 := m.Vertices[i0], m.Vertices[i1], m.Vertices[i2]

		e1 := v1.Position.Sub(v0.Position)
		e2 := v2.Position.Sub(v0.Position)
		du1, dv1 := v1.UV.X()-v0.UV.X(), v1.UV.Y()-v0.UV.Y()
		du2, dv2 := v2.UV.X()-v0.UV.X(), v2.UV.Y()-v0.UV.Y()

		denom := du1*dv2 - du2*dv1
		if denom == 0 {
			continue
		}
		r := 1 / denom
		t := e1.Mul(dv2 * r).Sub(e2.Mul(dv1 * r))
		b := e2.Mul(du1 * r).Sub(e1.Mul(du2 * r))

		for _, idx := range [3]uint32{i0, i1, i2} {
			m.Vertices[idx].Tangent = m.Vertices[idx].Tangent.Add(t)
			m.Vertices[idx].Bitangent = m.Vertices[idx].Bitangent.Add(b)
		}
	}

	for i := range m.Vertices {
		n := m.Vertices[i].Normal
		t := m.Vertices[i].Tangent
		t = t.Sub(n.Mul(n.Dot(t)))
		if t.Dot(t) < 1e-8 {
			if abs32(n.X()) < 0.9 {
				t = mgl32.Vec3{1, 0, 0}.Sub(n.Mul(n.X()))
			} else {
				t = mgl32.Vec3{0, 1, 0}.Sub(n.Mul(n.Y()))
			}
		}
		t = t.Normalize()
		m.Vertices[i].Tangent = t

		b := m.Vertices[i].Bitangent
		b = b.Sub(n.Mul(n.Dot(b))).Sub(t.Mul(t.Dot(b)))
		if b.Dot(b) < 1e-8 {
			b = n.Cross(t)
		}
		m.Vertices[i].Bitangent = b.Normalize()
	}
}
