package core

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Drawable is one mesh instance handed to the renderer by the scene layer.
type Drawable struct {
	ID          uuid.UUID
	PickID      uint32 // 0 means "nothing" in the picking buffer
	Name        string
	Mesh        *Mesh
	Transform   *Transform
	Material    Material
	CastShadows bool
}

func (d *Drawable) WorldBounds() AABB {
	return d.Mesh.Bounds().Transform(d.Transform.ObjectToWorld())
}

type Scene struct {
	Drawables   []*Drawable
	Lights      *LightSet
	Environment *Cubemap

	// EnvironmentVersion changes whenever Environment is replaced.
	EnvironmentVersion uint64

	nextPickID uint32
}

func NewScene() *Scene {
	return &Scene{
		Drawables: []*Drawable{},
		Lights:    NewLightSet(),
	}
}

// Add wraps mesh into a shadow-casting drawable and inserts it.
func (s *Scene) Add(name string, mesh *Mesh, transform *Transform, material Material) *Drawable {
	return s.AddDrawable(&Drawable{
		Name:        name,
		Mesh:        mesh,
		Transform:   transform,
		Material:    material,
		CastShadows: true,
	})
}

// AddDrawable assigns identity (uuid and pick id) when missing and inserts d.
func (s *Scene) AddDrawable(d *Drawable) *Drawable {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Transform == nil {
		d.Transform = NewTransform()
	}
	if d.PickID == 0 {
		s.nextPickID++
		d.PickID = s.nextPickID
	}
	s.Drawables = append(s.Drawables, d)
	return d
}

func (s *Scene) Remove(id uuid.UUID) bool {
	for i, d := range s.Drawables {
		if d.ID == id {
			s.Drawables = append(s.Drawables[:i], s.Drawables[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Scene) Find(id uuid.UUID) *Drawable {
	for _, d := range s.Drawables {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (s *Scene) FindByPickID(pickID uint32) *Drawable {
	if pickID == 0 {
		return nil
	}
	for _, d := range s.Drawables {
		if d.PickID == pickID {
			return d
		}
	}
	return nil
}

func (s *Scene) SetEnvironment(env *Cubemap) {
	s.Environment = env
	s.EnvironmentVersion++
}

// Visible returns the drawables whose world bounds intersect the frustum planes.
func (s *Scene) Visible(planes [6]mgl32.Vec4) []*Drawable {
	out := make([]*Drawable, 0, len(s.Drawables))
	for _, d := range s.Drawables {
		if d.Mesh == nil {
			continue
		}
		if d.WorldBounds().InFrustum(planes) {
			out = append(out, d)
		}
	}
	return out
}
