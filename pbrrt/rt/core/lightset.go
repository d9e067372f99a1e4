package core

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	MaxPointLights       = 10
	MaxDirectionalLights = 10
)

// ErrLightCapacity is returned when a light would exceed the fixed GPU light capacity.
var ErrLightCapacity = errors.New("light capacity exceeded")

// LightSet is the authoritative, bounded list of scene lights. Each light owns a
// shadow slot (array layer or cube index) for as long as it is in the set;
// slots of removed lights are reused.
type LightSet struct {
	order []Light
	slots map[Light]int

	maxPoint       int
	maxDirectional int

	nextPoint, nextDirectional int
	freePoint, freeDirectional []int
}

func NewLightSet() *LightSet {
	return NewLightSetWithCapacity(MaxPointLights, MaxDirectionalLights)
}

func NewLightSetWithCapacity(maxPoint, maxDirectional int) *LightSet {
	return &LightSet{
		slots:          make(map[Light]int),
		maxPoint:       maxPoint,
		maxDirectional: maxDirectional,
	}
}

func (s *LightSet) MaxPoint() int       { return s.maxPoint }
func (s *LightSet) MaxDirectional() int { return s.maxDirectional }
func (s *LightSet) Len() int            { return len(s.order) }
func (s *LightSet) Lights() []Light     { return s.order }

func (s *LightSet) count(kind LightKind) int {
	n := 0
	for _, l := range s.order {
		if l.Kind() == kind {
			n++
		}
	}
	return n
}

func (s *LightSet) PointCount() int       { return s.count(LightKindPoint) }
func (s *LightSet) DirectionalCount() int { return s.count(LightKindDirectional) }

// Add inserts l. Adding a light already in the set is a no-op.
func (s *LightSet) Add(l Light) error {
	if l == nil {
		return errors.New("nil light")
	}
	if _, ok := s.slots[l]; ok {
		return nil
	}

	var slot int
	switch l.(type) {
	case *PointLight:
		if s.PointCount() >= s.maxPoint {
			return fmt.Errorf("%w: %d point lights", ErrLightCapacity, s.maxPoint)
		}
		slot = takeSlot(&s.freePoint, &s.nextPoint)
	case *DirectionalLight:
		if s.DirectionalCount() >= s.maxDirectional {
			return fmt.Errorf("%w: %d directional lights", ErrLightCapacity, s.maxDirectional)
		}
		slot = takeSlot(&s.freeDirectional, &s.nextDirectional)
	default:
		return fmt.Errorf("unsupported light type %T", l)
	}

	s.slots[l] = slot
	s.order = append(s.order, l)
	return nil
}

func takeSlot(free *[]int, next *int) int {
	if n := len(*free); n > 0 {
		slot := (*free)[n-1]
		*free = (*free)[:n-1]
		return slot
	}
	slot := *next
	*next++
	return slot
}

func (s *LightSet) Remove(l Light) bool {
	slot, ok := s.slots[l]
	if !ok {
		return false
	}
	delete(s.slots, l)
	for i, o := range s.order {
		if o == l {
			// earlier Lights results must keep their elements
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	switch l.(type) {
	case *PointLight:
		s.freePoint = append(s.freePoint, slot)
	case *DirectionalLight:
		s.freeDirectional = append(s.freeDirectional, slot)
	}
	return true
}

func (s *LightSet) Clear() {
	s.order = nil
	clear(s.slots)
	s.nextPoint, s.nextDirectional = 0, 0
	s.freePoint, s.freeDirectional = nil, nil
}

// Slot returns the shadow slot owned by l.
func (s *LightSet) Slot(l Light) (int, bool) {
	slot, ok := s.slots[l]
	return slot, ok
}

// LightData is one light as seen by a single frame. Implemented by
// PointLightData and DirectionalLightData.
type LightData interface {
	lightData()
}

type PointLightData struct {
	Slot          int
	Position      mgl32.Vec3
	Color         mgl32.Vec3
	FarPlane      float32
	FaceViewProjs [6]mgl32.Mat4
}

type DirectionalLightData struct {
	Slot      int
	Direction mgl32.Vec3 // normalized travel direction
	Color     mgl32.Vec3
	ViewProj  mgl32.Mat4
}

func (PointLightData) lightData()       {}
func (DirectionalLightData) lightData() {}

// LightSnapshot is the immutable per-frame copy of a LightSet.
type LightSnapshot struct {
	Lights         []LightData
	PointSlots     int // number of cube slots needed
	DirectionSlots int // number of array layers needed
}

func (s *LightSet) Snapshot() (LightSnapshot, error) {
	if s.PointCount() > s.maxPoint || s.DirectionalCount() > s.maxDirectional {
		return LightSnapshot{}, ErrLightCapacity
	}
	snap := LightSnapshot{Lights: make([]LightData, 0, len(s.order))}
	for _, l := range s.order {
		slot := s.slots[l]
		switch l := l.(type) {
		case *PointLight:
			snap.Lights = append(snap.Lights, PointLightData{
				Slot:          slot,
				Position:      l.Position,
				Color:         l.Color,
				FarPlane:      l.Far(),
				FaceViewProjs: l.FaceViewProjs(),
			})
			snap.PointSlots = max(snap.PointSlots, slot+1)
		case *DirectionalLight:
			snap.Lights = append(snap.Lights, DirectionalLightData{
				Slot:      slot,
				Direction: l.Dir(),
				Color:     l.Color,
				ViewProj:  l.ViewProj(),
			})
			snap.DirectionSlots = max(snap.DirectionSlots, slot+1)
		}
	}
	return snap, nil
}

func (s LightSnapshot) Points() []PointLightData {
	var out []PointLightData
	for _, l := range s.Lights {
		if p, ok := l.(PointLightData); ok {
			out = append(out, p)
		}
	}
	return out
}

func (s LightSnapshot) Directionals() []DirectionalLightData {
	var out []DirectionalLightData
	for _, l := range s.Lights {
		if d, ok := l.(DirectionalLightData); ok {
			out = append(out, d)
		}
	}
	return out
}
