package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestFrustumCulling(t *testing.T) {
	// Camera at origin looking down -Z, 90 deg FOV, near 1, far 100
	proj := PerspectiveZO(mgl32.DegToRad(90), 1.0, 1.0, 100.0)
	view := mgl32.LookAtV(
		mgl32.Vec3{0, 0, 0},
		mgl32.Vec3{0, 0, -1},
		mgl32.Vec3{0, 1, 0},
	)
	planes := ExtractFrustum(proj.Mul4(view))

	tests := []struct {
		name     string
		box      AABB
		expected bool
	}{
		{"Inside (center)", AABB{mgl32.Vec3{-1, -1, -10}, mgl32.Vec3{1, 1, -5}}, true},
		{"Outside (Left)", AABB{mgl32.Vec3{-20, -1, -10}, mgl32.Vec3{-15, 1, -5}}, false},
		{"Outside (Right)", AABB{mgl32.Vec3{15, -1, -10}, mgl32.Vec3{20, 1, -5}}, false},
		{"Outside (Behind)", AABB{mgl32.Vec3{-1, -1, 2}, mgl32.Vec3{1, 1, 5}}, false},
		{"Outside (Far)", AABB{mgl32.Vec3{-1, -1, -200}, mgl32.Vec3{1, 1, -150}}, false},
		{"Intersecting (Left Plane)", AABB{mgl32.Vec3{-15, -1, -10}, mgl32.Vec3{-5, 1, -5}}, true},
		{"Encompassing (Huge box)", AABB{mgl32.Vec3{-1000, -1000, -1000}, mgl32.Vec3{1000, 1000, 1000}}, true},
	}

	for _, tc := range tests {
		if visible := tc.box.InFrustum(planes); visible != tc.expected {
			t.Errorf("Test %s failed: expected %v, got %v", tc.name, tc.expected, visible)
			for i, p := range planes {
				dist := p.Dot(tc.box.Center().Vec4(1.0))
				t.Logf("  P%d: %v, Dist(Center)=%f", i, p, dist)
			}
		}
	}
}

func TestFrustumOrtho(t *testing.T) {
	proj := OrthoZO(-10, 10, -10, 10, 0, 20)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	planes := ExtractFrustum(proj.Mul4(view))

	if !(AABB{mgl32.Vec3{-1, -1, -6}, mgl32.Vec3{1, 1, -4}}).InFrustum(planes) {
		t.Error("Ortho: AABB should be inside")
	}
	// far = 20 means z = -20 in view space
	if (AABB{mgl32.Vec3{-1, -1, -26}, mgl32.Vec3{1, 1, -24}}).InFrustum(planes) {
		t.Error("Ortho: AABB at -25 should be outside")
	}
}

func TestAABBTransform(t *testing.T) {
	box := AABB{mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}}
	tr := NewTransformAt(mgl32.Vec3{10, 0, 0})
	tr.Scale = mgl32.Vec3{2, 1, 1}

	w := box.Transform(tr.ObjectToWorld())
	if !closeEnough(w.Min.X(), 8, 1e-4) || !closeEnough(w.Max.X(), 12, 1e-4) {
		t.Errorf("unexpected x range %v..%v", w.Min.X(), w.Max.X())
	}
	if !closeEnough(w.Min.Y(), -1, 1e-4) || !closeEnough(w.Max.Y(), 1, 1e-4) {
		t.Errorf("unexpected y range %v..%v", w.Min.Y(), w.Max.Y())
	}
}
