package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSceneAddAssignsIdentity(t *testing.T) {
	scene := NewScene()

	a := scene.Add("a", NewCube(1), NewTransform(), DefaultMaterial())
	b := scene.Add("b", NewCube(1), NewTransformAt(mgl32.Vec3{5, 0, 0}), DefaultMaterial())

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, uint32(1), a.PickID)
	assert.Equal(t, uint32(2), b.PickID)
	assert.True(t, a.CastShadows)

	assert.Same(t, b, scene.FindByPickID(2))
	assert.Nil(t, scene.FindByPickID(0))
	assert.Same(t, a, scene.Find(a.ID))

	require.True(t, scene.Remove(a.ID))
	assert.False(t, scene.Remove(a.ID))
	assert.Len(t, scene.Drawables, 1)
}

func TestSceneVisible(t *testing.T) {
	scene := NewScene()
	front := scene.Add("front", NewCube(1), NewTransformAt(mgl32.Vec3{0, 0, -5}), DefaultMaterial())
	scene.Add("behind", NewCube(1), NewTransformAt(mgl32.Vec3{0, 0, 5}), DefaultMaterial())

	cam := NewCameraState()
	cam.Position = mgl32.Vec3{0, 0, 0}
	cam.Pitch = 0
	data := cam.Data(1)

	visible := scene.Visible(ExtractFrustum(data.ViewProj))
	require.Len(t, visible, 1)
	assert.Same(t, front, visible[0])
}

func TestSceneEnvironmentVersion(t *testing.T) {
	scene := NewScene()
	assert.Equal(t, uint64(0), scene.EnvironmentVersion)
	scene.SetEnvironment(UniformCubemap(4, mgl32.Vec3{1, 1, 1}))
	scene.SetEnvironment(UniformCubemap(4, mgl32.Vec3{2, 2, 2}))
	assert.Equal(t, uint64(2), scene.EnvironmentVersion)
}

func TestMaterialEvaluate(t *testing.T) {
	m := NewMaterial(mgl32.Vec3{1, 0.5, 0.25}, 0.8, 1.0)
	p := m.Evaluate(mgl32.Vec2{0.5, 0.5})
	assert.Equal(t, mgl32.Vec3{1, 0.5, 0.25}, p.Albedo)
	assert.Equal(t, float32(1), p.AO)

	m.Textures.MetalRough = SolidTexture(mgl32.Vec4{0, 0.5, 0.25, 1})
	m.Textures.Albedo = SolidTexture(mgl32.Vec4{0.5, 0.5, 0.5, 1})
	p = m.Evaluate(mgl32.Vec2{0.1, 0.9})
	assert.InDelta(t, 0.4, p.Roughness, 1e-6)
	assert.InDelta(t, 0.25, p.Metalness, 1e-6)
	assert.InDelta(t, 0.25, p.Albedo.Y(), 1e-6)

	assert.Equal(t, mgl32.Vec3{0, 0, 1}, m.TangentNormal(mgl32.Vec2{}))
	m.Textures.Normal = SolidTexture(mgl32.Vec4{1, 0.5, 0.5, 1})
	assert.InDelta(t, 1, m.TangentNormal(mgl32.Vec2{}).X(), 1e-6)
}

func TestTransformComposition(t *testing.T) {
	tr := NewTransform()
	tr.Position = mgl32.Vec3{10, 20, 30}
	tr.Scale = mgl32.Vec3{2, 2, 2}
	tr.Rotation = mgl32.QuatRotate(0.7, mgl32.Vec3{0, 1, 0})

	identity := tr.ObjectToWorld().Mul4(tr.WorldToObject())
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := float32(0)
			if i == j {
				want = 1
			}
			if !closeEnough(identity.At(i, j), want, 0.001) {
				t.Errorf("Identity matrix element [%d,%d] should be %v, got %f", i, j, want, identity.At(i, j))
			}
		}
	}
}

func TestNormalMatrixNonUniformScale(t *testing.T) {
	tr := NewTransform()
	tr.Scale = mgl32.Vec3{4, 1, 1}

	// A 45 degree slope in XY: surface tangent (1,1,0), normal (-1,1,0).
	tangent := tr.ObjectToWorld().Mul4x1(mgl32.Vec4{1, 1, 0, 0}).Vec3()
	normal := tr.NormalMatrix().Mul3x1(mgl32.Vec3{-1, 1, 0}).Normalize()

	if !closeEnough(tangent.Dot(normal), 0, 1e-5) {
		t.Errorf("transformed normal not perpendicular: dot = %f", tangent.Dot(normal))
	}

	// Naive transform by the model matrix breaks perpendicularity.
	naive := tr.ObjectToWorld().Mul4x1(mgl32.Vec4{-1, 1, 0, 0}).Vec3().Normalize()
	if closeEnough(tangent.Dot(naive), 0, 1e-3) {
		t.Error("expected model-matrix normal transform to be wrong under non-uniform scale")
	}
}

func closeEnough(a, b, epsilon float32) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < epsilon
}
