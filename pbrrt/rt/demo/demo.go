// Package demo builds the showcase scene shared by the viewer and the
// offline renderer.
package demo

import (
	"fmt"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	GridSize    = 5
	GridSpacing = 1.2
)

// Build fills scene with a ground plane, a grid of spheres sweeping
// roughness across columns and metalness across rows, two cubes, one
// directional light and two point lights.
func Build(scene *core.Scene) error {
	ground := core.NewMaterial(mgl32.Vec3{0.8, 0.8, 0.8}, 0.6, 0)
	ground.Textures.Albedo = Checker(64, 8, mgl32.Vec4{0.9, 0.9, 0.9, 1}, mgl32.Vec4{0.35, 0.35, 0.35, 1})
	scene.Add("ground", core.NewPlane(20, 4), core.NewTransform(), ground)

	sphere := core.NewUVSphere(0.45, 16, 32)
	origin := -float32(GridSize-1) * GridSpacing / 2
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			roughness := mgl32.Clamp(float32(col)/float32(GridSize-1), 0.05, 1)
			metalness := float32(row) / float32(GridSize-1)
			pos := mgl32.Vec3{origin + float32(col)*GridSpacing, 0.5 + float32(row)*GridSpacing, -3}
			scene.Add(fmt.Sprintf("sphere r%.2f m%.2f", roughness, metalness), sphere,
				core.NewTransformAt(pos), core.NewMaterial(mgl32.Vec3{0.9, 0.2, 0.15}, roughness, metalness))
		}
	}

	cube := core.NewCube(1)
	scene.Add("cube gold", cube, core.NewTransformAt(mgl32.Vec3{-3.5, 0.5, 1}), core.NewMaterial(mgl32.Vec3{1, 0.78, 0.34}, 0.3, 1))
	scene.Add("cube plastic", cube, core.NewTransformAt(mgl32.Vec3{3.5, 0.5, 1}), core.NewMaterial(mgl32.Vec3{0.1, 0.4, 0.9}, 0.5, 0))

	lights := []core.Light{
		core.NewDirectionalLight(mgl32.Vec3{-0.4, -1, -0.3}, mgl32.Vec3{2.5, 2.4, 2.2}),
		core.NewPointLight(mgl32.Vec3{-2, 3, 2}, mgl32.Vec3{8, 6, 4}),
		core.NewPointLight(mgl32.Vec3{2.5, 2, 0}, mgl32.Vec3{3, 5, 9}),
	}
	for _, l := range lights {
		if err := scene.Lights.Add(l); err != nil {
			return fmt.Errorf("demo light: %w", err)
		}
	}
	return nil
}

// Camera returns a view framing the sphere grid.
func Camera() *core.CameraState {
	cam := core.NewCameraState()
	cam.Position = mgl32.Vec3{0, 3.5, 7}
	cam.LookAt(mgl32.Vec3{0, 2, -3})
	return cam
}

// Checker returns a size x size texture of cells x cells alternating squares.
func Checker(size, cells int, a, b mgl32.Vec4) *core.Texture2D {
	tex := core.NewTexture2D(size, size)
	cell := max(size/cells, 1)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x/cell+y/cell)%2 == 0 {
				tex.Set(x, y, a)
			} else {
				tex.Set(x, y, b)
			}
		}
	}
	return tex
}
