// Package app is the windowed real-time orchestrator over the GPU backend.
package app

import (
	"fmt"

	"github.com/gekko3d/deferred"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/gpu"
	"github.com/gekko3d/deferred/pbrrt/rt/hud"
	"github.com/gekko3d/deferred/pbrrt/rt/shaders"
	"github.com/google/uuid"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	Settings deferred.Config
	Params   core.RenderParams
	Logger   deferred.Logger
	Profiler *deferred.Profiler

	BufferManager *gpu.GpuBufferManager
	Scene         *core.Scene
	Camera        *core.CameraState

	// OnPick receives the drawable under a click once its readback lands.
	OnPick   func(id uuid.UUID, ok bool)
	Selected uuid.UUID

	layouts  *gpu.SceneLayouts
	bindings *gpu.SceneBindings
	samplers *gpu.Samplers
	textures *gpu.MaterialTextures

	shadowPass   *gpu.ShadowPass
	gbufferPass  *gpu.GBufferPass
	iblPass      *gpu.IBLPass
	lightingPass *gpu.LightingPass
	downsample   *gpu.DownsamplePass
	ssrPass      *gpu.SSRPass
	tonemapPass  *gpu.ToneMapPass
	blitPass     *gpu.BlitPass
	pickingPass  *gpu.PickingPass
	overlay      *hud.Overlay

	gbuf       *gpu.GBufferTargets
	shadows    *gpu.ShadowTargets
	colors     *gpu.ColorTargets
	env        *gpu.Target
	irradiance *gpu.Target

	panorama       *core.Texture2D
	envVersion     uint64
	envSynced      bool
	hasEnvironment bool
	bindDirty      bool

	LastRenderTime float64
	MouseCaptured  bool
	DebugMode      bool
	lastCursor     mgl32.Vec2

	FrameCount int
	FPS        float64
	FPSTime    float64
}

func NewApp(window *glfw.Window, settings deferred.Config, logger deferred.Logger) (*App, error) {
	params, err := settings.Params()
	if err != nil {
		return nil, err
	}
	return &App{
		Window:    window,
		Settings:  settings,
		Params:    params,
		Logger:    deferred.OrNop(logger),
		Profiler:  deferred.NewProfiler(),
		Camera:    core.NewCameraState(),
		Scene:     core.NewScene(),
		DebugMode: settings.Debug,
	}, nil
}

func GetSurfaceDescriptor(w *glfw.Window) *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w)
}

func (a *App) Init() error {
	// naga lags behind the device compiler, so a failure here is advisory
	if err := shaders.Validate(); err != nil {
		a.Logger.Warnf("shader validation: %v", err)
	}

	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := a.Surface.GetCapabilities(adapter)
	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(max(width, 1)),
		Height:      uint32(max(height, 1)),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	a.Surface.Configure(adapter, a.Device, a.Config)

	if err := a.createPasses(); err != nil {
		return err
	}
	if err := a.createTargets(a.Config.Width, a.Config.Height); err != nil {
		return err
	}

	a.BufferManager = gpu.NewGpuBufferManager(a.Device)
	if _, err := a.BufferManager.UpdateFrame(a.cameraData(), int(a.Config.Width), int(a.Config.Height), false, core.LightSnapshot{}, a.Params); err != nil {
		return err
	}
	if _, err := a.BufferManager.UpdateScene(a.Scene.Drawables); err != nil {
		return err
	}
	if err := a.rebuildSceneBindings(); err != nil {
		return err
	}
	a.Logger.Infof("app: initialized %dx%d, surface format %v", a.Config.Width, a.Config.Height, a.Config.Format)
	return nil
}

func (a *App) createPasses() error {
	var err error
	if a.samplers, err = gpu.NewSamplers(a.Device); err != nil {
		return err
	}
	if a.textures, err = gpu.NewMaterialTextures(a.Device); err != nil {
		return err
	}
	if a.layouts, err = gpu.NewSceneLayouts(a.Device); err != nil {
		return err
	}
	if a.shadowPass, err = gpu.NewShadowPass(a.Device, a.layouts); err != nil {
		return err
	}
	if a.gbufferPass, err = gpu.NewGBufferPass(a.Device, a.layouts, a.textures, a.samplers.Material); err != nil {
		return err
	}
	if a.iblPass, err = gpu.NewIBLPass(a.Device); err != nil {
		return err
	}
	if a.lightingPass, err = gpu.NewLightingPass(a.Device); err != nil {
		return err
	}
	if a.downsample, err = gpu.NewDownsamplePass(a.Device); err != nil {
		return err
	}
	if a.ssrPass, err = gpu.NewSSRPass(a.Device); err != nil {
		return err
	}
	if a.tonemapPass, err = gpu.NewToneMapPass(a.Device); err != nil {
		return err
	}
	if a.blitPass, err = gpu.NewBlitPass(a.Device, a.Config.Format); err != nil {
		return err
	}
	if a.pickingPass, err = gpu.NewPickingPass(a.Device, a.layouts, a.Logger); err != nil {
		return err
	}

	atlas, err := hud.NewAtlas(18)
	if err != nil {
		a.Logger.Warnf("hud: %v", err)
		return nil
	}
	if a.overlay, err = hud.NewOverlay(a.Device, a.Config.Format, atlas); err != nil {
		a.Logger.Warnf("hud: %v", err)
	}
	return nil
}

func (a *App) createTargets(width, height uint32) error {
	a.gbuf.Release()
	a.colors.Release()

	var err error
	if a.gbuf, err = gpu.NewGBufferTargets(a.Device, width, height); err != nil {
		return err
	}
	if a.colors, err = gpu.NewColorTargets(a.Device, width, height); err != nil {
		return err
	}
	if a.irradiance == nil {
		if a.irradiance, err = gpu.NewCubeTarget(a.Device, "Irradiance", uint32(a.Settings.Environment.IrradianceSize)); err != nil {
			return err
		}
	}
	if a.env == nil {
		if a.env, err = gpu.NewCubeTarget(a.Device, "Environment", 1); err != nil {
			return err
		}
	}
	if a.shadows == nil {
		if err := a.ensureShadowTargets(core.LightSnapshot{}); err != nil {
			return err
		}
	}
	a.bindDirty = true
	return nil
}

// ensureShadowTargets grows the shadow arrays when snap uses more slots
// than are allocated.
func (a *App) ensureShadowTargets(snap core.LightSnapshot) error {
	if a.shadows.Fits(snap) {
		return nil
	}
	pointSlots, dirSlots := max(snap.PointSlots, 1), max(snap.DirectionSlots, 1)
	if a.shadows != nil {
		a.shadows.Release()
	}
	s, err := gpu.NewShadowTargets(a.Device, uint32(a.Settings.Shadows.MapSize), dirSlots, pointSlots)
	if err != nil {
		return err
	}
	a.shadows = s
	a.bindDirty = true
	a.Logger.Debugf("app: shadow targets %d directional, %d point slots", dirSlots, pointSlots)
	return nil
}

func (a *App) rebuildSceneBindings() error {
	b, err := gpu.NewSceneBindings(a.BufferManager, a.layouts)
	if err != nil {
		return err
	}
	a.bindings.Release()
	a.bindings = b
	a.bindDirty = true
	return nil
}

func (a *App) rebind() error {
	if err := a.lightingPass.Bind(a.BufferManager, a.samplers, gpu.LightingInputs{
		GBuffer:    a.gbuf,
		Shadows:    a.shadows,
		Irradiance: a.irradiance,
		Env:        a.env,
		Out:        a.colors.Lit,
	}); err != nil {
		return err
	}
	if err := a.downsample.Bind(a.Device, a.colors.Lit); err != nil {
		return err
	}
	if err := a.ssrPass.Bind(a.BufferManager, a.samplers, a.gbuf, a.colors.Lit, a.colors.HDR); err != nil {
		return err
	}
	if err := a.tonemapPass.Bind(a.BufferManager, a.colors.HDR, a.colors.LDR); err != nil {
		return err
	}
	if err := a.blitPass.Bind(a.Device, a.colors.LDR, a.samplers.Linear); err != nil {
		return err
	}
	a.bindDirty = false
	return nil
}

// SetPanorama replaces the environment with an equirect image projected on
// the GPU. It takes precedence over Scene.Environment until cleared with nil.
func (a *App) SetPanorama(tex *core.Texture2D) {
	a.panorama = tex
	a.envSynced = false
}

// syncEnvironment uploads or projects a changed environment and re-runs
// the irradiance convolution. The returned release runs after submit.
func (a *App) syncEnvironment(encoder *wgpu.CommandEncoder) (func(), error) {
	if a.envSynced && a.envVersion == a.Scene.EnvironmentVersion {
		return nil, nil
	}
	a.envSynced = true
	a.envVersion = a.Scene.EnvironmentVersion

	var release func()
	switch {
	case a.panorama != nil:
		if err := a.replaceEnv(uint32(a.Settings.Environment.CubeSize)); err != nil {
			return nil, err
		}
		pano, err := gpu.NewPanoramaTexture(a.Device, a.panorama)
		if err != nil {
			return nil, err
		}
		release = pano.Release
		if err := a.iblPass.EncodeEquirect(a.Device, encoder, pano, a.env, a.samplers.Linear); err != nil {
			return release, err
		}
		a.hasEnvironment = true
	case a.Scene.Environment != nil:
		if err := a.replaceEnv(uint32(a.Scene.Environment.Size)); err != nil {
			return nil, err
		}
		if err := gpu.UploadCubemap(a.Queue, a.env, a.Scene.Environment); err != nil {
			return nil, err
		}
		a.hasEnvironment = true
	default:
		a.hasEnvironment = false
		black := core.UniformCubemap(int(a.irradiance.Width), mgl32.Vec3{})
		a.Logger.Debugf("app: no environment, irradiance cleared")
		return nil, gpu.UploadCubemap(a.Queue, a.irradiance, black)
	}
	if err := a.iblPass.EncodeIrradiance(a.Device, encoder, a.env, a.irradiance, a.samplers.Linear); err != nil {
		return release, err
	}
	a.Logger.Debugf("app: environment %dx%d baked", a.env.Width, a.env.Width)
	return release, nil
}

func (a *App) replaceEnv(size uint32) error {
	if a.env != nil && a.env.Width == size {
		return nil
	}
	t, err := gpu.NewCubeTarget(a.Device, "Environment", size)
	if err != nil {
		return err
	}
	a.env.Release()
	a.env = t
	a.bindDirty = true
	return nil
}

func (a *App) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	a.Config.Width = uint32(w)
	a.Config.Height = uint32(h)
	a.Surface.Configure(a.Adapter, a.Device, a.Config)
	if err := a.createTargets(uint32(w), uint32(h)); err != nil {
		a.Logger.Errorf("resize: %v", err)
	}
	a.pickingPass.Readback.Reset()
}

func (a *App) cameraData() core.CameraData {
	aspect := float32(1)
	if a.Config != nil && a.Config.Height > 0 {
		aspect = float32(a.Config.Width) / float32(a.Config.Height)
	}
	return a.Camera.Data(aspect)
}

// Update applies window input to the camera for a frame of dt seconds.
func (a *App) Update(dt float64) {
	var in CameraInput
	keys := []struct {
		key  glfw.Key
		axis int
		sign float32
	}{
		{glfw.KeyW, 2, 1}, {glfw.KeyS, 2, -1},
		{glfw.KeyD, 0, 1}, {glfw.KeyA, 0, -1},
		{glfw.KeySpace, 1, 1}, {glfw.KeyLeftControl, 1, -1},
	}
	for _, k := range keys {
		if a.Window.GetKey(k.key) == glfw.Press {
			in.Move[k.axis] += k.sign
		}
	}
	x, y := a.Window.GetCursorPos()
	cursor := mgl32.Vec2{float32(x), float32(y)}
	if a.MouseCaptured {
		in.Look = cursor.Sub(a.lastCursor)
	}
	a.lastCursor = cursor
	ApplyCameraInput(a.Camera, in, float32(dt))

	if a.DebugMode && a.overlay != nil {
		a.overlay.Text(fmt.Sprintf("FPS: %.1f", a.FPS), 10, 10, 1, [4]float32{1, 1, 0, 1})
		a.overlay.Text(a.Profiler.GetStatsString(), 10, 34, 0.8, [4]float32{1, 1, 1, 1})
	}
}

// Render encodes and presents one frame. Configuration and device errors
// abort the frame before anything is submitted.
func (a *App) Render() error {
	a.Profiler.Reset()
	defer a.Profiler.Scope("Frame")()

	snap, err := a.Scene.Lights.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot lights: %w", err)
	}
	if err := a.ensureShadowTargets(snap); err != nil {
		return err
	}

	camera := a.cameraData()
	width, height := int(a.Config.Width), int(a.Config.Height)

	a.Profiler.BeginScope("Upload")
	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		a.Profiler.EndScope("Upload")
		return fmt.Errorf("create command encoder: %w", err)
	}
	release, err := a.syncEnvironment(encoder)
	if release != nil {
		defer release()
	}
	if err != nil {
		a.Profiler.EndScope("Upload")
		return fmt.Errorf("environment: %w", err)
	}
	frameRecreated, err := a.BufferManager.UpdateFrame(camera, width, height, a.hasEnvironment, snap, a.Params)
	if err != nil {
		a.Profiler.EndScope("Upload")
		return err
	}
	sceneRecreated, err := a.BufferManager.UpdateScene(a.Scene.Drawables)
	a.Profiler.EndScope("Upload")
	if err != nil {
		return err
	}
	if frameRecreated || sceneRecreated {
		if err := a.rebuildSceneBindings(); err != nil {
			return err
		}
	}
	if a.bindDirty {
		if err := a.rebind(); err != nil {
			return err
		}
	}
	a.Profiler.SetCount("Drawables", len(a.BufferManager.Drawables))
	a.Profiler.SetCount("Shadow Views", len(a.BufferManager.ShadowViews))

	a.Profiler.BeginScope("Encode")
	draws, err := a.encodeScene(encoder, camera)
	a.Profiler.EndScope("Encode")
	if err != nil {
		return err
	}
	a.Profiler.SetCount("Draws", draws)

	surfaceTex, err := a.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("get current texture: %w", err)
	}
	defer surfaceTex.Release()
	view, err := surfaceTex.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create surface view: %w", err)
	}
	defer view.Release()

	if err := a.blitPass.Encode(encoder, view); err != nil {
		return err
	}
	if a.overlay != nil {
		if err := a.overlay.Encode(encoder, view, width, height); err != nil {
			a.Logger.Warnf("hud: %v", err)
		}
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	a.Queue.Submit(cmd)
	a.Surface.Present()

	a.pickingPass.AfterSubmit()
	a.Device.Poll(false, nil)
	a.resolvePick()
	if a.updateFPS() && a.DebugMode {
		a.Profiler.Log(a.Logger)
	}
	return nil
}

// encodeScene records every pass from shadows to tone mapping, plus the
// picking pass when enabled.
func (a *App) encodeScene(encoder *wgpu.CommandEncoder, camera core.CameraData) (int, error) {
	m := a.BufferManager
	draws, err := a.shadowPass.Encode(encoder, m, a.bindings, a.shadows)
	if err != nil {
		return draws, err
	}
	n, err := a.gbufferPass.Encode(encoder, m, a.bindings, a.gbuf, camera)
	draws += n
	if err != nil {
		return draws, err
	}
	if err := a.lightingPass.Encode(encoder); err != nil {
		return draws, err
	}
	if err := a.downsample.Encode(encoder); err != nil {
		return draws, err
	}
	if err := a.ssrPass.Encode(encoder); err != nil {
		return draws, err
	}
	if err := a.tonemapPass.Encode(encoder); err != nil {
		return draws, err
	}
	if a.Params.Picking {
		n, err := a.pickingPass.Encode(encoder, m, a.bindings, a.gbuf, a.colors.Pick, camera)
		draws += n
		if err != nil {
			return draws, err
		}
	}
	return draws, nil
}

func (a *App) resolvePick() {
	id, ok := a.pickingPass.Readback.Take()
	if !ok {
		return
	}
	d := a.Scene.FindByPickID(id)
	if d == nil {
		a.Selected = uuid.Nil
	} else {
		a.Selected = d.ID
		a.Logger.Debugf("pick: %s (%s)", d.Name, d.ID)
	}
	if a.OnPick != nil {
		a.OnPick(a.Selected, d != nil)
	}
}

// updateFPS reports true once per second when the frame rate is refreshed.
func (a *App) updateFPS() bool {
	now := glfw.GetTime()
	refreshed := false
	if a.LastRenderTime > 0 {
		a.FrameCount++
		a.FPSTime += now - a.LastRenderTime
		if a.FPSTime >= 1.0 {
			a.FPS = float64(a.FrameCount) / a.FPSTime
			a.FrameCount = 0
			a.FPSTime = 0
			refreshed = true
		}
	}
	a.LastRenderTime = now
	return refreshed
}

// HandleClick requests a pick at the cursor on a left press. The result
// arrives through OnPick a frame or two later.
func (a *App) HandleClick(button int, action int) {
	if a.MouseCaptured || !a.Params.Picking || action != int(glfw.Press) || button != int(glfw.MouseButtonLeft) {
		return
	}
	x, y := a.Window.GetCursorPos()
	w, h := a.Window.GetSize()
	px, py := CursorToPixel(x, y, w, h, int(a.Config.Width), int(a.Config.Height))
	if !a.pickingPass.Readback.Request(px, py) {
		a.Logger.Debugf("pick: read in flight, click at %d,%d dropped", px, py)
	}
}

// CursorToPixel maps window coordinates to framebuffer pixels, which
// differ on high-DPI displays.
func CursorToPixel(x, y float64, windowW, windowH, fbW, fbH int) (int, int) {
	if windowW <= 0 || windowH <= 0 {
		return int(x), int(y)
	}
	return int(x * float64(fbW) / float64(windowW)), int(y * float64(fbH) / float64(windowH))
}

func (a *App) Release() {
	if a.bindings != nil {
		a.bindings.Release()
	}
	if a.shadowPass != nil {
		a.shadowPass.Release()
	}
	if a.gbufferPass != nil {
		a.gbufferPass.Release()
	}
	if a.iblPass != nil {
		a.iblPass.Release()
	}
	if a.lightingPass != nil {
		a.lightingPass.Release()
	}
	if a.downsample != nil {
		a.downsample.Release()
	}
	if a.ssrPass != nil {
		a.ssrPass.Release()
	}
	if a.tonemapPass != nil {
		a.tonemapPass.Release()
	}
	if a.blitPass != nil {
		a.blitPass.Release()
	}
	if a.pickingPass != nil {
		a.pickingPass.Release()
	}
	if a.overlay != nil {
		a.overlay.Release()
	}
	a.gbuf.Release()
	a.colors.Release()
	a.shadows.Release()
	a.env.Release()
	a.irradiance.Release()
	if a.textures != nil {
		a.textures.Release()
	}
	if a.samplers != nil {
		a.samplers.Release()
	}
	if a.layouts != nil {
		a.layouts.Release()
	}
	if a.BufferManager != nil {
		a.BufferManager.Release()
	}
}
