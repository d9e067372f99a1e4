package main

import (
	"flag"
	"os"
	"runtime"

	"github.com/gekko3d/deferred"
	"github.com/gekko3d/deferred/pbrrt/rt/app"
	"github.com/gekko3d/deferred/pbrrt/rt/demo"
	"github.com/gekko3d/deferred/pbrrt/rt/ibl"
	"github.com/google/uuid"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "YAML or TOML renderer config")
	debug := flag.Bool("debug", false, "Enable debug mode (frame stats overlay)")
	flag.Parse()

	cfg := deferred.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = deferred.LoadConfig(*configPath); err != nil {
			deferred.NewDefaultLogger("viewer", false).Errorf("%v", err)
			os.Exit(1)
		}
	}
	cfg.Debug = cfg.Debug || *debug
	logger := deferred.NewDefaultLogger("viewer", cfg.Debug)

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	application, err := app.NewApp(window, cfg, logger)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	if err := demo.Build(application.Scene); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	application.Camera = demo.Camera()
	if cfg.Environment.Path != "" {
		pano, err := ibl.LoadEquirect(cfg.Environment.Path, 4*cfg.Environment.CubeSize)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		application.SetPanorama(pano)
	} else {
		application.Scene.SetEnvironment(ibl.GradientSky(cfg.Environment.CubeSize, ibl.DefaultSky()))
	}
	if err := application.Init(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	defer application.Release()

	application.OnPick = func(id uuid.UUID, ok bool) {
		if !ok {
			logger.Infof("picked nothing")
			return
		}
		logger.Infof("picked %s", application.Scene.Find(id).Name)
	}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyTab && action == glfw.Press {
			application.MouseCaptured = !application.MouseCaptured
			if application.MouseCaptured {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
		}
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
		if key == glfw.KeyF3 && action == glfw.Press {
			application.DebugMode = !application.DebugMode
			logger.SetDebug(application.DebugMode)
		}
	})

	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		application.HandleClick(int(button), int(action))
	})

	last := glfw.GetTime()
	for !window.ShouldClose() {
		glfw.PollEvents()
		now := glfw.GetTime()
		application.Update(now - last)
		last = now
		if err := application.Render(); err != nil {
			logger.Errorf("render: %v", err)
		}
	}
}
