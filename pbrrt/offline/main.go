// Command offline renders the demo scene with the CPU pipeline and writes
// the tone mapped frame as a PNG.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"
	"os/signal"

	"github.com/gekko3d/deferred"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/demo"
	"github.com/gekko3d/deferred/pbrrt/rt/ibl"
	"github.com/gekko3d/deferred/pbrrt/rt/post"
	"github.com/gekko3d/deferred/pbrrt/rt/render"
)

func main() {
	configPath := flag.String("config", "", "YAML or TOML renderer config")
	out := flag.String("out", "frame.png", "Output PNG path")
	env := flag.String("env", "", "Equirectangular environment image (overrides config)")
	width := flag.Int("width", 0, "Frame width (defaults to the config window width)")
	height := flag.Int("height", 0, "Frame height (defaults to the config window height)")
	toneMap := flag.String("tonemap", "", "Tone map operator: exposure or reinhard")
	exposure := flag.Float64("exposure", 0, "Exposure for the exposure operator")
	debug := flag.Bool("debug", false, "Log per-pass timings")
	flag.Parse()

	logger := deferred.NewDefaultLogger("offline", *debug)
	if err := run(*configPath, *out, *env, *width, *height, *toneMap, float32(*exposure), *debug, logger); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(configPath, out, envPath string, width, height int, toneMap string, exposure float32, debug bool, logger deferred.Logger) error {
	cfg := deferred.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = deferred.LoadConfig(configPath); err != nil {
			return err
		}
	}
	if debug {
		cfg.Debug = true
		logger.SetDebug(true)
	}
	if width > 0 {
		cfg.Window.Width = width
	}
	if height > 0 {
		cfg.Window.Height = height
	}
	if toneMap != "" {
		cfg.ToneMap = toneMap
	}
	if exposure > 0 {
		cfg.Exposure = exposure
	}
	if envPath != "" {
		cfg.Environment.Path = envPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	params, err := cfg.Params()
	if err != nil {
		return err
	}
	// the offline frame has no cursor to pick with
	params.Picking = false

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := render.New(render.Options{
		Workers:        cfg.Workers,
		ShadowMapSize:  cfg.Shadows.MapSize,
		IrradianceSize: cfg.Environment.IrradianceSize,
		Logger:         logger,
	})

	scene := core.NewScene()
	if err := demo.Build(scene); err != nil {
		return err
	}
	if cfg.Environment.Path != "" {
		pano, err := ibl.LoadEquirect(cfg.Environment.Path, 4*cfg.Environment.CubeSize)
		if err != nil {
			return err
		}
		scene.SetEnvironment(ibl.EquirectToCubemap(pano, cfg.Environment.CubeSize, r.Dispatcher()))
	} else {
		scene.SetEnvironment(ibl.GradientSky(cfg.Environment.CubeSize, ibl.DefaultSky()))
	}

	f, err := r.Render(ctx, scene, demo.Camera(), cfg.Window.Width, cfg.Window.Height, params)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	logger.Infof("rendered %dx%d in %v", cfg.Window.Width, cfg.Window.Height, r.Profiler.Total())

	file, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := png.Encode(file, post.Resolve(f.LDR)); err != nil {
		file.Close()
		return fmt.Errorf("encode %s: %w", out, err)
	}
	if err := file.Close(); err != nil {
		return err
	}
	logger.Infof("wrote %s", out)
	return nil
}
