package deferred

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

type WindowConfig struct {
	Width  int    `yaml:"width" toml:"width"`
	Height int    `yaml:"height" toml:"height"`
	Title  string `yaml:"title" toml:"title"`
}

type ShadowConfig struct {
	MapSize         int     `yaml:"map_size" toml:"map_size"`
	DirectionalBias float32 `yaml:"directional_bias" toml:"directional_bias"`
	PointBias       float32 `yaml:"point_bias" toml:"point_bias"`
}

type SSRConfig struct {
	Thickness   float32 `yaml:"thickness" toml:"thickness"`
	MaxDistance float32 `yaml:"max_distance" toml:"max_distance"`
	MaxSteps    uint32  `yaml:"max_steps" toml:"max_steps"`
	Strength    float32 `yaml:"strength" toml:"strength"`
}

type EnvironmentConfig struct {
	// Path to an equirectangular panorama; empty selects the procedural sky.
	Path           string `yaml:"path" toml:"path"`
	CubeSize       int    `yaml:"cube_size" toml:"cube_size"`
	IrradianceSize int    `yaml:"irradiance_size" toml:"irradiance_size"`
}

// Config is the on-disk renderer configuration.
type Config struct {
	Window      WindowConfig      `yaml:"window" toml:"window"`
	Debug       bool              `yaml:"debug" toml:"debug"`
	Workers     int               `yaml:"workers" toml:"workers"`
	ToneMap     string            `yaml:"tone_map" toml:"tone_map"`
	Exposure    float32           `yaml:"exposure" toml:"exposure"`
	Picking     bool              `yaml:"picking" toml:"picking"`
	Shadows     ShadowConfig      `yaml:"shadows" toml:"shadows"`
	SSR         SSRConfig         `yaml:"ssr" toml:"ssr"`
	Environment EnvironmentConfig `yaml:"environment" toml:"environment"`
}

func DefaultConfig() Config {
	p := core.DefaultRenderParams()
	return Config{
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "Deferred PBR",
		},
		ToneMap:  p.ToneMap.String(),
		Exposure: p.Exposure,
		Picking:  true,
		Shadows: ShadowConfig{
			MapSize:         1024,
			DirectionalBias: p.DirectionalShadowBias,
			PointBias:       p.PointShadowBias,
		},
		SSR: SSRConfig{
			Thickness:   p.SSRThickness,
			MaxDistance: p.SSRMaxDistance,
			MaxSteps:    p.SSRMaxSteps,
			Strength:    p.SSRStrength,
		},
		Environment: EnvironmentConfig{
			CubeSize:       256,
			IrradianceSize: 64,
		},
	}
}

// LoadConfig reads a YAML (.yaml, .yml) or TOML (.toml) file over the
// defaults and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, filepath.Ext(path))
	}
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	if c.Shadows.MapSize <= 0 || c.Environment.CubeSize <= 0 || c.Environment.IrradianceSize <= 0 {
		return fmt.Errorf("%w: texture sizes must be positive", ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers = %d", ErrInvalidConfig, c.Workers)
	}
	if _, err := c.Params(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Params converts the tunable part of the config into render params.
func (c Config) Params() (core.RenderParams, error) {
	op, err := core.ParseToneMapOperator(c.ToneMap)
	if err != nil {
		return core.RenderParams{}, err
	}
	p := core.RenderParams{
		ToneMap:               op,
		Exposure:              c.Exposure,
		SSRThickness:          c.SSR.Thickness,
		SSRMaxDistance:        c.SSR.MaxDistance,
		SSRMaxSteps:           c.SSR.MaxSteps,
		SSRStrength:           c.SSR.Strength,
		DirectionalShadowBias: c.Shadows.DirectionalBias,
		PointShadowBias:       c.Shadows.PointBias,
		Picking:               c.Picking,
	}
	return p, p.Validate()
}
