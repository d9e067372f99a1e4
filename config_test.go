package deferred

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, core.DefaultRenderParams().SSRThickness, p.SSRThickness)
	assert.True(t, p.Picking)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "render.yaml", `
window:
  width: 640
  height: 360
tone_map: reinhard
ssr:
  thickness: 0.5
environment:
  path: sky.png
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, "Deferred PBR", cfg.Window.Title, "unset keys keep defaults")
	assert.Equal(t, "sky.png", cfg.Environment.Path)

	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, core.ToneMapReinhard, p.ToneMap)
	assert.Equal(t, float32(0.5), p.SSRThickness)
	assert.Equal(t, uint32(256), p.SSRMaxSteps)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "render.toml", `
exposure = 2.5
picking = false

[shadows]
map_size = 512

[ssr]
max_steps = 64
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Shadows.MapSize)

	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, float32(2.5), p.Exposure)
	assert.Equal(t, uint32(64), p.SSRMaxSteps)
	assert.False(t, p.Picking)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(writeFile(t, "render.json", `{}`))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig(writeFile(t, "bad.yaml", "tone_map: filmic\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, core.ErrInvalidParams)

	_, err = LoadConfig(writeFile(t, "neg.toml", "exposure = -1.0\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig(writeFile(t, "size.yaml", "window:\n  width: 0\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig(writeFile(t, "broken.yaml", "window: [\n"))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
