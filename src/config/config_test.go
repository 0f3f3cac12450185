package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg := Default()
	err := Parse([]byte(`
[window]
width = 1280

[scene]
max_lights = 4
track_reflections = true

[particles]
count = 512

[log]
level = "debug"
`), &cfg)
	require.NoError(t, err)

	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, 4, cfg.Scene.MaxLights)
	assert.True(t, cfg.Scene.TrackReflections)
	assert.Equal(t, 512, cfg.Particles.Count)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "shaders", cfg.Renderer.ShaderDir)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"zero width":       func(c *Config) { c.Window.Width = 0 },
		"three frames":     func(c *Config) { c.Renderer.FramesInFlight = 3 },
		"too many lights":  func(c *Config) { c.Scene.MaxLights = MaxLightsLimit + 1 },
		"negative mirrors": func(c *Config) { c.Scene.MaxMirrors = -1 },
		"odd particles":    func(c *Config) { c.Particles.Count = 100 },
		"no particles":     func(c *Config) { c.Particles.Count = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[renderer]\nvalidation = false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Renderer.Validation)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[particles]\ncount = 3\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv(EnvPath, "/tmp/custom.toml")
	assert.Equal(t, "/tmp/custom.toml", Path())

	t.Setenv(EnvPath, "")
	assert.Equal(t, "config.toml", Path())
}
