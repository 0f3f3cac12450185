package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const EnvPath = "VULKAN_MIRRORS_CONFIG"

const defaultPath = "config.toml"

// Bounds of the GPU-side arrays; the shaders are compiled against these.
const (
	MaxLightsLimit  = 8
	MaxMirrorsLimit = 255
	WorkgroupSize   = 256
)

type Window struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
}

type Renderer struct {
	Validation     bool   `toml:"validation"`
	FramesInFlight int    `toml:"frames_in_flight"`
	ShaderDir      string `toml:"shader_dir"`
	AssetDir       string `toml:"asset_dir"`
}

type Scene struct {
	MaxLights        int  `toml:"max_lights"`
	MaxMirrors       int  `toml:"max_mirrors"`
	TrackReflections bool `toml:"track_reflections"`
}

type Particles struct {
	Count int     `toml:"count"`
	Seed  uint64  `toml:"seed"`
	Floor float32 `toml:"floor"`
}

type Log struct {
	Level string `toml:"level"`
}

type Config struct {
	Window    Window    `toml:"window"`
	Renderer  Renderer  `toml:"renderer"`
	Scene     Scene     `toml:"scene"`
	Particles Particles `toml:"particles"`
	Log       Log       `toml:"log"`
}

func Default() Config {
	return Config{
		Window: Window{
			Width:  800,
			Height: 600,
			Title:  "Vulkan Mirrors",
		},
		Renderer: Renderer{
			Validation:     true,
			FramesInFlight: 2,
			ShaderDir:      "shaders",
			AssetDir:       "assets",
		},
		Scene: Scene{
			MaxLights:  2,
			MaxMirrors: 1,
		},
		Particles: Particles{
			Count: 256,
			Seed:  1,
			Floor: -2.0,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Path returns the config file location from the environment, falling
// back to config.toml in the working directory.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return defaultPath
}

// Load reads a TOML file over the defaults. A missing file yields the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML into cfg, keeping fields the document does not set,
// and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Renderer.FramesInFlight != 2 {
		errs = append(errs, fmt.Errorf("frames_in_flight must be 2, got %d", c.Renderer.FramesInFlight))
	}
	if c.Scene.MaxLights < 0 || c.Scene.MaxLights > MaxLightsLimit {
		errs = append(errs, fmt.Errorf("max_lights must be within [0, %d], got %d", MaxLightsLimit, c.Scene.MaxLights))
	}
	if c.Scene.MaxMirrors < 0 || c.Scene.MaxMirrors > MaxMirrorsLimit {
		errs = append(errs, fmt.Errorf("max_mirrors must be within [0, %d], got %d", MaxMirrorsLimit, c.Scene.MaxMirrors))
	}
	if c.Particles.Count <= 0 || c.Particles.Count%WorkgroupSize != 0 {
		errs = append(errs, fmt.Errorf("particle count must be a positive multiple of %d, got %d", WorkgroupSize, c.Particles.Count))
	}
	return errors.Join(errs...)
}
