package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/shapes"
)

const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "PRISM_CONFIG"
	// DefaultConfigFile is looked up in the working directory.
	DefaultConfigFile = "prism.toml"

	BackendOpenGL   = "opengl"
	BackendSoftware = "software"

	// KindGroup declares a scene node without geometry that other entries
	// can use as parent.
	KindGroup = "group"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Log      LogConfig      `toml:"log"`
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetsConfig   `toml:"assets"`
	Scene    SceneConfig    `toml:"scene"`
}

type WindowConfig struct {
	// The application name used in windowing.
	Title string `toml:"title"`
	// Window starting position x axis.
	X uint32 `toml:"x"`
	// Window starting position y axis.
	Y uint32 `toml:"y"`
	// Window starting width.
	Width uint32 `toml:"width"`
	// Window starting height.
	Height uint32 `toml:"height"`
	VSync  bool   `toml:"vsync"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type RendererConfig struct {
	// Backend is either "opengl" or "software".
	Backend string `toml:"backend"`
	// MaxFrames stops the run loop after that many frames, 0 runs until closed.
	MaxFrames uint64 `toml:"max_frames"`
}

type AssetsConfig struct {
	Dir   string `toml:"dir"`
	Watch bool   `toml:"watch"`
}

type SceneConfig struct {
	Shapes []ShapeConfig `toml:"shapes"`
}

// ShapeConfig describes one scene node: a shape, or a group when Kind is
// "group". Parent names an earlier group; empty attaches the node to the root.
type ShapeConfig struct {
	Tag     string  `toml:"tag"`
	Parent  string  `toml:"parent"`
	Kind    string  `toml:"kind"`
	Sides   int     `toml:"sides"`
	X       float32 `toml:"x"`
	Y       float32 `toml:"y"`
	Size    float32 `toml:"size"`
	Texture string  `toml:"texture"`
}

// Default is the configuration used when no file is found: a triangle, a
// square and a hexagon side by side.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Prism",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Log:      LogConfig{Level: "info"},
		Renderer: RendererConfig{Backend: BackendOpenGL},
		Assets:   AssetsConfig{Dir: "assets", Watch: true},
		Scene: SceneConfig{
			Shapes: []ShapeConfig{
				{Tag: "triangle", Kind: "triangle", X: -0.6, Y: 0, Size: 0.4},
				{Tag: "square", Kind: "square", X: 0, Y: 0, Size: 0.4},
				{Tag: "hexagon", Kind: "polygon", Sides: 6, X: 0.6, Y: 0, Size: 0.25},
			},
		},
	}
}

// Parse decodes TOML on top of the defaults, so a file only needs the keys it
// changes. A file without shapes keeps the default scene. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	defaults := cfg.Scene.Shapes
	cfg.Scene.Shapes = nil
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strict.String())
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("%w: line %d column %d: %s", ErrInvalidConfig, row, col, derr.Error())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}
	if cfg.Scene.Shapes == nil {
		cfg.Scene.Shapes = defaults
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses a config file. A missing file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Resolve finds the configuration for this process: the file named by
// PRISM_CONFIG, else prism.toml in the working directory, else Default.
func Resolve() (*Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return Load(DefaultConfigFile)
	}
	core.LogInfo("no %s found, using default configuration", DefaultConfigFile)
	return Default(), nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width == 0 || c.Window.Height == 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if _, err := core.ParseLogLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	switch c.Renderer.Backend {
	case BackendOpenGL, BackendSoftware:
	default:
		errs = append(errs, fmt.Errorf("unknown renderer backend '%s'", c.Renderer.Backend))
	}

	groups := make(map[string]bool)
	tags := make(map[string]bool)
	for i, s := range c.Scene.Shapes {
		name := s.Tag
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		} else if tags[s.Tag] {
			errs = append(errs, fmt.Errorf("shape %s: tag used twice", name))
		}
		tags[s.Tag] = true
		if s.Parent != "" && !groups[s.Parent] {
			errs = append(errs, fmt.Errorf("shape %s: parent '%s' must be a group declared earlier", name, s.Parent))
		}
		if s.Kind == KindGroup {
			if s.Tag == "" {
				errs = append(errs, fmt.Errorf("shape %s: groups need a tag", name))
			}
			groups[s.Tag] = true
			continue
		}
		kind, err := shapes.ParseKind(s.Kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("shape %s: %w", name, err))
		} else if kind == shapes.KindPolygon && (s.Sides < shapes.MinPolygonSides || s.Sides > shapes.MaxPolygonSides) {
			errs = append(errs, fmt.Errorf("shape %s: polygon sides %d out of range [%d, %d]",
				name, s.Sides, shapes.MinPolygonSides, shapes.MaxPolygonSides))
		}
		if s.Size < 0 {
			errs = append(errs, fmt.Errorf("shape %s: negative size", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
