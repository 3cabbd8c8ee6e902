package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "OXY_GFX_CONFIG"

// Duration is a time.Duration written as a string such as "250ms" in config files.
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration the way time.Duration prints it.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Window configures the window target.
type Window struct {
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
}

// Renderer configures the GraphicsContext and the frame loop.
type Renderer struct {
	// Backend is "auto", "webgpu", "webgl2" or "headless".
	Backend string `toml:"backend" yaml:"backend"`
	// PresentMode is "vsync" or "uncapped".
	PresentMode          string `toml:"present_mode" yaml:"present_mode"`
	ForceFallbackAdapter bool   `toml:"force_fallback_adapter" yaml:"force_fallback_adapter"`
	// AcquireTimeout is the longest an acquire may take before the frame loop reports it as slow.
	AcquireTimeout Duration `toml:"acquire_timeout" yaml:"acquire_timeout"`
	// ClearColor is RGBA in [0, 1].
	ClearColor [4]float64 `toml:"clear_color" yaml:"clear_color"`
	// FrameLimit caps frames per second; zero leaves the rate to the present mode.
	FrameLimit float64 `toml:"frame_limit" yaml:"frame_limit"`
}

// Loader configures the asset loader.
type Loader struct {
	Workers int `toml:"workers" yaml:"workers"`
}

// Config is the engine configuration. Fields missing from a file keep their defaults.
type Config struct {
	Window   Window   `toml:"window" yaml:"window"`
	Renderer Renderer `toml:"renderer" yaml:"renderer"`
	Loader   Loader   `toml:"loader" yaml:"loader"`
	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel  string `toml:"log_level" yaml:"log_level"`
	Profiling bool   `toml:"profiling" yaml:"profiling"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: an 800x600 vsync window, four loader workers and Info logging
func Default() Config {
	c := renderer.DefaultClearColor
	return Config{
		Window: Window{Title: "oxy-gfx", Width: 800, Height: 600},
		Renderer: Renderer{
			Backend:        "auto",
			PresentMode:    "vsync",
			AcquireTimeout: Duration(time.Second),
			ClearColor:     [4]float64{c.R, c.G, c.B, c.A},
		},
		Loader:   Loader{Workers: 4},
		LogLevel: "info",
	}
}

// Load reads a config file over the defaults. The format is chosen by extension.
//
// Parameters:
//   - path: the .toml, .yaml or .yml file
//
// Returns:
//   - Config: the merged configuration
//   - error: error if the file cannot be read, parsed or validated
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse decodes config data over the defaults. name only selects the format.
//
// Parameters:
//   - name: a file name whose extension selects the decoder
//   - data: the file contents
//
// Returns:
//   - Config: the merged configuration
//   - error: error if the data cannot be parsed or a value is invalid
func Parse(name string, data []byte) (Config, error) {
	dec, err := resolveDecoder(name)
	if err != nil {
		return Config{}, err
	}
	c := Default()
	if err := dec(data, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", name, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", name, err)
	}
	return c, nil
}

// FromEnv loads the file named by OXY_GFX_CONFIG, or returns the defaults when it is unset.
//
// Returns:
//   - Config: the configuration
//   - string: the file path, empty when the defaults are used
//   - error: error if the named file cannot be loaded
func FromEnv() (Config, string, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), "", nil
	}
	c, err := Load(path)
	return c, path, err
}

// Validate reports every out-of-range value.
//
// Returns:
//   - error: every problem found, joined
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	switch c.Renderer.PresentMode {
	case "vsync", "uncapped":
	default:
		errs = append(errs, fmt.Errorf("present_mode %q is not vsync or uncapped", c.Renderer.PresentMode))
	}
	if _, ok := renderer.ParseBackendKind(c.Renderer.Backend); !ok && c.Renderer.Backend != "auto" && c.Renderer.Backend != "" {
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Renderer.Backend))
	}
	for i, v := range c.Renderer.ClearColor {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("clear_color[%d] = %v is outside [0, 1]", i, v))
		}
	}
	if c.Renderer.AcquireTimeout < 0 || c.Renderer.FrameLimit < 0 {
		errs = append(errs, errors.New("acquire_timeout and frame_limit must not be negative"))
	}
	if c.Loader.Workers < 1 {
		errs = append(errs, fmt.Errorf("loader workers %d must be at least 1", c.Loader.Workers))
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

// Level returns the slog level named by LogLevel, Info if it does not parse.
func (c Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// PresentMode returns the renderer present mode.
func (c Config) PresentMode() renderer.PresentMode {
	return renderer.ParsePresentMode(c.Renderer.PresentMode)
}

// ClearColor returns the clear color as a wgpu color.
func (c Config) ClearColor() wgpu.Color {
	cc := c.Renderer.ClearColor
	return wgpu.Color{R: cc[0], G: cc[1], B: cc[2], A: cc[3]}
}

// RendererOptions maps the renderer section onto GraphicsContext options.
//
// Returns:
//   - []renderer.GraphicsContextOption: the options to pass to renderer.Initialize
func (c Config) RendererOptions() []renderer.GraphicsContextOption {
	opts := []renderer.GraphicsContextOption{
		renderer.WithPresentMode(c.PresentMode()),
		renderer.WithClearColor(c.ClearColor()),
		renderer.WithForceSoftwareRenderer(c.Renderer.ForceFallbackAdapter),
	}
	if kind, ok := renderer.ParseBackendKind(c.Renderer.Backend); ok {
		opts = append(opts, renderer.WithBackendKind(kind))
	}
	return opts
}
