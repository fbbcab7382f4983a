// Package config loads render and server settings from YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/geometry"
	"github.com/df07/go-raycore/pkg/renderer"
	"github.com/df07/go-raycore/pkg/scene"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("config: invalid value")

// Vec3 is a YAML friendly vector, written as [x, y, z]
type Vec3 [3]float32

// ToCore converts v to the math type used by the tracer
func (v Vec3) ToCore() core.Vec3 {
	return core.NewVec3(v[0], v[1], v[2])
}

// Camera overrides the view a scene suggests for itself
type Camera struct {
	Eye    Vec3    `yaml:"eye"`
	LookAt Vec3    `yaml:"look_at"`
	Up     Vec3    `yaml:"up"`
	VFov   float32 `yaml:"vfov"`
}

// Server holds the web service settings
type Server struct {
	Port            int      `yaml:"port"`
	MaxRays         int      `yaml:"max_rays"`          // Rays accepted per query request
	MaxRenderPixels int      `yaml:"max_render_pixels"` // Largest width*height served by /api/render
	MaxSamples      int      `yaml:"max_samples"`
	SceneDir        string   `yaml:"scene_dir"` // Directory scanned for PLY scenes
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// Config is the complete set of options for the raycore commands
type Config struct {
	Scene      string   `yaml:"scene"` // Builtin scene name, ignored when PLY is set
	PLY        []string `yaml:"ply"`   // Mesh files merged into one scene
	Camera     *Camera  `yaml:"camera"`
	Width      int      `yaml:"width"`
	Height     int      `yaml:"height"`
	Samples    int      `yaml:"samples"`
	TileSize   int      `yaml:"tile_size"`
	MotionBlur bool     `yaml:"motion_blur"`
	Shadows    bool     `yaml:"shadows"`
	LightDir   Vec3     `yaml:"light_dir"`
	Cull       string   `yaml:"cull"` // "none" or "back"
	Robust     bool     `yaml:"robust"`
	LeafSize   int      `yaml:"leaf_size"`
	Workers    int      `yaml:"workers"` // 0 uses every CPU
	Output     string   `yaml:"output"` // Empty picks output/<scene>/render_<timestamp>.png
	Server     Server   `yaml:"server"`
}

// Default returns the settings used when no file is given
func Default() Config {
	return Config{
		Scene:    "boxes",
		Width:    400,
		Height:   300,
		Samples:  4,
		TileSize: 32,
		Shadows:  true,
		LightDir: Vec3{-0.4, 1, 0.6},
		Cull:     "none",
		LeafSize: 4,
		Server: Server{
			Port:            8080,
			MaxRays:         4096,
			MaxRenderPixels: 1920 * 1080,
			MaxSamples:      64,
			SceneDir:        "scenes",
			AllowedOrigins:  []string{"*"},
		},
	}
}

// Load reads path on top of Default and validates the result
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and names
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: image size %dx%d", ErrInvalid, c.Width, c.Height)
	case c.Samples <= 0:
		return fmt.Errorf("%w: samples %d", ErrInvalid, c.Samples)
	case c.TileSize <= 0:
		return fmt.Errorf("%w: tile_size %d", ErrInvalid, c.TileSize)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers %d", ErrInvalid, c.Workers)
	case c.LeafSize < 1 || c.LeafSize > 16:
		return fmt.Errorf("%w: leaf_size %d not in [1,16]", ErrInvalid, c.LeafSize)
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server port %d", ErrInvalid, c.Server.Port)
	case c.Server.MaxRays <= 0:
		return fmt.Errorf("%w: server max_rays %d", ErrInvalid, c.Server.MaxRays)
	}
	if _, ok := geometry.ParseCullMode(c.Cull); !ok {
		return fmt.Errorf("%w: cull mode %q", ErrInvalid, c.Cull)
	}
	if len(c.PLY) == 0 && !isBuiltin(c.Scene) {
		return fmt.Errorf("%w: unknown scene %q", ErrInvalid, c.Scene)
	}
	if c.Camera != nil && c.Camera.Eye == c.Camera.LookAt {
		return fmt.Errorf("%w: camera eye equals look_at", ErrInvalid)
	}
	return nil
}

func isBuiltin(name string) bool {
	for _, n := range scene.BuiltinNames() {
		if n == name {
			return true
		}
	}
	return false
}

// SceneOptions translates the acceleration settings for scene.New
func (c Config) SceneOptions() []scene.Option {
	cull, _ := geometry.ParseCullMode(c.Cull)
	return []scene.Option{
		scene.WithLeafSize(c.LeafSize),
		scene.WithCull(cull),
		scene.WithRobust(c.Robust),
	}
}

// LoadScene builds and commits the configured scene
func (c Config) LoadScene() (*scene.Scene, error) {
	var (
		s   *scene.Scene
		err error
	)
	if len(c.PLY) > 0 {
		s, err = scene.FromPLY(c.PLY, c.SceneOptions()...)
	} else {
		s, err = scene.Builtin(c.Scene, c.SceneOptions()...)
	}
	if err != nil {
		return nil, err
	}
	if c.Camera != nil {
		s.View = scene.View{
			Eye:    c.Camera.Eye.ToCore(),
			LookAt: c.Camera.LookAt.ToCore(),
			Up:     c.Camera.Up.ToCore(),
			VFov:   c.Camera.VFov,
		}
		if s.View.Up.Len() == 0 {
			s.View.Up = core.NewVec3(0, 1, 0)
		}
		if s.View.VFov <= 0 {
			s.View.VFov = 45
		}
	}
	return s, nil
}

// RenderConfig translates the image settings for the renderer
func (c Config) RenderConfig() renderer.Config {
	rc := renderer.DefaultConfig()
	rc.SamplesPerPixel = c.Samples
	rc.TileSize = c.TileSize
	rc.NumWorkers = c.Workers
	rc.MotionBlur = c.MotionBlur
	rc.Shadows = c.Shadows
	if c.LightDir != (Vec3{}) {
		rc.LightDir = c.LightDir.ToCore()
	}
	return rc
}

// NumWorkers resolves Workers, where 0 means one per CPU
func (c Config) NumWorkers() int {
	if c.Workers == 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}
