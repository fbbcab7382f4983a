package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/df07/go-raycore/pkg/config"
	"github.com/urfave/cli"
)

// SceneFlags select and configure the scene for every command
var SceneFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Usage: "YAML config file; flags override its values",
	},
	cli.StringFlag{
		Name:  "scene, s",
		Usage: "builtin scene name",
	},
	cli.StringSliceFlag{
		Name:  "ply",
		Usage: "PLY mesh to load instead of a builtin scene (repeatable)",
	},
	cli.StringFlag{
		Name:  "cull",
		Usage: `triangle culling: "none" or "back"`,
	},
	cli.IntFlag{
		Name:  "leaf-size",
		Usage: "largest triangle count per BVH leaf",
	},
	cli.BoolFlag{
		Name:  "robust",
		Usage: "conservative box tests for motion blur",
	},
}

// RenderFlags are the image options of the render command
var RenderFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "width",
		Usage: "frame width",
	},
	cli.IntFlag{
		Name:  "height",
		Usage: "frame height",
	},
	cli.IntFlag{
		Name:  "spp",
		Usage: "samples per pixel",
	},
	cli.BoolFlag{
		Name:  "motion-blur",
		Usage: "give every sample a random time",
	},
	cli.IntFlag{
		Name:  "workers",
		Usage: "render workers, 0 for one per CPU",
	},
	cli.StringFlag{
		Name:  "out, o",
		Usage: "output image (.png, .bmp or .tiff)",
	},
}

// ServeFlags are the options of the serve command
var ServeFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "port, p",
		Usage: "port to serve on",
	},
	cli.StringFlag{
		Name:  "scene-dir",
		Usage: "directory listed by /api/scenes",
	},
}

// loadConfig reads the config file, if any, and applies flags that were set
// explicitly
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := ctx.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	if ctx.IsSet("scene") {
		cfg.Scene = ctx.String("scene")
		cfg.PLY = nil
	}
	if ply := ctx.StringSlice("ply"); len(ply) > 0 {
		cfg.PLY = ply
	}
	if ctx.IsSet("cull") {
		cfg.Cull = ctx.String("cull")
	}
	if ctx.IsSet("leaf-size") {
		cfg.LeafSize = ctx.Int("leaf-size")
	}
	if ctx.IsSet("robust") {
		cfg.Robust = ctx.Bool("robust")
	}
	if ctx.IsSet("width") {
		cfg.Width = ctx.Int("width")
	}
	if ctx.IsSet("height") {
		cfg.Height = ctx.Int("height")
	}
	if ctx.IsSet("spp") {
		cfg.Samples = ctx.Int("spp")
	}
	if ctx.IsSet("motion-blur") {
		cfg.MotionBlur = ctx.Bool("motion-blur")
	}
	if ctx.IsSet("workers") {
		cfg.Workers = ctx.Int("workers")
	}
	if ctx.IsSet("out") {
		cfg.Output = ctx.String("out")
	}
	if ctx.IsSet("port") {
		cfg.Server.Port = ctx.Int("port")
	}
	if ctx.IsSet("scene-dir") {
		cfg.Server.SceneDir = ctx.String("scene-dir")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// defaultOutputPath names a timestamped render under output/<scene>/
func defaultOutputPath(cfg config.Config, now time.Time) string {
	name := cfg.Scene
	if len(cfg.PLY) > 0 {
		name = filepath.Base(cfg.PLY[0])
		name = name[:len(name)-len(filepath.Ext(name))]
	}
	return filepath.Join("output", name, fmt.Sprintf("render_%s.png", now.Format("20060102_150405")))
}
