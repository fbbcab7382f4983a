package main

import (
	"os"

	"github.com/df07/go-raycore/cmd"
	"github.com/urfave/cli"
)

func newApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "raycore"
	app.Usage = "trace rays against triangle scenes through a watertight BVH"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a scene to an image",
			Description: `
Build the scene BVH and render it with an eye light and a shadowed
directional light. The output format follows the file extension.`,
			Flags:  append(append([]cli.Flag{}, cmd.SceneFlags...), cmd.RenderFlags...),
			Action: cmd.Render,
		},
		{
			Name:   "stats",
			Usage:  "build a scene and print tree statistics",
			Flags:  cmd.SceneFlags,
			Action: cmd.Stats,
		},
		{
			Name:  "verify",
			Usage: "compare tree queries with brute force on random rays",
			Description: `
Trace seeded random rays through the BVH and through a brute force loop over
every triangle. Nearest hit distances and occlusion answers must agree; any
mismatch makes the command fail.`,
			Flags:  append(append([]cli.Flag{}, cmd.SceneFlags...), cmd.VerifyFlags...),
			Action: cmd.Verify,
		},
		{
			Name:   "serve",
			Usage:  "serve ray queries and previews over HTTP",
			Flags:  append(append([]cli.Flag{}, cmd.SceneFlags...), cmd.ServeFlags...),
			Action: cmd.Serve,
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(1)
	}
}
