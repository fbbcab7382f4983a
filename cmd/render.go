package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/df07/go-raycore/pkg/renderer"
	"github.com/urfave/cli"
)

// Render a still frame.
func Render(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		logger.Error(err)
		return err
	}

	sc, err := cfg.LoadScene()
	if err != nil {
		logger.Error(err)
		return err
	}

	out := cfg.Output
	if out == "" {
		out = defaultOutputPath(cfg, time.Now())
	}
	if _, err := renderer.FormatFromPath(out); err != nil {
		logger.Error(err)
		return err
	}

	camera := renderer.NewCamera(renderer.CameraConfigFromView(sc.View, cfg.Width, cfg.Height))
	r := renderer.New(sc, camera, cfg.RenderConfig())

	renderCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	img, stats, err := r.Render(renderCtx)
	if err != nil {
		logger.Error(err)
		return err
	}
	if err := renderer.SaveImage(out, img); err != nil {
		logger.Error(err)
		return err
	}

	logger.Noticef("Rendered %s (%dx%d, %d spp) in %v, %.2f Mrays/s, saved to %s",
		sc.Name, cfg.Width, cfg.Height, cfg.Samples, stats.Elapsed, stats.RaysPerSecond()/1e6, out)
	return nil
}
