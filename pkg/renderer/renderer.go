// Package renderer turns a committed scene into an image by tracing primary
// and shadow rays on a pool of tile workers.
package renderer

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/df07/go-raycore/pkg/log"
	"github.com/df07/go-raycore/pkg/scene"
)

var logger = log.New("renderer")

// Renderer renders a scene through a camera
type Renderer struct {
	scene  *scene.Scene
	camera *Camera
	config Config
}

// New creates a renderer. The scene must be committed before Render.
func New(s *scene.Scene, camera *Camera, config Config) *Renderer {
	return &Renderer{scene: s, camera: camera, config: config}
}

// Render traces every tile and assembles the image. A cancelled context stops
// outstanding tiles and returns the context error.
func (r *Renderer) Render(ctx context.Context) (*image.RGBA, RenderStats, error) {
	if !r.scene.Committed() {
		return nil, RenderStats{}, scene.ErrNotCommitted
	}
	start := time.Now()

	width, height := r.camera.Size()
	pixelStats := make([][]PixelStats, height)
	for y := range pixelStats {
		pixelStats[y] = make([]PixelStats, width)
	}

	tiles := NewTileGrid(width, height, r.config.TileSize)
	pool := NewWorkerPool(NewRaytracer(r.scene, r.camera, r.config), len(tiles), r.config.NumWorkers)
	pool.Start()
	defer pool.Stop()

	logger.Debugf("Rendering %s at %dx%d, %d spp, %d tiles on %d workers",
		r.scene.Name, width, height, r.config.SamplesPerPixel, len(tiles), pool.GetNumWorkers())

	for i, tile := range tiles {
		pool.SubmitTask(TileTask{Ctx: ctx, Tile: tile, TaskID: i, PixelStats: pixelStats})
	}

	var stats RenderStats
	var renderErr error
	for range tiles {
		result, ok := <-pool.Results()
		if !ok {
			return nil, stats, fmt.Errorf("worker pool closed unexpectedly")
		}
		if result.Error != nil {
			renderErr = result.Error
			continue
		}
		stats.Merge(result.Stats)
	}
	if renderErr != nil {
		return nil, stats, renderErr
	}

	img := assembleImage(pixelStats, width, height)
	stats.Elapsed = time.Since(start)

	logger.Infof("Rendered %s in %v: %d primary rays, %d hits, %d/%d shadow rays occluded (%.2f Mrays/s)",
		r.scene.Name, stats.Elapsed, stats.PrimaryRays, stats.Hits,
		stats.OccludedShadowRays, stats.ShadowRays, stats.RaysPerSecond()/1e6)
	return img, stats, nil
}

// assembleImage creates an image from the shared pixel stats
func assembleImage(pixelStats [][]PixelStats, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, vec3ToColor(pixelStats[y][x].GetColor()))
		}
	}
	return img
}
