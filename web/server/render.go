package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/df07/go-raycore/pkg/renderer"
)

var contentTypes = map[string]string{
	"png":  "image/png",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
}

// RenderRequest represents a preview render request
type RenderRequest struct {
	Width      int
	Height     int
	Samples    int
	MotionBlur bool
	Shadows    bool
	Format     string
}

// handleRender renders the scene through its suggested view and returns the
// encoded image
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRenderRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	camera := renderer.NewCamera(renderer.CameraConfigFromView(s.scene.View, req.Width, req.Height))
	config := s.cfg.RenderConfig()
	config.SamplesPerPixel = req.Samples
	config.MotionBlur = req.MotionBlur
	config.Shadows = req.Shadows

	img, stats, err := renderer.New(s.scene, camera, config).Render(r.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Infof("Render cancelled by client")
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Render error: %v", err))
		return
	}
	renderPixels.Add(float64(stats.TotalPixels))

	w.Header().Set("Content-Type", contentTypes[req.Format])
	w.Header().Set("X-Render-Primary-Rays", strconv.Itoa(stats.PrimaryRays))
	w.Header().Set("X-Render-Elapsed-Ms", strconv.FormatInt(stats.Elapsed.Milliseconds(), 10))
	if err := renderer.EncodeImage(w, req.Format, img); err != nil {
		s.logger.Errorf("Encoding %s: %v", req.Format, err)
	}
}

// parseRenderRequest parses query parameters with the server limits
func (s *Server) parseRenderRequest(values url.Values) (*RenderRequest, error) {
	limits := s.cfg.Server
	req := &RenderRequest{Format: "png"}

	var err error
	if req.Width, err = parseIntParam(values, "width", s.cfg.Width, 1, 8192); err != nil {
		return nil, err
	}
	if req.Height, err = parseIntParam(values, "height", s.cfg.Height, 1, 8192); err != nil {
		return nil, err
	}
	if req.Samples, err = parseIntParam(values, "spp", min(s.cfg.Samples, limits.MaxSamples), 1, limits.MaxSamples); err != nil {
		return nil, err
	}
	if req.MotionBlur, err = parseBoolParam(values, "motionBlur", s.cfg.MotionBlur); err != nil {
		return nil, err
	}
	if req.Shadows, err = parseBoolParam(values, "shadows", s.cfg.Shadows); err != nil {
		return nil, err
	}
	if format := values.Get("format"); format != "" {
		if _, ok := contentTypes[format]; !ok {
			return nil, fmt.Errorf("unsupported format: %s", format)
		}
		req.Format = format
	}

	if pixels := req.Width * req.Height; pixels > limits.MaxRenderPixels {
		return nil, fmt.Errorf("image of %d pixels exceeds the limit of %d", pixels, limits.MaxRenderPixels)
	}
	return req, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

func parseBoolParam(values url.Values, key string, defaultValue bool) (bool, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid %s: %s", key, value)
		}
		return parsed, nil
	}
	return defaultValue, nil
}
