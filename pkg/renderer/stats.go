package renderer

import (
	"image"
	"time"

	"github.com/df07/go-raycore/pkg/core"
)

// RenderStats contains statistics about the rendering process
type RenderStats struct {
	TotalPixels        int           `json:"totalPixels"`        // Total number of pixels rendered
	TotalSamples       int           `json:"totalSamples"`       // Total number of samples taken
	PrimaryRays        int           `json:"primaryRays"`        // Camera rays traced
	Hits               int           `json:"hits"`               // Camera rays that hit geometry
	ShadowRays         int           `json:"shadowRays"`         // Occlusion rays traced toward the light
	OccludedShadowRays int           `json:"occludedShadowRays"` // Shadow rays that were blocked
	Elapsed            time.Duration `json:"elapsed"`            // Wall time of the render
}

// Merge adds the counters of other into s; Elapsed is left alone
func (s *RenderStats) Merge(other RenderStats) {
	s.TotalPixels += other.TotalPixels
	s.TotalSamples += other.TotalSamples
	s.PrimaryRays += other.PrimaryRays
	s.Hits += other.Hits
	s.ShadowRays += other.ShadowRays
	s.OccludedShadowRays += other.OccludedShadowRays
}

// AverageSamples returns samples per pixel
func (s RenderStats) AverageSamples() float64 {
	if s.TotalPixels == 0 {
		return 0
	}
	return float64(s.TotalSamples) / float64(s.TotalPixels)
}

// RaysPerSecond returns primary plus shadow rays per second of wall time
func (s RenderStats) RaysPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.PrimaryRays+s.ShadowRays) / s.Elapsed.Seconds()
}

// PixelStats accumulates the samples of one pixel
type PixelStats struct {
	ColorAccum  core.Vec3 // RGB accumulator for final result
	SampleCount int       // Number of samples taken
}

// AddSample adds a new color sample to the pixel statistics
func (ps *PixelStats) AddSample(color core.Vec3) {
	ps.ColorAccum = ps.ColorAccum.Add(color)
	ps.SampleCount++
}

// GetColor returns the current average color for this pixel
func (ps *PixelStats) GetColor() core.Vec3 {
	if ps.SampleCount == 0 {
		return core.Vec3{}
	}
	return ps.ColorAccum.Mul(1 / float32(ps.SampleCount))
}

// CalculateAverageLuminance returns the mean Rec. 709 luminance of img with
// channels scaled to [0,1]
func CalculateAverageLuminance(img image.Image) float64 {
	bounds := img.Bounds()
	if bounds.Empty() {
		return 0
	}
	var sum float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			sum += (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)) / 0xffff
		}
	}
	return sum / float64(bounds.Dx()*bounds.Dy())
}
