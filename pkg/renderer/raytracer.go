package renderer

import (
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/scene"
)

// Config contains rendering configuration
type Config struct {
	SamplesPerPixel int       // Number of camera rays per pixel
	TileSize        int       // Edge of a square tile in pixels
	NumWorkers      int       // Number of parallel workers (0 = use CPU count)
	MotionBlur      bool      // Give each sample a random time in [0,1]
	Shadows         bool      // Trace a shadow ray per hit
	LightDir        core.Vec3 // Direction toward the directional light
	TopColor        core.Vec3 // Background at the zenith
	BottomColor     core.Vec3 // Background at the horizon
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		SamplesPerPixel: 4,
		TileSize:        32,
		Shadows:         true,
		LightDir:        core.NewVec3(-0.4, 1, 0.6),
		TopColor:        core.NewVec3(0.5, 0.7, 1.0), // Light blue
		BottomColor:     core.NewVec3(1.0, 1.0, 1.0), // White
	}
}

// Raytracer shades primary rays with an eye light and a directional light.
// It keeps no per-ray state, so one instance may serve a single worker at a
// time.
type Raytracer struct {
	scene    *scene.Scene
	camera   *Camera
	config   Config
	lightDir core.Vec3
}

// NewRaytracer creates a new raytracer
func NewRaytracer(s *scene.Scene, camera *Camera, config Config) *Raytracer {
	lightDir := config.LightDir
	if lightDir.Len() == 0 {
		lightDir = DefaultConfig().LightDir
	}
	return &Raytracer{
		scene:    s,
		camera:   camera,
		config:   config,
		lightDir: lightDir.Normalize(),
	}
}

// RenderBounds renders every pixel of bounds into pixelStats. Tiles do not
// overlap, so concurrent calls on disjoint bounds are safe.
func (rt *Raytracer) RenderBounds(bounds image.Rectangle, pixelStats [][]PixelStats, random *rand.Rand) RenderStats {
	stats := RenderStats{TotalPixels: bounds.Dx() * bounds.Dy()}
	samples := max(1, rt.config.SamplesPerPixel)

	for j := bounds.Min.Y; j < bounds.Max.Y; j++ {
		for i := bounds.Min.X; i < bounds.Max.X; i++ {
			ps := &pixelStats[j][i]
			for n := 0; n < samples; n++ {
				ray := rt.camera.GetRay(i, j, random)
				if rt.config.MotionBlur {
					ray.Time = random.Float32()
				}
				ps.AddSample(rt.RayColor(&ray, &stats))
				stats.TotalSamples++
			}
		}
	}
	return stats
}

// RayColor traces ray and returns its color, counting rays in stats
func (rt *Raytracer) RayColor(ray *core.Ray, stats *RenderStats) core.Vec3 {
	stats.PrimaryRays++
	if !rt.scene.Intersect(ray) {
		return rt.backgroundGradient(ray)
	}
	stats.Hits++

	dir := ray.Dir.Normalize()
	normal := ray.Hit.Ng
	if normal.Len() == 0 {
		return core.Vec3{}
	}
	normal = normal.Normalize()
	// face the viewer
	if normal.Dot(dir) > 0 {
		normal = normal.Mul(-1)
	}

	eye := core.Abs(normal.Dot(dir))
	diffuse := normal.Dot(rt.lightDir)
	if diffuse > 0 && rt.config.Shadows {
		stats.ShadowRays++
		p := ray.At(ray.TFar)
		if rt.scene.Occluded(rt.shadowRay(p, normal, ray.Time)) {
			stats.OccludedShadowRays++
			diffuse = 0
		}
	}
	diffuse = max(diffuse, 0)

	tint := geomTint(ray.Hit.GeomID)
	return tint.Mul(0.35*eye + 0.65*diffuse)
}

// shadowRay leaves the surface along the normal by an offset that scales with
// the magnitude of the hit point
func (rt *Raytracer) shadowRay(p, normal core.Vec3, time float32) *core.Ray {
	scale := max(core.Abs(p.X()), core.Abs(p.Y()), core.Abs(p.Z()), 1)
	org := p.Add(normal.Mul(1e-4 * scale))
	ray := core.NewRaySegment(org, rt.lightDir, 0, core.Inf, time)
	return &ray
}

// backgroundGradient returns a gradient color based on ray direction
func (rt *Raytracer) backgroundGradient(ray *core.Ray) core.Vec3 {
	unitDirection := ray.Dir.Normalize()
	t := 0.5 * (unitDirection.Y() + 1.0)
	return rt.config.BottomColor.Mul(1.0 - t).Add(rt.config.TopColor.Mul(t))
}

// geomTint picks a stable color per geometry id by walking the hue circle in
// golden ratio steps
func geomTint(geomID uint32) core.Vec3 {
	hue := math.Mod(float64(geomID)*0.618033988749895, 1)
	return hsvToRGB(float32(hue), 0.55, 0.95)
}

func hsvToRGB(h, s, v float32) core.Vec3 {
	i := int(h * 6)
	f := h*6 - float32(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)
	switch i % 6 {
	case 0:
		return core.NewVec3(v, t, p)
	case 1:
		return core.NewVec3(q, v, p)
	case 2:
		return core.NewVec3(p, v, t)
	case 3:
		return core.NewVec3(p, q, v)
	case 4:
		return core.NewVec3(t, p, v)
	default:
		return core.NewVec3(v, p, q)
	}
}

// vec3ToColor converts a Vec3 color to RGBA with proper clamping and gamma correction
func vec3ToColor(c core.Vec3) color.RGBA {
	toByte := func(x float32) uint8 {
		// gamma 2
		x = float32(math.Sqrt(float64(max(x, 0))))
		return uint8(255 * min(x, 1))
	}
	return color.RGBA{R: toByte(c.X()), G: toByte(c.Y()), B: toByte(c.Z()), A: 255}
}
