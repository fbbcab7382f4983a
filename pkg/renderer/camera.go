package renderer

import (
	"math"
	"math/rand"

	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/scene"
)

// CameraConfig contains all camera configuration parameters
type CameraConfig struct {
	Center      core.Vec3 // Camera position
	LookAt      core.Vec3 // Point the camera looks at
	Up          core.Vec3 // Up direction
	Width       int       // Image width in pixels
	AspectRatio float32   // Width / height
	VFov        float32   // Vertical field of view in degrees
}

// CameraConfigFromView builds a camera config from a scene's suggested view
func CameraConfigFromView(view scene.View, width, height int) CameraConfig {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	return CameraConfig{
		Center:      view.Eye,
		LookAt:      view.LookAt,
		Up:          view.Up,
		Width:       width,
		AspectRatio: aspect,
		VFov:        view.VFov,
	}
}

// Camera generates primary rays through a pinhole
type Camera struct {
	config  CameraConfig
	width   int
	height  int
	pixel00 core.Vec3 // Upper left corner of the image plane
	deltaU  core.Vec3 // One pixel to the right
	deltaV  core.Vec3 // One pixel down
	forward core.Vec3
}

// NewCamera creates a camera from config
func NewCamera(config CameraConfig) *Camera {
	if config.AspectRatio <= 0 {
		config.AspectRatio = 1
	}
	if config.VFov <= 0 {
		config.VFov = 45
	}
	width := max(1, config.Width)
	height := max(1, int(math.Round(float64(float32(width)/config.AspectRatio))))

	viewportHeight := 2 * float32(math.Tan(float64(config.VFov)*math.Pi/360))
	viewportWidth := viewportHeight * float32(width) / float32(height)

	w := config.Center.Sub(config.LookAt)
	if w.Len() == 0 {
		w = core.NewVec3(0, 0, 1)
	}
	w = w.Normalize()
	u := config.Up.Cross(w)
	if u.Len() < 1e-6 {
		// up is parallel to the view direction
		u = core.NewVec3(0, 0, 1).Cross(w)
		if u.Len() < 1e-6 {
			u = core.NewVec3(1, 0, 0).Cross(w)
		}
	}
	u = u.Normalize()
	v := w.Cross(u)

	viewportU := u.Mul(viewportWidth)
	viewportV := v.Mul(-viewportHeight)

	return &Camera{
		config:  config,
		width:   width,
		height:  height,
		pixel00: config.Center.Sub(w).Sub(viewportU.Mul(0.5)).Sub(viewportV.Mul(0.5)),
		deltaU:  viewportU.Mul(1 / float32(width)),
		deltaV:  viewportV.Mul(1 / float32(height)),
		forward: w.Mul(-1),
	}
}

// Size returns the image size in pixels
func (c *Camera) Size() (width, height int) {
	return c.width, c.height
}

// GetCameraForward returns the unit view direction
func (c *Camera) GetCameraForward() core.Vec3 {
	return c.forward
}

// GetRay returns a ray through pixel (i, j), with j = 0 the top row. The
// sample position inside the pixel is jittered by random; a nil random
// samples the pixel center.
func (c *Camera) GetRay(i, j int, random *rand.Rand) core.Ray {
	ox, oy := float32(0.5), float32(0.5)
	if random != nil {
		ox, oy = random.Float32(), random.Float32()
	}
	p := c.pixel00.
		Add(c.deltaU.Mul(float32(i) + ox)).
		Add(c.deltaV.Mul(float32(j) + oy))
	return core.NewRay(c.config.Center, p.Sub(c.config.Center))
}
