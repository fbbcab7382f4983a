package renderer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/scene"
	"github.com/stretchr/testify/assert"
)

func assertVecNear(t *testing.T, want, got core.Vec3, delta float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], delta, "component %d of %v, want %v", i, got, want)
	}
}

func TestCameraGetCameraForward(t *testing.T) {
	camera := NewCamera(CameraConfig{
		Center:      core.NewVec3(0, 0, 0),
		LookAt:      core.NewVec3(0, 0, -1),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 1.0,
		VFov:        45.0,
	})
	assertVecNear(t, core.NewVec3(0, 0, -1), camera.GetCameraForward(), 1e-6)
}

func TestCameraCenterRay(t *testing.T) {
	tests := []struct {
		name   string
		config CameraConfig
	}{
		{"looking down -z", CameraConfig{Center: core.NewVec3(0, 0, 0), LookAt: core.NewVec3(0, 0, -1), Up: core.NewVec3(0, 1, 0), Width: 3, AspectRatio: 1, VFov: 90}},
		{"offset look-at", CameraConfig{Center: core.NewVec3(1, 2, 3), LookAt: core.NewVec3(-2, 0, 0), Up: core.NewVec3(0, 1, 0), Width: 9, AspectRatio: 3, VFov: 30}},
		{"up parallel to view", CameraConfig{Center: core.NewVec3(0, 5, 0), LookAt: core.NewVec3(0, 0, 0), Up: core.NewVec3(0, 1, 0), Width: 3, AspectRatio: 1, VFov: 60}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			camera := NewCamera(tt.config)
			width, height := camera.Size()
			ray := camera.GetRay(width/2, height/2, nil)

			assert.Equal(t, tt.config.Center, ray.Org)
			assertVecNear(t, camera.GetCameraForward(), ray.Dir.Normalize(), 1e-5)
			assert.Equal(t, float32(0), ray.TNear)
			assert.Equal(t, core.InvalidID, ray.Hit.GeomID)
		})
	}
}

func TestCameraFieldOfView(t *testing.T) {
	// with a 90 degree fov the top edge of the image is 45 degrees up
	camera := NewCamera(CameraConfig{
		Center: core.NewVec3(0, 0, 0), LookAt: core.NewVec3(0, 0, -1), Up: core.NewVec3(0, 1, 0),
		Width: 100, AspectRatio: 2, VFov: 90,
	})
	width, height := camera.Size()
	assert.Equal(t, 100, width)
	assert.Equal(t, 50, height)

	top := camera.GetRay(width/2, 0, nil).Dir.Normalize()
	angle := math.Atan2(float64(top.Y()), float64(-top.Z()))
	// the sample sits half a pixel below the edge
	assert.InDelta(t, math.Atan(1-1.0/float64(height)), angle, 1e-4)

	// row 0 is the top of the image, column 0 the left
	corner := camera.GetRay(0, 0, nil).Dir
	assert.Less(t, corner.X(), float32(0))
	assert.Greater(t, corner.Y(), float32(0))
}

func TestCameraJitterStaysInPixel(t *testing.T) {
	camera := NewCamera(CameraConfig{
		Center: core.NewVec3(0, 0, 0), LookAt: core.NewVec3(0, 0, -1), Up: core.NewVec3(0, 1, 0),
		Width: 8, AspectRatio: 1, VFov: 60,
	})
	random := rand.New(rand.NewSource(1))

	lo := camera.GetRay(2, 3, nil).Dir
	for i := 0; i < 100; i++ {
		dir := camera.GetRay(2, 3, random).Dir
		// the image plane sits at distance 1, so pixel offsets are in plane units
		assert.InDelta(t, lo.X(), dir.X(), float64(camera.deltaU.Len())/2+1e-6)
		assert.InDelta(t, lo.Y(), dir.Y(), float64(camera.deltaV.Len())/2+1e-6)
	}
}

func TestCameraConfigFromView(t *testing.T) {
	view := scene.View{Eye: core.NewVec3(1, 2, 3), LookAt: core.NewVec3(0, 0, 0), Up: core.NewVec3(0, 1, 0), VFov: 40}
	config := CameraConfigFromView(view, 320, 240)
	assert.Equal(t, CameraConfig{
		Center:      view.Eye,
		LookAt:      view.LookAt,
		Up:          view.Up,
		Width:       320,
		AspectRatio: 320.0 / 240.0,
		VFov:        40,
	}, config)

	width, height := NewCamera(config).Size()
	assert.Equal(t, 320, width)
	assert.Equal(t, 240, height)
}
