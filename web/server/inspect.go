package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/df07/go-raycore/pkg/geometry"
	"github.com/df07/go-raycore/pkg/renderer"
)

// InspectResponse represents the JSON response for pixel inspection
type InspectResponse struct {
	HitJSON
	GeometryType string `json:"geometryType,omitempty"`
	Triangles    int    `json:"triangles,omitempty"` // Triangle count of the hit geometry
	Motion       bool   `json:"motion,omitempty"`
}

// geometryType names the concrete source kind
func geometryType(src geometry.Source) string {
	switch src.(type) {
	case *geometry.TriangleMesh:
		return "triangle-mesh"
	case *geometry.QuadMesh:
		return "quad-mesh"
	case *geometry.MotionMesh:
		return "motion-mesh"
	default:
		return fmt.Sprintf("%T", src)
	}
}

// handleInspect traces the center ray of pixel (x, y) of a width x height
// view and reports what it hits
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	width, err := parseIntParam(values, "width", s.cfg.Width, 1, 8192)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	height, err := parseIntParam(values, "height", s.cfg.Height, 1, 8192)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	x, err := parseIntParam(values, "x", width/2, 0, width-1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	y, err := parseIntParam(values, "y", height/2, 0, height-1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var time float64
	if value := values.Get("time"); value != "" {
		if time, err = strconv.ParseFloat(value, 32); err != nil || time < 0 || time > 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid time: %s", value))
			return
		}
	}

	camera := renderer.NewCamera(renderer.CameraConfigFromView(s.scene.View, width, height))
	ray := camera.GetRay(x, y, nil)
	ray.Time = float32(time)

	resp := InspectResponse{}
	if s.scene.Intersect(&ray) {
		resp.HitJSON = hitJSON(&ray)
		sources := s.scene.Sources()
		if id := int(ray.Hit.GeomID); id < len(sources) {
			resp.GeometryType = geometryType(sources[id])
			resp.Triangles = sources[id].NumTriangles()
			resp.Motion = sources[id].Motion()
		}
	}
	countRays("inspect", boolToInt(resp.Hit), 1)
	writeJSON(w, http.StatusOK, resp)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
