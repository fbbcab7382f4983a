package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/df07/go-raycore/pkg/core"
)

// RayJSON is one query ray. A missing tfar means an unbounded ray.
type RayJSON struct {
	Org   [3]float32 `json:"org"`
	Dir   [3]float32 `json:"dir"`
	TNear float32    `json:"tnear"`
	TFar  *float32   `json:"tfar,omitempty"`
	Time  float32    `json:"time"`
}

// QueryRequest is the body of /api/intersect and /api/occluded
type QueryRequest struct {
	Rays []RayJSON `json:"rays"`
}

// HitRecord describes the nearest hit of one ray
type HitRecord struct {
	GeomID uint32     `json:"geomId"`
	PrimID uint32     `json:"primId"`
	T      float32    `json:"t"`
	U      float32    `json:"u"`
	V      float32    `json:"v"`
	Ng     [3]float32 `json:"ng"`
	Point  [3]float32 `json:"point"`
}

// HitJSON is the per-ray intersect answer; the record is omitted on a miss
type HitJSON struct {
	Hit bool `json:"hit"`
	*HitRecord
}

// IntersectResponse is the body returned by /api/intersect
type IntersectResponse struct {
	Hits []HitJSON `json:"hits"`
}

// OccludedResponse is the body returned by /api/occluded
type OccludedResponse struct {
	Occluded []bool `json:"occluded"`
}

// ToRay converts the wire form into a query ray
func (rj RayJSON) ToRay() (core.Ray, error) {
	dir := core.NewVec3(rj.Dir[0], rj.Dir[1], rj.Dir[2])
	if dir.Len() == 0 {
		return core.Ray{}, errors.New("zero direction")
	}
	if rj.Time < 0 || rj.Time > 1 {
		return core.Ray{}, fmt.Errorf("time %v outside [0,1]", rj.Time)
	}
	tfar := core.Inf
	if rj.TFar != nil {
		tfar = *rj.TFar
	}
	org := core.NewVec3(rj.Org[0], rj.Org[1], rj.Org[2])
	return core.NewRaySegment(org, dir, rj.TNear, tfar, rj.Time), nil
}

func hitJSON(ray *core.Ray) HitJSON {
	if !ray.Hit.Valid() {
		return HitJSON{}
	}
	p := ray.At(ray.Hit.T)
	ng := ray.Hit.Ng
	return HitJSON{
		Hit: true,
		HitRecord: &HitRecord{
			GeomID: ray.Hit.GeomID,
			PrimID: ray.Hit.PrimID,
			T:      ray.Hit.T,
			U:      ray.Hit.U,
			V:      ray.Hit.V,
			Ng:     [3]float32{ng[0], ng[1], ng[2]},
			Point:  [3]float32{p[0], p[1], p[2]},
		},
	}
}

// decodeRays parses and bounds-checks a query body
func (s *Server) decodeRays(w http.ResponseWriter, r *http.Request) ([]core.Ray, bool) {
	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return nil, false
	}
	switch {
	case len(req.Rays) == 0:
		writeError(w, http.StatusBadRequest, "no rays in request")
		return nil, false
	case len(req.Rays) > s.cfg.Server.MaxRays:
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("too many rays: %d, limit is %d", len(req.Rays), s.cfg.Server.MaxRays))
		return nil, false
	}

	rays := make([]core.Ray, len(req.Rays))
	for i, rj := range req.Rays {
		ray, err := rj.ToRay()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("ray %d: %v", i, err))
			return nil, false
		}
		rays[i] = ray
	}
	return rays, true
}

// handleIntersect answers nearest hit queries
func (s *Server) handleIntersect(w http.ResponseWriter, r *http.Request) {
	rays, ok := s.decodeRays(w, r)
	if !ok {
		return
	}
	resp := IntersectResponse{Hits: make([]HitJSON, len(rays))}
	hits := 0
	for i := range rays {
		if s.scene.Intersect(&rays[i]) {
			hits++
		}
		resp.Hits[i] = hitJSON(&rays[i])
	}
	countRays("intersect", hits, len(rays))
	writeJSON(w, http.StatusOK, resp)
}

// handleOccluded answers any hit queries
func (s *Server) handleOccluded(w http.ResponseWriter, r *http.Request) {
	rays, ok := s.decodeRays(w, r)
	if !ok {
		return
	}
	resp := OccludedResponse{Occluded: make([]bool, len(rays))}
	hits := 0
	for i := range rays {
		resp.Occluded[i] = s.scene.Occluded(&rays[i])
		if resp.Occluded[i] {
			hits++
		}
	}
	countRays("occluded", hits, len(rays))
	writeJSON(w, http.StatusOK, resp)
}
