package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts requests by route template and status code
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "raycore_http_requests_total",
		Help: "Total HTTP requests by route and status code",
	}, []string{"route", "code"})

	// requestDuration tracks handler latency
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "raycore_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
	}, []string{"route"})

	// raysTotal counts traced rays by query and outcome
	raysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "raycore_rays_total",
		Help: "Total rays traced through the query API",
	}, []string{"query", "result"}) // "intersect" or "occluded", "hit" or "miss"

	// raysPerRequest tracks batch sizes
	raysPerRequest = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "raycore_rays_per_request",
		Help:    "Number of rays per query request",
		Buckets: []float64{1, 4, 16, 64, 256, 1024, 4096},
	})

	// renderPixels counts pixels produced by /api/render
	renderPixels = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raycore_render_pixels_total",
		Help: "Total pixels rendered through the render API",
	})
)

// statusRecorder remembers the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument tags every request with an id, records metrics and logs it
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		requestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		s.logger.Debugf("[%s] %s %s %d %v", id, r.Method, r.URL.Path, rec.status, elapsed)
	})
}

func countRays(query string, hits, total int) {
	raysPerRequest.Observe(float64(total))
	raysTotal.WithLabelValues(query, "hit").Add(float64(hits))
	raysTotal.WithLabelValues(query, "miss").Add(float64(total - hits))
}
