// Package server exposes a committed scene over HTTP: batched ray queries,
// preview renders, tree statistics and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/df07/go-raycore/pkg/config"
	"github.com/df07/go-raycore/pkg/log"
	"github.com/df07/go-raycore/pkg/scene"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// maxBodyBytes bounds a query request body
const maxBodyBytes = 16 << 20

// Server handles web requests against one scene
type Server struct {
	scene   *scene.Scene
	cfg     config.Config
	logger  log.Logger
	handler http.Handler
}

// New creates a server for a committed scene
func New(s *scene.Scene, cfg config.Config) *Server {
	srv := &Server{
		scene:  s,
		cfg:    cfg,
		logger: log.New("server"),
	}

	r := mux.NewRouter()
	r.Use(srv.instrument)

	// Routes live on the root router: method mismatches on a subrouter
	// surface as 404 instead of 405.
	r.HandleFunc("/api/health", srv.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/intersect", srv.handleIntersect).Methods(http.MethodPost)
	r.HandleFunc("/api/occluded", srv.handleOccluded).Methods(http.MethodPost)
	r.HandleFunc("/api/render", srv.handleRender).Methods(http.MethodGet)
	r.HandleFunc("/api/inspect", srv.handleInspect).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", srv.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/scenes", srv.handleScenes).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path))
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no route for %s", req.URL.Path))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	})
	srv.handler = c.Handler(r)
	return srv
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Start serves on the configured port until ctx is cancelled, then shuts down
// gracefully
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Noticef("Serving scene %s on http://localhost%s", s.scene.Name, httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"scene":  s.scene.Name,
	})
}

// handleStats returns the scene and tree statistics
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.scene.Stats()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleScenes lists the builtin scenes and the PLY files in the scene dir
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := scene.ListAllScenes(s.cfg.Server.SceneDir)
	if err != nil {
		s.logger.Errorf("Listing scenes: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list scenes")
		return
	}
	writeJSON(w, http.StatusOK, scenes)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
