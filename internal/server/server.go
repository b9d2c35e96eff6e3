// SPDX-License-Identifier: MIT

// Package server exposes orbit selection over HTTP: clients ask which
// orbit file covers an acquisition instant without downloading anything.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/perigee-io/eofetch/internal/catalog"
	"github.com/perigee-io/eofetch/internal/download"
	xlog "github.com/perigee-io/eofetch/internal/log"
	"github.com/perigee-io/eofetch/internal/orbit"
	"github.com/perigee-io/eofetch/internal/product"
)

// Config holds the server settings.
type Config struct {
	Listen       string
	RateLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server answers orbit queries against a resolution source.
type Server struct {
	cfg    Config
	source download.Source
	router chi.Router
}

// New assembles the router and middleware around the given source.
func New(cfg Config, source download.Source) *Server {
	s := &Server{cfg: cfg, source: source}

	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(rateLimit(cfg.RateLimit))

	r.Get("/api/orbits", s.handleOrbits)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	return s
}

// Handler returns the assembled HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger := xlog.WithComponent("server")
		logger.Info().Str("addr", s.cfg.Listen).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// orbitResponse is the JSON answer for one orbit query.
type orbitResponse struct {
	Filename      string    `json:"filename"`
	URL           string    `json:"url,omitempty"`
	Mission       string    `json:"mission"`
	Kind          string    `json:"kind"`
	CreationTime  time.Time `json:"creation_time"`
	ValidityStart time.Time `json:"validity_start"`
	ValidityStop  time.Time `json:"validity_stop"`
}

// handleOrbits answers GET /api/orbits?time=&mission=&kind=.
func (s *Server) handleOrbits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	t, err := parseQueryTime(q.Get("time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	mission := product.Mission(q.Get("mission"))
	if mission == "" {
		mission = product.S1A
	}
	if !mission.Valid() {
		writeError(w, http.StatusBadRequest, "unknown mission "+string(mission))
		return
	}

	kind := orbit.Precise
	if v := q.Get("kind"); v != "" {
		kind, err = orbit.ParseKind(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	files, unresolved, err := s.source.Resolve(r.Context(), []orbit.Request{{Time: t, Mission: mission}}, kind)
	if err != nil {
		logger := xlog.WithComponentFromContext(r.Context(), "server")
		logger.Error().Err(err).Msg("orbit resolution failed")
		if errors.Is(err, catalog.ErrUnavailable) {
			writeError(w, http.StatusBadGateway, "upstream catalogue unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "orbit resolution failed")
		return
	}
	if len(unresolved) > 0 || len(files) == 0 {
		writeError(w, http.StatusNotFound, orbit.ErrNoCoverage.Error())
		return
	}

	rec, err := orbit.ParseRecord(files[0].Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unparseable orbit filename from backend")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(orbitResponse{
		Filename:      files[0].Name,
		URL:           files[0].URL,
		Mission:       string(rec.Mission),
		Kind:          string(rec.Kind),
		CreationTime:  rec.CreationTime,
		ValidityStart: rec.ValidityStart,
		ValidityStop:  rec.ValidityStop,
	})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// parseQueryTime accepts RFC 3339 or the compact Sentinel filename form.
func parseQueryTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("missing required parameter: time")
	}
	for _, layout := range []string{time.RFC3339, "20060102T150405", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unparseable time " + raw)
}
