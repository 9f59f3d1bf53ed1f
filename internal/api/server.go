// SPDX-License-Identifier: MIT

// Package api exposes the host surface of the countdown core as a small
// JSON API: shift submission, manual refresh, report fetching, and the
// current indicator state.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mleitner/leavetray/internal/countdown"
	"github.com/mleitner/leavetray/internal/log"
	"github.com/mleitner/leavetray/internal/report"
)

// Server wires the engine, report client, and tray state behind HTTP
// handlers. The engine instance is process-wide and passed in by the host.
type Server struct {
	engine *countdown.Engine
	report *report.Client
	tray   *TrayState
	log    zerolog.Logger
}

// New builds a Server around the given collaborators.
func New(engine *countdown.Engine, reportClient *report.Client, tray *TrayState) *Server {
	return &Server{
		engine: engine,
		report: reportClient,
		tray:   tray,
		log:    log.WithComponent("api"),
	}
}

// Router assembles the chi router with logging and rate-limit middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/indicator.png", s.handleIndicatorPNG)

	r.Route("/api", func(r chi.Router) {
		r.Post("/shift", s.handleShift)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/status", s.handleStatus)
		r.Post("/report/fetch", s.handleReportFetch)
		r.Post("/report/test", s.handleReportTest)
	})

	return r
}

// requestLogger emits one structured log line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("event", "http.request").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Str("event", "http.encode_failed").Msg("response encoding failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
