// Package httpapi serves the read-only reporting API over HTTP: scores,
// gaps, trends and organization reports, plus health and Prometheus
// metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/HendryAvila/aismm/internal/errs"
	"github.com/HendryAvila/aismm/internal/report"
	"github.com/HendryAvila/aismm/internal/scoring"
	"github.com/HendryAvila/aismm/internal/service"
)

// Service is the part of the service the API reads from.
type Service interface {
	DomainScores(ctx context.Context, assessmentID string) ([]scoring.DomainScore, error)
	Gaps(ctx context.Context, assessmentID, pillarID string) (scoring.GapAnalysis, error)
	Trend(ctx context.Context, orgID string) (scoring.MaturityTrend, error)
	GenerateReport(ctx context.Context, orgID string) (*report.OrganizationSecurityReport, error)
}

// Server holds the API dependencies.
type Server struct {
	svc     Service
	metrics http.Handler
}

// New creates a Server. metricsHandler may be nil to leave /metrics out.
func New(svc Service, metricsHandler http.Handler) *Server {
	return &Server{svc: svc, metrics: metricsHandler}
}

// Routes returns the API router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Route("/organizations/{orgID}", func(r chi.Router) {
		r.Get("/report", s.report)
		r.Get("/trend", s.trend)
	})
	r.Route("/assessments/{assessmentID}", func(r chi.Router) {
		r.Get("/scores", s.scores)
		r.Get("/gaps", s.gaps)
	})
	return r
}

// ListenAndServe serves the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Printf("http api listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errs.ReasonInvalidArgument, err.Error())
		return
	}
	rep, err := s.svc.GenerateReport(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if format == report.FormatJSON {
		writeJSON(w, http.StatusOK, rep)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report.RenderMarkdown(rep)))
}

func (s *Server) trend(w http.ResponseWriter, r *http.Request) {
	tr, err := s.svc.Trend(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) scores(w http.ResponseWriter, r *http.Request) {
	scores, err := s.svc.DomainScores(r.Context(), chi.URLParam(r, "assessmentID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (s *Server) gaps(w http.ResponseWriter, r *http.Request) {
	ga, err := s.svc.Gaps(r.Context(), chi.URLParam(r, "assessmentID"), r.URL.Query().Get("pillar"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ga)
}

// ─── Responses ──────────────────────────────────────────────────────────────

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// writeServiceError maps domain errors onto status codes: not found 404,
// validation 400, precondition 409, unusable analyst output 502. Anything
// else is a 500 and is logged.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case service.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errs.IsValidation(err):
		writeError(w, http.StatusBadRequest, errs.ReasonOf(err), err.Error())
	case errs.IsPrecondition(err):
		writeError(w, http.StatusConflict, errs.ReasonOf(err), err.Error())
	case errs.IsUpstream(err):
		log.Printf("ERROR: http api: %v", err)
		writeError(w, http.StatusBadGateway, errs.ReasonOf(err), err.Error())
	default:
		log.Printf("ERROR: http api: %v", err)
		writeError(w, http.StatusInternalServerError, "", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, reason, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Reason: reason})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARNING: encoding response: %v", err)
	}
}
