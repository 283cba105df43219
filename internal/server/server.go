package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/paylens/paylens/internal/app"
	"github.com/paylens/paylens/internal/export"
	"github.com/paylens/paylens/internal/logging"
	"github.com/paylens/paylens/internal/model"
	"github.com/paylens/paylens/internal/store"
)

// Server is the HTTP + WebSocket API surface for Paylens.
type Server struct {
	cfg          Config
	orchestrator *app.Orchestrator
	router       chi.Router
	upgrader     websocket.Upgrader
	logger       logging.Logger
}

// NewServer wraps an orchestrator in the HTTP API. The orchestrator is
// injected so tests can run the full surface against dummy stores and
// probes.
func NewServer(cfg Config, orchestrator *app.Orchestrator) (*Server, error) {
	if orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	r := chi.NewRouter()
	s := &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		router:       r,
		logger:       logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}

	s.routes()
	return s, nil
}

// Orchestrator returns the underlying orchestrator for advanced use (tests, etc.).
func (s *Server) Orchestrator() *app.Orchestrator {
	return s.orchestrator
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/scans", s.optionsHandler("POST"))
	r.Options("/scans/jobs", s.optionsHandler("POST"))
	r.Options("/jobs", s.optionsHandler("GET"))
	r.Options("/jobs/{jobID}", s.optionsHandler("GET, DELETE"))
	r.Options("/tenants/{tenant}/scans", s.optionsHandler("GET"))
	r.Options("/tenants/{tenant}/scans/export", s.optionsHandler("GET"))
	r.Options("/tenants/{tenant}/scans/{domain}", s.optionsHandler("GET"))
	r.Options("/tenants/{tenant}/scans/{domain}/drift", s.optionsHandler("GET"))
	r.Options("/ws/scans", s.optionsHandler("GET"))

	// Scans
	r.Post("/scans", s.handleScan)
	r.Post("/scans/jobs", s.handleStartScanJob)

	// Tenant views
	r.Get("/tenants/{tenant}/scans", s.handleListScans)
	r.Get("/tenants/{tenant}/scans/export", s.handleExportScans)
	r.Get("/tenants/{tenant}/scans/{domain}", s.handleGetScan)
	r.Get("/tenants/{tenant}/scans/{domain}/drift", s.handleManifestDrift)

	// Jobs over REST
	r.Get("/jobs", s.handleListJobs)
	r.Get("/jobs/{jobID}", s.handleGetJob)
	r.Delete("/jobs/{jobID}", s.handleCancelJob)

	// WebSocket for scan progress
	r.Get("/ws/scans", s.handleScanWS)

	// Interactive API docs
	r.Get("/swagger/*", httpSwagger.Handler())
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close shuts down the orchestrator and any in-flight jobs.
func (s *Server) Close() {
	if s.orchestrator != nil {
		s.orchestrator.Close()
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeScanRequest(r *http.Request) (app.ScanOptions, error) {
	var body ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return app.ScanOptions{}, errors.New("invalid JSON")
	}
	if body.TenantID == "" {
		return app.ScanOptions{}, errors.New("tenant_id is required")
	}
	if body.URL == "" {
		return app.ScanOptions{}, errors.New("url is required")
	}
	return app.ScanOptions{
		TenantID:         body.TenantID,
		URL:              body.URL,
		DeclaredCategory: body.DeclaredCategory,
		SkipIfFresh:      body.SkipIfFresh,
	}, nil
}

// --- HTTP handlers ---

// Scans

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeScanRequest(r)
	if err != nil {
		s.logger.Warn("decoding scan request", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	scan := s.orchestrator.Scan(r.Context(), opts)
	s.logger.Info("scan handled",
		logging.Field{Key: "tenant_id", Value: scan.TenantID},
		logging.Field{Key: "domain", Value: scan.Domain},
		logging.Field{Key: "status", Value: string(scan.Status)})
	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) handleStartScanJob(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeScanRequest(r)
	if err != nil {
		s.logger.Warn("decoding scan job request", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// REST-started jobs outlive the request; detach from its context.
	job, err := s.orchestrator.StartScanJob(context.Background(), opts)
	if err != nil {
		s.logger.Warn("starting scan job", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("started scan job",
		logging.Field{Key: "job_id", Value: job.ID},
		logging.Field{Key: "domain", Value: job.Domain})
	writeJSON(w, http.StatusAccepted, job)
}

// Tenant views

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")

	scans, err := s.orchestrator.ListScans(r.Context(), tenant)
	if err != nil {
		s.logger.Warn("listing scans", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("listed scans",
		logging.Field{Key: "tenant_id", Value: tenant},
		logging.Field{Key: "count", Value: len(scans)})
	writeJSON(w, http.StatusOK, scans)
}

func (s *Server) handleExportScans(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")

	scans, err := s.orchestrator.ListScans(r.Context(), tenant)
	if err != nil {
		s.logger.Warn("listing scans for export", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", tenant+"-readiness.xlsx"))
	if err := export.WriteRankingXLSX(w, scans); err != nil {
		s.logger.Warn("writing xlsx export", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	s.logger.Info("exported scans",
		logging.Field{Key: "tenant_id", Value: tenant},
		logging.Field{Key: "count", Value: len(scans)})
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	domain := chi.URLParam(r, "domain")

	scan, err := s.orchestrator.GetScan(r.Context(), tenant, domain)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "scan not found")
			return
		}
		s.logger.Warn("getting scan", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) handleManifestDrift(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	domain := chi.URLParam(r, "domain")

	protocol := model.Protocol(r.URL.Query().Get("protocol"))
	if protocol == "" {
		protocol = model.ProtocolX402
	}

	report, err := s.orchestrator.ManifestDrift(r.Context(), tenant, domain, protocol)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no capability snapshots recorded")
			return
		}
		s.logger.Warn("computing manifest drift", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Jobs (REST)

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		s.logger.Warn("getting job: not found", logging.Field{Key: "job_id", Value: jobID})
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	s.orchestrator.CancelJob(jobID)
	s.logger.Info("canceled job", logging.Field{Key: "job_id", Value: jobID})
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.orchestrator.ListJobs()
	writeJSON(w, http.StatusOK, jobs)
}

// WebSockets

func (s *Server) handleScanWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := app.ScanOptions{
		TenantID:         q.Get("tenant_id"),
		URL:              q.Get("url"),
		DeclaredCategory: q.Get("declared_category"),
		SkipIfFresh:      q.Get("skip_if_fresh") == "true",
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	if opts.TenantID == "" || opts.URL == "" {
		_ = conn.WriteJSON(map[string]string{"error": "tenant_id and url query parameters are required"})
		return
	}

	job, err := s.orchestrator.StartScanJob(r.Context(), opts)
	if err != nil {
		s.logger.Warn("starting scan job", logging.Field{Key: "error", Value: err.Error()})
		_ = conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	s.logger.Info("started scan job", logging.Field{Key: "job_id", Value: job.ID})
	_ = conn.WriteJSON(job)

	for ev := range job.Events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; cancel job
			s.orchestrator.CancelJob(job.ID)
			return
		}
	}

	// Send the final job state with the composed scan result.
	if final := s.orchestrator.GetJob(job.ID); final != nil {
		_ = conn.WriteJSON(final)
	}
}
