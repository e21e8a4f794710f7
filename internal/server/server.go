package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/simulative/grade-ingestion-service/internal/archive"
	"github.com/simulative/grade-ingestion-service/internal/config"
	"github.com/simulative/grade-ingestion-service/internal/report"
	"github.com/simulative/grade-ingestion-service/internal/storage"
)

// Server handles HTTP requests
type Server struct {
	config  config.ServerConfig
	storage storage.Storage
	archive archive.Archive
	server  *http.Server
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, store storage.Storage, arc archive.Archive) *Server {
	s := &Server{
		config:  cfg,
		storage: store,
		archive: arc,
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	return s
}

// Routes returns the router serving the read API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/records", s.handleRecords)
	r.Get("/report", s.handleReport)
	r.Get("/status", s.handleStatus)
	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleRecords returns the sample rows
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.storage.Sample(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve records: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// handleReport returns the aggregate counts for ?date=YYYY-MM-DD
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := time.Parse(storage.DateLayout, dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	summary, err := s.storage.Summary(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to build report: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary": summary,
		"rows":    report.Rows(summary),
	})
}

// handleStatus handles GET requests for ingestion status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.archive.GetIngestionStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve status: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, status)
}
