// Package server is the HTTP facade over the session manager: thin
// handlers that decode, call the session, and encode. All workflow
// semantics live below this layer.
package server

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"campaign-engine/internal/backend"
	"campaign-engine/internal/common/config"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/common/observability"
	"campaign-engine/internal/workflow/session"
)

type Server struct {
	manager *session.Manager
	backend backend.Service
	logger  logger.Logger
	obs     *observability.Observability
	cfg     config.ServerConfig
}

func New(manager *session.Manager, svc backend.Service, log logger.Logger, obs *observability.Observability, cfg config.ServerConfig) *Server {
	return &Server{
		manager: manager,
		backend: svc,
		logger:  log,
		obs:     obs,
		cfg:     cfg,
	}
}

// Router builds the mux with CORS and request logging applied.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions/resume", s.handleResumeSession).Methods("POST")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDestroySession).Methods("DELETE")

	api.HandleFunc("/sessions/{id}/step1", s.handleCompleteStep1).Methods("POST")
	api.HandleFunc("/sessions/{id}/advance", s.handleAdvance).Methods("POST")
	api.HandleFunc("/sessions/{id}/mode", s.handleSetMode).Methods("PUT")
	api.HandleFunc("/sessions/{id}/save", s.handleManualSave).Methods("POST")

	api.HandleFunc("/sessions/{id}/analysis", s.handleAnalysisStatus).Methods("GET")
	api.HandleFunc("/sessions/{id}/analysis/retry", s.handleRetryAnalysis).Methods("POST")

	api.HandleFunc("/sessions/{id}/intelligence", s.handleListSources).Methods("GET")
	api.HandleFunc("/sessions/{id}/intelligence", s.handleSelectSource).Methods("PUT")

	api.HandleFunc("/sessions/{id}/requests", s.handleBuildRequest).Methods("POST")
	api.HandleFunc("/sessions/{id}/generate", s.handleGenerate).Methods("POST")
	api.HandleFunc("/sessions/{id}/generate/batch", s.handleGenerateBatch).Methods("POST")

	api.HandleFunc("/sessions/{id}/platforms/toggle", s.handleTogglePlatform).Methods("POST")
	api.HandleFunc("/sessions/{id}/cost-estimate", s.handleCostEstimate).Methods("POST")

	api.HandleFunc("/platform-specs", s.handlePlatformSpecs).Methods("GET")

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	return cors(r)
}

// logRequests emits one structured line per request and feeds the OTel
// operation instruments. The mux path template keeps the operation
// label bounded; raw paths would leak one series per session id.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		operation := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				operation = tpl
			}
		}
		outcome := "ok"
		if rec.status >= 400 {
			outcome = "error"
		}
		s.obs.RecordOperation(r.Context(), operation, outcome)
		s.obs.RecordOperationDuration(r.Context(), operation, time.Since(start), outcome)

		s.logger.Debug("http request", map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
