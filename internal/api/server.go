// Package api exposes the operational-planning computations over HTTP. The
// caller posts a criteria-filtered timestamp list and the scan parameters;
// responses are JSON or MessagePack.
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/metoceanlab/metocean/pkg/responseformat"
)

// Server is the REST API server.
type Server struct {
	router *mux.Router
	format *responseformat.Formatter
	logger *zap.SugaredLogger
}

// NewServer builds the router and handlers.
func NewServer(logger *zap.SugaredLogger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		format: responseformat.NewFormatter(),
		logger: logger,
	}
	s.router.Use(s.requestLogger)
	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/windows", s.handleWindows).Methods(http.MethodPost)
	s.router.HandleFunc("/api/oplen", s.handleOpLen).Methods(http.MethodPost)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requestID := uuid.NewString()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, req)
		s.logger.Infow("request",
			"id", requestID,
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"remote", req.RemoteAddr,
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, req *http.Request) {
	s.format.WriteResponse(w, req, map[string]string{"status": "ok"})
}
