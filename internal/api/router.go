// Package api exposes document sessions over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("latency", time.Since(start)))
		})
	}
}

// NewRouter registers the API routes.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(h.logger))

	r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", h.metricsHTTP).Methods(http.MethodGet)
	r.HandleFunc("/sessions", h.HandleCreateSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", h.HandleDeleteSession).Methods(http.MethodDelete)

	s := r.PathPrefix("/sessions/{id}").Subrouter()
	s.HandleFunc("/pdf", h.HandlePDF).Methods(http.MethodPost)
	s.HandleFunc("/wikipedia", h.HandleWikipedia).Methods(http.MethodPost)
	s.HandleFunc("/notion", h.HandleNotion).Methods(http.MethodPost)
	s.HandleFunc("/ask", h.HandleAsk).Methods(http.MethodPost)
	s.HandleFunc("/history", h.HandleHistory).Methods(http.MethodGet)
	s.HandleFunc("/history", h.HandleClearHistory).Methods(http.MethodDelete)
	s.HandleFunc("/stats", h.HandleStats).Methods(http.MethodGet)
	return r
}
