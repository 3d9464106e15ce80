package httpapi

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/go-chi/chi/v5"
)

type ctxKey string

const accountKey ctxKey = "account"

// AccountFromContext returns the admin account attached by requireAdmin.
func AccountFromContext(ctx context.Context) (*models.PublicAccount, bool) {
	a, ok := ctx.Value(accountKey).(*models.PublicAccount)
	return a, ok
}

// statusRecorder wraps http.ResponseWriter to remember the status code.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.status = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.status = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// observe logs every request and records its latency under the chi route
// pattern, so ids in the path do not explode label cardinality.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		d := time.Since(start)
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.metrics.RecordRequest(r.Method, route, rec.status, d)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", float64(d.Nanoseconds()) / float64(time.Millisecond),
		}
		switch {
		case rec.status >= 500:
			s.logger.Error(r.Context(), "http_request", args...)
		case rec.status >= 400:
			s.logger.Warn(r.Context(), "http_request", args...)
		default:
			s.logger.Info(r.Context(), "http_request", args...)
		}
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error(r.Context(), "panic recovered",
					"panic", p,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireAdmin authenticates HTTP Basic credentials on every request and
// lets through only accounts carrying the admin role.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			s.writeError(w, r, common.ErrorUnauthorized)
			return
		}

		acc, err := s.creds.Authenticate(r.Context(), username, password)
		s.metrics.RecordAuth(err == nil)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !acc.HasRole(s.adminRole) {
			s.writeError(w, r, common.ErrorForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey, acc)))
	})
}
