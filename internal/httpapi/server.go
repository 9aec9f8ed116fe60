// Package httpapi exposes the registry over HTTP: login, record listing,
// add, update, delete with confirmation, reports and exports.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"go-rail-employee-registry/internal/auth"
	"go-rail-employee-registry/internal/registry"
	"go-rail-employee-registry/internal/session"
)

const CookieName = "registry_session"

type ctxKey struct{}

type Server struct {
	svc      *registry.Service
	sessions *session.Store
	creds    auth.Credentials
	logger   logrus.FieldLogger
	secure   bool
}

type Option func(*Server)

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) { s.secure = secure }
}

func New(svc *registry.Service, sessions *session.Store, creds auth.Credentials, logger logrus.FieldLogger, opts ...Option) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{svc: svc, sessions: sessions, creds: creds, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Route("/api/employees", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleAdd)
			r.Patch("/{id}", s.handleUpdate)
			r.Delete("/{id}", s.handleDelete)
		})
		r.Get("/api/reports/counts", s.handleCounts)
		r.Get("/api/export.csv", s.handleExportCSV)
		r.Get("/api/export.xlsx", s.handleExportXLSX)
	})
	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("[http] request")
	})
}

// requireSession rejects requests without a logged-in session. Every request
// other than a delete abandons a pending delete confirmation.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(CookieName)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, "401", "login required", nil)
			return
		}
		sess, ok := s.sessions.Get(c.Value)
		if !ok || !sess.Authenticated() {
			writeJSON(w, http.StatusUnauthorized, "401", "login required", nil)
			return
		}
		if r.Method != http.MethodDelete {
			sess.Navigate()
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(ctxKey{}).(*session.Session)
	return sess
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Available(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, "503", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, "200", "ok", nil)
}
