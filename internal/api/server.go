// Package api serves pantry searches and session filters over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/pantry-finder/internal/pantry"
	"github.com/sells-group/pantry-finder/internal/session"
	"github.com/sells-group/pantry-finder/internal/tract"
)

const (
	// SessionHeader carries the session id on requests and responses.
	SessionHeader = "X-Session-ID"
	// SessionCookie carries the session id for browser clients.
	SessionCookie = "pf_session"

	sessionMaxAge = 30 * 24 * time.Hour
)

// Server holds the handlers' dependencies.
type Server struct {
	engine   *pantry.Engine
	sessions session.Store
	data     pantry.DatasetSource
	origins  []string
	log      *zap.Logger
}

// NewServer creates a Server. allowedOrigins configures CORS; empty allows
// any origin.
func NewServer(engine *pantry.Engine, sessions session.Store, data pantry.DatasetSource, allowedOrigins []string) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Server{
		engine:   engine,
		sessions: sessions,
		data:     data,
		origins:  allowedOrigins,
		log:      zap.L().With(zap.String("component", "api")),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", SessionHeader},
		ExposedHeaders:   []string{SessionHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/pantries", s.findPantries)
		r.Get("/categories", s.categories)
		r.Get("/tracts", s.tracts)
		r.Get("/session/filters", s.getFilters)
		r.Put("/session/filters", s.putFilters)
		r.Delete("/session/filters", s.deleteFilters)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// sessionID returns the caller's session id from the header or cookie,
// issuing a new one when neither is present. The id is echoed back in both.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(SessionHeader, id)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps err onto a status code. Resolution failures are 422,
// malformed input is 400 and the rest are 500s whose detail is only logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("api: request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pantry.ErrUnresolvableLocation), errors.Is(err, tract.ErrTractNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pantry.ErrInvalidQuery), errors.Is(err, session.ErrInvalidID), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
