package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/sentinel/internal/escalation"
	"github.com/MikeSquared-Agency/sentinel/internal/flow"
	"github.com/MikeSquared-Agency/sentinel/internal/processor"
	"github.com/MikeSquared-Agency/sentinel/internal/session"
)

// Archive is the durable record of turns and escalations.
type Archive interface {
	ListTurns(ctx context.Context, sessionID string, limit int) ([]flow.Turn, error)
	DeleteSession(ctx context.Context, sessionID string) error
	GetEscalation(ctx context.Context, ticketID string) (*escalation.Ticket, error)
}

// Quota reports the generator's remaining daily requests.
type Quota interface {
	Remaining() int
}

// Options configures a Server. Archive and Quota are optional.
type Options struct {
	Port        int
	APIToken    string
	TurnTimeout time.Duration
	Sessions    session.Store
	Processor   *processor.Processor
	Archive     Archive
	Quota       Quota
	Logger      *zap.Logger
}

type Server struct {
	router  *chi.Mux
	http    *http.Server
	opts    Options
	locks   *sessionLocks
	logger  *zap.Logger
	now     func() time.Time
	started time.Time
}

func NewServer(opts Options) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(opts.Logger))
	router.Use(middleware.Recoverer)

	s := &Server{
		router:  router,
		opts:    opts,
		locks:   newSessionLocks(),
		logger:  opts.Logger,
		now:     time.Now,
		started: time.Now(),
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	router.Get("/health", s.health)
	router.Handle("/metrics", promhttp.Handler())
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/sentinel/status", s.status)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuthMiddleware(opts.APIToken))
			r.Post("/sessions", s.createSession)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.deleteSession)
				r.Post("/messages", s.postMessage)
				r.Delete("/messages", s.clearSession)
				r.Get("/turns", s.listArchivedTurns)
			})
			r.Get("/escalations/{ticketID}", s.getEscalation)
		})
	})

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server starting", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"agent":          "sentinel",
		"status":         "ready",
		"uptime_seconds": int(s.now().Sub(s.started).Seconds()),
		"archive":        s.opts.Archive != nil,
	}
	if s.opts.Quota != nil {
		body["llm_quota_remaining"] = s.opts.Quota.Remaining()
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
