package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/anselm/internal/dataset"
	"github.com/MikeSquared-Agency/anselm/internal/split"
)

// maxBodyBytes caps request bodies on the dataset endpoints.
const maxBodyBytes = 32 << 20

// Config holds the server settings and the defaults applied to requests
// that do not override them.
type Config struct {
	Port     int
	APIToken string
	Pipeline dataset.Options
	Split    split.Options
}

type Server struct {
	router *chi.Mux
	cfg    Config
	events dataset.Publisher
	logger *slog.Logger

	mu   sync.RWMutex
	last *dataset.RunReport
}

// NewServer builds the router. events may be nil.
func NewServer(cfg Config, events dataset.Publisher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		cfg:    cfg,
		events: events,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/anselm/status", s.status)

	router.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(cfg.APIToken))
		r.Use(middleware.AllowContentType("application/json", "application/x-ndjson", "text/plain"))
		r.Post("/api/v1/samples", s.buildSamples)
		r.Post("/api/v1/split", s.splitSamples)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// SetLastReport records the report shown by the status endpoint.
func (s *Server) SetLastReport(r *dataset.RunReport) {
	s.mu.Lock()
	s.last = r
	s.mu.Unlock()
}

// HandleRunEvent updates the status endpoint from a run report published on
// the built subject. Payloads without a run id, such as the API's own build
// events, are ignored.
func (s *Server) HandleRunEvent(subject string, data []byte) {
	var report dataset.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		s.logger.Warn("invalid run event", "subject", subject, "error", err)
		return
	}
	if report.RunID == uuid.Nil {
		return
	}
	s.SetLastReport(&report)
	s.logger.Debug("run event received", "subject", subject, "run_id", report.RunID)
}

// BearerAuthMiddleware rejects requests without the configured bearer token.
// An empty token disables the check.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"agent":    "anselm",
		"status":   "ready",
		"last_run": last,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
