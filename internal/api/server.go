package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/openadmod/console/internal/config"
	"github.com/openadmod/console/internal/listview"
	"github.com/openadmod/console/internal/middleware"
	"github.com/openadmod/console/internal/moderation"
	"github.com/openadmod/console/internal/observability"
	"github.com/openadmod/console/internal/prefs"
	"github.com/openadmod/console/internal/review"
	"github.com/openadmod/console/internal/stats"
)

// sessionIdleTTL is how long an untouched review session stays in the
// registry before it is evicted.
const sessionIdleTTL = 30 * time.Minute

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger  *zap.Logger
	Client  *moderation.Client
	Fetcher *listview.Fetcher
	Stats   *stats.Service
	Prefs   *prefs.Store
	Metrics observability.MetricsRegistry
	Config  config.Config

	sessionsMu sync.Mutex
	sessions   map[int]*sessionEntry
	sessionTTL time.Duration
}

type sessionEntry struct {
	sess     *review.Session
	lastUsed time.Time
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, client *moderation.Client, fetcher *listview.Fetcher, statsSvc *stats.Service, prefStore *prefs.Store, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	return &Server{
		Logger:     logger,
		Client:     client,
		Fetcher:    fetcher,
		Stats:      statsSvc,
		Prefs:      prefStore,
		Metrics:    metrics,
		Config:     cfg,
		sessions:   make(map[int]*sessionEntry),
		sessionTTL: sessionIdleTTL,
	}
}

// session returns the review session for an advertisement, creating it on
// first use. One session per ad keeps the action-in-flight flag shared
// across concurrent requests for the same listing. Entries idle longer than
// the session TTL are swept on each lookup, so the registry stays bounded by
// the working set instead of the process lifetime.
func (s *Server) session(id int) *review.Session {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	now := time.Now()
	for key, e := range s.sessions {
		if key != id && now.Sub(e.lastUsed) > s.sessionTTL {
			delete(s.sessions, key)
		}
	}

	e, ok := s.sessions[id]
	if !ok {
		e = &sessionEntry{sess: review.NewSession(id, s.Client, s.Logger, s.Metrics)}
		s.sessions[id] = e
	}
	e.lastUsed = now
	return e.sess
}

// requestLogger returns the trace-scoped logger for a request, tagged with
// the request id assigned by the middleware.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	logger := middleware.LoggerFromRequest(r, s.Logger)
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		logger = logger.With(zap.String("request_id", id))
	}
	return logger
}

// helper function to write JSON response
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// WithRequestMetrics returns middleware recording request counts and
// latencies per route template.
func WithRequestMetrics(metrics observability.MetricsRegistry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			endpoint := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					endpoint = tpl
				}
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			metrics.RecordRequestLatency(endpoint, r.Method, time.Since(start))
			metrics.IncrementRequests(endpoint, r.Method, strconv.Itoa(rec.status))
		})
	}
}
