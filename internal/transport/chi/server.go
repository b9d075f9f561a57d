package chi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/overlaps/internal/logger"
	healthuc "github.com/kailas-cloud/overlaps/internal/usecase/health"
	"github.com/kailas-cloud/overlaps/internal/version"
)

// Phase of the load the driver is running.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseDone    Phase = "done"
	PhaseFailed  Phase = "failed"
)

// LoadStatus is the body of GET /status.
type LoadStatus struct {
	Phase    Phase     `json:"phase"`
	Archives int       `json:"archives"`
	Records  int       `json:"records"`
	Seed     *uint64   `json:"seed,omitempty"`
	Error    string    `json:"error,omitempty"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished,omitzero"`
}

// Progress tracks the state reported by GET /status. Safe for concurrent use.
type Progress struct {
	mu sync.RWMutex
	st LoadStatus
}

// NewProgress creates a Progress in the loading phase.
func NewProgress(archives int, seed *uint64) *Progress {
	return &Progress{st: LoadStatus{
		Phase:    PhaseLoading,
		Archives: archives,
		Seed:     seed,
		Started:  time.Now().UTC(),
	}}
}

// Done marks the load finished with n records.
func (p *Progress) Done(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.Phase = PhaseDone
	p.st.Records = n
	p.st.Finished = time.Now().UTC()
}

// Fail marks the load failed.
func (p *Progress) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.Phase = PhaseFailed
	p.st.Error = err.Error()
	p.st.Finished = time.Now().UTC()
}

// Snapshot returns a copy of the current state.
func (p *Progress) Snapshot() LoadStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.st
}

// HTTPMetrics instruments requests.
type HTTPMetrics interface {
	Middleware() func(next http.Handler) http.Handler
}

// Server serves the driver's status endpoints.
type Server struct {
	health   *healthuc.Service
	gatherer prometheus.Gatherer
	progress *Progress
	logger   *zap.Logger
}

// NewServer creates a status server. progress may be nil.
func NewServer(health *healthuc.Service, gatherer prometheus.Gatherer, progress *Progress, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{health: health, gatherer: gatherer, progress: progress, logger: logger}
}

// Router builds the chi router with the standard middleware chain.
// m may be nil.
func (s *Server) Router(apiKeys []string, m HTTPMetrics) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	if m != nil {
		r.Use(m.Middleware())
	}

	r.Get("/healthz", s.HealthCheck)
	r.Get("/status", s.Status)
	r.Get("/version", s.Version)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	return r
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
		logpkg.FromContext(r.Context()).Warn("Health check degraded", zap.Any("checks", report.Checks))
	}
	writeJSON(w, httpStatus, report)
}

// Status handles GET /status.
func (s *Server) Status(w http.ResponseWriter, _ *http.Request) {
	if s.progress == nil {
		writeError(w, http.StatusNotFound, "not_found", "no load in progress")
		return
	}
	writeJSON(w, http.StatusOK, s.progress.Snapshot())
}

// Version handles GET /version.
func (s *Server) Version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": version.Version,
		"commit":  version.Commit,
		"date":    version.Date,
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
