package chi

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/domain/access"
	healthuc "github.com/kailas-cloud/searchgate/internal/usecase/health"
	searchuc "github.com/kailas-cloud/searchgate/internal/usecase/search"
)

// SearchService runs searches and session operations.
type SearchService interface {
	Search(ctx context.Context, req searchuc.Request, client access.Client) (searchuc.ViewModel, error)
	Resort(ctx context.Context, sessionID, order string, client access.Client) (searchuc.ViewModel, error)
	Session(ctx context.Context, sessionID string, offset, count int) (searchuc.ViewModel, error)
}

// SessionAdmin exposes cache maintenance.
type SessionAdmin interface {
	Cleanup()
	Len() int
}

// TrackerStats reports the governor's tracker occupancy.
type TrackerStats interface {
	TrackedClients() int
}

// BlockStats reads persisted block counters.
type BlockStats interface {
	Daily(ctx context.Context, t time.Time) (map[access.Reason]int64, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the search HTTP API.
type Server struct {
	search        SearchService
	sessions      SessionAdmin
	trackers      TrackerStats
	blocks        BlockStats
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. blocks can be nil when no
// statistics store is configured.
func NewServer(
	search SearchService,
	sessions SessionAdmin,
	trackers TrackerStats,
	blocks BlockStats,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	return &Server{
		search:        search,
		sessions:      sessions,
		trackers:      trackers,
		blocks:        blocks,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Search handles GET /search, the interactive endpoint. A blocked request
// gets 200 with blockReason set so the page can explain it.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	vm, err := s.search.Search(r.Context(), searchuc.ParseRequest(r.URL.Query()), clientFromRequest(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vm)
}

// APISearch handles GET /api/search. Blocked requests get 429.
func (s *Server) APISearch(w http.ResponseWriter, r *http.Request) {
	vm, err := s.search.Search(r.Context(), searchuc.ParseRequest(r.URL.Query()), clientFromRequest(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeAPIView(w, vm)
}

// ResortSession handles POST /api/sessions/{id}/resort?order=.
func (s *Server) ResortSession(w http.ResponseWriter, r *http.Request) {
	order := r.URL.Query().Get("order")
	if order == "" {
		order = "relevance"
	}
	vm, err := s.search.Resort(r.Context(), chi.URLParam(r, "id"), order, clientFromRequest(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeAPIView(w, vm)
}

// GetSession handles GET /api/sessions/{id}?offset=&count=.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vm, err := s.search.Session(r.Context(), chi.URLParam(r, "id"),
		intQuery(q.Get("offset")), intQuery(q.Get("count")))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vm)
}

// CleanupSessions handles POST /admin/sessions/cleanup.
func (s *Server) CleanupSessions(w http.ResponseWriter, _ *http.Request) {
	before := s.sessions.Len()
	s.sessions.Cleanup()
	writeJSON(w, http.StatusOK, map[string]int{
		"sessions_before": before,
		"sessions_after":  s.sessions.Len(),
	})
}

// AdminStats handles GET /admin/stats.
func (s *Server) AdminStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"sessions":        s.sessions.Len(),
		"tracked_clients": s.trackers.TrackedClients(),
	}
	if s.blocks != nil {
		daily, err := s.blocks.Daily(r.Context(), time.Now())
		if err != nil {
			s.logger.Warn("Failed to read block stats", zap.Error(err))
		} else {
			blocks := make(map[string]int64, len(daily))
			for reason, n := range daily {
				blocks[string(reason)] = n
			}
			resp["blocks_today"] = blocks
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) writeAPIView(w http.ResponseWriter, vm searchuc.ViewModel) {
	if vm.Blocked() {
		if sec := retryAfter(vm.BlockReason()); sec > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(sec))
		}
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"code":                  codeRateLimited,
			"message":               "too many requests",
			searchuc.KeyBlockReason: string(vm.BlockReason()),
			searchuc.KeyBlocked:     true,
		})
		return
	}
	writeJSON(w, http.StatusOK, vm)
}

// retryAfter returns the window length of a rate limit reason in seconds.
func retryAfter(reason access.Reason) int {
	switch reason {
	case access.ReasonThreeSecondLimit:
		return 3
	case access.ReasonOneMinuteLimit:
		return 60
	case access.ReasonTenMinuteLimit:
		return 600
	default:
		return 0
	}
}

// clientFromRequest identifies the caller by network address. TrustedRealIP has
// already replaced RemoteAddr when a trusted proxy forwarded the request.
func clientFromRequest(r *http.Request) access.Client {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	c := access.Client{ID: host, Role: RoleFromContext(r.Context())}
	if addr, err := netip.ParseAddr(host); err == nil {
		c.Addr = addr.Unmap()
		c.ID = c.Addr.String()
	}
	return c
}

// intQuery returns -1 for missing or malformed values so defaults apply.
func intQuery(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
