package chi

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/domain/access"
	"github.com/kailas-cloud/searchgate/internal/metrics"
)

// RouterConfig holds the API keys of the privileged roles and the proxies
// allowed to name the client address.
type RouterConfig struct {
	AdminKeys      []string
	ExtendedKeys   []string
	TrustedProxies []netip.Prefix
}

// NewRouter mounts the server's handlers with the standard middleware stack.
func NewRouter(s *Server, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(TrustedRealIP(cfg.TrustedProxies))
	r.Use(WideEvent(logger))
	r.Use(RoleMiddleware(cfg.AdminKeys, cfg.ExtendedKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/search", s.Search)

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.APISearch)
		r.Get("/sessions/{id}", s.GetSession)
		r.Post("/sessions/{id}/resort", s.ResortSession)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireRole(access.Admin))
		r.Post("/sessions/cleanup", s.CleanupSessions)
		r.Get("/stats", s.AdminStats)
	})
	return r
}
