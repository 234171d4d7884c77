package chi

import (
	"context"
	"net/http"
	"strings"

	"github.com/kailas-cloud/searchgate/internal/domain/access"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

type roleKey struct{}

// RoleFromContext returns the caller's role, Anonymous when none was set.
func RoleFromContext(ctx context.Context) access.Role {
	if r, ok := ctx.Value(roleKey{}).(access.Role); ok {
		return r
	}
	return access.Anonymous
}

// ContextWithRole stores the caller's role in the context.
func ContextWithRole(ctx context.Context, role access.Role) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleMiddleware resolves the caller's role from a Bearer token. Requests
// without an Authorization header are anonymous; a header that names no
// configured key is rejected with 401.
func RoleMiddleware(adminKeys, extendedKeys []string) func(http.Handler) http.Handler {
	roles := make(map[string]access.Role, len(adminKeys)+len(extendedKeys))
	for _, k := range extendedKeys {
		if k != "" {
			roles[k] = access.Extended
		}
	}
	// admin wins when a key is listed twice
	for _, k := range adminKeys {
		if k != "" {
			roles[k] = access.Admin
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				next.ServeHTTP(w, r.WithContext(ContextWithRole(r.Context(), access.Anonymous)))
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					codeAuthenticationRequired, "authorization header must use Bearer scheme")
				return
			}

			role, ok := roles[auth[len(bearerPrefix):]]
			if !ok {
				writeError(w, http.StatusUnauthorized, codeAuthenticationRequired, "invalid api key")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithRole(r.Context(), role)))
		})
	}
}

// RequireRole rejects callers below minRole: anonymous callers get 401,
// authenticated ones 403.
func RequireRole(minRole access.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			switch {
			case role.AtLeast(minRole):
				next.ServeHTTP(w, r)
			case role == access.Anonymous:
				writeError(w, http.StatusUnauthorized, codeAuthenticationRequired, "authentication required")
			default:
				writeError(w, http.StatusForbidden, codeForbidden, "insufficient role")
			}
		})
	}
}
