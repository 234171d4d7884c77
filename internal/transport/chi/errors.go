package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/domain"
	"github.com/kailas-cloud/searchgate/internal/session"
)

// Error codes of the JSON error body.
const (
	codeBadRequest             = "bad_request"
	codeNotFound               = "session_not_found"
	codeNotReady               = "session_not_ready"
	codeAuthenticationRequired = "authentication_required"
	codeForbidden              = "forbidden"
	codeRateLimited            = "rate_limited"
	codeUnavailable            = "service_unavailable"
	codeInternal               = "internal_error"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrInvalidParameter, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrSessionNotReady, http.StatusConflict, codeNotReady),
		sentinelHandler(domain.ErrAuthenticationRequired, http.StatusUnauthorized, codeAuthenticationRequired),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, codeUnavailable),
		sentinelHandler(session.ErrClosed, http.StatusServiceUnavailable, codeUnavailable),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidParameter,
		domain.ErrSessionNotFound,
		domain.ErrSessionNotReady,
		domain.ErrAuthenticationRequired,
		domain.ErrBackendUnavailable,
		session.ErrClosed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
