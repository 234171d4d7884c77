package searchgate

import "github.com/kailas-cloud/searchgate/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidParameter       = domain.ErrInvalidParameter
	ErrSessionNotFound        = domain.ErrSessionNotFound
	ErrSessionNotReady        = domain.ErrSessionNotReady
	ErrBackendUnavailable     = domain.ErrBackendUnavailable
	ErrInternalInconsistency  = domain.ErrInternalInconsistency
	ErrAuthenticationRequired = domain.ErrAuthenticationRequired
)
