package health

import "context"

// DBPinger checks availability of the statistics store.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// BackendChecker checks availability of the index backend.
type BackendChecker interface {
	HealthCheck(ctx context.Context) error
}
