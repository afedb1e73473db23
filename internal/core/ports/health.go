package ports

import "context"

// HealthChecker reports the liveness of a backing dependency.
type HealthChecker interface {
	Name() string
	Ping(ctx context.Context) error
}
