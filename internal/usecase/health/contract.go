package health

import "context"

// DBPinger checks chunk store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an upstream model provider (embeddings or chat).
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
