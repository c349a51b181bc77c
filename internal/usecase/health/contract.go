package health

import "context"

// DBPinger checks store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// GatewayChecker checks an upstream AI gateway's availability.
type GatewayChecker interface {
	HealthCheck(ctx context.Context) error
}
