package health

import "context"

// Status is the aggregated health of the service.
type Status string

const (
	// Healthy means every component check passed.
	Healthy Status = "ok"
	// Degraded means at least one component check failed.
	Degraded Status = "degraded"
)

// CheckResult is a single component's outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Report aggregates component check outcomes.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service runs component health checks.
type Service struct {
	db      DBPinger
	gateway GatewayChecker
}

// New creates a health service. gateway may be nil when no embedding
// provider is configured.
func New(db DBPinger, gateway GatewayChecker) *Service {
	return &Service{db: db, gateway: gateway}
}

// Check probes the store and the embedding gateway.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["database"] = resultOf(s.db.Ping(ctx))
	if s.gateway != nil {
		checks["embedding"] = resultOf(s.gateway.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func resultOf(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
