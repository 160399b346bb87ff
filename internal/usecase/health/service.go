// Package health aggregates the availability of the service's backends.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing; checks still answer.
	Degraded Status = "degraded"
	// Unhealthy indicates the similarity index is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentIndex      = "index"
	ComponentRepository = "repository"
	ComponentEmbedding  = "embedding"
	ComponentGenerator  = "generator"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index      Pinger
	repository Pinger
	embedding  ProviderChecker
	generator  ProviderChecker
}

// New creates a Service. Everything but index may be nil.
func New(index, repository Pinger, embedding, generator ProviderChecker) *Service {
	return &Service{index: index, repository: repository, embedding: embedding, generator: generator}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 4)

	checks[ComponentIndex] = result(s.index.Ping(ctx))
	if s.repository != nil {
		checks[ComponentRepository] = result(s.repository.Ping(ctx))
	}
	if s.embedding != nil {
		checks[ComponentEmbedding] = result(s.embedding.HealthCheck(ctx))
	}
	if s.generator != nil {
		checks[ComponentGenerator] = result(s.generator.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentIndex] == CheckError {
		status = Unhealthy
	}
	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
