package health

import (
	"context"
	"sort"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all sources are reachable.
	Healthy Status = "ok"
	// Degraded indicates at least one source failed its check.
	Degraded Status = "degraded"
)

// CheckResult represents an individual source check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing check.
	CheckError CheckResult = "error"
)

// Report aggregates check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

type named struct {
	name string
	p    Pinger
}

// Service coordinates health checks over registered sources.
type Service struct {
	checks []named
}

// New creates a Service with no registered sources. Such a service always reports Healthy.
func New() *Service {
	return &Service{}
}

// Register adds a named source. Re-registering a name replaces the previous pinger.
func (s *Service) Register(name string, p Pinger) *Service {
	for i := range s.checks {
		if s.checks[i].name == name {
			s.checks[i].p = p
			return s
		}
	}
	s.checks = append(s.checks, named{name: name, p: p})
	return s
}

// Names returns registered source names in sorted order.
func (s *Service) Names() []string {
	out := make([]string, 0, len(s.checks))
	for _, c := range s.checks {
		out = append(out, c.name)
	}
	sort.Strings(out)
	return out
}

// Check runs every registered check.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checks))
	status := Healthy

	for _, c := range s.checks {
		if err := c.p.Ping(ctx); err != nil {
			checks[c.name] = CheckError
			status = Degraded
			continue
		}
		checks[c.name] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}
