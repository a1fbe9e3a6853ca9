package health

import (
	"context"
	"sort"
	"sync"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates every backing store is down.
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

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	stores    map[string]Pinger
	embedding EmbeddingChecker
}

// New creates a Service over named stores. embedding can be nil.
func New(stores map[string]Pinger, embedding EmbeddingChecker) *Service {
	return &Service{stores: stores, embedding: embedding}
}

// Check pings every store concurrently, plus the embedding provider when configured.
// The embedding provider alone never makes the report Unhealthy.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(s.stores)+1)
	)
	set := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			checks[name] = CheckError
			return
		}
		checks[name] = CheckOK
	}

	for name, p := range s.stores {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set(name, p.Ping(ctx))
		}()
	}
	if s.embedding != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set("embedding", s.embedding.HealthCheck(ctx))
		}()
	}
	wg.Wait()

	return Report{Status: aggregate(checks, s.storeNames()), Checks: checks}
}

func (s *Service) storeNames() []string {
	names := make([]string, 0, len(s.stores))
	for n := range s.stores {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func aggregate(checks map[string]CheckResult, stores []string) Status {
	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}
	if failed == 0 {
		return Healthy
	}
	storesDown := 0
	for _, n := range stores {
		if checks[n] == CheckError {
			storesDown++
		}
	}
	if len(stores) > 0 && storesDown == len(stores) {
		return Unhealthy
	}
	return Degraded
}
