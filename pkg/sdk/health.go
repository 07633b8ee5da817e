package solace

import (
	"context"
	"time"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "healthy", "degraded", "unhealthy"
	Checks map[string]string // component -> "ok"/"error"
}

// Health checks the database and, when configured, the embedding provider.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	c.obs.observe("health", start, -1, nil)
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}
