// Package health implements the readiness check behind /health/ready:
// a timed ping of postgres and of the redis snapshot cache.
package health

import (
	"context"
	"time"
)

// DBPinger is the database surface the checker probes.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// CachePinger is the snapshot-cache surface. Enabled distinguishes a
// deliberately disabled cache from an unreachable one.
type CachePinger interface {
	Enabled() bool
	Ping(ctx context.Context) error
}

const probeTimeout = 2 * time.Second

type HealthChecker struct {
	db    DBPinger
	cache CachePinger
}

type HealthStatus struct {
	Status   string          `json:"status"`
	Database ComponentHealth `json:"database"`
	Cache    ComponentHealth `json:"cache"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

func NewHealthChecker(db DBPinger, cache CachePinger) *HealthChecker {
	return &HealthChecker{db: db, cache: cache}
}

// Check probes both components. Only the database gates overall health:
// the snapshot cache degrades to misses when down and the portal keeps
// working, so a dead redis is reported but does not fail readiness.
func (h *HealthChecker) Check() HealthStatus {
	dbHealth := h.probe(h.db.Ping)
	cacheHealth := h.checkCache()

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
		Cache:    cacheHealth,
	}
}

func (h *HealthChecker) checkCache() ComponentHealth {
	if !h.cache.Enabled() {
		return ComponentHealth{Status: "disabled"}
	}
	return h.probe(h.cache.Ping)
}

func (h *HealthChecker) probe(ping func(ctx context.Context) error) ComponentHealth {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{Status: "unhealthy", ResponseTime: elapsed}
	}
	return ComponentHealth{Status: "healthy", ResponseTime: elapsed}
}
