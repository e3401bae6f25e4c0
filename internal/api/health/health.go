// Package health provides health check functionality for the log sources.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	apierrors "github.com/narvanalabs/request-logs/internal/api/errors"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component is operational but with issues.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy Status = "unhealthy"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// Pinger is an interface for components that can be pinged.
type Pinger interface {
	Ping(ctx context.Context) error
}

// component is a registered dependency. A failing critical component makes the
// service unhealthy; any other failure only degrades it.
type component struct {
	name     string
	pinger   Pinger
	critical bool
}

// Checker performs health checks for the registered components.
type Checker struct {
	components []component
	startTime  time.Time
	version    string
	timeout    time.Duration
	mu         sync.RWMutex
}

// NewChecker creates a new health checker.
func NewChecker(version string) *Checker {
	return &Checker{
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// AddCritical registers a component whose failure makes the service unhealthy.
func (c *Checker) AddCritical(name string, p Pinger) *Checker {
	return c.add(component{name: name, pinger: p, critical: true})
}

// AddOptional registers a component whose failure only degrades the service.
func (c *Checker) AddOptional(name string, p Pinger) *Checker {
	return c.add(component{name: name, pinger: p})
}

func (c *Checker) add(comp component) *Checker {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components = append(c.components, comp)
	return c
}

// SetTimeout sets the timeout for health checks.
func (c *Checker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Check pings every component concurrently and returns the aggregated response.
func (c *Checker) Check(ctx context.Context) *Response {
	c.mu.RLock()
	timeout := c.timeout
	components := make([]component, len(c.components))
	copy(components, c.components)
	c.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	statuses := make([]ComponentStatus, len(components))
	var wg sync.WaitGroup
	for i, comp := range components {
		wg.Add(1)
		go func(i int, comp component) {
			defer wg.Done()
			statuses[i] = checkComponent(checkCtx, comp)
		}(i, comp)
	}
	wg.Wait()

	overallStatus := StatusHealthy
	result := make(map[string]ComponentStatus, len(components))
	for i, comp := range components {
		result[comp.name] = statuses[i]
		if statuses[i].Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
		}
		if statuses[i].Status == StatusDegraded && overallStatus == StatusHealthy {
			overallStatus = StatusDegraded
		}
	}

	return &Response{
		Status:     overallStatus,
		Components: result,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
	}
}

func checkComponent(ctx context.Context, comp component) ComponentStatus {
	if comp.pinger == nil {
		return ComponentStatus{
			Status:  StatusDegraded,
			Message: "not configured",
		}
	}

	if err := comp.pinger.Ping(ctx); err != nil {
		status := StatusDegraded
		if comp.critical {
			status = StatusUnhealthy
		}
		return ComponentStatus{
			Status:  status,
			Message: err.Error(),
		}
	}

	return ComponentStatus{
		Status:  StatusHealthy,
		Message: "ok",
	}
}

// Handler returns an HTTP handler for health checks.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Check(r.Context())

		// Degraded still answers 200.
		status := http.StatusOK
		if response.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}

		apierrors.WriteJSON(w, status, response)
	}
}
