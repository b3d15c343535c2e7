package llm

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Route resolves a logical task type to a concrete provider, model,
// generation parameters and call policy.
type Route struct {
	Provider          string
	Model             string
	Temperature       float32
	MaxOutputTokens   int
	RateLimitInterval time.Duration
	MaxRetries        int
	RetryBaseDelay    time.Duration
	CallTimeout       time.Duration
}

// Params returns the generation parameters portion of the route.
func (r Route) Params() GenerationParams {
	return GenerationParams{
		Model:           r.Model,
		Temperature:     r.Temperature,
		MaxOutputTokens: r.MaxOutputTokens,
	}
}

// routeTable is an immutable snapshot of all routes. It is never mutated
// after construction; reloads install a whole new table.
type routeTable struct {
	routes map[string]Route
}

// Registry maps task types to routes. Lookups are lock-free; reloads swap
// the entire table atomically so in-flight calls keep the snapshot they
// started with.
type Registry struct {
	table atomic.Pointer[routeTable]
}

// NewRegistry creates a registry from an initial route set.
func NewRegistry(routes map[string]Route) *Registry {
	reg := &Registry{}
	reg.Swap(routes)
	return reg
}

// Resolve returns the route for a task type.
func (r *Registry) Resolve(taskType string) (Route, error) {
	table := r.table.Load()

	route, ok := table.routes[taskType]
	if !ok {
		return Route{}, fmt.Errorf("%w: %q", ErrUnknownTaskType, taskType)
	}

	return route, nil
}

// Swap atomically replaces the whole route table.
func (r *Registry) Swap(routes map[string]Route) {
	copied := make(map[string]Route, len(routes))
	for k, v := range routes {
		copied[k] = v
	}

	r.table.Store(&routeTable{routes: copied})
}

// ProviderInterval returns the strictest (largest) configured minimum
// call interval among all routes targeting the given provider. Used to
// seed the shared per-provider limiter.
func (r *Registry) ProviderInterval(provider string) time.Duration {
	table := r.table.Load()

	var interval time.Duration
	for _, route := range table.routes {
		if route.Provider == provider && route.RateLimitInterval > interval {
			interval = route.RateLimitInterval
		}
	}

	return interval
}
