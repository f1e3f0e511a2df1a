package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Router resolves an agent key to the Loop that should handle it and
// dispatches runs to it. A single agent key normally maps to one Loop
// registered at startup; ResolverFunc allows lazy/dynamic resolution for
// agent keys not registered up front (e.g. sub-agents spawned at runtime).
type Router struct {
	mu       sync.RWMutex
	agents   map[string]*agentEntry
	resolver ResolverFunc
}

type agentEntry struct {
	loop *Loop
}

// Agent is the subset of Loop's behavior the router depends on.
type Agent interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

// ResolverFunc builds (or looks up) the Agent for an agent key not already
// registered on the router. Returning an error means the key is unknown.
type ResolverFunc func(agentKey string) (Agent, error)

// NewRouter creates an empty router with no dynamic resolver. Call Register
// to add statically configured agents.
func NewRouter() *Router {
	return &Router{agents: make(map[string]*agentEntry)}
}

// SetResolver installs a fallback resolver consulted when an agent key has
// no statically registered Loop.
func (r *Router) SetResolver(fn ResolverFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolver = fn
}

// Register associates agentKey with a concrete Loop, overwriting any
// previous registration for the same key.
func (r *Router) Register(agentKey string, loop *Loop) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agentKey] = &agentEntry{loop: loop}
}

// Get returns the Loop registered for agentKey, if any.
func (r *Router) Get(agentKey string) (*Loop, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.agents[agentKey]
	if !ok {
		return nil, false
	}
	return e.loop, true
}

// Resolve returns the Agent for agentKey, checking the static registry
// first and falling back to the installed resolver.
func (r *Router) Resolve(agentKey string) (Agent, error) {
	if loop, ok := r.Get(agentKey); ok {
		return loop, nil
	}

	r.mu.RLock()
	resolver := r.resolver
	r.mu.RUnlock()
	if resolver == nil {
		return nil, fmt.Errorf("unknown agent: %s", agentKey)
	}
	return resolver(agentKey)
}

// Run resolves agentKey and executes req against it.
func (r *Router) Run(ctx context.Context, agentKey string, req RunRequest) (*RunResult, error) {
	ag, err := r.Resolve(agentKey)
	if err != nil {
		return nil, err
	}
	return ag.Run(ctx, req)
}

// InvalidateAgent removes an agent from the router cache, forcing re-resolution.
func (r *Router) InvalidateAgent(agentKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, agentKey)
	slog.Debug("invalidated agent cache", "agent", agentKey)
}

// InvalidateAll clears the entire agent cache, forcing all agents to re-resolve.
func (r *Router) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[string]*agentEntry)
	slog.Debug("invalidated all agent caches")
}

// Keys returns the agent keys currently registered.
func (r *Router) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.agents))
	for k := range r.agents {
		keys = append(keys, k)
	}
	return keys
}
