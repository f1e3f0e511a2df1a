package lifecycle

import "context"

// ResourceHandler is the pure-policy-over-state contract every resource
// type must implement. Handlers hold no registry bookkeeping or event
// emission responsibility — that belongs entirely to the Supervisor.
type ResourceHandler interface {
	// ResourceType identifies which resource kind this handler serves.
	ResourceType() ResourceType

	// Start initializes a new resource instance.
	Start(ctx context.Context, id ResourceID, cfg ResourceConfig) (*ResourceInstance, error)

	// Stop terminates a resource gracefully.
	Stop(ctx context.Context, instance *ResourceInstance) error

	// Kill force-terminates an unresponsive resource.
	Kill(ctx context.Context, instance *ResourceInstance) error

	// ExtractState captures a preservable snapshot for transfer recovery.
	ExtractState(ctx context.Context, instance *ResourceInstance) (*PreservedState, error)

	// ApplyState restores a preserved snapshot onto a freshly started instance.
	ApplyState(ctx context.Context, instance *ResourceInstance, state *PreservedState) error

	// GetFallbacks returns ordered alternative configurations for Tier 2 escalation.
	GetFallbacks(instance *ResourceInstance) []FallbackOption

	// HealthCheck performs a handler-specific deep health probe.
	HealthCheck(ctx context.Context, instance *ResourceInstance) (HealthStatus, error)

	// Cleanup releases any resources held after a terminal transition.
	Cleanup(ctx context.Context, instance *ResourceInstance) error

	// ValidSubstates lists the substate names this resource type may report.
	ValidSubstates() []string

	// IsValidSubstate reports whether substate is in ValidSubstates().
	IsValidSubstate(substate string) bool
}

// baseHandler provides the ValidSubstates/IsValidSubstate bookkeeping
// shared by every concrete handler, mirroring the Rust trait's default
// implementation of is_valid_substate in terms of valid_substates.
type baseHandler struct {
	substates []string
}

func (b baseHandler) ValidSubstates() []string { return b.substates }

func (b baseHandler) IsValidSubstate(substate string) bool {
	for _, s := range b.substates {
		if s == substate {
			return true
		}
	}
	return false
}
