package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
)

// AgentSubstates are the valid substates reported by running agent resources.
var AgentSubstates = []string{
	"initialized",
	"thinking",         // waiting for LLM response
	"executing_tool",   // running a tool
	"waiting_approval", // waiting for user approval
	"waiting_input",    // waiting for user input
	"compacting",       // compacting history
	"streaming",        // streaming response
	"recovered",        // just recovered
}

// DefaultFallbackProviders is the provider fallback order used when no
// config override is supplied. Order is config-driven per the open
// question in the lifecycle design notes; this is the default sequence.
var DefaultFallbackProviders = []string{"openai", "anthropic", "google", "groq", "ollama"}

// AgentHandler supervises LLM-backed agent sessions. It holds no reference
// to the actual agent loop: Start/Stop only manage supervisor-visible
// state, the caller wires the real loop separately and reports progress
// back through Supervisor.RecordHeartbeat / UpdateProgress.
type AgentHandler struct {
	baseHandler
	fallbackProviders []string
}

// NewAgentHandler creates a handler using DefaultFallbackProviders.
func NewAgentHandler() *AgentHandler {
	return NewAgentHandlerWithFallbacks(DefaultFallbackProviders)
}

// NewAgentHandlerWithFallbacks creates a handler with a custom provider order.
func NewAgentHandlerWithFallbacks(providers []string) *AgentHandler {
	return &AgentHandler{
		baseHandler:       baseHandler{substates: AgentSubstates},
		fallbackProviders: providers,
	}
}

func (h *AgentHandler) ResourceType() ResourceType { return ResourceAgent }

func (h *AgentHandler) Start(ctx context.Context, id ResourceID, cfg ResourceConfig) (*ResourceInstance, error) {
	slog.Info("agent handler starting", "resource", id)
	instance := NewResourceInstance(id, cfg)
	slog.Info("agent handler started", "resource", id)
	return instance, nil
}

func (h *AgentHandler) Stop(ctx context.Context, instance *ResourceInstance) error {
	slog.Info("agent handler stopping", "resource", instance.ID)
	slog.Info("agent handler stopped", "resource", instance.ID)
	return nil
}

func (h *AgentHandler) Kill(ctx context.Context, instance *ResourceInstance) error {
	slog.Warn("agent handler killing", "resource", instance.ID)
	slog.Warn("agent handler killed", "resource", instance.ID)
	return nil
}

func (h *AgentHandler) ExtractState(ctx context.Context, instance *ResourceInstance) (*PreservedState, error) {
	slog.Debug("agent handler extracting state", "resource", instance.ID)
	return &PreservedState{
		Kind: PreservedAgent,
		Agent: &AgentPreservedState{
			MessageHistory:       nil,
			CompletedToolResults: map[string]any{},
			SessionMetadata: SessionMetadata{
				ProviderID:   instance.Config.ProviderID,
				ModelID:      instance.Config.ModelID,
				SystemPrompt: instance.Config.SystemPrompt,
			},
			MemoryContext: nil,
		},
	}, nil
}

func (h *AgentHandler) ApplyState(ctx context.Context, instance *ResourceInstance, state *PreservedState) error {
	slog.Debug("agent handler applying state", "resource", instance.ID)
	if state == nil || state.Kind != PreservedAgent || state.Agent == nil {
		return fmt.Errorf("invalid state type for agent")
	}
	slog.Info("agent handler applied state", "resource", instance.ID, "messages", len(state.Agent.MessageHistory))
	return nil
}

func (h *AgentHandler) GetFallbacks(current *ResourceInstance) []FallbackOption {
	var opts []FallbackOption
	for _, provider := range h.fallbackProviders {
		if provider == current.Config.ProviderID {
			continue
		}
		cfg := current.Config
		cfg.ProviderID = provider
		cfg.ModelID = "" // use default for provider
		opts = append(opts, FallbackOption{
			ID:          "fallback_" + provider,
			Label:       "Switch to " + provider,
			Description: "Use " + provider + " as the LLM provider",
			Config:      cfg,
		})
		if len(opts) == 3 {
			break
		}
	}
	return opts
}

func (h *AgentHandler) HealthCheck(ctx context.Context, instance *ResourceInstance) (HealthStatus, error) {
	return HealthHealthy, nil
}

func (h *AgentHandler) Cleanup(ctx context.Context, instance *ResourceInstance) error {
	slog.Debug("agent handler cleaning up", "resource", instance.ID)
	return nil
}
