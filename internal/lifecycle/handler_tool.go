package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
)

// ToolSubstates are the valid substates reported by tool-execution resources.
var ToolSubstates = []string{
	"initialized",
	"validating",
	"executing",
	"waiting_result",
	"cleanup",
	"completed",
	"failed",
}

// ToolHandler supervises individual tool invocations. Tool calls have no
// fallback alternatives — a failed tool call either retries in place or
// escalates directly to user intervention.
type ToolHandler struct {
	baseHandler
	maxRetries int
}

func NewToolHandler() *ToolHandler {
	return &ToolHandler{baseHandler: baseHandler{substates: ToolSubstates}, maxRetries: 3}
}

func (h *ToolHandler) ResourceType() ResourceType { return ResourceTool }

func (h *ToolHandler) Start(ctx context.Context, id ResourceID, cfg ResourceConfig) (*ResourceInstance, error) {
	slog.Debug("tool handler starting", "resource", id)
	return NewResourceInstance(id, cfg), nil
}

func (h *ToolHandler) Stop(ctx context.Context, instance *ResourceInstance) error {
	slog.Debug("tool handler stopping", "resource", instance.ID)
	return nil
}

func (h *ToolHandler) Kill(ctx context.Context, instance *ResourceInstance) error {
	slog.Warn("tool handler killing", "resource", instance.ID)
	return nil
}

func (h *ToolHandler) ExtractState(ctx context.Context, instance *ResourceInstance) (*PreservedState, error) {
	return &PreservedState{
		Kind: PreservedTool,
		Tool: &ToolPreservedState{
			ToolName:  instance.Config.ToolName,
			Arguments: instance.Config.ToolArgs,
		},
	}, nil
}

func (h *ToolHandler) ApplyState(ctx context.Context, instance *ResourceInstance, state *PreservedState) error {
	if state == nil || state.Kind != PreservedTool || state.Tool == nil {
		return fmt.Errorf("invalid state type for tool")
	}
	instance.Config.ToolName = state.Tool.ToolName
	instance.Config.ToolArgs = state.Tool.Arguments
	return nil
}

// GetFallbacks always returns empty: tool calls have no alternate targets.
func (h *ToolHandler) GetFallbacks(current *ResourceInstance) []FallbackOption {
	return nil
}

func (h *ToolHandler) HealthCheck(ctx context.Context, instance *ResourceInstance) (HealthStatus, error) {
	return HealthHealthy, nil
}

func (h *ToolHandler) Cleanup(ctx context.Context, instance *ResourceInstance) error {
	slog.Debug("tool handler cleaning up", "resource", instance.ID)
	return nil
}
