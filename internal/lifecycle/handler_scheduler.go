package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
)

// SchedulerJobSubstates are the valid substates reported by scheduler job resources.
var SchedulerJobSubstates = []string{
	"scheduled",
	"triggered",
	"running",
	"waiting_agent",
	"finishing",
	"completed",
	"failed",
	"paused",
}

// SchedulerJobHandler supervises scheduled background job executions.
type SchedulerJobHandler struct {
	baseHandler
	maxRetries int
}

func NewSchedulerJobHandler() *SchedulerJobHandler {
	return &SchedulerJobHandler{baseHandler: baseHandler{substates: SchedulerJobSubstates}, maxRetries: 2}
}

func (h *SchedulerJobHandler) ResourceType() ResourceType { return ResourceSchedulerJob }

func (h *SchedulerJobHandler) Start(ctx context.Context, id ResourceID, cfg ResourceConfig) (*ResourceInstance, error) {
	slog.Info("scheduler job handler starting", "resource", id)
	instance := NewResourceInstance(id, cfg)
	slog.Info("scheduler job handler started", "resource", id)
	return instance, nil
}

func (h *SchedulerJobHandler) Stop(ctx context.Context, instance *ResourceInstance) error {
	slog.Info("scheduler job handler stopping", "resource", instance.ID)
	return nil
}

func (h *SchedulerJobHandler) Kill(ctx context.Context, instance *ResourceInstance) error {
	slog.Warn("scheduler job handler killing", "resource", instance.ID)
	return nil
}

func (h *SchedulerJobHandler) ExtractState(ctx context.Context, instance *ResourceInstance) (*PreservedState, error) {
	return &PreservedState{
		Kind: PreservedJob,
		Job: &JobPreservedState{
			JobID:     instance.ID.InstanceID,
			JobConfig: instance.Config.JobConfig,
		},
	}, nil
}

func (h *SchedulerJobHandler) ApplyState(ctx context.Context, instance *ResourceInstance, state *PreservedState) error {
	if state == nil || state.Kind != PreservedJob || state.Job == nil {
		return fmt.Errorf("invalid state type for scheduler job")
	}
	instance.Config.JobConfig = state.Job.JobConfig
	return nil
}

// GetFallbacks always returns the single "rerun" option: a failed job can
// only be retried, it has no alternate target to fail over to.
func (h *SchedulerJobHandler) GetFallbacks(current *ResourceInstance) []FallbackOption {
	return []FallbackOption{{
		ID:          "rerun",
		Label:       "Rerun job",
		Description: "Execute the job again",
	}}
}

func (h *SchedulerJobHandler) HealthCheck(ctx context.Context, instance *ResourceInstance) (HealthStatus, error) {
	return HealthHealthy, nil
}

func (h *SchedulerJobHandler) Cleanup(ctx context.Context, instance *ResourceInstance) error {
	slog.Debug("scheduler job handler cleaning up", "resource", instance.ID)
	return nil
}
