// Package lifecycle implements the supervisor that tracks every long-lived
// resource in the gateway (agents, channels, tools, scheduler jobs) and
// drives their recovery through a tiered escalation ladder.
package lifecycle

import (
	"fmt"
	"time"
)

// ResourceType is the closed set of resource kinds the supervisor manages.
type ResourceType int

const (
	ResourceAgent ResourceType = iota
	ResourceChannel
	ResourceTool
	ResourceSchedulerJob
	ResourceGatewayHandler
)

func (t ResourceType) String() string {
	switch t {
	case ResourceAgent:
		return "agent"
	case ResourceChannel:
		return "channel"
	case ResourceTool:
		return "tool"
	case ResourceSchedulerJob:
		return "scheduler_job"
	case ResourceGatewayHandler:
		return "gateway_handler"
	default:
		return "unknown"
	}
}

// ResourceID uniquely identifies one resource instance.
type ResourceID struct {
	Type       ResourceType
	InstanceID string
}

func (id ResourceID) String() string {
	return fmt.Sprintf("%s:%s", id.Type, id.InstanceID)
}

// LifecycleState is the closed DAG of states every resource moves through:
//
//	Initialized → Running → {Stuck → Recovering → (Running|Transferring→Recovered→Running|Failed)} → Completed|Failed
//
// Terminal states (Completed, Failed) never transition out.
type LifecycleState int

const (
	StateInitialized LifecycleState = iota
	StateRunning
	StateStuck
	StateRecovering
	StateTransferring
	StateRecovered
	StateFailed
	StateCompleted
)

func (s LifecycleState) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateStuck:
		return "stuck"
	case StateRecovering:
		return "recovering"
	case StateTransferring:
		return "transferring"
	case StateRecovered:
		return "recovered"
	case StateFailed:
		return "failed"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether a resource in this state may never transition out.
func (s LifecycleState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// validTransitions encodes the DAG from the data model: keys are the
// "from" state, values are states direct transitions may reach.
var validTransitions = map[LifecycleState][]LifecycleState{
	StateInitialized:  {StateRunning},
	StateRunning:      {StateStuck, StateCompleted, StateFailed},
	StateStuck:        {StateRecovering},
	StateRecovering:   {StateRunning, StateTransferring, StateFailed},
	StateTransferring: {StateRecovered},
	StateRecovered:    {StateRunning},
	StateCompleted:    {},
	StateFailed:       {},
}

// CanTransition reports whether moving from one state to another is legal
// under the DAG. Terminal states admit no outgoing transition.
func CanTransition(from, to LifecycleState) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ErrorCategory classifies a failure as transient, recoverable,
// user-requiring or terminal. It is recorded on FailureContext; the
// supervisor's tier ladder does not branch on it.
type ErrorCategory int

const (
	ErrorTransient ErrorCategory = iota
	ErrorRecoverable
	ErrorUserRequiring
	ErrorTerminal
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrorTransient:
		return "transient"
	case ErrorRecoverable:
		return "recoverable"
	case ErrorUserRequiring:
		return "user_requiring"
	case ErrorTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// FailureContext records the most recent failure observed for a resource.
type FailureContext struct {
	Error      string        `json:"error"`
	Category   ErrorCategory `json:"category"`
	OccurredAt time.Time     `json:"occurred_at"`
	Tier       int           `json:"tier"`
}

// ResourceConfig is the owning configuration record for a resource. Only
// the fields relevant to the resource's type are populated.
type ResourceConfig struct {
	ProviderID    string         `json:"provider_id,omitempty"`
	ModelID       string         `json:"model_id,omitempty"`
	SystemPrompt  string         `json:"system_prompt,omitempty"`
	ChannelType   string         `json:"channel_type,omitempty"`
	ChannelConfig map[string]any `json:"channel_config,omitempty"`
	ToolName      string         `json:"tool_name,omitempty"`
	ToolArgs      map[string]any `json:"tool_args,omitempty"`
	JobConfig     map[string]any `json:"job_config,omitempty"`
}

// ResourceInstance is the supervisor's complete record of one live resource.
type ResourceInstance struct {
	ID             ResourceID      `json:"id"`
	State          LifecycleState  `json:"state"`
	Substate       string          `json:"substate"`
	Config         ResourceConfig  `json:"config"`
	LastHeartbeat  time.Time       `json:"last_heartbeat"`
	RetryCount     int             `json:"retry_count"`
	Tier           int             `json:"tier"`
	FailureContext *FailureContext `json:"failure_context,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewResourceInstance creates an instance in the Initialized state.
func NewResourceInstance(id ResourceID, cfg ResourceConfig) *ResourceInstance {
	now := time.Now()
	return &ResourceInstance{
		ID:            id,
		State:         StateInitialized,
		Config:        cfg,
		LastHeartbeat: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// HealthStatus is the result of a handler's deep health check.
type HealthStatus int

const (
	HealthHealthy HealthStatus = iota
	HealthDegraded
	HealthUnhealthy
)

func (h HealthStatus) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// FallbackOption is one alternative configuration offered by a handler
// during Tier 2 escalation.
type FallbackOption struct {
	ID          string
	Label       string
	Description string
	Config      ResourceConfig
}

// PreservedStateKind tags which PreservedState variant is populated.
type PreservedStateKind int

const (
	PreservedAgent PreservedStateKind = iota
	PreservedChannel
	PreservedTool
	PreservedJob
)

// PreservedState is a resource-type-tagged snapshot captured during
// transfer recovery. Only the field matching Kind is populated.
type PreservedState struct {
	Kind PreservedStateKind

	Agent   *AgentPreservedState
	Channel *ChannelPreservedState
	Tool    *ToolPreservedState
	Job     *JobPreservedState
}

// AgentPreservedState is the snapshot extracted from a running agent.
type AgentPreservedState struct {
	MessageHistory       []map[string]any `json:"message_history"`
	CompletedToolResults map[string]any   `json:"completed_tool_results"`
	SessionMetadata      SessionMetadata  `json:"session_metadata"`
	MemoryContext        []string         `json:"memory_context"`
	CurrentStep          *string          `json:"current_step,omitempty"`
}

// SessionMetadata carries the agent's provider/model configuration across a transfer.
type SessionMetadata struct {
	ProviderID   string   `json:"provider_id"`
	ModelID      string   `json:"model_id"`
	SystemPrompt string   `json:"system_prompt"`
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`
}

// ChannelPreservedState is the snapshot extracted from a running channel adapter.
type ChannelPreservedState struct {
	OutboundQueue []map[string]any `json:"outbound_queue"`
	Config        map[string]any   `json:"config"`
	LastSequence  uint64           `json:"last_sequence"`
	PendingAcks   []string         `json:"pending_acks"`
}

// ToolPreservedState is the snapshot extracted from an in-flight tool call.
type ToolPreservedState struct {
	ToolName      string         `json:"tool_name"`
	Arguments     map[string]any `json:"arguments"`
	PartialResult string         `json:"partial_result"`
	AttemptNumber int            `json:"attempt_number"`
}

// JobPreservedState is the snapshot extracted from an in-flight scheduler job.
type JobPreservedState struct {
	JobID             string         `json:"job_id"`
	JobConfig         map[string]any `json:"job_config"`
	ExecutionContext  map[string]any `json:"execution_context,omitempty"`
	PartialResults    []string       `json:"partial_results"`
}

// UserInterventionRequest is published on Tier 3 escalation.
type UserInterventionRequest struct {
	RequestID string           `json:"request_id"`
	Resource  ResourceID       `json:"resource_id"`
	Reason    string           `json:"reason"`
	Options   []FallbackOption `json:"options"`
}

// InterventionResolution is the answer to a UserInterventionRequest.
type InterventionResolution struct {
	RequestID      string `json:"request_id"`
	SelectedOption string `json:"selected_option"`
}
