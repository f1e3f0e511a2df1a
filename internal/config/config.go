// Package config loads and resolves the mesoclaw gateway's configuration.
package config

import (
	"sync"
)

// DefaultAgentID is the identifier used for the always-present default agent.
const DefaultAgentID = "default"

// Config is the root configuration for the mesoclaw gateway, loaded from
// config.toml and overlaid with environment variables.
type Config struct {
	Agents    AgentsConfig    `toml:"agents"`
	Channels  ChannelsConfig  `toml:"channels"`
	Providers ProvidersConfig `toml:"providers"`
	Gateway   GatewayConfig   `toml:"gateway"`
	Tools     ToolsConfig     `toml:"tools"`
	Sessions  SessionsConfig  `toml:"sessions"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Memory    MemoryConfig    `toml:"memory"`
	Security  SecurityConfig  `toml:"security"`
	Lifecycle LifecycleConfig `toml:"lifecycle"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Database  DatabaseConfig  `toml:"database"`
	Bindings  []AgentBinding  `toml:"bindings"`
	mu        sync.RWMutex
}

// DatabaseConfig configures the optional Postgres session-store profile.
// PostgresDSN is never read from config.toml — env only, since it routinely
// carries embedded credentials.
type DatabaseConfig struct {
	Driver      string `toml:"driver"` // "sqlite" (default) or "postgres"
	PostgresDSN string `toml:"-"`
}

// AgentBinding maps a channel/peer pattern to a specific agent.
type AgentBinding struct {
	AgentID string       `toml:"agent_id"`
	Match   BindingMatch `toml:"match"`
}

// BindingMatch specifies what messages this binding applies to.
type BindingMatch struct {
	Channel   string       `toml:"channel"`
	AccountID string       `toml:"account_id"`
	Peer      *BindingPeer `toml:"peer"`
	GuildID   string       `toml:"guild_id"`
}

// BindingPeer specifies a specific chat target.
type BindingPeer struct {
	Kind string `toml:"kind"` // "direct" or "group"
	ID   string `toml:"id"`
}

// AgentsConfig contains agent defaults and per-agent overrides.
type AgentsConfig struct {
	Defaults AgentDefaults        `toml:"defaults"`
	List     map[string]AgentSpec `toml:"list"`
}

// AgentDefaults are default settings for all agents.
type AgentDefaults struct {
	Workspace           string  `toml:"workspace"`
	RestrictToWorkspace bool    `toml:"restrict_to_workspace"`
	Provider            string  `toml:"provider"`
	Model               string  `toml:"model"`
	MaxTokens           int     `toml:"max_tokens"`
	Temperature         float64 `toml:"temperature"`
	MaxToolIterations   int     `toml:"max_tool_iterations"`
	ContextWindow       int     `toml:"context_window"`
	AgentType           string  `toml:"agent_type"` // "open" (default) or "predefined"

	Subagents      *SubagentsConfig      `toml:"subagents"`
	Compaction     *CompactionConfig     `toml:"compaction"`
	ContextPruning *ContextPruningConfig `toml:"context_pruning"`
	Heartbeat      *HeartbeatConfig      `toml:"heartbeat"`

	BootstrapMaxChars      int `toml:"bootstrap_max_chars"`
	BootstrapTotalMaxChars int `toml:"bootstrap_total_max_chars"`
}

// CompactionConfig configures session compaction behaviour.
type CompactionConfig struct {
	ReserveTokensFloor int                `toml:"reserve_tokens_floor"`
	MaxHistoryShare    float64            `toml:"max_history_share"`
	MinMessages        int                `toml:"min_messages"`
	KeepLastMessages   int                `toml:"keep_last_messages"`
	MemoryFlush        *MemoryFlushConfig `toml:"memory_flush"`
}

// MemoryFlushConfig configures the pre-compaction memory flush.
type MemoryFlushConfig struct {
	Enabled             *bool  `toml:"enabled"`
	SoftThresholdTokens int    `toml:"soft_threshold_tokens"`
	Prompt              string `toml:"prompt"`
	SystemPrompt        string `toml:"system_prompt"`
}

// ContextPruningConfig configures in-memory context pruning of old tool results.
type ContextPruningConfig struct {
	Mode                 string                   `toml:"mode"` // "off" (default), "cache-ttl"
	KeepLastAssistants   int                      `toml:"keep_last_assistants"`
	SoftTrimRatio        float64                  `toml:"soft_trim_ratio"`
	HardClearRatio       float64                  `toml:"hard_clear_ratio"`
	MinPrunableToolChars int                      `toml:"min_prunable_tool_chars"`
	SoftTrim             *ContextPruningSoftTrim  `toml:"soft_trim"`
	HardClear            *ContextPruningHardClear `toml:"hard_clear"`
}

// ContextPruningSoftTrim configures how long tool results are trimmed.
type ContextPruningSoftTrim struct {
	MaxChars  int `toml:"max_chars"`
	HeadChars int `toml:"head_chars"`
	TailChars int `toml:"tail_chars"`
}

// ContextPruningHardClear configures replacement of old tool results.
type ContextPruningHardClear struct {
	Enabled     *bool  `toml:"enabled"`
	Placeholder string `toml:"placeholder"`
}

// HeartbeatConfig configures periodic agent heartbeats (scheduler-driven).
type HeartbeatConfig struct {
	Every       string             `toml:"every"` // duration string: "30m", "1h", "0m"=disabled
	ActiveHours *ActiveHoursConfig `toml:"active_hours"`
	Model       string             `toml:"model"`
	Session     string             `toml:"session"`
	Target      string             `toml:"target"`
	To          string             `toml:"to"`
	Prompt      string             `toml:"prompt"`
	AckMaxChars int                `toml:"ack_max_chars"`
}

// ActiveHoursConfig restricts heartbeats to a time window.
type ActiveHoursConfig struct {
	Start    string `toml:"start"`
	End      string `toml:"end"`
	Timezone string `toml:"timezone"`
}

// SubagentsConfig configures in-process sub-agent delegation.
type SubagentsConfig struct {
	MaxConcurrent       int    `toml:"max_concurrent"`
	MaxSpawnDepth       int    `toml:"max_spawn_depth"`
	MaxChildrenPerAgent int    `toml:"max_children_per_agent"`
	ArchiveAfterMinutes int    `toml:"archive_after_minutes"`
	Model               string `toml:"model"`
}

// AgentSpec is the per-agent configuration override. Zero fields inherit
// from AgentDefaults.
type AgentSpec struct {
	DisplayName       string          `toml:"display_name"`
	Provider          string          `toml:"provider"`
	Model             string          `toml:"model"`
	MaxTokens         int             `toml:"max_tokens"`
	Temperature       float64         `toml:"temperature"`
	MaxToolIterations int             `toml:"max_tool_iterations"`
	ContextWindow     int             `toml:"context_window"`
	AgentType         string          `toml:"agent_type"`
	Tools             *ToolPolicySpec `toml:"tools"`
	Workspace         string          `toml:"workspace"`
	Default           bool            `toml:"default"`
	Identity          *IdentityConfig `toml:"identity"`

	// Skills restricts which skills this agent sees: nil means all skills
	// from the loader are visible, an empty (non-nil) list hides all of
	// them, and a named list filters to just those skills.
	Skills []string `toml:"skills"`
}

// IdentityConfig defines agent persona / display identity.
type IdentityConfig struct {
	Name  string `toml:"name"`
	Emoji string `toml:"emoji"`
}

// SchedulerConfig configures the job scheduler.
type SchedulerConfig struct {
	HistorySize    int    `toml:"history_size"`     // per-job execution ring-buffer size (default 100)
	DefaultTimeout string `toml:"default_timeout"`  // soft timeout applied to jobs without an explicit one (default "2m")
	StoragePath    string `toml:"storage_path"`     // path to the job definitions file
}

// MemoryConfig configures the hybrid vector+keyword memory store.
type MemoryConfig struct {
	Enabled           *bool   `toml:"enabled"`
	EmbeddingProvider string  `toml:"embedding_provider"` // "mock" (default), "openai" or "gemini"; any other value uses the mock provider
	EmbeddingModel    string  `toml:"embedding_model"`
	EmbeddingAPIBase  string  `toml:"embedding_api_base"`
	CacheCapacity     int     `toml:"cache_capacity"` // LRU embedding cache size (default 10000)
	ChunkSize         int     `toml:"chunk_size"`     // words per chunk (default 512)
	ChunkOverlap      int     `toml:"chunk_overlap"`  // overlapping words between chunks (default 50)
	MaxResults        int     `toml:"max_results"`    // default 6
	VectorWeight      float64 `toml:"vector_weight"`  // hybrid score vector weight (default 0.7)
	TextWeight        float64 `toml:"text_weight"`    // hybrid score keyword weight (default 0.3)
	MinScore          float64 `toml:"min_score"`      // minimum relevance score (default 0.35)
	StoragePath       string  `toml:"storage_path"`   // sqlite file path
}

// SecurityConfig configures the tool security policy.
type SecurityConfig struct {
	Autonomy            string `toml:"autonomy"` // "read_only", "supervised" (default), "full"
	RateLimitPerMinute  int    `toml:"rate_limit_per_minute"`  // per-tool token bucket (default 30)
	RateLimitPerHour    int    `toml:"rate_limit_per_hour"`    // per-tool token bucket (default 300)
	ApprovalTimeout     string `toml:"approval_timeout"`       // how long a NeedsApproval decision waits (default "5m")
}

// LifecycleConfig configures the resource supervisor.
type LifecycleConfig struct {
	HeartbeatIntervalSec int      `toml:"heartbeat_interval_sec"` // default 10
	StuckThreshold       int      `toml:"stuck_threshold"`        // missed heartbeats before Stuck (default 3)
	MaxRetries           int      `toml:"max_retries"`            // Tier-1 retry attempts before fallback (default 3)
	FallbackProviders    []string `toml:"fallback_providers"`     // agent provider fallback order
	JournalDir           string   `toml:"journal_dir"`            // crash-recovery journal directory
}

// TelemetryConfig configures OpenTelemetry span export.
type TelemetryConfig struct {
	Enabled     bool              `toml:"enabled"`
	Endpoint    string            `toml:"endpoint"`
	Protocol    string            `toml:"protocol"` // "grpc" (default) or "http"
	Insecure    bool              `toml:"insecure"`
	ServiceName string            `toml:"service_name"`
	Headers     map[string]string `toml:"headers"`
}

// ReplaceFrom copies all data fields from src into c, preserving c's mutex.
// config.toml is not watched for changes; nothing in the gateway calls this
// on file events.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Agents = src.Agents
	c.Channels = src.Channels
	c.Providers = src.Providers
	c.Gateway = src.Gateway
	c.Tools = src.Tools
	c.Sessions = src.Sessions
	c.Scheduler = src.Scheduler
	c.Memory = src.Memory
	c.Security = src.Security
	c.Lifecycle = src.Lifecycle
	c.Telemetry = src.Telemetry
	c.Database = src.Database
	c.Bindings = src.Bindings
}
