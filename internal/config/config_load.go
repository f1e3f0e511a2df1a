package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default returns a Config with sensible defaults, matching the values a
// fresh `mesoclaw onboard` run would write.
func Default() *Config {
	return &Config{
		Agents: AgentsConfig{
			Defaults: AgentDefaults{
				Workspace:           "~/.mesoclaw/workspace",
				RestrictToWorkspace: true,
				Provider:            "anthropic",
				Model:               "claude-sonnet-4-5-20250929",
				MaxTokens:           8192,
				Temperature:         0.7,
				MaxToolIterations:   20,
				ContextWindow:       200000,
				Subagents: &SubagentsConfig{
					MaxConcurrent: 8,
					MaxSpawnDepth: 1,
				},
			},
		},
		Gateway: GatewayConfig{
			Host:            "127.0.0.1",
			Port:            18790,
			MaxMessageChars: 32000,
			RateLimitRPM:    20,
			InjectionAction: "warn",
		},
		Tools: ToolsConfig{
			Web: WebToolsConfig{
				DuckDuckGo: DuckDuckGoConfig{Enabled: true, MaxResults: 5},
			},
		},
		Sessions: SessionsConfig{
			Storage: "~/.mesoclaw/sessions",
		},
		Scheduler: SchedulerConfig{
			HistorySize:    100,
			DefaultTimeout: "2m",
			StoragePath:    "~/.mesoclaw/data/scheduler.json",
		},
		Memory: MemoryConfig{
			EmbeddingProvider: "mock",
			CacheCapacity:     10000,
			ChunkSize:         512,
			ChunkOverlap:      50,
			MaxResults:        6,
			VectorWeight:      0.7,
			TextWeight:        0.3,
			MinScore:          0.35,
			StoragePath:       "~/.mesoclaw/data/memory.db",
		},
		Security: SecurityConfig{
			Autonomy:           "supervised",
			RateLimitPerMinute: 30,
			RateLimitPerHour:   300,
			ApprovalTimeout:    "5m",
		},
		Lifecycle: LifecycleConfig{
			HeartbeatIntervalSec: 10,
			StuckThreshold:       3,
			MaxRetries:           3,
			FallbackProviders:    []string{"openai", "anthropic", "google", "groq", "ollama"},
			JournalDir:           "~/.mesoclaw/journal",
		},
	}
}

// Load reads config from config.toml, then overlays environment variables.
// A missing file is not an error — it yields Default() with env overrides
// applied, matching first-run behavior.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			cfg.applyContextPruningDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyContextPruningDefaults()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config. Secrets never live in
// config.toml; env vars are their only source.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("MESOCLAW_ANTHROPIC_API_KEY", &c.Providers.Anthropic.APIKey)
	envStr("MESOCLAW_ANTHROPIC_BASE_URL", &c.Providers.Anthropic.APIBase)
	envStr("MESOCLAW_OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	envStr("MESOCLAW_OPENROUTER_API_KEY", &c.Providers.OpenRouter.APIKey)
	envStr("MESOCLAW_GROQ_API_KEY", &c.Providers.Groq.APIKey)
	envStr("MESOCLAW_GEMINI_API_KEY", &c.Providers.Gemini.APIKey)
	envStr("MESOCLAW_OLLAMA_API_KEY", &c.Providers.Ollama.APIKey)

	envStr("MESOCLAW_GATEWAY_TOKEN", &c.Gateway.Token)
	envStr("MESOCLAW_TELEGRAM_TOKEN", &c.Channels.Telegram.Token)
	envStr("MESOCLAW_DISCORD_TOKEN", &c.Channels.Discord.Token)
	envStr("MESOCLAW_SLACK_WEBHOOK_URL", &c.Channels.Slack.WebhookURL)
	envStr("MESOCLAW_BRAVE_API_KEY", &c.Tools.Web.Brave.APIKey)

	if c.Channels.Telegram.Token != "" {
		c.Channels.Telegram.Enabled = true
	}
	if c.Channels.Discord.Token != "" {
		c.Channels.Discord.Enabled = true
	}
	if c.Channels.Slack.WebhookURL != "" {
		c.Channels.Slack.Enabled = true
	}

	envStr("MESOCLAW_PROVIDER", &c.Agents.Defaults.Provider)
	envStr("MESOCLAW_MODEL", &c.Agents.Defaults.Model)
	envStr("MESOCLAW_WORKSPACE", &c.Agents.Defaults.Workspace)
	envStr("MESOCLAW_SESSIONS_STORAGE", &c.Sessions.Storage)

	envStr("MESOCLAW_HOST", &c.Gateway.Host)
	if v := os.Getenv("MESOCLAW_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Gateway.Port = port
		}
	}

	envStr("MESOCLAW_POSTGRES_DSN", &c.Database.PostgresDSN)
	if c.Database.PostgresDSN != "" {
		c.Database.Driver = "postgres"
	}

	envStr("MESOCLAW_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("MESOCLAW_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("MESOCLAW_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if v := os.Getenv("MESOCLAW_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("MESOCLAW_OWNER_IDS"); v != "" {
		c.Gateway.OwnerIDs = strings.Split(v, ",")
	}
}

// applyContextPruningDefaults auto-enables context pruning when the
// Anthropic provider is configured, since its prompt caching rewards a
// stable prefix more than most providers.
func (c *Config) applyContextPruningDefaults() {
	if c.Providers.Anthropic.APIKey == "" {
		return
	}
	defaults := &c.Agents.Defaults
	if defaults.ContextPruning == nil {
		defaults.ContextPruning = &ContextPruningConfig{Mode: "cache-ttl"}
	} else if defaults.ContextPruning.Mode == "" {
		defaults.ContextPruning.Mode = "cache-ttl"
	}
}

// Save writes the config to a TOML file.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Hash returns a short SHA-256 hash of the config for optimistic concurrency
// checks on hot-reload.
func (c *Config) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h := sha256.New()
	fmt.Fprintf(h, "%+v", *c)
	return fmt.Sprintf("%x", h.Sum(nil)[:8])
}

// WorkspacePath returns the expanded workspace path.
func (c *Config) WorkspacePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.Agents.Defaults.Workspace)
}

// ResolveAgent returns the effective config for a given agent ID, merging
// defaults with per-agent overrides.
func (c *Config) ResolveAgent(agentID string) AgentDefaults {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d := c.Agents.Defaults
	if spec, ok := c.Agents.List[agentID]; ok {
		if spec.Provider != "" {
			d.Provider = spec.Provider
		}
		if spec.Model != "" {
			d.Model = spec.Model
		}
		if spec.MaxTokens > 0 {
			d.MaxTokens = spec.MaxTokens
		}
		if spec.Temperature > 0 {
			d.Temperature = spec.Temperature
		}
		if spec.MaxToolIterations > 0 {
			d.MaxToolIterations = spec.MaxToolIterations
		}
		if spec.ContextWindow > 0 {
			d.ContextWindow = spec.ContextWindow
		}
		if spec.Workspace != "" {
			d.Workspace = spec.Workspace
		}
		if spec.AgentType != "" {
			d.AgentType = spec.AgentType
		}
	}
	return d
}

// ResolveDefaultAgentID returns the ID of the agent marked as default, or
// "default" if none is explicitly marked.
func (c *Config) ResolveDefaultAgentID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for id, spec := range c.Agents.List {
		if spec.Default {
			return id
		}
	}
	return DefaultAgentID
}

// ResolveDisplayName returns the display name for an agent, falling back to
// "MesoClaw".
func (c *Config) ResolveDisplayName(agentID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if spec, ok := c.Agents.List[agentID]; ok && spec.DisplayName != "" {
		return spec.DisplayName
	}
	return "MesoClaw"
}

// ApplyEnvOverrides re-applies environment variable overrides. Call after
// mutating config in-place to restore runtime secrets.
func (c *Config) ApplyEnvOverrides() {
	c.applyEnvOverrides()
	c.applyContextPruningDefaults()
}

// ExpandHome replaces a leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}

// NormalizeAgentID maps an empty binding agent ID to the default agent.
func NormalizeAgentID(agentID string) string {
	if agentID == "" {
		return DefaultAgentID
	}
	return agentID
}
