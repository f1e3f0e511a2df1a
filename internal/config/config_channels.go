package config

// ChannelsConfig contains per-channel configuration. Telegram and Discord
// have channel adapters; the slack section is parsed but no Slack channel
// adapter exists, and there is no local-IPC channel.
type ChannelsConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
	Discord  DiscordConfig  `toml:"discord"`
	Slack    SlackConfig    `toml:"slack"`
}

type TelegramConfig struct {
	Enabled        bool     `toml:"enabled"`
	Token          string   `toml:"token"`
	AllowFrom      []string `toml:"allow_from"`
	DMPolicy       string   `toml:"dm_policy"`       // "pairing" (default), "allowlist", "open", "disabled"
	GroupPolicy    string   `toml:"group_policy"`    // "open" (default), "allowlist", "disabled"
	RequireMention *bool    `toml:"require_mention"` // require @bot mention in groups (default true)
	StreamMode     string   `toml:"stream_mode"`     // "off" (default), "partial"
	ReactionLevel  string   `toml:"reaction_level"`  // "off" (default), "minimal", "full"
	MediaMaxBytes  int64    `toml:"media_max_bytes"` // default 20MB

	VoiceAgentID      string `toml:"voice_agent_id"`      // agent for voice/audio messages (empty = channel agent)
	STTProxyURL       string `toml:"stt_proxy_url"`       // speech-to-text proxy base URL (empty = no transcription)
	STTAPIKey         string `toml:"stt_api_key"`         // sent as a Bearer token when set
	STTTenantID       string `toml:"stt_tenant_id"`       // forwarded as the tenant_id form field when set
	STTTimeoutSeconds int    `toml:"stt_timeout_seconds"` // default 30
}

type DiscordConfig struct {
	Enabled        bool     `toml:"enabled"`
	Token          string   `toml:"token"`
	AllowFrom      []string `toml:"allow_from"`
	DMPolicy       string   `toml:"dm_policy"`
	GroupPolicy    string   `toml:"group_policy"`
	RequireMention *bool    `toml:"require_mention"`
}

// SlackConfig holds Slack settings. MESOCLAW_SLACK_WEBHOOK_URL fills
// WebhookURL and marks the section enabled, and `mesoclaw doctor` reports
// it, but no channel adapter reads it: no Slack messages are sent or received.
type SlackConfig struct {
	Enabled    bool   `toml:"enabled"`
	WebhookURL string `toml:"webhook_url"`
	BotToken   string `toml:"bot_token"`
}

// ProvidersConfig maps provider name to its config.
type ProvidersConfig struct {
	Anthropic  ProviderConfig `toml:"anthropic"`
	OpenAI     ProviderConfig `toml:"openai"`
	OpenRouter ProviderConfig `toml:"openrouter"`
	Groq       ProviderConfig `toml:"groq"`
	Gemini     ProviderConfig `toml:"gemini"`
	Ollama     ProviderConfig `toml:"ollama"`
}

type ProviderConfig struct {
	APIKey  string `toml:"-"` // env only
	APIBase string `toml:"api_base"`
}

// HasAnyProvider returns true if at least one provider has an API key configured.
func (c *Config) HasAnyProvider() bool {
	p := c.Providers
	return p.Anthropic.APIKey != "" || p.OpenAI.APIKey != "" || p.OpenRouter.APIKey != "" ||
		p.Groq.APIKey != "" || p.Gemini.APIKey != "" || p.Ollama.APIKey != ""
}

// GatewayConfig controls the Gateway Daemon HTTP/WS surface.
type GatewayConfig struct {
	Host              string   `toml:"host"`
	Port              int      `toml:"port"`
	Token             string   `toml:"-"` // bearer token; env only (MESOCLAW_GATEWAY_TOKEN), not written to any file
	OwnerIDs          []string `toml:"owner_ids"`
	AllowedOrigins    []string `toml:"allowed_origins"`
	MaxMessageChars   int      `toml:"max_message_chars"`
	RateLimitRPM      int      `toml:"rate_limit_rpm"`
	InjectionAction   string   `toml:"injection_action"` // "log", "warn" (default), "block", "off"
	InboundDebounceMs int      `toml:"inbound_debounce_ms"`
}

// ToolsConfig controls tool availability and tool-level policy overrides
// layered on top of internal/security's risk-based gate.
type ToolsConfig struct {
	Profile          string                     `toml:"profile"` // "minimal", "coding", "messaging", "full"
	Allow            []string                   `toml:"allow"`
	Deny             []string                   `toml:"deny"`
	AlsoAllow        []string                   `toml:"also_allow"`
	ByProvider       map[string]*ToolPolicySpec `toml:"by_provider"`
	Web              WebToolsConfig             `toml:"web"`
	ScrubCredentials *bool                      `toml:"scrub_credentials"` // default true
}

// ExecApprovalCfg configures command execution approval, consulted by
// internal/security alongside the deny-pattern classifier.
type ExecApprovalCfg struct {
	Allowlist []string `toml:"allowlist"`
}

// ToolPolicySpec defines a tool policy at any level (global, per-agent, per-provider).
type ToolPolicySpec struct {
	Profile    string                     `toml:"profile"`
	Allow      []string                   `toml:"allow"`
	Deny       []string                   `toml:"deny"`
	AlsoAllow  []string                   `toml:"also_allow"`
	ByProvider map[string]*ToolPolicySpec `toml:"by_provider"`
}

type WebToolsConfig struct {
	Brave      BraveConfig      `toml:"brave"`
	DuckDuckGo DuckDuckGoConfig `toml:"duckduckgo"`
}

type BraveConfig struct {
	Enabled    bool   `toml:"enabled"`
	APIKey     string `toml:"-"`
	MaxResults int    `toml:"max_results"`
}

type DuckDuckGoConfig struct {
	Enabled    bool `toml:"enabled"`
	MaxResults int  `toml:"max_results"`
}

// SessionsConfig controls session persistence behavior.
type SessionsConfig struct {
	Storage string `toml:"storage"` // directory for session files
	Scope   string `toml:"scope"`   // "per-sender" (default), "global"
	DmScope string `toml:"dm_scope"`
	MainKey string `toml:"main_key"`
}
