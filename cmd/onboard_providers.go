package cmd

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/sprklai/mesoclaw/internal/config"
)

// providerInfo describes how to auto-detect and default-configure a provider
// during onboarding.
type providerInfo struct {
	envKey    string // environment variable carrying the API key
	modelHint string // default model to use once the provider is selected
	apiBase   string // default API base (OpenAI-compatible endpoint)
}

// providerMap is the set of providers onboarding and connectivity
// verification know how to configure automatically.
var providerMap = map[string]providerInfo{
	"anthropic":  {envKey: "MESOCLAW_ANTHROPIC_API_KEY", modelHint: "claude-sonnet-4-5-20250929"},
	"openai":     {envKey: "MESOCLAW_OPENAI_API_KEY", modelHint: "gpt-4o", apiBase: "https://api.openai.com/v1"},
	"openrouter": {envKey: "MESOCLAW_OPENROUTER_API_KEY", modelHint: "anthropic/claude-sonnet-4-5-20250929", apiBase: "https://openrouter.ai/api/v1"},
	"groq":       {envKey: "MESOCLAW_GROQ_API_KEY", modelHint: "llama-3.3-70b-versatile", apiBase: "https://api.groq.com/openai/v1"},
	"gemini":     {envKey: "MESOCLAW_GEMINI_API_KEY", modelHint: "gemini-2.0-flash", apiBase: "https://generativelanguage.googleapis.com/v1beta/openai"},
	"ollama":     {envKey: "MESOCLAW_OLLAMA_API_KEY", modelHint: "llama3.2", apiBase: "http://localhost:11434/v1"},
}

// resolveProviderAPIKey returns the configured API key for a provider.
// API keys are env-only (config.Load already merges ApplyEnvOverrides),
// so this just reads the resolved field.
func resolveProviderAPIKey(cfg *config.Config, name string) string {
	switch name {
	case "anthropic":
		return cfg.Providers.Anthropic.APIKey
	case "openai":
		return cfg.Providers.OpenAI.APIKey
	case "openrouter":
		return cfg.Providers.OpenRouter.APIKey
	case "groq":
		return cfg.Providers.Groq.APIKey
	case "gemini":
		return cfg.Providers.Gemini.APIKey
	case "ollama":
		if cfg.Providers.Ollama.APIKey != "" {
			return cfg.Providers.Ollama.APIKey
		}
		return "ollama" // local daemon, no key required
	default:
		return ""
	}
}

// resolveProviderAPIBase returns the default API base for a provider name.
func resolveProviderAPIBase(name string) string {
	if pi, ok := providerMap[name]; ok {
		return pi.apiBase
	}
	return ""
}

// onboardGenerateToken returns a random hex token of n bytes (2n hex chars),
// used for the gateway bearer token and similar secrets generated during
// onboarding.
func onboardGenerateToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
