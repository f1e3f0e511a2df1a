package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sprklai/mesoclaw/internal/config"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Configure mesoclaw for first use",
		Long: `Sets up config.toml: picks a model provider, enables memory, and
generates a gateway token. Runs non-interactively when a MESOCLAW_*_API_KEY
environment variable is already set, otherwise prompts on the terminal.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfgPath := resolveConfigPath()

			if canAutoOnboard() {
				if !runAutoOnboard(cfgPath) {
					os.Exit(1)
				}
				return
			}

			if !runInteractiveOnboard(cfgPath) {
				os.Exit(1)
			}
		},
	}
}

// runInteractiveOnboard prompts on stdin for the one required piece of
// information auto-onboard can't infer: which provider's API key to use.
func runInteractiveOnboard(cfgPath string) bool {
	fmt.Println("mesoclaw onboarding")
	fmt.Println("No provider API key found in the environment.")
	fmt.Println()
	fmt.Println("Available providers: anthropic, openai, openrouter, groq, gemini, ollama")
	fmt.Print("Provider: ")

	reader := bufio.NewReader(os.Stdin)
	provider, _ := reader.ReadString('\n')
	provider = strings.TrimSpace(strings.ToLower(provider))

	pi, ok := providerMap[provider]
	if !ok {
		fmt.Printf("unknown provider: %s\n", provider)
		return false
	}

	cfg := config.Default()
	cfg.Agents.Defaults.Provider = provider
	cfg.Agents.Defaults.Model = pi.modelHint

	if provider != "ollama" {
		fmt.Printf("%s API key: ", provider)
		key, _ := reader.ReadString('\n')
		key = strings.TrimSpace(key)
		if key == "" {
			fmt.Println("an API key is required for", provider)
			return false
		}
		if pi.envKey != "" {
			os.Setenv(pi.envKey, key)
		}
		cfg.ApplyEnvOverrides()
	}

	if cfg.Gateway.Token == "" {
		cfg.Gateway.Token = onboardGenerateToken(16)
	}

	enabled := true
	cfg.Memory.Enabled = &enabled

	if err := saveCleanConfig(cfgPath, cfg); err != nil {
		fmt.Printf("could not save config: %v\n", err)
		return false
	}

	fmt.Printf("Config saved to %s\n", cfgPath)
	return true
}
