package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprklai/mesoclaw/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the active configuration",
	}
	cmd.AddCommand(configPathCmd())
	cmd.AddCommand(configShowCmd())
	return cmd
}

func configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path in use",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	}
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration (secrets redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			redactConfigSecrets(cfg)
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

// redactConfigSecrets clears fields that hold credentials before printing.
func redactConfigSecrets(cfg *config.Config) {
	cfg.Providers.Anthropic.APIKey = redactedIfSet(cfg.Providers.Anthropic.APIKey)
	cfg.Providers.OpenAI.APIKey = redactedIfSet(cfg.Providers.OpenAI.APIKey)
	cfg.Providers.OpenRouter.APIKey = redactedIfSet(cfg.Providers.OpenRouter.APIKey)
	cfg.Providers.Groq.APIKey = redactedIfSet(cfg.Providers.Groq.APIKey)
	cfg.Providers.Gemini.APIKey = redactedIfSet(cfg.Providers.Gemini.APIKey)
	cfg.Providers.Ollama.APIKey = redactedIfSet(cfg.Providers.Ollama.APIKey)
	cfg.Gateway.Token = redactedIfSet(cfg.Gateway.Token)
	cfg.Channels.Telegram.Token = redactedIfSet(cfg.Channels.Telegram.Token)
	cfg.Channels.Discord.Token = redactedIfSet(cfg.Channels.Discord.Token)
	cfg.Channels.Slack.WebhookURL = redactedIfSet(cfg.Channels.Slack.WebhookURL)
	cfg.Channels.Slack.BotToken = redactedIfSet(cfg.Channels.Slack.BotToken)
	cfg.Tools.Web.Brave.APIKey = redactedIfSet(cfg.Tools.Web.Brave.APIKey)
	cfg.Database.PostgresDSN = redactedIfSet(cfg.Database.PostgresDSN)
}

func redactedIfSet(v string) string {
	if v == "" {
		return ""
	}
	return "<redacted>"
}
