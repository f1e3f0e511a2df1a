package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sprklai/mesoclaw/internal/config"
)

func channelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "Show the status of configured messaging channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "CHANNEL\tENABLED\tTOKEN/WEBHOOK SET\tDM POLICY")
			fmt.Fprintf(w, "telegram\t%v\t%v\t%s\n",
				cfg.Channels.Telegram.Enabled, cfg.Channels.Telegram.Token != "", nonEmpty(cfg.Channels.Telegram.DMPolicy, "pairing"))
			fmt.Fprintf(w, "discord\t%v\t%v\t%s\n",
				cfg.Channels.Discord.Enabled, cfg.Channels.Discord.Token != "", nonEmpty(cfg.Channels.Discord.DMPolicy, "pairing"))
			fmt.Fprintf(w, "slack\t%v\t%v\t%s\n",
				cfg.Channels.Slack.Enabled, cfg.Channels.Slack.WebhookURL != "" || cfg.Channels.Slack.BotToken != "", "-")
			w.Flush()
			return nil
		},
	}
}
