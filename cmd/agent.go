package cmd

import "github.com/spf13/cobra"

func agentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Interact with a local agent",
	}
	cmd.AddCommand(agentChatCmd())
	return cmd
}
