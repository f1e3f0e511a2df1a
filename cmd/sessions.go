package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sprklai/mesoclaw/internal/config"
	"github.com/sprklai/mesoclaw/internal/sessions"
	"github.com/sprklai/mesoclaw/internal/store"
	"github.com/sprklai/mesoclaw/internal/store/file"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage agent conversation sessions",
	}
	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsResetCmd())
	return cmd
}

func openSessionStore() (store.SessionStore, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	storage := cfg.Sessions.Storage
	if storage == "" {
		storage = "sessions"
	}
	return file.NewFileSessionStore(sessions.NewManager(storage)), nil
}

func sessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openSessionStore()
			if err != nil {
				return err
			}
			result := st.ListPaged(store.SessionListOpts{Limit: 200})
			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tMESSAGES\tUPDATED")
			for _, s := range result.Sessions {
				fmt.Fprintf(w, "%s\t%d\t%s\n", s.Key, s.MessageCount, s.Updated.Format("2006-01-02 15:04"))
			}
			w.Flush()
			fmt.Printf("%d session(s), %d total\n", len(result.Sessions), result.Total)
			return nil
		},
	}
}

func sessionsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <key>",
		Short: "Clear the conversation history for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openSessionStore()
			if err != nil {
				return err
			}
			st.Reset(args[0])
			fmt.Printf("session %q reset\n", args[0])
			return nil
		},
	}
}
