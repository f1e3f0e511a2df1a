package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sprklai/mesoclaw/internal/config"
	"github.com/sprklai/mesoclaw/internal/pairing"
)

func pairingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pairing",
		Short: "Manage DM pairing requests from unfamiliar senders",
	}
	cmd.AddCommand(pairingListCmd())
	cmd.AddCommand(pairingApproveCmd())
	return cmd
}

func openPairingService() (*pairing.Service, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	storage := cfg.Sessions.Storage
	if storage == "" {
		storage = "sessions"
	}
	return pairing.NewService(filepath.Join(storage, "pairings.json")), nil
}

func pairingListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending pairing requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openPairingService()
			if err != nil {
				return err
			}
			pending := svc.ListPending()
			if len(pending) == 0 {
				fmt.Println("no pending pairing requests")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tCHANNEL\tSENDER\tREQUESTED")
			for _, p := range pending {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					p.Code, p.Channel, p.SenderID, time.Unix(p.CreatedAt, 0).Format("2006-01-02 15:04"))
			}
			w.Flush()
			return nil
		},
	}
}

func pairingApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <code>",
		Short: "Approve a pending pairing code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openPairingService()
			if err != nil {
				return err
			}
			senderID, err := svc.ApprovePairing(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("approved sender %s\n", senderID)
			return nil
		},
	}
}
