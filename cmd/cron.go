package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sprklai/mesoclaw/internal/config"
	"github.com/sprklai/mesoclaw/internal/scheduler"
)

func cronCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "List scheduled jobs on a running gateway",
	}
	cmd.AddCommand(cronListCmd())
	return cmd
}

// gatewayAPIURL builds the base URL for the running gateway's HTTP API.
func gatewayAPIURL(cfg *config.Config, path string) string {
	host := cfg.Gateway.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Gateway.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("http://%s:%d%s", host, port, path)
}

func cronListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}

			req, err := http.NewRequest(http.MethodGet, gatewayAPIURL(cfg, "/api/v1/scheduler/jobs"), nil)
			if err != nil {
				return err
			}
			if cfg.Gateway.Token != "" {
				req.Header.Set("Authorization", "Bearer "+cfg.Gateway.Token)
			}

			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("connect to gateway at %s: %w (is it running?)", gatewayAPIURL(cfg, ""), err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(body))
			}

			var jobs []scheduler.ScheduledJob
			if err := json.Unmarshal(body, &jobs); err != nil {
				return fmt.Errorf("decode job list: %w", err)
			}

			if len(jobs) == 0 {
				fmt.Println("no scheduled jobs")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tENABLED\tNEXT RUN\tERRORS")
			for _, j := range jobs {
				next := "-"
				if j.NextRun != nil {
					next = j.NextRun.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%d\n", j.ID, j.Name, j.Enabled, next, j.ErrorCount)
			}
			w.Flush()
			return nil
		},
	}
}
