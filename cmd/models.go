package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sprklai/mesoclaw/internal/config"
)

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured model providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tCONFIGURED\tDEFAULT MODEL\tACTIVE")
			allProviders := append(append([]string{}, providerPriority...), "ollama")
			for _, name := range allProviders {
				configured := resolveProviderAPIKey(cfg, name) != ""
				model := ""
				if pi, ok := providerMap[name]; ok {
					model = pi.modelHint
				}
				active := ""
				if name == cfg.Agents.Defaults.Provider {
					active = "*"
				}
				fmt.Fprintf(w, "%s\t%v\t%s\t%s\n", name, configured, model, active)
			}
			w.Flush()

			if !cfg.HasAnyProvider() {
				fmt.Println("\nno provider is configured — run 'mesoclaw onboard'")
			}
			return nil
		},
	}
}
