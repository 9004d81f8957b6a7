package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-dispatch/internal/config"
)

var (
	// force allows overwriting an existing settings file.
	force bool

	// initConfigCmd writes a settings template to fill in.
	initConfigCmd = &cobra.Command{
		Use:   "init-config",
		Short: "Write a settings file template.",
		Long: `Writes a settings file with default addresses and placeholder dispatch endpoints.
Replace the placeholders before starting the bot. Secrets can stay empty in the
file and be provided through DISPATCH_CLIENT_SECRET, PAGE_ACCESS_TOKEN and VERIFY_TOKEN.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				if _, err := os.Stat(configPath); err == nil {
					return fmt.Errorf("%s already exists, use --force to overwrite", configPath)
				}
			}

			if err := config.Save(configPath, config.Template()); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", configPath)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initConfigCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing settings file")
}
