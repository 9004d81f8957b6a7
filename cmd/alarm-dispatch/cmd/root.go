package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-dispatch/internal/config"
	"github.com/oshokin/alarm-dispatch/internal/service/server"
	"github.com/oshokin/alarm-dispatch/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// listenAddress overrides the webhook address from the settings.
	listenAddress string

	// rootCmd represents the base command for running the bot.
	rootCmd = &cobra.Command{
		Use:   "alarm-dispatch",
		Short: "Run the emergency dispatch chat bot.",
		Long: `Starts the chat bot that lets people raise, update and cancel emergency alarms
from a Messenger conversation.

The bot serves the Messenger webhook and the dispatch OAuth callback over HTTP.
The --listen flag overrides the listen address from the settings (e.g., :8080).
Secrets may be supplied through the environment or a .env file instead of the settings file.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the alarm-dispatch CLI and exits with non-zero status on error.
func Execute() {
	gin.SetMode(gin.ReleaseMode)
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(initConfigCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&listenAddress, "listen", "l", "", "webhook listen address, overrides the settings")
}
