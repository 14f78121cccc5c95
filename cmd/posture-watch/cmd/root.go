package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/posture-alarm/internal/config"
	"github.com/oshokin/posture-alarm/internal/service/watch"
	"github.com/oshokin/posture-alarm/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// status prints the monitor counters and exits.
	status bool
	// notifications shows a desktop notification per alert.
	notifications bool

	// rootCmd represents the base command for following alerts.
	rootCmd = &cobra.Command{
		Use:   "posture-watch [server-address]",
		Short: "Follow alerts from a running posture monitor.",
		Long: `Connects to a posture-monitor over gRPC and prints every bad posture alert.
Reconnects when the stream breaks. With --status, prints the session counters once.

Server address can be provided as argument or loaded from configuration file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var serverAddress string
			if len(args) > 0 {
				serverAddress = args[0]
			}

			options := &watch.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				Status:        status,
				Notify:        notifications,
			}

			return watch.Run(ctx, options)
		},
	}
)

// Execute runs the posture-watch CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().BoolVarP(&status, "status", "s", false, "print the monitor status and exit")
	rootCmd.Flags().BoolVarP(&notifications, "notify", "n", false, "show a desktop notification for every alert")
}
