package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/posture-alarm/internal/config"
	"github.com/oshokin/posture-alarm/internal/service/daemon"
	"github.com/oshokin/posture-alarm/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// recording overrides the landmark recording from the configuration.
	recording string
	// fast replays the recording without waiting between ticks.
	fast bool
	// allowMultiple skips the single-instance check.
	allowMultiple bool
	// historyLimit caps the alerts printed by the history subcommand.
	historyLimit int

	// rootCmd represents the base command for running the posture monitor.
	rootCmd = &cobra.Command{
		Use:   "posture-monitor [listen-address]",
		Short: "Watch posture and raise an alert after sustained slouching.",
		Long: `Samples body landmarks at a fixed interval, classifies posture and raises
an alert once posture has been bad for the configured threshold. After an
alert, further alerts are suppressed for the cooldown period.

Alerts are written to the log and, when configured, shown as desktop
notifications, journaled, published to MQTT, Redis streams or a webhook,
and streamed to posture-watch clients over gRPC.

Listen address can be provided as argument to override config (e.g., 127.0.0.1:50061).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &daemon.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				Recording:     recording,
				Fast:          fast,
				AllowMultiple: allowMultiple,
			}

			return daemon.Run(ctx, options)
		},
	}
)

// historyCmd prints the alert journal.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the most recent alerts from the journal.",
	Long: `Reads the alert journal configured in the settings file (file or sqlite backend)
and prints the most recent alerts, newest first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		options := &daemon.HistoryOptions{
			ConfigPath: configPath,
			Limit:      historyLimit,
			Out:        cmd.OutOrStdout(),
		}

		return daemon.History(cmd.Context(), options)
	},
}

// Execute runs the posture-monitor CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&recording, "recording", "r", "", "path to a landmark recording to replay")
	rootCmd.Flags().BoolVar(&fast, "fast", false, "replay the recording on a simulated clock")
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "skip the single-instance check")

	historyCmd.Flags().
		IntVarP(&historyLimit, "limit", "n", daemon.DefaultHistoryLimit, "number of alerts to print, 0 for all")

	err := rootCmd.Flags().MarkHidden("allow-multiple")
	if err != nil {
		panic(err)
	}
}
