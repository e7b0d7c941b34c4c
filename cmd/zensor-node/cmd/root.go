package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/oshokin/zensor/internal/config"
	"github.com/oshokin/zensor/internal/service/node"
	"github.com/oshokin/zensor/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the level from the configuration file.
	logLevel string
	// simulate runs without GPIO hardware.
	simulate bool
	// iterations limits the number of loop passes.
	iterations int
	// historyLimit keeps only the most recent history records.
	historyLimit int

	// rootCmd represents the base command running the sensor loop.
	rootCmd = &cobra.Command{
		Use:   "zensor-node",
		Short: "Read the DHT11, print the device fingerprint and drive the alarm indicators.",
		Long: `Runs the sensor node loop once per second:

  1. derives the device fingerprint from the configured memory region and prints it,
  2. reads the DHT11 and prints the raw transmission, temperature and humidity,
  3. lights the red LED above 30 °C (green otherwise) and pulses the buzzer
     at most once every 10 seconds while hot.

A failed sensor read prints "Read DHT11 failed" and leaves the indicators as they were.
The report stream goes to stdout unless report_output is set; logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return node.Run(ctx, &node.Options{
				ConfigPath: configPath,
				LogLevel:   logLevel,
				Simulate:   simulate,
				Iterations: iterations,
			})
		},
	}

	// fingerprintCmd prints a single fingerprint and exits.
	fingerprintCmd = &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the device fingerprint once.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return node.Fingerprint(cmd.Context(), configPath, cmd.OutOrStdout())
		},
	}

	// historyCmd prints the recorded iterations from the history file.
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Print the iterations recorded in the history file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return node.History(cmd.Context(), configPath, historyLimit, cmd.OutOrStdout())
		},
	}
)

// Execute runs the zensor-node CLI and exits with non-zero status on error.
// Exit goes through atexit so that actuators are released.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level override (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&simulate, "simulate", false, "use in-memory pins and the dummy sensor")
	rootCmd.Flags().IntVarP(&iterations, "iterations", "n", 0, "stop after this many loop passes (0 runs forever)")

	historyCmd.Flags().IntVar(&historyLimit, "last", 0, "show only the most recent records (0 shows all)")

	rootCmd.AddCommand(fingerprintCmd, historyCmd)
}
