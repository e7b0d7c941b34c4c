package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/zensor/internal/config"
	"github.com/oshokin/zensor/internal/service/seriallog"
	"github.com/oshokin/zensor/internal/version"
)

var (
	// output is the log file receiving serial lines.
	output string
	// baud is the serial line speed.
	baud int
	// quiet disables echoing lines to stdout.
	quiet bool
	// once stops at end of input instead of waiting for more.
	once bool

	// rootCmd represents the base command tailing the node's serial output.
	rootCmd = &cobra.Command{
		Use:   "zensor-logger [device]",
		Short: "Append the node's serial output to a log file.",
		Long: `Reads the node's report stream line by line from a serial device and appends
every line to a log file, echoing it to stdout.

Terminal devices are opened at --baud in raw 8N1 mode; other paths are read
as plain files. Undecodable lines and transient read errors are reported and skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			device := seriallog.DefaultDevice
			if len(args) > 0 {
				device = args[0]
			}

			opts := &seriallog.Options{
				Device: device,
				Baud:   baud,
				Output: output,
				Follow: !once,
			}

			if !quiet {
				opts.Echo = cmd.OutOrStdout()
			}

			return seriallog.Run(ctx, opts)
		},
	}

	// identityCmd extracts the fingerprint from a log file.
	identityCmd = &cobra.Command{
		Use:   "identity [log-file]",
		Short: "Print the most recent device fingerprint found in a log file.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := output
			if len(args) > 0 {
				path = args[0]
			}

			return seriallog.Identity(cmd.Context(), path, cmd.OutOrStdout())
		},
	}
)

// Execute runs the zensor-logger CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&output, "output", "o", config.DefaultLogFilename, "log file to append to")
	rootCmd.Flags().IntVarP(&baud, "baud", "b", seriallog.DefaultBaud, "serial line speed")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not echo lines to stdout")
	rootCmd.Flags().BoolVar(&once, "once", false, "stop at end of input")

	rootCmd.AddCommand(identityCmd)
}
