package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dump-analysis/pkg/config"
	"github.com/dump-analysis/pkg/errors"
	"github.com/dump-analysis/pkg/telemetry"
	"github.com/dump-analysis/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger utils.Logger = &utils.NullLogger{}
	cfg                 = config.Default()

	// exitCode is the report severity set by commands that produce a report.
	exitCode int

	shutdownTelemetry func(context.Context) error
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dump-analysis",
	Short: "Analyze JVM thread dumps and class histograms",
	Long: `dump-analysis inspects one or more JVM thread dumps, optionally with a class
histogram, and prints a plain-text report.

The process exit code is the highest severity any analyzer reported, so the tool
can gate scripts and alerts:
  0  nothing noteworthy
  1  a threshold was crossed (blocked threads, hot frame, heap size)
  2  a deadlock was found
  3  configuration error, reported before any analysis
  4  the dumps could not be collected from the JVM`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return errors.Wrap(errors.CodeConfigError, "invalid configuration", err)
		}
		cfg = loaded

		logLevel := utils.ParseLogLevel(cfg.Log.Level)
		if verbose {
			logLevel = utils.LevelDebug
		}
		// Stdout carries the report.
		logger = utils.NewDefaultLogger(logLevel, os.Stderr)
		utils.SetGlobalLogger(logger)

		shutdown, err := telemetry.Init(cmd.Context(), nil)
		if err != nil {
			logger.Warn("tracing disabled: %v", err)
			return nil
		}
		shutdownTelemetry = shutdown
		return nil
	},
}

// Execute runs the command line and returns the process exit code.
// Errors are printed as "Error: <message>" on stderr.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	flushTelemetry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errors.Describe(err))
	}
	return exitStatus(err)
}

// exitStatus combines the report severity with a command failure. An error
// after the report was printed never lowers the severity it carries.
func exitStatus(err error) int {
	if err == nil {
		return exitCode
	}
	return max(exitCode, errors.ProcessExitCode(err))
}

func flushTelemetry() {
	if shutdownTelemetry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTelemetry(ctx); err != nil {
		logger.Warn("failed to flush traces: %v", err)
	}
	shutdownTelemetry = nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./dump-analysis.yaml)")

	// Unknown flags and bad flag values are configuration errors.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.New(errors.CodeConfigError, err.Error())
	})

	// Set dynamic example using actual binary name
	binName := BinName()
	rootCmd.Example = `  # Status, Deadlock and Threads for one dump
  ` + binName + ` analyze dump.txt

  # Hot frames across three dumps, failing when one frame holds 60% of samples
  ` + binName + ` analyze -a most-work --concentration 60 d1.txt d2.txt d3.txt

  # Sample a running JVM three times, five seconds apart
  ` + binName + ` analyze --pid 4242 --count 3 --interval 5s

  # Archive raw dumps and histogram to the configured storage
  ` + binName + ` collect --pid 4242 --histogram --prefix prod/orders`
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}

// configArgs wraps a cobra argument validator so its failures are configuration errors.
func configArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return errors.New(errors.CodeConfigError, err.Error())
		}
		return nil
	}
}
