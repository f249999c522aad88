// Package cli implements the contractd command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/contractd/pkg/config"
	"github.com/getmockd/contractd/pkg/logging"
)

var (
	// Persistent flags available to all subcommands
	configFile string
	logLevel   string
	logFormat  string
	logFile    string
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"

	// Resolved by the root command before any subcommand runs.
	cfg      *config.Config
	logger   = logging.Nop()
	closeLog = func() error { return nil }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "contractd",
	Short: "contractd verifies and stubs consumer-driven contracts",
	Long: `contractd reads YAML contracts and uses them to validate producer output,
generate WireMock stubs and answer messages over MQTT.

Configuration is read from contractd.yaml in the working directory (or --config),
then CONTRACTD_* environment variables, then flags.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = closeLog()
	},
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: contractd.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}

// setup resolves the configuration and the logger. Flags win over the
// file and the environment.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Logging.Level = logLevel
	}
	if logFormat != "" {
		loaded.Logging.Format = logFormat
	}
	if logFile != "" {
		loaded.Logging.File = logFile
	}

	lc := loaded.LoggingConfig()
	lc.Output = cmd.ErrOrStderr()
	log, closeFn, err := logging.Open(lc)
	if err != nil {
		return err
	}

	cfg = loaded
	logger = log.With("command", cmd.Name())
	closeLog = closeFn
	return nil
}

// componentLogger scopes the command logger to a component.
func componentLogger(name string) *slog.Logger {
	return logger.With("component", name)
}
