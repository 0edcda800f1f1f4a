package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/passkit/internal/config"
	"github.com/oshokin/passkit/internal/logger"
	"github.com/oshokin/passkit/internal/version"
)

var (
	// configPath to the settings YAML file.
	configPath string
	// logLevel overrides log_level from settings.
	logLevel string
	// logFormat overrides log_format from settings.
	logFormat string

	// rootCmd represents the base command grouping pass archive tooling.
	rootCmd = &cobra.Command{
		Use:   "pkpass",
		Short: "Build, sign and verify Apple Wallet pass archives.",
		Long: `Packages a pass source directory into a signed .pkpass archive.

A source directory holds pass.json, optional personalization.json and image assets.
Every file is listed in manifest.json with its SHA-1 digest; the manifest is signed
with the pass type certificate and the result is zipped into a flat archive.
Settings are read from pkpass.yaml in the working directory when present.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogger,
	}

	errUnknownLogLevel  = errors.New("unknown log level")
	errUnknownLogFormat = errors.New("unknown log format")
)

// Execute runs the pkpass CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "path to configuration file (default "+config.DefaultConfigFilename+" when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")

	rootCmd.AddCommand(newBuildCommand(), newBatchCommand(), newVerifyCommand(), newInitCommand())
}

// setupLogger applies log settings from the settings file and flags.
func setupLogger(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	if logLevel == "" {
		logLevel = cfg.LogLevel
	}

	if logFormat == "" {
		logFormat = cfg.LogFormat
	}

	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, logLevel)
	}

	format, ok := logger.ParseFormat(logFormat)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogFormat, logFormat)
	}

	logger.SetLevel(level)
	logger.SetLogger(logger.New(nil, format, nil))

	return nil
}

// signalContext cancels on SIGTERM and SIGINT.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}
