package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/config-updater/internal/config"
	"github.com/oshokin/config-updater/internal/logger"
	"github.com/oshokin/config-updater/internal/service/updater"
	"github.com/oshokin/config-updater/internal/version"
)

var (
	// settingsPath to an optional YAML or TOML settings file.
	settingsPath string

	// logLevel overrides LOG_LEVEL.
	logLevel string

	// rootCmd represents the base command for keeping a configuration file in sync.
	rootCmd = &cobra.Command{
		Use:   "config-updater",
		Short: "Keep a local configuration file in sync with a remote subscription URL",
		Long: "Periodically downloads the document at SUB_URL, replaces CONFIG_PATH when it changes, " +
			"runs POST_UPDATE_HOOK and rolls back if the hook fails.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			fmt.Fprintf(os.Stderr, "config-updater %s starting\n", version.Short())

			options := &updater.Options{
				SettingsPath: settingsPath,
				LogLevel:     logLevel,
			}

			return updater.Run(ctx, options)
		},
	}
)

// Execute runs the config-updater CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.Execute()

	logger.Sync()

	if err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// reportError prints err to stderr, with hints for configuration mistakes.
func reportError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	if !errors.Is(err, config.ErrInvalidConfig) {
		return
	}

	fmt.Fprintln(os.Stderr, "Hints:")
	fmt.Fprintf(os.Stderr, "  - set %s to the subscription URL\n", config.EnvSourceURL)
	fmt.Fprintln(os.Stderr, "  - the URL must start with http:// or https://")
	fmt.Fprintf(os.Stderr, "  - %s must be a positive number of seconds\n", config.EnvUpdateInterval)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&settingsPath, "settings", "s", "", "path to an optional YAML or TOML settings file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level override: debug, info, warn or error")
}
