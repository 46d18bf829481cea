package updater

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/oshokin/config-updater/internal/config"
	"github.com/oshokin/config-updater/internal/logger"
	"github.com/oshokin/config-updater/internal/repository/configfile"
	"github.com/oshokin/config-updater/internal/service/common"
	"github.com/oshokin/config-updater/internal/service/fetcher"
	"github.com/oshokin/config-updater/internal/service/hook"
	"github.com/oshokin/config-updater/internal/version"
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// SettingsPath is an optional YAML or TOML settings file.
	SettingsPath string
	// LogLevel overrides LOG_LEVEL when set.
	LogLevel string
	// Lookup resolves environment variables; nil means the process environment.
	Lookup config.LookupFunc
}

// Run loads the configuration, claims the managed file and runs the update
// loop until ctx is cancelled. Configuration errors match config.ErrInvalidConfig.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "config-updater")

	cfg, err := config.LoadWithLookup(opts.SettingsPath, opts.lookup())
	if err != nil {
		return err
	}

	level, _ := logger.ParseLogLevel(cfg.LogLevel)
	logger.SetLevel(level)

	logStartup(ctx, cfg)

	marker := newInstanceMarker(cfg.LocalPath)
	if err = marker.acquire(ctx); err != nil {
		return err
	}

	defer marker.release(ctx)

	var (
		hooks     = hook.NewRunner()
		repo      = configfile.NewFileRepository(cfg.LocalPath)
		cycle     = NewCycle(cfg, fetcher.New(), repo, hooks)
		scheduler = NewScheduler(cycle, hooks, cfg)
	)

	logger.Info(ctx, "Starting update loop")

	if err = scheduler.Run(ctx); err != nil {
		return fmt.Errorf("update loop: %w", err)
	}

	logger.Info(ctx, "The updater has been stopped")

	return nil
}

// lookup returns the environment source with the log level override applied.
func (o *Options) lookup() config.LookupFunc {
	lookup := o.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if o.LogLevel == "" {
		return lookup
	}

	return func(key string) (string, bool) {
		if key == config.EnvLogLevel {
			return o.LogLevel, true
		}

		return lookup(key)
	}
}

// logStartup prints the effective settings. The full source URL usually
// carries a subscription token, so only its host is logged above debug.
func logStartup(ctx context.Context, cfg *config.Config) {
	actor, err := common.DetectActor()
	if err != nil {
		logger.DebugKV(ctx, "Unable to detect actor", "error", err)
	}

	logger.InfoKV(ctx, "Config updater started",
		"version", version.Short(),
		"pid", os.Getpid(),
		"actor", actor.String(),
		"source_host", sourceHost(cfg.SourceURL),
		"path", cfg.LocalPath,
		"interval", cfg.PollInterval.String(),
	)

	logger.DebugKV(ctx, "Effective configuration",
		"source", cfg.SourceURL,
		"min_size", cfg.MinAcceptableSize,
		"user_agent", cfg.UserAgent,
		"post_update_hook", cfg.PostUpdateHook,
		"on_error_hook", cfg.OnErrorHook,
	)
}

func sourceHost(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	return parsed.Host
}
