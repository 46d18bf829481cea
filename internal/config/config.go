package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/config-updater/internal/logger"
	"github.com/oshokin/config-updater/internal/version"
)

// Config holds the settings shared read-only by every update cycle.
type Config struct {
	// SourceURL is the http(s) address of the remote configuration document.
	SourceURL string
	// LocalPath is the managed configuration file.
	LocalPath string
	// PollInterval is the pause between the end of one cycle and the start of the next.
	PollInterval time.Duration
	// MinAcceptableSize is the smallest payload, in bytes, accepted as a configuration.
	MinAcceptableSize int64
	// UserAgent is sent with every fetch.
	UserAgent string
	// PostUpdateHook is run after a new configuration is written.
	PostUpdateHook string
	// OnErrorHook is run after a failed cycle.
	OnErrorHook string
	// LogLevel is the minimum level of emitted log lines.
	LogLevel string
}

// Environment variable names.
const (
	EnvSourceURL      = "SUB_URL"
	EnvLocalPath      = "CONFIG_PATH"
	EnvUpdateInterval = "UPDATE_INTERVAL"
	EnvMinConfigSize  = "MIN_CONFIG_SIZE"
	EnvUserAgent      = "USER_AGENT"
	EnvPostUpdateHook = "POST_UPDATE_HOOK"
	EnvOnErrorHook    = "ON_ERROR_HOOK"
	EnvLogLevel       = "LOG_LEVEL"
)

const (
	// DefaultLocalPath is where the configuration is written when CONFIG_PATH is unset.
	DefaultLocalPath = "/config/config.yaml"

	// DefaultPollInterval is the pause between cycles when UPDATE_INTERVAL is unset.
	DefaultPollInterval = time.Hour

	// DefaultMinConfigSize rejects payloads shorter than 1 KiB.
	DefaultMinConfigSize = 1024

	// DefaultPostUpdateHook is the executable run after a successful write.
	DefaultPostUpdateHook = "/hooks/post-update"

	// DefaultOnErrorHook is the executable run after a failed cycle.
	DefaultOnErrorHook = "/hooks/on-error"

	// DefaultLogLevel is used when LOG_LEVEL is unset.
	DefaultLogLevel = "info"
)

// ErrInvalidConfig marks every startup configuration problem.
var ErrInvalidConfig = errors.New("invalid configuration")

// LookupFunc resolves an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// fileSettings mirrors the settings file. Absent keys keep lower-precedence values.
type fileSettings struct {
	SourceURL      *string `yaml:"sub_url"          toml:"sub_url"`
	LocalPath      *string `yaml:"config_path"      toml:"config_path"`
	UpdateInterval *int64  `yaml:"update_interval"  toml:"update_interval"`
	MinConfigSize  *int64  `yaml:"min_config_size"  toml:"min_config_size"`
	UserAgent      *string `yaml:"user_agent"       toml:"user_agent"`
	PostUpdateHook *string `yaml:"post_update_hook" toml:"post_update_hook"`
	OnErrorHook    *string `yaml:"on_error_hook"    toml:"on_error_hook"`
	LogLevel       *string `yaml:"log_level"        toml:"log_level"`
}

// Default returns the settings used when nothing overrides them.
// SourceURL has no default and must be provided.
func Default() *Config {
	return &Config{
		LocalPath:         DefaultLocalPath,
		PollInterval:      DefaultPollInterval,
		MinAcceptableSize: DefaultMinConfigSize,
		UserAgent:         version.UserAgent(),
		PostUpdateHook:    DefaultPostUpdateHook,
		OnErrorHook:       DefaultOnErrorHook,
		LogLevel:          DefaultLogLevel,
	}
}

// Load reads the optional settings file and the process environment.
func Load(settingsPath string) (*Config, error) {
	return LoadWithLookup(settingsPath, os.LookupEnv)
}

// LoadWithLookup is Load with a custom environment source.
func LoadWithLookup(settingsPath string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if settingsPath != "" {
		if err := applyFile(cfg, settingsPath); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings without changing them. SUB_URL is checked as
// given, so surrounding whitespace fails the scheme check.
func Validate(cfg *Config) error {
	source := cfg.SourceURL
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("%w: %s must be set and non-empty", ErrInvalidConfig, EnvSourceURL)
	}

	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return fmt.Errorf("%w: %s must start with http:// or https://", ErrInvalidConfig, EnvSourceURL)
	}

	if _, err := url.ParseRequestURI(source); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvSourceURL, err)
	}

	if strings.TrimSpace(cfg.LocalPath) == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidConfig, EnvLocalPath)
	}

	if cfg.PollInterval <= 0 {
		return fmt.Errorf("%w: %s must be a positive number of seconds", ErrInvalidConfig, EnvUpdateInterval)
	}

	if cfg.MinAcceptableSize < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, EnvMinConfigSize)
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %s: unknown level %q", ErrInvalidConfig, EnvLogLevel, cfg.LogLevel)
	}

	return nil
}

// applyFile overlays settings from a YAML or TOML file chosen by extension.
func applyFile(cfg *Config, path string) error {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("%w: read settings: %w", ErrInvalidConfig, err)
	}

	var settings fileSettings

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(contents, &settings)
	} else {
		err = yaml.Unmarshal(contents, &settings)
	}

	if err != nil {
		return fmt.Errorf("%w: unmarshal settings %s: %w", ErrInvalidConfig, path, err)
	}

	setString(&cfg.SourceURL, settings.SourceURL)
	setString(&cfg.LocalPath, settings.LocalPath)
	setString(&cfg.UserAgent, settings.UserAgent)
	setString(&cfg.PostUpdateHook, settings.PostUpdateHook)
	setString(&cfg.OnErrorHook, settings.OnErrorHook)
	setString(&cfg.LogLevel, settings.LogLevel)

	if settings.UpdateInterval != nil {
		if cfg.PollInterval, err = secondsToDuration(*settings.UpdateInterval); err != nil {
			return fmt.Errorf("%w: update_interval: %w", ErrInvalidConfig, err)
		}
	}

	if settings.MinConfigSize != nil {
		cfg.MinAcceptableSize = *settings.MinConfigSize
	}

	return nil
}

// applyEnv overlays the environment. Empty optional variables count as unset;
// SUB_URL is taken as-is so that an empty value is reported by Validate.
func applyEnv(cfg *Config, lookup LookupFunc) error {
	if value, ok := lookup(EnvSourceURL); ok {
		cfg.SourceURL = value
	}

	stringVars := map[string]*string{
		EnvLocalPath:      &cfg.LocalPath,
		EnvUserAgent:      &cfg.UserAgent,
		EnvPostUpdateHook: &cfg.PostUpdateHook,
		EnvOnErrorHook:    &cfg.OnErrorHook,
		EnvLogLevel:       &cfg.LogLevel,
	}

	for key, target := range stringVars {
		if value, ok := lookup(key); ok && value != "" {
			*target = value
		}
	}

	if value, ok := lookup(EnvUpdateInterval); ok && value != "" {
		seconds, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number: %w", ErrInvalidConfig, EnvUpdateInterval, err)
		}

		if cfg.PollInterval, err = secondsToDuration(seconds); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvUpdateInterval, err)
		}
	}

	if value, ok := lookup(EnvMinConfigSize); ok && value != "" {
		size, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number: %w", ErrInvalidConfig, EnvMinConfigSize, err)
		}

		cfg.MinAcceptableSize = size
	}

	return nil
}

// errIntervalOutOfRange is returned for intervals that are not positive or overflow time.Duration.
var errIntervalOutOfRange = errors.New("interval out of range")

// maxIntervalSeconds is the largest interval representable as time.Duration.
const maxIntervalSeconds = int64(1<<63-1) / int64(time.Second)

func secondsToDuration(seconds int64) (time.Duration, error) {
	if seconds <= 0 || seconds > maxIntervalSeconds {
		return 0, fmt.Errorf("%d seconds: %w", seconds, errIntervalOutOfRange)
	}

	return time.Duration(seconds) * time.Second, nil
}

func setString(target, value *string) {
	if value != nil {
		*target = *value
	}
}
