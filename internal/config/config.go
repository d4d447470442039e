// Package config provides watchstate configuration with support for command-line
// flags, environment variables and .env files.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/listenupapp/watchstate/internal/validation"
)

// Watch modes.
const (
	ModeAuto      = "auto"
	ModeFile      = "file"
	ModeDirectory = "directory"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Watch  WatchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `env:"ENV" validate:"oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	// Format overrides the environment-based choice (default: pretty in
	// development, json in production).
	Format string `env:"LOG_FORMAT" validate:"omitempty,oneof=pretty json"`
}

// WatchConfig describes what to watch and how.
type WatchConfig struct {
	Root    string `env:"WATCH_ROOT" validate:"required"`
	Mode    string `env:"WATCH_MODE" validate:"oneof=auto file directory"`
	Backend string `env:"WATCH_BACKEND" validate:"oneof=auto inotify fsnotify"`
	// SettleDelay is how long a path must be quiet before it is reported (default: 100ms).
	SettleDelay time.Duration `env:"WATCH_SETTLE_DELAY" validate:"gte=0"`
	// ReadyTimeout bounds how long startup waits for the notifier (default: 30s, 0 disables).
	ReadyTimeout time.Duration `env:"WATCH_READY_TIMEOUT" validate:"gte=0"`
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return Load(flag.CommandLine, os.Args[1:])
}

// Load is LoadConfig with an explicit flag set and arguments.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (pretty, json)")
	root := fs.String("root", "", "File or directory to watch")
	mode := fs.String("mode", "", "Watch mode (auto, file, directory)")
	backend := fs.String("backend", "", "Notification backend (auto, inotify, fsnotify)")
	settleDelay := fs.String("settle-delay", "", "Quiet period before a change is reported (default: 100ms)")
	readyTimeout := fs.String("ready-timeout", "", "Maximum time to wait for the watcher to become ready (default: 30s)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	// The root may also be given as the first positional argument.
	if *root == "" && fs.NArg() > 0 {
		*root = fs.Arg(0)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  strings.ToLower(getConfigValue(*logLevel, "LOG_LEVEL", "info")),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", ""),
		},
		Watch: WatchConfig{
			Root:    getConfigValue(*root, "WATCH_ROOT", ""),
			Mode:    getConfigValue(*mode, "WATCH_MODE", ModeAuto),
			Backend: getConfigValue(*backend, "WATCH_BACKEND", "auto"),
		},
	}

	var err error
	if cfg.Watch.SettleDelay, err = getDurationConfigValue(*settleDelay, "WATCH_SETTLE_DELAY", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Watch.ReadyTimeout, err = getDurationConfigValue(*readyTimeout, "WATCH_READY_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.expandRoot(); err != nil {
		return nil, fmt.Errorf("invalid watch root: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	return validation.New().Validate(c)
}

// expandPath expands ~ and makes the path absolute.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandRoot expands ~ in the watch root and makes it absolute.
func (c *Config) expandRoot() error {
	expanded, err := expandPath(c.Watch.Root)
	if err != nil {
		return err
	}
	c.Watch.Root = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getDurationConfigValue returns a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey string, defaultValue time.Duration) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
