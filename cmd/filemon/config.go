package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// options holds the resolved watch configuration. Precedence, highest first:
// command-line flags, FILEMON_* environment variables, config file, defaults.
type options struct {
	BufferSize    int
	RetryAttempts int
	RetryBackoff  time.Duration
	Backend       string
	Journal       string
	DashboardPort int
	LogFile       string
	NoColor       bool
}

// defaultBackend picks the native event stream where it exists.
func defaultBackend() string {
	if runtime.GOOS == "linux" {
		return "native"
	}
	return "fsnotify"
}

// loadOptions resolves configuration for cmd from flags, environment, and an
// optional config file (--config, or ./filemon.yaml if present).
func loadOptions(cmd *cobra.Command) (*options, error) {
	v := viper.New()

	v.SetDefault("buffer_size", 64*1024)
	v.SetDefault("retry_attempts", 3)
	v.SetDefault("retry_backoff", "100ms")
	v.SetDefault("backend", defaultBackend())
	v.SetDefault("journal", "")
	v.SetDefault("dashboard_port", 0)
	v.SetDefault("log_file", "")
	v.SetDefault("no_color", false)

	v.SetEnvPrefix("FILEMON")
	v.AutomaticEnv()

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("filemon")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// A missing default config file is fine.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	bindings := map[string]string{
		"buffer_size":    "buffer-size",
		"retry_attempts": "retry-attempts",
		"retry_backoff":  "retry-backoff",
		"backend":        "backend",
		"journal":        "journal",
		"dashboard_port": "dashboard-port",
		"log_file":       "log-file",
		"no_color":       "no-color",
	}
	for key, flag := range bindings {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
			}
		}
	}

	opts := &options{
		BufferSize:    v.GetInt("buffer_size"),
		RetryAttempts: v.GetInt("retry_attempts"),
		RetryBackoff:  v.GetDuration("retry_backoff"),
		Backend:       v.GetString("backend"),
		Journal:       v.GetString("journal"),
		DashboardPort: v.GetInt("dashboard_port"),
		LogFile:       v.GetString("log_file"),
		NoColor:       v.GetBool("no_color"),
	}

	if opts.BufferSize <= 0 {
		return nil, fmt.Errorf("buffer_size must be positive, got %d", opts.BufferSize)
	}
	if opts.Backend != "native" && opts.Backend != "fsnotify" {
		return nil, fmt.Errorf("unknown backend %q (expected native or fsnotify)", opts.Backend)
	}

	return opts, nil
}
