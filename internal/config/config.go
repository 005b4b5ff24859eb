// Package config loads the explicit configuration struct passed to every
// component constructor. There is no package-level mutable state: Load
// returns a value and callers thread it through.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	// DBPath is the registry database file. The advisory write lock lives
	// next to it at DBPath + ".lock".
	DBPath string `mapstructure:"db_path"`

	// LockTimeoutSeconds bounds how long a writer waits for the advisory
	// lock before failing with a store error.
	LockTimeoutSeconds int `mapstructure:"lock_timeout_seconds"`

	LogLevel string `mapstructure:"log_level"`

	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Planner   PlannerConfig   `mapstructure:"planner"`
}

// SchedulerConfig configures the external batch scheduler client.
type SchedulerConfig struct {
	// User whose queue is reconciled against. Defaults to $USER.
	User string `mapstructure:"user"`

	// QueueBin lists the user's active jobs; IntrospectBin retrieves one
	// job's submitted command.
	QueueBin      string `mapstructure:"queue_bin"`
	IntrospectBin string `mapstructure:"introspect_bin"`

	// TimeoutSeconds bounds each scheduler CLI call. On timeout the
	// reconciler degrades to an empty in-flight set.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`

	// ManifestFlag is the flag jobs use to reference their work manifest.
	ManifestFlag string `mapstructure:"manifest_flag"`
}

// PlannerConfig configures retry batch generation.
type PlannerConfig struct {
	// WorkerCommand is the invocation prefix written into submission
	// lines, one per manifest.
	WorkerCommand string `mapstructure:"worker_command"`

	// OutputDir is the default parent for per-run retry directories.
	OutputDir string `mapstructure:"output_dir"`
}

// Load reads configuration from cfgFile (or $HOME/.requeue/config.yaml and
// ./config.yaml when empty), environment variables prefixed REQUEUE_, and
// built-in defaults, in ascending precedence of defaults < file < env.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	home, _ := os.UserHomeDir()
	v.SetDefault("db_path", filepath.Join(home, ".requeue", "registry.db"))
	v.SetDefault("lock_timeout_seconds", 60)
	v.SetDefault("log_level", "info")
	v.SetDefault("scheduler.user", os.Getenv("USER"))
	v.SetDefault("scheduler.queue_bin", "squeue")
	v.SetDefault("scheduler.introspect_bin", "scontrol")
	v.SetDefault("scheduler.timeout_seconds", 15)
	v.SetDefault("scheduler.manifest_flag", "--manifest")
	v.SetDefault("planner.worker_command", "process_batch.sh")
	v.SetDefault("planner.output_dir", ".")

	v.SetEnvPrefix("REQUEUE")
	// Nested keys use dots internally but underscores in env names
	// (scheduler.user -> REQUEUE_SCHEDULER_USER).
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home != "" {
			v.AddConfigPath(filepath.Join(home, ".requeue"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No config file is fine; defaults and env apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.LockTimeoutSeconds <= 0 {
		return fmt.Errorf("lock_timeout_seconds must be positive, got %d", c.LockTimeoutSeconds)
	}
	if c.Scheduler.TimeoutSeconds <= 0 {
		return fmt.Errorf("scheduler.timeout_seconds must be positive, got %d", c.Scheduler.TimeoutSeconds)
	}
	return nil
}
