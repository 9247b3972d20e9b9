package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nemanja-m/qsubmr/internal/shared/logging"
	"github.com/nemanja-m/qsubmr/pkg/codec"
	"github.com/nemanja-m/qsubmr/pkg/launcher"
	"github.com/nemanja-m/qsubmr/pkg/qsub"
	"github.com/nemanja-m/qsubmr/pkg/scheduler"
)

// Config contains all configuration for the qsubmr command.
type Config struct {
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Launcher  LauncherConfig  `mapstructure:"launcher"`
	Local     LocalConfig     `mapstructure:"local"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Verbose   bool            `mapstructure:"verbose"`
}

// SchedulerConfig selects the batch backend and how jobs are handed to it.
type SchedulerConfig struct {
	Kind            string `mapstructure:"kind"`
	Queue           string `mapstructure:"queue"`
	ExtraOptions    string `mapstructure:"extra_options"`
	CommandTemplate string `mapstructure:"command_template"`
	Shell           string `mapstructure:"shell"`
}

// ArtifactsConfig contains artifact storage configuration.
type ArtifactsConfig struct {
	Dir   string `mapstructure:"dir"`
	Codec string `mapstructure:"codec"`
}

// MessagesConfig contains the job stdout/stderr directory.
type MessagesConfig struct {
	Dir string `mapstructure:"dir"`
}

// LauncherConfig contains launcher script configuration.
type LauncherConfig struct {
	Executable string `mapstructure:"executable"`
	Shell      string `mapstructure:"shell"`
	ScriptDir  string `mapstructure:"script_dir"`
}

// LocalConfig contains configuration for the in-process scheduler.
type LocalConfig struct {
	Workers int `mapstructure:"workers"`
}

// LoggingConfig contains logging-related configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"scheduler":        "scheduler.kind",
	"queue":            "scheduler.queue",
	"extra-options":    "scheduler.extra_options",
	"command-template": "scheduler.command_template",
	"artifact-dir":     "artifacts.dir",
	"codec":            "artifacts.codec",
	"messages-dir":     "messages.dir",
	"executable":       "launcher.executable",
	"script-dir":       "launcher.script_dir",
	"workers":          "local.workers",
	"log-level":        "logging.level",
	"log-format":       "logging.format",
	"verbose":          "verbose",
}

// Load loads the configuration from the given path.
// If configPath is empty, it looks for qsubmr.yaml in the config/ directory.
// Environment variables with QSUBMR_ prefix override config file values and
// flags that were set explicitly override both.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("scheduler.kind", scheduler.KindPBS)
	v.SetDefault("scheduler.queue", qsub.DefaultQueue)
	v.SetDefault("scheduler.extra_options", "")
	v.SetDefault("scheduler.command_template", scheduler.DefaultCommandTemplate)
	v.SetDefault("scheduler.shell", scheduler.DefaultShell)
	v.SetDefault("artifacts.dir", qsub.DefaultArtifactDir)
	v.SetDefault("artifacts.codec", codec.NameJSON)
	v.SetDefault("messages.dir", qsub.DefaultMessagesDir)
	v.SetDefault("launcher.executable", "")
	v.SetDefault("launcher.shell", launcher.DefaultShell)
	v.SetDefault("launcher.script_dir", "")
	v.SetDefault("local.workers", 4)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", logging.FormatText)
	v.SetDefault("verbose", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("qsubmr")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("QSUBMR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("error binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// SubmitOptions converts the configuration into per-submission options.
// Relative directories are resolved against the working directory.
func (c *Config) SubmitOptions() (qsub.Options, error) {
	artifacts, err := filepath.Abs(c.Artifacts.Dir)
	if err != nil {
		return qsub.Options{}, fmt.Errorf("resolve artifact directory: %w", err)
	}
	messages, err := filepath.Abs(c.Messages.Dir)
	if err != nil {
		return qsub.Options{}, fmt.Errorf("resolve messages directory: %w", err)
	}
	return qsub.Options{
		Queue:        c.Scheduler.Queue,
		ExtraOptions: c.Scheduler.ExtraOptions,
		ArtifactDir:  artifacts,
		MessagesDir:  messages,
		Codec:        c.Artifacts.Codec,
		Verbose:      c.Verbose,
	}, nil
}

// SchedulerConfig builds the scheduler configuration.
func (c *Config) SchedulerConfig(logger logging.Logger) scheduler.Config {
	return scheduler.Config{
		Kind:            c.Scheduler.Kind,
		CommandTemplate: c.Scheduler.CommandTemplate,
		Shell:           c.Scheduler.Shell,
		Workers:         c.Local.Workers,
		Logger:          logger,
	}
}

func (c *Config) LauncherConfig() launcher.Config {
	return launcher.Config{
		Executable: c.Launcher.Executable,
		Shell:      c.Launcher.Shell,
		ScriptDir:  c.Launcher.ScriptDir,
	}
}
