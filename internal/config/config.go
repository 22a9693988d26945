// Package config loads taskflow configuration from YAML files and
// TASKFLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultFile is the config file looked up in the working directory when no
// explicit path is given.
const DefaultFile = "taskflow.yaml"

// Config is the complete taskflow configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
}

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig selects the slog level and handler format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WorkflowConfig toggles optional workflow rules.
type WorkflowConfig struct {
	// EnforcePrerequisites blocks in_progress/completed while a prerequisite
	// is open.
	EnforcePrerequisites bool `mapstructure:"enforce_prerequisites"`
	// Notify dispatches delegation notifications to the log.
	Notify bool `mapstructure:"notify"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "taskflow.db"},
		Server:   ServerConfig{Addr: ":8080"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Workflow: WorkflowConfig{
			EnforcePrerequisites: true,
			Notify:               true,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("workflow.enforce_prerequisites", d.Workflow.EnforcePrerequisites)
	v.SetDefault("workflow.notify", d.Workflow.Notify)
}

// Load reads configuration from path. An empty path falls back to
// ./taskflow.yaml if it exists, else to defaults. Environment variables
// such as TASKFLOW_DATABASE_PATH override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TASKFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path: required"))
	}
	return errors.Join(errs...)
}
