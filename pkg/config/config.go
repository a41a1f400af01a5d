// Package config provides configuration management for the dump-analysis tool.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DUMP_ANALYSIS_LOG_LEVEL.
const EnvPrefix = "DUMP_ANALYSIS"

// Config holds all configuration for the application.
type Config struct {
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Collection CollectionConfig `mapstructure:"collection"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// AnalysisConfig holds analyzer selection and option defaults.
type AnalysisConfig struct {
	Analyzers        []string      `mapstructure:"analyzers"`
	BusinessPackages []string      `mapstructure:"business_packages"`
	Options          OptionsConfig `mapstructure:"options"`
}

// OptionsConfig mirrors the analyzer options. Keys match the CLI flag names.
type OptionsConfig struct {
	Top              int     `mapstructure:"top"`
	BlockedThreshold int     `mapstructure:"blocked-threshold"`
	Granularity      string  `mapstructure:"granularity"`
	StackDepth       int     `mapstructure:"stack-depth"`
	Concentration    float64 `mapstructure:"concentration"`
	MinPercent       float64 `mapstructure:"min-percent"`
	FlameFormat      string  `mapstructure:"flame-format"`
	ExcludeDaemon    bool    `mapstructure:"exclude-daemon"`
	HeapThreshold    string  `mapstructure:"heap-threshold"` // e.g. "2GiB"
}

// CollectionConfig holds defaults for collecting snapshots from a live JVM.
type CollectionConfig struct {
	Count     int           `mapstructure:"count"`
	Interval  time.Duration `mapstructure:"interval"`
	Tool      string        `mapstructure:"tool"` // jstack or jcmd
	Histogram bool          `mapstructure:"histogram"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Persist   bool          `mapstructure:"persist"`
}

// StorageConfig holds snapshot archive configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Prefix    string `mapstructure:"prefix"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	Endpoint  string `mapstructure:"endpoint"`   // full bucket URL, overrides bucket/region/domain
	LocalPath string `mapstructure:"local_path"` // for local storage
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig holds metrics export configuration.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Supported live collection tools.
const (
	ToolJstack = "jstack"
	ToolJcmd   = "jcmd"
)

// Load reads configuration from the specified file path.
// A missing file is not an error: defaults and environment overrides still apply.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("dump-analysis")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "dump-analysis"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromReader loads configuration from an in-memory document (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return decode(v)
}

// Default returns the built-in defaults, ignoring files and environment.
// It panics if the defaults do not decode into Config.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: invalid built-in defaults: %v", err))
	}
	return &cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Analysis defaults
	v.SetDefault("analysis.analyzers", []string{})
	v.SetDefault("analysis.business_packages", []string{})
	v.SetDefault("analysis.options.top", 10)
	v.SetDefault("analysis.options.blocked-threshold", 0)
	v.SetDefault("analysis.options.granularity", "line")
	v.SetDefault("analysis.options.stack-depth", 1)
	v.SetDefault("analysis.options.concentration", 0)
	v.SetDefault("analysis.options.min-percent", 0)
	v.SetDefault("analysis.options.flame-format", "tree")
	v.SetDefault("analysis.options.exclude-daemon", false)
	v.SetDefault("analysis.options.heap-threshold", "")

	// Collection defaults
	v.SetDefault("collection.count", 3)
	v.SetDefault("collection.interval", 5*time.Second)
	v.SetDefault("collection.tool", ToolJstack)
	v.SetDefault("collection.histogram", false)
	v.SetDefault("collection.timeout", 30*time.Second)
	v.SetDefault("collection.persist", false)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.prefix", "snapshots")
	v.SetDefault("storage.local_path", "./storage")

	// Log defaults
	v.SetDefault("log.level", "info")
}

// Validate validates the configuration.
// Analyzer option values are validated by the analyzer package.
func (c *Config) Validate() error {
	if c.Collection.Count < 1 {
		return fmt.Errorf("collection count must be at least 1, got %d", c.Collection.Count)
	}
	if c.Collection.Interval < 0 {
		return fmt.Errorf("collection interval must not be negative, got %s", c.Collection.Interval)
	}
	if c.Collection.Timeout < 0 {
		return fmt.Errorf("collection timeout must not be negative, got %s", c.Collection.Timeout)
	}
	switch c.Collection.Tool {
	case ToolJstack, ToolJcmd:
	default:
		return fmt.Errorf("unsupported collection tool: %s", c.Collection.Tool)
	}

	// Storage config validation is delegated to storage package

	return nil
}
