// Package config loads the CLI's operational configuration: logging,
// the vault path to operate on, the metadata cache flush interval, and
// the metrics bind address. This is distinct from the AEAD-sealed
// per-vault config.json that pkg/bijou/keystore owns — that file holds
// vault-intrinsic parameters (block size, algorithm choice, name
// encryption) sealed under the vault's own master key, while this one is
// plaintext operator configuration read before a vault is even opened.
//
// Sources, in order of precedence: CLI flags (applied by the caller,
// not this package), environment variables (BIJOU_*), a YAML config
// file, and finally the defaults below. Environment variables only
// override keys that the config file sets; when no config file is
// found, they are not read.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/bijoufs/internal/bytesize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the CLI's operational configuration.
type Config struct {
	// Logging controls internal/logger's output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// VaultPath is the directory of the vault to operate on.
	VaultPath string `mapstructure:"vault_path" validate:"required" yaml:"vault_path"`

	// Cache configures the metadata cache's WAL flush policy.
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Metrics configures the in-process metrics registry the CLI's
	// status command snapshots (no HTTP listener; §6's metrics are
	// in-process only).
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls internal/logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// CacheConfig controls the metadata cache's flush policy.
type CacheConfig struct {
	// FlushInterval is the maximum time dirty cache entries are allowed
	// to sit before a background flush.
	FlushInterval time.Duration `mapstructure:"flush_interval" validate:"required,gt=0" yaml:"flush_interval"`

	// FlushThreshold is the dirty-byte watermark that triggers an
	// immediate flush ahead of FlushInterval. Accepts human-readable
	// sizes ("4MiB", "64KB").
	FlushThreshold bytesize.ByteSize `mapstructure:"flush_threshold" yaml:"flush_threshold"`
}

// MetricsConfig controls the in-process Prometheus registry.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
}

// Load reads configuration from configPath (or the default location if
// empty), environment variables, and defaults, then validates it.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHooks())); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks cfg against its struct tags via go-playground/validator.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		VaultPath: filepath.Join(defaultHomeDir(), ".bijou", "vault"),
		Cache: CacheConfig{
			FlushInterval:  5 * time.Second,
			FlushThreshold: 4 * bytesize.MiB,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: "127.0.0.1:0",
		},
	}
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("BIJOU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(defaultConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch val := data.(type) {
		case string:
			return bytesize.ParseByteSize(val)
		case int:
			return bytesize.ByteSize(val), nil
		case int64:
			return bytesize.ByteSize(val), nil
		case float64:
			return bytesize.ByteSize(val), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch val := data.(type) {
		case string:
			return time.ParseDuration(val)
		case int:
			return time.Duration(val), nil
		case int64:
			return time.Duration(val), nil
		case float64:
			return time.Duration(val), nil
		default:
			return data, nil
		}
	}
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bijou")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "bijou")
}

func defaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}

// Save writes cfg to path in YAML form with owner-only permissions.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
