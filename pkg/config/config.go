// Package config loads platform configuration from file, environment, and
// defaults.
//
// Precedence, highest first: environment variables (INKBASE_*, plus the
// legacy POSTGRES_* and ADMIN_PUBLIC_KEY names), configuration file,
// defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inkbase/inkbase/pkg/store"
)

// Config is the full platform configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server configures the HTTP/WebSocket listener
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Database configures the PostgreSQL store
	Database store.Config `mapstructure:"database" yaml:"database"`

	// Admin identifies the administrator for deletion overrides
	Admin AdminConfig `mapstructure:"admin" yaml:"admin"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level: DEBUG, INFO, WARN, ERROR
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is the log output format: text or json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Host to bind; empty binds all interfaces
	Host string `mapstructure:"host" yaml:"host"`

	// Port for HTTP and WebSocket traffic
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// AdminConfig identifies the administrator.
type AdminConfig struct {
	// PublicKey may delete any message; empty disables the override
	PublicKey string `mapstructure:"public_key" yaml:"public_key,omitempty"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled controls whether /metrics is served
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Load loads configuration from the given file (or the default location
// when empty), the environment, and defaults, then validates it.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills in unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	cfg.Database.ApplyDefaults()
}

// Validate checks the configuration. The database section goes first so
// missing connection parameters surface as ConfigMissing.
func Validate(cfg *Config) error {
	if err := cfg.Database.Validate(); err != nil {
		return err
	}
	validate := validator.New()
	return validate.Struct(cfg)
}

// Default returns the default configuration with database parameters left
// for the environment to fill.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Save writes the configuration as YAML with owner-only permissions.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file carries the database password.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper wires environment variables and the config file search path.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("INKBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The deployment environment uses unprefixed names for the store and
	// the admin key; bind them alongside the INKBASE_ variants.
	_ = v.BindEnv("database.host", "INKBASE_DATABASE_HOST", "POSTGRES_HOST")
	_ = v.BindEnv("database.port", "INKBASE_DATABASE_PORT", "POSTGRES_PORT")
	_ = v.BindEnv("database.database", "INKBASE_DATABASE_DATABASE", "POSTGRES_DB")
	_ = v.BindEnv("database.user", "INKBASE_DATABASE_USER", "POSTGRES_USER")
	_ = v.BindEnv("database.password", "INKBASE_DATABASE_PASSWORD", "POSTGRES_PASSWORD")
	_ = v.BindEnv("admin.public_key", "INKBASE_ADMIN_PUBLIC_KEY", "ADMIN_PUBLIC_KEY")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the config file; a missing file is not an error.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// durationDecodeHook converts strings like "30s" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir prefers XDG_CONFIG_HOME, then ~/.config, then the current
// directory.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "inkbase")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "inkbase")
}

// GetDefaultConfigPath returns the default configuration file location.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
