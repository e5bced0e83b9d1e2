// Package config loads settings from defaults, an optional config.yaml, a .env file and the environment.
//
// Environment variables use the WCIVF_ prefix with dots replaced by underscores,
// e.g. WCIVF_YNR_BASE_URL. DATABASE_URL and PORT are also read without the prefix.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultYNRBaseURL = "https://candidates.democracyclub.org.uk"
	DefaultEEBaseURL  = "https://elections.democracyclub.org.uk"
	DefaultPageSize   = 200
)

// Config is the resolved process configuration
type Config struct {
	DatabaseURL string
	YNRBaseURL  string
	EEBaseURL   string
	PageSize    int
	HTTPTimeout time.Duration
	Port        string
	Log         LogConfig
	Telemetry   TelemetryConfig
}

// LogConfig controls the logrus logger
type LogConfig struct {
	Level  string
	Format string
}

// TelemetryConfig controls the OpenTelemetry providers
type TelemetryConfig struct {
	Enabled      bool
	Stdout       bool
	OTLPEndpoint string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "")
	v.SetDefault("ynr.base_url", DefaultYNRBaseURL)
	v.SetDefault("ee.base_url", DefaultEEBaseURL)
	v.SetDefault("import.page_size", DefaultPageSize)
	v.SetDefault("http.timeout", 120*time.Second)
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.stdout", false)
	v.SetDefault("telemetry.otlp_endpoint", "")
}

// New builds a viper instance with defaults and environment bindings but no files
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WCIVF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// unprefixed names used by hosting platforms
	_ = v.BindEnv("database_url", "WCIVF_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("port", "WCIVF_PORT", "PORT")

	return v
}

// Load reads .env and config files into v and resolves the Config.
// configFile may be empty, in which case config.yaml in the working directory is used if present.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper resolves the Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL: v.GetString("database_url"),
		YNRBaseURL:  strings.TrimRight(v.GetString("ynr.base_url"), "/"),
		EEBaseURL:   strings.TrimRight(v.GetString("ee.base_url"), "/"),
		PageSize:    v.GetInt("import.page_size"),
		HTTPTimeout: v.GetDuration("http.timeout"),
		Port:        v.GetString("port"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      v.GetBool("telemetry.enabled"),
			Stdout:       v.GetBool("telemetry.stdout"),
			OTLPEndpoint: v.GetString("telemetry.otlp_endpoint"),
		},
	}

	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("import.page_size must be positive, got %d", cfg.PageSize)
	}
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("http.timeout must be positive, got %s", cfg.HTTPTimeout)
	}

	return cfg, nil
}

// RequireDatabase returns an error if no database URL is configured
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	return nil
}
