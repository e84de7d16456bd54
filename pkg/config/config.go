// Package config loads the advisor's runtime configuration with a
// viper + godotenv pattern, pared down to the sections a batch
// index-selection run actually needs: database connectivity, advisor
// tuning knobs, and logging.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"indexadvisor/pkg/errors"
)

// Config holds all advisor configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Advisor  AdvisorConfig  `mapstructure:"advisor"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DatabaseConfig describes the target database the cost oracle talks
// to. It must support the hypopg extension.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Name           string        `mapstructure:"name"`
	SSLMode        string        `mapstructure:"ssl_mode"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// AdvisorConfig holds the selection engine's tuning knobs: the
// termination and threshold parameters that govern how a run ends.
type AdvisorConfig struct {
	// MinCostFactor is the minimum fractional cost improvement (of
	// the current workload cost, with already-accepted indexes in
	// place) a candidate must deliver to be accepted in a given round.
	MinCostFactor float64 `mapstructure:"min_cost_factor"`
	// MaxIndexWidth caps how many columns a candidate index may have.
	MaxIndexWidth int `mapstructure:"max_index_width"`
	// MemoryBudgetBytes is the total storage budget available to
	// accepted indexes.
	MemoryBudgetBytes int64 `mapstructure:"memory_budget_bytes"`
	// WorkloadPath is the default captured-workload log, overridable
	// by the -workload flag.
	WorkloadPath string `mapstructure:"workload_path"`
	// OutputPath is where the action script is written.
	OutputPath string `mapstructure:"output_path"`
	// AutoCommit is loaded from configuration, but nothing in the
	// advisor reads it: the action script's statements are only
	// written out, never executed against the database.
	AutoCommit bool `mapstructure:"auto_commit"`
	// RunTimeout bounds the whole advisor run.
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from environment variables, an optional
// .env file, and an optional config.yaml. Environment variables
// override config.yaml values, which override the defaults; a .env
// file only sets variables not already present in the environment.
func Load() (*Config, error) {
	if err := loadRuntimeEnv(); err != nil {
		return nil, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	viper.BindEnv("database.host", "ADVISOR_DATABASE_HOST")
	viper.BindEnv("database.port", "ADVISOR_DATABASE_PORT")
	viper.BindEnv("database.user", "ADVISOR_DATABASE_USER")
	viper.BindEnv("database.password", "ADVISOR_DATABASE_PASSWORD")
	viper.BindEnv("database.name", "ADVISOR_DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "ADVISOR_DATABASE_SSL_MODE")
	viper.BindEnv("database.url", "DATABASE_URL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func loadRuntimeEnv() error {
	customEnvPath := strings.TrimSpace(os.Getenv("ADVISOR_ENV_FILE"))
	if customEnvPath != "" {
		if err := godotenv.Load(customEnvPath); err != nil {
			return fmt.Errorf("failed to load ADVISOR_ENV_FILE '%s': %w", customEnvPath, err)
		}
		return nil
	}
	_ = godotenv.Load()
	return nil
}

func setDefaults() {
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.name", "advisor")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.connect_timeout", 10*time.Second)

	viper.SetDefault("advisor.min_cost_factor", 0.01)
	viper.SetDefault("advisor.max_index_width", 3)
	viper.SetDefault("advisor.memory_budget_bytes", int64(1<<30)) // 1 GiB
	viper.SetDefault("advisor.workload_path", "")
	viper.SetDefault("advisor.output_path", "actions.sql")
	viper.SetDefault("advisor.auto_commit", false)
	viper.SetDefault("advisor.run_timeout", 30*time.Minute)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Port <= 0 || config.Database.Port > 65535 {
			return fmt.Errorf("database port must be between 1 and 65535")
		}
		if config.Database.Name == "" {
			return fmt.Errorf("database name is required")
		}
	}
	if config.Advisor.MaxIndexWidth <= 0 {
		return fmt.Errorf("advisor max_index_width must be positive")
	}
	if config.Advisor.MemoryBudgetBytes <= 0 {
		return errors.NewBudgetError("advisor memory_budget_bytes must be positive",
			fmt.Sprintf("value=%d", config.Advisor.MemoryBudgetBytes))
	}
	if config.Advisor.MinCostFactor < 0 {
		return fmt.Errorf("advisor min_cost_factor must be non-negative")
	}
	return nil
}
