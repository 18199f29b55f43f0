package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the settings of the roster service and CLI
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Solver   SolverConfig   `mapstructure:"solver"`
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	GinMode      string `mapstructure:"gin_mode"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

// Addr is the listen address for the configured port
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// DatabaseConfig selects postgres when URL is set, sqlite at Path otherwise
type DatabaseConfig struct {
	URL  string `mapstructure:"url"`
	Path string `mapstructure:"path"`
}

// LogConfig logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SolverConfig controls automated planning runs
type SolverConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRunsHistory int           `mapstructure:"max_runs_history"`
}

// envPaths are tried in order; the first .env found is loaded
var envPaths = []string{".env", "../.env", "../../.env"}

// Load reads configuration with precedence env > file > defaults. An empty path looks
// for config.yaml in ./config and the working directory; a missing file is not an error.
func Load(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("server.max_body_bytes", 4<<20)
	v.SetDefault("database.url", "")
	v.SetDefault("database.path", "roster.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("solver.timeout", "30s")
	v.SetDefault("solver.max_runs_history", 30)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ROSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// plain variables used by hosting platforms
	_ = v.BindEnv("server.port", "ROSTER_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.gin_mode", "ROSTER_SERVER_GIN_MODE", "GIN_MODE")
	_ = v.BindEnv("database.url", "ROSTER_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("database.path", "ROSTER_DATABASE_PATH", "DATA_PATH")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid config: server.gin_mode must be debug, release or test, got %q", c.Server.GinMode)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid config: log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Database.URL == "" && c.Database.Path == "" {
		return errors.New("invalid config: one of database.url or database.path is required")
	}
	if c.Solver.MaxRunsHistory < 0 {
		return fmt.Errorf("invalid config: solver.max_runs_history must not be negative, got %d", c.Solver.MaxRunsHistory)
	}
	return nil
}

func loadDotEnv() {
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}
