// Package config loads the daemon/client configuration. The shape mirrors
// the TOML file used by the original command-line-assistant project;
// loading is layered the way the teacher repo layers it: godotenv for local
// overrides, viper for defaults/env binding/file parsing, then a validation
// pass that rejects unknown enum values instead of silently coercing them.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the frozen, typed configuration consumed by every component.
// Callers should treat the returned value as read-only; nothing in this
// package mutates a Config after Load returns it.
type Config struct {
	Output         OutputConfig         `mapstructure:"output"`
	History        HistoryConfig        `mapstructure:"history"`
	Backend        BackendConfig        `mapstructure:"backend"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Redis          RedisConfig          `mapstructure:"redis"`
	HealthEndpoint HealthEndpointConfig `mapstructure:"health_endpoint"`
	Bus            BusConfig            `mapstructure:"bus"`
}

type OutputConfig struct {
	EnforceScript   bool   `mapstructure:"enforce_script"`
	File            string `mapstructure:"file"`
	PromptSeparator string `mapstructure:"prompt_separator"`
}

type DatabaseConfig struct {
	Type             string `mapstructure:"type"` // sqlite, mysql, postgresql
	Host             string `mapstructure:"host"`
	Database         string `mapstructure:"database"`
	Port             int    `mapstructure:"port"`
	User             string `mapstructure:"user"`
	Password         string `mapstructure:"password"`
	ConnectionString string `mapstructure:"connection_string"`
	MaxOpenConns     int    `mapstructure:"max_open_conns"`
	MaxIdleConns     int    `mapstructure:"max_idle_conns"`
	AcquireTimeout   int    `mapstructure:"acquire_timeout_seconds"`
}

type HistoryConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Database DatabaseConfig `mapstructure:"database"`
}

type BackendConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	VerifySSL bool   `mapstructure:"verify_ssl"`
}

type LoggingConfig struct {
	Level           string                     `mapstructure:"level"`
	Responses       bool                       `mapstructure:"responses"`
	Question        bool                       `mapstructure:"question"`
	AuditVerbose    bool                       `mapstructure:"audit_verbose"`
	Users           map[string]map[string]bool `mapstructure:"users"`
	AuditFilePath   string                     `mapstructure:"audit_file_path"`
	SyslogIdentifer string                     `mapstructure:"syslog_identifier"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type HealthEndpointConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type BusConfig struct {
	SocketPath string `mapstructure:"socket_path"`
}

var allowedLogLevels = map[string]bool{
	"CRITICAL": true, "ERROR": true, "WARNING": true,
	"INFO": true, "DEBUG": true, "NOTSET": true,
}

var allowedDatabaseTypes = map[string]bool{
	"sqlite": true, "mysql": true, "postgresql": true,
}

// Load reads configuration from (in increasing precedence) built-in
// defaults, an optional config.toml found on XDG_CONFIG_DIRS, and
// environment variables, then validates and normalizes the result.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Debug("no .env file found, relying on environment and config file", "error", err)
	}

	viper.SetEnvPrefix("CLA")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	for _, dir := range configSearchDirs() {
		viper.AddConfigPath(filepath.Join(dir, "command_line_assistant"))
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("no config.toml found, using defaults and environment variables")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	normalize(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// configSearchDirs mirrors XDG_CONFIG_DIRS resolution: a colon-separated
// list of directories, falling back to /etc/xdg when unset.
func configSearchDirs() []string {
	dirs := os.Getenv("XDG_CONFIG_DIRS")
	if dirs == "" {
		dirs = "/etc/xdg"
	}
	return strings.Split(dirs, ":")
}

func setDefaults() {
	viper.SetDefault("output.enforce_script", false)
	viper.SetDefault("output.file", "/tmp/command-line-assistant_output.txt")
	viper.SetDefault("output.prompt_separator", "$")

	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.database.type", "sqlite")
	viper.SetDefault("history.database.max_open_conns", 10)
	viper.SetDefault("history.database.max_idle_conns", 5)
	viper.SetDefault("history.database.acquire_timeout_seconds", 5)

	viper.SetDefault("backend.endpoint", "http://localhost:8080")
	viper.SetDefault("backend.verify_ssl", true)

	viper.SetDefault("logging.level", "INFO")
	viper.SetDefault("logging.responses", true)
	viper.SetDefault("logging.question", true)
	viper.SetDefault("logging.audit_verbose", false)
	viper.SetDefault("logging.audit_file_path", "/var/log/command-line-assistant/audit.log")
	viper.SetDefault("logging.syslog_identifier", "command-line-assistant")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.url", "redis://localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("health_endpoint.enabled", true)
	viper.SetDefault("health_endpoint.addr", "127.0.0.1:8976")

	viper.SetDefault("bus.socket_path", "/run/command-line-assistant/clad.sock")
}

// normalize applies the defaulting and path-expansion rules of spec.md
// §4.12: database ports default by engine, and `~` in file paths expands
// against the caller's home directory.
func normalize(cfg *Config) {
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	db := &cfg.History.Database
	if db.Port == 0 {
		switch db.Type {
		case "mysql":
			db.Port = 3306
		case "postgresql":
			db.Port = 5432
		}
	}
	if db.Type == "sqlite" && db.ConnectionString == "" {
		db.ConnectionString = expandHome(filepath.Join("/var/lib/command-line-assistant", "history.db"))
	} else {
		db.ConnectionString = expandHome(db.ConnectionString)
	}

	cfg.Output.File = expandHome(cfg.Output.File)
	cfg.Logging.AuditFilePath = expandHome(cfg.Logging.AuditFilePath)
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func validate(cfg *Config) error {
	if !allowedLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level %q is not one of CRITICAL, ERROR, WARNING, INFO, DEBUG, NOTSET", cfg.Logging.Level)
	}
	if !allowedDatabaseTypes[cfg.History.Database.Type] {
		return fmt.Errorf("history.database.type %q is not one of sqlite, mysql, postgresql", cfg.History.Database.Type)
	}
	if cfg.Backend.Endpoint == "" {
		return fmt.Errorf("backend.endpoint is required")
	}
	return nil
}
