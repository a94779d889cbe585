package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// === DATABASE ===

type DatabaseConfig struct {
	Type           string               `json:"type" yaml:"type"` // "sqlite" or "postgresql"
	SQLite         SQLiteConfig         `json:"sqlite" yaml:"sqlite"`
	PostgreSQL     PostgreSQLConfig     `json:"postgresql" yaml:"postgresql"`
	ConnectionPool ConnectionPoolConfig `json:"connection_pool" yaml:"connection_pool"`
}

type SQLiteConfig struct {
	Path        string `json:"path" yaml:"path"`
	JournalMode string `json:"journal_mode" yaml:"journal_mode"`
	Synchronous string `json:"synchronous" yaml:"synchronous"`
}

type PostgreSQLConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode"`
}

type ConnectionPoolConfig struct {
	MaxIdleConnections    int    `json:"max_idle_connections" yaml:"max_idle_connections"`
	MaxOpenConnections    int    `json:"max_open_connections" yaml:"max_open_connections"`
	ConnectionMaxLifetime string `json:"connection_max_lifetime" yaml:"connection_max_lifetime"`
}

// === SERVER ===

type ServerConfig struct {
	ListenAddr          string `json:"listen_addr" yaml:"listen_addr"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	EnableCORS          bool   `json:"enable_cors" yaml:"enable_cors"`
}

// === DECISION ENGINE ===

type EngineConfig struct {
	Epsilon         *float64 `json:"epsilon" yaml:"epsilon"`
	HistoryCapacity int      `json:"history_capacity" yaml:"history_capacity"`
	EngagedAfter    int      `json:"engaged_after" yaml:"engaged_after"`
}

type PolicyConfig struct {
	TablePath  string `json:"table_path" yaml:"table_path"`
	WatchTable bool   `json:"watch_table" yaml:"watch_table"`
}

type ResponseConfig struct {
	DisableDelay bool                `json:"disable_delay" yaml:"disable_delay"`
	Messages     map[string][]string `json:"messages" yaml:"messages"` // severity -> message pool override
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// === NOTIFICATIONS ===

type NotificationsConfig struct {
	Enabled     bool          `json:"enabled" yaml:"enabled"`
	MinSeverity string        `json:"min_severity" yaml:"min_severity"`
	Webhook     WebhookConfig `json:"webhook" yaml:"webhook"`
	Slack       SlackConfig   `json:"slack" yaml:"slack"`
	Redis       RedisConfig   `json:"redis" yaml:"redis"`
}

type WebhookConfig struct {
	Enabled           bool              `json:"enabled" yaml:"enabled"`
	URL               string            `json:"url" yaml:"url"`
	TimeoutSeconds    int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	RetryCount        int               `json:"retry_count" yaml:"retry_count"`
	RetryDelaySeconds int               `json:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	BearerToken       string            `json:"bearer_token" yaml:"bearer_token"`
	Headers           map[string]string `json:"headers" yaml:"headers"`
}

type SlackConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Key      string `json:"key" yaml:"key"`
	MaxLen   int64  `json:"max_len" yaml:"max_len"`
}

// === SYSTEM ===

type LogRotationConfig struct {
	MaxSizeMB  int  `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int  `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int  `json:"max_age_days" yaml:"max_age_days"`
	Compress   bool `json:"compress" yaml:"compress"`
}

type SystemConfig struct {
	LogDir      string            `json:"log_dir" yaml:"log_dir"`
	LogLevel    string            `json:"log_level" yaml:"log_level"`
	Debug       bool              `json:"debug" yaml:"debug"`
	LogRotation LogRotationConfig `json:"log_rotation" yaml:"log_rotation"`
}

// === MAIN CONFIG STRUCTURE ===

type Config struct {
	Server        ServerConfig        `json:"server" yaml:"server"`
	Database      DatabaseConfig      `json:"database" yaml:"database"`
	Engine        EngineConfig        `json:"engine" yaml:"engine"`
	Policy        PolicyConfig        `json:"policy" yaml:"policy"`
	Response      ResponseConfig      `json:"response" yaml:"response"`
	Metrics       MetricsConfig       `json:"metrics" yaml:"metrics"`
	Notifications NotificationsConfig `json:"notifications" yaml:"notifications"`
	System        SystemConfig        `json:"system" yaml:"system"`
}

// === LOADER FUNCTIONS ===

// Load reads configPath, or the first readable well-known location when
// configPath is empty. A missing or unparsable file yields the defaults; only
// an unreadable explicit path is an error.
func Load(configPath string) (*Config, error) {
	var data []byte
	source := configPath

	if configPath != "" {
		d, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		data = d
	} else {
		locations := []string{
			os.Getenv("HONEYCOMB_CONFIG"),
			"./config/default.yaml",
			"./config/default.yml",
			"./config/default.json",
			"/etc/honeycomb/config.yaml",
			"/etc/honeycomb/config.json",
		}

		for _, loc := range locations {
			if loc == "" {
				continue
			}
			if d, err := os.ReadFile(loc); err == nil {
				data = d
				source = loc
				fmt.Printf("Loaded config from: %s\n", loc)
				break
			}
		}
	}

	if data == nil {
		fmt.Println("No config file found, using defaults")
		return Defaults(), nil
	}

	cfg, err := Parse(data, formatFor(source))
	if err != nil {
		fmt.Printf("Warning: Failed to parse config: %v, using defaults\n", err)
		return Defaults(), nil
	}
	return cfg, nil
}

// Parse decodes data as "yaml" or "json" and applies defaults.
func Parse(data []byte, format string) (*Config, error) {
	var cfg Config
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse json config: %w", err)
		}
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)
	return &cfg, nil
}

func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// expandEnvVars replaces ${VAR_NAME} with environment variables
func expandEnvVars(cfg *Config) {
	cfg.Database.SQLite.Path = os.ExpandEnv(cfg.Database.SQLite.Path)
	cfg.Database.PostgreSQL.Password = os.ExpandEnv(cfg.Database.PostgreSQL.Password)
	cfg.Policy.TablePath = os.ExpandEnv(cfg.Policy.TablePath)
	cfg.Notifications.Webhook.URL = os.ExpandEnv(cfg.Notifications.Webhook.URL)
	cfg.Notifications.Webhook.BearerToken = os.ExpandEnv(cfg.Notifications.Webhook.BearerToken)
	cfg.Notifications.Slack.WebhookURL = os.ExpandEnv(cfg.Notifications.Slack.WebhookURL)
	cfg.Notifications.Redis.Password = os.ExpandEnv(cfg.Notifications.Redis.Password)
	cfg.System.LogDir = os.ExpandEnv(cfg.System.LogDir)
}

// Defaults returns a fully populated configuration.
func Defaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			ListenAddr:          ":8080",
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 30,
			EnableCORS:          true,
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path:        "./data/honeycomb.db",
				JournalMode: "WAL",
				Synchronous: "NORMAL",
			},
			PostgreSQL: PostgreSQLConfig{
				Host:     "localhost",
				Port:     5432,
				Username: "honeycomb",
				Password: "${DB_PASSWORD}",
				Database: "honeycomb",
				SSLMode:  "disable",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Notifications: NotificationsConfig{
			MinSeverity: "HIGH",
		},
		System: SystemConfig{
			LogDir:   "./logs",
			LogLevel: "info",
		},
	}

	applyDefaults(cfg)
	expandEnvVars(cfg)
	return cfg
}

// MinWriteTimeoutSeconds keeps the server write deadline past the longest
// deliberate stall (8s for CRITICAL responses).
const MinWriteTimeoutSeconds = 9

func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 30
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		cfg.Server.WriteTimeoutSeconds = 30
	} else if cfg.Server.WriteTimeoutSeconds < MinWriteTimeoutSeconds {
		fmt.Printf("Warning: write_timeout_seconds %d is shorter than the longest response stall, raising to %d\n",
			cfg.Server.WriteTimeoutSeconds, MinWriteTimeoutSeconds)
		cfg.Server.WriteTimeoutSeconds = MinWriteTimeoutSeconds
	}

	// Database defaults
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "./data/honeycomb.db"
	}
	if cfg.Database.SQLite.JournalMode == "" {
		cfg.Database.SQLite.JournalMode = "WAL"
	}
	if cfg.Database.SQLite.Synchronous == "" {
		cfg.Database.SQLite.Synchronous = "NORMAL"
	}
	if cfg.Database.PostgreSQL.Port == 0 {
		cfg.Database.PostgreSQL.Port = 5432
	}
	if cfg.Database.PostgreSQL.SSLMode == "" {
		cfg.Database.PostgreSQL.SSLMode = "disable"
	}
	if cfg.Database.ConnectionPool.MaxIdleConnections == 0 {
		cfg.Database.ConnectionPool.MaxIdleConnections = 5
	}
	if cfg.Database.ConnectionPool.MaxOpenConnections == 0 {
		cfg.Database.ConnectionPool.MaxOpenConnections = 25
	}
	if cfg.Database.ConnectionPool.ConnectionMaxLifetime == "" {
		cfg.Database.ConnectionPool.ConnectionMaxLifetime = "1h"
	}

	// Engine defaults
	if cfg.Engine.HistoryCapacity <= 0 {
		cfg.Engine.HistoryCapacity = 50
	}
	if cfg.Engine.EngagedAfter <= 0 {
		cfg.Engine.EngagedAfter = 2
	}
	if cfg.Engine.Epsilon == nil {
		eps := 0.1
		cfg.Engine.Epsilon = &eps
	}

	// Metrics defaults
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// Notification defaults
	if cfg.Notifications.MinSeverity == "" {
		cfg.Notifications.MinSeverity = "HIGH"
	}
	if cfg.Notifications.Webhook.TimeoutSeconds == 0 {
		cfg.Notifications.Webhook.TimeoutSeconds = 10
	}
	if cfg.Notifications.Webhook.RetryCount == 0 {
		cfg.Notifications.Webhook.RetryCount = 3
	}
	if cfg.Notifications.Webhook.RetryDelaySeconds == 0 {
		cfg.Notifications.Webhook.RetryDelaySeconds = 5
	}
	if cfg.Notifications.Redis.Addr == "" {
		cfg.Notifications.Redis.Addr = "localhost:6379"
	}
	if cfg.Notifications.Redis.Key == "" {
		cfg.Notifications.Redis.Key = "honeycomb:decisions"
	}
	if cfg.Notifications.Redis.MaxLen <= 0 {
		cfg.Notifications.Redis.MaxLen = 1000
	}

	// System defaults
	if cfg.System.LogDir == "" {
		cfg.System.LogDir = "./logs"
	}
	if cfg.System.LogLevel == "" {
		cfg.System.LogLevel = "info"
	}
	if cfg.System.LogRotation.MaxSizeMB <= 0 {
		cfg.System.LogRotation.MaxSizeMB = 100
	}
	if cfg.System.LogRotation.MaxBackups <= 0 {
		cfg.System.LogRotation.MaxBackups = 5
	}
	if cfg.System.LogRotation.MaxAgeDays <= 0 {
		cfg.System.LogRotation.MaxAgeDays = 30
	}
}

// Epsilon returns the configured exploration rate.
func (c *Config) Epsilon() float64 {
	if c.Engine.Epsilon == nil {
		return 0.1
	}
	return *c.Engine.Epsilon
}
